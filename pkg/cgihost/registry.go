package cgihost

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/gur-shatz/go-cgi/internal/glob"
	"github.com/gur-shatz/go-cgi/internal/log"
)

// ErrScriptNotFound is returned when a URL path names no known script.
var ErrScriptNotFound = errors.New("script not found")

// Registry is the set of scripts under the CGI directory.
type Registry struct {
	dir      string
	patterns []glob.Pattern
	log      *log.Logger

	mu      sync.RWMutex
	scripts map[string]bool
}

// NewRegistry creates an empty Registry. Call Refresh to populate it.
func NewRegistry(dir string, patterns []glob.Pattern, logger *log.Logger) *Registry {
	return &Registry{
		dir:      dir,
		patterns: patterns,
		log:      logger,
		scripts:  make(map[string]bool),
	}
}

// Refresh rescans the CGI directory.
func (this *Registry) Refresh() error {
	files, err := glob.ExpandFiles(this.dir, this.patterns)
	if err != nil {
		return err
	}

	next := make(map[string]bool, len(files))
	for _, f := range files {
		next[f] = true
	}

	this.mu.Lock()
	prev := this.scripts
	this.scripts = next
	this.mu.Unlock()

	for f := range next {
		if !prev[f] {
			this.log.Verbose("script added: %s", f)
		}
	}
	for f := range prev {
		if !next[f] {
			this.log.Verbose("script removed: %s", f)
		}
	}
	return nil
}

// Scripts returns the known scripts, sorted.
func (this *Registry) Scripts() []string {
	this.mu.RLock()
	defer this.mu.RUnlock()

	out := make([]string, 0, len(this.scripts))
	for s := range this.scripts {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Lookup maps a URL path, relative to the prefix, to a script and the
// PATH_INFO that follows it. "admin/status.cgi/x/y" resolves to the script
// "admin/status.cgi" with PATH_INFO "/x/y".
func (this *Registry) Lookup(urlPath string) (script, pathInfo string, err error) {
	var parts []string
	for _, p := range strings.Split(urlPath, "/") {
		if p == "" {
			continue
		}
		if p == "." || p == ".." {
			return "", "", ErrScriptNotFound
		}
		parts = append(parts, p)
	}

	this.mu.RLock()
	defer this.mu.RUnlock()

	for i := 1; i <= len(parts); i++ {
		candidate := strings.Join(parts[:i], "/")
		if !this.scripts[candidate] {
			continue
		}
		if i < len(parts) {
			pathInfo = "/" + strings.Join(parts[i:], "/")
		} else if strings.HasSuffix(urlPath, "/") {
			pathInfo = "/"
		}
		return candidate, pathInfo, nil
	}
	return "", "", ErrScriptNotFound
}
