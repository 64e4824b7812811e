package cgihost

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gur-shatz/go-cgi/internal/log"
	"github.com/gur-shatz/go-cgi/internal/watcher"
)

const watchDebounce = 200 * time.Millisecond

// Host serves the scripts of one CGI directory over HTTP.
type Host struct {
	cfg      *Config
	registry *Registry
	log      *log.Logger
}

// ScriptInfo describes a script in the /scripts listing.
type ScriptInfo struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	Interpreter string `json:"interpreter,omitempty"`
}

// New creates a Host and indexes the CGI directory.
func New(cfg *Config, logger *log.Logger) (*Host, error) {
	registry := NewRegistry(cfg.CGIDir, cfg.Patterns(), logger)
	if err := registry.Refresh(); err != nil {
		return nil, err
	}
	return &Host{cfg: cfg, registry: registry, log: logger}, nil
}

// Registry returns the script index.
func (this *Host) Registry() *Registry {
	return this.registry
}

// Scripts lists the indexed scripts.
func (this *Host) Scripts() []ScriptInfo {
	names := this.registry.Scripts()
	out := make([]ScriptInfo, 0, len(names))
	for _, n := range names {
		out = append(out, ScriptInfo{
			Name:        n,
			URL:         this.cfg.ScriptURL(n),
			Interpreter: this.cfg.Interpreter(n),
		})
	}
	return out
}

// Watch keeps the script index current until the context is cancelled.
func (this *Host) Watch(ctx context.Context) error {
	refresh := func() {
		if err := this.registry.Refresh(); err != nil {
			this.log.Error("rescan %s: %v", this.cfg.CGIDir, err)
		}
	}
	w := watcher.New(this.cfg.CGIDir, watchDebounce, refresh, this.log)

	// Catch anything that changed between New and the first watch.
	go func() {
		select {
		case <-w.Ready():
			refresh()
		case <-ctx.Done():
		}
	}()
	return w.Run(ctx)
}

// Routes returns a chi.Router with the health and listing endpoints and the
// script handler under the configured prefix.
func (this *Host) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(this.logRequests)

	r.Get("/health", this.handleHealth)
	r.Get("/scripts", this.handleListScripts)
	r.HandleFunc(this.cfg.Prefix+"/*", this.handleScript)

	return r
}

func (this *Host) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		this.log.Request(r.Method, r.URL.RequestURI(), status, time.Since(start))
	})
}

func (this *Host) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (this *Host) handleListScripts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, this.Scripts())
}

func (this *Host) handleScript(w http.ResponseWriter, r *http.Request) {
	script, pathInfo, err := this.registry.Lookup(chi.URLParam(r, "*"))
	if err != nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	var body []byte
	if r.Body != nil {
		body, err = io.ReadAll(http.MaxBytesReader(w, r.Body, this.cfg.MaxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				http.Error(w, "Request Entity Too Large", http.StatusRequestEntityTooLarge)
			} else {
				http.Error(w, "Bad Request", http.StatusBadRequest)
			}
			return
		}
	}

	res, err := Execute(r.Context(), Invocation{
		Path:        filepath.Join(this.cfg.CGIDir, filepath.FromSlash(script)),
		Interpreter: this.cfg.Interpreter(script),
		Env:         MetaVars(r, this.cfg, script, pathInfo, len(body)),
		Stdin:       body,
		Timeout:     this.cfg.Timeout,
	}, this.log)
	if err != nil {
		this.log.Error("%v", err)
		if errors.Is(err, ErrTimeout) {
			http.Error(w, "Gateway Timeout", http.StatusGatewayTimeout)
		} else {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
		return
	}
	if res.ExitCode != 0 {
		this.log.Error("%s exited with status %d", script, res.ExitCode)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	this.log.Verbose("%s finished in %s", script, res.Elapsed)

	resp, err := ParseResponse(res.Stdout)
	if err != nil {
		this.log.Error("%s: %v", script, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	for k, vs := range resp.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.Status)
	w.Write(resp.Body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
