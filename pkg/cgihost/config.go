package cgihost

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/shlex"

	"github.com/gur-shatz/go-cgi/internal/glob"
	"github.com/gur-shatz/go-cgi/pkg/config"
)

const (
	defaultAddr         = ":8080"
	defaultPrefix       = "/cgi-bin"
	defaultTimeout      = 30 * time.Second
	defaultMaxBodyBytes = 1 << 20
	defaultScript       = "**/*"
)

// Config is the server: section of cgiserve.yaml.
type Config struct {
	Addr         string            `yaml:"addr"           validate:"required"`
	Prefix       string            `yaml:"prefix"         validate:"omitempty,startswith=/"`
	CGIDir       string            `yaml:"cgi_dir"        validate:"required"`
	ServerName   string            `yaml:"server_name"`
	Scripts      []string          `yaml:"scripts"`                         // doublestar patterns, "!" excludes
	Interpreters map[string]string `yaml:"interpreters"`                    // extension → command, e.g. .py: python3
	Env          []string          `yaml:"env"`                             // host variables passed through to scripts
	Timeout      time.Duration     `yaml:"timeout"        validate:"gte=0"` // zero means the default
	MaxBodyBytes int64             `yaml:"max_body_bytes" validate:"gte=0"` // zero means the default
}

// Patterns returns the parsed script patterns.
func (this *Config) Patterns() []glob.Pattern {
	return glob.ParsePatterns(this.Scripts)
}

// Interpreter returns the command configured for the script's extension.
func (this *Config) Interpreter(script string) string {
	return this.Interpreters[filepath.Ext(script)]
}

// ScriptURL is the URL path a script is served under.
func (this *Config) ScriptURL(script string) string {
	return this.Prefix + "/" + script
}

// LoadConfig reads cgiserve.yaml, decodes its server: section, applies
// defaults and validates the result. A relative cgi_dir is resolved against
// the directory of the config file.
func LoadConfig(path string, opts ...config.Option) (*Config, error) {
	doc, _, err := config.LoadFile(path, opts...)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := doc.GetInto("server", &cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.applyDefaults()

	if cfg.CGIDir != "" && !filepath.IsAbs(cfg.CGIDir) {
		cfg.CGIDir = filepath.Join(filepath.Dir(path), cfg.CGIDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func (this *Config) applyDefaults() {
	if this.Addr == "" {
		this.Addr = defaultAddr
	}
	if this.Prefix == "" {
		this.Prefix = defaultPrefix
	}
	// "/" serves scripts at the root; the stored prefix never ends in a slash.
	this.Prefix = strings.TrimRight(this.Prefix, "/")
	if this.Timeout == 0 {
		this.Timeout = defaultTimeout
	}
	if this.MaxBodyBytes == 0 {
		this.MaxBodyBytes = defaultMaxBodyBytes
	}
	if len(this.Scripts) == 0 {
		this.Scripts = []string{defaultScript}
	}

	interpreters := make(map[string]string, len(this.Interpreters))
	for ext, cmd := range this.Interpreters {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		interpreters[ext] = cmd
	}
	this.Interpreters = interpreters
}

// Validate checks struct tags, script patterns and the CGI directory.
func (this *Config) Validate() error {
	if err := config.Validate(this); err != nil {
		return err
	}
	if err := glob.Validate(this.Patterns()); err != nil {
		return fmt.Errorf("scripts: %w", err)
	}
	for ext, cmd := range this.Interpreters {
		fields, err := shlex.Split(cmd)
		if err != nil {
			return fmt.Errorf("interpreter for %q: %w", ext, err)
		}
		if len(fields) == 0 {
			return fmt.Errorf("interpreter for %q is empty", ext)
		}
	}
	info, err := os.Stat(this.CGIDir)
	if err != nil {
		return fmt.Errorf("cgi_dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("cgi_dir %s is not a directory", this.CGIDir)
	}
	return nil
}

// DefaultConfigYAML is the commented starter config for `cgiserve init`.
//
//go:embed cgiserve.default.yaml
var DefaultConfigYAML string
