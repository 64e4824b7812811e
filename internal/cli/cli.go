package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// Command represents what cgiserve should do.
type Command int

const (
	CommandServe Command = iota // default: serve the CGI directory
	CommandInit                 // write a starter config file
	CommandList                 // print the indexed scripts
)

const defaultConfigFile = "cgiserve.yaml"

// Config holds the parsed command line.
type Config struct {
	Command    Command
	Verbose    bool
	ConfigFile string
	Addr       string            // overrides server.addr when set
	Vars       map[string]string // --var KEY=VALUE, overrides the vars: section
}

// Parse parses command-line arguments into a Config.
//
// Format:
//
//	cgiserve [-c <file>] [-v] [-addr <addr>] [-var KEY=VALUE]...
//	cgiserve [-c <file>] init
//	cgiserve [-c <file>] list
func Parse(args []string) (Config, error) {
	cfg := Config{}

	fs := flag.NewFlagSet("cgiserve", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.BoolVar(&cfg.Verbose, "v", false, "")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "")
	fs.StringVar(&cfg.ConfigFile, "c", defaultConfigFile, "")
	fs.StringVar(&cfg.ConfigFile, "config", defaultConfigFile, "")
	fs.StringVar(&cfg.Addr, "addr", "", "")
	fs.Func("var", "", func(s string) error {
		k, v, ok := strings.Cut(s, "=")
		if !ok || k == "" {
			return fmt.Errorf("expected KEY=VALUE, got %q", s)
		}
		if cfg.Vars == nil {
			cfg.Vars = make(map[string]string)
		}
		cfg.Vars[k] = v
		return nil
	})

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	remaining := fs.Args()
	if len(remaining) == 0 {
		cfg.Command = CommandServe
	} else {
		switch remaining[0] {
		case "init":
			cfg.Command = CommandInit
		case "list":
			cfg.Command = CommandList
		default:
			return cfg, fmt.Errorf("unknown subcommand %q\n\n%s", remaining[0], Usage())
		}
		if len(remaining) > 1 {
			return cfg, fmt.Errorf("unexpected arguments after %s: %s", remaining[0], strings.Join(remaining[1:], " "))
		}
	}

	// init creates the file under the exact name given.
	if cfg.Command != CommandInit {
		cfg.ConfigFile = ResolveYAMLPath(cfg.ConfigFile)
	}
	return cfg, nil
}

// ResolveYAMLPath returns path if it exists. Otherwise a missing ".yaml" is
// retried as ".yml" and vice versa; if neither exists path is returned as-is.
func ResolveYAMLPath(path string) string {
	if _, err := os.Stat(path); err == nil {
		return path
	}

	var alt string
	if base, ok := strings.CutSuffix(path, ".yaml"); ok {
		alt = base + ".yml"
	} else if base, ok := strings.CutSuffix(path, ".yml"); ok {
		alt = base + ".yaml"
	} else {
		return path
	}
	if _, err := os.Stat(alt); err == nil {
		return alt
	}
	return path
}

// Usage returns the help text for cgiserve.
func Usage() string {
	return `cgiserve - serve a directory of CGI scripts over HTTP

Usage:
  cgiserve [flags]               Load cgiserve.yaml and serve
  cgiserve [flags] init          Generate a starter config file
  cgiserve [flags] list          Print the scripts that would be served

Flags:
  -c, --config <file>     Config file path (default: cgiserve.yaml, .yml also tried)
  --addr <addr>           Listen address, overrides server.addr
  --var KEY=VALUE         Template variable, overrides vars: (repeatable)
  -v, --verbose           Verbose output (script index changes, timings)
  -h, --help              Show this help

Config file (cgiserve.yaml):
  vars:
    PORT: "8080"
  server:
    addr: ":{{ .PORT }}"
    prefix: /cgi-bin
    cgi_dir: ./cgi-bin
    scripts: ["**/*.py", "!**/_*"]
    interpreters:
      .py: python3
    env: [PATH]
    timeout: 30s
    max_body_bytes: 1048576

Template features:
  - vars: section for defining template variables
  - Functions: default, required, env, int
  - Environment variables override --var, which overrides the vars section
`
}
