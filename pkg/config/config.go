package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

const (
	varsKey            = "vars"
	noValuePlaceholder = "<no value>"
	maxVarPasses       = 10
)

// Option configures template processing.
type Option func(*options)

type options struct {
	vars map[string]string // extra template vars, below env priority
	env  map[string]string // env source, defaults to os.Environ()
}

// WithVars provides additional template variables. They lose to environment
// variables and win over the document's vars: section.
func WithVars(vars map[string]string) Option {
	return func(o *options) {
		o.vars = vars
	}
}

// WithEnv overrides the environment variable source.
func WithEnv(env map[string]string) Option {
	return func(o *options) {
		o.env = env
	}
}

// LoadFile reads a YAML file, processes templates and parses it into an O.
// The resolved vars: section is returned separately.
func LoadFile(path string, opts ...Option) (O, map[string]string, error) {
	data, vars, err := ProcessFile(path, opts...)
	if err != nil {
		return nil, nil, err
	}
	var cfg O
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg == nil {
		cfg = O{}
	}
	return cfg, vars, nil
}

// ProcessFile reads a YAML file and processes it with Process.
func ProcessFile(path string, opts ...Option) ([]byte, map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Process(data, opts...)
}

// Process runs raw YAML through text/template and strips the vars: section.
//
// Template data comes from three sources, highest priority first:
// environment variables, WithVars, and the document's own vars: section.
// Vars may reference each other; they are resolved in up to ten passes.
// Functions: default, required, env, int.
func Process(data []byte, opts ...Option) ([]byte, map[string]string, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	env := o.env
	if env == nil {
		env = environMap()
	}
	if o.vars != nil {
		merged := make(map[string]string, len(env)+len(o.vars))
		for k, v := range o.vars {
			merged[k] = v
		}
		for k, v := range env {
			merged[k] = v
		}
		env = merged
	}

	vars, err := resolveVars(data, env)
	if err != nil {
		return nil, nil, err
	}

	out, err := executeTemplate(data, templateData(vars, env), env)
	if err != nil {
		return nil, nil, fmt.Errorf("template error: %w", err)
	}
	if err := checkUndefined(data, out); err != nil {
		return nil, nil, err
	}

	if vars == nil {
		vars = make(map[string]string)
	}
	return removeVarsSection(out), vars, nil
}

// resolveVars evaluates the vars: section. Each pass resolves the vars whose
// dependencies are already known, until nothing is left or no progress is made.
func resolveVars(data []byte, env map[string]string) (map[string]string, error) {
	var raw struct {
		Vars map[string]any `yaml:"vars"`
	}
	// Templated documents are not always valid YAML before substitution.
	yaml.Unmarshal(data, &raw)
	if len(raw.Vars) == 0 {
		return nil, nil
	}

	pending := make(map[string]string, len(raw.Vars))
	for k, v := range raw.Vars {
		pending[k] = fmt.Sprintf("%v", v)
	}
	resolved := make(map[string]string, len(pending))

	for pass := 0; pass < maxVarPasses && len(pending) > 0; pass++ {
		progress := false
		for k, expr := range pending {
			val, err := executeTemplate([]byte(expr), templateData(resolved, env), env)
			if err != nil || bytes.Contains(val, []byte(noValuePlaceholder)) {
				continue
			}
			resolved[k] = string(val)
			delete(pending, k)
			progress = true
		}
		if !progress {
			break
		}
	}

	for k, expr := range pending {
		if _, err := executeTemplate([]byte(expr), templateData(resolved, env), env); err != nil {
			return nil, fmt.Errorf("var %q: %w", k, err)
		}
		return nil, fmt.Errorf("var %q could not be resolved (circular dependency?)", k)
	}
	return resolved, nil
}

func templateData(vars, env map[string]string) map[string]any {
	td := make(map[string]any, len(vars)+len(env))
	for k, v := range vars {
		td[k] = v
	}
	for k, v := range env {
		td[k] = v
	}
	return td
}

func executeTemplate(data []byte, td map[string]any, env map[string]string) ([]byte, error) {
	tmpl, err := template.New("config").
		Option("missingkey=zero").
		Funcs(templateFuncs(env)).
		Parse(string(data))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, td); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// checkUndefined reports the source lines whose output still holds the
// "<no value>" marker of a missing key.
func checkUndefined(original, result []byte) error {
	if !bytes.Contains(result, []byte(noValuePlaceholder)) {
		return nil
	}
	srcLines := bytes.Split(original, []byte("\n"))
	var problems []string
	for i, line := range bytes.Split(result, []byte("\n")) {
		if !bytes.Contains(line, []byte(noValuePlaceholder)) {
			continue
		}
		src := ""
		if i < len(srcLines) {
			src = string(srcLines[i])
		}
		problems = append(problems, fmt.Sprintf("  line %d: %s", i+1, strings.TrimSpace(src)))
	}
	return fmt.Errorf("undefined variable in config. Use 'default' function or define the variable.\nProblem lines:\n%s", strings.Join(problems, "\n"))
}

func templateFuncs(env map[string]string) template.FuncMap {
	return template.FuncMap{
		"default": func(def, val any) any {
			if val == nil {
				return def
			}
			if s, ok := val.(string); ok && s == "" {
				return def
			}
			return val
		},
		"env": func(name string) string {
			return env[name]
		},
		"required": func(msg string, val any) (any, error) {
			if val == nil {
				return nil, fmt.Errorf("%s", msg)
			}
			if s, ok := val.(string); ok && s == "" {
				return nil, fmt.Errorf("%s", msg)
			}
			return val, nil
		},
		// Usage: {{ .PORT | int }}
		"int": toInt,
	}
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case string:
		var i int
		if _, err := fmt.Sscanf(n, "%d", &i); err != nil {
			return 0, fmt.Errorf("cannot convert %q to int", n)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to int", v)
	}
}

func removeVarsSection(data []byte) []byte {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil || raw == nil {
		return data
	}
	if _, ok := raw[varsKey]; !ok {
		return data
	}
	delete(raw, varsKey)
	out, err := yaml.Marshal(raw)
	if err != nil {
		return data
	}
	return out
}

func environMap() map[string]string {
	env := make(map[string]string)
	for _, e := range os.Environ() {
		if k, v, ok := strings.Cut(e, "="); ok {
			env[k] = v
		}
	}
	return env
}
