package glob

import (
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Pattern is a single doublestar pattern, either include or exclude.
type Pattern struct {
	Raw     string
	Negated bool
}

// ParsePatterns converts strings to patterns. A leading "!" marks an
// exclusion.
func ParsePatterns(raw []string) []Pattern {
	patterns := make([]Pattern, 0, len(raw))
	for _, r := range raw {
		if len(r) > 0 && r[0] == '!' {
			patterns = append(patterns, Pattern{Raw: r[1:], Negated: true})
		} else {
			patterns = append(patterns, Pattern{Raw: r})
		}
	}
	return patterns
}

// Validate reports the first syntactically invalid pattern.
func Validate(patterns []Pattern) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p.Raw) {
			return fmt.Errorf("invalid pattern %q", p.Raw)
		}
	}
	return nil
}

// Match reports whether a slash-separated relative path is selected: it
// matches at least one include and no exclude.
func Match(patterns []Pattern, rel string) bool {
	included := false
	for _, p := range patterns {
		ok, _ := doublestar.Match(p.Raw, rel)
		if !ok {
			continue
		}
		if p.Negated {
			return false
		}
		included = true
	}
	return included
}

// ExpandFiles returns the sorted regular files under root selected by
// patterns, as slash-separated paths relative to root.
func ExpandFiles(root string, patterns []Pattern) ([]string, error) {
	fsys := os.DirFS(root)
	selected := make(map[string]bool)

	for _, p := range patterns {
		if p.Negated {
			continue
		}
		matches, err := doublestar.Glob(fsys, p.Raw, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", p.Raw, err)
		}
		for _, m := range matches {
			selected[m] = true
		}
	}

	result := make([]string, 0, len(selected))
	for m := range selected {
		if Match(patterns, m) && isRegular(fsys, m) {
			result = append(result, m)
		}
	}
	sort.Strings(result)
	return result, nil
}

func isRegular(fsys fs.FS, name string) bool {
	info, err := fs.Stat(fsys, name)
	return err == nil && info.Mode().IsRegular()
}
