package color

import (
	"os"

	"golang.org/x/term"
)

var enabled bool

// Init enables colors when stderr is a TTY.
func Init() {
	enabled = term.IsTerminal(int(os.Stderr.Fd()))
}

// SetEnabled forces colors on or off.
func SetEnabled(v bool) {
	enabled = v
}

func wrap(code, s string) string {
	if !enabled {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

func Red(s string) string    { return wrap("31", s) }
func Yellow(s string) string { return wrap("33", s) }
func Green(s string) string  { return wrap("32", s) }
func Bold(s string) string   { return wrap("1", s) }
func Dim(s string) string    { return wrap("2", s) }
func Cyan(s string) string   { return wrap("36", s) }

// ForStatus colors s by HTTP status class: 2xx green, 3xx cyan, 4xx yellow,
// 5xx red.
func ForStatus(code int, s string) string {
	switch {
	case code >= 500:
		return Red(s)
	case code >= 400:
		return Yellow(s)
	case code >= 300:
		return Cyan(s)
	default:
		return Green(s)
	}
}
