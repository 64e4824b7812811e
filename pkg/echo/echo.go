// Package echo implements the post CGI program: it reads CONTENT_LENGTH
// bytes from stdin and echoes them back as plain text.
package echo

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrBadContentLength is returned when CONTENT_LENGTH is not an integer.
var ErrBadContentLength = errors.New("bad CONTENT_LENGTH")

// LookupFunc resolves an environment variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Environ looks variables up in the process environment.
var Environ LookupFunc = os.LookupEnv

// ContentLength returns the declared body length. Unset or empty means 0.
func ContentLength(lookup LookupFunc) (int, error) {
	raw, ok := lookup("CONTENT_LENGTH")
	if !ok || raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadContentLength, raw)
	}
	return n, nil
}

// Serve echoes the request body read from r to w.
//
// A short stream yields a truncated body; a negative length reads to EOF.
// If CONTENT_LENGTH is malformed nothing is written.
func Serve(lookup LookupFunc, r io.Reader, w io.Writer) error {
	n, err := ContentLength(lookup)
	if err != nil {
		return err
	}

	if n == 0 {
		_, err = io.WriteString(w, "Content-Type: text/plain\n\nNo data received\n")
		return err
	}

	body, err := readBody(r, n)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	_, err = fmt.Fprintf(w, "Content-Type: text/plain\n\nYou sent: %s\n", body)
	return err
}

func readBody(r io.Reader, n int) ([]byte, error) {
	if n < 0 {
		return io.ReadAll(r)
	}
	// A short stream yields a truncated body.
	return io.ReadAll(io.LimitReader(r, int64(n)))
}
