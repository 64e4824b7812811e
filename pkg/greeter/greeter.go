// Package greeter implements the hello CGI program: it reads a form-encoded
// request body from stdin and greets the "name" field in HTML.
package greeter

import (
	"fmt"
	"io"

	"github.com/gur-shatz/go-cgi/internal/form"
)

// DefaultName is used when the body carries no usable "name" field.
const DefaultName = "stranger"

// Name returns the first "name" value of a form-encoded body.
func Name(body string) string {
	if name, ok := form.Parse(body).Get("name"); ok {
		return name
	}
	return DefaultName
}

// WriteResponse writes the CGI response greeting name. The name is embedded
// as-is, without HTML escaping.
func WriteResponse(w io.Writer, name string) error {
	_, err := fmt.Fprintf(w, "Content-Type: text/html\r\n\n\r\n\n<html><body><h1>Hello, %s! 🥹</h1></body></html>\n", name)
	return err
}

// Serve reads the whole request body from r and writes the greeting to w.
func Serve(r io.Reader, w io.Writer) error {
	body, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := WriteResponse(w, Name(string(body))); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}
