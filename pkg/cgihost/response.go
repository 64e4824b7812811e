package cgihost

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
)

// ErrInvalidResponse is returned for script output that is not a CGI
// response.
var ErrInvalidResponse = errors.New("invalid CGI response")

// Response is a parsed CGI response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// ParseResponse splits script output at the first blank line. Lines may end
// in "\n" or "\r\n". The Status header sets the code and is removed; a
// Location without Status means 302; otherwise the status is 200.
func ParseResponse(out []byte) (*Response, error) {
	header := make(http.Header)
	rest := out
	for {
		i := bytes.IndexByte(rest, '\n')
		if i < 0 {
			return nil, fmt.Errorf("%w: no blank line after headers", ErrInvalidResponse)
		}
		line := strings.TrimRight(string(rest[:i]), "\r")
		rest = rest[i+1:]
		if line == "" {
			break
		}
		k, v, ok := strings.Cut(line, ":")
		k = strings.TrimSpace(k)
		if !ok || k == "" || strings.ContainsAny(k, " \t") {
			return nil, fmt.Errorf("%w: bad header line %q", ErrInvalidResponse, line)
		}
		header.Add(textproto.CanonicalMIMEHeaderKey(k), strings.TrimSpace(v))
	}
	if len(header) == 0 {
		return nil, fmt.Errorf("%w: no headers", ErrInvalidResponse)
	}

	status := http.StatusOK
	if s := header.Get("Status"); s != "" {
		code, _, _ := strings.Cut(s, " ")
		n, err := strconv.Atoi(code)
		if err != nil || n < 100 || n > 999 {
			return nil, fmt.Errorf("%w: bad status %q", ErrInvalidResponse, s)
		}
		status = n
		header.Del("Status")
	} else if header.Get("Location") != "" {
		status = http.StatusFound
	}

	return &Response{Status: status, Header: header, Body: rest}, nil
}
