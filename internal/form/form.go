package form

import (
	"strings"
	"unicode/utf8"
)

// Values maps a field name to its values in the order they appeared.
type Values map[string][]string

// Get returns the first value for key.
func (this Values) Get(key string) (string, bool) {
	vs := this[key]
	if len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

// Parse decodes an ampersand-joined, percent-encoded body.
//
// Parsing is lenient and never fails:
//   - empty parts and parts without '=' are skipped
//   - pairs with an empty value are skipped
//   - '+' decodes to a space
//   - malformed percent sequences are kept as-is
func Parse(s string) Values {
	values := make(Values)
	for _, part := range strings.Split(s, "&") {
		if part == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok || v == "" {
			continue
		}
		key := Unescape(strings.ReplaceAll(k, "+", " "))
		values[key] = append(values[key], Unescape(strings.ReplaceAll(v, "+", " ")))
	}
	return values
}

// Unescape decodes %XX sequences. Invalid sequences are copied through
// literally and decoded bytes that do not form valid UTF-8 become U+FFFD.
func Unescape(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}

	buf := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			buf = append(buf, unhex(s[i+1])<<4|unhex(s[i+2]))
			i += 2
			continue
		}
		buf = append(buf, s[i])
	}
	return toValidUTF8(buf)
}

// toValidUTF8 replaces each maximal invalid subpart with a single U+FFFD:
// a truncated multi-byte sequence becomes one replacement, a stray byte
// becomes one replacement.
func toValidUTF8(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	var sb strings.Builder
	sb.Grow(len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r == utf8.RuneError && size == 1 {
			sb.WriteRune(utf8.RuneError)
			size = invalidPrefixLen(b)
		} else {
			sb.Write(b[:size])
		}
		b = b[size:]
	}
	return sb.String()
}

// invalidPrefixLen returns the length of the maximal invalid subpart at the
// start of b: the lead byte plus the continuation bytes that were still
// acceptable before the sequence broke off.
func invalidPrefixLen(b []byte) int {
	lo, hi := byte(0x80), byte(0xBF)
	var need int
	switch c := b[0]; {
	case c >= 0xC2 && c <= 0xDF:
		need = 1
	case c == 0xE0:
		need, lo = 2, 0xA0
	case c == 0xED:
		need, hi = 2, 0x9F
	case c >= 0xE1 && c <= 0xEF:
		need = 2
	case c == 0xF0:
		need, lo = 3, 0x90
	case c == 0xF4:
		need, hi = 3, 0x8F
	case c >= 0xF1 && c <= 0xF3:
		need = 3
	default:
		return 1
	}
	i := 1
	for ; i <= need && i < len(b); i++ {
		if b[i] < lo || b[i] > hi {
			break
		}
		lo, hi = 0x80, 0xBF
	}
	return i
}

func isHex(c byte) bool {
	switch {
	case '0' <= c && c <= '9':
		return true
	case 'a' <= c && c <= 'f':
		return true
	case 'A' <= c && c <= 'F':
		return true
	}
	return false
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}
