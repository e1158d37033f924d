// Package sanitize strips characters that are invalid in XML 1.0 output.
// Every free-text value injected into a published document passes through
// XML first so the serializer can never emit an invalid document.
package sanitize

import "strings"

// XML removes code points outside the XML 1.0 character range: control
// characters below 0x20 (except tab, newline, carriage return), surrogate
// halves, and the non-characters U+FFFE/U+FFFF. Invalid UTF-8 bytes are
// dropped as well.
func XML(s string) string {
	if !needsStrip(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if valid(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func valid(r rune) bool {
	switch {
	case r == '\t' || r == '\n' || r == '\r':
		return true
	case r < 0x20:
		return false
	case r >= 0xD800 && r <= 0xDFFF:
		return false
	case r == 0xFFFE || r == 0xFFFF:
		return false
	case r == '�': // replacement rune from invalid input bytes
		return false
	}
	return true
}

func needsStrip(s string) bool {
	for _, r := range s {
		if !valid(r) {
			return true
		}
	}
	return false
}
