package ical

import "strings"

// Unescape resolves TEXT escape sequences in a single left-to-right pass.
// Each backslash consumes exactly the next character, so "\\n" yields a
// literal backslash followed by "n" rather than a newline.
func Unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	escaped := false
	for _, r := range s {
		if !escaped {
			if r == '\\' {
				escaped = true
				continue
			}
			b.WriteRune(r)
			continue
		}

		escaped = false
		switch r {
		case ';', ',', '\\':
			b.WriteRune(r)
		case 'n', 'N':
			b.WriteByte('\n')
		default:
			// unknown escape: keep it verbatim
			b.WriteByte('\\')
			b.WriteRune(r)
		}
	}
	if escaped {
		b.WriteByte('\\')
	}
	return b.String()
}

// Escape is the inverse of Unescape for text values.
func Escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			b.WriteString(`\\`)
		case ';':
			b.WriteString(`\;`)
		case ',':
			b.WriteString(`\,`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			if i+1 < len(s) && s[i+1] == '\n' {
				continue
			}
			b.WriteString(`\n`)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
