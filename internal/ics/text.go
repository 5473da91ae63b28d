package ics

import "strings"

// RFC 5545 §3.3.11 TEXT escaping. The library handles line folding but
// leaves value escaping to the caller, so multi-line notes (which carry the
// SOURCE_ID tag line plus user text) must round-trip through these helpers.

func escapeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case ';':
			b.WriteString(`\;`)
		case ',':
			b.WriteString(`\,`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			// Bare CR has no representation in TEXT; drop it.
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func unescapeText(s string) string {
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
		switch r {
		case 'n', 'N':
			b.WriteRune('\n')
		case '\\', ';', ',':
			b.WriteRune(r)
		default:
			// Unknown escape; keep it verbatim.
			b.WriteRune('\\')
			b.WriteRune(r)
		}
		escaped = false
	}
	if escaped {
		b.WriteRune('\\')
	}
	return b.String()
}
