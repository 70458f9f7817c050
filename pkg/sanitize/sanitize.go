// Package sanitize makes untrusted log text safe to print or store.
package sanitize

import (
	"strings"
	"unicode/utf8"
)

const DefaultMaxDisplayLength = 256

// String neutralizes terminal control sequences in s and truncates the
// result to maxLen bytes without splitting a UTF-8 sequence. maxLen <= 0
// means no limit.
func String(s string, maxLen int) string {
	return Truncate(Terminal(s), maxLen)
}

// Terminal replaces escape sequences and control characters with visible
// markers so that a hostile log line cannot drive the terminal.
func Terminal(s string) string {
	if s == "" {
		return s
	}

	needsSanitization := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 || c == 0x7F {
			needsSanitization = true
			break
		}
	}

	if !needsSanitization {
		return s
	}

	var result strings.Builder
	result.Grow(len(s))

	i := 0
	for i < len(s) {
		c := s[i]

		if c == 0x1B {
			i++
			if i < len(s) && s[i] == '[' {
				i++
				for i < len(s) && !isCSITerminator(s[i]) {
					i++
				}
				if i < len(s) {
					i++
				}
			}
			result.WriteString("[ESC]")
			continue
		}

		switch {
		case c == '\t', c == '\n':
			result.WriteByte(' ')
		case c == '\r':
			result.WriteString("[CR]")
		case c < 0x20:
			result.WriteString("[CTRL]")
		case c == 0x7F:
			result.WriteString("[DEL]")
		default:
			result.WriteByte(c)
		}
		i++
	}

	return result.String()
}

func isCSITerminator(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || c == '@' || c == '`'
}

// Truncate cuts s to at most maxLen bytes, marking the cut with "...".
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return cutRunes(s, maxLen)
	}
	return cutRunes(s, maxLen-3) + "..."
}

func cutRunes(s string, n int) string {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// Line prepares a raw log line for a JSON record: invalid UTF-8 and control
// characters are dropped and the result is bounded.
func Line(s string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxDisplayLength
	}

	var result strings.Builder
	result.Grow(min(len(s), maxLen))

	for _, r := range s {
		if r == utf8.RuneError {
			continue
		}
		if r < 0x20 || r == 0x7F {
			if r == '\t' {
				r = ' '
			} else {
				continue
			}
		}
		if result.Len()+utf8.RuneLen(r) > maxLen-3 {
			result.WriteString("...")
			break
		}
		result.WriteRune(r)
	}

	return result.String()
}

// Host keeps the characters that can appear in an address or DNS name.
func Host(host string) string {
	var result strings.Builder
	result.Grow(len(host))

	for _, r := range host {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			r == '.' || r == ':' || r == '-' || r == '_' {
			result.WriteRune(r)
		}
	}

	sanitized := result.String()
	if sanitized == "" {
		return "[INVALID]"
	}
	return sanitized
}
