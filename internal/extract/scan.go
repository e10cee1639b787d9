package extract

import (
	"strings"
	"unicode/utf8"
)

func isValidUTF8(s string) bool {
	return utf8.ValidString(s)
}

// skipString returns the index just past the string literal starting at i
func skipString(s string, i int) int {
	quote := s[i]
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case quote:
			return j + 1
		}
	}
	return len(s)
}

func isQuote(c byte) bool {
	return c == '"' || c == '\'' || c == '`'
}

// matchBracket returns the index of the bracket closing the one at open,
// or -1. String literals are skipped.
func matchBracket(s string, open int, left, right byte) int {
	depth := 0
	for i := open; i < len(s); i++ {
		c := s[i]
		switch {
		case isQuote(c):
			i = skipString(s, i) - 1
		case c == left:
			depth++
		case c == right:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func isOpen(c byte) bool  { return c == '(' || c == '[' || c == '{' }
func isClose(c byte) bool { return c == ')' || c == ']' || c == '}' }

// splitTopLevel splits s on sep outside of brackets and strings
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case isQuote(c):
			i = skipString(s, i) - 1
		case isOpen(c):
			depth++
		case isClose(c):
			depth--
		case c == sep && depth == 0:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	if start <= len(s) {
		parts = append(parts, s[start:])
	}
	return parts
}

// indexTopLevel finds sep outside of brackets and strings
func indexTopLevel(s string, sep byte) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case isQuote(c):
			i = skipString(s, i) - 1
		case isOpen(c):
			depth++
		case isClose(c):
			depth--
		case c == sep && depth == 0:
			return i
		}
	}
	return -1
}

// stripComments blanks // and /* */ comments, keeping offsets and
// newlines intact.
func stripComments(s string) string {
	b := []byte(s)
	for i := 0; i < len(b); i++ {
		c := b[i]
		switch {
		case isQuote(c):
			i = skipString(s, i) - 1
		case c == '/' && i+1 < len(b) && b[i+1] == '/':
			for ; i < len(b) && b[i] != '\n'; i++ {
				b[i] = ' '
			}
		case c == '/' && i+1 < len(b) && b[i+1] == '*':
			end := strings.Index(s[i+2:], "*/")
			stop := len(b)
			if end >= 0 {
				stop = i + 2 + end + 2
			}
			for ; i < stop; i++ {
				if b[i] != '\n' {
					b[i] = ' '
				}
			}
			i--
		}
	}
	return string(b)
}

// topLevelView empties the contents of nested brackets so that only the
// outermost level of s remains visible. Strings at the top level are kept.
func topLevelView(s string) string {
	var sb strings.Builder
	depth := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case isQuote(c):
			end := skipString(s, i)
			if depth == 0 {
				sb.WriteString(s[i:end])
			}
			i = end - 1
		case isOpen(c):
			if depth == 0 {
				sb.WriteByte(c)
			}
			depth++
		case isClose(c):
			depth--
			if depth <= 0 {
				depth = 0
				sb.WriteByte(c)
			}
		default:
			if depth == 0 {
				sb.WriteByte(c)
			}
		}
	}
	return sb.String()
}
