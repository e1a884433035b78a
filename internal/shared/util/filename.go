package util

import "strings"

// SafeFileName strips path separators, traversal sequences and control
// characters from name. It returns fallback when nothing usable remains.
func SafeFileName(name, fallback string) string {
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, "..", "")
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == ':' || r == '*' || r == '?' || r == '"' || r == '<' || r == '>' || r == '|':
			return '_'
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, s)
	s = strings.Trim(s, " .")
	if s == "" {
		return fallback
	}
	return s
}
