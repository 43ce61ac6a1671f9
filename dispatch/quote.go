package dispatch

import "strings"

// shellQuote minimally quotes an argument for POSIX shells. Common safe
// characters are left unquoted, everything else is single-quoted with the
// embedded single quotes closed, escaped and reopened.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}

	if strings.IndexFunc(s, func(r rune) bool {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return false
		}
		switch r {
		case '-', '_', '.', '/', '@', ':', ',', '+', '=':
			return false
		}
		return true
	}) == -1 {
		return s
	}

	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
