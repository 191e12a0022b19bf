package cli

import "strings"

// SplitArgs turns one raw input line into an argument vector.
// Arguments are separated by the single space character only, so a line
// with k spaces yields exactly k+1 tokens and consecutive spaces yield
// empty tokens. A trailing newline terminates the final argument.
func SplitArgs(line string) []string {
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return strings.Split(line, " ")
}

// TrimTrailing removes trailing whitespace from a single token.
// Safe to call on the empty string.
func TrimTrailing(token string) string {
	return strings.TrimRight(token, " \t\r\n")
}

// commandToken returns the token used for command lookup: the first
// non-empty token of the vector, trimmed of trailing whitespace.
// Returns "" if the line holds nothing but separators.
func commandToken(tokens []string) string {
	for _, token := range tokens {
		if trimmed := TrimTrailing(token); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
