package env

import (
	"os"
	"strings"
	"unicode"
)

const prefix = "${env."

// Expand replaces ${env.KEY} with the value of the KEY environment variable,
// empty when unset. Expressions with an invalid key or no closing brace are
// kept as is.
func Expand(text string) string {
	if !strings.Contains(text, prefix) {
		return text
	}
	var builder strings.Builder
	for {
		before, rest, found := strings.Cut(text, prefix)
		builder.WriteString(before)
		if !found {
			return builder.String()
		}
		key, after, closed := strings.Cut(rest, "}")
		switch {
		case !closed:
			builder.WriteString(prefix + rest)
			return builder.String()
		case !isKey(key):
			builder.WriteString(prefix)
			text = rest
			continue
		}
		builder.WriteString(os.Getenv(key))
		text = after
	}
}

// ExpandBytes expands a document
func ExpandBytes(data []byte) []byte {
	if !strings.Contains(string(data), prefix) {
		return data
	}
	return []byte(Expand(string(data)))
}

func isKey(key string) bool {
	for _, r := range key {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return true
}
