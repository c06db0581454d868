package utils

import (
	"strings"
	"unicode"
)

// MatchPhrase reports the first phrase contained in text, compared
// case-insensitively as a plain substring. Blank phrases never match.
func MatchPhrase(text string, phrases []string) (string, bool) {
	lower := strings.ToLower(text)
	for _, p := range phrases {
		needle := strings.ToLower(strings.TrimSpace(p))
		if needle == "" {
			continue
		}
		if strings.Contains(lower, needle) {
			return p, true
		}
	}
	return "", false
}

// QueryWords lowercases message, splits it on whitespace and keeps the
// words longer than minLen bytes. Punctuation stays attached to words.
func QueryWords(message string, minLen int) []string {
	fields := strings.FieldsFunc(strings.ToLower(message), unicode.IsSpace)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) > minLen {
			out = append(out, f)
		}
	}
	return out
}
