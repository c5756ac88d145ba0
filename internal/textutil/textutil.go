package textutil

import "strings"

// Collapse trims the string and folds internal whitespace runs into single
// spaces.
func Collapse(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// WordCount returns the number of whitespace-separated words.
func WordCount(value string) int {
	return len(strings.Fields(value))
}

// Truncate shortens a string to at most max runes, appending an ellipsis when
// truncation occurred. Values of max below 4 return the untruncated string.
func Truncate(value string, max int) string {
	if max < 4 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max-1]) + "…"
}

// JoinNonEmpty joins the non-empty parts with a single space.
func JoinNonEmpty(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, " ")
}
