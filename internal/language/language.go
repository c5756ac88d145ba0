package language

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Normalize canonicalizes a detected language value into a BCP-47 tag string.
// Unrecognized or empty values return "und".
func Normalize(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "und"
	}
	tag, err := language.Parse(value)
	if err != nil {
		return "und"
	}
	return tag.String()
}

// Display returns a human-readable English name for a detected language value,
// falling back to the normalized tag when no name is known.
func Display(value string) string {
	normalized := Normalize(value)
	if normalized == "und" {
		return "Unknown"
	}
	tag, err := language.Parse(normalized)
	if err != nil {
		return normalized
	}
	name := display.English.Tags().Name(tag)
	if name == "" {
		return normalized
	}
	return name
}
