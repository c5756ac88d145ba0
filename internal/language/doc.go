// Package language normalizes detected-language values reported by
// recognition providers into canonical BCP-47 tags and display names.
package language
