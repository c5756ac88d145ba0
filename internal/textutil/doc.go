// Package textutil provides small text helpers shared by the capture and
// listing code: word counting, whitespace collapsing, and preview
// truncation.
package textutil
