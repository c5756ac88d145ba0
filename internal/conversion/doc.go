// Package conversion turns quick notes and transcript excerpts into
// dashboard artifacts through a guarded, single-in-flight state machine.
package conversion
