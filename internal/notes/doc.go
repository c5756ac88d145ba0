// Package notes keeps the quick-note journal: short observations captured
// during a live session, a confirm-before-delete removal flow, and the
// write-once guard that records when a note becomes a dashboard artifact.
package notes
