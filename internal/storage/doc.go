// Package storage owns the SQLite connection shared by the transcript store
// and the quick note journal.
//
// It applies WAL and busy-timeout pragmas, initializes the embedded schema,
// and provides busy-retry execution helpers so both stores serialize writes
// without observing half-written rows. Schema changes bump schemaVersion in
// schema.go.
package storage
