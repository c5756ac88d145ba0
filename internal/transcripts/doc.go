// Package transcripts stores captured conversation transcripts: SQLite
// persistence for transcript sessions, the triage risk semaphore, and the
// sink that turns a finished capture into exactly one database write.
package transcripts
