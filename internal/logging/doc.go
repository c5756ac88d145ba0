// Package logging assembles structured slog loggers shared by the capture
// core and the CLI.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so capture and conversion code
// automatically tags log lines with session, capture, and correlation
// identifiers. A no-op logger is provided for tests and wiring code that
// cannot fail.
package logging
