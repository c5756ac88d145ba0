// Package capture drives one live recording session as an explicit finite
// state machine.
//
// The Recorder folds recognition events into ordered, append-only segments
// and a running transcript, honors the stop race where a final segment lands
// after stop is requested, and hands exactly one completion signal to the
// transcript sink when the stream ends cleanly. Error terminations never
// reach the sink; a fresh capture can start from any terminal state.
package capture
