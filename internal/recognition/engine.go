package recognition

import (
	"context"
	"io"

	"escucha/internal/services"
)

// ErrUnsupportedCapability indicates the host has no usable recognition
// engine. Capture must be disabled, not crashed.
var ErrUnsupportedCapability = services.Wrap(
	services.ErrUnsupported, "recognition", "detect", "no recognition engine available", nil)

// StreamConfig describes provider-agnostic streaming settings for one
// recording session.
type StreamConfig struct {
	SampleRate     int
	Channels       int
	Encoding       string
	Language       string
	InterimResults bool
	SpeakerLabel   string
	// Audio is the host's exclusive audio-input resource. The stream owns it
	// for the duration of listening and stops reading on Stop or error.
	Audio io.Reader
}

// Stream is one live recognition session. Events are delivered in strict
// temporal order on a single channel; the channel closes after the end event.
type Stream interface {
	Events() <-chan Event
	// Stop requests graceful termination. A final segment may still arrive
	// before the end event.
	Stop() error
	// Close releases the stream abortively. Safe to call after Stop.
	Close() error
}

// Engine starts continuous recognition streams.
type Engine interface {
	Start(ctx context.Context, cfg StreamConfig) (Stream, error)
}
