package recognition

// EventKind identifies the type of a recognition stream event.
type EventKind string

const (
	// EventStarted signals the provider accepted the stream and is listening.
	EventStarted EventKind = "started"
	// EventPartial carries interim, unstable text that may be revised.
	EventPartial EventKind = "partial"
	// EventSegment carries a finalized, immutable transcript segment.
	EventSegment EventKind = "segment"
	// EventError signals a terminal recognition failure.
	EventError EventKind = "error"
	// EventEnd terminates the stream. Exactly one end event is delivered and
	// no events follow it.
	EventEnd EventKind = "end"
)

// ErrorCode classifies recognition failures.
type ErrorCode string

const (
	CodeNoSpeech     ErrorCode = "no-speech"
	CodeAudioCapture ErrorCode = "audio-capture"
	CodeNetwork      ErrorCode = "network"
	CodeAborted      ErrorCode = "aborted"
	CodeUnknown      ErrorCode = "unknown"
)

// Message returns a human-readable description for an error code.
func (c ErrorCode) Message() string {
	switch c {
	case CodeNoSpeech:
		return "no speech detected"
	case CodeAudioCapture:
		return "audio capture failed"
	case CodeNetwork:
		return "network error during recognition"
	case CodeAborted:
		return "recognition aborted"
	default:
		return "unknown recognition error"
	}
}

// Segment is a finalized, timestamped span of recognized speech text.
// Segments are immutable once emitted and carry monotonically non-decreasing
// start offsets.
type Segment struct {
	ID                 string  `json:"id"`
	StartOffsetSeconds float64 `json:"start_offset_seconds"`
	EndOffsetSeconds   float64 `json:"end_offset_seconds"`
	Text               string  `json:"text"`
	Confidence         float64 `json:"confidence"`
	SpeakerLabel       string  `json:"speaker_label"`
}

// Event is a single recognition stream occurrence. Segment is set for
// EventSegment, Text for EventPartial, Code/Detail for EventError, and
// Language (when known) for EventEnd.
type Event struct {
	Kind     EventKind
	Text     string
	Segment  *Segment
	Code     ErrorCode
	Detail   string
	Language string
}
