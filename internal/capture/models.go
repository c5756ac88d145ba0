package capture

import (
	"strings"
	"time"

	"escucha/internal/recognition"
)

// State represents the lifecycle of a recording session.
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
	StateStopping  State = "stopping"
	StateCompleted State = "completed"
	StateError     State = "error"
)

// IsTerminal reports whether the state allows a fresh capture to begin.
func (s State) IsTerminal() bool {
	return s == StateIdle || s == StateCompleted || s == StateError
}

// StartOptions configures a single capture.
type StartOptions struct {
	// ParentSessionID is the recruitment or support session the transcript
	// belongs to.
	ParentSessionID string
	// PlaceholderID, when set, names a pre-created queued/recording
	// transcript session the completion updates instead of creating a new
	// one.
	PlaceholderID string
	// Stream carries the provider settings for this capture.
	Stream recognition.StreamConfig
}

// Result is the completion signal handed to the transcript sink: the final
// transcript, its segments, and the capture statistics.
type Result struct {
	ParentSessionID  string
	PlaceholderID    string
	FullText         string
	Segments         []recognition.Segment
	Duration         time.Duration
	WordCount        int
	SpeakerCount     int
	DetectedLanguage string
	StartedAt        time.Time
	EndedAt          time.Time
}

// Snapshot is a point-in-time view of the session for rendering.
type Snapshot struct {
	State       State
	RunningText string
	Segments    []recognition.Segment
	ErrorDetail string
	StartedAt   time.Time
}

func joinRunningText(segments []recognition.Segment, interim string) string {
	parts := make([]string, 0, len(segments)+1)
	for _, segment := range segments {
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}
	if interim = strings.TrimSpace(interim); interim != "" {
		parts = append(parts, interim)
	}
	return strings.Join(parts, " ")
}

func countSpeakers(segments []recognition.Segment) int {
	seen := make(map[string]struct{}, 2)
	for _, segment := range segments {
		label := strings.TrimSpace(segment.SpeakerLabel)
		if label == "" {
			continue
		}
		seen[label] = struct{}{}
	}
	return len(seen)
}
