package transcripts

import (
	"strings"
	"time"

	"escucha/internal/recognition"
	"escucha/internal/services"
)

// Status tracks a transcript session through its capture lifecycle.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusRecording  Status = "recording"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// RiskLevel is the research-team triage semaphore attached to a session.
type RiskLevel string

const (
	RiskGreen  RiskLevel = "green"
	RiskYellow RiskLevel = "yellow"
	RiskRed    RiskLevel = "red"
)

// ParseRiskLevel normalizes user input into a risk level.
func ParseRiskLevel(value string) (RiskLevel, error) {
	switch RiskLevel(strings.ToLower(strings.TrimSpace(value))) {
	case RiskGreen:
		return RiskGreen, nil
	case RiskYellow:
		return RiskYellow, nil
	case RiskRed:
		return RiskRed, nil
	default:
		return "", services.Wrap(services.ErrValidation, "transcripts", "parse-risk",
			"risk level must be green, yellow, or red", nil)
	}
}

// TranscriptSession is one captured conversation attached to a parent
// recruitment or support session.
type TranscriptSession struct {
	ID               string
	ParentSessionID  string
	FullText         string
	Segments         []recognition.Segment
	Duration         time.Duration
	DetectedLanguage string
	RiskLevel        RiskLevel
	Status           Status
	WordCount        int
	SpeakerCount     int
	StartedAt        time.Time
	EndedAt          time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// FilterByRisk returns the sessions matching the requested level. The
// sentinel value "all" (or empty) passes everything through unchanged.
func FilterByRisk(sessions []*TranscriptSession, level string) []*TranscriptSession {
	normalized := strings.ToLower(strings.TrimSpace(level))
	if normalized == "" || normalized == "all" {
		return sessions
	}
	filtered := make([]*TranscriptSession, 0, len(sessions))
	for _, session := range sessions {
		if string(session.RiskLevel) == normalized {
			filtered = append(filtered, session)
		}
	}
	return filtered
}
