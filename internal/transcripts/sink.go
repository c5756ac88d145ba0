package transcripts

import (
	"context"
	"log/slog"

	"escucha/internal/capture"
	"escucha/internal/logging"
)

// CaptureSink adapts the store to the recorder's completion signal. Each
// completed capture results in exactly one write: an update when the capture
// was started against a pre-created placeholder session, an insert otherwise.
type CaptureSink struct {
	store  *Store
	logger *slog.Logger
}

// NewCaptureSink builds the persistence sink used by the recorder.
func NewCaptureSink(store *Store, logger *slog.Logger) *CaptureSink {
	return &CaptureSink{
		store:  store,
		logger: logging.NewComponentLogger(logger, "transcripts"),
	}
}

// CreatePlaceholder reserves a queued session row before capture begins, so a
// dashboard can show the pending recording. The returned ID is handed back to
// the recorder as the placeholder for the completion write.
func (s *CaptureSink) CreatePlaceholder(ctx context.Context, parentSessionID string) (string, error) {
	session := &TranscriptSession{
		ParentSessionID: parentSessionID,
		Status:          StatusRecording,
		RiskLevel:       RiskGreen,
	}
	if err := s.store.Create(ctx, session); err != nil {
		return "", err
	}
	s.logger.Debug("placeholder session created",
		logging.String(logging.FieldCaptureID, session.ID),
		logging.String(logging.FieldSessionID, parentSessionID))
	return session.ID, nil
}

// SaveCompleted persists a finished capture.
func (s *CaptureSink) SaveCompleted(ctx context.Context, result capture.Result) error {
	if result.PlaceholderID != "" {
		return s.fillPlaceholder(ctx, result)
	}

	session := &TranscriptSession{
		ParentSessionID:  result.ParentSessionID,
		FullText:         result.FullText,
		Segments:         result.Segments,
		Duration:         result.Duration,
		DetectedLanguage: result.DetectedLanguage,
		RiskLevel:        RiskGreen,
		Status:           StatusCompleted,
		WordCount:        result.WordCount,
		SpeakerCount:     result.SpeakerCount,
		StartedAt:        result.StartedAt,
		EndedAt:          result.EndedAt,
	}
	if err := s.store.Create(ctx, session); err != nil {
		return err
	}
	s.logger.Info("transcript session stored",
		logging.String(logging.FieldCaptureID, session.ID),
		logging.String(logging.FieldSessionID, session.ParentSessionID),
		logging.Int("words", session.WordCount))
	return nil
}

func (s *CaptureSink) fillPlaceholder(ctx context.Context, result capture.Result) error {
	session, err := s.store.GetByID(ctx, result.PlaceholderID)
	if err != nil {
		return err
	}
	session.FullText = result.FullText
	session.Segments = result.Segments
	session.Duration = result.Duration
	session.DetectedLanguage = result.DetectedLanguage
	session.Status = StatusCompleted
	session.WordCount = result.WordCount
	session.SpeakerCount = result.SpeakerCount
	session.StartedAt = result.StartedAt
	session.EndedAt = result.EndedAt
	if err := s.store.Update(ctx, session); err != nil {
		return err
	}
	s.logger.Info("placeholder session completed",
		logging.String(logging.FieldCaptureID, session.ID),
		logging.String(logging.FieldSessionID, session.ParentSessionID))
	return nil
}
