package conversion

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"escucha/internal/logging"
	"escucha/internal/services"
)

// Kind identifies the artifact a source converts into.
type Kind string

const (
	KindPainPoint Kind = "pain_point"
	KindProfiling Kind = "profiling"
)

// State tracks a single in-flight conversion.
type State string

const (
	StateIdle State = "idle"
	// StateCategorySelection waits on the mandatory category choice for a
	// profiling conversion. Pain-point conversions never enter it.
	StateCategorySelection State = "categorySelection"
	StateArtifactEditing   State = "artifactEditing"
)

// Outcome records how the last conversion attempt ended.
type Outcome string

const (
	OutcomeNone      Outcome = ""
	OutcomeSuccess   Outcome = "success"
	OutcomeCancelled Outcome = "cancelled"
)

// ErrConversionInFlight rejects starting a conversion while one is active.
var ErrConversionInFlight = services.Wrap(
	services.ErrConflict, "conversion", "begin", "conversion already in progress", nil)

// ErrNoConversion rejects steps taken without an active conversion.
var ErrNoConversion = services.Wrap(
	services.ErrValidation, "conversion", "step", "no conversion in progress", nil)

// Source is the note (or transcript excerpt) being converted.
type Source struct {
	ID            string
	Content       string
	ParticipantID string
}

// Draft is the pre-filled artifact form handed to the creator.
type Draft struct {
	Kind          Kind
	Category      string
	Content       string
	ParticipantID string
}

// ArtifactCreator is the external collaborator that turns a draft into a
// dashboard artifact and returns the created artifact's id.
type ArtifactCreator interface {
	CreatePainPoint(ctx context.Context, draft Draft) (string, error)
	CreateProfiling(ctx context.Context, draft Draft) (string, error)
}

// SourceMarker records the completed conversion on the source. The quick
// note journal satisfies it directly.
type SourceMarker interface {
	// Convertible fails when the source has already been converted.
	Convertible(ctx context.Context, id string) error
	MarkConverted(ctx context.Context, id, kind, artifactID string) error
}

// Orchestrator walks one conversion at a time from source to artifact:
// pain-point conversions go straight to editing, profiling conversions pass
// through a mandatory category selection. Cancellation at any step leaves
// the source untouched; only a successful creation marks it converted.
type Orchestrator struct {
	creator ArtifactCreator
	marker  SourceMarker
	logger  *slog.Logger

	mu             sync.Mutex
	state          State
	source         Source
	draft          Draft
	lastOutcome    Outcome
	lastArtifactID string
}

// NewOrchestrator builds an idle orchestrator.
func NewOrchestrator(creator ArtifactCreator, marker SourceMarker, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		creator: creator,
		marker:  marker,
		logger:  logging.NewComponentLogger(logger, "conversion"),
		state:   StateIdle,
	}
}

// Begin starts converting a source. A pain-point conversion opens the editor
// immediately with the source content pre-filled; a profiling conversion
// first requires a category.
func (o *Orchestrator) Begin(source Source, kind Kind) error {
	if kind != KindPainPoint && kind != KindProfiling {
		return services.Wrap(services.ErrValidation, "conversion", "begin",
			"unknown artifact kind", nil)
	}
	if strings.TrimSpace(source.ID) == "" {
		return services.Wrap(services.ErrValidation, "conversion", "begin",
			"source id is required", nil)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateIdle {
		return ErrConversionInFlight
	}

	o.source = source
	o.draft = Draft{
		Kind:          kind,
		Content:       source.Content,
		ParticipantID: source.ParticipantID,
	}
	o.lastOutcome = OutcomeNone
	o.lastArtifactID = ""

	if kind == KindProfiling {
		o.state = StateCategorySelection
	} else {
		o.state = StateArtifactEditing
	}
	return nil
}

// SelectCategory fixes the profiling category and opens the editor.
func (o *Orchestrator) SelectCategory(category string) error {
	if strings.TrimSpace(category) == "" {
		return services.Wrap(services.ErrValidation, "conversion", "select-category",
			"category is required", nil)
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateCategorySelection {
		return ErrNoConversion
	}
	o.draft.Category = strings.TrimSpace(category)
	o.state = StateArtifactEditing
	return nil
}

// UpdateDraft replaces the editable draft content.
func (o *Orchestrator) UpdateDraft(content string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateArtifactEditing {
		return ErrNoConversion
	}
	o.draft.Content = content
	return nil
}

// Draft returns the current draft.
func (o *Orchestrator) Draft() Draft {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.draft
}

// Submit sends the draft to the artifact creator. On success the source is
// marked converted and the orchestrator returns to idle. A creator failure
// keeps the editor open with the draft intact so the user can retry; the
// source stays unconverted.
func (o *Orchestrator) Submit(ctx context.Context) (string, error) {
	o.mu.Lock()
	if o.state != StateArtifactEditing {
		o.mu.Unlock()
		return "", ErrNoConversion
	}
	draft := o.draft
	source := o.source
	o.mu.Unlock()

	// An already-converted source is rejected before the creator runs, so a
	// re-attempt never leaves an orphaned artifact on the dashboard. A
	// transient lookup failure keeps the editor open for a retry.
	if err := o.marker.Convertible(ctx, source.ID); err != nil {
		if errors.Is(err, services.ErrConflict) {
			o.mu.Lock()
			o.state = StateIdle
			o.lastOutcome = OutcomeCancelled
			o.source = Source{}
			o.draft = Draft{}
			o.mu.Unlock()
			o.logger.Warn("conversion rejected: source already converted",
				logging.String(logging.FieldNoteID, source.ID))
		}
		return "", err
	}

	var (
		artifactID string
		err        error
	)
	switch draft.Kind {
	case KindProfiling:
		artifactID, err = o.creator.CreateProfiling(ctx, draft)
	default:
		artifactID, err = o.creator.CreatePainPoint(ctx, draft)
	}
	if err != nil {
		o.logger.Warn("artifact creation failed",
			logging.String(logging.FieldNoteID, source.ID),
			logging.String("kind", string(draft.Kind)),
			logging.Error(err))
		return "", err
	}

	markErr := o.marker.MarkConverted(ctx, source.ID, string(draft.Kind), artifactID)

	o.mu.Lock()
	o.state = StateIdle
	o.lastOutcome = OutcomeSuccess
	o.lastArtifactID = artifactID
	o.source = Source{}
	o.draft = Draft{}
	o.mu.Unlock()

	if markErr != nil {
		// The artifact exists; surface the marking failure rather than
		// inviting a duplicate creation.
		o.logger.Error("conversion created artifact but marking failed",
			logging.String(logging.FieldNoteID, source.ID),
			logging.String("artifact_id", artifactID),
			logging.Error(markErr))
		return artifactID, markErr
	}

	o.logger.Info("conversion completed",
		logging.String(logging.FieldNoteID, source.ID),
		logging.String("kind", string(draft.Kind)),
		logging.String("artifact_id", artifactID))
	return artifactID, nil
}

// Cancel abandons the in-flight conversion without mutating the source.
func (o *Orchestrator) Cancel() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StateIdle {
		return ErrNoConversion
	}
	o.state = StateIdle
	o.lastOutcome = OutcomeCancelled
	o.source = Source{}
	o.draft = Draft{}
	return nil
}

// State returns the current machine state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// LastOutcome reports how the previous conversion ended.
func (o *Orchestrator) LastOutcome() Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastOutcome
}

// LastArtifactID returns the artifact created by the last successful
// conversion.
func (o *Orchestrator) LastArtifactID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastArtifactID
}
