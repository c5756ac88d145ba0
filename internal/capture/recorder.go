package capture

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"escucha/internal/language"
	"escucha/internal/logging"
	"escucha/internal/recognition"
	"escucha/internal/services"
	"escucha/internal/textutil"
)

// ErrAlreadyRecording rejects a re-entrant start while a capture is in flight.
var ErrAlreadyRecording = services.Wrap(
	services.ErrConflict, "recorder", "start", "capture already in progress", nil)

// ErrNotRecording rejects a stop without an active capture.
var ErrNotRecording = services.Wrap(
	services.ErrValidation, "recorder", "stop", "no capture in progress", nil)

// ErrCaptureActive rejects a clear while a capture is in flight.
var ErrCaptureActive = services.Wrap(
	services.ErrConflict, "recorder", "clear", "capture still in progress", nil)

// Sink persists completed captures. Exactly one SaveCompleted call is made per
// completed capture; error terminations never reach the sink.
type Sink interface {
	SaveCompleted(ctx context.Context, result Result) error
}

// Options carries recording session policy.
type Options struct {
	// MaxDuration bounds a single capture; zero disables the guard.
	MaxDuration time.Duration
}

// Recorder owns one recording lifecycle at a time: idle, recording, stopping,
// then completed or error. Events from the recognition stream are folded in
// delivery order; segments are append-only and interim text is never counted
// as a segment.
type Recorder struct {
	engine recognition.Engine
	sink   Sink
	logger *slog.Logger
	opts   Options

	mu            sync.Mutex
	state         State
	segments      []recognition.Segment
	interim       string
	errorDetail   string
	parentID      string
	placeholderID string
	startedAt     time.Time
	stream        recognition.Stream
	done          chan struct{}
	lastResult    *Result
	saveErr       error
}

// NewRecorder builds an idle recorder.
func NewRecorder(engine recognition.Engine, sink Sink, logger *slog.Logger, opts Options) *Recorder {
	return &Recorder{
		engine: engine,
		sink:   sink,
		logger: logging.NewComponentLogger(logger, "recorder"),
		opts:   opts,
		state:  StateIdle,
	}
}

// StartCapture begins a new recording session. It fails with
// ErrAlreadyRecording while a capture is in flight and otherwise resets the
// segment list and running text before listening starts.
func (r *Recorder) StartCapture(ctx context.Context, opts StartOptions) error {
	r.mu.Lock()
	if !r.state.IsTerminal() {
		r.mu.Unlock()
		return ErrAlreadyRecording
	}
	r.state = StateRecording
	r.segments = nil
	r.interim = ""
	r.errorDetail = ""
	r.lastResult = nil
	r.saveErr = nil
	r.parentID = opts.ParentSessionID
	r.placeholderID = opts.PlaceholderID
	r.startedAt = time.Now().UTC()
	// Invalidate the previous stream right away so its in-flight events
	// cannot touch the new session.
	r.stream = nil
	r.mu.Unlock()

	stream, err := r.engine.Start(ctx, opts.Stream)
	if err != nil {
		r.mu.Lock()
		r.state = StateIdle
		r.mu.Unlock()
		return err
	}

	done := make(chan struct{})
	r.mu.Lock()
	r.stream = stream
	r.done = done
	stopRequested := r.state == StateStopping
	r.mu.Unlock()
	if stopRequested {
		// A stop raced the engine dial; forward it now that the stream exists.
		_ = stream.Stop()
	}

	r.logger.Info("capture started",
		logging.String(logging.FieldSessionID, opts.ParentSessionID),
		logging.String(logging.FieldState, string(StateRecording)))

	go r.consume(ctx, stream, done)
	if r.opts.MaxDuration > 0 {
		go r.guardDuration(done)
	}
	return nil
}

// StopCapture requests graceful termination. The underlying stream may still
// deliver a final segment before the end event; it is honored.
func (r *Recorder) StopCapture() error {
	r.mu.Lock()
	if r.state != StateRecording {
		r.mu.Unlock()
		return ErrNotRecording
	}
	r.state = StateStopping
	stream := r.stream
	r.mu.Unlock()

	r.logger.Info("capture stopping", logging.String(logging.FieldState, string(StateStopping)))
	if stream == nil {
		// The engine dial has not finished yet; StartCapture forwards the
		// stop once the stream is attached.
		return nil
	}
	return stream.Stop()
}

// Clear resets a completed or errored session back to idle.
func (r *Recorder) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateRecording || r.state == StateStopping {
		return ErrCaptureActive
	}
	r.state = StateIdle
	r.segments = nil
	r.interim = ""
	r.errorDetail = ""
	r.lastResult = nil
	r.saveErr = nil
	return nil
}

// Wait blocks until the current capture's event stream has fully terminated.
// It returns immediately when no capture was started.
func (r *Recorder) Wait() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Snapshot returns a point-in-time view of the session.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	segments := make([]recognition.Segment, len(r.segments))
	copy(segments, r.segments)
	return Snapshot{
		State:       r.state,
		RunningText: joinRunningText(r.segments, r.interim),
		Segments:    segments,
		ErrorDetail: r.errorDetail,
		StartedAt:   r.startedAt,
	}
}

// LastResult returns the completion signal of the most recent capture along
// with the persistence error, if saving failed. The in-memory result survives
// a failed save so the caller can retry.
func (r *Recorder) LastResult() (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastResult == nil {
		return nil, nil
	}
	cp := *r.lastResult
	return &cp, r.saveErr
}

// RetrySave re-attempts persistence of a completed capture whose save failed.
func (r *Recorder) RetrySave(ctx context.Context) error {
	r.mu.Lock()
	if r.lastResult == nil || r.saveErr == nil {
		r.mu.Unlock()
		return nil
	}
	result := *r.lastResult
	r.mu.Unlock()

	err := r.sink.SaveCompleted(ctx, result)
	r.mu.Lock()
	r.saveErr = err
	r.mu.Unlock()
	return err
}

// consume folds stream events into the session in delivery order. It is the
// only writer of segments, so ordering is preserved by construction. Each
// apply carries the stream identity: once a newer capture replaces r.stream,
// trailing events from this one are dropped instead of mutating the new
// session. The save uses a context detached from the caller's, since the
// capture is already complete when it runs.
func (r *Recorder) consume(ctx context.Context, stream recognition.Stream, done chan struct{}) {
	defer close(done)
	saveCtx := context.WithoutCancel(ctx)

	for ev := range stream.Events() {
		switch ev.Kind {
		case recognition.EventStarted:
			r.logger.Debug("recognition listening")
		case recognition.EventPartial:
			r.applyPartial(stream, ev.Text)
		case recognition.EventSegment:
			if ev.Segment != nil {
				r.applySegment(stream, *ev.Segment)
			}
		case recognition.EventError:
			r.applyError(stream, ev)
		case recognition.EventEnd:
			r.applyEnd(saveCtx, stream, ev)
		}
	}
}

func (r *Recorder) applyPartial(stream recognition.Stream, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stream != r.stream || r.state != StateRecording {
		return
	}
	r.interim = text
}

func (r *Recorder) applySegment(stream recognition.Stream, segment recognition.Segment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stream != r.stream {
		return
	}
	// A final segment may arrive after stop was requested; it still counts.
	if r.state != StateRecording && r.state != StateStopping {
		return
	}
	r.segments = append(r.segments, segment)
	r.interim = ""
}

func (r *Recorder) applyError(stream recognition.Stream, ev recognition.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if stream != r.stream {
		return
	}
	if r.state != StateRecording && r.state != StateStopping {
		return
	}
	detail := ev.Code.Message()
	if ev.Detail != "" && ev.Detail != detail {
		detail = detail + ": " + ev.Detail
	}
	r.state = StateError
	r.errorDetail = detail
	r.interim = ""
	r.logger.Error("capture failed",
		logging.String("code", string(ev.Code)),
		logging.String(logging.FieldState, string(StateError)),
		logging.String("detail", detail))
}

func (r *Recorder) applyEnd(ctx context.Context, stream recognition.Stream, ev recognition.Event) {
	r.mu.Lock()
	if stream != r.stream {
		r.mu.Unlock()
		return
	}
	if r.state != StateRecording && r.state != StateStopping {
		// Error sessions terminate without a completion signal.
		r.mu.Unlock()
		return
	}

	endedAt := time.Now().UTC()
	fullText := joinRunningText(r.segments, "")
	segments := make([]recognition.Segment, len(r.segments))
	copy(segments, r.segments)

	result := Result{
		ParentSessionID:  r.parentID,
		PlaceholderID:    r.placeholderID,
		FullText:         fullText,
		Segments:         segments,
		Duration:         endedAt.Sub(r.startedAt),
		WordCount:        textutil.WordCount(fullText),
		SpeakerCount:     countSpeakers(segments),
		DetectedLanguage: language.Normalize(ev.Language),
		StartedAt:        r.startedAt,
		EndedAt:          endedAt,
	}

	r.state = StateCompleted
	r.interim = ""
	r.lastResult = &result
	r.mu.Unlock()

	saveErr := r.sink.SaveCompleted(ctx, result)

	r.mu.Lock()
	r.saveErr = saveErr
	r.mu.Unlock()

	if saveErr != nil {
		r.logger.Error("transcript save failed; capture retained in memory",
			logging.Error(saveErr),
			logging.String(logging.FieldSessionID, result.ParentSessionID))
		return
	}
	r.logger.Info("capture completed",
		logging.String(logging.FieldSessionID, result.ParentSessionID),
		logging.Duration("duration", result.Duration),
		logging.Int("segments", len(result.Segments)),
		logging.Int("words", result.WordCount))
}

// guardDuration stops a runaway capture once the configured bound elapses.
func (r *Recorder) guardDuration(done chan struct{}) {
	timer := time.NewTimer(r.opts.MaxDuration)
	defer timer.Stop()
	select {
	case <-timer.C:
		if err := r.StopCapture(); err == nil {
			r.logger.Warn("capture stopped by duration guard",
				logging.Duration("max_duration", r.opts.MaxDuration))
		}
	case <-done:
	}
}
