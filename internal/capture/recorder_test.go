package capture_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"escucha/internal/capture"
	"escucha/internal/recognition"
	"escucha/internal/testsupport"
)

type recordingSink struct {
	mu      sync.Mutex
	results []capture.Result
	err     error
}

func (s *recordingSink) SaveCompleted(_ context.Context, result capture.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return s.err
}

func (s *recordingSink) saved() []capture.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]capture.Result, len(s.results))
	copy(cp, s.results)
	return cp
}

func newRecorder(t *testing.T, opts capture.Options) (*capture.Recorder, *testsupport.ScriptedEngine, *recordingSink) {
	t.Helper()
	engine := testsupport.NewScriptedEngine()
	sink := &recordingSink{}
	recorder := capture.NewRecorder(engine, sink, nil, opts)
	return recorder, engine, sink
}

func TestCompletedCaptureProducesOneSave(t *testing.T) {
	recorder, engine, sink := newRecorder(t, capture.Options{})

	if err := recorder.StartCapture(context.Background(), capture.StartOptions{ParentSessionID: "sess-1"}); err != nil {
		t.Fatalf("StartCapture: %v", err)
	}

	stream := engine.LastStream()
	stream.EmitStarted()
	stream.EmitSegment("seg-1", "hello", 0, 1.2)
	stream.EmitSegment("seg-2", "world", 1.2, 2.1)

	if err := recorder.StopCapture(); err != nil {
		t.Fatalf("StopCapture: %v", err)
	}
	stream.End("es")
	recorder.Wait()

	snap := recorder.Snapshot()
	if snap.State != capture.StateCompleted {
		t.Fatalf("expected completed state, got %s", snap.State)
	}
	if snap.RunningText != "hello world" {
		t.Fatalf("expected running text %q, got %q", "hello world", snap.RunningText)
	}

	results := sink.saved()
	if len(results) != 1 {
		t.Fatalf("expected exactly one save, got %d", len(results))
	}
	result := results[0]
	if result.FullText != "hello world" {
		t.Fatalf("unexpected full text %q", result.FullText)
	}
	if result.ParentSessionID != "sess-1" {
		t.Fatalf("unexpected parent session %q", result.ParentSessionID)
	}
	if result.WordCount != 2 {
		t.Fatalf("expected word count 2, got %d", result.WordCount)
	}
	if result.SpeakerCount != 1 {
		t.Fatalf("expected one speaker, got %d", result.SpeakerCount)
	}
	if result.DetectedLanguage != "es" {
		t.Fatalf("expected detected language es, got %q", result.DetectedLanguage)
	}
	if len(result.Segments) != 2 || result.Segments[0].Text != "hello" || result.Segments[1].Text != "world" {
		t.Fatalf("unexpected segments: %+v", result.Segments)
	}
}

func TestSegmentsPreserveDeliveryOrder(t *testing.T) {
	recorder, engine, _ := newRecorder(t, capture.Options{})

	if err := recorder.StartCapture(context.Background(), capture.StartOptions{ParentSessionID: "sess-1"}); err != nil {
		t.Fatalf("StartCapture: %v", err)
	}
	stream := engine.LastStream()
	stream.EmitStarted()
	for i, text := range []string{"one", "two", "three", "four"} {
		start := float64(i)
		stream.EmitSegment("", text, start, start+0.8)
	}
	stream.End("")
	recorder.Wait()

	snap := recorder.Snapshot()
	if len(snap.Segments) != 4 {
		t.Fatalf("expected 4 segments, got %d", len(snap.Segments))
	}
	for i := 1; i < len(snap.Segments); i++ {
		if snap.Segments[i-1].StartOffsetSeconds > snap.Segments[i].StartOffsetSeconds {
			t.Fatalf("offsets not monotonic at %d: %+v", i, snap.Segments)
		}
	}
	if snap.RunningText != "one two three four" {
		t.Fatalf("unexpected running text %q", snap.RunningText)
	}
}

func TestInterimTextNeverBecomesSegment(t *testing.T) {
	recorder, engine, sink := newRecorder(t, capture.Options{})

	if err := recorder.StartCapture(context.Background(), capture.StartOptions{ParentSessionID: "sess-1"}); err != nil {
		t.Fatalf("StartCapture: %v", err)
	}
	stream := engine.LastStream()
	stream.EmitStarted()
	stream.EmitSegment("", "hello", 0, 1)
	stream.EmitPartial("wor")

	deadline := time.Now().Add(2 * time.Second)
	for {
		if recorder.Snapshot().RunningText == "hello wor" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("interim text never appeared, running=%q", recorder.Snapshot().RunningText)
		}
		time.Sleep(5 * time.Millisecond)
	}

	stream.EmitSegment("", "world", 1, 2)
	stream.End("")
	recorder.Wait()

	results := sink.saved()
	if len(results) != 1 {
		t.Fatalf("expected one save, got %d", len(results))
	}
	if results[0].FullText != "hello world" {
		t.Fatalf("interim leaked into transcript: %q", results[0].FullText)
	}
	if len(results[0].Segments) != 2 {
		t.Fatalf("interim stored as segment: %+v", results[0].Segments)
	}
}

func TestLateSegmentAfterStopIsHonored(t *testing.T) {
	recorder, engine, sink := newRecorder(t, capture.Options{})

	if err := recorder.StartCapture(context.Background(), capture.StartOptions{ParentSessionID: "sess-1"}); err != nil {
		t.Fatalf("StartCapture: %v", err)
	}
	stream := engine.LastStream()
	stream.OnStop = func(s *testsupport.ScriptedStream) {
		s.EmitSegment("", "trailing", 5, 6)
		s.End("")
	}
	stream.EmitStarted()
	stream.EmitSegment("", "leading", 0, 1)

	if err := recorder.StopCapture(); err != nil {
		t.Fatalf("StopCapture: %v", err)
	}
	recorder.Wait()

	results := sink.saved()
	if len(results) != 1 {
		t.Fatalf("expected one save, got %d", len(results))
	}
	if results[0].FullText != "leading trailing" {
		t.Fatalf("late segment dropped: %q", results[0].FullText)
	}
}

func TestRecognitionErrorSkipsPersistence(t *testing.T) {
	recorder, engine, sink := newRecorder(t, capture.Options{})

	if err := recorder.StartCapture(context.Background(), capture.StartOptions{ParentSessionID: "sess-1"}); err != nil {
		t.Fatalf("StartCapture: %v", err)
	}
	stream := engine.LastStream()
	stream.EmitStarted()
	stream.EmitSegment("", "partial capture", 0, 1)
	stream.EmitError(recognition.CodeNetwork)
	recorder.Wait()

	snap := recorder.Snapshot()
	if snap.State != capture.StateError {
		t.Fatalf("expected error state, got %s", snap.State)
	}
	if snap.ErrorDetail == "" {
		t.Fatal("expected a human-readable error detail")
	}
	if len(sink.saved()) != 0 {
		t.Fatalf("expected no saves after error, got %d", len(sink.saved()))
	}

	// A fresh capture starts cleanly after the failure.
	if err := recorder.StartCapture(context.Background(), capture.StartOptions{ParentSessionID: "sess-1"}); err != nil {
		t.Fatalf("StartCapture after error: %v", err)
	}
	second := engine.LastStream()
	second.EmitStarted()
	snap = recorder.Snapshot()
	if snap.State != capture.StateRecording || len(snap.Segments) != 0 {
		t.Fatalf("expected clean recording state, got %+v", snap)
	}
	second.End("")
	recorder.Wait()
}

func TestReentrantStartRejected(t *testing.T) {
	recorder, engine, _ := newRecorder(t, capture.Options{})

	if err := recorder.StartCapture(context.Background(), capture.StartOptions{ParentSessionID: "sess-1"}); err != nil {
		t.Fatalf("StartCapture: %v", err)
	}
	if err := recorder.StartCapture(context.Background(), capture.StartOptions{ParentSessionID: "sess-1"}); !errors.Is(err, capture.ErrAlreadyRecording) {
		t.Fatalf("expected ErrAlreadyRecording, got %v", err)
	}
	if engine.StartCount() != 1 {
		t.Fatalf("expected one engine start, got %d", engine.StartCount())
	}
	engine.LastStream().End("")
	recorder.Wait()
}

func TestStopWithoutCaptureRejected(t *testing.T) {
	recorder, _, _ := newRecorder(t, capture.Options{})
	if err := recorder.StopCapture(); !errors.Is(err, capture.ErrNotRecording) {
		t.Fatalf("expected ErrNotRecording, got %v", err)
	}
}

func TestClearResetsTerminalSession(t *testing.T) {
	recorder, engine, _ := newRecorder(t, capture.Options{})

	if err := recorder.StartCapture(context.Background(), capture.StartOptions{ParentSessionID: "sess-1"}); err != nil {
		t.Fatalf("StartCapture: %v", err)
	}
	stream := engine.LastStream()
	stream.EmitSegment("", "hello", 0, 1)
	stream.End("")
	recorder.Wait()

	if err := recorder.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	snap := recorder.Snapshot()
	if snap.State != capture.StateIdle || snap.RunningText != "" || len(snap.Segments) != 0 {
		t.Fatalf("expected idle reset, got %+v", snap)
	}
}

func TestClearDuringCaptureRejected(t *testing.T) {
	recorder, engine, _ := newRecorder(t, capture.Options{})

	if err := recorder.StartCapture(context.Background(), capture.StartOptions{ParentSessionID: "sess-1"}); err != nil {
		t.Fatalf("StartCapture: %v", err)
	}
	if err := recorder.Clear(); !errors.Is(err, capture.ErrCaptureActive) {
		t.Fatalf("expected ErrCaptureActive, got %v", err)
	}
	engine.LastStream().End("")
	recorder.Wait()
}

func TestFailedSaveKeepsResultForRetry(t *testing.T) {
	recorder, engine, sink := newRecorder(t, capture.Options{})
	sink.err = errors.New("backend unavailable")

	if err := recorder.StartCapture(context.Background(), capture.StartOptions{ParentSessionID: "sess-1"}); err != nil {
		t.Fatalf("StartCapture: %v", err)
	}
	stream := engine.LastStream()
	stream.EmitSegment("", "hello", 0, 1)
	stream.End("")
	recorder.Wait()

	result, saveErr := recorder.LastResult()
	if result == nil || saveErr == nil {
		t.Fatalf("expected retained result with save error, got %v / %v", result, saveErr)
	}
	if result.FullText != "hello" {
		t.Fatalf("unexpected retained text %q", result.FullText)
	}

	sink.mu.Lock()
	sink.err = nil
	sink.mu.Unlock()
	if err := recorder.RetrySave(context.Background()); err != nil {
		t.Fatalf("RetrySave: %v", err)
	}
	if len(sink.saved()) != 2 {
		t.Fatalf("expected retry to reach sink, got %d saves", len(sink.saved()))
	}
}

func TestEngineStartFailureReturnsToIdle(t *testing.T) {
	recorder, engine, _ := newRecorder(t, capture.Options{})
	engine.StartErr = errors.New("dial failed")

	if err := recorder.StartCapture(context.Background(), capture.StartOptions{ParentSessionID: "sess-1"}); err == nil {
		t.Fatal("expected start error")
	}
	if state := recorder.Snapshot().State; state != capture.StateIdle {
		t.Fatalf("expected idle after failed start, got %s", state)
	}
}

func TestStaleStreamEventsCannotTouchNewSession(t *testing.T) {
	recorder, engine, sink := newRecorder(t, capture.Options{})

	if err := recorder.StartCapture(context.Background(), capture.StartOptions{ParentSessionID: "sess-1"}); err != nil {
		t.Fatalf("StartCapture: %v", err)
	}
	first := engine.LastStream()
	first.EmitStarted()
	// Terminal error, but the first stream has not delivered its end event
	// yet: its channel stays open with events still in flight.
	first.Emit(recognition.Event{Kind: recognition.EventError, Code: recognition.CodeNetwork, Detail: "connection reset"})

	deadline := time.Now().Add(2 * time.Second)
	for recorder.Snapshot().State != capture.StateError {
		if time.Now().After(deadline) {
			t.Fatalf("error state never reached, state=%s", recorder.Snapshot().State)
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := recorder.StartCapture(context.Background(), capture.StartOptions{ParentSessionID: "sess-2"}); err != nil {
		t.Fatalf("StartCapture after error: %v", err)
	}
	second := engine.LastStream()
	second.EmitStarted()
	second.EmitSegment("seg-live", "hola", 0, 1)

	// The first stream's trailing events arrive after the restart; none may
	// mutate the new session or reach the sink.
	first.EmitPartial("texto fantasma")
	first.EmitSegment("seg-ghost", "fantasma", 1, 2)
	first.End("en")
	time.Sleep(50 * time.Millisecond)

	snap := recorder.Snapshot()
	if snap.State != capture.StateRecording {
		t.Fatalf("stale end terminated the new session, state=%s", snap.State)
	}
	if len(snap.Segments) != 1 || snap.Segments[0].Text != "hola" {
		t.Fatalf("stale segment contaminated the new session: %+v", snap.Segments)
	}
	if len(sink.saved()) != 0 {
		t.Fatalf("stale end persisted a capture, got %d saves", len(sink.saved()))
	}

	second.EmitSegment("seg-live-2", "mundo", 1, 2)
	second.End("es")
	recorder.Wait()

	results := sink.saved()
	if len(results) != 1 {
		t.Fatalf("expected one save, got %d", len(results))
	}
	if results[0].ParentSessionID != "sess-2" || results[0].FullText != "hola mundo" {
		t.Fatalf("unexpected saved capture: %+v", results[0])
	}
	if results[0].DetectedLanguage != "es" {
		t.Fatalf("stale end leaked its language, got %q", results[0].DetectedLanguage)
	}
}

type contextAwareSink struct {
	recordingSink
}

func (s *contextAwareSink) SaveCompleted(ctx context.Context, result capture.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.recordingSink.SaveCompleted(ctx, result)
}

func TestSaveSurvivesCancelledStartContext(t *testing.T) {
	engine := testsupport.NewScriptedEngine()
	sink := &contextAwareSink{}
	recorder := capture.NewRecorder(engine, sink, nil, capture.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	if err := recorder.StartCapture(ctx, capture.StartOptions{ParentSessionID: "sess-1"}); err != nil {
		t.Fatalf("StartCapture: %v", err)
	}
	stream := engine.LastStream()
	stream.EmitSegment("seg-1", "hello", 0, 1)

	// The caller's context dies before the end event; the completed capture
	// must still be persisted.
	cancel()
	stream.End("es")
	recorder.Wait()

	if state := recorder.Snapshot().State; state != capture.StateCompleted {
		t.Fatalf("expected completed state, got %s", state)
	}
	if _, saveErr := recorder.LastResult(); saveErr != nil {
		t.Fatalf("cancelled start context failed the save: %v", saveErr)
	}
	if len(sink.saved()) != 1 {
		t.Fatalf("expected one save, got %d", len(sink.saved()))
	}
}

func TestDurationGuardStopsCapture(t *testing.T) {
	recorder, engine, sink := newRecorder(t, capture.Options{MaxDuration: 30 * time.Millisecond})

	if err := recorder.StartCapture(context.Background(), capture.StartOptions{ParentSessionID: "sess-1"}); err != nil {
		t.Fatalf("StartCapture: %v", err)
	}
	stream := engine.LastStream()
	stream.OnStop = func(s *testsupport.ScriptedStream) {
		s.End("")
	}
	stream.EmitSegment("", "bounded", 0, 1)

	recorder.Wait()
	if len(sink.saved()) != 1 {
		t.Fatalf("expected guard to complete the capture, got %d saves", len(sink.saved()))
	}
	if state := recorder.Snapshot().State; state != capture.StateCompleted {
		t.Fatalf("expected completed after guard stop, got %s", state)
	}
}
