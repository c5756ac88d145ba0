package testsupport

import (
	"context"
	"sync"

	"escucha/internal/recognition"
)

// ScriptedStream is a hand-driven recognition stream for tests. Tests emit
// events in the order a provider would deliver them.
type ScriptedStream struct {
	// OnStop, when set, runs on the first Stop call. Use it to emit a
	// trailing segment before End, mirroring the stop race.
	OnStop func(s *ScriptedStream)

	events   chan recognition.Event
	stopOnce sync.Once
	endOnce  sync.Once
}

func NewScriptedStream() *ScriptedStream {
	return &ScriptedStream{events: make(chan recognition.Event, 64)}
}

func (s *ScriptedStream) Events() <-chan recognition.Event { return s.events }

func (s *ScriptedStream) Stop() error {
	s.stopOnce.Do(func() {
		if s.OnStop != nil {
			s.OnStop(s)
		}
	})
	return nil
}

func (s *ScriptedStream) Close() error {
	s.End("")
	return nil
}

// Emit delivers a raw event.
func (s *ScriptedStream) Emit(ev recognition.Event) {
	s.events <- ev
}

// EmitStarted delivers the started event.
func (s *ScriptedStream) EmitStarted() {
	s.Emit(recognition.Event{Kind: recognition.EventStarted})
}

// EmitPartial delivers interim text.
func (s *ScriptedStream) EmitPartial(text string) {
	s.Emit(recognition.Event{Kind: recognition.EventPartial, Text: text})
}

// EmitSegment delivers a finalized segment.
func (s *ScriptedStream) EmitSegment(id, text string, start, end float64) {
	s.Emit(recognition.Event{Kind: recognition.EventSegment, Segment: &recognition.Segment{
		ID:                 id,
		StartOffsetSeconds: start,
		EndOffsetSeconds:   end,
		Text:               text,
		Confidence:         0.9,
		SpeakerLabel:       "Speaker 1",
	}})
}

// EmitError delivers a terminal recognition error followed by the end event.
func (s *ScriptedStream) EmitError(code recognition.ErrorCode) {
	s.Emit(recognition.Event{Kind: recognition.EventError, Code: code, Detail: code.Message()})
	s.End("")
}

// End delivers the single end event and closes the stream.
func (s *ScriptedStream) End(language string) {
	s.endOnce.Do(func() {
		s.events <- recognition.Event{Kind: recognition.EventEnd, Language: language}
		close(s.events)
	})
}

// ScriptedEngine hands out scripted streams and records start calls.
type ScriptedEngine struct {
	// StartErr, when set, fails Start.
	StartErr error

	mu      sync.Mutex
	streams []*ScriptedStream
}

func NewScriptedEngine() *ScriptedEngine {
	return &ScriptedEngine{}
}

func (e *ScriptedEngine) Start(_ context.Context, _ recognition.StreamConfig) (recognition.Stream, error) {
	if e.StartErr != nil {
		return nil, e.StartErr
	}
	stream := NewScriptedStream()
	e.mu.Lock()
	e.streams = append(e.streams, stream)
	e.mu.Unlock()
	return stream, nil
}

// LastStream returns the most recently started stream.
func (e *ScriptedEngine) LastStream() *ScriptedStream {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.streams) == 0 {
		return nil
	}
	return e.streams[len(e.streams)-1]
}

// StartCount reports how many streams were started.
func (e *ScriptedEngine) StartCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.streams)
}
