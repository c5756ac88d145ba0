package deepgram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"escucha/internal/recognition"
)

func TestNewEngineDefaults(t *testing.T) {
	t.Parallel()

	e := NewEngine(Config{})
	if e.cfg.BaseURL != "https://api.deepgram.com/v1" {
		t.Fatalf("unexpected base url: %q", e.cfg.BaseURL)
	}
	if e.cfg.Model != "nova-2" {
		t.Fatalf("unexpected model: %q", e.cfg.Model)
	}
}

func TestStartRequiresAPIKey(t *testing.T) {
	t.Parallel()

	e := NewEngine(Config{})
	if _, err := e.Start(context.Background(), recognition.StreamConfig{}); err == nil {
		t.Fatal("expected missing key error")
	}
}

func TestBuildListenURL(t *testing.T) {
	t.Parallel()

	url, err := buildListenURL(
		Config{BaseURL: "http://localhost:9000/v1", Model: "nova-2", Language: "es", SmartFormat: true},
		recognition.StreamConfig{SampleRate: 16000, Channels: 1, InterimResults: true},
	)
	if err != nil {
		t.Fatalf("buildListenURL: %v", err)
	}
	for _, want := range []string{
		"ws://localhost:9000/v1/listen",
		"encoding=linear16",
		"sample_rate=16000",
		"channels=1",
		"interim_results=true",
		"smart_format=true",
		"language=es",
	} {
		if !strings.Contains(url, want) {
			t.Fatalf("expected %q in url %s", want, url)
		}
	}
}

func TestBuildListenURLInvalidBase(t *testing.T) {
	t.Parallel()

	if _, err := buildListenURL(Config{BaseURL: ":// bad"}, recognition.StreamConfig{}); err == nil {
		t.Fatal("expected invalid base url error")
	}
}

// fakeListen serves a websocket endpoint that replays the provided payloads
// and then closes normally.
func fakeListen(t *testing.T, payloads []string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for _, payload := range payloads {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
				return
			}
		}
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	}))
}

func collectEvents(t *testing.T, stream recognition.Stream) []recognition.Event {
	t.Helper()
	var events []recognition.Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-stream.Events():
			if !ok {
				return events
			}
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("timed out waiting for events, got %d so far", len(events))
		}
	}
}

func TestStreamDeliversSegmentsInOrder(t *testing.T) {
	t.Parallel()

	server := fakeListen(t, []string{
		`{"is_final":false,"channel":{"alternatives":[{"transcript":"hel"}]}}`,
		`{"is_final":true,"start":0.0,"duration":1.2,"channel":{"alternatives":[{"transcript":"hello","confidence":0.98}]}}`,
		`{"is_final":true,"start":1.2,"duration":0.9,"channel":{"alternatives":[{"transcript":"world","confidence":0.95}]}}`,
	})
	defer server.Close()

	e := NewEngine(Config{APIKey: "test-key", BaseURL: server.URL})
	stream, err := e.Start(context.Background(), recognition.StreamConfig{SpeakerLabel: "Speaker 1"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer stream.Close()

	events := collectEvents(t, stream)
	if len(events) == 0 || events[0].Kind != recognition.EventStarted {
		t.Fatalf("expected started event first, got %+v", events)
	}
	last := events[len(events)-1]
	if last.Kind != recognition.EventEnd {
		t.Fatalf("expected end event last, got %+v", last)
	}

	var segments []recognition.Segment
	for _, ev := range events {
		if ev.Kind == recognition.EventSegment {
			segments = append(segments, *ev.Segment)
		}
		if ev.Kind == recognition.EventError {
			t.Fatalf("unexpected error event: %+v", ev)
		}
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if segments[0].Text != "hello" || segments[1].Text != "world" {
		t.Fatalf("unexpected segment order: %+v", segments)
	}
	if segments[0].StartOffsetSeconds > segments[1].StartOffsetSeconds {
		t.Fatalf("offsets not monotonic: %+v", segments)
	}
	if segments[0].SpeakerLabel != "Speaker 1" {
		t.Fatalf("expected speaker label, got %q", segments[0].SpeakerLabel)
	}
	if segments[0].ID == "" || segments[0].ID == segments[1].ID {
		t.Fatalf("expected distinct segment ids, got %q and %q", segments[0].ID, segments[1].ID)
	}
}

func TestStreamSurfacesProviderError(t *testing.T) {
	t.Parallel()

	server := fakeListen(t, []string{
		`{"type":"Error","message":"bad model"}`,
	})
	defer server.Close()

	e := NewEngine(Config{APIKey: "test-key", BaseURL: server.URL})
	stream, err := e.Start(context.Background(), recognition.StreamConfig{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer stream.Close()

	events := collectEvents(t, stream)
	var sawError bool
	for _, ev := range events {
		if ev.Kind == recognition.EventError {
			sawError = true
			if ev.Code != recognition.CodeUnknown || ev.Detail != "bad model" {
				t.Fatalf("unexpected error event: %+v", ev)
			}
		}
	}
	if !sawError {
		t.Fatalf("expected error event, got %+v", events)
	}
	if events[len(events)-1].Kind != recognition.EventEnd {
		t.Fatalf("expected end event after error, got %+v", events[len(events)-1])
	}
}
