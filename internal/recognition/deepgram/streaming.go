package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"escucha/internal/recognition"
	"escucha/internal/services"
)

const audioChunkSize = 4096

// Config controls Deepgram websocket settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Language    string
	SmartFormat bool
}

// Engine implements recognition.Engine over the Deepgram live-listen
// websocket endpoint.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.deepgram.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	return &Engine{cfg: cfg}
}

func (e *Engine) Start(ctx context.Context, cfg recognition.StreamConfig) (recognition.Stream, error) {
	if strings.TrimSpace(e.cfg.APIKey) == "" {
		return nil, services.Wrap(services.ErrUnsupported, "deepgram", "start", "api key is not configured", nil)
	}

	wsURL, err := buildListenURL(e.cfg, cfg)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+e.cfg.APIKey)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		return nil, services.Wrap(services.ErrExternal, "deepgram", "dial", wsURL, err)
	}

	s := &stream{
		conn:     conn,
		audio:    cfg.Audio,
		speaker:  cfg.SpeakerLabel,
		language: firstNonEmpty(cfg.Language, e.cfg.Language),
		events:   make(chan recognition.Event, 64),
		stopCh:   make(chan struct{}),
	}

	go s.pumpAudio()
	go s.readLoop()

	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()

	return s, nil
}

type stream struct {
	conn     *websocket.Conn
	audio    io.Reader
	speaker  string
	language string

	events chan recognition.Event
	stopCh chan struct{}

	writeMu sync.Mutex

	stopOnce  sync.Once
	closeOnce sync.Once

	stateMu   sync.Mutex
	stopped   bool
	aborted   bool
	writeCode recognition.ErrorCode
	writeErr  error
}

func (s *stream) Events() <-chan recognition.Event { return s.events }

// Stop requests graceful termination: the audio pump halts and a CloseStream
// control message asks the provider to flush any final results before ending.
func (s *stream) Stop() error {
	s.stopOnce.Do(func() {
		s.stateMu.Lock()
		s.stopped = true
		s.stateMu.Unlock()
		close(s.stopCh)
		s.sendCloseStream()
	})
	return nil
}

func (s *stream) Close() error {
	s.closeOnce.Do(func() {
		s.stateMu.Lock()
		s.aborted = true
		s.stateMu.Unlock()
		_ = s.Stop()
		_ = s.conn.Close()
	})
	return nil
}

func (s *stream) writeMessage(messageType int, payload []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(messageType, payload)
}

func (s *stream) sendCloseStream() {
	_ = s.writeMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`))
}

func (s *stream) setWriteFailure(code recognition.ErrorCode, err error) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.writeErr == nil {
		s.writeCode = code
		s.writeErr = err
	}
}

// pumpAudio copies the host audio source onto the websocket until the source
// drains or a stop is requested.
func (s *stream) pumpAudio() {
	if s.audio == nil {
		return
	}
	buf := make([]byte, audioChunkSize)
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		n, err := s.audio.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			if writeErr := s.writeMessage(websocket.BinaryMessage, chunk); writeErr != nil {
				s.setWriteFailure(recognition.CodeNetwork, writeErr)
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.setWriteFailure(recognition.CodeAudioCapture, err)
				_ = s.conn.Close()
				return
			}
			s.sendCloseStream()
			return
		}
	}
}

// readLoop is the only goroutine that emits events, so delivery order matches
// provider order by construction.
func (s *stream) readLoop() {
	s.emit(recognition.Event{Kind: recognition.EventStarted})

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			s.finish(err)
			return
		}

		var response listenResponse
		if unmarshalErr := json.Unmarshal(payload, &response); unmarshalErr != nil {
			continue
		}

		if strings.EqualFold(response.Type, "Error") {
			detail := strings.TrimSpace(response.Message)
			if detail == "" {
				detail = "provider returned an unknown error"
			}
			s.emit(recognition.Event{Kind: recognition.EventError, Code: recognition.CodeUnknown, Detail: detail})
			s.end()
			_ = s.conn.Close()
			return
		}

		text := extractTranscript(response)
		if text == "" {
			continue
		}

		if response.IsFinal || response.SpeechFinal {
			s.emit(recognition.Event{Kind: recognition.EventSegment, Segment: &recognition.Segment{
				ID:                 uuid.NewString(),
				StartOffsetSeconds: response.Start,
				EndOffsetSeconds:   response.Start + response.Duration,
				Text:               text,
				Confidence:         extractConfidence(response),
				SpeakerLabel:       s.speaker,
			}})
		} else {
			s.emit(recognition.Event{Kind: recognition.EventPartial, Text: text})
		}
	}
}

// finish classifies the read failure that terminated the loop and delivers the
// single end event.
func (s *stream) finish(readErr error) {
	s.stateMu.Lock()
	stopped := s.stopped
	aborted := s.aborted
	writeCode := s.writeCode
	writeErr := s.writeErr
	s.stateMu.Unlock()

	switch {
	case writeErr != nil:
		s.emit(recognition.Event{Kind: recognition.EventError, Code: writeCode, Detail: writeErr.Error()})
	case aborted:
		// Abortive close releases the stream without an error event.
	case stopped && isGracefulClose(readErr):
	case isGracefulClose(readErr):
	default:
		s.emit(recognition.Event{Kind: recognition.EventError, Code: recognition.CodeNetwork, Detail: readErr.Error()})
	}
	s.end()
	_ = s.conn.Close()
}

func (s *stream) end() {
	s.emit(recognition.Event{Kind: recognition.EventEnd, Language: s.language})
	close(s.events)
}

func (s *stream) emit(ev recognition.Event) {
	s.events <- ev
}

func isGracefulClose(err error) bool {
	return websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	)
}

type listenResponse struct {
	Type        string  `json:"type"`
	Message     string  `json:"message"`
	IsFinal     bool    `json:"is_final"`
	SpeechFinal bool    `json:"speech_final"`
	Start       float64 `json:"start"`
	Duration    float64 `json:"duration"`

	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func extractTranscript(response listenResponse) string {
	if len(response.Channel.Alternatives) > 0 {
		return strings.TrimSpace(response.Channel.Alternatives[0].Transcript)
	}
	return ""
}

func extractConfidence(response listenResponse) float64 {
	if len(response.Channel.Alternatives) > 0 {
		return response.Channel.Alternatives[0].Confidence
	}
	return 0
}

func buildListenURL(engineCfg Config, streamCfg recognition.StreamConfig) (string, error) {
	base := strings.TrimSpace(engineCfg.BaseURL)
	if base == "" {
		base = "https://api.deepgram.com/v1"
	}

	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	listenURL, err := url.Parse(base + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid listen base URL: %w", err)
	}

	encoding := streamCfg.Encoding
	if encoding == "" {
		encoding = "linear16"
	}
	sampleRate := streamCfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	channels := streamCfg.Channels
	if channels <= 0 {
		channels = 1
	}

	query := listenURL.Query()
	query.Set("model", engineCfg.Model)
	query.Set("encoding", encoding)
	query.Set("sample_rate", strconv.Itoa(sampleRate))
	query.Set("channels", strconv.Itoa(channels))
	query.Set("interim_results", strconv.FormatBool(streamCfg.InterimResults))
	query.Set("smart_format", strconv.FormatBool(engineCfg.SmartFormat))
	if language := firstNonEmpty(streamCfg.Language, engineCfg.Language); language != "" {
		query.Set("language", language)
	}
	listenURL.RawQuery = query.Encode()
	return listenURL.String(), nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
