// Package probe detects the configured recognition capability and constructs
// a ready engine, degrading to ErrUnsupportedCapability instead of crashing
// when the host cannot capture.
package probe

import (
	"io"

	"escucha/internal/config"
	"escucha/internal/recognition"
	"escucha/internal/recognition/deepgram"
)

// Detect probes the configured recognition capability and returns a ready
// engine wrapped with the exclusive capture lock, or
// recognition.ErrUnsupportedCapability when capture must be disabled.
func Detect(cfg *config.Config) (recognition.Engine, error) {
	if cfg == nil {
		return nil, recognition.ErrUnsupportedCapability
	}
	switch cfg.Recognition.Provider {
	case "deepgram":
		if cfg.Recognition.APIKey == "" {
			return nil, recognition.ErrUnsupportedCapability
		}
		engine := deepgram.NewEngine(deepgram.Config{
			APIKey:      cfg.Recognition.APIKey,
			BaseURL:     cfg.Recognition.BaseURL,
			Model:       cfg.Recognition.Model,
			Language:    cfg.Recognition.Language,
			SmartFormat: cfg.Recognition.SmartFormat,
		})
		return recognition.WithCaptureLock(engine, cfg.CaptureLockPath()), nil
	default:
		return nil, recognition.ErrUnsupportedCapability
	}
}

// StreamConfig builds the per-session stream settings from application
// configuration and the host audio source.
func StreamConfig(cfg *config.Config, audio io.Reader) recognition.StreamConfig {
	return recognition.StreamConfig{
		SampleRate:     cfg.Recognition.SampleRate,
		Channels:       cfg.Recognition.Channels,
		Language:       cfg.Recognition.Language,
		InterimResults: cfg.Recognition.InterimResults,
		SpeakerLabel:   cfg.Capture.SpeakerLabel,
		Audio:          audio,
	}
}
