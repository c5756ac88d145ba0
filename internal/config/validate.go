package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRecognition(); err != nil {
		return err
	}
	if err := c.validateBackend(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRecognition() error {
	switch c.Recognition.Provider {
	case "deepgram", "none":
	default:
		return fmt.Errorf("recognition.provider: unknown provider %q", c.Recognition.Provider)
	}
	if c.Recognition.SampleRate < 8000 || c.Recognition.SampleRate > 48000 {
		return errors.New("recognition.sample_rate must be between 8000 and 48000")
	}
	if c.Recognition.Channels < 1 || c.Recognition.Channels > 2 {
		return errors.New("recognition.channels must be 1 or 2")
	}
	return nil
}

func (c *Config) validateBackend() error {
	if !c.Backend.Enabled {
		return nil
	}
	if c.Backend.BaseURL == "" {
		return errors.New("backend.base_url must be set when backend.enabled is true")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
