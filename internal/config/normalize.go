package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRecognition()
	c.normalizeCapture()
	c.normalizeBackend()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeRecognition() {
	c.Recognition.Provider = strings.ToLower(strings.TrimSpace(c.Recognition.Provider))
	if c.Recognition.Provider == "" {
		c.Recognition.Provider = defaultRecognitionProvider
	}
	if key := strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")); key != "" && c.Recognition.APIKey == "" {
		c.Recognition.APIKey = key
	}
	c.Recognition.APIKey = strings.TrimSpace(c.Recognition.APIKey)
	c.Recognition.BaseURL = strings.TrimRight(strings.TrimSpace(c.Recognition.BaseURL), "/")
	if c.Recognition.BaseURL == "" {
		c.Recognition.BaseURL = defaultRecognitionBaseURL
	}
	if strings.TrimSpace(c.Recognition.Model) == "" {
		c.Recognition.Model = defaultRecognitionModel
	}
	if c.Recognition.SampleRate <= 0 {
		c.Recognition.SampleRate = defaultRecognitionSampleRate
	}
	if c.Recognition.Channels <= 0 {
		c.Recognition.Channels = defaultRecognitionChannels
	}
}

func (c *Config) normalizeCapture() {
	if strings.TrimSpace(c.Capture.SpeakerLabel) == "" {
		c.Capture.SpeakerLabel = defaultSpeakerLabel
	}
	if c.Capture.MaxDurationSeconds < 0 {
		c.Capture.MaxDurationSeconds = 0
	}
}

func (c *Config) normalizeBackend() {
	c.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(c.Backend.BaseURL), "/")
	c.Backend.APIToken = strings.TrimSpace(c.Backend.APIToken)
	if c.Backend.RequestTimeout <= 0 {
		c.Backend.RequestTimeout = defaultBackendTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
