package config

const (
	defaultDataDir               = "~/.local/share/escucha"
	defaultLogDir                = "~/.local/share/escucha/logs"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultRecognitionProvider   = "deepgram"
	defaultRecognitionBaseURL    = "https://api.deepgram.com/v1"
	defaultRecognitionModel      = "nova-2"
	defaultRecognitionLanguage   = "es"
	defaultRecognitionSampleRate = 16000
	defaultRecognitionChannels   = 1
	defaultSpeakerLabel          = "Speaker 1"
	defaultBackendTimeout        = 15
	defaultNotifyTimeout         = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Recognition: Recognition{
			Provider:       defaultRecognitionProvider,
			BaseURL:        defaultRecognitionBaseURL,
			Model:          defaultRecognitionModel,
			Language:       defaultRecognitionLanguage,
			SampleRate:     defaultRecognitionSampleRate,
			Channels:       defaultRecognitionChannels,
			InterimResults: true,
			SmartFormat:    true,
		},
		Capture: Capture{
			MaxDurationSeconds: 0,
			SpeakerLabel:       defaultSpeakerLabel,
		},
		Backend: Backend{
			RequestTimeout: defaultBackendTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Capture:        true,
			Conversion:     true,
			Risk:           true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
