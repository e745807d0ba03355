package config

const (
	// ModePreview reports intended renames without touching the filesystem.
	ModePreview = "preview"
	// ModeApply performs the renames.
	ModeApply = "apply"
)

// MaxWorkers caps rename.workers and the --workers flag.
const MaxWorkers = 32

const (
	defaultImageDir              = "./images"
	defaultStateDir              = "~/.local/share/picname"
	defaultInferenceBaseURL      = "http://localhost:11434/v1/chat/completions"
	defaultInferenceModel        = "qwen2.5vl:7b"
	defaultInferencePrompt       = "Describe this image in 3-10 words suitable for a filename. Only provide a description, no punctuation."
	defaultInferenceTitle        = "picname"
	defaultInferenceTimeout      = 120
	defaultInferenceRetries      = 2
	defaultCollisionAttemptLimit = 1000
	defaultWorkers               = 1
	defaultCacheFile             = "descriptions.db"
	defaultNtfyRequestTimeout    = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// DefaultExtensions lists the image extensions picname renames.
func DefaultExtensions() []string {
	return []string{".png", ".jpg", ".jpeg", ".webp"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ImageDir: defaultImageDir,
			StateDir: defaultStateDir,
		},
		Inference: Inference{
			BaseURL:        defaultInferenceBaseURL,
			Model:          defaultInferenceModel,
			Prompt:         defaultInferencePrompt,
			Title:          defaultInferenceTitle,
			TimeoutSeconds: defaultInferenceTimeout,
			RetryAttempts:  defaultInferenceRetries,
		},
		Rename: Rename{
			Extensions:            DefaultExtensions(),
			CollisionAttemptLimit: defaultCollisionAttemptLimit,
			Mode:                  ModePreview,
			Workers:               defaultWorkers,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
