package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"picname/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The image directory is created; the state directory is left for
// EnsureDirectories.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.ImageDir = filepath.Join(base, "images")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Cache.Path = filepath.Join(cfgVal.Paths.StateDir, "descriptions.db")
	cfgVal.Inference.BaseURL = "http://127.0.0.1:1/v1/chat/completions"
	cfgVal.Inference.TimeoutSeconds = 5
	cfgVal.Inference.RetryAttempts = 1

	if err := os.MkdirAll(cfgVal.Paths.ImageDir, 0o755); err != nil {
		t.Fatalf("mkdir image dir: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithInferenceURL points the config at a test inference server.
func WithInferenceURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Inference.BaseURL = url
	}
}

// WithApplyMode switches the config to apply mode.
func WithApplyMode() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Rename.Mode = config.ModeApply
	}
}

// WithCache enables the description cache.
func WithCache() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.Enabled = true
	}
}

// WithNtfyTopic enables batch notifications to url.
func WithNtfyTopic(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = url
	}
}

// WriteConfig encodes cfg as TOML at path.
func WriteConfig(t testing.TB, path string, cfg *config.Config) {
	t.Helper()
	encoded, err := cfg.Encode()
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(encoded), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}
