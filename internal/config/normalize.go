package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeInference()
	c.normalizeRename()
	if err := c.normalizeCache(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ImageDir) == "" {
		c.Paths.ImageDir = defaultImageDir
	}
	if c.Paths.ImageDir, err = expandPath(strings.TrimSpace(c.Paths.ImageDir)); err != nil {
		return fmt.Errorf("paths.image_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeInference() {
	c.Inference.BaseURL = strings.TrimSpace(c.Inference.BaseURL)
	if c.Inference.BaseURL == "" {
		c.Inference.BaseURL = defaultInferenceBaseURL
	}
	c.Inference.Model = strings.TrimSpace(c.Inference.Model)
	if c.Inference.Model == "" {
		c.Inference.Model = defaultInferenceModel
	}
	c.Inference.Prompt = strings.TrimSpace(c.Inference.Prompt)
	if c.Inference.Prompt == "" {
		c.Inference.Prompt = defaultInferencePrompt
	}
	c.Inference.Referer = strings.TrimSpace(c.Inference.Referer)
	c.Inference.Title = strings.TrimSpace(c.Inference.Title)
	if c.Inference.TimeoutSeconds <= 0 {
		c.Inference.TimeoutSeconds = defaultInferenceTimeout
	}
	if c.Inference.RetryAttempts <= 0 {
		c.Inference.RetryAttempts = defaultInferenceRetries
	}
	c.Inference.APIKey = strings.TrimSpace(c.Inference.APIKey)
	if c.Inference.APIKey == "" {
		if value, ok := os.LookupEnv("PICNAME_API_KEY"); ok {
			c.Inference.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.Inference.APIKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeRename() {
	c.Rename.Extensions = NormalizeExtensions(c.Rename.Extensions)
	if len(c.Rename.Extensions) == 0 {
		c.Rename.Extensions = DefaultExtensions()
	}
	if c.Rename.CollisionAttemptLimit == 0 {
		c.Rename.CollisionAttemptLimit = defaultCollisionAttemptLimit
	}
	c.Rename.Mode = strings.ToLower(strings.TrimSpace(c.Rename.Mode))
	switch c.Rename.Mode {
	case "", "dry-run", "dry_run", "dryrun":
		c.Rename.Mode = ModePreview
	}
	if c.Rename.Workers == 0 {
		c.Rename.Workers = defaultWorkers
	}
}

func (c *Config) normalizeCache() error {
	var err error
	if strings.TrimSpace(c.Cache.Path) == "" {
		c.Cache.Path = filepath.Join(c.Paths.StateDir, defaultCacheFile)
	}
	if c.Cache.Path, err = expandPath(strings.TrimSpace(c.Cache.Path)); err != nil {
		return fmt.Errorf("cache.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// NormalizeExtensions lower-cases extensions, adds a leading dot, and drops
// blanks and duplicates while keeping the first-seen order.
func NormalizeExtensions(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		ext := strings.ToLower(strings.TrimSpace(value))
		if ext == "" || ext == "." {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, exists := seen[ext]; exists {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	return out
}
