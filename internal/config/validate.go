package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateInference(); err != nil {
		return err
	}
	if err := c.validateRename(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateInference() error {
	parsed, err := url.Parse(c.Inference.BaseURL)
	if err != nil {
		return fmt.Errorf("inference.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("inference.base_url must be an http(s) URL, got %q", c.Inference.BaseURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("inference.base_url is missing a host: %q", c.Inference.BaseURL)
	}
	if c.Inference.Model == "" {
		return errors.New("inference.model must be set")
	}
	if c.Inference.Prompt == "" {
		return errors.New("inference.prompt must be set")
	}
	if c.Inference.TimeoutSeconds <= 0 {
		return errors.New("inference.timeout_seconds must be positive")
	}
	if c.Inference.RetryAttempts <= 0 {
		return errors.New("inference.retry_attempts must be positive")
	}
	return nil
}

func (c *Config) validateRename() error {
	if len(c.Rename.Extensions) == 0 {
		return errors.New("rename.extensions must include at least one extension")
	}
	for _, ext := range c.Rename.Extensions {
		if strings.ContainsAny(ext, `/\`) {
			return fmt.Errorf("rename.extensions: invalid extension %q", ext)
		}
	}
	if c.Rename.CollisionAttemptLimit < 1 {
		return errors.New("rename.collision_attempt_limit must be positive")
	}
	switch c.Rename.Mode {
	case ModePreview, ModeApply:
	default:
		return fmt.Errorf("rename.mode must be %q or %q, got %q", ModePreview, ModeApply, c.Rename.Mode)
	}
	if c.Rename.Workers < 1 || c.Rename.Workers > MaxWorkers {
		return fmt.Errorf("rename.workers must be between 1 and %d", MaxWorkers)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	parsed, err := url.Parse(c.Notifications.NtfyTopic)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("notifications.ntfy_topic must be a full http(s) topic URL, got %q", c.Notifications.NtfyTopic)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
}
