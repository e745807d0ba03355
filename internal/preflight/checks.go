package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"picname/internal/config"
	"picname/internal/desccache"
	"picname/internal/services/vision"
)

// CheckInference verifies that the vision endpoint answers a text prompt.
// It makes a single attempt (no retries).
func CheckInference(ctx context.Context, cfg config.Inference, timeout time.Duration) Result {
	const name = "Inference"

	if timeout <= 0 {
		timeout = DefaultInferenceTimeout
	}
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := vision.NewClient(vision.Config{
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		Model:          cfg.Model,
		Referer:        cfg.Referer,
		Title:          cfg.Title,
		TimeoutSeconds: cfg.TimeoutSeconds,
	}, vision.WithRetryMaxAttempts(1))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{
			Name:     name,
			Required: true,
			Detail:   fmt.Sprintf("%s (%s)", summarizeInferenceError(err), vision.ServiceHint(client.Model())),
		}
	}
	return Result{Name: name, Passed: true, Required: true, Detail: fmt.Sprintf("%s at %s", client.Model(), client.Endpoint())}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCache opens the description cache when it is enabled. A cache that
// cannot be opened only disables caching, so the result is advisory.
func CheckCache(ctx context.Context, cfg config.Cache) Result {
	const name = "Description cache"

	if !cfg.Enabled {
		return Result{Name: name, Skipped: true, Detail: "disabled"}
	}
	cache, err := desccache.Open(cfg.Path, nil)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	defer cache.Close()
	stats, err := cache.Stats(ctx)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d entries)", cfg.Path, stats.Entries)}
}

func summarizeInferenceError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (model server unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (model server unreachable)"
	}
	return err.Error()
}
