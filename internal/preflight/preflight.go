package preflight

import (
	"context"
	"time"

	"picname/internal/config"
)

// DefaultInferenceTimeout bounds the inference health check.
const DefaultInferenceTimeout = 30 * time.Second

// Result reports the outcome of a single preflight check. A failed Required
// check means a rename run cannot succeed; other failures are advisory.
type Result struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Skipped  bool   `json:"skipped,omitempty"`
	Required bool   `json:"required"`
	Detail   string `json:"detail,omitempty"`
}

// RunAll executes every preflight check for cfg. The inference check is
// bounded by timeout (DefaultInferenceTimeout when zero).
func RunAll(ctx context.Context, cfg *config.Config, timeout time.Duration) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{CheckInference(ctx, cfg.Inference, timeout)}

	// The image directory can be overridden per run, so a missing default is
	// only advisory.
	results = append(results, CheckDirectoryAccess("Image directory", cfg.Paths.ImageDir))

	state := CheckDirectoryAccess("State directory", cfg.Paths.StateDir)
	state.Required = true
	results = append(results, state)

	results = append(results, CheckCache(ctx, cfg.Cache))
	return results
}

// Failed reports whether any required check failed.
func Failed(results []Result) bool {
	for _, result := range results {
		if result.Required && !result.Passed && !result.Skipped {
			return true
		}
	}
	return false
}
