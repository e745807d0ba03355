package renamer

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects whether a run touches the filesystem.
type Mode string

const (
	// ModePreview resolves destinations and reports them without renaming.
	ModePreview Mode = "preview"
	// ModeApply renames files.
	ModeApply Mode = "apply"
)

// ParseMode converts a configuration string to a Mode. Empty means preview.
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(ModePreview):
		return ModePreview, nil
	case string(ModeApply):
		return ModeApply, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want preview or apply)", value)
	}
}

// Status is the terminal state of one plan.
type Status string

const (
	StatusPlanned Status = "planned"
	StatusApplied Status = "applied"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Skip reasons.
const (
	ReasonNotImage  = "not_image"
	ReasonDirectory = "directory"
)

// Plan records what happened to one directory entry.
type Plan struct {
	Source      string        `json:"source"`
	Destination string        `json:"destination,omitempty"`
	Status      Status        `json:"status"`
	Reason      string        `json:"reason,omitempty"`
	Description string        `json:"description,omitempty"`
	Cached      bool          `json:"cached,omitempty"`
	Elapsed     time.Duration `json:"elapsed,omitempty"`
	Err         error         `json:"-"`
}

// Renamed reports whether the plan counts towards BatchResult.Renamed.
func (p Plan) Renamed() bool {
	return p.Status == StatusApplied || p.Status == StatusPlanned
}

// BatchResult aggregates one run.
type BatchResult struct {
	RunID   string        `json:"run_id"`
	Dir     string        `json:"dir"`
	Mode    Mode          `json:"mode"`
	Renamed int           `json:"renamed"`
	Failed  int           `json:"failed"`
	Skipped int           `json:"skipped"`
	Elapsed time.Duration `json:"elapsed"`
	Plans   []Plan        `json:"plans"`
}

// Attempted returns how many eligible files were processed.
func (r BatchResult) Attempted() int {
	return r.Renamed + r.Failed
}

// Summary renders the counters on one line.
func (r BatchResult) Summary() string {
	verb := "renamed"
	if r.Mode == ModePreview {
		verb = "would rename"
	}
	return fmt.Sprintf("%s %d, failed %d, skipped %d in %s",
		verb, r.Renamed, r.Failed, r.Skipped, r.Elapsed.Round(time.Millisecond))
}
