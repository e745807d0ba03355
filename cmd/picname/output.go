package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"picname/internal/renamer"
	"picname/internal/textutil"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// planPrinter prints one line per described file as soon as its plan is
// final. Skipped entries are left to the summary.
type planPrinter struct {
	mu       sync.Mutex
	out      io.Writer
	dir      string
	colorize bool
}

func newPlanPrinter(out io.Writer, dir string, colorize bool) *planPrinter {
	return &planPrinter{out: out, dir: dir, colorize: colorize}
}

func (p *planPrinter) Report(plan renamer.Plan) {
	p.mu.Lock()
	defer p.mu.Unlock()

	source := filepath.Base(plan.Source)
	label := fmt.Sprintf("%-8s", plan.Status)
	if p.colorize {
		label = statusColor(plan.Status) + label + ansiReset
	}
	switch plan.Status {
	case renamer.StatusSkipped:
		fmt.Fprintf(p.out, "%s %s (%s)\n", label, source, plan.Reason)
	case renamer.StatusFailed:
		detail := plan.Reason
		if plan.Err != nil {
			detail = textutil.SummarizeSnippet(plan.Err.Error(), 160)
		}
		fmt.Fprintf(p.out, "%s %s (%s)\n", label, source, detail)
	default:
		cached := ""
		if plan.Cached {
			cached = " [cached]"
		}
		fmt.Fprintf(p.out, "%s %s -> %s%s\n", label, source, filepath.Base(plan.Destination), cached)
	}
}

func statusColor(status renamer.Status) string {
	switch status {
	case renamer.StatusApplied:
		return ansiGreen
	case renamer.StatusPlanned:
		return ansiBlue
	case renamer.StatusFailed:
		return ansiRed
	default:
		return ansiYellow
	}
}

func printSummary(out io.Writer, result renamer.BatchResult) {
	renamedLabel := "Renamed"
	if result.Mode == renamer.ModePreview {
		renamedLabel = "Would rename"
	}
	rows := [][]string{
		{renamedLabel, fmt.Sprintf("%d", result.Renamed)},
		{"Failed", fmt.Sprintf("%d", result.Failed)},
		{"Skipped", fmt.Sprintf("%d", result.Skipped)},
		{"Elapsed", result.Elapsed.Round(time.Millisecond).String()},
	}
	fmt.Fprintln(out, renderTable([]string{"Result", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
	if result.Mode == renamer.ModePreview && result.Renamed > 0 {
		fmt.Fprintln(out, "Preview only; re-run with --apply to rename.")
	}
}

type planReport struct {
	Source      string `json:"source"`
	Destination string `json:"destination,omitempty"`
	Status      string `json:"status"`
	Reason      string `json:"reason,omitempty"`
	Description string `json:"description,omitempty"`
	Cached      bool   `json:"cached,omitempty"`
	ElapsedMS   int64  `json:"elapsed_ms"`
	Error       string `json:"error,omitempty"`
}

type batchReport struct {
	RunID     string       `json:"run_id"`
	Dir       string       `json:"dir"`
	Mode      string       `json:"mode"`
	Renamed   int          `json:"renamed"`
	Failed    int          `json:"failed"`
	Skipped   int          `json:"skipped"`
	ElapsedMS int64        `json:"elapsed_ms"`
	Plans     []planReport `json:"plans"`
}

func newBatchReport(result renamer.BatchResult) batchReport {
	report := batchReport{
		RunID:     result.RunID,
		Dir:       result.Dir,
		Mode:      string(result.Mode),
		Renamed:   result.Renamed,
		Failed:    result.Failed,
		Skipped:   result.Skipped,
		ElapsedMS: result.Elapsed.Milliseconds(),
		Plans:     make([]planReport, 0, len(result.Plans)),
	}
	for _, plan := range result.Plans {
		entry := planReport{
			Source:      plan.Source,
			Destination: plan.Destination,
			Status:      string(plan.Status),
			Reason:      plan.Reason,
			Description: plan.Description,
			Cached:      plan.Cached,
			ElapsedMS:   plan.Elapsed.Milliseconds(),
		}
		if plan.Err != nil {
			entry.Error = plan.Err.Error()
		}
		report.Plans = append(report.Plans, entry)
	}
	return report
}
