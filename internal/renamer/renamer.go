package renamer

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"picname/internal/fileutil"
	"picname/internal/logging"
	"picname/internal/naming"
	"picname/internal/scan"
	"picname/internal/services"
	"picname/internal/services/vision"
	"picname/internal/textutil"
)

// Describer turns an image into free text.
type Describer interface {
	Describe(ctx context.Context, imagePath string) (vision.Description, error)
}

// Reporter receives every plan as soon as it is final.
type Reporter interface {
	Report(Plan)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Plan)

// Report implements Reporter.
func (f ReporterFunc) Report(p Plan) { f(p) }

// Options tune a run.
type Options struct {
	Mode Mode
	// Workers > 1 describes files concurrently.
	Workers int
	// AttemptLimit bounds numbered suffixes; <= 0 uses naming.DefaultAttemptLimit.
	AttemptLimit int
	// InferenceHint is logged with inference failures.
	InferenceHint string
}

// Renamer runs the describe, sanitize, resolve and rename pipeline over one
// directory.
type Renamer struct {
	scanner   *scan.Scanner
	describer Describer
	opts      Options

	logger   *slog.Logger
	reporter Reporter
	rename   func(src, dst string) error
	now      func() time.Time
}

// Option customizes a Renamer.
type Option func(*Renamer)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renamer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithReporter registers a reporter for finished plans.
func WithReporter(reporter Reporter) Option {
	return func(r *Renamer) {
		r.reporter = reporter
	}
}

// WithRenameFunc overrides the filesystem rename (useful for tests). The
// function must fail when dst exists.
func WithRenameFunc(fn func(src, dst string) error) Option {
	return func(r *Renamer) {
		if fn != nil {
			r.rename = fn
		}
	}
}

// WithClock overrides the time source used for elapsed times.
func WithClock(now func() time.Time) Option {
	return func(r *Renamer) {
		if now != nil {
			r.now = now
		}
	}
}

// New constructs a Renamer.
func New(scanner *scan.Scanner, describer Describer, opts Options, options ...Option) *Renamer {
	if scanner == nil {
		scanner = scan.New(nil)
	}
	if opts.Mode == "" {
		opts.Mode = ModePreview
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	r := &Renamer{
		scanner:   scanner,
		describer: describer,
		opts:      opts,
		logger:    logging.NewNop(),
		rename:    fileutil.RenameNoReplace,
		now:       time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "renamer")
	return r
}

// Run processes every entry of dir once. Only a missing directory fails the
// run up front, with a zero BatchResult. Per-file failures are recorded in
// the result. When ctx is cancelled no further files are started and the
// partial result is returned together with the context error.
func (r *Renamer) Run(ctx context.Context, dir string) (BatchResult, error) {
	start := r.now()
	listing, err := r.scanner.Open(dir)
	if err != nil {
		logging.ErrorWithContext(r.logger, "cannot read image directory", "directory_not_found",
			logging.String("dir", dir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check --in-dir or paths.image_dir"))
		return BatchResult{}, err
	}
	defer listing.Close()

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, r.logger)

	acc := &accumulator{reporter: r.reporter}
	acc.result.RunID = runID
	acc.result.Dir = dir
	acc.result.Mode = r.opts.Mode
	resolver := naming.NewResolver(dir, r.opts.AttemptLimit)

	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.String("dir", dir),
		logging.String("mode", string(r.opts.Mode)),
		logging.Int("workers", r.opts.Workers))

	var runErr error
	if r.opts.Workers > 1 {
		runErr = r.runPool(ctx, listing, resolver, acc)
	} else {
		runErr = r.runSerial(ctx, listing, resolver, acc)
	}

	result := acc.snapshot()
	result.Elapsed = r.now().Sub(start)

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.Int("renamed", result.Renamed),
		logging.Int("failed", result.Failed),
		logging.Int("skipped", result.Skipped),
		logging.Duration("elapsed", result.Elapsed),
	}
	if runErr != nil {
		attrs = append(attrs, logging.Error(runErr))
		logger.Warn("batch interrupted", logging.Args(attrs...)...)
	} else {
		logger.Info("batch finished", logging.Args(attrs...)...)
	}
	return result, runErr
}

func (r *Renamer) runSerial(ctx context.Context, listing *scan.Listing, resolver *naming.Resolver, acc *accumulator) error {
	for entry, err := range listing.Entries() {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		r.handle(ctx, entry, resolver, acc)
	}
	return ctx.Err()
}

func (r *Renamer) runPool(ctx context.Context, listing *scan.Listing, resolver *naming.Resolver, acc *accumulator) error {
	var g errgroup.Group
	g.SetLimit(r.opts.Workers)

	var scanErr error
	for entry, err := range listing.Entries() {
		if err != nil {
			scanErr = err
			break
		}
		if ctx.Err() != nil {
			break
		}
		if !entry.Eligible {
			r.handle(ctx, entry, resolver, acc)
			continue
		}
		g.Go(func() error {
			r.handle(ctx, entry, resolver, acc)
			return nil
		})
	}
	_ = g.Wait()

	if scanErr != nil {
		return scanErr
	}
	return ctx.Err()
}

func (r *Renamer) handle(ctx context.Context, entry scan.Entry, resolver *naming.Resolver, acc *accumulator) {
	fileCtx := services.WithFile(ctx, entry.Name)
	logger := logging.WithContext(fileCtx, r.logger)

	if resolver.IsClaimed(entry.Path) {
		// Renamed earlier in this run and listed again by a later directory read.
		logger.Debug("ignoring file produced by this run")
		return
	}
	if !entry.Eligible {
		reason := ReasonNotImage
		if entry.IsDir {
			reason = ReasonDirectory
		}
		logger.Info("skipped",
			logging.String(logging.FieldEventType, "rename_skipped"),
			logging.String(logging.FieldReason, reason))
		acc.record(Plan{Source: entry.Path, Status: StatusSkipped, Reason: reason})
		return
	}

	acc.record(r.process(fileCtx, logger, entry, resolver))
}

func (r *Renamer) process(ctx context.Context, logger *slog.Logger, entry scan.Entry, resolver *naming.Resolver) Plan {
	plan := Plan{Source: entry.Path}
	started := r.now()

	desc, err := r.describer.Describe(ctx, entry.Path)
	if err != nil {
		return r.fail(logger, plan, started, err)
	}
	plan.Description = desc.Text
	plan.Cached = desc.Cached

	token := textutil.SanitizeFilename(desc.Text)
	if token == "" {
		return r.fail(logger, plan, started,
			services.Wrap(services.ErrEmptyDescription, "renamer", "sanitize", entry.Name, nil))
	}

	var commit func(string) error
	if r.opts.Mode == ModeApply {
		commit = func(dest string) error {
			if err := r.rename(entry.Path, dest); err != nil {
				return services.Wrap(services.ErrApplyIO, "renamer", "rename",
					entry.Name+" -> "+filepath.Base(dest), err)
			}
			return nil
		}
	}
	dest, err := resolver.Place(token, entry.Extension, commit)
	plan.Destination = dest
	if err != nil {
		return r.fail(logger, plan, started, err)
	}

	plan.Status = StatusPlanned
	message := "rename planned"
	if r.opts.Mode == ModeApply {
		plan.Status = StatusApplied
		message = "renamed"
	}
	plan.Elapsed = r.now().Sub(started)
	logger.Info(message,
		logging.String(logging.FieldEventType, "rename_"+string(plan.Status)),
		logging.String("destination", filepath.Base(dest)),
		logging.String("description", textutil.SummarizeSnippet(desc.Text, 120)),
		logging.Bool("cached", desc.Cached),
		logging.Duration("inference", desc.Elapsed),
		logging.Duration("elapsed", plan.Elapsed))
	return plan
}

func (r *Renamer) fail(logger *slog.Logger, plan Plan, started time.Time, err error) Plan {
	plan.Status = StatusFailed
	plan.Reason = services.Reason(err)
	plan.Err = err
	plan.Elapsed = r.now().Sub(started)

	attrs := []logging.Attr{
		logging.String(logging.FieldReason, plan.Reason),
		logging.Duration("elapsed", plan.Elapsed),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, r.hint(err)),
	}
	if plan.Destination != "" {
		attrs = append(attrs, logging.String("destination", filepath.Base(plan.Destination)))
	}
	if plan.Reason == "unexpected" {
		logging.ErrorWithContext(logger, "unexpected failure", "rename_unexpected", attrs...)
		return plan
	}
	logging.WarnWithContext(logger, "rename failed", "rename_failed", attrs...)
	return plan
}

func (r *Renamer) hint(err error) string {
	switch {
	case errors.Is(err, services.ErrInference):
		if r.opts.InferenceHint != "" {
			return r.opts.InferenceHint
		}
		return "check that the inference server is reachable"
	case errors.Is(err, services.ErrEmptyDescription):
		return "the model returned no usable text; try another model or prompt"
	case errors.Is(err, services.ErrCollisionLimit):
		return "too many files share this description; raise rename.collision_attempt_limit"
	case errors.Is(err, services.ErrNameTooLong):
		return "the description does not fit in a file name; ask the model for a shorter description"
	case errors.Is(err, services.ErrApplyIO):
		return "check permissions on the image directory"
	default:
		return "check logs for details"
	}
}
