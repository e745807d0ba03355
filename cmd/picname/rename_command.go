package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"picname/internal/config"
	"picname/internal/desccache"
	"picname/internal/dirlock"
	"picname/internal/logging"
	"picname/internal/notifications"
	"picname/internal/renamer"
	"picname/internal/scan"
	"picname/internal/services"
	"picname/internal/services/vision"
)

func runRename(cmd *cobra.Command, ctx *commandContext, flags runFlags) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.logger(cmd)
	if err != nil {
		return err
	}

	dir := cfg.Paths.ImageDir
	if strings.TrimSpace(flags.inDir) != "" {
		if dir, err = config.ExpandPath(strings.TrimSpace(flags.inDir)); err != nil {
			return fmt.Errorf("resolve --in-dir: %w", err)
		}
	}

	mode, err := renamer.ParseMode(cfg.Rename.Mode)
	if err != nil {
		return err
	}
	if flags.apply {
		mode = renamer.ModeApply
	}
	workers := cfg.Rename.Workers
	if cmd.Flags().Changed("workers") {
		if flags.workers < 1 || flags.workers > config.MaxWorkers {
			return fmt.Errorf("--workers must be between 1 and %d", config.MaxWorkers)
		}
		workers = flags.workers
	}

	if err := scan.CheckDir(dir); err != nil {
		return err
	}
	lock, err := dirlock.Acquire(cfg.LockDir(), dir)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("failed to release directory lock", logging.Error(err))
		}
	}()

	client := newVisionClient(cfg)
	describer, closeCache := describerFor(cfg, client, flags.noCache, logger)
	defer closeCache()

	out := cmd.OutOrStdout()
	options := []renamer.Option{renamer.WithLogger(logger)}
	if !ctx.JSONMode() {
		options = append(options, renamer.WithReporter(newPlanPrinter(out, dir, shouldColorize(out))))
	}

	r := renamer.New(
		scan.New(cfg.Rename.Extensions),
		describer,
		renamer.Options{
			Mode:          mode,
			Workers:       workers,
			AttemptLimit:  cfg.Rename.CollisionAttemptLimit,
			InferenceHint: vision.ServiceHint(client.Model()),
		},
		options...,
	)

	notifier := notifications.NewService(cfg)
	result, runErr := r.Run(cmd.Context(), dir)
	if runErr != nil && services.IsFatal(runErr) {
		notify(cmd, logger, func(nctx context.Context) error {
			return notifier.NotifyError(nctx, runErr, "batch")
		})
		return runErr
	}
	notify(cmd, logger, func(nctx context.Context) error {
		return notifier.NotifyBatchCompleted(nctx, notifications.BatchSummary{
			Dir:     result.Dir,
			Applied: result.Mode == renamer.ModeApply,
			Renamed: result.Renamed,
			Failed:  result.Failed,
			Skipped: result.Skipped,
			Elapsed: result.Elapsed,
		})
	})

	if ctx.JSONMode() {
		if err := writeJSON(cmd, newBatchReport(result)); err != nil {
			return err
		}
	} else {
		printSummary(out, result)
	}
	return runErr
}

// notify sends a notification even after an interrupt; the ntfy client
// carries its own timeout.
func notify(cmd *cobra.Command, logger *slog.Logger, send func(context.Context) error) {
	if err := send(context.WithoutCancel(cmd.Context())); err != nil {
		logger.Warn("notification failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "notification_failed"))
	}
}

func newVisionClient(cfg *config.Config) *vision.Client {
	return vision.NewClient(vision.Config{
		APIKey:         cfg.Inference.APIKey,
		BaseURL:        cfg.Inference.BaseURL,
		Model:          cfg.Inference.Model,
		Prompt:         cfg.Inference.Prompt,
		Referer:        cfg.Inference.Referer,
		Title:          cfg.Inference.Title,
		TimeoutSeconds: cfg.Inference.TimeoutSeconds,
	}, vision.WithRetryMaxAttempts(cfg.Inference.RetryAttempts))
}

// describerFor wraps client with the description cache when enabled. A cache
// that cannot be opened is logged and skipped.
func describerFor(cfg *config.Config, client *vision.Client, noCache bool, logger *slog.Logger) (renamer.Describer, func()) {
	noop := func() {}
	if !cfg.Cache.Enabled || noCache {
		return client, noop
	}
	cache, err := desccache.Open(cfg.Cache.Path, logger)
	if err != nil {
		logging.WarnWithContext(logger, "description cache unavailable", "desccache_open_failed",
			logging.String("path", cfg.Cache.Path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run `picname cache clear` or delete the cache file"),
			logging.String(logging.FieldImpact, "every image will be sent to the model"))
		return client, noop
	}
	closeCache := func() {
		if err := cache.Close(); err != nil {
			logger.Debug("close description cache", logging.Error(err))
		}
	}
	return desccache.NewDescriber(client, cache, client.Model(), client.Prompt(), logger), closeCache
}
