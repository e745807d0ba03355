package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"picname/internal/notifications"
	"picname/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var timeout time.Duration
	var notify bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify the inference endpoint and local directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			results := preflight.RunAll(cmd.Context(), cfg, timeout)

			if ctx.JSONMode() {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, result := range results {
					fmt.Fprintln(out, renderStatusLine(result.Name, checkStatusKind(result), result.Detail, colorize))
				}
			}
			if notify {
				if err := notifications.NewService(cfg).TestNotification(cmd.Context()); err != nil {
					return fmt.Errorf("check: test notification: %w", err)
				}
				if !ctx.JSONMode() {
					fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
				}
			}
			if preflight.Failed(results) {
				return errors.New("check: required checks failed")
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", preflight.DefaultInferenceTimeout, "Maximum time to wait for the model")
	cmd.Flags().BoolVar(&notify, "notify", false, "Also send a test notification")
	return cmd
}

func checkStatusKind(result preflight.Result) statusKind {
	switch {
	case result.Skipped:
		return statusInfo
	case result.Passed:
		return statusOK
	case result.Required:
		return statusError
	default:
		return statusWarn
	}
}
