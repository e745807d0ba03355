package main

import (
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"picname/internal/config"
	"picname/internal/desccache"
)

type cacheStatsReport struct {
	Path      string         `json:"path"`
	Enabled   bool           `json:"enabled"`
	Exists    bool           `json:"exists"`
	Entries   int            `json:"entries"`
	Hits      int            `json:"hits"`
	SizeBytes int64          `json:"size_bytes"`
	Models    map[string]int `json:"models,omitempty"`
}

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the description cache",
	}
	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show description cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := cacheStatsReport{Path: cfg.Cache.Path, Enabled: cfg.Cache.Enabled}

			var stats desccache.Stats
			if cacheFileExists(cfg) {
				report.Exists = true
				cache, err := desccache.Open(cfg.Cache.Path, nil)
				if err != nil {
					return err
				}
				defer cache.Close()
				stats, err = cache.Stats(cmd.Context())
				if err != nil {
					return err
				}
				report.Entries = stats.Entries
				report.Hits = stats.Hits
				report.SizeBytes = stats.SizeBytes
				report.Models = stats.Models
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, report)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cache: %s (enabled: %s)\n", report.Path, yesNo(report.Enabled))
			if !report.Exists {
				fmt.Fprintln(out, "No description cache has been written yet.")
				return nil
			}
			fmt.Fprintf(out, "Entries: %d  Hits: %d  Size: %s\n", report.Entries, report.Hits, humanize.IBytes(uint64(report.SizeBytes)))
			if !stats.Newest.IsZero() {
				fmt.Fprintf(out, "Newest entry: %s  Oldest entry: %s\n", humanize.Time(stats.Newest), humanize.Time(stats.Oldest))
			}
			if len(report.Models) == 0 {
				return nil
			}
			models := make([]string, 0, len(report.Models))
			for model := range report.Models {
				models = append(models, model)
			}
			slices.Sort(models)
			rows := make([][]string, 0, len(models))
			for _, model := range models {
				rows = append(rows, []string{model, strconv.Itoa(report.Models[model])})
			}
			fmt.Fprintln(out, renderTable([]string{"Model", "Entries"}, rows, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached description",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !cacheFileExists(cfg) {
				fmt.Fprintf(out, "No description cache at %s\n", cfg.Cache.Path)
				return nil
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			cache, err := desccache.Open(cfg.Cache.Path, logger)
			if err != nil {
				return err
			}
			defer cache.Close()
			removed, err := cache.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Removed %d cached %s\n", removed, pluralize(removed, "description", "descriptions"))
			return nil
		},
	}
}

func cacheFileExists(cfg *config.Config) bool {
	info, err := os.Stat(cfg.Cache.Path)
	return err == nil && !info.IsDir()
}

func pluralize(n int64, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
