package main

import (
	"github.com/spf13/cobra"
)

type runFlags struct {
	inDir   string
	apply   bool
	workers int
	noCache bool
}

func newRootCommand() *cobra.Command {
	var configFlag string
	var jsonFlag bool
	var flags runFlags

	ctx := newCommandContext(&configFlag, &jsonFlag)

	rootCmd := &cobra.Command{
		Use:   "picname",
		Short: "Rename images after what a vision model sees in them",
		Long: `picname asks a vision-language model to describe every image in a
directory and renames each file after its description.

By default nothing is renamed: picname prints the plan. Pass --apply (or set
rename.mode = "apply") to rename files.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRename(cmd, ctx, flags)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Print machine-readable JSON")

	rootCmd.Flags().StringVarP(&flags.inDir, "in-dir", "i", "", "Directory of images to rename (default paths.image_dir)")
	rootCmd.Flags().BoolVar(&flags.apply, "apply", false, "Rename files instead of only printing the plan")
	rootCmd.Flags().IntVarP(&flags.workers, "workers", "w", 0, "Files described concurrently (default rename.workers)")
	rootCmd.Flags().BoolVar(&flags.noCache, "no-cache", false, "Ignore the description cache for this run")

	rootCmd.AddCommand(newCheckCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newCacheCommand(ctx))

	return rootCmd
}
