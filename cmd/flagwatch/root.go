package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var logLevelFlag string
	var listFlag string

	ctx := newCommandContext(&configFlag, &logLevelFlag, &listFlag)

	rootCmd := &cobra.Command{
		Use:           "flagwatch",
		Short:         "Mark block-listed handles on a live page",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "hash" {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&listFlag, "list", "", "Block-list source (URL, file:// URL or path); overrides the config")

	rootCmd.AddCommand(newWatchCommand(ctx))
	rootCmd.AddCommand(newAnnotateCommand(ctx))
	rootCmd.AddCommand(newCheckCommand(ctx))
	rootCmd.AddCommand(newHashCommand())
	rootCmd.AddCommand(newMCPCommand(ctx))

	return rootCmd
}
