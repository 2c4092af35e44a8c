package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/flagwatch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var urlFlag, listenFlag, remoteFlag string
	var intervalFlag time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Open the page in Chrome and annotate it until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config
			if urlFlag != "" {
				cfg.Page.URL = urlFlag
			}
			if listenFlag != "" {
				cfg.Listen = listenFlag
			}
			if remoteFlag != "" {
				cfg.Browser.Remote = remoteFlag
			}
			if intervalFlag > 0 {
				cfg.Scan.Interval = intervalFlag
			}
			logger := ctx.logger()

			sinks, err := flagwatch.BuildSinks(cfg.Sinks, cmd.OutOrStdout(), logger)
			if err != nil {
				return err
			}
			w, err := flagwatch.NewWatcher(cfg, logger, sinks...)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := w.Run(runCtx); err != nil && runCtx.Err() == nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&urlFlag, "url", "", "Page to annotate (default from config)")
	cmd.Flags().StringVar(&listenFlag, "listen", "", "Status server address, e.g. 127.0.0.1:8089")
	cmd.Flags().StringVar(&remoteFlag, "remote", "", "Attach to a running Chrome (DevTools URL or port)")
	cmd.Flags().DurationVar(&intervalFlag, "interval", 0, "Scan interval (default 1s)")
	return cmd
}
