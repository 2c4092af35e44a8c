package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/flagwatch"
	"github.com/hazyhaar/flagwatch/engine"
	"github.com/hazyhaar/flagwatch/sink"
)

func newAnnotateCommand(ctx *commandContext) *cobra.Command {
	var outFlag string

	cmd := &cobra.Command{
		Use:   "annotate FILE",
		Short: "Annotate a saved HTML page once and print the result",
		Long:  "Runs one scan over a saved page (\"-\" reads stdin) and writes the annotated HTML. Annotation events go to the configured sinks; a stdout sink writes to stderr here.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config
			logger := ctx.logger()

			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("annotate: %w", err)
				}
				defer f.Close()
				in = f
			}

			var out io.Writer = cmd.OutOrStdout()
			if outFlag != "" {
				f, err := os.Create(outFlag)
				if err != nil {
					return fmt.Errorf("annotate: %w", err)
				}
				defer f.Close()
				out = f
			}

			sinks, err := flagwatch.BuildSinks(cfg.Sinks, cmd.ErrOrStderr(), logger)
			if err != nil {
				return err
			}
			router := sink.NewRouter(logger, sinks...)
			defer router.Close()

			loader, set := ctx.loadList(cmd.Context(), logger)
			st, err := flagwatch.Annotate(cmd.Context(), in, out, set, engine.Options{
				Workers:    cfg.Scan.Workers,
				QueueSize:  cfg.Scan.QueueSize,
				LedgerSize: cfg.Scan.LedgerSize,
				Markup:     cfg.Markup,
				Label:      cfg.Label,
				Sink:       router,
				PageURL:    func() string { return args[0] },
				Logger:     logger,
			})
			if err != nil {
				return err
			}
			logger.Info("annotate: done",
				"source", loader.Source(),
				"set_size", st.SetSize,
				"annotated", st.Annotator.Annotated,
				"matched", st.Matcher.Matched)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outFlag, "out", "o", "", "Write to a file instead of stdout")
	return cmd
}
