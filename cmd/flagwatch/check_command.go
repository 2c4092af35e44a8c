package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/flagwatch"
	"github.com/hazyhaar/flagwatch/identity"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check HANDLE...",
		Short: "Report whether handles are on the block-list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := ctx.logger()
			loader, set := ctx.loadList(cmd.Context(), logger)
			svc := flagwatch.NewService(loader.Source(), set)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "HANDLE\tFINGERPRINT\tLISTED")
			var bad int
			for _, r := range svc.Check(args...) {
				if r.Error != "" {
					bad++
					fmt.Fprintf(tw, "%s\t-\t%s\n", r.Input, r.Error)
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%t\n", r.Identity, r.Fingerprint, r.Listed)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if bad > 0 {
				return fmt.Errorf("check: %d malformed handle(s)", bad)
			}
			return nil
		},
	}
}

func newHashCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash HANDLE...",
		Short: "Print the fingerprint of each handle, one per line",
		Long:  "Prints lines in the block-list format, so the output can be appended to a list file.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, h := range args {
				id, err := flagwatch.ParseHandle(h)
				if err != nil {
					return fmt.Errorf("hash %q: %w", h, err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), identity.Of(id))
			}
			return nil
		},
	}
}
