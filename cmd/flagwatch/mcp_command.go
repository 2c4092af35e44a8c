package main

import (
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/flagwatch"
	"github.com/hazyhaar/flagwatch/sink"
)

func newMCPCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the flagwatch MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := ctx.logger()
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			loader, set := ctx.loadList(runCtx, logger)
			svc := flagwatch.NewService(loader.Source(), set)

			// flagwatch_recent reads what a watch session recorded.
			for _, c := range ctx.config.Sinks {
				if c.Type != "sqlite" {
					continue
				}
				db, err := sink.OpenSQLite(c.Path)
				if err != nil {
					return err
				}
				defer db.Close()
				svc.UseSinks(nil, db)
				break
			}

			srv := mcp.NewServer(&mcp.Implementation{Name: "flagwatch", Version: "1.0.0"}, nil)
			svc.RegisterMCP(srv, logger)

			logger.Info("mcp: serving on stdio", "set_size", set.Len())
			if err := srv.Run(runCtx, &mcp.StdioTransport{}); err != nil && runCtx.Err() == nil {
				return err
			}
			return nil
		},
	}
}
