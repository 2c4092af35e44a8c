// CLAUDE:SUMMARY CLI entry point for flagwatch: live watch, offline annotate, handle check/hash and the MCP stdio server.
// Command flagwatch marks block-listed handles on a social-media page.
//
// Usage:
//
//	flagwatch watch -c flagwatch.yaml          # annotate a live Chrome tab
//	flagwatch annotate saved.html > out.html   # one offline pass
//	flagwatch check @evil_bot @real_person     # membership against the list
//	flagwatch hash @evil_bot                   # print fingerprints
//	flagwatch mcp                              # MCP tools over stdio
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
