package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/hazyhaar/flagwatch/blocklist"
	"github.com/hazyhaar/flagwatch/internal/config"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string
	listFlag     *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	// stderr receives logs; tests replace it.
	stderr io.Writer
}

func newCommandContext(configFlag, logLevelFlag, listFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		listFlag:     listFlag,
		stderr:       os.Stderr,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		path := strings.TrimSpace(*c.configFlag)
		if path == "" {
			c.config = config.Default()
		} else {
			c.config, c.configErr = config.LoadFile(path)
			if c.configErr != nil {
				return
			}
		}
		if list := strings.TrimSpace(*c.listFlag); list != "" {
			c.config.Blocklist.Source = list
		}
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(*c.logLevelFlag) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(c.stderr, &slog.HandlerOptions{Level: level}))
}

// loadList performs the session's single block-list retrieval.
func (c *commandContext) loadList(ctx context.Context, logger *slog.Logger) (*blocklist.Loader, *blocklist.Set) {
	cfg := c.config
	l := blocklist.NewLoader(cfg.Blocklist.Source,
		blocklist.WithMaxBytes(cfg.Blocklist.MaxBytes),
		blocklist.WithUserAgent(cfg.Blocklist.UserAgent),
		blocklist.WithLogger(logger))
	ctx, cancel := context.WithTimeout(ctx, cfg.Blocklist.Timeout)
	defer cancel()
	return l, l.Load(ctx)
}
