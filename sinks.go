package flagwatch

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/hazyhaar/flagwatch/internal/config"
	"github.com/hazyhaar/flagwatch/sink"
)

// BuildSinks creates the configured sinks. stdout is where the stdout
// sink writes. On error, sinks already opened are closed.
func BuildSinks(cfgs []config.SinkConfig, stdout io.Writer, logger *slog.Logger) ([]sink.Sink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var out []sink.Sink
	for i, c := range cfgs {
		var s sink.Sink
		switch c.Type {
		case "stdout":
			s = sink.NewStdout(stdout)
		case "webhook":
			s = sink.NewWebhook(c.URL, c.Queue,
				sink.WithWebhookRetries(c.Retries),
				sink.WithWebhookBatch(c.Batch, c.FlushInterval),
				sink.WithWebhookLogger(logger))
		case "sqlite":
			db, err := sink.OpenSQLite(c.Path)
			if err != nil {
				closeAll(out)
				return nil, fmt.Errorf("flagwatch: sinks[%d]: %w", i, err)
			}
			s = db
		default:
			closeAll(out)
			return nil, fmt.Errorf("flagwatch: sinks[%d]: unknown type %q", i, c.Type)
		}
		out = append(out, s)
	}
	return out, nil
}

func closeAll(sinks []sink.Sink) {
	for _, s := range sinks {
		s.Close()
	}
}
