package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// startXvfb runs a virtual display and waits for its socket. The returned
// func kills it.
func startXvfb(ctx context.Context, display string, log *slog.Logger) (func() error, error) {
	cmd := exec.Command("Xvfb", display, "-screen", "0", "1920x1080x24", "-ac", "-nolisten", "tcp")
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("browser: xvfb %s: %w", display, err)
	}
	stop := func() error {
		cmd.Process.Kill()
		cmd.Wait()
		log.Info("browser: xvfb stopped", "display", display)
		return nil
	}

	sock := "/tmp/.X11-unix/X" + strings.TrimPrefix(display, ":")
	deadline := time.NewTimer(5 * time.Second)
	defer deadline.Stop()
	poll := time.NewTicker(50 * time.Millisecond)
	defer poll.Stop()
	for {
		if _, err := os.Stat(sock); err == nil {
			log.Info("browser: xvfb ready", "display", display, "pid", cmd.Process.Pid)
			return stop, nil
		}
		select {
		case <-ctx.Done():
			stop()
			return nil, ctx.Err()
		case <-deadline.C:
			stop()
			return nil, fmt.Errorf("browser: xvfb %s: no socket at %s", display, sock)
		case <-poll.C:
		}
	}
}
