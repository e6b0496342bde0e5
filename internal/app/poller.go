package app

import (
	"context"
	"time"

	"github.com/five82/remedit/internal/logging"
	"github.com/five82/remedit/internal/workspace"
)

const maxBackoff = 30 * time.Minute

// calculateBackoff doubles base for every consecutive failed round, capped
// at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

// StartPoller launches a background goroutine that refreshes every endpoint
// listing. A non-positive interval disables polling. It returns immediately.
func StartPoller(ctx context.Context, ws *workspace.Workspace, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		failures := 0
		timer := time.NewTimer(interval)
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
			if refresh(ctx, ws) {
				failures = 0
			} else {
				failures++
			}
			timer.Reset(calculateBackoff(failures, interval))
		}
	}()
}

// refresh reports false only when every endpoint failed, which points at
// the network rather than individual servers.
func refresh(ctx context.Context, ws *workspace.Workspace) bool {
	results, err := ws.RefreshAll(ctx)
	if err == nil {
		return true
	}
	if ctx.Err() != nil {
		return true
	}
	logging.Warn("background refresh failed",
		logging.Int("ok", len(results)),
		logging.Err(err))
	return len(results) > 0
}
