package app

import (
	"context"
	"log/slog"
	"time"
)

// runPipeline is the camera loop. Each tick it reads one frame, drops it if
// it looks the same as the last kept frame, and otherwise feeds it to the
// current session. Errors are logged and the loop carries on with the next
// frame; it exits when stop is closed or ctx is done.
func (a *App) runPipeline(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(time.Second / time.Duration(a.config.FPS))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !a.IsEnabled() {
				continue
			}
			a.tick(ctx)
		}
	}
}

func (a *App) tick(ctx context.Context) {
	f, err := a.config.Camera.ReadFrame()
	if err != nil {
		slog.Warn("error reading frame", "error", err)
		return
	}

	a.mu.Lock()
	a.latest = f
	a.mu.Unlock()

	if !a.dedupe.Keep(f) {
		return
	}

	ev, err := a.ProcessFrame(ctx, f)
	if err != nil {
		slog.Error("error processing frame", "session", ev.SessionID, "error", err)
		return
	}
	if ev.Decision.Accepted {
		slog.Info("frame accepted", "session", ev.SessionID, "seq", ev.Seq, "score", ev.Score)
	} else {
		slog.Debug("frame rejected", "session", ev.SessionID, "seq", ev.Seq, "reason", ev.Decision.Reason)
	}
}
