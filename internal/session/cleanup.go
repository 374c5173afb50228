package session

import (
	"context"
	"time"

	"github.com/firefly-engineering/firefly-forage/packages/bstest/internal/logging"
)

// cleanupTimeout bounds teardown after the session context is cancelled.
const cleanupTimeout = 30 * time.Second

// cleanup releases external resources. It runs at most once per session
// and never returns an error: failures are reported as warnings.
func (o *Orchestrator) cleanup(ctx context.Context, outcome *Outcome) {
	o.cleanupOnce.Do(func() {
		o.transition(StateCleanup)

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		defer cancel()

		if o.sctx != nil && !o.sctx.External() {
			logging.Debug("killing simulated target", "name", o.sctx.SimName)
			if err := o.app.Runtime.Kill(ctx, o.sctx.SimName); err != nil {
				logging.Warn("cleanup: kill simulated target", "name", o.sctx.SimName, "error", err)
				o.sink.Warning("failed to stop simulated target %s: %v", o.sctx.SimName, err)
			}
		}

		// Only succeeds when no capture was written.
		if o.captureDirCreated {
			if err := o.app.FS.Remove(o.sctx.CaptureDir); err != nil {
				logging.Debug("capture directory kept", "path", o.sctx.CaptureDir, "error", err)
			}
		}

		o.report(*outcome)

		if o.sink != nil {
			if err := o.sink.Close(); err != nil {
				logging.Warn("cleanup: close output", "path", o.sink.Path(), "error", err)
			}
		}
	})
}
