package app

import (
	"context"

	"github.com/Uke-Messaging/uke-pallet/pkg/logger"
)

// Shutdown stops accepting requests, waits for in-flight work, then closes
// the ledger, sinks and store. The store stays open when handlers or a
// snapshot are still running once ctx expires.
func (a *App) Shutdown(ctx context.Context) error {
	logger.Info("shutdown_requested")
	a.state = "shutting_down"
	a.ready.Store(false)

	drained := true
	if a.srvFast != nil {
		if !waitFor(ctx, func() {
			if err := a.srvFast.Shutdown(); err != nil {
				logger.Error("shutdown_http_failed", "error", err)
			}
		}) {
			drained = false
			logger.Warn("shutdown_http_timeout", "error", ctx.Err())
		}
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.snaps != nil {
		if !waitFor(ctx, a.snaps.Stop) {
			drained = false
			logger.Warn("shutdown_snapshot_timeout", "error", ctx.Err())
		}
	}
	if a.ledger != nil {
		a.ledger.Close()
	}
	if a.gw != nil {
		a.gw.Close()
	}
	if a.events != nil {
		if !waitFor(ctx, func() {
			if err := a.events.Close(); err != nil {
				logger.Error("shutdown_sinks_failed", "error", err)
			}
		}) {
			logger.Warn("shutdown_sinks_timeout", "pending", a.events.Pending())
		}
	}

	var err error
	if a.st != nil {
		if drained {
			if err = a.st.Close(); err != nil {
				logger.Error("shutdown_store_failed", "error", err)
			}
		} else {
			logger.Warn("store_close_skipped", "reason", "work still in flight")
		}
	}
	a.state = "stopped"
	logger.Info("shutdown_complete")
	return err
}

// waitFor runs fn and reports whether it returned before ctx ended.
func waitFor(ctx context.Context, fn func()) bool {
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
