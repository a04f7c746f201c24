package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-engine/internal/service"
)

// SweeperWorker drives the breach/escalation sweep on a fixed interval.
// Stopping never leaves a half-applied scan behind: every per-ticket write
// inside the sweep is atomic on its own, so the worker simply does not start
// another pass.
type SweeperWorker struct {
	sweeper    *service.SweeperService
	interval   time.Duration
	runAtStart bool
	logger     *zap.Logger
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewSweeperWorker constructs the worker.
func NewSweeperWorker(sweeper *service.SweeperService, interval time.Duration, runAtStart bool, logger *zap.Logger) *SweeperWorker {
	return &SweeperWorker{
		sweeper:    sweeper,
		interval:   interval,
		runAtStart: runAtStart,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Start launches the sweep loop.
func (w *SweeperWorker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	go func() {
		defer close(w.done)

		if w.runAtStart {
			w.runOnce(ctx)
		}

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.runOnce(ctx)
			}
		}
	}()

	w.logger.Info("sweeper started", zap.Duration("interval", w.interval))
}

// Stop cancels the loop and waits for the in-flight pass to finish.
func (w *SweeperWorker) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
	w.logger.Info("sweeper stopped")
}

func (w *SweeperWorker) runOnce(ctx context.Context) {
	if _, err := w.sweeper.RunOnce(ctx); err != nil {
		w.logger.Error("sweep pass failed", zap.Error(err))
	}
}
