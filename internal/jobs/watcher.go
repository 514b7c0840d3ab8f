package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/adviser-fees/internal/metrics"
)

// Scanner runs one pass over an input source.
type Scanner interface {
	ProcessDir(ctx context.Context) (ScanSummary, error)
}

// Watcher re-scans the input directory on an interval.
type Watcher struct {
	logger   *zap.Logger
	scanner  Scanner
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewWatcher constructs a background job that scans every interval.
func NewWatcher(logger *zap.Logger, scanner Scanner, interval time.Duration) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		logger:   logger,
		scanner:  scanner,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start scans once immediately, then on every tick until stopped.
func (w *Watcher) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("watcher.started", zap.Duration("interval", w.interval))
	w.runOnce(ctx)

	for {
		select {
		case <-ticker.C:
			w.runOnce(ctx)
		case <-w.stopCh:
			w.logger.Info("watcher.stopped", zap.String("reason", "manual stop"))
			return
		case <-ctx.Done():
			w.logger.Info("watcher.stopped", zap.String("reason", "context canceled"))
			return
		}
	}
}

// Stop halts the watcher. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

func (w *Watcher) runOnce(ctx context.Context) {
	start := time.Now()
	if _, err := w.scanner.ProcessDir(ctx); err != nil {
		if ctx.Err() == nil {
			w.logger.Error("watcher.scan_failed", zap.Error(err))
			metrics.IncError("watcher", "scan_failed")
		}
		return
	}
	metrics.SetLastScan("watcher", start)
}
