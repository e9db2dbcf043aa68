package worker

import (
	"context"
	"sync"
	"time"

	"github.com/kwachapay/emi-platform/internal/observability"
	"github.com/kwachapay/emi-platform/internal/service"
	"go.uber.org/zap"
)

// ComplianceWorker generates the daily compliance report snapshot.
type ComplianceWorker struct {
	svc      *service.ComplianceService
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewComplianceWorker constructs a worker with a default daily interval.
func NewComplianceWorker(svc *service.ComplianceService) *ComplianceWorker {
	return &ComplianceWorker{
		svc:      svc,
		interval: 24 * time.Hour,
		stopCh:   make(chan struct{}),
	}
}

// WithInterval updates the run interval.
func (w *ComplianceWorker) WithInterval(interval time.Duration) *ComplianceWorker {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// Start blocks and generates reports at the configured interval.
func (w *ComplianceWorker) Start(ctx context.Context) {
	zap.L().Info("compliance worker starting", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("compliance worker context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("compliance worker stop signal received")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// Stop stops the running worker loop.
func (w *ComplianceWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run starts the worker in a goroutine and returns a stop function.
func (w *ComplianceWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

func (w *ComplianceWorker) runOnce(ctx context.Context) {
	if _, err := w.svc.GenerateDailyReport(ctx); err != nil {
		observability.IncrementWorkerRun("compliance", "failed")
		zap.L().Error("compliance report run failed", zap.Error(err))
		return
	}
	observability.IncrementWorkerRun("compliance", "success")
}
