package worker

import (
	"context"
	"sync"
	"time"

	"github.com/kwachapay/emi-platform/internal/observability"
	"github.com/kwachapay/emi-platform/internal/service"
	"go.uber.org/zap"
)

// ExpiryWorker sweeps pending transactions whose expiry has passed.
// Safe for concurrent instances thanks to FOR UPDATE SKIP LOCKED.
type ExpiryWorker struct {
	txSvc        *service.TransactionService
	pollInterval time.Duration
	batchSize    int32
	stopCh       chan struct{}
	stopOnce     sync.Once
}

// NewExpiryWorker constructs a worker with default polling settings.
func NewExpiryWorker(txSvc *service.TransactionService) *ExpiryWorker {
	return &ExpiryWorker{
		txSvc:        txSvc,
		pollInterval: 30 * time.Second,
		batchSize:    100,
		stopCh:       make(chan struct{}),
	}
}

// WithPollInterval sets the poll interval for the worker.
func (w *ExpiryWorker) WithPollInterval(interval time.Duration) *ExpiryWorker {
	if interval > 0 {
		w.pollInterval = interval
	}
	return w
}

// WithBatchSize sets the batch size for the worker.
func (w *ExpiryWorker) WithBatchSize(size int32) *ExpiryWorker {
	if size > 0 {
		w.batchSize = size
	}
	return w
}

// Start blocks and sweeps at the configured interval.
func (w *ExpiryWorker) Start(ctx context.Context) {
	zap.L().Info("expiry worker starting", zap.Duration("interval", w.pollInterval), zap.Int32("batch", w.batchSize))
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("expiry worker context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("expiry worker stop signal received")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// Stop stops the running worker loop.
func (w *ExpiryWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}

// Run starts the worker in a goroutine and returns a stop function.
func (w *ExpiryWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

func (w *ExpiryWorker) runOnce(ctx context.Context) {
	if _, err := w.txSvc.ExpireOverdue(ctx, w.batchSize); err != nil {
		observability.IncrementWorkerRun("expiry", "failed")
		zap.L().Error("expiry sweep failed", zap.Error(err))
		return
	}
	observability.IncrementWorkerRun("expiry", "success")
}
