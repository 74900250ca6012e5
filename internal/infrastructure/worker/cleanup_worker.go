package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/procurekit/approval-engine/internal/application/service"
	"go.uber.org/zap"
)

// CleanupWorkerConfig holds configuration for the retention cleanup worker
type CleanupWorkerConfig struct {
	RunInterval time.Duration
	RunTimeout  time.Duration

	// Retention is the minimum age of a terminal request before it is
	// removed.
	Retention time.Duration
}

// DefaultCleanupWorkerConfig returns default configuration
func DefaultCleanupWorkerConfig() CleanupWorkerConfig {
	return CleanupWorkerConfig{
		RunInterval: 24 * time.Hour,
		RunTimeout:  5 * time.Minute,
		Retention:   90 * 24 * time.Hour,
	}
}

// CleanupWorker removes terminal requests past their retention period.
// Open requests are never touched regardless of age.
type CleanupWorker struct {
	config   CleanupWorkerConfig
	requests service.RequestService
	logger   *zap.Logger

	mu           sync.RWMutex
	ctx          context.Context
	cancel       context.CancelFunc
	isRunning    bool
	deletedTotal int64
}

// NewCleanupWorker creates a new cleanup worker
func NewCleanupWorker(config CleanupWorkerConfig, requests service.RequestService, logger *zap.Logger) *CleanupWorker {
	return &CleanupWorker{
		config:   config,
		requests: requests,
		logger:   logger,
	}
}

// Start begins the cleanup loop
func (w *CleanupWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return fmt.Errorf("cleanup worker already running")
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.isRunning = true
	w.mu.Unlock()

	w.logger.Info("CleanupWorker started",
		zap.Duration("run_interval", w.config.RunInterval),
		zap.Duration("retention", w.config.Retention))

	go w.runLoop()

	return nil
}

// Stop gracefully terminates the worker
func (w *CleanupWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}

	w.isRunning = false
	w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}

	w.logger.Info("CleanupWorker stopped", zap.Int64("deleted_total", w.deletedTotal))

	return nil
}

// Name returns the worker name for identification
func (w *CleanupWorker) Name() string {
	return "CleanupWorker"
}

func (w *CleanupWorker) runLoop() {
	ticker := time.NewTicker(w.config.RunInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Debug("Cleanup loop context cancelled")
			return

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(w.ctx, w.config.RunTimeout)
			deleted, err := w.requests.Cleanup(ctx, w.config.Retention)
			cancel()

			if err != nil {
				w.logger.Error("Retention cleanup failed", zap.Error(err))
				continue
			}

			w.mu.Lock()
			w.deletedTotal += deleted
			w.mu.Unlock()
		}
	}
}
