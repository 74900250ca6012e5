package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/procurekit/approval-engine/internal/application/service"
	"go.uber.org/zap"
)

// EscalationWorkerConfig holds configuration for the escalation worker
type EscalationWorkerConfig struct {
	ScanInterval time.Duration
	ScanTimeout  time.Duration
}

// DefaultEscalationWorkerConfig returns default configuration
func DefaultEscalationWorkerConfig() EscalationWorkerConfig {
	return EscalationWorkerConfig{
		ScanInterval: time.Minute,
		ScanTimeout:  30 * time.Second,
	}
}

// EscalationWorker periodically scans for overdue requests and escalates
// them. Each scan is a discrete batch, so an overlapping or repeated run
// finds nothing left to do.
type EscalationWorker struct {
	config      EscalationWorkerConfig
	escalations service.EscalationService
	logger      *zap.Logger

	mu             sync.RWMutex
	ctx            context.Context
	cancel         context.CancelFunc
	isRunning      bool
	escalatedCount int
	lastError      error
}

// NewEscalationWorker creates a new escalation worker
func NewEscalationWorker(config EscalationWorkerConfig, escalations service.EscalationService, logger *zap.Logger) *EscalationWorker {
	return &EscalationWorker{
		config:      config,
		escalations: escalations,
		logger:      logger,
	}
}

// Start begins the scan loop
func (w *EscalationWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return fmt.Errorf("escalation worker already running")
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.isRunning = true
	w.mu.Unlock()

	w.logger.Info("EscalationWorker started",
		zap.Duration("scan_interval", w.config.ScanInterval))

	go w.scanLoop()

	return nil
}

// Stop gracefully terminates the worker
func (w *EscalationWorker) Stop() error {
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

	w.logger.Info("EscalationWorker stopped",
		zap.Int("escalated_count", w.escalatedCount))

	return nil
}

// Name returns the worker name for identification
func (w *EscalationWorker) Name() string {
	return "EscalationWorker"
}

func (w *EscalationWorker) scanLoop() {
	ticker := time.NewTicker(w.config.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Debug("Escalation scan loop context cancelled")
			return

		case <-ticker.C:
			w.runScan()
		}
	}
}

func (w *EscalationWorker) runScan() {
	ctx, cancel := context.WithTimeout(w.ctx, w.config.ScanTimeout)
	defer cancel()

	escalated, err := w.escalations.ProcessEscalations(ctx)

	w.mu.Lock()
	w.lastError = err
	w.escalatedCount += len(escalated)
	w.mu.Unlock()

	if err != nil {
		w.logger.Error("Escalation scan failed", zap.Error(err))
		return
	}

	if len(escalated) > 0 {
		w.logger.Info("Escalation scan completed",
			zap.Int("escalated", len(escalated)))
	}
}
