package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/procurekit/approval-engine/internal/application/service"
	"go.uber.org/zap"
)

// ReminderWorkerConfig holds configuration for the reminder worker
type ReminderWorkerConfig struct {
	SendInterval time.Duration
	SendTimeout  time.Duration
}

// DefaultReminderWorkerConfig returns default configuration
func DefaultReminderWorkerConfig() ReminderWorkerConfig {
	return ReminderWorkerConfig{
		SendInterval: time.Hour,
		SendTimeout:  time.Minute,
	}
}

// ReminderWorker periodically nudges threshold approvers about overdue
// pending requests that have not escalated yet.
type ReminderWorker struct {
	config      ReminderWorkerConfig
	escalations service.EscalationService
	logger      *zap.Logger

	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	isRunning bool
	sentCount int
}

// NewReminderWorker creates a new reminder worker
func NewReminderWorker(config ReminderWorkerConfig, escalations service.EscalationService, logger *zap.Logger) *ReminderWorker {
	return &ReminderWorker{
		config:      config,
		escalations: escalations,
		logger:      logger,
	}
}

// Start begins the send loop
func (w *ReminderWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return fmt.Errorf("reminder worker already running")
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.isRunning = true
	w.mu.Unlock()

	w.logger.Info("ReminderWorker started",
		zap.Duration("send_interval", w.config.SendInterval))

	go w.sendLoop()

	return nil
}

// Stop gracefully terminates the worker
func (w *ReminderWorker) Stop() error {
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

	w.logger.Info("ReminderWorker stopped", zap.Int("sent_count", w.sentCount))

	return nil
}

// Name returns the worker name for identification
func (w *ReminderWorker) Name() string {
	return "ReminderWorker"
}

func (w *ReminderWorker) sendLoop() {
	ticker := time.NewTicker(w.config.SendInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Debug("Reminder send loop context cancelled")
			return

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(w.ctx, w.config.SendTimeout)
			sent, err := w.escalations.SendOverdueReminders(ctx)
			cancel()

			if err != nil {
				w.logger.Error("Failed to send overdue reminders", zap.Error(err))
				continue
			}

			w.mu.Lock()
			w.sentCount += sent
			w.mu.Unlock()

			if sent > 0 {
				w.logger.Info("Overdue reminders sent", zap.Int("count", sent))
			}
		}
	}
}
