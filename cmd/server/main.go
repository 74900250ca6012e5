package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/procurekit/approval-engine/internal/application/dispatcher"
	"github.com/procurekit/approval-engine/internal/application/port"
	"github.com/procurekit/approval-engine/internal/application/service"
	"github.com/procurekit/approval-engine/internal/config"
	"github.com/procurekit/approval-engine/internal/infrastructure/audit"
	"github.com/procurekit/approval-engine/internal/infrastructure/clock"
	"github.com/procurekit/approval-engine/internal/infrastructure/notification"
	"github.com/procurekit/approval-engine/internal/infrastructure/persistence/repository"
	"github.com/procurekit/approval-engine/internal/infrastructure/persistence/sqlite"
	"github.com/procurekit/approval-engine/internal/infrastructure/worker"
	httpadapter "github.com/procurekit/approval-engine/internal/interfaces/http"
	"github.com/procurekit/approval-engine/migrations"
	"github.com/procurekit/approval-engine/pkg/database"
	"github.com/procurekit/approval-engine/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	// Load .env if present; real environment wins.
	_ = gotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting purchase-order approval engine",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	// Database
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		BusyTimeout:     cfg.Database.BusyTimeout,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(migrations.FS); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Repositories share the transactional wrapper so multi-statement
	// writes commit atomically.
	txDB := sqlite.NewDB(db.DB, logger)
	requestRepo := repository.NewRequestRepository(db.DB, logger)
	escalationRepo := repository.NewEscalationRepository(db.DB, logger)
	auditRepo := repository.NewAuditLogRepository(db.DB, logger)

	// Configuration provider and clock
	provider := config.NewProvider(cfg)
	sysClock := clock.New()

	// Sinks
	notifier := notification.NewMultiSink(buildSinks(cfg, logger)...)
	auditSink := audit.NewRepositorySink(auditRepo, logger)

	// Event dispatcher with the sinks bridged onto lifecycle events
	kvLogger := utils.NewKVLogger(logger)
	events := dispatcher.NewDispatcher(dispatcher.WithLogger(kvLogger))
	service.RegisterSinkBridge(events, notifier, auditSink)

	// Application services share one keyed mutex so mutations of a request
	// id are serialized across the decision and escalation paths.
	locks := service.NewKeyedMutex()
	requests := service.NewRequestService(requestRepo, escalationRepo, provider, sysClock, events, locks, kvLogger)
	escalations := service.NewEscalationService(requestRepo, escalationRepo, txDB, provider, notifier, sysClock, events, locks, kvLogger)
	bulk := service.NewBulkService(requests, cfg.Engine.BulkConcurrency, kvLogger)
	stats := service.NewStatsService(requestRepo, kvLogger)

	// Background workers
	manager := worker.NewWorkerManager(logger)
	manager.Register(worker.NewEscalationWorker(worker.EscalationWorkerConfig{
		ScanInterval: cfg.Engine.EscalationScanInterval,
		ScanTimeout:  cfg.Engine.EscalationScanInterval,
	}, escalations, logger))
	manager.Register(worker.NewReminderWorker(worker.ReminderWorkerConfig{
		SendInterval: cfg.Engine.ReminderInterval,
		SendTimeout:  cfg.Engine.ReminderInterval,
	}, escalations, logger))
	manager.Register(worker.NewCleanupWorker(worker.CleanupWorkerConfig{
		RunInterval: cfg.Engine.CleanupInterval,
		RunTimeout:  cfg.Engine.CleanupInterval,
		Retention:   cfg.Engine.Retention,
	}, requests, logger))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := manager.StartAll(ctx); err != nil {
		logger.Fatal("Failed to start workers", zap.Error(err))
	}

	// HTTP server blocks until the context is cancelled.
	server := httpadapter.NewServer(httpadapter.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, requests, escalations, bulk, stats, auditRepo, kvLogger)

	if err := server.Start(ctx); err != nil {
		logger.Error("HTTP server terminated with error", zap.Error(err))
	}

	// Shutdown: stop workers, then drain in-flight event handlers.
	if err := manager.StopAll(); err != nil {
		logger.Error("Worker shutdown reported errors", zap.Error(err))
	}
	if err := events.Close(); err != nil {
		logger.Error("Event dispatcher close reported errors", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}

// buildSinks assembles the notification fan-out. The log sink is always
// present; the webhook sink joins when an endpoint is configured.
func buildSinks(cfg *config.Config, logger *zap.Logger) []port.NotificationSink {
	sinks := []port.NotificationSink{notification.NewLogSink(logger)}
	if cfg.Notification.WebhookURL != "" {
		sinks = append(sinks, notification.NewWebhookSink(
			cfg.Notification.WebhookURL,
			cfg.Notification.WebhookSecret,
			cfg.Notification.WebhookTimeout,
			logger,
		))
	}
	return sinks
}
