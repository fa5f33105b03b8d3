package container

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/finadmin/budget-engine/internal/application/dispatcher"
	"github.com/finadmin/budget-engine/internal/application/port"
	"github.com/finadmin/budget-engine/internal/application/service"
	"github.com/finadmin/budget-engine/internal/domain/entity"
	"github.com/finadmin/budget-engine/internal/domain/event"
	"github.com/finadmin/budget-engine/internal/infrastructure/cache"
	"github.com/finadmin/budget-engine/internal/infrastructure/notify"
	"github.com/finadmin/budget-engine/internal/infrastructure/persistence/sqlite"
	"github.com/finadmin/budget-engine/internal/infrastructure/worker"
	"github.com/finadmin/budget-engine/migrations"
	"github.com/finadmin/budget-engine/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	SqlDB          *sql.DB
	TransactionMgr *sqlite.DB
}

// ProvideDatabase creates the database connection and transaction manager.
// Returns DatabaseBundle containing sql.DB and TransactionManager.
// Also runs the embedded schema migrations.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	sqlDB, err := database.Open(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	migrator := database.NewMigrator(sqlDB, logger)
	if err := migrator.RunMigrations(migrations.Files); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	db := sqlite.NewDB(sqlDB, logger)

	return &DatabaseBundle{
		SqlDB:          sqlDB,
		TransactionMgr: db,
	}, nil
}

// ProvideRepositories creates all repositories from a database handle.
// Returns RepositoryBundle containing all repository implementations.
func ProvideRepositories(db *sqlite.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Budget:      sqlite.NewBudgetRepository(db, logger),
		Category:    sqlite.NewCategoryRepository(db, logger),
		Transaction: sqlite.NewTransactionRepository(db, logger),
		Alert:       sqlite.NewAlertRepository(db, logger),
		Audit:       sqlite.NewAuditRepository(db, logger),
	}, nil
}

// ProvideCache creates the process-local read cache.
// Returns port.Cache implementation.
func ProvideCache(logger *zap.Logger) (port.Cache, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return cache.NewMemory(), nil
}

// ProvideDispatcher creates the event dispatcher.
// Returns dispatcher.Dispatcher implementation.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(&kvLogger{logger: logger}),
	), nil
}

// ProvideAlertNotifier creates the alert notifier and subscribes it to
// alert.raised events so raised alerts reach the operator channel.
// Returns port.AlertNotifier implementation.
func ProvideAlertNotifier(dsp dispatcher.Dispatcher, logger *zap.Logger) (port.AlertNotifier, error) {
	if dsp == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	notifier := notify.NewLogNotifier(logger)

	deliveryHandler := createAlertDeliveryHandler(notifier, logger)
	dsp.SubscribeNamed(event.TypeAlertRaised, "alert_notifier", deliveryHandler)

	return notifier, nil
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Cache      port.Cache
	CacheTTL   time.Duration
	Dispatcher dispatcher.Dispatcher
	Alerts     AlertsConfig
	Logger     *zap.Logger
}

// ProvideServices creates all application services.
// Returns ServiceBundle containing all service implementations.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Cache == nil {
		return nil, fmt.Errorf("cache is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	serviceLogger := &kvLogger{logger: deps.Logger}

	auditService := service.NewAuditService(
		deps.Repos.Audit,
		serviceLogger,
	)

	alertService := service.NewAlertService(
		deps.Repos.Category,
		deps.Repos.Transaction,
		deps.Repos.Alert,
		deps.Dispatcher,
		service.AlertConfig{
			PendingAge: deps.Alerts.PendingAge,
			PendingMax: deps.Alerts.PendingMax,
		},
		serviceLogger,
	)

	budgetService := service.NewBudgetService(
		deps.Repos.Budget,
		deps.Repos.Category,
		deps.TxManager,
		deps.Cache,
		deps.CacheTTL,
		auditService,
		deps.Dispatcher,
		serviceLogger,
	)

	transactionService := service.NewTransactionService(
		deps.Repos.Budget,
		deps.Repos.Category,
		deps.Repos.Transaction,
		deps.TxManager,
		deps.Cache,
		auditService,
		alertService,
		deps.Dispatcher,
		serviceLogger,
	)

	return &ServiceBundle{
		Budget:      budgetService,
		Transaction: transactionService,
		Alert:       alertService,
		Audit:       auditService,
	}, nil
}

// WorkerDeps holds dependencies required for creating workers.
type WorkerDeps struct {
	Alerts    service.AlertService
	WorkerCfg *WorkerConfig
	Logger    *zap.Logger
}

// ProvideWorkers creates and registers all background workers.
// Returns *worker.Manager with all workers registered but not started.
func ProvideWorkers(deps *WorkerDeps) (*worker.Manager, error) {
	if deps == nil {
		return nil, fmt.Errorf("worker dependencies are required")
	}
	if deps.Alerts == nil {
		return nil, fmt.Errorf("alert service is required")
	}
	if deps.WorkerCfg == nil {
		return nil, fmt.Errorf("worker config is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	manager := worker.NewManager(deps.Logger)

	scanCfg := worker.PendingScanConfig{
		ScanInterval: deps.WorkerCfg.PendingScanInterval,
	}
	scanWorker := worker.NewPendingScanWorker(scanCfg, deps.Alerts, deps.Logger)
	manager.Register(scanWorker)

	return manager, nil
}

// createAlertDeliveryHandler creates a handler that rebuilds the alert
// from an alert.raised event payload and hands it to the notifier.
// Delivery failures stay inside the dispatcher and never reach the
// mutation that raised the alert.
func createAlertDeliveryHandler(
	notifier port.AlertNotifier,
	logger *zap.Logger,
) func(context.Context, *event.Event) error {
	return func(ctx context.Context, evt *event.Event) error {
		if evt == nil {
			return fmt.Errorf("event cannot be nil")
		}

		alert := &entity.BudgetAlert{
			ID:           evt.GetPayloadInt("alert_id"),
			BudgetID:     evt.BudgetID,
			AlertType:    evt.GetPayloadString("alert_type"),
			Severity:     evt.GetPayloadString("severity"),
			Message:      evt.GetPayloadString("message"),
			Threshold:    evt.GetPayloadFloat("threshold"),
			CurrentValue: evt.GetPayloadFloat("current_value"),
			CreatedAt:    evt.Timestamp,
		}
		if _, ok := evt.Payload["category_id"]; ok {
			categoryID := evt.GetPayloadInt("category_id")
			alert.CategoryID = &categoryID
		}

		if err := notifier.Notify(ctx, alert); err != nil {
			logger.Warn("Alert delivery failed",
				zap.Int64("alert_id", alert.ID),
				zap.Error(err))
			return fmt.Errorf("deliver alert %d: %w", alert.ID, err)
		}

		return nil
	}
}
