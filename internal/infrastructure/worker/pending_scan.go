package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/finadmin/budget-engine/internal/domain/entity"
)

// PendingEvaluator is the slice of the alert service the scan worker drives
type PendingEvaluator interface {
	EvaluatePendingApprovals(ctx context.Context) ([]*entity.BudgetAlert, error)
}

// PendingScanConfig holds configuration for the pending approval scanner
type PendingScanConfig struct {
	ScanInterval time.Duration
}

// DefaultPendingScanConfig returns default configuration
func DefaultPendingScanConfig() PendingScanConfig {
	return PendingScanConfig{
		ScanInterval: 10 * time.Minute,
	}
}

// PendingScanWorker periodically sweeps for transactions stuck in PENDING
// and raises approval backlog alerts through the alert service. The first
// sweep runs at startup so a restart does not delay detection by a full
// interval.
type PendingScanWorker struct {
	config    PendingScanConfig
	evaluator PendingEvaluator
	logger    *zap.Logger

	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	isRunning   bool
	lastScan    time.Time
	scanCount   int
	raisedCount int
	lastError   error
}

// NewPendingScanWorker creates a new pending approval scanner
func NewPendingScanWorker(config PendingScanConfig, evaluator PendingEvaluator, logger *zap.Logger) *PendingScanWorker {
	if config.ScanInterval <= 0 {
		config.ScanInterval = DefaultPendingScanConfig().ScanInterval
	}
	return &PendingScanWorker{
		config:    config,
		evaluator: evaluator,
		logger:    logger,
	}
}

// Start begins the worker scan loop
func (w *PendingScanWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return fmt.Errorf("pending scan worker already running")
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.isRunning = true
	w.mu.Unlock()

	w.logger.Info("PendingScanWorker started",
		zap.Duration("scan_interval", w.config.ScanInterval))

	go w.scanLoop()

	return nil
}

// Stop gracefully terminates the worker
func (w *PendingScanWorker) Stop() error {
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

	w.mu.RLock()
	defer w.mu.RUnlock()
	w.logger.Info("PendingScanWorker stopped",
		zap.Int("scan_count", w.scanCount),
		zap.Int("raised_count", w.raisedCount))

	return nil
}

// Name returns the worker name for identification
func (w *PendingScanWorker) Name() string {
	return "PendingScanWorker"
}

// scanLoop runs the periodic sweep in background
func (w *PendingScanWorker) scanLoop() {
	w.scan()

	ticker := time.NewTicker(w.config.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Debug("Scan loop context cancelled")
			return

		case <-ticker.C:
			w.scan()
		}
	}
}

// scan runs a single sweep and records the outcome
func (w *PendingScanWorker) scan() {
	ctx := w.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	raised, err := w.evaluator.EvaluatePendingApprovals(ctx)

	w.mu.Lock()
	w.lastScan = time.Now()
	w.scanCount++
	w.lastError = err
	w.raisedCount += len(raised)
	w.mu.Unlock()

	if err != nil {
		w.logger.Error("Pending approval scan failed", zap.Error(err))
		return
	}

	if len(raised) > 0 {
		w.logger.Info("Pending approval scan raised alerts",
			zap.Int("raised", len(raised)))
	} else {
		w.logger.Debug("Pending approval scan found no backlog")
	}
}
