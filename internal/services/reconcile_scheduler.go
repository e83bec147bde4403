package services

import (
	"context"
	"logistics-route-service/internal/domain"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Reconciler is one reconciliation pass.
type Reconciler interface {
	Run(ctx context.Context) (*domain.ReconcileReport, error)
}

type SchedulerConfig struct {
	Interval time.Duration
	// RunOnStart runs a pass immediately instead of waiting for the first tick.
	RunOnStart bool
}

// ReconcileScheduler runs the reconciler at a fixed interval. Passes never
// overlap within the process.
type ReconcileScheduler struct {
	config     SchedulerConfig
	reconciler Reconciler
	logger     *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	runMu     sync.Mutex
	isRunning bool
}

func NewReconcileScheduler(config SchedulerConfig, reconciler Reconciler, logger *zap.Logger) *ReconcileScheduler {
	if config.Interval <= 0 {
		config.Interval = 180 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconcileScheduler{config: config, reconciler: reconciler, logger: logger}
}

func (s *ReconcileScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.runLoop(ctx)

	s.logger.Info("reconcile scheduler started", zap.Duration("interval", s.config.Interval))
	return nil
}

// Stop cancels the loop, including a pass in flight, and waits for it to end.
func (s *ReconcileScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("reconcile scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce runs a single pass, waiting for any pass already in progress.
func (s *ReconcileScheduler) RunOnce(ctx context.Context) (*domain.ReconcileReport, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.reconciler.Run(ctx)
}

func (s *ReconcileScheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	if s.config.RunOnStart {
		s.tick(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *ReconcileScheduler) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("scheduled reconciliation failed", zap.Error(err))
	}
}
