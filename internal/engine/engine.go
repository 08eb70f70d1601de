package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/burrowhq/burrow/internal/audit"
	"github.com/burrowhq/burrow/internal/config"
	"github.com/burrowhq/burrow/internal/registry"
	"github.com/burrowhq/burrow/internal/store"
	dbsync "github.com/burrowhq/burrow/internal/sync"
	"github.com/burrowhq/burrow/pkg/encryption"
	"github.com/burrowhq/burrow/pkg/health"
	"github.com/burrowhq/burrow/pkg/logger"
)

// Engine owns the service's runtime: the embedded store, the connection
// registry, the sync orchestrator, and the schedule loop.
type Engine struct {
	config    *config.Config
	logger    *logger.Logger
	store     *store.Store
	service   *Service
	scheduler *dbsync.Scheduler
	health    *health.Checker
	state     struct {
		sync.Mutex
		isRunning         bool
		ongoingOperations int32
	}
	metrics struct {
		requestsProcessed int64
		errors            int64
	}
}

// NewEngine creates a stopped Engine.
func NewEngine(cfg *config.Config, log *logger.Logger) *Engine {
	return &Engine{
		config: cfg,
		logger: log,
		health: health.NewChecker(),
	}
}

// Start opens the store and wires the service components.
func (e *Engine) Start(ctx context.Context) error {
	e.state.Lock()
	defer e.state.Unlock()

	if e.state.isRunning {
		return fmt.Errorf("engine is already running")
	}

	s, err := store.Open(e.config.StorePath)
	if err != nil {
		return fmt.Errorf("failed to open store at %s: %w", e.config.StorePath, err)
	}
	if err := s.Bootstrap(ctx); err != nil {
		s.Close()
		return fmt.Errorf("failed to bootstrap store schema: %w", err)
	}
	e.store = s

	box := encryption.NewSecretBox(e.config.CipherSecret)
	sample := registry.NewStaticSampleProvider(e.config.Sample)
	recorder := audit.NewRecorder(s.Events(), nil, e.logger)
	reg := registry.New(s.Connections(), box, sample, e.config.DemoUserID, recorder)

	worker := dbsync.NewWorkerClient(e.config.Worker.BaseURL,
		time.Duration(e.config.Worker.TimeoutSeconds)*time.Second)
	provisioner := dbsync.NewEngineProvisioner(reg, e.config.Provision)
	orchestrator := dbsync.NewOrchestrator(s.SyncTasks(), s.SyncLogs(), reg,
		worker, provisioner, recorder, e.logger)

	e.scheduler = dbsync.NewScheduler(orchestrator, s.SyncTasks(), s.SyncLogs(), e.logger)
	if err := e.scheduler.Start(ctx); err != nil {
		s.Close()
		return fmt.Errorf("failed to start sync scheduler: %w", err)
	}

	e.service = NewService(reg, orchestrator, recorder, e, e.logger)
	e.state.isRunning = true

	e.logger.Info("Engine started, store at %s, worker at %s",
		e.config.StorePath, e.config.Worker.BaseURL)
	return nil
}

// Stop halts the scheduler and closes the store. In-flight operations are
// given a short window to drain.
func (e *Engine) Stop(ctx context.Context) error {
	e.state.Lock()
	defer e.state.Unlock()

	if !e.state.isRunning {
		return nil
	}
	e.state.isRunning = false

	if e.scheduler != nil {
		e.scheduler.Stop()
	}

	deadline := time.Now().Add(5 * time.Second)
	for atomic.LoadInt32(&e.state.ongoingOperations) > 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}

	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

// Service returns the operation surface. Nil until Start succeeds.
func (e *Engine) Service() *Service {
	return e.service
}

// CheckHealth reports whether the engine is running.
func (e *Engine) CheckHealth() error {
	e.state.Lock()
	defer e.state.Unlock()

	if !e.state.isRunning {
		return fmt.Errorf("service not initialized")
	}
	return nil
}

// ServiceHealth runs the engine and store checks and returns the rolled-up
// status plus the individual results.
func (e *Engine) ServiceHealth(ctx context.Context) (health.Status, []*health.Check) {
	e.health.RunCheck("engine", e.CheckHealth)
	e.health.RunCheck("store", func() error { return e.CheckStore(ctx) })
	return e.health.GetOverallStatus(), e.health.GetAllChecks()
}

// CheckStore pings the embedded store.
func (e *Engine) CheckStore(ctx context.Context) error {
	e.state.Lock()
	running := e.state.isRunning
	e.state.Unlock()

	if !running {
		return fmt.Errorf("service not initialized")
	}
	return e.store.Ping(ctx)
}

// GetMetrics returns operation counters.
func (e *Engine) GetMetrics() map[string]int64 {
	return map[string]int64{
		"requests_processed": atomic.LoadInt64(&e.metrics.requestsProcessed),
		"errors":             atomic.LoadInt64(&e.metrics.errors),
	}
}

// TrackOperation marks the start of one service operation.
func (e *Engine) TrackOperation() {
	atomic.AddInt32(&e.state.ongoingOperations, 1)
	atomic.AddInt64(&e.metrics.requestsProcessed, 1)
}

// UntrackOperation marks the end of one service operation.
func (e *Engine) UntrackOperation() {
	atomic.AddInt32(&e.state.ongoingOperations, -1)
}

// RecordError bumps the error counter.
func (e *Engine) RecordError() {
	atomic.AddInt64(&e.metrics.errors, 1)
}
