package engine

import (
	"context"
	"time"

	"github.com/burrowhq/burrow/internal/audit"
	"github.com/burrowhq/burrow/internal/database"
	"github.com/burrowhq/burrow/internal/registry"
	"github.com/burrowhq/burrow/internal/store"
	dbsync "github.com/burrowhq/burrow/internal/sync"
	"github.com/burrowhq/burrow/pkg/encryption"
	"github.com/burrowhq/burrow/pkg/logger"
)

// OperationTracker counts in-flight operations and errors. The Engine
// implements it; tests may pass nil.
type OperationTracker interface {
	TrackOperation()
	UntrackOperation()
	RecordError()
}

// Service is the operation surface consumed by the routing layer. Every
// engine-touching operation opens its own session and closes it before
// returning.
type Service struct {
	registry     *registry.Registry
	orchestrator *dbsync.Orchestrator
	recorder     *audit.Recorder
	tracker      OperationTracker
	logger       *logger.Logger
}

// NewService creates a Service.
func NewService(reg *registry.Registry, orchestrator *dbsync.Orchestrator,
	recorder *audit.Recorder, tracker OperationTracker, log *logger.Logger) *Service {
	return &Service{
		registry:     reg,
		orchestrator: orchestrator,
		recorder:     recorder,
		tracker:      tracker,
		logger:       log,
	}
}

func (s *Service) begin() func(err error) {
	if s.tracker == nil {
		return func(error) {}
	}
	s.tracker.TrackOperation()
	return func(err error) {
		if err != nil {
			s.tracker.RecordError()
		}
		s.tracker.UntrackOperation()
	}
}

// withSession resolves a connection, opens a session against it, and
// guarantees teardown on every exit path.
func (s *Service) withSession(ctx context.Context, connectionID, ownerUserID string,
	timeout time.Duration, fn func(session database.Session) error) error {
	cfg, record, err := s.registry.DialConfig(ctx, connectionID, ownerUserID, timeout)
	if err != nil {
		return err
	}

	session, err := database.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer session.Close()

	s.registry.TouchLastConnected(ctx, record)
	return fn(session)
}

// CreateConnection registers a new connection.
func (s *Service) CreateConnection(ctx context.Context, ownerUserID string, req registry.ConnectionRequest) (record *store.ConnectionRecord, err error) {
	done := s.begin()
	defer func() { done(err) }()
	record, err = s.registry.Create(ctx, ownerUserID, req)
	return record, err
}

// GetConnection returns one sanitized connection.
func (s *Service) GetConnection(ctx context.Context, id, ownerUserID string) (*store.ConnectionRecord, error) {
	return s.registry.Get(ctx, id, ownerUserID)
}

// ListConnections returns the caller's sanitized connections, sample
// included per the registry's visibility rules.
func (s *Service) ListConnections(ctx context.Context, ownerUserID string) ([]*store.ConnectionRecord, error) {
	return s.registry.List(ctx, ownerUserID)
}

// UpdateConnection modifies a connection.
func (s *Service) UpdateConnection(ctx context.Context, id, ownerUserID string, req registry.ConnectionRequest) (record *store.ConnectionRecord, err error) {
	done := s.begin()
	defer func() { done(err) }()
	record, err = s.registry.Update(ctx, id, ownerUserID, req)
	return record, err
}

// DeleteConnection removes a connection; dependent sync tasks cascade.
func (s *Service) DeleteConnection(ctx context.Context, id, ownerUserID string) (err error) {
	done := s.begin()
	defer func() { done(err) }()
	err = s.registry.Delete(ctx, id, ownerUserID)
	return err
}

// RecentEvents returns the caller's latest audit entries.
func (s *Service) RecentEvents(ctx context.Context, ownerUserID string, limit int) ([]*store.EventLogEntry, error) {
	return s.recorder.Recent(ctx, ownerUserID, limit)
}

// HealthStatus is the outcome of probing one connection.
type HealthStatus struct {
	Healthy   bool   `json:"healthy"`
	Message   string `json:"message,omitempty"`
	Warning   string `json:"warning,omitempty"`
	LatencyMS int64  `json:"latencyMs"`
}

// Health probes a connection with the short diagnostic timeout. An
// unreachable engine or an undecryptable credential is a degraded result,
// not an operation error; only a missing record errors.
func (s *Service) Health(ctx context.Context, id, ownerUserID string) (*HealthStatus, error) {
	cfg, record, err := s.registry.DialConfig(ctx, id, ownerUserID, database.ProbeConnectTimeout)
	if err != nil {
		if encryption.IsDecryptionError(err) {
			return &HealthStatus{
				Healthy: false,
				Warning: "stored credentials cannot be decrypted; re-enter the password",
			}, nil
		}
		return nil, err
	}

	start := time.Now()
	session, err := database.Open(ctx, cfg)
	if err != nil {
		return &HealthStatus{Healthy: false, Message: err.Error()}, nil
	}
	defer session.Close()

	if err := session.Ping(ctx); err != nil {
		return &HealthStatus{Healthy: false, Message: err.Error()}, nil
	}

	s.registry.TouchLastConnected(ctx, record)
	return &HealthStatus{Healthy: true, LatencyMS: time.Since(start).Milliseconds()}, nil
}
