// Package registry owns connection records: CRUD scoped to an owning user,
// credential sealing, sanitization of outward records, and the synthetic
// sample connection.
package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/burrowhq/burrow/internal/audit"
	"github.com/burrowhq/burrow/internal/database"
	"github.com/burrowhq/burrow/internal/store"
	"github.com/burrowhq/burrow/pkg/encryption"
)

// ErrSampleReadOnly is returned for any mutation attempt on the sample
// connection.
var ErrSampleReadOnly = errors.New("the sample connection is read-only")

// ErrInvalidEngine is returned when a request names an unknown engine.
var ErrInvalidEngine = errors.New("unknown engine")

// SampleProvider supplies the synthetic read-only sample connection. It is
// injected at construction, never a constant checked throughout the code.
type SampleProvider interface {
	// Record returns the sample connection record. Nil disables the sample.
	Record() *store.ConnectionRecord

	// Password returns the sample's plaintext password.
	Password() string
}

// ConnectionRequest carries the caller-supplied fields for create and
// update. Password is plaintext and transient; it is sealed before
// persistence and never stored as given. On update an empty Password keeps
// the existing secret.
type ConnectionRequest struct {
	Name         string `json:"name"`
	Engine       string `json:"engine"`
	Host         string `json:"host"`
	Port         int    `json:"port"`
	DatabaseName string `json:"databaseName"`
	Username     string `json:"username"`
	Password     string `json:"password"`
	SSLEnabled   bool   `json:"sslEnabled"`
	Notes        string `json:"notes"`
}

// Registry implements connection CRUD over the store.
type Registry struct {
	connections *store.ConnectionRepository
	box         *encryption.SecretBox
	sample      SampleProvider
	demoUserID  string
	recorder    *audit.Recorder
}

// New creates a Registry.
func New(connections *store.ConnectionRepository, box *encryption.SecretBox,
	sample SampleProvider, demoUserID string, recorder *audit.Recorder) *Registry {
	return &Registry{
		connections: connections,
		box:         box,
		sample:      sample,
		demoUserID:  demoUserID,
		recorder:    recorder,
	}
}

// Create registers a new connection. The returned record is sanitized.
func (r *Registry) Create(ctx context.Context, ownerUserID string, req ConnectionRequest) (*store.ConnectionRecord, error) {
	engine, ok := database.ParseEngine(req.Engine)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidEngine, req.Engine)
	}
	if req.Name == "" {
		return nil, errors.New("connection name is required")
	}

	now := time.Now()
	record := &store.ConnectionRecord{
		ID:           uuid.NewString(),
		OwnerUserID:  ownerUserID,
		Name:         req.Name,
		Engine:       string(engine),
		Host:         req.Host,
		Port:         req.Port,
		DatabaseName: req.DatabaseName,
		Username:     req.Username,
		SSLEnabled:   req.SSLEnabled,
		Notes:        req.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if req.Password != "" {
		sealed, err := r.box.Seal(req.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to seal password: %w", err)
		}
		record.EncryptedPassword = &sealed
	}

	if err := r.connections.Create(ctx, record); err != nil {
		return nil, err
	}

	r.recorder.Record(ctx, ownerUserID, &record.ID, audit.ActionConnectionCreated, record.Name)
	return sanitize(record), nil
}

// Get returns one sanitized record. The sample id resolves to the sample
// record when it is visible to the caller.
func (r *Registry) Get(ctx context.Context, id, ownerUserID string) (*store.ConnectionRecord, error) {
	if sample := r.sampleRecord(); sample != nil && sample.ID == id {
		visible, err := r.sampleVisible(ctx, ownerUserID)
		if err != nil {
			return nil, err
		}
		if visible {
			return sanitize(sample), nil
		}
		return nil, store.ErrNotFound
	}

	record, err := r.connections.Get(ctx, id, ownerUserID)
	if err != nil {
		return nil, err
	}
	return sanitize(record), nil
}

// List returns a user's sanitized records, injecting the sample per the
// visibility rule: always for the demo account, and for anyone else only
// when they own zero real connections.
func (r *Registry) List(ctx context.Context, ownerUserID string) ([]*store.ConnectionRecord, error) {
	records, err := r.connections.List(ctx, ownerUserID)
	if err != nil {
		return nil, err
	}

	out := make([]*store.ConnectionRecord, 0, len(records)+1)
	for _, record := range records {
		out = append(out, sanitize(record))
	}

	if sample := r.sampleRecord(); sample != nil {
		if ownerUserID == r.demoUserID || len(records) == 0 {
			out = append(out, sanitize(sample))
		}
	}
	return out, nil
}

// Update modifies a connection in place. The sample is rejected.
func (r *Registry) Update(ctx context.Context, id, ownerUserID string, req ConnectionRequest) (*store.ConnectionRecord, error) {
	if r.isSampleID(id) {
		return nil, ErrSampleReadOnly
	}

	record, err := r.connections.Get(ctx, id, ownerUserID)
	if err != nil {
		return nil, err
	}

	if req.Engine != "" {
		engine, ok := database.ParseEngine(req.Engine)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidEngine, req.Engine)
		}
		record.Engine = string(engine)
	}
	if req.Name != "" {
		record.Name = req.Name
	}
	record.Host = req.Host
	record.Port = req.Port
	record.DatabaseName = req.DatabaseName
	record.Username = req.Username
	record.SSLEnabled = req.SSLEnabled
	record.Notes = req.Notes
	record.UpdatedAt = time.Now()

	if req.Password != "" {
		sealed, err := r.box.Seal(req.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to seal password: %w", err)
		}
		record.EncryptedPassword = &sealed
	}

	if err := r.connections.Update(ctx, record); err != nil {
		return nil, err
	}

	r.recorder.Record(ctx, ownerUserID, &record.ID, audit.ActionConnectionUpdated, record.Name)
	return sanitize(record), nil
}

// Delete removes a connection. Dependent sync tasks cascade. The sample is
// rejected.
func (r *Registry) Delete(ctx context.Context, id, ownerUserID string) error {
	if r.isSampleID(id) {
		return ErrSampleReadOnly
	}

	record, err := r.connections.Get(ctx, id, ownerUserID)
	if err != nil {
		return err
	}

	if err := r.connections.Delete(ctx, id, ownerUserID); err != nil {
		return err
	}

	r.recorder.Record(ctx, ownerUserID, &id, audit.ActionConnectionDeleted, record.Name)
	return nil
}

// FetchFull returns the unsanitized record, encrypted password included.
// Internal use only: the session factory and the sync orchestrator.
func (r *Registry) FetchFull(ctx context.Context, id, ownerUserID string) (*store.ConnectionRecord, error) {
	if sample := r.sampleRecord(); sample != nil && sample.ID == id {
		visible, err := r.sampleVisible(ctx, ownerUserID)
		if err != nil {
			return nil, err
		}
		if visible {
			clone := *sample
			return &clone, nil
		}
		return nil, store.ErrNotFound
	}
	return r.connections.Get(ctx, id, ownerUserID)
}

// RevealPassword decrypts a record's stored credential. The sample's
// password comes from its provider. A record without a stored secret
// yields the empty string.
func (r *Registry) RevealPassword(record *store.ConnectionRecord) (string, error) {
	if record.IsSample {
		return r.sample.Password(), nil
	}
	if record.EncryptedPassword == nil || *record.EncryptedPassword == "" {
		return "", nil
	}
	return r.box.Open(*record.EncryptedPassword)
}

// DialConfig resolves a connection into engine dial parameters with the
// credential decrypted.
func (r *Registry) DialConfig(ctx context.Context, id, ownerUserID string, timeout time.Duration) (database.Config, *store.ConnectionRecord, error) {
	record, err := r.FetchFull(ctx, id, ownerUserID)
	if err != nil {
		return database.Config{}, nil, err
	}

	password, err := r.RevealPassword(record)
	if err != nil {
		return database.Config{}, record, err
	}

	return database.Config{
		Engine:         database.Engine(record.Engine),
		Host:           record.Host,
		Port:           record.Port,
		DatabaseName:   record.DatabaseName,
		Username:       record.Username,
		Password:       password,
		SSLEnabled:     record.SSLEnabled,
		ConnectTimeout: timeout,
	}, record, nil
}

// TouchLastConnected stamps a successful session open. Failures are
// non-fatal bookkeeping.
func (r *Registry) TouchLastConnected(ctx context.Context, record *store.ConnectionRecord) {
	if record.IsSample {
		return
	}
	_ = r.connections.TouchLastConnected(ctx, record.ID, record.OwnerUserID, time.Now())
}

// IsSample reports whether an id addresses the sample connection.
func (r *Registry) IsSample(id string) bool {
	return r.isSampleID(id)
}

func (r *Registry) isSampleID(id string) bool {
	sample := r.sampleRecord()
	return sample != nil && sample.ID == id
}

func (r *Registry) sampleRecord() *store.ConnectionRecord {
	if r.sample == nil {
		return nil
	}
	return r.sample.Record()
}

func (r *Registry) sampleVisible(ctx context.Context, ownerUserID string) (bool, error) {
	if ownerUserID == r.demoUserID {
		return true, nil
	}
	count, err := r.connections.CountByOwner(ctx, ownerUserID)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// sanitize clears secret material from an outward-facing copy.
func sanitize(record *store.ConnectionRecord) *store.ConnectionRecord {
	clone := *record
	clone.EncryptedPassword = nil
	return &clone
}
