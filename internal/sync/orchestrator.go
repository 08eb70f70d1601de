package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/burrowhq/burrow/internal/audit"
	"github.com/burrowhq/burrow/internal/config"
	"github.com/burrowhq/burrow/internal/database"
	"github.com/burrowhq/burrow/internal/registry"
	"github.com/burrowhq/burrow/internal/store"
	"github.com/burrowhq/burrow/pkg/logger"
)

// CreateNewTarget is the sentinel target id that asks the service to
// provision a fresh target store before saving the task.
const CreateNewTarget = "__CREATE_NEW__"

// Orchestrator errors.
var (
	// ErrNoTask: the source connection has no sync task configured.
	ErrNoTask = errors.New("no sync task configured for this connection")

	// ErrTargetRequired: enabling or triggering needs a resolved target.
	ErrTargetRequired = errors.New("a target connection is required")

	// ErrSampleSource: the sample connection cannot take part in sync.
	ErrSampleSource = errors.New("the sample connection cannot be synchronized")
)

// TargetProvisioner creates a fresh database for a new sync target and
// returns its registry record.
type TargetProvisioner interface {
	Provision(ctx context.Context, ownerUserID, sourceName string) (*store.ConnectionRecord, error)
}

// Settings is the outward view of a source connection's sync configuration.
type Settings struct {
	TaskID             string              `json:"taskId,omitempty"`
	Configured         bool                `json:"configured"`
	Enabled            bool                `json:"enabled"`
	Schedule           store.SyncSchedule  `json:"schedule"`
	TargetConnectionID *string             `json:"targetConnectionId,omitempty"`
	Tables             []string            `json:"tables,omitempty"`
	LastSyncAt         *time.Time          `json:"lastSyncAt,omitempty"`
	LatestLog          *store.SyncLogEntry `json:"latestLog,omitempty"`
}

// UpdateSettingsRequest carries a settings change for a source connection.
type UpdateSettingsRequest struct {
	Enabled            bool     `json:"enabled"`
	Schedule           string   `json:"schedule"`
	TargetConnectionID string   `json:"targetConnectionId"`
	Tables             []string `json:"tables"`
}

// UpdateResult reports the persisted task and, when the creation sentinel
// was used, the id of the provisioned target.
type UpdateResult struct {
	Task        *store.SyncTask `json:"task"`
	NewTargetID string          `json:"newTargetId,omitempty"`
}

// Orchestrator owns sync tasks and their lifecycle.
type Orchestrator struct {
	tasks       *store.SyncTaskRepository
	logs        *store.SyncLogRepository
	registry    *registry.Registry
	worker      *WorkerClient
	provisioner TargetProvisioner
	recorder    *audit.Recorder
	logger      *logger.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(tasks *store.SyncTaskRepository, logs *store.SyncLogRepository,
	reg *registry.Registry, worker *WorkerClient, provisioner TargetProvisioner,
	recorder *audit.Recorder, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		tasks:       tasks,
		logs:        logs,
		registry:    reg,
		worker:      worker,
		provisioner: provisioner,
		recorder:    recorder,
		logger:      log,
	}
}

// GetSettings returns the current configuration for a source connection,
// or defaults when no task exists yet.
func (o *Orchestrator) GetSettings(ctx context.Context, sourceConnectionID, ownerUserID string) (*Settings, error) {
	if _, err := o.registry.Get(ctx, sourceConnectionID, ownerUserID); err != nil {
		return nil, err
	}

	task, err := o.tasks.GetBySource(ctx, sourceConnectionID, ownerUserID)
	if errors.Is(err, store.ErrNotFound) {
		return &Settings{Schedule: store.ScheduleNever}, nil
	}
	if err != nil {
		return nil, err
	}

	settings := &Settings{
		TaskID:             task.ID,
		Configured:         true,
		Enabled:            task.Enabled,
		Schedule:           task.Schedule,
		TargetConnectionID: task.TargetConnectionID,
		Tables:             task.Tables,
		LastSyncAt:         task.LastSyncAt,
	}

	latest, err := o.logs.Latest(ctx, task.ID)
	if err == nil {
		settings.LatestLog = latest
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return settings, nil
}

// UpdateSettings creates or updates the task for a source connection. The
// CreateNewTarget sentinel provisions a target store first. A concurrent
// duplicate insert for the same pair is treated as idempotent: the
// surviving row is updated instead.
func (o *Orchestrator) UpdateSettings(ctx context.Context, sourceConnectionID, ownerUserID string, req UpdateSettingsRequest) (*UpdateResult, error) {
	if o.registry.IsSample(sourceConnectionID) {
		return nil, ErrSampleSource
	}
	source, err := o.registry.Get(ctx, sourceConnectionID, ownerUserID)
	if err != nil {
		return nil, err
	}

	schedule := store.SyncSchedule(req.Schedule)
	if req.Schedule == "" {
		schedule = store.ScheduleNever
	}
	if !store.ValidSchedule(schedule) {
		return nil, fmt.Errorf("unknown schedule: %s", req.Schedule)
	}

	result := &UpdateResult{}

	var targetID *string
	switch req.TargetConnectionID {
	case "":
		// Keep the existing target, if any.
	case CreateNewTarget:
		target, err := o.provisioner.Provision(ctx, ownerUserID, source.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to provision sync target: %w", err)
		}
		targetID = &target.ID
		result.NewTargetID = target.ID
	default:
		if o.registry.IsSample(req.TargetConnectionID) {
			return nil, ErrSampleSource
		}
		if _, err := o.registry.Get(ctx, req.TargetConnectionID, ownerUserID); err != nil {
			return nil, err
		}
		targetID = &req.TargetConnectionID
	}

	task, err := o.tasks.GetBySource(ctx, sourceConnectionID, ownerUserID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if req.Enabled && targetID == nil {
			return nil, ErrTargetRequired
		}
		now := time.Now()
		task = &store.SyncTask{
			ID:                 uuid.NewString(),
			OwnerUserID:        ownerUserID,
			SourceConnectionID: sourceConnectionID,
			TargetConnectionID: targetID,
			Tables:             req.Tables,
			Schedule:           schedule,
			Enabled:            req.Enabled,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := o.tasks.Create(ctx, task); err != nil {
			if !store.IsDuplicate(err) {
				return nil, err
			}
			// Lost the race; fall through to update the surviving row.
			task, err = o.tasks.GetBySource(ctx, sourceConnectionID, ownerUserID)
			if err != nil {
				return nil, err
			}
			return o.applyUpdate(ctx, task, targetID, req, schedule, result)
		}
		result.Task = task
		return result, nil
	case err != nil:
		return nil, err
	default:
		return o.applyUpdate(ctx, task, targetID, req, schedule, result)
	}
}

func (o *Orchestrator) applyUpdate(ctx context.Context, task *store.SyncTask, targetID *string,
	req UpdateSettingsRequest, schedule store.SyncSchedule, result *UpdateResult) (*UpdateResult, error) {
	if targetID != nil {
		task.TargetConnectionID = targetID
	}
	if req.Enabled && task.TargetConnectionID == nil {
		return nil, ErrTargetRequired
	}
	task.Tables = req.Tables
	task.Schedule = schedule
	task.Enabled = req.Enabled
	task.UpdatedAt = time.Now()

	if err := o.tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	result.Task = task
	return result, nil
}

// Trigger submits the task for a source connection to the worker.
func (o *Orchestrator) Trigger(ctx context.Context, sourceConnectionID, ownerUserID string) (string, error) {
	task, err := o.tasks.GetBySource(ctx, sourceConnectionID, ownerUserID)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrNoTask
	}
	if err != nil {
		return "", err
	}

	if err := o.submit(ctx, task); err != nil {
		return task.ID, err
	}
	return task.ID, nil
}

// submit loads both sides, decrypts their credentials, and posts the job.
// An accepted job gets a running log entry and an audit event.
func (o *Orchestrator) submit(ctx context.Context, task *store.SyncTask) error {
	if task.TargetConnectionID == nil {
		return ErrTargetRequired
	}

	source, err := o.loadParams(ctx, task.SourceConnectionID, task.OwnerUserID)
	if err != nil {
		return fmt.Errorf("source connection: %w", err)
	}
	target, err := o.loadParams(ctx, *task.TargetConnectionID, task.OwnerUserID)
	if err != nil {
		return fmt.Errorf("target connection: %w", err)
	}

	req := TriggerRequest{
		TaskID: task.ID,
		Source: source,
		Target: target,
		Tables: task.Tables,
	}
	if err := o.worker.TriggerSync(ctx, req); err != nil {
		return err
	}

	if _, err := o.logs.Append(ctx, &store.SyncLogEntry{
		TaskID:    task.ID,
		StartTime: time.Now(),
		Status:    store.SyncStatusRunning,
		Message:   "job submitted to worker",
	}); err != nil && o.logger != nil {
		o.logger.Warn("failed to record running sync log for task %s: %v", task.ID, err)
	}

	o.recorder.Record(ctx, task.OwnerUserID, &task.SourceConnectionID,
		audit.ActionSyncTriggered, fmt.Sprintf("task %s submitted", task.ID))
	return nil
}

func (o *Orchestrator) loadParams(ctx context.Context, connectionID, ownerUserID string) (ConnectionParams, error) {
	record, err := o.registry.FetchFull(ctx, connectionID, ownerUserID)
	if err != nil {
		return ConnectionParams{}, err
	}
	password, err := o.registry.RevealPassword(record)
	if err != nil {
		return ConnectionParams{}, err
	}

	port := record.Port
	if port == 0 {
		if adapter, aerr := database.Get(database.Engine(record.Engine)); aerr == nil {
			port = adapter.DefaultPort()
		}
	}

	return ConnectionParams{
		Engine:     record.Engine,
		Host:       record.Host,
		Port:       port,
		Database:   record.DatabaseName,
		Username:   record.Username,
		Password:   password,
		SSLEnabled: record.SSLEnabled,
	}, nil
}

// HandleJobStatusUpdate is the worker's callback. It appends a log entry,
// stamps lastSyncAt on success, and emits an audit event. The audit
// notification failing never rolls back the log write.
func (o *Orchestrator) HandleJobStatusUpdate(ctx context.Context, taskID, status, message string,
	rowsSynced int64, startTime, endTime time.Time) error {
	normalized := normalizeStatus(status)

	entry := &store.SyncLogEntry{
		TaskID:     taskID,
		StartTime:  startTime,
		Status:     normalized,
		Message:    message,
		RowsSynced: rowsSynced,
	}
	if !endTime.IsZero() {
		entry.EndTime = &endTime
	}
	if _, err := o.logs.Append(ctx, entry); err != nil {
		return err
	}

	task, err := o.tasks.GetByID(ctx, taskID)
	if err != nil {
		// The task may have been deleted mid-run; the log entry stands.
		return nil
	}

	if normalized == store.SyncStatusSuccess {
		if err := o.tasks.SetLastSync(ctx, taskID, endTime); err != nil && o.logger != nil {
			o.logger.Warn("failed to stamp last sync for task %s: %v", taskID, err)
		}
		o.recorder.Record(ctx, task.OwnerUserID, &task.SourceConnectionID,
			audit.ActionSyncCompleted, fmt.Sprintf("%d rows synced", rowsSynced))
	} else if normalized == store.SyncStatusFailure {
		o.recorder.Record(ctx, task.OwnerUserID, &task.SourceConnectionID,
			audit.ActionSyncFailed, message)
	}
	return nil
}

func normalizeStatus(status string) string {
	switch strings.ToUpper(status) {
	case "SUCCESS", "SUCCEEDED", "OK":
		return store.SyncStatusSuccess
	case "RUNNING", "STARTED":
		return store.SyncStatusRunning
	default:
		return store.SyncStatusFailure
	}
}

// ListTasks returns a user's sync tasks.
func (o *Orchestrator) ListTasks(ctx context.Context, ownerUserID string) ([]*store.SyncTask, error) {
	return o.tasks.List(ctx, ownerUserID)
}

// DeleteTask removes a task.
func (o *Orchestrator) DeleteTask(ctx context.Context, id, ownerUserID string) error {
	return o.tasks.Delete(ctx, id, ownerUserID)
}

// SetTaskEnabled toggles a task. Enabling still requires a target.
func (o *Orchestrator) SetTaskEnabled(ctx context.Context, id, ownerUserID string, enabled bool) (*store.SyncTask, error) {
	task, err := o.tasks.Get(ctx, id, ownerUserID)
	if err != nil {
		return nil, err
	}
	if enabled && task.TargetConnectionID == nil {
		return nil, ErrTargetRequired
	}
	task.Enabled = enabled
	task.UpdatedAt = time.Now()
	if err := o.tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// History returns recent log entries for a task.
func (o *Orchestrator) History(ctx context.Context, id, ownerUserID string, limit int) ([]*store.SyncLogEntry, error) {
	if _, err := o.tasks.Get(ctx, id, ownerUserID); err != nil {
		return nil, err
	}
	return o.logs.History(ctx, id, limit)
}

// EngineProvisioner creates target databases on the managed host using the
// configured admin credentials, then registers them.
type EngineProvisioner struct {
	registry *registry.Registry
	admin    config.DatabaseConfig
}

// NewEngineProvisioner creates the default provisioner.
func NewEngineProvisioner(reg *registry.Registry, admin config.DatabaseConfig) *EngineProvisioner {
	return &EngineProvisioner{registry: reg, admin: admin}
}

// Provision creates a fresh database named after the source and registers
// a connection record for it under the owner.
func (p *EngineProvisioner) Provision(ctx context.Context, ownerUserID, sourceName string) (*store.ConnectionRecord, error) {
	dbName := fmt.Sprintf("sync_target_%s", uuid.NewString()[:8])

	session, err := database.Open(ctx, database.Config{
		Engine:   database.MySQL,
		Host:     p.admin.Host,
		Port:     p.admin.Port,
		Username: p.admin.User,
		Password: p.admin.Password,
	})
	if err != nil {
		return nil, err
	}
	defer session.Close()

	if _, err := session.DataOperations().Execute(ctx,
		fmt.Sprintf("CREATE DATABASE `%s`", dbName)); err != nil {
		return nil, err
	}

	return p.registry.Create(ctx, ownerUserID, registry.ConnectionRequest{
		Name:         fmt.Sprintf("%s (sync copy)", sourceName),
		Engine:       string(database.MySQL),
		Host:         p.admin.Host,
		Port:         p.admin.Port,
		DatabaseName: dbName,
		Username:     p.admin.User,
		Password:     p.admin.Password,
	})
}
