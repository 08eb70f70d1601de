package engine

import (
	"context"
	"time"

	"github.com/burrowhq/burrow/internal/store"
	dbsync "github.com/burrowhq/burrow/internal/sync"
)

// GetSyncSettings returns a source connection's sync configuration.
func (s *Service) GetSyncSettings(ctx context.Context, sourceConnectionID, ownerUserID string) (*dbsync.Settings, error) {
	return s.orchestrator.GetSettings(ctx, sourceConnectionID, ownerUserID)
}

// UpdateSyncSettings creates or updates the sync task for a source.
func (s *Service) UpdateSyncSettings(ctx context.Context, sourceConnectionID, ownerUserID string, req dbsync.UpdateSettingsRequest) (result *dbsync.UpdateResult, err error) {
	done := s.begin()
	defer func() { done(err) }()
	result, err = s.orchestrator.UpdateSettings(ctx, sourceConnectionID, ownerUserID, req)
	return result, err
}

// TriggerSync submits the source's task to the worker.
func (s *Service) TriggerSync(ctx context.Context, sourceConnectionID, ownerUserID string) (taskID string, err error) {
	done := s.begin()
	defer func() { done(err) }()
	taskID, err = s.orchestrator.Trigger(ctx, sourceConnectionID, ownerUserID)
	return taskID, err
}

// ListSyncTasks returns the caller's sync tasks.
func (s *Service) ListSyncTasks(ctx context.Context, ownerUserID string) ([]*store.SyncTask, error) {
	return s.orchestrator.ListTasks(ctx, ownerUserID)
}

// DeleteSyncTask removes a task.
func (s *Service) DeleteSyncTask(ctx context.Context, id, ownerUserID string) error {
	return s.orchestrator.DeleteTask(ctx, id, ownerUserID)
}

// SetSyncTaskEnabled toggles a task.
func (s *Service) SetSyncTaskEnabled(ctx context.Context, id, ownerUserID string, enabled bool) (*store.SyncTask, error) {
	return s.orchestrator.SetTaskEnabled(ctx, id, ownerUserID, enabled)
}

// SyncHistory returns recent runs for a task.
func (s *Service) SyncHistory(ctx context.Context, id, ownerUserID string, limit int) ([]*store.SyncLogEntry, error) {
	return s.orchestrator.History(ctx, id, ownerUserID, limit)
}

// JobStatusUpdate is the worker callback body. Timestamps arrive as
// RFC 3339 strings; absent or malformed values degrade rather than fail.
type JobStatusUpdate struct {
	TaskID     string `json:"taskId"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	RowsSynced int64  `json:"rows_synced"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
}

// HandleJobStatusUpdate records a worker-reported job outcome. This entry
// point trusts its caller; it must only be reachable from the internal
// worker network.
func (s *Service) HandleJobStatusUpdate(ctx context.Context, update JobStatusUpdate) error {
	start := parseWorkerTime(update.StartTime, time.Now())
	end := parseWorkerTime(update.EndTime, time.Time{})
	return s.orchestrator.HandleJobStatusUpdate(ctx, update.TaskID, update.Status,
		update.Message, update.RowsSynced, start, end)
}

func parseWorkerTime(value string, fallback time.Time) time.Time {
	if value == "" {
		return fallback
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return fallback
}
