// Package audit records connection and data mutations to the append-only
// event log and forwards them to an optional notifier.
package audit

import (
	"context"
	"time"

	"github.com/burrowhq/burrow/internal/store"
	"github.com/burrowhq/burrow/pkg/logger"
)

// Well-known event actions.
const (
	ActionConnectionCreated = "connection.created"
	ActionConnectionUpdated = "connection.updated"
	ActionConnectionDeleted = "connection.deleted"
	ActionTableCreated      = "table.created"
	ActionTableDropped      = "table.dropped"
	ActionColumnAltered     = "column.altered"
	ActionRowInserted       = "row.inserted"
	ActionRowUpdated        = "row.updated"
	ActionRowDeleted        = "row.deleted"
	ActionSyncTriggered     = "sync.triggered"
	ActionSyncCompleted     = "sync.completed"
	ActionSyncFailed        = "sync.failed"
)

// Notifier receives events after they are persisted. Implementations talk
// to the external notification collaborator; failures are logged and never
// propagate to the caller.
type Notifier interface {
	Notify(ctx context.Context, entry *store.EventLogEntry) error
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(context.Context, *store.EventLogEntry) error {
	return nil
}

// Recorder appends events and fans them out to the notifier.
type Recorder struct {
	events   *store.EventRepository
	notifier Notifier
	logger   *logger.Logger
}

// NewRecorder creates a Recorder. A nil notifier falls back to NopNotifier.
func NewRecorder(events *store.EventRepository, notifier Notifier, log *logger.Logger) *Recorder {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Recorder{events: events, notifier: notifier, logger: log}
}

// Record persists one event and notifies. A notification failure does not
// roll back or fail the recorded event.
func (r *Recorder) Record(ctx context.Context, ownerUserID string, connectionID *string, action, detail string) {
	entry := &store.EventLogEntry{
		OwnerUserID:  ownerUserID,
		ConnectionID: connectionID,
		Action:       action,
		Detail:       detail,
		CreatedAt:    time.Now(),
	}

	if err := r.events.Append(ctx, entry); err != nil {
		if r.logger != nil {
			r.logger.Error("failed to record event %s: %v", action, err)
		}
		return
	}

	if err := r.notifier.Notify(ctx, entry); err != nil && r.logger != nil {
		r.logger.Warn("event notification failed for %s: %v", action, err)
	}
}

// Recent returns a user's latest events.
func (r *Recorder) Recent(ctx context.Context, ownerUserID string, limit int) ([]*store.EventLogEntry, error) {
	return r.events.Recent(ctx, ownerUserID, limit)
}
