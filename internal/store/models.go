package store

import "time"

// ConnectionRecord is the persisted description of one registered database.
// EncryptedPassword never leaves the service; outward-facing copies are
// sanitized by the registry.
type ConnectionRecord struct {
	ID                string     `json:"id"`
	OwnerUserID       string     `json:"ownerUserId"`
	Name              string     `json:"name"`
	Engine            string     `json:"engine"`
	Host              string     `json:"host"`
	Port              int        `json:"port"`
	DatabaseName      string     `json:"databaseName"`
	Username          string     `json:"username"`
	EncryptedPassword *string    `json:"-"`
	SSLEnabled        bool       `json:"sslEnabled"`
	Notes             string     `json:"notes"`
	IsSample          bool       `json:"isSample"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
	LastConnectedAt   *time.Time `json:"lastConnectedAt,omitempty"`
}

// SyncSchedule enumerates the supported schedules.
type SyncSchedule string

const (
	ScheduleNever  SyncSchedule = "never"
	ScheduleHourly SyncSchedule = "hourly"
	ScheduleDaily  SyncSchedule = "daily"
	ScheduleWeekly SyncSchedule = "weekly"
)

// ValidSchedule reports whether s is a known schedule.
func ValidSchedule(s SyncSchedule) bool {
	switch s {
	case ScheduleNever, ScheduleHourly, ScheduleDaily, ScheduleWeekly:
		return true
	}
	return false
}

// SyncTask configures the one-way copy from a source connection to a
// target. At most one task exists per (owner, source) pair.
type SyncTask struct {
	ID                 string       `json:"id"`
	OwnerUserID        string       `json:"ownerUserId"`
	SourceConnectionID string       `json:"sourceConnectionId"`
	TargetConnectionID *string      `json:"targetConnectionId,omitempty"`
	Tables             []string     `json:"tables,omitempty"`
	Schedule           SyncSchedule `json:"schedule"`
	Enabled            bool         `json:"enabled"`
	LastSyncAt         *time.Time   `json:"lastSyncAt,omitempty"`
	CreatedAt          time.Time    `json:"createdAt"`
	UpdatedAt          time.Time    `json:"updatedAt"`
}

// Sync job statuses as reported by the worker.
const (
	SyncStatusRunning = "running"
	SyncStatusSuccess = "success"
	SyncStatusFailure = "failure"
)

// SyncLogEntry records one job attempt. Append-only.
type SyncLogEntry struct {
	ID         int64      `json:"id"`
	TaskID     string     `json:"taskId"`
	StartTime  time.Time  `json:"startTime"`
	EndTime    *time.Time `json:"endTime,omitempty"`
	Status     string     `json:"status"`
	Message    string     `json:"message"`
	RowsSynced int64      `json:"rowsSynced"`
}

// EventLogEntry records one audited action. Append-only.
type EventLogEntry struct {
	ID           int64     `json:"id"`
	OwnerUserID  string    `json:"ownerUserId"`
	ConnectionID *string   `json:"connectionId,omitempty"`
	Action       string    `json:"action"`
	Detail       string    `json:"detail"`
	CreatedAt    time.Time `json:"createdAt"`
}
