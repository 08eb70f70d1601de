package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burrowhq/burrow/internal/audit"
	"github.com/burrowhq/burrow/internal/config"
	"github.com/burrowhq/burrow/internal/registry"
	"github.com/burrowhq/burrow/internal/store"
	"github.com/burrowhq/burrow/pkg/encryption"
	"github.com/burrowhq/burrow/pkg/logger"
)

const testOwner = "user-1"

type fakeProvisioner struct {
	registry *registry.Registry
	calls    int
}

func (p *fakeProvisioner) Provision(ctx context.Context, ownerUserID, sourceName string) (*store.ConnectionRecord, error) {
	p.calls++
	return p.registry.Create(ctx, ownerUserID, registry.ConnectionRequest{
		Name: sourceName + " (sync copy)", Engine: "mysql", Host: "localhost",
		Port: 3306, DatabaseName: "sync_target_" + uuid.NewString()[:8],
		Username: "root", Password: "admin-pass",
	})
}

type testEnv struct {
	store        *store.Store
	registry     *registry.Registry
	orchestrator *Orchestrator
	provisioner  *fakeProvisioner
	triggers     []TriggerRequest
}

func newTestEnv(t *testing.T, workerStatus int) *testEnv {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "burrow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Bootstrap(context.Background()))

	box := encryption.NewSecretBox("test-secret")
	sample := registry.NewStaticSampleProvider(config.SampleConfig{
		Name: "Sample Database", Engine: "mysql", Host: "localhost",
		Port: 3306, Database: "sample", Username: "sample_ro", Password: "sample-pass",
	})
	recorder := audit.NewRecorder(s.Events(), nil, nil)
	reg := registry.New(s.Connections(), box, sample, "demo", recorder)

	env := &testEnv{store: s, registry: reg}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req TriggerRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		env.triggers = append(env.triggers, req)
		w.WriteHeader(workerStatus)
	}))
	t.Cleanup(server.Close)

	env.provisioner = &fakeProvisioner{registry: reg}
	env.orchestrator = NewOrchestrator(s.SyncTasks(), s.SyncLogs(), reg,
		NewWorkerClient(server.URL, time.Second), env.provisioner, recorder,
		logger.New("sync-test", "test"))
	return env
}

func (env *testEnv) createConnection(t *testing.T, name string) *store.ConnectionRecord {
	t.Helper()
	record, err := env.registry.Create(context.Background(), testOwner, registry.ConnectionRequest{
		Name: name, Engine: "postgres", Host: "db-" + name, Port: 5432,
		DatabaseName: name, Username: "u", Password: "secret-" + name,
	})
	require.NoError(t, err)
	return record
}

func TestGetSettingsDefaults(t *testing.T) {
	env := newTestEnv(t, http.StatusAccepted)
	source := env.createConnection(t, "shop")

	settings, err := env.orchestrator.GetSettings(context.Background(), source.ID, testOwner)
	require.NoError(t, err)
	assert.False(t, settings.Configured)
	assert.False(t, settings.Enabled)
	assert.Equal(t, store.ScheduleNever, settings.Schedule)
	assert.Nil(t, settings.LatestLog)
}

func TestUpdateSettingsProvisionsNewTarget(t *testing.T) {
	env := newTestEnv(t, http.StatusAccepted)
	source := env.createConnection(t, "shop")
	ctx := context.Background()

	result, err := env.orchestrator.UpdateSettings(ctx, source.ID, testOwner, UpdateSettingsRequest{
		Enabled:            true,
		Schedule:           "daily",
		TargetConnectionID: CreateNewTarget,
		Tables:             []string{"orders", "customers"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, env.provisioner.calls)
	assert.NotEmpty(t, result.NewTargetID)
	require.NotNil(t, result.Task.TargetConnectionID)
	assert.Equal(t, result.NewTargetID, *result.Task.TargetConnectionID)
	assert.Equal(t, store.ScheduleDaily, result.Task.Schedule)
	assert.True(t, result.Task.Enabled)

	settings, err := env.orchestrator.GetSettings(ctx, source.ID, testOwner)
	require.NoError(t, err)
	assert.True(t, settings.Configured)
	assert.Equal(t, []string{"orders", "customers"}, settings.Tables)
}

func TestUpdateSettingsAtMostOneTaskPerSource(t *testing.T) {
	env := newTestEnv(t, http.StatusAccepted)
	source := env.createConnection(t, "shop")
	target := env.createConnection(t, "warehouse")
	ctx := context.Background()

	first, err := env.orchestrator.UpdateSettings(ctx, source.ID, testOwner, UpdateSettingsRequest{
		Schedule: "hourly", TargetConnectionID: target.ID,
	})
	require.NoError(t, err)

	second, err := env.orchestrator.UpdateSettings(ctx, source.ID, testOwner, UpdateSettingsRequest{
		Enabled: true, Schedule: "weekly", TargetConnectionID: target.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, first.Task.ID, second.Task.ID)
	assert.Equal(t, store.ScheduleWeekly, second.Task.Schedule)

	tasks, err := env.orchestrator.ListTasks(ctx, testOwner)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestUpdateSettingsEnableRequiresTarget(t *testing.T) {
	env := newTestEnv(t, http.StatusAccepted)
	source := env.createConnection(t, "shop")

	_, err := env.orchestrator.UpdateSettings(context.Background(), source.ID, testOwner,
		UpdateSettingsRequest{Enabled: true, Schedule: "daily"})
	assert.ErrorIs(t, err, ErrTargetRequired)
}

func TestUpdateSettingsRejectsSample(t *testing.T) {
	env := newTestEnv(t, http.StatusAccepted)

	_, err := env.orchestrator.UpdateSettings(context.Background(), registry.SampleID, testOwner,
		UpdateSettingsRequest{Schedule: "daily"})
	assert.ErrorIs(t, err, ErrSampleSource)

	source := env.createConnection(t, "shop")
	_, err = env.orchestrator.UpdateSettings(context.Background(), source.ID, testOwner,
		UpdateSettingsRequest{Schedule: "daily", TargetConnectionID: registry.SampleID})
	assert.ErrorIs(t, err, ErrSampleSource)
}

func TestTriggerWithoutTask(t *testing.T) {
	env := newTestEnv(t, http.StatusAccepted)
	source := env.createConnection(t, "shop")

	_, err := env.orchestrator.Trigger(context.Background(), source.ID, testOwner)
	assert.ErrorIs(t, err, ErrNoTask)
	assert.Empty(t, env.triggers)
}

func TestTriggerSendsDecryptedCredentials(t *testing.T) {
	env := newTestEnv(t, http.StatusAccepted)
	source := env.createConnection(t, "shop")
	target := env.createConnection(t, "warehouse")
	ctx := context.Background()

	_, err := env.orchestrator.UpdateSettings(ctx, source.ID, testOwner, UpdateSettingsRequest{
		Enabled: true, Schedule: "daily", TargetConnectionID: target.ID,
		Tables: []string{"orders"},
	})
	require.NoError(t, err)

	taskID, err := env.orchestrator.Trigger(ctx, source.ID, testOwner)
	require.NoError(t, err)

	require.Len(t, env.triggers, 1)
	sent := env.triggers[0]
	assert.Equal(t, taskID, sent.TaskID)
	assert.Equal(t, "secret-shop", sent.Source.Password)
	assert.Equal(t, "secret-warehouse", sent.Target.Password)
	assert.Equal(t, []string{"orders"}, sent.Tables)

	latest, err := env.store.SyncLogs().Latest(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, store.SyncStatusRunning, latest.Status)
}

func TestTriggerWorkerRejection(t *testing.T) {
	env := newTestEnv(t, http.StatusBadRequest)
	source := env.createConnection(t, "shop")
	target := env.createConnection(t, "warehouse")
	ctx := context.Background()

	_, err := env.orchestrator.UpdateSettings(ctx, source.ID, testOwner, UpdateSettingsRequest{
		Schedule: "daily", TargetConnectionID: target.ID,
	})
	require.NoError(t, err)

	taskID, err := env.orchestrator.Trigger(ctx, source.ID, testOwner)
	require.Error(t, err)
	assert.NotEmpty(t, taskID)

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, UpstreamRejected, upstream.Kind)
	assert.False(t, upstream.Retryable())

	_, err = env.store.SyncLogs().Latest(ctx, taskID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTriggerWorkerUnreachable(t *testing.T) {
	env := newTestEnv(t, http.StatusAccepted)
	source := env.createConnection(t, "shop")
	target := env.createConnection(t, "warehouse")
	ctx := context.Background()

	_, err := env.orchestrator.UpdateSettings(ctx, source.ID, testOwner, UpdateSettingsRequest{
		Schedule: "daily", TargetConnectionID: target.ID,
	})
	require.NoError(t, err)

	env.orchestrator.worker = NewWorkerClient("http://127.0.0.1:1", time.Second)

	_, err = env.orchestrator.Trigger(ctx, source.ID, testOwner)
	require.Error(t, err)

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, UpstreamUnreachable, upstream.Kind)
	assert.True(t, upstream.Retryable())
}

func TestHandleJobStatusUpdate(t *testing.T) {
	env := newTestEnv(t, http.StatusAccepted)
	source := env.createConnection(t, "shop")
	target := env.createConnection(t, "warehouse")
	ctx := context.Background()

	result, err := env.orchestrator.UpdateSettings(ctx, source.ID, testOwner, UpdateSettingsRequest{
		Schedule: "daily", TargetConnectionID: target.ID,
	})
	require.NoError(t, err)
	taskID := result.Task.ID

	start := time.Now().Add(-time.Minute)
	end := time.Now()
	require.NoError(t, env.orchestrator.HandleJobStatusUpdate(ctx, taskID,
		"SUCCESS", "copied 2 tables", 1500, start, end))

	latest, err := env.store.SyncLogs().Latest(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, store.SyncStatusSuccess, latest.Status)
	assert.Equal(t, int64(1500), latest.RowsSynced)
	require.NotNil(t, latest.EndTime)

	task, err := env.store.SyncTasks().GetByID(ctx, taskID)
	require.NoError(t, err)
	require.NotNil(t, task.LastSyncAt)
	assert.WithinDuration(t, end, *task.LastSyncAt, time.Second)

	events, err := env.store.Events().Recent(ctx, testOwner, 10)
	require.NoError(t, err)
	found := false
	for _, event := range events {
		if event.Action == audit.ActionSyncCompleted {
			found = true
		}
	}
	assert.True(t, found, "expected a sync.completed event")
}

func TestHandleJobStatusUpdateFailure(t *testing.T) {
	env := newTestEnv(t, http.StatusAccepted)
	source := env.createConnection(t, "shop")
	target := env.createConnection(t, "warehouse")
	ctx := context.Background()

	result, err := env.orchestrator.UpdateSettings(ctx, source.ID, testOwner, UpdateSettingsRequest{
		Schedule: "daily", TargetConnectionID: target.ID,
	})
	require.NoError(t, err)
	taskID := result.Task.ID

	require.NoError(t, env.orchestrator.HandleJobStatusUpdate(ctx, taskID,
		"FAILURE", "source unreachable", 0, time.Now(), time.Now()))

	latest, err := env.store.SyncLogs().Latest(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, store.SyncStatusFailure, latest.Status)

	task, err := env.store.SyncTasks().GetByID(ctx, taskID)
	require.NoError(t, err)
	assert.Nil(t, task.LastSyncAt)
}

func TestHandleJobStatusUpdateUnknownTask(t *testing.T) {
	env := newTestEnv(t, http.StatusAccepted)

	// The log entry is kept even when the task is gone.
	err := env.orchestrator.HandleJobStatusUpdate(context.Background(), "gone",
		"SUCCESS", "done", 10, time.Now(), time.Now())
	require.NoError(t, err)

	latest, err := env.store.SyncLogs().Latest(context.Background(), "gone")
	require.NoError(t, err)
	assert.Equal(t, store.SyncStatusSuccess, latest.Status)
}

func TestSetTaskEnabledRequiresTarget(t *testing.T) {
	env := newTestEnv(t, http.StatusAccepted)
	source := env.createConnection(t, "shop")
	ctx := context.Background()

	result, err := env.orchestrator.UpdateSettings(ctx, source.ID, testOwner,
		UpdateSettingsRequest{Schedule: "daily"})
	require.NoError(t, err)
	require.Nil(t, result.Task.TargetConnectionID)

	_, err = env.orchestrator.SetTaskEnabled(ctx, result.Task.ID, testOwner, true)
	assert.ErrorIs(t, err, ErrTargetRequired)
}

func TestHistoryScopedToOwner(t *testing.T) {
	env := newTestEnv(t, http.StatusAccepted)
	source := env.createConnection(t, "shop")
	target := env.createConnection(t, "warehouse")
	ctx := context.Background()

	result, err := env.orchestrator.UpdateSettings(ctx, source.ID, testOwner, UpdateSettingsRequest{
		Schedule: "daily", TargetConnectionID: target.ID,
	})
	require.NoError(t, err)

	_, err = env.orchestrator.History(ctx, result.Task.ID, "intruder", 10)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
