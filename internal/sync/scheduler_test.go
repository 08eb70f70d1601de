package sync

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burrowhq/burrow/internal/store"
	"github.com/burrowhq/burrow/pkg/logger"
)

func newTestScheduler(t *testing.T, env *testEnv) *Scheduler {
	t.Helper()
	return NewScheduler(env.orchestrator, env.store.SyncTasks(), env.store.SyncLogs(),
		logger.New("sync-test", "test"))
}

func configureTask(t *testing.T, env *testEnv, schedule string, enabled bool) *store.SyncTask {
	t.Helper()
	source := env.createConnection(t, "src-"+schedule)
	target := env.createConnection(t, "dst-"+schedule)
	result, err := env.orchestrator.UpdateSettings(context.Background(), source.ID, testOwner,
		UpdateSettingsRequest{Enabled: enabled, Schedule: schedule, TargetConnectionID: target.ID})
	require.NoError(t, err)
	return result.Task
}

func TestReloadTracksEnabledTasks(t *testing.T) {
	env := newTestEnv(t, http.StatusAccepted)
	scheduler := newTestScheduler(t, env)
	ctx := context.Background()

	enabled := configureTask(t, env, "hourly", true)
	configureTask(t, env, "daily", false)

	require.NoError(t, scheduler.Reload(ctx))
	assert.Equal(t, 1, scheduler.jobCount())

	_, registered := scheduler.jobs[enabled.ID]
	assert.True(t, registered)
}

func TestReloadReschedulesAndRemoves(t *testing.T) {
	env := newTestEnv(t, http.StatusAccepted)
	scheduler := newTestScheduler(t, env)
	ctx := context.Background()

	task := configureTask(t, env, "hourly", true)
	require.NoError(t, scheduler.Reload(ctx))
	firstEntry := scheduler.jobs[task.ID].entryID

	task.Schedule = store.ScheduleWeekly
	require.NoError(t, env.store.SyncTasks().Update(ctx, task))
	require.NoError(t, scheduler.Reload(ctx))
	assert.NotEqual(t, firstEntry, scheduler.jobs[task.ID].entryID)
	assert.Equal(t, store.ScheduleWeekly, scheduler.jobs[task.ID].schedule)

	task.Enabled = false
	require.NoError(t, env.store.SyncTasks().Update(ctx, task))
	require.NoError(t, scheduler.Reload(ctx))
	assert.Equal(t, 0, scheduler.jobCount())
}

func TestReloadSkipsNeverSchedule(t *testing.T) {
	env := newTestEnv(t, http.StatusAccepted)
	scheduler := newTestScheduler(t, env)

	// An enabled task with schedule "never" is manual-trigger only.
	source := env.createConnection(t, "manual")
	target := env.createConnection(t, "manual-copy")
	_, err := env.orchestrator.UpdateSettings(context.Background(), source.ID, testOwner,
		UpdateSettingsRequest{Schedule: "never", TargetConnectionID: target.ID})
	require.NoError(t, err)

	require.NoError(t, scheduler.Reload(context.Background()))
	assert.Equal(t, 0, scheduler.jobCount())
}

func TestScheduledRunSubmitsJob(t *testing.T) {
	env := newTestEnv(t, http.StatusAccepted)
	scheduler := newTestScheduler(t, env)

	task := configureTask(t, env, "hourly", true)
	scheduler.run(task.ID)

	require.Len(t, env.triggers, 1)
	assert.Equal(t, task.ID, env.triggers[0].TaskID)
}

func TestScheduledRunRecordsFailure(t *testing.T) {
	env := newTestEnv(t, http.StatusAccepted)
	scheduler := newTestScheduler(t, env)
	ctx := context.Background()

	task := configureTask(t, env, "hourly", true)
	env.orchestrator.worker = NewWorkerClient("http://127.0.0.1:1", time.Second)

	scheduler.run(task.ID)

	latest, err := env.store.SyncLogs().Latest(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, store.SyncStatusFailure, latest.Status)
	assert.Contains(t, latest.Message, "scheduled submission failed")
}

func TestScheduledRunSkipsDisabledTask(t *testing.T) {
	env := newTestEnv(t, http.StatusAccepted)
	scheduler := newTestScheduler(t, env)

	task := configureTask(t, env, "hourly", false)
	scheduler.run(task.ID)
	assert.Empty(t, env.triggers)
}
