package sync

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/burrowhq/burrow/internal/store"
	"github.com/burrowhq/burrow/pkg/logger"
)

// Cron expressions per schedule. Hourly runs on the hour, daily and
// weekly at 02:00 to keep heavy copies off peak time.
var scheduleSpecs = map[store.SyncSchedule]string{
	store.ScheduleHourly: "0 * * * *",
	store.ScheduleDaily:  "0 2 * * *",
	store.ScheduleWeekly: "0 2 * * 1",
}

const reloadSpec = "*/5 * * * *"

// Scheduler keeps cron jobs in step with the enabled sync tasks. Task
// changes are picked up by a periodic reload rather than by callers
// poking the scheduler.
type Scheduler struct {
	orchestrator *Orchestrator
	tasks        *store.SyncTaskRepository
	logs         *store.SyncLogRepository
	logger       *logger.Logger

	cron *cron.Cron

	mu   sync.Mutex
	jobs map[string]scheduledJob
}

type scheduledJob struct {
	entryID  cron.EntryID
	schedule store.SyncSchedule
}

// NewScheduler creates a stopped Scheduler.
func NewScheduler(orchestrator *Orchestrator, tasks *store.SyncTaskRepository,
	logs *store.SyncLogRepository, log *logger.Logger) *Scheduler {
	return &Scheduler{
		orchestrator: orchestrator,
		tasks:        tasks,
		logs:         logs,
		logger:       log,
		cron:         cron.New(),
		jobs:         make(map[string]scheduledJob),
	}
}

// Start loads the current tasks, registers the reload job, and starts the
// cron runner.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.Reload(ctx); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(reloadSpec, func() {
		if err := s.Reload(context.Background()); err != nil {
			s.logger.Warn("sync schedule reload failed: %v", err)
		}
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("Sync scheduler started with %d task(s)", s.jobCount())
	return nil
}

// Stop halts the cron runner and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
}

// Reload diffs the enabled tasks against the registered jobs, adding,
// rescheduling, and removing entries as needed.
func (s *Scheduler) Reload(ctx context.Context) error {
	tasks, err := s.tasks.ListEnabled(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(tasks))
	for _, task := range tasks {
		spec, ok := scheduleSpecs[task.Schedule]
		if !ok {
			continue
		}
		seen[task.ID] = true

		if existing, exists := s.jobs[task.ID]; exists {
			if existing.schedule == task.Schedule {
				continue
			}
			s.cron.Remove(existing.entryID)
		}

		taskID := task.ID
		entryID, err := s.cron.AddFunc(spec, func() { s.run(taskID) })
		if err != nil {
			s.logger.Warn("failed to schedule sync task %s: %v", task.ID, err)
			continue
		}
		s.jobs[task.ID] = scheduledJob{entryID: entryID, schedule: task.Schedule}
	}

	for id, job := range s.jobs {
		if !seen[id] {
			s.cron.Remove(job.entryID)
			delete(s.jobs, id)
		}
	}
	return nil
}

// run submits one scheduled task. Submission failures are recorded as
// failed runs so they show up in the task's history.
func (s *Scheduler) run(taskID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		s.logger.Warn("scheduled sync task %s no longer exists: %v", taskID, err)
		return
	}
	if !task.Enabled {
		return
	}

	if err := s.orchestrator.submit(ctx, task); err != nil {
		s.logger.Error("scheduled sync for task %s failed: %v", taskID, err)
		now := time.Now()
		if _, logErr := s.logs.Append(ctx, &store.SyncLogEntry{
			TaskID:    taskID,
			StartTime: now,
			EndTime:   &now,
			Status:    store.SyncStatusFailure,
			Message:   "scheduled submission failed: " + err.Error(),
		}); logErr != nil {
			s.logger.Warn("failed to record scheduled sync failure for task %s: %v", taskID, logErr)
		}
	}
}

func (s *Scheduler) jobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}
