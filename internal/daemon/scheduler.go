package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	ferrors "git.home.luguber.info/inful/larder/internal/foundation/errors"
	"git.home.luguber.info/inful/larder/internal/logfields"
)

// Scheduler wraps gocron for the daemon's periodic tasks: the change
// monitor tick and the nightly cleanup sweep. It implements
// monitor.TickScheduler.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler creates a new scheduler instance.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryDaemon, "create gocron scheduler").Build()
	}
	return &Scheduler{scheduler: s}, nil
}

// Start begins executing scheduled jobs.
func (s *Scheduler) Start(ctx context.Context) {
	slog.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler, waiting for running jobs.
func (s *Scheduler) Stop(ctx context.Context) error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// ScheduleEvery registers task to run at a fixed interval.
// Returns the job ID for later cancellation.
func (s *Scheduler) ScheduleEvery(name string, every time.Duration, task func()) (string, error) {
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(task),
		gocron.WithName(name),
	)
	if err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryDaemon, "create interval job").
			WithContext("job_name", name).Build()
	}

	slog.Debug("Scheduled interval job",
		logfields.ScheduleName(name),
		logfields.ScheduleID(job.ID().String()),
		slog.Duration("every", every))
	return job.ID().String(), nil
}

// ScheduleCron registers task to run on a cron expression.
func (s *Scheduler) ScheduleCron(name string, expr string, task func()) (string, error) {
	job, err := s.scheduler.NewJob(
		gocron.CronJob(expr, false),
		gocron.NewTask(task),
		gocron.WithName(name),
	)
	if err != nil {
		return "", ferrors.WrapError(err, ferrors.CategoryDaemon, "create cron job").
			WithContext("job_name", name).
			WithContext("cron", expr).Build()
	}

	slog.Debug("Scheduled cron job",
		logfields.ScheduleName(name),
		logfields.ScheduleID(job.ID().String()),
		slog.String("cron", expr))
	return job.ID().String(), nil
}

// Cancel removes a previously scheduled job.
func (s *Scheduler) Cancel(id string) error {
	jobID, err := uuid.Parse(id)
	if err != nil {
		return ferrors.ValidationError("invalid job id").WithContext("job_id", id).Build()
	}
	if err := s.scheduler.RemoveJob(jobID); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryDaemon, "remove job").
			WithContext("job_id", id).Build()
	}
	return nil
}
