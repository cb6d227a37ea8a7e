// Package scheduler drives SeasonController.AdvanceDay on a wall-clock
// cadence instead of the synchronous, caller-invoked model the engine
// otherwise requires. It is a convenience wrapper for the CLI/demo binary:
// one cron entry per active dynasty, each still going through the
// controller's own per-dynasty serialization, so a missed or overlapping
// tick can never race a manual AdvanceDay call against the same dynasty.
package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is one schedulable unit of work: a dynasty's next calendar advance.
type Job interface {
	Run(ctx context.Context) error
	Name() string
}

// Scheduler manages background advance-day jobs.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// New creates a scheduler using seconds-precision cron expressions.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// Start begins running registered jobs on their schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop waits for any in-flight job to finish, then halts the scheduler.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("scheduler stopped")
}

// AddJob registers job on a cron schedule. Schedule examples:
//   - "0 0 6 * * *"   - every day at 06:00
//   - "@every 1h"     - once an hour
//   - "@every 30s"    - once every 30 seconds (demo/testing cadence)
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		jobLog := s.log.With().Str("job", job.Name()).Logger()
		jobLog.Debug().Msg("running job")

		if err := job.Run(context.Background()); err != nil {
			jobLog.Error().Err(err).Msg("job failed")
		} else {
			jobLog.Debug().Msg("job completed")
		}
	})
	if err != nil {
		return err
	}

	s.log.Info().Str("schedule", schedule).Str("job", job.Name()).Msg("job registered")
	return nil
}

// RunNow executes job immediately, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("running job immediately")
	return job.Run(ctx)
}
