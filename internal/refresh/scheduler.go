package refresh

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"

	"github.com/i474232898/spaceweather/internal/weather"
)

// DefaultInterval is the periodic refresh interval.
const DefaultInterval = 5 * time.Minute

// Submitter accepts refresh requests. *Worker implements it.
type Submitter interface {
	Submit(trigger weather.Trigger, query string) weather.Request
}

// Scheduler produces the startup trigger and periodic triggers.
type Scheduler struct {
	scheduler *gocron.Scheduler
	submitter Submitter
	interval  time.Duration
	cronExpr  string
	logger    zerolog.Logger
}

// NewScheduler creates a Scheduler. A non-empty cronExpr takes precedence over interval.
func NewScheduler(submitter Submitter, interval time.Duration, cronExpr string, logger zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		submitter: submitter,
		interval:  interval,
		cronExpr:  cronExpr,
		logger:    logger,
	}
}

// Start schedules the periodic job, submits the startup refresh and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	var job *gocron.Scheduler
	if s.cronExpr != "" {
		job = s.scheduler.Cron(s.cronExpr)
	} else {
		job = s.scheduler.Every(s.interval)
	}

	_, err := job.SingletonMode().WaitForSchedule().Do(func() {
		req := s.submitter.Submit(weather.TriggerPeriodic, "")
		s.logger.Debug().Uint64("generation", req.Generation).Msg("periodic refresh submitted")
	})
	if err != nil {
		return fmt.Errorf("schedule refresh: %w", err)
	}

	req := s.submitter.Submit(weather.TriggerStartup, "")
	s.logger.Info().
		Uint64("generation", req.Generation).
		Dur("interval", s.interval).
		Str("cron", s.cronExpr).
		Msg("scheduler started")

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
