package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Options describe the daily trigger.
type Options struct {
	// At is the wall-clock trigger time, "15:04" form.
	At string
	// Timezone is the IANA zone the trigger time is interpreted in.
	Timezone string
}

// Scheduler fires a job once per day at a fixed local wall-clock time.
// Missed triggers (process down at the time) are not replayed; the job simply
// runs at the next day's trigger.
type Scheduler struct {
	cron   *cron.Cron
	spec   string
	logger zerolog.Logger
}

// New validates the options and builds the scheduler.
func New(opts Options, logger zerolog.Logger) (*Scheduler, error) {
	at := opts.At
	if at == "" {
		at = "10:00"
	}
	t, err := time.Parse("15:04", at)
	if err != nil {
		return nil, fmt.Errorf("parse schedule time %q: %w", at, err)
	}

	loc := time.Local
	if opts.Timezone != "" {
		loc, err = time.LoadLocation(opts.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load schedule timezone %q: %w", opts.Timezone, err)
		}
	}

	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		spec:   fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour()),
		logger: logger.With().Str("component", "scheduler").Logger(),
	}, nil
}

// Run blocks until ctx is cancelled, invoking job at each daily trigger. An
// in-flight job is allowed to finish before Run returns.
func (s *Scheduler) Run(ctx context.Context, job func(context.Context)) error {
	if _, err := s.cron.AddFunc(s.spec, func() { job(ctx) }); err != nil {
		return fmt.Errorf("register daily job: %w", err)
	}

	s.cron.Start()
	s.logger.Info().Str("cron", s.spec).Msg("daily schedule armed")

	<-ctx.Done()

	stopped := s.cron.Stop()
	<-stopped.Done()
	return ctx.Err()
}
