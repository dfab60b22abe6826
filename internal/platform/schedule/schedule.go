// Package schedule runs a job on a cron expression, never overlapping runs.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	// Embed tzdata for environments without zoneinfo.
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const (
	logFieldSpec = "spec"
	logFieldNext = "next_run"
)

// Static errors for schedule validation.
var (
	ErrEmptySpec   = errors.New("cron expression is empty")
	ErrInvalidSpec = errors.New("invalid cron expression")
)

var timezoneAliases = map[string]string{
	"Canada/Eastern": "America/Toronto",
	"Canada/Pacific": "America/Vancouver",
}

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Scheduler fires a Job on a standard five-field cron expression.
type Scheduler struct {
	spec     string
	schedule cron.Schedule
	loc      *time.Location
	logger   *zerolog.Logger
}

// New validates spec and timezone. An empty timezone means UTC.
func New(spec, timezone string, logger *zerolog.Logger) (*Scheduler, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, ErrEmptySpec
	}

	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidSpec, spec, err)
	}

	loc, err := Location(timezone)
	if err != nil {
		return nil, err
	}

	return &Scheduler{spec: spec, schedule: sched, loc: loc, logger: logger}, nil
}

// Location resolves a timezone name, honoring legacy aliases.
func Location(timezone string) (*time.Location, error) {
	if strings.TrimSpace(timezone) == "" {
		return time.UTC, nil
	}

	loc, err := time.LoadLocation(NormalizeTimezone(timezone))
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %w", err)
	}

	return loc, nil
}

// NormalizeTimezone maps deprecated zone names to their canonical form.
func NormalizeTimezone(value string) string {
	value = strings.TrimSpace(value)
	if alias, ok := timezoneAliases[value]; ok {
		return alias
	}

	return value
}

// Next returns the first fire time after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.loc))
}

// Run blocks until ctx is done, firing job on schedule. A tick that arrives
// while the previous run is still going is skipped. Job errors are logged
// and do not stop the scheduler.
func (s *Scheduler) Run(ctx context.Context, job Job) error {
	adapter := cronLogger{logger: s.logger}

	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithLogger(adapter),
		cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
	)

	c.Schedule(s.schedule, cron.FuncJob(func() {
		if err := job(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error().Err(err).Msg("scheduled run failed")
		}

		s.logger.Info().Time(logFieldNext, s.Next(time.Now())).Msg("waiting for next run")
	}))

	s.logger.Info().
		Str(logFieldSpec, s.spec).
		Time(logFieldNext, s.Next(time.Now())).
		Msg("scheduler started")

	c.Start()

	<-ctx.Done()

	<-c.Stop().Done()

	s.logger.Info().Msg("scheduler stopped")

	return fmt.Errorf("scheduler: %w", ctx.Err())
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger *zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
