package job

import (
	"context"
	"log"
	"time"

	"market-intel/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// Runner triggers one full ingestion cycle.
type Runner interface {
	Run(ctx context.Context, mode string) (domain.RunResult, error)
}

// Scheduler fires a daily-sync run once per day at a fixed UTC hour.
// The upstream sources publish daily data, so anything more frequent
// just burns rate limits.
type Scheduler struct {
	tracer  trace.Tracer
	runner  Runner
	hourUTC int
	onRun   func(context.Context, domain.RunResult)

	now func() time.Time
}

func NewScheduler(tracer trace.Tracer, runner Runner, hourUTC int) *Scheduler {
	if hourUTC < 0 || hourUTC > 23 {
		hourUTC = 1
	}
	return &Scheduler{
		tracer:  tracer,
		runner:  runner,
		hourUTC: hourUTC,
		now:     time.Now,
	}
}

// OnRunComplete registers a hook invoked after every scheduled run.
func (s *Scheduler) OnRunComplete(fn func(context.Context, domain.RunResult)) {
	s.onRun = fn
}

// Start blocks until ctx is cancelled, firing a run at each scheduled
// time. A run that overlaps the next slot delays it; runs never stack.
func (s *Scheduler) Start(ctx context.Context) {
	log.Printf("scheduler: daily sync at %02d:00 UTC", s.hourUTC)
	for {
		wait := s.untilNextRun()
		select {
		case <-ctx.Done():
			log.Println("scheduler: stopped")
			return
		case <-time.After(wait):
		}
		s.fire(ctx)
	}
}

func (s *Scheduler) fire(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "scheduler.daily-sync")
	defer span.End()

	result, err := s.runner.Run(ctx, domain.ModeDailySync)
	if err != nil {
		log.Printf("scheduler: run error: %v", err)
		span.RecordError(err)
		return
	}
	if !result.OverallSuccess {
		log.Printf("scheduler: run finished with failures: %v", result.AllErrors())
	}
	if s.onRun != nil {
		s.onRun(ctx, result)
	}
}

// untilNextRun returns the wait until the next scheduled UTC hour,
// never zero so a finished run cannot immediately retrigger.
func (s *Scheduler) untilNextRun() time.Duration {
	now := s.now().UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hourUTC, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
