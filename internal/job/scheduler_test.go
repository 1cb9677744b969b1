package job

import (
	"context"
	"testing"
	"time"

	"market-intel/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

type recordingRunner struct {
	modes []string
}

func (r *recordingRunner) Run(_ context.Context, mode string) (domain.RunResult, error) {
	r.modes = append(r.modes, mode)
	return domain.RunResult{Mode: mode, OverallSuccess: true}, nil
}

func TestUntilNextRunSameDay(t *testing.T) {
	s := NewScheduler(trace.NewNoopTracerProvider().Tracer("test"), &recordingRunner{}, 6)
	s.now = func() time.Time {
		return time.Date(2026, 8, 20, 4, 0, 0, 0, time.UTC)
	}
	if wait := s.untilNextRun(); wait != 2*time.Hour {
		t.Fatalf("wait = %v, want 2h", wait)
	}
}

func TestUntilNextRunRollsToTomorrow(t *testing.T) {
	s := NewScheduler(trace.NewNoopTracerProvider().Tracer("test"), &recordingRunner{}, 6)
	s.now = func() time.Time {
		return time.Date(2026, 8, 20, 6, 0, 0, 0, time.UTC)
	}
	if wait := s.untilNextRun(); wait != 24*time.Hour {
		t.Fatalf("wait at the scheduled instant = %v, want 24h", wait)
	}
}

func TestNewSchedulerClampsHour(t *testing.T) {
	s := NewScheduler(trace.NewNoopTracerProvider().Tracer("test"), &recordingRunner{}, 99)
	if s.hourUTC != 1 {
		t.Fatalf("hour = %d, want default 1", s.hourUTC)
	}
}

func TestFireInvokesRunnerAndHook(t *testing.T) {
	runner := &recordingRunner{}
	s := NewScheduler(trace.NewNoopTracerProvider().Tracer("test"), runner, 6)

	var hooked []domain.RunResult
	s.OnRunComplete(func(_ context.Context, r domain.RunResult) {
		hooked = append(hooked, r)
	})

	s.fire(context.Background())
	if len(runner.modes) != 1 || runner.modes[0] != domain.ModeDailySync {
		t.Fatalf("runner modes = %v", runner.modes)
	}
	if len(hooked) != 1 {
		t.Fatalf("hook calls = %d, want 1", len(hooked))
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	s := NewScheduler(trace.NewNoopTracerProvider().Tracer("test"), &recordingRunner{}, 6)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop on cancel")
	}
}
