package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

type countingPublisher struct {
	calls atomic.Int64
	err   error
}

func (p *countingPublisher) PublishPending(_ context.Context) error {
	p.calls.Add(1)
	return p.err
}

func TestSchedulerInvokesPublisherOnTicks(t *testing.T) {
	pub := &countingPublisher{}
	s := New(pub, slog.Default(), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)

	deadline := time.After(2 * time.Second)
	for pub.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 2 ticks, got %d", pub.calls.Load())
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	cancel()
}

func TestSchedulerNoTicksBetweenIntervals(t *testing.T) {
	pub := &countingPublisher{}
	s := New(pub, slog.Default(), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)

	time.Sleep(50 * time.Millisecond)
	cancel()

	if got := pub.calls.Load(); got != 0 {
		t.Fatalf("no delivery expected before the first tick, got %d", got)
	}
}

func TestSchedulerKeepsTickingAfterError(t *testing.T) {
	pub := &countingPublisher{err: errors.New("db down")}
	s := New(pub, slog.Default(), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)

	deadline := time.After(2 * time.Second)
	for pub.calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("scheduler must keep ticking after errors, got %d calls", pub.calls.Load())
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	cancel()
}

func TestSchedulerStopsOnCancel(t *testing.T) {
	pub := &countingPublisher{}
	s := New(pub, slog.Default(), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after context cancellation")
	}
}

func TestDefaultInterval(t *testing.T) {
	s := New(&countingPublisher{}, slog.Default(), 0)
	if s.interval != 10*time.Second {
		t.Fatalf("default interval must be 10s, got %s", s.interval)
	}
}
