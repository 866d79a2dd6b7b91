package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextDailyTimeBeforeTarget(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local)
	next := nextDailyTime(now, 15, 10)
	assert.Equal(t, time.Date(2026, 3, 2, 15, 10, 0, 0, time.Local), next)
}

func TestNextDailyTimeAfterTargetRollsOver(t *testing.T) {
	now := time.Date(2026, 3, 2, 16, 0, 0, 0, time.Local)
	next := nextDailyTime(now, 15, 10)
	assert.Equal(t, time.Date(2026, 3, 3, 15, 10, 0, 0, time.Local), next)
}

func TestNextDailyTimeExactlyAtTargetRollsOver(t *testing.T) {
	now := time.Date(2026, 3, 2, 15, 10, 0, 0, time.Local)
	next := nextDailyTime(now, 15, 10)
	assert.Equal(t, time.Date(2026, 3, 3, 15, 10, 0, 0, time.Local), next, "strictly after now")
}

func TestStartRunImmediatelyThenCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewDailyScheduler(ctx, "15:10", true)
	s.Name = "test"

	ran := make(chan struct{}, 1)
	go s.Start(func() error {
		ran <- struct{}{}
		cancel()
		return nil
	})

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("immediate run did not fire")
	}
}

func TestStartInvalidRunAtReturns(t *testing.T) {
	s := NewDailyScheduler(context.Background(), "nope", false)
	done := make(chan struct{})
	go func() {
		s.Start(func() error { return nil })
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return on invalid run_at")
	}
}

func TestTaskErrorDoesNotStopLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewDailyScheduler(ctx, "15:10", true)

	var calls atomic.Int32
	done := make(chan struct{})
	go func() {
		s.Start(func() error {
			if calls.Add(1) == 1 {
				cancel()
			}
			return assert.AnError
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
	assert.GreaterOrEqual(t, calls.Load(), int32(1), "failed task must still have run")
}
