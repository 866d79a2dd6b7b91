// Package scheduler runs the daily trading cycle at a fixed local wall-clock
// time, once per calendar day.
package scheduler

import (
	"context"
	"time"

	"etfbot/internal/logger"
)

type DailyScheduler struct {
	Name           string
	RunAt          string // "HH:MM" local time
	RunImmediately bool

	ctx   context.Context
	nowFn func() time.Time
}

func NewDailyScheduler(ctx context.Context, runAt string, runImmediately bool) *DailyScheduler {
	if ctx == nil {
		ctx = context.Background()
	}
	return &DailyScheduler{
		RunAt:          runAt,
		RunImmediately: runImmediately,
		ctx:            ctx,
		nowFn:          time.Now,
	}
}

// Start blocks, invoking task once per day at RunAt until the context is
// cancelled. Task errors are logged and do not stop the loop: a failed day is
// a gap in the equity history, and the next day runs normally.
func (s *DailyScheduler) Start(task func() error) {
	if s == nil {
		return
	}
	if task == nil {
		logger.Warnf("DailyScheduler: task is nil, exit")
		return
	}
	runAt, err := time.Parse("15:04", s.RunAt)
	if err != nil {
		logger.Warnf("DailyScheduler: invalid run_at=%q, exit", s.RunAt)
		return
	}
	if s.ctx == nil {
		s.ctx = context.Background()
	}
	if s.nowFn == nil {
		s.nowFn = time.Now
	}

	prefix := "DailyScheduler"
	if s.Name != "" {
		prefix = prefix + "[" + s.Name + "]"
	}
	startAt := s.nowFn()
	logger.Infof("%s: started run_at=%s run_immediately=%v at=%s",
		prefix, s.RunAt, s.RunImmediately, startAt.Format(time.RFC3339))

	if s.RunImmediately {
		logger.Infof("%s: RunImmediately=true, execute once before first alignment", prefix)
		s.runTask(prefix, task)
	}

	for {
		now := s.nowFn()
		nextAt := nextDailyTime(now, runAt.Hour(), runAt.Minute())
		wait := nextAt.Sub(now)
		logger.Infof("%s: next run=%s (in %s) | uptime=%s",
			prefix,
			nextAt.Format(time.RFC3339),
			wait.Truncate(time.Second),
			now.Sub(startAt).Truncate(time.Second),
		)
		if !s.waitUntil(nextAt) {
			return
		}
		s.runTask(prefix, task)
	}
}

func (s *DailyScheduler) runTask(prefix string, task func() error) {
	if err := task(); err != nil {
		logger.Errorf("%s: cycle failed: %v", prefix, err)
	}
}

func (s *DailyScheduler) waitUntil(target time.Time) bool {
	now := s.nowFn()
	wait := target.Sub(now)
	if wait <= 0 {
		select {
		case <-s.ctx.Done():
			logger.Infof("DailyScheduler: ctx done, exit")
			return false
		default:
			return true
		}
	}

	timer := time.NewTimer(wait)
	select {
	case <-s.ctx.Done():
		timer.Stop()
		logger.Infof("DailyScheduler: ctx done, exit")
		return false
	case <-timer.C:
		return true
	}
}

// nextDailyTime returns the next occurrence of hh:mm strictly after now, in
// now's location.
func nextDailyTime(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
