package scheduler

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
)

// Handle is a live recurring timer. Stop prevents any future firings; an
// invocation already in flight may still complete, which is safe because
// every firing re-checks the store before acting.
type Handle interface {
	Stop()
}

// Timer creates recurring timers from five-field cron specs evaluated in UTC.
type Timer interface {
	Schedule(spec string, task func()) (Handle, error)
}

// CronTimer implements Timer on top of gocron. Jobs run on their own
// goroutines, so a slow delivery for one user never delays another user's
// firings.
type CronTimer struct {
	scheduler *gocron.Scheduler
}

// NewCronTimer creates and starts a UTC gocron scheduler.
func NewCronTimer() *CronTimer {
	s := gocron.NewScheduler(time.UTC)
	s.StartAsync()
	return &CronTimer{scheduler: s}
}

// Schedule registers a recurring job for the given cron spec.
func (t *CronTimer) Schedule(spec string, task func()) (Handle, error) {
	job, err := t.scheduler.Cron(spec).Do(task)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule %q: %w", spec, err)
	}
	return &cronHandle{scheduler: t.scheduler, job: job}, nil
}

// Stop terminates the underlying scheduler and all its jobs.
func (t *CronTimer) Stop() {
	t.scheduler.Stop()
}

type cronHandle struct {
	scheduler *gocron.Scheduler
	job       *gocron.Job
}

func (h *cronHandle) Stop() {
	h.scheduler.RemoveByReference(h.job)
}
