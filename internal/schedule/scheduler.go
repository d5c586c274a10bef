// Package schedule runs recurring jobs, currently just the periodic Drive
// re-sync.
package schedule

import (
	"time"

	"github.com/go-co-op/gocron"
)

// Scheduler wraps gocron with tagged jobs.
type Scheduler struct {
	scheduler *gocron.Scheduler
}

func NewScheduler() *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()
	return &Scheduler{scheduler: s}
}

// Start starts the scheduler in the background.
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// Cron schedules job under tag using a cron expression.
func (s *Scheduler) Cron(tag, cronExpr string, job func() error) error {
	_, err := s.scheduler.Cron(cronExpr).Tag(tag).Do(job)
	return err
}
