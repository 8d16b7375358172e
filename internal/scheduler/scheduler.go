// Package scheduler runs cron-gated maintenance jobs. It ticks once a
// minute and fires whichever jobs are due, so expressions stay plain
// crontab syntax with no custom parsing here.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/adhocore/gronx"
)

// Job is a named maintenance task. Expr returns the current cron
// expression so hot-reloaded config takes effect without restarting.
type Job struct {
	Name string
	Expr func() string
	Run  func(ctx context.Context)
}

// Scheduler fires registered jobs on their cron schedule.
type Scheduler struct {
	jobs []Job
	gron *gronx.Gronx
}

func New(jobs ...Job) *Scheduler {
	return &Scheduler{jobs: jobs, gron: gronx.New()}
}

// Start blocks until ctx is cancelled, checking jobs once per minute.
// A malformed expression disables its job for that tick only; the
// expression may be fixed by a config reload.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	for _, job := range s.jobs {
		expr := job.Expr()
		if expr == "" {
			continue
		}
		due, err := s.gron.IsDue(expr)
		if err != nil {
			slog.Warn("bad cron expression, skipping job", "job", job.Name, "expr", expr, "error", err)
			continue
		}
		if !due {
			continue
		}
		slog.Debug("running scheduled job", "job", job.Name)
		job.Run(ctx)
	}
}
