package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	businessflow "github.com/treebio/treebio/business_flow"
)

// RetentionJob deletes event rows past the retention horizon on a cron
// schedule. Entities are never touched, only the append-only event tables.
type RetentionJob struct {
	eventFlow     businessflow.EventFlow
	schedule      string
	retentionDays int

	c *cron.Cron
}

// NewRetentionJob creates a retention job with a standard cron schedule
func NewRetentionJob(eventFlow businessflow.EventFlow, schedule string, retentionDays int) *RetentionJob {
	if schedule == "" {
		schedule = "0 4 * * *"
	}
	if retentionDays <= 0 {
		retentionDays = 365
	}
	return &RetentionJob{
		eventFlow:     eventFlow,
		schedule:      schedule,
		retentionDays: retentionDays,
	}
}

// Start registers the cron entry and returns a stop function
func (j *RetentionJob) Start() (func(), error) {
	j.c = cron.New()
	if _, err := j.c.AddFunc(j.schedule, j.runOnce); err != nil {
		return nil, err
	}
	j.c.Start()
	log.Printf("retention: scheduled %q keeping %d days of events", j.schedule, j.retentionDays)

	return func() {
		stopCtx := j.c.Stop()
		<-stopCtx.Done()
	}, nil
}

func (j *RetentionJob) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	views, clicks, err := j.eventFlow.PruneOlderThan(ctx, j.retentionDays)
	if err != nil {
		log.Printf("retention: prune failed: %v", err)
		return
	}
	log.Printf("retention: pruned %d page views and %d link clicks", views, clicks)
}
