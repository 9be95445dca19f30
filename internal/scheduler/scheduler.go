// Package scheduler drives periodic full scans on a cron interval,
// grounded on the teacher's service/cron.go use of robfig/cron (SPEC_FULL.md
// §5, §6.3).
package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/snapshotengine/dbsync/internal/domain"
	"github.com/snapshotengine/dbsync/internal/queue"
)

// Scheduler wraps a cron.Cron that enqueues a full scan on each tick. It
// never runs the scan inline: every tick is just an Enqueue call, so a slow
// or saturated queue degrades to ErrQueueFull rather than stalling the
// scheduler goroutine.
type Scheduler struct {
	cron  *cron.Cron
	queue *queue.Queue
}

// New builds a Scheduler that enqueues a full scan every intervalMinutes.
// runOnStartup, if true, also enqueues one scan immediately.
func New(intervalMinutes int, runOnStartup bool, q *queue.Queue) (*Scheduler, error) {
	if intervalMinutes <= 0 {
		intervalMinutes = 360
	}
	c := cron.New(cron.WithSeconds())
	spec := fmt.Sprintf("@every %dm", intervalMinutes)
	_, err := c.AddFunc(spec, func() {
		if err := q.Enqueue(queue.FullScanRequest(domain.TriggerScheduled, "")); err != nil {
			log.Printf("scheduler: scheduled scan not enqueued: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("scheduler: add cron entry: %w", err)
	}

	s := &Scheduler{cron: c, queue: q}
	if runOnStartup {
		if err := q.Enqueue(queue.FullScanRequest(domain.TriggerScheduled, "startup")); err != nil {
			log.Printf("scheduler: startup scan not enqueued: %v", err)
		}
	}
	return s, nil
}

// Start begins the cron loop; it returns immediately, the loop runs on its
// own goroutine per robfig/cron's design.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the cron loop, waiting for any in-flight tick to finish
// (which, since ticks only Enqueue, is always fast).
func (s *Scheduler) Stop(ctx context.Context) {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
}
