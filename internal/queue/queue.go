// Package queue is the bounded Scan Queue: a fixed-capacity FIFO in front
// of the Orchestrator so that concurrent scan requests (manual, on-demand,
// scheduled) never pile up unbounded (SPEC_FULL.md §4.7, §5).
package queue

import (
	"context"
	"fmt"
	"log"

	"github.com/snapshotengine/dbsync/internal/domain"
	"github.com/snapshotengine/dbsync/internal/orchestrator"
	"github.com/snapshotengine/dbsync/internal/repository"
)

// Request is one enqueued scan request. A zero TenantID means a full scan of
// every configured target; ScanAll is not consulted for that decision.
// Callers build a Request through the constructors below.
type Request struct {
	ScanAll     bool
	TenantID    uint
	Environment domain.Environment
	Trigger     domain.ScanTrigger
	TriggeredBy string
	Include     bool // passed to the Scanner as scanAll: true ignores the tracked-objects filter

	result chan<- result
}

type result struct {
	log *repository.ScanLog
	err error
}

// FullScanRequest builds a Request that scans every configured target.
func FullScanRequest(trigger domain.ScanTrigger, triggeredBy string) Request {
	return Request{ScanAll: false, Trigger: trigger, TriggeredBy: triggeredBy}
}

// SingleScanRequest builds a Request for one tenant (and optionally one
// environment; an empty environment means all of that tenant's
// environments).
func SingleScanRequest(tenantID uint, environment domain.Environment, trigger domain.ScanTrigger, triggeredBy string) Request {
	return Request{TenantID: tenantID, Environment: environment, Trigger: trigger, TriggeredBy: triggeredBy}
}

func (r Request) isFullScan() bool {
	return r.TenantID == 0
}

// Queue is a bounded FIFO of scan Requests drained by a single worker
// goroutine, matching the spec's "the queue holds at most N pending scan
// requests; the N+1th enqueue attempt fails rather than blocking or
// silently dropping" rule (spec.md §4.5, §5).
type Queue struct {
	requests chan Request
	scanner  *orchestrator.Scanner

	maxParallelTenants int
}

// New builds a Queue with the given capacity; it does not start the worker
// loop, callers must call Run in its own goroutine.
func New(capacity int, scanner *orchestrator.Scanner, maxParallelTenants int) *Queue {
	if capacity <= 0 {
		capacity = 10
	}
	return &Queue{
		requests:           make(chan Request, capacity),
		scanner:            scanner,
		maxParallelTenants: maxParallelTenants,
	}
}

// ErrQueueFull is returned by Enqueue when the queue is at capacity; the
// caller decides whether to surface this to a user as a 503 or drop the
// request, the Queue itself never blocks the caller and never silently
// drops a request that it accepted.
var ErrQueueFull = fmt.Errorf("queue: at capacity")

// Enqueue appends req to the queue. It returns ErrQueueFull immediately if
// the queue has no spare capacity, rather than blocking the caller (a gin
// handler goroutine) indefinitely.
func (q *Queue) Enqueue(req Request) error {
	select {
	case q.requests <- req:
		return nil
	default:
		return ErrQueueFull
	}
}

// EnqueueAndWait appends req and blocks until the corresponding scan
// finishes, for callers (synchronous HTTP handlers) that want the
// ScanLog result rather than a fire-and-forget accept.
func (q *Queue) EnqueueAndWait(ctx context.Context, req Request) (*repository.ScanLog, error) {
	ch := make(chan result, 1)
	req.result = ch
	if err := q.Enqueue(req); err != nil {
		return nil, err
	}
	select {
	case res := <-ch:
		return res.log, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run drains the queue with a single worker, one request at a time. It
// blocks until ctx is cancelled, at which point it drains no further
// requests — anything still queued is abandoned, matching "the queue
// does not persist across process restarts" (spec.md §4.5).
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-q.requests:
			q.process(ctx, req)
		}
	}
}

func (q *Queue) process(ctx context.Context, req Request) {
	var scanLog *repository.ScanLog
	var err error

	if req.isFullScan() {
		scanLog, err = q.scanner.RunFullScan(ctx, req.Trigger, req.TriggeredBy, q.maxParallelTenants, req.Include)
	} else {
		scanLog, err = q.scanner.RunSingleScan(ctx, req.TenantID, req.Environment, req.Trigger, req.TriggeredBy, req.Include)
	}

	if err != nil {
		log.Printf("queue: scan request failed: %v", err)
	}
	if req.result != nil {
		req.result <- result{log: scanLog, err: err}
	}
}
