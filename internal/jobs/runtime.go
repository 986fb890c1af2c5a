// Package jobs runs long-lived, cancellable background work — pump
// schedule optimizations and time-series downsample tasks — behind a
// small command channel, following the spec's "(id, params, status,
// started_at, completed_at, result_or_error)" task model. A single
// worker goroutine is sufficient; Submit never blocks the caller past
// enqueue.
package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rijnland-waterbeheer/peilbeheer/internal/domain"
	"github.com/rs/zerolog"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Job is the externally observable record for one piece of submitted
// work.
type Job struct {
	ID          string
	Status      Status
	SubmittedAt time.Time
	StartedAt   time.Time
	CompletedAt time.Time
	Result      any
	Err         error
}

// Func is the unit of work a job runs. It must check ctx.Done()
// cooperatively at well-defined points (the DP solver checks at the
// start of each hour column).
type Func func(ctx context.Context) (any, error)

type entry struct {
	job    Job
	cancel context.CancelFunc
}

// Runtime is a single-worker background task queue with a bounded
// backlog. Submitting past capacity drops the newest submission and
// reports it, mirroring the spec's backpressure rule for the downsample
// queue: producers that would overflow the queue drop the enqueue and
// rely on the caller to resubmit.
type Runtime struct {
	log   zerolog.Logger
	queue chan work

	mu   sync.RWMutex
	jobs map[string]*entry

	shutdown chan struct{}
	once     sync.Once
}

type work struct {
	id  string
	fn  Func
	ctx context.Context
}

// NewRuntime starts a worker goroutine draining a queue of the given
// capacity.
func NewRuntime(log zerolog.Logger, queueCapacity int) *Runtime {
	r := &Runtime{
		log:      log,
		queue:    make(chan work, queueCapacity),
		jobs:     make(map[string]*entry),
		shutdown: make(chan struct{}),
	}
	go r.loop()
	return r
}

// Submit enqueues fn for background execution and returns its job id
// immediately. Returns a TemporaryFailure if the queue is full.
func (r *Runtime) Submit(fn Func) (string, error) {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())

	r.mu.Lock()
	r.jobs[id] = &entry{
		job:    Job{ID: id, Status: StatusQueued, SubmittedAt: time.Now()},
		cancel: cancel,
	}
	r.mu.Unlock()

	select {
	case r.queue <- work{id: id, fn: fn, ctx: ctx}:
		return id, nil
	default:
		cancel()
		r.mu.Lock()
		delete(r.jobs, id)
		r.mu.Unlock()
		r.log.Warn().Str("job_id", id).Msg("job queue full, dropping submission")
		return "", domain.TemporaryFailuref(nil, "job queue is full")
	}
}

// Get returns a snapshot of a job's current record.
func (r *Runtime) Get(id string) (Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.jobs[id]
	if !ok {
		return Job{}, domain.NotFoundf("job %s not found", id)
	}
	return e.job, nil
}

// Cancel requests cooperative cancellation of a running or queued job.
// The job transitions to StatusCancelled once its Func observes
// ctx.Done(); Cancel itself does not block.
func (r *Runtime) Cancel(id string) error {
	r.mu.RLock()
	e, ok := r.jobs[id]
	r.mu.RUnlock()
	if !ok {
		return domain.NotFoundf("job %s not found", id)
	}
	e.cancel()
	return nil
}

// Shutdown stops the worker loop after the in-flight job (if any)
// finishes or is cancelled. Safe to call more than once.
func (r *Runtime) Shutdown() {
	r.once.Do(func() { close(r.shutdown) })
}

func (r *Runtime) loop() {
	for {
		select {
		case <-r.shutdown:
			return
		case w := <-r.queue:
			r.run(w)
		}
	}
}

func (r *Runtime) run(w work) {
	r.mu.Lock()
	e := r.jobs[w.id]
	e.job.Status = StatusRunning
	e.job.StartedAt = time.Now()
	r.mu.Unlock()

	result, err := w.fn(w.ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	e.job.CompletedAt = time.Now()
	switch {
	case w.ctx.Err() != nil:
		e.job.Status = StatusCancelled
		e.job.Err = domain.Cancelledf("job %s cancelled", w.id)
	case err != nil:
		e.job.Status = StatusFailed
		e.job.Err = err
	default:
		e.job.Status = StatusCompleted
		e.job.Result = result
	}
}
