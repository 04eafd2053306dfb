// Package executor implements the parallel task executor (C10, contract
// only): a fixed worker pool fed through an unbuffered channel (there is
// no task queue; a pooled submission blocks until a worker takes it), plus
// a per-task lightweight-goroutine submission path (§4.7). The workers run
// under golang.org/x/sync/errgroup; waiting for all submitted tasks is done
// with pending/active counters and a sync.Cond (AwaitCompletion).
package executor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"dicore/pkg/dierr"
)

// Task is a unit of independent work submitted to the executor. No
// ordering guarantees hold between tasks (§4.7).
type Task func(ctx context.Context) error

// Executor is the fixed-size worker pool. It has no buffered queue: the
// task channel is unbuffered. Go has no pool/lightweight-thread
// distinction the way a JVM does — goroutines are already cheap — so
// "submit to the pool" vs. "submit lightweight" is simply whether the task
// runs on one of the fixed workers (SubmitPooled, which waits for a free
// worker) or is dispatched as its own goroutine immediately
// (SubmitLightweight); both paths share the same completion bookkeeping.
type Executor struct {
	poolSize int
	tasks    chan Task
	onError  func(error)

	mu       sync.Mutex
	group    *errgroup.Group
	groupCtx context.Context
	cancel   context.CancelFunc

	pending atomic.Int64
	active  atomic.Int64

	shutdownMu sync.Mutex
	shutdown   bool
	shutdownCh chan struct{}

	cond *sync.Cond
}

// New builds an Executor with poolSize fixed workers. poolSize must be
// positive. onError, if non-nil, is invoked with every non-nil per-task
// error (including a recovered panic); it may be called concurrently from
// any worker or lightweight goroutine and must not block (§4.7's "reported
// to the caller via an error sink").
func New(poolSize int, onError func(error)) (*Executor, error) {
	if poolSize <= 0 {
		return nil, dierr.New(dierr.DomainFailure, "executor pool size must be positive, got %d", poolSize)
	}
	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	e := &Executor{
		poolSize:   poolSize,
		tasks:      make(chan Task),
		onError:    onError,
		group:      g,
		groupCtx:   gctx,
		cancel:     cancel,
		shutdownCh: make(chan struct{}),
	}
	e.cond = sync.NewCond(&sync.Mutex{})
	for i := 0; i < poolSize; i++ {
		e.group.Go(e.worker)
	}
	return e, nil
}

func (e *Executor) worker() error {
	for {
		select {
		case t, ok := <-e.tasks:
			if !ok {
				return nil
			}
			e.runTask(t)
		case <-e.groupCtx.Done():
			return nil
		}
	}
}

func (e *Executor) runTask(t Task) {
	e.active.Add(1)
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = dierr.New(dierr.InternalInvariant, "task panicked: %v", r)
			}
		}()
		return t(e.groupCtx)
	}()
	e.active.Add(-1)
	e.pending.Add(-1)
	e.cond.L.Lock()
	e.cond.Broadcast()
	e.cond.L.Unlock()
	if err != nil && e.onError != nil {
		e.onError(err)
	}
}

// SubmitPooled hands task to one of the fixed workers, blocking until a
// worker receives it; tasks are not queued, so with every worker busy the
// call does not return until one frees up. It returns IllegalState if the
// executor has been shut down. The shutdown check and
// the channel send are serialized under the same lock Shutdown uses to
// close the queue, so a submission never races a concurrent shutdown into
// a send on a closed channel.
func (e *Executor) SubmitPooled(task Task) error {
	e.shutdownMu.Lock()
	defer e.shutdownMu.Unlock()
	if e.shutdown {
		return dierr.New(dierr.IllegalState, "executor is shut down")
	}
	e.pending.Add(1)
	select {
	case e.tasks <- task:
		return nil
	case <-e.groupCtx.Done():
		e.pending.Add(-1)
		return dierr.New(dierr.IllegalState, "executor is shut down")
	}
}

// SubmitLightweight dispatches task on its own goroutine immediately,
// bypassing the fixed workers (the "per-task lightweight-thread
// executor" variant from §4.7 — Go has no separate lightweight-thread
// runtime to fall back from, so this always succeeds as a bare goroutine).
func (e *Executor) SubmitLightweight(task Task) error {
	e.shutdownMu.Lock()
	if e.shutdown {
		e.shutdownMu.Unlock()
		return dierr.New(dierr.IllegalState, "executor is shut down")
	}
	e.pending.Add(1)
	e.shutdownMu.Unlock()
	go e.runTask(task)
	return nil
}

func (e *Executor) isShutdown() bool {
	e.shutdownMu.Lock()
	defer e.shutdownMu.Unlock()
	return e.shutdown
}

// PendingTasks returns the queued-plus-running task count.
func (e *Executor) PendingTasks() int64 { return e.pending.Load() }

// ActiveTasks returns the currently-running task count.
func (e *Executor) ActiveTasks() int64 { return e.active.Load() }

// AwaitCompletion blocks until pending reaches zero. Completion
// notification wakes all waiters; a submission that arrives while waiters
// are parked simply extends the wait, since waiters recheck the counter
// under the condition variable's lock rather than trusting a single wake
// (§4.7).
func (e *Executor) AwaitCompletion() {
	e.cond.L.Lock()
	for e.pending.Load() > 0 {
		e.cond.Wait()
	}
	e.cond.L.Unlock()
}

// AwaitCompletionTimeout blocks until pending reaches zero or timeout
// elapses, returning whether it reached zero in time.
func (e *Executor) AwaitCompletionTimeout(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		e.AwaitCompletion()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Shutdown forbids new submissions and lets already-queued/running tasks
// finish.
func (e *Executor) Shutdown() {
	e.shutdownMu.Lock()
	if !e.shutdown {
		e.shutdown = true
		close(e.tasks)
	}
	e.shutdownMu.Unlock()
}

// ShutdownNow forbids new submissions and interrupts workers immediately
// by canceling the shared context; tasks that respect ctx.Done() stop
// early.
func (e *Executor) ShutdownNow() {
	e.Shutdown()
	e.cancel()
}

// Close is graceful Shutdown followed by a bounded await.
func (e *Executor) Close(timeout time.Duration) bool {
	e.Shutdown()
	ok := e.AwaitCompletionTimeout(timeout)
	e.cancel()
	_ = e.group.Wait()
	return ok
}
