// Package jobs provides the task scheduler used by the render pipeline.
//
// A Pool runs submitted functions on a fixed set of worker goroutines.
// Ordering between tasks is expressed with Signals: Run schedules a
// function after a set of precondition signals and returns a completion
// signal for the new task. Counters and Gates cover the two counting
// patterns the renderer needs: "all setup jobs finished" and bounded
// frames-in-flight pacing.
package jobs

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool is a pool of goroutines for scheduler tasks.
//
// The pool distributes work items across multiple workers, each with their own
// queue. Workers can steal work from other workers when their own queue is empty.
// This helps balance load when some tasks are slower than others.
//
// Thread safety: Pool is safe for concurrent use.
type Pool struct {
	// workers is the number of worker goroutines.
	workers int

	// workQueues holds per-worker work queues.
	// Each worker primarily pulls from its own queue but can steal from others.
	workQueues []chan func()

	// done signals workers to stop.
	done chan struct{}

	// wg waits for all workers to finish.
	wg sync.WaitGroup

	// running indicates whether the pool is accepting work.
	running atomic.Bool

	// next selects the queue for round-robin submission.
	next atomic.Uint64
}

// NewPool creates a new pool with the specified number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
// The pool starts immediately and workers begin waiting for work.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	queueSize := workers * 4
	if queueSize < 8 {
		queueSize = 8
	}

	p := &Pool{
		workers:    workers,
		workQueues: make([]chan func(), workers),
		done:       make(chan struct{}),
	}

	for i := range workers {
		p.workQueues[i] = make(chan func(), queueSize)
	}

	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}

	return p
}

// worker is the main loop for each worker goroutine.
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	myQueue := p.workQueues[id]

	for {
		select {
		case <-p.done:
			p.drainQueue(myQueue)
			return

		case work := <-myQueue:
			if work != nil {
				work()
			}

		default:
			if stolen := p.steal(id); stolen != nil {
				stolen()
			} else {
				// No work available anywhere, block on own queue
				select {
				case <-p.done:
					p.drainQueue(myQueue)
					return
				case work := <-myQueue:
					if work != nil {
						work()
					}
				}
			}
		}
	}
}

// drainQueue executes all remaining work in a queue.
func (p *Pool) drainQueue(queue chan func()) {
	for {
		select {
		case work := <-queue:
			if work != nil {
				work()
			}
		default:
			return
		}
	}
}

// steal attempts to take work from another worker's queue.
// Returns nil if no work is available.
func (p *Pool) steal(myID int) func() {
	for i := range p.workers {
		if i == myID {
			continue
		}

		select {
		case work := <-p.workQueues[i]:
			return work
		default:
			// Queue is empty, try next
		}
	}
	return nil
}

// Run schedules fn to execute once every precondition in after has
// completed, and returns a Signal that completes when fn returns.
//
// Nil preconditions are treated as already completed. If every
// precondition is already satisfied, fn is handed straight to a worker.
// Otherwise a waiter goroutine parks on the pending signals and submits
// fn when the last one completes; workers are never blocked waiting on
// preconditions, so chains deeper than the worker count cannot deadlock.
//
// If the pool has been closed, fn runs synchronously on the caller's
// goroutine. This keeps the returned signal's completion guarantee:
// a signal returned by Run always eventually completes.
func (p *Pool) Run(fn func(), after ...*Signal) *Signal {
	sig := NewSignal()
	task := func() {
		defer sig.Complete()
		fn()
	}

	var pending []*Signal
	for _, s := range after {
		if !s.Completed() {
			pending = append(pending, s)
		}
	}

	if len(pending) == 0 {
		p.submit(task)
		return sig
	}

	go func() {
		for _, s := range pending {
			s.Wait()
		}
		p.submit(task)
	}()
	return sig
}

// Submit schedules fn with no preconditions and returns its completion signal.
func (p *Pool) Submit(fn func()) *Signal {
	return p.Run(fn)
}

// submit hands a task to the next worker queue, or runs it on the caller
// if the pool is closed.
func (p *Pool) submit(task func()) {
	if !p.running.Load() {
		task()
		return
	}

	id := int(p.next.Add(1)) % p.workers
	select {
	case p.workQueues[id] <- task:
	case <-p.done:
		task()
	}
}

// Close gracefully shuts down the pool.
// It stops accepting new work, waits for all queued work to complete,
// and then stops all workers.
// Close is safe to call multiple times.
func (p *Pool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}

	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *Pool) Workers() int {
	return p.workers
}

// IsRunning returns true if the pool is still accepting work.
func (p *Pool) IsRunning() bool {
	return p.running.Load()
}
