package rendercore

import "sync"

// commandQueue is the blocking FIFO between the scheduler bridge and the
// render thread.
//
// The queue owns its tasks outright in a growable ring buffer; there are
// no intrusive links. Enqueue appends and signals the wait condition once
// per item; dequeueBlocking sleeps until an item (or the shutdown marker)
// is available. All critical sections are O(1) apart from the rare ring
// growth.
//
// Concurrency contract: enqueue is serialized by the scheduler bridge's
// chaining (each enqueue job runs only after the previous one finished),
// but the lock makes the queue safe even without that property.
// dequeueBlocking is called only by the render thread.
type commandQueue struct {
	mu   sync.Mutex
	cond *sync.Cond

	ring []*task
	head int
	n    int

	// closed is set when the render thread begins draining; tasks
	// enqueued afterwards are discarded by the caller.
	closed bool
}

func newCommandQueue() *commandQueue {
	q := &commandQueue{ring: make([]*task, 16)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// enqueue appends t and wakes the render thread. It reports false if the
// queue has been closed by shutdown, in which case the task was not added
// and the caller must discard it.
func (q *commandQueue) enqueue(t *task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	if q.n == len(q.ring) {
		q.grow()
	}
	q.ring[(q.head+q.n)%len(q.ring)] = t
	q.n++
	q.cond.Signal()
	return true
}

// dequeueBlocking removes and returns the oldest task, sleeping while the
// queue is empty. Only the render thread calls this.
func (q *commandQueue) dequeueBlocking() *task {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.n == 0 {
		q.cond.Wait()
	}

	t := q.ring[q.head]
	q.ring[q.head] = nil
	q.head = (q.head + 1) % len(q.ring)
	q.n--
	return t
}

// close marks the queue as draining and returns any tasks still queued.
// Called once, by the render thread, after it dequeues the shutdown marker.
func (q *commandQueue) close() []*task {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	remaining := make([]*task, 0, q.n)
	for q.n > 0 {
		remaining = append(remaining, q.ring[q.head])
		q.ring[q.head] = nil
		q.head = (q.head + 1) % len(q.ring)
		q.n--
	}
	return remaining
}

// len reports the number of queued tasks.
func (q *commandQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.n
}

// grow doubles the ring capacity. Caller holds q.mu.
func (q *commandQueue) grow() {
	bigger := make([]*task, len(q.ring)*2)
	for i := range q.n {
		bigger[i] = q.ring[(q.head+i)%len(q.ring)]
	}
	q.ring = bigger
	q.head = 0
}
