package jobs

import (
	"sync"
	"time"
)

// Queue is an unbounded FIFO of media file paths shared between the UI
// and the single background worker. Every enqueued path counts toward
// Join until a matching MarkDone call, regardless of outcome.
type Queue struct {
	mu         sync.Mutex
	cond       *sync.Cond
	items      []string
	unfinished int
	wake       chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	q := &Queue{wake: make(chan struct{}, 1)}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends path and counts it toward Join.
func (q *Queue) Enqueue(path string) {
	q.mu.Lock()
	q.items = append(q.items, path)
	q.unfinished++
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Dequeue removes and returns the oldest path, waiting up to timeout
// for one to arrive. The second return is false on timeout.
func (q *Queue) Dequeue(timeout time.Duration) (string, bool) {
	deadline := time.Now().Add(timeout)
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			path := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return path, true
		}
		q.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", false
		}

		timer := time.NewTimer(remaining)
		select {
		case <-q.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// MarkDone records completion of one dequeued path. Calling it more
// times than Enqueue is a programmer error and panics, mirroring
// sync.WaitGroup.
func (q *Queue) MarkDone() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.unfinished == 0 {
		panic("jobs: MarkDone called more times than Enqueue")
	}
	q.unfinished--
	if q.unfinished == 0 {
		q.cond.Broadcast()
	}
}

// Join blocks until every enqueued path has been marked done.
func (q *Queue) Join() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.unfinished > 0 {
		q.cond.Wait()
	}
}

// Len reports how many paths are waiting to be dequeued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Unfinished reports enqueued paths not yet marked done, including the
// one currently being processed.
func (q *Queue) Unfinished() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.unfinished
}
