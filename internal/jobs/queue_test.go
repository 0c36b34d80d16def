package jobs

import (
	"testing"
	"time"
)

// TestQueueFIFOOrder verifies dequeue order matches enqueue order.
func TestQueueFIFOOrder(t *testing.T) {
	q := NewQueue()
	q.Enqueue("a.mp4")
	q.Enqueue("b.mp4")
	q.Enqueue("c.mp4")

	for _, want := range []string{"a.mp4", "b.mp4", "c.mp4"} {
		got, ok := q.Dequeue(10 * time.Millisecond)
		if !ok {
			t.Fatalf("dequeue returned no item, want %s", want)
		}
		if got != want {
			t.Fatalf("dequeue = %s, want %s", got, want)
		}
	}
}

// TestQueueDequeueTimesOutWhenEmpty verifies the bounded wait.
func TestQueueDequeueTimesOutWhenEmpty(t *testing.T) {
	q := NewQueue()

	start := time.Now()
	if _, ok := q.Dequeue(20 * time.Millisecond); ok {
		t.Fatal("dequeue on empty queue returned an item")
	}
	if time.Since(start) > time.Second {
		t.Fatal("dequeue blocked far beyond its timeout")
	}
}

// TestQueueDequeueWakesOnEnqueue verifies a waiting consumer is woken.
func TestQueueDequeueWakesOnEnqueue(t *testing.T) {
	q := NewQueue()

	go func() {
		time.Sleep(20 * time.Millisecond)
		q.Enqueue("late.mp4")
	}()

	got, ok := q.Dequeue(2 * time.Second)
	if !ok {
		t.Fatal("dequeue timed out waiting for enqueue")
	}
	if got != "late.mp4" {
		t.Fatalf("dequeue = %s, want late.mp4", got)
	}
}

// TestQueueJoinWaitsForMarkDone verifies Join releases only after
// every enqueued item is marked done.
func TestQueueJoinWaitsForMarkDone(t *testing.T) {
	q := NewQueue()
	q.Enqueue("a.mp4")
	q.Enqueue("b.mp4")

	joined := make(chan struct{})
	go func() {
		q.Join()
		close(joined)
	}()

	q.MarkDone()
	select {
	case <-joined:
		t.Fatal("join returned with one item still unfinished")
	case <-time.After(20 * time.Millisecond):
	}

	q.MarkDone()
	select {
	case <-joined:
	case <-time.After(2 * time.Second):
		t.Fatal("join did not return after all items were marked done")
	}
}

// TestQueueJoinReturnsImmediatelyWhenIdle verifies the no-work case.
func TestQueueJoinReturnsImmediatelyWhenIdle(t *testing.T) {
	q := NewQueue()

	joined := make(chan struct{})
	go func() {
		q.Join()
		close(joined)
	}()

	select {
	case <-joined:
	case <-time.After(2 * time.Second):
		t.Fatal("join blocked on an idle queue")
	}
}

// TestQueueMarkDonePanicsWhenUnmatched verifies the WaitGroup-style
// guard against counter underflow.
func TestQueueMarkDonePanicsWhenUnmatched(t *testing.T) {
	q := NewQueue()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic from unmatched MarkDone")
		}
	}()
	q.MarkDone()
}

// TestQueueCounts verifies Len and Unfinished across the lifecycle.
func TestQueueCounts(t *testing.T) {
	q := NewQueue()
	q.Enqueue("a.mp4")
	q.Enqueue("b.mp4")

	if q.Len() != 2 || q.Unfinished() != 2 {
		t.Fatalf("len=%d unfinished=%d, want 2 and 2", q.Len(), q.Unfinished())
	}

	if _, ok := q.Dequeue(10 * time.Millisecond); !ok {
		t.Fatal("dequeue failed")
	}
	if q.Len() != 1 {
		t.Fatalf("len = %d after dequeue, want 1", q.Len())
	}
	if q.Unfinished() != 2 {
		t.Fatalf("unfinished = %d after dequeue, want 2", q.Unfinished())
	}

	q.MarkDone()
	if q.Unfinished() != 1 {
		t.Fatalf("unfinished = %d after mark done, want 1", q.Unfinished())
	}
}
