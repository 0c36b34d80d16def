package jobs

import (
	"sync"
	"time"

	"whisper-transcriber/internal/domain"
)

// EventType classifies messages emitted while the worker runs.
type EventType string

const (
	EventTypeStatus EventType = "status"
	EventTypeLog    EventType = "log"
	EventTypeResult EventType = "result"
	EventTypeError  EventType = "error"
)

// Event is a sequenced payload consumed by UI subscribers. Message is
// the human-readable log line; the remaining fields let the frontend
// track per-item lifecycle without parsing it.
type Event struct {
	Seq          int64             `json:"seq"`
	Timestamp    time.Time         `json:"timestamp"`
	Type         EventType         `json:"type"`
	Path         string            `json:"path,omitempty"`
	Status       domain.ItemStatus `json:"status,omitempty"`
	Message      string            `json:"message,omitempty"`
	TextPath     string            `json:"textPath,omitempty"`
	CaptionsPath string            `json:"captionsPath,omitempty"`
	DurationSecs float64           `json:"durationSecs,omitempty"`
	ElapsedSecs  int               `json:"elapsedSecs,omitempty"`
}

// EventBus is a bounded, append-only buffer of worker events. The
// frontend polls it with Since instead of holding a subscription, so
// a slow or hidden window never blocks the worker.
type EventBus struct {
	mu     sync.RWMutex
	seq    int64
	limit  int
	events []Event
}

// NewEventBus creates a buffer retaining the latest limit events.
func NewEventBus(limit int) *EventBus {
	if limit <= 0 {
		limit = 500
	}

	return &EventBus{
		limit:  limit,
		events: make([]Event, 0, limit),
	}
}

// Publish stamps event with the next sequence and the current time,
// stores it, and returns the stored copy. Once the buffer is full the
// oldest event is dropped for each new one.
func (b *EventBus) Publish(event Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	event.Seq = b.seq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.events = append(b.events, event)
	if overflow := len(b.events) - b.limit; overflow > 0 {
		kept := copy(b.events, b.events[overflow:])
		b.events = b.events[:kept]
	}

	return event
}

// Since returns events with sequence strictly greater than seq, oldest
// first. The buffer is sequence-ordered, so it scans back only as far
// as the first retained event.
func (b *EventBus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	start := len(b.events)
	for start > 0 && b.events[start-1].Seq > seq {
		start--
	}
	if start == len(b.events) {
		return nil
	}

	out := make([]Event, len(b.events)-start)
	copy(out, b.events[start:])
	return out
}
