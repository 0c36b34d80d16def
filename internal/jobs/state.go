package jobs

import (
	"errors"
	"fmt"
	"sync"

	"whisper-transcriber/internal/domain"
)

// ErrNoActiveItem is returned when a transition is requested while the
// worker owns no item.
var ErrNoActiveItem = errors.New("no active item")

// Tracker records the item currently owned by the worker and validates
// its status transitions.
type Tracker struct {
	mu      sync.RWMutex
	current domain.Item
}

// NewTracker creates a tracker with no active item.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Begin makes path the active item in queued status.
func (t *Tracker) Begin(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = domain.Item{Path: path, Status: domain.ItemStatusQueued}
}

// Transition validates and applies a status change for the active item.
func (t *Tracker) Transition(status domain.ItemStatus) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current.Path == "" {
		return ErrNoActiveItem
	}
	if status == t.current.Status {
		return nil
	}
	if !isValidTransition(t.current.Status, status) {
		return fmt.Errorf("invalid transition: %s -> %s", t.current.Status, status)
	}

	t.current.Status = status
	return nil
}

// Current returns a snapshot of the active item.
func (t *Tracker) Current() domain.Item {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// Clear forgets the active item between queue entries.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = domain.Item{}
}

// isValidTransition enforces the allowed per-item state machine edges.
func isValidTransition(from, to domain.ItemStatus) bool {
	switch from {
	case domain.ItemStatusQueued:
		return to == domain.ItemStatusInitializing || to == domain.ItemStatusTranscribing ||
			to == domain.ItemStatusSkipped || to == domain.ItemStatusFailed
	case domain.ItemStatusInitializing:
		return to == domain.ItemStatusTranscribing || to == domain.ItemStatusFailed
	case domain.ItemStatusTranscribing:
		return to == domain.ItemStatusDone || to == domain.ItemStatusFailed
	default:
		return false
	}
}
