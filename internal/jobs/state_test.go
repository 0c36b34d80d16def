package jobs

import (
	"testing"

	"whisper-transcriber/internal/domain"
)

// TestTrackerLifecycle verifies progression through the lazy-init path.
func TestTrackerLifecycle(t *testing.T) {
	tr := NewTracker()
	tr.Begin("/media/a.mp4")

	for _, status := range []domain.ItemStatus{
		domain.ItemStatusInitializing,
		domain.ItemStatusTranscribing,
		domain.ItemStatusDone,
	} {
		if err := tr.Transition(status); err != nil {
			t.Fatalf("transition to %s: %v", status, err)
		}
	}

	current := tr.Current()
	if current.Path != "/media/a.mp4" || current.Status != domain.ItemStatusDone {
		t.Fatalf("current = %+v, want done a.mp4", current)
	}
}

// TestTrackerSkipsInitWhenEngineReady verifies queued can move straight
// to transcribing.
func TestTrackerSkipsInitWhenEngineReady(t *testing.T) {
	tr := NewTracker()
	tr.Begin("/media/a.mp4")

	if err := tr.Transition(domain.ItemStatusTranscribing); err != nil {
		t.Fatalf("transition: %v", err)
	}
}

// TestTrackerRejectsInvalidTransition checks state machine constraints.
func TestTrackerRejectsInvalidTransition(t *testing.T) {
	tr := NewTracker()
	tr.Begin("/media/a.mp4")

	if err := tr.Transition(domain.ItemStatusDone); err == nil {
		t.Fatal("expected invalid transition error")
	}
}

// TestTrackerTerminalStatesAreFinal verifies no edges leave skipped.
func TestTrackerTerminalStatesAreFinal(t *testing.T) {
	tr := NewTracker()
	tr.Begin("/media/a.mp4")

	if err := tr.Transition(domain.ItemStatusSkipped); err != nil {
		t.Fatalf("transition to skipped: %v", err)
	}
	if err := tr.Transition(domain.ItemStatusTranscribing); err == nil {
		t.Fatal("expected error leaving a terminal state")
	}
}

// TestTrackerRequiresActiveItem verifies transitions without Begin fail.
func TestTrackerRequiresActiveItem(t *testing.T) {
	tr := NewTracker()

	if err := tr.Transition(domain.ItemStatusTranscribing); err != ErrNoActiveItem {
		t.Fatalf("err = %v, want %v", err, ErrNoActiveItem)
	}
}

// TestTrackerClear verifies the tracker forgets the active item.
func TestTrackerClear(t *testing.T) {
	tr := NewTracker()
	tr.Begin("/media/a.mp4")
	tr.Clear()

	if current := tr.Current(); current.Path != "" {
		t.Fatalf("current = %+v, want empty", current)
	}
}
