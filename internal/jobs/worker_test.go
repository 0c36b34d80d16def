package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"whisper-transcriber/internal/domain"
	"whisper-transcriber/internal/transcribe"
)

// fakeEngine simulates the lazily initialized transcription backend.
type fakeEngine struct {
	state         domain.EngineState
	initErr       error
	initCalls     int
	transcribeFn  func(path string) (transcribe.Result, error)
	transcribedAt []string
}

// newFakeEngine starts in the uninitialized state like the real engine.
func newFakeEngine() *fakeEngine {
	return &fakeEngine{state: domain.EngineStateUninitialized}
}

// State reports the fake's current lifecycle phase.
func (f *fakeEngine) State() domain.EngineState {
	return f.state
}

// Init succeeds or fails according to the configured initErr.
func (f *fakeEngine) Init(ctx context.Context) error {
	f.initCalls++
	if f.initErr != nil {
		f.state = domain.EngineStateFailed
		return f.initErr
	}
	f.state = domain.EngineStateReady
	return nil
}

// Transcribe records the call and returns the configured result.
func (f *fakeEngine) Transcribe(ctx context.Context, path string) (transcribe.Result, error) {
	f.transcribedAt = append(f.transcribedAt, path)
	if f.transcribeFn != nil {
		return f.transcribeFn(path)
	}
	return transcribe.Result{Text: "hello world"}, nil
}

// dirHolder swaps the output directory between items under a lock.
type dirHolder struct {
	mu  sync.Mutex
	dir string
}

// set replaces the held directory.
func (h *dirHolder) set(dir string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dir = dir
}

// get reads the held directory.
func (h *dirHolder) get() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dir
}

// workerHarness bundles the pieces a worker test needs.
type workerHarness struct {
	worker *Worker
	queue  *Queue
	bus    *EventBus
	engine *fakeEngine
}

// fixedClock is the deterministic timestamp used for output naming.
var fixedClock = time.Date(2024, 5, 4, 3, 2, 1, 0, time.UTC)

// startWorker builds and runs a worker over the fake engine.
func startWorker(t *testing.T, engine *fakeEngine, outDir func() string) *workerHarness {
	t.Helper()

	queue := NewQueue()
	bus := NewEventBus(0)
	worker := NewWorkerForTests(
		Config{
			Queue:        queue,
			Engine:       engine,
			Events:       bus,
			OutputDir:    outDir,
			PollInterval: 5 * time.Millisecond,
		},
		func(file string) (string, error) { return "/usr/bin/" + file, nil },
		os.Stat,
		func(ctx context.Context, mediaPath string) float64 { return 42 },
		func() time.Time { return fixedClock },
	)

	go worker.Run(context.Background())
	t.Cleanup(func() {
		worker.Stop()
		waitClosed(t, worker.Done())
	})

	return &workerHarness{worker: worker, queue: queue, bus: bus, engine: engine}
}

// mustWriteFile creates a small fixture file for queue input.
func mustWriteFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("media"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
}

// waitJoin fails the test when the queue does not drain in time.
func waitJoin(t *testing.T, q *Queue) {
	t.Helper()
	joined := make(chan struct{})
	go func() {
		q.Join()
		close(joined)
	}()

	select {
	case <-joined:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for queue join")
	}
}

// waitClosed fails the test when ch does not close within two seconds.
func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

// terminalEvents filters bus history down to per-item terminal events.
func terminalEvents(bus *EventBus) []Event {
	var out []Event
	for _, event := range bus.Since(0) {
		if event.Status.IsTerminal() {
			out = append(out, event)
		}
	}
	return out
}

// eventsOfType filters bus history by event type.
func eventsOfType(bus *EventBus, eventType EventType) []Event {
	var out []Event
	for _, event := range bus.Since(0) {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}

// TestWorkerProcessesItemsInOrder verifies exactly one terminal event
// per path, in submission order, with a single lazy engine init.
func TestWorkerProcessesItemsInOrder(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.mp4")
	second := filepath.Join(dir, "second.mp3")
	mustWriteFile(t, first)
	mustWriteFile(t, second)

	outDir := t.TempDir()
	h := startWorker(t, newFakeEngine(), func() string { return outDir })

	h.queue.Enqueue(first)
	h.queue.Enqueue(second)
	waitJoin(t, h.queue)

	terminal := terminalEvents(h.bus)
	if len(terminal) != 2 {
		t.Fatalf("terminal events = %d, want 2", len(terminal))
	}
	if terminal[0].Path != first || terminal[0].Status != domain.ItemStatusDone {
		t.Fatalf("first terminal event = %+v", terminal[0])
	}
	if terminal[1].Path != second || terminal[1].Status != domain.ItemStatusDone {
		t.Fatalf("second terminal event = %+v", terminal[1])
	}

	if h.engine.initCalls != 1 {
		t.Fatalf("init calls = %d, want 1", h.engine.initCalls)
	}

	var initEvents []Event
	for _, event := range h.bus.Since(0) {
		if event.Status == domain.ItemStatusInitializing {
			initEvents = append(initEvents, event)
		}
	}
	if len(initEvents) != 1 || initEvents[0].Path != first {
		t.Fatalf("initializing events = %+v, want one for the first item", initEvents)
	}
}

// TestWorkerWritesTimestampedTranscript verifies the output artifact
// name, contents, and done message format.
func TestWorkerWritesTimestampedTranscript(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "interview.mp3")
	mustWriteFile(t, input)

	outDir := t.TempDir()
	h := startWorker(t, newFakeEngine(), func() string { return outDir })

	h.queue.Enqueue(input)
	waitJoin(t, h.queue)

	wantPath := filepath.Join(outDir, "interview_transcript_20240504_030201.txt")
	content, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	if string(content) != "hello world\n" {
		t.Fatalf("transcript content = %q, want trimmed text plus newline", content)
	}

	results := eventsOfType(h.bus, EventTypeResult)
	if len(results) != 1 {
		t.Fatalf("result events = %d, want 1", len(results))
	}
	wantMessage := "[Done] -> " + wantPath + "  (0s)"
	if results[0].Message != wantMessage {
		t.Fatalf("done message = %q, want %q", results[0].Message, wantMessage)
	}
	if results[0].TextPath != wantPath {
		t.Fatalf("text path = %q, want %q", results[0].TextPath, wantPath)
	}
}

// TestWorkerAttachesProbedDuration verifies the transcribing event
// carries the duration estimate.
func TestWorkerAttachesProbedDuration(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "talk.wav")
	mustWriteFile(t, input)

	h := startWorker(t, newFakeEngine(), func() string { return dir })
	h.queue.Enqueue(input)
	waitJoin(t, h.queue)

	for _, event := range h.bus.Since(0) {
		if event.Status == domain.ItemStatusTranscribing {
			if event.DurationSecs != 42 {
				t.Fatalf("duration = %v, want 42", event.DurationSecs)
			}
			if event.Message != "[Transcribing] talk.wav" {
				t.Fatalf("message = %q", event.Message)
			}
			return
		}
	}
	t.Fatal("no transcribing event published")
}

// TestWorkerSkipsMissingFile verifies a vanished path is reported and
// later items still run.
func TestWorkerSkipsMissingFile(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "gone.mp4")
	present := filepath.Join(dir, "here.mp4")
	mustWriteFile(t, present)

	outDir := t.TempDir()
	h := startWorker(t, newFakeEngine(), func() string { return outDir })

	h.queue.Enqueue(missing)
	h.queue.Enqueue(present)
	waitJoin(t, h.queue)

	terminal := terminalEvents(h.bus)
	if len(terminal) != 2 {
		t.Fatalf("terminal events = %d, want 2", len(terminal))
	}
	if terminal[0].Status != domain.ItemStatusSkipped || terminal[0].Message != "[Skip] Not found: "+missing {
		t.Fatalf("skip event = %+v", terminal[0])
	}
	if terminal[1].Status != domain.ItemStatusDone {
		t.Fatalf("second event = %+v, want done", terminal[1])
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("output files = %d, want 1", len(entries))
	}
}

// TestWorkerReportsInitFailurePerItem verifies each item under a
// failing engine gets its own error event and a fresh init attempt.
func TestWorkerReportsInitFailurePerItem(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.mp4")
	second := filepath.Join(dir, "b.mp4")
	mustWriteFile(t, first)
	mustWriteFile(t, second)

	engine := newFakeEngine()
	engine.initErr = errors.New("model file is corrupt")
	h := startWorker(t, engine, func() string { return dir })

	h.queue.Enqueue(first)
	h.queue.Enqueue(second)
	waitJoin(t, h.queue)

	errorEvents := eventsOfType(h.bus, EventTypeError)
	if len(errorEvents) != 2 {
		t.Fatalf("error events = %d, want 2", len(errorEvents))
	}
	for i, event := range errorEvents {
		if !strings.Contains(event.Message, "model file is corrupt") {
			t.Fatalf("error event %d message = %q", i, event.Message)
		}
	}
	if errorEvents[0].Path != first || errorEvents[1].Path != second {
		t.Fatalf("error events carry wrong paths: %+v", errorEvents)
	}

	if engine.initCalls != 2 {
		t.Fatalf("init calls = %d, want one attempt per item", engine.initCalls)
	}
	if len(engine.transcribedAt) != 0 {
		t.Fatalf("transcribe calls = %d, want 0", len(engine.transcribedAt))
	}
}

// TestWorkerRecoversWhenInitSucceedsLater verifies a failed engine is
// retried and can serve later items in the same session.
func TestWorkerRecoversWhenInitSucceedsLater(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.mp4")
	second := filepath.Join(dir, "b.mp4")
	mustWriteFile(t, first)
	mustWriteFile(t, second)

	engine := newFakeEngine()
	engine.initErr = errors.New("model missing")
	h := startWorker(t, engine, func() string { return dir })

	h.queue.Enqueue(first)
	waitJoin(t, h.queue)

	engine.initErr = nil
	h.queue.Enqueue(second)
	waitJoin(t, h.queue)

	terminal := terminalEvents(h.bus)
	if len(terminal) != 2 {
		t.Fatalf("terminal events = %d, want 2", len(terminal))
	}
	if terminal[0].Status != domain.ItemStatusFailed {
		t.Fatalf("first item status = %s, want failed", terminal[0].Status)
	}
	if terminal[1].Status != domain.ItemStatusDone {
		t.Fatalf("second item status = %s, want done", terminal[1].Status)
	}
}

// TestWorkerContinuesAfterTranscribeError verifies per-item error
// isolation.
func TestWorkerContinuesAfterTranscribeError(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.mp4")
	good := filepath.Join(dir, "good.mp4")
	mustWriteFile(t, bad)
	mustWriteFile(t, good)

	engine := newFakeEngine()
	engine.transcribeFn = func(path string) (transcribe.Result, error) {
		if path == bad {
			return transcribe.Result{}, errors.New("decode failed")
		}
		return transcribe.Result{Text: "ok"}, nil
	}
	outDir := t.TempDir()
	h := startWorker(t, engine, func() string { return outDir })

	h.queue.Enqueue(bad)
	h.queue.Enqueue(good)
	waitJoin(t, h.queue)

	terminal := terminalEvents(h.bus)
	if len(terminal) != 2 {
		t.Fatalf("terminal events = %d, want 2", len(terminal))
	}
	if terminal[0].Status != domain.ItemStatusFailed || !strings.Contains(terminal[0].Message, "decode failed") {
		t.Fatalf("first event = %+v, want failure", terminal[0])
	}
	if terminal[1].Status != domain.ItemStatusDone {
		t.Fatalf("second event = %+v, want done", terminal[1])
	}
}

// TestWorkerReadsOutputDirFreshPerItem verifies a directory change
// between submissions lands each transcript in the directory current
// at processing time.
func TestWorkerReadsOutputDirFreshPerItem(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.mp4")
	second := filepath.Join(dir, "b.mp4")
	mustWriteFile(t, first)
	mustWriteFile(t, second)

	outOne := t.TempDir()
	outTwo := t.TempDir()
	holder := &dirHolder{dir: outOne}
	h := startWorker(t, newFakeEngine(), holder.get)

	h.queue.Enqueue(first)
	waitJoin(t, h.queue)

	holder.set(outTwo)
	h.queue.Enqueue(second)
	waitJoin(t, h.queue)

	if _, err := os.Stat(filepath.Join(outOne, "a_transcript_20240504_030201.txt")); err != nil {
		t.Fatalf("first transcript not in first dir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outTwo, "b_transcript_20240504_030201.txt")); err != nil {
		t.Fatalf("second transcript not in second dir: %v", err)
	}
}

// TestWorkerDefaultsOutputNextToInput verifies the empty output dir
// falls back to the input's directory.
func TestWorkerDefaultsOutputNextToInput(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "memo.m4a")
	mustWriteFile(t, input)

	h := startWorker(t, newFakeEngine(), func() string { return "" })
	h.queue.Enqueue(input)
	waitJoin(t, h.queue)

	if _, err := os.Stat(filepath.Join(dir, "memo_transcript_20240504_030201.txt")); err != nil {
		t.Fatalf("transcript not beside input: %v", err)
	}
}

// TestWorkerPreflightFailureStopsRun verifies a missing media tool
// kills the worker after one terminal error event.
func TestWorkerPreflightFailureStopsRun(t *testing.T) {
	queue := NewQueue()
	bus := NewEventBus(0)
	worker := NewWorkerForTests(
		Config{Queue: queue, Engine: newFakeEngine(), Events: bus, PollInterval: 5 * time.Millisecond},
		func(file string) (string, error) { return "", errors.New("not found") },
		os.Stat,
		nil,
		nil,
	)

	queue.Enqueue("/media/never-processed.mp4")
	go worker.Run(context.Background())
	waitClosed(t, worker.Done())

	errorEvents := eventsOfType(bus, EventTypeError)
	if len(errorEvents) != 1 {
		t.Fatalf("error events = %d, want 1", len(errorEvents))
	}
	if !strings.Contains(errorEvents[0].Message, "ffmpeg") {
		t.Fatalf("error message = %q", errorEvents[0].Message)
	}
	if queue.Unfinished() != 1 {
		t.Fatalf("unfinished = %d, want the queued item untouched", queue.Unfinished())
	}
}

// TestWorkerOverwritesSameSecondCollision verifies duplicate stems in
// the same second produce one file and two done events.
func TestWorkerOverwritesSameSecondCollision(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "clip.mp4")
	mustWriteFile(t, input)

	outDir := t.TempDir()
	h := startWorker(t, newFakeEngine(), func() string { return outDir })

	h.queue.Enqueue(input)
	h.queue.Enqueue(input)
	waitJoin(t, h.queue)

	results := eventsOfType(h.bus, EventTypeResult)
	if len(results) != 2 {
		t.Fatalf("result events = %d, want 2", len(results))
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		t.Fatalf("read output dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("output files = %d, want 1 overwritten file", len(entries))
	}
}

// TestWorkerWritesCaptionsWhenProduced verifies SRT output lands next
// to the transcript.
func TestWorkerWritesCaptionsWhenProduced(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "lecture.mkv")
	mustWriteFile(t, input)

	engine := newFakeEngine()
	engine.transcribeFn = func(path string) (transcribe.Result, error) {
		return transcribe.Result{
			Text:     "caption test",
			Captions: "1\n00:00:00,000 --> 00:00:01,000\ncaption test\n",
		}, nil
	}

	outDir := t.TempDir()
	h := startWorker(t, engine, func() string { return outDir })
	h.queue.Enqueue(input)
	waitJoin(t, h.queue)

	srtPath := filepath.Join(outDir, "lecture_transcript_20240504_030201.srt")
	if _, err := os.Stat(srtPath); err != nil {
		t.Fatalf("captions file missing: %v", err)
	}

	results := eventsOfType(h.bus, EventTypeResult)
	if len(results) != 1 || results[0].CaptionsPath != srtPath {
		t.Fatalf("result events = %+v, want captions path %s", results, srtPath)
	}
}
