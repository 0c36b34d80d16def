package jobs

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"whisper-transcriber/internal/domain"
	"whisper-transcriber/internal/transcribe"
)

// requiredTools must be on PATH before the worker processes anything.
var requiredTools = []string{"ffmpeg", "ffprobe"}

// Engine is the lazily initialized transcription backend the worker
// drives. The single worker goroutine is the only caller.
type Engine interface {
	State() domain.EngineState
	Init(ctx context.Context) error
	Transcribe(ctx context.Context, mediaPath string) (transcribe.Result, error)
}

// Config wires the worker's collaborators.
type Config struct {
	Queue   *Queue
	Tracker *Tracker
	Engine  Engine
	Events  *EventBus
	// Notify receives each sequenced event after publication; the app
	// uses it to push events into the UI layer.
	Notify func(Event)
	// OutputDir is read fresh for every item; an empty result sends
	// output next to the input file.
	OutputDir func() string
	// PollInterval bounds how long one dequeue waits before the stop
	// signal is rechecked.
	PollInterval time.Duration
}

// Worker is the single background consumer of the work queue. Items
// are processed strictly in submission order; a failing item is
// reported and never stalls the ones behind it.
type Worker struct {
	queue     *Queue
	tracker   *Tracker
	engine    Engine
	events    *EventBus
	notify    func(Event)
	outputDir func() string
	poll      time.Duration

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	lookPath func(file string) (string, error)
	stat     func(name string) (os.FileInfo, error)
	probe    func(ctx context.Context, mediaPath string) float64
	now      func() time.Time
}

// NewWorker builds a worker with OS-backed dependencies. Queue and
// Engine are required.
func NewWorker(cfg Config) *Worker {
	if cfg.Events == nil {
		cfg.Events = NewEventBus(0)
	}
	if cfg.Tracker == nil {
		cfg.Tracker = NewTracker()
	}

	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 200 * time.Millisecond
	}

	outputDir := cfg.OutputDir
	if outputDir == nil {
		outputDir = func() string { return "" }
	}

	return &Worker{
		queue:     cfg.Queue,
		tracker:   cfg.Tracker,
		engine:    cfg.Engine,
		events:    cfg.Events,
		notify:    cfg.Notify,
		outputDir: outputDir,
		poll:      poll,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		lookPath:  exec.LookPath,
		stat:      os.Stat,
		probe:     transcribe.ProbeDuration,
		now:       time.Now,
	}
}

// Run consumes the queue until Stop is called or ctx is cancelled.
// It is meant to run on its own goroutine for the life of the app.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	if err := w.checkTools(); err != nil {
		w.emit(Event{Type: EventTypeError, Message: fmt.Sprintf("[Error] %v", err)})
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		default:
		}

		path, ok := w.queue.Dequeue(w.poll)
		if !ok {
			continue
		}
		w.processItem(ctx, path)
	}
}

// Stop asks the worker to exit once the current item finishes.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
	})
}

// Done is closed after Run has returned.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// processItem runs one media file through skip check, lazy engine
// bring-up, transcription, and artifact writes. Every exit path marks
// the queue item done so Join cannot hang on a bad file.
func (w *Worker) processItem(ctx context.Context, path string) {
	defer w.queue.MarkDone()
	defer w.tracker.Clear()

	w.tracker.Begin(path)

	if _, err := w.stat(path); err != nil {
		w.transition(domain.ItemStatusSkipped)
		w.emit(Event{
			Type:    EventTypeStatus,
			Path:    path,
			Status:  domain.ItemStatusSkipped,
			Message: fmt.Sprintf("[Skip] Not found: %s", path),
		})
		return
	}

	if w.engine.State() != domain.EngineStateReady {
		w.transition(domain.ItemStatusInitializing)
		w.emit(Event{
			Type:   EventTypeStatus,
			Path:   path,
			Status: domain.ItemStatusInitializing,
		})
		if err := w.engine.Init(ctx); err != nil {
			w.fail(path, fmt.Errorf("transcription engine unavailable: %w", err))
			return
		}
	}

	duration := w.probe(ctx, path)

	outDir := strings.TrimSpace(w.outputDir())
	if outDir == "" {
		outDir = filepath.Dir(path)
	}

	w.transition(domain.ItemStatusTranscribing)
	w.emit(Event{
		Type:         EventTypeStatus,
		Path:         path,
		Status:       domain.ItemStatusTranscribing,
		Message:      fmt.Sprintf("[Transcribing] %s", filepath.Base(path)),
		DurationSecs: duration,
	})

	started := w.now()
	result, err := w.engine.Transcribe(ctx, path)
	if err != nil {
		w.fail(path, err)
		return
	}

	stem := transcribe.TranscriptStem(path, w.now())
	textPath, err := transcribe.WriteTranscript(outDir, stem, result.Text)
	if err != nil {
		w.fail(path, err)
		return
	}

	captionsPath := ""
	if result.Captions != "" {
		captionsPath, err = transcribe.WriteCaptions(outDir, stem, result.Captions)
		if err != nil {
			w.fail(path, err)
			return
		}
	}

	elapsed := int(w.now().Sub(started).Seconds())
	w.transition(domain.ItemStatusDone)
	w.emit(Event{
		Type:         EventTypeResult,
		Path:         path,
		Status:       domain.ItemStatusDone,
		Message:      fmt.Sprintf("[Done] -> %s  (%ds)", textPath, elapsed),
		TextPath:     textPath,
		CaptionsPath: captionsPath,
		ElapsedSecs:  elapsed,
	})
}

// checkTools verifies the media tools the worker shells out to.
func (w *Worker) checkTools() error {
	for _, tool := range requiredTools {
		if _, err := w.lookPath(tool); err != nil {
			return fmt.Errorf("%s not found; install ffmpeg and add it to PATH", tool)
		}
	}
	return nil
}

// emit publishes to the bus and forwards the sequenced event to the
// optional push hook.
func (w *Worker) emit(event Event) {
	published := w.events.Publish(event)
	if w.notify != nil {
		w.notify(published)
	}
}

// transition applies a tracker status change; an invalid transition is
// a programmer error surfaced on the bus rather than dropped.
func (w *Worker) transition(status domain.ItemStatus) {
	if err := w.tracker.Transition(status); err != nil {
		w.emit(Event{Type: EventTypeError, Message: fmt.Sprintf("[Error] %v", err)})
	}
}

// fail records a terminal failure for the active item.
func (w *Worker) fail(path string, err error) {
	w.transition(domain.ItemStatusFailed)
	w.emit(Event{
		Type:    EventTypeError,
		Path:    path,
		Status:  domain.ItemStatusFailed,
		Message: fmt.Sprintf("[Error] %v", err),
	})
}

// NewWorkerForTests builds a worker with injectable OS hooks.
func NewWorkerForTests(
	cfg Config,
	lookPath func(file string) (string, error),
	stat func(name string) (os.FileInfo, error),
	probe func(ctx context.Context, mediaPath string) float64,
	now func() time.Time,
) *Worker {
	worker := NewWorker(cfg)
	if lookPath != nil {
		worker.lookPath = lookPath
	}
	if stat != nil {
		worker.stat = stat
	}
	if probe != nil {
		worker.probe = probe
	}
	if now != nil {
		worker.now = now
	}
	return worker
}
