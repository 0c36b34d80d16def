package bootstrap

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"whisper-transcriber/internal/config"
	"whisper-transcriber/internal/diagnostics"
	"whisper-transcriber/internal/domain"
	"whisper-transcriber/internal/download"
	"whisper-transcriber/internal/jobs"
	"whisper-transcriber/internal/transcribe"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// dialogFilters pairs a specific pattern with a catch-all entry so
// users can always escape the filter.
func dialogFilters(displayName, pattern string) []wailsruntime.FileFilter {
	return []wailsruntime.FileFilter{
		{DisplayName: displayName, Pattern: pattern},
		{DisplayName: "All files", Pattern: "*"},
	}
}

var (
	mediaDialogFilter = dialogFilters("Media files", "*.mp4;*.mov;*.mkv;*.avi;*.mp3;*.wav;*.m4a;*.flac;*.aac;*.ogg;*.webm")
	modelDialogFilter = dialogFilters("Whisper models", "*.bin;*.gguf")
)

// App wires configuration, the work queue, the transcription engine,
// and UI runtime callbacks. Files are staged into a pending list and
// submitted as one batch; a single background worker drains the queue
// in submission order while events stream to the frontend.
type App struct {
	Settings    domain.Settings
	Store       config.Store
	Diagnostics domain.DiagnosticReport

	assets  fs.FS
	checker *diagnostics.Checker

	engine  jobs.Engine
	queue   *jobs.Queue
	tracker *jobs.Tracker
	events  *jobs.EventBus
	worker  *jobs.Worker

	fetchModel func(ctx context.Context, option domain.ModelOption, dest string) error

	mu         sync.Mutex
	pending    []string
	runtimeCtx context.Context
}

// New builds the app for development runs, serving the frontend from
// the ./frontend directory on disk.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the app around persisted settings, runs the
// startup checks, and starts the background worker. The worker runs
// for the life of the process whether or not a window ever opens.
func NewWithAssets(assets fs.FS) (*App, error) {
	store := config.NewJSONStore(config.SettingsPath())
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	settings = normalizeSettings(settings)

	app := &App{
		Settings: settings,
		Store:    store,
		assets:   assets,
		checker:  diagnostics.NewChecker(),
	}
	app.Diagnostics = app.checker.Run(settings)
	app.fetchModel = func(ctx context.Context, option domain.ModelOption, dest string) error {
		return download.Fetch(ctx, download.Options{
			URL:            option.URL,
			Destination:    dest,
			ExpectedSHA256: option.SHA256,
			NoProgress:     true,
		})
	}
	app.initJobs(transcribe.NewEngine(app.engineOptions(settings)))
	app.startWorker()

	return app, nil
}

// engineOptions maps persisted settings onto the engine configuration.
// Model, language, and captions are captured once per process; the
// output directory is the only setting the worker re-reads per item.
func (a *App) engineOptions(settings domain.Settings) transcribe.Options {
	return transcribe.Options{
		Model:    settings.Model,
		ModelDir: settings.ModelDir,
		Language: settings.Language,
		Captions: settings.WriteCaptions,
		Status:   a.publishLog,
	}
}

// initJobs wires the queue, tracker, event bus, and worker around the
// given engine.
func (a *App) initJobs(engine jobs.Engine) {
	a.engine = engine
	a.queue = jobs.NewQueue()
	a.tracker = jobs.NewTracker()
	a.events = jobs.NewEventBus(1000)
	a.worker = jobs.NewWorker(a.workerConfig())
}

// workerConfig builds the worker wiring over the app's collaborators.
func (a *App) workerConfig() jobs.Config {
	return jobs.Config{
		Queue:     a.queue,
		Tracker:   a.tracker,
		Engine:    a.engine,
		Events:    a.events,
		Notify:    a.forwardEvent,
		OutputDir: a.currentOutputDir,
	}
}

// startWorker launches the single queue consumer for the app lifetime.
func (a *App) startWorker() {
	go a.worker.Run(context.Background())
}

// Run opens the desktop window and blocks until it closes. All
// exported App methods become callable from the frontend.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{Assets: a.assets}
	if a.assets == nil {
		assetOptions = &assetserver.Options{Handler: http.FileServer(http.Dir("./frontend"))}
	}

	return wails.Run(&options.App{
		Title:       "Whisper Transcriber",
		Width:       1150,
		Height:      760,
		AssetServer: assetOptions,
		DragAndDrop: &options.DragAndDrop{
			EnableFileDrop: true,
		},
		OnStartup:  a.Startup,
		OnShutdown: a.shutdown,
		Bind:       []interface{}{a},
	})
}

// Startup stores the Wails runtime context and registers the native
// file-drop handler.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	a.runtimeCtx = ctx
	a.mu.Unlock()

	wailsruntime.OnFileDrop(ctx, func(x, y int, paths []string) {
		a.StageFiles(paths)
	})
}

func (a *App) shutdown(context.Context) {
	a.worker.Stop()
	a.mu.Lock()
	a.runtimeCtx = nil
	a.mu.Unlock()
}

// StageFiles adds media paths to the pending list, skipping blanks,
// paths that are already staged, and paths that do not exist, and
// returns the updated list. The worker re-checks existence at
// processing time; staged files can still vanish before their turn.
func (a *App) StageFiles(paths []string) []string {
	a.mu.Lock()
	for _, path := range paths {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			continue
		}
		if containsPath(a.pending, trimmed) {
			continue
		}
		if _, err := os.Stat(trimmed); err != nil {
			continue
		}
		a.pending = append(a.pending, trimmed)
	}
	pending := append([]string{}, a.pending...)
	a.mu.Unlock()

	a.emitPendingChanged(pending)
	return pending
}

// StageDropPayload parses a raw drop payload string and stages every
// path it contains.
func (a *App) StageDropPayload(raw string) []string {
	return a.StageFiles(SplitDropPayload(raw))
}

// RemoveStagedFile drops one path from the pending list.
func (a *App) RemoveStagedFile(path string) []string {
	a.mu.Lock()
	kept := a.pending[:0]
	for _, candidate := range a.pending {
		if candidate != path {
			kept = append(kept, candidate)
		}
	}
	a.pending = kept
	pending := append([]string{}, a.pending...)
	a.mu.Unlock()

	a.emitPendingChanged(pending)
	return pending
}

// PendingFiles returns the currently staged paths.
func (a *App) PendingFiles() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string{}, a.pending...)
}

// PickInputFiles opens a native multi-select dialog and stages the
// chosen media files.
func (a *App) PickInputFiles() ([]string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return nil, err
	}

	paths, err := wailsruntime.OpenMultipleFilesDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select media files",
		Filters: mediaDialogFilter,
	})
	if err != nil {
		return nil, err
	}

	return a.StageFiles(paths), nil
}

// StartBatch submits every staged file to the work queue and spawns a
// completion watcher for this batch. Submitting while a previous batch
// is still draining is allowed; the queue simply grows.
func (a *App) StartBatch() (int, error) {
	a.mu.Lock()
	paths := a.pending
	a.pending = nil
	a.mu.Unlock()

	count := 0
	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			continue
		}
		a.queue.Enqueue(path)
		count++
	}

	if count == 0 {
		a.publishLog("[Info] Add or drop at least one file.")
		return 0, nil
	}

	a.publishLog(fmt.Sprintf("[Queued] %d file(s)", count))
	a.emitPendingChanged([]string{})

	go jobs.Watch(a.queue, func() {
		a.publishLog("[All done]")
	})

	return count, nil
}

// CurrentItem reports the item the worker owns right now, zero when idle.
func (a *App) CurrentItem() domain.Item {
	return a.tracker.Current()
}

// QueueLength reports how many submitted items have not finished yet.
func (a *App) QueueLength() int {
	return a.queue.Unfinished()
}

// JobEvents returns all events with sequence greater than sinceSeq.
func (a *App) JobEvents(sinceSeq int64) []jobs.Event {
	return a.events.Since(sinceSeq)
}

// GetDiagnostics returns the report computed at startup or by the most
// recent settings change.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Diagnostics
}

// GetSettings re-reads the settings file so edits made outside the app
// show up without a restart.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	settings = normalizeSettings(settings)

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()

	return settings, nil
}

// SaveSettings normalizes and persists settings, then refreshes
// diagnostics. The output directory applies to the next queue item;
// model and language changes apply after restart.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := normalizeSettings(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.refreshDiagnosticsFromSettings(normalized)
	return normalized, nil
}

// PickModelFile opens a file dialog restricted to whisper model files.
func (a *App) PickModelFile() (string, error) {
	return a.pickFile("Select whisper model", modelDialogFilter)
}

// PickModelDirectory asks for the folder downloaded models live in.
func (a *App) PickModelDirectory() (string, error) {
	return a.pickDirectory("Select model directory")
}

// PickOutputDirectory asks for the transcript export folder.
func (a *App) PickOutputDirectory() (string, error) {
	return a.pickDirectory("Select output directory")
}

func (a *App) pickFile(title string, filters []wailsruntime.FileFilter) (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}
	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   title,
		Filters: filters,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(path), nil
}

func (a *App) pickDirectory(title string) (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}
	path, err := wailsruntime.OpenDirectoryDialog(ctx, wailsruntime.OpenDialogOptions{
		Title: title,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(path), nil
}

// OpenOutputFolder shows the given path in the platform file manager,
// falling back to the configured output directory. File paths open
// their parent folder.
func (a *App) OpenOutputFolder(path string) error {
	target := strings.TrimSpace(path)
	if target == "" {
		a.mu.Lock()
		target = a.Settings.OutputDir
		a.mu.Unlock()
	}
	if target == "" {
		return fmt.Errorf("no output location to open")
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("open %s: %w", target, err)
	}
	if !info.IsDir() {
		target = filepath.Dir(target)
	}
	return openInFileManager(target)
}

// RefreshDiagnostics reloads settings from disk and checks everything
// again, for the re-check button in the diagnostics panel.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}
	settings = normalizeSettings(settings)

	return a.refreshDiagnosticsFromSettings(settings), nil
}

// refreshDiagnosticsFromSettings swaps the active settings and reruns
// the checks when a checker is attached, returning the cached report.
func (a *App) refreshDiagnosticsFromSettings(settings domain.Settings) domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Settings = settings
	if a.checker != nil {
		a.Diagnostics = a.checker.Run(settings)
	}
	return a.Diagnostics
}

// currentOutputDir reads the output directory the worker should use
// for the next item.
func (a *App) currentOutputDir() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Settings.OutputDir
}

// publishLog records an informational line on the bus and pushes it to
// the frontend.
func (a *App) publishLog(message string) {
	event := a.events.Publish(jobs.Event{
		Type:    jobs.EventTypeLog,
		Message: message,
	})
	a.forwardEvent(event)
}

// forwardEvent pushes one already-sequenced event to the frontend.
func (a *App) forwardEvent(event jobs.Event) {
	if ctx := a.uiContext(); ctx != nil {
		wailsruntime.EventsEmit(ctx, "job:event", event)
	}
}

// emitPendingChanged pushes the staged file list to the frontend.
func (a *App) emitPendingChanged(pending []string) {
	if ctx := a.uiContext(); ctx != nil {
		wailsruntime.EventsEmit(ctx, "files:changed", pending)
	}
}

// uiContext returns the runtime context, nil before startup and after
// shutdown.
func (a *App) uiContext() context.Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.runtimeCtx
}

// runtimeContext is uiContext for callers that must fail loudly, such
// as the dialog openers.
func (a *App) runtimeContext() (context.Context, error) {
	if ctx := a.uiContext(); ctx != nil {
		return ctx, nil
	}
	return nil, fmt.Errorf("runtime context is not initialized")
}

// containsPath reports whether the list already holds the path.
func containsPath(paths []string, path string) bool {
	for _, candidate := range paths {
		if candidate == path {
			return true
		}
	}
	return false
}

// normalizeSettings trims user inputs and applies defaults for the
// language and the model directory when empty.
func normalizeSettings(settings domain.Settings) domain.Settings {
	settings.Model = strings.TrimSpace(settings.Model)
	settings.ModelDir = strings.TrimSpace(settings.ModelDir)
	settings.OutputDir = strings.TrimSpace(settings.OutputDir)
	settings.Language = strings.TrimSpace(settings.Language)
	if settings.Language == "" {
		settings.Language = "auto"
	}
	if settings.ModelDir == "" {
		settings.ModelDir = config.DefaultModelDir()
	}
	return settings
}

// openInFileManager launches the platform file browser.
func openInFileManager(path string) error {
	name, args := "xdg-open", []string{path}
	switch goruntime.GOOS {
	case "darwin":
		name, args = "open", []string{path}
	case "windows":
		name, args = "explorer", []string{filepath.Clean(path)}
	}

	if err := exec.Command(name, args...).Start(); err != nil {
		return fmt.Errorf("launch file manager: %w", err)
	}
	return nil
}
