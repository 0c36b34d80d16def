package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"whisper-transcriber/internal/domain"
	"whisper-transcriber/internal/download"
)

// WhisperPathEnv overrides where the whisper-cli binary is found.
const WhisperPathEnv = "WHISPER_CLI"

// ErrNotReady is returned when Transcribe runs before a successful Init.
var ErrNotReady = errors.New("transcription engine is not initialized")

// CommandLog captures one external command invocation result.
type CommandLog struct {
	Command  string   `json:"command"`
	Args     []string `json:"args"`
	ExitCode int      `json:"exitCode"`
	Stdout   string   `json:"stdout"`
	Stderr   string   `json:"stderr"`
}

// PipelineError is a stage-aware error with optional command context.
type PipelineError struct {
	Stage      string     `json:"stage"`
	Message    string     `json:"message"`
	CommandLog CommandLog `json:"commandLog"`
	Err        error      `json:"-"`
}

// Error formats pipeline failures for logs and UI.
func (e *PipelineError) Error() string {
	if e == nil {
		return ""
	}
	if e.CommandLog.Command == "" {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}

	return fmt.Sprintf(
		"%s: %s (cmd=%s exit=%d)",
		e.Stage,
		e.Message,
		e.CommandLog.Command,
		e.CommandLog.ExitCode,
	)
}

// Unwrap exposes underlying error for errors.Is / errors.As.
func (e *PipelineError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// commandResult is an internal process execution response.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

// execRunner executes commands via os/exec.
type execRunner struct{}

// Run executes one command and captures stdout/stderr and exit code.
func (r *execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: 0,
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}

	return result, nil
}

// Options configure the engine once at construction.
type Options struct {
	// Model is a catalog preset ID or a model file path. Empty falls
	// back to the WHISPER_MODEL environment variable, then DefaultModel.
	Model        string
	ModelDir     string
	Language     string
	AutoDownload bool
	Captions     bool
	// Status receives human-readable progress lines during Init.
	Status func(message string)
}

// Engine lazily resolves the external tools and the selected model,
// then runs ffmpeg preprocessing and whisper-cli inference per media
// file. One engine is built per process and driven by a single
// goroutine; methods are not safe for concurrent use.
type Engine struct {
	opts Options

	state   domain.EngineState
	initErr error

	ffmpegPath  string
	whisperPath string
	model       ResolvedModel
	device      string

	runner    commandRunner
	lookPath  func(file string) (string, error)
	stat      func(name string) (os.FileInfo, error)
	mkdirTemp func(dir, pattern string) (string, error)
	removeAll func(path string) error
	readFile  func(name string) ([]byte, error)
	fetch     func(ctx context.Context, option domain.ModelOption, dest string) error
}

// Result carries transcript text and optional SRT captions for one run.
type Result struct {
	Text     string
	Captions string
	Logs     []CommandLog
}

// NewEngine constructs an uninitialized engine with OS dependencies.
func NewEngine(opts Options) *Engine {
	return &Engine{
		opts:      opts,
		state:     domain.EngineStateUninitialized,
		runner:    &execRunner{},
		lookPath:  exec.LookPath,
		stat:      os.Stat,
		mkdirTemp: os.MkdirTemp,
		removeAll: os.RemoveAll,
		readFile:  os.ReadFile,
		fetch: func(ctx context.Context, option domain.ModelOption, dest string) error {
			return download.Fetch(ctx, download.Options{
				URL:            option.URL,
				Destination:    dest,
				ExpectedSHA256: option.SHA256,
				NoProgress:     true,
			})
		},
	}
}

// State reports the init lifecycle phase.
func (e *Engine) State() domain.EngineState {
	return e.state
}

// InitError returns the most recent initialization failure.
func (e *Engine) InitError() error {
	return e.initErr
}

// Device reports the detected acceleration backend after Init.
func (e *Engine) Device() string {
	return e.device
}

// ModelName reports the resolved model identity after Init.
func (e *Engine) ModelName() string {
	return e.model.DisplayName()
}

// Init resolves tools, model, and device, moving the engine to ready
// or failed. A failed engine may be initialized again; every call is
// a fresh attempt.
func (e *Engine) Init(ctx context.Context) error {
	if e.state == domain.EngineStateReady {
		return nil
	}

	if err := e.initialize(ctx); err != nil {
		e.state = domain.EngineStateFailed
		e.initErr = err
		return err
	}

	e.state = domain.EngineStateReady
	e.initErr = nil
	return nil
}

// initialize performs one full resolution pass over binary, model, and
// device.
func (e *Engine) initialize(ctx context.Context) error {
	whisperPath, err := e.resolveWhisperBinary()
	if err != nil {
		return err
	}

	ffmpegPath, err := e.lookPath("ffmpeg")
	if err != nil {
		return fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	model, err := ResolveModel(e.opts.Model, e.opts.ModelDir)
	if err != nil {
		return err
	}

	if model.NeedsDownload {
		if !e.opts.AutoDownload {
			return fmt.Errorf("model %s is not downloaded (expected at %s)", model.DisplayName(), model.Path)
		}

		message := fmt.Sprintf("[Whisper] Downloading model: %s ...", model.DisplayName())
		if model.Option.SizeLabel != "" {
			message = fmt.Sprintf("[Whisper] Downloading model: %s (%s) ...", model.DisplayName(), model.Option.SizeLabel)
		}
		e.status(message)

		if err := e.fetch(ctx, model.Option, model.Path); err != nil {
			return fmt.Errorf("download model %s: %w", model.DisplayName(), err)
		}
	}

	device := detectDevice(e.lookPath)
	e.status(fmt.Sprintf("[Whisper] Loading model: %s on %s ...", model.DisplayName(), device))

	e.whisperPath = whisperPath
	e.ffmpegPath = ffmpegPath
	e.model = model
	e.device = device
	return nil
}

// resolveWhisperBinary honors the env override before searching PATH.
func (e *Engine) resolveWhisperBinary() (string, error) {
	if override := strings.TrimSpace(os.Getenv(WhisperPathEnv)); override != "" {
		if _, err := e.stat(override); err != nil {
			return "", fmt.Errorf("%s does not point to whisper-cli: %w", WhisperPathEnv, err)
		}
		return override, nil
	}

	path, err := e.lookPath("whisper-cli")
	if err != nil {
		return "", fmt.Errorf("whisper-cli not found in PATH; install whisper.cpp or set %s", WhisperPathEnv)
	}
	return path, nil
}

// status forwards a progress line when the callback is configured.
func (e *Engine) status(message string) {
	if e.opts.Status != nil {
		e.opts.Status(message)
	}
}

// Transcribe converts one media file to text, plus SRT captions when
// enabled. The input is preprocessed to 16 kHz mono WAV first so any
// container ffmpeg understands is accepted.
func (e *Engine) Transcribe(ctx context.Context, mediaPath string) (Result, error) {
	if e.state != domain.EngineStateReady {
		return Result{}, ErrNotReady
	}

	if strings.TrimSpace(mediaPath) == "" {
		return Result{}, &PipelineError{
			Stage:   "preprocessing",
			Message: "input media path is required",
		}
	}
	if _, err := e.stat(mediaPath); err != nil {
		return Result{}, &PipelineError{
			Stage:   "preprocessing",
			Message: fmt.Sprintf("cannot access input media: %s", mediaPath),
			Err:     err,
		}
	}

	tempDir, err := e.mkdirTemp("", "whisper-transcriber-*")
	if err != nil {
		return Result{}, &PipelineError{
			Stage:   "preprocessing",
			Message: "failed to create temporary workspace",
			Err:     err,
		}
	}
	defer func() {
		_ = e.removeAll(tempDir)
	}()

	wavPath := filepath.Join(tempDir, "preprocessed-16k-mono.wav")
	ffmpegArgs := buildFFmpegArgs(mediaPath, wavPath)

	ffmpegResult, runErr := e.runner.Run(ctx, e.ffmpegPath, ffmpegArgs...)
	ffmpegLog := CommandLog{
		Command:  e.ffmpegPath,
		Args:     ffmpegArgs,
		ExitCode: ffmpegResult.ExitCode,
		Stdout:   ffmpegResult.Stdout,
		Stderr:   ffmpegResult.Stderr,
	}
	if runErr != nil {
		return Result{}, &PipelineError{
			Stage:      "preprocessing",
			Message:    "ffmpeg audio conversion failed",
			CommandLog: ffmpegLog,
			Err:        runErr,
		}
	}
	if _, err := e.stat(wavPath); err != nil {
		return Result{}, &PipelineError{
			Stage:      "preprocessing",
			Message:    "ffmpeg completed but output file is missing",
			CommandLog: ffmpegLog,
			Err:        err,
		}
	}

	outBase := filepath.Join(tempDir, "transcript")
	whisperArgs := buildWhisperArgs(e.model.Path, wavPath, outBase, e.opts.Language, e.device, e.opts.Captions)

	whisperResult, runErr := e.runner.Run(ctx, e.whisperPath, whisperArgs...)
	whisperLog := CommandLog{
		Command:  e.whisperPath,
		Args:     whisperArgs,
		ExitCode: whisperResult.ExitCode,
		Stdout:   whisperResult.Stdout,
		Stderr:   whisperResult.Stderr,
	}
	if runErr != nil {
		return Result{}, &PipelineError{
			Stage:      "transcribing",
			Message:    "whisper-cli transcription failed",
			CommandLog: whisperLog,
			Err:        runErr,
		}
	}

	text, err := e.readFile(outBase + ".txt")
	if err != nil {
		return Result{}, &PipelineError{
			Stage:      "exporting",
			Message:    "whisper-cli completed but transcript .txt file is missing",
			CommandLog: whisperLog,
			Err:        err,
		}
	}

	result := Result{
		Text: strings.TrimSpace(string(text)),
		Logs: []CommandLog{ffmpegLog, whisperLog},
	}

	if e.opts.Captions {
		captions, err := e.readFile(outBase + ".srt")
		if err != nil {
			return Result{}, &PipelineError{
				Stage:      "exporting",
				Message:    "whisper-cli completed but captions .srt file is missing",
				CommandLog: whisperLog,
				Err:        err,
			}
		}
		result.Captions = string(captions)
	}

	return result, nil
}

// detectDevice reports the acceleration backend whisper-cli should use.
// nvidia-smi on PATH is taken as CUDA being available.
func detectDevice(lookPath func(file string) (string, error)) string {
	if _, err := lookPath("nvidia-smi"); err == nil {
		return "cuda"
	}
	return "cpu"
}

// normalizeLanguage maps "auto" and empty language to no CLI override.
func normalizeLanguage(raw string) string {
	lang := strings.TrimSpace(raw)
	if lang == "" || strings.EqualFold(lang, "auto") {
		return ""
	}
	return lang
}

// buildFFmpegArgs builds preprocessing CLI args for mono 16k PCM WAV output.
func buildFFmpegArgs(inputPath, outPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		outPath,
	}
}

// buildWhisperArgs builds whisper-cli args for plain-text export, with
// optional SRT captions and GPU offload disabled on cpu-only hosts.
func buildWhisperArgs(modelPath, audioPath, outBase, language, device string, captions bool) []string {
	args := []string{
		"-m", modelPath,
		"-f", audioPath,
		"-of", outBase,
		"-otxt",
		"-nt",
	}

	if captions {
		args = append(args, "-osrt")
	}
	if lang := normalizeLanguage(language); lang != "" {
		args = append(args, "-l", lang)
	}
	if device != "cuda" {
		args = append(args, "-ng")
	}

	return args
}

// NewEngineForTests constructs an engine with injectable dependencies.
func NewEngineForTests(
	opts Options,
	runner commandRunner,
	lookPath func(file string) (string, error),
	stat func(name string) (os.FileInfo, error),
	mkdirTemp func(dir, pattern string) (string, error),
	readFile func(name string) ([]byte, error),
	fetch func(ctx context.Context, option domain.ModelOption, dest string) error,
) *Engine {
	engine := NewEngine(opts)
	if runner != nil {
		engine.runner = runner
	}
	if lookPath != nil {
		engine.lookPath = lookPath
	}
	if stat != nil {
		engine.stat = stat
	}
	if mkdirTemp != nil {
		engine.mkdirTemp = mkdirTemp
	}
	if readFile != nil {
		engine.readFile = readFile
	}
	if fetch != nil {
		engine.fetch = fetch
	}
	return engine
}
