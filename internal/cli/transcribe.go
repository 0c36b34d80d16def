package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"whisper-transcriber/internal/domain"
	"whisper-transcriber/internal/download"
	"whisper-transcriber/internal/transcribe"
)

// runTranscribe is the single-shot flow: validate the input, bring the
// engine up, transcribe, and write the timestamped transcript into the
// requested folder or next to the input.
func (a *appState) runTranscribe(ctx context.Context, args []string) error {
	inputPath := filepath.Clean(args[0])
	if _, err := os.Stat(inputPath); err != nil {
		return fmt.Errorf("input file not found: %s", inputPath)
	}

	outputDir := filepath.Dir(inputPath)
	if len(args) > 1 && strings.TrimSpace(args[1]) != "" {
		outputDir = filepath.Clean(args[1])
	}

	preflightFn := a.preflightFn
	if preflightFn == nil {
		preflightFn = a.ensureTranscriptionReady
	}

	transcribeFn := a.transcribeFn
	if transcribeFn == nil {
		transcribeFn = a.transcribeMedia
	}

	if err := preflightFn(ctx); err != nil {
		return err
	}

	result, err := transcribeFn(ctx, inputPath)
	if err != nil {
		return err
	}

	stem := transcribe.TranscriptStem(inputPath, a.timeNow())
	textPath, err := transcribe.WriteTranscript(outputDir, stem, result.Text)
	if err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}

	if a.captions && result.Captions != "" {
		captionsPath, err := transcribe.WriteCaptions(outputDir, stem, result.Captions)
		if err != nil {
			return fmt.Errorf("write captions: %w", err)
		}
		a.log().Info("captions written", zap.String("path", captionsPath))
	}

	fmt.Fprintln(a.outWriter(), textPath)
	return nil
}

// ensureTranscriptionReady fails fast on missing tools, downloads the
// model when allowed, and initializes the engine before any media work.
func (a *appState) ensureTranscriptionReady(ctx context.Context) error {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return fmt.Errorf("ffprobe not found in PATH; install ffmpeg to enable media probing")
	}

	modelDir, err := a.modelStorageDir()
	if err != nil {
		return err
	}

	if _, err := a.ensureModelAvailable(ctx, modelDir); err != nil {
		return err
	}

	// The model is on disk at this point, so the engine never needs
	// its own progress-less download fallback.
	engine := transcribe.NewEngine(transcribe.Options{
		Model:    a.model,
		ModelDir: modelDir,
		Language: a.language,
		Captions: a.captions,
		Status: func(message string) {
			fmt.Fprintln(a.outWriter(), message)
		},
	})
	if err := engine.Init(ctx); err != nil {
		return err
	}

	a.engine = engine
	return nil
}

// ensureModelAvailable resolves the model reference and downloads a
// missing preset when --auto-download permits it.
func (a *appState) ensureModelAvailable(ctx context.Context, modelDir string) (transcribe.ResolvedModel, error) {
	resolved, err := transcribe.ResolveModel(a.model, modelDir)
	if err != nil {
		return transcribe.ResolvedModel{}, err
	}

	if !resolved.NeedsDownload {
		return resolved, nil
	}

	if !a.autoDownload {
		return transcribe.ResolvedModel{}, fmt.Errorf(
			"model %s is missing at %s; rerun with --auto-download=true or choose a downloaded --model",
			resolved.DisplayName(), resolved.Path)
	}

	message := fmt.Sprintf("[Whisper] Downloading model: %s ...", resolved.DisplayName())
	if resolved.Option.SizeLabel != "" {
		message = fmt.Sprintf("[Whisper] Downloading model: %s (%s) ...", resolved.DisplayName(), resolved.Option.SizeLabel)
	}
	fmt.Fprintln(a.outWriter(), message)

	fetchFn := a.fetchFn
	if fetchFn == nil {
		fetchFn = a.fetchModel
	}
	if err := fetchFn(ctx, resolved.Option, resolved.Path); err != nil {
		return transcribe.ResolvedModel{}, fmt.Errorf("download model %s: %w", resolved.DisplayName(), err)
	}

	resolved.NeedsDownload = false
	return resolved, nil
}

// fetchModel downloads one catalog model through the verified download
// path, with a byte progress bar unless --no-progress is set.
func (a *appState) fetchModel(ctx context.Context, option domain.ModelOption, dest string) error {
	return download.Fetch(ctx, download.Options{
		URL:            option.URL,
		Destination:    dest,
		ExpectedSHA256: option.SHA256,
		NoProgress:     a.noProgress,
		Logger:         a.log(),
	})
}

// transcribeMedia runs the engine against one media file with a
// progress indicator sized by the probed duration.
func (a *appState) transcribeMedia(ctx context.Context, mediaPath string) (transcribe.Result, error) {
	if a.engine == nil {
		return transcribe.Result{}, transcribe.ErrNotReady
	}

	estimate := time.Duration(transcribe.ProbeDuration(ctx, mediaPath) * float64(time.Second))
	a.log().Info("transcribing...",
		zap.String("media", mediaPath),
		zap.String("model", a.engine.ModelName()),
		zap.String("device", a.engine.Device()),
		zap.Duration("media_duration", estimate),
	)

	stopProgress := startProgress(a.progressEnabled(), fmt.Sprintf("Transcribing %s", filepath.Base(mediaPath)), estimate)
	started := time.Now()

	result, err := a.engine.Transcribe(ctx, mediaPath)
	stopProgress()
	if err != nil {
		a.log().Warn("transcription failed", zap.Duration("elapsed", time.Since(started)), zap.Error(err))
		return transcribe.Result{}, err
	}

	a.log().Info("transcription finished", zap.Duration("elapsed", time.Since(started)))
	return result, nil
}
