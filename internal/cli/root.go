package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"whisper-transcriber/internal/config"
	"whisper-transcriber/internal/domain"
	"whisper-transcriber/internal/logging"
	"whisper-transcriber/internal/transcribe"
	"whisper-transcriber/internal/version"
)

type appState struct {
	// Flag-backed settings.
	model        string
	modelDir     string
	language     string
	autoDownload bool
	captions     bool
	verbose      bool
	jsonLogs     bool
	noProgress   bool

	logger *zap.Logger
	out    io.Writer
	now    func() time.Time

	engine *transcribe.Engine

	// Seams replaced by tests.
	preflightFn  func(ctx context.Context) error
	transcribeFn func(ctx context.Context, mediaPath string) (transcribe.Result, error)
	fetchFn      func(ctx context.Context, option domain.ModelOption, dest string) error
}

func newAppState() *appState {
	app := &appState{
		language:     "auto",
		autoDownload: true,
		now:          time.Now,
		out:          os.Stdout,
	}
	app.preflightFn = app.ensureTranscriptionReady
	app.transcribeFn = app.transcribeMedia
	app.fetchFn = app.fetchModel
	return app
}

// NewRootCmd builds the transcribe command tree. The root command is
// the single-shot transcription itself; models, doctor, and version
// are subcommands.
func NewRootCmd() *cobra.Command {
	app := newAppState()

	cmd := &cobra.Command{
		Use:           "transcribe <media-file> [output-folder]",
		Short:         "Transcribe audio and video files with whisper.cpp",
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return app.initLogger()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			app.out = cmd.OutOrStdout()
			return app.runTranscribe(cmd.Context(), args)
		},
	}
	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	bindModelFlags(cmd, app)
	bindTranscriptionFlags(cmd, app)
	bindOutputFlags(cmd, app)

	cmd.AddCommand(newModelsCmd(app))
	cmd.AddCommand(newDoctorCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// bindModelFlags is shared with the models and doctor subcommands so
// all three resolve models the same way.
func bindModelFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().StringVar(&app.model, "model", app.model, "Model name or model file path (defaults to $WHISPER_MODEL, then \"base\")")
	cmd.Flags().StringVar(&app.modelDir, "model-dir", app.modelDir, "Directory for downloaded models")
}

func bindTranscriptionFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().StringVar(&app.language, "language", app.language, "Transcription language code (auto|en|de|...)")
	cmd.Flags().BoolVar(&app.autoDownload, "auto-download", app.autoDownload, "Download missing models automatically")
	cmd.Flags().BoolVar(&app.captions, "srt", app.captions, "Also write SRT captions next to the transcript")
}

func bindOutputFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().BoolVar(&app.verbose, "verbose", app.verbose, "Enable debug logging")
	cmd.Flags().BoolVar(&app.jsonLogs, "json", app.jsonLogs, "Write logs as JSON")
	cmd.Flags().BoolVar(&app.noProgress, "no-progress", app.noProgress, "Disable progress bars and spinners")
}

func (a *appState) initLogger() error {
	logger, err := logging.New(logging.Options{Verbose: a.verbose, JSON: a.jsonLogs})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	a.logger = logger
	return nil
}

func (a *appState) log() *zap.Logger {
	if a.logger != nil {
		return a.logger
	}
	return zap.NewNop()
}

func (a *appState) outWriter() io.Writer {
	if a.out != nil {
		return a.out
	}
	return os.Stdout
}

func (a *appState) timeNow() time.Time {
	if a.now != nil {
		return a.now()
	}
	return time.Now()
}

func (a *appState) progressEnabled() bool {
	if a.noProgress {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// resolveModelDir falls back to the shared application model directory.
func (a *appState) resolveModelDir() string {
	dir := strings.TrimSpace(a.modelDir)
	if dir == "" {
		dir = config.DefaultModelDir()
	}
	return dir
}

func (a *appState) modelStorageDir() (string, error) {
	dir := a.resolveModelDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create model directory %s: %w", dir, err)
	}
	return dir, nil
}
