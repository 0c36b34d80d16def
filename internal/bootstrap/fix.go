package bootstrap

import (
	"context"
	"fmt"
	"os"
	goruntime "runtime"
	"strings"

	"whisper-transcriber/internal/domain"
	"whisper-transcriber/internal/transcribe"
)

// toolInstallHints maps a missing tool to the package-manager command
// for the current platform. ffprobe ships with ffmpeg.
var toolInstallHints = map[string]map[string]string{
	"ffmpeg": {
		"darwin":  "brew install ffmpeg",
		"windows": "winget install Gyan.FFmpeg",
		"linux":   "sudo apt-get install ffmpeg",
	},
	"ffprobe": {
		"darwin":  "brew install ffmpeg",
		"windows": "winget install Gyan.FFmpeg",
		"linux":   "sudo apt-get install ffmpeg",
	},
	"whisper-cli": {
		"darwin":  "brew install whisper-cpp",
		"windows": "winget install ggerganov.whisper.cpp",
		"linux":   "sudo apt-get install whisper-cpp",
	},
}

// ApplyFix repairs one failed diagnostic item the app owns: it can
// download the configured model and create the output directory.
// Missing external tools are never installed behind the user's back;
// those return install guidance instead.
func (a *App) ApplyFix(itemID string) (domain.DiagnosticReport, error) {
	if a.Store == nil {
		return domain.DiagnosticReport{}, fmt.Errorf("settings store is not configured")
	}

	id := strings.TrimSpace(itemID)
	if id == "" {
		return domain.DiagnosticReport{}, fmt.Errorf("diagnostic item id is required")
	}

	settings, err := a.loadNormalizedSettings()
	if err != nil {
		return domain.DiagnosticReport{}, err
	}

	var fixErr error
	switch id {
	case "model":
		fixErr = a.fixModel(settings)
	case "output_dir":
		fixErr = fixOutputDir(settings)
	case "tool_ffmpeg", "tool_ffprobe", "tool_whisper-cli":
		fixErr = toolInstallGuidance(strings.TrimPrefix(id, "tool_"))
	default:
		return domain.DiagnosticReport{}, fmt.Errorf("unsupported diagnostic item id: %s", id)
	}

	report := a.refreshDiagnosticsFromSettings(settings)
	if fixErr != nil {
		return report, fixErr
	}
	return report, nil
}

// fixModel downloads the configured model when the only problem is
// that its file is missing.
func (a *App) fixModel(settings domain.Settings) error {
	resolved, err := transcribe.ResolveModel(settings.Model, settings.ModelDir)
	if err != nil {
		return fmt.Errorf("model cannot be fixed automatically: %w", err)
	}
	if !resolved.NeedsDownload {
		return nil
	}

	a.publishLog(fmt.Sprintf("[Whisper] Downloading model: %s (%s) ...", resolved.DisplayName(), resolved.Option.SizeLabel))
	if err := a.fetchModel(context.Background(), resolved.Option, resolved.Path); err != nil {
		return fmt.Errorf("download model %s: %w", resolved.DisplayName(), err)
	}
	return nil
}

// fixOutputDir creates the configured output directory. An unset
// directory needs no repair: transcripts then land next to each input.
func fixOutputDir(settings domain.Settings) error {
	outputDir := strings.TrimSpace(settings.OutputDir)
	if outputDir == "" {
		return nil
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory %s: %w", outputDir, err)
	}

	return nil
}

// toolInstallGuidance returns the install command for a missing tool.
func toolInstallGuidance(tool string) error {
	hints, ok := toolInstallHints[tool]
	if !ok {
		return fmt.Errorf("no install guidance for tool: %s", tool)
	}

	platform := goruntime.GOOS
	hint, ok := hints[platform]
	if !ok {
		hint = hints["linux"]
	}

	return fmt.Errorf("automatic install is not supported for %s; run %q and restart the app", tool, hint)
}
