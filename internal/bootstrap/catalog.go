package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"whisper-transcriber/internal/domain"
	"whisper-transcriber/internal/transcribe"
)

// ListModels returns the built-in whisper.cpp presets with their
// download state under the configured model directory.
func (a *App) ListModels() ([]domain.ModelOption, error) {
	settings, err := a.loadNormalizedSettings()
	if err != nil {
		return nil, err
	}

	models := transcribe.Catalog()
	markDownloadedModels(models, settings.ModelDir)
	return models, nil
}

// DownloadModel fetches a catalog model into the model directory and
// selects it in settings.
func (a *App) DownloadModel(modelID string) (domain.Settings, error) {
	id := strings.TrimSpace(modelID)
	if id == "" {
		return domain.Settings{}, fmt.Errorf("model id is required")
	}

	option, found := transcribe.LookupModel(id)
	if !found {
		return domain.Settings{}, fmt.Errorf("unknown model id: %s", id)
	}

	settings, err := a.loadNormalizedSettings()
	if err != nil {
		return domain.Settings{}, err
	}

	targetPath := filepath.Join(settings.ModelDir, option.FileName)
	a.publishLog(fmt.Sprintf("[Whisper] Downloading model: %s (%s) ...", option.ID, option.SizeLabel))
	if err := a.fetchModel(context.Background(), option, targetPath); err != nil {
		return domain.Settings{}, fmt.Errorf("download model %s: %w", option.Name, err)
	}

	settings.Model = option.ID
	if err := a.Store.Save(settings); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.refreshDiagnosticsFromSettings(settings)
	return settings, nil
}

// loadNormalizedSettings loads persisted settings with defaults applied.
func (a *App) loadNormalizedSettings() (domain.Settings, error) {
	if a.Store == nil {
		return domain.Settings{}, fmt.Errorf("settings store is not configured")
	}
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return normalizeSettings(settings), nil
}

// markDownloadedModels flags catalog entries whose file exists in the
// model directory.
func markDownloadedModels(models []domain.ModelOption, modelDir string) {
	dir := strings.TrimSpace(modelDir)
	if dir == "" {
		return
	}

	for i := range models {
		candidate := filepath.Join(dir, models[i].FileName)
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		models[i].Downloaded = true
		models[i].LocalPath = candidate
	}
}
