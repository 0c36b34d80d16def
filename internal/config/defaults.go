package config

import (
	"os"
	"path/filepath"

	"whisper-transcriber/internal/domain"
)

const appDirName = ".whisper-transcriber"

// DataDir returns the per-user application data directory.
func DataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, appDirName)
}

// SettingsPath returns the JSON settings file location.
func SettingsPath() string {
	return filepath.Join(DataDir(), "settings.json")
}

// DefaultModelDir returns where downloaded whisper models are stored.
func DefaultModelDir() string {
	return filepath.Join(DataDir(), "models")
}

// DefaultSettings returns baseline local configuration for first launch.
// Model stays empty so the WHISPER_MODEL environment variable can pick
// the preset before the built-in default applies.
func DefaultSettings() domain.Settings {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return domain.Settings{
		ModelDir:  DefaultModelDir(),
		OutputDir: filepath.Join(homeDir, "Documents", "Transcripts"),
		Language:  "auto",
	}
}
