package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"whisper-transcriber/internal/domain"
	"whisper-transcriber/internal/transcribe"
)

// TestApplyFixOutputDirCreatesDirectory verifies the directory fix.
func TestApplyFixOutputDirCreatesDirectory(t *testing.T) {
	outputDir := filepath.Join(t.TempDir(), "nested", "transcripts")
	store := &fakeStore{settings: domain.Settings{
		ModelDir:  t.TempDir(),
		OutputDir: outputDir,
	}}
	app := newFixtureApp(store)

	if _, err := app.ApplyFix("output_dir"); err != nil {
		t.Fatalf("apply fix: %v", err)
	}
	if _, err := os.Stat(outputDir); err != nil {
		t.Fatalf("stat output dir: %v", err)
	}
	if store.saves != 0 {
		t.Fatalf("saves = %d, fixes must not rewrite settings", store.saves)
	}
}

// TestApplyFixOutputDirUnsetIsNoop verifies the write-next-to-input
// mode is left alone.
func TestApplyFixOutputDirUnsetIsNoop(t *testing.T) {
	store := &fakeStore{settings: domain.Settings{
		ModelDir:  t.TempDir(),
		OutputDir: "",
	}}
	app := newFixtureApp(store)

	if _, err := app.ApplyFix("output_dir"); err != nil {
		t.Fatalf("apply fix: %v", err)
	}
	if store.saves != 0 {
		t.Fatalf("saves = %d, want 0", store.saves)
	}
}

// TestApplyFixModelDownloadsMissingPreset verifies the download fix.
func TestApplyFixModelDownloadsMissingPreset(t *testing.T) {
	modelDir := t.TempDir()
	store := &fakeStore{settings: domain.Settings{
		Model:     "base",
		ModelDir:  modelDir,
		OutputDir: t.TempDir(),
	}}
	app := newFixtureApp(store)

	var fetchedDest string
	app.fetchModel = func(ctx context.Context, option domain.ModelOption, dest string) error {
		fetchedDest = dest
		return os.WriteFile(dest, []byte("model"), 0o644)
	}

	if _, err := app.ApplyFix("model"); err != nil {
		t.Fatalf("apply fix: %v", err)
	}
	if fetchedDest != filepath.Join(modelDir, "ggml-base.bin") {
		t.Fatalf("fetched dest = %q", fetchedDest)
	}
}

// TestApplyFixModelSkipsWhenPresent verifies no redundant download.
func TestApplyFixModelSkipsWhenPresent(t *testing.T) {
	modelDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(modelDir, "ggml-base.bin"), []byte("model"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	store := &fakeStore{settings: domain.Settings{
		Model:     "base",
		ModelDir:  modelDir,
		OutputDir: t.TempDir(),
	}}
	app := newFixtureApp(store)

	fetched := false
	app.fetchModel = func(ctx context.Context, option domain.ModelOption, dest string) error {
		fetched = true
		return nil
	}

	if _, err := app.ApplyFix("model"); err != nil {
		t.Fatalf("apply fix: %v", err)
	}
	if fetched {
		t.Fatal("model was already present, fetch should not run")
	}
}

// TestApplyFixUnknownModelFails verifies unfixable model references.
func TestApplyFixUnknownModelFails(t *testing.T) {
	store := &fakeStore{settings: domain.Settings{
		Model:     "gigantic",
		ModelDir:  t.TempDir(),
		OutputDir: t.TempDir(),
	}}
	app := newFixtureApp(store)

	if _, err := app.ApplyFix("model"); err == nil {
		t.Fatal("expected error for unknown model")
	}
}

// TestApplyFixToolReturnsGuidance verifies tools are not installed
// automatically.
func TestApplyFixToolReturnsGuidance(t *testing.T) {
	t.Setenv(transcribe.WhisperPathEnv, "")
	store := &fakeStore{settings: domain.Settings{
		ModelDir:  t.TempDir(),
		OutputDir: t.TempDir(),
	}}
	app := newFixtureApp(store)

	_, err := app.ApplyFix("tool_ffmpeg")
	if err == nil {
		t.Fatal("expected guidance error")
	}
	if !strings.Contains(err.Error(), "ffmpeg") || !strings.Contains(err.Error(), "install") {
		t.Fatalf("err = %v", err)
	}

	_, err = app.ApplyFix("tool_whisper-cli")
	if err == nil || !strings.Contains(err.Error(), "whisper") {
		t.Fatalf("err = %v", err)
	}
}

// TestApplyFixRejectsUnknownID verifies input validation.
func TestApplyFixRejectsUnknownID(t *testing.T) {
	app := newFixtureApp(&fakeStore{})

	if _, err := app.ApplyFix("nonsense"); err == nil {
		t.Fatal("expected error for unsupported id")
	}
	if _, err := app.ApplyFix("  "); err == nil {
		t.Fatal("expected error for empty id")
	}
}
