package diagnostics

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"whisper-transcriber/internal/domain"
	"whisper-transcriber/internal/transcribe"
)

// sysFuncs are the OS touchpoints the checker goes through, swapped
// for fakes in tests.
type sysFuncs struct {
	lookPath   func(string) (string, error)
	stat       func(string) (os.FileInfo, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// Checker inspects the host for everything a transcription run needs:
// media tools, the whisper binary, the configured model, and the
// export directory.
type Checker struct {
	sys sysFuncs
}

// NewChecker wires the checker to the real OS.
func NewChecker() *Checker {
	return &Checker{sys: sysFuncs{
		lookPath:   exec.LookPath,
		stat:       os.Stat,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}}
}

// Run executes every startup check and stamps the combined report.
func (c *Checker) Run(settings domain.Settings) domain.DiagnosticReport {
	report := domain.DiagnosticReport{GeneratedAt: time.Now().UTC()}
	report.Append(
		c.checkExecutable("ffmpeg"),
		c.checkExecutable("ffprobe"),
		c.checkWhisper(),
		c.checkModel(settings.Model, settings.ModelDir),
		c.checkExportDir(settings.OutputDir),
	)
	return report
}

func pass(id, name, message string) domain.DiagnosticItem {
	return domain.DiagnosticItem{ID: id, Name: name, Status: domain.DiagnosticStatusPass, Message: message}
}

func fail(id, name, message, hint string) domain.DiagnosticItem {
	return domain.DiagnosticItem{ID: id, Name: name, Status: domain.DiagnosticStatusFail, Message: message, Hint: hint}
}

// checkExecutable reports whether a required tool resolves on PATH.
func (c *Checker) checkExecutable(name string) domain.DiagnosticItem {
	path, err := c.sys.lookPath(name)
	if err != nil {
		return fail("tool_"+name, name,
			fmt.Sprintf("Tool not found in PATH: %s", name),
			"Install ffmpeg and ensure the binary is available on PATH before starting a transcription.")
	}
	return pass("tool_"+name, name, "Found at "+path)
}

// checkWhisper honors the same binary override the engine itself uses.
func (c *Checker) checkWhisper() domain.DiagnosticItem {
	const id, name = "tool_whisper-cli", "whisper-cli"

	if override := strings.TrimSpace(os.Getenv(transcribe.WhisperPathEnv)); override != "" {
		if _, err := c.sys.stat(override); err != nil {
			return fail(id, name,
				fmt.Sprintf("%s points to a missing file: %s", transcribe.WhisperPathEnv, override),
				"Fix the environment variable or unset it to search PATH instead.")
		}
		return pass(id, name, fmt.Sprintf("Found at %s (%s)", override, transcribe.WhisperPathEnv))
	}

	path, err := c.sys.lookPath(name)
	if err != nil {
		return fail(id, name,
			"Tool not found in PATH: whisper-cli",
			fmt.Sprintf("Install whisper.cpp and put whisper-cli on PATH, or set %s to the binary.", transcribe.WhisperPathEnv))
	}
	return pass(id, name, "Found at "+path)
}

// checkModel validates the configured model reference. Only a missing
// catalog model is fixable; the fix is the download itself.
func (c *Checker) checkModel(model, modelDir string) domain.DiagnosticItem {
	const id, name = "model", "Whisper model"

	resolved, err := transcribe.ResolveModel(model, modelDir)
	if err != nil {
		return fail(id, name,
			fmt.Sprintf("Model is not usable: %v", err),
			"Pick a model preset in settings or point to an existing .bin/.gguf model file.")
	}
	if resolved.NeedsDownload {
		item := fail(id, name,
			fmt.Sprintf("Model %s is not downloaded (expected at %s)", resolved.DisplayName(), resolved.Path),
			"Download it from the model list or run the fix action.")
		item.Fixable = true
		return item
	}
	return pass(id, name, "Model file found: "+resolved.Path)
}

// checkExportDir validates the transcript directory. An unset directory
// passes: the worker then writes each transcript next to its input.
func (c *Checker) checkExportDir(outputDir string) domain.DiagnosticItem {
	const id, name = "output_dir", "Output directory"

	outputDir = strings.TrimSpace(outputDir)
	if outputDir == "" {
		return pass(id, name, "Not set; transcripts are written next to each input file.")
	}

	if err := c.sys.mkdirAll(outputDir, 0o755); err != nil {
		item := fail(id, name,
			fmt.Sprintf("Directory cannot be created: %s", outputDir),
			"Pick a different folder or fix permissions on the parent path.")
		item.Fixable = true
		return item
	}

	if err := c.probeWrite(outputDir); err != nil {
		return fail(id, name,
			fmt.Sprintf("No write permission in %s", outputDir),
			"Transcripts cannot be saved there; choose another folder.")
	}

	return pass(id, name, "Writable: "+outputDir)
}

// probeWrite drops and deletes a marker file to prove write access.
// Cleanup errors are ignored.
func (c *Checker) probeWrite(dir string) error {
	file, err := c.sys.createTemp(dir, ".write-check-*")
	if err != nil {
		return err
	}

	name := file.Name()
	_ = file.Close()
	_ = c.sys.remove(name)
	return nil
}

// NewCheckerForTests builds a checker on injected PATH and filesystem
// lookups.
func NewCheckerForTests(
	lookPath func(string) (string, error),
	stat func(string) (os.FileInfo, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{sys: sysFuncs{
		lookPath:   lookPath,
		stat:       stat,
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
	}}
}
