package transcribe

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TranscriptStem builds the output base name for a media file:
// "<media stem>_transcript_<YYYYMMDD_HHMMSS>". Items finishing within
// the same second produce identical names and the writers overwrite.
func TranscriptStem(mediaPath string, now time.Time) string {
	base := filepath.Base(mediaPath)
	stem := strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
	if stem == "" || stem == "." {
		stem = "transcript"
	}
	return fmt.Sprintf("%s_transcript_%s", stem, now.Format("20060102_150405"))
}

// WriteTranscript writes trimmed text plus a trailing newline to
// <dir>/<stem>.txt, creating the directory when missing.
func WriteTranscript(dir, stem, text string) (string, error) {
	return writeOutput(dir, stem+".txt", strings.TrimSpace(text)+"\n")
}

// WriteCaptions writes SRT captions to <dir>/<stem>.srt.
func WriteCaptions(dir, stem, captions string) (string, error) {
	if !strings.HasSuffix(captions, "\n") {
		captions += "\n"
	}
	return writeOutput(dir, stem+".srt", captions)
}

// writeOutput creates dir as needed and writes one artifact.
func writeOutput(dir, fileName, content string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	path := filepath.Join(dir, fileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", fileName, err)
	}
	return path, nil
}
