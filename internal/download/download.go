package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// Options configure one file download.
type Options struct {
	URL            string
	Destination    string
	ExpectedSHA256 string
	Retries        int
	NoProgress     bool
	HTTPClient     *http.Client
	Logger         *zap.Logger
}

// Fetch downloads a file to Options.Destination. The body streams into
// a sibling .part file and is renamed into place only after the
// SHA-256 digest matches (when one is expected), so the destination
// never holds a partial or corrupt download.
func Fetch(ctx context.Context, opts Options) error {
	if opts.URL == "" {
		return errors.New("download URL is required")
	}
	if opts.Destination == "" {
		return errors.New("destination path is required")
	}
	opts = withDefaults(opts)

	expected := strings.ToLower(strings.TrimSpace(opts.ExpectedSHA256))

	if err := os.MkdirAll(filepath.Dir(opts.Destination), 0o755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}

	for attempt := 1; ; attempt++ {
		err := fetchOnce(ctx, opts, expected)
		if err == nil {
			return nil
		}
		if attempt >= opts.Retries {
			return err
		}

		opts.Logger.Warn("retrying download",
			zap.Int("attempt", attempt+1),
			zap.Int("max", opts.Retries),
			zap.String("url", opts.URL),
		)
		time.Sleep(time.Duration(attempt) * 300 * time.Millisecond)
	}
}

// withDefaults fills the zero-value knobs callers usually leave alone.
func withDefaults(opts Options) Options {
	if opts.Retries <= 0 {
		opts.Retries = 3
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Minute}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return opts
}

// fetchOnce is a single attempt: stream to the .part file, verify, and
// rename. The .part file is removed on every failure path.
func fetchOnce(ctx context.Context, opts Options, expected string) error {
	partPath := opts.Destination + ".part"
	_ = os.Remove(partPath)

	got, err := downloadToFile(ctx, opts, partPath)
	if err != nil {
		_ = os.Remove(partPath)
		return err
	}

	if expected != "" && got != expected {
		_ = os.Remove(partPath)
		return fmt.Errorf("checksum mismatch: expected %s, got %s", expected, got)
	}

	if err := os.Rename(partPath, opts.Destination); err != nil {
		_ = os.Remove(partPath)
		return fmt.Errorf("move downloaded file into place: %w", err)
	}

	return nil
}

// downloadToFile streams the response body into path and returns the
// hex SHA-256 of the bytes written. The request goes out before the
// file is created, so refused connections leave nothing behind.
func downloadToFile(ctx context.Context, opts Options, path string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.URL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "whisper-transcriber/1")

	resp, err := opts.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer file.Close()

	digest := sha256.New()
	writers := []io.Writer{file, digest}

	bar := maybeByteBar(opts.NoProgress, resp.ContentLength)
	if bar != nil {
		writers = append(writers, bar)
	}

	if _, err := io.Copy(io.MultiWriter(writers...), resp.Body); err != nil {
		return "", fmt.Errorf("download body: %w", err)
	}
	if bar != nil {
		_ = bar.Finish()
	}

	if err := file.Sync(); err != nil {
		return "", fmt.Errorf("sync temp file: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	return hex.EncodeToString(digest.Sum(nil)), nil
}

// maybeByteBar returns a stderr byte bar, or nil when progress output
// is suppressed, the size is unknown, or stderr is not a terminal.
func maybeByteBar(noProgress bool, total int64) *progressbar.ProgressBar {
	if noProgress || total <= 0 || !term.IsTerminal(int(os.Stderr.Fd())) {
		return nil
	}
	return progressbar.NewOptions64(
		total,
		progressbar.OptionSetDescription("downloading"),
		progressbar.OptionSetWidth(20),
		progressbar.OptionShowBytes(true),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
	)
}
