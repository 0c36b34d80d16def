package transcribe

import (
	"context"
	"strconv"
	"strings"
)

// fallbackDurationSeconds is used when ffprobe cannot report a
// duration; ten minutes keeps progress estimates plausible.
const fallbackDurationSeconds = 600

// ProbeDuration reports the media duration in seconds using ffprobe.
// The result only feeds progress display, never correctness: failures
// fall back to a fixed estimate and the value is floored at one second.
func ProbeDuration(ctx context.Context, mediaPath string) float64 {
	return probeDurationWith(ctx, &execRunner{}, mediaPath)
}

// probeDurationWith runs the probe through an injectable runner.
func probeDurationWith(ctx context.Context, runner commandRunner, mediaPath string) float64 {
	result, err := runner.Run(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=nw=1:nk=1",
		mediaPath,
	)
	if err != nil {
		return fallbackDurationSeconds
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(result.Stdout), 64)
	if err != nil {
		return fallbackDurationSeconds
	}
	if seconds < 1 {
		return 1
	}
	return seconds
}
