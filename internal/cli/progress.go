package cli

import (
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

type stopFunc func()

// startProgress renders a transcription indicator on stderr. A
// positive estimate sizes a bar that ticks once per second; the media
// duration is only a heuristic for how long inference takes, so the
// bar may finish early or late. Without an estimate it spins.
func startProgress(enabled bool, description string, estimate time.Duration) stopFunc {
	if !enabled {
		return func() {}
	}

	var bar *progressbar.ProgressBar
	tick := 120 * time.Millisecond

	if estimate > 0 {
		total := int64(estimate / time.Second)
		if total <= 0 {
			total = 1
		}
		bar = progressbar.NewOptions64(
			total,
			progressbar.OptionSetDescription(description),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetWidth(20),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
		tick = time.Second
	} else {
		bar = progressbar.NewOptions(
			-1,
			progressbar.OptionSetDescription(description),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionThrottle(80*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}

	quit := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				_ = bar.Add(1)
			case <-quit:
				_ = bar.Finish()
				return
			}
		}
	}()

	// Safe to call twice; the bar must not render after stop returns.
	var once sync.Once
	return func() {
		once.Do(func() {
			close(quit)
			wg.Wait()
		})
	}
}
