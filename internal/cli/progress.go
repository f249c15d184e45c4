package cli

import (
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

type stopFunc func()

func startSpinner(enabled bool, description string) stopFunc {
	if !enabled {
		return func() {}
	}

	bar := progressbar.NewOptions(
		-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(80*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	stopCh := make(chan struct{})
	doneCh := make(chan struct{})

	go func() {
		defer close(doneCh)
		ticker := time.NewTicker(120 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-stopCh:
				_ = bar.Finish()
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stopCh)
			<-doneCh
		})
	}
}

// batchProgress counts finished files. A nil *batchProgress is a no-op so
// callers need not check whether progress is enabled.
type batchProgress struct {
	bar  *progressbar.ProgressBar
	once sync.Once
}

func startBatchProgress(enabled bool, total int) *batchProgress {
	if !enabled || total <= 0 {
		return nil
	}

	return &batchProgress{bar: progressbar.NewOptions(
		total,
		progressbar.OptionSetDescription("Processing"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(20),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)}
}

func (p *batchProgress) Describe(description string) {
	if p == nil {
		return
	}
	p.bar.Describe(description)
}

func (p *batchProgress) Advance() {
	if p == nil {
		return
	}
	_ = p.bar.Add(1)
}

func (p *batchProgress) Finish() {
	if p == nil {
		return
	}
	p.once.Do(func() {
		_ = p.bar.Finish()
	})
}
