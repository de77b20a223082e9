// Package preload warms the staging cache for the images that are about to
// be shown.
package preload

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/matjam/slideframe/internal/staging"
	"github.com/matjam/slideframe/internal/types"
)

// Source is the read side of the sequencer. The preloader never advances it.
type Source interface {
	Peek(offset int) (types.SourceImage, bool)
	Len() int
}

// StageFunc stages a single image. The result is discarded.
type StageFunc func(ctx context.Context, img types.SourceImage) error

type Preloader struct {
	src      Source
	stage    StageFunc
	window   int
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(src Source, stage StageFunc, window int, interval time.Duration) *Preloader {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Preloader{
		src:      src,
		stage:    stage,
		window:   window,
		interval: interval,
	}
}

// Pass stages up to window upcoming images. The position is re-read for every
// candidate, so a rescan that shrinks or reorders the list mid-pass is safe.
// Failures are logged and skipped.
func (p *Preloader) Pass(ctx context.Context) (warmed, failed int) {
	seen := make(map[string]struct{}, p.window)

	for offset := 1; offset <= p.window; offset++ {
		if ctx.Err() != nil {
			return
		}
		if p.src.Len() == 0 {
			return
		}
		img, ok := p.src.Peek(offset)
		if !ok {
			return
		}
		if _, dup := seen[img.Path]; dup {
			continue
		}
		seen[img.Path] = struct{}{}

		err := p.stage(ctx, img)
		switch {
		case err == nil:
			warmed++
		case errors.Is(err, staging.ErrClosed), errors.Is(err, context.Canceled):
			return
		default:
			failed++
			log.Warn("preload failed", "path", img.Path, "err", err)
		}
	}
	return
}

// Start launches the background loop. It runs a pass immediately and then
// every interval until ctx is cancelled or Stop is called.
func (p *Preloader) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.loop(ctx, p.done)
}

func (p *Preloader) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	log.Debug("preloader started", "window", p.window, "interval", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		warmed, failed := p.Pass(ctx)
		if warmed > 0 || failed > 0 {
			log.Debug("preload pass", "warmed", warmed, "failed", failed)
		}

		select {
		case <-ctx.Done():
			log.Debug("preloader stopped")
			return
		case <-ticker.C:
		}
	}
}

// Stop cancels the loop and waits up to timeout for it to exit. It returns
// false if the loop was still busy when the timeout expired; a transform in
// flight is left to finish on its own.
func (p *Preloader) Stop(timeout time.Duration) bool {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	if done == nil {
		return true
	}
	cancel()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		log.Warn("preloader did not stop in time", "timeout", timeout)
		return false
	}
}
