// Package slideshow runs the display loop: rescan, stage the current image,
// hand it to the sink, wait, advance.
package slideshow

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/charmbracelet/log"
	"github.com/matjam/slideframe/internal/config"
	"github.com/matjam/slideframe/internal/display"
	"github.com/matjam/slideframe/internal/locator"
	"github.com/matjam/slideframe/internal/platform"
	"github.com/matjam/slideframe/internal/preload"
	"github.com/matjam/slideframe/internal/sequencer"
	"github.com/matjam/slideframe/internal/staging"
	"github.com/matjam/slideframe/internal/transform"
	"github.com/matjam/slideframe/internal/types"
)

var ErrBusy = errors.New("command queue is full")

type Engine struct {
	cfg         config.Config
	sink        display.Sink
	geo         display.Provider
	seq         *sequencer.Sequencer
	cache       *staging.Cache
	transformer *transform.Transformer
	preloader   *preload.Preloader
	cmds        chan types.Command
	device      string

	mu       sync.RWMutex
	geometry types.Geometry
	current  string

	metrics  *metrics.Set
	shown    *metrics.Counter
	failures *metrics.Counter
	rescans  *metrics.Counter
}

// New wires the slideshow components together. A disabled cache is a cache
// with no budget: every artifact is served once and nothing is preloaded.
func New(cfg config.Config, sink display.Sink, geo display.Provider) *Engine {
	budget := cfg.CacheSize
	if !cfg.EnableCache {
		budget = 0
	}

	e := &Engine{
		cfg:         cfg,
		sink:        sink,
		geo:         geo,
		seq:         sequencer.New(cfg.RandomOrder),
		cache:       staging.New(budget),
		transformer: transform.New(cfg.CacheDir, cfg.ImageQuality),
		cmds:        make(chan types.Command, 4),
		device:      platform.Model(),
		geometry:    types.DefaultGeometry,
		metrics:     metrics.NewSet(),
	}

	e.shown = e.metrics.NewCounter("slideframe_images_shown_total")
	e.failures = e.metrics.NewCounter("slideframe_display_failures_total")
	e.rescans = e.metrics.NewCounter("slideframe_rescans_total")
	e.metrics.NewGauge("slideframe_images", func() float64 { return float64(e.seq.Len()) })

	if cfg.EnableCache && cfg.PreloadCount > 0 {
		e.preloader = preload.New(e.seq, e.preloadStage, cfg.PreloadCount, cfg.PreloadInterval)
	}

	return e
}

// Run blocks until ctx is cancelled or a stop command arrives. Everything the
// engine started is torn down before it returns.
func (e *Engine) Run(ctx context.Context) error {
	log.Info("Starting slideshow", "dir", e.cfg.ImagesDir, "fit", e.cfg.FitMode,
		"duration", e.cfg.DisplayDuration, "device", e.device)

	defer e.shutdown()

	e.setGeometry(display.Resolve(ctx, e.geo))
	log.Info("Display geometry", "geometry", e.Geometry())

	if e.preloader != nil {
		e.preloader.Start(ctx)
	}

	failures := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		e.Refresh()

		img, ok := e.seq.Current()
		if !ok {
			e.setCurrent("")
			log.Info("No images to show, waiting", "dir", e.cfg.ImagesDir, "retry", e.cfg.EmptyRetry)
			if e.wait(ctx, e.cfg.EmptyRetry) == actionStop {
				return nil
			}
			continue
		}

		if err := e.show(ctx, img); err != nil {
			e.failures.Inc()
			failures++
			log.Warn("Skipping image", "path", img.Path, "err", err)

			if failures >= e.seq.Len() {
				failures = 0
				log.Warn("Every image failed, idling", "retry", e.cfg.EmptyRetry)
				if e.wait(ctx, e.cfg.EmptyRetry) == actionStop {
					return nil
				}
			}
			e.seq.Advance()
			continue
		}
		failures = 0

		switch e.wait(ctx, e.cfg.DisplayDuration) {
		case actionStop:
			return nil
		case actionRedisplay:
			continue
		default:
			e.seq.Advance()
		}
	}
}

type action int

const (
	actionTimeout action = iota
	actionNext
	actionRedisplay
	actionStop
)

// wait sleeps for d while servicing commands. A refresh that changes nothing
// keeps waiting out the remaining time.
func (e *Engine) wait(ctx context.Context, d time.Duration) action {
	timer := time.NewTimer(d)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return actionStop
		case <-timer.C:
			return actionTimeout
		case cmd := <-e.cmds:
			switch cmd.Type {
			case types.CommandStop:
				log.Info("Received stop command")
				return actionStop
			case types.CommandNext:
				log.Info("Received next command")
				return actionNext
			case types.CommandRefresh:
				log.Info("Received refresh command")
				if e.refreshAll(ctx) {
					return actionRedisplay
				}
			default:
				log.Error("Unknown command", "type", cmd.Type)
			}
		}
	}
}

// refreshAll rescans the directory and re-queries the display. It reports
// whether the current image needs to be shown again.
func (e *Engine) refreshAll(ctx context.Context) bool {
	changed := e.Refresh().Changed

	g := display.Resolve(ctx, e.geo)
	if g != e.Geometry() {
		log.Info("Display geometry changed, dropping staged images", "from", e.Geometry(), "to", g)
		e.setGeometry(g)
		e.cache.Clear()
		changed = true
	}
	return changed
}

// Refresh rescans the images directory and hands the result to the
// sequencer. Safe to call at any time and from any goroutine.
func (e *Engine) Refresh() sequencer.Result {
	e.rescans.Inc()
	list := locator.Scan(e.cfg.ImagesDir, e.cfg.SupportedFormats, e.cfg.MinFileSize, e.cfg.Recursive)
	res := e.seq.Refresh(list)

	switch {
	case res.Activated:
		log.Info("Images available", "count", len(list))
	case res.Emptied:
		log.Warn("Image directory is now empty", "dir", e.cfg.ImagesDir)
	case res.Changed:
		log.Info("Image list changed", "count", len(list))
	}
	return res
}

func (e *Engine) show(ctx context.Context, img types.SourceImage) error {
	a, err := e.stage(img)
	if err != nil {
		return err
	}
	if err := e.sink.Present(ctx, a.Path); err != nil {
		return err
	}

	e.setCurrent(img.Path)
	e.shown.Inc()
	log.Debug("Showing image", "path", img.Path, "artifact", a.Path)
	return nil
}

func (e *Engine) stage(img types.SourceImage) (types.Artifact, error) {
	g := e.Geometry()
	return e.cache.GetOrCreate(staging.KeyFor(img), func() (types.Artifact, error) {
		start := time.Now()
		a, err := e.transformer.Transform(img, g, e.cfg.FitMode, e.cfg.AutoRotate)
		if err == nil {
			log.Debug("Staged image", "path", img.Path, "geometry", g, "took", time.Since(start))
		}
		return a, err
	})
}

func (e *Engine) preloadStage(_ context.Context, img types.SourceImage) error {
	_, err := e.stage(img)
	return err
}

func (e *Engine) shutdown() {
	log.Info("Stopping slideshow ...")

	if e.preloader != nil && !e.preloader.Stop(e.cfg.ShutdownTimeout) {
		log.Warn("Preloader still busy at shutdown")
	}
	e.cache.Close()
	if err := e.sink.Close(); err != nil {
		log.Warn("Failed to close display", "err", err)
	}
	e.setCurrent("")

	log.Info("Slideshow stopped.")
}

// EnqueueCommand hands a command to the display loop without blocking.
func (e *Engine) EnqueueCommand(cmd types.Command) error {
	select {
	case e.cmds <- cmd:
		return nil
	default:
		return ErrBusy
	}
}

func (e *Engine) Status() types.Status {
	e.mu.RLock()
	current, g := e.current, e.geometry
	e.mu.RUnlock()

	return types.Status{
		CurrentImage: current,
		Index:        e.seq.Index(),
		Images:       e.seq.Len(),
		Active:       !e.seq.Empty(),
		Geometry:     g,
		FitMode:      e.cfg.FitMode,
		Device:       e.device,
		RaspberryPi:  platform.IsRaspberryPi(e.device),
		Cache:        e.cache.Stats(),
	}
}

// WriteMetrics writes engine and cache metrics in Prometheus text format.
func (e *Engine) WriteMetrics(w io.Writer) {
	e.metrics.WritePrometheus(w)
	e.cache.WritePrometheus(w)
}

func (e *Engine) Geometry() types.Geometry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.geometry
}

func (e *Engine) setGeometry(g types.Geometry) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.geometry = g
}

func (e *Engine) setCurrent(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.current = path
}
