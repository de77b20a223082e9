package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/matjam/slideframe/internal/config"
	"github.com/matjam/slideframe/internal/display"
	"github.com/matjam/slideframe/internal/ipc"
	"github.com/matjam/slideframe/internal/slideshow"
	"github.com/sevlyar/go-daemon"
	"github.com/spf13/cobra"
)

func NewStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the slideshow",
		Run: func(cmd *cobra.Command, args []string) {
			background, _ := cmd.Flags().GetBool("background")
			StartManager(background)
		},
	}
}

// StartManager runs the slideshow until it is stopped. With background set
// it forks a daemon and returns in the parent.
func StartManager(background bool) {
	if _, err := ipc.SendStatus(); err == nil {
		log.Infof("slideframe is already running, exiting")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("%v", err)
	}

	// The daemon child runs with the same flags and passes through Reborn too,
	// which is where it picks up its pid file.
	if background {
		ctx := daemonContext()
		child, err := ctx.Reborn()
		if err != nil {
			log.Fatalf("Failed to start in the background: %v", err)
		}
		if child != nil {
			log.Infof("slideframe started in the background with PID %d", child.Pid)
			return
		}
		defer ctx.Release()
	}

	setupLogger(cfg, os.Getenv("BACKGROUND_PROCESS") == "1")

	log.Infof("StartManager() started in PID: %d", os.Getpid())
	log.Info("Configuration",
		"images", cfg.ImagesDir,
		"cache", cfg.EnableCache,
		"cache_size", humanize.Bytes(uint64(cfg.CacheSize)),
		"preload", cfg.PreloadCount)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listener, err := ipc.Listen(ipc.SocketPath())
	if err != nil {
		log.Fatalf("Failed to open control socket: %v", err)
	}

	engine := slideshow.New(cfg, newSink(cfg), newGeometryProvider(cfg))

	served := make(chan struct{})
	go func() {
		defer close(served)
		log.Infof("Starting socket server")
		if err := ipc.Serve(ctx, listener, engine); err != nil {
			log.Errorf("Socket server error: %v", err)
		}
	}()

	if err := engine.Run(ctx); err != nil {
		log.Errorf("Slideshow error: %v", err)
	}

	stop()
	select {
	case <-served:
	case <-time.After(cfg.ShutdownTimeout):
		log.Warn("Socket server did not stop in time")
	}

	log.Infof("slideframe exited")
}

func newSink(cfg config.Config) display.Sink {
	if cfg.Sink == config.SinkNone {
		return display.LogSink{}
	}
	return display.NewFeh(cfg.Display, cfg.Fullscreen, cfg.BackgroundColor)
}

func newGeometryProvider(cfg config.Config) display.Provider {
	if cfg.Resolution.Valid() {
		return display.Static{Size: cfg.Resolution}
	}
	return display.XRandr{Display: cfg.Display}
}

func daemonContext() *daemon.Context {
	runDir := filepath.Dir(ipc.SocketPath())
	return &daemon.Context{
		PidFileName: filepath.Join(runDir, "slideframe.pid"),
		PidFilePerm: 0o644,
		WorkDir:     "/",
		Umask:       0o027,
		Env:         append(os.Environ(), "BACKGROUND_PROCESS=1"),
	}
}

// setupLogger applies the configured level and, when a log dir is set,
// writes to a rotating log file. A background process logs to the file only.
func setupLogger(cfg config.Config, background bool) {
	log.SetLevel(cfg.LogLevel)

	if cfg.LogDir == "" {
		return
	}

	w, err := openLogFile(cfg)
	if err != nil {
		log.Errorf("Failed to open log file, logging to stderr only: %v", err)
		return
	}

	if background {
		log.SetOutput(w)
		return
	}
	log.SetOutput(io.MultiWriter(os.Stderr, w))
}

func openLogFile(cfg config.Config) (io.Writer, error) {
	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		return nil, err
	}
	logPath := filepath.Join(cfg.LogDir, "slideframe.log")

	if !cfg.LogRotation {
		return os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	}

	opts := []rotatelogs.Option{
		rotatelogs.WithLinkName(logPath),
		rotatelogs.WithRotationTime(24 * time.Hour),
	}
	if cfg.MaxLogSize > 0 {
		opts = append(opts, rotatelogs.WithRotationSize(cfg.MaxLogSize*1024*1024))
	}
	if cfg.BackupCount > 0 {
		opts = append(opts, rotatelogs.WithRotationCount(uint(cfg.BackupCount)))
	}

	writer, err := rotatelogs.New(logPath+".%Y%m%d%H%M", opts...)
	if err != nil {
		return nil, errors.Join(errors.New("failed to configure log rotation"), err)
	}
	return writer, nil
}
