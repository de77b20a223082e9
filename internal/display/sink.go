package display

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
)

// Sink shows a staged image full screen.
type Sink interface {
	Present(ctx context.Context, path string) error
	Close() error
}

// LogSink only logs what it would show. Used on headless systems.
type LogSink struct{}

func (LogSink) Present(_ context.Context, path string) error {
	log.Info("present", "path", path)
	return nil
}

func (LogSink) Close() error { return nil }

// Feh shows each image by running a fresh feh process, terminating the
// previous one first.
type Feh struct {
	Binary     string
	Display    string
	Fullscreen bool
	Background string
	Grace      time.Duration

	mu   sync.Mutex
	proc *viewer
}

type viewer struct {
	cmd  *exec.Cmd
	done chan struct{}
}

func NewFeh(display string, fullscreen bool, background string) *Feh {
	return &Feh{
		Binary:     "feh",
		Display:    display,
		Fullscreen: fullscreen,
		Background: background,
		Grace:      5 * time.Second,
	}
}

func (f *Feh) args(path string) []string {
	var args []string
	if f.Fullscreen {
		args = append(args, "--fullscreen")
	}
	args = append(args, "--hide-pointer", "--no-menus", "--quiet")
	if f.Background != "" {
		args = append(args, "--image-bg", f.Background)
	}
	return append(args, path)
}

func (f *Feh) Present(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("present %s: %w", path, err)
	}

	f.terminateLocked()

	// The viewer outlives the request that started it, so it is not bound to ctx.
	cmd := exec.Command(f.Binary, f.args(path)...)
	cmd.Env = os.Environ()
	if f.Display != "" {
		cmd.Env = append(cmd.Env, "DISPLAY="+f.Display)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", f.Binary, err)
	}

	v := &viewer{cmd: cmd, done: make(chan struct{})}
	go func() {
		err := cmd.Wait()
		if err != nil {
			log.Debug("viewer exited", "pid", cmd.Process.Pid, "err", err)
		}
		close(v.done)
	}()
	f.proc = v

	log.Debug("viewer started", "pid", cmd.Process.Pid, "path", path)
	return nil
}

// Running reports whether the last started viewer is still alive.
func (f *Feh) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.proc == nil {
		return false
	}
	select {
	case <-f.proc.done:
		return false
	default:
		return true
	}
}

func (f *Feh) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terminateLocked()
	return nil
}

func (f *Feh) terminateLocked() {
	v := f.proc
	if v == nil {
		return
	}
	f.proc = nil

	select {
	case <-v.done:
		return
	default:
	}

	if err := v.cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		log.Warn("failed to signal viewer", "pid", v.cmd.Process.Pid, "err", err)
	}

	select {
	case <-v.done:
	case <-time.After(f.Grace):
		log.Warn("viewer ignored SIGTERM, killing", "pid", v.cmd.Process.Pid)
		_ = v.cmd.Process.Kill()
		<-v.done
	}
}
