package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"github.com/matjam/slideframe/internal/middleware"
)

var ErrAlreadyRunning = errors.New("another slideframe is listening on the socket")

// SocketPath is $XDG_RUNTIME_DIR/slideframe.sock, or the same name in the
// temp dir when XDG_RUNTIME_DIR is unset.
func SocketPath() string {
	sockDir := os.Getenv("XDG_RUNTIME_DIR")
	if sockDir == "" {
		sockDir = os.TempDir()
	}
	return filepath.Join(sockDir, "slideframe.sock")
}

// Listen opens the control socket at path. A stale socket left behind by a
// dead process is removed; a live one is an error.
func Listen(path string) (net.Listener, error) {
	if _, err := os.Stat(path); err == nil {
		if conn, err := net.DialTimeout("unix", path, time.Second); err == nil {
			conn.Close()
			return nil, ErrAlreadyRunning
		}
		log.Debug("Removing stale socket", "path", path)
		_ = os.Remove(path)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", path, err)
	}
	return listener, nil
}

// NewServer builds the echo instance serving the control API for c.
func NewServer(c Controller) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.CharmLog())

	RegisterRoutes(e, c)
	return e
}

// Serve runs the control API on ln until ctx is cancelled.
func Serve(ctx context.Context, ln net.Listener, c Controller) error {
	e := NewServer(c)
	e.Listener = ln

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Warn("Socket server shutdown", "err", err)
		}
	}()

	log.Info("Socket server listening", "addr", ln.Addr())

	server := new(http.Server)
	if err := e.StartServer(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("socket server: %w", err)
	}
	return nil
}
