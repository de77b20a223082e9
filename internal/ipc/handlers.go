package ipc

import (
	"bytes"
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/matjam/slideframe"
	"github.com/matjam/slideframe/internal/types"
	"github.com/spf13/viper"
)

// GET /status
func statusHandler(m Controller) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSONPretty(http.StatusOK, StatusResponse{
			Status:    "ok",
			Message:   "slideframe is running",
			Version:   strings.Trim(slideframe.Version, "\n\r "),
			PID:       os.Getpid(),
			Socket:    SocketPath(),
			Config:    viper.ConfigFileUsed(),
			Slideshow: m.Status(),
		}, "  ")
	}
}

// GET /metrics
func metricsHandler(m Controller) echo.HandlerFunc {
	return func(c echo.Context) error {
		var buf bytes.Buffer
		m.WriteMetrics(&buf)
		return c.Blob(http.StatusOK, "text/plain; version=0.0.4", buf.Bytes())
	}
}

// POST /stop
func stopHandler(m Controller) echo.HandlerFunc {
	return commandHandler(m, types.CommandStop)
}

// POST /next
func nextHandler(m Controller) echo.HandlerFunc {
	return commandHandler(m, types.CommandNext)
}

// POST /refresh
func refreshHandler(m Controller) echo.HandlerFunc {
	return commandHandler(m, types.CommandRefresh)
}

func commandHandler(m Controller, t types.CommandType) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := m.EnqueueCommand(types.Command{Type: t}); err != nil {
			return c.JSON(http.StatusServiceUnavailable, Response{Status: "error", Message: err.Error()})
		}
		return c.JSON(http.StatusOK, Response{Status: "ok"})
	}
}
