package ipc

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/matjam/slideframe/internal/middleware"
	"golang.org/x/time/rate"
)

func RegisterRoutes(e *echo.Echo, c Controller) {
	e.GET("/status", statusHandler(c))
	e.GET("/metrics", metricsHandler(c))

	limited := middleware.RateLimit(rate.NewLimiter(rate.Every(200*time.Millisecond), 5))
	e.POST("/stop", stopHandler(c), limited)
	e.POST("/next", nextHandler(c), limited)
	e.POST("/refresh", refreshHandler(c), limited)
}
