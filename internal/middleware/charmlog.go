// Package middleware holds echo middleware for the control socket.
package middleware

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// CharmLog logs every request with the package-level charm logger.
func CharmLog() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			fields := []any{
				"method", req.Method,
				"path", req.URL.Path,
				"status", res.Status,
				"took", time.Since(start),
			}

			switch {
			case res.Status >= http.StatusInternalServerError:
				log.Error("request", append(fields, "err", err)...)
			case res.Status >= http.StatusBadRequest:
				log.Warn("request", fields...)
			default:
				log.Debug("request", fields...)
			}
			return nil
		}
	}
}

// RateLimit rejects requests with 429 once the limiter runs dry.
func RateLimit(limiter *rate.Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !limiter.Allow() {
				return c.JSON(http.StatusTooManyRequests, map[string]string{
					"status":  "error",
					"message": "too many requests",
				})
			}
			return next(c)
		}
	}
}
