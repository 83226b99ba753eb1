package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sprig/pkg/appctx"
	"github.com/Ramsey-B/sprig/pkg/metrics"
)

// Logger writes one access line per request and records the HTTP metrics.
// Server errors log at error level, client errors at warn. Register it after
// Context.
func Logger(logger ectologger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			began := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}
			took := time.Since(began)

			ctx := c.Request().Context()
			action := appctx.GetAction(ctx)
			status := c.Response().Status
			metrics.HTTPRequestsTotal.WithLabelValues(action, strconv.Itoa(status)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(action).Observe(took.Seconds())

			entry := logger.WithContext(ctx).WithFields(map[string]interface{}{
				"request_id":  appctx.GetRequestID(ctx),
				"action":      action,
				"route":       appctx.GetRoute(ctx),
				"method":      c.Request().Method,
				"uri":         c.Request().RequestURI,
				"status":      status,
				"remote_ip":   appctx.GetRemoteIP(ctx),
				"duration_ms": took.Milliseconds(),
				"bytes_out":   c.Response().Size,
			})

			switch {
			case status >= http.StatusInternalServerError:
				entry.Errorf("%s %s", action, http.StatusText(status))
			case status >= http.StatusBadRequest:
				entry.Warnf("%s %s", action, http.StatusText(status))
			default:
				entry.Infof("%s %s", action, http.StatusText(status))
			}
			return nil
		}
	}
}
