package orders

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sprig/pkg/failure"
)

// NotFound answers failures whose messages report a missing record with a
// 404. It only acts for HTTP callers.
func NotFound() failure.Handler {
	return failure.HandlerFunc(func(_ context.Context, p *failure.Payload) bool {
		c, ok := p.Caller.(echo.Context)
		if !ok || c.Response().Committed {
			return false
		}
		for _, msg := range p.Errors() {
			if strings.HasSuffix(msg, " not found") {
				_ = c.JSON(http.StatusNotFound, map[string]any{"errors": p.Errors()})
				return true
			}
		}
		return false
	})
}
