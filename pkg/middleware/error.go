package middleware

import (
	goerrors "errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sprig/pkg/appctx"
	"github.com/Ramsey-B/sprig/pkg/errors"
	"github.com/Ramsey-B/sprig/pkg/organize"
	"github.com/Ramsey-B/sprig/pkg/tracing"
)

type ErrorResponse struct {
	Message   string         `json:"message"`
	Errors    []string       `json:"errors,omitempty"`
	RequestID string         `json:"request_id"`
	TraceID   string         `json:"trace_id"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// Error renders errors as ErrorResponse JSON. Failures already answered by a
// failure handler are skipped.
func Error(logger ectologger.Logger) echo.HTTPErrorHandler {
	return organize.ErrorHandler(func(err error, c echo.Context) {
		ctx := c.Request().Context()
		logger.WithContext(ctx).WithError(err).Error("api is returning an error")
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		message := "Internal Server Error"
		var meta map[string]any

		var he *echo.HTTPError
		if goerrors.As(err, &he) {
			code = he.Code
			if msg, ok := he.Message.(string); ok {
				message = msg
			}
		} else if httpErr := errors.ToHTTPError(err); httpErr != nil {
			code = httperror.GetStatusCode(httpErr)
			if code != http.StatusInternalServerError {
				message = httpErr.Error()
				meta = httpErr.Meta
			}
		}

		_ = c.JSON(code, ErrorResponse{
			Message:   message,
			Errors:    errors.Messages(err),
			RequestID: appctx.GetRequestID(ctx),
			TraceID:   tracing.GetTraceID(ctx),
			Meta:      meta,
		})
	})
}
