package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sprig/pkg/appctx"
	"github.com/Ramsey-B/sprig/pkg/errors"
	"github.com/Ramsey-B/sprig/pkg/organize"
)

func newServer(logs *[]ectologger.EctoLogMessage) *echo.Echo {
	logger := ectologger.NewEctoLogger(func(msg ectologger.EctoLogMessage) {
		*logs = append(*logs, msg)
	})
	e := echo.New()
	e.HTTPErrorHandler = Error(logger)
	e.Use(Context(), Logger(logger))
	return e
}

func TestContext(t *testing.T) {
	t.Run("should populate the request context", func(t *testing.T) {
		var logs []ectologger.EctoLogMessage
		e := newServer(&logs)
		var seen map[string]string
		h := func(c echo.Context) error {
			ctx := c.Request().Context()
			seen = map[string]string{
				"request_id": appctx.GetRequestID(ctx),
				"action":     appctx.GetAction(ctx),
				"method":     appctx.GetMethod(ctx),
				"route":      appctx.GetRoute(ctx),
			}
			return c.NoContent(http.StatusNoContent)
		}
		e.POST("/orders", h)
		e.POST("/orders/:id/cancel", h, Action("cancel"))

		req := httptest.NewRequest(http.MethodPost, "/orders", nil)
		req.Header.Set(echo.HeaderXRequestID, "req-1")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "req-1", rec.Header().Get(echo.HeaderXRequestID))
		assert.Equal(t, map[string]string{
			"request_id": "req-1",
			"action":     "create",
			"method":     http.MethodPost,
			"route":      "/orders",
		}, seen)

		rec = httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders/4/cancel", nil))
		assert.Equal(t, "cancel", seen["action"])
		assert.Equal(t, "/orders/:id/cancel", seen["route"])
		assert.NotEmpty(t, seen["request_id"])
	})

	t.Run("should take the action from the header", func(t *testing.T) {
		var logs []ectologger.EctoLogMessage
		e := newServer(&logs)
		var action string
		e.PUT("/orders/:id", func(c echo.Context) error {
			action = appctx.GetAction(c.Request().Context())
			return nil
		})

		req := httptest.NewRequest(http.MethodPut, "/orders/1", nil)
		req.Header.Set(HeaderAction, "reopen")
		e.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, "reopen", action)
	})
}

func TestError(t *testing.T) {
	t.Run("should render taxonomy errors with their status and messages", func(t *testing.T) {
		var logs []ectologger.EctoLogMessage
		e := newServer(&logs)
		e.POST("/buyers", func(echo.Context) error {
			return errors.NewInvalidRequestObject("BuyerRequest", []string{"Name can't be blank"},
				errors.NewValidationError("BuyerRequest", []string{"Name can't be blank"}))
		})

		req := httptest.NewRequest(http.MethodPost, "/buyers", nil)
		req.Header.Set(echo.HeaderXRequestID, "req-2")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, []string{"Name can't be blank"}, body.Errors)
		assert.Equal(t, "req-2", body.RequestID)
		assert.NotEmpty(t, logs)
	})

	t.Run("should hide the message of unexpected errors", func(t *testing.T) {
		var logs []ectologger.EctoLogMessage
		e := newServer(&logs)
		e.GET("/boom", func(echo.Context) error {
			return assert.AnError
		})

		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Internal Server Error", body.Message)
	})

	t.Run("should leave handled failures alone", func(t *testing.T) {
		var logs []ectologger.EctoLogMessage
		e := newServer(&logs)
		e.POST("/orders", func(c echo.Context) error {
			_ = c.JSON(http.StatusPaymentRequired, map[string]string{"error": "declined"})
			return organize.ErrHandled
		})

		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/orders", nil))

		assert.Equal(t, http.StatusPaymentRequired, rec.Code)
		assert.JSONEq(t, `{"error":"declined"}`, rec.Body.String())
	})

	t.Run("should use echo HTTP errors as-is", func(t *testing.T) {
		var logs []ectologger.EctoLogMessage
		e := newServer(&logs)

		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Not Found", body.Message)
	})
}
