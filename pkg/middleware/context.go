package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sprig/pkg/appctx"
)

// HeaderAction lets a client name the action explicitly, e.g. for RPC-style
// routes that share a path.
const HeaderAction = "X-Action"

// Context stores request-scoped values on the request context. The action is
// taken from the X-Action header, falling back to the HTTP method.
func Context() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, requestID)

			ctx := req.Context()
			ctx = appctx.SetRequestID(ctx, requestID)
			ctx = appctx.SetAction(ctx, action(c))
			ctx = appctx.SetMethod(ctx, req.Method)
			ctx = appctx.SetRoute(ctx, c.Path())
			ctx = appctx.SetRemoteIP(ctx, c.RealIP())

			c.SetRequest(req.WithContext(ctx))

			return next(c)
		}
	}
}

func action(c echo.Context) string {
	if name := c.Request().Header.Get(HeaderAction); name != "" {
		return name
	}
	return restAction(c.Request().Method)
}

// Action overrides the action of a single route.
//
//	e.POST("/orders/:id/cancel", h, middleware.Action("cancel"))
func Action(name string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			c.SetRequest(req.WithContext(appctx.SetAction(req.Context(), name)))
			return next(c)
		}
	}
}

func restAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "destroy"
	default:
		return "show"
	}
}
