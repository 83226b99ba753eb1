package organize

import (
	goerrors "errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sprig/pkg/interactor"
	"github.com/Ramsey-B/sprig/pkg/request"
)

// ErrorHandler wraps an echo error handler so that ErrHandled, whose response
// a failure handler already wrote, is ignored.
func ErrorHandler(next echo.HTTPErrorHandler) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if goerrors.Is(err, ErrHandled) {
			return
		}
		next(err, c)
	}
}

// Params collects the route parameters, the query string and a JSON body.
// Body values win over query values, route parameters win over both.
func Params(c echo.Context) (map[string]any, error) {
	params := make(map[string]any)

	for key, values := range c.QueryParams() {
		if len(values) == 1 {
			params[key] = values[0]
			continue
		}
		list := make([]any, len(values))
		for i, v := range values {
			list[i] = v
		}
		params[key] = list
	}

	req := c.Request()
	if req.ContentLength != 0 && req.Method != http.MethodGet {
		body := make(map[string]any)
		if err := (&echo.DefaultBinder{}).BindBody(c, &body); err != nil {
			return nil, err
		}
		for key, value := range body {
			params[key] = value
		}
	}

	for i, name := range c.ParamNames() {
		params[name] = c.ParamValues()[i]
	}

	return params, nil
}

// Respond writes the response of a successful call.
type Respond func(c echo.Context, ic *interactor.Context) error

// Handler serves runner through Organize. Handlers receive the echo.Context
// as the payload caller and may write the response themselves; otherwise a
// handled failure answers 422 with the handler's response, or with its
// messages when the handler set none.
func (o *Organizer) Handler(runner interactor.Runner, schema *request.Schema, respond Respond, opts ...CallOption) echo.HandlerFunc {
	return func(c echo.Context) error {
		params, err := Params(c)
		if err != nil {
			return err
		}

		callOpts := append([]CallOption{Caller(c), AbortOnHandle()}, opts...)
		result, err := o.Organize(c.Request().Context(), runner, params, schema, callOpts...)
		if err != nil {
			if goerrors.Is(err, ErrHandled) && !c.Response().Committed {
				return handledResponse(c, result)
			}
			return err
		}
		if result.Handled {
			if c.Response().Committed {
				return nil
			}
			return handledResponse(c, result)
		}

		if result.Context.Failure() {
			return c.JSON(http.StatusUnprocessableEntity, map[string]any{"errors": result.Context.Errors()})
		}
		return respond(c, result.Context)
	}
}

func handledResponse(c echo.Context, result Result) error {
	if result.Value != nil {
		return c.JSON(http.StatusUnprocessableEntity, result.Value)
	}
	return c.JSON(http.StatusUnprocessableEntity, map[string]any{"errors": result.Errors})
}
