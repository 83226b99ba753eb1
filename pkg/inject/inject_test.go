package inject

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Gobusters/ectoinject"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeter struct {
	greeting string
}

func TestContainer(t *testing.T) {
	t.Run("should resolve registered instances from the request context", func(t *testing.T) {
		id := uuid.NewString()
		container, err := NewContainer(id, nil)
		require.NoError(t, err)
		require.NoError(t, ectoinject.RegisterInstance[*greeter](container, &greeter{greeting: "hello"}))

		e := echo.New()
		e.Use(Middleware(id))
		e.GET("/", func(c echo.Context) error {
			_, g, err := ectoinject.GetContext[*greeter](c.Request().Context())
			if err != nil {
				return err
			}
			return c.String(http.StatusOK, g.greeting)
		})

		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "hello", rec.Body.String())
	})

	t.Run("should refuse an unknown container", func(t *testing.T) {
		h := Middleware(uuid.NewString())(func(c echo.Context) error { return nil })
		c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		assert.Error(t, h(c))
	})

	t.Run("should refuse a duplicate container id", func(t *testing.T) {
		id := uuid.NewString()
		_, err := NewContainer(id, nil)
		require.NoError(t, err)
		_, err = NewContainer(id, nil)
		assert.Error(t, err)

		_, err = ectoinject.SetActiveContainer(context.Background(), id)
		assert.NoError(t, err)
	})
}
