package orders

import (
	"net/http"

	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectoinject/ectocontainer"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sprig/config"
	"github.com/Ramsey-B/sprig/pkg/interactor"
	"github.com/Ramsey-B/sprig/pkg/middleware"
	"github.com/Ramsey-B/sprig/pkg/organize"
	"github.com/Ramsey-B/sprig/pkg/request"
	"github.com/Ramsey-B/sprig/pkg/store"
)

// Provide builds the order schemas and interactors and registers them, with
// the organizer and repository, in container.
func Provide(container ectocontainer.DIContainer, settings *config.Settings, repo store.Repository, o *organize.Organizer) error {
	schemas, err := NewSchemas(settings)
	if err != nil {
		return err
	}
	its, err := NewInteractors(repo)
	if err != nil {
		return err
	}

	if err := ectoinject.RegisterInstance[store.Repository](container, repo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*organize.Organizer](container, o); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*Schemas](container, schemas); err != nil {
		return err
	}
	return ectoinject.RegisterInstance[*Interactors](container, its)
}

// Register mounts the order routes. Handlers resolve their dependencies from
// the request's container.
func Register(g *echo.Group) {
	g.POST("/orders", organized(func(s *Schemas, i *Interactors) (interactor.Runner, *request.Schema) {
		return i.Place, s.Place
	}, record(http.StatusCreated, PlacedKey)))
	g.GET("/buyers/:buyer_id/orders", organized(func(s *Schemas, i *Interactors) (interactor.Runner, *request.Schema) {
		return i.List, s.List
	}, list))
	g.PATCH("/orders/:id", organized(func(s *Schemas, i *Interactors) (interactor.Runner, *request.Schema) {
		return i.Annotate, s.Annotate
	}, record(http.StatusOK, ModelName)))
	g.POST("/orders/:id/cancel", organized(func(s *Schemas, i *Interactors) (interactor.Runner, *request.Schema) {
		return i.Cancel, s.Cancel
	}, cancelled), middleware.Action("cancel"))
	g.POST("/orders/:id/reorder", organized(func(s *Schemas, i *Interactors) (interactor.Runner, *request.Schema) {
		return i.Reorder, s.Reorder
	}, record(http.StatusCreated, PlacedKey)), middleware.Action("reorder"))
}

type pickFunc func(*Schemas, *Interactors) (interactor.Runner, *request.Schema)

func organized(pick pickFunc, respond organize.Respond) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		ctx, o, err := ectoinject.GetContext[*organize.Organizer](ctx)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to get organizer").SetInternal(err)
		}
		ctx, schemas, err := ectoinject.GetContext[*Schemas](ctx)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to get schemas").SetInternal(err)
		}
		ctx, its, err := ectoinject.GetContext[*Interactors](ctx)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to get interactors").SetInternal(err)
		}
		c.SetRequest(c.Request().WithContext(ctx))

		runner, schema := pick(schemas, its)
		return o.Handler(runner, schema, respond)(c)
	}
}

func record(status int, key string) organize.Respond {
	return func(c echo.Context, ic *interactor.Context) error {
		order, ok := ic.Get(key).(*store.Record)
		if !ok {
			return c.NoContent(http.StatusNoContent)
		}
		return c.JSON(status, order.Attributes())
	}
}

func list(c echo.Context, ic *interactor.Context) error {
	records, _ := ic.Get("orders").([]*store.Record)
	body := make([]map[string]any, len(records))
	for i, r := range records {
		body[i] = r.Attributes()
	}
	return c.JSON(http.StatusOK, map[string]any{"orders": body})
}

func cancelled(c echo.Context, ic *interactor.Context) error {
	if dryRun, _ := ic.Get("dry_run").(bool); dryRun {
		return c.JSON(http.StatusAccepted, map[string]any{"dry_run": true, "order_id": ic.Get("order_id")})
	}
	return record(http.StatusOK, ModelName)(c, ic)
}
