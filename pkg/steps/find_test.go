package steps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sprig/pkg/errors"
	"github.com/Ramsey-B/sprig/pkg/interactor"
	"github.com/Ramsey-B/sprig/pkg/store"
	"github.com/Ramsey-B/sprig/pkg/values"
)

func TestFindBy(t *testing.T) {
	t.Run("should fail with exactly one message when a required record is missing", func(t *testing.T) {
		s := newStore(t)
		i := interactor.MustNew("ShowOrder", nil, FindBy(s, "order", MustFind()))

		ic := call(t, i, interactor.Values{"order_id": 42})
		assert.True(t, ic.Failure())
		assert.Equal(t, []string{"order not found"}, ic.Errors())
		assert.True(t, ic.Has("order"))
		assert.Nil(t, ic.Get("order"))
	})

	t.Run("should find by the model id and leave the context otherwise untouched", func(t *testing.T) {
		s := newStore(t)
		order := createOrder(t, s, map[string]any{"status": "open"})
		i := interactor.MustNew("ShowOrder", nil, FindBy(s, "order", MustFind()))

		ic := call(t, i, interactor.Values{"order_id": order.Get("id")})
		require.True(t, ic.Success())
		assert.Equal(t, []string{"order", "order_id"}, ic.Keys())

		found, ok := ic.Get("order").(*store.Record)
		require.True(t, ok)
		assert.Equal(t, order.Get("id"), found.Get("id"))
	})

	t.Run("should store nil when not required", func(t *testing.T) {
		s := newStore(t)
		i := interactor.MustNew("ShowOrder", nil, FindBy(s, "order"))

		ic := call(t, i, interactor.Values{})
		assert.True(t, ic.Success())
		assert.Nil(t, ic.Get("order"))
	})

	t.Run("should resolve query values from the context", func(t *testing.T) {
		s := newStore(t)
		createOrder(t, s, map[string]any{"buyer_id": 1, "status": "closed"})
		open := createOrder(t, s, map[string]any{"buyer_id": 1, "status": "open"})

		i := interactor.MustNew("ShowOpenOrder", nil, FindBy(s, "order",
			Query(map[string]any{
				"buyer_id": "buyer_id",
				"status":   values.Literal("open"),
			}),
			As("current_order"),
		))

		ic := call(t, i, interactor.Values{"buyer_id": 1})
		found, ok := ic.Get("current_order").(*store.Record)
		require.True(t, ok)
		assert.Equal(t, open.Get("id"), found.Get("id"))
		assert.False(t, ic.Has("order"))
	})

	t.Run("should evaluate computed query values", func(t *testing.T) {
		s := newStore(t)
		order := createOrder(t, s, map[string]any{"buyer_id": 9, "status": "open"})

		i := interactor.MustNew("ShowOrder", nil, FindBy(s, "order", Query(map[string]any{
			"buyer_id": func(src values.Source) any {
				buyer, _ := src.Lookup("buyer")
				return buyer.(map[string]any)["id"]
			},
		})))

		ic := call(t, i, interactor.Values{"buyer": map[string]any{"id": 9}})
		found := ic.Get("order").(*store.Record)
		assert.Equal(t, order.Get("id"), found.Get("id"))
	})

	t.Run("should reject scopes at declaration", func(t *testing.T) {
		s := newStore(t)
		_, err := interactor.New("ShowOrder", nil, FindBy(s, "order", Scope("open")))
		assert.True(t, errors.IsArgumentError(err))
	})
}

func TestFindWhere(t *testing.T) {
	t.Run("should store matches under the plural model name", func(t *testing.T) {
		s := newStore(t)
		createOrder(t, s, map[string]any{"buyer_id": 1, "status": "open"})
		createOrder(t, s, map[string]any{"buyer_id": 1, "status": "closed"})
		keep := createOrder(t, s, map[string]any{"buyer_id": 1, "status": "open"})
		createOrder(t, s, map[string]any{"buyer_id": 2, "status": "open"})

		i := interactor.MustNew("ListOrders", nil, FindWhere(s, "order",
			Where(map[string]any{"buyer_id": "buyer_id"}),
			WhereNot(map[string]any{"id": values.Literal(int64(1))}),
			Scope("open"),
		))

		ic := call(t, i, interactor.Values{"buyer_id": 1})
		require.True(t, ic.Success())
		records, ok := ic.Get("orders").([]*store.Record)
		require.True(t, ok)
		require.Len(t, records, 1)
		assert.Equal(t, keep.Get("id"), records[0].Get("id"))
	})

	t.Run("should fail when a required collection is empty", func(t *testing.T) {
		s := newStore(t)
		i := interactor.MustNew("ListOrders", nil, FindWhere(s, "order", MustFind()))

		ic := call(t, i, interactor.Values{})
		assert.Equal(t, []string{"no orders were found"}, ic.Errors())
		assert.Empty(t, ic.Get("orders"))
	})

	t.Run("should return an error for unknown scopes", func(t *testing.T) {
		s := newStore(t)
		i := interactor.MustNew("ListOrders", nil, FindWhere(s, "order", Scope("archived"), As("found")))

		_, err := i.Call(t.Context(), interactor.Values{})
		assert.True(t, errors.IsArgumentError(err))
	})
}
