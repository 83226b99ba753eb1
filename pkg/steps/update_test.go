package steps

import (
	"context"
	goerrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sprig/pkg/errors"
	"github.com/Ramsey-B/sprig/pkg/interactor"
	"github.com/Ramsey-B/sprig/pkg/store"
	"github.com/Ramsey-B/sprig/pkg/values"
)

func TestUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("should fail when the record is missing", func(t *testing.T) {
		s := newStore(t)
		i := interactor.MustNew("CloseOrder", nil, Update(s, "order", Attributes(Assign("status", values.Literal("closed")))))

		ic := call(t, i, interactor.Values{})
		assert.Equal(t, []string{"order not found"}, ic.Errors())
	})

	t.Run("should assign context values and literals", func(t *testing.T) {
		s := newStore(t)
		order := createOrder(t, s, map[string]any{"status": "open"})

		i := interactor.MustNew("CloseOrder", nil, Update(s, "order", Attributes(
			Assign("status", values.Literal("closed")),
			Assign("note", "reason"),
		), StoreAs("closed_order")))

		ic := call(t, i, interactor.Values{"order": order, "reason": "duplicate"})
		require.True(t, ic.Success())
		assert.Same(t, order, ic.Get("closed_order"))

		reloaded, err := s.Find(ctx, "order", order.Get("id"))
		require.NoError(t, err)
		assert.Equal(t, "closed", reloaded.Get("status"))
		assert.Equal(t, "duplicate", reloaded.Get("note"))
	})

	t.Run("should pluck fields from a parent object with the last write winning", func(t *testing.T) {
		s := newStore(t)
		order := createOrder(t, s, map[string]any{"status": "open"})

		i := interactor.MustNew("AnnotateOrder", nil, Update(s, "order", Attributes(
			PluckFields("request", "status"),
			Pluck("request", map[string]string{"note": "comment"}),
			Assign("note", values.Literal("overridden")),
		)))

		ic := call(t, i, interactor.Values{
			"order":   order,
			"request": map[string]any{"status": "shipped", "comment": "left at door"},
		})
		require.True(t, ic.Success())
		assert.Equal(t, "shipped", order.Get("status"))
		assert.Equal(t, "overridden", order.Get("note"))
	})

	t.Run("should fail when the parent object is missing", func(t *testing.T) {
		s := newStore(t)
		order := createOrder(t, s, map[string]any{"status": "open"})

		i := interactor.MustNew("AnnotateOrder", nil, Update(s, "order", Attributes(PluckFields("request", "status"))))

		ic := call(t, i, interactor.Values{"order": order})
		assert.Equal(t, []string{"request not found"}, ic.Errors())
	})

	t.Run("should fail with the message of a failing func", func(t *testing.T) {
		s := newStore(t)
		order := createOrder(t, s, map[string]any{"status": "open"})

		i := interactor.MustNew("CloseOrder", nil, Update(s, "order", Attributes(
			Assign("status", func(values.Source) (any, error) { return nil, goerrors.New("status is locked") }),
		)))

		ic := call(t, i, interactor.Values{"order": order})
		assert.Equal(t, []string{"status is locked"}, ic.Errors())
	})

	t.Run("should use a context map as the payload", func(t *testing.T) {
		s := newStore(t)
		order := createOrder(t, s, map[string]any{"status": "open"})
		i := interactor.MustNew("PatchOrder", nil, Update(s, "order", FromContext("changes")))

		ic := call(t, i, interactor.Values{"order": order})
		assert.Equal(t, []string{"changes not found"}, ic.Errors())

		ic = call(t, i, interactor.Values{"order": order, "changes": map[string]any{"status": "paid"}})
		require.True(t, ic.Success())
		assert.Equal(t, "paid", order.Get("status"))
	})

	t.Run("should return record validation errors", func(t *testing.T) {
		s := newStore(t)
		order := createOrder(t, s, map[string]any{"status": "open"})
		i := interactor.MustNew("PatchOrder", nil, Update(s, "order", FromContext("changes")))

		_, err := i.Call(ctx, interactor.Values{"order": order, "changes": map[string]any{"status": ""}})
		assert.True(t, errors.IsRecordInvalidError(err))
		assert.Equal(t, []string{"Status can't be blank"}, order.Errors())
	})

	t.Run("should reject values that are not records", func(t *testing.T) {
		s := newStore(t)
		i := interactor.MustNew("PatchOrder", nil, Update(s, "order", FromContext("changes")))

		_, err := i.Call(ctx, interactor.Values{"order": "not a record"})
		assert.True(t, errors.IsArgumentError(err))
	})

	t.Run("should reject a missing payload at declaration", func(t *testing.T) {
		_, err := interactor.New("PatchOrder", nil, Update(newStore(t), "order", nil))
		assert.True(t, errors.IsArgumentError(err))
	})

	t.Run("should read fields from records", func(t *testing.T) {
		s := newStore(t)
		order := createOrder(t, s, map[string]any{"status": "open"})
		source := store.NewRecord("order", map[string]any{"status": "copied"})

		i := interactor.MustNew("CopyOrder", nil, Update(s, "order", Attributes(PluckFields("source", "status"))))

		ic := call(t, i, interactor.Values{"order": order, "source": source})
		require.True(t, ic.Success())
		assert.Equal(t, "copied", order.Get("status"))
	})
}
