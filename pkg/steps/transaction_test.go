package steps

import (
	"context"
	goerrors "errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sprig/pkg/interactor"
	"github.com/Ramsey-B/sprig/pkg/store"
)

func placeOrder(s *store.Store, fail bool) interactor.PerformFunc {
	return func(ctx context.Context, ic *interactor.Context) error {
		order, err := s.Create(ctx, "order", map[string]any{"status": "open"})
		if err != nil {
			return err
		}
		ic.Set("order", order)
		if fail {
			ic.Fail("payment declined", "card expired")
		}
		return nil
	}
}

func TestTransaction(t *testing.T) {
	t.Run("should commit writes when the context succeeds", func(t *testing.T) {
		s := newStore(t)
		i := interactor.MustNew("PlaceOrder", placeOrder(s, false), Transaction(s))

		ic := call(t, i, interactor.Values{})
		assert.True(t, ic.Success())
		assert.Equal(t, 1, countOrders(t, s))
	})

	t.Run("should undo writes but keep the failure when the context fails", func(t *testing.T) {
		s := newStore(t)
		i := interactor.MustNew("PlaceOrder", placeOrder(s, true), Transaction(s))

		ic := call(t, i, interactor.Values{})
		assert.True(t, ic.Failure())
		assert.Equal(t, []string{"payment declined", "card expired"}, ic.Errors())
		assert.NotNil(t, ic.Get("order"))
		assert.Equal(t, 0, countOrders(t, s))
	})

	t.Run("should roll back and return raised errors", func(t *testing.T) {
		s := newStore(t)
		boom := goerrors.New("boom")
		i := interactor.MustNew("PlaceOrder", func(ctx context.Context, ic *interactor.Context) error {
			if err := placeOrder(s, false)(ctx, ic); err != nil {
				return err
			}
			return boom
		}, Transaction(s))

		_, err := i.Call(context.Background(), interactor.Values{})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 0, countOrders(t, s))
	})

	t.Run("should keep outer writes when a nested interactor requires its own savepoint", func(t *testing.T) {
		s := newStore(t)
		inner := interactor.MustNew("ReserveStock", placeOrder(s, true), Transaction(s, RequiresNew()))
		outer := interactor.MustNew("Checkout", func(ctx context.Context, ic *interactor.Context) error {
			if _, err := s.Create(ctx, "order", map[string]any{"status": "draft"}); err != nil {
				return err
			}
			nested, err := inner.Call(ctx, interactor.Values{})
			if err != nil {
				return err
			}
			ic.Set("reserved", nested.Success())
			return nil
		}, Transaction(s))

		ic := call(t, outer, interactor.Values{})
		require.True(t, ic.Success())
		assert.Equal(t, false, ic.Get("reserved"))
		assert.Equal(t, 1, countOrders(t, s))
	})

	t.Run("should never persist writes of failed calls", func(t *testing.T) {
		s := newStore(t)
		parameters := gopter.DefaultTestParameters()
		parameters.MinSuccessfulTests = 25
		properties := gopter.NewProperties(parameters)

		properties.Property("rows match successful calls", prop.ForAll(
			func(outcomes []bool) bool {
				before := countOrders(t, s)
				committed := 0
				for _, fail := range outcomes {
					i := interactor.MustNew("PlaceOrder", placeOrder(s, fail), Transaction(s))
					ic, err := i.Call(context.Background(), interactor.Values{})
					if err != nil || ic.Failure() != fail {
						return false
					}
					if !fail {
						committed++
					}
				}
				return countOrders(t, s)-before == committed
			},
			gen.SliceOf(gen.Bool()),
		))

		properties.TestingRun(t)
	})
}
