package failure

import (
	"context"
	goerrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/sprig/pkg/errors"
	"github.com/Ramsey-B/sprig/pkg/interactor"
)

func TestDispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("should respect only and except scopes", func(t *testing.T) {
		var calls []string
		handler := func(name string) Handler {
			return HandlerFunc(func(context.Context, *Payload) bool {
				calls = append(calls, name)
				return false
			})
		}
		chain := []Definition{
			Handle(handler("a"), Only("create")),
			Handle(handler("b")),
			Handle(handler("c"), Except("update")),
		}

		assert.Equal(t, 1, Dispatch(ctx, chain, NewPayload("update")))
		assert.Equal(t, []string{"b"}, calls)

		calls = nil
		assert.Equal(t, 3, Dispatch(ctx, chain, NewPayload("create")))
		assert.Equal(t, []string{"a", "b", "c"}, calls)
	})

	t.Run("should keep running after a handler marks the failure handled", func(t *testing.T) {
		ran := 0
		chain := []Definition{
			Handle(Simple(func() bool { ran++; return true })),
			HandleFunc(func(_ context.Context, p *Payload) bool {
				ran++
				assert.True(t, p.Handled())
				return false
			}),
		}

		p := NewPayload("create")
		Dispatch(ctx, chain, p)
		assert.Equal(t, 2, ran)
		assert.True(t, p.Handled())
	})

	t.Run("should skip the defaults marker", func(t *testing.T) {
		assert.False(t, Defaults.Applies("create"))
		assert.True(t, Defaults.IsDefaults())
	})
}

func TestPayload(t *testing.T) {
	t.Run("should prefer messages carried by the error", func(t *testing.T) {
		p := NewPayload("create")
		p.Err = errors.NewValidationError("BuyerRequest", []string{"Name can't be blank"})
		p.Context = interactor.NewContext(nil)
		p.Context.Fail("ignored")
		assert.Equal(t, []string{"Name can't be blank"}, p.Errors())
	})

	t.Run("should fall back to context messages, then the error text", func(t *testing.T) {
		p := NewPayload("create")
		p.Context = interactor.NewContext(nil)
		p.Context.Fail("payment declined")
		assert.Equal(t, []string{"payment declined"}, p.Errors())

		p = NewPayload("create")
		p.Err = goerrors.New("connection reset")
		assert.Equal(t, []string{"connection reset"}, p.Errors())
	})

	t.Run("should mark the failure handled when responding", func(t *testing.T) {
		p := NewPayload("create")
		p.Respond(map[string]any{"status": 422})
		assert.True(t, p.Handled())
		assert.Equal(t, map[string]any{"status": 422}, p.Response())
		assert.NotEmpty(t, p.ID)
	})
}
