package steps

import (
	"context"
	goerrors "errors"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/sprig/pkg/errors"
	"github.com/Ramsey-B/sprig/pkg/interactor"
	"github.com/Ramsey-B/sprig/pkg/values"
)

func TestContextVariables(t *testing.T) {
	t.Run("should store literals and evaluate funcs in order", func(t *testing.T) {
		i := interactor.MustNew("Prepare", nil, ContextVariables(
			Var("currency", "usd"),
			Var("limit", 25),
			Var("label", func(src values.Source) any {
				currency, _ := src.Lookup("currency")
				return strings.ToUpper(currency.(string))
			}),
		))

		ic := call(t, i, interactor.Values{})
		assert.Equal(t, "usd", ic.Get("currency"))
		assert.Equal(t, 25, ic.Get("limit"))
		assert.Equal(t, "USD", ic.Get("label"))
	})

	t.Run("should reject empty keys", func(t *testing.T) {
		_, err := interactor.New("Prepare", nil, ContextVariables(Var("", 1)))
		assert.True(t, errors.IsArgumentError(err))
	})
}

func TestTransform(t *testing.T) {
	t.Run("should run the pipeline on every key", func(t *testing.T) {
		i := interactor.MustNew("Normalize", nil, Transform([]string{"country", "region"}, "strip", "upcase"))

		ic := call(t, i, interactor.Values{"country": "  us  ", "region": " ca"})
		assert.Equal(t, "US", ic.Get("country"))
		assert.Equal(t, "CA", ic.Get("region"))
	})

	t.Run("should call interactor methods with the value", func(t *testing.T) {
		i := interactor.MustNew("Normalize", nil,
			interactor.Method("cents", func(_ *interactor.Context, args ...any) (any, error) {
				return int(args[0].(float64) * 100), nil
			}),
			Transform([]string{"total"}, "cents"),
		)

		ic := call(t, i, interactor.Values{"total": 12.5})
		assert.Equal(t, 1250, ic.Get("total"))
	})

	t.Run("should return unknown methods as errors", func(t *testing.T) {
		i := interactor.MustNew("Normalize", nil, Transform([]string{"total"}, "upcase"))

		_, err := i.Call(context.Background(), interactor.Values{"total": 3})
		var unknown *errors.UnknownTransformError
		assert.ErrorAs(t, err, &unknown)
	})

	t.Run("should fail the context when a func fails", func(t *testing.T) {
		i := interactor.MustNew("Normalize", nil, TransformFunc([]string{"email"}, func(*interactor.Context) (any, error) {
			return nil, goerrors.New("boom")
		}))

		ic := call(t, i, interactor.Values{"email": "x"})
		assert.Equal(t, []string{"email failed to transform: boom"}, ic.Errors())
	})

	t.Run("should replace the value with the func result", func(t *testing.T) {
		i := interactor.MustNew("Normalize", nil, TransformFunc([]string{"full_name"}, func(ic *interactor.Context) (any, error) {
			return ic.Get("first").(string) + " " + ic.Get("last").(string), nil
		}))

		ic := call(t, i, interactor.Values{"first": "Jane", "last": "Doe"})
		assert.Equal(t, "Jane Doe", ic.Get("full_name"))
	})

	t.Run("should reject declarations without keys or ops", func(t *testing.T) {
		_, err := interactor.New("Normalize", nil, Transform(nil, "strip"))
		assert.True(t, errors.IsArgumentError(err))

		_, err = interactor.New("Normalize", nil, Transform([]string{"name"}))
		assert.True(t, errors.IsArgumentError(err))

		_, err = interactor.New("Normalize", nil, Transform([]string{"name"}, 42))
		assert.True(t, errors.IsArgumentError(err))
	})
}

func TestSkip(t *testing.T) {
	body := func(_ context.Context, ic *interactor.Context) error {
		ic.Set("ran", true)
		return nil
	}

	t.Run("should not run the body when if is truthy", func(t *testing.T) {
		i := interactor.MustNew("Notify", body, Skip(If(true)))

		ic := call(t, i, interactor.Values{})
		assert.True(t, ic.Success())
		assert.False(t, ic.Has("ran"))
	})

	t.Run("should run the body when unless is truthy", func(t *testing.T) {
		i := interactor.MustNew("Notify", body, Skip(Unless(true)))

		ic := call(t, i, interactor.Values{})
		assert.Equal(t, true, ic.Get("ran"))
	})

	t.Run("should skip the hooks as well as the body", func(t *testing.T) {
		i := interactor.MustNew("Notify", body,
			Skip(If("muted")),
			ContextVariables(Var("prepared", true)),
		)

		ic := call(t, i, interactor.Values{"muted": true})
		assert.False(t, ic.Has("prepared"))
		assert.False(t, ic.Has("ran"))
	})

	t.Run("should resolve names as methods before context keys", func(t *testing.T) {
		i := interactor.MustNew("Notify", body,
			interactor.Method("enabled", func(*interactor.Context, ...any) (any, error) { return false, nil }),
			Skip(Unless("enabled")),
		)

		ic := call(t, i, interactor.Values{"enabled": true})
		assert.False(t, ic.Has("ran"))
	})

	t.Run("should short-circuit unless when if skips", func(t *testing.T) {
		evaluated := false
		i := interactor.MustNew("Notify", body, Skip(
			If(true),
			Unless(func(values.Source) any {
				evaluated = true
				return true
			}),
		))

		call(t, i, interactor.Values{})
		assert.False(t, evaluated)
	})

	t.Run("should evaluate expressions against the context", func(t *testing.T) {
		i := interactor.MustNew("Notify", body, Skip(If(values.MustExpr("ctx.attempts > 3"))))

		ic := call(t, i, interactor.Values{"attempts": 5})
		assert.False(t, ic.Has("ran"))

		ic = call(t, i, interactor.Values{"attempts": 1})
		assert.True(t, ic.Has("ran"))
	})

	t.Run("should require a condition", func(t *testing.T) {
		_, err := interactor.New("Notify", body, Skip())
		assert.True(t, errors.IsArgumentError(err))
	})

	t.Run("should run the body exactly when the condition is falsy", func(t *testing.T) {
		parameters := gopter.DefaultTestParameters()
		properties := gopter.NewProperties(parameters)

		i := interactor.MustNew("Notify", body, Skip(If("flag")))
		properties.Property("skip if", prop.ForAll(
			func(flag bool) bool {
				ic, err := i.Call(context.Background(), interactor.Values{"flag": flag})
				return err == nil && ic.Has("ran") == !flag
			},
			gen.Bool(),
		))

		properties.TestingRun(t)
	})
}
