package steps

import (
	"context"
	goerrors "errors"
	"fmt"

	"github.com/Ramsey-B/sprig/pkg/errors"
	"github.com/Ramsey-B/sprig/pkg/interactor"
	"github.com/Ramsey-B/sprig/pkg/transform"
	"github.com/Ramsey-B/sprig/pkg/values"
)

// Variable is one entry of ContextVariables.
type Variable struct {
	Key   string
	Value values.Value
}

// Var declares a context variable. Funcs and values.Value declarations are
// resolved against the context; anything else, strings included, is stored
// as is.
func Var(key string, value any) Variable {
	if _, ok := value.(string); ok {
		return Variable{Key: key, Value: values.Literal(value)}
	}
	return Variable{Key: key, Value: values.Of(value)}
}

// ContextVariables sets each variable on the context, in order, before the
// interactor runs.
func ContextVariables(vars ...Variable) interactor.Step {
	return interactor.StepFunc(func(b *interactor.Builder) error {
		for _, v := range vars {
			if v.Key == "" {
				return errors.NewArgumentError("context_variables", "key cannot be empty")
			}
		}

		b.Before(func(_ context.Context, ic *interactor.Context) error {
			for _, v := range vars {
				value, err := v.Value.Resolve(ic)
				if err != nil {
					return fmt.Errorf("context variable %s: %w", v.Key, err)
				}
				ic.Set(v.Key, value)
			}
			return nil
		})
		return nil
	})
}

// Transform runs the pipeline built from ops over the context value of each
// key and writes the result back. Ops are method names, transform.Op values
// or funcs; interactor methods are available as scope methods.
func Transform(keys []string, ops ...any) interactor.Step {
	return interactor.StepFunc(func(b *interactor.Builder) error {
		if len(keys) == 0 {
			return errors.NewArgumentError("transform", "at least one key is required")
		}
		if len(ops) == 0 {
			return errors.NewArgumentError("transform", "with cannot be empty")
		}
		pipeline, err := transform.Ops(ops...)
		if err != nil {
			return err
		}

		b.Before(func(_ context.Context, ic *interactor.Context) error {
			for _, key := range keys {
				result, err := transform.Apply(key, ic.Get(key), pipeline, ic)
				if err != nil {
					var transformErr *errors.TransformError
					if goerrors.As(err, &transformErr) {
						ic.Fail(transformErr.Error())
						return nil
					}
					return err
				}
				ic.Set(key, result)
			}
			return nil
		})
		return nil
	})
}

// TransformFunc replaces the value of each key with the result of fn. The
// func reads what it needs from the context; an error or panic fails the
// context with "{key} failed to transform: {message}".
func TransformFunc(keys []string, fn func(ic *interactor.Context) (any, error)) interactor.Step {
	return interactor.StepFunc(func(b *interactor.Builder) error {
		if len(keys) == 0 {
			return errors.NewArgumentError("transform", "at least one key is required")
		}
		if fn == nil {
			return errors.NewArgumentError("transform", "with cannot be empty")
		}

		b.Before(func(_ context.Context, ic *interactor.Context) error {
			for _, key := range keys {
				result, err := values.Func(func(_ values.Source) (any, error) { return fn(ic) }).Resolve(ic)
				if err != nil {
					ic.Fail(errors.NewTransformError(key, err).Error())
					return nil
				}
				ic.Set(key, result)
			}
			return nil
		})
		return nil
	})
}
