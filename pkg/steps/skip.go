package steps

import (
	"context"

	"github.com/Ramsey-B/sprig/pkg/errors"
	"github.com/Ramsey-B/sprig/pkg/interactor"
	"github.com/Ramsey-B/sprig/pkg/values"
)

type skipConfig struct {
	cond   *values.Value
	unless *values.Value
}

type SkipOption func(*skipConfig)

// If skips the interactor when cond resolves truthy.
func If(cond any) SkipOption {
	return func(c *skipConfig) {
		v := condition(cond)
		c.cond = &v
	}
}

// Unless skips the interactor when cond resolves falsy.
func Unless(cond any) SkipOption {
	return func(c *skipConfig) {
		v := condition(cond)
		c.unless = &v
	}
}

// condition resolves names as an interactor method, then a context key, then
// the name itself.
func condition(cond any) values.Value {
	if name, ok := cond.(string); ok {
		return values.Named(name)
	}
	return values.Of(cond)
}

// Skip wraps the whole interactor, hooks included, and does not run it when
// the conditions say so. If is evaluated first and short-circuits Unless.
func Skip(opts ...SkipOption) interactor.Step {
	return interactor.StepFunc(func(b *interactor.Builder) error {
		c := &skipConfig{}
		for _, opt := range opts {
			opt(c)
		}
		if c.cond == nil && c.unless == nil {
			return errors.NewArgumentError("skip", "if or unless is required")
		}

		b.Around(func(ctx context.Context, ic *interactor.Context, next interactor.Next) error {
			if c.cond != nil {
				skip, err := c.cond.Resolve(ic)
				if err != nil {
					return err
				}
				if values.Truthy(skip) {
					return nil
				}
			}
			if c.unless != nil {
				run, err := c.unless.Resolve(ic)
				if err != nil {
					return err
				}
				if !values.Truthy(run) {
					return nil
				}
			}
			return next(ctx)
		})
		return nil
	})
}
