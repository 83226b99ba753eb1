// Package steps provides the declarative building blocks of an interactor:
// record lookups and updates, context transforms, conditional skips,
// transactions and context validations. Each constructor returns an
// interactor.Step that registers its hooks when the interactor is built.
package steps

import (
	"context"
	"fmt"

	"github.com/jinzhu/inflection"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Ramsey-B/sprig/pkg/errors"
	"github.com/Ramsey-B/sprig/pkg/interactor"
	"github.com/Ramsey-B/sprig/pkg/store"
	"github.com/Ramsey-B/sprig/pkg/tracing"
	"github.com/Ramsey-B/sprig/pkg/values"
)

type findConfig struct {
	where    map[string]any
	whereNot map[string]any
	scope    string
	as       string
	required bool
}

type FindOption func(*findConfig)

// Query is the equality filter of FindBy. Strings are context keys, funcs are
// evaluated against the context and values.Value declarations resolve as
// declared; anything else is used literally.
func Query(filter map[string]any) FindOption {
	return func(c *findConfig) {
		c.where = filter
	}
}

// Where is the inclusion filter of FindWhere. Values resolve like Query.
func Where(filter map[string]any) FindOption {
	return func(c *findConfig) {
		c.where = filter
	}
}

// WhereNot excludes the records matching every entry of filter.
func WhereNot(filter map[string]any) FindOption {
	return func(c *findConfig) {
		c.whereNot = filter
	}
}

// Scope applies a named scope registered on the model.
func Scope(name string) FindOption {
	return func(c *findConfig) {
		c.scope = name
	}
}

// As sets the context key the result is stored under.
func As(key string) FindOption {
	return func(c *findConfig) {
		c.as = key
	}
}

// MustFind fails the context when nothing is found.
func MustFind() FindOption {
	return func(c *findConfig) {
		c.required = true
	}
}

func newFindConfig(opts []FindOption) *findConfig {
	c := &findConfig{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FindBy loads one record of model before the interactor runs and stores it,
// or nil, under the model name. Without a query the record is found by the
// context value "{model}_id".
func FindBy(repo store.Repository, model string, opts ...FindOption) interactor.Step {
	return interactor.StepFunc(func(b *interactor.Builder) error {
		if model == "" {
			return errors.NewArgumentError("find_by", "model cannot be empty")
		}
		c := newFindConfig(opts)
		if c.whereNot != nil || c.scope != "" {
			return errors.NewArgumentError("find_by", "where not and scopes are only supported by find_where")
		}
		key := c.as
		if key == "" {
			key = model
		}

		b.Before(func(ctx context.Context, ic *interactor.Context) error {
			ctx, span := tracing.StartSpan(ctx, "steps.FindBy", attribute.String("model", model))
			defer span.End()

			record, err := findOne(ctx, repo, model, c.where, ic)
			if err != nil {
				return err
			}

			if record == nil {
				ic.Set(key, nil)
				if c.required {
					ic.Fail(fmt.Sprintf("%s not found", model))
				}
				return nil
			}

			ic.Set(key, record)
			return nil
		})
		return nil
	})
}

func findOne(ctx context.Context, repo store.Repository, model string, query map[string]any, ic *interactor.Context) (*store.Record, error) {
	if len(query) == 0 {
		id := ic.Get(model + "_id")
		if id == nil {
			return nil, nil
		}
		return repo.Find(ctx, model, id)
	}

	filter, err := resolveFilter(query, ic)
	if err != nil {
		return nil, err
	}
	return repo.FindOne(ctx, model, filter)
}

// FindWhere loads every record of model matching the filters and stores the
// slice under the plural of the model name.
func FindWhere(repo store.Repository, model string, opts ...FindOption) interactor.Step {
	return interactor.StepFunc(func(b *interactor.Builder) error {
		if model == "" {
			return errors.NewArgumentError("find_where", "model cannot be empty")
		}
		c := newFindConfig(opts)
		key := c.as
		if key == "" {
			key = inflection.Plural(model)
		}

		b.Before(func(ctx context.Context, ic *interactor.Context) error {
			ctx, span := tracing.StartSpan(ctx, "steps.FindWhere", attribute.String("model", model))
			defer span.End()

			where, err := resolveFilter(c.where, ic)
			if err != nil {
				return err
			}
			whereNot, err := resolveFilter(c.whereNot, ic)
			if err != nil {
				return err
			}

			records, err := repo.FindMany(ctx, model, store.Query{
				Where:    where,
				WhereNot: whereNot,
				Scope:    c.scope,
			})
			if err != nil {
				return err
			}

			ic.Set(key, records)
			if c.required && len(records) == 0 {
				ic.Fail(fmt.Sprintf("no %s were found", inflection.Plural(model)))
			}
			return nil
		})
		return nil
	})
}

func resolveFilter(declared map[string]any, ic *interactor.Context) (map[string]any, error) {
	if len(declared) == 0 {
		return nil, nil
	}
	converted := make(map[string]values.Value, len(declared))
	for key, value := range declared {
		converted[key] = values.Of(value)
	}
	return values.ResolveMap(converted, ic)
}
