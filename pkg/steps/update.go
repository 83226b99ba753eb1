package steps

import (
	"context"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Ramsey-B/sprig/pkg/errors"
	"github.com/Ramsey-B/sprig/pkg/interactor"
	"github.com/Ramsey-B/sprig/pkg/store"
	"github.com/Ramsey-B/sprig/pkg/tracing"
	"github.com/Ramsey-B/sprig/pkg/values"
)

// Payload builds the attributes an Update step writes. A non-empty failure
// message fails the context instead of updating.
type Payload interface {
	build(ic *interactor.Context) (attrs map[string]any, failure string, err error)
}

// Assignment contributes attributes to an Attributes payload.
type Assignment interface {
	apply(ic *interactor.Context, attrs map[string]any) (failure string, err error)
}

type assign struct {
	attr  string
	value values.Value
}

// Assign sets attr from value. Strings are context keys, funcs are evaluated
// against the context and a failing func fails the context with its message.
func Assign(attr string, value any) Assignment {
	return assign{attr: attr, value: values.Of(value)}
}

func (a assign) apply(ic *interactor.Context, attrs map[string]any) (string, error) {
	value, err := a.value.Resolve(ic)
	if err != nil {
		return err.Error(), nil
	}
	attrs[a.attr] = value
	return "", nil
}

type pluck struct {
	parent string
	fields map[string]string
}

// Pluck copies values out of the context object named parent: each entry of
// fields maps a target attribute to the parent's sub-key. Entries apply in
// sorted attribute order.
func Pluck(parent string, fields map[string]string) Assignment {
	return pluck{parent: parent, fields: fields}
}

// PluckFields copies the named fields of parent to attributes of the same
// names.
func PluckFields(parent string, fields ...string) Assignment {
	mapping := make(map[string]string, len(fields))
	for _, field := range fields {
		mapping[field] = field
	}
	return pluck{parent: parent, fields: mapping}
}

func (p pluck) apply(ic *interactor.Context, attrs map[string]any) (string, error) {
	parent := ic.Get(p.parent)
	if parent == nil {
		return fmt.Sprintf("%s not found", p.parent), nil
	}

	targets := make([]string, 0, len(p.fields))
	for target := range p.fields {
		targets = append(targets, target)
	}
	sort.Strings(targets)

	for _, target := range targets {
		value, err := field(parent, p.fields[target])
		if err != nil {
			return "", err
		}
		attrs[target] = value
	}
	return "", nil
}

type attributes []Assignment

// Attributes applies assignments in order; a later assignment to the same
// attribute wins.
func Attributes(assignments ...Assignment) Payload {
	return attributes(assignments)
}

func (a attributes) build(ic *interactor.Context) (map[string]any, string, error) {
	attrs := make(map[string]any)
	for _, assignment := range a {
		failure, err := assignment.apply(ic, attrs)
		if err != nil || failure != "" {
			return nil, failure, err
		}
	}
	return attrs, "", nil
}

type fromContext string

// FromContext uses the map stored under key as the whole payload.
func FromContext(key string) Payload {
	return fromContext(key)
}

func (f fromContext) build(ic *interactor.Context) (map[string]any, string, error) {
	key := string(f)
	value := ic.Get(key)
	if value == nil {
		return nil, fmt.Sprintf("%s not found", key), nil
	}

	attrs, ok := toMap(value)
	if !ok {
		return nil, "", errors.NewArgumentErrorf("update", "%s must be a map of attributes, got %T", key, value)
	}
	return attrs, "", nil
}

type UpdateOption func(*updateConfig)

type updateConfig struct {
	as string
}

// StoreAs sets the context key the updated record is stored under.
func StoreAs(key string) UpdateOption {
	return func(c *updateConfig) {
		c.as = key
	}
}

// Update writes payload to the record stored under modelKey before the
// interactor runs. Invalid records are not swallowed: the store's
// RecordInvalidError is returned.
func Update(repo store.Repository, modelKey string, payload Payload, opts ...UpdateOption) interactor.Step {
	return interactor.StepFunc(func(b *interactor.Builder) error {
		if modelKey == "" {
			return errors.NewArgumentError("update", "model key cannot be empty")
		}
		if payload == nil {
			return errors.NewArgumentError("update", "attributes must be Attributes(...) or FromContext(key)")
		}
		c := &updateConfig{as: modelKey}
		for _, opt := range opts {
			opt(c)
		}

		b.Before(func(ctx context.Context, ic *interactor.Context) error {
			ctx, span := tracing.StartSpan(ctx, "steps.Update", attribute.String("key", modelKey))
			defer span.End()

			value := ic.Get(modelKey)
			record, ok := value.(*store.Record)
			if value != nil && !ok {
				return errors.NewArgumentErrorf("update", "%s is a %T, not a record", modelKey, value)
			}
			if record == nil {
				ic.Fail(fmt.Sprintf("%s not found", modelKey))
				return nil
			}

			attrs, failure, err := payload.build(ic)
			if err != nil {
				return err
			}
			if failure != "" {
				ic.Fail(failure)
				return nil
			}

			if err := repo.Update(ctx, record, attrs); err != nil {
				return err
			}

			ic.Set(c.as, record)
			return nil
		})
		return nil
	})
}

type lookuper interface {
	Lookup(key string) (any, bool)
}

type mapper interface {
	ToMap() map[string]any
}

type attributer interface {
	Attributes() map[string]any
}

func field(parent any, key string) (any, error) {
	switch p := parent.(type) {
	case map[string]any:
		return p[key], nil
	case interactor.Values:
		return p[key], nil
	case lookuper:
		value, _ := p.Lookup(key)
		return value, nil
	}
	return nil, errors.NewArgumentErrorf("update", "cannot pluck %s from %T", key, parent)
}

func toMap(value any) (map[string]any, bool) {
	switch v := value.(type) {
	case map[string]any:
		return v, true
	case interactor.Values:
		return v, true
	case mapper:
		return v.ToMap(), true
	case attributer:
		return v.Attributes(), true
	}
	return nil, false
}
