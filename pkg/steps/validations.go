package steps

import (
	"context"
	"fmt"
	"reflect"

	"github.com/spf13/cast"

	"github.com/Ramsey-B/sprig/pkg/errors"
	"github.com/Ramsey-B/sprig/pkg/interactor"
	"github.com/Ramsey-B/sprig/pkg/validation"
)

const validatorKey = "steps.validator"

// Required declares context keys that must be present before the interactor
// runs. Each key is also exposed as an interactor method returning its value.
func Required(keys ...string) interactor.Step {
	return interactor.StepFunc(func(b *interactor.Builder) error {
		v, err := contextValidator(b, keys)
		if err != nil {
			return err
		}
		for _, key := range keys {
			v.Add(key, validation.Presence())
		}
		return nil
	})
}

// RequiredField declares a required key with rules in addition to presence.
func RequiredField(key string, rules ...validation.Rule) interactor.Step {
	return interactor.StepFunc(func(b *interactor.Builder) error {
		v, err := contextValidator(b, []string{key})
		if err != nil {
			return err
		}
		v.Add(key, append([]validation.Rule{validation.Presence()}, rules...)...)
		return nil
	})
}

// Optional declares context keys that may be absent. They are exposed as
// interactor methods and never checked.
func Optional(keys ...string) interactor.Step {
	return interactor.StepFunc(func(b *interactor.Builder) error {
		_, err := contextValidator(b, keys)
		return err
	})
}

// OptionalField declares an optional key whose rules only apply when the
// context holds a value for it.
func OptionalField(key string, rules ...validation.Rule) interactor.Step {
	return interactor.StepFunc(func(b *interactor.Builder) error {
		v, err := contextValidator(b, []string{key})
		if err != nil {
			return err
		}
		v.AddIfPresent(key, rules...)
		return nil
	})
}

// contextValidator returns the validator shared by the definition's
// Required and Optional steps, registering its hook on first use.
func contextValidator(b *interactor.Builder, keys []string) (*validation.Validator, error) {
	for _, key := range keys {
		if key == "" {
			return nil, errors.NewArgumentError("required", "key cannot be empty")
		}
	}

	shared, created := b.Shared(validatorKey, func() any { return validation.New() })
	v := shared.(*validation.Validator)
	if created {
		b.Before(func(_ context.Context, ic *interactor.Context) error {
			if messages := v.Errors(ic); len(messages) > 0 {
				ic.Fail(messages...)
			}
			return nil
		})
	}

	b.State(keys...)
	for _, key := range keys {
		if b.HasMethod(key) {
			continue
		}
		name := key
		if err := b.Method(name, func(ic *interactor.Context, _ ...any) (any, error) {
			return ic.Get(name), nil
		}); err != nil {
			return nil, err
		}
	}
	return v, nil
}

type checkKind int

const (
	checkPresence checkKind = iota
	checkInclusion
	checkType
	checkPersisted
)

// Check is one ValidatesBefore/ValidatesAfter rule.
type Check struct {
	kind     checkKind
	validate func(key string, value any) []string
	err      error
}

// Presence fails with "{key} does not exist" when the key is absent or nil.
func Presence() Check {
	return Check{kind: checkPresence, validate: func(key string, value any) []string {
		if value == nil {
			return []string{fmt.Sprintf("%s does not exist", key)}
		}
		return nil
	}}
}

// Inclusion fails when the value is not one of allowed.
func Inclusion(allowed ...any) Check {
	if len(allowed) == 0 {
		return Check{kind: checkInclusion, err: errors.NewArgumentError("inclusion", "at least one value is required")}
	}
	return Check{kind: checkInclusion, validate: func(key string, value any) []string {
		for _, candidate := range allowed {
			if reflect.DeepEqual(candidate, value) {
				return nil
			}
		}
		return []string{inclusionMessage(key)}
	}}
}

// InclusionRange fails when the value is not a number within [min, max].
func InclusionRange(min, max any) Check {
	lo, loErr := cast.ToFloat64E(min)
	hi, hiErr := cast.ToFloat64E(max)
	if loErr != nil || hiErr != nil {
		return Check{kind: checkInclusion, err: errors.NewArgumentErrorf("inclusion", "range bounds must be numbers, got %v..%v", min, max)}
	}
	if lo > hi {
		return Check{kind: checkInclusion, err: errors.NewArgumentErrorf("inclusion", "range %v..%v is empty", min, max)}
	}
	return Check{kind: checkInclusion, validate: func(key string, value any) []string {
		n, err := cast.ToFloat64E(value)
		if value == nil || err != nil || n < lo || n > hi {
			return []string{inclusionMessage(key)}
		}
		return nil
	}}
}

func inclusionMessage(key string) string {
	return fmt.Sprintf("%s was not in the specified inclusion", key)
}

// OfType fails when the value is not a T.
func OfType[T any]() Check {
	name := reflect.TypeFor[T]().String()
	return Check{kind: checkType, validate: func(key string, value any) []string {
		if _, ok := value.(T); !ok {
			return []string{fmt.Sprintf("%s was not of type %s", key, name)}
		}
		return nil
	}}
}

// Persistable is a record that knows whether it is saved.
type Persistable interface {
	Persisted() bool
	Errors() []string
}

// Persisted fails when the value is not a saved record, adding the record's
// own validation messages. Only ValidatesAfter accepts it.
func Persisted() Check {
	return Check{kind: checkPersisted, validate: func(key string, value any) []string {
		record, ok := value.(Persistable)
		if !ok || isNilPointer(record) {
			return []string{fmt.Sprintf("%s is not a persistable record", key)}
		}
		if !record.Persisted() {
			return append([]string{fmt.Sprintf("%s is not persisted", key)}, record.Errors()...)
		}
		return nil
	}}
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}

// ValidatesBefore checks context keys before the interactor runs. The first
// failing check fails the context.
func ValidatesBefore(keys []string, checks ...Check) interactor.Step {
	return interactor.StepFunc(func(b *interactor.Builder) error {
		if len(keys) == 0 {
			return errors.NewArgumentError("validates_before", "at least one key is required")
		}
		b.Before(validateHook(keys, checks, false))
		return nil
	})
}

// ValidatesAfter checks context keys after the interactor ran.
func ValidatesAfter(keys []string, checks ...Check) interactor.Step {
	return interactor.StepFunc(func(b *interactor.Builder) error {
		if len(keys) == 0 {
			return errors.NewArgumentError("validates_after", "at least one key is required")
		}
		b.After(validateHook(keys, checks, true))
		return nil
	})
}

// misdeclared returns the failure of the first check that cannot run in
// this position, if any.
func misdeclared(checks []Check, after bool) string {
	for _, check := range checks {
		if check.err != nil {
			return check.err.Error()
		}
		if check.kind == checkPersisted && !after {
			return "persisted validation is only available for after validations"
		}
	}
	return ""
}

func validateHook(keys []string, checks []Check, after bool) interactor.Hook {
	invalid := misdeclared(checks, after)
	return func(_ context.Context, ic *interactor.Context) error {
		if invalid != "" {
			ic.Fail(invalid)
			return nil
		}
		for _, key := range keys {
			value := ic.Get(key)
			for _, check := range checks {
				if check.validate == nil {
					continue
				}
				if messages := check.validate(key, value); len(messages) > 0 {
					ic.Fail(messages...)
					return nil
				}
			}
		}
		return nil
	}
}
