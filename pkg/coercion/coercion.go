package coercion

import (
	"context"
	"fmt"
	"reflect"

	"github.com/Ramsey-B/sprig/pkg/errors"
)

// Symbol is an interned-style name. Symbol keys distinguish symbol-keyed data
// shapes from string-keyed ones.
type Symbol string

type Kind int

const (
	KindNone Kind = iota
	KindScalar
	KindArray
	KindHash
	KindSymbol
	KindObject
	KindInstance
)

// ObjectType is a nested request object type. Maps are constructed into new
// instances; existing instances pass through.
type ObjectType interface {
	TypeName() string
	IsInstance(value any) bool
	Construct(ctx context.Context, raw map[string]any) (any, error)
}

// Range is an inclusive integer range that coerces to an array.
type Range struct {
	From int
	To   int
}

// Type is the closed set of coercion targets. The zero Type passes every
// value through.
type Type struct {
	kind     Kind
	name     string
	scalar   *scalar
	object   ObjectType
	instance reflect.Type
}

func None() Type {
	return Type{kind: KindNone, name: "none"}
}

func Array() Type {
	return Type{kind: KindArray, name: "Array"}
}

func Hash() Type {
	return Type{kind: KindHash, name: "Hash"}
}

func SymbolType() Type {
	return Type{kind: KindSymbol, name: "Symbol"}
}

func Object(t ObjectType) Type {
	return Type{kind: KindObject, name: t.TypeName(), object: t}
}

// InstanceOf accepts values of T (or implementing T, when T is an interface)
// and rejects everything else. No construction is attempted.
func InstanceOf[T any]() Type {
	rt := reflect.TypeOf((*T)(nil)).Elem()
	return Type{kind: KindInstance, name: rt.String(), instance: rt}
}

// Scalar looks up a registered scalar type by name.
func Scalar(name string) (Type, error) {
	s, ok := lookupScalar(name)
	if !ok {
		return Type{}, errors.NewTypeCoercionError(name, nil, fmt.Errorf("unsupported type '%s'", name))
	}
	return Type{kind: KindScalar, name: name, scalar: s}, nil
}

func MustScalar(name string) Type {
	t, err := Scalar(name)
	if err != nil {
		panic(err)
	}
	return t
}

func (t Type) Kind() Kind {
	return t.kind
}

func (t Type) Name() string {
	if t.name == "" {
		return "none"
	}
	return t.name
}

func (t Type) IsNone() bool {
	return t.kind == KindNone
}

// Satisfies reports whether value is already of the target type, in which
// case Coerce returns it unchanged.
func (t Type) Satisfies(value any) bool {
	if value == nil {
		return true
	}

	switch t.kind {
	case KindNone:
		return true
	case KindScalar:
		if t.scalar == nil || reflect.TypeOf(value) != t.scalar.goType {
			return false
		}
		return t.scalar.exact == nil || t.scalar.exact(value)
	case KindArray:
		_, ok := value.([]any)
		return ok
	case KindHash:
		_, ok := value.(map[string]any)
		return ok
	case KindSymbol:
		_, ok := value.(Symbol)
		return ok
	case KindObject:
		return t.object.IsInstance(value)
	case KindInstance:
		return isInstance(value, t.instance)
	}

	return false
}

// Coerce converts value to t. Values that already satisfy t, and nil, are
// returned unchanged, so coercion is idempotent. Errors from constructing a
// nested object are returned as-is.
func Coerce(ctx context.Context, value any, t Type) (any, error) {
	if t.Satisfies(value) {
		return value, nil
	}

	switch t.kind {
	case KindScalar:
		result, err := t.scalar.cast(value)
		if err != nil {
			return nil, errors.NewTypeCoercionError(t.name, value, err)
		}
		return result, nil
	case KindArray:
		return toArray(value, t)
	case KindHash:
		return toHash(value, t)
	case KindSymbol:
		return Symbol(fmt.Sprint(value)), nil
	case KindObject:
		raw, err := toHash(value, t)
		if err != nil {
			return nil, err
		}
		return t.object.Construct(ctx, raw.(map[string]any))
	case KindInstance:
		return nil, errors.NewTypeCoercionError(t.name, value, fmt.Errorf("value is not an instance of %s", t.name))
	}

	return nil, errors.NewTypeCoercionError(t.Name(), value, fmt.Errorf("unsupported type"))
}

// CoerceEach coerces every element of an iterable value.
func CoerceEach(ctx context.Context, value any, t Type) (any, error) {
	if value == nil {
		return nil, nil
	}

	items, err := toArray(value, Array())
	if err != nil {
		return nil, errors.NewTypeCoercionError(fmt.Sprintf("[%s]", t.Name()), value, err)
	}

	list := items.([]any)
	result := make([]any, len(list))
	for i, item := range list {
		coerced, err := Coerce(ctx, item, t)
		if err != nil {
			return nil, err
		}
		result[i] = coerced
	}

	return result, nil
}

func toArray(value any, t Type) (any, error) {
	if r, ok := value.(Range); ok {
		result := make([]any, 0)
		for i := r.From; i <= r.To; i++ {
			result = append(result, i)
		}
		return result, nil
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, errors.NewTypeCoercionError(t.Name(), value, fmt.Errorf("value is not iterable"))
	}

	result := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		result[i] = rv.Index(i).Interface()
	}
	return result, nil
}

func toHash(value any, t Type) (any, error) {
	if m, ok := value.(map[string]any); ok {
		return m, nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		result := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			result[iter.Key().String()] = iter.Value().Interface()
		}
		return result, nil
	case reflect.Slice, reflect.Array:
		result := make(map[string]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			pair := reflect.ValueOf(rv.Index(i).Interface())
			if (pair.Kind() != reflect.Slice && pair.Kind() != reflect.Array) || pair.Len() != 2 {
				return nil, errors.NewTypeCoercionError(t.Name(), value, fmt.Errorf("element %d is not a key/value pair", i))
			}
			result[fmt.Sprint(pair.Index(0).Interface())] = pair.Index(1).Interface()
		}
		return result, nil
	}

	return nil, errors.NewTypeCoercionError(t.Name(), value, fmt.Errorf("value is not a map"))
}

func isInstance(value any, rt reflect.Type) bool {
	vt := reflect.TypeOf(value)
	if rt.Kind() == reflect.Interface {
		return vt.Implements(rt)
	}
	return vt == rt
}
