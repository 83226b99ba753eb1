// Package values resolves declared values (literals, context references,
// computed funcs, named lookups, JMESPath paths and CEL expressions) against
// a source such as an interactor context or a request object.
package values

import (
	"fmt"
	"reflect"
)

// Source is what values resolve against.
type Source interface {
	Lookup(key string) (any, bool)
	HasMethod(name string) bool
	CallMethod(name string, args ...any) (any, error)
}

// Snapshotter exposes the whole source as a map for path and expression
// evaluation.
type Snapshotter interface {
	Snapshot() map[string]any
}

type Kind int

const (
	KindLiteral Kind = iota
	KindRef
	KindFunc
	KindNamed
	KindPath
	KindExpr
)

func (k Kind) String() string {
	switch k {
	case KindRef:
		return "ref"
	case KindFunc:
		return "func"
	case KindNamed:
		return "named"
	case KindPath:
		return "path"
	case KindExpr:
		return "expr"
	}
	return "literal"
}

type ComputeFunc func(src Source) (any, error)

// Value is a declared value and the rule for resolving it.
type Value struct {
	kind    Kind
	literal any
	key     string
	fn      ComputeFunc
}

// Literal resolves to v itself.
func Literal(v any) Value {
	return Value{kind: KindLiteral, literal: v}
}

// Ref resolves to the source's value under key, or nil.
func Ref(key string) Value {
	return Value{kind: KindRef, key: key}
}

// Func resolves by calling fn with the source.
func Func(fn ComputeFunc) Value {
	return Value{kind: KindFunc, fn: fn}
}

// Named resolves to the zero-argument method name when the source has one,
// else to the source's value under name when present, else to name itself.
func Named(name string) Value {
	return Value{kind: KindNamed, key: name}
}

// Of converts a loosely typed declaration: strings are references, funcs are
// computed, Values are kept and anything else is a literal.
func Of(v any) Value {
	switch value := v.(type) {
	case Value:
		return value
	case string:
		return Ref(value)
	case ComputeFunc:
		return Func(value)
	case func(src Source) (any, error):
		return Func(value)
	case func(src Source) any:
		return Func(func(src Source) (any, error) { return value(src), nil })
	}
	return Literal(v)
}

func (v Value) Kind() Kind {
	return v.kind
}

// Key is the referenced name for Ref and Named values, or the source text of
// a path or expression.
func (v Value) Key() string {
	return v.key
}

func (v Value) Resolve(src Source) (any, error) {
	switch v.kind {
	case KindLiteral:
		return v.literal, nil
	case KindRef:
		value, _ := src.Lookup(v.key)
		return value, nil
	case KindNamed:
		if src.HasMethod(v.key) {
			return src.CallMethod(v.key)
		}
		if value, ok := src.Lookup(v.key); ok {
			return value, nil
		}
		return v.key, nil
	case KindFunc, KindPath, KindExpr:
		return call(v.fn, src)
	}
	return nil, fmt.Errorf("unknown value kind %d", v.kind)
}

// ResolveMap resolves every entry of a declared map.
func ResolveMap(declared map[string]Value, src Source) (map[string]any, error) {
	result := make(map[string]any, len(declared))
	for key, value := range declared {
		resolved, err := value.Resolve(src)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		result[key] = resolved
	}
	return result, nil
}

// Truthy treats nil, false and nil pointers as false; everything else is true.
func Truthy(v any) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return !rv.IsNil()
	}
	return true
}

func call(fn ComputeFunc, src Source) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return fn(src)
}

func snapshot(src Source) map[string]any {
	if s, ok := src.(Snapshotter); ok {
		return s.Snapshot()
	}
	return map[string]any{}
}
