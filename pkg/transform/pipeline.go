package transform

import (
	"fmt"

	"github.com/Ramsey-B/sprig/pkg/errors"
	"github.com/Ramsey-B/sprig/pkg/models"
)

// Scope is the object a pipeline runs for. Scope methods receive the current
// value; funcs may read sibling values through it.
type Scope interface {
	HasMethod(name string) bool
	CallMethod(name string, args ...any) (any, error)
}

type TransformFunc func(value any, scope Scope) (any, error)

type opKind int

const (
	opMethod opKind = iota
	opScopeMethod
	opFunc
)

// Op is one step of a pipeline.
type Op struct {
	kind opKind
	name string
	fn   TransformFunc
}

// Method calls name on the current value, falling back to a scope method of
// the same name that receives the value.
func Method(name string) Op {
	return Op{kind: opMethod, name: name}
}

// ScopeMethod calls name on the scope, passing the current value.
func ScopeMethod(name string) Op {
	return Op{kind: opScopeMethod, name: name}
}

func Func(fn TransformFunc) Op {
	return Op{kind: opFunc, name: "func", fn: fn}
}

func (op Op) String() string {
	return op.name
}

type Pipeline []Op

// Ops builds a pipeline from loosely typed declarations: method names, Ops,
// Pipelines and funcs.
func Ops(decls ...any) (Pipeline, error) {
	pipeline := make(Pipeline, 0, len(decls))
	for _, decl := range decls {
		switch op := decl.(type) {
		case string:
			if op == "" {
				return nil, errors.NewArgumentError("transform", "method name cannot be empty")
			}
			pipeline = append(pipeline, Method(op))
		case []string:
			for _, name := range op {
				pipeline = append(pipeline, Method(name))
			}
		case Op:
			pipeline = append(pipeline, op)
		case Pipeline:
			pipeline = append(pipeline, op...)
		case TransformFunc:
			pipeline = append(pipeline, Func(op))
		case func(value any, scope Scope) (any, error):
			pipeline = append(pipeline, Func(op))
		case func(value any) (any, error):
			pipeline = append(pipeline, Func(func(value any, _ Scope) (any, error) { return op(value) }))
		case func(value any) any:
			pipeline = append(pipeline, Func(func(value any, _ Scope) (any, error) { return op(value), nil }))
		default:
			return nil, errors.NewArgumentErrorf("transform", "unsupported transform %T", decl)
		}
	}
	return pipeline, nil
}

// Apply runs the pipeline left to right, each op receiving the previous
// op's output.
func Apply(field string, value any, pipeline Pipeline, scope Scope) (any, error) {
	current := value
	for _, op := range pipeline {
		next, err := op.apply(field, current, scope)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

func (op Op) apply(field string, value any, scope Scope) (any, error) {
	switch op.kind {
	case opMethod:
		if fn, ok := Lookup(value, op.name); ok {
			result, err := fn(value)
			if err != nil {
				return nil, errors.NewTransformError(field, err)
			}
			return result, nil
		}
		if scope != nil && scope.HasMethod(op.name) {
			return callScope(field, op.name, value, scope)
		}
		return nil, errors.NewUnknownTransformError(field, op.name, string(models.KindOf(value)))
	case opScopeMethod:
		if scope == nil || !scope.HasMethod(op.name) {
			return nil, errors.NewUnknownTransformError(field, op.name, "scope")
		}
		return callScope(field, op.name, value, scope)
	case opFunc:
		result, err := safeCall(func() (any, error) { return op.fn(value, scope) })
		if err != nil {
			return nil, errors.NewTransformError(field, err)
		}
		return result, nil
	}
	return nil, errors.NewArgumentErrorf("transform", "unknown op %q", op.name)
}

func callScope(field, name string, value any, scope Scope) (any, error) {
	result, err := safeCall(func() (any, error) { return scope.CallMethod(name, value) })
	if err != nil {
		return nil, errors.NewTransformError(field, err)
	}
	return result, nil
}

// safeCall turns a panic in user code into an error scoped to the field.
func safeCall(fn func() (any, error)) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return fn()
}
