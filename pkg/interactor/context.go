package interactor

import (
	"fmt"
	"maps"
	"sort"
	"strings"
)

type Values map[string]any

// MethodFunc is a named method an interactor exposes to its steps. Skip
// conditions call it with no arguments; transform steps pass the current value.
type MethodFunc func(ic *Context, args ...any) (any, error)

// Context is the mutable working state shared by the hooks of one call. It is
// owned by that call and must not be shared across goroutines.
type Context struct {
	values  map[string]any
	errors  []string
	failed  bool
	methods map[string]MethodFunc
}

func NewContext(values Values) *Context {
	ic := &Context{values: make(map[string]any, len(values))}
	for key, value := range values {
		ic.values[key] = value
	}
	return ic
}

func (ic *Context) Get(key string) any {
	return ic.values[key]
}

func (ic *Context) Lookup(key string) (any, bool) {
	value, ok := ic.values[key]
	return value, ok
}

func (ic *Context) Has(key string) bool {
	_, ok := ic.values[key]
	return ok
}

func (ic *Context) Set(key string, value any) {
	ic.values[key] = value
}

func (ic *Context) Delete(key string) {
	delete(ic.values, key)
}

// Values returns a copy of the current state.
func (ic *Context) Values() Values {
	values := make(Values, len(ic.values))
	for key, value := range ic.values {
		values[key] = value
	}
	return values
}

// Snapshot exposes the state as a plain map for path and expression lookups.
func (ic *Context) Snapshot() map[string]any {
	return ic.Values()
}

// Keys returns the state keys in sorted order.
func (ic *Context) Keys() []string {
	keys := make([]string, 0, len(ic.values))
	for key := range ic.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Fail marks the context failed and records the messages. Hooks return
// normally after calling Fail; the pipeline stops before the next hook.
func (ic *Context) Fail(messages ...string) {
	ic.failed = true
	ic.errors = append(ic.errors, messages...)
}

func (ic *Context) Failure() bool {
	return ic.failed
}

func (ic *Context) Success() bool {
	return !ic.failed
}

func (ic *Context) Errors() []string {
	return append([]string(nil), ic.errors...)
}

func (ic *Context) HasMethod(name string) bool {
	_, ok := ic.methods[name]
	return ok
}

func (ic *Context) CallMethod(name string, args ...any) (any, error) {
	method, ok := ic.methods[name]
	if !ok {
		return nil, fmt.Errorf("undefined method '%s'", name)
	}
	return method(ic, args...)
}

// bind layers methods over the current method set for the duration of one
// run. The returned func restores the previous set.
func (ic *Context) bind(methods map[string]MethodFunc) (restore func()) {
	previous := ic.methods
	bound := make(map[string]MethodFunc, len(previous)+len(methods))
	maps.Copy(bound, previous)
	maps.Copy(bound, methods)
	ic.methods = bound
	return func() { ic.methods = previous }
}

func (ic *Context) String() string {
	status := "success"
	if ic.failed {
		status = "failure: " + strings.Join(ic.errors, ", ")
	}
	return fmt.Sprintf("Context{%s %v}", status, ic.Keys())
}
