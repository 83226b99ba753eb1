// Package transform applies ordered value pipelines during attribute assignment.
package transform

import (
	"sync"

	"github.com/Ramsey-B/sprig/pkg/models"
)

// MethodFunc is a zero-argument method on a value of some kind.
type MethodFunc func(value any) (any, error)

// registry holds the named methods each value kind supports
var (
	registry   = make(map[models.ValueKind]map[string]MethodFunc)
	registryMu sync.RWMutex
)

// Register adds a named method for values of kind. KindAny methods apply to
// every value that has no kind-specific method of the same name.
func Register(name string, kind models.ValueKind, fn MethodFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()

	methods, ok := registry[kind]
	if !ok {
		methods = make(map[string]MethodFunc)
		registry[kind] = methods
	}
	methods[name] = fn
}

// Lookup finds the method name for value, preferring the value's own kind.
func Lookup(value any, name string) (MethodFunc, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if fn, ok := registry[models.KindOf(value)][name]; ok {
		return fn, true
	}
	fn, ok := registry[models.KindAny][name]
	return fn, ok
}

// Supports reports whether value responds to the named method.
func Supports(value any, name string) bool {
	_, ok := Lookup(value, name)
	return ok
}
