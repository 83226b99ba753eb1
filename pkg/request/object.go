package request

import (
	"encoding/json"
	"fmt"

	"github.com/Ramsey-B/sprig/config"
)

// Object is one constructed request object. It is read-only once New
// returns.
type Object struct {
	schema   *Schema
	settings *config.Settings
	values   map[string]any
	assigned map[string]bool
}

func newObject(schema *Schema, settings *config.Settings) *Object {
	return &Object{
		schema:   schema,
		settings: settings,
		values:   make(map[string]any, len(schema.fields)),
		assigned: make(map[string]bool, len(schema.fields)),
	}
}

func (o *Object) set(field string, value any, assigned bool) {
	o.values[field] = value
	if assigned {
		o.assigned[field] = true
	}
}

func (o *Object) Schema() *Schema {
	return o.schema
}

// Type is the name of the declaring schema.
func (o *Object) Type() string {
	return o.schema.name
}

// Get returns the value of a declared attribute by internal name, or nil.
func (o *Object) Get(field string) any {
	return o.values[field]
}

// Lookup reports whether the attribute holds a value, assigned or defaulted.
func (o *Object) Lookup(field string) (any, bool) {
	value, ok := o.values[field]
	return value, ok
}

// Has reports whether the schema declares the attribute.
func (o *Object) Has(field string) bool {
	_, ok := o.schema.byInternal[field]
	return ok
}

// Assigned reports whether the input provided the attribute.
func (o *Object) Assigned(field string) bool {
	return o.assigned[field]
}

// Keys returns the internal attribute names in declaration order.
func (o *Object) Keys() []string {
	keys := make([]string, len(o.schema.fields))
	for i, f := range o.schema.fields {
		keys[i] = f.Internal
	}
	return keys
}

// Attributes returns every declared attribute by internal name. Unset
// attributes are nil.
func (o *Object) Attributes() map[string]any {
	attrs := make(map[string]any, len(o.schema.fields))
	for _, key := range o.Keys() {
		attrs[key] = o.values[key]
	}
	return attrs
}

func (o *Object) HasMethod(name string) bool {
	_, ok := o.schema.methods[name]
	return ok
}

func (o *Object) CallMethod(name string, args ...any) (any, error) {
	method, ok := o.schema.methods[name]
	if !ok {
		return nil, fmt.Errorf("undefined method '%s' for %s", name, o.schema.name)
	}
	return method(o, args...)
}

// Snapshot is the string keyed data shape, for path and expression lookups.
func (o *Object) Snapshot() map[string]any {
	return o.ToMap()
}

func (o *Object) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.toShape(stringMapSettings(o.settings)))
}

func (o *Object) String() string {
	return fmt.Sprintf("%s%v", o.schema.name, o.ToMap())
}

// Value reads an attribute as T. It reports false when the attribute is unset
// or holds another type.
func Value[T any](o *Object, field string) (T, bool) {
	value, ok := o.values[field].(T)
	return value, ok
}
