package store

import (
	"fmt"
	"sort"
)

// Record is one row of a registered model.
type Record struct {
	model     string
	attrs     map[string]any
	persisted bool
	errors    []string
}

// NewRecord builds an unsaved record.
func NewRecord(model string, attrs map[string]any) *Record {
	r := &Record{model: model, attrs: make(map[string]any, len(attrs))}
	r.Assign(attrs)
	return r
}

func (r *Record) Model() string {
	return r.model
}

func (r *Record) Get(key string) any {
	return r.attrs[key]
}

func (r *Record) Lookup(key string) (any, bool) {
	value, ok := r.attrs[key]
	return value, ok
}

func (r *Record) Set(key string, value any) {
	r.attrs[key] = value
}

// Assign sets every attribute of attrs.
func (r *Record) Assign(attrs map[string]any) {
	for key, value := range attrs {
		r.attrs[key] = value
	}
}

// Attributes returns a copy of the attributes.
func (r *Record) Attributes() map[string]any {
	attrs := make(map[string]any, len(r.attrs))
	for key, value := range r.attrs {
		attrs[key] = value
	}
	return attrs
}

// Persisted reports whether the record was loaded from or saved to the
// database, and is not deleted.
func (r *Record) Persisted() bool {
	return r.persisted
}

// Errors are the validation messages of the last failed save.
func (r *Record) Errors() []string {
	return append([]string(nil), r.errors...)
}

func (r *Record) Valid() bool {
	return len(r.errors) == 0
}

func (r *Record) String() string {
	keys := make([]string, 0, len(r.attrs))
	for key := range r.attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]any, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%v", key, r.attrs[key]))
	}
	return fmt.Sprintf("%s%v", r.model, pairs)
}
