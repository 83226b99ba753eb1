package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Record is the fixed-shape data shape: an immutable set of fields in
// declaration order.
type Record struct {
	typeName string
	keys     []string
	values   []any
	index    map[string]int
}

func newRecord(typeName string, keys []string, values []any) *Record {
	index := make(map[string]int, len(keys))
	for i, key := range keys {
		index[key] = i
	}
	return &Record{typeName: typeName, keys: keys, values: values, index: index}
}

func (r *Record) Type() string {
	return r.typeName
}

func (r *Record) Keys() []string {
	return append([]string(nil), r.keys...)
}

func (r *Record) Values() []any {
	return append([]any(nil), r.values...)
}

func (r *Record) Len() int {
	return len(r.keys)
}

func (r *Record) Get(key string) (any, bool) {
	i, ok := r.index[key]
	if !ok {
		return nil, false
	}
	return r.values[i], true
}

// ToMap returns the fields as a map; nested records convert too.
func (r *Record) ToMap() map[string]any {
	m := make(map[string]any, len(r.keys))
	for i, key := range r.keys {
		m[key] = recordValue(r.values[i])
	}
	return m
}

// MarshalJSON writes the fields in declaration order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s.%s: %w", r.typeName, key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Record) String() string {
	parts := make([]string, len(r.keys))
	for i, key := range r.keys {
		parts[i] = fmt.Sprintf("%s: %v", key, r.values[i])
	}
	return fmt.Sprintf("%s{%s}", r.typeName, strings.Join(parts, ", "))
}

func recordValue(value any) any {
	switch v := value.(type) {
	case *Record:
		return v.ToMap()
	case []any:
		converted := make([]any, len(v))
		for i, item := range v {
			converted[i] = recordValue(item)
		}
		return converted
	}
	return value
}
