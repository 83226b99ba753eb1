package models

import (
	"reflect"
	"time"
)

// ValueKind is the broad category of a runtime value. Transform methods are
// registered per kind.
type ValueKind string

const (
	KindNil    ValueKind = "nil"
	KindString ValueKind = "string"
	KindNumber ValueKind = "number"
	KindBool   ValueKind = "bool"
	KindArray  ValueKind = "array"
	KindObject ValueKind = "object"
	KindDate   ValueKind = "date"
	KindAny    ValueKind = "any"
)

func KindOf(value any) ValueKind {
	if value == nil {
		return KindNil
	}

	if _, ok := value.(time.Time); ok {
		return KindDate
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String:
		return KindString
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return KindNumber
	case reflect.Bool:
		return KindBool
	case reflect.Slice, reflect.Array:
		return KindArray
	case reflect.Map:
		return KindObject
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return KindNil
		}
	}

	return KindAny
}

func IsKind(value any, kind ValueKind) bool {
	if kind == KindAny {
		return true
	}
	return KindOf(value) == kind
}

// IsBlank reports whether value is nil, a nil pointer, whitespace-only text or
// an empty collection. Numbers and booleans are never blank.
func IsBlank(value any) bool {
	if value == nil {
		return true
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String:
		for _, r := range rv.String() {
			if r != ' ' && r != '\t' && r != '\n' && r != '\r' && r != '\f' && r != '\v' {
				return false
			}
		}
		return true
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}

	return false
}
