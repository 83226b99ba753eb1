package coercion

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"
)

type ScalarFunc func(value any) (any, error)

type scalar struct {
	goType reflect.Type
	cast   ScalarFunc
	// exact narrows which values of goType pass through uncoerced.
	exact func(value any) bool
}

var (
	scalars   = make(map[string]*scalar)
	scalarsMu sync.RWMutex
)

func init() {
	RegisterScalar("integer", 0, func(v any) (any, error) {
		n, err := ParseInt(v)
		return int(n), err
	})
	RegisterScalar("big_integer", int64(0), func(v any) (any, error) { return ParseInt(v) })
	RegisterScalar("float", 0.0, func(v any) (any, error) { return cast.ToFloat64E(trimmed(v)) })
	RegisterScalar("decimal", 0.0, func(v any) (any, error) { return cast.ToFloat64E(trimmed(v)) })
	RegisterScalar("boolean", false, toBool)
	RegisterScalar("string", "", func(v any) (any, error) { return cast.ToStringE(v) })
	RegisterScalar("immutable_string", "", func(v any) (any, error) { return cast.ToStringE(v) })
	RegisterScalar("symbol", Symbol(""), func(v any) (any, error) {
		s, err := cast.ToStringE(v)
		return Symbol(s), err
	})
	RegisterScalar("date", time.Time{}, toDate)
	scalars["date"].exact = isMidnight
	RegisterScalar("datetime", time.Time{}, func(v any) (any, error) { return cast.ToTimeE(v) })
	RegisterScalar("time", time.Time{}, func(v any) (any, error) { return cast.ToTimeE(v) })
	RegisterScalar("uuid", uuid.UUID{}, toUUID)
}

// RegisterScalar adds a scalar type. sample is a value of the Go type the
// scalar produces; values of that type pass through uncoerced. Registration
// is meant to happen at boot.
func RegisterScalar(name string, sample any, fn ScalarFunc) {
	scalarsMu.Lock()
	defer scalarsMu.Unlock()
	scalars[name] = &scalar{goType: reflect.TypeOf(sample), cast: fn}
}

func lookupScalar(name string) (*scalar, bool) {
	scalarsMu.RLock()
	defer scalarsMu.RUnlock()
	s, ok := scalars[name]
	return s, ok
}

func trimmed(v any) any {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return v
}

// ParseInt converts v to an int64. Strings are read as base 10, so leading
// zeros are kept decimal and prefixes such as 0x are rejected; a fractional
// part is truncated.
func ParseInt(v any) (int64, error) {
	s, ok := v.(string)
	if !ok {
		return cast.ToInt64E(v)
	}
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || strings.ContainsAny(s, "xX") {
		return 0, fmt.Errorf("unable to cast %q of type string to int64", s)
	}
	return int64(f), nil
}

func toBool(v any) (any, error) {
	if s, ok := v.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "yes", "y", "on":
			return true, nil
		case "no", "n", "off":
			return false, nil
		}
	}
	return cast.ToBoolE(trimmed(v))
}

func toDate(v any) (any, error) {
	t, err := cast.ToTimeE(v)
	if err != nil {
		return nil, err
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location()), nil
}

func isMidnight(v any) bool {
	t, ok := v.(time.Time)
	if !ok {
		return false
	}
	h, m, sec := t.Clock()
	return h == 0 && m == 0 && sec == 0 && t.Nanosecond() == 0
}

func toUUID(v any) (any, error) {
	switch value := v.(type) {
	case string:
		return uuid.Parse(strings.TrimSpace(value))
	case []byte:
		return uuid.FromBytes(value)
	}
	return nil, fmt.Errorf("%T is not a uuid", v)
}
