package transform

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"unicode"

	"github.com/Gobusters/ectolinq"
	"github.com/huandu/xstrings"
	"github.com/spf13/cast"

	"github.com/Ramsey-B/sprig/pkg/coercion"
	"github.com/Ramsey-B/sprig/pkg/models"
)

func init() {
	// strings
	registerString("strip", strings.TrimSpace)
	registerString("lstrip", func(s string) string { return strings.TrimLeftFunc(s, unicode.IsSpace) })
	registerString("rstrip", func(s string) string { return strings.TrimRightFunc(s, unicode.IsSpace) })
	registerString("squish", func(s string) string { return strings.Join(strings.Fields(s), " ") })
	registerString("upcase", strings.ToUpper)
	registerString("downcase", strings.ToLower)
	registerString("capitalize", func(s string) string { return xstrings.FirstRuneToUpper(strings.ToLower(s)) })
	registerString("titleize", titleize)
	registerString("swapcase", xstrings.SwapCase)
	registerString("reverse", xstrings.Reverse)
	registerString("underscore", xstrings.ToSnakeCase)
	registerString("digits_only", keepRunes(unicode.IsDigit))
	registerString("alphanumeric", keepRunes(func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }))
	Register("to_i", models.KindString, toInt)
	Register("to_f", models.KindString, func(v any) (any, error) { return cast.ToFloat64E(strings.TrimSpace(text(v))) })
	Register("to_sym", models.KindString, func(v any) (any, error) { return coercion.Symbol(text(v)), nil })

	// numbers
	registerNumber("abs", math.Abs)
	registerNumber("ceil", math.Ceil)
	registerNumber("floor", math.Floor)
	registerNumber("round", math.Round)
	Register("to_i", models.KindNumber, toInt)
	Register("to_f", models.KindNumber, func(v any) (any, error) { return cast.ToFloat64E(v) })

	// arrays
	Register("compact", models.KindArray, func(v any) (any, error) {
		return ectolinq.Filter(toSlice(v), func(item any) bool { return item != nil }), nil
	})
	Register("uniq", models.KindArray, uniq)
	Register("reverse", models.KindArray, func(v any) (any, error) {
		items := toSlice(v)
		result := make([]any, len(items))
		for i, item := range items {
			result[len(items)-1-i] = item
		}
		return result, nil
	})
	Register("sort", models.KindArray, sortSlice)
	Register("first", models.KindArray, func(v any) (any, error) { return ectolinq.First(toSlice(v)), nil })
	Register("last", models.KindArray, func(v any) (any, error) {
		items := toSlice(v)
		if len(items) == 0 {
			return nil, nil
		}
		return items[len(items)-1], nil
	})
	Register("flatten", models.KindArray, func(v any) (any, error) { return flatten(toSlice(v)), nil })
	Register("size", models.KindArray, func(v any) (any, error) { return len(toSlice(v)), nil })

	// objects
	Register("keys", models.KindObject, func(v any) (any, error) {
		return ectolinq.Map(sortedEntries(v), func(e entry) any { return e.key }), nil
	})
	Register("values", models.KindObject, func(v any) (any, error) {
		return ectolinq.Map(sortedEntries(v), func(e entry) any { return e.value }), nil
	})
	Register("compact", models.KindObject, func(v any) (any, error) {
		result := make(map[string]any)
		iter := reflect.ValueOf(v).MapRange()
		for iter.Next() {
			if value := iter.Value().Interface(); value != nil {
				result[fmt.Sprint(iter.Key().Interface())] = value
			}
		}
		return result, nil
	})
	Register("size", models.KindObject, func(v any) (any, error) { return reflect.ValueOf(v).Len(), nil })

	// any value
	Register("to_s", models.KindAny, func(v any) (any, error) {
		if v == nil {
			return "", nil
		}
		return cast.ToStringE(v)
	})
	Register("presence", models.KindAny, func(v any) (any, error) {
		if models.IsBlank(v) {
			return nil, nil
		}
		return v, nil
	})
}

func toInt(v any) (any, error) {
	if models.IsKind(v, models.KindString) {
		v = text(v)
	}
	n, err := coercion.ParseInt(v)
	if err != nil {
		return nil, err
	}
	return int(n), nil
}

func registerString(name string, fn func(string) string) {
	Register(name, models.KindString, func(v any) (any, error) {
		return fn(text(v)), nil
	})
}

func text(v any) string {
	return reflect.ValueOf(v).String()
}

func registerNumber(name string, fn func(float64) float64) {
	Register(name, models.KindNumber, func(v any) (any, error) {
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, err
		}
		result := fn(f)
		if isInteger(v) {
			return int(result), nil
		}
		return result, nil
	})
}

func isInteger(v any) bool {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Float32, reflect.Float64:
		return false
	}
	return true
}

func titleize(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '_' || r == '-'
	})
	for i, word := range words {
		words[i] = xstrings.FirstRuneToUpper(strings.ToLower(word))
	}
	return strings.Join(words, " ")
}

func keepRunes(keep func(rune) bool) func(string) string {
	return func(s string) string {
		var result strings.Builder
		for _, r := range s {
			if keep(r) {
				result.WriteRune(r)
			}
		}
		return result.String()
	}
}

func toSlice(v any) []any {
	if items, ok := v.([]any); ok {
		return items
	}
	rv := reflect.ValueOf(v)
	result := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		result[i] = rv.Index(i).Interface()
	}
	return result
}

func uniq(v any) (any, error) {
	result := make([]any, 0)
	for _, item := range toSlice(v) {
		duplicate := false
		for _, existing := range result {
			if reflect.DeepEqual(existing, item) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			result = append(result, item)
		}
	}
	return result, nil
}

func sortSlice(v any) (any, error) {
	items := append([]any(nil), toSlice(v)...)
	var sortErr error
	sort.SliceStable(items, func(i, j int) bool {
		switch a := items[i].(type) {
		case string:
			b, ok := items[j].(string)
			if !ok {
				sortErr = fmt.Errorf("comparison of %T with %T failed", items[i], items[j])
				return false
			}
			return a < b
		default:
			fa, errA := cast.ToFloat64E(items[i])
			fb, errB := cast.ToFloat64E(items[j])
			if errA != nil || errB != nil {
				sortErr = fmt.Errorf("comparison of %T with %T failed", items[i], items[j])
				return false
			}
			return fa < fb
		}
	})
	if sortErr != nil {
		return nil, sortErr
	}
	return items, nil
}

func flatten(items []any) []any {
	result := make([]any, 0, len(items))
	for _, item := range items {
		if models.KindOf(item) == models.KindArray {
			result = append(result, flatten(toSlice(item))...)
			continue
		}
		result = append(result, item)
	}
	return result
}

type entry struct {
	key   string
	value any
}

func sortedEntries(v any) []entry {
	entries := make([]entry, 0)
	iter := reflect.ValueOf(v).MapRange()
	for iter.Next() {
		entries = append(entries, entry{key: fmt.Sprint(iter.Key().Interface()), value: iter.Value().Interface()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })
	return entries
}
