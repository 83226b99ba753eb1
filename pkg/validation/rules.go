package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"

	"github.com/Ramsey-B/sprig/pkg/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Rule checks one value. It returns the failure message and false when the
// value is invalid.
type Rule interface {
	Check(value any) (string, bool)
}

type RuleFunc func(value any) (string, bool)

func (f RuleFunc) Check(value any) (string, bool) {
	return f(value)
}

// Presence fails blank values: nil, whitespace-only text, empty collections.
func Presence() Rule {
	return RuleFunc(func(value any) (string, bool) {
		if models.IsBlank(value) {
			return "can't be blank", false
		}
		return "", true
	})
}

func Absence() Rule {
	return RuleFunc(func(value any) (string, bool) {
		if !models.IsBlank(value) {
			return "must be blank", false
		}
		return "", true
	})
}

// The rules below skip nil; combine with Presence to require a value.

func Format(pattern string) Rule {
	re := regexp.MustCompile(pattern)
	return skipNil(func(value any) (string, bool) {
		s, err := cast.ToStringE(value)
		if err != nil || !re.MatchString(s) {
			return "is invalid", false
		}
		return "", true
	})
}

func Inclusion(allowed ...any) Rule {
	return skipNil(func(value any) (string, bool) {
		if !containsValue(allowed, value) {
			return "is not included in the list", false
		}
		return "", true
	})
}

func Exclusion(reserved ...any) Rule {
	return skipNil(func(value any) (string, bool) {
		if containsValue(reserved, value) {
			return "is reserved", false
		}
		return "", true
	})
}

func Length(min, max int) Rule {
	return skipNil(func(value any) (string, bool) {
		n, ok := length(value)
		if !ok {
			return "is invalid", false
		}
		if min > 0 && n < min {
			return fmt.Sprintf("is too short (minimum is %d characters)", min), false
		}
		if max > 0 && n > max {
			return fmt.Sprintf("is too long (maximum is %d characters)", max), false
		}
		return "", true
	})
}

func LengthIs(n int) Rule {
	return skipNil(func(value any) (string, bool) {
		actual, ok := length(value)
		if !ok || actual != n {
			return fmt.Sprintf("is the wrong length (should be %d characters)", n), false
		}
		return "", true
	})
}

type Comparison string

const (
	GreaterThan          Comparison = "greater than"
	GreaterThanOrEqualTo Comparison = "greater than or equal to"
	LessThan             Comparison = "less than"
	LessThanOrEqualTo    Comparison = "less than or equal to"
	EqualTo              Comparison = "equal to"
	OtherThan            Comparison = "other than"
)

// Numericality fails values that are not numbers and, for each comparison,
// values that do not satisfy it.
func Numericality(comparisons ...NumericCheck) Rule {
	return skipNil(func(value any) (string, bool) {
		n, err := cast.ToFloat64E(value)
		if err != nil {
			return "is not a number", false
		}
		for _, c := range comparisons {
			if !c.holds(n) {
				return fmt.Sprintf("must be %s %v", c.Comparison, c.Bound), false
			}
		}
		return "", true
	})
}

type NumericCheck struct {
	Comparison Comparison
	Bound      float64
}

func Compare(comparison Comparison, bound float64) NumericCheck {
	return NumericCheck{Comparison: comparison, Bound: bound}
}

func (c NumericCheck) holds(n float64) bool {
	switch c.Comparison {
	case GreaterThan:
		return n > c.Bound
	case GreaterThanOrEqualTo:
		return n >= c.Bound
	case LessThan:
		return n < c.Bound
	case LessThanOrEqualTo:
		return n <= c.Bound
	case EqualTo:
		return n == c.Bound
	case OtherThan:
		return n != c.Bound
	}
	return false
}

func OnlyInteger() Rule {
	return skipNil(func(value any) (string, bool) {
		n, err := cast.ToFloat64E(value)
		if err != nil {
			return "is not a number", false
		}
		if n != float64(int64(n)) {
			return "must be an integer", false
		}
		return "", true
	})
}

// Tag validates with a go-playground/validator tag, e.g. "email" or
// "min=3,max=10".
func Tag(tag string) Rule {
	return skipNil(func(value any) (string, bool) {
		if err := validate.Var(value, tag); err != nil {
			return tagMessage(err), false
		}
		return "", true
	})
}

func Email() Rule {
	return Tag("email")
}

// Custom runs fn; a non-empty returned message fails the value.
func Custom(fn func(value any) string) Rule {
	return RuleFunc(func(value any) (string, bool) {
		if msg := fn(value); msg != "" {
			return msg, false
		}
		return "", true
	})
}

func skipNil(fn RuleFunc) Rule {
	return RuleFunc(func(value any) (string, bool) {
		if value == nil {
			return "", true
		}
		return fn(value)
	})
}

func tagMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "is invalid"
	}

	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return "can't be blank"
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "len":
		return fmt.Sprintf("must have length %s", fe.Param())
	case "oneof":
		return "is not included in the list"
	}
	return "is invalid"
}

// containsValue matches equal values, treating numbers of different Go
// types (int and int64) as equal.
func containsValue(list []any, value any) bool {
	for _, item := range list {
		if reflect.DeepEqual(item, value) {
			return true
		}
		if models.KindOf(item) == models.KindOf(value) && fmt.Sprint(item) == fmt.Sprint(value) {
			return true
		}
	}
	return false
}

func length(value any) (int, bool) {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String:
		return utf8.RuneCountInString(rv.String()), true
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len(), true
	}
	return 0, false
}
