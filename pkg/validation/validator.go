// Package validation runs declared rule sets against named values and
// collects every failure message.
package validation

import (
	"strings"

	"github.com/huandu/xstrings"
)

// Lookup is anything validated values can be read from.
type Lookup interface {
	Lookup(key string) (any, bool)
}

type entry struct {
	field string
	rules []Rule
	when  func(src Lookup) bool
}

// Validator is an ordered list of field rule sets.
type Validator struct {
	entries []entry
}

func New() *Validator {
	return &Validator{}
}

// Add declares rules that always apply to field.
func (v *Validator) Add(field string, rules ...Rule) *Validator {
	v.entries = append(v.entries, entry{field: field, rules: rules})
	return v
}

// AddIfPresent declares rules that only apply when the source holds a value
// for field.
func (v *Validator) AddIfPresent(field string, rules ...Rule) *Validator {
	v.entries = append(v.entries, entry{field: field, rules: rules, when: func(src Lookup) bool {
		_, ok := src.Lookup(field)
		return ok
	}})
	return v
}

// AddWhen declares rules that apply when cond holds for the source.
func (v *Validator) AddWhen(field string, cond func(src Lookup) bool, rules ...Rule) *Validator {
	v.entries = append(v.entries, entry{field: field, rules: rules, when: cond})
	return v
}

func (v *Validator) Empty() bool {
	return len(v.entries) == 0
}

// Errors runs every rule and returns the full messages, in declaration order.
// It never stops at the first failure.
func (v *Validator) Errors(src Lookup) []string {
	messages := make([]string, 0)
	for _, e := range v.entries {
		if e.when != nil && !e.when(src) {
			continue
		}
		value, _ := src.Lookup(e.field)
		messages = append(messages, Check(e.field, value, e.rules...)...)
	}
	return messages
}

func (v *Validator) Valid(src Lookup) bool {
	return len(v.Errors(src)) == 0
}

// Check applies rules to one value and returns full messages.
func Check(field string, value any, rules ...Rule) []string {
	messages := make([]string, 0)
	for _, rule := range rules {
		if msg, ok := rule.Check(value); !ok {
			messages = append(messages, FullMessage(field, msg))
		}
	}
	return messages
}

// FullMessage prefixes msg with the humanized field name:
// ("email_address", "is invalid") becomes "Email address is invalid".
func FullMessage(field, msg string) string {
	return Humanize(field) + " " + msg
}

func Humanize(field string) string {
	name := strings.TrimSuffix(xstrings.ToSnakeCase(field), "_id")
	name = strings.TrimSpace(strings.ReplaceAll(name, "_", " "))
	return xstrings.FirstRuneToUpper(name)
}
