package organize

import (
	"reflect"
	"strings"

	"github.com/Gobusters/ectolinq"

	"github.com/Ramsey-B/sprig/pkg/errors"
)

// RewriteRule reshapes one top-level parameter. The options apply in field
// order.
type RewriteRule struct {
	// As renames the key.
	As string
	// Only and Except filter the sub-keys of a map value.
	Only   []string
	Except []string
	// Flatten moves every sub-key of the map value to the top level and drops
	// the key itself.
	Flatten bool
	// FlattenKeys moves the sub-keys of the named nested maps up into the
	// value.
	FlattenKeys []string
	// Default replaces an absent or nil value.
	Default any
	// Merge adds fixed keys to the map value.
	Merge map[string]any
}

type paramsConfig struct {
	merge    map[string]any
	except   []string
	rewrites []rewrite
}

type rewrite struct {
	key  string
	rule RewriteRule
}

type ParamsOption func(*paramsConfig)

// Merge adds fixed top-level keys after the rewrites.
func Merge(values map[string]any) ParamsOption {
	return func(c *paramsConfig) {
		for key, value := range values {
			if c.merge == nil {
				c.merge = make(map[string]any)
			}
			c.merge[key] = value
		}
	}
}

// Except removes keys last. Dotted paths such as "order.secret" remove a
// nested key only.
func Except(paths ...string) ParamsOption {
	return func(c *paramsConfig) {
		c.except = append(c.except, paths...)
	}
}

// Rewrite reshapes key. Rewrites apply in declaration order.
func Rewrite(key string, rule RewriteRule) ParamsOption {
	return func(c *paramsConfig) {
		c.rewrites = append(c.rewrites, rewrite{key: key, rule: rule})
	}
}

// RequestParams shapes raw parameters for a request object: it keeps the
// given top-level keys (all keys when none are given), applies the rewrites,
// merges fixed keys and removes the excepted paths. The input is not
// modified.
func RequestParams(params map[string]any, keys []string, opts ...ParamsOption) (map[string]any, error) {
	c := &paramsConfig{}
	for _, opt := range opts {
		opt(c)
	}

	data := make(map[string]any, len(params))
	for key, value := range params {
		if len(keys) > 0 && !ectolinq.Contains(keys, key) {
			continue
		}
		data[key] = deepCopy(value)
	}

	for _, rw := range c.rewrites {
		if err := applyRewrite(data, rw.key, rw.rule); err != nil {
			return nil, err
		}
	}

	for key, value := range c.merge {
		data[key] = deepCopy(value)
	}

	for _, path := range c.except {
		removePath(data, strings.Split(path, "."))
	}

	return data, nil
}

func applyRewrite(data map[string]any, key string, rule RewriteRule) error {
	value, present := data[key]

	target := key
	if rule.As != "" {
		delete(data, key)
		target = rule.As
	}

	if m, ok := value.(map[string]any); ok {
		if len(rule.Only) > 0 {
			m = filterKeys(m, func(k string) bool { return ectolinq.Contains(rule.Only, k) })
		}
		if len(rule.Except) > 0 {
			m = filterKeys(m, func(k string) bool { return !ectolinq.Contains(rule.Except, k) })
		}
		value = m
	}

	if rule.Flatten {
		if value == nil {
			value = deepCopy(rule.Default)
		}
		if value == nil {
			delete(data, target)
			return nil
		}
		m, ok := value.(map[string]any)
		if !ok {
			return flattenError(key, value)
		}
		delete(data, target)
		for k, v := range m {
			data[k] = v
		}
		for k, v := range rule.Merge {
			data[k] = deepCopy(v)
		}
		return nil
	}

	if len(rule.FlattenKeys) > 0 && value != nil {
		m, ok := value.(map[string]any)
		if !ok {
			return flattenError(key, value)
		}
		for _, sub := range rule.FlattenKeys {
			nested, exists := m[sub]
			if !exists || nested == nil {
				continue
			}
			nestedMap, ok := nested.(map[string]any)
			if !ok {
				return flattenError(sub, nested)
			}
			delete(m, sub)
			for k, v := range nestedMap {
				m[k] = v
			}
		}
		value = m
	}

	if (!present || value == nil) && rule.Default != nil {
		value = deepCopy(rule.Default)
		present = true
	}

	if len(rule.Merge) > 0 {
		m, ok := value.(map[string]any)
		if !ok && value != nil {
			return errors.NewConfigurationError(key, "merge requires a map value")
		}
		if m == nil {
			m = make(map[string]any, len(rule.Merge))
		}
		for k, v := range rule.Merge {
			m[k] = deepCopy(v)
		}
		value = m
		present = true
	}

	if present {
		data[target] = value
	}
	return nil
}

func flattenError(key string, value any) error {
	if isList(value) {
		return errors.NewConfigurationError(key, "flattening arrays of hashes is not supported")
	}
	return errors.NewConfigurationError(key, "only hashes can be flattened")
}

func isList(value any) bool {
	kind := reflect.ValueOf(value).Kind()
	return kind == reflect.Slice || kind == reflect.Array
}

func filterKeys(m map[string]any, keep func(string) bool) map[string]any {
	filtered := make(map[string]any, len(m))
	for k, v := range m {
		if keep(k) {
			filtered[k] = v
		}
	}
	return filtered
}

func removePath(data map[string]any, path []string) {
	if len(path) == 0 {
		return
	}
	if len(path) == 1 {
		delete(data, path[0])
		return
	}
	if nested, ok := data[path[0]].(map[string]any); ok {
		removePath(nested, path[1:])
	}
}

func deepCopy(value any) any {
	switch v := value.(type) {
	case map[string]any:
		m := make(map[string]any, len(v))
		for key, item := range v {
			m[key] = deepCopy(item)
		}
		return m
	case []any:
		list := make([]any, len(v))
		for i, item := range v {
			list[i] = deepCopy(item)
		}
		return list
	}
	return value
}
