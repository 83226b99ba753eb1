package request

import (
	"github.com/huandu/xstrings"

	"github.com/Ramsey-B/sprig/config"
	"github.com/Ramsey-B/sprig/pkg/coercion"
)

// ToDataShape converts the object to the plain structure the settings
// select: a string keyed map, a symbol keyed map or a Record. Nested objects
// and slices of them convert recursively.
func (o *Object) ToDataShape() any {
	return o.toShape(o.settings)
}

// ToMap converts the object to a string keyed map with declared keys,
// regardless of the settings.
func (o *Object) ToMap() map[string]any {
	return o.toShape(&config.Settings{Shape: config.ShapeStringMap, KeyCase: config.KeyCaseDeclared}).(map[string]any)
}

func (o *Object) toShape(settings *config.Settings) any {
	keys := o.Keys()

	switch settings.Shape {
	case config.ShapeRecord:
		values := make([]any, len(keys))
		for i, key := range keys {
			values[i] = convert(o.values[key], settings)
		}
		return newRecord(o.schema.name, keys, values)
	case config.ShapeSymbolMap:
		shape := make(map[coercion.Symbol]any, len(keys))
		for _, key := range keys {
			shape[coercion.Symbol(caseKey(key, settings.KeyCase))] = convert(o.values[key], settings)
		}
		return shape
	default:
		shape := make(map[string]any, len(keys))
		for _, key := range keys {
			shape[caseKey(key, settings.KeyCase)] = convert(o.values[key], settings)
		}
		return shape
	}
}

func convert(value any, settings *config.Settings) any {
	switch v := value.(type) {
	case *Object:
		return v.toShape(settings)
	case []any:
		converted := make([]any, len(v))
		for i, item := range v {
			converted[i] = convert(item, settings)
		}
		return converted
	case []*Object:
		converted := make([]any, len(v))
		for i, item := range v {
			converted[i] = item.toShape(settings)
		}
		return converted
	}
	return value
}

func caseKey(key string, keyCase config.KeyCase) string {
	switch keyCase {
	case config.KeyCaseCamel:
		return xstrings.FirstRuneToLower(xstrings.ToCamelCase(key))
	case config.KeyCaseSnake:
		return xstrings.ToSnakeCase(key)
	}
	return key
}

func stringMapSettings(settings *config.Settings) *config.Settings {
	return &config.Settings{Shape: config.ShapeStringMap, KeyCase: settings.KeyCase}
}
