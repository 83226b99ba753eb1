// Package request declares typed, validated input objects and builds them
// from raw parameter maps.
package request

import (
	"context"
	"sort"

	"github.com/Gobusters/ectolinq"

	"github.com/Ramsey-B/sprig/config"
	"github.com/Ramsey-B/sprig/pkg/errors"
	"github.com/Ramsey-B/sprig/pkg/metrics"
	"github.com/Ramsey-B/sprig/pkg/tracing"
	"github.com/Ramsey-B/sprig/pkg/validation"
)

// MethodFunc is a schema method. Transform pipelines call it with the value
// being assigned.
type MethodFunc func(obj *Object, args ...any) (any, error)

// Schema is the declaration of one request object type. It is built once and
// is safe for concurrent use afterwards.
type Schema struct {
	name          string
	fields        []*FieldDef
	byInternal    map[string]*FieldDef
	ignoreUnknown bool
	methods       map[string]MethodFunc
	validations   []func(obj *Object) []string
	validator     *validation.Validator
	settings      *config.Settings
}

type SchemaOption func(s *Schema) error

// Field declares one attribute.
func Field(name string, opts ...FieldOption) SchemaOption {
	return Fields([]string{name}, opts...)
}

// Fields declares several attributes sharing the same options.
func Fields(names []string, opts ...FieldOption) SchemaOption {
	return func(s *Schema) error {
		for _, name := range names {
			f, err := newFieldDef(name, opts)
			if err != nil {
				return err
			}
			if existing, ok := s.byInternal[f.Internal]; ok {
				return errors.NewArgumentErrorf("field", "%s: attribute '%s' is already declared by %s", s.name, f.Internal, existing)
			}
			s.fields = append(s.fields, f)
			s.byInternal[f.Internal] = f
		}
		return nil
	}
}

// IgnoreUnknownAttributes skips undeclared input keys instead of failing.
func IgnoreUnknownAttributes() SchemaOption {
	return func(s *Schema) error {
		s.ignoreUnknown = true
		return nil
	}
}

// Method registers a method transform pipelines can call by name.
func Method(name string, fn MethodFunc) SchemaOption {
	return func(s *Schema) error {
		if _, ok := s.methods[name]; ok {
			return errors.NewArgumentErrorf("method", "%s: method '%s' is already declared", s.name, name)
		}
		s.methods[name] = fn
		return nil
	}
}

// Validate adds an object level validation. fn returns full messages.
func Validate(fn func(obj *Object) []string) SchemaOption {
	return func(s *Schema) error {
		s.validations = append(s.validations, fn)
		return nil
	}
}

// WithSettings pins the schema to settings instead of config.Current().
func WithSettings(settings *config.Settings) SchemaOption {
	return func(s *Schema) error {
		if err := settings.Validate(); err != nil {
			return err
		}
		s.settings = settings
		return nil
	}
}

func NewSchema(name string, opts ...SchemaOption) (*Schema, error) {
	if name == "" {
		return nil, errors.NewArgumentError("schema", "name cannot be empty")
	}

	s := &Schema{
		name:       name,
		byInternal: make(map[string]*FieldDef),
		methods:    make(map[string]MethodFunc),
		validator:  validation.New(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	for _, f := range s.fields {
		if len(f.rules) == 0 {
			continue
		}
		if f.optional {
			s.validator.AddWhen(f.Internal, assigned(f.Internal), f.rules...)
		} else {
			s.validator.Add(f.Internal, f.rules...)
		}
	}

	return s, nil
}

func MustSchema(name string, opts ...SchemaOption) *Schema {
	s, err := NewSchema(name, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) Name() string {
	return s.name
}

func (s *Schema) TypeName() string {
	return s.name
}

// Fields returns the declarations in declaration order.
func (s *Schema) Fields() []*FieldDef {
	return append([]*FieldDef(nil), s.fields...)
}

func (s *Schema) Field(internal string) (*FieldDef, bool) {
	f, ok := s.byInternal[internal]
	return f, ok
}

// Settings returns the settings objects are built with.
func (s *Schema) Settings() *config.Settings {
	if s.settings != nil {
		return s.settings
	}
	return config.Current()
}

func (s *Schema) IsInstance(value any) bool {
	obj, ok := value.(*Object)
	return ok && obj.schema == s
}

// Construct builds a nested object. Nested objects are always returned as
// objects; the enclosing object converts them with its own data shape.
func (s *Schema) Construct(ctx context.Context, raw map[string]any) (any, error) {
	return s.New(ctx, raw)
}

// Build constructs an object and returns it, or its data shape when the
// settings return data shapes.
func (s *Schema) Build(ctx context.Context, raw map[string]any) (any, error) {
	obj, err := s.New(ctx, raw)
	if err != nil {
		return nil, err
	}
	if obj.settings.ReturnMode == config.ReturnDataShape {
		return obj.ToDataShape(), nil
	}
	return obj, nil
}

// New builds and validates an object from raw input. Rewritten keys are moved
// to their internal names, every key is assigned through its field, defaults
// fill unset fields, and all validations run. Unknown keys fail with
// UnknownAttributeError unless the schema ignores them; invalid objects fail
// with ValidationError carrying every message.
func (s *Schema) New(ctx context.Context, raw map[string]any) (obj *Object, err error) {
	ctx, span := tracing.StartSpan(ctx, "request.New")
	defer func() {
		tracing.EndSpan(span, err)
		outcome := metrics.OutcomeSuccess
		if err != nil {
			outcome = metrics.OutcomeError
			if errors.IsValidationError(err) {
				outcome = metrics.OutcomeFailure
			}
		}
		metrics.RequestObjectsTotal.WithLabelValues(s.name, outcome).Inc()
	}()

	settings := s.Settings()
	obj = newObject(s, settings)

	input := s.rewrite(raw)

	if err := s.checkUnknown(ctx, settings, input); err != nil {
		return nil, err
	}

	for _, f := range s.fields {
		value, ok := input[f.Internal]
		if !ok {
			continue
		}
		assignedValue, err := f.assign(ctx, value, obj)
		if err != nil {
			return nil, err
		}
		obj.set(f.Internal, assignedValue, true)
	}

	for _, f := range s.fields {
		if obj.Assigned(f.Internal) || !f.hasDefault {
			continue
		}
		value, err := f.coerce(ctx, f.defaultValue())
		if err != nil {
			return nil, err
		}
		obj.set(f.Internal, value, false)
	}

	if messages := s.validate(obj); len(messages) > 0 {
		return nil, errors.NewValidationError(s.name, messages)
	}

	return obj, nil
}

// rewrite copies raw, moving each rewritten field's input key to its
// internal name.
func (s *Schema) rewrite(raw map[string]any) map[string]any {
	input := make(map[string]any, len(raw))
	for key, value := range raw {
		input[key] = value
	}

	for _, f := range s.fields {
		if !f.Rewritten() {
			continue
		}
		if value, ok := input[f.External]; ok {
			input[f.Internal] = value
			delete(input, f.External)
		}
	}

	return input
}

func (s *Schema) checkUnknown(ctx context.Context, settings *config.Settings, input map[string]any) error {
	unknown := ectolinq.Filter(sortedKeys(input), func(key string) bool {
		_, ok := s.byInternal[key]
		return !ok
	})

	for _, key := range unknown {
		if !s.ignoreUnknown {
			return errors.NewUnknownAttributeError(key, s.name)
		}
		settings.LogUnknownAttribute(ctx, key, s.name)
	}
	return nil
}

func (s *Schema) validate(obj *Object) []string {
	messages := s.validator.Errors(obj)
	for _, fn := range s.validations {
		messages = append(messages, fn(obj)...)
	}
	return messages
}

func assigned(field string) func(src validation.Lookup) bool {
	return func(src validation.Lookup) bool {
		obj, ok := src.(*Object)
		return ok && obj.Assigned(field)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
