package request

import (
	"context"
	goerrors "errors"
	"fmt"

	"github.com/Ramsey-B/sprig/pkg/coercion"
	"github.com/Ramsey-B/sprig/pkg/errors"
	"github.com/Ramsey-B/sprig/pkg/transform"
	"github.com/Ramsey-B/sprig/pkg/validation"
)

// FieldDef is one declared attribute of a schema.
type FieldDef struct {
	External string
	Internal string

	typ        coercion.Type
	array      bool
	def        any
	hasDefault bool
	defFunc    func() any
	transforms []any
	pipeline   transform.Pipeline
	rules      []validation.Rule
	optional   bool
}

type FieldOption func(f *FieldDef) error

// Rewrite stores the attribute under internal instead of its input name.
func Rewrite(internal string) FieldOption {
	return func(f *FieldDef) error {
		if internal == "" {
			return errors.NewArgumentError("rewrite", "internal name cannot be empty")
		}
		f.Internal = internal
		return nil
	}
}

func Type(t coercion.Type) FieldOption {
	return func(f *FieldDef) error {
		f.typ = t
		return nil
	}
}

// TypeName sets a scalar type from the registry by name, e.g. "integer".
func TypeName(name string) FieldOption {
	return func(f *FieldDef) error {
		t, err := coercion.Scalar(name)
		if err != nil {
			return err
		}
		f.typ = t
		return nil
	}
}

// Nested declares the attribute as a nested request object.
func Nested(schema *Schema) FieldOption {
	return Type(coercion.Object(schema))
}

// Array applies the type to every element of the input instead of the
// input itself.
func Array() FieldOption {
	return func(f *FieldDef) error {
		f.array = true
		return nil
	}
}

func Default(value any) FieldOption {
	return func(f *FieldDef) error {
		f.def = value
		f.hasDefault = true
		return nil
	}
}

// DefaultFunc computes the default for each new object.
func DefaultFunc(fn func() any) FieldOption {
	return func(f *FieldDef) error {
		f.defFunc = fn
		f.hasDefault = true
		return nil
	}
}

// Transform appends ops to the pipeline run before coercion. Strings name
// methods; see transform.Ops for the accepted forms.
func Transform(ops ...any) FieldOption {
	return func(f *FieldDef) error {
		if len(ops) == 0 {
			return errors.NewArgumentError("transform", "at least one op is required")
		}
		f.transforms = append(f.transforms, ops...)
		return nil
	}
}

// Rules validates the attribute after assignment.
func Rules(rules ...validation.Rule) FieldOption {
	return func(f *FieldDef) error {
		f.rules = append(f.rules, rules...)
		return nil
	}
}

// Optional applies the field's rules only when the input provided it.
func Optional() FieldOption {
	return func(f *FieldDef) error {
		f.optional = true
		return nil
	}
}

func newFieldDef(name string, opts []FieldOption) (*FieldDef, error) {
	if name == "" {
		return nil, errors.NewArgumentError("field", "name cannot be empty")
	}

	f := &FieldDef{External: name, Internal: name, typ: coercion.None()}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}

	if len(f.transforms) > 0 {
		pipeline, err := transform.Ops(f.transforms...)
		if err != nil {
			return nil, err
		}
		f.pipeline = pipeline
	}

	return f, nil
}

func (f *FieldDef) Type() coercion.Type {
	return f.typ
}

func (f *FieldDef) IsArray() bool {
	return f.array
}

func (f *FieldDef) Rewritten() bool {
	return f.External != f.Internal
}

// assign runs the transform pipeline, then coercion. nil skips the pipeline.
func (f *FieldDef) assign(ctx context.Context, value any, obj *Object) (any, error) {
	if value != nil && len(f.pipeline) > 0 {
		transformed, err := transform.Apply(f.Internal, value, f.pipeline, obj)
		if err != nil {
			return nil, err
		}
		value = transformed
	}
	return f.coerce(ctx, value)
}

func (f *FieldDef) coerce(ctx context.Context, value any) (any, error) {
	if f.typ.IsNone() && !f.array {
		return value, nil
	}

	var (
		result any
		err    error
	)
	if f.array {
		result, err = coercion.CoerceEach(ctx, value, f.typ)
	} else {
		result, err = coercion.Coerce(ctx, value, f.typ)
	}
	if err != nil {
		return nil, f.scopeError(err)
	}
	return result, nil
}

// scopeError names the field on coercion errors raised for it. Errors from
// nested objects already describe their own fields.
func (f *FieldDef) scopeError(err error) error {
	if f.typ.Kind() == coercion.KindObject {
		return err
	}
	var tce *errors.TypeCoercionError
	if goerrors.As(err, &tce) && tce.Field == "" {
		tce.AddField(f.Internal)
	}
	return err
}

func (f *FieldDef) defaultValue() any {
	if f.defFunc != nil {
		return f.defFunc()
	}
	return f.def
}

func (f *FieldDef) String() string {
	if f.Rewritten() {
		return fmt.Sprintf("%s->%s", f.External, f.Internal)
	}
	return f.External
}
