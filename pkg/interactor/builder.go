package interactor

import (
	"fmt"

	"github.com/Gobusters/ectolinq"
)

// Step is one declaration in an interactor definition. Register appends the
// step's hooks to the builder.
type Step interface {
	Register(b *Builder) error
}

type StepFunc func(b *Builder) error

func (f StepFunc) Register(b *Builder) error {
	return f(b)
}

// Builder collects the ordered hooks of one interactor definition.
type Builder struct {
	name     string
	before   []Hook
	after    []Hook
	around   []AroundHook
	methods  map[string]MethodFunc
	state    []string
	rollback RollbackFunc
	shared   map[string]any
}

func newBuilder(name string) *Builder {
	return &Builder{
		name:    name,
		methods: make(map[string]MethodFunc),
		shared:  make(map[string]any),
	}
}

func (b *Builder) Name() string {
	return b.name
}

func (b *Builder) Before(hook Hook) {
	b.before = append(b.before, hook)
}

func (b *Builder) After(hook Hook) {
	b.after = append(b.after, hook)
}

func (b *Builder) Around(hook AroundHook) {
	b.around = append(b.around, hook)
}

func (b *Builder) Method(name string, fn MethodFunc) error {
	if _, ok := b.methods[name]; ok {
		return fmt.Errorf("method '%s' is already defined", name)
	}
	b.methods[name] = fn
	return nil
}

func (b *Builder) HasMethod(name string) bool {
	_, ok := b.methods[name]
	return ok
}

// State declares context-backed keys. Declaring a key twice is a no-op.
func (b *Builder) State(keys ...string) {
	for _, key := range keys {
		if !ectolinq.Contains(b.state, key) {
			b.state = append(b.state, key)
		}
	}
}

// Shared returns the value stored under key for this definition, creating it
// with init on first use. The second result is true when init ran.
func (b *Builder) Shared(key string, init func() any) (any, bool) {
	if v, ok := b.shared[key]; ok {
		return v, false
	}
	v := init()
	b.shared[key] = v
	return v, true
}

func (b *Builder) Rollback(fn RollbackFunc) {
	b.rollback = fn
}

// Before registers a pre-execution hook.
func Before(hook Hook) Step {
	return StepFunc(func(b *Builder) error {
		b.Before(hook)
		return nil
	})
}

// After registers a post-execution hook.
func After(hook Hook) Step {
	return StepFunc(func(b *Builder) error {
		b.After(hook)
		return nil
	})
}

// Around registers a wrapping hook.
func Around(hook AroundHook) Step {
	return StepFunc(func(b *Builder) error {
		b.Around(hook)
		return nil
	})
}

// Method exposes a named method to the interactor's steps.
func Method(name string, fn MethodFunc) Step {
	return StepFunc(func(b *Builder) error {
		return b.Method(name, fn)
	})
}

// WithRollback sets the function an organizer calls to undo this
// interactor's work when a later interactor fails.
func WithRollback(fn RollbackFunc) Step {
	return StepFunc(func(b *Builder) error {
		b.Rollback(fn)
		return nil
	})
}
