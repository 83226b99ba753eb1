package interactor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Ramsey-B/sprig/pkg/metrics"
	"github.com/Ramsey-B/sprig/pkg/tracing"
)

type (
	Hook         func(ctx context.Context, ic *Context) error
	Next         func(ctx context.Context) error
	AroundHook   func(ctx context.Context, ic *Context, next Next) error
	PerformFunc  func(ctx context.Context, ic *Context) error
	RollbackFunc func(ctx context.Context, ic *Context) error
)

// ErrFailure is matched by the error CallStrict returns for a failed context.
var ErrFailure = errors.New("interactor failed")

type FailureError struct {
	Interactor string
	Messages   []string
}

func (e *FailureError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Interactor, strings.Join(e.Messages, ", "))
}

func (e *FailureError) Is(target error) bool {
	return target == ErrFailure
}

func (e *FailureError) ErrorMessages() []string {
	return e.Messages
}

// Runner is anything that can execute against a shared Context: an
// Interactor or an Organizer.
type Runner interface {
	Name() string
	Run(ctx context.Context, ic *Context) error
}

type rollbacker interface {
	Rollback(ctx context.Context, ic *Context) error
}

type Interactor struct {
	name     string
	perform  PerformFunc
	before   []Hook
	after    []Hook
	around   []AroundHook
	methods  map[string]MethodFunc
	state    []string
	rollback RollbackFunc
}

// New assembles an interactor from its steps. Steps register their hooks in
// the order they are given.
func New(name string, perform PerformFunc, steps ...Step) (*Interactor, error) {
	b := newBuilder(name)
	for _, step := range steps {
		if step == nil {
			continue
		}
		if err := step.Register(b); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}

	return &Interactor{
		name:     name,
		perform:  perform,
		before:   b.before,
		after:    b.after,
		around:   b.around,
		methods:  b.methods,
		state:    b.state,
		rollback: b.rollback,
	}, nil
}

func MustNew(name string, perform PerformFunc, steps ...Step) *Interactor {
	i, err := New(name, perform, steps...)
	if err != nil {
		panic(err)
	}
	return i
}

func (i *Interactor) Name() string {
	return i.name
}

// State returns the context keys declared through steps such as Required.
func (i *Interactor) State() []string {
	return append([]string(nil), i.state...)
}

func (i *Interactor) Call(ctx context.Context, values Values) (*Context, error) {
	return Call(ctx, i, values)
}

func (i *Interactor) CallStrict(ctx context.Context, values Values) (*Context, error) {
	return CallStrict(ctx, i, values)
}

// Run executes the hook pipeline against ic. Around hooks wrap the before
// hooks, perform and the after hooks; the first declared is outermost.
func (i *Interactor) Run(ctx context.Context, ic *Context) (err error) {
	defer ic.bind(i.methods)()

	ctx, span := tracing.StartSpan(ctx, "interactor.Run", attribute.String("interactor", i.name))
	start := time.Now()
	defer func() {
		metrics.InteractorDuration.WithLabelValues(i.name).Observe(time.Since(start).Seconds())
		metrics.InteractorCallsTotal.WithLabelValues(i.name, outcome(ic, err)).Inc()
		tracing.EndSpan(span, err)
	}()

	next := func(ctx context.Context) error {
		return i.runBody(ctx, ic)
	}
	for idx := len(i.around) - 1; idx >= 0; idx-- {
		hook, inner := i.around[idx], next
		next = func(ctx context.Context) error {
			if ic.Failure() {
				return nil
			}
			return hook(ctx, ic, inner)
		}
	}

	return next(ctx)
}

func (i *Interactor) runBody(ctx context.Context, ic *Context) error {
	for _, hook := range i.before {
		if err := hook(ctx, ic); err != nil {
			return err
		}
		if ic.Failure() {
			return nil
		}
	}

	if i.perform != nil {
		if err := i.perform(ctx, ic); err != nil {
			return err
		}
		if ic.Failure() {
			return nil
		}
	}

	for _, hook := range i.after {
		if err := hook(ctx, ic); err != nil {
			return err
		}
		if ic.Failure() {
			return nil
		}
	}

	return nil
}

// Rollback undoes the interactor's work after a later interactor in an
// organizer failed.
func (i *Interactor) Rollback(ctx context.Context, ic *Context) error {
	if i.rollback == nil {
		return nil
	}
	defer ic.bind(i.methods)()
	return i.rollback(ctx, ic)
}

// Call runs r against a fresh context built from values. A failed context is
// not an error; only errors raised by hooks are returned.
func Call(ctx context.Context, r Runner, values Values) (*Context, error) {
	ic := NewContext(values)
	err := r.Run(ctx, ic)
	return ic, err
}

// CallStrict is Call, but a failed context is reported as a *FailureError.
func CallStrict(ctx context.Context, r Runner, values Values) (*Context, error) {
	ic, err := Call(ctx, r, values)
	if err != nil {
		return ic, err
	}
	if ic.Failure() {
		return ic, &FailureError{Interactor: r.Name(), Messages: ic.Errors()}
	}
	return ic, nil
}

func outcome(ic *Context, err error) string {
	switch {
	case err != nil:
		return metrics.OutcomeError
	case ic.Failure():
		return metrics.OutcomeFailure
	default:
		return metrics.OutcomeSuccess
	}
}
