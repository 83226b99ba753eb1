package interactor

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"github.com/Ramsey-B/sprig/pkg/tracing"
)

// Organizer runs several runners in order against one shared context.
type Organizer struct {
	name    string
	runners []Runner
}

func NewOrganizer(name string, runners ...Runner) *Organizer {
	return &Organizer{name: name, runners: runners}
}

func (o *Organizer) Name() string {
	return o.name
}

func (o *Organizer) Call(ctx context.Context, values Values) (*Context, error) {
	return Call(ctx, o, values)
}

func (o *Organizer) CallStrict(ctx context.Context, values Values) (*Context, error) {
	return CallStrict(ctx, o, values)
}

// Run stops at the first runner that fails or errors, then rolls back the
// runners that already completed, most recent first.
func (o *Organizer) Run(ctx context.Context, ic *Context) (err error) {
	ctx, span := tracing.StartSpan(ctx, "organizer.Run", attribute.String("organizer", o.name))
	defer func() { tracing.EndSpan(span, err) }()

	completed := make([]Runner, 0, len(o.runners))
	for _, runner := range o.runners {
		if err := runner.Run(ctx, ic); err != nil {
			return errors.Join(err, rollback(ctx, ic, completed))
		}
		if ic.Failure() {
			return rollback(ctx, ic, completed)
		}
		completed = append(completed, runner)
	}

	return nil
}

// Rollback rolls back every runner, so organizers can be nested.
func (o *Organizer) Rollback(ctx context.Context, ic *Context) error {
	return rollback(ctx, ic, o.runners)
}

func rollback(ctx context.Context, ic *Context, completed []Runner) error {
	var errs []error
	for idx := len(completed) - 1; idx >= 0; idx-- {
		r, ok := completed[idx].(rollbacker)
		if !ok {
			continue
		}
		if err := r.Rollback(ctx, ic); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
