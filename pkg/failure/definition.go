package failure

import (
	"context"

	"github.com/Gobusters/ectolinq"
)

// Definition is a handler scoped to a set of action names.
type Definition struct {
	Handler Handler
	Only    []string
	Except  []string

	defaults bool
}

// Defaults is a marker that expands to the registered handlers followed by
// the process-wide default handler wherever it appears in a handler list.
var Defaults = Definition{defaults: true}

type ScopeOption func(*Definition)

func Only(actions ...string) ScopeOption {
	return func(d *Definition) {
		d.Only = append(d.Only, actions...)
	}
}

func Except(actions ...string) ScopeOption {
	return func(d *Definition) {
		d.Except = append(d.Except, actions...)
	}
}

func Handle(handler Handler, opts ...ScopeOption) Definition {
	d := Definition{Handler: handler}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func HandleFunc(fn func(ctx context.Context, p *Payload) bool, opts ...ScopeOption) Definition {
	return Handle(HandlerFunc(fn), opts...)
}

func (d Definition) IsDefaults() bool {
	return d.defaults
}

// Applies reports whether the handler is in scope for action.
func (d Definition) Applies(action string) bool {
	if d.Handler == nil {
		return false
	}
	if len(d.Only) > 0 && !ectolinq.Contains(d.Only, action) {
		return false
	}
	if len(d.Except) > 0 && ectolinq.Contains(d.Except, action) {
		return false
	}
	return true
}

// Dispatch invokes every applicable handler in order. There is no early
// exit: a handler marking the failure handled does not stop the chain.
// It returns the number of handlers invoked.
func Dispatch(ctx context.Context, chain []Definition, p *Payload) int {
	invoked := 0
	for _, d := range chain {
		if !d.Applies(p.Action) {
			continue
		}
		invoked++
		if d.Handler.HandleFailure(ctx, p) {
			p.MarkHandled()
		}
	}
	return invoked
}
