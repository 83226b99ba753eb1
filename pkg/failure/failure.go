// Package failure defines the payload passed through a failure handler chain
// and the scoped handler definitions that receive it.
package failure

import (
	"context"

	"github.com/google/uuid"

	"github.com/Ramsey-B/sprig/pkg/errors"
	"github.com/Ramsey-B/sprig/pkg/interactor"
)

// Payload describes one failure event: a request object that could not be
// built, an error raised by an interactor, or a context that reported failure.
type Payload struct {
	ID          string
	Action      string
	Context     *interactor.Context
	Err         error
	Interactor  string
	RequestType string
	Params      map[string]any
	Caller      any

	handled  bool
	response any
	errors   []string
}

func NewPayload(action string) *Payload {
	return &Payload{ID: uuid.NewString(), Action: action}
}

func (p *Payload) Handled() bool {
	return p.handled
}

func (p *Payload) MarkHandled() {
	p.handled = true
}

// Respond stores the value the handler chain produces as the outward result
// and marks the failure handled.
func (p *Payload) Respond(v any) {
	p.response = v
	p.handled = true
}

func (p *Payload) Response() any {
	return p.response
}

// Errors prefers messages carried by the error, then the context's messages,
// then the error text.
func (p *Payload) Errors() []string {
	if p.errors != nil {
		return p.errors
	}

	switch {
	case len(errors.Messages(p.Err)) > 0:
		p.errors = errors.Messages(p.Err)
	case p.Context != nil && len(p.Context.Errors()) > 0:
		p.errors = p.Context.Errors()
	case p.Err != nil:
		p.errors = []string{p.Err.Error()}
	default:
		p.errors = []string{}
	}

	return p.errors
}

// Handler receives a failure. Returning true marks the failure handled.
type Handler interface {
	HandleFailure(ctx context.Context, p *Payload) bool
}

type HandlerFunc func(ctx context.Context, p *Payload) bool

func (f HandlerFunc) HandleFailure(ctx context.Context, p *Payload) bool {
	return f(ctx, p)
}

// Simple adapts a handler that does not need the payload.
type Simple func() bool

func (f Simple) HandleFailure(_ context.Context, _ *Payload) bool {
	return f()
}
