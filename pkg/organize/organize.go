// Package organize builds request objects from raw parameters, runs an
// interactor with them and routes every failure (invalid input, raised
// errors, failed contexts) through a scoped chain of failure handlers.
package organize

import (
	"context"
	goerrors "errors"
	"fmt"
	"strconv"

	"github.com/Gobusters/ectologger"
	"go.opentelemetry.io/otel/attribute"

	"github.com/Ramsey-B/sprig/config"
	"github.com/Ramsey-B/sprig/pkg/appctx"
	"github.com/Ramsey-B/sprig/pkg/coercion"
	"github.com/Ramsey-B/sprig/pkg/errors"
	"github.com/Ramsey-B/sprig/pkg/failure"
	"github.com/Ramsey-B/sprig/pkg/interactor"
	"github.com/Ramsey-B/sprig/pkg/metrics"
	"github.com/Ramsey-B/sprig/pkg/request"
	"github.com/Ramsey-B/sprig/pkg/tracing"
)

// ErrHandled signals that a handler already dealt with the failure. Rescue
// layers must treat it as a no-op, never as an application error.
var ErrHandled = goerrors.New("failure already handled")

// Defaults expands to the registered handlers followed by the default
// handler of the settings.
var Defaults = failure.Defaults

type Organizer struct {
	settings *config.Settings
	logger   ectologger.Logger
	handlers []failure.Definition
}

type Option func(*Organizer)

func WithSettings(s *config.Settings) Option {
	return func(o *Organizer) {
		o.settings = s
	}
}

func WithLogger(logger ectologger.Logger) Option {
	return func(o *Organizer) {
		o.logger = logger
	}
}

// HandleErrors registers a handler for every Organize call of this organizer.
func HandleErrors(handler failure.Handler, opts ...failure.ScopeOption) Option {
	return func(o *Organizer) {
		o.handlers = append(o.handlers, failure.Handle(handler, opts...))
	}
}

func New(opts ...Option) *Organizer {
	o := &Organizer{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Organizer) Settings() *config.Settings {
	if o.settings != nil {
		return o.settings
	}
	return config.Current()
}

func (o *Organizer) log(ctx context.Context) ectologger.Logger {
	logger := o.logger
	if logger == nil {
		logger = o.Settings().Logger
	}
	if logger == nil {
		logger = ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	}
	return logger.WithContext(ctx)
}

type callConfig struct {
	contextKey   string
	handlers     []failure.Definition
	explicit     bool
	haltOnHandle bool
	abort        bool
	caller       any
	action       *string
}

type CallOption func(*callConfig)

// ContextKey runs the interactor with the built object stored under key
// instead of using its attributes as the context.
func ContextKey(key string) CallOption {
	return func(c *callConfig) {
		c.contextKey = key
	}
}

// Handlers replaces the handler chain for one call. Defaults may appear
// anywhere in the list.
func Handlers(defs ...failure.Definition) CallOption {
	return func(c *callConfig) {
		c.handlers = defs
		c.explicit = true
	}
}

// NoHandlers disables failure handling for one call.
func NoHandlers() CallOption {
	return func(c *callConfig) {
		c.handlers = nil
		c.explicit = true
	}
}

func HaltOnHandle(halt bool) CallOption {
	return func(c *callConfig) {
		c.haltOnHandle = halt
	}
}

// AbortOnHandle makes Organize return ErrHandled after a handled failure when
// halting is on, for callers with a rescue layer such as an echo error
// handler.
func AbortOnHandle() CallOption {
	return func(c *callConfig) {
		c.abort = true
	}
}

// Caller is passed to handlers in the failure payload, e.g. an echo.Context.
func Caller(caller any) CallOption {
	return func(c *callConfig) {
		c.caller = caller
	}
}

// Action overrides the action name read from the context.
func Action(name string) CallOption {
	return func(c *callConfig) {
		c.action = &name
	}
}

// Result is what Organize produced. When Handled is set, Value is the
// response the handler chain stored on the payload, if any, and Errors the
// failure's messages.
type Result struct {
	Context *interactor.Context
	Handled bool
	Value   any
	Errors  []string
}

// Organize builds schema from params, runs runner with it and dispatches
// failures through the handler chain. Unhandled construction and interactor
// errors are returned; a failed context is not an error.
func (o *Organizer) Organize(ctx context.Context, runner interactor.Runner, params map[string]any, schema *request.Schema, opts ...CallOption) (result Result, err error) {
	c := &callConfig{haltOnHandle: true}
	for _, opt := range opts {
		opt(c)
	}

	ctx, span := tracing.StartSpan(ctx, "Organizer.Organize", attribute.String("interactor", runner.Name()))
	defer func() { tracing.EndSpan(span, err) }()

	action := appctx.GetAction(ctx)
	if c.action != nil {
		action = *c.action
	}
	chain := o.chain(c)

	newPayload := func() *failure.Payload {
		p := failure.NewPayload(action)
		p.Interactor = runner.Name()
		p.Params = params
		p.Caller = c.caller
		if schema != nil {
			p.RequestType = schema.Name()
		}
		return p
	}

	built, err := o.build(ctx, schema, params)
	if err != nil {
		p := newPayload()
		p.Err = err
		if o.dispatch(ctx, chain, p) {
			return o.handled(c, Result{Handled: true, Value: p.Response(), Errors: p.Errors()})
		}
		return Result{}, err
	}

	values, err := contextValues(built, c.contextKey)
	if err != nil {
		return Result{}, err
	}

	ic := interactor.NewContext(values)
	if err := run(ctx, runner, ic); err != nil {
		p := newPayload()
		p.Err = err
		p.Context = ic
		if o.dispatch(ctx, chain, p) {
			return o.handled(c, Result{Context: ic, Handled: true, Value: p.Response(), Errors: p.Errors()})
		}
		return Result{Context: ic}, err
	}

	if ic.Failure() {
		p := newPayload()
		p.Context = ic
		if o.dispatch(ctx, chain, p) {
			return o.handled(c, Result{Context: ic, Handled: true, Value: p.Response(), Errors: p.Errors()})
		}
	}

	return Result{Context: ic}, nil
}

func (o *Organizer) handled(c *callConfig, result Result) (Result, error) {
	if c.haltOnHandle && c.abort {
		return result, ErrHandled
	}
	return result, nil
}

// chain resolves the handlers of one call: registered handlers plus the
// default handler, or the explicit list with Defaults expanded in place.
func (o *Organizer) chain(c *callConfig) []failure.Definition {
	defaults := append([]failure.Definition(nil), o.handlers...)
	if h := o.Settings().DefaultHandler; h != nil {
		defaults = append(defaults, failure.Handle(h))
	}

	if !c.explicit {
		return defaults
	}

	chain := make([]failure.Definition, 0, len(c.handlers))
	for _, d := range c.handlers {
		if d.IsDefaults() {
			chain = append(chain, defaults...)
			continue
		}
		chain = append(chain, d)
	}
	return chain
}

func (o *Organizer) dispatch(ctx context.Context, chain []failure.Definition, p *failure.Payload) bool {
	invoked := failure.Dispatch(ctx, chain, p)

	metrics.HandlerInvocationsTotal.WithLabelValues(p.Action).Add(float64(invoked))
	metrics.FailuresDispatchedTotal.WithLabelValues(p.Action, strconv.FormatBool(p.Handled())).Inc()

	log := o.log(ctx).WithFields(map[string]any{
		"failure_id":   p.ID,
		"action":       p.Action,
		"interactor":   p.Interactor,
		"request_type": p.RequestType,
		"handlers":     invoked,
		"handled":      p.Handled(),
	})
	switch {
	case p.Handled():
		log.Debug("Failure handled")
	case p.Err != nil:
		log.WithError(p.Err).Warnf("Unhandled failure: %v", p.Errors())
	default:
		log.Warnf("Unhandled failure: %v", p.Errors())
	}

	return p.Handled()
}

// build constructs the request object. Unknown attributes and validation
// failures are reported as InvalidRequestObject.
func (o *Organizer) build(ctx context.Context, schema *request.Schema, params map[string]any) (any, error) {
	if schema == nil {
		return params, nil
	}

	built, err := schema.Build(ctx, params)
	if err != nil {
		if errors.IsUnknownAttributeError(err) || errors.IsValidationError(err) {
			messages := errors.Messages(err)
			if len(messages) == 0 {
				messages = []string{err.Error()}
			}
			return nil, errors.NewInvalidRequestObject(schema.Name(), messages, err)
		}
		return nil, err
	}
	return built, nil
}

// run calls the runner, turning a panic into an error.
func run(ctx context.Context, runner interactor.Runner, ic *interactor.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = fmt.Errorf("%s panicked: %w", runner.Name(), e)
				return
			}
			err = fmt.Errorf("%s panicked: %v", runner.Name(), r)
		}
	}()
	return runner.Run(ctx, ic)
}

func contextValues(built any, key string) (interactor.Values, error) {
	if key != "" {
		return interactor.Values{key: built}, nil
	}

	switch v := built.(type) {
	case nil:
		return interactor.Values{}, nil
	case *request.Object:
		return v.Attributes(), nil
	case *request.Record:
		return v.ToMap(), nil
	case map[string]any:
		return v, nil
	case map[coercion.Symbol]any:
		values := make(interactor.Values, len(v))
		for k, value := range v {
			values[string(k)] = value
		}
		return values, nil
	}
	return nil, errors.NewArgumentErrorf("organize", "cannot build a context from %T; use ContextKey", built)
}
