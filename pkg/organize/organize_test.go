package organize

import (
	"context"
	goerrors "errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sprig/config"
	"github.com/Ramsey-B/sprig/pkg/appctx"
	"github.com/Ramsey-B/sprig/pkg/errors"
	"github.com/Ramsey-B/sprig/pkg/failure"
	"github.com/Ramsey-B/sprig/pkg/interactor"
	"github.com/Ramsey-B/sprig/pkg/request"
	"github.com/Ramsey-B/sprig/pkg/validation"
)

func testSettings() *config.Settings {
	s := config.Default()
	s.Logger = ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	return s
}

func buyerSchema(t *testing.T) *request.Schema {
	t.Helper()
	schema, err := request.NewSchema("BuyerRequest",
		request.WithSettings(testSettings()),
		request.Field("name", request.Transform("strip"), request.Rules(validation.Presence())),
		request.Field("email", request.Transform("strip", "downcase"), request.Rules(validation.Presence(), validation.Email())),
	)
	require.NoError(t, err)
	return schema
}

func failing(name string) *interactor.Interactor {
	return interactor.MustNew(name, func(_ context.Context, ic *interactor.Context) error {
		ic.Fail("payment declined")
		return nil
	})
}

func recorder(calls *[]string, name string, handled bool) failure.Handler {
	return failure.HandlerFunc(func(_ context.Context, _ *failure.Payload) bool {
		*calls = append(*calls, name)
		return handled
	})
}

var validParams = map[string]any{"name": "  Jane  ", "email": "  JANE@X.COM  "}

func TestOrganize(t *testing.T) {
	t.Run("should call only the handlers scoped to the action, in order", func(t *testing.T) {
		var calls []string
		o := New(
			WithSettings(testSettings()),
			HandleErrors(recorder(&calls, "A", false), failure.Only("create")),
			HandleErrors(recorder(&calls, "B", false)),
		)
		schema := buyerSchema(t)

		ctx := appctx.SetAction(context.Background(), "update")
		result, err := o.Organize(ctx, failing("Checkout"), validParams, schema)
		require.NoError(t, err)
		assert.True(t, result.Context.Failure())
		assert.False(t, result.Handled)
		assert.Equal(t, []string{"B"}, calls)

		calls = nil
		ctx = appctx.SetAction(context.Background(), "create")
		_, err = o.Organize(ctx, failing("Checkout"), validParams, schema)
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B"}, calls)
	})

	t.Run("should run the interactor with the built object's attributes", func(t *testing.T) {
		var seen interactor.Values
		i := interactor.MustNew("Checkout", func(_ context.Context, ic *interactor.Context) error {
			seen = ic.Values()
			return nil
		})

		result, err := New(WithSettings(testSettings())).Organize(context.Background(), i, validParams, buyerSchema(t))
		require.NoError(t, err)
		assert.True(t, result.Context.Success())
		assert.Equal(t, interactor.Values{"name": "Jane", "email": "jane@x.com"}, seen)
	})

	t.Run("should store the built object under the context key", func(t *testing.T) {
		i := interactor.MustNew("Checkout", nil)

		result, err := New(WithSettings(testSettings())).Organize(context.Background(), i, validParams, buyerSchema(t), ContextKey("buyer"))
		require.NoError(t, err)
		obj, ok := result.Context.Get("buyer").(*request.Object)
		require.True(t, ok)
		assert.Equal(t, "Jane", obj.Get("name"))
	})

	t.Run("should wrap invalid input and return it when unhandled", func(t *testing.T) {
		var payloads []*failure.Payload
		o := New(WithSettings(testSettings()), HandleErrors(failure.HandlerFunc(func(_ context.Context, p *failure.Payload) bool {
			payloads = append(payloads, p)
			return false
		})))

		_, err := o.Organize(context.Background(), failing("Checkout"), map[string]any{"name": "", "email": "nope"}, buyerSchema(t))
		require.Error(t, err)
		assert.True(t, errors.IsInvalidRequestObject(err))
		assert.True(t, errors.IsValidationError(err))
		assert.Equal(t, []string{"Name can't be blank", "Email is invalid"}, errors.Messages(err))

		require.Len(t, payloads, 1)
		assert.Equal(t, "BuyerRequest", payloads[0].RequestType)
		assert.Equal(t, "Checkout", payloads[0].Interactor)
		assert.Equal(t, []string{"Name can't be blank", "Email is invalid"}, payloads[0].Errors())
	})

	t.Run("should wrap unknown attributes", func(t *testing.T) {
		o := New(WithSettings(testSettings()))
		params := map[string]any{"name": "Jane", "email": "jane@x.com", "admin": true}

		_, err := o.Organize(context.Background(), failing("Checkout"), params, buyerSchema(t))
		assert.True(t, errors.IsInvalidRequestObject(err))
		assert.True(t, errors.IsUnknownAttributeError(err))
	})

	t.Run("should return the handler response when handled", func(t *testing.T) {
		o := New(WithSettings(testSettings()), HandleErrors(failure.HandlerFunc(func(_ context.Context, p *failure.Payload) bool {
			p.Respond(map[string]any{"errors": p.Errors()})
			return false
		})))

		result, err := o.Organize(context.Background(), failing("Checkout"), validParams, buyerSchema(t))
		require.NoError(t, err)
		assert.True(t, result.Handled)
		assert.Equal(t, map[string]any{"errors": []string{"payment declined"}}, result.Value)
	})

	t.Run("should signal handled failures only to callers that abort", func(t *testing.T) {
		var calls []string
		o := New(WithSettings(testSettings()), HandleErrors(recorder(&calls, "A", true)))

		result, err := o.Organize(context.Background(), failing("Checkout"), validParams, buyerSchema(t), AbortOnHandle())
		assert.ErrorIs(t, err, ErrHandled)
		assert.True(t, result.Handled)

		_, err = o.Organize(context.Background(), failing("Checkout"), validParams, buyerSchema(t), AbortOnHandle(), HaltOnHandle(false))
		assert.NoError(t, err)
	})

	t.Run("should dispatch and return raised errors", func(t *testing.T) {
		boom := goerrors.New("boom")
		var seen error
		o := New(WithSettings(testSettings()), HandleErrors(failure.HandlerFunc(func(_ context.Context, p *failure.Payload) bool {
			seen = p.Err
			return false
		})))
		i := interactor.MustNew("Checkout", func(context.Context, *interactor.Context) error { return boom })

		_, err := o.Organize(context.Background(), i, validParams, buyerSchema(t))
		assert.ErrorIs(t, err, boom)
		assert.ErrorIs(t, seen, boom)
	})

	t.Run("should recover panics as errors", func(t *testing.T) {
		i := interactor.MustNew("Checkout", func(context.Context, *interactor.Context) error { panic("nil total") })

		_, err := New(WithSettings(testSettings())).Organize(context.Background(), i, validParams, buyerSchema(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nil total")
	})

	t.Run("should expand the defaults marker in place", func(t *testing.T) {
		var calls []string
		settings := testSettings()
		settings.DefaultHandler = recorder(&calls, "default", false)
		o := New(WithSettings(settings), HandleErrors(recorder(&calls, "registered", false)))

		_, err := o.Organize(context.Background(), failing("Checkout"), validParams, buyerSchema(t), Handlers(
			failure.Handle(recorder(&calls, "first", false)),
			Defaults,
			failure.Handle(recorder(&calls, "last", false)),
		))
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "registered", "default", "last"}, calls)

		calls = nil
		_, err = o.Organize(context.Background(), failing("Checkout"), validParams, buyerSchema(t))
		require.NoError(t, err)
		assert.Equal(t, []string{"registered", "default"}, calls)

		calls = nil
		_, err = o.Organize(context.Background(), failing("Checkout"), validParams, buyerSchema(t), NoHandlers())
		require.NoError(t, err)
		assert.Empty(t, calls)
	})

	t.Run("should use the action override", func(t *testing.T) {
		var calls []string
		o := New(WithSettings(testSettings()), HandleErrors(recorder(&calls, "A", false), failure.Except("destroy")))

		_, err := o.Organize(context.Background(), failing("Checkout"), validParams, buyerSchema(t), Action("destroy"))
		require.NoError(t, err)
		assert.Empty(t, calls)
	})

	t.Run("should pass raw params through without a schema", func(t *testing.T) {
		i := interactor.MustNew("Checkout", nil)

		result, err := New(WithSettings(testSettings())).Organize(context.Background(), i, map[string]any{"id": 1}, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Context.Get("id"))
	})
}
