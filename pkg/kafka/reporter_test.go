package kafka

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sprig/pkg/appctx"
	"github.com/Ramsey-B/sprig/pkg/failure"
	"github.com/Ramsey-B/sprig/pkg/interactor"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func silentLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestReporter(t *testing.T) {
	t.Run("should publish the failure without handling it", func(t *testing.T) {
		writer := &fakeWriter{}
		reporter := NewReporter(writer, "failures", silentLogger())

		ic := interactor.NewContext(nil)
		ic.Fail("payment declined")
		p := failure.NewPayload("create")
		p.Interactor = "Checkout"
		p.Context = ic

		ctx := appctx.SetRequestID(context.Background(), "req-1")
		handled := reporter.HandleFailure(ctx, p)
		assert.False(t, handled)

		require.Len(t, writer.messages, 1)
		msg := writer.messages[0]
		assert.Equal(t, []byte("Checkout"), msg.Key)

		var body FailureMessage
		require.NoError(t, json.Unmarshal(msg.Value, &body))
		assert.Equal(t, p.ID, body.ID)
		assert.Equal(t, "create", body.Action)
		assert.Equal(t, []string{"payment declined"}, body.Errors)
		assert.Equal(t, "req-1", body.RequestID)
		assert.Empty(t, body.Error)
	})

	t.Run("should report write errors from Publish only", func(t *testing.T) {
		writer := &fakeWriter{err: assert.AnError}
		reporter := NewReporter(writer, "failures", silentLogger())
		p := failure.NewPayload("update")
		p.Err = assert.AnError

		assert.ErrorIs(t, reporter.Publish(context.Background(), p), assert.AnError)
		assert.False(t, reporter.HandleFailure(context.Background(), p))
	})

	t.Run("should close the writer", func(t *testing.T) {
		writer := &fakeWriter{}
		require.NoError(t, NewReporter(writer, "failures", silentLogger()).Close())
		assert.True(t, writer.closed)
	})
}
