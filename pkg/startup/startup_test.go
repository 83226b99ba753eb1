package startup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func silent() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func recording(events *[]string, name string, requires ...string) Func {
	return Func{
		ID:       name,
		Requires: requires,
		OnStart:  func(context.Context) error { *events = append(*events, "start "+name); return nil },
		OnStop:   func(context.Context) error { *events = append(*events, "stop "+name); return nil },
	}
}

func TestStartup(t *testing.T) {
	t.Run("should start dependencies first and stop them last", func(t *testing.T) {
		var events []string
		s := New(silent(), 1)
		s.Add(recording(&events, "http", "store"), recording(&events, "store", "db"), recording(&events, "db"))

		require.NoError(t, s.Start(context.Background()))
		assert.Equal(t, []string{"start db", "start store", "start http"}, events)
		assert.Equal(t, StatusStarted, s.Status("http"))

		events = nil
		require.NoError(t, s.Stop(context.Background()))
		assert.Equal(t, []string{"stop http", "stop store", "stop db"}, events)
	})

	t.Run("should retry failed dependencies", func(t *testing.T) {
		attempts := 0
		s := New(silent(), 3)
		s.backoff = time.Millisecond
		s.Add(Func{ID: "db", OnStart: func(context.Context) error {
			attempts++
			if attempts < 3 {
				return errors.New("connection refused")
			}
			return nil
		}})

		require.NoError(t, s.Start(context.Background()))
		assert.Equal(t, 3, attempts)
	})

	t.Run("should give up after the last attempt", func(t *testing.T) {
		s := New(silent(), 2)
		s.backoff = time.Millisecond
		s.Add(Func{ID: "db", OnStart: func(context.Context) error { return assert.AnError }})

		err := s.Start(context.Background())
		assert.ErrorIs(t, err, assert.AnError)
		assert.Equal(t, StatusFailed, s.Status("db"))
	})

	t.Run("should report cycles and unknown dependencies", func(t *testing.T) {
		s := New(silent(), 1)
		s.Add(Func{ID: "a", Requires: []string{"b"}}, Func{ID: "b", Requires: []string{"a"}})
		assert.ErrorContains(t, s.Start(context.Background()), "dependency cycle")

		s = New(silent(), 1)
		s.Add(Func{ID: "a", Requires: []string{"missing"}})
		assert.ErrorContains(t, s.Start(context.Background()), "unknown dependency 'missing'")
	})
}
