package steps

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/Ramsey-B/sprig/pkg/database"
	"github.com/Ramsey-B/sprig/pkg/interactor"
	"github.com/Ramsey-B/sprig/pkg/store"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	raw, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	raw.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = raw.Close() })

	_, err = raw.Exec(`CREATE TABLE orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		buyer_id INTEGER,
		status TEXT NOT NULL,
		note TEXT
	)`)
	require.NoError(t, err)

	s := store.New(database.NewDatabaseInstance(raw, logger), logger)
	require.NoError(t, s.Register(store.Model{
		Name: "order",
		Scopes: map[string]store.Scope{
			"open": func(sb *database.SelectBuilder) {
				sb.Where(sb.Equal("status", "open"))
			},
		},
		Validate: func(r *store.Record) []string {
			if r.Get("status") == "" {
				return []string{"Status can't be blank"}
			}
			return nil
		},
	}))
	return s
}

func createOrder(t *testing.T, s *store.Store, attrs map[string]any) *store.Record {
	t.Helper()
	record, err := s.Create(context.Background(), "order", attrs)
	require.NoError(t, err)
	return record
}

func countOrders(t *testing.T, s *store.Store) int {
	t.Helper()
	records, err := s.FindMany(context.Background(), "order", store.Query{})
	require.NoError(t, err)
	return len(records)
}

func call(t *testing.T, i *interactor.Interactor, values interactor.Values) *interactor.Context {
	t.Helper()
	ic, err := i.Call(context.Background(), values)
	require.NoError(t, err)
	return ic
}
