package database

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newTestDB(t *testing.T) DB {
	t.Helper()
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	raw, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	raw.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = raw.Close() })

	_, err = raw.Exec(`CREATE TABLE notes (id INTEGER PRIMARY KEY AUTOINCREMENT, body TEXT NOT NULL)`)
	require.NoError(t, err)

	return NewDatabaseInstance(raw, logger)
}

func insertNote(ctx context.Context, db DB, body string) error {
	sql, args := NewInsertBuilder(db.Flavor()).InsertInto("notes").Cols("body").Values(body).Build()
	_, err := db.Conn(ctx).ExecContext(ctx, sql, args...)
	return err
}

func countNotes(t *testing.T, db DB) int {
	t.Helper()
	var count int
	require.NoError(t, db.GetContext(context.Background(), &count, "SELECT COUNT(*) FROM notes"))
	return count
}

func TestRunInTx(t *testing.T) {
	ctx := context.Background()

	t.Run("should commit when the func succeeds", func(t *testing.T) {
		db := newTestDB(t)
		err := RunInTx(ctx, db, TxOptions{}, func(ctx context.Context) error {
			return insertNote(ctx, db, "kept")
		})
		require.NoError(t, err)
		assert.Equal(t, 1, countNotes(t, db))
	})

	t.Run("should roll back silently on ErrRollback", func(t *testing.T) {
		db := newTestDB(t)
		err := RunInTx(ctx, db, TxOptions{}, func(ctx context.Context) error {
			require.NoError(t, insertNote(ctx, db, "discarded"))
			return ErrRollback
		})
		require.NoError(t, err)
		assert.Equal(t, 0, countNotes(t, db))
	})

	t.Run("should roll back and return other errors", func(t *testing.T) {
		db := newTestDB(t)
		boom := errors.New("boom")
		err := RunInTx(ctx, db, TxOptions{}, func(ctx context.Context) error {
			require.NoError(t, insertNote(ctx, db, "discarded"))
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 0, countNotes(t, db))
	})

	t.Run("should mark the outer transaction rollback-only when a joined block fails", func(t *testing.T) {
		db := newTestDB(t)
		err := RunInTx(ctx, db, TxOptions{}, func(ctx context.Context) error {
			require.NoError(t, insertNote(ctx, db, "outer"))
			return RunInTx(ctx, db, TxOptions{}, func(ctx context.Context) error {
				require.NoError(t, insertNote(ctx, db, "inner"))
				return ErrRollback
			})
		})
		assert.ErrorIs(t, err, ErrRollbackOnly)
		assert.Equal(t, 0, countNotes(t, db))
	})

	t.Run("should only undo the savepoint when a new transaction is required", func(t *testing.T) {
		db := newTestDB(t)
		err := RunInTx(ctx, db, TxOptions{}, func(ctx context.Context) error {
			require.NoError(t, insertNote(ctx, db, "outer"))
			return RunInTx(ctx, db, TxOptions{RequiresNew: true}, func(ctx context.Context) error {
				require.NoError(t, insertNote(ctx, db, "inner"))
				return ErrRollback
			})
		})
		require.NoError(t, err)
		assert.Equal(t, 1, countNotes(t, db))
	})

	t.Run("should open savepoints inside non-joinable transactions", func(t *testing.T) {
		db := newTestDB(t)
		err := RunInTx(ctx, db, TxOptions{NotJoinable: true}, func(ctx context.Context) error {
			require.NoError(t, insertNote(ctx, db, "outer"))
			return RunInTx(ctx, db, TxOptions{}, func(ctx context.Context) error {
				require.NoError(t, insertNote(ctx, db, "inner"))
				return ErrRollback
			})
		})
		require.NoError(t, err)
		assert.Equal(t, 1, countNotes(t, db))
	})

	t.Run("should reject isolation levels on nested transactions", func(t *testing.T) {
		db := newTestDB(t)
		err := RunInTx(ctx, db, TxOptions{}, func(ctx context.Context) error {
			return RunInTx(ctx, db, TxOptions{Isolation: 6}, func(ctx context.Context) error { return nil })
		})
		assert.Error(t, err)
	})

	t.Run("should roll back and re-panic", func(t *testing.T) {
		db := newTestDB(t)
		assert.Panics(t, func() {
			_ = RunInTx(ctx, db, TxOptions{}, func(ctx context.Context) error {
				require.NoError(t, insertNote(ctx, db, "discarded"))
				panic("boom")
			})
		})
		assert.Equal(t, 0, countNotes(t, db))
	})
}

func TestGetTx(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	txCtx, tx, err := db.GetTx(ctx, nil)
	require.NoError(t, err)

	sameCtx, same, err := db.GetTx(txCtx, nil)
	require.NoError(t, err)
	assert.Same(t, tx, same)
	assert.Equal(t, txCtx, sameCtx)
	assert.Equal(t, tx, db.Conn(txCtx))

	require.NoError(t, tx.Commit(ctx))
	assert.False(t, tx.IsOpen())
	assert.Equal(t, db, db.Conn(txCtx))
}

func TestFlavorFor(t *testing.T) {
	assert.Equal(t, sqlbuilder.SQLite, FlavorFor("sqlite"))
	assert.Equal(t, sqlbuilder.PostgreSQL, FlavorFor("postgres"))
	assert.Equal(t, sqlbuilder.MySQL, FlavorFor("mysql"))
}

func TestSelectBuilder(t *testing.T) {
	sb := NewSelectBuilder(sqlbuilder.PostgreSQL)
	sb.Select("*").From("orders")
	sb.WhereEquals(map[string]any{"status": "open", "deleted_at": nil}, []string{"deleted_at", "status"})
	sb.WhereNotEquals(map[string]any{"buyer_id": 3}, []string{"buyer_id"})

	sql, args := sb.Build()
	assert.Equal(t, "SELECT * FROM orders WHERE deleted_at IS NULL AND status = $1 AND NOT (buyer_id = $2)", sql)
	assert.Equal(t, []any{"open", 3}, args)
}
