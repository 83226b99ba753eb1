package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
)

type TxContextKey string

const txKey = TxContextKey("tx-context-key")

// ErrRollback is returned from a transaction func to roll the transaction
// back without reporting an error to the caller.
var ErrRollback = errors.New("rollback")

// ErrRollbackOnly is returned when a joined block failed and the enclosing
// transaction had to be rolled back although its own func succeeded.
var ErrRollbackOnly = errors.New("transaction was marked rollback-only and has been rolled back")

type TxOptions struct {
	Isolation sql.IsolationLevel
	ReadOnly  bool
	// NotJoinable makes blocks nested in this transaction open a savepoint
	// instead of joining it.
	NotJoinable bool
	// RequiresNew opens a savepoint when a transaction is already running.
	RequiresNew bool
}

type Tx interface {
	Querier
	IsOpen() bool
	Joinable() bool
	RollbackOnly() bool
	MarkRollbackOnly()
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Savepoint(ctx context.Context) (string, error)
	RollbackTo(ctx context.Context, name string) error
	Release(ctx context.Context, name string) error
}

// Transaction wraps sqlx.Tx with open/closed tracking, savepoints and a
// rollback-only flag.
type Transaction struct {
	*sqlx.Tx
	logger       ectologger.Logger
	isClosed     bool
	joinable     bool
	rollbackOnly bool
	savepoints   int
}

func NewTx(tx *sqlx.Tx, logger ectologger.Logger, joinable bool) Tx {
	return &Transaction{
		Tx:       tx,
		logger:   logger,
		joinable: joinable,
	}
}

func WithTx(ctx context.Context, tx Tx) context.Context {
	return context.WithValue(ctx, txKey, tx)
}

func TxFromContext(ctx context.Context) Tx {
	tx, _ := ctx.Value(txKey).(Tx)
	return tx
}

// GetTx returns the open transaction carried by ctx, or begins a new one and
// returns a context carrying it. The caller owns commit and rollback of a new
// transaction.
func GetTx(ctx context.Context, logger ectologger.Logger, db DB, opts *sql.TxOptions) (context.Context, Tx, error) {
	if current := TxFromContext(ctx); current != nil && current.IsOpen() {
		return ctx, current, nil
	}

	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Errorf("error while beginning transaction")
		return ctx, nil, fmt.Errorf("error while beginning transaction: %w", err)
	}

	newTx := NewTx(tx, logger, true)
	return WithTx(ctx, newTx), newTx, nil
}

// RunInTx runs fn inside a transaction. Without a running transaction a new
// one is begun and committed when fn succeeds. Inside a joinable transaction
// fn joins it; a failure then marks the outer transaction rollback-only.
// Otherwise, or with RequiresNew, fn runs inside a savepoint that is rolled
// back on failure. Returning ErrRollback rolls back silently.
func RunInTx(ctx context.Context, db DB, opts TxOptions, fn func(ctx context.Context) error) error {
	current := TxFromContext(ctx)
	if current == nil || !current.IsOpen() {
		return runOuter(ctx, db, opts, fn)
	}

	if opts.Isolation != sql.LevelDefault {
		return fmt.Errorf("cannot set isolation level %s on a nested transaction", opts.Isolation)
	}

	if current.Joinable() && !opts.RequiresNew {
		return runJoined(ctx, current, fn)
	}
	return runSavepoint(ctx, current, fn)
}

func runOuter(ctx context.Context, db DB, opts TxOptions, fn func(ctx context.Context) error) (err error) {
	sqlTx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: opts.Isolation, ReadOnly: opts.ReadOnly})
	if err != nil {
		db.Logger().WithContext(ctx).WithError(err).Errorf("error while beginning transaction")
		return fmt.Errorf("error while beginning transaction: %w", err)
	}

	tx := NewTx(sqlTx, db.Logger(), !opts.NotJoinable)
	txCtx := WithTx(ctx, tx)

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
	}()

	fnErr := fn(txCtx)
	if fnErr != nil || tx.RollbackOnly() {
		if err := tx.Rollback(ctx); err != nil {
			return errors.Join(fnErr, err)
		}
		switch {
		case errors.Is(fnErr, ErrRollback):
			return nil
		case fnErr != nil:
			return fnErr
		default:
			return ErrRollbackOnly
		}
	}

	return tx.Commit(ctx)
}

func runJoined(ctx context.Context, tx Tx, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		tx.MarkRollbackOnly()
		if errors.Is(err, ErrRollback) {
			return nil
		}
		return err
	}
	return nil
}

func runSavepoint(ctx context.Context, tx Tx, fn func(ctx context.Context) error) error {
	name, err := tx.Savepoint(ctx)
	if err != nil {
		return err
	}

	if err := fn(ctx); err != nil {
		if rbErr := tx.RollbackTo(ctx, name); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		if errors.Is(err, ErrRollback) {
			return nil
		}
		return err
	}

	return tx.Release(ctx, name)
}

func (t *Transaction) IsOpen() bool {
	return !t.isClosed
}

func (t *Transaction) Joinable() bool {
	return t.joinable
}

func (t *Transaction) RollbackOnly() bool {
	return t.rollbackOnly
}

func (t *Transaction) MarkRollbackOnly() {
	t.rollbackOnly = true
}

func (t *Transaction) Rollback(ctx context.Context) error {
	if t.isClosed {
		return nil
	}

	if err := t.Tx.Rollback(); err != nil {
		t.logger.WithContext(ctx).WithError(err).Errorf("error while rolling back transaction")
		return fmt.Errorf("error while rolling back transaction: %w", err)
	}

	t.isClosed = true
	return nil
}

func (t *Transaction) Commit(ctx context.Context) error {
	if t.isClosed {
		return nil
	}

	if err := t.Tx.Commit(); err != nil {
		t.logger.WithContext(ctx).WithError(err).Errorf("error while committing transaction")
		return fmt.Errorf("error while committing transaction: %w", err)
	}

	t.isClosed = true
	return nil
}

func (t *Transaction) Savepoint(ctx context.Context) (string, error) {
	t.savepoints++
	name := fmt.Sprintf("sprig_sp_%d", t.savepoints)
	if _, err := t.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		t.logger.WithContext(ctx).WithError(err).Errorf("error while creating savepoint %s", name)
		return "", fmt.Errorf("error while creating savepoint: %w", err)
	}
	return name, nil
}

func (t *Transaction) RollbackTo(ctx context.Context, name string) error {
	if _, err := t.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); err != nil {
		t.logger.WithContext(ctx).WithError(err).Errorf("error while rolling back to savepoint %s", name)
		return fmt.Errorf("error while rolling back to savepoint: %w", err)
	}
	return nil
}

func (t *Transaction) Release(ctx context.Context, name string) error {
	if _, err := t.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		t.logger.WithContext(ctx).WithError(err).Errorf("error while releasing savepoint %s", name)
		return fmt.Errorf("error while releasing savepoint: %w", err)
	}
	return nil
}
