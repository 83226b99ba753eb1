package steps

import (
	"context"
	"database/sql"

	"github.com/Ramsey-B/sprig/pkg/database"
	"github.com/Ramsey-B/sprig/pkg/interactor"
	"github.com/Ramsey-B/sprig/pkg/store"
)

type TxOption func(*database.TxOptions)

func Isolation(level sql.IsolationLevel) TxOption {
	return func(o *database.TxOptions) {
		o.Isolation = level
	}
}

// NotJoinable makes blocks nested inside this transaction open savepoints
// instead of joining it.
func NotJoinable() TxOption {
	return func(o *database.TxOptions) {
		o.NotJoinable = true
	}
}

// RequiresNew opens a savepoint when a transaction is already running.
func RequiresNew() TxOption {
	return func(o *database.TxOptions) {
		o.RequiresNew = true
	}
}

// Transaction wraps the interactor in a database transaction. A failed context
// rolls the transaction back; the context keeps its failure and messages.
func Transaction(repo store.Repository, opts ...TxOption) interactor.Step {
	return interactor.StepFunc(func(b *interactor.Builder) error {
		txOpts := database.TxOptions{}
		for _, opt := range opts {
			opt(&txOpts)
		}

		b.Around(func(ctx context.Context, ic *interactor.Context, next interactor.Next) error {
			return repo.Transaction(ctx, txOpts, func(ctx context.Context) error {
				if err := next(ctx); err != nil {
					return err
				}
				if ic.Failure() {
					return database.ErrRollback
				}
				return nil
			})
		})
		return nil
	})
}
