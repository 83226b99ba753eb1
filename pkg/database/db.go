package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
)

// Querier is the query surface shared by DB and Tx.
type Querier interface {
	DriverName() string
	Rebind(query string) string
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	QueryxContext(ctx context.Context, query string, args ...any) (*sqlx.Rows, error)
	QueryRowxContext(ctx context.Context, query string, args ...any) *sqlx.Row
}

type DB interface {
	Querier
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	PingContext(ctx context.Context) error
	Close() error
	SetMaxOpenConns(n int)
	Flavor() sqlbuilder.Flavor
	Logger() ectologger.Logger
	GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, Tx, error)
	// Conn returns the transaction carried by ctx, or the DB itself.
	Conn(ctx context.Context) Querier
}

type DatabaseInstance struct {
	*sqlx.DB
	logger ectologger.Logger
	flavor sqlbuilder.Flavor
}

func NewDatabaseInstance(db *sqlx.DB, logger ectologger.Logger) DB {
	return &DatabaseInstance{
		DB:     db,
		logger: logger,
		flavor: FlavorFor(db.DriverName()),
	}
}

// Open connects with driverName and verifies the connection.
func Open(ctx context.Context, driverName, dsn string, logger ectologger.Logger) (DB, error) {
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driverName, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", driverName, err)
	}

	logger.WithContext(ctx).WithFields(map[string]any{"driver": driverName}).Info("connected to database")
	return NewDatabaseInstance(db, logger), nil
}

// FlavorFor maps a database/sql driver name to its SQL flavor.
func FlavorFor(driverName string) sqlbuilder.Flavor {
	switch driverName {
	case "sqlite", "sqlite3":
		return sqlbuilder.SQLite
	case "mysql":
		return sqlbuilder.MySQL
	default:
		return sqlbuilder.PostgreSQL
	}
}

func (db *DatabaseInstance) Flavor() sqlbuilder.Flavor {
	return db.flavor
}

func (db *DatabaseInstance) SQLDB() *sql.DB {
	return db.DB.DB
}

func (db *DatabaseInstance) Logger() ectologger.Logger {
	return db.logger
}

func (db *DatabaseInstance) GetTx(ctx context.Context, opts *sql.TxOptions) (context.Context, Tx, error) {
	return GetTx(ctx, db.logger, db, opts)
}

func (db *DatabaseInstance) Conn(ctx context.Context) Querier {
	if tx := TxFromContext(ctx); tx != nil && tx.IsOpen() {
		return tx
	}
	return db
}
