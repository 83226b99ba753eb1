// Package store persists records of registered models with the database
// package and serves the record lookups, updates and transactions of the
// interactor steps.
package store

import (
	"context"
	"database/sql"
	goerrors "errors"
	"fmt"
	"net/http"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jinzhu/inflection"
	"github.com/jmoiron/sqlx"

	"github.com/Ramsey-B/sprig/pkg/database"
	"github.com/Ramsey-B/sprig/pkg/errors"
	"github.com/Ramsey-B/sprig/pkg/tracing"
)

// Scope narrows a select, e.g. to non-archived rows.
type Scope func(sb *database.SelectBuilder)

// Model describes one table.
type Model struct {
	Name string
	// Table defaults to the plural of Name.
	Table string
	// PrimaryKey defaults to "id".
	PrimaryKey string
	// Columns lists the attributes that may be written or filtered on. When
	// empty, any plain identifier is accepted.
	Columns []string
	Scopes  map[string]Scope
	// Validate returns full messages for an invalid record.
	Validate func(r *Record) []string
}

// Query is a find-many filter. Where and WhereNot combine conjunctively with
// the named scope.
type Query struct {
	Where    map[string]any
	WhereNot map[string]any
	Scope    string
	OrderBy  string
	Limit    int
}

// Repository is the persistence surface used by the interactor steps.
type Repository interface {
	Find(ctx context.Context, model string, id any) (*Record, error)
	FindOne(ctx context.Context, model string, filter map[string]any) (*Record, error)
	FindMany(ctx context.Context, model string, q Query) ([]*Record, error)
	Create(ctx context.Context, model string, attrs map[string]any) (*Record, error)
	Update(ctx context.Context, r *Record, attrs map[string]any) error
	Delete(ctx context.Context, r *Record) error
	Transaction(ctx context.Context, opts database.TxOptions, fn func(ctx context.Context) error) error
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// checkColumns rejects keys that are not columns of m before they reach SQL.
func (m *Model) checkColumns(keys []string) error {
	for _, key := range keys {
		if !identifier.MatchString(key) {
			return errors.NewArgumentErrorf("column", "'%s' is not a valid column name for %s", key, m.Name)
		}
		if len(m.Columns) > 0 && key != m.PrimaryKey && !slices.Contains(m.Columns, key) {
			return errors.NewArgumentErrorf("column", "%s has no column '%s'", m.Name, key)
		}
	}
	return nil
}

type Store struct {
	db     database.DB
	logger ectologger.Logger
	models map[string]*Model
}

func New(db database.DB, logger ectologger.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger,
		models: make(map[string]*Model),
	}
}

// Register adds a model. Registration happens at boot.
func (s *Store) Register(models ...Model) error {
	for _, m := range models {
		if m.Name == "" {
			return errors.NewArgumentError("model", "name cannot be empty")
		}
		if _, ok := s.models[m.Name]; ok {
			return errors.NewArgumentErrorf("model", "model '%s' is already registered", m.Name)
		}
		if m.Table == "" {
			m.Table = inflection.Plural(m.Name)
		}
		if m.PrimaryKey == "" {
			m.PrimaryKey = "id"
		}
		if err := m.checkColumns(append([]string{m.Table, m.PrimaryKey}, m.Columns...)); err != nil {
			return err
		}
		model := m
		s.models[m.Name] = &model
	}
	return nil
}

func (s *Store) Model(name string) (*Model, error) {
	m, ok := s.models[name]
	if !ok {
		return nil, errors.NewArgumentErrorf("model", "model '%s' is not registered", name)
	}
	return m, nil
}

func (s *Store) DB() database.DB {
	return s.db
}

// Find retrieves a record by primary key. It returns nil when none matches.
func (s *Store) Find(ctx context.Context, model string, id any) (*Record, error) {
	m, err := s.Model(model)
	if err != nil {
		return nil, err
	}
	return s.FindOne(ctx, model, map[string]any{m.PrimaryKey: id})
}

// FindOne retrieves the first record matching filter, or nil.
func (s *Store) FindOne(ctx context.Context, model string, filter map[string]any) (*Record, error) {
	records, err := s.FindMany(ctx, model, Query{Where: filter, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// FindMany retrieves every record matching q.
func (s *Store) FindMany(ctx context.Context, model string, q Query) ([]*Record, error) {
	ctx, span := tracing.StartSpan(ctx, "Store.FindMany")
	defer span.End()

	m, err := s.Model(model)
	if err != nil {
		return nil, err
	}

	where, whereNot := sortedKeys(q.Where), sortedKeys(q.WhereNot)
	if err := m.checkColumns(append(where, whereNot...)); err != nil {
		return nil, err
	}
	orderBy := m.PrimaryKey
	if q.OrderBy != "" {
		orderBy = q.OrderBy
		column, direction, _ := strings.Cut(q.OrderBy, " ")
		if err := m.checkColumns([]string{column}); err != nil {
			return nil, err
		}
		if d := strings.ToUpper(strings.TrimSpace(direction)); d != "" && d != "ASC" && d != "DESC" {
			return nil, errors.NewArgumentErrorf("order", "invalid order direction '%s'", direction)
		}
	}

	sb := database.NewSelectBuilder(s.db.Flavor())
	sb.Select("*").From(m.Table)
	sb.WhereEquals(q.Where, where)
	sb.WhereNotEquals(q.WhereNot, whereNot)
	if q.Scope != "" {
		scope, ok := m.Scopes[q.Scope]
		if !ok {
			return nil, errors.NewArgumentErrorf("scope", "model '%s' has no scope '%s'", m.Name, q.Scope)
		}
		scope(sb)
	}
	sb.OrderBy(orderBy)
	if q.Limit > 0 {
		sb.Limit(q.Limit)
	}

	query, args := sb.Build()

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"model": m.Name,
		"scope": q.Scope,
	}).Debug("Finding records")

	rows, err := s.db.Conn(ctx).QueryxContext(ctx, query, args...)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Errorf("Failed to find %s records", m.Name)
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to find %s records", m.Name)
	}
	defer rows.Close()

	records, err := scanRecords(m.Name, rows)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Errorf("Failed to scan %s records", m.Name)
		return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to read %s records", m.Name)
	}

	return records, nil
}

// Create validates and inserts a new record.
func (s *Store) Create(ctx context.Context, model string, attrs map[string]any) (*Record, error) {
	ctx, span := tracing.StartSpan(ctx, "Store.Create")
	defer span.End()

	m, err := s.Model(model)
	if err != nil {
		return nil, err
	}

	if err := m.checkColumns(sortedKeys(attrs)); err != nil {
		return nil, err
	}

	r := NewRecord(m.Name, attrs)
	if err := s.validate(m, r); err != nil {
		return r, err
	}

	columns := sortedKeys(r.attrs)
	values := make([]any, len(columns))
	for i, column := range columns {
		values[i] = r.attrs[column]
	}

	ib := database.NewInsertBuilder(s.db.Flavor()).InsertInto(m.Table).Cols(columns...).Values(values...)

	s.logger.WithContext(ctx).WithFields(map[string]any{"model": m.Name}).Debug("Creating record")

	conn := s.db.Conn(ctx)
	if s.db.Flavor() == sqlbuilder.PostgreSQL {
		query, args := ib.Returning(m.PrimaryKey).Build()
		var id any
		if err := conn.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
			s.logger.WithContext(ctx).WithError(err).Errorf("Failed to create %s", m.Name)
			return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to create %s", m.Name)
		}
		r.attrs[m.PrimaryKey] = normalize(id)
	} else {
		query, args := ib.Build()
		result, err := conn.ExecContext(ctx, query, args...)
		if err != nil {
			s.logger.WithContext(ctx).WithError(err).Errorf("Failed to create %s", m.Name)
			return nil, httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to create %s", m.Name)
		}
		if _, ok := r.attrs[m.PrimaryKey]; !ok {
			id, err := result.LastInsertId()
			if err != nil {
				return nil, fmt.Errorf("failed to read %s id: %w", m.Name, err)
			}
			r.attrs[m.PrimaryKey] = id
		}
	}

	r.persisted = true
	return r, nil
}

// Update assigns attrs to r, validates it and persists the changed columns.
// An invalid record keeps its messages in Errors and fails with
// RecordInvalidError.
func (s *Store) Update(ctx context.Context, r *Record, attrs map[string]any) error {
	ctx, span := tracing.StartSpan(ctx, "Store.Update")
	defer span.End()

	m, err := s.Model(r.model)
	if err != nil {
		return err
	}
	if !r.persisted {
		return httperror.NewHTTPErrorf(http.StatusUnprocessableEntity, "cannot update a %s that is not persisted", m.Name)
	}

	if err := m.checkColumns(sortedKeys(attrs)); err != nil {
		return err
	}

	r.Assign(attrs)
	if err := s.validate(m, r); err != nil {
		return err
	}
	if len(attrs) == 0 {
		return nil
	}

	ub := database.NewUpdateBuilder(s.db.Flavor())
	ub.Update(m.Table)
	columns := sortedKeys(attrs)
	assignments := make([]string, len(columns))
	for i, column := range columns {
		assignments[i] = ub.Assign(column, attrs[column])
	}
	ub.Set(assignments...)
	ub.Where(ub.Equal(m.PrimaryKey, r.attrs[m.PrimaryKey]))

	query, args := ub.Build()

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"model": m.Name,
		"id":    r.attrs[m.PrimaryKey],
	}).Debug("Updating record")

	result, err := s.db.Conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Errorf("Failed to update %s", m.Name)
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to update %s", m.Name)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return httperror.NewHTTPErrorf(http.StatusNotFound, "%s not found", m.Name)
	}

	return nil
}

// Delete removes r and marks it no longer persisted.
func (s *Store) Delete(ctx context.Context, r *Record) error {
	ctx, span := tracing.StartSpan(ctx, "Store.Delete")
	defer span.End()

	m, err := s.Model(r.model)
	if err != nil {
		return err
	}

	db := database.NewDeleteBuilder(s.db.Flavor())
	db.DeleteFrom(m.Table)
	db.Where(db.Equal(m.PrimaryKey, r.attrs[m.PrimaryKey]))

	query, args := db.Build()

	if _, err := s.db.Conn(ctx).ExecContext(ctx, query, args...); err != nil {
		s.logger.WithContext(ctx).WithError(err).Errorf("Failed to delete %s", m.Name)
		return httperror.NewHTTPErrorf(http.StatusInternalServerError, "failed to delete %s", m.Name)
	}

	r.persisted = false
	return nil
}

// Transaction runs fn in a database transaction; see database.RunInTx.
func (s *Store) Transaction(ctx context.Context, opts database.TxOptions, fn func(ctx context.Context) error) error {
	ctx, span := tracing.StartSpan(ctx, "Store.Transaction")
	err := database.RunInTx(ctx, s.db, opts, fn)
	tracing.EndSpan(span, err)
	return err
}

func (s *Store) validate(m *Model, r *Record) error {
	r.errors = nil
	if m.Validate == nil {
		return nil
	}
	if messages := m.Validate(r); len(messages) > 0 {
		r.errors = messages
		return errors.NewRecordInvalidError(m.Name, messages)
	}
	return nil
}

func scanRecords(model string, rows *sqlx.Rows) ([]*Record, error) {
	records := make([]*Record, 0)
	for rows.Next() {
		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}
		for key, value := range row {
			row[key] = normalize(value)
		}
		r := NewRecord(model, row)
		r.persisted = true
		records = append(records, r)
	}
	if err := rows.Err(); err != nil && !goerrors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	return records, nil
}

// normalize turns driver text bytes into strings.
func normalize(value any) any {
	if b, ok := value.([]byte); ok {
		return string(b)
	}
	return value
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
