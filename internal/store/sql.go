package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"

	"github.com/erazemk/assettrack/internal/model"
)

// dialect builds SQLite statements. Datasets are prepared so values travel
// as driver arguments instead of being interpolated.
var dialect = goqu.Dialect("sqlite3")

func selectFrom(table any) *goqu.SelectDataset {
	return dialect.From(table).Prepared(true)
}

func insertInto(table string) *goqu.InsertDataset {
	return dialect.Insert(table).Prepared(true)
}

func update(table string) *goqu.UpdateDataset {
	return dialect.Update(table).Prepared(true)
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sqlBuilder interface {
	ToSQL() (string, []any, error)
}

func exec(ctx context.Context, q queryer, b sqlBuilder) (sql.Result, error) {
	query, args, err := b.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building statement: %w", err)
	}
	return q.ExecContext(ctx, query, args...)
}

func query(ctx context.Context, q queryer, b sqlBuilder) (*sql.Rows, error) {
	query, args, err := b.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	return q.QueryContext(ctx, query, args...)
}

func queryRow(ctx context.Context, q queryer, b sqlBuilder) (*sql.Row, error) {
	query, args, err := b.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	return q.QueryRowContext(ctx, query, args...), nil
}

// withTx runs fn inside a transaction. The transaction is rolled back if fn
// returns an error or panics, and committed otherwise.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func nullableName(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullableID(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	id := ni.Int64
	return &id
}

// idArg and dateArg turn optional values into driver arguments, mapping nil
// to SQL NULL.
func idArg(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func dateArg(d *model.Date) any {
	if d == nil || d.IsZero() {
		return nil
	}
	return d.String()
}
