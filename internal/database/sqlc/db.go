package sqldb

import (
	"context"
	"database/sql"
	"strings"
)

// DBTX matches the interface sqlc generates for database access objects.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries wraps a DBTX. Versioned tables share one shape per entity, so the
// statements take their table and field names as arguments instead of being
// generated per table.
type Queries struct {
	db DBTX
}

// New constructs a new Queries helper around the provided DB interface.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a copy of the Queries helper scoped to the supplied transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// DB exposes the underlying handle for ad hoc statements.
func (q *Queries) DB() DBTX {
	return q.db
}

// QuoteIdent double-quotes an identifier. Callers validate names before
// they get here.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QualifiedColumn renders alias.column with both parts quoted.
func QualifiedColumn(alias, column string) string {
	return QuoteIdent(alias) + "." + QuoteIdent(column)
}

// ColumnList renders quoted columns, qualified by alias when it is set.
func ColumnList(alias string, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		if alias == "" {
			quoted[i] = QuoteIdent(c)
		} else {
			quoted[i] = QualifiedColumn(alias, c)
		}
	}
	return strings.Join(quoted, ", ")
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

type scanner interface {
	Scan(dest ...any) error
}
