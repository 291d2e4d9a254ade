package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// StageRow is one row of a Draft or Live table. Values follow the order of
// the field list the row was read with.
type StageRow struct {
	ID         int64
	Version    int64
	Values     []string
	LastEdited string
}

// StageColumns lists ID, Version, the fields and LastEdited in scan order.
func StageColumns(fields []string) []string {
	columns := make([]string, 0, len(fields)+3)
	columns = append(columns, "ID", "Version")
	columns = append(columns, fields...)
	return append(columns, "LastEdited")
}

// ScanStageRow reads a row selected in StageColumns order.
func ScanStageRow(s scanner, fieldCount int) (StageRow, error) {
	var row StageRow
	values := make([]sql.NullString, fieldCount)
	dest := make([]any, 0, fieldCount+3)
	dest = append(dest, &row.ID, &row.Version)
	for i := range values {
		dest = append(dest, &values[i])
	}
	dest = append(dest, &row.LastEdited)
	if err := s.Scan(dest...); err != nil {
		return StageRow{}, err
	}
	row.Values = make([]string, fieldCount)
	for i, v := range values {
		row.Values[i] = v.String
	}
	return row, nil
}

const findStageRow = `SELECT %s FROM %s WHERE "ID" = ?`

func (q *Queries) FindStageRow(ctx context.Context, table string, fields []string, id int64) (StageRow, error) {
	query := fmt.Sprintf(findStageRow, ColumnList("", StageColumns(fields)), QuoteIdent(table))
	return ScanStageRow(q.db.QueryRowContext(ctx, query, id), len(fields))
}

const listStageIDs = `SELECT "ID" FROM %s ORDER BY "ID"`

func (q *Queries) ListStageIDs(ctx context.Context, table string) ([]int64, error) {
	rows, err := q.db.QueryContext(ctx, fmt.Sprintf(listStageIDs, QuoteIdent(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type UpsertStageRowParams struct {
	Table      string
	Fields     []string
	ID         int64
	Version    int64
	Values     []string
	LastEdited string
}

const upsertStageRow = `INSERT INTO %s (%s) VALUES (%s) ON CONFLICT ("ID") DO UPDATE SET %s`

func (q *Queries) UpsertStageRow(ctx context.Context, arg UpsertStageRowParams) error {
	if len(arg.Values) != len(arg.Fields) {
		return fmt.Errorf("upsert %s: %d values for %d fields", arg.Table, len(arg.Values), len(arg.Fields))
	}
	columns := StageColumns(arg.Fields)
	updates := make([]string, 0, len(columns)-1)
	for _, c := range columns[1:] {
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", QuoteIdent(c), QuoteIdent(c)))
	}
	query := fmt.Sprintf(upsertStageRow,
		QuoteIdent(arg.Table),
		ColumnList("", columns),
		placeholders(len(columns)),
		strings.Join(updates, ", "),
	)

	args := make([]any, 0, len(columns))
	args = append(args, arg.ID, arg.Version)
	for _, v := range arg.Values {
		args = append(args, v)
	}
	args = append(args, arg.LastEdited)

	_, err := q.db.ExecContext(ctx, query, args...)
	return err
}

const deleteStageRow = `DELETE FROM %s WHERE "ID" = ?`

func (q *Queries) DeleteStageRow(ctx context.Context, table string, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, fmt.Sprintf(deleteStageRow, QuoteIdent(table)), id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
