package sqldb

import (
	"context"
	"database/sql"
	"fmt"
)

// VersionRow is one row of a _Versions table.
type VersionRow struct {
	RecordID     int64
	Version      int64
	WasDraft     bool
	WasPublished bool
	WasDeleted   bool
	Values       []string
	LastEdited   string
}

func versionColumns(fields []string) []string {
	columns := make([]string, 0, len(fields)+6)
	columns = append(columns, "RecordID", "Version", "WasDraft", "WasPublished", "WasDeleted")
	columns = append(columns, fields...)
	return append(columns, "LastEdited")
}

func scanVersionRow(s scanner, fieldCount int) (VersionRow, error) {
	var (
		row                         VersionRow
		wasDraft, wasPub, wasDelete int64
	)
	values := make([]sql.NullString, fieldCount)
	dest := make([]any, 0, fieldCount+6)
	dest = append(dest, &row.RecordID, &row.Version, &wasDraft, &wasPub, &wasDelete)
	for i := range values {
		dest = append(dest, &values[i])
	}
	dest = append(dest, &row.LastEdited)
	if err := s.Scan(dest...); err != nil {
		return VersionRow{}, err
	}
	row.WasDraft = wasDraft != 0
	row.WasPublished = wasPub != 0
	row.WasDeleted = wasDelete != 0
	row.Values = make([]string, fieldCount)
	for i, v := range values {
		row.Values[i] = v.String
	}
	return row, nil
}

type InsertVersionParams struct {
	Table        string
	Fields       []string
	RecordID     int64
	Version      int64
	WasDraft     bool
	WasPublished bool
	WasDeleted   bool
	Values       []string
	LastEdited   string
}

const insertVersion = `INSERT INTO %s (%s) VALUES (%s)`

func (q *Queries) InsertVersion(ctx context.Context, arg InsertVersionParams) error {
	if len(arg.Values) != len(arg.Fields) {
		return fmt.Errorf("insert version %s: %d values for %d fields", arg.Table, len(arg.Values), len(arg.Fields))
	}
	columns := versionColumns(arg.Fields)
	query := fmt.Sprintf(insertVersion, QuoteIdent(arg.Table), ColumnList("", columns), placeholders(len(columns)))

	args := make([]any, 0, len(columns))
	args = append(args, arg.RecordID, arg.Version, boolToInt(arg.WasDraft), boolToInt(arg.WasPublished), boolToInt(arg.WasDeleted))
	for _, v := range arg.Values {
		args = append(args, v)
	}
	args = append(args, arg.LastEdited)

	_, err := q.db.ExecContext(ctx, query, args...)
	return err
}

const findVersion = `SELECT %s FROM %s WHERE "RecordID" = ? AND "Version" = ?`

func (q *Queries) FindVersion(ctx context.Context, table string, fields []string, recordID, version int64) (VersionRow, error) {
	query := fmt.Sprintf(findVersion, ColumnList("", versionColumns(fields)), QuoteIdent(table))
	return scanVersionRow(q.db.QueryRowContext(ctx, query, recordID, version), len(fields))
}

const listVersions = `SELECT %s FROM %s WHERE "RecordID" = ? ORDER BY "Version"`

func (q *Queries) ListVersions(ctx context.Context, table string, fields []string, recordID int64) ([]VersionRow, error) {
	query := fmt.Sprintf(listVersions, ColumnList("", versionColumns(fields)), QuoteIdent(table))
	rows, err := q.db.QueryContext(ctx, query, recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []VersionRow
	for rows.Next() {
		row, err := scanVersionRow(rows, len(fields))
		if err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

const maxVersionForRecord = `SELECT COALESCE(MAX("Version"), 0) FROM %s WHERE "RecordID" = ?`

func (q *Queries) MaxVersionForRecord(ctx context.Context, table string, recordID int64) (int64, error) {
	var v int64
	err := q.db.QueryRowContext(ctx, fmt.Sprintf(maxVersionForRecord, QuoteIdent(table)), recordID).Scan(&v)
	return v, err
}

const maxRecordID = `SELECT COALESCE(MAX("RecordID"), 0) FROM %s`

func (q *Queries) MaxRecordID(ctx context.Context, table string) (int64, error) {
	var v int64
	err := q.db.QueryRowContext(ctx, fmt.Sprintf(maxRecordID, QuoteIdent(table))).Scan(&v)
	return v, err
}

func boolToInt(value bool) int64 {
	if value {
		return 1
	}
	return 0
}
