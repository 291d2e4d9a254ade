package database

import (
	"time"

	sqldb "github.com/vault-md/versioned/internal/database/sqlc"
)

// TimestampLayout is how LastEdited is stored. Values are UTC so that
// archive bounds compare as plain strings.
const TimestampLayout = "2006-01-02 15:04:05"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func parseTimestamp(value string) time.Time {
	t, err := time.ParseInLocation(TimestampLayout, value, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

func fieldMap(fields, values []string) map[string]string {
	m := make(map[string]string, len(fields))
	for i, f := range fields {
		if i < len(values) {
			m[f] = values[i]
		}
	}
	return m
}

func fieldValues(fields []string, m map[string]string) []string {
	values := make([]string, len(fields))
	for i, f := range fields {
		values[i] = m[f]
	}
	return values
}

func recordFromStageRow(e Entity, row sqldb.StageRow) Record {
	return Record{
		ID:         row.ID,
		Version:    row.Version,
		Fields:     fieldMap(e.Fields, row.Values),
		LastEdited: parseTimestamp(row.LastEdited),
	}
}

func recordFromVersionRow(e Entity, row sqldb.VersionRow) VersionRecord {
	return VersionRecord{
		Record: Record{
			ID:         row.RecordID,
			Version:    row.Version,
			Fields:     fieldMap(e.Fields, row.Values),
			LastEdited: parseTimestamp(row.LastEdited),
		},
		WasDraft:     row.WasDraft,
		WasPublished: row.WasPublished,
		WasDeleted:   row.WasDeleted,
	}
}

func queriesFromContext(ctx *Context) *sqldb.Queries {
	if ctx == nil {
		return nil
	}
	if ctx.Queries != nil {
		return ctx.Queries
	}
	if ctx.DB == nil {
		return nil
	}
	return sqldb.New(ctx.DB)
}
