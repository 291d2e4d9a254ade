package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqldb "github.com/vault-md/versioned/internal/database/sqlc"
	"github.com/vault-md/versioned/internal/readingmode"
	"github.com/vault-md/versioned/internal/versioned"
)

// StageRepository writes and reads the stage triple of one entity. Every
// write appends to the history table and runs in a single transaction.
type StageRepository struct {
	ctx    *Context
	entity Entity
}

func NewStageRepository(dbCtx *Context, entity Entity) *StageRepository {
	return &StageRepository{ctx: dbCtx, entity: entity}
}

// Entity returns the entity the repository works on.
func (r *StageRepository) Entity() Entity {
	return r.entity
}

// WriteDraft saves fields to the draft stage as a new version. An id of 0
// creates a record. The stored record is returned.
func (r *StageRepository) WriteDraft(ctx context.Context, id int64, fields map[string]string, at time.Time) (*Record, error) {
	values, err := r.copyFields(fields)
	if err != nil {
		return nil, err
	}

	var result Record
	err = r.withTx(ctx, func(txCtx context.Context, q *sqldb.Queries) error {
		if id == 0 {
			maxID, err := q.MaxRecordID(txCtx, r.entity.VersionsTable())
			if err != nil {
				return err
			}
			id = maxID + 1
		}

		version, err := r.nextVersion(txCtx, q, id)
		if err != nil {
			return err
		}

		result = Record{ID: id, Version: version, Fields: values, LastEdited: at.UTC().Truncate(time.Second)}
		if err := r.upsert(txCtx, q, r.entity.Table, result); err != nil {
			return err
		}
		return r.insertVersion(txCtx, q, result, true, false, false)
	})
	if err != nil {
		return nil, fmt.Errorf("write draft %s #%d: %w", r.entity.Table, id, err)
	}
	return &result, nil
}

// Publish copies the draft row to the live stage under a new version that
// both stages then share.
func (r *StageRepository) Publish(ctx context.Context, id int64, at time.Time) (*Record, error) {
	var result Record
	err := r.withTx(ctx, func(txCtx context.Context, q *sqldb.Queries) error {
		draft, err := r.findStage(txCtx, q, readingmode.StageDraft, id)
		if err != nil {
			return err
		}

		version, err := r.nextVersion(txCtx, q, id)
		if err != nil {
			return err
		}

		result = Record{ID: id, Version: version, Fields: draft.Fields, LastEdited: at.UTC().Truncate(time.Second)}
		if err := r.upsert(txCtx, q, r.entity.Table, result); err != nil {
			return err
		}
		if err := r.upsert(txCtx, q, r.entity.LiveTable(), result); err != nil {
			return err
		}
		return r.insertVersion(txCtx, q, result, true, true, false)
	})
	if err != nil {
		return nil, fmt.Errorf("publish %s #%d: %w", r.entity.Table, id, err)
	}
	return &result, nil
}

// Unpublish removes the live row and records the removal in history.
func (r *StageRepository) Unpublish(ctx context.Context, id int64, at time.Time) error {
	err := r.withTx(ctx, func(txCtx context.Context, q *sqldb.Queries) error {
		live, err := r.findStage(txCtx, q, readingmode.StageLive, id)
		if err != nil {
			return err
		}
		if _, err := q.DeleteStageRow(txCtx, r.entity.LiveTable(), id); err != nil {
			return err
		}
		return r.writeMarker(txCtx, q, *live, at, false, true)
	})
	if err != nil {
		return fmt.Errorf("unpublish %s #%d: %w", r.entity.Table, id, err)
	}
	return nil
}

// DeleteFromDraft removes the draft row, leaving any live row in place.
func (r *StageRepository) DeleteFromDraft(ctx context.Context, id int64, at time.Time) error {
	err := r.withTx(ctx, func(txCtx context.Context, q *sqldb.Queries) error {
		draft, err := r.findStage(txCtx, q, readingmode.StageDraft, id)
		if err != nil {
			return err
		}
		if _, err := q.DeleteStageRow(txCtx, r.entity.Table, id); err != nil {
			return err
		}
		return r.writeMarker(txCtx, q, *draft, at, true, false)
	})
	if err != nil {
		return fmt.Errorf("delete draft %s #%d: %w", r.entity.Table, id, err)
	}
	return nil
}

// Archive removes the record from both stages. Its history stays readable.
func (r *StageRepository) Archive(ctx context.Context, id int64, at time.Time) error {
	err := r.withTx(ctx, func(txCtx context.Context, q *sqldb.Queries) error {
		draft, err := r.findStage(txCtx, q, readingmode.StageDraft, id)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		live, err := r.findStage(txCtx, q, readingmode.StageLive, id)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		if draft == nil && live == nil {
			return ErrNotFound
		}

		content := draft
		if content == nil {
			content = live
		}
		if _, err := q.DeleteStageRow(txCtx, r.entity.Table, id); err != nil {
			return err
		}
		if _, err := q.DeleteStageRow(txCtx, r.entity.LiveTable(), id); err != nil {
			return err
		}
		return r.writeMarker(txCtx, q, *content, at, true, live != nil)
	})
	if err != nil {
		return fmt.Errorf("archive %s #%d: %w", r.entity.Table, id, err)
	}
	return nil
}

// RevertToLive overwrites the draft row with the live one, version
// included, discarding unpublished changes.
func (r *StageRepository) RevertToLive(ctx context.Context, id int64) (*Record, error) {
	var result Record
	err := r.withTx(ctx, func(txCtx context.Context, q *sqldb.Queries) error {
		live, err := r.findStage(txCtx, q, readingmode.StageLive, id)
		if err != nil {
			return err
		}
		result = *live
		return r.upsert(txCtx, q, r.entity.Table, result)
	})
	if err != nil {
		return nil, fmt.Errorf("revert %s #%d: %w", r.entity.Table, id, err)
	}
	return &result, nil
}

// Rollback restores the content of a past version as a new draft version.
func (r *StageRepository) Rollback(ctx context.Context, id, version int64, at time.Time) (*Record, error) {
	var result Record
	err := r.withTx(ctx, func(txCtx context.Context, q *sqldb.Queries) error {
		row, err := q.FindVersion(txCtx, r.entity.VersionsTable(), r.entity.Fields, id, version)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}

		next, err := r.nextVersion(txCtx, q, id)
		if err != nil {
			return err
		}

		result = Record{ID: id, Version: next, Fields: fieldMap(r.entity.Fields, row.Values), LastEdited: at.UTC().Truncate(time.Second)}
		if err := r.upsert(txCtx, q, r.entity.Table, result); err != nil {
			return err
		}
		return r.insertVersion(txCtx, q, result, true, false, false)
	})
	if err != nil {
		return nil, fmt.Errorf("rollback %s #%d to v%d: %w", r.entity.Table, id, version, err)
	}
	return &result, nil
}

// FindStageRow returns the record as stored in stage, or nil when the stage
// has no row for it.
func (r *StageRepository) FindStageRow(ctx context.Context, stage readingmode.Stage, id int64) (*Record, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, fmt.Errorf("stage repository: missing database context")
	}

	record, err := r.findStage(ctx, queries, stage, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

// ListStageIDs returns the ids present in stage.
func (r *StageRepository) ListStageIDs(ctx context.Context, stage readingmode.Stage) ([]int64, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, fmt.Errorf("stage repository: missing database context")
	}
	return queries.ListStageIDs(ctx, versioned.StageTable(r.entity.Table, stage))
}

// ListVersions returns the full history of a record, oldest first.
func (r *StageRepository) ListVersions(ctx context.Context, id int64) ([]VersionRecord, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, fmt.Errorf("stage repository: missing database context")
	}

	rows, err := queries.ListVersions(ctx, r.entity.VersionsTable(), r.entity.Fields, id)
	if err != nil {
		return nil, err
	}
	result := make([]VersionRecord, 0, len(rows))
	for _, row := range rows {
		result = append(result, recordFromVersionRow(r.entity, row))
	}
	return result, nil
}

// FindVersion returns one history row, or nil when it does not exist.
func (r *StageRepository) FindVersion(ctx context.Context, id, version int64) (*VersionRecord, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return nil, fmt.Errorf("stage repository: missing database context")
	}

	row, err := queries.FindVersion(ctx, r.entity.VersionsTable(), r.entity.Fields, id, version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	record := recordFromVersionRow(r.entity, row)
	return &record, nil
}

// LatestVersion returns the highest version number written for a record,
// 0 when it has no history.
func (r *StageRepository) LatestVersion(ctx context.Context, id int64) (int64, error) {
	queries := queriesFromContext(r.ctx)
	if queries == nil {
		return 0, fmt.Errorf("stage repository: missing database context")
	}
	return queries.MaxVersionForRecord(ctx, r.entity.VersionsTable(), id)
}

// Status classifies a record by comparing its draft and live rows.
func (r *StageRepository) Status(ctx context.Context, id int64) (*StatusRecord, error) {
	draft, err := r.FindStageRow(ctx, readingmode.StageDraft, id)
	if err != nil {
		return nil, err
	}
	live, err := r.FindStageRow(ctx, readingmode.StageLive, id)
	if err != nil {
		return nil, err
	}
	if draft == nil && live == nil {
		latest, err := r.LatestVersion(ctx, id)
		if err != nil {
			return nil, err
		}
		if latest == 0 {
			return nil, ErrNotFound
		}
	}

	status := &StatusRecord{ID: id}
	if draft != nil {
		v := draft.Version
		status.DraftVersion = &v
	}
	if live != nil {
		v := live.Version
		status.LiveVersion = &v
	}
	status.Status = versioned.Classify(live != nil, draft != nil, status.DraftVersion, status.LiveVersion)
	return status, nil
}

func (r *StageRepository) findStage(ctx context.Context, q *sqldb.Queries, stage readingmode.Stage, id int64) (*Record, error) {
	row, err := q.FindStageRow(ctx, versioned.StageTable(r.entity.Table, stage), r.entity.Fields, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	record := recordFromStageRow(r.entity, row)
	return &record, nil
}

func (r *StageRepository) nextVersion(ctx context.Context, q *sqldb.Queries, id int64) (int64, error) {
	latest, err := q.MaxVersionForRecord(ctx, r.entity.VersionsTable(), id)
	if err != nil {
		return 0, err
	}
	return latest + 1, nil
}

func (r *StageRepository) upsert(ctx context.Context, q *sqldb.Queries, table string, rec Record) error {
	return q.UpsertStageRow(ctx, sqldb.UpsertStageRowParams{
		Table:      table,
		Fields:     r.entity.Fields,
		ID:         rec.ID,
		Version:    rec.Version,
		Values:     fieldValues(r.entity.Fields, rec.Fields),
		LastEdited: formatTimestamp(rec.LastEdited),
	})
}

func (r *StageRepository) insertVersion(ctx context.Context, q *sqldb.Queries, rec Record, wasDraft, wasPublished, wasDeleted bool) error {
	return q.InsertVersion(ctx, sqldb.InsertVersionParams{
		Table:        r.entity.VersionsTable(),
		Fields:       r.entity.Fields,
		RecordID:     rec.ID,
		Version:      rec.Version,
		WasDraft:     wasDraft,
		WasPublished: wasPublished,
		WasDeleted:   wasDeleted,
		Values:       fieldValues(r.entity.Fields, rec.Fields),
		LastEdited:   formatTimestamp(rec.LastEdited),
	})
}

// writeMarker appends a deletion row carrying the removed content.
func (r *StageRepository) writeMarker(ctx context.Context, q *sqldb.Queries, removed Record, at time.Time, wasDraft, wasPublished bool) error {
	version, err := r.nextVersion(ctx, q, removed.ID)
	if err != nil {
		return err
	}
	marker := Record{ID: removed.ID, Version: version, Fields: removed.Fields, LastEdited: at.UTC().Truncate(time.Second)}
	return r.insertVersion(ctx, q, marker, wasDraft, wasPublished, true)
}

func (r *StageRepository) withTx(ctx context.Context, fn func(context.Context, *sqldb.Queries) error) error {
	if r.ctx == nil || r.ctx.DB == nil {
		return fmt.Errorf("stage repository: missing database context")
	}

	tx, err := r.ctx.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	queries := queriesFromContext(r.ctx).WithTx(tx)

	if err := fn(ctx, queries); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return err
	}

	return nil
}

func (r *StageRepository) copyFields(values map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(r.entity.Fields))
	for _, f := range r.entity.Fields {
		out[f] = values[f]
	}
	for name := range values {
		if _, ok := out[name]; !ok {
			return nil, fmt.Errorf("%w: %s has no field %q", versioned.ErrInvalidArgument, r.entity.Table, name)
		}
	}
	return out, nil
}
