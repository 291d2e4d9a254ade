package database

import (
	"context"
	"fmt"

	sqldb "github.com/vault-md/versioned/internal/database/sqlc"
	"github.com/vault-md/versioned/internal/versioned"
)

// VersionedQuery reads an entity under query arguments by translating them
// into a plan and executing the rendered statement.
type VersionedQuery struct {
	ctx    *Context
	entity Entity
}

func NewVersionedQuery(dbCtx *Context, entity Entity) *VersionedQuery {
	return &VersionedQuery{ctx: dbCtx, entity: entity}
}

// List returns every record visible under args.
func (q *VersionedQuery) List(ctx context.Context, args versioned.QueryArgs) ([]Record, error) {
	plan, err := versioned.Translate(args, q.entity.Table, versioned.ScopeList)
	if err != nil {
		return nil, err
	}
	query, params, err := RenderList(q.entity, plan)
	if err != nil {
		return nil, err
	}
	return q.run(ctx, query, params)
}

// Get returns one record under args, or nil when it is not visible.
func (q *VersionedQuery) Get(ctx context.Context, args versioned.QueryArgs, id int64) (*Record, error) {
	plan, err := versioned.Translate(args, q.entity.Table, versioned.ScopeSingle)
	if err != nil {
		return nil, err
	}
	query, params, err := RenderSingle(q.entity, plan, id)
	if err != nil {
		return nil, err
	}

	records, err := q.run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	// all_versions yields one row per version; the newest wins
	return &records[len(records)-1], nil
}

func (q *VersionedQuery) run(ctx context.Context, query string, params []any) ([]Record, error) {
	queries := queriesFromContext(q.ctx)
	if queries == nil {
		return nil, fmt.Errorf("versioned query: missing database context")
	}

	rows, err := queries.DB().QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("versioned query %s: %w", q.entity.Table, err)
	}
	defer rows.Close()

	var result []Record
	for rows.Next() {
		row, err := sqldb.ScanStageRow(rows, len(q.entity.Fields))
		if err != nil {
			return nil, err
		}
		result = append(result, recordFromStageRow(q.entity, row))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
