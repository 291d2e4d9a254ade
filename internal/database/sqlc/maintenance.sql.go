package sqldb

import (
	"context"
	"fmt"
)

const deleteAllRows = `DELETE FROM %s`

func (q *Queries) DeleteAllRows(ctx context.Context, table string) error {
	_, err := q.db.ExecContext(ctx, fmt.Sprintf(deleteAllRows, QuoteIdent(table)))
	return err
}
