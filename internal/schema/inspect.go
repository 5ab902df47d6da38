package schema

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Querier runs read queries. *pgxpool.Pool, *pgx.Conn and pgx.Tx satisfy it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const columnsSQL = `SELECT column_name, data_type, is_nullable = 'YES'
FROM information_schema.columns
WHERE table_schema = current_schema() AND table_name = $1
ORDER BY ordinal_position`

const indexesSQL = `SELECT indexname
FROM pg_indexes
WHERE schemaname = current_schema() AND tablename = $1
ORDER BY indexname`

// Inspect reads the live shape of table in the current schema.
// A table with no columns is reported as ErrTableNotFound.
func Inspect(ctx context.Context, q Querier, table string) (Table, error) {
	rows, err := q.Query(ctx, columnsSQL, table)
	if err != nil {
		return Table{}, fmt.Errorf("querying columns of %s: %w", table, err)
	}

	cols, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Column, error) {
		var c Column
		err := row.Scan(&c.Name, &c.DataType, &c.Nullable)

		return c, err
	})
	if err != nil {
		return Table{}, fmt.Errorf("scanning columns of %s: %w", table, err)
	}

	if len(cols) == 0 {
		return Table{}, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}

	rows, err = q.Query(ctx, indexesSQL, table)
	if err != nil {
		return Table{}, fmt.Errorf("querying indexes of %s: %w", table, err)
	}

	indexes, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return Table{}, fmt.Errorf("scanning indexes of %s: %w", table, err)
	}

	return Table{Name: table, Columns: cols, Indexes: indexes}, nil
}
