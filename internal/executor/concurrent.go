package executor

import (
	"fmt"

	"github.com/aqasim81/animals/internal/parser"
)

// concurrentIndex names an index a script builds with CREATE INDEX
// CONCURRENTLY, for example index_animals_on_name on animals.
type concurrentIndex struct {
	Index string
	Table string
}

// concurrentIndexes lists every CREATE INDEX CONCURRENTLY in sql. A script
// with any of them has to run outside a transaction block.
func concurrentIndexes(sql string) ([]concurrentIndex, error) {
	result, err := parser.Parse(sql)
	if err != nil {
		return nil, fmt.Errorf("parsing SQL for concurrent index detection: %w", err)
	}

	var found []concurrentIndex

	for _, stmt := range result.Stmts {
		idx := stmt.GetStmt().GetIndexStmt()
		if idx == nil || !idx.GetConcurrent() {
			continue
		}

		found = append(found, concurrentIndex{
			Index: idx.GetIdxname(),
			Table: idx.GetRelation().GetRelname(),
		})
	}

	return found, nil
}

// unnamedIndex is how the log reports CREATE INDEX without a name, where
// Postgres picks one.
const unnamedIndex = "(generated)"

func (c concurrentIndex) indexLabel() string {
	if c.Index == "" {
		return unnamedIndex
	}

	return c.Index
}
