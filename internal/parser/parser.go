package parser //nolint:revive // intentional: does not conflict with go/parser in internal package

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// ParseResult holds the parsed statements and the SQL they came from.
type ParseResult struct {
	Stmts []*pg_query.RawStmt
	SQL   string
}

// Parse parses a PostgreSQL SQL string.
// Empty or whitespace-only input yields a result with zero statements.
func Parse(sql string) (*ParseResult, error) {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return &ParseResult{SQL: sql}, nil
	}

	tree, err := pg_query.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parsing SQL: %w", err)
	}

	return &ParseResult{
		Stmts: tree.Stmts,
		SQL:   trimmed,
	}, nil
}

// StmtSQL returns the source text of statement idx, or "" when idx is out of range.
func (r *ParseResult) StmtSQL(idx int) string {
	if idx < 0 || idx >= len(r.Stmts) {
		return ""
	}

	start := int(r.Stmts[idx].StmtLocation)

	end := len(r.SQL)
	if idx+1 < len(r.Stmts) {
		end = int(r.Stmts[idx+1].StmtLocation)
	}

	if start > len(r.SQL) || end > len(r.SQL) || start >= end {
		return ""
	}

	return strings.TrimSpace(r.SQL[start:end])
}
