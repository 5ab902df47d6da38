package rules

import (
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/animals/internal/analyzer"
)

// PolymorphicIndexRule flags a CREATE TABLE that declares a polymorphic
// reference pair ({name}_type, {name}_id) without a later index in the same
// migration whose two leading keys are that pair. Lookups of all rows
// belonging to one owner otherwise scan the whole table.
type PolymorphicIndexRule struct{}

// NewPolymorphicIndexRule creates a new PolymorphicIndexRule.
func NewPolymorphicIndexRule() *PolymorphicIndexRule { return &PolymorphicIndexRule{} }

// ID returns the rule identifier.
func (r *PolymorphicIndexRule) ID() string { return "polymorphic-reference-unindexed" }

// Check examines a CREATE TABLE for unindexed polymorphic pairs.
func (r *PolymorphicIndexRule) Check(stmt *pg_query.RawStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	node, ok := stmt.Stmt.Node.(*pg_query.Node_CreateStmt)
	if !ok {
		return nil
	}

	table := analyzer.TableName(node.CreateStmt.Relation)
	var findings []analyzer.Finding

	for _, ref := range polymorphicPairs(tableColumns(node.CreateStmt)) {
		if pairIndexed(ctx, table, ref) {
			continue
		}

		findings = append(findings, analyzer.Finding{
			Rule:       r.ID(),
			Severity:   analyzer.Low,
			Table:      table,
			Message:    "polymorphic reference " + ref + " has no index on (" + ref + "_type, " + ref + "_id)",
			Suggestion: "CREATE INDEX ON " + table + " (" + ref + "_type, " + ref + "_id) in the same migration",
			StmtIndex:  ctx.StmtIndex,
		})
	}

	return findings
}

// polymorphicPairs returns every prefix p for which both p_type and p_id are columns.
func polymorphicPairs(cols []string) []string {
	have := make(map[string]bool, len(cols))
	for _, c := range cols {
		have[c] = true
	}

	var refs []string

	for _, c := range cols {
		prefix, ok := strings.CutSuffix(c, "_type")
		if ok && prefix != "" && have[prefix+"_id"] {
			refs = append(refs, prefix)
		}
	}

	return refs
}

func pairIndexed(ctx *analyzer.RuleContext, table, ref string) bool {
	for _, later := range ctx.Stmts[ctx.StmtIndex+1:] {
		node, ok := later.Stmt.Node.(*pg_query.Node_IndexStmt)
		if !ok || analyzer.TableName(node.IndexStmt.Relation) != table {
			continue
		}

		cols := indexColumns(node.IndexStmt)
		if len(cols) < 2 {
			continue
		}

		lead := map[string]bool{cols[0]: true, cols[1]: true}
		if lead[ref+"_type"] && lead[ref+"_id"] {
			return true
		}
	}

	return false
}
