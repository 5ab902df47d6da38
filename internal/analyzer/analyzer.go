package analyzer

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"github.com/aqasim81/animals/internal/migration"
	"github.com/aqasim81/animals/internal/parser"
)

// DefaultPGVersion is the PostgreSQL major version assumed when none is configured.
const DefaultPGVersion = 14

const statementDisplayLen = 120

// Option configures the Analyzer.
type Option func(*Analyzer)

// Analyzer runs registered rules against parsed migrations.
type Analyzer struct {
	registry  *Registry
	parseFn   func(string) (*parser.ParseResult, error)
	pgVersion int
}

// New creates a new Analyzer with the given options.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		registry:  NewRegistry(),
		parseFn:   parser.Parse,
		pgVersion: DefaultPGVersion,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// WithRegistry sets a custom rule registry.
func WithRegistry(r *Registry) Option {
	return func(a *Analyzer) { a.registry = r }
}

// WithPGVersion sets the target PostgreSQL version.
func WithPGVersion(v int) Option {
	return func(a *Analyzer) { a.pgVersion = v }
}

// WithParser overrides the SQL parser function.
func WithParser(fn func(string) (*parser.ParseResult, error)) Option {
	return func(a *Analyzer) { a.parseFn = fn }
}

// Analyze parses the up SQL of m and runs every rule on every statement.
func (a *Analyzer) Analyze(m *migration.Migration) (*AnalysisResult, error) {
	result, err := a.parseFn(m.UpSQL)
	if err != nil {
		return nil, fmt.Errorf("parsing migration %s: %w", m.Version, err)
	}

	var findings []Finding

	maxSeverity := Safe
	created := make(map[string]bool)

	for i, stmt := range result.Stmts {
		ctx := &RuleContext{
			Migration:       m,
			TargetPGVersion: a.pgVersion,
			StmtIndex:       i,
			SQL:             result.SQL,
			Stmts:           result.Stmts,
			createdTables:   created,
		}

		stmtSQL := TruncateSQL(result.StmtSQL(i), statementDisplayLen)

		for _, rule := range a.registry.Rules() {
			fs := rule.Check(stmt, ctx)
			for j := range fs {
				if fs[j].Statement == "" {
					fs[j].Statement = stmtSQL
				}

				if fs[j].Severity > maxSeverity {
					maxSeverity = fs[j].Severity
				}
			}

			findings = append(findings, fs...)
		}

		if node, ok := stmt.Stmt.Node.(*pg_query.Node_CreateStmt); ok {
			created[TableName(node.CreateStmt.Relation)] = true
		}
	}

	return &AnalysisResult{
		Migration:   m,
		Findings:    findings,
		MaxSeverity: maxSeverity,
	}, nil
}

// AnalyzeAll analyzes multiple migrations and returns results for each.
func (a *Analyzer) AnalyzeAll(migrations []migration.Migration) ([]AnalysisResult, error) {
	results := make([]AnalysisResult, 0, len(migrations))

	for i := range migrations {
		r, err := a.Analyze(&migrations[i])
		if err != nil {
			return nil, err
		}

		results = append(results, *r)
	}

	return results, nil
}
