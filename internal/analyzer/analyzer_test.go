package analyzer_test

import (
	"testing"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/animals/internal/analyzer"
	"github.com/aqasim81/animals/internal/migration"
	"github.com/aqasim81/animals/internal/parser"
)

// stubRule always returns a single High finding.
type stubRule struct{}

func (r *stubRule) ID() string { return "test-stub" }

func (r *stubRule) Check(_ *pg_query.RawStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	return []analyzer.Finding{{
		Rule:      r.ID(),
		Severity:  analyzer.High,
		Message:   "stub finding",
		StmtIndex: ctx.StmtIndex,
	}}
}

// contextRecorder keeps every RuleContext it is handed.
type contextRecorder struct {
	seen []analyzer.RuleContext
	// createdAnimals records CreatedEarlier("animals") per statement.
	createdAnimals []bool
}

func (r *contextRecorder) ID() string { return "recorder" }

func (r *contextRecorder) Check(_ *pg_query.RawStmt, ctx *analyzer.RuleContext) []analyzer.Finding {
	r.seen = append(r.seen, *ctx)
	r.createdAnimals = append(r.createdAnimals, ctx.CreatedEarlier("animals"))

	return nil
}

func withRule(rule analyzer.Rule) analyzer.Option {
	reg := analyzer.NewRegistry()
	reg.Register(rule)

	return analyzer.WithRegistry(reg)
}

func TestAnalyze_noRules_noFindings(t *testing.T) {
	t.Parallel()

	m := &migration.Migration{
		Version: "20220124143357",
		Name:    "create_animals",
		UpSQL:   "CREATE TABLE animals (id BIGSERIAL PRIMARY KEY);",
	}

	result, err := analyzer.New().Analyze(m)
	require.NoError(t, err)
	assert.Empty(t, result.Findings)
	assert.Equal(t, analyzer.Safe, result.MaxSeverity)
	assert.Same(t, m, result.Migration)
}

func TestAnalyze_withStubRule_returnsFindings(t *testing.T) {
	t.Parallel()

	m := &migration.Migration{Version: "001", UpSQL: "CREATE TABLE animals (id BIGSERIAL PRIMARY KEY);"}

	result, err := analyzer.New(withRule(&stubRule{})).Analyze(m)
	require.NoError(t, err)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, analyzer.High, result.MaxSeverity)
	assert.Equal(t, "test-stub", result.Findings[0].Rule)
	assert.True(t, result.HasHighOrCritical())
}

func TestAnalyze_invalidSQL_returnsError(t *testing.T) {
	t.Parallel()

	m := &migration.Migration{Version: "001", UpSQL: "NOT VALID SQL AT ALL;;;"}

	_, err := analyzer.New().Analyze(m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing migration 001")
}

func TestAnalyze_emptyMigration_noFindings(t *testing.T) {
	t.Parallel()

	result, err := analyzer.New(withRule(&stubRule{})).Analyze(&migration.Migration{Version: "001"})
	require.NoError(t, err)
	assert.Empty(t, result.Findings)
	assert.Equal(t, analyzer.Safe, result.MaxSeverity)
}

func TestAnalyze_multiStatement_runsRulesOnEach(t *testing.T) {
	t.Parallel()

	m := &migration.Migration{
		Version: "001",
		UpSQL:   "CREATE TABLE animals (id BIGSERIAL); CREATE TABLE owners (id BIGSERIAL);",
	}

	result, err := analyzer.New(withRule(&stubRule{})).Analyze(m)
	require.NoError(t, err)
	require.Len(t, result.Findings, 2)
	assert.Equal(t, 0, result.Findings[0].StmtIndex)
	assert.Equal(t, 1, result.Findings[1].StmtIndex)
	assert.Equal(t, "CREATE TABLE animals (id BIGSERIAL);", result.Findings[0].Statement)
	assert.Equal(t, "CREATE TABLE owners (id BIGSERIAL);", result.Findings[1].Statement)
}

func TestAnalyze_tracksTablesCreatedEarlier(t *testing.T) {
	t.Parallel()

	m := &migration.Migration{
		Version: "001",
		UpSQL: `CREATE TABLE animals (id BIGSERIAL PRIMARY KEY, animalable_type VARCHAR, animalable_id BIGINT);
CREATE INDEX idx ON animals (animalable_type, animalable_id);`,
	}

	rec := &contextRecorder{}

	_, err := analyzer.New(withRule(rec)).Analyze(m)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true}, rec.createdAnimals)
	require.Len(t, rec.seen, 2)
	assert.Len(t, rec.seen[1].Stmts, 2)
}

func TestAnalyze_longStatementIsTruncated(t *testing.T) {
	t.Parallel()

	m := &migration.Migration{
		Version: "001",
		UpSQL: `CREATE TABLE animals (
    id BIGSERIAL PRIMARY KEY,
    animalable_type VARCHAR,
    animalable_id BIGINT,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);`,
	}

	result, err := analyzer.New(withRule(&stubRule{})).Analyze(m)
	require.NoError(t, err)
	require.Len(t, result.Findings, 1)
	assert.Len(t, result.Findings[0].Statement, 120)
	assert.Contains(t, result.Findings[0].Statement, "...")
}

func TestAnalyzeAll_errorInOne_returnsWrappedError(t *testing.T) {
	t.Parallel()

	migrations := []migration.Migration{
		{Version: "001", UpSQL: "CREATE TABLE animals (id INT);"},
		{Version: "002", UpSQL: "INVALID SQL;;;"},
	}

	_, err := analyzer.New().AnalyzeAll(migrations)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing migration 002")
}

func TestAnalyzeAll_resultPerMigration(t *testing.T) {
	t.Parallel()

	migrations := []migration.Migration{
		{Version: "001", UpSQL: "CREATE TABLE animals (id INT);"},
		{Version: "002", UpSQL: "ALTER TABLE animals ADD COLUMN name VARCHAR;"},
	}

	results, err := analyzer.New().AnalyzeAll(migrations)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "002", results[1].Migration.Version)
}

func TestWithPGVersion_setsVersion(t *testing.T) {
	t.Parallel()

	rec := &contextRecorder{}

	_, err := analyzer.New(withRule(rec), analyzer.WithPGVersion(10)).
		Analyze(&migration.Migration{Version: "001", UpSQL: "SELECT 1;"})
	require.NoError(t, err)
	require.Len(t, rec.seen, 1)
	assert.Equal(t, 10, rec.seen[0].TargetPGVersion)
}

func TestWithParser_overridesParser(t *testing.T) {
	t.Parallel()

	called := false
	customParse := func(sql string) (*parser.ParseResult, error) {
		called = true
		return parser.Parse(sql)
	}

	_, err := analyzer.New(analyzer.WithParser(customParse)).
		Analyze(&migration.Migration{Version: "001", UpSQL: "SELECT 1;"})
	require.NoError(t, err)
	assert.True(t, called)
}
