package rules_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/animals/internal/analyzer"
	"github.com/aqasim81/animals/internal/analyzer/rules"
	"github.com/aqasim81/animals/internal/migration"
)

func TestPolymorphicIndexRule_Check(t *testing.T) {
	t.Parallel()

	runRuleCases(t, rules.NewPolymorphicIndexRule(), []ruleCase{
		{
			name:         "pair without index is LOW",
			sql:          "CREATE TABLE animals (id BIGSERIAL PRIMARY KEY, animalable_type VARCHAR, animalable_id BIGINT);",
			wantCount:    1,
			wantSeverity: analyzer.Low,
			wantTable:    "animals",
		},
		{
			name: "pair with composite index is safe",
			sql: `CREATE TABLE animals (id BIGSERIAL PRIMARY KEY, animalable_type VARCHAR, animalable_id BIGINT);
CREATE INDEX idx ON animals (animalable_type, animalable_id);`,
			wantCount: 0,
		},
		{
			name: "reversed key order still covers the pair",
			sql: `CREATE TABLE animals (id BIGSERIAL PRIMARY KEY, animalable_type VARCHAR, animalable_id BIGINT);
CREATE INDEX idx ON animals (animalable_id, animalable_type);`,
			wantCount: 0,
		},
		{
			name: "index on only one column does not count",
			sql: `CREATE TABLE animals (id BIGSERIAL PRIMARY KEY, animalable_type VARCHAR, animalable_id BIGINT);
CREATE INDEX idx ON animals (animalable_id);`,
			wantCount:    1,
			wantSeverity: analyzer.Low,
		},
		{
			name: "index on another table does not count",
			sql: `CREATE TABLE animals (id BIGSERIAL PRIMARY KEY, animalable_type VARCHAR, animalable_id BIGINT);
CREATE INDEX idx ON toys (animalable_type, animalable_id);`,
			wantCount:    1,
			wantSeverity: analyzer.Low,
		},
		{
			name:      "type column without id column is not a pair",
			sql:       "CREATE TABLE animals (id BIGSERIAL PRIMARY KEY, blood_type VARCHAR);",
			wantCount: 0,
		},
	})
}

func TestPolymorphicIndexRule_embeddedMigrationsAreClean(t *testing.T) {
	t.Parallel()

	ms, err := migration.LoadEmbedded()
	require.NoError(t, err)

	a := analyzer.New(analyzer.WithRegistry(rules.NewDefaultRegistry()))

	results, err := a.AnalyzeAll(migration.Sort(ms))
	require.NoError(t, err)

	for _, r := range results {
		assert.Empty(t, r.Findings, "%s should have no findings", r.Migration.ID())
		assert.Equal(t, analyzer.Safe, r.MaxSeverity)
	}
}
