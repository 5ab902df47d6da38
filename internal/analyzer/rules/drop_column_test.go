package rules_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/animals/internal/analyzer"
	"github.com/aqasim81/animals/internal/analyzer/rules"
)

func TestDropColumnRule_Check(t *testing.T) {
	t.Parallel()

	runRuleCases(t, rules.NewDropColumnRule(), []ruleCase{
		{
			name:         "DROP COLUMN is HIGH",
			sql:          "ALTER TABLE animals DROP COLUMN name;",
			wantCount:    1,
			wantSeverity: analyzer.High,
			wantTable:    "animals",
		},
		{
			name:         "each dropped column is reported",
			sql:          "ALTER TABLE animals DROP COLUMN name, DROP COLUMN animalable_type;",
			wantCount:    2,
			wantSeverity: analyzer.High,
		},
		{
			name:      "ADD COLUMN is not flagged",
			sql:       "ALTER TABLE animals ADD COLUMN name VARCHAR;",
			wantCount: 0,
		},
	})
}

func TestDropColumnRule_messageNamesColumn(t *testing.T) {
	t.Parallel()

	findings := check(t, rules.NewDropColumnRule(), "ALTER TABLE animals DROP COLUMN name;", analyzer.DefaultPGVersion)

	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Message, "DROP COLUMN name")
	assert.Equal(t, "ALTER TABLE animals DROP COLUMN name;", findings[0].Statement)
}
