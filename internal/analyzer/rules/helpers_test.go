package rules_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aqasim81/animals/internal/analyzer"
	"github.com/aqasim81/animals/internal/migration"
)

// check runs a single rule over sql through the analyzer, so statement
// ordering context is populated the same way as in a real run.
func check(t *testing.T, rule analyzer.Rule, sql string, pgVersion int) []analyzer.Finding {
	t.Helper()

	reg := analyzer.NewRegistry()
	reg.Register(rule)

	a := analyzer.New(analyzer.WithRegistry(reg), analyzer.WithPGVersion(pgVersion))

	result, err := a.Analyze(&migration.Migration{Version: "001", Name: "test", UpSQL: sql})
	require.NoError(t, err)

	return result.Findings
}

type ruleCase struct {
	name         string
	sql          string
	pgVersion    int
	wantCount    int
	wantSeverity analyzer.Severity
	wantTable    string
}

func runRuleCases(t *testing.T, rule analyzer.Rule, tests []ruleCase) {
	t.Helper()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pg := tt.pgVersion
			if pg == 0 {
				pg = analyzer.DefaultPGVersion
			}

			findings := check(t, rule, tt.sql, pg)
			require.Len(t, findings, tt.wantCount)

			for _, f := range findings {
				require.Equal(t, rule.ID(), f.Rule)
				require.Equal(t, tt.wantSeverity, f.Severity)

				if tt.wantTable != "" {
					require.Equal(t, tt.wantTable, f.Table)
				}
			}
		})
	}
}
