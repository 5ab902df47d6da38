package analyzer

import "github.com/aqasim81/animals/internal/migration"

// Finding is one dangerous pattern detected in a migration.
type Finding struct {
	Rule       string   `json:"rule"`
	Severity   Severity `json:"severity"`
	Table      string   `json:"table"`
	Statement  string   `json:"statement,omitempty"` // truncated for display
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion"`
	LockType   string   `json:"lock_type,omitempty"` // e.g. "ACCESS EXCLUSIVE"
	StmtIndex  int      `json:"stmt_index"`
}

// AnalysisResult holds all findings for a single migration.
type AnalysisResult struct {
	Migration   *migration.Migration
	Findings    []Finding
	MaxSeverity Severity
}

// HasHighOrCritical returns true if any finding is High or Critical severity.
func (r *AnalysisResult) HasHighOrCritical() bool {
	return r.MaxSeverity >= High
}

// AtLeast returns the findings whose severity is at or above min.
func (r *AnalysisResult) AtLeast(minSeverity Severity) []Finding {
	var out []Finding

	for _, f := range r.Findings {
		if f.Severity >= minSeverity {
			out = append(out, f)
		}
	}

	return out
}

// TruncateSQL shortens sql to maxLen bytes, ending in "...".
// A maxLen below 4 leaves sql unchanged.
func TruncateSQL(sql string, maxLen int) string {
	if len(sql) <= maxLen || maxLen < 4 {
		return sql
	}

	return sql[:maxLen-3] + "..."
}
