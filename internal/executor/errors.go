package executor

import "errors"

var (
	// ErrExecutionFailed wraps database errors raised by migration SQL.
	ErrExecutionFailed = errors.New("migration execution failed")

	// ErrInvalidSteps indicates a rollback step count below one.
	ErrInvalidSteps = errors.New("rollback steps must be at least 1")

	// ErrNoDownMigration indicates an applied migration has no down SQL.
	ErrNoDownMigration = errors.New("migration has no down SQL")

	// ErrMigrationUnknown indicates an applied version has no migration file.
	ErrMigrationUnknown = errors.New("applied migration not found in migration set")

	// ErrTargetNotApplied indicates a rollback target that is not applied.
	ErrTargetNotApplied = errors.New("rollback target is not applied")
)
