// Package db holds the SQL migrations that build the animals table.
package db

import "embed"

// MigrationsDir is the directory inside MigrationFS that holds the .sql files.
const MigrationsDir = "migrations"

// MigrationFS embeds the animals migrations. Files follow the
// {timestamp}_{name}.up.sql / .down.sql naming read by the migration loader.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
