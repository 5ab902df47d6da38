package migration

import (
	"crypto/sha256"
	"encoding/hex"
)

// Migration is one versioned, reversible schema change.
type Migration struct {
	Version  string // "001" or "20220124143357", taken from the filename
	Name     string // "create_animals", taken from the filename
	UpSQL    string
	DownSQL  string // empty when the migration has no .down.sql
	Checksum string // SHA-256 hex digest of UpSQL
	FilePath string // path of the .up.sql file
}

// ID returns the "{version}_{name}" label used in output.
func (m *Migration) ID() string {
	return m.Version + "_" + m.Name
}

// Reversible reports whether the migration has down SQL.
func (m *Migration) Reversible() bool {
	return m.DownSQL != ""
}

// ComputeChecksum returns the SHA-256 hex digest of the given SQL string.
func ComputeChecksum(sql string) string {
	h := sha256.Sum256([]byte(sql))

	return hex.EncodeToString(h[:])
}
