package migration

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/aqasim81/animals/internal/db"
)

// filenamePattern matches migration files in two formats:
//
//	V{version}_{name}.up.sql   (e.g., V001_create_animals.up.sql)
//	{timestamp}_{name}.up.sql  (e.g., 20220124143357_create_animals.up.sql)
var filenamePattern = regexp.MustCompile( //nolint:gochecknoglobals // compiled once, used by LoadFromFS
	`^(?:V(\d+)|(\d{14}))_(.+)\.(up|down)\.sql$`,
)

// LoadEmbedded returns the animals migrations compiled into the binary.
func LoadEmbedded() ([]Migration, error) {
	return LoadFromFS(db.MigrationFS, db.MigrationsDir)
}

// LoadFromDir scans a directory on disk for migration files.
func LoadFromDir(dir string) ([]Migration, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("reading migrations directory %s: %w", dir, err)
	}

	ms, err := LoadFromFS(os.DirFS(dir), ".")
	if err != nil {
		return nil, err
	}

	// Report real paths rather than paths relative to the DirFS root.
	for i := range ms {
		ms[i].FilePath = filepath.Join(dir, filepath.FromSlash(ms[i].FilePath))
	}

	return ms, nil
}

// LoadFromFS scans dir within fsys and returns unsorted Migration values.
// Files that do not match the expected naming pattern are skipped, as are
// .down.sql files without a matching .up.sql.
func LoadFromFS(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory %s: %w", dir, err)
	}

	grouped := scanEntries(entries)

	return buildMigrations(fsys, grouped, dir)
}

// migrationFile pairs the up and down files of one version.
type migrationFile struct {
	version  string
	name     string
	upFile   string
	downFile string
}

func scanEntries(entries []fs.DirEntry) map[string]*migrationFile {
	grouped := make(map[string]*migrationFile)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		matches := filenamePattern.FindStringSubmatch(entry.Name())
		if matches == nil {
			continue
		}

		version := matches[1]
		if version == "" {
			version = matches[2]
		}

		key := version + "_" + matches[3]

		mf, ok := grouped[key]
		if !ok {
			mf = &migrationFile{version: version, name: matches[3]}
			grouped[key] = mf
		}

		if matches[4] == "up" {
			mf.upFile = entry.Name()
		} else {
			mf.downFile = entry.Name()
		}
	}

	return grouped
}

func buildMigrations(fsys fs.FS, grouped map[string]*migrationFile, dir string) ([]Migration, error) {
	var migrations []Migration

	for _, mf := range grouped {
		if mf.upFile == "" {
			continue
		}

		m, err := readMigration(fsys, mf, dir)
		if err != nil {
			return nil, err
		}

		migrations = append(migrations, m)
	}

	return migrations, nil
}

func readMigration(fsys fs.FS, mf *migrationFile, dir string) (Migration, error) {
	upPath := path.Join(dir, mf.upFile)

	upSQL, err := readTrimmed(fsys, upPath)
	if err != nil {
		return Migration{}, err
	}

	var downSQL string

	if mf.downFile != "" {
		downSQL, err = readTrimmed(fsys, path.Join(dir, mf.downFile))
		if err != nil {
			return Migration{}, err
		}
	}

	return Migration{
		Version:  mf.version,
		Name:     mf.name,
		UpSQL:    upSQL,
		DownSQL:  downSQL,
		Checksum: ComputeChecksum(upSQL),
		FilePath: upPath,
	}, nil
}

func readTrimmed(fsys fs.FS, name string) (string, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return "", fmt.Errorf("reading migration file %s: %w", name, err)
	}

	return strings.TrimSpace(string(data)), nil
}
