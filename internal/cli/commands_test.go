package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/animals/internal/analyzer"
	"github.com/aqasim81/animals/internal/animal"
	"github.com/aqasim81/animals/internal/config"
	"github.com/aqasim81/animals/internal/executor"
	"github.com/aqasim81/animals/internal/migration"
	"github.com/aqasim81/animals/internal/schema"
	"github.com/aqasim81/animals/internal/tracker"
)

func embeddedMigrations(t *testing.T) []migration.Migration {
	t.Helper()

	sorted, err := loadAndSortMigrations("", new(bytes.Buffer))
	require.NoError(t, err)

	return sorted
}

func TestBuildStatusReport(t *testing.T) {
	t.Parallel()

	sorted := embeddedMigrations(t)

	tests := []struct {
		name        string
		applied     []tracker.AppliedMigration
		wantPending []string
		wantUnknown []string
	}{
		{
			name:        "fresh database",
			wantPending: []string{"20220124143357", "20220124185322"},
		},
		{
			name:        "first applied",
			applied:     []tracker.AppliedMigration{{Version: "20220124143357"}},
			wantPending: []string{"20220124185322"},
		},
		{
			name: "unknown applied version",
			applied: []tracker.AppliedMigration{
				{Version: "20220124143357"},
				{Version: "20220124185322"},
				{Version: "20230101000000"},
			},
			wantUnknown: []string{"20230101000000"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			report := buildStatusReport(sorted, tt.applied)

			pending := make([]string, 0, len(report.Pending))
			for _, p := range report.Pending {
				pending = append(pending, p.Version)
				assert.True(t, p.Reversible)
			}

			if tt.wantPending == nil {
				assert.Empty(t, pending)
			} else {
				assert.Equal(t, tt.wantPending, pending)
			}

			assert.Equal(t, tt.wantUnknown, report.Unknown)
			assert.NotNil(t, report.Applied)
		})
	}
}

func TestPrintStatus_text(t *testing.T) {
	t.Parallel()

	buf := new(bytes.Buffer)
	report := statusReport{
		Applied: []tracker.AppliedMigration{{
			Version:    "20220124143357",
			Filename:   "20220124143357_create_animals.up.sql",
			AppliedAt:  time.Date(2022, 1, 24, 14, 40, 0, 0, time.UTC),
			DurationMs: 7,
		}},
		Pending: []pendingMigration{{Version: "20220124185322", Name: "add_name_to_animals"}},
		Unknown: []string{"20230101000000"},
	}

	require.NoError(t, printStatus(buf, report, config.FormatText))

	out := buf.String()
	assert.Contains(t, out, "Applied (1):")
	assert.Contains(t, out, "20220124143357  20220124143357_create_animals.up.sql  applied 2022-01-24T14:40:00Z (7ms)")
	assert.Contains(t, out, "Pending (1):")
	assert.Contains(t, out, "20220124185322  add_name_to_animals")
	assert.Contains(t, out, "Unknown (1)")
}

func TestPrintStatus_json(t *testing.T) {
	t.Parallel()

	buf := new(bytes.Buffer)
	report := buildStatusReport(embeddedMigrations(t), nil)

	require.NoError(t, printStatus(buf, report, config.FormatJSON))

	var decoded struct {
		Applied []json.RawMessage `json:"applied"`
		Pending []pendingMigration `json:"pending"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Empty(t, decoded.Applied)
	require.Len(t, decoded.Pending, 2)
	assert.Equal(t, "create_animals", decoded.Pending[0].Name)
	assert.NotContains(t, buf.String(), "unknown")
}

// fakeAppliedReader fails GetApplied when the table is missing, the way
// Postgres does for an unknown relation.
type fakeAppliedReader struct {
	exists    bool
	existsErr error
	applied   []tracker.AppliedMigration
}

func (f fakeAppliedReader) Exists(context.Context) (bool, error) {
	return f.exists, f.existsErr
}

func (f fakeAppliedReader) GetApplied(context.Context) ([]tracker.AppliedMigration, error) {
	if !f.exists {
		return nil, errors.New(`relation "schema_migrations" does not exist`)
	}

	return f.applied, nil
}

func TestReadApplied(t *testing.T) {
	t.Parallel()

	created := tracker.AppliedMigration{Version: "20220124143357", Status: tracker.StatusApplied}

	tests := []struct {
		name    string
		reader  fakeAppliedReader
		want    []tracker.AppliedMigration
		wantErr bool
	}{
		{name: "never migrated", reader: fakeAppliedReader{}},
		{
			name:   "first migration applied",
			reader: fakeAppliedReader{exists: true, applied: []tracker.AppliedMigration{created}},
			want:   []tracker.AppliedMigration{created},
		},
		{
			name:    "existence check fails",
			reader:  fakeAppliedReader{existsErr: errors.New("conn reset")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := readApplied(context.Background(), tt.reader)

			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrintPlan(t *testing.T) {
	t.Parallel()

	t.Run("nothing pending", func(t *testing.T) {
		t.Parallel()

		buf := new(bytes.Buffer)
		printPlan(buf, nil)
		assert.Contains(t, buf.String(), "Nothing to apply")
	})

	t.Run("blocked migration is counted", func(t *testing.T) {
		t.Parallel()

		buf := new(bytes.Buffer)
		printPlan(buf, []analyzer.AnalysisResult{
			{Migration: &migration.Migration{Version: "001", Name: "create_animals", DownSQL: "DROP TABLE animals;"}},
			{
				Migration:   &migration.Migration{Version: "002", Name: "index_animal_names"},
				MaxSeverity: analyzer.High,
				Findings:    []analyzer.Finding{{Severity: analyzer.High, Message: "Index locks writes"}},
			},
		})

		out := buf.String()
		assert.Contains(t, out, "Execution plan (2 migration(s)):")
		assert.Contains(t, out, "1. 001_create_animals  [SAFE]  reversible, 0 finding(s)")
		assert.Contains(t, out, "2. 002_index_animal_names  [HIGH]  irreversible, 1 finding(s)")
		assert.Contains(t, out, "- [HIGH] Index locks writes")
		assert.Contains(t, out, "1 migration(s) would block apply without --force.")
	})
}

func TestPrintVerify(t *testing.T) {
	t.Parallel()

	t.Run("match", func(t *testing.T) {
		t.Parallel()

		buf := new(bytes.Buffer)
		require.NoError(t, printVerify(buf, nil))
		assert.Contains(t, buf.String(), "matches the expected shape")
	})

	t.Run("mismatch", func(t *testing.T) {
		t.Parallel()

		buf := new(bytes.Buffer)
		actual := schema.AnimalsTable()
		actual.Columns = actual.Columns[:5]

		err := printVerify(buf, schema.Diff(schema.AnimalsTable(), actual))

		require.ErrorIs(t, err, errSchemaMismatch)
		assert.Contains(t, buf.String(), "differs from the expected shape")
		assert.Contains(t, buf.String(), "name")
	})
}

func newOwnerCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()

	cmd := &cobra.Command{}
	addOwnerFlags(cmd)
	require.NoError(t, cmd.Flags().Parse(args))

	return cmd
}

func TestOwnerFromFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		want    *animal.Owner
		wantErr error
	}{
		{name: "no flags means no owner"},
		{
			name: "full pair",
			args: []string{"--owner-type", "zoo", "--owner-id", "3"},
			want: &animal.Owner{Kind: animal.KindZoo, ID: 3},
		},
		{name: "type without id", args: []string{"--owner-type", "Person"}, wantErr: errOwnerPairIncomplete},
		{name: "id without type", args: []string{"--owner-id", "3"}, wantErr: errOwnerPairIncomplete},
		{
			name:    "unknown kind",
			args:    []string{"--owner-type", "Farm", "--owner-id", "3"},
			wantErr: animal.ErrUnknownOwnerKind,
		},
		{
			name:    "non-positive id",
			args:    []string{"--owner-type", "Shelter", "--owner-id", "0"},
			wantErr: animal.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			owner, err := ownerFromFlags(newOwnerCmd(t, tt.args...))

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, owner)
		})
	}
}

func newUpdateCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()

	cmd := &cobra.Command{}
	addUpdateFlags(cmd)
	cmd.Flags().String("format", "", "")
	require.NoError(t, cmd.Flags().Parse(args))

	return cmd
}

func TestUpdateFromFlags(t *testing.T) {
	t.Parallel()

	rex := "Rex"
	empty := ""

	tests := []struct {
		name    string
		args    []string
		want    animal.UpdateInput
		wantErr error
	}{
		{name: "rename", args: []string{"--name", "Rex"}, want: animal.UpdateInput{SetName: true, Name: &rex}},
		{
			name: "empty name is passed on for the service to reject",
			args: []string{"--name", ""},
			want: animal.UpdateInput{SetName: true, Name: &empty},
		},
		{name: "clear name", args: []string{"--clear-name"}, want: animal.UpdateInput{SetName: true}},
		{
			name: "reown",
			args: []string{"--owner-type", "shelter", "--owner-id", "9"},
			want: animal.UpdateInput{SetOwner: true, Owner: &animal.Owner{Kind: animal.KindShelter, ID: 9}},
		},
		{name: "detach owner", args: []string{"--no-owner"}, want: animal.UpdateInput{SetOwner: true}},
		{
			name: "rename and detach together",
			args: []string{"--name", "Rex", "--no-owner"},
			want: animal.UpdateInput{SetName: true, Name: &rex, SetOwner: true},
		},
		{name: "no flags", wantErr: errNothingToUpdate},
		{name: "name and clear-name", args: []string{"--name", "Rex", "--clear-name"}, wantErr: errConflictingFlags},
		{
			name:    "owner pair and no-owner",
			args:    []string{"--owner-type", "Zoo", "--owner-id", "3", "--no-owner"},
			wantErr: errConflictingFlags,
		},
		{name: "half an owner pair", args: []string{"--owner-id", "3"}, wantErr: errOwnerPairIncomplete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			in, err := updateFromFlags(newUpdateCmd(t, tt.args...))

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, in)
		})
	}
}

func TestParseAnimalID(t *testing.T) {
	t.Parallel()

	id, err := parseAnimalID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, raw := range []string{"0", "-1", "abc", ""} {
		_, err := parseAnimalID(raw)
		require.ErrorIs(t, err, animal.ErrInvalidInput, raw)
	}
}

func TestPrintAnimals(t *testing.T) {
	t.Parallel()

	name := "Rex"
	ts := time.Date(2022, 1, 24, 18, 53, 22, 0, time.UTC)
	animals := []animal.Animal{
		{ID: 1, Name: &name, Owner: &animal.Owner{Kind: animal.KindPerson, ID: 7}, CreatedAt: ts, UpdatedAt: ts},
		{ID: 2, CreatedAt: ts, UpdatedAt: ts},
	}

	t.Run("text", func(t *testing.T) {
		t.Parallel()

		buf := new(bytes.Buffer)
		require.NoError(t, printAnimals(buf, animals, config.FormatText))

		out := buf.String()
		assert.Contains(t, out, "1\tRex\towned by Person#7\tcreated 2022-01-24T18:53:22Z")
		assert.Contains(t, out, "2\t(unnamed)\tno owner")
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()

		buf := new(bytes.Buffer)
		require.NoError(t, printAnimals(buf, animals, config.FormatJSON))

		var decoded []animal.Animal
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		require.Len(t, decoded, 2)
		assert.Equal(t, "Rex", decoded[0].DisplayName())
		assert.Nil(t, decoded[1].Name)
		assert.Nil(t, decoded[1].Owner)
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		buf := new(bytes.Buffer)
		require.NoError(t, printAnimals(buf, nil, config.FormatText))
		assert.Contains(t, buf.String(), "No animals found.")

		buf.Reset()
		require.NoError(t, printAnimals(buf, nil, config.FormatJSON))
		assert.JSONEq(t, "[]", buf.String())
	})
}

func TestNewLogger_levels(t *testing.T) {
	t.Parallel()

	buf := new(bytes.Buffer)

	quiet := newLogger(buf, false)
	quiet.Debug().Msg("hidden")
	assert.Empty(t, buf.String())

	loud := newLogger(buf, true)
	loud.Debug().Str("table", "animals").Msg("shown")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "table=animals")
}

// Tests below write to the global AppConfig and must not be parallel.

func withConfig(t *testing.T, mutate func(cfg *config.Config)) {
	t.Helper()

	old := AppConfig
	cfg := config.New()
	mutate(cfg)
	AppConfig = cfg

	t.Cleanup(func() { AppConfig = old })
}

func newRollbackCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()

	cmd := &cobra.Command{}
	cmd.Flags().Int("steps", 1, "")
	cmd.Flags().String("target", "", "")
	cmd.Flags().Bool("dry-run", false, "")
	cmd.SetOut(new(bytes.Buffer))
	require.NoError(t, cmd.Flags().Parse(args))

	return cmd
}

func TestRunRollback_validation(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	withConfig(t, func(*config.Config) {})

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{name: "zero steps", args: []string{"--steps", "0"}, wantErr: executor.ErrInvalidSteps},
		{name: "steps and target", args: []string{"--steps", "2", "--target", "0"}, wantErr: errStepsAndTarget},
		{name: "no database url", wantErr: errDatabaseURLRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runRollback(newRollbackCmd(t, tt.args...), nil)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRunPlan_withoutDatabase_listsEmbedded(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	withConfig(t, func(*config.Config) {})

	buf := new(bytes.Buffer)
	cmd := &cobra.Command{}
	cmd.SetOut(buf)

	require.NoError(t, runPlan(cmd, nil))

	out := buf.String()
	assert.Contains(t, out, "No database configured")
	assert.Contains(t, out, "Execution plan (2 migration(s)):")
	assert.Contains(t, out, "1. 20220124143357_create_animals  [SAFE]")
	assert.Contains(t, out, "2. 20220124185322_add_name_to_animals  [SAFE]")
	assert.NotContains(t, out, "would block apply")
}

func TestRunPlan_withoutDatabase_flagsDangerousTestdata(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	withConfig(t, func(cfg *config.Config) { cfg.MigrationsDir = "./testdata/migrations" })

	buf := new(bytes.Buffer)
	cmd := &cobra.Command{}
	cmd.SetOut(buf)

	require.NoError(t, runPlan(cmd, nil))
	assert.Contains(t, buf.String(), "1 migration(s) would block apply without --force.")
}

func TestCommands_requireDatabaseURL(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	withConfig(t, func(*config.Config) {})

	tests := []struct {
		name string
		run  func(cmd *cobra.Command) error
	}{
		{name: "status", run: func(cmd *cobra.Command) error { return runStatus(cmd, nil) }},
		{name: "verify", run: func(cmd *cobra.Command) error { return runVerify(cmd, nil) }},
		{name: "animal show", run: func(cmd *cobra.Command) error { return runAnimalShow(cmd, []string{"1"}) }},
		{name: "animal delete", run: func(cmd *cobra.Command) error { return runAnimalDelete(cmd, []string{"1"}) }},
		{name: "animal create", run: func(cmd *cobra.Command) error { return runAnimalCreate(cmd, nil) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{}
			cmd.Flags().String("format", "", "")
			cmd.Flags().String("name", "", "")
			addOwnerFlags(cmd)
			cmd.SetOut(new(bytes.Buffer))

			require.ErrorIs(t, tt.run(cmd), errDatabaseURLRequired)
		})
	}
}

func TestRunAnimalUpdate_validatesBeforeConnecting(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	withConfig(t, func(*config.Config) {})

	require.ErrorIs(t, runAnimalUpdate(newUpdateCmd(t), []string{"7"}), errNothingToUpdate)
	require.ErrorIs(t, runAnimalUpdate(newUpdateCmd(t, "--clear-name"), []string{"0"}), animal.ErrInvalidInput)
	require.ErrorIs(t, runAnimalUpdate(newUpdateCmd(t, "--clear-name"), []string{"7"}), errDatabaseURLRequired)
}

func TestRunAnimalList_requiresOwner(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	withConfig(t, func(cfg *config.Config) { cfg.DatabaseURL = "postgres://zoo@localhost/animals" })

	cmd := &cobra.Command{}
	cmd.Flags().String("format", "", "")
	addOwnerFlags(cmd)

	require.ErrorIs(t, runAnimalList(cmd, nil), errOwnerPairIncomplete)
}

func TestRunStatus_unknownFormat(t *testing.T) { //nolint:paralleltest // writes global AppConfig
	withConfig(t, func(*config.Config) {})

	cmd := &cobra.Command{}
	cmd.Flags().String("format", "", "")
	require.NoError(t, cmd.Flags().Set("format", "yaml"))

	require.ErrorIs(t, runStatus(cmd, nil), errUnknownFormat)
}
