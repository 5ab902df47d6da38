package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aqasim81/animals/internal/schema"
)

var errSchemaMismatch = errors.New("animals table does not match the expected shape")

var verifyCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "verify",
	Short: "Compare the live animals table with the expected shape",
	Long: `Read the animals table from information_schema and pg_indexes and
report missing or unexpected columns, type or nullability drift, and a
missing polymorphic index.`,
	RunE: runVerify,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig

	if err := requireDatabaseURL(cfg); err != nil {
		return err
	}

	ctx := commandContext(cmd)

	pool, err := connectDB(ctx, cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer pool.Close()

	actual, err := schema.Inspect(ctx, pool, schema.AnimalsTableName)
	if err != nil {
		return fmt.Errorf("inspecting %s: %w", schema.AnimalsTableName, err)
	}

	return printVerify(cmd.OutOrStdout(), schema.Diff(schema.AnimalsTable(), actual))
}

func printVerify(out io.Writer, mismatches []schema.Mismatch) error {
	if len(mismatches) == 0 {
		fmt.Fprintf(out, "Table %s matches the expected shape.\n", schema.AnimalsTableName)
		return nil
	}

	fmt.Fprintf(out, "Table %s differs from the expected shape:\n", schema.AnimalsTableName)

	for _, m := range mismatches {
		fmt.Fprintf(out, "  - %s\n", m)
	}

	return fmt.Errorf("%w: %d difference(s)", errSchemaMismatch, len(mismatches))
}
