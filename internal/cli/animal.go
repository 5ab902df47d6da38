package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/aqasim81/animals/internal/animal"
	"github.com/aqasim81/animals/internal/config"
)

var (
	errOwnerPairIncomplete = errors.New("--owner-type and --owner-id must be given together")
	errConflictingFlags    = errors.New("conflicting flags")
	errNothingToUpdate     = errors.New("nothing to update: pass --name, --clear-name, --owner-type with --owner-id, or --no-owner")
)

var animalCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "animal",
	Short: "Create, list, update and delete animals",
}

var animalCreateCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "create",
	Short: "Insert an animal, optionally named and owned",
	Args:  cobra.NoArgs,
	RunE:  runAnimalCreate,
}

var animalListCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "list",
	Short: "List the animals of one owner",
	Args:  cobra.NoArgs,
	RunE:  runAnimalList,
}

var animalShowCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "show ID",
	Short: "Show one animal",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnimalShow,
}

var animalUpdateCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "update ID",
	Short: "Rename an animal or change its owner",
	Long: `Change the name and the owner of one animal in a single write that
bumps updated_at. --clear-name removes the name and --no-owner sets both
animalable columns to NULL.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnimalUpdate,
}

var animalDeleteCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "delete ID",
	Short: "Delete one animal",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnimalDelete,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	animalCreateCmd.Flags().String("name", "", "animal name (omit for an unnamed animal)")
	addOwnerFlags(animalCreateCmd)
	addOwnerFlags(animalListCmd)
	addUpdateFlags(animalUpdateCmd)

	for _, c := range []*cobra.Command{animalCreateCmd, animalListCmd, animalShowCmd, animalUpdateCmd} {
		c.Flags().String("format", "", "output format (text, json); defaults to the configured format")
	}

	animalCmd.AddCommand(animalCreateCmd, animalListCmd, animalShowCmd, animalUpdateCmd, animalDeleteCmd)
	rootCmd.AddCommand(animalCmd)
}

func addOwnerFlags(c *cobra.Command) {
	c.Flags().String("owner-type", "", "owner kind (Person, Shelter, Zoo)")
	c.Flags().Int64("owner-id", 0, "owner id")
}

func addUpdateFlags(c *cobra.Command) {
	c.Flags().String("name", "", "new name")
	c.Flags().Bool("clear-name", false, "remove the name")
	addOwnerFlags(c)
	c.Flags().Bool("no-owner", false, "detach the animal from its owner")
}

// updateFromFlags turns the update flags into an UpdateInput. Each field
// has a set form and a clear form, and giving both is an error.
func updateFromFlags(cmd *cobra.Command) (animal.UpdateInput, error) {
	var in animal.UpdateInput

	nameSet := cmd.Flags().Changed("name")
	clearName, _ := cmd.Flags().GetBool("clear-name")

	if nameSet && clearName {
		return in, fmt.Errorf("%w: --name and --clear-name", errConflictingFlags)
	}

	if nameSet {
		name, _ := cmd.Flags().GetString("name")
		in.Name = &name
	}

	in.SetName = nameSet || clearName

	owner, err := ownerFromFlags(cmd)
	if err != nil {
		return in, err
	}

	noOwner, _ := cmd.Flags().GetBool("no-owner")

	if owner != nil && noOwner {
		return in, fmt.Errorf("%w: owner pair and --no-owner", errConflictingFlags)
	}

	in.Owner = owner
	in.SetOwner = owner != nil || noOwner

	if !in.SetName && !in.SetOwner {
		return in, errNothingToUpdate
	}

	return in, nil
}

// ownerFromFlags returns nil when neither owner flag is set.
func ownerFromFlags(cmd *cobra.Command) (*animal.Owner, error) {
	typeSet := cmd.Flags().Changed("owner-type")
	idSet := cmd.Flags().Changed("owner-id")

	if !typeSet && !idSet {
		return nil, nil //nolint:nilnil // no owner requested
	}

	if typeSet != idSet {
		return nil, errOwnerPairIncomplete
	}

	rawKind, _ := cmd.Flags().GetString("owner-type")
	id, _ := cmd.Flags().GetInt64("owner-id")

	kind, err := animal.ParseOwnerKind(rawKind)
	if err != nil {
		return nil, err
	}

	owner := animal.Owner{Kind: kind, ID: id}
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	return &owner, nil
}

func outputFormat(cmd *cobra.Command) (string, error) {
	format, _ := cmd.Flags().GetString("format")
	if format == "" {
		format = AppConfig.Format
	}

	if format != config.FormatText && format != config.FormatJSON {
		return "", fmt.Errorf("%w: %q", errUnknownFormat, format)
	}

	return format, nil
}

func parseAnimalID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: animal id must be a positive integer, got %q", animal.ErrInvalidInput, raw)
	}

	return id, nil
}

// withAnimalService connects, runs fn against a Postgres-backed service,
// and closes the pool. Owners are checked against the default registry.
func withAnimalService(cmd *cobra.Command, fn func(svc *animal.Service) error) error {
	cfg := AppConfig

	if err := requireDatabaseURL(cfg); err != nil {
		return err
	}

	ctx := commandContext(cmd)

	pool, err := connectDB(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(animal.NewService(animal.NewPostgresRepository(pool),
		animal.WithOwnerRegistry(animal.NewDefaultOwnerRegistry()),
		animal.WithLogger(logger),
	))
}

func runAnimalCreate(cmd *cobra.Command, _ []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	owner, err := ownerFromFlags(cmd)
	if err != nil {
		return err
	}

	in := animal.CreateInput{Owner: owner}

	if cmd.Flags().Changed("name") {
		name, _ := cmd.Flags().GetString("name")
		in.Name = &name
	}

	return withAnimalService(cmd, func(svc *animal.Service) error {
		a, err := svc.Create(commandContext(cmd), in)
		if err != nil {
			return err
		}

		return printAnimals(cmd.OutOrStdout(), []animal.Animal{a}, format)
	})
}

func runAnimalList(cmd *cobra.Command, _ []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	owner, err := ownerFromFlags(cmd)
	if err != nil {
		return err
	}

	if owner == nil {
		return errOwnerPairIncomplete
	}

	return withAnimalService(cmd, func(svc *animal.Service) error {
		animals, err := svc.ListByOwner(commandContext(cmd), *owner)
		if err != nil {
			return err
		}

		return printAnimals(cmd.OutOrStdout(), animals, format)
	})
}

func runAnimalShow(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	id, err := parseAnimalID(args[0])
	if err != nil {
		return err
	}

	return withAnimalService(cmd, func(svc *animal.Service) error {
		a, err := svc.Get(commandContext(cmd), id)
		if err != nil {
			return err
		}

		return printAnimals(cmd.OutOrStdout(), []animal.Animal{a}, format)
	})
}

func runAnimalUpdate(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	id, err := parseAnimalID(args[0])
	if err != nil {
		return err
	}

	in, err := updateFromFlags(cmd)
	if err != nil {
		return err
	}

	return withAnimalService(cmd, func(svc *animal.Service) error {
		a, err := svc.Update(commandContext(cmd), id, in)
		if err != nil {
			return err
		}

		return printAnimals(cmd.OutOrStdout(), []animal.Animal{a}, format)
	})
}

func runAnimalDelete(cmd *cobra.Command, args []string) error {
	id, err := parseAnimalID(args[0])
	if err != nil {
		return err
	}

	return withAnimalService(cmd, func(svc *animal.Service) error {
		if err := svc.Delete(commandContext(cmd), id); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Deleted animal %d.\n", id)

		return nil
	})
}

func printAnimals(out io.Writer, animals []animal.Animal, format string) error {
	if format == config.FormatJSON {
		if animals == nil {
			animals = []animal.Animal{}
		}

		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		if err := enc.Encode(animals); err != nil {
			return fmt.Errorf("encoding animals: %w", err)
		}

		return nil
	}

	if len(animals) == 0 {
		fmt.Fprintln(out, "No animals found.")
		return nil
	}

	for _, a := range animals {
		name := a.DisplayName()
		if a.Name == nil {
			name = "(unnamed)"
		}

		owner := "no owner"
		if a.Owner != nil {
			owner = "owned by " + a.Owner.String()
		}

		fmt.Fprintf(out, "%d\t%s\t%s\tcreated %s\tupdated %s\n",
			a.ID, name, owner, a.CreatedAt.Format(time.RFC3339), a.UpdatedAt.Format(time.RFC3339))
	}

	return nil
}
