package commands

import (
	"context"
	"fmt"
	"os"

	mydb "github.com/TimurManjosov/godecider/internal/db"
	"github.com/TimurManjosov/godecider/internal/engine"
	"github.com/TimurManjosov/godecider/internal/rules"
	"github.com/TimurManjosov/godecider/internal/snapshot"
	"github.com/TimurManjosov/godecider/internal/store"
	"github.com/spf13/cobra"
)

var pushCreateTable bool

var pushCmd = &cobra.Command{
	Use:   "push <file>",
	Short: "Validate a feature file and store it in PostgreSQL",
	Long: `Compile every feature of the file and, when all of them are valid,
upsert them into the features table. Running deciders watching the table
reload automatically.

Examples:
  decider push features.yaml --dsn postgres://localhost/decider
  decider push features.json --profile prod --create-table`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		doc, err := rules.Parse(data, rules.FormatFromPath(args[0]))
		if err != nil {
			return err
		}

		p, err := resolveProfileForPush()
		if err != nil {
			return err
		}
		reg, err := engine.LookupRegistry(p.registry)
		if err != nil {
			return err
		}
		if _, err := snapshot.Build(reg, doc); err != nil {
			return fmt.Errorf("refusing to push invalid configuration: %w", err)
		}

		ctx := context.Background()
		pool, err := mydb.NewPool(ctx, p.dsn)
		if err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		src := store.NewPostgresSource(pool, p.table, "")
		defer src.Close()

		if pushCreateTable {
			if err := src.EnsureSchema(ctx); err != nil {
				return fmt.Errorf("failed to create table: %w", err)
			}
		}
		if err := src.Put(ctx, doc.Features); err != nil {
			return fmt.Errorf("failed to store features: %w", err)
		}

		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "Pushed %d features to %s\n", len(doc.Features), src.Describe())
		}
		return nil
	},
}

type pushTarget struct {
	dsn      string
	table    string
	registry string
}

// resolveProfileForPush reads connection settings. The feature file comes
// from the argument, so the source is always postgres.
func resolveProfileForPush() (pushTarget, error) {
	sourceType = "postgres"
	p, err := resolveProfile()
	if err != nil {
		return pushTarget{}, fmt.Errorf("configuration error: %w", err)
	}
	if p.DSN == "" {
		return pushTarget{}, fmt.Errorf("a database DSN is required: pass --dsn or set DB_DSN")
	}
	return pushTarget{dsn: p.DSN, table: p.Table, registry: p.Registry}, nil
}

func init() {
	rootCmd.AddCommand(pushCmd)

	pushCmd.Flags().BoolVar(&pushCreateTable, "create-table", false, "Create the features table if it does not exist")
}
