package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/TimurManjosov/godecider/internal/cli"
	"github.com/TimurManjosov/godecider/internal/client"
	"github.com/TimurManjosov/godecider/internal/decider"
	"github.com/TimurManjosov/godecider/internal/logging"
	"github.com/TimurManjosov/godecider/internal/store"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	profile    string
	configPath string
	sourceType string
	dsn        string
	table      string
	registry   string
	serverURL  string
	format     string
	quiet      bool
	verbose    bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "decider",
	Short: "Evaluate and inspect feature decisions",
	Long: `decider loads a feature configuration and answers decisions locally,
the same way the decider service does.

Examples:
  decider validate --config features.yaml
  decider choose dark_mode --config features.yaml --ctx user_id=alice
  decider choose --all --ctx user_id=alice --identifier user_id
  decider features --profile prod
  decider features --server http://localhost:8080
  decider dynamic --format json
  decider push features.yaml --dsn postgres://localhost/decider`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "Profile from ~/.decider/config.yaml")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Feature configuration file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&sourceType, "source", "", "Configuration source (file, postgres)")
	rootCmd.PersistentFlags().StringVar(&dsn, "dsn", "", "PostgreSQL connection string for the postgres source")
	rootCmd.PersistentFlags().StringVar(&table, "table", "", "Table holding feature definitions")
	rootCmd.PersistentFlags().StringVar(&registry, "registry", "", "Decision maker registry (default, extended)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Query a running decider server instead of loading configuration locally")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose output")
}

// resolveProfile merges flags, environment and the CLI config file.
func resolveProfile() (cli.Profile, error) {
	path, err := cli.GetConfigPath()
	if err != nil {
		return cli.Profile{}, err
	}
	cfg, err := cli.LoadConfig(path)
	if err != nil {
		return cli.Profile{}, err
	}
	return cli.ResolveProfile(cfg, profile, cli.Profile{
		Source:   sourceType,
		Path:     configPath,
		DSN:      dsn,
		Table:    table,
		Registry: registry,
	})
}

// openDecider builds a Decider from the resolved profile. The returned
// func closes the underlying source.
func openDecider(ctx context.Context) (*decider.Decider, func(), error) {
	p, err := resolveProfile()
	if err != nil {
		return nil, nil, fmt.Errorf("configuration error: %w", err)
	}

	src, err := store.NewSource(ctx, p.Source, p.Path, p.DSN, p.Table)
	if err != nil {
		return nil, nil, err
	}

	level := "warn"
	if verbose {
		level = "debug"
	}
	d, err := decider.Init(ctx, p.Registry, src, decider.WithLogger(logging.New(level, "console")))
	if err != nil {
		_ = src.Close()
		return nil, nil, err
	}
	return d, func() { _ = src.Close() }, nil
}

// remote returns an API client when --server is set.
func remote() *client.Client {
	if serverURL == "" {
		return nil
	}
	return client.NewClient(strings.TrimRight(serverURL, "/"))
}

func outputFormat() (cli.OutputFormat, error) {
	return cli.ParseFormat(format)
}
