package commands

import (
	"context"
	"fmt"

	"github.com/TimurManjosov/godecider/internal/cli"
	"github.com/TimurManjosov/godecider/internal/decider"
	"github.com/spf13/cobra"
)

var featuresCmd = &cobra.Command{
	Use:   "features [name]",
	Short: "List configured features",
	Long: `List every configured feature, or describe one.

Examples:
  decider features --config features.yaml
  decider features checkout_experiment --format yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outFormat, err := outputFormat()
		if err != nil {
			return err
		}

		var name string
		if len(args) == 1 {
			name = args[0]
		}
		features, err := listFeatures(cmd.Context(), name)
		if err != nil {
			return err
		}

		if quiet {
			return nil
		}
		if len(features) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No features found")
			return nil
		}
		return cli.PrintFeatures(cmd.OutOrStdout(), features, outFormat)
	},
}

var dynamicCmd = &cobra.Command{
	Use:   "dynamic",
	Short: "Print current dynamic config values",
	Long: `Print the value of every dynamic config.

Examples:
  decider dynamic --config features.yaml --format json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		outFormat, err := outputFormat()
		if err != nil {
			return err
		}

		configs, err := dynamicConfigs(cmd.Context())
		if err != nil {
			return err
		}
		if quiet {
			return nil
		}
		return cli.PrintDynamic(cmd.OutOrStdout(), configs, outFormat)
	},
}

// listFeatures returns all features, or only the named one, from the server
// or the local configuration.
func listFeatures(ctx context.Context, name string) ([]decider.FeatureInfo, error) {
	if c := remote(); c != nil {
		if name != "" {
			info, err := c.Feature(ctx, name)
			if err != nil {
				return nil, err
			}
			return []decider.FeatureInfo{info}, nil
		}
		return c.Features(ctx)
	}

	d, closeSource, err := openDecider(ctx)
	if err != nil {
		return nil, err
	}
	defer closeSource()

	if name != "" {
		info, err := d.Feature(name)
		if err != nil {
			return nil, err
		}
		return []decider.FeatureInfo{info}, nil
	}
	return d.Features(), nil
}

func dynamicConfigs(ctx context.Context) (map[string]any, error) {
	if c := remote(); c != nil {
		return c.DynamicConfigs(ctx)
	}

	d, closeSource, err := openDecider(ctx)
	if err != nil {
		return nil, err
	}
	defer closeSource()
	return d.DynamicConfigs(), nil
}

func init() {
	rootCmd.AddCommand(featuresCmd)
	rootCmd.AddCommand(dynamicCmd)
}
