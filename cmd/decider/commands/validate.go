package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/TimurManjosov/godecider/internal/rules"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a feature configuration",
	Long: `Load the configuration and compile every feature. Exits non-zero and
names the failing feature and chain position when anything is invalid.

Examples:
  decider validate --config features.yaml
  decider validate --config features.yaml --registry extended`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, closeSource, err := openDecider(context.Background())
		if err != nil {
			var fe *rules.FeatureError
			if errors.As(err, &fe) && !quiet {
				fmt.Fprintf(cmd.ErrOrStderr(), "invalid feature %q", fe.Feature)
				if fe.Index >= 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), " at chain[%d]", fe.Index)
				}
				fmt.Fprintln(cmd.ErrOrStderr())
			}
			return err
		}
		defer closeSource()

		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "OK: %d features from %s (registry %s, etag %s)\n",
				len(d.Features()), d.Source(), d.RegistryID(), d.ETag())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
