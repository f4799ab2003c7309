package commands

import (
	"fmt"

	"github.com/TimurManjosov/godecider/internal/cli"
	"github.com/TimurManjosov/godecider/internal/engine"
	"github.com/spf13/cobra"
)

var (
	exposeCtxPairs []string
	exposeCtxJSON  string
)

var exposeCmd = &cobra.Command{
	Use:   "expose <feature> <variant>",
	Short: "Record the exposure of a variant chosen earlier",
	Long: `Record that a variant was shown, after choosing it with --no-expose.

With --server the exposure event is written by the server and its event id
is printed. Without --server the exposure payload is printed instead.

Examples:
  decider expose checkout_experiment treatment --server http://localhost:8080 --ctx user_id=alice
  decider expose checkout_experiment treatment --config features.yaml --ctx user_id=alice --format json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		feature, variant := args[0], args[1]
		outFormat, err := outputFormat()
		if err != nil {
			return err
		}
		values, err := cli.ParseContext(exposeCtxJSON, exposeCtxPairs)
		if err != nil {
			return err
		}

		if c := remote(); c != nil {
			eventID, err := c.Expose(cmd.Context(), feature, variant, values)
			if err != nil {
				return err
			}
			if quiet {
				return nil
			}
			if eventID == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "No exposure event written for %s\n", feature)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exposed %s=%s (event %s)\n", feature, variant, eventID)
			return nil
		}

		d, closeSource, err := openDecider(cmd.Context())
		if err != nil {
			return err
		}
		defer closeSource()

		ctx, _ := engine.SanitizeContext(values)
		dec, err := d.Expose(feature, variant, ctx)
		if err != nil {
			return err
		}
		if quiet {
			return nil
		}
		if !dec.Exposure.EmitEvent {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s does not emit exposure events\n", feature)
		}
		return cli.PrintDecision(cmd.OutOrStdout(), dec, outFormat)
	},
}

func init() {
	rootCmd.AddCommand(exposeCmd)

	exposeCmd.Flags().StringArrayVar(&exposeCtxPairs, "ctx", nil, "Context attribute as key=value (repeatable)")
	exposeCmd.Flags().StringVar(&exposeCtxJSON, "context", "", "Context as a JSON object")
}
