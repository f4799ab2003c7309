package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/TimurManjosov/godecider/internal/cli"
	"github.com/TimurManjosov/godecider/internal/client"
	"github.com/TimurManjosov/godecider/internal/engine"
	"github.com/spf13/cobra"
)

var (
	chooseCtxPairs   []string
	chooseCtxJSON    string
	chooseAll        bool
	chooseIdentifier string
	chooseNoExpose   bool
)

var chooseCmd = &cobra.Command{
	Use:   "choose [feature...]",
	Short: "Decide one or more features for a context",
	Long: `Evaluate features against a request context built from --context JSON
and --ctx key=value pairs.

Examples:
  decider choose dark_mode --ctx user_id=alice
  decider choose checkout_experiment dark_mode --context '{"user_id": "qa_tester"}'
  decider choose --all --ctx user_id=alice --identifier user_id --format json
  decider choose dark_mode --server http://localhost:8080 --ctx user_id=alice
  decider choose checkout_experiment --server http://localhost:8080 --ctx user_id=alice --no-expose`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if chooseAll == (len(args) > 0) {
			return fmt.Errorf("pass either feature names or --all")
		}
		outFormat, err := outputFormat()
		if err != nil {
			return err
		}

		values, err := cli.ParseContext(chooseCtxJSON, chooseCtxPairs)
		if err != nil {
			return err
		}

		var decisions map[string]engine.Decision
		var chooseErr error
		if c := remote(); c != nil {
			decisions, chooseErr = chooseRemote(cmd.Context(), c, args, values)
		} else {
			decisions, chooseErr = chooseLocal(cmd, args, values)
		}

		if quiet || len(decisions) == 0 {
			return chooseErr
		}
		if len(args) == 1 {
			return cli.PrintDecision(cmd.OutOrStdout(), decisions[args[0]], outFormat)
		}
		if err := cli.PrintDecisions(cmd.OutOrStdout(), decisions, outFormat); err != nil {
			return err
		}
		return chooseErr
	},
}

func init() {
	rootCmd.AddCommand(chooseCmd)

	chooseCmd.Flags().StringArrayVar(&chooseCtxPairs, "ctx", nil, "Context attribute as key=value (repeatable)")
	chooseCmd.Flags().StringVar(&chooseCtxJSON, "context", "", "Context as a JSON object")
	chooseCmd.Flags().BoolVar(&chooseAll, "all", false, "Decide every feature except dynamic configs")
	chooseCmd.Flags().StringVar(&chooseIdentifier, "identifier", "", "With --all, only features bucketing on this identifier kind")
	chooseCmd.Flags().BoolVar(&chooseNoExpose, "no-expose", false, "With --server, do not log exposure events (see the expose command)")
}

func chooseLocal(cmd *cobra.Command, names []string, values map[string]any) (map[string]engine.Decision, error) {
	ctx, dropped := engine.SanitizeContext(values)
	if len(dropped) > 0 && !quiet {
		fmt.Fprintf(cmd.ErrOrStderr(), "ignoring unsupported context values: %v\n", dropped)
	}

	d, closeSource, err := openDecider(cmd.Context())
	if err != nil {
		return nil, err
	}
	defer closeSource()

	if chooseAll {
		return d.ChooseAll(ctx, chooseIdentifier)
	}
	decisions := make(map[string]engine.Decision, len(names))
	var errs []error
	for _, name := range names {
		dec, err := d.Choose(name, ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		decisions[name] = dec
	}
	return decisions, errors.Join(errs...)
}

func chooseRemote(ctx context.Context, c *client.Client, names []string, values map[string]any) (map[string]engine.Decision, error) {
	if chooseAll {
		chooseAllFn := c.ChooseAll
		if chooseNoExpose {
			chooseAllFn = c.ChooseAllWithoutExpose
		}
		result, err := chooseAllFn(ctx, values, chooseIdentifier)
		if err != nil {
			return nil, err
		}
		var errs []error
		for _, msg := range result.Errors {
			errs = append(errs, errors.New(msg))
		}
		return result.Decisions, errors.Join(errs...)
	}
	chooseFn := c.Choose
	if chooseNoExpose {
		chooseFn = c.ChooseWithoutExpose
	}
	decisions := make(map[string]engine.Decision, len(names))
	var errs []error
	for _, name := range names {
		dec, err := chooseFn(ctx, name, values)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		decisions[name] = dec
	}
	return decisions, errors.Join(errs...)
}
