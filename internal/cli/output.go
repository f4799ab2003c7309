package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/TimurManjosov/godecider/internal/decider"
	"github.com/TimurManjosov/godecider/internal/engine"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// OutputFormat specifies the output format for CLI commands
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// PrintFeatures outputs feature descriptions in the specified format
func PrintFeatures(w io.Writer, features []decider.FeatureInfo, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, map[string][]decider.FeatureInfo{"features": features})
	case FormatYAML:
		return printYAML(w, map[string][]decider.FeatureInfo{"features": features})
	case FormatTable:
		table := tablewriter.NewWriter(w)
		table.Header("Name", "Enabled", "Strategies", "Identifier", "Variants", "Owner")
		for _, f := range features {
			kind := strings.Join(f.Strategies, ",")
			if f.DynamicType != "" {
				kind += " (" + f.DynamicType + ")"
			}
			if err := table.Append(
				f.Name,
				strconv.FormatBool(f.Enabled),
				kind,
				f.Identifier,
				strings.Join(f.Variants, ","),
				f.Owner,
			); err != nil {
				return err
			}
		}
		return table.Render()
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintDecisions outputs decisions keyed by feature name in the specified format
func PrintDecisions(w io.Writer, decisions map[string]engine.Decision, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, map[string]map[string]engine.Decision{"decisions": decisions})
	case FormatYAML:
		return printYAML(w, map[string]map[string]engine.Decision{"decisions": decisions})
	case FormatTable:
		names := make([]string, 0, len(decisions))
		for name := range decisions {
			names = append(names, name)
		}
		sort.Strings(names)

		table := tablewriter.NewWriter(w)
		table.Header("Feature", "Enabled", "Variant", "Decision Maker", "Identifier", "Bucket")
		for _, name := range names {
			d := decisions[name]
			bucket := "-"
			if d.Exposure.Bucketed() {
				bucket = strconv.FormatFloat(d.Exposure.Bucket, 'f', 4, 64)
			}
			identifier := d.Exposure.Identifier
			if d.Exposure.IdentifierValue != "" {
				identifier += "=" + d.Exposure.IdentifierValue
			}
			if err := table.Append(
				name,
				strconv.FormatBool(d.Enabled),
				d.Variant,
				d.Exposure.DecisionMaker,
				identifier,
				bucket,
			); err != nil {
				return err
			}
		}
		return table.Render()
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintDecision outputs a single decision in the specified format
func PrintDecision(w io.Writer, d engine.Decision, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, d)
	case FormatYAML:
		return printYAML(w, d)
	default:
		return PrintDecisions(w, map[string]engine.Decision{d.Feature: d}, format)
	}
}

// PrintDynamic outputs dynamic config values in the specified format
func PrintDynamic(w io.Writer, configs map[string]any, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(w, map[string]map[string]any{"configs": configs})
	case FormatYAML:
		return printYAML(w, map[string]map[string]any{"configs": configs})
	case FormatTable:
		names := make([]string, 0, len(configs))
		for name := range configs {
			names = append(names, name)
		}
		sort.Strings(names)

		table := tablewriter.NewWriter(w)
		table.Header("Name", "Value")
		for _, name := range names {
			value, err := json.Marshal(configs[name])
			if err != nil {
				return err
			}
			if err := table.Append(name, string(value)); err != nil {
				return err
			}
		}
		return table.Render()
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func printYAML(w io.Writer, data any) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(data)
}
