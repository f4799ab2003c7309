package engine

import "github.com/TimurManjosov/godecider/internal/rollout"

// Names reported in Exposure.DecisionMaker when no strategy made the decision.
const (
	MakerDefault  = "default"
	MakerInactive = "inactive"
	MakerExpose   = "expose"
)

// Decision is the result of evaluating one feature for one Context.
// Variant is empty when the feature has no variant for this request.
type Decision struct {
	Feature  string   `json:"feature" yaml:"feature"`
	Enabled  bool     `json:"enabled" yaml:"enabled"`
	Variant  string   `json:"variant,omitempty" yaml:"variant,omitempty"`
	Value    any      `json:"value,omitempty" yaml:"value,omitempty"`
	Exposure Exposure `json:"exposure" yaml:"exposure"`
}

// HasVariant reports whether a variant was assigned.
func (d Decision) HasVariant() bool { return d.Variant != "" }

// Exposure is the event payload describing how a decision was reached.
// Bucket is rollout.NoBucket when the decision did not use bucketing.
type Exposure struct {
	DecisionMaker   string  `json:"decision_maker" yaml:"decision_maker"`
	Identifier      string  `json:"identifier,omitempty" yaml:"identifier,omitempty"`
	IdentifierValue string  `json:"identifier_value,omitempty" yaml:"identifier_value,omitempty"`
	Bucket          float64 `json:"bucket" yaml:"bucket"`
	ExperimentID    int64   `json:"experiment_id,omitempty" yaml:"experiment_id,omitempty"`
	Version         string  `json:"version,omitempty" yaml:"version,omitempty"`
	Owner           string  `json:"owner,omitempty" yaml:"owner,omitempty"`
	EmitEvent       bool    `json:"emit_event" yaml:"emit_event"`
	StartTS         int64   `json:"start_ts,omitempty" yaml:"start_ts,omitempty"`
	StopTS          int64   `json:"stop_ts,omitempty" yaml:"stop_ts,omitempty"`
}

// Bucketed reports whether the decision came from a bucket.
func (e Exposure) Bucketed() bool { return e.Bucket >= 0 }

func bucketedDecision(enabled bool, variant, kind, value string, bucket float64) *Decision {
	return &Decision{
		Enabled: enabled,
		Variant: variant,
		Exposure: Exposure{
			Identifier:      kind,
			IdentifierValue: value,
			Bucket:          bucket,
		},
	}
}

func staticDecision(enabled bool, variant string) *Decision {
	return &Decision{
		Enabled:  enabled,
		Variant:  variant,
		Exposure: Exposure{Bucket: rollout.NoBucket},
	}
}
