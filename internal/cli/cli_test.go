package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/TimurManjosov/godecider/internal/decider"
	"github.com/TimurManjosov/godecider/internal/engine"
	"github.com/TimurManjosov/godecider/internal/rollout"
)

func sampleDecisions() map[string]engine.Decision {
	return map[string]engine.Decision{
		"dark_mode": {
			Feature: "dark_mode",
			Enabled: true,
			Exposure: engine.Exposure{
				DecisionMaker:   engine.KindRange,
				Identifier:      engine.UserID,
				IdentifierValue: "alice",
				Bucket:          0.1234,
			},
		},
		"banner": {
			Feature:  "banner",
			Exposure: engine.Exposure{DecisionMaker: engine.MakerDefault, Bucket: rollout.NoBucket},
		},
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"table", "JSON", " yaml "} {
		if _, err := ParseFormat(s); err != nil {
			t.Errorf("ParseFormat(%q) failed: %v", s, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("Expected error for xml")
	}
}

func TestPrintDecisions_Table(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintDecisions(&buf, sampleDecisions(), FormatTable); err != nil {
		t.Fatalf("PrintDecisions() failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"dark_mode", "user_id=alice", "0.1234", "banner", "default"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "banner") > strings.Index(out, "dark_mode") {
		t.Error("rows should be sorted by feature name")
	}
}

func TestPrintDecisions_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintDecisions(&buf, sampleDecisions(), FormatJSON); err != nil {
		t.Fatalf("PrintDecisions() failed: %v", err)
	}
	var got struct {
		Decisions map[string]engine.Decision `json:"decisions"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if !got.Decisions["dark_mode"].Enabled {
		t.Errorf("unexpected output %+v", got)
	}
}

func TestPrintDecision_YAML(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintDecision(&buf, sampleDecisions()["dark_mode"], FormatYAML); err != nil {
		t.Fatalf("PrintDecision() failed: %v", err)
	}
	if !strings.Contains(buf.String(), "decision_maker: range") {
		t.Errorf("unexpected YAML:\n%s", buf.String())
	}
}

func TestPrintFeatures(t *testing.T) {
	features := []decider.FeatureInfo{
		{Name: "checkout_experiment", Enabled: true, Strategies: []string{"override", "multi_variant"},
			Identifier: "user_id", Variants: []string{"control", "treatment"}, Owner: "payments"},
		{Name: "max_upload_mb", Enabled: true, Strategies: []string{"dynamic_config"}, DynamicType: "integer"},
	}

	var buf bytes.Buffer
	if err := PrintFeatures(&buf, features, FormatTable); err != nil {
		t.Fatalf("PrintFeatures() failed: %v", err)
	}
	for _, want := range []string{"override,multi_variant", "control,treatment", "dynamic_config (integer)"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("table output missing %q:\n%s", want, buf.String())
		}
	}

	if err := PrintFeatures(&buf, features, OutputFormat("xml")); err == nil {
		t.Error("Expected error for unsupported format")
	}
}

func TestPrintDynamic(t *testing.T) {
	var buf bytes.Buffer
	configs := map[string]any{"max_upload_mb": int64(25), "search": map[string]any{"boost": 1.5}}
	if err := PrintDynamic(&buf, configs, FormatTable); err != nil {
		t.Fatalf("PrintDynamic() failed: %v", err)
	}
	if !strings.Contains(buf.String(), `{"boost":1.5}`) {
		t.Errorf("map values should be printed as JSON:\n%s", buf.String())
	}
}

func TestParseContext(t *testing.T) {
	got, err := ParseContext(`{"user_id": "alice", "country_code": "DE"}`,
		[]string{"user_id=bob", "account_age=42", "score=0.5", "beta=true", `zip="01234"`, "app_version=1.2.3"})
	if err != nil {
		t.Fatalf("ParseContext() failed: %v", err)
	}

	want := map[string]any{
		"user_id":      "bob",
		"country_code": "DE",
		"account_age":  int64(42),
		"score":        0.5,
		"beta":         true,
		"zip":          "01234",
		"app_version":  "1.2.3",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %#v, want %#v", k, got[k], v)
		}
	}
}

func TestParseContext_PairTyping(t *testing.T) {
	tests := []struct {
		pair string
		want any
	}{
		{"user_id=007", "007"},
		{"user_id=7", int64(7)},
		{"user_id=-12", int64(-12)},
		{"n=1e3", "1e3"},
		{"n=2.0", "2.0"},
		{"n=0.25", 0.25},
		{"n=+5", "+5"},
		{"n=NaN", "NaN"},
		{"n=Inf", "Inf"},
		{`n="42"`, "42"},
		{"flag=true", true},
		{"flag=True", "True"},
		{"app_version=2", "2"},
		{"app_version=2.0.0", "2.0.0"},
		{`app_version="3"`, "3"},
	}
	for _, tt := range tests {
		t.Run(tt.pair, func(t *testing.T) {
			got, err := ParseContext("", []string{tt.pair})
			if err != nil {
				t.Fatalf("ParseContext() failed: %v", err)
			}
			key, _, _ := strings.Cut(tt.pair, "=")
			if got[key] != tt.want {
				t.Errorf("Expected %#v, got %#v", tt.want, got[key])
			}
		})
	}
}

func TestParseContext_Errors(t *testing.T) {
	if _, err := ParseContext(`[1, 2]`, nil); err == nil {
		t.Error("Expected error for non-object JSON")
	}
	if _, err := ParseContext("", []string{"no-equals"}); err == nil {
		t.Error("Expected error for pair without '='")
	}
	if _, err := ParseContext("", []string{"=value"}); err == nil {
		t.Error("Expected error for empty key")
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	missing, err := LoadConfig(path)
	if err != nil || len(missing.Profiles) != 0 {
		t.Fatalf("missing file should load as empty config: %+v, %v", missing, err)
	}

	cfg := &Config{
		DefaultProfile: "local",
		Profiles: map[string]Profile{
			"local": {Source: "file", Path: "features.yaml"},
			"prod":  {Source: "postgres", DSN: "postgres://db/decider", Registry: "extended"},
		},
	}
	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig() failed: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if loaded.DefaultProfile != "local" || loaded.Profiles["prod"].Registry != "extended" {
		t.Errorf("unexpected config %+v", loaded)
	}
}

func TestResolveProfile(t *testing.T) {
	for _, key := range []string{"DECIDER_SOURCE", "DECIDER_CONFIG_PATH", "DB_DSN", "DECIDER_TABLE", "DECIDER_REGISTRY"} {
		t.Setenv(key, "")
	}
	cfg := &Config{
		DefaultProfile: "local",
		Profiles: map[string]Profile{
			"local": {Source: "file", Path: "features.yaml", Registry: "default"},
			"prod":  {Source: "postgres", DSN: "postgres://db/decider"},
		},
	}

	p, err := ResolveProfile(cfg, "", Profile{})
	if err != nil || p.Path != "features.yaml" {
		t.Errorf("default profile not used: %+v, %v", p, err)
	}

	t.Setenv("DECIDER_REGISTRY", "extended")
	p, err = ResolveProfile(cfg, "prod", Profile{Table: "flags"})
	if err != nil {
		t.Fatalf("ResolveProfile() failed: %v", err)
	}
	if p.Source != "postgres" || p.Table != "flags" || p.Registry != "extended" {
		t.Errorf("unexpected merge %+v", p)
	}

	if _, err := ResolveProfile(cfg, "staging", Profile{}); err == nil {
		t.Error("Expected error for unknown profile")
	}
	if _, err := ResolveProfile(&Config{}, "", Profile{}); err == nil {
		t.Error("Expected error when no feature file is configured")
	}
}
