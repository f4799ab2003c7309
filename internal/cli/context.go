package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/TimurManjosov/godecider/internal/engine"
)

// ParseContext builds request attributes from a JSON object and key=value
// pairs. Pairs override JSON keys. A pair value becomes a number only when it
// is written in canonical form, so 42 and 0.5 are numbers while 007, 1e3 and
// 2.0 stay strings. true and false become booleans. A value in double quotes
// and any app_version value are always strings. Use the JSON object for
// anything else.
func ParseContext(jsonObject string, pairs []string) (map[string]any, error) {
	out := make(map[string]any)

	if strings.TrimSpace(jsonObject) != "" {
		dec := json.NewDecoder(bytes.NewReader([]byte(jsonObject)))
		dec.UseNumber()
		if err := dec.Decode(&out); err != nil {
			return nil, fmt.Errorf("invalid context JSON: %w", err)
		}
	}

	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid context pair %q: expected key=value", pair)
		}
		if key == engine.AppVersion {
			out[key] = unquote(raw)
			continue
		}
		out[key] = pairValue(raw)
	}
	return out, nil
}

func unquote(raw string) string {
	if len(raw) >= 2 && strings.HasPrefix(raw, `"`) && strings.HasSuffix(raw, `"`) {
		return raw[1 : len(raw)-1]
	}
	return raw
}

func pairValue(raw string) any {
	if s := unquote(raw); s != raw {
		return s
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil && strconv.FormatInt(i, 10) == raw {
		return i
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) && strconv.FormatFloat(f, 'f', -1, 64) == raw {
		return f
	}
	switch raw {
	case "true":
		return true
	case "false":
		return false
	}
	return raw
}
