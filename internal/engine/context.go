package engine

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
)

// Well-known identifier kinds. Any other key is accepted as a custom attribute.
const (
	UserID       = "user_id"
	DeviceID     = "device_id"
	CanonicalURL = "canonical_url"
	CountryCode  = "country_code"
	SubredditID  = "subreddit_id"
	AdAccountID  = "ad_account_id"
	BusinessID   = "business_id"
	Locale       = "locale"
	AppVersion   = "app_version"
)

// BucketingIdentifiers lists the identifier kinds usable as a ChooseAll filter.
var BucketingIdentifiers = []string{UserID, DeviceID, CanonicalURL, SubredditID, AdAccountID, BusinessID}

// Context is the read-only bag of request attributes a decision is made from.
// The zero value is an empty context. A Context never changes after construction;
// With returns a modified copy.
type Context struct {
	values map[string]any
}

// NewContext builds a Context from raw attributes. Numbers are normalized to
// int64 or float64 and nil values are treated as absent.
func NewContext(values map[string]any) Context {
	out := make(map[string]any, len(values))
	for k, v := range values {
		if v == nil {
			continue
		}
		if n, ok := normalizeValue(v); ok {
			out[k] = n
			continue
		}
		out[k] = v
	}
	return Context{values: out}
}

// SanitizeContext is NewContext that also drops every value which is not a
// string, bool or finite number. The dropped keys are returned sorted so the
// caller can report them.
func SanitizeContext(values map[string]any) (Context, []string) {
	out := make(map[string]any, len(values))
	var dropped []string
	for k, v := range values {
		if v == nil {
			continue
		}
		n, ok := normalizeValue(v)
		if !ok {
			dropped = append(dropped, k)
			continue
		}
		out[k] = n
	}
	sort.Strings(dropped)
	return Context{values: out}, dropped
}

// Get returns the value stored for an identifier kind.
func (c Context) Get(kind string) (any, bool) {
	v, ok := c.values[kind]
	return v, ok
}

// Len returns the number of attributes.
func (c Context) Len() int { return len(c.values) }

// Keys returns the attribute names in sorted order.
func (c Context) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map returns a copy of the attributes.
func (c Context) Map() map[string]any {
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// With returns a copy of c with kind set to value.
func (c Context) With(kind string, value any) Context {
	m := c.Map()
	if value == nil {
		delete(m, kind)
		return Context{values: m}
	}
	if n, ok := normalizeValue(value); ok {
		value = n
	}
	m[kind] = value
	return Context{values: m}
}

// MarshalJSON implements json.Marshaler.
func (c Context) MarshalJSON() ([]byte, error) {
	if c.values == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c.values)
}

func normalizeValue(v any) (any, bool) {
	switch n := v.(type) {
	case string, bool:
		return n, true
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint:
		return uintValue(uint64(n))
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return uintValue(n)
	case float32:
		return finite(float64(n))
	case float64:
		return finite(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil {
			return nil, false
		}
		return finite(f)
	default:
		return nil, false
	}
}

func uintValue(u uint64) (any, bool) {
	if u > math.MaxInt64 {
		return nil, false
	}
	return int64(u), true
}

func finite(f float64) (any, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	return f, true
}

// identifierString renders an identifier value as the string that is hashed.
// Integral floats render like integers so 42 and 42.0 bucket identically.
func identifierString(v any) (string, error) {
	switch id := v.(type) {
	case string:
		if id == "" {
			return "", ErrInvalidIdentifier
		}
		return id, nil
	case int64:
		return strconv.FormatInt(id, 10), nil
	case float64:
		if math.IsNaN(id) || math.IsInf(id, 0) {
			return "", ErrInvalidIdentifier
		}
		if id == math.Trunc(id) && math.Abs(id) < 1<<53 {
			return strconv.FormatInt(int64(id), 10), nil
		}
		return strconv.FormatFloat(id, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(id), nil
	default:
		if n, ok := normalizeValue(v); ok {
			return identifierString(n)
		}
		return "", ErrMalformedContext
	}
}
