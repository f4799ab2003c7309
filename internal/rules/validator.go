package rules

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxNameLength is the maximum length for feature names.
const MaxNameLength = 128

// Sentinel errors returned while parsing and validating documents.
var (
	ErrMalformedDocument = errors.New("malformed configuration document")
	ErrDuplicateFeature  = errors.New("duplicate feature name")
	ErrInvalidFeature    = errors.New("invalid feature")
)

// namePattern matches alphanumeric characters, underscores, dots, and hyphens.
var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// FeatureError locates a configuration error inside a document.
// Index is the position in the feature's chain, or -1 when the error
// concerns the feature as a whole.
type FeatureError struct {
	Feature string
	Index   int
	Err     error
}

func (e *FeatureError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("feature %q: %v", e.Feature, e.Err)
	}
	return fmt.Sprintf("feature %q chain[%d]: %v", e.Feature, e.Index, e.Err)
}

func (e *FeatureError) Unwrap() error { return e.Err }

// ValidateDocument checks the structure every feature must satisfy before its
// strategies are compiled. It is a pure function: it never mutates doc.
//
// Validation Rules:
//  1. Feature names are non-empty, at most MaxNameLength, and match namePattern
//  2. Feature names are unique within the document
//  3. Every feature has at least one strategy and every strategy names its kind
//  4. A time window, when both ends are set, has StartTS < StopTS
//  5. ShuffleVersion is not negative
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is empty", ErrMalformedDocument)
	}

	seen := make(map[string]bool, len(doc.Features))
	for _, f := range doc.Features {
		if err := ValidateFeature(f); err != nil {
			return err
		}
		if seen[f.Name] {
			return &FeatureError{Feature: f.Name, Index: -1, Err: ErrDuplicateFeature}
		}
		seen[f.Name] = true
	}
	return nil
}

// ValidateFeature checks one feature definition.
func ValidateFeature(f FeatureConfig) error {
	name := f.Name
	if strings.TrimSpace(name) == "" {
		return &FeatureError{Feature: name, Index: -1, Err: fmt.Errorf("%w: name is required", ErrInvalidFeature)}
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return &FeatureError{Feature: name, Index: -1, Err: fmt.Errorf("%w: name must not exceed %d characters", ErrInvalidFeature, MaxNameLength)}
	}
	if !namePattern.MatchString(name) {
		return &FeatureError{Feature: name, Index: -1, Err: fmt.Errorf("%w: name must contain only alphanumeric characters, underscores, dots, and hyphens", ErrInvalidFeature)}
	}

	if len(f.Chain) == 0 {
		return &FeatureError{Feature: name, Index: -1, Err: fmt.Errorf("%w: chain must have at least one strategy", ErrInvalidFeature)}
	}
	for i, s := range f.Chain {
		if strings.TrimSpace(s.Kind) == "" {
			return &FeatureError{Feature: name, Index: i, Err: fmt.Errorf("%w: strategy kind is required", ErrInvalidFeature)}
		}
	}

	if f.StartTS < 0 || f.StopTS < 0 {
		return &FeatureError{Feature: name, Index: -1, Err: fmt.Errorf("%w: timestamps must not be negative", ErrInvalidFeature)}
	}
	if f.StartTS != 0 && f.StopTS != 0 && f.StartTS >= f.StopTS {
		return &FeatureError{Feature: name, Index: -1, Err: fmt.Errorf("%w: start_ts %d must be before stop_ts %d", ErrInvalidFeature, f.StartTS, f.StopTS)}
	}
	if f.ShuffleVersion < 0 {
		return &FeatureError{Feature: name, Index: -1, Err: fmt.Errorf("%w: shuffle_version must not be negative", ErrInvalidFeature)}
	}
	return nil
}
