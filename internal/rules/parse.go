package rules

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format identifies the encoding of a configuration document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks a format from a file extension. Unknown extensions are JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Parse decodes a configuration document. Unknown feature fields are rejected
// so that a typo never silently changes evaluation.
func Parse(data []byte, format Format) (*Document, error) {
	var doc Document

	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: document is empty", ErrMalformedDocument)
			}
			return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: document is empty", ErrMalformedDocument)
			}
			return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", ErrMalformedDocument, format)
	}

	return &doc, nil
}

// ParseFeature decodes a single JSON feature definition, as stored one per row
// by database-backed sources.
func ParseFeature(data []byte) (FeatureConfig, error) {
	var f FeatureConfig
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return FeatureConfig{}, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return f, nil
}
