package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/TimurManjosov/godecider/internal/api"
	"github.com/TimurManjosov/godecider/internal/decider"
	"github.com/TimurManjosov/godecider/internal/engine"
)

// Client is an HTTP client for the decider API
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       api.ErrorCode
	Message    string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error (status %d, %s): %s", e.StatusCode, e.Code, e.Message)
}

// Unwrap maps error codes back onto decider sentinels so callers can use
// errors.Is the same way for local and remote deciders.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case api.ErrCodeUnknownFeature:
		return decider.ErrUnknownFeature
	case api.ErrCodeNotDynamicConfig:
		return decider.ErrNotDynamicConfig
	}
	return nil
}

// ChooseAllResult is the server's answer to ChooseAll. Errors lists features
// that failed; the remaining decisions are still valid.
type ChooseAllResult struct {
	Decisions map[string]engine.Decision `json:"decisions"`
	Errors    []string                   `json:"errors,omitempty"`
	ETag      string                     `json:"etag"`
}

// Choose decides one feature for the given context attributes. The server
// logs the exposure when the feature emits events.
func (c *Client) Choose(ctx context.Context, feature string, attrs map[string]any) (engine.Decision, error) {
	return c.choose(ctx, feature, attrs, true)
}

// ChooseWithoutExpose decides one feature without logging an exposure. Call
// Expose once the variant is actually shown.
func (c *Client) ChooseWithoutExpose(ctx context.Context, feature string, attrs map[string]any) (engine.Decision, error) {
	return c.choose(ctx, feature, attrs, false)
}

func (c *Client) choose(ctx context.Context, feature string, attrs map[string]any, expose bool) (engine.Decision, error) {
	var result struct {
		Decision engine.Decision `json:"decision"`
	}
	body := map[string]any{"feature": feature, "context": attrs, "expose": expose}
	if err := c.do(ctx, http.MethodPost, "/v1/choose", body, &result); err != nil {
		return engine.Decision{}, err
	}
	return result.Decision, nil
}

// ChooseAll decides every non dynamic-config feature. A non-empty identifier
// limits evaluation to features bucketing on it.
func (c *Client) ChooseAll(ctx context.Context, attrs map[string]any, identifier string) (*ChooseAllResult, error) {
	return c.chooseAll(ctx, attrs, identifier, true)
}

// ChooseAllWithoutExpose is ChooseAll without exposure logging.
func (c *Client) ChooseAllWithoutExpose(ctx context.Context, attrs map[string]any, identifier string) (*ChooseAllResult, error) {
	return c.chooseAll(ctx, attrs, identifier, false)
}

func (c *Client) chooseAll(ctx context.Context, attrs map[string]any, identifier string, expose bool) (*ChooseAllResult, error) {
	var result ChooseAllResult
	body := map[string]any{"context": attrs, "identifier": identifier, "expose": expose}
	if err := c.do(ctx, http.MethodPost, "/v1/choose/all", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Expose records that variant of feature was shown. It returns the event id,
// or "" when the server wrote no event because the variant is empty or the
// feature does not emit events.
func (c *Client) Expose(ctx context.Context, feature, variant string, attrs map[string]any) (string, error) {
	var result struct {
		Exposed bool   `json:"exposed"`
		EventID string `json:"event_id"`
	}
	body := map[string]any{"feature": feature, "variant": variant, "context": attrs}
	if err := c.do(ctx, http.MethodPost, "/v1/expose", body, &result); err != nil {
		return "", err
	}
	return result.EventID, nil
}

// Features lists the server's features
func (c *Client) Features(ctx context.Context) ([]decider.FeatureInfo, error) {
	var result struct {
		Features []decider.FeatureInfo `json:"features"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/features", nil, &result); err != nil {
		return nil, err
	}
	return result.Features, nil
}

// Feature retrieves a single feature by name
func (c *Client) Feature(ctx context.Context, name string) (decider.FeatureInfo, error) {
	var info decider.FeatureInfo
	if err := c.do(ctx, http.MethodGet, "/v1/features/"+url.PathEscape(name), nil, &info); err != nil {
		return decider.FeatureInfo{}, err
	}
	return info, nil
}

// DynamicConfigs retrieves the current value of every dynamic config
func (c *Client) DynamicConfigs(ctx context.Context) (map[string]any, error) {
	var result struct {
		Configs map[string]any `json:"configs"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/dynamic", nil, &result); err != nil {
		return nil, err
	}
	return result.Configs, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	bodyBytes, _ := io.ReadAll(resp.Body)
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(bodyBytes)}

	var er api.ErrorResponse
	if err := json.Unmarshal(bodyBytes, &er); err == nil && er.Code != "" {
		apiErr.Code = er.Code
		apiErr.Message = er.Message
	}
	return apiErr
}

// IsRateLimited reports whether err is a 429 from the server.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}
