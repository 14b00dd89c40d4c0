package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	jwttoken "barangay/internal/jwt_token"
	id "barangay/pkg/domain"
)

// TestContext holds state between test steps
type TestContext struct {
	BaseURL          string
	HTTPClient       *http.Client
	LastResponse     *http.Response
	LastResponseBody []byte
	AccessToken      string

	tokens *jwttoken.ActorTokenService
	saved  map[string]string
}

// NewTestContext creates a new test context against baseURL, minting actor
// tokens with secret.
func NewTestContext(baseURL, secret string) *TestContext {
	return &TestContext{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		tokens:     jwttoken.NewActorTokenService(secret, tokenIssuer, time.Hour),
		saved:      make(map[string]string),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// ActAs switches the bearer token used by subsequent requests.
func (tc *TestContext) ActAs(actorID, role string) error {
	token, err := tc.tokens.Issue(context.Background(), id.ActorID(actorID), role)
	if err != nil {
		return fmt.Errorf("mint token for %s: %w", actorID, err)
	}
	tc.AccessToken = token
	return nil
}

// ClearActor drops the bearer token.
func (tc *TestContext) ClearActor() {
	tc.AccessToken = ""
}

// Save remembers a value for later steps under name.
func (tc *TestContext) Save(name, value string) {
	tc.saved[name] = value
}

// Saved returns a remembered value.
func (tc *TestContext) Saved(name string) (string, error) {
	v, ok := tc.saved[name]
	if !ok {
		return "", fmt.Errorf("nothing saved as %q", name)
	}
	return v, nil
}

// Expand replaces {name} placeholders with saved values.
func (tc *TestContext) Expand(s string) string {
	for name, value := range tc.saved {
		s = strings.ReplaceAll(s, "{"+name+"}", value)
	}
	return s
}

// POST makes a POST request and stores the response
func (tc *TestContext) POST(path string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	return tc.do(http.MethodPost, path, bytes.NewReader(data))
}

// GET makes a GET request and stores the response
func (tc *TestContext) GET(path string) error {
	return tc.do(http.MethodGet, path, nil)
}

func (tc *TestContext) do(method, path string, body io.Reader) error {
	req, err := http.NewRequestWithContext(context.Background(), method, tc.BaseURL+tc.Expand(path), body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Linux; Android 13; Pixel 7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Mobile Safari/537.36")
	if tc.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+tc.AccessToken)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}

	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	return nil
}

// GetResponseField extracts a field from the JSON response. Nested fields
// use dots and array elements use their index, e.g. "entries.0.action".
func (tc *TestContext) GetResponseField(field string) (any, error) {
	var data any
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	current := data
	for _, part := range strings.Split(field, ".") {
		switch node := current.(type) {
		case map[string]any:
			value, ok := node[part]
			if !ok {
				return nil, fmt.Errorf("field %s not found in response", field)
			}
			current = value
		case []any:
			var idx int
			if _, err := fmt.Sscanf(part, "%d", &idx); err != nil || idx < 0 || idx >= len(node) {
				return nil, fmt.Errorf("field %s: bad index %q", field, part)
			}
			current = node[idx]
		default:
			return nil, fmt.Errorf("field %s not found in response", field)
		}
	}
	return current, nil
}

// ResponseContains checks if the response body contains a field or text
func (tc *TestContext) ResponseContains(text string) bool {
	return strings.Contains(string(tc.LastResponseBody), text)
}

func (tc *TestContext) GetLastResponseStatus() int {
	if tc.LastResponse == nil {
		return 0
	}
	return tc.LastResponse.StatusCode
}

func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.LastResponseBody
}
