// API client for a running brandmix server
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/desertthunder/brandmix/internal/shared"
)

// DefaultServerURL is where `brandmix serve` listens with the example config.
const DefaultServerURL = "http://localhost:3001"

// APIService makes requests against a running brandmix server.
type APIService struct {
	baseURL    string
	httpClient *http.Client
}

// NewAPIService creates a new API client. baseURL should include any configured API prefix.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = DefaultServerURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// HealthStatus is the body served by GET /health.
type HealthStatus struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	PendingStates int    `json:"pending_states"`
	LLMConfigured bool   `json:"llm_configured"`
}

// BaseURL returns the server root requests are sent to.
func (a *APIService) BaseURL() string {
	return a.baseURL
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	return a.do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.do(ctx, http.MethodPost, path, data)
}

func (a *APIService) do(ctx context.Context, method, path string, data []byte) (*APIResponse, error) {
	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       raw,
	}

	var jsonData any
	if err := json.Unmarshal(raw, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// Health fetches the server's health report.
func (a *APIService) Health(ctx context.Context) (*HealthStatus, error) {
	resp, err := a.Get(ctx, "/health")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: health returned status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	var status HealthStatus
	if err := json.Unmarshal(resp.Body, &status); err != nil {
		return nil, fmt.Errorf("failed to decode health response: %w", err)
	}
	return &status, nil
}

// LoginURL asks the server for a fresh provider authorization URL.
func (a *APIService) LoginURL(ctx context.Context) (string, error) {
	resp, err := a.Get(ctx, "/auth/login")
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: login returned status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	var body struct {
		AuthURL string `json:"auth_url"`
	}
	if err := json.Unmarshal(resp.Body, &body); err != nil || body.AuthURL == "" {
		return "", fmt.Errorf("%w: login response missing auth_url", shared.ErrAPIRequest)
	}
	return body.AuthURL, nil
}
