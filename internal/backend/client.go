// Package backend is the client side of the analysis API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"petfoodverifai/internal/apierror"
)

const createAnalysisPath = "/api/analyses"

// Client talks to the analysis API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			// Scraping plus the LLM call can take a while.
			Timeout: 90 * time.Second,
		},
	}
}

// CreateAnalysis submits a product for analysis. A non-2xx answer is returned
// as *apierror.Response; transport failures are wrapped as-is.
func (c *Client) CreateAnalysis(ctx context.Context, payload CreateAnalysisRequest, authToken string) (*AnalysisResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+createAnalysisPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeError(resp)
	}

	var result AnalysisResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	apiErr := &apierror.Response{}
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, apiErr); err != nil {
			apiErr = &apierror.Response{Message: strings.TrimSpace(string(raw))}
		}
	}
	if apiErr.Status == 0 {
		apiErr.Status = resp.StatusCode
	}
	return apiErr
}
