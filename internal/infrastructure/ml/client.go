package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"CanonCurator/internal/domain"
	"CanonCurator/internal/ports"
)

// Client talks to a dedicated date-inference service.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.DateInferrer = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		http:     &http.Client{Timeout: timeout},
	}
}

// Name identifies the backend in the inference registry.
func (c *Client) Name() string { return "ml" }

type enrichRequest struct {
	AuthorName string             `json:"authorName"`
	Sources    []domain.SourceRef `json:"sources"`
}

type enrichResponse struct {
	Results []domain.EnrichedSourceDate `json:"results"`
}

// EnrichDates posts the sources to /enrich-dates.
func (c *Client) EnrichDates(ctx context.Context, sources []domain.SourceRef, authorName string) ([]domain.EnrichedSourceDate, error) {
	if c.endpoint == "" {
		return nil, fmt.Errorf("inference service endpoint is not configured")
	}
	if len(sources) == 0 {
		return nil, nil
	}

	var resp enrichResponse
	if err := c.post(ctx, "/enrich-dates", enrichRequest{AuthorName: authorName, Sources: sources}, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return fmt.Errorf("unexpected status %s, close body: %v", resp.Status, closeErr)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		_ = resp.Body.Close()
		return fmt.Errorf("decode response: %w", err)
	}

	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}

	return nil
}
