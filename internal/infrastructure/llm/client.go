package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"CanonCurator/internal/domain"
	"CanonCurator/internal/ports"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultAttempts  = 3
	defaultBaseDelay = time.Second
	defaultMaxDelay  = 10 * time.Second
	maxErrorBody     = 1024
)

// ErrUnparseableResponse means the model answered with something that is not the expected JSON.
var ErrUnparseableResponse = errors.New("unparseable inference response")

// Config captures what the chat-completions backend needs.
type Config struct {
	Endpoint       string
	Model          string
	APIKey         string
	SystemPrompt   string
	TimeoutSeconds int
	MaxAttempts    int
}

// DateInferrer implements ports.DateInferrer against OpenAI-compatible chat completion APIs.
type DateInferrer struct {
	cfg        Config
	httpClient *http.Client
	attempts   int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

var _ ports.DateInferrer = (*DateInferrer)(nil)

// Option customizes the inferrer.
type Option func(*DateInferrer)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(d *DateInferrer) {
		if client != nil {
			d.httpClient = client
		}
	}
}

// WithBackoff overrides the retry delays.
func WithBackoff(base, ceiling time.Duration) Option {
	return func(d *DateInferrer) {
		d.baseDelay = base
		d.maxDelay = ceiling
	}
}

// NewDateInferrer builds a client from configuration.
func NewDateInferrer(cfg Config, opts ...Option) *DateInferrer {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	d := &DateInferrer{
		cfg: Config{
			Endpoint:     strings.TrimSpace(cfg.Endpoint),
			Model:        strings.TrimSpace(cfg.Model),
			APIKey:       strings.TrimSpace(cfg.APIKey),
			SystemPrompt: safePrompt(cfg.SystemPrompt),
		},
		httpClient: &http.Client{Timeout: timeout},
		attempts:   cfg.MaxAttempts,
		baseDelay:  defaultBaseDelay,
		maxDelay:   defaultMaxDelay,
	}
	if d.attempts <= 0 {
		d.attempts = defaultAttempts
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name identifies the backend in the inference registry.
func (d *DateInferrer) Name() string { return "llm" }

// EnrichDates asks the model for one publication date per source.
func (d *DateInferrer) EnrichDates(ctx context.Context, sources []domain.SourceRef, authorName string) ([]domain.EnrichedSourceDate, error) {
	if d == nil {
		return nil, errors.New("llm inferrer is nil")
	}
	if d.cfg.APIKey == "" || d.cfg.Endpoint == "" || d.cfg.Model == "" {
		return nil, errors.New("llm inferrer misconfigured")
	}
	if len(sources) == 0 {
		return nil, nil
	}

	userPrompt, err := buildUserPrompt(sources, authorName)
	if err != nil {
		return nil, err
	}

	content, err := d.completeWithRetry(ctx, chatRequest{
		Model: d.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: d.cfg.SystemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature:    0,
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return nil, err
	}

	results, err := decodeResults(content)
	if err != nil {
		return nil, err
	}
	for i := range results {
		if results[i].Source == "" {
			results[i].Source = "llm:" + d.cfg.Model
		}
	}
	return results, nil
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type statusError struct {
	code       int
	body       string
	retryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("chat completion status %d: %s", e.code, e.body)
}

func (e *statusError) retryable() bool {
	return e.code == http.StatusRequestTimeout ||
		e.code == http.StatusTooManyRequests ||
		e.code >= http.StatusInternalServerError
}

func (d *DateInferrer) completeWithRetry(ctx context.Context, payload chatRequest) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= d.attempts; attempt++ {
		content, err := d.complete(ctx, payload)
		if err == nil {
			return content, nil
		}
		lastErr = err

		var se *statusError
		if !errors.As(err, &se) || !se.retryable() || attempt == d.attempts {
			break
		}

		delay := d.backoff(attempt)
		if se.retryAfter > 0 {
			delay = min(se.retryAfter, d.maxDelay)
		}
		if err := sleep(ctx, delay); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("chat completion: %w", lastErr)
}

func (d *DateInferrer) complete(ctx context.Context, payload chatRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+d.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &statusError{
			code:       resp.StatusCode,
			body:       strings.TrimSpace(string(errBody)),
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	var completion chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("%w: decode completion: %v", ErrUnparseableResponse, err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	for _, choice := range completion.Choices {
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content, nil
		}
	}
	return "", fmt.Errorf("%w: empty completion", ErrUnparseableResponse)
}

func (d *DateInferrer) backoff(attempt int) time.Duration {
	delay := d.baseDelay
	for i := 1; i < attempt && delay < d.maxDelay; i++ {
		delay *= 2
	}
	return min(delay, d.maxDelay)
}

func sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(value); err == nil {
		if delay := time.Until(when); delay > 0 {
			return delay
		}
	}
	return 0
}
