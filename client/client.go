package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/factor591/aisheets/internal/changes"
	"github.com/factor591/aisheets/internal/sample"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4"

	defaultTemperature    = 0.2
	defaultMaxTokens      = 4000
	defaultRequestTimeout = 60 * time.Second
	defaultMaxAttempts    = 3
	defaultBaseBackoff    = 200 * time.Millisecond
	defaultMaxBackoff     = 2 * time.Second
	defaultUserAgent      = "aisheets/dev"
)

// Client talks to an OpenAI-compatible chat completions API.
type Client struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	UserAgent   string
	HTTPClient  *http.Client
	Cache       *ResponseCache // nil disables response caching

	requestTimeout time.Duration
	maxAttempts    int
	baseBackoff    time.Duration
	maxBackoff     time.Duration
	sleep          func(context.Context, time.Duration) error
	randInt63n     func(int64) int64
	now            func() time.Time
}

type rawResponse struct {
	StatusCode  int
	ContentType string
	RetryAfter  string
	Body        []byte
}

// New creates a client with the default model, temperature and token limit.
func New(baseURL, apiKey string) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:        strings.TrimRight(baseURL, "/"),
		APIKey:         apiKey,
		Model:          DefaultModel,
		Temperature:    defaultTemperature,
		MaxTokens:      defaultMaxTokens,
		UserAgent:      defaultUserAgent,
		HTTPClient:     &http.Client{},
		requestTimeout: defaultRequestTimeout,
		maxAttempts:    defaultMaxAttempts,
		baseBackoff:    defaultBaseBackoff,
		maxBackoff:     defaultMaxBackoff,
		sleep:          sleepContext,
		randInt63n:     rand.Int63n,
		now:            time.Now,
	}
}

// SetRequestTimeout bounds each attempt. Zero or negative keeps the default.
func (c *Client) SetRequestTimeout(d time.Duration) {
	if d > 0 {
		c.requestTimeout = d
	}
}

func (c *Client) doWithRetry(ctx context.Context, makeRequest func() (*http.Request, error)) (*rawResponse, error) {
	maxAttempts := c.maxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := makeRequest()
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}

		timeout := c.requestTimeout
		if timeout <= 0 {
			timeout = defaultRequestTimeout
		}
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		req = req.WithContext(attemptCtx)

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			cancel()
			if attempt < maxAttempts && ctx.Err() == nil && isRetryableTransportError(err) {
				if err := c.sleepWithBackoff(ctx, attempt, ""); err != nil {
					return nil, fmt.Errorf("API request cancelled after %d attempt(s): %w", attempt, err)
				}
				continue
			}
			return nil, fmt.Errorf("API request failed after %d attempt(s): %w", attempt, err)
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		cancel()
		if readErr != nil {
			if attempt < maxAttempts && ctx.Err() == nil && isRetryableTransportError(readErr) {
				if err := c.sleepWithBackoff(ctx, attempt, ""); err != nil {
					return nil, fmt.Errorf("API request cancelled after %d attempt(s): %w", attempt, err)
				}
				continue
			}
			return nil, fmt.Errorf("reading response after %d attempt(s): %w", attempt, readErr)
		}

		if attempt < maxAttempts && shouldRetryStatus(resp.StatusCode) {
			if err := c.sleepWithBackoff(ctx, attempt, resp.Header.Get("Retry-After")); err != nil {
				return nil, fmt.Errorf("API request cancelled after %d attempt(s): %w", attempt, err)
			}
			continue
		}

		return &rawResponse{
			StatusCode:  resp.StatusCode,
			ContentType: resp.Header.Get("Content-Type"),
			RetryAfter:  resp.Header.Get("Retry-After"),
			Body:        body,
		}, nil
	}

	return nil, fmt.Errorf("API request failed after %d attempt(s)", maxAttempts)
}

func isRetryableTransportError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

func shouldRetryStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// sleepWithBackoff waits before the next attempt. A server Retry-After is
// honored up to the per-attempt timeout. It returns early with the context
// error when ctx ends first.
func (c *Client) sleepWithBackoff(ctx context.Context, attempt int, retryAfterHeader string) error {
	if d, ok := c.parseRetryAfter(retryAfterHeader); ok {
		limit := c.requestTimeout
		if limit <= 0 {
			limit = defaultRequestTimeout
		}
		return c.sleep(ctx, min(d, limit))
	}

	base := c.baseBackoff
	if base <= 0 {
		base = defaultBaseBackoff
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay <= 0 {
			delay = defaultMaxBackoff
			break
		}
	}

	maxBackoff := c.maxBackoff
	if maxBackoff <= 0 {
		maxBackoff = defaultMaxBackoff
	}
	if delay > maxBackoff {
		delay = maxBackoff
	}
	if delay <= 0 {
		return ctx.Err()
	}

	// Full jitter in [0, delay).
	if c.randInt63n != nil {
		delay = time.Duration(c.randInt63n(int64(delay)))
	}
	return c.sleep(ctx, delay)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) parseRetryAfter(headerValue string) (time.Duration, bool) {
	v := strings.TrimSpace(headerValue)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		now := time.Now
		if c.now != nil {
			now = c.now
		}
		d := t.Sub(now())
		if d > 0 {
			return d, true
		}
	}
	return 0, false
}

// ChatRequest builds the completion request for a sample and instruction.
func (c *Client) ChatRequest(smp *sample.Sample, instructions string) (*ChatRequest, error) {
	sampleJSON, err := smp.JSON()
	if err != nil {
		return nil, fmt.Errorf("encoding sample: %w", err)
	}
	return &ChatRequest{
		Model: c.Model,
		Messages: []ChatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt(sampleJSON, instructions)},
		},
		Functions:    []FunctionDef{UpdateSpreadsheetFunction()},
		FunctionCall: &FunctionChoice{Name: changes.FunctionName},
		Temperature:  c.Temperature,
		MaxTokens:    c.MaxTokens,
	}, nil
}

// ProposeChanges asks the model for edits via POST /chat/completions and
// returns the raw response body for changes.ParseResponse. Successful
// responses are served from and stored in Cache when one is set.
func (c *Client) ProposeChanges(ctx context.Context, smp *sample.Sample, instructions string) ([]byte, error) {
	chat, err := c.ChatRequest(smp, instructions)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(chat)
	if err != nil {
		return nil, fmt.Errorf("marshaling chat request: %w", err)
	}

	var key string
	if c.Cache != nil {
		key = HashRequest(payload, c.BaseURL)
		if e, ok := c.Cache.Get(key); ok {
			return e.Body, nil
		}
	}

	raw, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequest("POST", c.BaseURL+"/chat/completions", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		c.setCommonHeaders(req)
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	if raw.StatusCode != 200 {
		return nil, parseAPIError(raw.StatusCode, raw.Body, raw.RetryAfter)
	}

	if c.Cache != nil {
		c.Cache.Put(key, CacheEntry{Model: c.Model, Body: raw.Body, StoredAt: c.clock()().UTC()})
	}
	return raw.Body, nil
}

// ListModels calls GET /models. It is a cheap way to check an API key.
func (c *Client) ListModels(ctx context.Context) (*ModelList, error) {
	raw, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequest("GET", c.BaseURL+"/models", nil)
		if err != nil {
			return nil, err
		}
		c.setCommonHeaders(req)
		return req, nil
	})
	if err != nil {
		return nil, err
	}
	if raw.StatusCode != 200 {
		return nil, parseAPIError(raw.StatusCode, raw.Body, raw.RetryAfter)
	}

	var result ModelList
	if err := json.Unmarshal(raw.Body, &result); err != nil {
		return nil, fmt.Errorf("parsing models response: %w", err)
	}
	return &result, nil
}

func (c *Client) clock() func() time.Time {
	if c.now != nil {
		return c.now
	}
	return time.Now
}

// APIError is a typed error returned by API calls, with the HTTP status code.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RetryAfter string
}

func (e *APIError) Error() string {
	if friendly := friendlyErrorMessage(e.StatusCode, e.Code, e.Message, e.RetryAfter); friendly != "" {
		return friendly
	}
	if e.Code != "" {
		return fmt.Sprintf("API error %d: %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

// friendlyErrorMessage translates known API error codes into user-facing messages.
func friendlyErrorMessage(statusCode int, code, message, retryAfter string) string {
	if statusCode == http.StatusTooManyRequests && code != "insufficient_quota" {
		if retryAfter != "" {
			return fmt.Sprintf("rate limited by API; retry after %s", retryAfter)
		}
		return "rate limited by API; retry in a moment"
	}

	switch code {
	case "invalid_api_key":
		return "API key was rejected; run `aisheets auth login` or set AISHEETS_API_KEY"
	case "insufficient_quota":
		return "API quota exhausted for this key"
	case "context_length_exceeded":
		return "spreadsheet sample is too large for the model; lower --max-rows"
	case "model_not_found":
		return message
	default:
		if statusCode == http.StatusUnauthorized {
			return "API key was rejected; run `aisheets auth login` or set AISHEETS_API_KEY"
		}
		return ""
	}
}

// IsUnauthorized returns true if the error is a 401 APIError.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized
	}
	return false
}

func parseAPIError(statusCode int, body []byte, retryAfter string) error {
	var apiErr ErrorResponse
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
		code := apiErr.Error.Code
		if code == "" {
			code = apiErr.Error.Type
		}
		return &APIError{
			StatusCode: statusCode,
			Code:       code,
			Message:    apiErr.Error.Message,
			RetryAfter: retryAfter,
		}
	}
	return &APIError{StatusCode: statusCode, Message: string(body), RetryAfter: retryAfter}
}

func (c *Client) setCommonHeaders(req *http.Request) {
	userAgent := strings.TrimSpace(c.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)

	if c.APIKey == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
}
