// Package ranking is a client for the DataForSEO live SERP endpoint.
package ranking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/cuongbtq/rankbot/internal/domain"
	"golang.org/x/time/rate"
)

const (
	serpPath = "/v3/serp/google/organic/live/advanced"

	// statusOK is the DataForSEO success code carried in the response body
	statusOK = 20000

	maxErrorBody = 512
)

// Config holds ranking API client configuration
type Config struct {
	BaseURL           string
	Username          string
	Password          string
	LocationCode      int
	LanguageCode      string
	Depth             int
	Timeout           time.Duration
	RetryAttempts     int
	RetryInterval     time.Duration
	BackoffMultiplier float64
	RateLimit         float64 // requests per second, 0 disables limiting
	RateBurst         int
	HTTPClient        *http.Client
}

// Client performs keyword lookups against the SERP API
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates a new ranking client
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.dataforseo.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Depth <= 0 {
		cfg.Depth = 10
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 500 * time.Millisecond
	}
	if cfg.BackoffMultiplier <= 0 {
		cfg.BackoffMultiplier = 2.0
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		cfg:     cfg,
		http:    httpClient,
		limiter: limiter,
		logger:  logger,
	}
}

type serpTask struct {
	Keyword      string `json:"keyword"`
	LocationCode int    `json:"location_code"`
	LanguageCode string `json:"language_code"`
	Depth        int    `json:"depth"`
}

type serpItem struct {
	Type   string `json:"type"`
	Domain string `json:"domain"`
}

type serpResponse struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
	Tasks         []struct {
		StatusCode    int    `json:"status_code"`
		StatusMessage string `json:"status_message"`
		Result        []struct {
			Items []serpItem `json:"items"`
		} `json:"result"`
	} `json:"tasks"`
}

// Lookup fetches the SERP for a keyword.
//
// Transient failures (network errors, HTTP 429 and 5xx, API 5xxxx codes) are retried
// up to RetryAttempts times with exponential backoff. Every failure is wrapped in
// domain.ErrLookupFailed except an empty result set, which returns domain.ErrNoResults.
func (c *Client) Lookup(ctx context.Context, action domain.Action, keyword string) (*domain.LookupResult, error) {
	var lastErr error

	for attempt := 0; attempt <= c.cfg.RetryAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("%w: rate limiter: %w", domain.ErrLookupFailed, err)
			}
		}

		items, err := c.fetch(ctx, keyword)
		if err == nil {
			return c.toResult(action, keyword, items)
		}

		lastErr = err
		if !domain.IsRetryable(err) || attempt == c.cfg.RetryAttempts {
			break
		}

		backoffDelay := time.Duration(float64(c.cfg.RetryInterval) * math.Pow(c.cfg.BackoffMultiplier, float64(attempt)))
		c.logger.Warn("Lookup failed, retrying...",
			slog.String("keyword", keyword),
			slog.Int("attempt", attempt+1),
			slog.Int("max_retries", c.cfg.RetryAttempts),
			slog.Duration("retry_after", backoffDelay),
			slog.Any("error", err),
		)

		select {
		case <-time.After(backoffDelay):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", domain.ErrLookupFailed, ctx.Err())
		}
	}

	return nil, fmt.Errorf("%w: %w", domain.ErrLookupFailed, lastErr)
}

func (c *Client) toResult(action domain.Action, keyword string, items []serpItem) (*domain.LookupResult, error) {
	result := &domain.LookupResult{Keyword: keyword}

	for _, item := range items {
		// rank lists domains only; intent also keeps SERP features that have no domain
		if item.Domain == "" && (action != domain.ActionIntent || item.Type == "") {
			continue
		}
		result.Entries = append(result.Entries, domain.Entry{Domain: item.Domain, Type: item.Type})
	}

	if len(result.Entries) == 0 {
		return nil, domain.ErrNoResults
	}

	return result, nil
}

func (c *Client) fetch(ctx context.Context, keyword string) ([]serpItem, error) {
	payload, err := json.Marshal([]serpTask{{
		Keyword:      keyword,
		LocationCode: c.cfg.LocationCode,
		LanguageCode: c.cfg.LanguageCode,
		Depth:        c.cfg.Depth,
	}})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+serpPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("request canceled: %w", ctx.Err())
		}
		return nil, domain.NewRetryableError(fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	c.logger.Debug("Ranking API responded",
		slog.String("keyword", keyword),
		slog.Int("status", resp.StatusCode),
		slog.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		err := fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, domain.NewRetryableError(err)
		}
		return nil, err
	}

	var parsed serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty response body")
		}
		return nil, fmt.Errorf("malformed response: %w", err)
	}

	if err := apiError(parsed.StatusCode, parsed.StatusMessage); err != nil {
		return nil, err
	}

	if len(parsed.Tasks) == 0 {
		return nil, fmt.Errorf("malformed response: no tasks")
	}

	task := parsed.Tasks[0]
	if err := apiError(task.StatusCode, task.StatusMessage); err != nil {
		return nil, err
	}

	if len(task.Result) == 0 {
		return nil, fmt.Errorf("malformed response: task has no result")
	}

	return task.Result[0].Items, nil
}

// apiError converts a DataForSEO body status into an error; 5xxxx codes are transient
func apiError(code int, message string) error {
	if code == statusOK {
		return nil
	}
	if code == 0 {
		return fmt.Errorf("malformed response: missing status_code")
	}

	err := fmt.Errorf("api status %d: %s", code, message)
	if code >= 50000 {
		return domain.NewRetryableError(err)
	}
	return err
}
