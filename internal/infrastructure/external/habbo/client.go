// Package habbo implements the Habbo Origins public API client.
package habbo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/origins-hub/fishing-stats-hub/internal/domain/player"
	"github.com/origins-hub/fishing-stats-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the Origins API client.
type ClientConfig struct {
	// BaseURLOverrides replaces the derived https://origins.habbo.{hotel}
	// base URL per hotel. Used by tests.
	BaseURLOverrides map[shared.Hotel]string

	// Timeout is the HTTP request timeout
	Timeout time.Duration

	// UserAgent is sent on every request
	UserAgent string

	// RateLimiterConfig for API rate limiting
	RateLimiterConfig RateLimiterConfig

	// CircuitBreakerConfig for fault tolerance, applied per hotel
	CircuitBreakerConfig CircuitBreakerConfig

	// RetryConfig for retry behavior
	RetryConfig RetryConfig

	// Logger for structured logging
	Logger *slog.Logger

	// Debug enables debug logging
	Debug bool
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:              15 * time.Second,
		UserAgent:            "fishing-stats-hub/1.0",
		RateLimiterConfig:    DefaultRateLimiterConfig(),
		CircuitBreakerConfig: DefaultCircuitBreakerConfig(),
		RetryConfig:          DefaultRetryConfig(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the Origins public API client. One rate limiter spans all three
// hotels so the total outbound rate stays bounded; circuit breakers are per
// hotel so one dead hotel does not block the others.
type Client struct {
	config      ClientConfig
	httpClient  *http.Client
	logger      *slog.Logger
	rateLimiter *RateLimiter
	breakers    map[shared.Hotel]*CircuitBreaker
	mapper      *Mapper
}

// NewClient creates a new Origins API client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	breakers := make(map[shared.Hotel]*CircuitBreaker, len(shared.AllHotels()))
	for _, hotel := range shared.AllHotels() {
		breakers[hotel] = NewCircuitBreaker(config.CircuitBreakerConfig)
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger:      config.Logger,
		rateLimiter: NewRateLimiter(config.RateLimiterConfig),
		breakers:    breakers,
		mapper:      NewMapper(),
	}
}

func (c *Client) baseURL(hotel shared.Hotel) string {
	if override, ok := c.config.BaseURLOverrides[hotel]; ok {
		return override
	}
	return hotel.APIBaseURL()
}

// ══════════════════════════════════════════════════════════════════════════════
// API OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GetUser fetches a user's identity by name.
// Returns shared.ErrUserNotFound when the hotel does not know the name.
func (c *Client) GetUser(ctx context.Context, hotel shared.Hotel, name string) (*UserDTO, error) {
	path := "/api/public/users?name=" + url.QueryEscape(name)

	var user UserDTO
	if err := c.doRequest(ctx, hotel, path, &user); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.IsNotFound() {
			return nil, fmt.Errorf("get user %s on %s: %w", name, hotel, shared.ErrUserNotFound)
		}
		return nil, fmt.Errorf("get user %s on %s: %w", name, hotel, wrapProviderError(err))
	}

	if user.UniqueID == "" {
		return nil, fmt.Errorf("get user %s on %s: missing uniqueId: %w", name, hotel, shared.ErrMalformedResponse)
	}

	return &user, nil
}

// GetFishingSkill fetches the fishing skill record for a user ID.
// Returns shared.ErrSkillDataMissing when the account has no fishing data.
func (c *Client) GetFishingSkill(ctx context.Context, hotel shared.Hotel, uniqueID string) (*SkillDTO, error) {
	path := fmt.Sprintf("/api/public/skills/%s?skillType=FISHING", url.PathEscape(uniqueID))

	var skill SkillDTO
	if err := c.doRequest(ctx, hotel, path, &skill); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.IsNotFound() {
			return nil, fmt.Errorf("get skill %s on %s: %w", uniqueID, hotel, shared.ErrSkillDataMissing)
		}
		return nil, fmt.Errorf("get skill %s on %s: %w", uniqueID, hotel, wrapProviderError(err))
	}

	// A 200 without a level still means the account never fished.
	if skill.Level == nil {
		return nil, fmt.Errorf("get skill %s on %s: %w", uniqueID, hotel, shared.ErrSkillDataMissing)
	}

	return &skill, nil
}

// GetProfile fetches a user's extended profile (presence, member since).
func (c *Client) GetProfile(ctx context.Context, hotel shared.Hotel, uniqueID string) (*ProfileDTO, error) {
	path := fmt.Sprintf("/api/public/users/%s/profile", url.PathEscape(uniqueID))

	var profile ProfileDTO
	if err := c.doRequest(ctx, hotel, path, &profile); err != nil {
		return nil, fmt.Errorf("get profile %s on %s: %w", uniqueID, hotel, wrapProviderError(err))
	}

	return &profile, nil
}

// FetchPlayer performs the full fetch pipeline for one player: identity,
// fishing skill, and best-effort presence, mapped into a domain snapshot.
// The profile call failing never fails the fetch.
func (c *Client) FetchPlayer(ctx context.Context, key shared.PlayerKey) (*player.Snapshot, error) {
	user, err := c.GetUser(ctx, key.Hotel, key.Username.String())
	if err != nil {
		return nil, err
	}

	skill, err := c.GetFishingSkill(ctx, key.Hotel, user.UniqueID)
	if err != nil {
		return nil, err
	}

	profile, err := c.GetProfile(ctx, key.Hotel, user.UniqueID)
	if err != nil {
		if c.config.Debug {
			c.logger.Debug("profile fetch failed, continuing without presence",
				"player", key.String(), "error", err)
		}
		profile = nil
	}

	return c.mapper.SnapshotFromDTOs(key.Hotel, user, skill, profile)
}

// ══════════════════════════════════════════════════════════════════════════════
// HTTP REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// doRequest performs a GET with rate limiting, circuit breaking, and retries.
func (c *Client) doRequest(ctx context.Context, hotel shared.Hotel, path string, result interface{}) error {
	breaker := c.breakers[hotel]
	if breaker == nil {
		return fmt.Errorf("no circuit breaker for hotel %q: %w", hotel, shared.ErrInvalidHotel)
	}

	if err := breaker.Allow(); err != nil {
		return fmt.Errorf("circuit breaker %s: %w", hotel, err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.RetryConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.config.RetryConfig.CalculateBackoff(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := c.rateLimiter.Allow(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		err := c.doSingleRequest(ctx, hotel, path, result)
		if err == nil {
			breaker.RecordSuccess()
			return nil
		}

		lastErr = err

		if !c.isRetryable(err) {
			// 404s are an answer, not a failure of the hotel.
			var apiErr *APIError
			if !(errors.As(err, &apiErr) && apiErr.IsNotFound()) {
				breaker.RecordFailure()
			}
			return err
		}

		var rateLimitErr *RateLimitError
		if errors.As(err, &rateLimitErr) {
			c.rateLimiter.RecordRateLimitHit(rateLimitErr.RetryAfter)
		}
	}

	breaker.RecordFailure()
	return fmt.Errorf("request failed after %d retries: %w", c.config.RetryConfig.MaxRetries, lastErr)
}

// doSingleRequest performs a single HTTP request.
func (c *Client) doSingleRequest(ctx context.Context, hotel shared.Hotel, path string, result interface{}) error {
	fullURL := c.baseURL(hotel) + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	if c.config.Debug {
		c.logger.Debug("origins api request", "hotel", hotel.String(), "path", path)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := 60 * time.Second
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, err := strconv.Atoi(ra); err == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return &RateLimitError{
			RetryAfter: retryAfter,
			Message:    "rate limit exceeded on " + hotel.String(),
		}
	}

	if resp.StatusCode >= 400 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Hotel:      hotel.String(),
			Path:       path,
		}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w: %v", shared.ErrMalformedResponse, err)
		}
	}

	return nil
}

// wrapProviderError folds a request failure into the shared provider error
// taxonomy so callers can branch with errors.Is. 404 handling stays at the
// call sites because its meaning differs per endpoint.
func wrapProviderError(err error) error {
	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return fmt.Errorf("%w: %w", shared.ErrProviderRateLimit, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", shared.ErrProviderTimeout, err)
	}

	// Caller cancellation and parse failures already carry their meaning.
	if errors.Is(err, context.Canceled) || errors.Is(err, shared.ErrMalformedResponse) {
		return err
	}

	return fmt.Errorf("%w: %w", shared.ErrProviderFailure, err)
}

// isRetryable checks if an error is retryable.
func (c *Client) isRetryable(err error) bool {
	if err == nil {
		return false
	}

	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsServerError()
	}

	if errors.Is(err, shared.ErrMalformedResponse) {
		return false
	}

	// Network errors are generally retryable.
	errStr := err.Error()
	return containsAny(errStr, []string{"timeout", "connection refused", "temporary", "reset", "EOF"})
}

// containsAny checks if s contains any of the substrings.
func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if len(s) >= len(sub) && findStr(s, sub) >= 0 {
			return true
		}
	}
	return false
}

// findStr finds substr in s.
func findStr(s, substr string) int {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH AND STATUS
// ══════════════════════════════════════════════════════════════════════════════

// ClientStatus contains the current status of the client.
type ClientStatus struct {
	RateLimiter RateLimiterStatus
	Breakers    map[shared.Hotel]CircuitBreakerStatus
}

// Status returns the current status of the client.
func (c *Client) Status() ClientStatus {
	breakers := make(map[shared.Hotel]CircuitBreakerStatus, len(c.breakers))
	for hotel, breaker := range c.breakers {
		breakers[hotel] = breaker.Status()
	}
	return ClientStatus{
		RateLimiter: c.rateLimiter.Status(),
		Breakers:    breakers,
	}
}

// Reset resets the rate limiter and all circuit breakers.
func (c *Client) Reset() {
	c.rateLimiter.Reset()
	for _, breaker := range c.breakers {
		breaker.Reset()
	}
}
