package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/0verL1nk/rental-search/internal/model"
)

const (
	// DefaultBaseURL is the Google Maps Platform web service root
	DefaultBaseURL = "https://maps.googleapis.com/maps/api"

	// DefaultTimeout bounds a single provider request
	DefaultTimeout = 4 * time.Second

	// DefaultRateLimit is the default request rate (requests per second)
	DefaultRateLimit = 10

	// DefaultCacheTTL is how long geocode and places answers are reused
	DefaultCacheTTL = 30 * time.Minute
)

// apiClient is the shared HTTP plumbing of the Google-style providers
type apiClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     arbor.ILogger
	cacheTTL   time.Duration
}

// Option configures a provider client
type Option func(*apiClient)

// WithBaseURL sets a custom base URL
func WithBaseURL(baseURL string) Option {
	return func(c *apiClient) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *apiClient) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *apiClient) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithRateLimit sets a custom rate limit
func WithRateLimit(requestsPerSecond int) Option {
	return func(c *apiClient) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
		}
	}
}

// WithCacheTTL sets how long answers are cached
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *apiClient) {
		if ttl > 0 {
			c.cacheTTL = ttl
		}
	}
}

// WithLogger sets a logger
func WithLogger(logger arbor.ILogger) Option {
	return func(c *apiClient) {
		c.logger = logger
	}
}

func newAPIClient(apiKey string, opts ...Option) *apiClient {
	c := &apiClient{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter:  rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		cacheTTL: DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = arbor.NewLogger()
	}
	return c
}

// getJSON performs a rate-limited GET and decodes the JSON body into out
func (c *apiClient) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limiter: %v", model.ErrProviderTimeout, err)
	}

	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}
	fullURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s returned status %d: %s", model.ErrProviderUnavailable, path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode %s response: %v", model.ErrProviderUnavailable, path, err)
	}
	return nil
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", model.ErrProviderTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", model.ErrProviderTimeout, err)
	}
	return fmt.Errorf("%w: %v", model.ErrProviderUnavailable, err)
}

// latLng formats a point the way the Google web services expect
func latLng(p model.Coordinates) string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}

// googleLocation is the location object shared by geocode and places responses
type googleLocation struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type googleGeometry struct {
	Location googleLocation `json:"location"`
}

// Google status values that are not failures of the service itself
const (
	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"
)
