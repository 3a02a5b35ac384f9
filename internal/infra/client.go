package infra

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout is the per-request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default request rate (requests per second).
	DefaultRateLimit = 2

	// DefaultUserAgent mimics a desktop browser; Yahoo rejects Go's default.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("GET %s: status %d: %s", e.URL, e.StatusCode, body)
}

// NotFound reports whether the server said the resource does not exist.
func (e *StatusError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Client is a paced HTTP client shared by the data sources. It holds a
// cookie jar, so session cookies set by one response are sent on the next.
type Client struct {
	rc      *resty.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.rc.SetTimeout(d)
		}
	}
}

// WithRateLimit sets the request rate in requests per second. A value of
// zero or less disables pacing.
func WithRateLimit(requestsPerSecond float64) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		burst := int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.rc.SetHeader("User-Agent", ua)
		}
	}
}

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.rc = resty.NewWithClient(hc).
			SetHeader("User-Agent", DefaultUserAgent).
			SetTimeout(DefaultTimeout)
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client with default timeout, user agent and rate.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		rc: resty.New().
			SetHeader("User-Agent", DefaultUserAgent).
			SetTimeout(DefaultTimeout),
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs a GET request and returns the response body. Non-2xx
// responses are returned as *StatusError.
func (c *Client) Get(ctx context.Context, url string, query map[string]string) ([]byte, error) {
	return c.GetWithHeaders(ctx, url, query, nil)
}

// GetWithHeaders is Get with extra request headers.
func (c *Client) GetWithHeaders(ctx context.Context, url string, query, headers map[string]string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req := c.rc.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}

	start := time.Now()
	resp, err := req.Get(url)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}

	c.logger.Debug().
		Str("url", url).
		Int("status", resp.StatusCode()).
		Dur("elapsed", time.Since(start)).
		Msg("http request")

	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return nil, &StatusError{
			URL:        url,
			StatusCode: resp.StatusCode(),
			Body:       string(resp.Body()),
		}
	}
	return resp.Body(), nil
}

// GetJSON performs a GET request and decodes the body into dest with
// DecodeJSON.
func (c *Client) GetJSON(ctx context.Context, url string, query map[string]string, dest any) error {
	body, err := c.GetWithHeaders(ctx, url, query, map[string]string{"Accept": "application/json"})
	if err != nil {
		return err
	}
	return DecodeJSON(body, dest)
}
