package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/zgpcy/cost-console/internal/logger"
	"github.com/zgpcy/cost-console/internal/version"
)

// Upstream call constants
const (
	// DefaultRequestTimeout bounds a single HTTP exchange
	DefaultRequestTimeout = 60 * time.Second

	// MaxBodyBytes caps how much of a response body is read
	MaxBodyBytes = 8 << 20

	// InitialRetryInterval is the initial backoff interval for retries
	InitialRetryInterval = 250 * time.Millisecond

	// MaxRetryInterval is the maximum backoff interval between retries
	MaxRetryInterval = 5 * time.Second
)

// Doer sends one HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client issues JSON requests against one provider's API
type Client struct {
	provider   string
	baseURL    string
	http       Doer
	header     http.Header
	hint       HintFunc
	maxRetries int
	logger     *logger.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default instrumented *http.Client
func WithHTTPClient(d Doer) Option {
	return func(c *Client) {
		if d != nil {
			c.http = d
		}
	}
}

// WithBearer sets "Authorization: Bearer <token>"
func WithBearer(token string) Option {
	return WithHeader("Authorization", "Bearer "+token)
}

// WithHeader sets a header on every request
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.header.Set(key, value)
	}
}

// WithHint adds provider-specific hints, tried before DefaultHint
func WithHint(h HintFunc) Option {
	return func(c *Client) {
		c.hint = Hints(h, DefaultHint)
	}
}

// WithRetries retries transport failures, 429 and 5xx up to n times
func WithRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// WithLogger sets the logger used for retry diagnostics
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for provider (the display name used in error
// messages) rooted at baseURL. Each client owns its own *http.Client.
func New(provider, baseURL string, opts ...Option) *Client {
	c := &Client{
		provider: provider,
		baseURL:  baseURL,
		http: &http.Client{
			Timeout:   DefaultRequestTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		header: http.Header{},
		hint:   DefaultHint,
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetJSON issues a GET for path with query and decodes the JSON body into out
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

// PostJSON encodes in as the request body and decodes the response into out
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", c.provider, err)
	}
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

// Do sends one request, retrying per WithRetries. Non-2xx responses are
// returned as *StatusError.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body []byte, out any) error {
	if c.maxRetries == 0 {
		_, err := c.attempt(ctx, method, path, query, body, out)
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = InitialRetryInterval
	bo.MaxInterval = MaxRetryInterval
	bo.MaxElapsedTime = 0

	tries := 0
	operation := func() error {
		tries++
		retryable, err := c.attempt(ctx, method, path, query, body, out)
		if err == nil {
			return nil
		}
		if !retryable {
			return backoff.Permanent(err)
		}
		c.logger.Debug("Upstream call failed, will retry",
			"upstream", c.provider,
			"attempt", tries,
			"error", err)
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.maxRetries)), ctx)
	return backoff.Retry(operation, policy)
}

// attempt performs one exchange and reports whether a failure is retryable
func (c *Client) attempt(ctx context.Context, method, path string, query url.Values, body []byte, out any) (bool, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return false, fmt.Errorf("failed to build %s request: %w", c.provider, err)
	}
	for k, v := range c.header {
		req.Header[k] = v
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		return ctx.Err() == nil, fmt.Errorf("%s request failed: %w", c.provider, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return ctx.Err() == nil, fmt.Errorf("failed to read %s response: %w", c.provider, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{
			Provider:   c.provider,
			StatusCode: resp.StatusCode,
			Excerpt:    Excerpt(data),
		}
		statusErr.Hint = c.hint(resp.StatusCode, statusErr.Excerpt)
		return statusErr.Retryable(), statusErr
	}

	if out == nil {
		return false, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return false, fmt.Errorf("%s returned an empty body", c.provider)
		}
		return false, fmt.Errorf("%s returned invalid JSON: %w", c.provider, err)
	}
	return false, nil
}
