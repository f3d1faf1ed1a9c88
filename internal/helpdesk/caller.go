package helpdesk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Header names sent on every call.
const (
	SubscriptionKeyHeader = "Ocp-Apim-Subscription-Key"
	CanaryHeader          = "X-CANARY"
)

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Response is a completed HTTP exchange. Error statuses are responses too;
// callers inspect Status.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("empty response body (status %d)", r.Status)
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response body (status %d): %w", r.Status, err)
	}
	return nil
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.Status >= 200 && r.Status < 300
}

// ContentType returns the lowercased media type without parameters, or ""
// when the header is missing or malformed.
func (r *Response) ContentType() string {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mt
}

// Caller issues requests relative to a base URL with a fixed header set. The
// helpdesk, attachment and tokenizer gateways share it.
type Caller struct {
	base    string
	headers http.Header
	doer    Doer
	logger  *slog.Logger
}

// CallerOption configures a Caller.
type CallerOption func(*Caller)

// WithHeader adds a header to every request. Empty values are skipped.
func WithHeader(key, value string) CallerOption {
	return func(c *Caller) {
		if value != "" {
			c.headers.Set(key, value)
		}
	}
}

// WithSubscriptionKey sets the API gateway subscription key header.
func WithSubscriptionKey(key string) CallerOption {
	return WithHeader(SubscriptionKeyHeader, key)
}

// WithCanary routes requests to the canary deployment when enabled.
func WithCanary(enabled bool) CallerOption {
	return func(c *Caller) {
		if enabled {
			c.headers.Set(CanaryHeader, "canary")
		}
	}
}

// WithDoer replaces the default HTTP client.
func WithDoer(d Doer) CallerOption {
	return func(c *Caller) {
		c.doer = d
	}
}

// WithLogger sets the logger used for request tracing at debug level.
func WithLogger(l *slog.Logger) CallerOption {
	return func(c *Caller) {
		c.logger = l
	}
}

// NewCaller returns a caller for baseURL. The default client times out after
// 30 seconds.
func NewCaller(baseURL string, opts ...CallerOption) (*Caller, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", baseURL)
	}

	c := &Caller{
		base:    strings.TrimRight(baseURL, "/"),
		headers: http.Header{},
		doer:    &http.Client{Timeout: 30 * time.Second},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// URL joins path onto the base URL with exactly one slash, and appends query.
func (c *Caller) URL(path string, query url.Values) string {
	u := c.base
	if path = strings.TrimLeft(path, "/"); path != "" {
		u += "/" + path
	}
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Get issues a GET for path.
func (c *Caller) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.do(ctx, http.MethodGet, c.URL(path, query), nil)
}

// Put issues a PUT for path with a JSON body.
func (c *Caller) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.doJSON(ctx, http.MethodPut, path, body)
}

// Post issues a POST for path with a JSON body.
func (c *Caller) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.doJSON(ctx, http.MethodPost, path, body)
}

func (c *Caller) doJSON(ctx context.Context, method, path string, body any) (*Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}
	return c.do(ctx, method, c.URL(path, nil), data)
}

func (c *Caller) do(ctx context.Context, method, target string, body []byte) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s %s: %w", method, target, err)
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s %s response: %w", method, target, err)
	}

	c.logger.Debug("http call",
		"method", method,
		"url", target,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}
