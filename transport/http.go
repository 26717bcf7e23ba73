// Package transport performs single HTTP calls against the versioned API and
// returns the raw result. Status codes are never interpreted here.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wnt/empyreal/internal/metrics"
	"golang.org/x/time/rate"
)

// APIKeyHeader carries the application key on every request
const APIKeyHeader = "API-KEY"

// ErrTransport matches every failure where no response was received
var ErrTransport = errors.New("transport failure")

// TransportError wraps a network-level failure (DNS, timeout, refused connection)
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports ErrTransport as a match so callers can test the kind without a type assertion
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// Transport issues one request and returns whatever the server answered
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// HTTPClient is the net/http backed Transport
type HTTPClient struct {
	client         *http.Client
	baseURL        string
	version        string
	apiKey         string
	defaultHeaders map[string]string
	limiter        *rate.Limiter
	logger         zerolog.Logger
}

// HTTPClientOption is a function that configures the HTTPClient
type HTTPClientOption func(*HTTPClient)

// WithTimeout sets the timeout for the HTTP client
func WithTimeout(timeout time.Duration) HTTPClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = timeout
	}
}

// WithBaseURL sets the base URL for the HTTP client
func WithBaseURL(baseURL string) HTTPClientOption {
	return func(c *HTTPClient) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithVersion sets the API version segment placed between the base URL and the path
func WithVersion(version string) HTTPClientOption {
	return func(c *HTTPClient) {
		c.version = strings.Trim(version, "/")
	}
}

// WithAPIKey sets the key sent in the API-KEY header
func WithAPIKey(apiKey string) HTTPClientOption {
	return func(c *HTTPClient) {
		c.apiKey = apiKey
	}
}

// WithDefaultHeaders adds headers sent with every request
func WithDefaultHeaders(headers map[string]string) HTTPClientOption {
	return func(c *HTTPClient) {
		for k, v := range headers {
			c.defaultHeaders[k] = v
		}
	}
}

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(client *http.Client) HTTPClientOption {
	return func(c *HTTPClient) {
		if client != nil {
			c.client = client
		}
	}
}

// WithRateLimit throttles outgoing requests client-side. A zero limit disables it.
func WithRateLimit(perSecond float64, burst int) HTTPClientOption {
	return func(c *HTTPClient) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(logger zerolog.Logger) HTTPClientOption {
	return func(c *HTTPClient) {
		c.logger = logger.With().Str("component", "transport").Logger()
	}
}

// NewHTTPClient creates a new HTTPClient with the given options
func NewHTTPClient(options ...HTTPClientOption) *HTTPClient {
	client := &HTTPClient{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		version: "v1",
		defaultHeaders: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
		logger: zerolog.Nop(),
	}

	for _, option := range options {
		option(client)
	}

	return client
}

// Request represents an HTTP request
type Request struct {
	Method      string
	Path        string
	QueryParams map[string]string
	Headers     map[string]string
	Body        interface{}
	// Route labels metrics and logs; defaults to Path. Set it when Path embeds ids.
	Route string
}

func (r *Request) route() string {
	if r.Route != "" {
		return r.Route
	}
	return r.Path
}

// Response represents an HTTP response
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// URL builds {baseURL}/{version}/{path}?{query}
func (c *HTTPClient) URL(path string, query map[string]string) string {
	var b strings.Builder
	b.WriteString(c.baseURL)
	if c.version != "" {
		b.WriteString("/")
		b.WriteString(c.version)
	}
	b.WriteString("/")
	b.WriteString(strings.TrimLeft(path, "/"))

	if len(query) > 0 {
		values := url.Values{}
		for k, v := range query {
			values.Set(k, v)
		}
		b.WriteString("?")
		b.WriteString(values.Encode())
	}
	return b.String()
}

// Do executes one HTTP request. Non-2xx statuses are returned as ordinary responses.
func (c *HTTPClient) Do(ctx context.Context, req *Request) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	target := c.URL(req.Path, req.QueryParams)
	route := req.route()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	var bodyReader io.Reader
	if req.Body != nil {
		bodyBytes, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, v := range c.defaultHeaders {
		httpReq.Header.Set(k, v)
	}
	if c.apiKey != "" {
		httpReq.Header.Set(APIKeyHeader, c.apiKey)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		metrics.RecordTransportError(route)
		c.logger.Debug().Err(err).Str("method", req.Method).Str("route", route).Msg("Request failed")
		return nil, &TransportError{Method: req.Method, URL: c.URL(req.Path, nil), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordTransportError(route)
		return nil, &TransportError{Method: req.Method, URL: c.URL(req.Path, nil), Err: fmt.Errorf("read body: %w", err)}
	}

	duration := time.Since(start)
	metrics.RecordAPIRequest(req.Method, route, resp.StatusCode, duration.Seconds())
	c.logger.Debug().
		Str("method", req.Method).
		Str("route", route).
		Int("status", resp.StatusCode).
		Dur("duration", duration).
		Msg("Request completed")

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       respBody,
	}, nil
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, path string, queryParams map[string]string) (*Response, error) {
	return c.Do(ctx, &Request{
		Method:      http.MethodGet,
		Path:        path,
		QueryParams: queryParams,
	})
}

// Post performs a POST request
func (c *HTTPClient) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodPost,
		Path:   path,
		Body:   body,
	})
}

// Put performs a PUT request
func (c *HTTPClient) Put(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodPut,
		Path:   path,
		Body:   body,
	})
}

// Delete performs a DELETE request
func (c *HTTPClient) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{
		Method: http.MethodDelete,
		Path:   path,
	})
}

// DecodeJSON decodes the response body into the target
func (r *Response) DecodeJSON(target interface{}) error {
	if len(r.Body) == 0 {
		return errors.New("empty response body")
	}
	return json.Unmarshal(r.Body, target)
}

// String returns the response body as a string
func (r *Response) String() string {
	return string(r.Body)
}

// IsSuccess returns true if the status code is between 200 and 299
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode <= 299
}
