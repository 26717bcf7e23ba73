// Package client is the session for the Empyreal API: one Client per API key
// and environment, with one binding per resource area.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wnt/empyreal/transport"
)

// Environment selects a deployment of the API
type Environment string

const (
	Production Environment = "prod"
	Local      Environment = "local"
)

// DefaultVersion is the API version prefixed to every path
const DefaultVersion = "v1"

var environmentURLs = map[Environment]string{
	Local:      "http://localhost:8080",
	Production: "https://api.empyrealsdk.com",
}

// BaseURL returns the root URL of the environment
func (e Environment) BaseURL() (string, error) {
	u, ok := environmentURLs[Environment(strings.ToLower(string(e)))]
	if !ok {
		return "", fmt.Errorf("unknown environment %q", e)
	}
	return u, nil
}

// Client holds the read-only session settings and the resource bindings
type Client struct {
	baseURL   string
	version   string
	transport transport.Transport
	logger    zerolog.Logger

	App      *AppResource
	Infra    *InfraResource
	Token    *TokenResource
	Security *SecurityResource
	User     *UserResource
	Vault    *VaultResource
	Wallet   *WalletResource
	Prices   *PriceResource
	Swap     *SwapResource
}

type options struct {
	env        Environment
	baseURL    string
	version    string
	timeout    time.Duration
	rps        float64
	burst      int
	httpClient *http.Client
	transport  transport.Transport
	logger     zerolog.Logger
}

// Option configures New
type Option func(*options)

// WithEnvironment picks the deployment; ignored when WithBaseURL is set
func WithEnvironment(env Environment) Option {
	return func(o *options) { o.env = env }
}

// WithBaseURL overrides the environment URL
func WithBaseURL(baseURL string) Option {
	return func(o *options) { o.baseURL = baseURL }
}

// WithVersion overrides the API version
func WithVersion(version string) Option {
	return func(o *options) { o.version = version }
}

// WithTimeout sets the per-request timeout of the default transport
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) { o.timeout = timeout }
}

// WithRateLimit enables client-side throttling on the default transport
func WithRateLimit(perSecond float64, burst int) Option {
	return func(o *options) {
		o.rps = perSecond
		o.burst = burst
	}
}

// WithHTTPClient sets the http.Client used by the default transport
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithTransport replaces the transport entirely
func WithTransport(t transport.Transport) Option {
	return func(o *options) { o.transport = t }
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New creates a session for apiKey
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}

	o := options{
		env:     Production,
		version: DefaultVersion,
		timeout: 30 * time.Second,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	baseURL := o.baseURL
	if baseURL == "" {
		u, err := o.env.BaseURL()
		if err != nil {
			return nil, err
		}
		baseURL = u
	}

	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		version:   o.version,
		transport: o.transport,
		logger:    o.logger.With().Str("component", "empyreal").Logger(),
	}

	if c.transport == nil {
		topts := []transport.HTTPClientOption{
			transport.WithBaseURL(c.baseURL),
			transport.WithVersion(c.version),
			transport.WithAPIKey(apiKey),
			transport.WithRateLimit(o.rps, o.burst),
			transport.WithLogger(o.logger),
		}
		if o.httpClient != nil {
			topts = append(topts, transport.WithHTTPClient(o.httpClient))
		} else {
			topts = append(topts, transport.WithTimeout(o.timeout))
		}
		c.transport = transport.NewHTTPClient(topts...)
	}

	r := resource{client: c}
	c.App = &AppResource{r}
	c.Infra = &InfraResource{r}
	c.Token = &TokenResource{r}
	c.Security = &SecurityResource{r}
	c.User = &UserResource{r}
	c.Vault = &VaultResource{r}
	c.Wallet = &WalletResource{r}
	c.Prices = &PriceResource{r}
	c.Swap = &SwapResource{r}

	return c, nil
}

// BaseURL returns the root URL requests are sent to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Version returns the API version segment
func (c *Client) Version() string {
	return c.version
}

// Logger returns the session logger
func (c *Client) Logger() zerolog.Logger {
	return c.logger
}

// resource is embedded by every binding; it only points back at the session
type resource struct {
	client *Client
}

// call performs exactly one transport call and classifies the result
func (r resource) call(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	resp, err := r.client.transport.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := CheckResponse(resp); err != nil {
		r.client.logger.Debug().
			Err(err).
			Str("method", req.Method).
			Str("path", req.Path).
			Msg("API returned an error")
		return nil, err
	}
	return resp, nil
}

func (r resource) get(ctx context.Context, path string, query map[string]string) (*transport.Response, error) {
	return r.call(ctx, &transport.Request{Method: http.MethodGet, Path: path, QueryParams: query})
}

func (r resource) post(ctx context.Context, path string, body interface{}) (*transport.Response, error) {
	return r.call(ctx, &transport.Request{Method: http.MethodPost, Path: path, Body: body})
}

func (r resource) put(ctx context.Context, path string, body interface{}) (*transport.Response, error) {
	return r.call(ctx, &transport.Request{Method: http.MethodPut, Path: path, Body: body})
}

func decode[T any](resp *transport.Response) (T, error) {
	var out T
	if err := resp.DecodeJSON(&out); err != nil {
		return out, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}
