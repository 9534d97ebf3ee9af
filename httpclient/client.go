package httpclient

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
	"sync"
	"time"

	"github.com/google/uuid"
	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/token"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultRefreshPath is where refresh tokens are exchanged.
	DefaultRefreshPath = "/auth/refresh"

	// HeaderRequestID correlates client and server logs.
	HeaderRequestID = "X-Request-ID"

	tracerName = "github.com/jrsteele09/go-auth-client/httpclient"
)

// RefreshPolicy decides what a 401 does while a refresh is already running.
type RefreshPolicy int

const (
	// RefreshJoin waits for the in-flight refresh and retries with its result.
	RefreshJoin RefreshPolicy = iota
	// RefreshFailFast returns the 401 immediately.
	RefreshFailFast
)

// ParseRefreshPolicy maps "fail-fast" to RefreshFailFast; anything else joins.
func ParseRefreshPolicy(s string) RefreshPolicy {
	if s == "fail-fast" {
		return RefreshFailFast
	}
	return RefreshJoin
}

// Client is the single outgoing request pipeline for the remote API. It
// attaches the stored bearer token to every request and recovers from a 401
// by exchanging the refresh token once and replaying the request.
type Client struct {
	baseURL        *url.URL
	tokens         *token.Store
	base           http.RoundTripper
	timeout        time.Duration
	refreshTimeout time.Duration
	refreshPath    string
	policy         RefreshPolicy
	userAgent      string
	onRefresh      func(token.Pair)
	onExpired      func()
	metrics        *Metrics
	tracer         trace.Tracer

	http *http.Client // intercepted
	raw  *http.Client // bypasses interception, used for the refresh call

	flight     singleflight.Group
	refreshing sync.Mutex
}

// Option defines a function type to modify the Client instance.
type Option func(*Client)

// WithTransport sets the transport underneath the interceptor.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.base = rt
	}
}

// WithTimeout bounds a whole logical request, including refresh and replay.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.refreshTimeout = d
	}
}

func WithRefreshPath(path string) Option {
	return func(c *Client) {
		c.refreshPath = path
	}
}

func WithRefreshPolicy(policy RefreshPolicy) Option {
	return func(c *Client) {
		c.policy = policy
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithOnRefresh is called after a refreshed pair has been stored.
func WithOnRefresh(fn func(token.Pair)) Option {
	return func(c *Client) {
		c.onRefresh = fn
	}
}

// WithOnExpired is called after a failed refresh has cleared the store.
func WithOnExpired(fn func()) Option {
	return func(c *Client) {
		c.onExpired = fn
	}
}

func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Client) {
		c.tracer = t
	}
}

// New creates a Client for the API rooted at baseURL.
func New(baseURL string, tokens *token.Store, opts ...Option) (*Client, error) {
	if tokens == nil {
		return nil, errors.New("[httpclient New] token store is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("[httpclient New] invalid base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("[httpclient New] base url %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL:        u,
		tokens:         tokens,
		base:           http.DefaultTransport,
		timeout:        30 * time.Second,
		refreshTimeout: 10 * time.Second,
		refreshPath:    DefaultRefreshPath,
		policy:         RefreshJoin,
		tracer:         otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.raw = &http.Client{Transport: c.base, Timeout: c.timeout}
	c.http = &http.Client{Transport: &interceptor{client: c}, Timeout: c.timeout}
	return c, nil
}

// HTTPClient returns an *http.Client running through the interceptor, for
// callers that want plain net/http semantics (no status to error mapping).
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

func (c *Client) Tokens() *token.Store {
	return c.tokens
}

// URL resolves path against the base URL. Absolute URLs are returned unchanged.
func (c *Client) URL(path string) string {
	if u, err := url.Parse(path); err == nil && u.IsAbs() {
		return path
	}
	return strings.TrimRight(c.baseURL.String(), "/") + "/" + strings.TrimLeft(path, "/")
}

// NewRequest builds a request for path with body encoded as JSON (nil for none).
func (c *Client) NewRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("[httpclient NewRequest] marshal body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), reader)
	if err != nil {
		return nil, fmt.Errorf("[httpclient NewRequest] %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Do sends req through the interceptor. Transport failures come back as
// *NetworkError, statuses >= 400 as *HTTPError, anything else as the response.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx, span := c.tracer.Start(req.Context(), "httpclient.request", trace.WithAttributes(
		attribute.String("http.method", req.Method),
		attribute.String("http.url", req.URL.Redacted()),
	))
	defer span.End()

	resp, err := c.send(c.http, req.WithContext(ctx))
	c.metrics.observeResult(resp, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	return resp, nil
}

func (c *Client) send(hc *http.Client, req *http.Request) (*http.Response, error) {
	resp, err := hc.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, &NetworkError{Method: req.Method, URL: req.URL.Redacted(), Err: err}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &HTTPError{
			Method:     req.Method,
			URL:        req.URL.Redacted(),
			StatusCode: resp.StatusCode,
			Message:    serverMessage(body, resp.StatusCode),
			Body:       body,
		}
	}
	return resp, nil
}

// GetJSON issues GET path and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	req, err := c.NewRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, out)
}

// PostJSON issues POST path with in as the JSON body and decodes into out (nil to discard).
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	req, err := c.NewRequest(ctx, http.MethodPost, path, in)
	if err != nil {
		return err
	}
	return c.doJSON(req, out)
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	return decodeJSON(resp, out)
}

func decodeJSON(resp *http.Response, out any) error {
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return autherrors.Wrapf(autherrors.ErrValidation, "[httpclient] decode %s response: %v", resp.Request.URL.Path, err)
	}
	return nil
}

// stamp adds the headers every outgoing request carries.
func (c *Client) stamp(req *http.Request) {
	if req.Header.Get(HeaderRequestID) == "" {
		req.Header.Set(HeaderRequestID, uuid.NewString())
	}
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
}
