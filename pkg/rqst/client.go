package rqst

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultTimeout = 30 * time.Second

// ClientOptions configures a Client. The zero value is usable.
type ClientOptions struct {
	// Timeout bounds the whole exchange, body reads included. Defaults to 30s.
	Timeout time.Duration
	// HTTPClient replaces the underlying *http.Client (custom transports, proxies, tests).
	HTTPClient *http.Client
	Logger     Logger
	// RestyLogger receives resty's own diagnostics when Debug is set.
	RestyLogger resty.Logger
	Debug       bool
}

// Client issues HTTP requests and wraps each result in a Response.
type Client struct {
	client *resty.Client
	log    Logger
}

// NewClient builds a resty-backed client.
func NewClient(opts ClientOptions) *Client {
	var c *resty.Client
	if opts.HTTPClient != nil {
		c = resty.NewWithClient(opts.HTTPClient)
	} else {
		c = resty.New()
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c.SetTimeout(timeout)

	if opts.RestyLogger != nil {
		c.SetLogger(opts.RestyLogger)
	}
	c.SetDebug(opts.Debug)

	return &Client{client: c, log: ensureLogger(opts.Logger)}
}

// Get issues a GET request. It returns once response headers arrive; the body
// is left unread on the returned Response.
func (c *Client) Get(ctx context.Context, url string, opts RequestOptions) (*Response, error) {
	return c.Do(ctx, MethodGet, url, opts)
}

// Do issues a request with the given method. Non-2xx statuses are not errors.
func (c *Client) Do(ctx context.Context, method Method, url string, opts RequestOptions) (*Response, error) {
	if c == nil || c.client == nil {
		return nil, fmt.Errorf("rqst client is not initialized")
	}
	if method.IsZero() {
		return nil, newError(KindRequest, "", url, ErrInvalidMethod)
	}
	op := method.String()

	headers, err := NormalizeHeaders(opts.Headers)
	if err != nil {
		return nil, newError(KindRequest, op, url, err)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	req := c.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}

	c.log.DebugObj("rqst request issued", "rqst_request", map[string]any{
		"method":        op,
		"url":           url,
		"headers_count": len(headers),
	})

	start := time.Now()
	resp, err := req.Execute(op, url)
	if err != nil {
		if resp != nil && resp.RawBody() != nil {
			_ = resp.RawBody().Close()
		}
		c.log.WarnObj("rqst request failed", "rqst_error", map[string]any{
			"method": op,
			"url":    url,
			"error":  err.Error(),
		})
		return nil, newError(KindTransport, op, url, err)
	}

	c.log.DebugObj("rqst response received", "rqst_response", map[string]any{
		"method":     op,
		"url":        url,
		"status":     resp.StatusCode(),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})

	return newResponse(url, resp), nil
}
