// Package http implements the transport session shared by all resources: it
// injects the default headers, runs the interceptor chain, and turns non-2xx
// responses into rdm.HTTPError values.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/fivetwenty-io/rdm-client/internal/constants"
	"github.com/fivetwenty-io/rdm-client/pkg/rdm"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/oauth2"
)

// Client is a retrying HTTP client bound to one access token.
type Client struct {
	httpClient *retryablehttp.Client
	tokens     oauth2.TokenSource
	userAgent  string
	logger     rdm.Logger
	debug      bool
	chain      *rdm.InterceptorChain
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger rdm.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request/response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithRetryConfig configures retries after connection errors.
func WithRetryConfig(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = retryMax
		c.httpClient.RetryWaitMin = waitMin
		c.httpClient.RetryWaitMax = waitMax
	}
}

// WithHTTPClient reuses a pre-configured client as the underlying transport.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient.HTTPClient = httpClient
		}
	}
}

// WithInterceptors runs chain around every request.
func WithInterceptors(chain *rdm.InterceptorChain) Option {
	return func(c *Client) {
		if chain != nil {
			c.chain = chain
		}
	}
}

// WithLeveledLogger forwards retryablehttp's own logging to logger.
func WithLeveledLogger(logger retryablehttp.LeveledLogger) Option {
	return func(c *Client) {
		c.httpClient.Logger = logger
	}
}

// NewClient creates a new HTTP client. A nil token source sends
// unauthenticated requests.
func NewClient(tokens oauth2.TokenSource, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 0
	retryClient.RetryWaitMin = constants.DefaultRetryWaitMin
	retryClient.RetryWaitMax = constants.DefaultRetryWaitMax
	retryClient.Logger = nil
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout
	retryClient.CheckRetry = checkRetry
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &Client{
		httpClient: retryClient,
		tokens:     tokens,
		userAgent:  rdm.DefaultUserAgent,
		chain:      rdm.NewInterceptorChain(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// checkRetry retries connection failures only. Any HTTP status is final.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if err == nil {
		return false, nil
	}

	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// Do executes req. For non-2xx statuses both the response and an
// *rdm.HTTPError are returned.
func (c *Client) Do(ctx context.Context, req *rdm.Request) (*rdm.Response, error) {
	if req.Headers == nil {
		req.Headers = make(http.Header)
	}

	err := c.chain.ExecuteRequestInterceptors(ctx, req)
	if err != nil {
		return nil, err
	}

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"method": req.Method,
			"url":    httpReq.URL.String(),
		})
	}

	start := time.Now()

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"status":   httpResp.StatusCode,
			"url":      httpReq.URL.String(),
			"duration": time.Since(start).String(),
			"bytes":    len(body),
		})
	}

	resp := &rdm.Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		resp.Error = rdm.NewHTTPError(resp.StatusCode, body)
	}

	err = c.chain.ExecuteResponseInterceptors(ctx, req, resp)
	if err != nil {
		return resp, err
	}

	return resp, resp.Error
}

func (c *Client) newRequest(ctx context.Context, req *rdm.Request) (*retryablehttp.Request, error) {
	target, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing URL %q: %w", req.URL, err)
	}

	if len(req.Query) > 0 {
		query := target.Query()

		for key, values := range req.Query {
			query[key] = values
		}

		target.RawQuery = query.Encode()
	}

	var body interface{}
	if req.Body != nil {
		body = req.Body
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("User-Agent", c.userAgent)

	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return nil, fmt.Errorf("getting access token: %w", err)
		}

		if token.AccessToken != "" {
			token.SetAuthHeader(httpReq.Request)
		}
	}

	for key, values := range req.Headers {
		httpReq.Header[http.CanonicalHeaderKey(key)] = values
	}

	return httpReq, nil
}
