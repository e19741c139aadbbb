package rdm

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Version is the library version reported in the default User-Agent.
const Version = "0.3.0"

// DefaultUserAgent is sent when Config.UserAgent is empty.
const DefaultUserAgent = "inveniordm-go/" + Version

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Transport executes a single request. Implementations return an
// *HTTPError together with the response for non-2xx statuses and must not
// retry on any HTTP status.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// Config represents client configuration for building an rdm.Client.
//
// # Authentication
//
// AccessToken is a personal access token created in the InvenioRDM user
// settings. It is sent as "Authorization: Bearer <token>" on every request.
// An empty token sends unauthenticated requests, which is enough for
// searching public records.
//
// # Timeouts, retries, and TLS
//
// Per-request timeouts should be controlled via the context passed to
// resource methods. RetryMax only applies to connection failures; responses
// with any HTTP status, including 429 and 5xx, are returned to the caller
// unchanged. SkipTLSVerify is only honored when the environment variable
// RDM_DEV_MODE is set to "true" or "1", which suits local instances with a
// self-signed certificate.
type Config struct {
	// BaseURL: API root of the instance (e.g., "https://zenodo.org/api").
	// rdmclient.New trims a trailing slash and adds "https://" if no
	// scheme is present.
	BaseURL string
	// AccessToken: bearer token sent with every request.
	AccessToken string

	// HTTPClient: optional pre-configured client. Its Transport and Timeout
	// are reused by the retrying transport.
	HTTPClient *http.Client
	// HTTPTimeout: default timeout when HTTPClient is nil.
	HTTPTimeout time.Duration
	// RetryMax: retries after connection errors. Zero disables retries.
	RetryMax int
	// RetryWaitMin: minimum wait between retries.
	RetryWaitMin time.Duration
	// RetryWaitMax: maximum wait between retries.
	RetryWaitMax time.Duration
	// Debug: enables request/response logging when a Logger is provided.
	Debug bool
	// Logger: optional structured logger used by the HTTP layer.
	Logger Logger
	// SkipTLSVerify: disables certificate checks, only with RDM_DEV_MODE set.
	SkipTLSVerify bool
	// UserAgent: overrides DefaultUserAgent.
	UserAgent string
	// Interceptors: optional request/response hooks run by the transport.
	Interceptors *InterceptorChain
}

// Client is the entry point into the resource hierarchy.
type Client struct {
	baseURL   string
	transport Transport
}

// NewClient creates a client for baseURL that sends requests through
// transport. A trailing slash on baseURL is dropped.
func NewClient(baseURL string, transport Transport) *Client {
	return &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		transport: transport,
	}
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Transport returns the transport shared by all resources of this client.
func (c *Client) Transport() Transport {
	return c.transport
}

// Records returns the /records collection.
func (c *Client) Records() *RecordList {
	return &RecordList{Resource: NewResource(c, recordsEndpoint, nil)}
}

// Communities returns the /communities collection.
func (c *Client) Communities() *CommunityList {
	return &CommunityList{Resource: NewResource(c, communitiesEndpoint, nil)}
}
