package rdm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Target is anything a verb call can materialize its response into. Every
// resource type in this package is a Target.
type Target interface {
	base() *Resource
}

// Resource binds an endpoint template to HTTP verbs and holds the metadata
// of the last successful call. Constructing a Resource never performs I/O.
type Resource struct {
	client   *Client
	template string
	args     Args
	argsErr  error
	data     *Metadata
}

// NewResource creates a resource for template with explicit path arguments.
func NewResource(client *Client, template string, args Args) Resource {
	return Resource{client: client, template: template, args: args.Merge(nil)}
}

func (r *Resource) base() *Resource {
	return r
}

// Client returns the client the resource was created from.
func (r *Resource) Client() *Client {
	return r.client
}

// Template returns the endpoint template.
func (r *Resource) Template() string {
	return r.template
}

// Data returns the held metadata, or nil before the first successful call.
func (r *Resource) Data() *Metadata {
	return r.data
}

// SetData replaces the held metadata.
func (r *Resource) SetData(m *Metadata) {
	r.data = m
}

// EndpointArgs returns the explicit arguments merged over the arguments
// derived from held metadata. Explicit arguments win.
func (r *Resource) EndpointArgs() (Args, error) {
	if r.argsErr != nil {
		return nil, r.argsErr
	}

	if r.data == nil {
		return r.args.Merge(nil), nil
	}

	derived, err := r.data.EndpointArgs()
	if err != nil {
		return nil, err
	}

	return derived.Merge(r.args), nil
}

// URL builds the absolute URL for the resource with suffix appended.
func (r *Resource) URL(suffix string) (string, error) {
	args, err := r.EndpointArgs()
	if err != nil {
		return "", err
	}

	var missing []string

	path := placeholderPattern.ReplaceAllStringFunc(r.template, func(placeholder string) string {
		name := placeholder[1 : len(placeholder)-1]

		value, ok := args[name]
		if !ok || value == "" {
			missing = append(missing, name)

			return placeholder
		}

		return url.PathEscape(value)
	})

	if len(missing) > 0 {
		return "", &UnresolvedEndpointError{Template: r.template, Placeholders: missing}
	}

	return r.client.baseURL + path + suffix, nil
}

// Headers returns the negotiation headers for a call decoding into accept
// and sending body. Extra headers are applied last and only replace Accept
// or Content-Type when they name them.
func (r *Resource) Headers(accept Contract, body *Metadata, extra map[string]string) http.Header {
	headers := make(http.Header)

	if accept != nil && accept.AcceptType() != "" {
		headers.Set("Accept", accept.AcceptType())
	}

	if body != nil && body.RequestContentType() != "" {
		headers.Set("Content-Type", body.RequestContentType())
	}

	for key, value := range extra {
		headers.Set(key, value)
	}

	return headers
}

// child derives a resource for template inheriting every argument this
// resource currently resolves, plus extra. A derivation failure is kept
// and reported when the child builds its URL.
func (r *Resource) child(template string, extra Args) Resource {
	args, err := r.EndpointArgs()

	return Resource{
		client:   r.client,
		template: template,
		args:     args.Merge(extra),
		argsErr:  err,
	}
}

// bindHit creates a resource for template that holds hit and binds the
// arguments derived from it explicitly.
func bindHit(client *Client, template string, hit *Metadata) Resource {
	args, err := hit.EndpointArgs()

	return Resource{
		client:   client,
		template: template,
		args:     args.Merge(nil),
		argsErr:  err,
		data:     hit,
	}
}

// RequestOption customizes a single verb call.
type RequestOption func(*requestOptions)

type requestOptions struct {
	body    *Metadata
	suffix  string
	headers map[string]string
	query   url.Values
	target  Target
}

// WithBody sends m as the request body.
func WithBody(m *Metadata) RequestOption {
	return func(o *requestOptions) {
		o.body = m
	}
}

// WithSuffix appends suffix to the resource URL, e.g. "/actions/publish".
func WithSuffix(suffix string) RequestOption {
	return func(o *requestOptions) {
		o.suffix = suffix
	}
}

// WithHeaders adds headers to the request.
func WithHeaders(headers map[string]string) RequestOption {
	return func(o *requestOptions) {
		if o.headers == nil {
			o.headers = make(map[string]string, len(headers))
		}

		for key, value := range headers {
			o.headers[key] = value
		}
	}
}

// WithQuery sets the query string.
func WithQuery(query url.Values) RequestOption {
	return func(o *requestOptions) {
		o.query = query
	}
}

// WithTarget materializes the response into target instead of the
// resource the verb is called on.
func WithTarget(target Target) RequestOption {
	return func(o *requestOptions) {
		o.target = target
	}
}

func applyOptions(opts []RequestOption) *requestOptions {
	o := &requestOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Get fetches the resource and replaces the target's data with the decoded
// response.
func (r *Resource) Get(ctx context.Context, contract Contract, opts ...RequestOption) error {
	return r.call(ctx, http.MethodGet, contract, applyOptions(opts))
}

// Post sends a POST and replaces the target's data with the decoded response.
func (r *Resource) Post(ctx context.Context, contract Contract, opts ...RequestOption) error {
	return r.call(ctx, http.MethodPost, contract, applyOptions(opts))
}

// Put sends a PUT and replaces the target's data with the decoded response.
func (r *Resource) Put(ctx context.Context, contract Contract, opts ...RequestOption) error {
	return r.call(ctx, http.MethodPut, contract, applyOptions(opts))
}

// Delete sends a DELETE. With a nil contract the response body is ignored
// and the target's data is left as is.
func (r *Resource) Delete(ctx context.Context, contract Contract, opts ...RequestOption) error {
	return r.call(ctx, http.MethodDelete, contract, applyOptions(opts))
}

// Raw performs a GET and returns the response without decoding it or
// touching any held data.
func (r *Resource) Raw(ctx context.Context, contract Contract, opts ...RequestOption) (*Response, error) {
	return r.send(ctx, http.MethodGet, contract, applyOptions(opts))
}

func (r *Resource) call(ctx context.Context, method string, contract Contract, o *requestOptions) error {
	resp, err := r.send(ctx, method, contract, o)
	if err != nil {
		return err
	}

	if contract == nil {
		return nil
	}

	m, err := contract.Decode(resp.Body)
	if err != nil {
		return err
	}

	target := r
	if o.target != nil {
		target = o.target.base()
	}

	target.data = m

	return nil
}

func (r *Resource) send(ctx context.Context, method string, contract Contract, o *requestOptions) (*Response, error) {
	endpoint, err := r.URL(o.suffix)
	if err != nil {
		return nil, err
	}

	req := &Request{
		Method:  method,
		URL:     endpoint,
		Query:   o.query,
		Headers: r.Headers(contract, o.body, o.headers),
	}

	if o.body != nil {
		req.Body, err = o.body.Contract().Encode(o.body)
		if err != nil {
			return nil, err
		}
	}

	resp, err := r.client.transport.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, NewHTTPError(resp.StatusCode, resp.Body)
	}

	return resp, nil
}

func (r *Resource) String() string {
	endpoint, err := r.URL("")
	if err != nil {
		return fmt.Sprintf("%s %v", r.template, r.args)
	}

	return strings.TrimPrefix(endpoint, r.client.baseURL)
}
