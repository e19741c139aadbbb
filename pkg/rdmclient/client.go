// Package rdmclient provides the main entry point for creating InvenioRDM API clients
package rdmclient

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/fivetwenty-io/rdm-client/internal/constants"
	rdmhttp "github.com/fivetwenty-io/rdm-client/internal/http"
	"github.com/fivetwenty-io/rdm-client/pkg/rdm"
	"golang.org/x/oauth2"
)

// New creates a new InvenioRDM API client. No request is sent.
func New(config *rdm.Config) (*rdm.Client, error) {
	if config == nil {
		return nil, rdm.ErrConfigRequired
	}

	if config.BaseURL == "" {
		return nil, rdm.ErrBaseURLRequired
	}

	// Normalize base URL
	baseURL := strings.TrimSuffix(config.BaseURL, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "https://" + baseURL
	}

	opts, err := transportOptions(config)
	if err != nil {
		return nil, err
	}

	var tokens oauth2.TokenSource
	if config.AccessToken != "" {
		tokens = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: config.AccessToken})
	}

	return rdm.NewClient(baseURL, rdmhttp.NewClient(tokens, opts...)), nil
}

func transportOptions(config *rdm.Config) ([]rdmhttp.Option, error) {
	var opts []rdmhttp.Option

	if config.Logger != nil {
		opts = append(opts, rdmhttp.WithLogger(config.Logger))

		if adapter, ok := config.Logger.(*HCLogger); ok && config.Debug {
			opts = append(opts, rdmhttp.WithLeveledLogger(adapter.logger))
		}
	}

	if config.Debug {
		opts = append(opts, rdmhttp.WithDebug(true))
	}

	if config.UserAgent != "" {
		opts = append(opts, rdmhttp.WithUserAgent(config.UserAgent))
	}

	if config.RetryMax > 0 {
		waitMin := config.RetryWaitMin
		if waitMin == 0 {
			waitMin = constants.DefaultRetryWaitMin
		}

		waitMax := config.RetryWaitMax
		if waitMax == 0 {
			waitMax = constants.DefaultRetryWaitMax
		}

		opts = append(opts, rdmhttp.WithRetryConfig(config.RetryMax, waitMin, waitMax))
	}

	httpClient, err := createHTTPClient(config)
	if err != nil {
		return nil, err
	}

	if httpClient != nil {
		opts = append(opts, rdmhttp.WithHTTPClient(httpClient))
	}

	if config.Interceptors != nil {
		opts = append(opts, rdmhttp.WithInterceptors(config.Interceptors))
	}

	return opts, nil
}

// isDevelopmentEnvironment checks if we're in a development environment.
func isDevelopmentEnvironment() bool {
	devMode := os.Getenv(constants.DevModeEnv)

	return devMode == "true" || devMode == "1"
}

// createHTTPClient returns the client to send requests with, or nil to keep
// the transport's default.
func createHTTPClient(config *rdm.Config) (*http.Client, error) {
	httpClient := config.HTTPClient

	if httpClient == nil && config.HTTPTimeout > 0 {
		httpClient = &http.Client{Timeout: config.HTTPTimeout}
	}

	if !config.SkipTLSVerify {
		return httpClient, nil
	}

	// Only allow insecure TLS in explicit development environments
	if !isDevelopmentEnvironment() {
		return nil, fmt.Errorf("%w (set %s=true)", rdm.ErrSkipTLSOnlyInDev, constants.DevModeEnv)
	}

	insecure := &http.Client{Timeout: constants.DefaultHTTPTimeout}
	if httpClient != nil {
		copied := *httpClient
		insecure = &copied
	}

	insecure.Transport = &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, // #nosec G402 -- Protected by development environment check above
	}

	return insecure, nil
}

// NewWithEndpoint creates a new client with just a base URL (no auth).
func NewWithEndpoint(baseURL string) (*rdm.Client, error) {
	return New(&rdm.Config{
		BaseURL: baseURL,
	})
}

// NewWithToken creates a new client with a base URL and access token.
func NewWithToken(baseURL, token string) (*rdm.Client, error) {
	return New(&rdm.Config{
		BaseURL:     baseURL,
		AccessToken: token,
	})
}
