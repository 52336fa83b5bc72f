package api

import (
	"net/http"
	"net/url"
	"time"
)

// Options configures a Client.
type Options struct {
	BaseURL    *url.URL
	HTTPClient *http.Client
}

// OptionFunc sets one option.
type OptionFunc func(opts *Options)

// WithBaseURL sets the API root. Record collections live at
// {base}/{kind}.
func WithBaseURL(baseURL *url.URL) OptionFunc {
	return func(opts *Options) {
		opts.BaseURL = baseURL
	}
}

// WithHTTPClient replaces the HTTP client, including its transport.
func WithHTTPClient(httpClient *http.Client) OptionFunc {
	return func(opts *Options) {
		opts.HTTPClient = httpClient
	}
}

// WithTimeout sets the per-request timeout. It applies to a copy of the
// HTTP client, so a client passed to WithHTTPClient is left as it was.
func WithTimeout(d time.Duration) OptionFunc {
	return func(opts *Options) {
		c := *opts.HTTPClient
		c.Timeout = d
		opts.HTTPClient = &c
	}
}

// NewOptions returns the defaults with funcs applied.
func NewOptions(funcs ...OptionFunc) *Options {
	opts := &Options{
		BaseURL: &url.URL{
			Scheme: "http",
			Host:   "localhost:8080",
			Path:   "/api",
		},
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &RateLimitTransport{
				Base:        http.DefaultTransport,
				MaxRetries:  3,
				DefaultWait: time.Second,
			},
		},
	}
	for _, fn := range funcs {
		fn(opts)
	}
	return opts
}
