// Package api is a types.Remote that talks to the marketplace REST API.
//
// Records of each kind form a collection at {base}/{kind}:
//
//	GET    {base}/{kind}       list, a JSON array of records
//	POST   {base}/{kind}       create, the record in the body
//	PATCH  {base}/{kind}/{id}  update, the patch in the body
//	DELETE {base}/{kind}/{id}  delete
//
// 404 maps to types.ErrNotFound and 400, 409 and 422 to
// types.ErrMutationRejected. Other failures are transport errors.
package api

import (
	"net/http"
	"net/url"

	"github.com/mesh-intelligence/marketdesk/pkg/types"
)

// Client is a REST client for marketplace records.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

var _ types.Remote = (*Client)(nil)

// New returns a client configured by funcs.
func New(funcs ...OptionFunc) *Client {
	opts := NewOptions(funcs...)
	return &Client{
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
	}
}
