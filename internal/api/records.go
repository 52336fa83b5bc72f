package api

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"github.com/mesh-intelligence/marketdesk/pkg/types"
)

// List returns every record of kind.
func (c *Client) List(ctx context.Context, kind types.Kind) ([]types.Record, error) {
	var records []types.Record
	if err := c.jsonRequest(ctx, http.MethodGet, []string{string(kind)}, nil, &records); err != nil {
		return nil, errors.WithStack(err)
	}
	if records == nil {
		records = []types.Record{}
	}
	return records, nil
}

// Create posts a new record and returns the server's version of it.
func (c *Client) Create(ctx context.Context, record types.Record) (types.Record, error) {
	var created types.Record
	if err := c.jsonRequest(ctx, http.MethodPost, []string{string(record.Kind)}, record, &created); err != nil {
		return types.Record{}, errors.WithStack(err)
	}
	return created, nil
}

// Update sends patch and returns the server's version of the record.
func (c *Client) Update(ctx context.Context, kind types.Kind, id string, patch types.Patch) (types.Record, error) {
	var updated types.Record
	if err := c.jsonRequest(ctx, http.MethodPatch, []string{string(kind), id}, patch, &updated); err != nil {
		return types.Record{}, errors.WithStack(err)
	}
	return updated, nil
}

// Delete removes a record.
func (c *Client) Delete(ctx context.Context, kind types.Kind, id string) error {
	if err := c.request(ctx, http.MethodDelete, []string{string(kind), id}, nil, nil); err != nil {
		return errors.WithStack(err)
	}
	return nil
}
