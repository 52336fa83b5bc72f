package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/mesh-intelligence/marketdesk/pkg/types"
)

// maxErrorBody bounds how much of an error response is kept as the message.
const maxErrorBody = 4096

// StatusError is a non-2xx response. It matches types.ErrNotFound for 404
// and types.ErrMutationRejected for 400, 409 and 422.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: unexpected response code %d", e.Method, e.Path, e.Code)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusNotFound:
		return types.ErrNotFound
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return types.ErrMutationRejected
	}
	return nil
}

// request sends one call to {base}/{segments...}. body, when non-nil, is
// encoded as JSON; a 2xx response body is copied to result when it is
// non-nil.
func (c *Client) request(ctx context.Context, method string, segments []string, body any, result io.Writer) error {
	u := c.baseURL.JoinPath(segments...)

	slog.DebugContext(ctx, "new client request",
		slog.String("method", method),
		slog.String("path", u.Path),
		slog.String("host", u.Host),
	)

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.WithStack(err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return errors.WithStack(err)
	}
	defer res.Body.Close()

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return errors.WithStack(&StatusError{
			Method:  method,
			Path:    u.Path,
			Code:    res.StatusCode,
			Message: errorMessage(res.Body),
		})
	}

	if result == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if _, err := io.Copy(result, res.Body); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

func (c *Client) jsonRequest(ctx context.Context, method string, segments []string, body any, result any) error {
	var buff bytes.Buffer

	if err := c.request(ctx, method, segments, body, &buff); err != nil {
		return errors.WithStack(err)
	}

	// 204 and other empty bodies leave result untouched.
	if buff.Len() == 0 {
		return nil
	}

	if err := json.Unmarshal(buff.Bytes(), result); err != nil {
		return errors.Wrapf(err, "decoding %s response", method)
	}

	return nil
}

// errorMessage extracts a human readable message from an error response:
// the "error" or "message" member of a JSON object, or the trimmed text.
func errorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil {
		return ""
	}
	var obj struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &obj) == nil {
		if obj.Error != "" {
			return obj.Error
		}
		if obj.Message != "" {
			return obj.Message
		}
	}
	return strings.TrimSpace(string(data))
}
