package lastfm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 4 << 20

// errorDocument is the JSON shape Last.fm uses to report API errors.
type errorDocument struct {
	Error   *int   `json:"error"`
	Message string `json:"message"`
}

// get makes a single GET request to the Last.fm JSON API.
//
// It handles:
// - Request construction with method, format and caller parameters
// - Bounding the request by the client timeout
// - Mapping network failures, non-2xx statuses and undecodable bodies to *TransportError
// - Mapping well-formed error documents to *Error
//
// There is no retry: a failed call is reported to the caller immediately.
func (c *Client) get(ctx context.Context, method string, params url.Values) ([]byte, error) {
	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("method", method)
	query.Set("format", "json")

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqURL := c.baseURL + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &TransportError{Method: method, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	c.logDebugf("lastfm: calling %s", method)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Method: method, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &TransportError{Method: method, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		cause := fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		if apiErr := decodeError(body); apiErr != nil {
			cause = apiErr
		}
		return nil, &TransportError{Method: method, StatusCode: resp.StatusCode, Err: cause}
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return nil, &TransportError{Method: method, StatusCode: resp.StatusCode, Err: errors.New("malformed JSON response")}
	}

	if apiErr := decodeError(trimmed); apiErr != nil {
		c.logDebugf("lastfm: %s returned error %d", method, apiErr.Code)
		return nil, apiErr
	}

	c.logDebugf("lastfm: %s succeeded", method)
	return trimmed, nil
}

// decodeError returns the API error described by body, or nil when body is
// not an error document.
func decodeError(body []byte) *Error {
	var doc errorDocument
	if err := json.Unmarshal(body, &doc); err != nil || doc.Error == nil {
		return nil
	}
	return &Error{Code: *doc.Error, Message: doc.Message}
}
