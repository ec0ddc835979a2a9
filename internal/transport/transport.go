// Package transport performs the raw HTTP calls behind remote download
// directories.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// FileTransport performs GET/POST/DELETE against a URL and returns raw bytes
// or decoded JSON.
type FileTransport interface {
	Get(ctx context.Context, url string) ([]byte, error)
	GetJSON(ctx context.Context, url string, v interface{}) error
	PostJSON(ctx context.Context, url string, body, v interface{}) error
	Delete(ctx context.Context, url string) error
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.URL, e.Code, e.Body)
}

// IsNotFound reports whether err is a 404 StatusError.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// HTTP is a FileTransport backed by net/http.
type HTTP struct {
	client *http.Client
}

// NewHTTP creates a transport whose requests time out after timeout.
// A zero timeout means no timeout.
func NewHTTP(timeout time.Duration) *HTTP {
	return &HTTP{client: &http.Client{Timeout: timeout}}
}

// NewHTTPWithClient wraps an existing client.
func NewHTTPWithClient(client *http.Client) *HTTP {
	return &HTTP{client: client}
}

func (t *HTTP) Get(ctx context.Context, url string) ([]byte, error) {
	return t.do(ctx, http.MethodGet, url, nil)
}

func (t *HTTP) GetJSON(ctx context.Context, url string, v interface{}) error {
	body, err := t.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return decode(http.MethodGet, url, body, v)
}

func (t *HTTP) PostJSON(ctx context.Context, url string, body, v interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	resp, err := t.do(ctx, http.MethodPost, url, payload)
	if err != nil {
		return err
	}
	return decode(http.MethodPost, url, resp, v)
}

func (t *HTTP) Delete(ctx context.Context, url string) error {
	_, err := t.do(ctx, http.MethodDelete, url, nil)
	return err
}

func (t *HTTP) do(ctx context.Context, method, url string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", method, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s %s response: %w", method, url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Method: method, URL: url, Code: resp.StatusCode, Body: string(bytes.TrimSpace(data))}
	}
	return data, nil
}

func decode(method, url string, body []byte, v interface{}) error {
	if v == nil {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, url, err)
	}
	return nil
}
