package devtools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Command is one WebDriver command sent over the wire.
type Command struct {
	Method string
	Path   string
	Params interface{}
}

// CommandExecutor delivers WebDriver commands for a session.
type CommandExecutor interface {
	// Execute sends cmd and decodes the response "value" into out, if out is non-nil.
	Execute(ctx context.Context, cmd Command, out interface{}) error
}

// AddressReporter is implemented by executors that talk to the server
// directly and know its externally reachable address.
type AddressReporter interface {
	RemoteAddress() *url.URL
}

// Wrapper is implemented by executors that decorate another executor.
type Wrapper interface {
	Unwrap() CommandExecutor
}

// UnsupportedExecutorError means an executor neither reports an address nor
// wraps another executor. Guessing an address would connect to the wrong
// host, so callers must treat it as fatal.
type UnsupportedExecutorError struct {
	Executor CommandExecutor
}

func (e *UnsupportedExecutorError) Error() string {
	return fmt.Sprintf("unexpected command executor %T", e.Executor)
}

// maxUnwrap bounds the wrapper chain so a wrapper returning itself cannot loop forever.
const maxUnwrap = 32

// ReachableAddress unwraps exec until it finds the executor holding the real
// server address.
func ReachableAddress(exec CommandExecutor) (*url.URL, error) {
	for i := 0; i < maxUnwrap && exec != nil; i++ {
		switch e := exec.(type) {
		case AddressReporter:
			addr := e.RemoteAddress()
			if addr == nil {
				return nil, &UnsupportedExecutorError{Executor: exec}
			}
			return addr, nil
		case Wrapper:
			exec = e.Unwrap()
		default:
			return nil, &UnsupportedExecutorError{Executor: exec}
		}
	}
	return nil, &UnsupportedExecutorError{Executor: exec}
}

// WebDriverError is a W3C error response.
type WebDriverError struct {
	Status  int
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *WebDriverError) Error() string {
	return fmt.Sprintf("webdriver error %d %s: %s", e.Status, e.Code, e.Message)
}

// HTTPCommandExecutor sends commands to a WebDriver endpoint over HTTP.
type HTTPCommandExecutor struct {
	addr   *url.URL
	client *http.Client
}

// NewHTTPCommandExecutor creates an executor for the server at addr, for
// example http://grid.example.com:4444/wd/hub.
func NewHTTPCommandExecutor(addr string, timeout time.Duration) (*HTTPCommandExecutor, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid remote address %q: %w", addr, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid remote address %q: missing scheme or host", addr)
	}
	return &HTTPCommandExecutor{addr: u, client: &http.Client{Timeout: timeout}}, nil
}

// RemoteAddress returns a copy of the server address.
func (e *HTTPCommandExecutor) RemoteAddress() *url.URL {
	u := *e.addr
	return &u
}

func (e *HTTPCommandExecutor) Execute(ctx context.Context, cmd Command, out interface{}) error {
	var body io.Reader
	if cmd.Params != nil {
		payload, err := json.Marshal(cmd.Params)
		if err != nil {
			return fmt.Errorf("failed to marshal %s %s: %w", cmd.Method, cmd.Path, err)
		}
		body = bytes.NewReader(payload)
	}

	target := strings.TrimSuffix(e.addr.String(), "/") + "/" + strings.TrimPrefix(cmd.Path, "/")
	req, err := http.NewRequestWithContext(ctx, cmd.Method, target, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var envelope struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil && err != io.EOF {
		return fmt.Errorf("failed to decode %s %s response: %w", cmd.Method, cmd.Path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		wdErr := &WebDriverError{Status: resp.StatusCode}
		if len(envelope.Value) > 0 {
			_ = json.Unmarshal(envelope.Value, wdErr)
		}
		return wdErr
	}

	if out == nil || len(envelope.Value) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Value, out); err != nil {
		return fmt.Errorf("failed to decode %s %s value: %w", cmd.Method, cmd.Path, err)
	}
	return nil
}

// TracedCommandExecutor logs every command before handing it to its delegate.
type TracedCommandExecutor struct {
	delegate CommandExecutor
	logger   *zap.Logger
}

func NewTracedCommandExecutor(delegate CommandExecutor, logger *zap.Logger) *TracedCommandExecutor {
	return &TracedCommandExecutor{delegate: delegate, logger: logger}
}

func (e *TracedCommandExecutor) Unwrap() CommandExecutor {
	return e.delegate
}

func (e *TracedCommandExecutor) Execute(ctx context.Context, cmd Command, out interface{}) error {
	start := time.Now()
	err := e.delegate.Execute(ctx, cmd, out)
	fields := []zap.Field{
		zap.String("method", cmd.Method),
		zap.String("path", cmd.Path),
		zap.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		e.logger.Warn("webdriver command failed", append(fields, zap.Error(err))...)
		return err
	}
	e.logger.Debug("webdriver command", fields...)
	return nil
}
