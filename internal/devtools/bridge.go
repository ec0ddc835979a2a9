// Package devtools opens Chrome DevTools Protocol sessions to browsers that
// may run on a remote grid node.
package devtools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mafredri/cdp"
	"github.com/mafredri/cdp/rpcc"
	"go.uber.org/zap"

	"github.com/shehryarbajwa/gridharness/pkg/models"
)

// writeBufferSize is a larger default buffer size (1 MB) for the websocket connection.
const writeBufferSize = 1 << 20

var (
	// ErrMissingCapability means the session capabilities lack the DevTools
	// URI or any version information.
	ErrMissingCapability = errors.New("missing capability")
	// ErrDomainUnavailable is returned when the matched domain set lacks a
	// domain the caller needs.
	ErrDomainUnavailable = errors.New("devtools domain unavailable")
)

// DialFunc opens the DevTools websocket.
type DialFunc func(ctx context.Context, url string) (*rpcc.Conn, error)

// Bridge connects to the DevTools endpoint of a (possibly remote) browser
// through the address already used for WebDriver commands.
type Bridge struct {
	dial   DialFunc
	logger *zap.Logger
}

// NewBridge creates a Bridge that dials with rpcc.
func NewBridge(logger *zap.Logger) *Bridge {
	return &Bridge{
		dial: func(ctx context.Context, url string) (*rpcc.Conn, error) {
			return rpcc.DialContext(ctx, url, rpcc.WithWriteBufferSize(writeBufferSize))
		},
		logger: logger,
	}
}

// Session is an open DevTools connection bound to a domain set.
type Session struct {
	Domains Domains
	// URL is the rewritten DevTools URI that was dialed.
	URL string

	conn   *rpcc.Conn
	client *cdp.Client
	logger *zap.Logger
}

// Connect resolves the reachable address behind exec, rewrites the
// advertised se:cdp URI onto it and opens the connection.
func (b *Bridge) Connect(ctx context.Context, caps models.Capabilities, exec CommandExecutor) (*Session, error) {
	hint, ok := caps.String(models.CapCDPVersion)
	if !ok {
		hint, ok = caps.String(models.CapBrowserVersion)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s or %s", ErrMissingCapability, models.CapCDPVersion, models.CapBrowserVersion)
	}
	domains := MatchVersion(hint)
	if domains.IsNoOp() {
		b.logger.Warn("no DevTools domain set matches browser version, using no-op set", zap.String("version", hint))
	}

	advertised, ok := caps.String(models.CapCDP)
	if !ok || advertised == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingCapability, models.CapCDP)
	}

	reachable, err := ReachableAddress(exec)
	if err != nil {
		return nil, err
	}

	target, err := RewriteHost(advertised, reachable)
	if err != nil {
		return nil, err
	}

	b.logger.Info("connecting to DevTools",
		zap.String("advertised", advertised),
		zap.String("url", target),
		zap.Int("domains", domains.Major))

	conn, err := b.dial(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("failed to establish DevTools connection to %s: %w", target, err)
	}

	return &Session{
		Domains: domains,
		URL:     target,
		conn:    conn,
		client:  cdp.NewClient(conn),
		logger:  b.logger,
	}, nil
}

// Client returns the protocol client if every named domain is available.
func (s *Session) Client(domains ...string) (*cdp.Client, error) {
	if s.Domains.IsNoOp() {
		return nil, fmt.Errorf("%w: no domain set matched this browser", ErrDomainUnavailable)
	}
	for _, d := range domains {
		if !s.Domains.Has(d) {
			return nil, fmt.Errorf("%w: %s (protocol %d)", ErrDomainUnavailable, d, s.Domains.Major)
		}
	}
	return s.client, nil
}

// BrowserVersion asks the browser for its product string.
func (s *Session) BrowserVersion(ctx context.Context) (string, error) {
	c, err := s.Client("Browser")
	if err != nil {
		return "", err
	}
	v, err := c.Browser.GetVersion(ctx)
	if err != nil {
		return "", err
	}
	return v.Product, nil
}

// Close shuts down the DevTools connection.
func (s *Session) Close() error {
	return s.conn.Close()
}
