// Package webdriver creates and ends browser sessions on a grid using an
// explicit configuration value.
package webdriver

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shehryarbajwa/gridharness/internal/config"
	"github.com/shehryarbajwa/gridharness/internal/devtools"
	"github.com/shehryarbajwa/gridharness/pkg/models"
)

// Client drives session lifecycle commands through a command executor.
type Client struct {
	cfg  config.Config
	exec devtools.CommandExecutor
}

// NewClient creates a client for the grid in cfg. exec delivers the commands
// and is usually a traced HTTP executor for cfg.GridURL.
func NewClient(cfg config.Config, exec devtools.CommandExecutor) *Client {
	return &Client{cfg: cfg, exec: exec}
}

// Executor returns the executor used for commands, for handing to the DevTools bridge.
func (c *Client) Executor() devtools.CommandExecutor {
	return c.exec
}

// DesiredCapabilities builds the capabilities requested for every session.
func DesiredCapabilities(cfg config.Config) models.Capabilities {
	caps := models.Capabilities{
		models.CapBrowserName: "chrome",
		models.CapDownloads:   true,
	}
	if cfg.RecordVideo {
		caps[models.CapRecordVideo] = true
	}
	if cfg.TimeZone != "" {
		caps[models.CapTimeZone] = cfg.TimeZone
	}
	if cfg.ScreenResolution != "" {
		caps[models.CapScreenRes] = cfg.ScreenResolution
	}
	return caps
}

// NewSession starts a browser on the grid and returns its descriptor.
func (c *Client) NewSession(ctx context.Context) (models.Session, error) {
	if !c.cfg.IsRemote() {
		return models.Session{}, fmt.Errorf("no grid configured")
	}

	var req models.NewSessionRequest
	req.Capabilities.AlwaysMatch = DesiredCapabilities(c.cfg)

	var value models.NewSessionValue
	err := c.exec.Execute(ctx, devtools.Command{Method: http.MethodPost, Path: "/session", Params: req}, &value)
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to create session: %w", err)
	}
	if value.SessionID == "" {
		return models.Session{}, fmt.Errorf("grid returned an empty session id")
	}

	return models.Session{
		ID:           value.SessionID,
		RemoteURL:    c.cfg.GridURL,
		Capabilities: value.Capabilities,
	}, nil
}

// Attach returns the descriptor of an existing session, reading its
// capabilities from the grid.
func (c *Client) Attach(ctx context.Context, sessionID string) (models.Session, error) {
	var caps models.Capabilities
	err := c.exec.Execute(ctx, devtools.Command{Method: http.MethodGet, Path: "/session/" + url.PathEscape(sessionID)}, &caps)
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to read session %s: %w", sessionID, err)
	}
	return models.Session{ID: sessionID, RemoteURL: c.cfg.GridURL, Capabilities: caps}, nil
}

// Quit ends the session.
func (c *Client) Quit(ctx context.Context, sessionID string) error {
	err := c.exec.Execute(ctx, devtools.Command{Method: http.MethodDelete, Path: "/session/" + url.PathEscape(sessionID)}, nil)
	if err != nil {
		return fmt.Errorf("failed to quit session %s: %w", sessionID, err)
	}
	return nil
}

// LocalSession describes a browser running next to the test runner.
func LocalSession(cfg config.Config, sessionID string) (models.Session, error) {
	if cfg.DownloadsDir == "" {
		return models.Session{}, fmt.Errorf("DOWNLOADS_DIR is required for local sessions")
	}
	return models.Session{ID: sessionID, DownloadsDir: cfg.DownloadsDir}, nil
}
