package models

import "time"

// SessionStatus represents the current state of a browser session on a grid node
type SessionStatus string

const (
	StatusRunning   SessionStatus = "RUNNING"
	StatusCompleted SessionStatus = "COMPLETED"
	StatusError     SessionStatus = "ERROR"
)

// Capability keys shared by the harness and the grid node.
const (
	CapBrowserName    = "browserName"
	CapBrowserVersion = "browserVersion"
	CapCDP            = "se:cdp"
	CapCDPVersion     = "se:cdpVersion"
	CapRecordVideo    = "se:recordVideo"
	CapTimeZone       = "se:timeZone"
	CapScreenRes      = "se:screenResolution"
	CapDownloads      = "se:downloadsEnabled"
)

// Capabilities is the capability map reported by a browser session.
type Capabilities map[string]interface{}

// String returns the capability as a string, or false if it is absent or not a string.
func (c Capabilities) String(key string) (string, bool) {
	v, ok := c[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Session describes one live browser instance as seen by the test runner.
// RemoteURL is empty for a browser running next to the runner.
type Session struct {
	ID           string       `json:"sessionId"`
	RemoteURL    string       `json:"remoteUrl,omitempty"`
	DownloadsDir string       `json:"downloadsDir,omitempty"`
	Capabilities Capabilities `json:"capabilities,omitempty"`
}

// IsRemote reports whether the session runs on a grid node.
func (s Session) IsRemote() bool {
	return s.RemoteURL != ""
}

// NodeSession is a browser session hosted by a grid node.
type NodeSession struct {
	ID           string        `json:"id"`
	Status       SessionStatus `json:"status"`
	StartedAt    time.Time     `json:"startedAt"`
	Capabilities Capabilities  `json:"capabilities"`
	DevToolsURL  string        `json:"-"` // browser-internal DevTools endpoint
	ContainerID  string        `json:"-"`
	DownloadsDir string        `json:"-"`
}

// NewSessionRequest is the W3C new-session payload
type NewSessionRequest struct {
	Capabilities struct {
		AlwaysMatch Capabilities `json:"alwaysMatch"`
	} `json:"capabilities"`
}

// NewSessionValue is the value of a W3C new-session response
type NewSessionValue struct {
	SessionID    string       `json:"sessionId"`
	Capabilities Capabilities `json:"capabilities"`
}
