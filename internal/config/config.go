package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultNodeListenAddr   = "0.0.0.0:4444"
	defaultNodeAdvertise    = "127.0.0.1:4444"
	defaultNodeMaxSessions  = 4
	defaultNodeFilesPerHour = 3600
	defaultBrowserImage     = "browserless/chrome:latest"
	defaultHTTPTimeout      = 30 * time.Second
	defaultTimeZone         = "Asia/Tokyo"
	defaultScreenResolution = "1920x1080"
)

// Config carries everything needed to wire a browser session and the
// harness around it. It is passed explicitly instead of living in globals.
type Config struct {
	// GridURL is the remote grid endpoint. Empty means a local browser.
	GridURL string
	// BaseURL is the fixture website the browser is pointed at.
	BaseURL string
	// DownloadsDir is the browser download folder for local sessions.
	DownloadsDir           string
	UseDeprecatedEndpoints bool
	HTTPTimeout            time.Duration

	RecordVideo      bool
	TimeZone         string
	ScreenResolution string

	Node NodeConfig
}

// NodeConfig configures the grid node server.
type NodeConfig struct {
	ListenAddr    string
	AdvertiseAddr string
	DownloadsRoot string
	MaxSessions   int
	FilesPerHour  int
	BrowserImage  string
}

// FromEnv loads configuration from environment variables, applying defaults
// when unset.
func FromEnv() (Config, error) {
	cfg := Config{
		GridURL:          getenv("GRID_URL", ""),
		BaseURL:          getenv("BASE_URL", ""),
		DownloadsDir:     getenv("DOWNLOADS_DIR", ""),
		TimeZone:         getenv("TIME_ZONE", defaultTimeZone),
		ScreenResolution: getenv("SCREEN_RESOLUTION", defaultScreenResolution),
		Node: NodeConfig{
			ListenAddr:    getenv("NODE_LISTEN_ADDR", defaultNodeListenAddr),
			AdvertiseAddr: getenv("NODE_ADVERTISE_ADDR", defaultNodeAdvertise),
			DownloadsRoot: getenv("NODE_DOWNLOADS_ROOT", ""),
			BrowserImage:  getenv("BROWSER_IMAGE", defaultBrowserImage),
		},
	}

	var err error
	if cfg.UseDeprecatedEndpoints, err = getbool("USE_DEPRECATED_ENDPOINTS", false); err != nil {
		return Config{}, err
	}
	if cfg.RecordVideo, err = getbool("RECORD_VIDEO", true); err != nil {
		return Config{}, err
	}
	if cfg.HTTPTimeout, err = getduration("HTTP_TIMEOUT", defaultHTTPTimeout); err != nil {
		return Config{}, err
	}
	if cfg.Node.MaxSessions, err = getint("NODE_MAX_SESSIONS", defaultNodeMaxSessions); err != nil {
		return Config{}, err
	}
	if cfg.Node.FilesPerHour, err = getint("NODE_FILES_PER_HOUR", defaultNodeFilesPerHour); err != nil {
		return Config{}, err
	}

	if cfg.Node.DownloadsRoot == "" {
		cfg.Node.DownloadsRoot = os.TempDir() + "/gridharness-downloads"
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values that would otherwise fail late, at session start.
func (c Config) Validate() error {
	if c.GridURL != "" {
		u, err := url.Parse(c.GridURL)
		if err != nil {
			return fmt.Errorf("invalid GRID_URL %q: %w", c.GridURL, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("invalid GRID_URL %q: scheme must be http or https", c.GridURL)
		}
		if u.Host == "" {
			return fmt.Errorf("invalid GRID_URL %q: missing host", c.GridURL)
		}
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("HTTP_TIMEOUT must not be negative")
	}
	if c.Node.MaxSessions <= 0 {
		return fmt.Errorf("NODE_MAX_SESSIONS must be positive, got %d", c.Node.MaxSessions)
	}
	if c.Node.FilesPerHour <= 0 {
		return fmt.Errorf("NODE_FILES_PER_HOUR must be positive, got %d", c.Node.FilesPerHour)
	}
	return nil
}

// IsRemote reports whether sessions should be created on a grid.
func (c Config) IsRemote() bool {
	return c.GridURL != ""
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getbool(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}

func getint(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func getduration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}
