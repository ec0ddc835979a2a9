package gridnode

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/shehryarbajwa/gridharness/internal/browser"
	"github.com/shehryarbajwa/gridharness/internal/config"
	"github.com/shehryarbajwa/gridharness/internal/logging"
)

const (
	testProduct   = "HeadlessChrome/130.0.6723.58"
	testAdvertise = "10.255.0.7:4444"
)

// fakeBrowser is a DevTools endpoint that answers Browser.getVersion.
func fakeBrowser(t *testing.T) string {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			var req struct {
				ID     int64  `json:"id"`
				Method string `json:"method"`
			}
			if err := conn.ReadJSON(&req); err != nil {
				return
			}

			resp := map[string]interface{}{"id": req.ID}
			if req.Method == "Browser.getVersion" {
				resp["result"] = map[string]string{
					"protocolVersion": "1.3",
					"product":         testProduct,
					"revision":        "@1234",
					"userAgent":       "Mozilla/5.0",
					"jsVersion":       "13.0",
				}
			} else {
				resp["error"] = map[string]interface{}{"code": -32601, "message": "'" + req.Method + "' wasn't found"}
			}
			if err := conn.WriteJSON(resp); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/devtools/browser/5d1e"
}

type fakeLauncher struct {
	devToolsURL string
	launchErr   error
	stopErr     error

	mu       sync.Mutex
	launched []browser.LaunchOptions
	stopped  []string
}

func (l *fakeLauncher) Launch(ctx context.Context, opts browser.LaunchOptions) (*browser.Instance, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.launchErr != nil {
		return nil, l.launchErr
	}
	l.launched = append(l.launched, opts)
	return &browser.Instance{
		ContainerID: "container-" + opts.SessionID,
		DevToolsURL: l.devToolsURL,
		Version:     testProduct,
	}, nil
}

func (l *fakeLauncher) Stop(ctx context.Context, containerID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopped = append(l.stopped, containerID)
	return l.stopErr
}

func (l *fakeLauncher) stoppedIDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.stopped...)
}

func newTestRegistry(t *testing.T, maxSessions int, launcher browser.Launcher) *Registry {
	cfg := config.NodeConfig{
		AdvertiseAddr: testAdvertise,
		DownloadsRoot: t.TempDir(),
		MaxSessions:   maxSessions,
	}
	r, err := NewRegistry(cfg, launcher, logging.Nop())
	require.NoError(t, err)
	return r
}

// newTestNode starts a node backed by a fake browser.
func newTestNode(t *testing.T, filesPerHour int) (*Registry, *httptest.Server) {
	launcher := &fakeLauncher{devToolsURL: fakeBrowser(t)}
	registry := newTestRegistry(t, 4, launcher)
	srv := httptest.NewServer(NewServer(registry, filesPerHour, logging.Nop()).Routes())
	t.Cleanup(srv.Close)
	return registry, srv
}

func decodeValue(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	env := struct {
		Value interface{} `json:"value"`
	}{Value: v}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
}

var errBoom = errors.New("boom")

func newServer(t *testing.T, registry *Registry) string {
	srv := httptest.NewServer(NewServer(registry, 3600, logging.Nop()).Routes())
	t.Cleanup(srv.Close)
	return srv.URL
}
