package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/json/version", r.URL.Path)
		w.Write([]byte(`{
			"Browser": "HeadlessChrome/130.0.6723.58",
			"Protocol-Version": "1.3",
			"webSocketDebuggerUrl": "ws://127.0.0.1:3000/devtools/browser/4f1c"
		}`))
	}))
	defer srv.Close()

	info, err := FetchVersion(context.Background(), srv.Client(), srv.URL+"/json/version")
	require.NoError(t, err)
	assert.Equal(t, "HeadlessChrome/130.0.6723.58", info.Browser)
	assert.Equal(t, "ws://127.0.0.1:3000/devtools/browser/4f1c", info.WebSocketDebuggerURL)
}

func TestFetchVersionNotReady(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/starting":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.Write([]byte(`{"Browser":"HeadlessChrome/130.0"}`))
		}
	}))
	defer srv.Close()

	_, err := FetchVersion(context.Background(), srv.Client(), srv.URL+"/starting")
	assert.Error(t, err)

	_, err = FetchVersion(context.Background(), srv.Client(), srv.URL+"/json/version")
	assert.Error(t, err)
}

func TestContainerName(t *testing.T) {
	assert.Equal(t, "session-3f2a9c1e", containerName("3f2a9c1e-5b7d-4e0a-9c1e-0b7d4e0a9c1e"))
	assert.Equal(t, "session-short", containerName("short"))
}
