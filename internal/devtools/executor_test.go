package devtools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shehryarbajwa/gridharness/internal/logging"
)

type opaqueExecutor struct{}

func (opaqueExecutor) Execute(context.Context, Command, interface{}) error { return nil }

type loopingWrapper struct{}

func (w loopingWrapper) Execute(context.Context, Command, interface{}) error { return nil }
func (w loopingWrapper) Unwrap() CommandExecutor { return w }

func TestReachableAddress(t *testing.T) {
	httpExec, err := NewHTTPCommandExecutor("http://grid.example.com:4444/wd/hub", time.Second)
	require.NoError(t, err)

	traced := NewTracedCommandExecutor(httpExec, logging.Nop())
	doubleTraced := NewTracedCommandExecutor(traced, logging.Nop())

	for name, exec := range map[string]CommandExecutor{
		"direct":        httpExec,
		"traced":        traced,
		"double traced": doubleTraced,
	} {
		t.Run(name, func(t *testing.T) {
			addr, err := ReachableAddress(exec)
			require.NoError(t, err)
			assert.Equal(t, "grid.example.com:4444", addr.Host)
		})
	}
}

func TestReachableAddressUnsupported(t *testing.T) {
	for name, exec := range map[string]CommandExecutor{
		"opaque":         opaqueExecutor{},
		"wrapped opaque": NewTracedCommandExecutor(opaqueExecutor{}, logging.Nop()),
		"looping":        loopingWrapper{},
		"nil delegate":   NewTracedCommandExecutor(nil, logging.Nop()),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ReachableAddress(exec)
			var unsupported *UnsupportedExecutorError
			assert.ErrorAs(t, err, &unsupported)
		})
	}
}

func TestRemoteAddressIsCopy(t *testing.T) {
	exec, err := NewHTTPCommandExecutor("http://grid:4444", 0)
	require.NoError(t, err)

	addr := exec.RemoteAddress()
	addr.Host = "elsewhere:1"
	assert.Equal(t, "grid:4444", exec.RemoteAddress().Host)
}

func TestHTTPCommandExecutorExecute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/wd/hub/session":
			var body map[string]interface{}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Contains(t, body, "capabilities")
			w.Write([]byte(`{"value":{"sessionId":"abc","capabilities":{"browserName":"chrome"}}}`))
		case "/wd/hub/session/missing":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"value":{"error":"invalid session id","message":"no such session"}}`))
		default:
			w.Write([]byte(`{"value":null}`))
		}
	}))
	defer srv.Close()

	exec, err := NewHTTPCommandExecutor(srv.URL+"/wd/hub", time.Second)
	require.NoError(t, err)
	traced := NewTracedCommandExecutor(exec, logging.Nop())
	ctx := context.Background()

	var out struct {
		SessionID string `json:"sessionId"`
	}
	err = traced.Execute(ctx, Command{Method: http.MethodPost, Path: "/session", Params: map[string]interface{}{"capabilities": map[string]interface{}{}}}, &out)
	require.NoError(t, err)
	assert.Equal(t, "abc", out.SessionID)

	err = traced.Execute(ctx, Command{Method: http.MethodGet, Path: "/session/missing"}, nil)
	var wdErr *WebDriverError
	require.ErrorAs(t, err, &wdErr)
	assert.Equal(t, http.StatusNotFound, wdErr.Status)
	assert.Equal(t, "invalid session id", wdErr.Code)

	require.NoError(t, traced.Execute(ctx, Command{Method: http.MethodDelete, Path: "/session/abc"}, nil))
}

func TestNewHTTPCommandExecutorInvalid(t *testing.T) {
	_, err := NewHTTPCommandExecutor("grid:4444", 0)
	assert.Error(t, err)

	exec, err := NewHTTPCommandExecutor((&url.URL{Scheme: "http", Host: "grid:4444"}).String(), 0)
	require.NoError(t, err)
	assert.Equal(t, "http", exec.RemoteAddress().Scheme)
}
