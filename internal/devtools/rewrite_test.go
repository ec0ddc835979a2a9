package devtools

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestRewriteHost(t *testing.T) {
	tests := []struct {
		name, uri, reachable, want string
	}{
		{
			name:      "keeps path query and fragment",
			uri:       "ws://10.0.0.5:9222/devtools/browser/abc?x=1#f",
			reachable: "http://grid.example.com:4444",
			want:      "ws://grid.example.com:4444/devtools/browser/abc?x=1#f",
		},
		{
			name:      "ignores reachable path",
			uri:       "ws://10.0.0.5:4444/session/3f2a/se/cdp",
			reachable: "http://192.168.49.2:30444/wd/hub",
			want:      "ws://192.168.49.2:30444/session/3f2a/se/cdp",
		},
		{
			name:      "keeps secure scheme",
			uri:       "wss://node-7.grid.internal/devtools/page/1",
			reachable: "https://grid.example.com",
			want:      "wss://grid.example.com/devtools/page/1",
		},
		{
			name:      "keeps escaped path and raw query",
			uri:       "ws://10.0.0.5:9222/devtools/a%2Fb?q=a%20b&r=%2F",
			reachable: "http://grid:4444",
			want:      "ws://grid:4444/devtools/a%2Fb?q=a%20b&r=%2F",
		},
		{
			name:      "keeps user info",
			uri:       "ws://user:pw@10.0.0.5:9222/devtools",
			reachable: "http://grid:4444",
			want:      "ws://user:pw@grid:4444/devtools",
		},
		{
			name:      "keeps characters that would be re-escaped",
			uri:       "ws://10.0.0.5:9222/a b/\u00e9?q=x y#frag ment",
			reachable: "http://grid.example.com:4444",
			want:      "ws://grid.example.com:4444/a b/\u00e9?q=x y#frag ment",
		},
		{
			name:      "keeps odd escapes",
			uri:       "ws://10.0.0.5:9222/p%7e%2F?x=%zz",
			reachable: "http://grid:4444",
			want:      "ws://grid:4444/p%7e%2F?x=%zz",
		},
		{
			name:      "ipv6 advertised host",
			uri:       "ws://[fe80::1]:9222/devtools/browser/abc",
			reachable: "http://grid:4444",
			want:      "ws://grid:4444/devtools/browser/abc",
		},
		{
			name:      "no path",
			uri:       "ws://10.0.0.5:9222",
			reachable: "http://grid:4444",
			want:      "ws://grid:4444",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RewriteHost(tt.uri, mustParse(t, tt.reachable))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRewriteHostErrors(t *testing.T) {
	_, err := RewriteHost("ws://10.0.0.5:9222/devtools", nil)
	assert.Error(t, err)

	_, err = RewriteHost("/devtools/browser/abc", mustParse(t, "http://grid:4444"))
	assert.Error(t, err)

	_, err = RewriteHost("ws://[::1", mustParse(t, "http://grid:4444"))
	assert.Error(t, err)
}
