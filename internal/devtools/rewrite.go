package devtools

import (
	"fmt"
	"net/url"
	"strings"
)

// RewriteHost replaces the host and port of a browser-advertised DevTools URI
// with those of the reachable command address. Everything else is kept
// byte for byte, including characters url.URL.String would re-escape.
func RewriteHost(debugURI string, reachable *url.URL) (string, error) {
	if reachable == nil || reachable.Host == "" {
		return "", fmt.Errorf("reachable address has no host")
	}

	u, err := url.Parse(debugURI)
	if err != nil {
		return "", fmt.Errorf("invalid DevTools URI %q: %w", debugURI, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid DevTools URI %q: missing host", debugURI)
	}

	// scheme://[userinfo@]host[:port][/path][?query][#fragment]
	start := strings.Index(debugURI, "://")
	if start < 0 {
		return "", fmt.Errorf("invalid DevTools URI %q: missing authority", debugURI)
	}
	start += len("://")
	end := len(debugURI)
	if i := strings.IndexAny(debugURI[start:], "/?#"); i >= 0 {
		end = start + i
	}
	if at := strings.LastIndex(debugURI[start:end], "@"); at >= 0 {
		start += at + 1
	}

	return debugURI[:start] + reachable.Host + debugURI[end:], nil
}
