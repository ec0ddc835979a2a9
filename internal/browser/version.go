package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// VersionInfo is the browser's /json/version document.
type VersionInfo struct {
	Browser              string `json:"Browser"`
	ProtocolVersion      string `json:"Protocol-Version"`
	UserAgent            string `json:"User-Agent"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

// FetchVersion reads the /json/version document at url.
func FetchVersion(ctx context.Context, client *http.Client, url string) (*VersionInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: unexpected status %d", url, resp.StatusCode)
	}

	var info VersionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", url, err)
	}
	if info.WebSocketDebuggerURL == "" {
		return nil, fmt.Errorf("%s has no webSocketDebuggerUrl", url)
	}
	return &info, nil
}
