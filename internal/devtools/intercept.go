package devtools

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mafredri/cdp/protocol/fetch"
	"go.uber.org/zap"
)

// Intercept answers every request whose URL matches pattern with HTTP 200 and
// the page <html>content</html>. The returned stop function disables
// interception and waits for the handler goroutine to exit.
func (s *Session) Intercept(ctx context.Context, pattern, content string) (stop func() error, err error) {
	c, err := s.Client("Fetch")
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	paused, err := c.Fetch.RequestPaused(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to subscribe to paused requests: %w", err)
	}

	enable := &fetch.EnableArgs{Patterns: []fetch.RequestPattern{{URLPattern: &pattern}}}
	if err := c.Fetch.Enable(ctx, enable); err != nil {
		paused.Close()
		cancel()
		return nil, fmt.Errorf("failed to enable interception for %s: %w", pattern, err)
	}

	body := []byte("<html>" + content + "</html>")
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			ev, err := paused.Recv()
			if err != nil {
				return
			}
			args := &fetch.FulfillRequestArgs{
				RequestID:    ev.RequestID,
				ResponseCode: http.StatusOK,
				ResponseHeaders: []fetch.HeaderEntry{
					{Name: "Content-Type", Value: "text/html; charset=utf-8"},
				},
				Body: body,
			}
			if err := c.Fetch.FulfillRequest(ctx, args); err != nil {
				s.logger.Warn("failed to fulfil intercepted request",
					zap.String("url", ev.Request.URL), zap.Error(err))
			}
		}
	}()

	return func() error {
		err := c.Fetch.Disable(context.Background())
		paused.Close()
		cancel()
		<-done
		return err
	}, nil
}
