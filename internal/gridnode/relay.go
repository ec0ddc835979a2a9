package gridnode

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const browserDialTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// relayDevTools handles GET /session/{id}/se/cdp by relaying websocket
// frames between the client and the browser's internal DevTools endpoint.
func (s *Server) relayDevTools(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	logger := s.logger.With(zap.String("session", id))

	sess, err := s.registry.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "invalid session id", err.Error())
		return
	}

	clientConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("failed to upgrade DevTools connection", zap.Error(err))
		return
	}
	defer clientConn.Close()

	ctx, cancel := context.WithTimeout(r.Context(), browserDialTimeout)
	browserConn, _, err := websocket.DefaultDialer.DialContext(ctx, sess.DevToolsURL, nil)
	cancel()
	if err != nil {
		logger.Error("failed to connect to browser DevTools", zap.String("url", sess.DevToolsURL), zap.Error(err))
		clientConn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "browser unreachable"))
		return
	}
	defer browserConn.Close()

	logger.Debug("DevTools relay open")

	// Each pump closes the opposite side when it stops so the other unblocks.
	var g errgroup.Group
	g.Go(func() error {
		defer browserConn.Close()
		return pump(clientConn, browserConn)
	})
	g.Go(func() error {
		defer clientConn.Close()
		return pump(browserConn, clientConn)
	})

	if err := g.Wait(); err != nil && websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		logger.Debug("DevTools relay closed", zap.Error(err))
	}
}

func pump(src, dst *websocket.Conn) error {
	for {
		messageType, message, err := src.ReadMessage()
		if err != nil {
			return err
		}
		if err := dst.WriteMessage(messageType, message); err != nil {
			return err
		}
	}
}
