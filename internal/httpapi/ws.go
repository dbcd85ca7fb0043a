package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const wsWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// handleEventsWebSocket upgrades one request and streams the Hub's event
// feed to it until disconnect, grounded on the teacher's
// server/internal/ws.Handler.serveConn (upgrade, per-connection send loop,
// drain-on-defer), but a one-way diagnostics feed instead of a chat session.
func (s *Server) handleEventsWebSocket(c echo.Context) error {
	remoteAddr := c.RealIP()

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error("httpapi: ws upgrade failed", "remote", remoteAddr, "err", err)
		return err
	}
	defer conn.Close()

	subscriberID := uuid.New().String()
	events := s.hub.Subscribe(subscriberID)
	defer s.hub.Unsubscribe(subscriberID)

	slog.Debug("httpapi: ws subscriber connected", "subscriber_id", subscriberID, "remote", remoteAddr)

	// Discard anything the client sends; this feed is one-directional. The
	// read loop exists only to notice the connection close.
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				conn.Close()
				return
			}
		}
	}()

	for ev := range events {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(ev); err != nil {
			slog.Debug("httpapi: ws write error", "subscriber_id", subscriberID, "err", err)
			return nil
		}
	}
	return nil
}
