// Package httpapi exposes a read/write diagnostics and control surface over
// one internal/pcp.Handler: status, the discovery/pending/registered tables,
// a handful of mutating routes that drive the handler's public operations
// directly (inject_endpoint, request/accept/reject_connection), and a
// gorilla/websocket live feed of connection lifecycle events. Grounded on
// the teacher's server/internal/httpapi/server.go (Echo app shape, slog
// request logging middleware) and server/internal/ws/handler.go (websocket
// upgrade pattern), rewritten against PCP semantics instead of the chat
// relay's room/client model.
package httpapi

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"nearcore/internal/discovery"
	"nearcore/internal/pcp"
	"nearcore/internal/store"
)

// Server is the Echo application wired to one PCP handler.
type Server struct {
	echo    *echo.Echo
	handler *pcp.Handler
	store   *store.Store
	hub     *Hub
}

// New constructs an Echo app with diagnostics, control, and websocket
// routes bound to handler. st may be nil, in which case /api/events reports
// an empty history instead of erroring.
func New(handler *pcp.Handler, st *store.Store, hub *Hub) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(requestLogger())

	s := &Server{echo: e, handler: handler, store: st, hub: hub}
	s.registerRoutes()
	return s
}

// Echo exposes the underlying Echo instance for tests.
func (s *Server) Echo() *echo.Echo { return s.echo }

func requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			path := c.Request().URL.Path
			if path == "/ws/events" || path == "/health" {
				slog.Debug("httpapi request", "method", c.Request().Method, "path", path, "status", c.Response().Status, "duration_ms", time.Since(start).Milliseconds())
			} else {
				slog.Info("httpapi request", "method", c.Request().Method, "path", path, "status", c.Response().Status, "duration_ms", time.Since(start).Milliseconds(), "remote", c.RealIP())
			}
			return nil
		}
	}
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/api/status", s.handleStatus)
	s.echo.GET("/api/endpoints", s.handleEndpoints)
	s.echo.GET("/api/pending", s.handlePending)
	s.echo.GET("/api/registered", s.handleRegistered)
	s.echo.GET("/api/events", s.handleRecentEvents)
	s.echo.POST("/api/endpoints/inject", s.handleInjectEndpoint)
	s.echo.POST("/api/connections", s.handleRequestConnection)
	s.echo.POST("/api/connections/:id/accept", s.handleAcceptConnection)
	s.echo.POST("/api/connections/:id/reject", s.handleRejectConnection)
	s.echo.GET("/ws/events", s.handleEventsWebSocket)
}

// Run starts Echo and blocks until ctx cancellation or startup failure,
// mirroring the teacher's server/internal/httpapi.Server.Run.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		err := s.echo.Start(addr)
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("httpapi: shutting down")
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.echo.Shutdown(shutCtx)
		return nil
	}
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, s.handler.SessionStatus())
}

type endpointResponse struct {
	EndpointID   string `json:"endpoint_id"`
	Medium       string `json:"medium"`
	BluetoothMAC string `json:"bluetooth_mac,omitempty"`
}

func (s *Server) handleEndpoints(c echo.Context) error {
	eps := s.handler.DiscoveredEndpoints()
	out := make([]endpointResponse, 0, len(eps))
	for _, ep := range eps {
		out = append(out, endpointFromDiscovery(ep))
	}
	return c.JSON(http.StatusOK, out)
}

func endpointFromDiscovery(ep discovery.Endpoint) endpointResponse {
	return endpointResponse{
		EndpointID:   ep.EndpointID,
		Medium:       ep.Medium.String(),
		BluetoothMAC: ep.Variant.BluetoothMAC,
	}
}

func (s *Server) handlePending(c echo.Context) error {
	return c.JSON(http.StatusOK, s.handler.PendingEndpointIDs())
}

func (s *Server) handleRegistered(c echo.Context) error {
	return c.JSON(http.StatusOK, s.handler.RegisteredEndpointIDs())
}

func (s *Server) handleRecentEvents(c echo.Context) error {
	clientID := c.QueryParam("client_id")
	if clientID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "client_id query parameter is required")
	}
	if s.store == nil {
		return c.JSON(http.StatusOK, []store.AnalyticsEvent{})
	}
	limit := 50
	if l := c.QueryParam("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}
	events, err := s.store.RecentEvents(c.Request().Context(), clientID, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if events == nil {
		events = []store.AnalyticsEvent{}
	}
	return c.JSON(http.StatusOK, events)
}

type injectEndpointRequest struct {
	ServiceID          string `json:"service_id"`
	EndpointID         string `json:"endpoint_id"`
	EndpointInfoBase64 string `json:"endpoint_info_base64,omitempty"`
	BluetoothMAC       string `json:"bluetooth_mac"`
}

// handleInjectEndpoint drives InjectEndpoint directly, exposing spec.md's
// out-of-band discovery hook over HTTP for demos and integration tests that
// have no real medium available.
func (s *Server) handleInjectEndpoint(c echo.Context) error {
	var req injectEndpointRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var info []byte
	if req.EndpointInfoBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.EndpointInfoBase64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "endpoint_info_base64 is not valid base64")
		}
		info = decoded
	}
	status, err := s.handler.InjectEndpoint(c.Request().Context(), req.ServiceID, req.EndpointID, info, req.BluetoothMAC)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(statusCode(status), map[string]string{"status": status.String()})
}

type requestConnectionRequest struct {
	EndpointID         string `json:"endpoint_id"`
	RemoteInfoBase64   string `json:"remote_endpoint_info_base64,omitempty"`
}

func (s *Server) handleRequestConnection(c echo.Context) error {
	var req requestConnectionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var info []byte
	if req.RemoteInfoBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.RemoteInfoBase64)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "remote_endpoint_info_base64 is not valid base64")
		}
		info = decoded
	}
	status, err := s.handler.RequestConnection(c.Request().Context(), req.EndpointID, info)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(statusCode(status), map[string]string{"status": status.String()})
}

func (s *Server) handleAcceptConnection(c echo.Context) error {
	status, err := s.handler.AcceptConnection(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(statusCode(status), map[string]string{"status": status.String()})
}

func (s *Server) handleRejectConnection(c echo.Context) error {
	status, err := s.handler.RejectConnection(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(statusCode(status), map[string]string{"status": status.String()})
}

func statusCode(status pcp.Status) int {
	if status == pcp.StatusSuccess {
		return http.StatusOK
	}
	return http.StatusConflict
}
