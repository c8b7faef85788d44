package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"
	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/decisioncore/pkg/ids"
	"github.com/codeready-toolchain/decisioncore/pkg/metrics"
	"github.com/codeready-toolchain/decisioncore/pkg/version"
)

// writeTimeout bounds how long a single broadcast send may block a client's
// write loop, mirroring the teacher's per-connection writeTimeout
// (pkg/events/manager.go).
const writeTimeout = 5 * time.Second

// Server is the process's externally-facing HTTP surface (C11): health,
// metrics, and the WebSocket upgrade. Grounded on the teacher's
// pkg/api/server.go (Echo construction, route registration, graceful
// Start/Shutdown) narrowed to three routes: health and the WebSocket upgrade
// (SPEC_FULL.md §4.14) and metrics (§6.5) —
// every other HTTP concern (REST CRUD, dashboards) is out of scope here.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server
	rooms      *RoomManager
	metrics    *metrics.Metrics
}

// NewServer constructs a Server wired to rooms. metrics may be nil to
// disable the /metrics route's instrumentation (the route itself is
// always registered; an unregistered collector set just reports nothing).
func NewServer(rooms *RoomManager, m *metrics.Metrics) *Server {
	e := echo.New()
	s := &Server{echo: e, rooms: rooms, metrics: m}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.GET("/healthz", s.healthHandler)
	s.echo.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	s.echo.GET("/ws/:session_id", s.wsHandler)
}

func (s *Server) healthHandler(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": version.Full(),
	})
}

// wsHandler upgrades the connection and joins the caller to the session's
// room, per SPEC_FULL.md §4.14's `GET /ws/:session_id` route.
func (s *Server) wsHandler(c *echo.Context) error {
	sessionID := ids.SessionID(c.Param("session_id"))
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session_id is required")
	}

	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		// Origin validation is deferred to the (out-of-scope) adapter layer
		// per spec.md §1; this process trusts its caller.
		InsecureSkipVerify: true,
	})
	if err != nil {
		return err
	}

	clientID := ClientID(ids.NewEventID().String())
	updates := s.rooms.Join(sessionID, clientID)
	defer s.rooms.Leave(clientID)

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	// A dedicated read goroutine's only job is noticing the client went
	// away (close, error, or any inbound frame — this channel is
	// server-to-client only) and cancelling ctx so the write loop below
	// exits, mirroring the teacher's read-loop-drives-lifecycle pattern
	// (pkg/events/manager.go's HandleConnection).
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return nil
		case update, ok := <-updates:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "")
				return nil
			}
			if err := s.writeUpdate(ctx, conn, update); err != nil {
				slog.Warn("ws: failed to write update", "session_id", sessionID, "error", err)
				_ = conn.Close(websocket.StatusInternalError, "write failed")
				return nil
			}
		}
	}
}

func (s *Server) writeUpdate(ctx context.Context, conn *websocket.Conn, update DashboardUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}

// Start runs the HTTP server on addr, blocking until it exits.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

// StartWithListener runs the HTTP server on a pre-created listener, used by
// tests that need a random OS-assigned port.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
