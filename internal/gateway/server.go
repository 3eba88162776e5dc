// Package gateway exposes the monitor's status surface over HTTP plus a
// WebSocket live feed of extracted-link records.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/shankarsamidala/deals/internal/config"
	"github.com/shankarsamidala/deals/internal/domain"
	"github.com/shankarsamidala/deals/internal/logging"
	"github.com/shankarsamidala/deals/internal/monitor"
	"github.com/shankarsamidala/deals/internal/sink"
	"github.com/shankarsamidala/deals/internal/store"
	"github.com/shankarsamidala/deals/internal/version"
)

// Monitor is the engine surface the gateway reads from.
type Monitor interface {
	Health() monitor.Health
	Channels() []domain.ChannelHandle
}

// StatsSource answers persisted-record queries. Optional.
type StatsSource interface {
	Stats() (store.Stats, error)
	Recent(limit int) ([]sink.Record, error)
	Search(query string, limit int) ([]sink.Record, error)
}

// Server is the status and live-feed server. It also implements sink.Sink:
// every record emitted into it is broadcast to WebSocket subscribers.
type Server struct {
	cfg     config.GatewayConfig
	mon     Monitor
	stats   StatsSource
	log     *logging.Logger
	clients *ClientRegistry

	eventSeq   atomic.Int64
	startedAt  time.Time
	httpServer *http.Server
	upgrader   websocket.Upgrader
}

// ServerOption configures the gateway server.
type ServerOption func(*Server)

// WithStats attaches a persisted-record source for /stats and /recent.
func WithStats(src StatsSource) ServerOption {
	return func(s *Server) {
		s.stats = src
	}
}

// New creates a gateway server reading from the given monitor.
func New(cfg config.GatewayConfig, mon Monitor, log *logging.Logger, opts ...ServerOption) *Server {
	s := &Server{
		cfg:     cfg,
		mon:     mon,
		log:     log.Sub("gateway"),
		clients: NewClientRegistry(log.Sub("clients")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The feed is read-only and carries no credentials.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Emit broadcasts a record to all live-feed subscribers. Implements sink.Sink.
func (s *Server) Emit(rec sink.Record) error {
	s.clients.Broadcast(Event{
		Type:    "record",
		Seq:     s.eventSeq.Add(1),
		Payload: rec,
	})
	return nil
}

// Close disconnects all subscribers. Implements sink.Sink.
func (s *Server) Close() error {
	s.clients.CloseAll()
	return nil
}

// resolveBindAddr computes the listen address from config.
func resolveBindAddr(cfg config.GatewayConfig) string {
	switch cfg.Bind {
	case "lan":
		return fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	default:
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	}
}

// Start begins listening for HTTP and WebSocket connections. It blocks until
// the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	addr := resolveBindAddr(s.cfg)

	mux := http.NewServeMux()
	s.registerRoutes(mux)
	handler := withMiddleware(mux, s.log)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(l net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.startedAt = time.Now()
	s.log.Info().
		Str("addr", ln.Addr().String()).
		Str("bind", s.cfg.Bind).
		Str("version", version.Version).
		Msg("gateway server ready")

	// Shutdown when context is cancelled
	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down gateway server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.clients.CloseAll()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr returns the server's listen address, or empty string if not started.
func (s *Server) Addr() string {
	if s.httpServer != nil {
		return s.httpServer.Addr
	}
	return ""
}

// handleWebSocket upgrades the connection and parks it in the registry until
// the peer goes away. The feed is push-only; inbound frames are drained and
// discarded.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(64 * 1024)

	client := NewClient(conn, s.log.Sub("ws"))
	s.clients.Add(client)
	defer func() {
		s.clients.Remove(client.ConnID)
		client.Close()
	}()

	hello := Event{
		Type: "hello",
		Seq:  s.eventSeq.Add(1),
		Payload: map[string]any{
			"version": version.Version,
			"connId":  client.ConnID,
		},
	}
	if err := client.Send(hello); err != nil {
		return
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Err(err).Str("connId", client.ConnID).Msg("subscriber read ended")
			}
			return
		}
	}
}
