package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/lcalzada-xor/dgramsniff/internal/adapters/web/handlers"
	"github.com/lcalzada-xor/dgramsniff/internal/adapters/web/middleware"
	"github.com/lcalzada-xor/dgramsniff/internal/adapters/web/websocket"
	"github.com/lcalzada-xor/dgramsniff/internal/core/ports"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Deps are the core services the HTTP API exposes.
type Deps struct {
	Stats     ports.StatsProvider
	Scan      handlers.ScanStatusProvider
	Drops     ports.DropCounter
	Requester ports.ReportRequester
	// Store is optional; without it the archive endpoints answer 503.
	Store   ports.ReportStore
	Origins []string
}

// Server handles HTTP and WebSocket connections.
type Server struct {
	Addr          string
	WSManager     *websocket.WSManager
	StatsHandler  *handlers.StatsHandler
	ReportHandler *handlers.ReportHandler

	reportLimiter *middleware.RateLimiter
	srv           *http.Server
	ready         chan net.Addr
}

// NewServer creates a new web server.
func NewServer(addr string, deps Deps) *Server {
	return &Server{
		Addr:          addr,
		WSManager:     websocket.NewWSManager(deps.Origins...),
		StatsHandler:  handlers.NewStatsHandler(deps.Stats, deps.Scan, deps.Drops),
		ReportHandler: handlers.NewReportHandler(deps.Requester, deps.Store),
		reportLimiter: middleware.NewRateLimiter(10, time.Minute),
		ready:         make(chan net.Addr, 1),
	}
}

// Handler returns the instrumented router.
func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(SetupRoutes(s), "dgramsniff-server")
}

// Ready yields the bound address once the listener is up.
func (s *Server) Ready() <-chan net.Addr {
	return s.ready
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	defer s.reportLimiter.Stop()

	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	s.ready <- ln.Addr()

	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful Shutdown implementation
	go func() {
		<-ctx.Done()
		slog.Info("Web Server shutting down...")
		s.WSManager.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Web Server shutdown error", "error", err)
		}
	}()

	slog.Info("Web server listening", "addr", ln.Addr().String())
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
