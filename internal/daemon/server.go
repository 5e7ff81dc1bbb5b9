package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/api"
	"github.com/scalixity-dev/PMS-Frontend-sub004/internal/config"
)

// Server manages the local HTTP server lifecycle for a session daemon.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	addr       string
	logger     *zap.Logger
}

// NewServer binds the API to the loopback listen address. Binding happens
// at construction so a port conflict fails daemon startup instead of
// surfacing later from a goroutine.
func NewServer(p Params, cfg *config.Config, apiSrv *api.Server, logger *zap.Logger) (*Server, error) {
	addr := p.ListenAddr
	if addr == "" {
		addr = cfg.ListenAddr
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	return &Server{
		httpServer: &http.Server{
			Handler:           apiSrv.Routes(),
			ReadHeaderTimeout: 5 * time.Second,
		},
		listener: listener,
		addr:     listener.Addr().String(),
		logger:   logger,
	}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.addr
}

// Start begins serving HTTP requests. Blocks until stopped.
func (s *Server) Start() error {
	s.logger.Info("http server starting", zap.String("addr", s.addr))
	if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop performs a graceful shutdown.
func (s *Server) Stop(ctx context.Context) {
	s.logger.Info("http server stopping")
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("http shutdown", zap.Error(err))
	}
}
