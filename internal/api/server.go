package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/slok/taskflow/internal/log"
)

// ServerConfig is the configuration for the HTTP server.
type ServerConfig struct {
	ListenAddress   string
	Handler         http.Handler
	ShutdownTimeout time.Duration
	Logger          log.Logger
}

func (c *ServerConfig) defaults() error {
	if c.ListenAddress == "" {
		c.ListenAddress = ":3000"
	}
	if c.Handler == nil {
		return fmt.Errorf("handler is required")
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "api.Server"})
	return nil
}

// Server serves the API until its context is done.
type Server struct {
	server  *http.Server
	timeout time.Duration
	logger  log.Logger
}

// NewServer returns a new HTTP server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Server{
		server: &http.Server{
			Addr:              cfg.ListenAddress,
			Handler:           cfg.Handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		timeout: cfg.ShutdownTimeout,
		logger:  cfg.Logger,
	}, nil
}

// Run listens on the configured address and serves until the context is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("could not listen on %s: %w", s.server.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on the listener until the context is done. Open subscription
// streams are cancelled when the shutdown starts.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	s.server.BaseContext = func(net.Listener) context.Context { return baseCtx }
	s.server.RegisterOnShutdown(cancelBase)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("HTTP server listening on %s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		s.logger.Infof("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not shutdown http server: %w", err)
		}
		return nil
	}
}
