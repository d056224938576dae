package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"
)

// ErrBind is returned when the listener cannot be opened.
var ErrBind = errors.New("bind listener")

const (
	readHeaderTimeout      = 10 * time.Second
	defaultShutdownTimeout = 5 * time.Second
)

// Config describes the listener.
type Config struct {
	// Host defaults to the wildcard address.
	Host    string
	Port    int
	Handler http.Handler
	Logger  *slog.Logger

	// ShutdownTimeout bounds the graceful stop; defaults to five seconds.
	ShutdownTimeout time.Duration
}

// Server is an HTTP server whose listener is bound before serving starts,
// so early clients queue instead of being refused.
type Server struct {
	listener net.Listener
	http     *http.Server
	logger   *slog.Logger
	grace    time.Duration
}

// Listen binds the listener. It does not accept connections until Serve.
func Listen(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	host := cfg.Host
	if host == "" {
		host = "0.0.0.0"
	}

	grace := cfg.ShutdownTimeout
	if grace <= 0 {
		grace = defaultShutdownTimeout
	}

	addr := net.JoinHostPort(host, strconv.Itoa(cfg.Port))
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrBind, addr, err)
	}

	logger.Debug("listener bound", "address", l.Addr().String())
	return &Server{
		listener: l,
		http: &http.Server{
			Handler:           cfg.Handler,
			ReadHeaderTimeout: readHeaderTimeout,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
		},
		logger: logger,
		grace:  grace,
	}, nil
}

// Port is the bound port.
func (s *Server) Port() int {
	if a, ok := s.listener.Addr().(*net.TCPAddr); ok {
		return a.Port
	}
	return 0
}

// Serve blocks until ctx is done or the listener fails. On cancellation it
// stops accepting and waits for in-flight requests up to the shutdown
// timeout, then drops whatever is still open.
func (s *Server) Serve(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		errc <- s.http.Serve(s.listener)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Debug("shutting down", "address", s.listener.Addr().String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.grace)
	defer cancel()
	err := s.http.Shutdown(shutdownCtx)
	if err != nil {
		s.logger.Warn("graceful shutdown timed out, closing open connections", "error", err)
		s.Close()
	}
	<-errc
	return err
}

// Close drops the listener and every open connection. It is safe to call
// whether or not Serve ran.
func (s *Server) Close() error {
	err := s.http.Close()
	if lerr := s.listener.Close(); lerr != nil && !errors.Is(lerr, net.ErrClosed) && err == nil {
		err = lerr
	}
	return err
}
