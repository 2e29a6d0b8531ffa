// SPDX-License-Identifier: MPL-2.0

package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/graphweave/graphweave/internal/aggregate"
	"github.com/graphweave/graphweave/internal/config"
)

const (
	// DefaultStartupTimeout bounds how long Start waits for the listener.
	DefaultStartupTimeout = 10 * time.Second
	// DefaultShutdownTimeout bounds how long Stop waits for in-flight requests.
	DefaultShutdownTimeout = 10 * time.Second
)

type (
	// Server serves aggregates over HTTP.
	Server struct {
		source aggregate.SnapshotSource
		svc    *aggregate.Service
		cache  *lru.Cache[cacheKey, *rendered]
		logger *log.Logger

		address         string
		startupTimeout  time.Duration
		shutdownTimeout time.Duration
		cacheSize       int

		state   atomic.Int32
		stateMu sync.Mutex

		ctx       context.Context
		cancel    context.CancelFunc
		wg        sync.WaitGroup
		startedCh chan struct{}
		errCh     chan error
		lastErr   error

		httpServer *http.Server
		listener   net.Listener
		addr       string
	}

	// Option configures a Server.
	Option func(*Server)
)

// WithAddress sets the listen address. Port 0 picks a free port.
func WithAddress(addr string) Option {
	return func(s *Server) {
		if addr != "" {
			s.address = addr
		}
	}
}

// WithCacheSize sets the number of rendered aggregates kept. 0 disables caching.
func WithCacheSize(n int) Option {
	return func(s *Server) {
		if n >= 0 {
			s.cacheSize = n
		}
	}
}

// WithLogger sets the request and lifecycle logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithShutdownTimeout sets how long Stop waits for in-flight requests.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// FromConfig applies the server section of cfg.
func FromConfig(cfg *config.Config) Option {
	return func(s *Server) {
		if cfg == nil {
			return
		}
		WithAddress(cfg.Server.Address)(s)
		WithCacheSize(cfg.Server.CacheSize)(s)
	}
}

// New creates a Server listing partials from source and rendering through svc.
func New(source aggregate.SnapshotSource, svc *aggregate.Service, opts ...Option) (*Server, error) {
	if source == nil || svc == nil {
		return nil, errors.New("server: snapshot source and aggregation service are required")
	}
	s := &Server{
		source:          source,
		svc:             svc,
		logger:          log.New(io.Discard),
		address:         config.DefaultAddress,
		startupTimeout:  DefaultStartupTimeout,
		shutdownTimeout: DefaultShutdownTimeout,
		cacheSize:       config.DefaultCacheSize,
		startedCh:       make(chan struct{}),
		errCh:           make(chan error, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cacheSize > 0 {
		cache, err := lru.New[cacheKey, *rendered](s.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("server: create aggregate cache: %w", err)
		}
		s.cache = cache
	}
	s.state.Store(int32(StateCreated))
	return s, nil
}

// Start binds the listener and begins serving in the background. It returns
// once the server is running, or with the error that made it fail.
func (s *Server) Start(ctx context.Context) error {
	select {
	case <-ctx.Done():
		s.transitionToFailed(fmt.Errorf("context cancelled before start: %w", ctx.Err()))
		return s.LastError()
	default:
	}

	if !s.state.CompareAndSwap(int32(StateCreated), int32(StateStarting)) {
		return fmt.Errorf("cannot start server in state %s", s.State())
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	startupCtx, startupCancel := context.WithTimeout(ctx, s.startupTimeout)
	defer startupCancel()

	var lc net.ListenConfig
	listener, err := lc.Listen(startupCtx, "tcp", s.address)
	if err != nil {
		s.transitionToFailed(fmt.Errorf("listen on %s: %w", s.address, err))
		return s.LastError()
	}

	s.stateMu.Lock()
	s.listener = listener
	s.addr = listener.Addr().String()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return s.ctx },
	}
	s.stateMu.Unlock()

	s.wg.Add(1)
	go s.serve()

	select {
	case <-s.startedCh:
		s.logger.Info("HTTP server started", "address", s.Addr())
		return nil
	case err := <-s.errCh:
		s.transitionToFailed(err)
		return err
	case <-startupCtx.Done():
		_ = listener.Close()
		s.transitionToFailed(fmt.Errorf("startup timeout: %w", startupCtx.Err()))
		return s.LastError()
	}
}

// Stop gracefully shuts the server down. It is safe to call more than once.
func (s *Server) Stop() error {
	for {
		current := s.State()
		switch current {
		case StateStopped, StateFailed:
			return nil
		case StateCreated:
			if s.state.CompareAndSwap(int32(StateCreated), int32(StateStopped)) {
				return nil
			}
		case StateStopping:
			s.wg.Wait()
			return nil
		case StateStarting, StateRunning:
			if s.state.CompareAndSwap(int32(current), int32(StateStopping)) {
				return s.doStop()
			}
		default:
			return &InvalidStateError{Value: current}
		}
	}
}

// WaitForReady blocks until the server is running or ctx is done.
func (s *Server) WaitForReady(ctx context.Context) error {
	select {
	case <-s.startedCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for server ready: %w", ctx.Err())
	}
}

// Wait blocks until the serve loop exits and returns the failure, if any.
func (s *Server) Wait() error {
	s.wg.Wait()
	if s.State() == StateFailed {
		return s.LastError()
	}
	return nil
}

// Addr returns the bound address, or "" before Start succeeds.
func (s *Server) Addr() string {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.addr
}

// URL returns the base URL of a started server.
func (s *Server) URL() string {
	return "http://" + s.Addr()
}

// State returns the current lifecycle state.
func (s *Server) State() State {
	return State(s.state.Load())
}

// IsRunning reports whether the server is accepting requests.
func (s *Server) IsRunning() bool {
	return s.State() == StateRunning
}

// Err returns a channel receiving fatal serve errors. It is closed by Stop.
func (s *Server) Err() <-chan error {
	return s.errCh
}

// LastError returns the error that moved the server to StateFailed, or nil.
func (s *Server) LastError() error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.lastErr
}

// InvalidateCache drops every cached aggregate.
func (s *Server) InvalidateCache() {
	if s.cache != nil {
		s.cache.Purge()
	}
}

func (s *Server) serve() {
	defer s.wg.Done()

	if s.state.CompareAndSwap(int32(StateStarting), int32(StateRunning)) {
		close(s.startedCh)
	}

	s.stateMu.Lock()
	srv, listener := s.httpServer, s.listener
	s.stateMu.Unlock()

	err := srv.Serve(listener)
	if err == nil || errors.Is(err, http.ErrServerClosed) || errors.Is(err, net.ErrClosed) {
		return
	}
	s.logger.Error("HTTP server failed", "err", err)
	s.transitionToFailed(fmt.Errorf("serve: %w", err))
}

func (s *Server) doStop() error {
	if s.cancel != nil {
		s.cancel()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.stateMu.Lock()
	srv := s.httpServer
	s.stateMu.Unlock()

	var shutdownErr error
	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, net.ErrClosed) {
			s.logger.Error("HTTP server shutdown failed", "err", err)
			shutdownErr = fmt.Errorf("shutdown: %w", err)
		}
	}

	s.wg.Wait()
	s.state.Store(int32(StateStopped))
	s.logger.Info("HTTP server stopped")
	close(s.errCh)
	return shutdownErr
}

func (s *Server) transitionToFailed(err error) {
	s.stateMu.Lock()
	s.lastErr = err
	s.stateMu.Unlock()

	s.state.Store(int32(StateFailed))
	if s.cancel != nil {
		s.cancel()
	}
	select {
	case s.errCh <- err:
	default:
	}
}
