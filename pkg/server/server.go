// Package server implements the RPC server core: a TCP accept loop that
// spawns one worker goroutine per connection and dispatches framed
// requests against a handler registry.
package server

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/davidsha/gammarpc/internal/logger"
	"github.com/davidsha/gammarpc/pkg/metrics"
	"github.com/davidsha/gammarpc/pkg/registry"
)

// Config holds the server configuration.
type Config struct {
	// BindAddress is the IP address to bind to. Empty binds all
	// interfaces, IPv6 and IPv4 (dual-stack).
	BindAddress string

	// Port is the TCP port to listen on. Zero picks an ephemeral port.
	Port int

	// MaxConnections limits concurrent client connections. 0 means
	// unlimited.
	MaxConnections int

	// ShutdownTimeout is the maximum duration to wait for active
	// connections to finish during graceful shutdown.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the server defaults.
func DefaultConfig() Config {
	return Config{
		Port:            3000,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server accepts connections and serves find/call requests.
//
// All exported methods are safe for concurrent use. Shutdown is
// idempotent: the first trigger (context cancellation or Stop) wins and
// later ones are no-ops.
type Server struct {
	config   Config
	registry *registry.Registry

	// metrics is optional; nil disables collection with zero overhead.
	metrics metrics.ServerMetrics

	// listener is closed during shutdown to stop accepting connections.
	listener   net.Listener
	listenerMu sync.RWMutex

	// activeConns tracks worker goroutines for the shutdown join.
	activeConns sync.WaitGroup

	shutdownOnce sync.Once

	// shutdown is closed when graceful shutdown begins; the accept loop
	// and every worker observe it.
	shutdown chan struct{}

	connCount atomic.Int32

	// connSemaphore bounds concurrent connections when MaxConnections > 0.
	connSemaphore chan struct{}

	// cancelRequests unblocks in-flight workers during shutdown.
	shutdownCtx    context.Context
	cancelRequests context.CancelFunc

	// activeConnections maps remote address → net.Conn for forced close.
	activeConnections sync.Map

	// listenerReady is closed once the listener is bound; Addr blocks on
	// it so tests can synchronize with startup.
	listenerReady chan struct{}
}

// New creates a server around the given registry. Metrics may be nil.
func New(config Config, reg *registry.Registry, m metrics.ServerMetrics) *Server {
	var sem chan struct{}
	if config.MaxConnections > 0 {
		sem = make(chan struct{}, config.MaxConnections)
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())

	return &Server{
		config:         config,
		registry:       reg,
		metrics:        m,
		shutdown:       make(chan struct{}),
		connSemaphore:  sem,
		shutdownCtx:    shutdownCtx,
		cancelRequests: cancel,
		listenerReady:  make(chan struct{}),
	}
}

// Register adds or replaces a named handler. Registration is normally
// done before Serve; doing it while serving is safe.
func (s *Server) Register(name string, handler registry.Handler) error {
	if err := s.registry.Register(name, handler); err != nil {
		return err
	}
	logger.Debug("handler registered", logger.KeyFunction, name)
	return nil
}

// Serve binds the listener and runs the accept loop until ctx is
// cancelled or Stop is called. It returns nil on graceful shutdown.
func (s *Server) Serve(ctx context.Context) error {
	listenAddr := net.JoinHostPort(s.config.BindAddress, strconv.Itoa(s.config.Port))
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", listenAddr, err)
	}

	s.listenerMu.Lock()
	s.listener = listener
	s.listenerMu.Unlock()
	close(s.listenerReady)

	logger.Info("server listening", "address", listener.Addr().String())

	// shutdown on context cancellation
	go func() {
		select {
		case <-ctx.Done():
			logger.Info("shutdown signal received", logger.Err(ctx.Err()))
			s.initiateShutdown()
		case <-s.shutdown:
		}
	}()

	for {
		// bound concurrency before accepting
		if s.connSemaphore != nil {
			select {
			case s.connSemaphore <- struct{}{}:
			case <-s.shutdown:
				return s.gracefulShutdown()
			}
		}

		tcpConn, err := s.listener.Accept()
		if err != nil {
			if s.connSemaphore != nil {
				<-s.connSemaphore
			}
			select {
			case <-s.shutdown:
				// listener was closed by shutdown
				return s.gracefulShutdown()
			default:
				logger.Debug("accept error", logger.Err(err))
				continue
			}
		}

		// the request/reply handshake is latency-bound, not
		// throughput-bound
		if tcp, ok := tcpConn.(*net.TCPConn); ok {
			if err := tcp.SetNoDelay(true); err != nil {
				logger.Debug("failed to set TCP_NODELAY", logger.Err(err))
			}
		}

		s.activeConns.Add(1)
		current := s.connCount.Add(1)

		connAddr := tcpConn.RemoteAddr().String()
		s.activeConnections.Store(connAddr, tcpConn)

		if s.metrics != nil {
			s.metrics.RecordConnectionAccepted()
			s.metrics.SetActiveConnections(current)
		}
		logger.Debug("connection accepted", logger.ClientIP(connAddr), "active", current)

		worker := newConnection(s, tcpConn)
		go func(addr string) {
			defer func() {
				s.activeConnections.Delete(addr)
				s.activeConns.Done()
				remaining := s.connCount.Add(-1)
				if s.connSemaphore != nil {
					<-s.connSemaphore
				}
				if s.metrics != nil {
					s.metrics.RecordConnectionClosed()
					s.metrics.SetActiveConnections(remaining)
				}
				logger.Debug("connection closed", logger.ClientIP(addr), "active", remaining)
			}()
			worker.serve(s.shutdownCtx)
		}(connAddr)
	}
}

// Stop initiates graceful shutdown and waits for active connections up to
// the configured timeout. Safe to call multiple times and concurrently
// with Serve.
func (s *Server) Stop() error {
	s.initiateShutdown()
	return s.gracefulShutdown()
}

// Addr returns the bound listener address. It blocks until the listener
// is ready, which makes it safe for tests that race Serve.
func (s *Server) Addr() string {
	<-s.listenerReady

	s.listenerMu.RLock()
	defer s.listenerMu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// initiateShutdown closes the shutdown channel, the listener, and
// unblocks worker reads. Idempotent.
func (s *Server) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		logger.Debug("shutdown initiated")
		close(s.shutdown)

		s.listenerMu.Lock()
		if s.listener != nil {
			if err := s.listener.Close(); err != nil {
				logger.Debug("error closing listener", logger.Err(err))
			}
		}
		s.listenerMu.Unlock()

		s.interruptBlockingReads()
		s.cancelRequests()
	})
}

// interruptBlockingReads sets a short read deadline on every active
// connection so workers parked in a blocking receive wake up and observe
// the shutdown flag. In-flight replies still complete: a worker clears the
// read deadline before the reply's size-echo handshake.
func (s *Server) interruptBlockingReads() {
	deadline := time.Now().Add(100 * time.Millisecond)
	s.activeConnections.Range(func(key, value any) bool {
		if conn, ok := value.(net.Conn); ok {
			if err := conn.SetReadDeadline(deadline); err != nil {
				logger.Debug("error setting shutdown deadline", logger.ClientIP(key.(string)), logger.Err(err))
			}
		}
		return true
	})
}

// gracefulShutdown joins workers or force-closes them at the timeout.
func (s *Server) gracefulShutdown() error {
	active := s.connCount.Load()
	logger.Info("graceful shutdown: waiting for active connections",
		"active", active, "timeout", s.config.ShutdownTimeout)

	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("graceful shutdown complete")
		return nil

	case <-time.After(s.config.ShutdownTimeout):
		remaining := s.connCount.Load()
		logger.Warn("shutdown timeout exceeded, forcing closure", "active", remaining)
		s.forceCloseConnections()
		return fmt.Errorf("shutdown timeout: %d connections force-closed", remaining)
	}
}

// forceCloseConnections closes every tracked connection.
func (s *Server) forceCloseConnections() {
	s.activeConnections.Range(func(key, value any) bool {
		conn := value.(net.Conn)
		if err := conn.Close(); err != nil {
			logger.Debug("error force-closing connection", logger.ClientIP(key.(string)), logger.Err(err))
		} else if s.metrics != nil {
			s.metrics.RecordConnectionForceClosed()
		}
		return true
	})
}
