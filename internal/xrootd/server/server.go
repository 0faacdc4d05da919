// Package server implements the connection server (spec §4.8): an accept
// loop that hands each net.Conn to its own goroutine, enforces the
// configured idle timeout, and fans out a graceful-then-forced shutdown to
// every live connection.
package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gbehrmann/xrootd4j/internal/logger"
	"github.com/gbehrmann/xrootd4j/internal/metrics"
	"github.com/gbehrmann/xrootd4j/internal/trust"
	"github.com/gbehrmann/xrootd4j/internal/xrootd/handler"
	"github.com/gbehrmann/xrootd4j/pkg/config"
)

// Server accepts xrootd client connections and serves them against a
// single filesystem root (spec §4.8). The zero value is not usable;
// construct with New.
type Server struct {
	cfg     config.ServerConfig
	handler *handler.Handler
	metrics *metrics.Metrics
	anchors *trust.Anchors

	listenerMu sync.RWMutex
	listener   net.Listener

	activeConns sync.WaitGroup
	connCount   atomic.Int32
	connections sync.Map // connection id (string) -> net.Conn

	shutdownOnce   sync.Once
	shutdown       chan struct{}
	shutdownCtx    context.Context
	cancelRequests context.CancelFunc

	listenerReady chan struct{}
}

// New builds a Server from cfg. anchors may be nil: the DH/GSI sub-flow
// only consults it when a handshake requires certificate verification
// beyond DH itself, which this core does not perform (spec §1's "broader
// GSI handler" is out of scope).
func New(cfg config.ServerConfig, h *handler.Handler, m *metrics.Metrics, anchors *trust.Anchors) *Server {
	shutdownCtx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:            cfg,
		handler:        h,
		metrics:        m,
		anchors:        anchors,
		shutdown:       make(chan struct{}),
		shutdownCtx:    shutdownCtx,
		cancelRequests: cancel,
		listenerReady:  make(chan struct{}),
	}
}

// Serve listens on cfg.ListenAddress and accepts connections until ctx is
// canceled or Stop is called. It blocks until the accept loop exits.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("server: listen on %s: %w", s.cfg.ListenAddress, err)
	}

	s.listenerMu.Lock()
	s.listener = ln
	s.listenerMu.Unlock()
	close(s.listenerReady)

	logger.Info("xrootd server listening", "address", s.cfg.ListenAddress)

	go func() {
		select {
		case <-ctx.Done():
			s.initiateShutdown()
		case <-s.shutdown:
		}
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return nil
			default:
				return fmt.Errorf("server: accept: %w", err)
			}
		}

		connID := uuid.NewString()
		s.connCount.Add(1)
		s.connections.Store(connID, conn)
		s.metrics.IncConnections()
		s.activeConns.Add(1)

		go func() {
			defer s.activeConns.Done()
			defer func() {
				s.connections.Delete(connID)
				s.connCount.Add(-1)
				s.metrics.DecConnections()
			}()
			serveConn(s.shutdownCtx, connID, conn, s.handler, s.metrics, s.cfg)
		}()
	}
}

// WaitUntilReady blocks until the listener is bound, for callers (such as
// tests) that need the assigned address before connecting.
func (s *Server) WaitUntilReady() {
	<-s.listenerReady
}

// Addr returns the listener's address. Only valid after WaitUntilReady
// returns.
func (s *Server) Addr() net.Addr {
	s.listenerMu.RLock()
	defer s.listenerMu.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ConnectionCount reports the number of currently active connections.
func (s *Server) ConnectionCount() int {
	return int(s.connCount.Load())
}

// initiateShutdown stops accepting new connections and interrupts blocking
// reads on every live connection, exactly once.
func (s *Server) initiateShutdown() {
	s.shutdownOnce.Do(func() {
		close(s.shutdown)

		s.listenerMu.RLock()
		ln := s.listener
		s.listenerMu.RUnlock()
		if ln != nil {
			_ = ln.Close()
		}

		s.interruptBlockingReads()
		s.cancelRequests()
	})
}

// interruptBlockingReads sets an imminent read deadline on every tracked
// connection so a goroutine blocked in a frame read wakes up and observes
// the canceled shutdownCtx instead of blocking indefinitely.
func (s *Server) interruptBlockingReads() {
	deadline := time.Now().Add(100 * time.Millisecond)
	s.connections.Range(func(_, value any) bool {
		if conn, ok := value.(net.Conn); ok {
			_ = conn.SetDeadline(deadline)
		}
		return true
	})
}

// Stop gracefully shuts the server down: it stops accepting connections,
// waits for in-flight connections to drain, and force-closes whatever
// remains when ctx is done or cfg.ShutdownTimeout elapses, whichever comes
// first (spec §4.8's graceful shutdown fan-out).
func (s *Server) Stop(ctx context.Context) error {
	s.initiateShutdown()

	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.forceCloseConnections()
		return ctx.Err()
	case <-time.After(timeout):
		s.forceCloseConnections()
		return fmt.Errorf("server: shutdown: %d connection(s) did not drain within %s", s.ConnectionCount(), timeout)
	}
}

// forceCloseConnections closes every still-tracked connection outright,
// used when graceful shutdown's deadline is exceeded.
func (s *Server) forceCloseConnections() {
	s.connections.Range(func(key, value any) bool {
		if conn, ok := value.(net.Conn); ok {
			_ = conn.Close()
		}
		s.connections.Delete(key)
		return true
	})
}
