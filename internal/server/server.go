// Package server implements the TCP front end: the accept loop and the
// per-connection request handlers.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ASHISH26940/hashdelivery/internal/logsink"
	"github.com/ASHISH26940/hashdelivery/internal/metrics"
	"github.com/ASHISH26940/hashdelivery/internal/protocol"
	"github.com/hashicorp/go-hclog"
)

// DefaultGreetingName is the identifier sent in the greeting when none is configured.
const DefaultGreetingName = "Gordei Skorobogatov"

const maxAcceptDelay = time.Second

// DataStore is the interface the handlers need from the storage layer.
type DataStore interface {
	Put(key, hash string)
	Get(key string) (string, bool)
	Size() int
}

// BindError reports that the listening socket could not be opened.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("server: bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// Server accepts client connections and serves each on its own goroutine.
type Server struct {
	addr        string
	greeting    []byte
	idleTimeout time.Duration
	store       DataStore
	sink        *logsink.Sink
	metrics     *metrics.Metrics
	logger      hclog.Logger

	mu      sync.Mutex
	conns   map[net.Conn]struct{}
	closing bool
	wg      sync.WaitGroup
}

// Option is a functional option for New.
type Option func(*Server)

// WithGreetingName sets the identifier sent in the greeting.
func WithGreetingName(name string) Option {
	return func(s *Server) {
		s.greeting = protocol.Greeting(name)
	}
}

// WithIdleTimeout closes connections that send nothing for d.
// Zero disables the timeout.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.idleTimeout = d
	}
}

// WithMetrics sets the collectors updated by the server.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger sets the logger for process-level messages. Per-connection
// activity always goes to the sink.
func WithLogger(l hclog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// New creates a Server for addr backed by store, reporting activity to sink.
func New(addr string, store DataStore, sink *logsink.Sink, opts ...Option) *Server {
	s := &Server{
		addr:     addr,
		greeting: protocol.Greeting(DefaultGreetingName),
		store:    store,
		sink:     sink,
		conns:    make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.Discard()
	}
	if s.logger == nil {
		s.logger = hclog.NewNullLogger()
	}
	return s
}

// ListenAndServe binds the configured address and serves until ctx is
// cancelled. A bind failure is returned as a *BindError.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return &BindError{Addr: s.addr, Err: err}
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then stops
// accepting, wakes idle handlers and waits for every handler to return.
// It returns nil after a cancellation.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	s.logger.Info("listening", "addr", ln.Addr().String())

	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.shutdown()
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				s.shutdown()
				return err
			}

			s.metrics.ConnectionErrors.WithLabelValues(logsink.KindAccept.String()).Inc()
			s.sink.Emit(logsink.ConnectionError{Kind: logsink.KindAccept, Err: err})

			delay *= 2
			if delay == 0 {
				delay = 5 * time.Millisecond
			}
			if delay > maxAcceptDelay {
				delay = maxAcceptDelay
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
			}
			continue
		}
		delay = 0

		s.track(conn)
		s.metrics.ConnectionsAccepted.Inc()
		h := newHandler(s, conn)
		s.sink.Emit(logsink.NewConnection{Peer: h.peer, ConnID: h.id, StoreSize: s.store.Size()})
		go h.serve()
	}
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	s.wg.Add(1)
	s.metrics.ConnectionsActive.Inc()
}

func (s *Server) untrack(conn net.Conn) {
	conn.Close()
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	s.metrics.ConnectionsActive.Dec()
	s.wg.Done()
}

// armReadDeadline prepares conn for the next read. It reports false once
// the server is shutting down.
func (s *Server) armReadDeadline(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	if s.idleTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(s.idleTimeout))
	}
	return true
}

func (s *Server) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

func (s *Server) shutdown() {
	s.mu.Lock()
	s.closing = true
	// Unblock handlers waiting for a request. A handler that is writing
	// a response is not affected and finishes it first.
	now := time.Now()
	for conn := range s.conns {
		conn.SetReadDeadline(now)
	}
	n := len(s.conns)
	s.mu.Unlock()

	s.logger.Info("shutting down", "open_connections", n)
	s.wg.Wait()
}

// apply executes req against the store.
func (s *Server) apply(req protocol.Request) protocol.Response {
	switch req.Type {
	case protocol.TypeStore:
		s.store.Put(req.Key, req.Hash)
		return protocol.Stored()
	default:
		hash, ok := s.store.Get(req.Key)
		if !ok {
			return protocol.KeyNotFound()
		}
		return protocol.Loaded(req.Key, hash)
	}
}
