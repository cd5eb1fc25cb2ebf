package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/avrcp-protocol/avrcp-go/pkg/log"
)

// ErrNoHandle is reported when every connection handle is in use.
var ErrNoHandle = errors.New("no free connection handle")

// ServerConfig configures a stream server.
type ServerConfig struct {
	// Address to listen on (e.g., ":7000" or "127.0.0.1:7000").
	Address string

	// Capture receives transport frame events (optional).
	Capture log.Logger

	// Logger for diagnostics (optional).
	Logger *slog.Logger

	// OnConnect is called when a connection has been assigned a handle,
	// before its first message is delivered.
	OnConnect func(h Handle, remote net.Addr)

	// OnDisconnect is called after a connection has gone away.
	OnDisconnect func(h Handle)

	// OnError is called when accepting or reading fails.
	OnError func(h Handle, err error)
}

// Server accepts stream connections and carries envelopes for all of
// them. It implements Transport by routing Send and Close on the handle.
type Server struct {
	config   ServerConfig
	receiver Receiver
	listener net.Listener

	connsMu sync.RWMutex
	conns   map[Handle]*StreamTransport
	next    Handle

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewServer creates a server that delivers inbound envelopes to r.
func NewServer(config ServerConfig, r Receiver) (*Server, error) {
	if r == nil {
		return nil, fmt.Errorf("receiver is required")
	}
	if config.Address == "" {
		config.Address = fmt.Sprintf(":%d", DefaultPort)
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		config:   config,
		receiver: r,
		conns:    make(map[Handle]*StreamTransport),
	}, nil
}

// Start starts listening and accepting connections.
func (s *Server) Start(ctx context.Context) error {
	if s.running.Load() {
		return fmt.Errorf("server already running")
	}

	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = listener
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Stop closes the listener and every connection and waits for the
// connection goroutines to finish.
func (s *Server) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	s.cancel()
	_ = s.listener.Close()

	s.connsMu.RLock()
	for h, st := range s.conns {
		_ = st.Close(h)
	}
	s.connsMu.RUnlock()

	s.wg.Wait()
	return nil
}

// Addr returns the listen address.
func (s *Server) Addr() net.Addr {
	if s.listener != nil {
		return s.listener.Addr()
	}
	return nil
}

// ConnectionCount returns the number of active connections.
func (s *Server) ConnectionCount() int {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	return len(s.conns)
}

// Send writes msg on the connection identified by msg.Handle.
func (s *Server) Send(msg Message) error {
	st := s.stream(msg.Handle)
	if st == nil {
		return fmt.Errorf("%w: unknown handle %d", ErrClosed, msg.Handle)
	}
	return st.Send(msg)
}

// Close closes the connection identified by h.
func (s *Server) Close(h Handle) error {
	st := s.stream(h)
	if st == nil {
		return fmt.Errorf("%w: unknown handle %d", ErrClosed, h)
	}
	return st.Close(h)
}

func (s *Server) stream(h Handle) *StreamTransport {
	s.connsMu.RLock()
	defer s.connsMu.RUnlock()
	return s.conns[h]
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if !s.running.Load() {
				return
			}
			s.reportError(0, fmt.Errorf("accept error: %w", err))
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			time.Sleep(10 * time.Millisecond)
			continue
		}

		st, err := s.register(conn)
		if err != nil {
			_ = conn.Close()
			s.reportError(0, err)
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(st, conn.RemoteAddr())
	}
}

// register assigns the lowest free handle after the last one handed out.
func (s *Server) register(conn net.Conn) (*StreamTransport, error) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()

	for i := 0; i < 255; i++ {
		s.next++
		if s.next == 0 {
			s.next = 1
		}
		if _, used := s.conns[s.next]; used {
			continue
		}
		st := NewStreamTransport(conn, s.next, s.config.Logger)
		if s.config.Capture != nil {
			st.Framer().SetLogger(s.config.Capture, uuid.NewString())
		}
		s.conns[s.next] = st
		return st, nil
	}
	return nil, ErrNoHandle
}

func (s *Server) handleConnection(st *StreamTransport, remote net.Addr) {
	defer s.wg.Done()
	h := st.Handle()

	s.config.Logger.Info("connection accepted", "handle", h, "remote", remote)
	if s.config.OnConnect != nil {
		s.config.OnConnect(h, remote)
	}

	if err := st.Run(s.ctx, s.receiver); err != nil {
		s.reportError(h, err)
	}

	s.connsMu.Lock()
	delete(s.conns, h)
	s.connsMu.Unlock()

	s.config.Logger.Info("connection closed", "handle", h, "remote", remote)
	if s.config.OnDisconnect != nil {
		s.config.OnDisconnect(h)
	}
}

func (s *Server) reportError(h Handle, err error) {
	s.config.Logger.Debug("server error", "handle", h, "error", err)
	if s.config.OnError != nil {
		s.config.OnError(h, err)
	}
}
