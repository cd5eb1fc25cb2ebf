package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// StreamTransport carries envelopes for one connection over a byte
// stream, one frame per message.
type StreamTransport struct {
	conn   io.ReadWriteCloser
	framer *Framer
	handle Handle
	logger *slog.Logger

	closeOnce sync.Once
	closed    chan struct{}
}

// NewStreamTransport wraps conn. Messages read from the stream are
// delivered with handle h regardless of the handle the peer used.
func NewStreamTransport(conn io.ReadWriteCloser, h Handle, logger *slog.Logger) *StreamTransport {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &StreamTransport{
		conn:   conn,
		framer: NewFramer(conn),
		handle: h,
		logger: logger,
		closed: make(chan struct{}),
	}
}

// Framer exposes the underlying framer, for example to attach a capture
// logger.
func (s *StreamTransport) Framer() *Framer {
	return s.framer
}

// Handle returns the local handle of the connection.
func (s *StreamTransport) Handle() Handle {
	return s.handle
}

// Send writes msg as one frame.
func (s *StreamTransport) Send(msg Message) error {
	select {
	case <-s.closed:
		return ErrClosed
	default:
	}
	return s.framer.WriteFrame(EncodeMessage(msg))
}

// Close closes the stream. h must be the transport's handle.
func (s *StreamTransport) Close(h Handle) error {
	if h != s.handle {
		return fmt.Errorf("%w: unknown handle %d", ErrClosed, h)
	}
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		err = s.conn.Close()
	})
	return err
}

// Done is closed once the transport is closed.
func (s *StreamTransport) Done() <-chan struct{} {
	return s.closed
}

// Run reads frames and hands them to r until the stream ends, ctx is
// cancelled or the transport is closed. A clean end of stream returns nil.
func (s *StreamTransport) Run(ctx context.Context, r Receiver) error {
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close(s.handle)
		case <-s.closed:
		}
	}()

	for {
		body, err := s.framer.ReadFrame()
		if err != nil {
			select {
			case <-s.closed:
				return nil
			default:
			}
			if errors.Is(err, io.EOF) {
				_ = s.Close(s.handle)
				return nil
			}
			_ = s.Close(s.handle)
			return err
		}

		msg, err := DecodeMessage(body)
		if err != nil {
			s.logger.Debug("dropping malformed envelope", "handle", s.handle, "error", err)
			continue
		}
		msg.Handle = s.handle
		r.Deliver(msg)
	}
}
