package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/avrcp-protocol/avrcp-go/pkg/log"
	"github.com/avrcp-protocol/avrcp-go/pkg/wire"
)

// Framing constants.
const (
	// LengthPrefixSize is the size of the frame length prefix.
	LengthPrefixSize = 4

	// EnvelopeHeaderSize is handle, label, code and opcode.
	EnvelopeHeaderSize = 4

	// DefaultMaxFrameSize bounds a single frame (64 KiB).
	DefaultMaxFrameSize = 65536

	// MaxLogFrameDataSize caps the bytes copied into capture events.
	MaxLogFrameDataSize = 1024
)

// Framing errors.
var (
	ErrFrameTooLarge  = errors.New("frame too large")
	ErrFrameEmpty     = errors.New("frame is empty")
	ErrFrameTruncated = errors.New("frame truncated")
)

// EncodeMessage serializes an envelope into a frame body.
func EncodeMessage(m Message) []byte {
	b := make([]byte, 0, EnvelopeHeaderSize+len(m.Payload))
	b = append(b, byte(m.Handle), m.Label&0x0F, byte(m.Code), byte(m.Opcode))
	return append(b, m.Payload...)
}

// DecodeMessage parses a frame body into an envelope.
func DecodeMessage(b []byte) (Message, error) {
	if len(b) < EnvelopeHeaderSize {
		return Message{}, fmt.Errorf("failed to decode envelope: %w (%d bytes)", ErrFrameTruncated, len(b))
	}
	return Message{
		Handle:  Handle(b[0]),
		Label:   b[1] & 0x0F,
		Code:    wire.Code(b[2]),
		Opcode:  wire.Opcode(b[3]),
		Payload: append([]byte(nil), b[EnvelopeHeaderSize:]...),
	}, nil
}

// Framer reads and writes length-prefixed frames. Writes are serialized;
// reads must come from a single goroutine.
type Framer struct {
	r       io.Reader
	w       io.Writer
	maxSize uint32

	wmu     sync.Mutex
	lenBuf  [LengthPrefixSize]byte
	logger  log.Logger
	connID  string
	timeNow func() time.Time
}

// NewFramer creates a framer over rw with DefaultMaxFrameSize.
func NewFramer(rw io.ReadWriter) *Framer {
	return NewFramerWithMaxSize(rw, DefaultMaxFrameSize)
}

// NewFramerWithMaxSize creates a framer with a custom frame limit.
func NewFramerWithMaxSize(rw io.ReadWriter, maxSize uint32) *Framer {
	return &Framer{r: rw, w: rw, maxSize: maxSize, timeNow: time.Now}
}

// SetLogger enables frame capture. Pass nil to disable.
func (f *Framer) SetLogger(logger log.Logger, connID string) {
	f.logger = logger
	f.connID = connID
}

// WriteFrame writes one frame. Safe for concurrent use.
func (f *Framer) WriteFrame(data []byte) error {
	if len(data) == 0 {
		return ErrFrameEmpty
	}
	if uint32(len(data)) > f.maxSize {
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, len(data), f.maxSize)
	}

	f.wmu.Lock()
	defer f.wmu.Unlock()

	frame := make([]byte, LengthPrefixSize, LengthPrefixSize+len(data))
	binary.BigEndian.PutUint32(frame, uint32(len(data)))
	frame = append(frame, data...)
	if _, err := f.w.Write(frame); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	f.capture(data, log.DirectionOut)
	return nil
}

// ReadFrame reads one frame and returns its body. A clean end of stream
// before a new frame returns io.EOF.
func (f *Framer) ReadFrame() ([]byte, error) {
	if _, err := io.ReadFull(f.r, f.lenBuf[:]); err != nil {
		switch {
		case err == io.EOF:
			return nil, io.EOF
		case errors.Is(err, io.ErrUnexpectedEOF):
			return nil, ErrFrameTruncated
		default:
			return nil, fmt.Errorf("failed to read length prefix: %w", err)
		}
	}

	n := binary.BigEndian.Uint32(f.lenBuf[:])
	switch {
	case n == 0:
		return nil, ErrFrameEmpty
	case n > f.maxSize:
		return nil, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, n, f.maxSize)
	}

	body := make([]byte, n)
	if _, err := io.ReadFull(f.r, body); err != nil {
		if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("failed to read frame body: %w", err)
	}

	f.capture(body, log.DirectionIn)
	return body, nil
}

func (f *Framer) capture(data []byte, dir log.Direction) {
	if f.logger == nil {
		return
	}
	ev := log.Event{
		Timestamp:    f.timeNow(),
		ConnectionID: f.connID,
		Direction:    dir,
		Layer:        log.LayerTransport,
		Category:     log.CategoryMessage,
		Frame:        &log.FrameEvent{Size: LengthPrefixSize + len(data), Data: data},
	}
	if len(data) > 0 {
		ev.Handle = data[0]
	}
	if len(data) > MaxLogFrameDataSize {
		ev.Frame.Data = data[:MaxLogFrameDataSize]
		ev.Frame.Truncated = true
	}
	f.logger.Log(ev)
}
