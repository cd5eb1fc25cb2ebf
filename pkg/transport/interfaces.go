package transport

import (
	"fmt"

	"github.com/avrcp-protocol/avrcp-go/pkg/wire"
)

// Handle identifies one control connection.
type Handle uint8

// Message is the envelope exchanged with the link layer.
type Message struct {
	Handle Handle
	Label  uint8
	Code   wire.Code
	Opcode wire.Opcode

	// Payload is a vendor-dependent PDU or a pass-through frame,
	// depending on Opcode.
	Payload []byte
}

// String summarizes the envelope for logs.
func (m Message) String() string {
	return fmt.Sprintf("handle=%d label=%d code=%s opcode=%s len=%d",
		m.Handle, m.Label, m.Code, m.Opcode, len(m.Payload))
}

// Transport sends envelopes to the peer.
type Transport interface {
	// Send queues msg for the peer on msg.Handle. It must not block on
	// the peer processing the message.
	Send(msg Message) error

	// Close tears down the connection identified by h.
	Close(h Handle) error
}

// Receiver accepts envelopes from the link.
type Receiver interface {
	Deliver(msg Message)
}

// ReceiverFunc adapts a function to Receiver.
type ReceiverFunc func(Message)

// Deliver calls f(msg).
func (f ReceiverFunc) Deliver(msg Message) { f(msg) }

// FrameReadWriter provides length-prefixed frame I/O.
// Implemented by Framer.
type FrameReadWriter interface {
	ReadFrame() ([]byte, error)
	WriteFrame(data []byte) error
}

// Compile-time interface satisfaction checks.
var (
	_ Transport       = (*LoopbackEnd)(nil)
	_ Transport       = (*StreamTransport)(nil)
	_ Transport       = (*Server)(nil)
	_ Receiver        = ReceiverFunc(nil)
	_ FrameReadWriter = (*Framer)(nil)
)
