package fragment

import (
	"fmt"
	"log/slog"

	"github.com/avrcp-protocol/avrcp-go/pkg/wire"
)

// DefaultMaxMessageSize bounds the reassembled parameter length.
const DefaultMaxMessageSize = 4096

// Result is the outcome of feeding one packet to an Assembler.
type Result struct {
	// PDU of the packet or message.
	PDU wire.PduID

	// Done is set when Packet holds a complete SINGLE packet.
	Done bool

	// Packet is the complete message, valid when Done.
	Packet []byte

	// Truncated is set when the message outgrew the size limit and was
	// cut short.
	Truncated bool

	// NeedContinue is set when the peer holds more fragments and expects
	// a RequestContinuation.
	NeedContinue bool

	// AbortPeer is set on a truncated message whose remaining fragments
	// the peer still holds; they should be dropped with AbortContinuation.
	AbortPeer bool
}

// Assembler reassembles one inbound fragmented message at a time.
// It is not safe for concurrent use; the owning session serializes access.
type Assembler struct {
	maxSize int
	logger  *slog.Logger

	pdu    wire.PduID
	buf    []byte
	active bool
}

// NewAssembler creates an Assembler. maxSize <= 0 selects
// DefaultMaxMessageSize; a nil logger disables warnings.
func NewAssembler(maxSize int, logger *slog.Logger) *Assembler {
	if maxSize <= 0 {
		maxSize = DefaultMaxMessageSize
	}
	return &Assembler{maxSize: maxSize, logger: logger}
}

// Add consumes one packet.
//
// SINGLE packets pass straight through. START begins a new message,
// discarding any partial one. CONTINUE appends and END completes.
// CONTINUE or END with nothing in progress returns ErrUnexpectedFragment
// and should be dropped.
func (a *Assembler) Add(packet []byte) (Result, error) {
	hdr, err := wire.DecodeHeader(packet)
	if err != nil {
		return Result{}, fmt.Errorf("failed to assemble packet: %w", err)
	}
	params := wire.Params(packet)

	switch hdr.PacketType {
	case wire.PacketSingle:
		return Result{PDU: hdr.PDU, Done: true, Packet: packet}, nil

	case wire.PacketStart:
		if a.active && a.logger != nil {
			a.logger.Debug("fragment restart", "pdu", hdr.PDU, "discarded", len(a.buf))
		}
		a.pdu = hdr.PDU
		a.buf = make([]byte, 0, len(params)*2)
		a.active = true
		return a.append(params, false), nil

	case wire.PacketContinue, wire.PacketEnd:
		if !a.active {
			return Result{PDU: hdr.PDU}, ErrUnexpectedFragment
		}
		if hdr.PDU != a.pdu {
			pending := a.pdu
			a.Reset()
			return Result{PDU: hdr.PDU}, fmt.Errorf("%w: assembling %s, got %s", ErrPDUMismatch, pending, hdr.PDU)
		}
		return a.append(params, hdr.PacketType == wire.PacketEnd), nil
	}
	return Result{}, nil
}

func (a *Assembler) append(params []byte, end bool) Result {
	room := a.maxSize - len(a.buf)
	if len(params) > room {
		a.buf = append(a.buf, params[:room]...)
		if a.logger != nil {
			a.logger.Warn("fragmented message too large, delivering truncated",
				"pdu", a.pdu, "limit", a.maxSize)
		}
		return a.complete(true, !end)
	}

	a.buf = append(a.buf, params...)
	if end {
		return a.complete(false, false)
	}
	return Result{PDU: a.pdu, NeedContinue: true}
}

func (a *Assembler) complete(truncated, peerHasMore bool) Result {
	r := Result{
		PDU:       a.pdu,
		Done:      true,
		Packet:    wire.EncodePacket(a.pdu, wire.PacketSingle, a.buf),
		Truncated: truncated,
		AbortPeer: peerHasMore,
	}
	a.Reset()
	return r
}

// Active reports whether a message is being assembled.
func (a *Assembler) Active() bool {
	return a.active
}

// Reset drops any partial message.
func (a *Assembler) Reset() {
	a.pdu = 0
	a.buf = nil
	a.active = false
}
