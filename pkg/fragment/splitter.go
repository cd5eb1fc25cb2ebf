// Package fragment splits long AVRCP responses into START/CONTINUE/END
// packets and reassembles them on the receiving side.
//
// Outbound, only the first packet is sent right away; each further packet
// goes out when the peer sends RequestContinuation for the same PDU.
// Inbound, fragments are appended until END and delivered as one SINGLE
// packet.
package fragment

import (
	"errors"
	"fmt"

	"github.com/avrcp-protocol/avrcp-go/pkg/wire"
)

// Fragmentation errors.
var (
	ErrNoPending          = errors.New("no fragmented response pending")
	ErrPDUMismatch        = errors.New("continuation PDU does not match pending response")
	ErrUnexpectedFragment = errors.New("fragment without preceding START")
)

// Splitter holds the unsent remainder of one outbound response.
// It is not safe for concurrent use; the owning session serializes access.
type Splitter struct {
	pdu       wire.PduID
	remaining []byte
	active    bool
}

// Split returns the first packet to send for packet. Packets that fit in
// one control frame are returned as-is with fragmented=false. Otherwise
// the first START packet is returned and the rest is held for Continue.
// A previously pending response is abandoned.
func (s *Splitter) Split(packet []byte) ([]byte, bool, error) {
	hdr, err := wire.DecodeHeader(packet)
	if err != nil {
		return nil, false, fmt.Errorf("failed to split packet: %w", err)
	}
	s.Reset()

	if len(packet) <= wire.MaxPacketLength {
		return packet, false, nil
	}

	params := wire.Params(packet)
	s.pdu = hdr.PDU
	s.remaining = append([]byte(nil), params[wire.MaxParamLength:]...)
	s.active = true
	return wire.EncodePacket(hdr.PDU, wire.PacketStart, params[:wire.MaxParamLength]), true, nil
}

// Continue returns the next CONTINUE or END packet for targetPDU.
func (s *Splitter) Continue(targetPDU wire.PduID) ([]byte, error) {
	if err := s.check(targetPDU); err != nil {
		return nil, err
	}

	n := len(s.remaining)
	if n > wire.MaxParamLength {
		out := wire.EncodePacket(s.pdu, wire.PacketContinue, s.remaining[:wire.MaxParamLength])
		s.remaining = s.remaining[wire.MaxParamLength:]
		return out, nil
	}
	out := wire.EncodePacket(s.pdu, wire.PacketEnd, s.remaining)
	s.Reset()
	return out, nil
}

// Abort drops the pending response for targetPDU.
func (s *Splitter) Abort(targetPDU wire.PduID) error {
	if err := s.check(targetPDU); err != nil {
		return err
	}
	s.Reset()
	return nil
}

func (s *Splitter) check(targetPDU wire.PduID) error {
	if !s.active {
		return ErrNoPending
	}
	if targetPDU != s.pdu {
		return fmt.Errorf("%w: pending %s, got %s", ErrPDUMismatch, s.pdu, targetPDU)
	}
	return nil
}

// Pending reports the PDU of the response awaiting continuation.
func (s *Splitter) Pending() (wire.PduID, bool) {
	return s.pdu, s.active
}

// Reset abandons any pending response.
func (s *Splitter) Reset() {
	s.pdu = 0
	s.remaining = nil
	s.active = false
}
