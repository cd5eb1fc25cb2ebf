package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrShortPacket is returned when a packet is smaller than HeaderSize.
var ErrShortPacket = errors.New("packet shorter than header")

// packetTypeMask selects the packet type bits of the second header byte.
const packetTypeMask = 0x03

// Header is the fixed four byte vendor-dependent PDU header.
type Header struct {
	PDU        PduID
	PacketType PacketType
	ParamLen   uint16
}

// DecodeHeader reads the header at the start of b.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("failed to decode header: %w (%d bytes)", ErrShortPacket, len(b))
	}
	return Header{
		PDU:        PduID(b[0]),
		PacketType: PacketType(b[1] & packetTypeMask),
		ParamLen:   binary.BigEndian.Uint16(b[2:4]),
	}, nil
}

// AppendTo appends the encoded header to b.
func (h Header) AppendTo(b []byte) []byte {
	b = append(b, byte(h.PDU), byte(h.PacketType)&packetTypeMask)
	return binary.BigEndian.AppendUint16(b, h.ParamLen)
}

// Params returns the parameter bytes of packet b, or nil if b is shorter
// than a header.
func Params(b []byte) []byte {
	if len(b) < HeaderSize {
		return nil
	}
	return b[HeaderSize:]
}

// EncodePacket builds a packet from a header and its parameters. The
// header's ParamLen is replaced by len(params).
func EncodePacket(pdu PduID, pt PacketType, params []byte) []byte {
	out := make([]byte, 0, HeaderSize+len(params))
	out = Header{PDU: pdu, PacketType: pt, ParamLen: uint16(len(params))}.AppendTo(out)
	return append(out, params...)
}

// SetPacketType rewrites the packet type of an encoded packet in place.
func SetPacketType(b []byte, pt PacketType) {
	if len(b) >= HeaderSize {
		b[1] = (b[1] &^ packetTypeMask) | byte(pt)&packetTypeMask
	}
}
