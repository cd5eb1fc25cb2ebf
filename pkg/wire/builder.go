package wire

import "encoding/binary"

type listKind uint8

const (
	listCompanyIDs listKind = iota
	listEvents
	listPlayerAttrs
	listPlayerValues
)

// ListBuilder assembles a count-prefixed list response incrementally.
// Items may be appended over several calls, for example one batch per
// source page; Bytes always returns a packet with the item count and
// parameter length rewritten.
type ListBuilder struct {
	pdu      PduID
	kind     listKind
	buf      []byte
	countOff int
	count    int
}

// NewCapabilitiesBuilder starts a GetCapabilities response.
func NewCapabilitiesBuilder(id CapabilityID) (*ListBuilder, error) {
	var kind listKind
	switch id {
	case CapabilityCompanyID:
		kind = listCompanyIDs
	case CapabilityEventsSupported:
		kind = listEvents
	default:
		return nil, newError(PduGetCapabilities, StatusBadParameter, "invalid capability id 0x%02X", uint8(id))
	}
	b := newListBuilder(PduGetCapabilities, kind)
	b.buf = append(b.buf, byte(id))
	b.countOff = len(b.buf)
	b.buf = append(b.buf, 0)
	return b, nil
}

// NewPlayerAppAttrBuilder starts a ListPlayerAppAttr response.
func NewPlayerAppAttrBuilder() *ListBuilder {
	b := newListBuilder(PduListPlayerAppAttr, listPlayerAttrs)
	b.buf = append(b.buf, 0)
	return b
}

// NewPlayerAppValuesBuilder starts a ListPlayerAppValues response.
func NewPlayerAppValuesBuilder() *ListBuilder {
	b := newListBuilder(PduListPlayerAppValues, listPlayerValues)
	b.buf = append(b.buf, 0)
	return b
}

func newListBuilder(pdu PduID, kind listKind) *ListBuilder {
	b := &ListBuilder{pdu: pdu, kind: kind, countOff: HeaderSize}
	b.buf = Header{PDU: pdu}.AppendTo(make([]byte, 0, MaxPacketLength))
	return b
}

// Append adds items to the list. Nothing is appended when any item is
// invalid or the count would pass 255.
func (b *ListBuilder) Append(items ...uint32) error {
	if b.count+len(items) > 0xFF {
		return newError(b.pdu, StatusBadParameter, "list would hold %d items", b.count+len(items))
	}
	for _, it := range items {
		if err := b.validate(it); err != nil {
			return err
		}
	}
	for _, it := range items {
		switch b.kind {
		case listCompanyIDs:
			b.buf = append(b.buf, byte(it>>16), byte(it>>8), byte(it))
		default:
			b.buf = append(b.buf, byte(it))
		}
	}
	b.count += len(items)
	return nil
}

func (b *ListBuilder) validate(it uint32) error {
	switch b.kind {
	case listCompanyIDs:
		if it > 0xFFFFFF {
			return newError(b.pdu, StatusBadParameter, "company id 0x%X exceeds 24 bits", it)
		}
	case listEvents:
		if it > 0xFF || !EventID(it).IsValid() {
			return newError(b.pdu, StatusBadParameter, "invalid event 0x%02X", it)
		}
	case listPlayerAttrs:
		if it > 0xFF || !PlayerAttrID(it).IsValid() {
			return newError(b.pdu, StatusBadParameter, "invalid attribute 0x%02X", it)
		}
	case listPlayerValues:
		if it > 0xFF {
			return newError(b.pdu, StatusBadParameter, "value 0x%X exceeds one byte", it)
		}
	}
	return nil
}

// Len returns the number of items appended so far.
func (b *ListBuilder) Len() int {
	return b.count
}

// Bytes returns the encoded packet. The builder may keep appending
// afterwards.
func (b *ListBuilder) Bytes() []byte {
	b.buf[b.countOff] = byte(b.count)
	binary.BigEndian.PutUint16(b.buf[2:4], uint16(len(b.buf)-HeaderSize))
	out := make([]byte, len(b.buf))
	copy(out, b.buf)
	return out
}
