package fragment

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avrcp-protocol/avrcp-go/pkg/wire"
)

func payload(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i * 7)
	}
	return b
}

// roundTrip splits packet, feeds every fragment to an assembler as the
// peer would receive it, and returns the reassembled packet.
func roundTrip(t *testing.T, packet []byte) []byte {
	t.Helper()

	var s Splitter
	a := NewAssembler(1<<16, nil)

	first, fragmented, err := s.Split(packet)
	require.NoError(t, err)

	res, err := a.Add(first)
	require.NoError(t, err)
	if !fragmented {
		require.True(t, res.Done)
		return res.Packet
	}

	pdu, ok := s.Pending()
	require.True(t, ok)
	for !res.Done {
		require.True(t, res.NeedContinue)
		next, err := s.Continue(pdu)
		require.NoError(t, err)
		require.LessOrEqual(t, len(next), wire.MaxPacketLength)

		res, err = a.Add(next)
		require.NoError(t, err)
	}
	_, ok = s.Pending()
	assert.False(t, ok)
	return res.Packet
}

func TestRoundTripLengths(t *testing.T) {
	for _, n := range []int{1, 100, wire.MaxParamLength, wire.MaxParamLength + 1, 1000, 3 * wire.MaxPacketLength, 5*wire.MaxPacketLength + 17} {
		packet := wire.EncodePacket(wire.PduGetElementAttributes, wire.PacketSingle, payload(n))
		got := roundTrip(t, packet)
		assert.True(t, bytes.Equal(packet, got), "length %d", n)
	}
}

func TestSplitPacketTypes(t *testing.T) {
	var s Splitter
	packet := wire.EncodePacket(wire.PduGetElementAttributes, wire.PacketSingle, payload(1200))

	first, fragmented, err := s.Split(packet)
	require.NoError(t, err)
	require.True(t, fragmented)

	hdr, _ := wire.DecodeHeader(first)
	assert.Equal(t, wire.PacketStart, hdr.PacketType)
	assert.Equal(t, uint16(wire.MaxParamLength), hdr.ParamLen)

	mid, err := s.Continue(wire.PduGetElementAttributes)
	require.NoError(t, err)
	hdr, _ = wire.DecodeHeader(mid)
	assert.Equal(t, wire.PacketContinue, hdr.PacketType)

	last, err := s.Continue(wire.PduGetElementAttributes)
	require.NoError(t, err)
	hdr, _ = wire.DecodeHeader(last)
	assert.Equal(t, wire.PacketEnd, hdr.PacketType)
	assert.Equal(t, uint16(1200-2*wire.MaxParamLength), hdr.ParamLen)

	_, err = s.Continue(wire.PduGetElementAttributes)
	assert.ErrorIs(t, err, ErrNoPending)
}

func TestSplitterMismatchAndAbort(t *testing.T) {
	var s Splitter
	_, _, err := s.Split(wire.EncodePacket(wire.PduGetElementAttributes, wire.PacketSingle, payload(600)))
	require.NoError(t, err)

	_, err = s.Continue(wire.PduGetPlayStatus)
	assert.ErrorIs(t, err, ErrPDUMismatch)
	assert.ErrorIs(t, s.Abort(wire.PduGetPlayStatus), ErrPDUMismatch)

	_, ok := s.Pending()
	assert.True(t, ok, "mismatch must not clear state")

	require.NoError(t, s.Abort(wire.PduGetElementAttributes))
	_, ok = s.Pending()
	assert.False(t, ok)
	assert.ErrorIs(t, s.Abort(wire.PduGetElementAttributes), ErrNoPending)
}

func TestSplitAbandonsPrevious(t *testing.T) {
	var s Splitter
	_, _, err := s.Split(wire.EncodePacket(wire.PduGetElementAttributes, wire.PacketSingle, payload(600)))
	require.NoError(t, err)

	small := wire.EncodePacket(wire.PduGetPlayStatus, wire.PacketSingle, payload(9))
	out, fragmented, err := s.Split(small)
	require.NoError(t, err)
	assert.False(t, fragmented)
	assert.Equal(t, small, out)

	_, ok := s.Pending()
	assert.False(t, ok)
}

func TestAssembleStartEndMatchesSingle(t *testing.T) {
	rsp := wire.GetElementAttributesResponse{Attributes: []wire.ElementAttribute{
		{ID: wire.MediaAttrTitle, Charset: wire.CharsetUTF8, Value: bytes.Repeat([]byte("t"), 200)},
		{ID: wire.MediaAttrArtist, Charset: wire.CharsetUTF8, Value: bytes.Repeat([]byte("a"), 133)},
	}}
	single, err := wire.BuildResponse(rsp)
	require.NoError(t, err)
	params := wire.Params(single)
	require.Len(t, params, 350)

	a := NewAssembler(0, nil)
	res, err := a.Add(wire.EncodePacket(wire.PduGetElementAttributes, wire.PacketStart, params[:300]))
	require.NoError(t, err)
	assert.False(t, res.Done)
	assert.True(t, res.NeedContinue)
	assert.True(t, a.Active())

	res, err = a.Add(wire.EncodePacket(wire.PduGetElementAttributes, wire.PacketEnd, params[300:]))
	require.NoError(t, err)
	require.True(t, res.Done)
	assert.False(t, res.Truncated)
	assert.Equal(t, single, res.Packet)

	fromFragments, _, err := wire.ParseResponse(res.Packet, wire.CodeStable)
	require.NoError(t, err)
	fromSingle, _, err := wire.ParseResponse(single, wire.CodeStable)
	require.NoError(t, err)
	assert.Equal(t, fromSingle, fromFragments)
}

func TestAssemblerIgnoresOrphans(t *testing.T) {
	a := NewAssembler(0, nil)

	_, err := a.Add(wire.EncodePacket(wire.PduGetElementAttributes, wire.PacketContinue, payload(10)))
	assert.ErrorIs(t, err, ErrUnexpectedFragment)

	_, err = a.Add(wire.EncodePacket(wire.PduGetElementAttributes, wire.PacketEnd, payload(10)))
	assert.ErrorIs(t, err, ErrUnexpectedFragment)
	assert.False(t, a.Active())
}

func TestAssemblerStartRestarts(t *testing.T) {
	a := NewAssembler(0, nil)
	_, err := a.Add(wire.EncodePacket(wire.PduGetElementAttributes, wire.PacketStart, []byte{1, 1, 1}))
	require.NoError(t, err)
	_, err = a.Add(wire.EncodePacket(wire.PduGetElementAttributes, wire.PacketStart, []byte{2, 2}))
	require.NoError(t, err)

	res, err := a.Add(wire.EncodePacket(wire.PduGetElementAttributes, wire.PacketEnd, []byte{3}))
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 2, 3}, wire.Params(res.Packet))
}

func TestAssemblerTruncatesOverflow(t *testing.T) {
	a := NewAssembler(600, nil)
	_, err := a.Add(wire.EncodePacket(wire.PduGetElementAttributes, wire.PacketStart, payload(wire.MaxParamLength)))
	require.NoError(t, err)

	res, err := a.Add(wire.EncodePacket(wire.PduGetElementAttributes, wire.PacketContinue, payload(wire.MaxParamLength)))
	require.NoError(t, err)
	require.True(t, res.Done)
	assert.True(t, res.Truncated)
	assert.True(t, res.AbortPeer)
	assert.Len(t, wire.Params(res.Packet), 600)
	assert.False(t, a.Active())

	_, err = a.Add(wire.EncodePacket(wire.PduGetElementAttributes, wire.PacketEnd, payload(4)))
	assert.ErrorIs(t, err, ErrUnexpectedFragment)
}

func TestAssemblerPDUMismatchResets(t *testing.T) {
	a := NewAssembler(0, nil)
	_, err := a.Add(wire.EncodePacket(wire.PduGetElementAttributes, wire.PacketStart, payload(5)))
	require.NoError(t, err)

	_, err = a.Add(wire.EncodePacket(wire.PduGetPlayerAppAttrText, wire.PacketEnd, payload(5)))
	assert.ErrorIs(t, err, ErrPDUMismatch)
	assert.False(t, a.Active())
}
