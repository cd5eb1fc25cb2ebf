package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseRebuildIsStable(t *testing.T) {
	rsps := []Response{
		GetCapabilitiesResponse{CapabilityID: CapabilityCompanyID, CompanyIDs: []uint32{CompanyIDBluetoothSIG}},
		GetCapabilitiesResponse{CapabilityID: CapabilityEventsSupported, Events: []EventID{EventPlaybackStatusChanged, EventVolumeChanged}},
		ListPlayerAppAttrResponse{Attrs: []PlayerAttrID{PlayerAttrRepeat, PlayerAttrShuffle}},
		ListPlayerAppValuesResponse{Values: []uint8{1, 2, 3}},
		GetCurrentPlayerAppValueResponse{Settings: []AttrValue{{Attr: PlayerAttrShuffle, Value: 1}}},
		GetPlayerAppAttrTextResponse{Entries: []AppText{{ID: 2, Charset: CharsetUTF8, Text: []byte("Repeat")}}},
		GetPlayerAppValueTextResponse{Entries: []AppText{{ID: 1, Charset: CharsetUTF8, Text: []byte("Off")}}},
		GetElementAttributesResponse{Attributes: []ElementAttribute{
			{ID: MediaAttrTitle, Charset: CharsetUTF8, Value: []byte("Blue in Green")},
			{ID: MediaAttrGenre, Charset: CharsetUTF8, Value: []byte{}},
		}},
		GetPlayStatusResponse{SongLength: 337000, SongPosition: 1200, Status: PlayStatusPlaying},
		RegisterNotificationResponse{Param: PlayStatusParam{Status: PlayStatusPaused}},
		RegisterNotificationResponse{Param: TrackChangedParam{UID: [8]byte{0, 0, 0, 0, 0, 0, 0, 9}}},
		RegisterNotificationResponse{Param: EmptyParam{ID: EventTrackReachedEnd}},
		RegisterNotificationResponse{Param: PlayPositionParam{Position: 5000}},
		RegisterNotificationResponse{Param: BatteryStatusParam{Status: BatteryFull}},
		RegisterNotificationResponse{Param: SystemStatusParam{Status: SystemPowerOn}},
		RegisterNotificationResponse{Param: AppSettingsParam{Settings: []AttrValue{{Attr: PlayerAttrRepeat, Value: 1}}}},
		RegisterNotificationResponse{Param: AddressedPlayerParam{PlayerID: 1, UIDCounter: 7}},
		RegisterNotificationResponse{Param: UIDsChangedParam{UIDCounter: 3}},
		RegisterNotificationResponse{Param: VolumeParam{Volume: 0x40}},
		AbortContinuationResponse{},
		SetAbsoluteVolumeResponse{Volume: 0x22},
	}

	for _, r := range rsps {
		t.Run(r.PDU().String(), func(t *testing.T) {
			first, err := BuildResponse(r)
			require.NoError(t, err)

			parsed, _, err := ParseResponse(first, CodeStable)
			require.NoError(t, err)

			second, err := BuildResponse(parsed)
			require.NoError(t, err)
			assert.Equal(t, first, second)
		})
	}
}

func TestParseResponseReject(t *testing.T) {
	rsp, hdr, err := ParseResponse(Reject(PduRegisterNotification, StatusBadParameter), CodeRejected)
	require.NoError(t, err)
	assert.Equal(t, PduRegisterNotification, hdr.PDU)
	assert.Equal(t, RejectResponse{Pdu: PduRegisterNotification, Status: StatusBadParameter}, rsp)

	rsp, _, err = ParseResponse(packet(PduSetAbsoluteVolume), CodeNotImplemented)
	require.NoError(t, err)
	assert.Equal(t, StatusInternalError, rsp.(RejectResponse).Status)
}

func TestParseVolumeNotification(t *testing.T) {
	rsp, _, err := ParseResponse(packet(PduRegisterNotification, byte(EventVolumeChanged), 0xB0), CodeChanged)
	require.NoError(t, err)

	rn := rsp.(RegisterNotificationResponse)
	assert.Equal(t, EventVolumeChanged, rn.Event())
	assert.Equal(t, VolumeParam{Volume: 0x30}, rn.Param)
}

func TestParseResponseMalformed(t *testing.T) {
	_, _, err := ParseResponse(packet(PduGetPlayStatus, 0, 0, 0, 1), CodeStable)
	assert.ErrorIs(t, err, ErrInternalError)

	_, _, err = ParseResponse(packet(PduGetCapabilities, 0x03, 0x01, 0x20), CodeStable)
	assert.ErrorIs(t, err, ErrBadParameter)
}

func TestBuildAppTextRejectsEmpty(t *testing.T) {
	_, err := BuildResponse(GetPlayerAppAttrTextResponse{Entries: []AppText{{ID: 1}}})
	assert.ErrorIs(t, err, ErrBadParameter)
}

func TestListBuilderAppendsAcrossCalls(t *testing.T) {
	b, err := NewCapabilitiesBuilder(CapabilityEventsSupported)
	require.NoError(t, err)

	require.NoError(t, b.Append(uint32(EventPlaybackStatusChanged), uint32(EventTrackChanged)))
	first := b.Bytes()
	assert.Equal(t, []byte{0x10, 0x00, 0x00, 0x04, 0x03, 0x02, 0x01, 0x02}, first)

	require.NoError(t, b.Append(uint32(EventVolumeChanged)))
	assert.ErrorIs(t, b.Append(0x20), ErrBadParameter)
	assert.Equal(t, 3, b.Len())

	rsp, _, err := ParseResponse(b.Bytes(), CodeStable)
	require.NoError(t, err)
	assert.Equal(t, []EventID{EventPlaybackStatusChanged, EventTrackChanged, EventVolumeChanged},
		rsp.(GetCapabilitiesResponse).Events)
}

func TestListBuilderCompanyIDs(t *testing.T) {
	b, err := NewCapabilitiesBuilder(CapabilityCompanyID)
	require.NoError(t, err)
	require.NoError(t, b.Append(CompanyIDBluetoothSIG))

	assert.Equal(t, []byte{0x10, 0x00, 0x00, 0x05, 0x02, 0x01, 0x00, 0x19, 0x58}, b.Bytes())

	_, err = NewCapabilitiesBuilder(0x09)
	assert.ErrorIs(t, err, ErrBadParameter)
}

func TestPlayerAppBuilders(t *testing.T) {
	attrs := NewPlayerAppAttrBuilder()
	require.NoError(t, attrs.Append(uint32(PlayerAttrRepeat)))
	require.NoError(t, attrs.Append(uint32(PlayerAttrShuffle)))
	assert.Equal(t, []byte{0x11, 0x00, 0x00, 0x03, 0x02, 0x02, 0x03}, attrs.Bytes())

	vals := NewPlayerAppValuesBuilder()
	assert.Equal(t, []byte{0x12, 0x00, 0x00, 0x01, 0x00}, vals.Bytes())
}

func TestPassThroughFrames(t *testing.T) {
	b, err := EncodePassThrough(PassThrough{Op: OpPlay, State: KeyReleased})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xC4, 0x00}, b)

	p, err := ParsePassThrough([]byte{0x7E, 0x02, 0xAA, 0xBB})
	require.NoError(t, err)
	assert.Equal(t, PassThrough{Op: OpVendor, State: KeyPressed, VendorData: []byte{0xAA, 0xBB}}, p)

	_, err = ParsePassThrough([]byte{0x44, 0x01})
	assert.Error(t, err)
}

func TestHeaderPacketType(t *testing.T) {
	b := packet(PduGetElementAttributes, 1, 2, 3)
	SetPacketType(b, PacketContinue)

	hdr, err := DecodeHeader(b)
	require.NoError(t, err)
	assert.Equal(t, Header{PDU: PduGetElementAttributes, PacketType: PacketContinue, ParamLen: 3}, hdr)
}

func TestParseElementAttributesPrefix(t *testing.T) {
	pkt, err := BuildResponse(GetElementAttributesResponse{Attributes: []ElementAttribute{
		{ID: MediaAttrTitle, Charset: CharsetUTF8, Value: []byte("Intro")},
		{ID: MediaAttrArtist, Charset: CharsetUTF8, Value: []byte("Somebody")},
	}})
	require.NoError(t, err)

	cut := pkt[:len(pkt)-3]
	_, _, err = ParseResponse(cut, CodeStable)
	assert.Error(t, err)

	attrs := ParseElementAttributesPrefix(cut)
	require.Len(t, attrs, 1)
	assert.Equal(t, MediaAttrTitle, attrs[0].ID)
	assert.Equal(t, []byte("Intro"), attrs[0].Value)

	assert.Len(t, ParseElementAttributesPrefix(pkt), 2)
	assert.Nil(t, ParseElementAttributesPrefix(pkt[:2]))
}
