package wire

import "fmt"

// Header and packet size limits.
const (
	// HeaderSize is the size of the vendor-dependent PDU header.
	HeaderSize = 4

	// MaxPacketLength is the largest single control packet (header included).
	MaxPacketLength = 512

	// MaxParamLength is the parameter space of one control packet.
	MaxParamLength = MaxPacketLength - HeaderSize
)

// CompanyIDBluetoothSIG is the company ID used for all metadata PDUs.
const CompanyIDBluetoothSIG uint32 = 0x001958

// PduID identifies a vendor-dependent PDU.
type PduID uint8

const (
	PduGetCapabilities       PduID = 0x10
	PduListPlayerAppAttr     PduID = 0x11
	PduListPlayerAppValues   PduID = 0x12
	PduGetCurPlayerAppValue  PduID = 0x13
	PduSetPlayerAppValue     PduID = 0x14
	PduGetPlayerAppAttrText  PduID = 0x15
	PduGetPlayerAppValueText PduID = 0x16
	PduInformDisplayCharset  PduID = 0x17
	PduInformBatteryStatus   PduID = 0x18
	PduGetElementAttributes  PduID = 0x20
	PduGetPlayStatus         PduID = 0x30
	PduRegisterNotification  PduID = 0x31
	PduRequestContinuation   PduID = 0x40
	PduAbortContinuation     PduID = 0x41
	PduSetAbsoluteVolume     PduID = 0x50
	PduSetAddressedPlayer    PduID = 0x60
	PduSetBrowsedPlayer      PduID = 0x70
	PduGetFolderItems        PduID = 0x71
	PduChangePath            PduID = 0x72
	PduGetItemAttributes     PduID = 0x73
	PduPlayItem              PduID = 0x74
	PduSearch                PduID = 0x80
	PduAddToNowPlaying       PduID = 0x90
	PduGeneralReject         PduID = 0xA0
)

// String returns the PDU name.
func (p PduID) String() string {
	switch p {
	case PduGetCapabilities:
		return "GET_CAPABILITIES"
	case PduListPlayerAppAttr:
		return "LIST_PLAYER_APP_ATTR"
	case PduListPlayerAppValues:
		return "LIST_PLAYER_APP_VALUES"
	case PduGetCurPlayerAppValue:
		return "GET_CUR_PLAYER_APP_VALUE"
	case PduSetPlayerAppValue:
		return "SET_PLAYER_APP_VALUE"
	case PduGetPlayerAppAttrText:
		return "GET_PLAYER_APP_ATTR_TEXT"
	case PduGetPlayerAppValueText:
		return "GET_PLAYER_APP_VALUE_TEXT"
	case PduInformDisplayCharset:
		return "INFORM_DISPLAY_CHARSET"
	case PduInformBatteryStatus:
		return "INFORM_BATTERY_STATUS_OF_CT"
	case PduGetElementAttributes:
		return "GET_ELEMENT_ATTRIBUTES"
	case PduGetPlayStatus:
		return "GET_PLAY_STATUS"
	case PduRegisterNotification:
		return "REGISTER_NOTIFICATION"
	case PduRequestContinuation:
		return "REQUEST_CONTINUATION"
	case PduAbortContinuation:
		return "ABORT_CONTINUATION"
	case PduSetAbsoluteVolume:
		return "SET_ABSOLUTE_VOLUME"
	case PduSetAddressedPlayer:
		return "SET_ADDRESSED_PLAYER"
	case PduSetBrowsedPlayer:
		return "SET_BROWSED_PLAYER"
	case PduGetFolderItems:
		return "GET_FOLDER_ITEMS"
	case PduChangePath:
		return "CHANGE_PATH"
	case PduGetItemAttributes:
		return "GET_ITEM_ATTRIBUTES"
	case PduPlayItem:
		return "PLAY_ITEM"
	case PduSearch:
		return "SEARCH"
	case PduAddToNowPlaying:
		return "ADD_TO_NOW_PLAYING"
	case PduGeneralReject:
		return "GENERAL_REJECT"
	default:
		return fmt.Sprintf("PDU(0x%02X)", uint8(p))
	}
}

// PacketType is the fragmentation marker carried in the low two bits of
// the second header byte.
type PacketType uint8

const (
	PacketSingle   PacketType = 0
	PacketStart    PacketType = 1
	PacketContinue PacketType = 2
	PacketEnd      PacketType = 3
)

// String returns the packet type name.
func (p PacketType) String() string {
	switch p {
	case PacketSingle:
		return "SINGLE"
	case PacketStart:
		return "START"
	case PacketContinue:
		return "CONTINUE"
	case PacketEnd:
		return "END"
	default:
		return "UNKNOWN"
	}
}

// Code is the AV/C command type or response code (ctype).
type Code uint8

const (
	CodeControl         Code = 0
	CodeStatus          Code = 1
	CodeSpecificInquiry Code = 2
	CodeNotify          Code = 3
	CodeGeneralInquiry  Code = 4

	CodeNotImplemented Code = 8
	CodeAccepted       Code = 9
	CodeRejected       Code = 10
	CodeInTransition   Code = 11
	CodeStable         Code = 12
	CodeChanged        Code = 13
	CodeInterim        Code = 15
)

// IsResponse reports whether c is a response code.
func (c Code) IsResponse() bool {
	return c >= CodeNotImplemented
}

// IsFailure reports whether c is a REJECTED or NOT_IMPLEMENTED response.
func (c Code) IsFailure() bool {
	return c == CodeRejected || c == CodeNotImplemented
}

// String returns the code name.
func (c Code) String() string {
	switch c {
	case CodeControl:
		return "CONTROL"
	case CodeStatus:
		return "STATUS"
	case CodeSpecificInquiry:
		return "SPECIFIC_INQUIRY"
	case CodeNotify:
		return "NOTIFY"
	case CodeGeneralInquiry:
		return "GENERAL_INQUIRY"
	case CodeNotImplemented:
		return "NOT_IMPLEMENTED"
	case CodeAccepted:
		return "ACCEPTED"
	case CodeRejected:
		return "REJECTED"
	case CodeInTransition:
		return "IN_TRANSITION"
	case CodeStable:
		return "STABLE"
	case CodeChanged:
		return "CHANGED"
	case CodeInterim:
		return "INTERIM"
	default:
		return "UNKNOWN"
	}
}

// Opcode is the AV/C opcode of a message envelope.
type Opcode uint8

const (
	OpcodeVendor      Opcode = 0x00
	OpcodeUnitInfo    Opcode = 0x30
	OpcodeSubunitInfo Opcode = 0x31
	OpcodePassThrough Opcode = 0x7C
)

// String returns the opcode name.
func (o Opcode) String() string {
	switch o {
	case OpcodeVendor:
		return "VENDOR"
	case OpcodeUnitInfo:
		return "UNIT_INFO"
	case OpcodeSubunitInfo:
		return "SUBUNIT_INFO"
	case OpcodePassThrough:
		return "PASS_THROUGH"
	default:
		return "UNKNOWN"
	}
}

// CapabilityID selects the capability list returned by GetCapabilities.
type CapabilityID uint8

const (
	CapabilityCompanyID       CapabilityID = 0x02
	CapabilityEventsSupported CapabilityID = 0x03
)

// IsValid returns true for the two defined capability IDs.
func (c CapabilityID) IsValid() bool {
	return c == CapabilityCompanyID || c == CapabilityEventsSupported
}

// EventID identifies a notification event.
type EventID uint8

const (
	EventPlaybackStatusChanged    EventID = 0x01
	EventTrackChanged             EventID = 0x02
	EventTrackReachedEnd          EventID = 0x03
	EventTrackReachedStart        EventID = 0x04
	EventPlayPosChanged           EventID = 0x05
	EventBattStatusChanged        EventID = 0x06
	EventSystemStatusChanged      EventID = 0x07
	EventAppSettingChanged        EventID = 0x08
	EventNowPlayingContentChanged EventID = 0x09
	EventAvailablePlayersChanged  EventID = 0x0A
	EventAddressedPlayerChanged   EventID = 0x0B
	EventUIDsChanged              EventID = 0x0C
	EventVolumeChanged            EventID = 0x0D
)

// NumEvents is the number of defined notification events.
const NumEvents = 13

// IsValid returns true if e is one of the 13 defined events.
func (e EventID) IsValid() bool {
	return e >= EventPlaybackStatusChanged && e <= EventVolumeChanged
}

// Index returns the zero-based table index of e.
func (e EventID) Index() int {
	return int(e) - 1
}

// Mask returns the bit used for e in event bitmasks.
func (e EventID) Mask() uint16 {
	return 1 << e
}

// String returns the event name.
func (e EventID) String() string {
	switch e {
	case EventPlaybackStatusChanged:
		return "PLAYBACK_STATUS_CHANGED"
	case EventTrackChanged:
		return "TRACK_CHANGED"
	case EventTrackReachedEnd:
		return "TRACK_REACHED_END"
	case EventTrackReachedStart:
		return "TRACK_REACHED_START"
	case EventPlayPosChanged:
		return "PLAY_POS_CHANGED"
	case EventBattStatusChanged:
		return "BATT_STATUS_CHANGED"
	case EventSystemStatusChanged:
		return "SYSTEM_STATUS_CHANGED"
	case EventAppSettingChanged:
		return "APP_SETTING_CHANGED"
	case EventNowPlayingContentChanged:
		return "NOW_PLAYING_CONTENT_CHANGED"
	case EventAvailablePlayersChanged:
		return "AVAILABLE_PLAYERS_CHANGED"
	case EventAddressedPlayerChanged:
		return "ADDRESSED_PLAYER_CHANGED"
	case EventUIDsChanged:
		return "UIDS_CHANGED"
	case EventVolumeChanged:
		return "VOLUME_CHANGED"
	default:
		return fmt.Sprintf("EVENT(0x%02X)", uint8(e))
	}
}

// MediaAttrID identifies a media element attribute.
type MediaAttrID uint32

const (
	MediaAttrTitle       MediaAttrID = 1
	MediaAttrArtist      MediaAttrID = 2
	MediaAttrAlbum       MediaAttrID = 3
	MediaAttrTrackNum    MediaAttrID = 4
	MediaAttrNumTracks   MediaAttrID = 5
	MediaAttrGenre       MediaAttrID = 6
	MediaAttrPlayingTime MediaAttrID = 7
)

// MaxMediaAttributes is the number of defined media attributes.
const MaxMediaAttributes = 7

// IsValid returns true for attribute IDs 1..7.
func (a MediaAttrID) IsValid() bool {
	return a >= MediaAttrTitle && a <= MediaAttrPlayingTime
}

// Mask returns the bit used for a in attribute bitmasks (bit 0 is Title).
func (a MediaAttrID) Mask() uint8 {
	return 1 << (a - 1)
}

// String returns the attribute name.
func (a MediaAttrID) String() string {
	switch a {
	case MediaAttrTitle:
		return "TITLE"
	case MediaAttrArtist:
		return "ARTIST"
	case MediaAttrAlbum:
		return "ALBUM"
	case MediaAttrTrackNum:
		return "TRACK_NUM"
	case MediaAttrNumTracks:
		return "NUM_TRACKS"
	case MediaAttrGenre:
		return "GENRE"
	case MediaAttrPlayingTime:
		return "PLAYING_TIME"
	default:
		return "UNKNOWN"
	}
}

// PlayStatus is the playback state reported by the target.
type PlayStatus uint8

const (
	PlayStatusStopped PlayStatus = 0x00
	PlayStatusPlaying PlayStatus = 0x01
	PlayStatusPaused  PlayStatus = 0x02
	PlayStatusFwdSeek PlayStatus = 0x03
	PlayStatusRevSeek PlayStatus = 0x04
	PlayStatusError   PlayStatus = 0xFF
)

// IsValid returns true for defined play states.
func (p PlayStatus) IsValid() bool {
	return p <= PlayStatusRevSeek || p == PlayStatusError
}

// String returns the play status name.
func (p PlayStatus) String() string {
	switch p {
	case PlayStatusStopped:
		return "STOPPED"
	case PlayStatusPlaying:
		return "PLAYING"
	case PlayStatusPaused:
		return "PAUSED"
	case PlayStatusFwdSeek:
		return "FWD_SEEK"
	case PlayStatusRevSeek:
		return "REV_SEEK"
	case PlayStatusError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// BatteryStatus is the battery level reported by the controller.
type BatteryStatus uint8

const (
	BatteryNormal   BatteryStatus = 0
	BatteryWarning  BatteryStatus = 1
	BatteryCritical BatteryStatus = 2
	BatteryExternal BatteryStatus = 3
	BatteryFull     BatteryStatus = 4
)

// IsValid returns true for defined battery states.
func (b BatteryStatus) IsValid() bool {
	return b <= BatteryFull
}

// SystemStatus is the power state reported by the target.
type SystemStatus uint8

const (
	SystemPowerOn   SystemStatus = 0
	SystemPowerOff  SystemStatus = 1
	SystemUnplugged SystemStatus = 2
)

// IsValid returns true for defined system states.
func (s SystemStatus) IsValid() bool {
	return s <= SystemUnplugged
}

// CharsetID is an IANA character set identifier.
type CharsetID uint16

const (
	CharsetASCII CharsetID = 0x0003
	CharsetUTF8  CharsetID = 0x006A
	CharsetUTF16 CharsetID = 0x03F7
	CharsetUTF32 CharsetID = 0x03F9
)

// PlayerAttrID identifies a player application setting.
type PlayerAttrID uint8

const (
	PlayerAttrEqualizer PlayerAttrID = 0x01
	PlayerAttrRepeat    PlayerAttrID = 0x02
	PlayerAttrShuffle   PlayerAttrID = 0x03
	PlayerAttrScan      PlayerAttrID = 0x04

	// PlayerAttrMenuExtension is the first vendor-defined attribute.
	PlayerAttrMenuExtension PlayerAttrID = 0x80
)

// IsValid returns true for the defined attributes and menu extensions.
func (p PlayerAttrID) IsValid() bool {
	return (p >= PlayerAttrEqualizer && p <= PlayerAttrScan) || p >= PlayerAttrMenuExtension
}

// MaxVolume is the largest absolute volume value.
const MaxVolume = 0x7F
