package wire

// NotificationParam is the event-specific payload of a RegisterNotification
// response.
type NotificationParam interface {
	Event() EventID
	encode(w *paramWriter) error
}

// PlayStatusParam reports EventPlaybackStatusChanged.
type PlayStatusParam struct {
	Status PlayStatus
}

// TrackChangedParam reports EventTrackChanged. An all-ones UID means no
// track is selected.
type TrackChangedParam struct {
	UID [8]byte
}

// EmptyParam reports an event without parameters (track reached end or
// start, now playing content changed, available players changed).
type EmptyParam struct {
	ID EventID
}

// PlayPositionParam reports EventPlayPosChanged in milliseconds.
type PlayPositionParam struct {
	Position uint32
}

// BatteryStatusParam reports EventBattStatusChanged.
type BatteryStatusParam struct {
	Status BatteryStatus
}

// SystemStatusParam reports EventSystemStatusChanged.
type SystemStatusParam struct {
	Status SystemStatus
}

// AppSettingsParam reports EventAppSettingChanged.
type AppSettingsParam struct {
	Settings []AttrValue
}

// AddressedPlayerParam reports EventAddressedPlayerChanged.
type AddressedPlayerParam struct {
	PlayerID   uint16
	UIDCounter uint16
}

// UIDsChangedParam reports EventUIDsChanged.
type UIDsChangedParam struct {
	UIDCounter uint16
}

// VolumeParam reports EventVolumeChanged.
type VolumeParam struct {
	Volume uint8
}

func (PlayStatusParam) Event() EventID      { return EventPlaybackStatusChanged }
func (TrackChangedParam) Event() EventID    { return EventTrackChanged }
func (p EmptyParam) Event() EventID         { return p.ID }
func (PlayPositionParam) Event() EventID    { return EventPlayPosChanged }
func (BatteryStatusParam) Event() EventID   { return EventBattStatusChanged }
func (SystemStatusParam) Event() EventID    { return EventSystemStatusChanged }
func (AppSettingsParam) Event() EventID     { return EventAppSettingChanged }
func (AddressedPlayerParam) Event() EventID { return EventAddressedPlayerChanged }
func (UIDsChangedParam) Event() EventID     { return EventUIDsChanged }
func (VolumeParam) Event() EventID          { return EventVolumeChanged }

func (p PlayStatusParam) encode(w *paramWriter) error {
	if !p.Status.IsValid() {
		return newError(PduRegisterNotification, StatusBadParameter, "invalid play status 0x%02X", uint8(p.Status))
	}
	w.u8(uint8(p.Status))
	return nil
}

func (p TrackChangedParam) encode(w *paramWriter) error {
	w.raw(p.UID[:])
	return nil
}

func (p EmptyParam) encode(*paramWriter) error {
	if !isEmptyParamEvent(p.ID) {
		return newError(PduRegisterNotification, StatusBadParameter, "%s carries parameters", p.ID)
	}
	return nil
}

func (p PlayPositionParam) encode(w *paramWriter) error {
	w.u32(p.Position)
	return nil
}

func (p BatteryStatusParam) encode(w *paramWriter) error {
	if !p.Status.IsValid() {
		return newError(PduRegisterNotification, StatusBadParameter, "invalid battery status %d", p.Status)
	}
	w.u8(uint8(p.Status))
	return nil
}

func (p SystemStatusParam) encode(w *paramWriter) error {
	if !p.Status.IsValid() {
		return newError(PduRegisterNotification, StatusBadParameter, "invalid system status %d", p.Status)
	}
	w.u8(uint8(p.Status))
	return nil
}

func (p AppSettingsParam) encode(w *paramWriter) error {
	return encodeSettings(w, PduRegisterNotification, p.Settings)
}

func (p AddressedPlayerParam) encode(w *paramWriter) error {
	w.u16(p.PlayerID)
	w.u16(p.UIDCounter)
	return nil
}

func (p UIDsChangedParam) encode(w *paramWriter) error {
	w.u16(p.UIDCounter)
	return nil
}

func (p VolumeParam) encode(w *paramWriter) error {
	w.u8(p.Volume & MaxVolume)
	return nil
}

func isEmptyParamEvent(e EventID) bool {
	switch e {
	case EventTrackReachedEnd, EventTrackReachedStart,
		EventNowPlayingContentChanged, EventAvailablePlayersChanged:
		return true
	}
	return false
}

func decodeNotificationParam(r *paramReader, e EventID) NotificationParam {
	switch e {
	case EventPlaybackStatusChanged:
		st := PlayStatus(r.u8())
		if r.err == nil && !st.IsValid() {
			r.fail(StatusBadParameter, "invalid play status 0x%02X", uint8(st))
		}
		return PlayStatusParam{Status: st}
	case EventTrackChanged:
		var p TrackChangedParam
		copy(p.UID[:], r.bytes(8))
		return p
	case EventTrackReachedEnd, EventTrackReachedStart,
		EventNowPlayingContentChanged, EventAvailablePlayersChanged:
		return EmptyParam{ID: e}
	case EventPlayPosChanged:
		return PlayPositionParam{Position: r.u32()}
	case EventBattStatusChanged:
		st := BatteryStatus(r.u8())
		if r.err == nil && !st.IsValid() {
			r.fail(StatusBadParameter, "invalid battery status %d", st)
		}
		return BatteryStatusParam{Status: st}
	case EventSystemStatusChanged:
		st := SystemStatus(r.u8())
		if r.err == nil && !st.IsValid() {
			r.fail(StatusBadParameter, "invalid system status %d", st)
		}
		return SystemStatusParam{Status: st}
	case EventAppSettingChanged:
		n := int(r.u8())
		settings := make([]AttrValue, 0, n)
		for i := 0; i < n && r.err == nil; i++ {
			settings = append(settings, AttrValue{Attr: PlayerAttrID(r.u8()), Value: r.u8()})
		}
		return AppSettingsParam{Settings: settings}
	case EventAddressedPlayerChanged:
		return AddressedPlayerParam{PlayerID: r.u16(), UIDCounter: r.u16()}
	case EventUIDsChanged:
		return UIDsChangedParam{UIDCounter: r.u16()}
	case EventVolumeChanged:
		return VolumeParam{Volume: r.u8() & MaxVolume}
	default:
		r.fail(StatusBadParameter, "invalid event 0x%02X", uint8(e))
		return nil
	}
}
