package wire

import "fmt"

// Command is a decoded vendor-dependent command PDU.
// The set of implementations is closed to this package.
type Command interface {
	PDU() PduID
	encode(w *paramWriter) error
}

// AttrValue is a player application attribute/value pair.
type AttrValue struct {
	Attr  PlayerAttrID
	Value uint8
}

// GetCapabilities asks for the company IDs or events the target supports.
type GetCapabilities struct {
	CapabilityID CapabilityID
}

// ListPlayerAppAttr asks for the supported player application attributes.
type ListPlayerAppAttr struct{}

// ListPlayerAppValues asks for the values of one player attribute.
type ListPlayerAppValues struct {
	Attr PlayerAttrID
}

// GetCurrentPlayerAppValue asks for the current value of each attribute.
type GetCurrentPlayerAppValue struct {
	Attrs []PlayerAttrID
}

// SetPlayerAppValue sets player application attributes.
type SetPlayerAppValue struct {
	Settings []AttrValue
}

// GetPlayerAppAttrText asks for displayable attribute names.
type GetPlayerAppAttrText struct {
	Attrs []PlayerAttrID
}

// GetPlayerAppValueText asks for displayable value names of one attribute.
type GetPlayerAppValueText struct {
	Attr   PlayerAttrID
	Values []uint8
}

// InformDisplayCharset lists the character sets the controller displays.
type InformDisplayCharset struct {
	Charsets []CharsetID
}

// InformBatteryStatus reports the controller's battery status.
type InformBatteryStatus struct {
	Status BatteryStatus
}

// GetElementAttributes asks for media attributes of the playing track.
type GetElementAttributes struct {
	// Identifier is the element UID; all zero means the playing track.
	Identifier [8]byte

	// Attrs lists the requested attributes, deduplicated and limited to
	// the seven standard IDs.
	Attrs []MediaAttrID

	// AllAttributes is set when the request carried a zero count.
	AllAttributes bool
}

// GetPlayStatus asks for song length, position and play state.
type GetPlayStatus struct{}

// RegisterNotification registers interest in one event.
type RegisterNotification struct {
	Event EventID

	// PlaybackInterval is the position reporting interval in seconds,
	// only meaningful for EventPlayPosChanged.
	PlaybackInterval uint32
}

// RequestContinuation asks for the next fragment of TargetPDU.
type RequestContinuation struct {
	TargetPDU PduID
}

// AbortContinuation abandons a fragmented response of TargetPDU.
type AbortContinuation struct {
	TargetPDU PduID
}

// SetAbsoluteVolume sets the rendering volume (0..MaxVolume).
type SetAbsoluteVolume struct {
	Volume uint8
}

func (GetCapabilities) PDU() PduID          { return PduGetCapabilities }
func (ListPlayerAppAttr) PDU() PduID        { return PduListPlayerAppAttr }
func (ListPlayerAppValues) PDU() PduID      { return PduListPlayerAppValues }
func (GetCurrentPlayerAppValue) PDU() PduID { return PduGetCurPlayerAppValue }
func (SetPlayerAppValue) PDU() PduID        { return PduSetPlayerAppValue }
func (GetPlayerAppAttrText) PDU() PduID     { return PduGetPlayerAppAttrText }
func (GetPlayerAppValueText) PDU() PduID    { return PduGetPlayerAppValueText }
func (InformDisplayCharset) PDU() PduID     { return PduInformDisplayCharset }
func (InformBatteryStatus) PDU() PduID      { return PduInformBatteryStatus }
func (GetElementAttributes) PDU() PduID     { return PduGetElementAttributes }
func (GetPlayStatus) PDU() PduID            { return PduGetPlayStatus }
func (RegisterNotification) PDU() PduID     { return PduRegisterNotification }
func (RequestContinuation) PDU() PduID      { return PduRequestContinuation }
func (AbortContinuation) PDU() PduID        { return PduAbortContinuation }
func (SetAbsoluteVolume) PDU() PduID        { return PduSetAbsoluteVolume }

func (c GetCapabilities) encode(w *paramWriter) error {
	if !c.CapabilityID.IsValid() {
		return newError(c.PDU(), StatusBadParameter, "invalid capability id 0x%02X", uint8(c.CapabilityID))
	}
	w.u8(uint8(c.CapabilityID))
	return nil
}

func (ListPlayerAppAttr) encode(*paramWriter) error { return nil }

func (c ListPlayerAppValues) encode(w *paramWriter) error {
	if !c.Attr.IsValid() {
		return newError(c.PDU(), StatusBadParameter, "invalid attribute 0x%02X", uint8(c.Attr))
	}
	w.u8(uint8(c.Attr))
	return nil
}

func (c GetCurrentPlayerAppValue) encode(w *paramWriter) error {
	return encodeAttrList(w, c.PDU(), c.Attrs)
}

func (c SetPlayerAppValue) encode(w *paramWriter) error {
	return encodeSettings(w, c.PDU(), c.Settings)
}

func (c GetPlayerAppAttrText) encode(w *paramWriter) error {
	return encodeAttrList(w, c.PDU(), c.Attrs)
}

func (c GetPlayerAppValueText) encode(w *paramWriter) error {
	if !c.Attr.IsValid() {
		return newError(c.PDU(), StatusBadParameter, "invalid attribute 0x%02X", uint8(c.Attr))
	}
	if len(c.Values) == 0 || len(c.Values) > 0xFF {
		return newError(c.PDU(), StatusBadParameter, "value count %d", len(c.Values))
	}
	w.u8(uint8(c.Attr))
	w.u8(uint8(len(c.Values)))
	w.raw(c.Values)
	return nil
}

func (c InformDisplayCharset) encode(w *paramWriter) error {
	if len(c.Charsets) == 0 || len(c.Charsets) > 0xFF {
		return newError(c.PDU(), StatusBadParameter, "charset count %d", len(c.Charsets))
	}
	w.u8(uint8(len(c.Charsets)))
	for _, cs := range c.Charsets {
		w.u16(uint16(cs))
	}
	return nil
}

func (c InformBatteryStatus) encode(w *paramWriter) error {
	if !c.Status.IsValid() {
		return newError(c.PDU(), StatusBadParameter, "invalid battery status %d", c.Status)
	}
	w.u8(uint8(c.Status))
	return nil
}

func (c GetElementAttributes) encode(w *paramWriter) error {
	w.raw(c.Identifier[:])
	if c.AllAttributes || len(c.Attrs) == 0 {
		w.u8(0)
		return nil
	}
	attrs := make([]MediaAttrID, 0, MaxMediaAttributes)
	var seen uint8
	for _, a := range c.Attrs {
		if !a.IsValid() {
			return newError(c.PDU(), StatusBadParameter, "invalid media attribute %d", a)
		}
		if seen&a.Mask() != 0 {
			continue
		}
		seen |= a.Mask()
		attrs = append(attrs, a)
	}
	w.u8(uint8(len(attrs)))
	for _, a := range attrs {
		w.u32(uint32(a))
	}
	return nil
}

func (GetPlayStatus) encode(*paramWriter) error { return nil }

func (c RegisterNotification) encode(w *paramWriter) error {
	if !c.Event.IsValid() {
		return newError(c.PDU(), StatusBadParameter, "invalid event 0x%02X", uint8(c.Event))
	}
	w.u8(uint8(c.Event))
	w.u32(c.PlaybackInterval)
	return nil
}

func (c RequestContinuation) encode(w *paramWriter) error {
	w.u8(uint8(c.TargetPDU))
	return nil
}

func (c AbortContinuation) encode(w *paramWriter) error {
	w.u8(uint8(c.TargetPDU))
	return nil
}

func (c SetAbsoluteVolume) encode(w *paramWriter) error {
	w.u8(c.Volume & MaxVolume)
	return nil
}

func encodeAttrList(w *paramWriter, pdu PduID, attrs []PlayerAttrID) error {
	if len(attrs) == 0 || len(attrs) > 0xFF {
		return newError(pdu, StatusBadParameter, "attribute count %d", len(attrs))
	}
	w.u8(uint8(len(attrs)))
	for _, a := range attrs {
		if !a.IsValid() {
			return newError(pdu, StatusBadParameter, "invalid attribute 0x%02X", uint8(a))
		}
		w.u8(uint8(a))
	}
	return nil
}

func encodeSettings(w *paramWriter, pdu PduID, settings []AttrValue) error {
	if len(settings) == 0 || len(settings) > 0xFF {
		return newError(pdu, StatusBadParameter, "setting count %d", len(settings))
	}
	w.u8(uint8(len(settings)))
	for _, s := range settings {
		if !s.Attr.IsValid() {
			return newError(pdu, StatusBadParameter, "invalid attribute 0x%02X", uint8(s.Attr))
		}
		w.u8(uint8(s.Attr))
		w.u8(s.Value)
	}
	return nil
}

// BuildCommand encodes cmd as a complete SINGLE packet.
func BuildCommand(cmd Command) ([]byte, error) {
	var w paramWriter
	if err := cmd.encode(&w); err != nil {
		return nil, err
	}
	if len(w.buf) > MaxParamLength {
		return nil, newError(cmd.PDU(), StatusBadParameter, "parameters exceed %d bytes", MaxParamLength)
	}
	return EncodePacket(cmd.PDU(), PacketSingle, w.buf), nil
}

type commandDecoder func(r *paramReader) Command

var commandDecoders = map[PduID]commandDecoder{
	PduGetCapabilities:       decodeGetCapabilities,
	PduListPlayerAppAttr:     func(*paramReader) Command { return ListPlayerAppAttr{} },
	PduListPlayerAppValues:   decodeListPlayerAppValues,
	PduGetCurPlayerAppValue:  func(r *paramReader) Command { return GetCurrentPlayerAppValue{Attrs: decodeAttrList(r)} },
	PduSetPlayerAppValue:     decodeSetPlayerAppValue,
	PduGetPlayerAppAttrText:  func(r *paramReader) Command { return GetPlayerAppAttrText{Attrs: decodeAttrList(r)} },
	PduGetPlayerAppValueText: decodeGetPlayerAppValueText,
	PduInformDisplayCharset:  decodeInformDisplayCharset,
	PduInformBatteryStatus:   decodeInformBatteryStatus,
	PduGetElementAttributes:  decodeGetElementAttributes,
	PduGetPlayStatus:         func(*paramReader) Command { return GetPlayStatus{} },
	PduRegisterNotification:  decodeRegisterNotification,
	PduRequestContinuation:   func(r *paramReader) Command { return RequestContinuation{TargetPDU: PduID(r.u8())} },
	PduAbortContinuation:     func(r *paramReader) Command { return AbortContinuation{TargetPDU: PduID(r.u8())} },
	PduSetAbsoluteVolume:     decodeSetAbsoluteVolume,
}

// ParseCommand decodes a complete command packet. The returned header is
// valid whenever b holds at least HeaderSize bytes, so callers can reject
// with the right PDU id on failure.
func ParseCommand(b []byte) (Command, Header, error) {
	hdr, err := DecodeHeader(b)
	if err != nil {
		return nil, hdr, newError(0, StatusInternalError, "%v", err)
	}
	if hdr.PDU == PduSearch {
		return nil, hdr, newError(hdr.PDU, StatusSearchNotSupported, "search is not supported")
	}
	dec, ok := commandDecoders[hdr.PDU]
	if !ok {
		return nil, hdr, newError(hdr.PDU, StatusBadCommand, "unsupported PDU")
	}
	params := b[HeaderSize:]
	if int(hdr.ParamLen) != len(params) {
		return nil, hdr, newError(hdr.PDU, StatusInternalError, "declared length %d, have %d", hdr.ParamLen, len(params))
	}

	r := newParamReader(hdr.PDU, params)
	cmd := dec(r)
	if err := r.done(); err != nil {
		return nil, hdr, err
	}
	return cmd, hdr, nil
}

func decodeGetCapabilities(r *paramReader) Command {
	id := CapabilityID(r.u8())
	if r.err == nil && !id.IsValid() {
		r.fail(StatusBadParameter, "invalid capability id 0x%02X", uint8(id))
	}
	return GetCapabilities{CapabilityID: id}
}

func decodeListPlayerAppValues(r *paramReader) Command {
	attr := PlayerAttrID(r.u8())
	if r.err == nil && !attr.IsValid() {
		r.fail(StatusBadParameter, "invalid attribute 0x%02X", uint8(attr))
	}
	return ListPlayerAppValues{Attr: attr}
}

// decodeAttrList reads num + attribute ids. Unknown ids are dropped; a
// list with nothing valid left is a bad parameter.
func decodeAttrList(r *paramReader) []PlayerAttrID {
	n := int(r.u8())
	if r.err == nil && n == 0 {
		r.fail(StatusBadParameter, "empty attribute list")
		return nil
	}
	raw := r.bytes(n)
	var attrs []PlayerAttrID
	for _, b := range raw {
		if a := PlayerAttrID(b); a.IsValid() {
			attrs = append(attrs, a)
		}
	}
	if r.err == nil && len(attrs) == 0 {
		r.fail(StatusBadParameter, "no valid attributes")
	}
	return attrs
}

func decodeSetPlayerAppValue(r *paramReader) Command {
	n := int(r.u8())
	if r.err == nil && n == 0 {
		r.fail(StatusBadParameter, "empty setting list")
		return SetPlayerAppValue{}
	}
	settings := make([]AttrValue, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		s := AttrValue{Attr: PlayerAttrID(r.u8()), Value: r.u8()}
		if !s.Attr.IsValid() {
			r.fail(StatusBadParameter, "invalid attribute 0x%02X", uint8(s.Attr))
		}
		settings = append(settings, s)
	}
	return SetPlayerAppValue{Settings: settings}
}

func decodeGetPlayerAppValueText(r *paramReader) Command {
	attr := PlayerAttrID(r.u8())
	n := int(r.u8())
	values := r.bytes(n)
	if r.err == nil && (!attr.IsValid() || n == 0) {
		r.fail(StatusBadParameter, "attribute 0x%02X with %d values", uint8(attr), n)
	}
	return GetPlayerAppValueText{Attr: attr, Values: values}
}

func decodeInformDisplayCharset(r *paramReader) Command {
	n := int(r.u8())
	if r.err == nil && n == 0 {
		r.fail(StatusBadParameter, "empty charset list")
		return InformDisplayCharset{}
	}
	charsets := make([]CharsetID, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		charsets = append(charsets, CharsetID(r.u16()))
	}
	return InformDisplayCharset{Charsets: charsets}
}

func decodeInformBatteryStatus(r *paramReader) Command {
	st := BatteryStatus(r.u8())
	if r.err == nil && !st.IsValid() {
		r.fail(StatusBadParameter, "invalid battery status %d", st)
	}
	return InformBatteryStatus{Status: st}
}

// attrCountAll is the sentinel count meaning "no attributes requested".
const attrCountAll = 0xFF

func decodeGetElementAttributes(r *paramReader) Command {
	var cmd GetElementAttributes
	copy(cmd.Identifier[:], r.bytes(8))
	n := int(r.u8())
	if r.err != nil {
		return cmd
	}
	switch n {
	case attrCountAll:
		r.fail(StatusBadParameter, "attribute count 0x%02X", n)
		return cmd
	case 0:
		cmd.AllAttributes = true
		cmd.Attrs = allMediaAttrs()
		return cmd
	}

	var seen uint8
	for i := 0; i < n && r.err == nil; i++ {
		a := MediaAttrID(r.u32())
		if r.err != nil || !a.IsValid() || seen&a.Mask() != 0 {
			continue
		}
		seen |= a.Mask()
		if len(cmd.Attrs) < MaxMediaAttributes {
			cmd.Attrs = append(cmd.Attrs, a)
		}
	}
	return cmd
}

func allMediaAttrs() []MediaAttrID {
	attrs := make([]MediaAttrID, 0, MaxMediaAttributes)
	for a := MediaAttrTitle; a <= MediaAttrPlayingTime; a++ {
		attrs = append(attrs, a)
	}
	return attrs
}

// registerNotificationLen is the fixed parameter length of the command.
const registerNotificationLen = 5

func decodeRegisterNotification(r *paramReader) Command {
	if r.remaining() != registerNotificationLen {
		r.fail(StatusInternalError, "length %d, want %d", r.remaining(), registerNotificationLen)
		return RegisterNotification{}
	}
	cmd := RegisterNotification{Event: EventID(r.u8()), PlaybackInterval: r.u32()}
	if !cmd.Event.IsValid() {
		r.fail(StatusBadParameter, "invalid event 0x%02X", uint8(cmd.Event))
	}
	return cmd
}

func decodeSetAbsoluteVolume(r *paramReader) Command {
	if r.remaining() != 1 {
		r.fail(StatusInternalError, "length %d, want 1", r.remaining())
		return SetAbsoluteVolume{}
	}
	return SetAbsoluteVolume{Volume: r.u8() & MaxVolume}
}

// Reject builds a REJECT body for pdu carrying a single status byte.
func Reject(pdu PduID, status Status) []byte {
	return EncodePacket(pdu, PacketSingle, []byte{byte(status)})
}

// String implements fmt.Stringer for log output.
func (c RegisterNotification) String() string {
	return fmt.Sprintf("RegisterNotification(%s, interval=%d)", c.Event, c.PlaybackInterval)
}
