package wire

// Response is a decoded vendor-dependent response PDU.
// The set of implementations is closed to this package.
type Response interface {
	PDU() PduID
	encode(w *paramWriter) error
}

// GetCapabilitiesResponse lists company IDs or supported events,
// depending on CapabilityID.
type GetCapabilitiesResponse struct {
	CapabilityID CapabilityID
	CompanyIDs   []uint32
	Events       []EventID
}

// ListPlayerAppAttrResponse lists supported player attributes.
type ListPlayerAppAttrResponse struct {
	Attrs []PlayerAttrID
}

// ListPlayerAppValuesResponse lists the values of one attribute.
type ListPlayerAppValuesResponse struct {
	Values []uint8
}

// GetCurrentPlayerAppValueResponse carries current attribute values.
type GetCurrentPlayerAppValueResponse struct {
	Settings []AttrValue
}

// SetPlayerAppValueResponse acknowledges SetPlayerAppValue.
type SetPlayerAppValueResponse struct{}

// AppText is a displayable attribute or value name.
type AppText struct {
	ID      uint8
	Charset CharsetID
	Text    []byte
}

// GetPlayerAppAttrTextResponse carries attribute names.
type GetPlayerAppAttrTextResponse struct {
	Entries []AppText
}

// GetPlayerAppValueTextResponse carries value names.
type GetPlayerAppValueTextResponse struct {
	Entries []AppText
}

// InformDisplayCharsetResponse acknowledges InformDisplayCharset.
type InformDisplayCharsetResponse struct{}

// InformBatteryStatusResponse acknowledges InformBatteryStatus.
type InformBatteryStatusResponse struct{}

// ElementAttribute is one media attribute value.
type ElementAttribute struct {
	ID      MediaAttrID
	Charset CharsetID
	Value   []byte
}

// GetElementAttributesResponse carries media attribute values.
type GetElementAttributesResponse struct {
	Attributes []ElementAttribute
}

// GetPlayStatusResponse reports song length and position in milliseconds.
type GetPlayStatusResponse struct {
	SongLength   uint32
	SongPosition uint32
	Status       PlayStatus
}

// RegisterNotificationResponse is an INTERIM or CHANGED notification.
type RegisterNotificationResponse struct {
	Param NotificationParam
}

// Event returns the event the notification reports.
func (r RegisterNotificationResponse) Event() EventID {
	if r.Param == nil {
		return 0
	}
	return r.Param.Event()
}

// AbortContinuationResponse acknowledges AbortContinuation.
type AbortContinuationResponse struct{}

// SetAbsoluteVolumeResponse reports the volume actually applied.
type SetAbsoluteVolumeResponse struct {
	Volume uint8
}

// RejectResponse is a REJECTED or NOT_IMPLEMENTED response to any PDU.
type RejectResponse struct {
	Pdu    PduID
	Status Status
}

func (GetCapabilitiesResponse) PDU() PduID          { return PduGetCapabilities }
func (ListPlayerAppAttrResponse) PDU() PduID        { return PduListPlayerAppAttr }
func (ListPlayerAppValuesResponse) PDU() PduID      { return PduListPlayerAppValues }
func (GetCurrentPlayerAppValueResponse) PDU() PduID { return PduGetCurPlayerAppValue }
func (SetPlayerAppValueResponse) PDU() PduID        { return PduSetPlayerAppValue }
func (GetPlayerAppAttrTextResponse) PDU() PduID     { return PduGetPlayerAppAttrText }
func (GetPlayerAppValueTextResponse) PDU() PduID    { return PduGetPlayerAppValueText }
func (InformDisplayCharsetResponse) PDU() PduID     { return PduInformDisplayCharset }
func (InformBatteryStatusResponse) PDU() PduID      { return PduInformBatteryStatus }
func (GetElementAttributesResponse) PDU() PduID     { return PduGetElementAttributes }
func (GetPlayStatusResponse) PDU() PduID            { return PduGetPlayStatus }
func (RegisterNotificationResponse) PDU() PduID     { return PduRegisterNotification }
func (AbortContinuationResponse) PDU() PduID        { return PduAbortContinuation }
func (SetAbsoluteVolumeResponse) PDU() PduID        { return PduSetAbsoluteVolume }
func (r RejectResponse) PDU() PduID                 { return r.Pdu }

func (r GetCapabilitiesResponse) encode(w *paramWriter) error {
	switch r.CapabilityID {
	case CapabilityCompanyID:
		if len(r.CompanyIDs) > 0xFF {
			return newError(r.PDU(), StatusBadParameter, "%d company ids", len(r.CompanyIDs))
		}
		w.u8(uint8(r.CapabilityID))
		w.u8(uint8(len(r.CompanyIDs)))
		for _, id := range r.CompanyIDs {
			w.u24(id)
		}
	case CapabilityEventsSupported:
		if len(r.Events) > NumEvents {
			return newError(r.PDU(), StatusBadParameter, "%d events", len(r.Events))
		}
		w.u8(uint8(r.CapabilityID))
		w.u8(uint8(len(r.Events)))
		for _, e := range r.Events {
			if !e.IsValid() {
				return newError(r.PDU(), StatusBadParameter, "invalid event 0x%02X", uint8(e))
			}
			w.u8(uint8(e))
		}
	default:
		return newError(r.PDU(), StatusBadParameter, "invalid capability id 0x%02X", uint8(r.CapabilityID))
	}
	return nil
}

func (r ListPlayerAppAttrResponse) encode(w *paramWriter) error {
	if len(r.Attrs) > 0xFF {
		return newError(r.PDU(), StatusBadParameter, "%d attributes", len(r.Attrs))
	}
	w.u8(uint8(len(r.Attrs)))
	for _, a := range r.Attrs {
		if !a.IsValid() {
			return newError(r.PDU(), StatusBadParameter, "invalid attribute 0x%02X", uint8(a))
		}
		w.u8(uint8(a))
	}
	return nil
}

func (r ListPlayerAppValuesResponse) encode(w *paramWriter) error {
	if len(r.Values) > 0xFF {
		return newError(r.PDU(), StatusBadParameter, "%d values", len(r.Values))
	}
	w.u8(uint8(len(r.Values)))
	w.raw(r.Values)
	return nil
}

func (r GetCurrentPlayerAppValueResponse) encode(w *paramWriter) error {
	return encodeSettings(w, r.PDU(), r.Settings)
}

func (SetPlayerAppValueResponse) encode(*paramWriter) error    { return nil }
func (InformDisplayCharsetResponse) encode(*paramWriter) error { return nil }
func (InformBatteryStatusResponse) encode(*paramWriter) error  { return nil }
func (AbortContinuationResponse) encode(*paramWriter) error    { return nil }

func (r GetPlayerAppAttrTextResponse) encode(w *paramWriter) error {
	return encodeAppText(w, r.PDU(), r.Entries)
}

func (r GetPlayerAppValueTextResponse) encode(w *paramWriter) error {
	return encodeAppText(w, r.PDU(), r.Entries)
}

func encodeAppText(w *paramWriter, pdu PduID, entries []AppText) error {
	if len(entries) > 0xFF {
		return newError(pdu, StatusBadParameter, "%d text entries", len(entries))
	}
	w.u8(uint8(len(entries)))
	for _, e := range entries {
		if len(e.Text) == 0 || len(e.Text) > 0xFF {
			return newError(pdu, StatusBadParameter, "text length %d for id 0x%02X", len(e.Text), e.ID)
		}
		w.u8(e.ID)
		w.u16(uint16(e.Charset))
		w.u8(uint8(len(e.Text)))
		w.raw(e.Text)
	}
	return nil
}

func (r GetElementAttributesResponse) encode(w *paramWriter) error {
	if len(r.Attributes) > 0xFF {
		return newError(r.PDU(), StatusBadParameter, "%d attributes", len(r.Attributes))
	}
	w.u8(uint8(len(r.Attributes)))
	for _, a := range r.Attributes {
		if !a.ID.IsValid() {
			return newError(r.PDU(), StatusBadParameter, "invalid media attribute %d", a.ID)
		}
		if len(a.Value) > 0xFFFF {
			return newError(r.PDU(), StatusBadParameter, "attribute %s too long", a.ID)
		}
		w.u32(uint32(a.ID))
		w.u16(uint16(a.Charset))
		w.u16(uint16(len(a.Value)))
		w.raw(a.Value)
	}
	return nil
}

func (r GetPlayStatusResponse) encode(w *paramWriter) error {
	if !r.Status.IsValid() {
		return newError(r.PDU(), StatusBadParameter, "invalid play status 0x%02X", uint8(r.Status))
	}
	w.u32(r.SongLength)
	w.u32(r.SongPosition)
	w.u8(uint8(r.Status))
	return nil
}

func (r RegisterNotificationResponse) encode(w *paramWriter) error {
	if r.Param == nil || !r.Param.Event().IsValid() {
		return newError(r.PDU(), StatusBadParameter, "missing or invalid event")
	}
	w.u8(uint8(r.Param.Event()))
	return r.Param.encode(w)
}

func (r SetAbsoluteVolumeResponse) encode(w *paramWriter) error {
	w.u8(r.Volume & MaxVolume)
	return nil
}

func (r RejectResponse) encode(w *paramWriter) error {
	w.u8(uint8(r.Status))
	return nil
}

// BuildResponse encodes rsp as a complete packet. The result may exceed
// MaxPacketLength; the caller fragments it.
func BuildResponse(rsp Response) ([]byte, error) {
	var w paramWriter
	if err := rsp.encode(&w); err != nil {
		return nil, err
	}
	if len(w.buf) > 0xFFFF {
		return nil, newError(rsp.PDU(), StatusInternalError, "parameters exceed 65535 bytes")
	}
	return EncodePacket(rsp.PDU(), PacketSingle, w.buf), nil
}

type responseDecoder func(r *paramReader) Response

var responseDecoders = map[PduID]responseDecoder{
	PduGetCapabilities:       decodeGetCapabilitiesResponse,
	PduListPlayerAppAttr:     decodeListPlayerAppAttrResponse,
	PduListPlayerAppValues:   decodeListPlayerAppValuesResponse,
	PduGetCurPlayerAppValue:  decodeGetCurrentPlayerAppValueResponse,
	PduSetPlayerAppValue:     func(*paramReader) Response { return SetPlayerAppValueResponse{} },
	PduGetPlayerAppAttrText:  func(r *paramReader) Response { return GetPlayerAppAttrTextResponse{Entries: decodeAppText(r)} },
	PduGetPlayerAppValueText: func(r *paramReader) Response { return GetPlayerAppValueTextResponse{Entries: decodeAppText(r)} },
	PduInformDisplayCharset:  func(*paramReader) Response { return InformDisplayCharsetResponse{} },
	PduInformBatteryStatus:   func(*paramReader) Response { return InformBatteryStatusResponse{} },
	PduGetElementAttributes:  decodeGetElementAttributesResponse,
	PduGetPlayStatus:         decodeGetPlayStatusResponse,
	PduRegisterNotification:  decodeRegisterNotificationResponse,
	PduAbortContinuation:     func(*paramReader) Response { return AbortContinuationResponse{} },
	PduSetAbsoluteVolume:     decodeSetAbsoluteVolumeResponse,
}

// ParseResponse decodes a complete response packet received with code.
// REJECTED and NOT_IMPLEMENTED responses decode to RejectResponse for any
// PDU id.
func ParseResponse(b []byte, code Code) (Response, Header, error) {
	hdr, err := DecodeHeader(b)
	if err != nil {
		return nil, hdr, newError(0, StatusInternalError, "%v", err)
	}
	params := b[HeaderSize:]
	if int(hdr.ParamLen) != len(params) {
		return nil, hdr, newError(hdr.PDU, StatusInternalError, "declared length %d, have %d", hdr.ParamLen, len(params))
	}

	if code.IsFailure() {
		rsp := RejectResponse{Pdu: hdr.PDU, Status: StatusInternalError}
		if len(params) > 0 {
			rsp.Status = Status(params[0])
		}
		return rsp, hdr, nil
	}

	dec, ok := responseDecoders[hdr.PDU]
	if !ok {
		return nil, hdr, newError(hdr.PDU, StatusBadCommand, "unsupported PDU")
	}
	r := newParamReader(hdr.PDU, params)
	rsp := dec(r)
	if err := r.done(); err != nil {
		return nil, hdr, err
	}
	return rsp, hdr, nil
}

func decodeGetCapabilitiesResponse(r *paramReader) Response {
	rsp := GetCapabilitiesResponse{CapabilityID: CapabilityID(r.u8())}
	n := int(r.u8())
	switch {
	case r.err != nil:
	case rsp.CapabilityID == CapabilityCompanyID:
		for i := 0; i < n && r.err == nil; i++ {
			rsp.CompanyIDs = append(rsp.CompanyIDs, r.u24())
		}
	case rsp.CapabilityID == CapabilityEventsSupported:
		for i := 0; i < n && r.err == nil; i++ {
			e := EventID(r.u8())
			if r.err == nil && !e.IsValid() {
				r.fail(StatusBadParameter, "invalid event 0x%02X", uint8(e))
			}
			rsp.Events = append(rsp.Events, e)
		}
	default:
		r.fail(StatusBadParameter, "invalid capability id 0x%02X", uint8(rsp.CapabilityID))
	}
	return rsp
}

func decodeListPlayerAppAttrResponse(r *paramReader) Response {
	n := int(r.u8())
	var rsp ListPlayerAppAttrResponse
	for _, b := range r.bytes(n) {
		a := PlayerAttrID(b)
		if !a.IsValid() {
			r.fail(StatusBadParameter, "invalid attribute 0x%02X", b)
		}
		rsp.Attrs = append(rsp.Attrs, a)
	}
	return rsp
}

func decodeListPlayerAppValuesResponse(r *paramReader) Response {
	n := int(r.u8())
	return ListPlayerAppValuesResponse{Values: r.bytes(n)}
}

func decodeGetCurrentPlayerAppValueResponse(r *paramReader) Response {
	n := int(r.u8())
	var rsp GetCurrentPlayerAppValueResponse
	for i := 0; i < n && r.err == nil; i++ {
		s := AttrValue{Attr: PlayerAttrID(r.u8()), Value: r.u8()}
		if r.err == nil && !s.Attr.IsValid() {
			r.fail(StatusBadParameter, "invalid attribute 0x%02X", uint8(s.Attr))
		}
		rsp.Settings = append(rsp.Settings, s)
	}
	return rsp
}

func decodeAppText(r *paramReader) []AppText {
	n := int(r.u8())
	var entries []AppText
	for i := 0; i < n && r.err == nil; i++ {
		e := AppText{ID: r.u8(), Charset: CharsetID(r.u16())}
		e.Text = r.bytes(int(r.u8()))
		entries = append(entries, e)
	}
	return entries
}

func decodeGetElementAttributesResponse(r *paramReader) Response {
	n := int(r.u8())
	var rsp GetElementAttributesResponse
	for i := 0; i < n && r.err == nil; i++ {
		a := ElementAttribute{ID: MediaAttrID(r.u32()), Charset: CharsetID(r.u16())}
		a.Value = r.bytes(int(r.u16()))
		if r.err == nil && !a.ID.IsValid() {
			r.fail(StatusBadParameter, "invalid media attribute %d", a.ID)
		}
		rsp.Attributes = append(rsp.Attributes, a)
	}
	return rsp
}

// ParseElementAttributesPrefix decodes the complete attribute entries of
// a GetElementAttributes response packet whose tail may be missing, as
// left by a truncated reassembly. Decoding stops at the first incomplete
// or invalid entry.
func ParseElementAttributesPrefix(b []byte) []ElementAttribute {
	if len(b) < HeaderSize {
		return nil
	}
	r := newParamReader(PduGetElementAttributes, b[HeaderSize:])
	n := int(r.u8())
	var out []ElementAttribute
	for i := 0; i < n; i++ {
		a := ElementAttribute{ID: MediaAttrID(r.u32()), Charset: CharsetID(r.u16())}
		a.Value = r.bytes(int(r.u16()))
		if r.err != nil || !a.ID.IsValid() {
			break
		}
		out = append(out, a)
	}
	return out
}

func decodeGetPlayStatusResponse(r *paramReader) Response {
	rsp := GetPlayStatusResponse{SongLength: r.u32(), SongPosition: r.u32(), Status: PlayStatus(r.u8())}
	if r.err == nil && !rsp.Status.IsValid() {
		r.fail(StatusBadParameter, "invalid play status 0x%02X", uint8(rsp.Status))
	}
	return rsp
}

func decodeRegisterNotificationResponse(r *paramReader) Response {
	e := EventID(r.u8())
	if r.err != nil {
		return RegisterNotificationResponse{}
	}
	return RegisterNotificationResponse{Param: decodeNotificationParam(r, e)}
}

func decodeSetAbsoluteVolumeResponse(r *paramReader) Response {
	if r.remaining() != 1 {
		r.fail(StatusInternalError, "length %d, want 1", r.remaining())
		return SetAbsoluteVolumeResponse{}
	}
	return SetAbsoluteVolumeResponse{Volume: r.u8() & MaxVolume}
}
