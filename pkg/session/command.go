package session

import (
	"fmt"

	"github.com/avrcp-protocol/avrcp-go/pkg/log"
	"github.com/avrcp-protocol/avrcp-go/pkg/transport"
	"github.com/avrcp-protocol/avrcp-go/pkg/wire"
)

// HandleCommand processes a vendor-dependent command from the peer
// controller. msg must carry at least a PDU header.
func (s *Session) HandleCommand(msg transport.Message, out *Outbox) {
	if !s.Connected() {
		return
	}
	s.captureMessage(log.DirectionIn, msg)

	if !s.cfg.Roles.Has(RoleTarget) {
		s.transmit(out, transport.Message{
			Handle:  s.handle,
			Label:   msg.Label,
			Code:    wire.CodeNotImplemented,
			Opcode:  wire.OpcodeVendor,
			Payload: msg.Payload,
		})
		return
	}

	cmd, hdr, err := wire.ParseCommand(msg.Payload)
	if hdr.PDU != wire.PduRequestContinuation && hdr.PDU != wire.PduAbortContinuation {
		s.abandonSplit("superseded")
	}
	if err != nil {
		s.logger.Debug("rejecting command", "label", msg.Label, "pdu", hdr.PDU, "error", err)
		s.captureError(log.LayerWire, err.Error(), hdr.PDU.String())
		s.reject(out, msg.Label, hdr.PDU, wire.StatusOf(err))
		return
	}
	if !validCommandCode(hdr.PDU, msg.Code) {
		s.logger.Debug("invalid command type", "label", msg.Label, "pdu", hdr.PDU, "code", msg.Code)
		s.reject(out, msg.Label, hdr.PDU, wire.StatusBadCommand)
		return
	}

	switch c := cmd.(type) {
	case wire.RequestContinuation:
		s.handleRequestContinuation(c, msg.Label, out)
	case wire.AbortContinuation:
		s.handleAbortContinuation(c, msg.Label, out)
	case wire.GetCapabilities:
		s.handleGetCapabilities(c, msg.Label, out)
	case wire.ListPlayerAppAttr:
		s.handleListPlayerAppAttr(msg.Label, out)
	case wire.ListPlayerAppValues:
		s.handleListPlayerAppValues(c, msg.Label, out)
	case wire.GetCurrentPlayerAppValue:
		s.handleGetCurrentPlayerAppValue(c, msg.Label, out)
	case wire.SetPlayerAppValue:
		s.handleSetPlayerAppValue(c, msg.Label, out)
	case wire.InformDisplayCharset:
		s.respond(out, msg.Label, wire.CodeAccepted, wire.InformDisplayCharsetResponse{})
	case wire.InformBatteryStatus:
		s.respond(out, msg.Label, wire.CodeAccepted, wire.InformBatteryStatusResponse{})
		out.emit(BatteryStatusEvent{Handle: s.handle, Status: c.Status})
	case wire.GetElementAttributes:
		s.trackReply(replyElementAttributes, msg.Code, msg.Label)
		out.emit(GetElementAttributesEvent{Handle: s.handle, Attrs: c.Attrs})
	case wire.GetPlayStatus:
		s.trackReply(replyPlayStatus, msg.Code, msg.Label)
		out.emit(GetPlayStatusEvent{Handle: s.handle})
	case wire.RegisterNotification:
		s.handleRegisterNotification(c, msg.Label, out)
	case wire.SetAbsoluteVolume:
		s.respond(out, msg.Label, wire.CodeAccepted, wire.SetAbsoluteVolumeResponse{Volume: c.Volume})
		out.emit(SetAbsoluteVolumeEvent{Handle: s.handle, Volume: c.Volume})
	default:
		// Attribute and value texts are not offered.
		s.reject(out, msg.Label, hdr.PDU, wire.StatusBadCommand)
	}
}

// validCommandCode reports whether code is the command type pdu is sent
// with.
func validCommandCode(pdu wire.PduID, code wire.Code) bool {
	switch pdu {
	case wire.PduGetCapabilities, wire.PduListPlayerAppAttr, wire.PduListPlayerAppValues,
		wire.PduGetCurPlayerAppValue, wire.PduGetPlayerAppAttrText, wire.PduGetPlayerAppValueText,
		wire.PduGetElementAttributes, wire.PduGetPlayStatus:
		return code == wire.CodeStatus
	case wire.PduRegisterNotification:
		return code == wire.CodeNotify
	default:
		return code == wire.CodeControl
	}
}

// successCode maps a command type to the response code of a successful
// answer.
func successCode(cmd wire.Code) wire.Code {
	switch cmd {
	case wire.CodeNotify:
		return wire.CodeInterim
	case wire.CodeStatus:
		return wire.CodeStable
	default:
		return wire.CodeAccepted
	}
}

func (s *Session) handleRequestContinuation(c wire.RequestContinuation, label uint8, out *Outbox) {
	pkt, err := s.splitter.Continue(c.TargetPDU)
	if err != nil {
		s.logger.Debug("rejecting continuation", "label", label, "target", c.TargetPDU, "error", err)
		s.reject(out, label, wire.PduRequestContinuation, wire.StatusBadParameter)
		return
	}
	s.transmit(out, transport.Message{
		Handle:  s.handle,
		Label:   label,
		Code:    s.splitCode,
		Opcode:  wire.OpcodeVendor,
		Payload: pkt,
	})
	if _, pending := s.splitter.Pending(); !pending {
		s.captureState(log.StateEntityFragment, "SENDING", "IDLE", "complete")
	}
}

func (s *Session) handleAbortContinuation(c wire.AbortContinuation, label uint8, out *Outbox) {
	if err := s.splitter.Abort(c.TargetPDU); err != nil {
		s.logger.Debug("rejecting abort", "label", label, "target", c.TargetPDU, "error", err)
		s.reject(out, label, wire.PduAbortContinuation, wire.StatusBadParameter)
		return
	}
	s.captureState(log.StateEntityFragment, "SENDING", "IDLE", "aborted")
	s.respond(out, label, wire.CodeAccepted, wire.AbortContinuationResponse{})
}

func (s *Session) handleGetCapabilities(c wire.GetCapabilities, label uint8, out *Outbox) {
	b, err := wire.NewCapabilitiesBuilder(c.CapabilityID)
	if err != nil {
		s.reject(out, label, wire.PduGetCapabilities, wire.StatusOf(err))
		return
	}

	switch c.CapabilityID {
	case wire.CapabilityCompanyID:
		ids := s.cfg.CompanyIDs
		if len(ids) == 0 {
			ids = []uint32{wire.CompanyIDBluetoothSIG}
		}
		err = b.Append(ids...)
	case wire.CapabilityEventsSupported:
		for _, e := range s.cfg.TargetEvents.Events() {
			if err = b.Append(uint32(e)); err != nil {
				break
			}
		}
	}
	if err != nil {
		s.logger.Error("failed to build capabilities", "error", err)
		s.reject(out, label, wire.PduGetCapabilities, wire.StatusInternalError)
		return
	}
	s.sendPacket(out, label, wire.CodeStable, b.Bytes())
}

func (s *Session) findSetting(attr wire.PlayerAttrID) *PlayerSetting {
	for i := range s.settings {
		if s.settings[i].Attr == attr {
			return &s.settings[i]
		}
	}
	return nil
}

func (s *Session) handleListPlayerAppAttr(label uint8, out *Outbox) {
	if len(s.settings) == 0 {
		s.reject(out, label, wire.PduListPlayerAppAttr, wire.StatusBadCommand)
		return
	}
	b := wire.NewPlayerAppAttrBuilder()
	for _, st := range s.settings {
		if err := b.Append(uint32(st.Attr)); err != nil {
			s.reject(out, label, wire.PduListPlayerAppAttr, wire.StatusInternalError)
			return
		}
	}
	s.sendPacket(out, label, wire.CodeStable, b.Bytes())
}

func (s *Session) handleListPlayerAppValues(c wire.ListPlayerAppValues, label uint8, out *Outbox) {
	if len(s.settings) == 0 {
		s.reject(out, label, wire.PduListPlayerAppValues, wire.StatusBadCommand)
		return
	}
	st := s.findSetting(c.Attr)
	if st == nil {
		s.reject(out, label, wire.PduListPlayerAppValues, wire.StatusBadParameter)
		return
	}
	b := wire.NewPlayerAppValuesBuilder()
	for _, v := range st.Values {
		if err := b.Append(uint32(v)); err != nil {
			s.reject(out, label, wire.PduListPlayerAppValues, wire.StatusInternalError)
			return
		}
	}
	s.sendPacket(out, label, wire.CodeStable, b.Bytes())
}

func (s *Session) handleGetCurrentPlayerAppValue(c wire.GetCurrentPlayerAppValue, label uint8, out *Outbox) {
	if len(s.settings) == 0 {
		s.reject(out, label, wire.PduGetCurPlayerAppValue, wire.StatusBadCommand)
		return
	}
	rsp := wire.GetCurrentPlayerAppValueResponse{}
	for _, attr := range c.Attrs {
		st := s.findSetting(attr)
		if st == nil {
			s.reject(out, label, wire.PduGetCurPlayerAppValue, wire.StatusBadParameter)
			return
		}
		rsp.Settings = append(rsp.Settings, wire.AttrValue{Attr: attr, Value: st.Current})
	}
	s.respond(out, label, wire.CodeStable, rsp)
}

// handleSetPlayerAppValue accepts settings. With no settings configured
// every value is accepted and only reported to the application.
func (s *Session) handleSetPlayerAppValue(c wire.SetPlayerAppValue, label uint8, out *Outbox) {
	if len(s.settings) > 0 {
		for _, av := range c.Settings {
			st := s.findSetting(av.Attr)
			if st == nil || !containsValue(st.Values, av.Value) {
				s.reject(out, label, wire.PduSetPlayerAppValue, wire.StatusBadParameter)
				return
			}
		}
		for _, av := range c.Settings {
			s.findSetting(av.Attr).Current = av.Value
		}
	}
	s.respond(out, label, wire.CodeAccepted, wire.SetPlayerAppValueResponse{})
	out.emit(SetPlayerAppValueEvent{Handle: s.handle, Settings: c.Settings})
}

func containsValue(values []uint8, v uint8) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// respond builds rsp and sends it, fragmenting when needed.
func (s *Session) respond(out *Outbox, label uint8, code wire.Code, rsp wire.Response) error {
	pkt, err := wire.BuildResponse(rsp)
	if err != nil {
		s.logger.Error("failed to build response", "pdu", rsp.PDU(), "error", err)
		s.captureError(log.LayerWire, err.Error(), rsp.PDU().String())
		s.reject(out, label, rsp.PDU(), wire.StatusOf(err))
		return fmt.Errorf("failed to build %s response: %w", rsp.PDU(), err)
	}
	s.sendPacket(out, label, code, pkt)
	return nil
}

// sendPacket sends a complete response packet. Packets longer than one
// control frame go out as START and the rest waits for continuation
// requests.
func (s *Session) sendPacket(out *Outbox, label uint8, code wire.Code, pkt []byte) {
	first, fragmented, err := s.splitter.Split(pkt)
	if err != nil {
		s.logger.Error("failed to split response", "error", err)
		return
	}
	if fragmented {
		s.splitCode = code
		s.captureState(log.StateEntityFragment, "IDLE", "SENDING", fmt.Sprintf("%d bytes", len(pkt)))
	}
	s.transmit(out, transport.Message{
		Handle:  s.handle,
		Label:   label,
		Code:    code,
		Opcode:  wire.OpcodeVendor,
		Payload: first,
	})
}

func (s *Session) reject(out *Outbox, label uint8, pdu wire.PduID, status wire.Status) {
	s.transmit(out, transport.Message{
		Handle:  s.handle,
		Label:   label,
		Code:    wire.CodeRejected,
		Opcode:  wire.OpcodeVendor,
		Payload: wire.Reject(pdu, status),
	})
}

func (s *Session) abandonSplit(reason string) {
	if _, pending := s.splitter.Pending(); !pending {
		return
	}
	s.splitter.Reset()
	s.captureState(log.StateEntityFragment, "SENDING", "IDLE", reason)
}
