package session

import (
	"errors"
	"fmt"

	"github.com/avrcp-protocol/avrcp-go/pkg/fragment"
	"github.com/avrcp-protocol/avrcp-go/pkg/log"
	"github.com/avrcp-protocol/avrcp-go/pkg/transaction"
	"github.com/avrcp-protocol/avrcp-go/pkg/transport"
	"github.com/avrcp-protocol/avrcp-go/pkg/wire"
)

// HandleResponse processes a vendor-dependent response from the peer
// target. Responses on labels not in use are late or duplicate and are
// dropped.
func (s *Session) HandleResponse(msg transport.Message, out *Outbox) {
	if !s.Connected() {
		return
	}
	s.captureMessage(log.DirectionIn, msg)

	tx, err := s.pool.Lookup(msg.Label)
	if err != nil {
		s.logger.Debug("discarding response", "label", msg.Label, "code", msg.Code)
		return
	}

	res, err := s.assembler.Add(msg.Payload)
	if err != nil {
		s.logger.Debug("dropping fragment", "label", msg.Label, "error", err)
		s.captureError(log.LayerWire, err.Error(), "reassembly")
		if errors.Is(err, fragment.ErrPDUMismatch) {
			s.captureState(log.StateEntityFragment, "RECEIVING", "IDLE", "pdu mismatch")
			s.asmLabel = transaction.InvalidLabel
		}
		return
	}
	if res.NeedContinue {
		s.asmLabel = msg.Label
		s.requestContinuation(out, msg.Label, wire.RequestContinuation{TargetPDU: res.PDU})
		return
	}
	// A SINGLE response on the assembling label ends that transfer, and a
	// completed transfer no longer owns its label.
	if msg.Label == s.asmLabel || !s.assembler.Active() {
		s.endAssembly(s.asmLabel)
	}
	if res.AbortPeer {
		s.captureState(log.StateEntityFragment, "RECEIVING", "IDLE", "truncated")
		s.requestContinuation(out, msg.Label, wire.AbortContinuation{TargetPDU: res.PDU})
	}

	rsp, hdr, err := wire.ParseResponse(res.Packet, msg.Code)
	if err != nil && res.Truncated && hdr.PDU == wire.PduGetElementAttributes {
		rsp = wire.GetElementAttributesResponse{Attributes: wire.ParseElementAttributesPrefix(res.Packet)}
		err = nil
	}
	if err != nil {
		s.logger.Debug("malformed response", "label", msg.Label, "pdu", hdr.PDU, "error", err)
		s.captureError(log.LayerWire, err.Error(), hdr.PDU.String())
		if msg.Label != s.volLabel {
			s.release(msg.Label)
		}
		return
	}

	if hdr.PDU == wire.PduRegisterNotification || tx.PDU == wire.PduRegisterNotification {
		s.handleNotificationResponse(msg, rsp, out)
		return
	}

	// Some targets answer CONTROL commands with INTERIM first.
	if msg.Code == wire.CodeInterim {
		return
	}
	s.release(msg.Label)

	if rej, ok := rsp.(wire.RejectResponse); ok {
		s.requestFailed(out, msg, rej)
		return
	}

	switch r := rsp.(type) {
	case wire.SetAbsoluteVolumeResponse:
		s.volume = int(r.Volume)
		out.emit(VolumeSetEvent{Handle: s.handle, Label: msg.Label, Volume: r.Volume})
	case wire.GetCapabilitiesResponse:
		out.emit(CapabilitiesEvent{
			Handle:     s.handle,
			Label:      msg.Label,
			Events:     NewEventSet(r.Events...),
			CompanyIDs: r.CompanyIDs,
		})
	case wire.GetElementAttributesResponse:
		for _, a := range r.Attributes {
			out.emit(ElementAttributesEvent{Handle: s.handle, Label: msg.Label, Mask: a.ID.Mask(), Attribute: a})
		}
	case wire.GetPlayStatusResponse:
		out.emit(PlayStatusEvent{Handle: s.handle, Label: msg.Label, Response: r})
	case wire.SetPlayerAppValueResponse:
		out.emit(PlayerAppValueSetEvent{Handle: s.handle, Label: msg.Label})
	default:
		s.logger.Debug("response not reported", "label", msg.Label, "pdu", hdr.PDU)
	}
}

func (s *Session) handleNotificationResponse(msg transport.Message, rsp wire.Response, out *Outbox) {
	if msg.Label == s.volLabel {
		s.handleVolumeNotification(msg, rsp, out)
		return
	}

	switch r := rsp.(type) {
	case wire.RejectResponse:
		s.release(msg.Label)
		s.requestFailed(out, msg, r)
	case wire.RegisterNotificationResponse:
		if r.Event() == wire.EventVolumeChanged {
			s.logger.Debug("volume notification on foreign label", "label", msg.Label, "volume_label", s.volLabel)
			return
		}
		if msg.Code == wire.CodeInterim {
			return
		}
		s.release(msg.Label)
		if !ControllerEvents.Has(r.Event()) {
			s.logger.Debug("change notification not forwarded", "event_id", r.Event())
			return
		}
		out.emit(ChangeNotifyEvent{Handle: s.handle, Label: msg.Label, Param: r.Param})
	default:
		s.release(msg.Label)
	}
}

// release frees label together with any partial response it owns.
func (s *Session) release(label uint8) {
	s.pool.Release(label)
	s.endAssembly(label)
}

// endAssembly drops the inbound reassembly started on label.
func (s *Session) endAssembly(label uint8) {
	if label != s.asmLabel || label == transaction.InvalidLabel {
		return
	}
	s.assembler.Reset()
	s.asmLabel = transaction.InvalidLabel
}

// handleVolumeNotification follows the engine's own volume registration.
// A CHANGED value re-registers on the same label.
func (s *Session) handleVolumeNotification(msg transport.Message, rsp wire.Response, out *Outbox) {
	switch r := rsp.(type) {
	case wire.RejectResponse:
		s.logger.Warn("volume registration rejected", "label", msg.Label, "status", r.Status)
		s.captureState(log.StateEntityVolume, fmt.Sprintf("label %d", s.volLabel), "", "rejected")
		// The label is forgotten before it is released, so it stays
		// held until the connection is reset.
		s.volLabel = transaction.InvalidLabel
		s.pool.Release(s.volLabel)
	case wire.RegisterNotificationResponse:
		p, ok := r.Param.(wire.VolumeParam)
		if !ok {
			s.logger.Debug("unexpected notification on volume label", "event_id", r.Event())
			return
		}
		s.volume = int(p.Volume)
		interim := msg.Code == wire.CodeInterim
		out.emit(VolumeChangeEvent{Handle: s.handle, Volume: p.Volume, Interim: interim})
		if !interim {
			s.registerVolume(out)
		}
	}
}

func (s *Session) requestFailed(out *Outbox, msg transport.Message, rej wire.RejectResponse) {
	s.logger.Debug("request failed", "label", msg.Label, "pdu", rej.Pdu, "code", msg.Code, "status", rej.Status)
	out.emit(RequestFailedEvent{
		Handle: s.handle,
		Label:  msg.Label,
		PDU:    rej.Pdu,
		Code:   msg.Code,
		Status: rej.Status,
	})
}

// requestContinuation sends a continuation command for an inbound
// fragmented response on the response's label.
func (s *Session) requestContinuation(out *Outbox, label uint8, cmd wire.Command) {
	pkt, err := wire.BuildCommand(cmd)
	if err != nil {
		s.logger.Error("failed to build continuation", "pdu", cmd.PDU(), "error", err)
		return
	}
	s.transmit(out, transport.Message{
		Handle:  s.handle,
		Label:   label,
		Code:    wire.CodeControl,
		Opcode:  wire.OpcodeVendor,
		Payload: pkt,
	})
}
