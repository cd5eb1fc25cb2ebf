package session

import (
	"fmt"

	"github.com/avrcp-protocol/avrcp-go/pkg/transport"
	"github.com/avrcp-protocol/avrcp-go/pkg/wire"
)

// checkController verifies the session can send a controller request
// needing the given peer features.
func (s *Session) checkController(need Features) error {
	if !s.Connected() {
		return ErrNotConnected
	}
	if !s.cfg.Roles.Has(RoleController) {
		return fmt.Errorf("%w: %s", ErrRoleDisabled, RoleController)
	}
	if !s.features.Has(need) {
		return fmt.Errorf("%w: need 0x%04X, have 0x%04X", ErrFeatureNotSupported, uint16(need), uint16(s.features))
	}
	return nil
}

// sendCommand acquires a label and sends cmd with code.
func (s *Session) sendCommand(cmd wire.Command, code wire.Code, out *Outbox) (uint8, error) {
	pkt, err := wire.BuildCommand(cmd)
	if err != nil {
		return 0, fmt.Errorf("failed to build %s: %w", cmd.PDU(), err)
	}
	tx, err := s.pool.Acquire(wire.OpcodeVendor, cmd.PDU())
	if err != nil {
		return 0, err
	}
	s.transmit(out, transport.Message{
		Handle:  s.handle,
		Label:   tx.Label,
		Code:    code,
		Opcode:  wire.OpcodeVendor,
		Payload: pkt,
	})
	return tx.Label, nil
}

// SendPassThrough sends one key event to the peer target.
func (s *Session) SendPassThrough(op wire.PassThroughOp, state wire.KeyState, out *Outbox) (uint8, error) {
	if err := s.checkController(FeatRemoteTarget); err != nil {
		return 0, err
	}
	payload, err := wire.EncodePassThrough(wire.PassThrough{Op: op, State: state})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	tx, err := s.pool.Acquire(wire.OpcodePassThrough, 0)
	if err != nil {
		return 0, err
	}
	s.transmit(out, transport.Message{
		Handle:  s.handle,
		Label:   tx.Label,
		Code:    wire.CodeControl,
		Opcode:  wire.OpcodePassThrough,
		Payload: payload,
	})
	return tx.Label, nil
}

// GetElementAttributes asks the peer for attributes of the playing track.
// mask selects attributes by bit 1<<(id-1); zero asks for all.
func (s *Session) GetElementAttributes(mask uint8, out *Outbox) (uint8, error) {
	if err := s.checkController(FeatRemoteTarget | FeatMetadata); err != nil {
		return 0, err
	}
	cmd := wire.GetElementAttributes{AllAttributes: mask == 0}
	for a := wire.MediaAttrTitle; a <= wire.MediaAttrPlayingTime; a++ {
		if mask&a.Mask() != 0 {
			cmd.Attrs = append(cmd.Attrs, a)
		}
	}
	return s.sendCommand(cmd, wire.CodeStatus, out)
}

// GetCapabilities asks the peer for company ids or supported events.
func (s *Session) GetCapabilities(id wire.CapabilityID, out *Outbox) (uint8, error) {
	if err := s.checkController(FeatRemoteTarget | FeatMetadata); err != nil {
		return 0, err
	}
	if !id.IsValid() {
		return 0, fmt.Errorf("%w: capability 0x%02X", ErrInvalidArgument, uint8(id))
	}
	return s.sendCommand(wire.GetCapabilities{CapabilityID: id}, wire.CodeStatus, out)
}

// RegisterNotification registers for event at the peer target. interval
// is the play position interval in seconds. Volume changes are followed
// by the session itself.
func (s *Session) RegisterNotification(event wire.EventID, interval uint32, out *Outbox) (uint8, error) {
	if err := s.checkController(FeatRemoteTarget | FeatMetadata); err != nil {
		return 0, err
	}
	if !event.IsValid() || event == wire.EventVolumeChanged {
		return 0, fmt.Errorf("%w: event %s", ErrInvalidArgument, event)
	}
	cmd := wire.RegisterNotification{Event: event, PlaybackInterval: interval}
	return s.sendCommand(cmd, wire.CodeNotify, out)
}

// SetAbsoluteVolume sets the peer target's volume. A volume equal to the
// last one reported returns ErrVolumeUnchanged without sending.
func (s *Session) SetAbsoluteVolume(volume uint8, out *Outbox) (uint8, error) {
	if err := s.checkController(FeatRemoteTarget | FeatAdvancedControl); err != nil {
		return 0, err
	}
	if volume > wire.MaxVolume {
		return 0, fmt.Errorf("%w: volume %d", ErrInvalidArgument, volume)
	}
	if s.volume == int(volume) {
		return 0, ErrVolumeUnchanged
	}
	return s.sendCommand(wire.SetAbsoluteVolume{Volume: volume}, wire.CodeControl, out)
}

// SetPlayerAppValue sets one player application setting at the peer.
func (s *Session) SetPlayerAppValue(attr wire.PlayerAttrID, value uint8, out *Outbox) (uint8, error) {
	if err := s.checkController(FeatRemoteTarget | FeatMetadata); err != nil {
		return 0, err
	}
	if !attr.IsValid() {
		return 0, fmt.Errorf("%w: attribute 0x%02X", ErrInvalidArgument, uint8(attr))
	}
	cmd := wire.SetPlayerAppValue{Settings: []wire.AttrValue{{Attr: attr, Value: value}}}
	return s.sendCommand(cmd, wire.CodeControl, out)
}

// GetPlayStatus asks the peer for song length, position and state.
func (s *Session) GetPlayStatus(out *Outbox) (uint8, error) {
	if err := s.checkController(FeatRemoteTarget | FeatMetadata); err != nil {
		return 0, err
	}
	return s.sendCommand(wire.GetPlayStatus{}, wire.CodeStatus, out)
}
