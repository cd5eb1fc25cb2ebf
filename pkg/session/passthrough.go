package session

import (
	"github.com/avrcp-protocol/avrcp-go/pkg/log"
	"github.com/avrcp-protocol/avrcp-go/pkg/transport"
	"github.com/avrcp-protocol/avrcp-go/pkg/wire"
)

// Linux input key codes used for pass-through keys.
const (
	KeyNextSong     uint16 = 163
	KeyPreviousSong uint16 = 165
	KeyStopCD       uint16 = 166
	KeyRewind       uint16 = 168
	KeyPlayCD       uint16 = 200
	KeyPauseCD      uint16 = 201
	KeyFastForward  uint16 = 208
)

type keyMapping struct {
	name string
	op   wire.PassThroughOp
	code uint16

	// releaseQuirk keys get a synthetic release right after the press;
	// the genuine release is swallowed.
	releaseQuirk bool
}

var keyMap = []keyMapping{
	{"PLAY", wire.OpPlay, KeyPlayCD, true},
	{"STOP", wire.OpStop, KeyStopCD, false},
	{"PAUSE", wire.OpPause, KeyPauseCD, true},
	{"FORWARD", wire.OpForward, KeyNextSong, false},
	{"BACKWARD", wire.OpBackward, KeyPreviousSong, false},
}

func lookupKey(op wire.PassThroughOp) (keyMapping, bool) {
	for _, k := range keyMap {
		if k.op == op {
			return k, true
		}
	}
	return keyMapping{}, false
}

// HandlePassThrough processes a pass-through command from the peer
// controller. The command is answered first; supported keys are then
// injected, queued or reported to the application.
func (s *Session) HandlePassThrough(msg transport.Message, out *Outbox) {
	if !s.Connected() {
		return
	}
	s.captureMessage(log.DirectionIn, msg)

	pt, err := wire.ParsePassThrough(msg.Payload)
	if err != nil {
		s.logger.Debug("malformed pass-through dropped", "label", msg.Label, "error", err)
		s.captureError(log.LayerWire, err.Error(), "pass-through")
		return
	}

	rsp := transport.Message{
		Handle:  s.handle,
		Label:   msg.Label,
		Code:    wire.CodeAccepted,
		Opcode:  wire.OpcodePassThrough,
		Payload: msg.Payload,
	}
	if !s.cfg.Roles.Has(RoleTarget) || !s.cfg.PassThrough.Has(pt.Op) {
		rsp.Code = wire.CodeNotImplemented
		s.transmit(out, rsp)
		s.logger.Debug("pass-through not supported", "key", pt.Op)
		return
	}
	s.transmit(out, rsp)

	s.processKey(pt.Op, pt.State, msg.Label, out)
}

// processKey applies the key handling rules to one accepted key event.
func (s *Session) processKey(op wire.PassThroughOp, state wire.KeyState, label uint8, out *Outbox) {
	pressed := state == wire.KeyPressed

	if op == wire.OpPlay && !s.audioOpen {
		if pressed {
			s.logger.Warn("audio not open, queuing PLAY")
			s.pendingPlay = true
			s.captureKey(op, state, log.KeyActionQueued)
			return
		}
		s.captureKey(op, state, log.KeyActionDropped)
		return
	}
	if op == wire.OpPause && s.pendingPlay {
		s.logger.Warn("PAUSE clears queued PLAY")
		s.pendingPlay = false
		s.captureKey(op, state, log.KeyActionDropped)
		return
	}
	if op == wire.OpStop && !s.audioStarted {
		s.logger.Warn("stream not started, ignoring STOP")
		s.captureKey(op, state, log.KeyActionDropped)
		return
	}

	// Some carkits send PLAY or PAUSE on their own right after a call.
	if (op == wire.OpPlay || op == wire.OpPause) && s.callEndedRecently() && !isHeadset(s.cod) {
		s.logger.Debug("dropping key right after call end", "key", op)
		s.captureKey(op, state, log.KeyActionDropped)
		return
	}

	if op == wire.OpFastForward || op == wire.OpRewind {
		s.captureKey(op, state, log.KeyActionForwarded)
		out.emit(PassThroughEvent{Handle: s.handle, Label: label, Op: op, State: state})
		return
	}

	k, ok := lookupKey(op)
	if !ok {
		s.captureKey(op, state, log.KeyActionForwarded)
		out.emit(PassThroughEvent{Handle: s.handle, Label: label, Op: op, State: state})
		return
	}
	if k.releaseQuirk && !pressed {
		s.logger.Debug("release already faked, swallowing", "key", k.name)
		s.captureKey(op, state, log.KeyActionDropped)
		return
	}

	out.key(k.code, pressed)
	s.captureKey(op, state, log.KeyActionInjected)
	if k.releaseQuirk && pressed {
		code := k.code
		out.after(s.cfg.ReleaseQuirkDelay, func(_ *Session, o *Outbox) {
			o.key(code, false)
		})
	}
}

func (s *Session) callEndedRecently() bool {
	if s.callEnded.IsZero() {
		return false
	}
	return s.now().Sub(s.callEnded) < s.cfg.CallEndGuard
}

// flushPendingPlay replays a queued PLAY once audio is open: a press
// after PendingPlayDelay and a release PendingPlayReleaseDelay later.
func (s *Session) flushPendingPlay(out *Outbox) {
	connID := s.connID
	out.after(s.cfg.PendingPlayDelay, func(s *Session, o *Outbox) {
		if s.connID != connID {
			return
		}
		s.processKey(wire.OpPlay, wire.KeyPressed, 0, o)
		o.after(s.cfg.PendingPlayReleaseDelay, func(s *Session, o *Outbox) {
			if s.connID != connID {
				return
			}
			s.processKey(wire.OpPlay, wire.KeyReleased, 0, o)
		})
	})
}

// HandlePassThroughResponse reports the peer's answer to a pass-through
// command sent as controller and frees its label.
func (s *Session) HandlePassThroughResponse(msg transport.Message, out *Outbox) {
	if !s.Connected() {
		return
	}
	s.captureMessage(log.DirectionIn, msg)

	if _, err := s.pool.Lookup(msg.Label); err != nil {
		s.logger.Debug("discarding pass-through response", "label", msg.Label, "code", msg.Code)
		return
	}
	s.pool.Release(msg.Label)

	pt, err := wire.ParsePassThrough(msg.Payload)
	if err != nil {
		s.logger.Debug("malformed pass-through response", "label", msg.Label, "error", err)
		return
	}
	if !s.features.Has(FeatRemoteTarget) {
		s.logger.Warn("pass-through response from peer without target role")
		return
	}
	out.emit(PassThroughResponseEvent{
		Handle: s.handle,
		Label:  msg.Label,
		Op:     pt.Op,
		State:  pt.State,
		Code:   msg.Code,
	})
}
