package session

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/avrcp-protocol/avrcp-go/pkg/fragment"
	"github.com/avrcp-protocol/avrcp-go/pkg/log"
	"github.com/avrcp-protocol/avrcp-go/pkg/transaction"
	"github.com/avrcp-protocol/avrcp-go/pkg/transport"
	"github.com/avrcp-protocol/avrcp-go/pkg/wire"
)

// notificationSlot tracks one peer registration as target.
type notificationSlot struct {
	registered     bool
	interimPending bool
	label          uint8
}

type replyKind uint8

const (
	replyPlayStatus replyKind = iota
	replyElementAttributes
	numReplyKinds
)

// pendingReply is a command waiting for the application to answer.
type pendingReply struct {
	code    wire.Code
	label   uint8
	pending bool
}

// volumeUnknown marks that the peer has not reported a volume yet.
const volumeUnknown = -1

// Session is the state of one AVRCP connection.
type Session struct {
	cfg    *Config
	logger *slog.Logger
	plog   log.Logger
	now    func() time.Time

	handle transport.Handle
	state  State
	connID string
	peer   transport.BDAddr
	cod    uint32

	features   Features
	tgFeatures CategoryFeatures
	ctFeatures CategoryFeatures

	pool     *transaction.Pool
	volLabel uint8
	volume   int

	notif   [wire.NumEvents]notificationSlot
	replies [numReplyKinds]pendingReply

	assembler *fragment.Assembler
	asmLabel  uint8
	splitter  fragment.Splitter
	splitCode wire.Code

	settings []PlayerSetting

	audioOpen    bool
	audioStarted bool
	pendingPlay  bool
	callEnded    time.Time
}

// New creates a disconnected session for handle h. cfg is shared and
// must outlive the session.
func New(h transport.Handle, cfg *Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := cfg.TimeNow
	if now == nil {
		now = time.Now
	}
	s := &Session{
		cfg:       cfg,
		logger:    logger.With("handle", h),
		plog:      cfg.ProtocolLogger,
		now:       now,
		handle:    h,
		pool:      transaction.NewPool(),
		volLabel:  transaction.InvalidLabel,
		volume:    volumeUnknown,
		assembler: fragment.NewAssembler(cfg.MaxMessageSize, logger),
		asmLabel:  transaction.InvalidLabel,
	}
	s.resetSettings()
	return s
}

// Handle returns the connection handle.
func (s *Session) Handle() transport.Handle { return s.handle }

// State returns the connection state.
func (s *Session) State() State { return s.state }

// Connected reports whether the session is connected.
func (s *Session) Connected() bool { return s.state == StateConnected }

// Peer returns the peer address.
func (s *Session) Peer() transport.BDAddr { return s.peer }

// Features returns the peer feature bitmask.
func (s *Session) Features() Features { return s.features }

// ConnectionID returns the capture correlation id of the current
// connection, empty when disconnected.
func (s *Session) ConnectionID() string { return s.connID }

// Pool returns the transaction pool.
func (s *Session) Pool() *transaction.Pool { return s.pool }

// VolumeLabel returns the label of the volume registration, or
// transaction.InvalidLabel.
func (s *Session) VolumeLabel() uint8 { return s.volLabel }

// Registered reports whether the peer holds a registration for e.
func (s *Session) Registered(e wire.EventID) bool {
	if !e.IsValid() {
		return false
	}
	return s.notif[e.Index()].registered
}

// PendingPlay reports whether a PLAY press is queued.
func (s *Session) PendingPlay() bool { return s.pendingPlay }

// Open adopts a new connection and resets all per-connection state.
func (s *Session) Open(ev OpenEvent, out *Outbox) {
	old := s.state
	s.reset()

	s.state = StateConnected
	s.connID = uuid.NewString()
	s.peer = ev.Peer
	s.cod = ev.ClassOfDevice
	s.features = ev.Features
	s.tgFeatures = ev.TargetFeatures
	s.ctFeatures = ev.ControllerFeatures

	s.logger.Info("connection opened", "peer", s.peer, "features", fmt.Sprintf("0x%04X", uint16(s.features)))
	s.captureState(log.StateEntityConnection, old.String(), s.state.String(), "open")

	if s.cfg.Roles.Has(RoleTarget) {
		out.emit(ConnectionStateEvent{Handle: s.handle, Role: RoleTarget, Connected: true, Peer: s.peer})
	}
	if s.cfg.Roles.Has(RoleController) && s.features.Has(FeatRemoteTarget) {
		out.emit(ConnectionStateEvent{Handle: s.handle, Role: RoleController, Connected: true, Peer: s.peer})
	}

	// Locally initiated connections report features with the open.
	if s.features != 0 {
		s.setupFeatures(out)
	}
}

// UpdateFeatures merges features discovered after the connection opened
// and re-runs feature-dependent setup.
func (s *Session) UpdateFeatures(ev FeaturesEvent, out *Outbox) {
	if !s.Connected() {
		s.logger.Debug("features for closed connection ignored")
		return
	}
	before := s.features
	s.features |= ev.Features
	s.tgFeatures |= ev.TargetFeatures
	s.ctFeatures |= ev.ControllerFeatures
	s.captureState(log.StateEntityFeatures, fmt.Sprintf("0x%04X", uint16(before)), fmt.Sprintf("0x%04X", uint16(s.features)), "discovery")

	if s.cfg.Roles.Has(RoleController) && !before.Has(FeatRemoteTarget) && s.features.Has(FeatRemoteTarget) {
		out.emit(ConnectionStateEvent{Handle: s.handle, Role: RoleController, Connected: true, Peer: s.peer})
	}
	s.setupFeatures(out)
}

// Close tears the connection down. Events are only reported for roles
// that were reported connected.
func (s *Session) Close(out *Outbox) {
	if !s.Connected() {
		return
	}
	peer, features := s.peer, s.features
	s.logger.Info("connection closed", "peer", peer)
	s.captureState(log.StateEntityConnection, s.state.String(), StateDisconnected.String(), "close")
	s.reset()

	if s.cfg.Roles.Has(RoleController) && features.Has(FeatRemoteTarget) {
		out.emit(ConnectionStateEvent{Handle: s.handle, Role: RoleController, Connected: false, Peer: peer})
	}
	if s.cfg.Roles.Has(RoleTarget) {
		out.emit(ConnectionStateEvent{Handle: s.handle, Role: RoleTarget, Connected: false, Peer: peer})
	}
}

func (s *Session) reset() {
	s.state = StateDisconnected
	s.connID = ""
	s.peer = transport.BDAddr{}
	s.cod = 0
	s.features = 0
	s.tgFeatures = 0
	s.ctFeatures = 0
	s.pool.Reset()
	s.volLabel = transaction.InvalidLabel
	s.volume = volumeUnknown
	s.notif = [wire.NumEvents]notificationSlot{}
	s.replies = [numReplyKinds]pendingReply{}
	s.assembler.Reset()
	s.asmLabel = transaction.InvalidLabel
	s.splitter.Reset()
	s.audioOpen = false
	s.audioStarted = false
	s.pendingPlay = false
	s.callEnded = time.Time{}
	s.resetSettings()
}

func (s *Session) resetSettings() {
	s.settings = make([]PlayerSetting, len(s.cfg.PlayerSettings))
	for i, st := range s.cfg.PlayerSettings {
		st.Values = append([]uint8(nil), st.Values...)
		s.settings[i] = st
	}
}

// setupFeatures reports the peer features and registers for volume
// changes when the peer target supports absolute volume.
func (s *Session) setupFeatures(out *Outbox) {
	out.emit(RemoteFeaturesEvent{
		Handle:             s.handle,
		Peer:               s.peer,
		Features:           s.features,
		TargetFeatures:     s.tgFeatures,
		ControllerFeatures: s.ctFeatures,
	})

	if !s.features.Has(FeatAdvancedControl | FeatRemoteTarget) {
		return
	}
	// Category flags are only known after SDP; until then assume a
	// category 2 target.
	if s.tgFeatures != 0 && !s.tgFeatures.Has(CatCategory2) {
		return
	}

	if s.volLabel != transaction.InvalidLabel && s.pool.InUse(s.volLabel) {
		s.logger.Debug("volume registration already in progress", "label", s.volLabel)
		return
	}
	tx, err := s.pool.Acquire(wire.OpcodeVendor, wire.PduRegisterNotification)
	if err != nil {
		s.logger.Warn("volume registration skipped", "error", err)
		return
	}
	s.volLabel = tx.Label
	s.captureState(log.StateEntityVolume, "", fmt.Sprintf("label %d", tx.Label), "register")
	s.registerVolume(out)
}

// registerVolume sends RegisterNotification(VolumeChanged) on the volume
// label. The label must still be held.
func (s *Session) registerVolume(out *Outbox) {
	if !s.pool.InUse(s.volLabel) {
		s.logger.Warn("volume label not held", "label", s.volLabel)
		return
	}
	pkt, err := wire.BuildCommand(wire.RegisterNotification{Event: wire.EventVolumeChanged})
	if err != nil {
		s.logger.Error("failed to build volume registration", "error", err)
		return
	}
	s.transmit(out, transport.Message{
		Handle:  s.handle,
		Label:   s.volLabel,
		Code:    wire.CodeNotify,
		Opcode:  wire.OpcodeVendor,
		Payload: pkt,
	})
}

// AudioTransport reports the state of the audio stream of the connection.
// Opening it flushes a queued PLAY; closing it drops the queued PLAY.
func (s *Session) AudioTransport(open, started bool, out *Outbox) {
	s.audioOpen = open
	s.audioStarted = open && started
	if !s.pendingPlay {
		return
	}
	s.pendingPlay = false
	if !open {
		s.captureKey(wire.OpPlay, wire.KeyPressed, log.KeyActionDropped)
		return
	}
	s.logger.Debug("audio open, replaying queued PLAY")
	s.flushPendingPlay(out)
}

// CallEnded records the end of a voice call at t.
func (s *Session) CallEnded(t time.Time) {
	s.callEnded = t
}

// transmit queues msg for sending and captures it.
func (s *Session) transmit(out *Outbox, msg transport.Message) {
	s.captureMessage(log.DirectionOut, msg)
	out.send(msg)
}

func (s *Session) captureMessage(dir log.Direction, msg transport.Message) {
	if s.plog == nil {
		return
	}
	me := &log.MessageEvent{Label: msg.Label, Code: msg.Code, Opcode: msg.Opcode}
	ev := s.event(dir, log.LayerWire, log.CategoryMessage)
	ev.Message = me

	switch msg.Opcode {
	case wire.OpcodeVendor:
		hdr, err := wire.DecodeHeader(msg.Payload)
		if err != nil {
			me.Payload = msg.Payload
			break
		}
		pdu, pt := hdr.PDU, hdr.PacketType
		me.PDU, me.PacketType = &pdu, &pt
		me.ParamLen = int(hdr.ParamLen)
		if msg.Code == wire.CodeRejected && len(msg.Payload) > wire.HeaderSize {
			st := wire.Status(msg.Payload[wire.HeaderSize])
			me.Status = &st
		}
	case wire.OpcodePassThrough:
		if pt, err := wire.ParsePassThrough(msg.Payload); err == nil {
			ev.Category = log.CategoryPassThrough
			ev.PassThrough = &log.PassThroughEvent{Op: pt.Op, State: pt.State, Action: log.KeyActionSent}
			if dir == log.DirectionIn {
				ev.PassThrough.Action = log.KeyActionForwarded
			}
		}
	}
	s.plog.Log(ev)
}

func (s *Session) captureState(entity log.StateEntity, oldState, newState, reason string) {
	if s.plog == nil {
		return
	}
	ev := s.event(log.DirectionIn, log.LayerSession, log.CategoryState)
	ev.StateChange = &log.StateChangeEvent{Entity: entity, OldState: oldState, NewState: newState, Reason: reason}
	s.plog.Log(ev)
}

func (s *Session) captureKey(op wire.PassThroughOp, state wire.KeyState, action log.KeyAction) {
	if s.plog == nil {
		return
	}
	ev := s.event(log.DirectionIn, log.LayerSession, log.CategoryPassThrough)
	ev.PassThrough = &log.PassThroughEvent{Op: op, State: state, Action: action}
	s.plog.Log(ev)
}

func (s *Session) captureError(layer log.Layer, msg, context string) {
	if s.plog == nil {
		return
	}
	ev := s.event(log.DirectionIn, layer, log.CategoryError)
	ev.Error = &log.ErrorEventData{Layer: layer, Message: msg, Context: context}
	s.plog.Log(ev)
}

func (s *Session) event(dir log.Direction, layer log.Layer, cat log.Category) log.Event {
	ev := log.Event{
		Timestamp:    s.now(),
		ConnectionID: s.connID,
		Direction:    dir,
		Layer:        layer,
		Category:     cat,
		Handle:       uint8(s.handle),
	}
	if !s.peer.IsZero() {
		ev.PeerAddr = s.peer.String()
	}
	return ev
}
