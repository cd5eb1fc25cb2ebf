package session

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avrcp-protocol/avrcp-go/pkg/log"
	"github.com/avrcp-protocol/avrcp-go/pkg/transaction"
	"github.com/avrcp-protocol/avrcp-go/pkg/transport"
	"github.com/avrcp-protocol/avrcp-go/pkg/wire"
)

const testHandle transport.Handle = 1

var testPeer = transport.BDAddr{0x00, 0x1A, 0x7D, 0xDA, 0x71, 0x13}

var testEpoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestSession(mutate func(*Config)) *Session {
	cfg := DefaultConfig()
	cfg.TimeNow = func() time.Time { return testEpoch }
	if mutate != nil {
		mutate(&cfg)
	}
	return New(testHandle, &cfg)
}

func openTestSession(s *Session, features Features) *Outbox {
	out := &Outbox{}
	s.Open(OpenEvent{Handle: testHandle, Peer: testPeer, Features: features}, out)
	return out
}

func vendorCommand(t *testing.T, label uint8, code wire.Code, cmd wire.Command) transport.Message {
	t.Helper()
	pkt, err := wire.BuildCommand(cmd)
	require.NoError(t, err)
	return transport.Message{Handle: testHandle, Label: label, Code: code, Opcode: wire.OpcodeVendor, Payload: pkt}
}

func vendorResponse(t *testing.T, label uint8, code wire.Code, rsp wire.Response) transport.Message {
	t.Helper()
	pkt, err := wire.BuildResponse(rsp)
	require.NoError(t, err)
	return transport.Message{Handle: testHandle, Label: label, Code: code, Opcode: wire.OpcodeVendor, Payload: pkt}
}

func rejectResponse(label uint8, pdu wire.PduID, status wire.Status) transport.Message {
	return transport.Message{
		Handle:  testHandle,
		Label:   label,
		Code:    wire.CodeRejected,
		Opcode:  wire.OpcodeVendor,
		Payload: wire.Reject(pdu, status),
	}
}

// eventsOf returns the events of type T in out.
func eventsOf[T Event](out *Outbox) []T {
	var found []T
	for _, ev := range out.Events {
		if e, ok := ev.(T); ok {
			found = append(found, e)
		}
	}
	return found
}

// fire runs every timer in out, ignoring delays, and returns what they
// produced.
func fire(s *Session, out *Outbox) *Outbox {
	next := &Outbox{}
	for _, tm := range out.Timers {
		tm.Fire(s, next)
	}
	return next
}

func parseSent(t *testing.T, msg transport.Message) wire.Response {
	t.Helper()
	rsp, _, err := wire.ParseResponse(msg.Payload, msg.Code)
	require.NoError(t, err)
	return rsp
}

func TestOpenReportsRoles(t *testing.T) {
	s := newTestSession(nil)
	out := openTestSession(s, FeatRemoteTarget|FeatRemoteController)

	assert.True(t, s.Connected())
	assert.Equal(t, testPeer, s.Peer())
	_, err := uuid.Parse(s.ConnectionID())
	assert.NoError(t, err)

	states := eventsOf[ConnectionStateEvent](out)
	require.Len(t, states, 2)
	assert.Equal(t, RoleTarget, states[0].Role)
	assert.Equal(t, RoleController, states[1].Role)
	assert.True(t, states[1].Connected)

	feats := eventsOf[RemoteFeaturesEvent](out)
	require.Len(t, feats, 1)
	assert.Equal(t, FeatRemoteTarget|FeatRemoteController, feats[0].Features)

	// No absolute volume support, so nothing is sent.
	assert.Empty(t, out.Messages)
}

func TestControllerRoleAppearsWithFeatures(t *testing.T) {
	s := newTestSession(nil)
	out := openTestSession(s, 0)

	states := eventsOf[ConnectionStateEvent](out)
	require.Len(t, states, 1)
	assert.Equal(t, RoleTarget, states[0].Role)
	assert.Empty(t, eventsOf[RemoteFeaturesEvent](out))

	out = &Outbox{}
	s.UpdateFeatures(FeaturesEvent{Handle: testHandle, Features: FeatRemoteTarget}, out)
	states = eventsOf[ConnectionStateEvent](out)
	require.Len(t, states, 1)
	assert.Equal(t, RoleController, states[0].Role)
	assert.Len(t, eventsOf[RemoteFeaturesEvent](out), 1)

	out = &Outbox{}
	s.UpdateFeatures(FeaturesEvent{Handle: testHandle, Features: FeatMetadata}, out)
	assert.Empty(t, eventsOf[ConnectionStateEvent](out))
	assert.Equal(t, FeatRemoteTarget|FeatMetadata, s.Features())
}

func TestCloseReportsAdvertisedRolesOnly(t *testing.T) {
	s := newTestSession(nil)
	openTestSession(s, FeatRemoteController)

	out := &Outbox{}
	s.Close(out)
	states := eventsOf[ConnectionStateEvent](out)
	require.Len(t, states, 1)
	assert.Equal(t, RoleTarget, states[0].Role)
	assert.False(t, states[0].Connected)
	assert.False(t, s.Connected())
	assert.Empty(t, s.ConnectionID())

	out = &Outbox{}
	s.Close(out)
	assert.True(t, out.Empty())
}

func TestCloseResetsState(t *testing.T) {
	s := newTestSession(func(c *Config) {
		c.TargetEvents = NewEventSet(wire.EventTrackChanged)
	})
	openTestSession(s, FeatRemoteTarget|FeatMetadata|FeatAdvancedControl)
	require.True(t, s.Pool().InUse(0))

	out := &Outbox{}
	s.HandleCommand(vendorCommand(t, 4, wire.CodeNotify, wire.RegisterNotification{Event: wire.EventTrackChanged}), out)
	require.True(t, s.Registered(wire.EventTrackChanged))

	s.Close(&Outbox{})
	assert.Equal(t, 0, s.Pool().Count())
	assert.Equal(t, transaction.InvalidLabel, s.VolumeLabel())
	assert.False(t, s.Registered(wire.EventTrackChanged))
}

func TestClosedSessionIgnoresTraffic(t *testing.T) {
	s := newTestSession(nil)
	out := &Outbox{}
	s.HandleCommand(vendorCommand(t, 0, wire.CodeStatus, wire.GetPlayStatus{}), out)
	s.HandleResponse(vendorResponse(t, 0, wire.CodeStable, wire.GetPlayStatusResponse{}), out)
	assert.True(t, out.Empty())

	err := s.SendNotification(NotifyChanged, wire.VolumeParam{Volume: 1}, out)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestVolumeRegistrationOnOpen(t *testing.T) {
	s := newTestSession(nil)
	out := openTestSession(s, FeatRemoteTarget|FeatAdvancedControl)

	require.Len(t, out.Messages, 1)
	msg := out.Messages[0]
	assert.Equal(t, wire.CodeNotify, msg.Code)
	assert.Equal(t, uint8(0), msg.Label)
	cmd, _, err := wire.ParseCommand(msg.Payload)
	require.NoError(t, err)
	assert.Equal(t, wire.RegisterNotification{Event: wire.EventVolumeChanged}, cmd)
	assert.Equal(t, uint8(0), s.VolumeLabel())

	// Rediscovery does not register twice.
	out = &Outbox{}
	s.UpdateFeatures(FeaturesEvent{Handle: testHandle, Features: FeatMetadata}, out)
	assert.Empty(t, out.Messages)
	assert.Equal(t, 1, s.Pool().Count())
}

func TestVolumeRegistrationNeedsCategory2(t *testing.T) {
	s := newTestSession(nil)
	out := &Outbox{}
	s.Open(OpenEvent{
		Handle:         testHandle,
		Peer:           testPeer,
		Features:       FeatRemoteTarget | FeatAdvancedControl,
		TargetFeatures: CatCategory1,
	}, out)
	assert.Empty(t, out.Messages)
	assert.Equal(t, transaction.InvalidLabel, s.VolumeLabel())
}

func TestVolumeChangedReregistersOnSameLabel(t *testing.T) {
	s := newTestSession(nil)
	openTestSession(s, FeatRemoteTarget|FeatAdvancedControl)

	out := &Outbox{}
	s.HandleResponse(vendorResponse(t, 0, wire.CodeInterim,
		wire.RegisterNotificationResponse{Param: wire.VolumeParam{Volume: 0x40}}), out)
	assert.Equal(t, []VolumeChangeEvent{{Handle: testHandle, Volume: 0x40, Interim: true}},
		eventsOf[VolumeChangeEvent](out))
	assert.Empty(t, out.Messages)

	out = &Outbox{}
	s.HandleResponse(vendorResponse(t, 0, wire.CodeChanged,
		wire.RegisterNotificationResponse{Param: wire.VolumeParam{Volume: 0x50}}), out)
	assert.Equal(t, []VolumeChangeEvent{{Handle: testHandle, Volume: 0x50}},
		eventsOf[VolumeChangeEvent](out))
	require.Len(t, out.Messages, 1)
	assert.Equal(t, uint8(0), out.Messages[0].Label)
	assert.Equal(t, wire.CodeNotify, out.Messages[0].Code)
	assert.Equal(t, uint8(0), s.VolumeLabel())
}

func TestVolumeRejectForgetsLabelButKeepsItHeld(t *testing.T) {
	s := newTestSession(nil)
	openTestSession(s, FeatRemoteTarget|FeatAdvancedControl)

	out := &Outbox{}
	s.HandleResponse(rejectResponse(0, wire.PduRegisterNotification, wire.StatusInternalError), out)
	assert.Empty(t, out.Events)
	assert.Equal(t, transaction.InvalidLabel, s.VolumeLabel())
	assert.True(t, s.Pool().InUse(0))

	// A later setup registers on a fresh label.
	out = &Outbox{}
	s.UpdateFeatures(FeaturesEvent{Handle: testHandle}, out)
	require.Len(t, out.Messages, 1)
	assert.Equal(t, uint8(1), out.Messages[0].Label)
	assert.Equal(t, uint8(1), s.VolumeLabel())
}

func TestVolumeNotificationOnForeignLabelDiscarded(t *testing.T) {
	s := newTestSession(nil)
	openTestSession(s, FeatRemoteTarget|FeatAdvancedControl|FeatMetadata)
	label, err := s.GetPlayStatus(&Outbox{})
	require.NoError(t, err)
	require.Equal(t, uint8(1), label)

	out := &Outbox{}
	s.HandleResponse(vendorResponse(t, label, wire.CodeChanged,
		wire.RegisterNotificationResponse{Param: wire.VolumeParam{Volume: 3}}), out)
	assert.True(t, out.Empty())
	assert.True(t, s.Pool().InUse(label))
}

func TestCaptureCarriesConnectionID(t *testing.T) {
	mem := log.NewMemoryLogger(0)
	s := newTestSession(func(c *Config) { c.ProtocolLogger = mem })
	openTestSession(s, FeatRemoteTarget|FeatAdvancedControl)

	events := mem.Events()
	require.NotEmpty(t, events)
	var sawState, sawMessage bool
	for _, ev := range events {
		assert.Equal(t, s.ConnectionID(), ev.ConnectionID)
		assert.Equal(t, testEpoch, ev.Timestamp)
		if ev.StateChange != nil && ev.StateChange.Entity == log.StateEntityConnection {
			sawState = true
			assert.Equal(t, "CONNECTED", ev.StateChange.NewState)
		}
		if ev.Message != nil {
			sawMessage = true
			require.NotNil(t, ev.Message.PDU)
			assert.Equal(t, wire.PduRegisterNotification, *ev.Message.PDU)
			assert.Equal(t, log.DirectionOut, ev.Direction)
		}
	}
	assert.True(t, sawState)
	assert.True(t, sawMessage)
}
