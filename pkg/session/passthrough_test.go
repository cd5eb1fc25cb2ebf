package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avrcp-protocol/avrcp-go/pkg/transport"
	"github.com/avrcp-protocol/avrcp-go/pkg/wire"
)

func keyMessage(t *testing.T, label uint8, op wire.PassThroughOp, state wire.KeyState) transport.Message {
	t.Helper()
	payload, err := wire.EncodePassThrough(wire.PassThrough{Op: op, State: state})
	require.NoError(t, err)
	return transport.Message{
		Handle:  testHandle,
		Label:   label,
		Code:    wire.CodeControl,
		Opcode:  wire.OpcodePassThrough,
		Payload: payload,
	}
}

// press sends a key press and release and returns the combined outbox.
func press(t *testing.T, s *Session, op wire.PassThroughOp) *Outbox {
	t.Helper()
	out := &Outbox{}
	s.HandlePassThrough(keyMessage(t, 0, op, wire.KeyPressed), out)
	s.HandlePassThrough(keyMessage(t, 1, op, wire.KeyReleased), out)
	return out
}

func streamingTarget(t *testing.T, mutate func(*Config)) *Session {
	t.Helper()
	s := connectedTarget(t, mutate)
	s.AudioTransport(true, true, &Outbox{})
	return s
}

func TestPassThroughIsAnsweredFirst(t *testing.T) {
	s := streamingTarget(t, nil)

	out := &Outbox{}
	msg := keyMessage(t, 5, wire.OpForward, wire.KeyPressed)
	s.HandlePassThrough(msg, out)
	require.Len(t, out.Messages, 1)
	assert.Equal(t, wire.CodeAccepted, out.Messages[0].Code)
	assert.Equal(t, wire.OpcodePassThrough, out.Messages[0].Opcode)
	assert.Equal(t, uint8(5), out.Messages[0].Label)
	assert.Equal(t, msg.Payload, out.Messages[0].Payload)
	assert.Equal(t, []KeyPress{{Code: KeyNextSong, Pressed: true}}, out.Keys)
}

func TestUnsupportedKeyNotImplemented(t *testing.T) {
	s := streamingTarget(t, nil)

	out := &Outbox{}
	s.HandlePassThrough(keyMessage(t, 0, wire.OpSelect, wire.KeyPressed), out)
	require.Len(t, out.Messages, 1)
	assert.Equal(t, wire.CodeNotImplemented, out.Messages[0].Code)
	assert.Empty(t, out.Keys)
	assert.Empty(t, out.Events)
}

func TestMalformedPassThroughDropped(t *testing.T) {
	s := streamingTarget(t, nil)

	out := &Outbox{}
	s.HandlePassThrough(transport.Message{
		Handle:  testHandle,
		Opcode:  wire.OpcodePassThrough,
		Code:    wire.CodeControl,
		Payload: []byte{byte(wire.OpPlay)},
	}, out)
	assert.True(t, out.Empty())
}

func TestPlayReleaseQuirk(t *testing.T) {
	s := streamingTarget(t, nil)

	out := press(t, s, wire.OpPlay)
	assert.Equal(t, []KeyPress{{Code: KeyPlayCD, Pressed: true}}, out.Keys)
	require.Len(t, out.Timers, 1)
	assert.Equal(t, DefaultReleaseQuirkDelay, out.Timers[0].Delay)

	fired := fire(s, out)
	assert.Equal(t, []KeyPress{{Code: KeyPlayCD, Pressed: false}}, fired.Keys)
	assert.Empty(t, fired.Timers)
}

func TestStopNeedsStartedStream(t *testing.T) {
	s := connectedTarget(t, nil)
	s.AudioTransport(true, false, &Outbox{})

	out := press(t, s, wire.OpStop)
	assert.Len(t, out.Messages, 2)
	assert.Empty(t, out.Keys)

	s.AudioTransport(true, true, &Outbox{})
	out = press(t, s, wire.OpStop)
	assert.Equal(t, []KeyPress{{Code: KeyStopCD, Pressed: true}, {Code: KeyStopCD, Pressed: false}}, out.Keys)
	assert.Empty(t, out.Timers)
}

func TestSeekKeysReportedToApplication(t *testing.T) {
	s := streamingTarget(t, nil)

	for _, op := range []wire.PassThroughOp{wire.OpFastForward, wire.OpRewind, wire.OpVolumeUp} {
		out := press(t, s, op)
		assert.Empty(t, out.Keys, op.String())
		evs := eventsOf[PassThroughEvent](out)
		require.Len(t, evs, 2, op.String())
		assert.Equal(t, PassThroughEvent{Handle: testHandle, Label: 0, Op: op, State: wire.KeyPressed}, evs[0])
		assert.Equal(t, wire.KeyReleased, evs[1].State)

		_, mapped := lookupKey(op)
		assert.False(t, mapped, op.String())
	}
}

func TestPlayQueuedThenPauseClearsIt(t *testing.T) {
	s := connectedTarget(t, nil)

	out := &Outbox{}
	s.HandlePassThrough(keyMessage(t, 0, wire.OpPlay, wire.KeyPressed), out)
	s.HandlePassThrough(keyMessage(t, 1, wire.OpPlay, wire.KeyReleased), out)
	assert.True(t, s.PendingPlay())
	assert.Len(t, out.Messages, 2)
	assert.Empty(t, out.Keys)

	out = press(t, s, wire.OpPause)
	assert.False(t, s.PendingPlay())
	assert.Empty(t, out.Keys)

	out = &Outbox{}
	s.AudioTransport(true, true, out)
	assert.True(t, out.Empty())
}

func TestQueuedPlayFlushedWhenAudioOpens(t *testing.T) {
	s := connectedTarget(t, nil)
	s.HandlePassThrough(keyMessage(t, 0, wire.OpPlay, wire.KeyPressed), &Outbox{})
	require.True(t, s.PendingPlay())

	out := &Outbox{}
	s.AudioTransport(true, false, out)
	assert.False(t, s.PendingPlay())
	assert.Empty(t, out.Keys)
	require.Len(t, out.Timers, 1)
	assert.Equal(t, DefaultPendingPlayDelay, out.Timers[0].Delay)

	pressed := fire(s, out)
	assert.Equal(t, []KeyPress{{Code: KeyPlayCD, Pressed: true}}, pressed.Keys)
	require.Len(t, pressed.Timers, 2)
	assert.Equal(t, DefaultReleaseQuirkDelay, pressed.Timers[0].Delay)
	assert.Equal(t, DefaultPendingPlayReleaseDelay, pressed.Timers[1].Delay)

	// The quirk release goes out; the replayed release is swallowed.
	released := fire(s, pressed)
	assert.Equal(t, []KeyPress{{Code: KeyPlayCD, Pressed: false}}, released.Keys)
}

func TestQueuedPlayDroppedOnReconnect(t *testing.T) {
	s := connectedTarget(t, nil)
	s.HandlePassThrough(keyMessage(t, 0, wire.OpPlay, wire.KeyPressed), &Outbox{})

	out := &Outbox{}
	s.AudioTransport(true, true, out)
	require.Len(t, out.Timers, 1)

	s.Close(&Outbox{})
	openTestSession(s, FeatRemoteController)
	assert.True(t, fire(s, out).Empty())
}

func TestReconnectStartsWithAudioClosed(t *testing.T) {
	s := newTestSession(nil)
	s.Open(OpenEvent{Handle: testHandle, Peer: testPeer, ClassOfDevice: 0x200408}, &Outbox{})
	s.AudioTransport(true, true, &Outbox{})
	s.CallEnded(testEpoch)

	s.Close(&Outbox{})
	s.Open(OpenEvent{Handle: testHandle, Peer: testPeer, ClassOfDevice: 0x200408}, &Outbox{})

	out := press(t, s, wire.OpStop)
	assert.Empty(t, out.Keys)

	s.HandlePassThrough(keyMessage(t, 2, wire.OpPlay, wire.KeyPressed), &Outbox{})
	assert.True(t, s.PendingPlay())

	// The earlier call no longer guards PLAY once audio opens.
	out = &Outbox{}
	s.AudioTransport(true, true, out)
	require.Len(t, out.Timers, 1)
	played := fire(s, out)
	require.NotEmpty(t, played.Keys)
	assert.Equal(t, KeyPress{Code: KeyPlayCD, Pressed: true}, played.Keys[0])
}

func TestAudioCloseDropsQueuedPlay(t *testing.T) {
	s := connectedTarget(t, nil)
	s.HandlePassThrough(keyMessage(t, 0, wire.OpPlay, wire.KeyPressed), &Outbox{})

	out := &Outbox{}
	s.AudioTransport(false, false, out)
	assert.False(t, s.PendingPlay())
	assert.True(t, out.Empty())
}

func TestCallEndGuard(t *testing.T) {
	tests := []struct {
		name     string
		cod      uint32
		ago      time.Duration
		injected bool
	}{
		{name: "carkit right after call", cod: 0x200408, ago: 2 * time.Second},
		{name: "carkit after guard", cod: 0x200408, ago: 7 * time.Second, injected: true},
		{name: "headset right after call", cod: 0x240404, ago: time.Second, injected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(nil)
			s.Open(OpenEvent{Handle: testHandle, Peer: testPeer, ClassOfDevice: tt.cod}, &Outbox{})
			s.AudioTransport(true, true, &Outbox{})
			s.CallEnded(testEpoch.Add(-tt.ago))

			out := press(t, s, wire.OpPause)
			if tt.injected {
				assert.Equal(t, []KeyPress{{Code: KeyPauseCD, Pressed: true}}, out.Keys)
			} else {
				assert.Empty(t, out.Keys)
			}
			// Keys outside the guard are not affected.
			out = press(t, s, wire.OpForward)
			assert.Len(t, out.Keys, 2)
		})
	}
}

func TestPassThroughResponseReported(t *testing.T) {
	s := newTestSession(nil)
	openTestSession(s, FeatRemoteTarget)

	out := &Outbox{}
	label, err := s.SendPassThrough(wire.OpVolumeUp, wire.KeyPressed, out)
	require.NoError(t, err)
	require.Len(t, out.Messages, 1)
	sent := out.Messages[0]
	assert.Equal(t, wire.OpcodePassThrough, sent.Opcode)
	assert.Equal(t, wire.CodeControl, sent.Code)

	rsp := sent
	rsp.Code = wire.CodeAccepted
	out = &Outbox{}
	s.HandlePassThroughResponse(rsp, out)
	assert.Equal(t, []PassThroughResponseEvent{{
		Handle: testHandle,
		Label:  label,
		Op:     wire.OpVolumeUp,
		State:  wire.KeyPressed,
		Code:   wire.CodeAccepted,
	}}, eventsOf[PassThroughResponseEvent](out))
	assert.False(t, s.Pool().InUse(label))

	out = &Outbox{}
	s.HandlePassThroughResponse(rsp, out)
	assert.True(t, out.Empty())
}
