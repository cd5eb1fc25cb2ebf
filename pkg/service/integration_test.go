package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avrcp-protocol/avrcp-go/pkg/session"
	"github.com/avrcp-protocol/avrcp-go/pkg/transport"
	"github.com/avrcp-protocol/avrcp-go/pkg/wire"
)

const (
	tgHandle transport.Handle = 1
	ctHandle transport.Handle = 2
)

// pair runs a target and a controller dispatcher over a loopback link.
type pair struct {
	tg, ct     *Dispatcher
	tgEv, ctEv chan session.Event
	link       *transport.Loopback
	tgKeys     *mockKeys
}

func newPair(t *testing.T) *pair {
	t.Helper()
	p := &pair{
		tgEv:   make(chan session.Event, 64),
		ctEv:   make(chan session.Event, 64),
		link:   transport.NewLoopback(tgHandle, ctHandle),
		tgKeys: &mockKeys{},
	}

	tgCfg := DefaultConfig()
	tgCfg.Transport = p.link.A
	tgCfg.KeyInjector = p.tgKeys
	tgCfg.Session.Roles = session.RoleTarget
	tgCfg.Session.TargetEvents = session.NewEventSet(wire.EventVolumeChanged, wire.EventTrackChanged)

	ctCfg := DefaultConfig()
	ctCfg.Transport = p.link.B
	ctCfg.Session.Roles = session.RoleController

	var err error
	p.tg, err = New(tgCfg)
	require.NoError(t, err)
	p.ct, err = New(ctCfg)
	require.NoError(t, err)

	p.tg.OnEvent(func(ev session.Event) { p.tgEv <- ev })
	p.ct.OnEvent(func(ev session.Event) { p.ctEv <- ev })
	p.link.A.Attach(p.tg)
	p.link.B.Attach(p.ct)
	p.link.A.OnClose(func(h transport.Handle) { _ = p.tg.Close(h) })
	p.link.B.OnClose(func(h transport.Handle) { _ = p.ct.Close(h) })

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, p.tg.Start(ctx))
	require.NoError(t, p.ct.Start(ctx))
	t.Cleanup(func() {
		cancel()
		_ = p.tg.Stop()
		_ = p.ct.Stop()
		p.link.Shutdown()
	})
	return p
}

// await returns the next event of type T from ch, skipping others.
func await[T session.Event](t *testing.T, ch <-chan session.Event) T {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if e, ok := ev.(T); ok {
				return e
			}
		case <-deadline:
			var zero T
			t.Fatalf("timed out waiting for %T", zero)
			return zero
		}
	}
}

func (p *pair) connect(t *testing.T, ctFeatures session.Features) {
	t.Helper()
	require.NoError(t, p.tg.Open(session.OpenEvent{
		Handle:   tgHandle,
		Peer:     transport.BDAddr{0x02},
		Features: session.FeatRemoteController,
	}))
	require.NoError(t, p.ct.Open(session.OpenEvent{
		Handle:   ctHandle,
		Peer:     transport.BDAddr{0x01},
		Features: ctFeatures,
	}))
}

func TestLoopbackVolumeRegistration(t *testing.T) {
	p := newPair(t)
	p.tg.OnEvent(func(ev session.Event) {
		if reg, ok := ev.(session.RegisterNotificationEvent); ok && reg.Event == wire.EventVolumeChanged {
			_ = p.tg.SendNotification(reg.Handle, session.NotifyInterim, wire.VolumeParam{Volume: 0x30})
		}
	})
	p.connect(t, session.FeatRemoteTarget|session.FeatMetadata|session.FeatAdvancedControl)

	vol := await[session.VolumeChangeEvent](t, p.ctEv)
	assert.Equal(t, session.VolumeChangeEvent{Handle: ctHandle, Volume: 0x30, Interim: true}, vol)

	require.NoError(t, p.tg.SendNotification(tgHandle, session.NotifyChanged, wire.VolumeParam{Volume: 0x40}))
	vol = await[session.VolumeChangeEvent](t, p.ctEv)
	assert.Equal(t, uint8(0x40), vol.Volume)
	assert.False(t, vol.Interim)

	// The controller re-registered, so the target sees a second registration.
	regs := 0
	deadline := time.After(2 * time.Second)
	for regs < 2 {
		select {
		case ev := <-p.tgEv:
			if reg, ok := ev.(session.RegisterNotificationEvent); ok && reg.Event == wire.EventVolumeChanged {
				regs++
			}
		case <-deadline:
			t.Fatalf("saw %d volume registrations", regs)
		}
	}
}

func TestLoopbackPlayStatusRoundTrip(t *testing.T) {
	p := newPair(t)
	want := wire.GetPlayStatusResponse{SongLength: 240000, SongPosition: 12000, Status: wire.PlayStatusPlaying}
	p.tg.OnEvent(func(ev session.Event) {
		if req, ok := ev.(session.GetPlayStatusEvent); ok {
			_ = p.tg.ReplyGetPlayStatus(req.Handle, want)
		}
	})
	p.connect(t, session.FeatRemoteTarget|session.FeatMetadata)
	await[session.RemoteFeaturesEvent](t, p.ctEv)

	label, err := p.ct.GetPlayStatus(ctHandle)
	require.NoError(t, err)

	got := await[session.PlayStatusEvent](t, p.ctEv)
	assert.Equal(t, session.PlayStatusEvent{Handle: ctHandle, Label: label, Response: want}, got)
}

func TestLoopbackTrackMetadata(t *testing.T) {
	p := newPair(t)
	p.tg.OnEvent(func(ev session.Event) {
		if req, ok := ev.(session.GetElementAttributesEvent); ok {
			_ = p.tg.ReplyGetElementAttributes(req.Handle, []wire.ElementAttribute{
				{ID: wire.MediaAttrTitle, Charset: wire.CharsetUTF8, Value: []byte("Blue in Green")},
				{ID: wire.MediaAttrArtist, Charset: wire.CharsetUTF8, Value: []byte("Miles Davis")},
			})
		}
	})
	p.connect(t, session.FeatRemoteTarget|session.FeatMetadata)
	await[session.RemoteFeaturesEvent](t, p.ctEv)

	_, err := p.ct.GetElementAttributes(ctHandle, 0)
	require.NoError(t, err)

	titles := map[wire.MediaAttrID]string{}
	for len(titles) < 2 {
		ev := await[session.ElementAttributesEvent](t, p.ctEv)
		titles[ev.Attribute.ID] = string(ev.Attribute.Value)
	}
	assert.Equal(t, "Blue in Green", titles[wire.MediaAttrTitle])
	assert.Equal(t, "Miles Davis", titles[wire.MediaAttrArtist])
}

func TestLoopbackPassThrough(t *testing.T) {
	p := newPair(t)
	p.connect(t, session.FeatRemoteTarget)
	await[session.RemoteFeaturesEvent](t, p.ctEv)

	label, err := p.ct.SendPassThrough(ctHandle, wire.OpVolumeUp, wire.KeyPressed)
	require.NoError(t, err)

	key := await[session.PassThroughEvent](t, p.tgEv)
	assert.Equal(t, wire.OpVolumeUp, key.Op)

	rsp := await[session.PassThroughResponseEvent](t, p.ctEv)
	assert.Equal(t, label, rsp.Label)
	assert.Equal(t, wire.CodeAccepted, rsp.Code)
}

func TestLoopbackCloseTearsDownBothSides(t *testing.T) {
	p := newPair(t)
	p.connect(t, session.FeatRemoteTarget)
	await[session.RemoteFeaturesEvent](t, p.ctEv)

	require.NoError(t, p.link.B.Close(ctHandle))

	ctState := await[session.ConnectionStateEvent](t, p.ctEv)
	for ctState.Connected {
		ctState = await[session.ConnectionStateEvent](t, p.ctEv)
	}
	tgState := await[session.ConnectionStateEvent](t, p.tgEv)
	for tgState.Connected {
		tgState = await[session.ConnectionStateEvent](t, p.tgEv)
	}
	assert.Equal(t, session.RoleTarget, tgState.Role)

	require.Eventually(t, func() bool {
		return len(p.tg.Connections()) == 0 && len(p.ct.Connections()) == 0
	}, time.Second, 5*time.Millisecond)
}
