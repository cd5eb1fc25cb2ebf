package main

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avrcp-protocol/avrcp-go/pkg/session"
	"github.com/avrcp-protocol/avrcp-go/pkg/transport"
	"github.com/avrcp-protocol/avrcp-go/pkg/wire"
)

type sentNotification struct {
	handle transport.Handle
	kind   session.NotificationKind
	param  wire.NotificationParam
}

type fakeTarget struct {
	mu         sync.Mutex
	notes      []sentNotification
	playStatus []wire.GetPlayStatusResponse
	attrs      [][]wire.ElementAttribute
	rejected   []wire.Status
}

func (f *fakeTarget) SendNotification(h transport.Handle, kind session.NotificationKind, param wire.NotificationParam) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, sentNotification{h, kind, param})
	return nil
}

func (f *fakeTarget) ReplyGetPlayStatus(_ transport.Handle, rsp wire.GetPlayStatusResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playStatus = append(f.playStatus, rsp)
	return nil
}

func (f *fakeTarget) ReplyGetElementAttributes(_ transport.Handle, attrs []wire.ElementAttribute) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attrs = append(f.attrs, attrs)
	return nil
}

func (f *fakeTarget) RejectPending(_ transport.Handle, _ wire.PduID, status wire.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejected = append(f.rejected, status)
	return nil
}

func (f *fakeTarget) take() []sentNotification {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.notes
	f.notes = nil
	return n
}

func newTestPlayer(t *testing.T) (*Player, *fakeTarget) {
	t.Helper()
	api := &fakeTarget{}
	return NewPlayer(api, defaultConfig().Player, nil), api
}

func TestPlayerRegistrationLifecycle(t *testing.T) {
	p, api := newTestPlayer(t)

	p.HandleEvent(session.RegisterNotificationEvent{Handle: 1, Event: wire.EventPlaybackStatusChanged})
	notes := api.take()
	require.Len(t, notes, 1)
	assert.Equal(t, session.NotifyInterim, notes[0].kind)
	assert.Equal(t, wire.PlayStatusParam{Status: wire.PlayStatusStopped}, notes[0].param)

	p.Play()
	notes = api.take()
	require.Len(t, notes, 1)
	assert.Equal(t, session.NotifyChanged, notes[0].kind)
	assert.Equal(t, wire.PlayStatusParam{Status: wire.PlayStatusPlaying}, notes[0].param)

	// CHANGED ended the registration.
	p.Pause()
	assert.Empty(t, api.take())
}

func TestPlayerTrackChange(t *testing.T) {
	p, api := newTestPlayer(t)
	for _, e := range []wire.EventID{wire.EventTrackChanged, wire.EventTrackReachedStart} {
		p.HandleEvent(session.RegisterNotificationEvent{Handle: 2, Event: e})
	}
	api.take()

	p.Next()
	assert.Equal(t, 1, p.State().Index)
	notes := api.take()
	require.Len(t, notes, 2)
	assert.Equal(t, wire.TrackChangedParam{}, notes[0].param)
	assert.Equal(t, wire.EmptyParam{ID: wire.EventTrackReachedStart}, notes[1].param)

	p.Previous()
	p.Previous()
	assert.Equal(t, 2, p.State().Index, "previous wraps to the last track")
}

func TestPlayerTickEndsTrack(t *testing.T) {
	p, api := newTestPlayer(t)
	p.Play()
	p.HandleEvent(session.RegisterNotificationEvent{Handle: 1, Event: wire.EventTrackReachedEnd})
	p.HandleEvent(session.RegisterNotificationEvent{Handle: 1, Event: wire.EventPlayPosChanged, PlaybackInterval: 5})
	api.take()

	p.Tick(2 * time.Second)
	assert.Empty(t, api.take(), "interval not yet elapsed")

	p.Tick(3 * time.Second)
	notes := api.take()
	require.Len(t, notes, 1)
	assert.Equal(t, wire.PlayPositionParam{Position: 5000}, notes[0].param)

	p.Tick(defaultTracks()[0].Length)
	notes = api.take()
	require.NotEmpty(t, notes)
	assert.Equal(t, wire.EmptyParam{ID: wire.EventTrackReachedEnd}, notes[0].param)
	st := p.State()
	assert.Equal(t, 1, st.Index)
	assert.Zero(t, st.Position)
}

func TestPlayerAnswersQueries(t *testing.T) {
	p, api := newTestPlayer(t)
	p.Play()
	p.Tick(1500 * time.Millisecond)

	p.HandleEvent(session.GetPlayStatusEvent{Handle: 1})
	require.Len(t, api.playStatus, 1)
	assert.Equal(t, wire.GetPlayStatusResponse{
		SongLength:   uint32(defaultTracks()[0].Length.Milliseconds()),
		SongPosition: 1500,
		Status:       wire.PlayStatusPlaying,
	}, api.playStatus[0])

	p.HandleEvent(session.GetElementAttributesEvent{Handle: 1, Attrs: []wire.MediaAttrID{wire.MediaAttrTitle, wire.MediaAttrNumTracks}})
	require.Len(t, api.attrs, 1)
	assert.Equal(t, []wire.ElementAttribute{
		{ID: wire.MediaAttrTitle, Charset: wire.CharsetUTF8, Value: []byte("Morning Drive")},
		{ID: wire.MediaAttrNumTracks, Charset: wire.CharsetUTF8, Value: []byte("3")},
	}, api.attrs[0])

	p.HandleEvent(session.GetElementAttributesEvent{Handle: 1})
	require.Len(t, api.attrs, 2)
	assert.Len(t, api.attrs[1], 7)
}

func TestPlayerWithoutTracks(t *testing.T) {
	api := &fakeTarget{}
	p := NewPlayer(api, PlayerConfig{Volume: 10}, nil)

	p.HandleEvent(session.GetElementAttributesEvent{Handle: 1})
	assert.Equal(t, []wire.Status{wire.StatusNotFound}, api.rejected)

	p.HandleEvent(session.GetPlayStatusEvent{Handle: 1})
	assert.Equal(t, uint32(0xFFFFFFFF), api.playStatus[0].SongLength)

	p.HandleEvent(session.RegisterNotificationEvent{Handle: 1, Event: wire.EventTrackChanged})
	notes := api.take()
	require.Len(t, notes, 1)
	param := notes[0].param.(wire.TrackChangedParam)
	assert.Equal(t, [8]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, param.UID)
}

func TestPlayerKeys(t *testing.T) {
	p, _ := newTestPlayer(t)

	require.NoError(t, p.InjectKey(session.KeyPlayCD, true))
	require.NoError(t, p.InjectKey(session.KeyPlayCD, false))
	assert.Equal(t, wire.PlayStatusPlaying, p.State().Status)

	require.NoError(t, p.InjectKey(session.KeyFastForward, true))
	assert.Equal(t, 10*time.Second, p.State().Position)

	require.NoError(t, p.InjectKey(session.KeyNextSong, true))
	assert.Equal(t, 1, p.State().Index)

	require.NoError(t, p.InjectKey(session.KeyStopCD, true))
	st := p.State()
	assert.Equal(t, wire.PlayStatusStopped, st.Status)
	assert.Zero(t, st.Position)
}

func TestPlayerVolume(t *testing.T) {
	p, api := newTestPlayer(t)
	p.HandleEvent(session.RegisterNotificationEvent{Handle: 1, Event: wire.EventVolumeChanged})
	notes := api.take()
	require.Len(t, notes, 1)
	assert.Equal(t, wire.VolumeParam{Volume: 0x40}, notes[0].param)

	p.SetVolume(0x40)
	assert.Empty(t, api.take())

	p.SetVolume(0xFF)
	notes = api.take()
	require.Len(t, notes, 1)
	assert.Equal(t, wire.VolumeParam{Volume: wire.MaxVolume}, notes[0].param)

	p.HandleEvent(session.SetAbsoluteVolumeEvent{Handle: 1, Volume: 0x10})
	assert.Equal(t, uint8(0x10), p.State().Volume)
}

func TestPlayerDropsRegistrationsOnDisconnect(t *testing.T) {
	p, api := newTestPlayer(t)
	p.HandleEvent(session.RegisterNotificationEvent{Handle: 3, Event: wire.EventPlaybackStatusChanged})
	api.take()

	p.HandleEvent(session.ConnectionStateEvent{Handle: 3, Connected: false})
	p.Play()
	assert.Empty(t, api.take())
}
