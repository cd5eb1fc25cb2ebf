package interactive

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avrcp-protocol/avrcp-go/pkg/service"
	"github.com/avrcp-protocol/avrcp-go/pkg/session"
	"github.com/avrcp-protocol/avrcp-go/pkg/transport"
	"github.com/avrcp-protocol/avrcp-go/pkg/wire"
)

type fakeController struct {
	handler service.EventHandler
	conns   []service.ConnectionInfo
	calls   []string
	label   uint8
}

func (f *fakeController) OnEvent(h service.EventHandler)         { f.handler = h }
func (f *fakeController) Connections() []service.ConnectionInfo { return f.conns }

func (f *fakeController) record(format string, args ...any) (uint8, error) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
	f.label++
	return f.label, nil
}

func (f *fakeController) SendPassThrough(h transport.Handle, op wire.PassThroughOp, state wire.KeyState) (uint8, error) {
	return f.record("key %d %s %s", h, op, state)
}

func (f *fakeController) GetElementAttributes(h transport.Handle, mask uint8) (uint8, error) {
	return f.record("meta %d 0x%02x", h, mask)
}

func (f *fakeController) GetCapabilities(h transport.Handle, id wire.CapabilityID) (uint8, error) {
	return f.record("caps %d %d", h, id)
}

func (f *fakeController) RegisterNotification(h transport.Handle, event wire.EventID, interval uint32) (uint8, error) {
	return f.record("register %d %s %d", h, event, interval)
}

func (f *fakeController) SetAbsoluteVolume(h transport.Handle, volume uint8) (uint8, error) {
	return f.record("vol %d %d", h, volume)
}

func (f *fakeController) SetPlayerAppValue(h transport.Handle, attr wire.PlayerAttrID, value uint8) (uint8, error) {
	return f.record("setting %d %d %d", h, attr, value)
}

func (f *fakeController) GetPlayStatus(h transport.Handle) (uint8, error) {
	return f.record("playstatus %d", h)
}

type fakePlayer struct {
	actions []string
}

func (p *fakePlayer) Play()             { p.actions = append(p.actions, "play") }
func (p *fakePlayer) Pause()            { p.actions = append(p.actions, "pause") }
func (p *fakePlayer) Stop()             { p.actions = append(p.actions, "stop") }
func (p *fakePlayer) Next()             { p.actions = append(p.actions, "next") }
func (p *fakePlayer) Previous()         { p.actions = append(p.actions, "prev") }
func (p *fakePlayer) SetVolume(v uint8) { p.actions = append(p.actions, fmt.Sprintf("vol %d", v)) }
func (p *fakePlayer) Describe() string  { return "PLAYING" }

func newTestShell(conns ...service.ConnectionInfo) (*Shell, *fakeController, *bytes.Buffer) {
	ctl := &fakeController{conns: conns}
	out := new(bytes.Buffer)
	return newShell(ctl, nil, out), ctl, out
}

func TestShellRequests(t *testing.T) {
	s, ctl, _ := newTestShell(service.ConnectionInfo{Handle: 4, Connected: true})

	for _, line := range []string{
		"play",
		"key select",
		"vol 100",
		"meta title artist",
		"meta",
		"ps",
		"caps company",
		"register track",
		"register play_pos 2",
		"setting repeat 2",
	} {
		require.NoError(t, s.Execute(line), line)
	}

	assert.Equal(t, []string{
		"key 4 PLAY PRESSED",
		"key 4 PLAY RELEASED",
		"key 4 SELECT PRESSED",
		"key 4 SELECT RELEASED",
		"vol 4 100",
		"meta 4 0x03",
		"meta 4 0x00",
		"playstatus 4",
		"caps 4 2",
		"register 4 TRACK_CHANGED 0",
		"register 4 PLAY_POS_CHANGED 2",
		"setting 4 2 2",
	}, ctl.calls)
}

func TestShellArgumentErrors(t *testing.T) {
	s, ctl, _ := newTestShell(service.ConnectionInfo{Handle: 1, Connected: true})

	for _, line := range []string{
		"vol 128",
		"vol",
		"meta cover",
		"caps players",
		"register nothing",
		"setting loudness 1",
		"key jump",
		"frobnicate",
		"player play",
	} {
		assert.Error(t, s.Execute(line), line)
	}
	assert.Empty(t, ctl.calls)
	assert.ErrorIs(t, s.Execute("quit"), errQuit)
	assert.NoError(t, s.Execute("   "))
}

func TestShellTargetSelection(t *testing.T) {
	s, ctl, out := newTestShell(
		service.ConnectionInfo{Handle: 1, Connected: false},
		service.ConnectionInfo{Handle: 2, Connected: true},
		service.ConnectionInfo{Handle: 3, Connected: true},
	)

	require.NoError(t, s.Execute("ps"))
	require.NoError(t, s.Execute("use 3"))
	require.NoError(t, s.Execute("ps"))
	assert.Equal(t, []string{"playstatus 2", "playstatus 3"}, ctl.calls)

	require.NoError(t, s.Execute("use 1"))
	assert.ErrorContains(t, s.Execute("ps"), "not connected")

	out.Reset()
	require.NoError(t, s.Execute("status"))
	assert.Contains(t, out.String(), "Connections: 3")
	assert.Contains(t, out.String(), " * [1]")

	empty, _, _ := newTestShell()
	assert.ErrorContains(t, empty.Execute("play"), "no connection")
}

func TestShellLocalPlayer(t *testing.T) {
	ctl := &fakeController{}
	player := &fakePlayer{}
	out := new(bytes.Buffer)
	s := newShell(ctl, player, out)

	for _, line := range []string{"player play", "player next", "player vol 20", "player"} {
		require.NoError(t, s.Execute(line), line)
	}
	assert.Equal(t, []string{"play", "next", "vol 20"}, player.actions)
	assert.Error(t, s.Execute("player vol 200"))
	assert.Contains(t, out.String(), "Player: PLAYING")
}

func TestShellPrintsEvents(t *testing.T) {
	_, ctl, out := newTestShell()
	require.NotNil(t, ctl.handler)

	ctl.handler(session.VolumeChangeEvent{Handle: 1, Volume: 0x30, Interim: true})
	ctl.handler(session.ElementAttributesEvent{Handle: 1, Attribute: wire.ElementAttribute{ID: wire.MediaAttrTitle, Value: []byte("Song")}})
	ctl.handler(session.PlayStatusEvent{Handle: 1, Response: wire.GetPlayStatusResponse{SongLength: 2000, SongPosition: 1000, Status: wire.PlayStatusPaused}})
	ctl.handler(session.RequestFailedEvent{Handle: 1, PDU: wire.PduGetPlayStatus, Code: wire.CodeRejected, Status: wire.StatusInternalError})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "[1] volume 48 (interim)", lines[0])
	assert.Equal(t, "[1] TITLE: Song", lines[1])
	assert.Equal(t, "[1] PAUSED 1000/2000 ms", lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "[1] "), lines[3])
}
