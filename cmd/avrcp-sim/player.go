package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/avrcp-protocol/avrcp-go/pkg/session"
	"github.com/avrcp-protocol/avrcp-go/pkg/transport"
	"github.com/avrcp-protocol/avrcp-go/pkg/wire"
)

// Track is one entry of the simulated play list.
type Track struct {
	Title  string        `yaml:"title"`
	Artist string        `yaml:"artist"`
	Album  string        `yaml:"album"`
	Genre  string        `yaml:"genre"`
	Length time.Duration `yaml:"length"`
}

func defaultTracks() []Track {
	return []Track{
		{Title: "Morning Drive", Artist: "The Relays", Album: "Short Range", Genre: "Rock", Length: 3*time.Minute + 12*time.Second},
		{Title: "Pairing Song", Artist: "The Relays", Album: "Short Range", Genre: "Rock", Length: 4*time.Minute + 5*time.Second},
		{Title: "Interim", Artist: "Label Nine", Album: "Changed", Genre: "Electronic", Length: 2*time.Minute + 48*time.Second},
	}
}

// targetAPI is the part of the dispatcher the player answers through.
type targetAPI interface {
	SendNotification(h transport.Handle, kind session.NotificationKind, param wire.NotificationParam) error
	ReplyGetPlayStatus(h transport.Handle, rsp wire.GetPlayStatusResponse) error
	ReplyGetElementAttributes(h transport.Handle, attrs []wire.ElementAttribute) error
	RejectPending(h transport.Handle, pdu wire.PduID, status wire.Status) error
}

type registration struct {
	interval time.Duration
	reported time.Duration
}

type notification struct {
	handle transport.Handle
	kind   session.NotificationKind
	param  wire.NotificationParam
}

// PlayerState is a snapshot of the simulated player.
type PlayerState struct {
	Track    Track
	Index    int
	Count    int
	Status   wire.PlayStatus
	Position time.Duration
	Volume   uint8
}

// Player is a simulated media source. It answers metadata and status
// queries, keeps notification registrations and reacts to injected keys.
type Player struct {
	api    targetAPI
	logger *slog.Logger

	mu       sync.Mutex
	tracks   []Track
	index    int
	status   wire.PlayStatus
	position time.Duration
	volume   uint8
	battery  wire.BatteryStatus
	regs     map[transport.Handle]map[wire.EventID]*registration
}

// NewPlayer creates a stopped player at the first track.
func NewPlayer(api targetAPI, cfg PlayerConfig, logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p := &Player{
		api:    api,
		logger: logger,
		tracks: cfg.Tracks,
		status: wire.PlayStatusStopped,
		volume: cfg.Volume,
		regs:   make(map[transport.Handle]map[wire.EventID]*registration),
	}
	if b, err := parseBattery(cfg.Battery); err == nil {
		p.battery = b
	}
	return p
}

// State returns a snapshot of the player.
func (p *Player) State() PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := PlayerState{
		Index:    p.index,
		Count:    len(p.tracks),
		Status:   p.status,
		Position: p.position,
		Volume:   p.volume,
	}
	if len(p.tracks) > 0 {
		st.Track = p.tracks[p.index]
	}
	return st
}

// Describe summarizes the player state on one line.
func (p *Player) Describe() string {
	st := p.State()
	if st.Count == 0 {
		return fmt.Sprintf("%s, no tracks, volume %d", st.Status, st.Volume)
	}
	return fmt.Sprintf("%s %q by %s (%d/%d) %s/%s, volume %d",
		st.Status, st.Track.Title, st.Track.Artist, st.Index+1, st.Count,
		st.Position.Truncate(time.Second), st.Track.Length, st.Volume)
}

// HandleEvent reacts to engine events for the target role.
func (p *Player) HandleEvent(ev session.Event) {
	switch e := ev.(type) {
	case session.ConnectionStateEvent:
		if !e.Connected {
			p.mu.Lock()
			delete(p.regs, e.Handle)
			p.mu.Unlock()
		}

	case session.GetPlayStatusEvent:
		if err := p.api.ReplyGetPlayStatus(e.Handle, p.playStatus()); err != nil {
			p.logger.Warn("play status reply failed", "handle", e.Handle, "error", err)
		}

	case session.GetElementAttributesEvent:
		attrs := p.attributes(e.Attrs)
		var err error
		if len(attrs) == 0 {
			err = p.api.RejectPending(e.Handle, wire.PduGetElementAttributes, wire.StatusNotFound)
		} else {
			err = p.api.ReplyGetElementAttributes(e.Handle, attrs)
		}
		if err != nil {
			p.logger.Warn("element attributes reply failed", "handle", e.Handle, "error", err)
		}

	case session.RegisterNotificationEvent:
		p.register(e)

	case session.SetAbsoluteVolumeEvent:
		p.mu.Lock()
		p.volume = e.Volume
		p.mu.Unlock()
		p.logger.Info("volume set by peer", "handle", e.Handle, "volume", e.Volume)

	case session.SetPlayerAppValueEvent:
		p.logger.Info("player settings changed", "handle", e.Handle, "settings", e.Settings)
		p.notify(wire.AppSettingsParam{Settings: e.Settings})

	case session.BatteryStatusEvent:
		p.mu.Lock()
		p.battery = e.Status
		p.mu.Unlock()
		p.logger.Info("peer battery status", "handle", e.Handle, "status", e.Status)
	}
}

// InjectKey implements session.KeyInjector. Only presses act on the
// player.
func (p *Player) InjectKey(code uint16, pressed bool) error {
	p.logger.Debug("key", "code", code, "pressed", pressed)
	if !pressed {
		return nil
	}
	switch code {
	case session.KeyPlayCD:
		p.Play()
	case session.KeyPauseCD:
		p.Pause()
	case session.KeyStopCD:
		p.Stop()
	case session.KeyNextSong:
		p.Next()
	case session.KeyPreviousSong:
		p.Previous()
	case session.KeyFastForward:
		p.Seek(10 * time.Second)
	case session.KeyRewind:
		p.Seek(-10 * time.Second)
	}
	return nil
}

// Play starts playback.
func (p *Player) Play() { p.setStatus(wire.PlayStatusPlaying) }

// Pause pauses playback.
func (p *Player) Pause() { p.setStatus(wire.PlayStatusPaused) }

// Stop stops playback and rewinds the current track.
func (p *Player) Stop() {
	p.mu.Lock()
	p.position = 0
	p.mu.Unlock()
	p.setStatus(wire.PlayStatusStopped)
}

// Next skips to the following track, wrapping at the end of the list.
func (p *Player) Next() { p.skip(1) }

// Previous returns to the start of the track, or to the previous track
// when already near the start.
func (p *Player) Previous() {
	p.mu.Lock()
	if p.position > 3*time.Second {
		p.position = 0
		p.mu.Unlock()
		p.notify(wire.EmptyParam{ID: wire.EventTrackReachedStart})
		p.notifyPosition()
		return
	}
	p.mu.Unlock()
	p.skip(-1)
}

// Seek moves the position by d within the current track.
func (p *Player) Seek(d time.Duration) {
	p.mu.Lock()
	if len(p.tracks) == 0 {
		p.mu.Unlock()
		return
	}
	p.position = min(max(p.position+d, 0), p.tracks[p.index].Length)
	p.mu.Unlock()
	p.notifyPosition()
}

// SetVolume changes the local volume and reports it to registered peers.
func (p *Player) SetVolume(v uint8) {
	v = min(v, wire.MaxVolume)
	p.mu.Lock()
	changed := p.volume != v
	p.volume = v
	p.mu.Unlock()
	if changed {
		p.notify(wire.VolumeParam{Volume: v})
	}
}

// Tick advances playback by d.
func (p *Player) Tick(d time.Duration) {
	p.mu.Lock()
	if p.status != wire.PlayStatusPlaying || len(p.tracks) == 0 {
		p.mu.Unlock()
		return
	}
	p.position += d
	ended := p.position >= p.tracks[p.index].Length
	p.mu.Unlock()

	if ended {
		p.notify(wire.EmptyParam{ID: wire.EventTrackReachedEnd})
		p.skip(1)
		return
	}
	p.reportPositions()
}

// Run advances the player every tick until ctx is done.
func (p *Player) Run(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Tick(tick)
		}
	}
}

func (p *Player) setStatus(s wire.PlayStatus) {
	p.mu.Lock()
	changed := p.status != s
	p.status = s
	p.mu.Unlock()
	if changed {
		p.logger.Info("playback status", "status", s)
		p.notify(wire.PlayStatusParam{Status: s})
		p.notifyPosition()
	}
}

func (p *Player) skip(step int) {
	p.mu.Lock()
	if len(p.tracks) == 0 {
		p.mu.Unlock()
		return
	}
	p.index = (p.index + step + len(p.tracks)) % len(p.tracks)
	p.position = 0
	title := p.tracks[p.index].Title
	p.mu.Unlock()

	p.logger.Info("track changed", "title", title)
	p.notify(p.trackParam())
	p.notify(wire.EmptyParam{ID: wire.EventTrackReachedStart})
	p.notifyPosition()
}

func (p *Player) playStatus() wire.GetPlayStatusResponse {
	p.mu.Lock()
	defer p.mu.Unlock()
	rsp := wire.GetPlayStatusResponse{
		SongLength:   0xFFFFFFFF,
		SongPosition: 0xFFFFFFFF,
		Status:       p.status,
	}
	if len(p.tracks) > 0 {
		rsp.SongLength = uint32(p.tracks[p.index].Length.Milliseconds())
		rsp.SongPosition = uint32(p.position.Milliseconds())
	}
	return rsp
}

// attributes returns the requested attributes of the current track, all
// of them when none are named.
func (p *Player) attributes(ids []wire.MediaAttrID) []wire.ElementAttribute {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.tracks) == 0 {
		return nil
	}
	if len(ids) == 0 {
		ids = []wire.MediaAttrID{
			wire.MediaAttrTitle, wire.MediaAttrArtist, wire.MediaAttrAlbum, wire.MediaAttrTrackNum,
			wire.MediaAttrNumTracks, wire.MediaAttrGenre, wire.MediaAttrPlayingTime,
		}
	}

	t := p.tracks[p.index]
	attrs := make([]wire.ElementAttribute, 0, len(ids))
	for _, id := range ids {
		var v string
		switch id {
		case wire.MediaAttrTitle:
			v = t.Title
		case wire.MediaAttrArtist:
			v = t.Artist
		case wire.MediaAttrAlbum:
			v = t.Album
		case wire.MediaAttrTrackNum:
			v = strconv.Itoa(p.index + 1)
		case wire.MediaAttrNumTracks:
			v = strconv.Itoa(len(p.tracks))
		case wire.MediaAttrGenre:
			v = t.Genre
		case wire.MediaAttrPlayingTime:
			v = strconv.FormatInt(t.Length.Milliseconds(), 10)
		default:
			continue
		}
		attrs = append(attrs, wire.ElementAttribute{ID: id, Charset: wire.CharsetUTF8, Value: []byte(v)})
	}
	return attrs
}

// trackParam identifies the current track. Without browsing a selected
// track is reported as UID 0.
func (p *Player) trackParam() wire.TrackChangedParam {
	p.mu.Lock()
	defer p.mu.Unlock()
	var param wire.TrackChangedParam
	if len(p.tracks) == 0 {
		for i := range param.UID {
			param.UID[i] = 0xFF
		}
	}
	return param
}

// current returns the present value for event e, or nil when the player
// has nothing to report for it.
func (p *Player) current(e wire.EventID) wire.NotificationParam {
	switch e {
	case wire.EventPlaybackStatusChanged:
		p.mu.Lock()
		defer p.mu.Unlock()
		return wire.PlayStatusParam{Status: p.status}
	case wire.EventTrackChanged:
		return p.trackParam()
	case wire.EventTrackReachedEnd, wire.EventTrackReachedStart:
		return wire.EmptyParam{ID: e}
	case wire.EventPlayPosChanged:
		p.mu.Lock()
		defer p.mu.Unlock()
		return wire.PlayPositionParam{Position: uint32(p.position.Milliseconds())}
	case wire.EventBattStatusChanged:
		p.mu.Lock()
		defer p.mu.Unlock()
		return wire.BatteryStatusParam{Status: p.battery}
	case wire.EventSystemStatusChanged:
		return wire.SystemStatusParam{Status: wire.SystemPowerOn}
	case wire.EventVolumeChanged:
		p.mu.Lock()
		defer p.mu.Unlock()
		return wire.VolumeParam{Volume: p.volume}
	default:
		return nil
	}
}

func (p *Player) register(e session.RegisterNotificationEvent) {
	param := p.current(e.Event)
	if param == nil {
		p.logger.Debug("no value for registration", "event", e.Event)
		return
	}

	p.mu.Lock()
	regs := p.regs[e.Handle]
	if regs == nil {
		regs = make(map[wire.EventID]*registration)
		p.regs[e.Handle] = regs
	}
	regs[e.Event] = &registration{
		interval: time.Duration(e.PlaybackInterval) * time.Second,
		reported: p.position,
	}
	p.mu.Unlock()

	if err := p.api.SendNotification(e.Handle, session.NotifyInterim, param); err != nil {
		p.logger.Warn("interim notification failed", "handle", e.Handle, "event", e.Event, "error", err)
	}
}

// notify sends a CHANGED notification to every peer registered for the
// event of param. The registrations end with it.
func (p *Player) notify(param wire.NotificationParam) {
	e := param.Event()
	var pending []notification

	p.mu.Lock()
	for h, regs := range p.regs {
		if _, ok := regs[e]; ok {
			delete(regs, e)
			pending = append(pending, notification{handle: h, kind: session.NotifyChanged, param: param})
		}
	}
	p.mu.Unlock()

	p.send(pending)
}

func (p *Player) notifyPosition() {
	p.notify(p.current(wire.EventPlayPosChanged))
}

// reportPositions notifies peers whose playback interval has elapsed.
func (p *Player) reportPositions() {
	var pending []notification

	p.mu.Lock()
	param := wire.PlayPositionParam{Position: uint32(p.position.Milliseconds())}
	for h, regs := range p.regs {
		reg, ok := regs[wire.EventPlayPosChanged]
		if !ok || p.position-reg.reported < reg.interval {
			continue
		}
		delete(regs, wire.EventPlayPosChanged)
		pending = append(pending, notification{handle: h, kind: session.NotifyChanged, param: param})
	}
	p.mu.Unlock()

	p.send(pending)
}

func (p *Player) send(pending []notification) {
	for _, n := range pending {
		if err := p.api.SendNotification(n.handle, n.kind, n.param); err != nil {
			p.logger.Debug("notification not sent", "handle", n.handle, "event", n.param.Event(), "error", err)
		}
	}
}
