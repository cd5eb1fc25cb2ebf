// Package interactive provides the interactive command line of the
// AVRCP simulator.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/avrcp-protocol/avrcp-go/pkg/service"
	"github.com/avrcp-protocol/avrcp-go/pkg/session"
	"github.com/avrcp-protocol/avrcp-go/pkg/transport"
	"github.com/avrcp-protocol/avrcp-go/pkg/wire"
)

// Controller is the dispatcher API the shell drives.
type Controller interface {
	OnEvent(h service.EventHandler)
	Connections() []service.ConnectionInfo
	SendPassThrough(h transport.Handle, op wire.PassThroughOp, state wire.KeyState) (uint8, error)
	GetElementAttributes(h transport.Handle, mask uint8) (uint8, error)
	GetCapabilities(h transport.Handle, id wire.CapabilityID) (uint8, error)
	RegisterNotification(h transport.Handle, event wire.EventID, interval uint32) (uint8, error)
	SetAbsoluteVolume(h transport.Handle, volume uint8) (uint8, error)
	SetPlayerAppValue(h transport.Handle, attr wire.PlayerAttrID, value uint8) (uint8, error)
	GetPlayStatus(h transport.Handle) (uint8, error)
}

// Player is the local simulated media source, when there is one.
type Player interface {
	Play()
	Pause()
	Stop()
	Next()
	Previous()
	SetVolume(v uint8)
	Describe() string
}

// Shell handles interactive mode for avrcp-sim.
type Shell struct {
	ctl    Controller
	player Player
	rl     *readline.Instance
	out    io.Writer

	// handle selected with "use"; zero picks the first connection.
	handle transport.Handle
}

// errQuit ends the command loop.
var errQuit = errors.New("quit")

// New creates a shell. player may be nil when no local target runs.
func New(ctl Controller, player Player) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "avrcp> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	s := newShell(ctl, player, rl.Stdout())
	s.rl = rl
	return s, nil
}

func newShell(ctl Controller, player Player, out io.Writer) *Shell {
	s := &Shell{ctl: ctl, player: player, out: out}
	ctl.OnEvent(s.handleEvent)
	return s
}

// Stdout returns a writer that coordinates with the readline prompt.
// Use it for log output.
func (s *Shell) Stdout() io.Writer {
	return s.out
}

// Run reads commands until EOF, "quit" or ctx is done, then calls cancel.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}

		if err := s.Execute(line); err != nil {
			if errors.Is(err, errQuit) {
				fmt.Fprintln(s.out, "Exiting...")
				cancel()
				return
			}
			fmt.Fprintf(s.out, "Error: %v\n", err)
		}
	}
}

var keyShortcuts = map[string]wire.PassThroughOp{
	"play":    wire.OpPlay,
	"pause":   wire.OpPause,
	"stop":    wire.OpStop,
	"next":    wire.OpForward,
	"prev":    wire.OpBackward,
	"ff":      wire.OpFastForward,
	"rew":     wire.OpRewind,
	"volup":   wire.OpVolumeUp,
	"voldown": wire.OpVolumeDown,
	"mute":    wire.OpMute,
}

// Execute runs one command line.
func (s *Shell) Execute(line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	if op, ok := keyShortcuts[cmd]; ok {
		return s.cmdKey(op)
	}

	switch cmd {
	case "help", "?":
		s.printHelp()
		return nil
	case "quit", "exit", "q":
		return errQuit
	case "status", "s":
		s.cmdStatus()
		return nil
	case "use":
		return s.cmdUse(args)
	case "key", "k":
		if len(args) != 1 {
			return fmt.Errorf("usage: key <operation>")
		}
		op, err := wire.ParsePassThroughOp(args[0])
		if err != nil {
			return err
		}
		return s.cmdKey(op)
	case "vol", "v":
		return s.cmdVolume(args)
	case "meta", "m":
		return s.cmdMeta(args)
	case "playstatus", "ps":
		return s.request(func(h transport.Handle) (uint8, error) { return s.ctl.GetPlayStatus(h) })
	case "caps":
		return s.cmdCaps(args)
	case "register", "reg":
		return s.cmdRegister(args)
	case "setting", "set":
		return s.cmdSetting(args)
	case "player", "p":
		return s.cmdPlayer(args)
	default:
		return fmt.Errorf("unknown command: %s (type 'help' for commands)", cmd)
	}
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
Commands:
    status                 - Show connections and local player
    use <handle>           - Send requests on this connection
    play|pause|stop|next|prev|ff|rew|volup|voldown|mute
                           - Press and release a media key
    key <op>               - Press and release any operation (e.g. select, 0x41)
    vol <0-127>            - Set the peer's absolute volume
    meta [attr...]         - Get element attributes (title, artist, ...)
    playstatus             - Get play status
    caps [events|company]  - Get capabilities
    register <event> [s]   - Register for a notification (interval in s)
    setting <attr> <value> - Set a player application setting
    player <action>        - Drive the local player (play, pause, stop, next, prev, vol <n>)
    help                   - Show this help
    quit                   - Exit`)
}

// target returns the connection requests go to.
func (s *Shell) target() (transport.Handle, error) {
	conns := s.ctl.Connections()
	for _, c := range conns {
		if !c.Connected {
			continue
		}
		if s.handle == 0 || c.Handle == s.handle {
			return c.Handle, nil
		}
	}
	if s.handle != 0 {
		return 0, fmt.Errorf("handle %d is not connected", s.handle)
	}
	return 0, fmt.Errorf("no connection")
}

func (s *Shell) request(fn func(h transport.Handle) (uint8, error)) error {
	h, err := s.target()
	if err != nil {
		return err
	}
	label, err := fn(h)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "-> handle %d label %d\n", h, label)
	return nil
}

func (s *Shell) cmdStatus() {
	conns := s.ctl.Connections()
	fmt.Fprintf(s.out, "Connections: %d\n", len(conns))
	for _, c := range conns {
		marker := " "
		if c.Handle == s.handle {
			marker = "*"
		}
		state := "connecting"
		if c.Connected {
			state = "connected"
		}
		fmt.Fprintf(s.out, " %s [%d] %s %s features 0x%04x\n", marker, c.Handle, c.Peer, state, uint16(c.Features))
	}
	if s.player != nil {
		fmt.Fprintf(s.out, "Player: %s\n", s.player.Describe())
	}
}

func (s *Shell) cmdUse(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: use <handle>")
	}
	v, err := strconv.ParseUint(args[0], 0, 8)
	if err != nil {
		return fmt.Errorf("invalid handle: %s", args[0])
	}
	s.handle = transport.Handle(v)
	fmt.Fprintf(s.out, "Using handle %d\n", s.handle)
	return nil
}

func (s *Shell) cmdKey(op wire.PassThroughOp) error {
	h, err := s.target()
	if err != nil {
		return err
	}
	if _, err := s.ctl.SendPassThrough(h, op, wire.KeyPressed); err != nil {
		return err
	}
	_, err = s.ctl.SendPassThrough(h, op, wire.KeyReleased)
	return err
}

func (s *Shell) cmdVolume(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: vol <0-%d>", wire.MaxVolume)
	}
	v, err := strconv.ParseUint(args[0], 0, 8)
	if err != nil || v > wire.MaxVolume {
		return fmt.Errorf("invalid volume: %s", args[0])
	}
	return s.request(func(h transport.Handle) (uint8, error) { return s.ctl.SetAbsoluteVolume(h, uint8(v)) })
}

func (s *Shell) cmdMeta(args []string) error {
	var mask uint8
	for _, a := range args {
		id, err := wire.ParseMediaAttrID(a)
		if err != nil {
			return err
		}
		mask |= id.Mask()
	}
	return s.request(func(h transport.Handle) (uint8, error) { return s.ctl.GetElementAttributes(h, mask) })
}

func (s *Shell) cmdCaps(args []string) error {
	id := wire.CapabilityEventsSupported
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "events":
		case "company", "companies":
			id = wire.CapabilityCompanyID
		default:
			return fmt.Errorf("usage: caps [events|company]")
		}
	}
	return s.request(func(h transport.Handle) (uint8, error) { return s.ctl.GetCapabilities(h, id) })
}

func (s *Shell) cmdRegister(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: register <event> [interval]")
	}
	ev, err := wire.ParseEventID(args[0])
	if err != nil {
		return err
	}
	var interval uint64
	if len(args) == 2 {
		if interval, err = strconv.ParseUint(args[1], 0, 32); err != nil {
			return fmt.Errorf("invalid interval: %s", args[1])
		}
	}
	return s.request(func(h transport.Handle) (uint8, error) {
		return s.ctl.RegisterNotification(h, ev, uint32(interval))
	})
}

func (s *Shell) cmdSetting(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: setting <attr> <value>")
	}
	attr, err := wire.ParsePlayerAttrID(args[0])
	if err != nil {
		return err
	}
	v, err := strconv.ParseUint(args[1], 0, 8)
	if err != nil {
		return fmt.Errorf("invalid value: %s", args[1])
	}
	return s.request(func(h transport.Handle) (uint8, error) { return s.ctl.SetPlayerAppValue(h, attr, uint8(v)) })
}

func (s *Shell) cmdPlayer(args []string) error {
	if s.player == nil {
		return fmt.Errorf("no local player")
	}
	if len(args) == 0 {
		fmt.Fprintf(s.out, "Player: %s\n", s.player.Describe())
		return nil
	}
	switch strings.ToLower(args[0]) {
	case "play":
		s.player.Play()
	case "pause":
		s.player.Pause()
	case "stop":
		s.player.Stop()
	case "next":
		s.player.Next()
	case "prev":
		s.player.Previous()
	case "vol":
		if len(args) != 2 {
			return fmt.Errorf("usage: player vol <0-%d>", wire.MaxVolume)
		}
		v, err := strconv.ParseUint(args[1], 0, 8)
		if err != nil || v > wire.MaxVolume {
			return fmt.Errorf("invalid volume: %s", args[1])
		}
		s.player.SetVolume(uint8(v))
	default:
		return fmt.Errorf("unknown player action: %s", args[0])
	}
	fmt.Fprintf(s.out, "Player: %s\n", s.player.Describe())
	return nil
}

// handleEvent prints what the peer target reports.
func (s *Shell) handleEvent(ev session.Event) {
	switch e := ev.(type) {
	case session.ConnectionStateEvent:
		state := "disconnected"
		if e.Connected {
			state = "connected"
		}
		fmt.Fprintf(s.out, "[%d] %s %s (%s)\n", e.Handle, e.Peer, state, e.Role)
	case session.VolumeChangeEvent:
		kind := "changed"
		if e.Interim {
			kind = "interim"
		}
		fmt.Fprintf(s.out, "[%d] volume %d (%s)\n", e.Handle, e.Volume, kind)
	case session.VolumeSetEvent:
		fmt.Fprintf(s.out, "[%d] volume set to %d (label %d)\n", e.Handle, e.Volume, e.Label)
	case session.ChangeNotifyEvent:
		fmt.Fprintf(s.out, "[%d] %s: %+v\n", e.Handle, e.Param.Event(), e.Param)
	case session.ElementAttributesEvent:
		fmt.Fprintf(s.out, "[%d] %s: %s\n", e.Handle, e.Attribute.ID, e.Attribute.Value)
	case session.PlayStatusEvent:
		r := e.Response
		fmt.Fprintf(s.out, "[%d] %s %d/%d ms\n", e.Handle, r.Status, r.SongPosition, r.SongLength)
	case session.CapabilitiesEvent:
		if len(e.CompanyIDs) > 0 {
			fmt.Fprintf(s.out, "[%d] company ids: %06X\n", e.Handle, e.CompanyIDs)
		} else {
			fmt.Fprintf(s.out, "[%d] events: %v\n", e.Handle, e.Events.Events())
		}
	case session.PassThroughResponseEvent:
		fmt.Fprintf(s.out, "[%d] %s %s: %s\n", e.Handle, e.Op, e.State, e.Code)
	case session.PlayerAppValueSetEvent:
		fmt.Fprintf(s.out, "[%d] player setting accepted (label %d)\n", e.Handle, e.Label)
	case session.RequestFailedEvent:
		fmt.Fprintf(s.out, "[%d] %s failed: %s %s\n", e.Handle, e.PDU, e.Code, e.Status)
	}
}
