package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/avrcp-protocol/avrcp-go/cmd/avrcp-sim/interactive"
	"github.com/avrcp-protocol/avrcp-go/pkg/discovery"
	"github.com/avrcp-protocol/avrcp-go/pkg/log"
	"github.com/avrcp-protocol/avrcp-go/pkg/service"
	"github.com/avrcp-protocol/avrcp-go/pkg/session"
	"github.com/avrcp-protocol/avrcp-go/pkg/transport"
)

// Handles used on the loopback link and for the dialed connection.
const (
	phoneHandle  transport.Handle = 1
	carkitHandle transport.Handle = 2
	dialHandle   transport.Handle = 1
)

// Loopback device addresses.
var (
	phoneAddr  = transport.BDAddr{0x02, 0x50, 0x48, 0x4F, 0x4E, 0x45}
	carkitAddr = transport.BDAddr{0x02, 0x43, 0x41, 0x52, 0x4B, 0x54}
)

// engine is one dispatcher with its name for logs.
type engine struct {
	name string
	d    *service.Dispatcher
}

// simulator wires engines, links and the player for one run.
type simulator struct {
	cfg      Config
	logger   *slog.Logger
	capture  log.Logger
	features session.Features

	engines []engine
	player  *Player

	link       *transport.Loopback
	server     *transport.Server
	stream     *transport.StreamTransport
	advertiser *discovery.Advertiser

	// peer identifies the dialed endpoint in connect mode.
	peer transport.BDAddr
}

func newSimulator(cfg Config, logger *slog.Logger, capture log.Logger) *simulator {
	features, _ := parseFeatures(cfg.PeerFeatures)
	return &simulator{cfg: cfg, logger: logger, capture: capture, features: features}
}

// setup creates the engines and links for the configured mode.
func (s *simulator) setup(ctx context.Context, cancel context.CancelFunc) error {
	switch s.cfg.Mode {
	case ModeLoopback:
		return s.setupLoopback()
	case ModeListen:
		return s.setupListen()
	case ModeConnect:
		return s.setupConnect(ctx, cancel)
	default:
		return fmt.Errorf("unknown mode: %s", s.cfg.Mode)
	}
}

// newEngine creates a dispatcher for role on t. A target gets the
// simulated player as its media source and key sink.
func (s *simulator) newEngine(name string, role session.Role, t transport.Transport) (*service.Dispatcher, error) {
	scfg, err := s.cfg.serviceConfig(role)
	if err != nil {
		return nil, err
	}
	logger := s.logger.With("engine", name)
	scfg.Transport = t
	scfg.Logger = logger
	if s.capture != nil {
		scfg.Session.ProtocolLogger = s.capture
	}

	var player *Player
	if role.Has(session.RoleTarget) && s.player == nil {
		player = NewPlayer(nil, s.cfg.Player, logger.With("component", "player"))
		scfg.KeyInjector = player
	}

	d, err := service.New(scfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if player != nil {
		player.api = d
		d.OnEvent(player.HandleEvent)
		s.player = player
	}
	d.OnEvent(logEvents(logger))
	s.engines = append(s.engines, engine{name: name, d: d})
	return d, nil
}

func (s *simulator) setupLoopback() error {
	s.link = transport.NewLoopback(phoneHandle, carkitHandle)

	phone, err := s.newEngine("phone", session.RoleTarget, s.link.A)
	if err != nil {
		return err
	}
	carkit, err := s.newEngine("carkit", session.RoleController, s.link.B)
	if err != nil {
		return err
	}

	s.link.A.Attach(phone)
	s.link.B.Attach(carkit)
	s.link.A.OnClose(func(h transport.Handle) { _ = phone.Close(h) })
	s.link.B.OnClose(func(h transport.Handle) { _ = carkit.Close(h) })
	return nil
}

func (s *simulator) setupListen() error {
	role, err := parseRole(s.cfg.Role)
	if err != nil {
		return err
	}

	// The server delivers to the dispatcher, which sends through the
	// server, so inbound traffic goes through a forwarding receiver.
	var d *service.Dispatcher
	s.server, err = transport.NewServer(transport.ServerConfig{
		Address: s.cfg.Address,
		Capture: s.capture,
		Logger:  s.logger.With("component", "server"),
		OnConnect: func(h transport.Handle, remote net.Addr) {
			if err := d.Open(session.OpenEvent{Handle: h, Peer: addrFromNet(remote), Features: s.features}); err != nil {
				s.logger.Warn("connection refused", "handle", h, "remote", remote, "error", err)
				return
			}
			s.streamAudio(d, h, role)
		},
		OnDisconnect: func(h transport.Handle) {
			if err := d.Close(h); err != nil && !errors.Is(err, service.ErrUnknownHandle) {
				s.logger.Warn("close failed", "handle", h, "error", err)
			}
		},
	}, transport.ReceiverFunc(func(m transport.Message) { d.Deliver(m) }))
	if err != nil {
		return err
	}

	d, err = s.newEngine("local", role, s.server)
	return err
}

func (s *simulator) setupConnect(ctx context.Context, cancel context.CancelFunc) error {
	role, err := parseRole(s.cfg.Role)
	if err != nil {
		return err
	}

	address := s.cfg.Address
	s.peer = addrFromString(address)
	if address == browseAddress {
		svc, err := s.browse(ctx, role)
		if err != nil {
			return err
		}
		address, s.peer = svc.Address(), svc.Device
		if svc.Features != 0 {
			s.features = svc.Features
		}
		s.logger.Info("found peer", "instance", svc.InstanceName, "address", address, "device", svc.Device)
	}

	client := transport.NewClient(transport.ClientConfig{
		Capture: s.capture,
		Logger:  s.logger.With("component", "client"),
	})
	s.stream, err = client.Connect(ctx, address, dialHandle)
	if err != nil {
		return err
	}
	if _, err := s.newEngine("local", role, s.stream); err != nil {
		return err
	}

	// The run ends with the connection.
	go func() {
		<-s.stream.Done()
		cancel()
	}()
	return nil
}

// start runs the engines and brings the links up.
func (s *simulator) start(ctx context.Context) error {
	for _, e := range s.engines {
		if err := e.d.Start(ctx); err != nil {
			return fmt.Errorf("%s: %w", e.name, err)
		}
	}

	switch s.cfg.Mode {
	case ModeLoopback:
		phone, carkit := s.engines[0].d, s.engines[1].d
		if err := phone.Open(session.OpenEvent{Handle: phoneHandle, Peer: carkitAddr, Features: s.features}); err != nil {
			return err
		}
		s.streamAudio(phone, phoneHandle, session.RoleTarget)
		return carkit.Open(session.OpenEvent{Handle: carkitHandle, Peer: phoneAddr, Features: s.features})

	case ModeListen:
		if err := s.server.Start(ctx); err != nil {
			return err
		}
		s.logger.Info("listening", "address", s.server.Addr())
		if s.cfg.Advertise {
			return s.advertise()
		}
		return nil

	case ModeConnect:
		d := s.engines[0].d
		if err := d.Open(session.OpenEvent{
			Handle:   dialHandle,
			Peer:     s.peer,
			Features: s.features,
		}); err != nil {
			return err
		}
		role, _ := parseRole(s.cfg.Role)
		s.streamAudio(d, dialHandle, role)
		go func() {
			if err := s.stream.Run(ctx, d); err != nil {
				s.logger.Warn("connection failed", "error", err)
			}
			_ = d.Close(dialHandle)
		}()
		s.logger.Info("connected", "peer", s.peer)
		return nil
	}
	return nil
}

// streamAudio reports a started audio stream on a target connection, as
// a phone does once its media stream is up.
func (s *simulator) streamAudio(d *service.Dispatcher, h transport.Handle, role session.Role) {
	if !role.Has(session.RoleTarget) {
		return
	}
	if err := d.AudioTransport(h, true, true); err != nil {
		s.logger.Warn("audio stream not reported", "handle", h, "error", err)
	}
}

// advertise publishes the listening endpoint over mDNS.
func (s *simulator) advertise() error {
	role, _ := parseRole(s.cfg.Role)
	tcp, ok := s.server.Addr().(*net.TCPAddr)
	if !ok {
		return fmt.Errorf("cannot advertise %s", s.server.Addr())
	}
	s.advertiser = discovery.NewAdvertiser(discovery.AdvertiserConfig{})
	err := s.advertiser.Advertise(&discovery.EndpointInfo{
		Instance: s.cfg.Name,
		Port:     uint16(tcp.Port),
		Device:   localAddr(role),
		Roles:    role,
		Features: localFeatures(role),
		Name:     s.cfg.Name,
	})
	if err != nil {
		return err
	}
	s.logger.Info("advertising", "instance", s.cfg.Name, "service", discovery.ServiceType, "port", tcp.Port)
	return nil
}

// browse finds an endpoint whose roles complement role.
func (s *simulator) browse(ctx context.Context, role session.Role) (*discovery.Service, error) {
	s.logger.Info("browsing", "service", discovery.ServiceType)
	svc, err := discovery.NewBrowser(discovery.BrowserConfig{}).Find(ctx, func(svc *discovery.Service) bool {
		return complements(role, svc.Roles)
	})
	if err != nil {
		return nil, fmt.Errorf("browse %s: %w", discovery.ServiceType, err)
	}
	return svc, nil
}

// complements reports whether a peer with roles remote can serve a local
// endpoint with roles local.
func complements(local, remote session.Role) bool {
	return (local.Has(session.RoleController) && remote.Has(session.RoleTarget)) ||
		(local.Has(session.RoleTarget) && remote.Has(session.RoleController))
}

// localAddr is the device identity a TCP endpoint advertises.
func localAddr(role session.Role) transport.BDAddr {
	if role.Has(session.RoleTarget) {
		return phoneAddr
	}
	return carkitAddr
}

// shutdown stops links and engines. It is safe after a failed setup.
func (s *simulator) shutdown() {
	if s.advertiser != nil {
		s.advertiser.Stop()
	}
	if s.server != nil {
		_ = s.server.Stop()
	}
	if s.stream != nil {
		_ = s.stream.Close(dialHandle)
	}
	for _, e := range s.engines {
		if err := e.d.Stop(); err != nil && !errors.Is(err, service.ErrNotStarted) {
			s.logger.Warn("stop failed", "engine", e.name, "error", err)
		}
	}
	if s.link != nil {
		s.link.Shutdown()
	}
}

// controller returns the engine the shell drives: the car kit in
// loopback mode, otherwise the only engine.
func (s *simulator) controller() *service.Dispatcher {
	return s.engines[len(s.engines)-1].d
}

func (s *simulator) localPlayer() interactive.Player {
	if s.player == nil {
		return nil
	}
	return s.player
}

// addrFromNet derives a stable pseudo device address from a TCP peer so
// that reconnects from the same host and port map to the same device.
func addrFromNet(a net.Addr) transport.BDAddr {
	var out transport.BDAddr
	tcp, ok := a.(*net.TCPAddr)
	if !ok {
		return out
	}
	if ip4 := tcp.IP.To4(); ip4 != nil {
		copy(out[:4], ip4)
	} else {
		copy(out[:4], tcp.IP[len(tcp.IP)-4:])
	}
	out[4] = byte(tcp.Port >> 8)
	out[5] = byte(tcp.Port)
	return out
}

func addrFromString(address string) transport.BDAddr {
	a, err := net.ResolveTCPAddr("tcp", address)
	if err != nil {
		return transport.BDAddr{}
	}
	return addrFromNet(a)
}

// logEvents logs connection changes at info level and everything else
// at debug level.
func logEvents(logger *slog.Logger) service.EventHandler {
	return func(ev session.Event) {
		switch e := ev.(type) {
		case session.ConnectionStateEvent:
			logger.Info("connection state", "handle", e.Handle, "peer", e.Peer, "connected", e.Connected, "role", e.Role)
		case session.RemoteFeaturesEvent:
			logger.Info("peer features", "handle", e.Handle, "features", fmt.Sprintf("0x%04x", uint16(e.Features)))
		default:
			logger.Debug("event", "handle", ev.ConnHandle(), "type", fmt.Sprintf("%T", ev))
		}
	}
}
