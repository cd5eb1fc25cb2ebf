package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/avrcp-protocol/avrcp-go/pkg/discovery"
	"github.com/avrcp-protocol/avrcp-go/pkg/service"
	"github.com/avrcp-protocol/avrcp-go/pkg/session"
	"github.com/avrcp-protocol/avrcp-go/pkg/transport"
	"github.com/avrcp-protocol/avrcp-go/pkg/wire"
)

// Mode selects how the simulator links its engines.
type Mode string

const (
	// ModeLoopback runs a phone and a car kit in one process.
	ModeLoopback Mode = "loopback"
	// ModeListen accepts TCP peers.
	ModeListen Mode = "listen"
	// ModeConnect dials a TCP peer.
	ModeConnect Mode = "connect"
)

// browseAddress in connect mode selects the peer through mDNS.
const browseAddress = "mdns"

// Config is the simulator configuration. Flags override values loaded
// from the configuration file.
type Config struct {
	Mode           Mode          `yaml:"mode"`
	Address        string        `yaml:"address"`
	Name           string        `yaml:"name"`
	Advertise      bool          `yaml:"advertise"`
	Role           string        `yaml:"role"`
	PeerFeatures   []string      `yaml:"peer_features"`
	MaxConnections int           `yaml:"max_connections"`
	LogLevel       string        `yaml:"log_level"`
	ProtocolLog    string        `yaml:"protocol_log"`
	Interactive    bool          `yaml:"interactive"`
	Simulate       bool          `yaml:"simulate"`
	Session        SessionConfig `yaml:"session"`
	Player         PlayerConfig  `yaml:"player"`

	ConfigFile string `yaml:"-"`
}

// SessionConfig mirrors the engine settings that make sense to tune from
// a file.
type SessionConfig struct {
	TargetEvents      []string              `yaml:"target_events"`
	PassThrough       []string              `yaml:"pass_through"`
	CompanyIDs        []uint32              `yaml:"company_ids"`
	MaxMessageSize    int                   `yaml:"max_message_size"`
	ReleaseQuirkDelay time.Duration         `yaml:"release_quirk_delay"`
	PlayerSettings    []PlayerSettingConfig `yaml:"player_settings"`
}

// PlayerSettingConfig is one player application setting.
type PlayerSettingConfig struct {
	Attr    string  `yaml:"attr"`
	Values  []uint8 `yaml:"values"`
	Current uint8   `yaml:"current"`
}

// PlayerConfig configures the simulated media player.
type PlayerConfig struct {
	Tick    time.Duration `yaml:"tick"`
	Volume  uint8         `yaml:"volume"`
	Battery string        `yaml:"battery"`
	Tracks  []Track       `yaml:"tracks"`
}

func defaultConfig() Config {
	return Config{
		Mode:         ModeLoopback,
		Address:      fmt.Sprintf("127.0.0.1:%d", transport.DefaultPort),
		Name:         "avrcp-sim",
		Role:         "both",
		PeerFeatures: []string{"target", "controller", "metadata", "advanced_control"},
		LogLevel:     "info",
		Interactive:  true,
		Simulate:     true,
		Session: SessionConfig{
			TargetEvents: []string{"playback_status_changed", "track_changed", "track_reached_end",
				"track_reached_start", "play_pos_changed", "volume_changed"},
		},
		Player: PlayerConfig{
			Tick:   time.Second,
			Volume: 0x40,
			Tracks: defaultTracks(),
		},
	}
}

// loadConfigFile reads a YAML configuration on top of the defaults.
func loadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := parseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	cfg.ConfigFile = path
	return cfg, nil
}

// parseConfig decodes YAML on top of the defaults. Unknown keys are errors.
func parseConfig(data []byte) (Config, error) {
	cfg := defaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Mode {
	case ModeLoopback, ModeListen, ModeConnect:
	default:
		return fmt.Errorf("unknown mode: %s", c.Mode)
	}
	if c.Mode != ModeLoopback && c.Address == "" {
		return fmt.Errorf("mode %s needs an address", c.Mode)
	}
	if _, err := parseRole(c.Role); err != nil {
		return err
	}
	if c.Mode == ModeListen && c.Advertise {
		if err := discovery.ValidateInstanceName(c.Name); err != nil {
			return fmt.Errorf("name %q: %w", c.Name, err)
		}
	}
	if _, err := parseFeatures(c.PeerFeatures); err != nil {
		return err
	}
	if c.Player.Tick <= 0 {
		return fmt.Errorf("player tick must be positive, got %s", c.Player.Tick)
	}
	if c.Player.Volume > wire.MaxVolume {
		return fmt.Errorf("player volume must be 0-%d, got %d", wire.MaxVolume, c.Player.Volume)
	}
	if c.Player.Battery != "" {
		if _, err := parseBattery(c.Player.Battery); err != nil {
			return err
		}
	}
	return nil
}

// serviceConfig builds the dispatcher configuration for role. The
// transport is filled in by the caller.
func (c Config) serviceConfig(role session.Role) (service.Config, error) {
	cfg := service.DefaultConfig()
	cfg.Session.Roles = role
	if c.MaxConnections > 0 {
		cfg.MaxConnections = c.MaxConnections
	}

	s := c.Session
	if len(s.TargetEvents) > 0 {
		events := make([]wire.EventID, 0, len(s.TargetEvents))
		for _, name := range s.TargetEvents {
			e, err := wire.ParseEventID(name)
			if err != nil {
				return cfg, err
			}
			events = append(events, e)
		}
		cfg.Session.TargetEvents = session.NewEventSet(events...)
	}
	if len(s.PassThrough) > 0 {
		ops := make([]wire.PassThroughOp, 0, len(s.PassThrough))
		for _, name := range s.PassThrough {
			op, err := wire.ParsePassThroughOp(name)
			if err != nil {
				return cfg, err
			}
			ops = append(ops, op)
		}
		cfg.Session.PassThrough = session.NewPassThroughSet(ops...)
	}
	cfg.Session.CompanyIDs = s.CompanyIDs
	cfg.Session.MaxMessageSize = s.MaxMessageSize
	if s.ReleaseQuirkDelay > 0 {
		cfg.Session.ReleaseQuirkDelay = s.ReleaseQuirkDelay
	}
	for _, ps := range s.PlayerSettings {
		attr, err := wire.ParsePlayerAttrID(ps.Attr)
		if err != nil {
			return cfg, err
		}
		cfg.Session.PlayerSettings = append(cfg.Session.PlayerSettings, session.PlayerSetting{
			Attr:    attr,
			Values:  ps.Values,
			Current: ps.Current,
		})
	}
	return cfg, nil
}

func parseRole(s string) (session.Role, error) {
	switch strings.ToLower(s) {
	case "target", "tg":
		return session.RoleTarget, nil
	case "controller", "ct":
		return session.RoleController, nil
	case "both", "":
		return session.RoleTarget | session.RoleController, nil
	default:
		return 0, fmt.Errorf("unknown role: %s (must be target, controller or both)", s)
	}
}

var featureNames = map[string]session.Features{
	"target":           session.FeatRemoteTarget,
	"controller":       session.FeatRemoteController,
	"metadata":         session.FeatMetadata,
	"advanced_control": session.FeatAdvancedControl,
	"browse":           session.FeatBrowse,
	"vendor":           session.FeatVendor,
}

func parseFeatures(names []string) (session.Features, error) {
	var f session.Features
	for _, name := range names {
		v, ok := featureNames[strings.ToLower(name)]
		if !ok {
			return 0, fmt.Errorf("unknown peer feature: %s", name)
		}
		f |= v
	}
	return f, nil
}

// localFeatures is what a peer of an endpoint with role should assume.
func localFeatures(role session.Role) session.Features {
	var f session.Features
	if role.Has(session.RoleTarget) {
		f |= session.FeatRemoteTarget | session.FeatMetadata | session.FeatAdvancedControl
	}
	if role.Has(session.RoleController) {
		f |= session.FeatRemoteController
	}
	return f
}

func parseBattery(s string) (wire.BatteryStatus, error) {
	switch strings.ToLower(s) {
	case "normal":
		return wire.BatteryNormal, nil
	case "warning":
		return wire.BatteryWarning, nil
	case "critical":
		return wire.BatteryCritical, nil
	case "external":
		return wire.BatteryExternal, nil
	case "full":
		return wire.BatteryFull, nil
	default:
		return 0, fmt.Errorf("unknown battery status: %s", s)
	}
}
