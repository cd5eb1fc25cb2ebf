package main

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avrcp-protocol/avrcp-go/pkg/session"
	"github.com/avrcp-protocol/avrcp-go/pkg/transport"
	"github.com/avrcp-protocol/avrcp-go/pkg/wire"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := defaultConfig()
	require.NoError(t, cfg.validate())
	assert.Equal(t, ModeLoopback, cfg.Mode)
	assert.Equal(t, "127.0.0.1:7000", cfg.Address)
	assert.Len(t, cfg.Player.Tracks, 3)
}

func TestParseConfigOverrides(t *testing.T) {
	cfg, err := parseConfig([]byte(`
mode: listen
address: ":7100"
role: target
max_connections: 2
session:
  target_events: [volume_changed, batt-status]
  release_quirk_delay: 50ms
  player_settings:
    - attr: repeat
      values: [1, 2]
      current: 1
player:
  tick: 250ms
  volume: 10
  battery: external
  tracks:
    - title: Only
      length: 30s
`))
	require.NoError(t, err)
	require.NoError(t, cfg.validate())

	assert.Equal(t, ModeListen, cfg.Mode)
	assert.Equal(t, ":7100", cfg.Address)
	assert.Equal(t, 2, cfg.MaxConnections)
	assert.Equal(t, 50*time.Millisecond, cfg.Session.ReleaseQuirkDelay)
	assert.Equal(t, 250*time.Millisecond, cfg.Player.Tick)
	assert.Equal(t, []Track{{Title: "Only", Length: 30 * time.Second}}, cfg.Player.Tracks)

	// Unset keys keep their defaults.
	assert.True(t, cfg.Interactive)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestParseConfigEmpty(t *testing.T) {
	cfg, err := parseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
}

func TestParseConfigUnknownKey(t *testing.T) {
	_, err := parseConfig([]byte("mode: loopback\nvolume: 3\n"))
	assert.Error(t, err)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: debug\n"), 0o600))

	cfg, err := loadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, path, cfg.ConfigFile)

	_, err = loadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"unknown mode", func(c *Config) { c.Mode = "bridge" }},
		{"listen without address", func(c *Config) { c.Mode = ModeListen; c.Address = "" }},
		{"unknown role", func(c *Config) { c.Role = "observer" }},
		{"unknown feature", func(c *Config) { c.PeerFeatures = []string{"cover_art"} }},
		{"zero tick", func(c *Config) { c.Player.Tick = 0 }},
		{"volume too high", func(c *Config) { c.Player.Volume = 0x80 }},
		{"unknown battery", func(c *Config) { c.Player.Battery = "empty" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.modify(&cfg)
			assert.Error(t, cfg.validate())
		})
	}
}

func TestServiceConfig(t *testing.T) {
	cfg := defaultConfig()
	cfg.MaxConnections = 3
	cfg.Session.PassThrough = []string{"play", "pause", "0x4b"}
	cfg.Session.CompanyIDs = []uint32{0x001958}
	cfg.Session.PlayerSettings = []PlayerSettingConfig{{Attr: "shuffle", Values: []uint8{1, 2}, Current: 2}}

	scfg, err := cfg.serviceConfig(session.RoleTarget)
	require.NoError(t, err)
	assert.Equal(t, session.RoleTarget, scfg.Session.Roles)
	assert.Equal(t, 3, scfg.MaxConnections)
	assert.True(t, scfg.Session.TargetEvents.Has(wire.EventPlayPosChanged))
	assert.False(t, scfg.Session.TargetEvents.Has(wire.EventBattStatusChanged))
	assert.True(t, scfg.Session.PassThrough.Has(wire.OpPlay))
	assert.True(t, scfg.Session.PassThrough.Has(wire.OpForward))
	assert.False(t, scfg.Session.PassThrough.Has(wire.OpStop))
	assert.Equal(t, []uint32{0x001958}, scfg.Session.CompanyIDs)
	assert.Equal(t, []session.PlayerSetting{{Attr: wire.PlayerAttrShuffle, Values: []uint8{1, 2}, Current: 2}}, scfg.Session.PlayerSettings)
	assert.Equal(t, session.DefaultReleaseQuirkDelay, scfg.Session.ReleaseQuirkDelay)

	cfg.Session.TargetEvents = []string{"bogus"}
	_, err = cfg.serviceConfig(session.RoleTarget)
	assert.Error(t, err)
}

func TestParseRoleAndFeatures(t *testing.T) {
	r, err := parseRole("CT")
	require.NoError(t, err)
	assert.Equal(t, session.RoleController, r)

	r, err = parseRole("")
	require.NoError(t, err)
	assert.Equal(t, session.RoleTarget|session.RoleController, r)

	f, err := parseFeatures([]string{"Target", "metadata"})
	require.NoError(t, err)
	assert.Equal(t, session.FeatRemoteTarget|session.FeatMetadata, f)
}

func TestApplyFlags(t *testing.T) {
	saved := flagValues
	t.Cleanup(func() { flagValues = saved })

	flagValues.mode = "connect"
	flagValues.address = "10.0.0.2:7000"
	flagValues.interactive = false
	flagValues.logLevel = "error"

	cfg := defaultConfig()
	applyFlags(&cfg, map[string]bool{"mode": true, "interactive": true})

	assert.Equal(t, ModeConnect, cfg.Mode)
	assert.False(t, cfg.Interactive)
	// Flags not given on the command line leave the file values alone.
	assert.Equal(t, defaultConfig().Address, cfg.Address)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestAddrFromNet(t *testing.T) {
	a := addrFromNet(&net.TCPAddr{IP: net.IPv4(192, 168, 1, 20), Port: 0x1B58})
	assert.Equal(t, transport.BDAddr{192, 168, 1, 20, 0x1B, 0x58}, a)

	assert.True(t, addrFromNet(&net.UnixAddr{Name: "x", Net: "unix"}).IsZero())
	assert.Equal(t, a, addrFromString("192.168.1.20:7000"))
}

func TestPeerMatching(t *testing.T) {
	both := session.RoleTarget | session.RoleController
	assert.True(t, complements(session.RoleController, session.RoleTarget))
	assert.True(t, complements(session.RoleTarget, both))
	assert.False(t, complements(session.RoleController, session.RoleController))

	assert.Equal(t, session.FeatRemoteController, localFeatures(session.RoleController))
	assert.True(t, localFeatures(both).Has(session.FeatRemoteTarget|session.FeatMetadata))
	assert.Equal(t, phoneAddr, localAddr(both))
}

func TestValidateAdvertiseName(t *testing.T) {
	cfg := defaultConfig()
	cfg.Mode = ModeListen
	cfg.Advertise = true
	require.NoError(t, cfg.validate())

	cfg.Name = ""
	assert.Error(t, cfg.validate())
}
