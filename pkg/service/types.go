package service

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/avrcp-protocol/avrcp-go/pkg/session"
	"github.com/avrcp-protocol/avrcp-go/pkg/transport"
	"github.com/avrcp-protocol/avrcp-go/pkg/wire"
)

// Service errors.
var (
	ErrNotStarted     = errors.New("dispatcher not started")
	ErrAlreadyStarted = errors.New("dispatcher already started")
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrQueueFull      = errors.New("connection queue full")
	ErrUnknownHandle  = errors.New("unknown connection handle")
	ErrConnectionCap  = errors.New("connection limit reached")
)

// ServiceState represents the dispatcher state.
type ServiceState uint8

const (
	// StateIdle - created, work runs inline.
	StateIdle ServiceState = iota

	// StateRunning - per-connection workers are running.
	StateRunning

	// StateStopped - workers have exited, work runs inline again.
	StateStopped
)

// String returns the state name.
func (s ServiceState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Defaults.
const (
	DefaultMaxConnections = 1
	DefaultQueueDepth     = 64
)

// Config configures a Dispatcher.
type Config struct {
	// Session is shared by every session the dispatcher creates.
	Session session.Config

	// MaxConnections bounds simultaneous connections. When full, a new
	// connection from a different peer is closed.
	MaxConnections int

	// QueueDepth is the per-connection work queue size once started.
	QueueDepth int

	// Transport carries outgoing messages. Required.
	Transport transport.Transport

	// KeyInjector receives pass-through keys. Nil drops them.
	KeyInjector session.KeyInjector

	// Scheduler runs delayed session work. Nil selects wall clock timers.
	Scheduler Scheduler

	// Logger for operational logs. Also used by sessions when
	// Session.Logger is nil.
	Logger *slog.Logger
}

// DefaultConfig returns a config with default session settings, a single
// connection and the default queue depth.
func DefaultConfig() Config {
	return Config{
		Session:        session.DefaultConfig(),
		MaxConnections: DefaultMaxConnections,
		QueueDepth:     DefaultQueueDepth,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Transport == nil {
		return fmt.Errorf("%w: transport is required", ErrInvalidConfig)
	}
	if c.MaxConnections < 1 {
		return fmt.Errorf("%w: max connections must be at least 1", ErrInvalidConfig)
	}
	if c.QueueDepth < 1 {
		return fmt.Errorf("%w: queue depth must be at least 1", ErrInvalidConfig)
	}
	return validateSession(&c.Session)
}

func validateSession(c *session.Config) error {
	if c.Roles == 0 || c.Roles&^(session.RoleTarget|session.RoleController) != 0 {
		return fmt.Errorf("%w: roles %s", ErrInvalidConfig, c.Roles)
	}
	if !c.TargetEvents.IsSubsetOf(session.AllowedTargetEvents) {
		return fmt.Errorf("%w: target events outside the allowed set", ErrInvalidConfig)
	}
	if !c.PassThrough.IsSubsetOf(session.AllowedPassThrough) {
		return fmt.Errorf("%w: pass-through operations outside the allowed set", ErrInvalidConfig)
	}
	if c.MaxMessageSize < 0 {
		return fmt.Errorf("%w: negative max message size", ErrInvalidConfig)
	}
	if c.ReleaseQuirkDelay < 0 || c.PendingPlayDelay < 0 ||
		c.PendingPlayReleaseDelay < 0 || c.CallEndGuard < 0 {
		return fmt.Errorf("%w: negative delay", ErrInvalidConfig)
	}

	seen := make(map[wire.PlayerAttrID]bool, len(c.PlayerSettings))
	for _, ps := range c.PlayerSettings {
		if !ps.Attr.IsValid() {
			return fmt.Errorf("%w: player attribute 0x%02x", ErrInvalidConfig, uint8(ps.Attr))
		}
		if seen[ps.Attr] {
			return fmt.Errorf("%w: duplicate player attribute 0x%02x", ErrInvalidConfig, uint8(ps.Attr))
		}
		seen[ps.Attr] = true
		if len(ps.Values) == 0 {
			return fmt.Errorf("%w: player attribute 0x%02x has no values", ErrInvalidConfig, uint8(ps.Attr))
		}
		found := false
		for _, v := range ps.Values {
			if v == ps.Current {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: current value of player attribute 0x%02x not offered", ErrInvalidConfig, uint8(ps.Attr))
		}
	}
	return nil
}

// ConnectionInfo describes one tracked connection.
type ConnectionInfo struct {
	Handle       transport.Handle
	Peer         transport.BDAddr
	Connected    bool
	Features     session.Features
	ConnectionID string
}
