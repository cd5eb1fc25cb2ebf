package session

import (
	"errors"
	"log/slog"
	"time"

	"github.com/avrcp-protocol/avrcp-go/pkg/log"
	"github.com/avrcp-protocol/avrcp-go/pkg/transport"
	"github.com/avrcp-protocol/avrcp-go/pkg/wire"
)

// Session errors.
var (
	ErrNotConnected        = errors.New("not connected")
	ErrFeatureNotSupported = errors.New("feature not supported by peer")
	ErrUnhandled           = errors.New("no pending command for reply")
	ErrNotRegistered       = errors.New("notification not registered")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrRoleDisabled        = errors.New("local role disabled")
	ErrVolumeUnchanged     = errors.New("volume already set")
)

// State is the connection state of a session.
type State uint8

const (
	StateDisconnected State = iota
	StateConnected
)

// String returns the state name.
func (s State) String() string {
	if s == StateConnected {
		return "CONNECTED"
	}
	return "DISCONNECTED"
}

// Features is the peer feature bitmask reported by the lower layer.
type Features uint16

const (
	FeatRemoteTarget     Features = 0x0001
	FeatRemoteController Features = 0x0002
	FeatProtect          Features = 0x0004
	FeatVendor           Features = 0x0008
	FeatBrowse           Features = 0x0010
	FeatReport           Features = 0x0020
	FeatMetadata         Features = 0x0040
	FeatMultiAV          Features = 0x0080
	FeatReject           Features = 0x0100
	FeatAdvancedControl  Features = 0x0200
	FeatDelayReport      Features = 0x0400
)

// Has reports whether all bits of x are set.
func (f Features) Has(x Features) bool {
	return f&x == x
}

// CategoryFeatures are the SDP supported-features flags of a peer
// target or controller record.
type CategoryFeatures uint16

const (
	CatCategory1       CategoryFeatures = 0x0001
	CatCategory2       CategoryFeatures = 0x0002
	CatCategory3       CategoryFeatures = 0x0004
	CatCategory4       CategoryFeatures = 0x0008
	CatPlayerSettings  CategoryFeatures = 0x0010
	CatGroupNavigation CategoryFeatures = 0x0020
	CatBrowsing        CategoryFeatures = 0x0040
	CatMultiplePlayers CategoryFeatures = 0x0080
	CatCoverArt        CategoryFeatures = 0x0100
)

// Has reports whether all bits of x are set.
func (c CategoryFeatures) Has(x CategoryFeatures) bool {
	return c&x == x
}

// Role is a set of local AVRCP roles.
type Role uint8

const (
	RoleTarget     Role = 0x01
	RoleController Role = 0x02
)

// Has reports whether r includes x.
func (r Role) Has(x Role) bool {
	return r&x == x
}

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleTarget:
		return "TARGET"
	case RoleController:
		return "CONTROLLER"
	case RoleTarget | RoleController:
		return "TARGET|CONTROLLER"
	default:
		return "NONE"
	}
}

// EventSet is a notification event bitmask, bit n set for event id n.
type EventSet uint16

// AllowedTargetEvents are the events a target may offer. Now playing
// content and available players belong to browsing and are left out.
const AllowedTargetEvents EventSet = EventSet(1<<wire.EventPlaybackStatusChanged |
	1<<wire.EventTrackChanged |
	1<<wire.EventTrackReachedEnd |
	1<<wire.EventTrackReachedStart |
	1<<wire.EventPlayPosChanged |
	1<<wire.EventBattStatusChanged |
	1<<wire.EventSystemStatusChanged |
	1<<wire.EventAppSettingChanged |
	1<<wire.EventAddressedPlayerChanged |
	1<<wire.EventUIDsChanged |
	1<<wire.EventVolumeChanged)

// ControllerEvents are the change notifications the controller side
// forwards to the application.
const ControllerEvents EventSet = EventSet(1<<wire.EventPlaybackStatusChanged |
	1<<wire.EventTrackChanged |
	1<<wire.EventTrackReachedEnd |
	1<<wire.EventTrackReachedStart |
	1<<wire.EventPlayPosChanged |
	1<<wire.EventBattStatusChanged |
	1<<wire.EventVolumeChanged)

// NewEventSet builds a set from event ids.
func NewEventSet(events ...wire.EventID) EventSet {
	var s EventSet
	for _, e := range events {
		s |= EventSet(e.Mask())
	}
	return s
}

// Has reports whether e is in the set.
func (s EventSet) Has(e wire.EventID) bool {
	return e.IsValid() && s&EventSet(e.Mask()) != 0
}

// IsSubsetOf reports whether every event in s is also in other.
func (s EventSet) IsSubsetOf(other EventSet) bool {
	return s|other == other
}

// Events lists the set in ascending order.
func (s EventSet) Events() []wire.EventID {
	var out []wire.EventID
	for e := wire.EventPlaybackStatusChanged; e <= wire.EventVolumeChanged; e++ {
		if s.Has(e) {
			out = append(out, e)
		}
	}
	return out
}

// PassThroughSet is a pass-through operation bitmask: 8 words of 16 bits,
// operation op is bit op%16 of word op/16.
type PassThroughSet [8]uint16

// AllowedPassThrough lists the operations a target may ever accept.
var AllowedPassThrough = PassThroughSet{
	0x0000, // SELECT .. EXIT
	0x0000,
	0x1FFF, // 0-9, DOT, ENTER, CLEAR
	0x0078, // SOUND_SEL, INPUT_SEL, DISP_INFO, HELP
	0x1B7F, // POWER .. BACKWARD, except RECORD and EJECT
	0x0000,
	0x0000,
	0x003E, // F1-F5
}

// DefaultPassThrough is the media key subset accepted by default.
var DefaultPassThrough = NewPassThroughSet(
	wire.OpPlay, wire.OpStop, wire.OpPause,
	wire.OpForward, wire.OpBackward,
	wire.OpRewind, wire.OpFastForward,
	wire.OpVolumeUp, wire.OpVolumeDown, wire.OpMute,
)

// NewPassThroughSet builds a set from operations.
func NewPassThroughSet(ops ...wire.PassThroughOp) PassThroughSet {
	var s PassThroughSet
	for _, op := range ops {
		s.Add(op)
	}
	return s
}

// Add sets op in the set.
func (s *PassThroughSet) Add(op wire.PassThroughOp) {
	if op >= 0x80 {
		return
	}
	s[op/16] |= 1 << (op % 16)
}

// Has reports whether op is in the set.
func (s PassThroughSet) Has(op wire.PassThroughOp) bool {
	if op >= 0x80 {
		return false
	}
	return s[op/16]&(1<<(op%16)) != 0
}

// IsSubsetOf reports whether every operation in s is also in other.
func (s PassThroughSet) IsSubsetOf(other PassThroughSet) bool {
	for i := range s {
		if s[i]|other[i] != other[i] {
			return false
		}
	}
	return true
}

// PlayerSetting is one player application setting offered as target.
type PlayerSetting struct {
	Attr    wire.PlayerAttrID
	Values  []uint8
	Current uint8
}

// KeyInjector delivers pass-through keys to the platform input system.
type KeyInjector interface {
	InjectKey(code uint16, pressed bool) error
}

// Timing defaults.
const (
	DefaultReleaseQuirkDelay       = 30 * time.Millisecond
	DefaultPendingPlayDelay        = 200 * time.Millisecond
	DefaultPendingPlayReleaseDelay = 100 * time.Millisecond
	DefaultCallEndGuard            = 6 * time.Second
)

// Config is shared by all sessions of one engine. It must not be modified
// once sessions exist.
type Config struct {
	// Roles enabled locally.
	Roles Role

	// TargetEvents is the notification event set offered as target.
	TargetEvents EventSet

	// PassThrough is the operation set accepted as target.
	PassThrough PassThroughSet

	// CompanyIDs answered for GetCapabilities(CompanyID). The Bluetooth
	// SIG id is used when empty.
	CompanyIDs []uint32

	// PlayerSettings answered for the player application setting PDUs.
	PlayerSettings []PlayerSetting

	// MaxMessageSize bounds reassembled inbound responses.
	MaxMessageSize int

	ReleaseQuirkDelay       time.Duration
	PendingPlayDelay        time.Duration
	PendingPlayReleaseDelay time.Duration
	CallEndGuard            time.Duration

	// Logger receives operational logs. Nil disables them.
	Logger *slog.Logger

	// ProtocolLogger receives capture events. Nil disables capture.
	ProtocolLogger log.Logger

	// TimeNow is the clock. Nil selects time.Now.
	TimeNow func() time.Time
}

// DefaultConfig returns a config with both roles, volume change as the
// only target event and the default media keys.
func DefaultConfig() Config {
	return Config{
		Roles:                   RoleTarget | RoleController,
		TargetEvents:            NewEventSet(wire.EventVolumeChanged),
		PassThrough:             DefaultPassThrough,
		ReleaseQuirkDelay:       DefaultReleaseQuirkDelay,
		PendingPlayDelay:        DefaultPendingPlayDelay,
		PendingPlayReleaseDelay: DefaultPendingPlayReleaseDelay,
		CallEndGuard:            DefaultCallEndGuard,
	}
}

// OpenEvent reports a new connection from the lower layer.
type OpenEvent struct {
	Handle   transport.Handle
	Peer     transport.BDAddr
	Features Features

	// ClassOfDevice of the peer, when known.
	ClassOfDevice uint32

	// TargetFeatures and ControllerFeatures are the peer SDP flags;
	// zero means discovery has not completed.
	TargetFeatures     CategoryFeatures
	ControllerFeatures CategoryFeatures
}

// FeaturesEvent reports features discovered after the connection opened.
type FeaturesEvent struct {
	Handle             transport.Handle
	Features           Features
	TargetFeatures     CategoryFeatures
	ControllerFeatures CategoryFeatures
}

// Class of device major/minor bits of a wearable headset.
const (
	codMajorMinorMask = 0x1FFC
	codHeadset        = 0x0404
)

func isHeadset(cod uint32) bool {
	return cod&codMajorMinorMask == codHeadset
}
