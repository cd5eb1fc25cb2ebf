package log

import (
	"time"

	"github.com/avrcp-protocol/avrcp-go/pkg/wire"
)

// Event is one protocol capture record.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID is a UUID assigned when the session opened.
	ConnectionID string `cbor:"2,keyasint"`

	Direction Direction `cbor:"3,keyasint"`
	Layer     Layer     `cbor:"4,keyasint"`
	Category  Category  `cbor:"5,keyasint"`

	// LocalRole is the role that handled the event.
	LocalRole Role `cbor:"6,keyasint,omitempty"`

	// Handle is the transport connection handle.
	Handle uint8 `cbor:"7,keyasint,omitempty"`

	// PeerAddr is the peer BD address.
	PeerAddr string `cbor:"8,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"` // Transport layer
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty"` // Wire layer (decoded)
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"` // Session state
	PassThrough *PassThroughEvent `cbor:"13,keyasint,omitempty"` // Key handling
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerTransport is the envelope/framing layer (raw bytes).
	LayerTransport Layer = 0
	// LayerWire is the PDU layer (decoded headers and variants).
	LayerWire Layer = 1
	// LayerSession is the per-connection state machine.
	LayerSession Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerSession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage is a vendor-dependent command or response.
	CategoryMessage Category = 0
	// CategoryPassThrough is a pass-through key event.
	CategoryPassThrough Category = 1
	// CategoryState is a state change.
	CategoryState Category = 2
	// CategoryError is an error.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryPassThrough:
		return "PASSTHROUGH"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Role is the local AVRCP role.
type Role uint8

const (
	// RoleTarget is the controlled side (media source).
	RoleTarget Role = 0
	// RoleController is the controlling side (remote, car kit).
	RoleController Role = 1
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleTarget:
		return "TARGET"
	case RoleController:
		return "CONTROLLER"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw bytes at the transport layer.
type FrameEvent struct {
	// Size is the frame size in bytes.
	Size int `cbor:"1,keyasint"`

	// Data is the raw frame bytes (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// MessageEvent captures a decoded PDU.
type MessageEvent struct {
	Label  uint8       `cbor:"1,keyasint"`
	Code   wire.Code   `cbor:"2,keyasint"`
	Opcode wire.Opcode `cbor:"3,keyasint"`

	PDU        *wire.PduID      `cbor:"4,keyasint,omitempty"`
	PacketType *wire.PacketType `cbor:"5,keyasint,omitempty"`

	// Status is set on rejections.
	Status *wire.Status `cbor:"6,keyasint,omitempty"`

	// ParamLen is the declared parameter length.
	ParamLen int `cbor:"7,keyasint,omitempty"`

	// Payload is the decoded command or response variant.
	Payload any `cbor:"8,keyasint,omitempty"`
}

// StateChangeEvent captures session state transitions.
type StateChangeEvent struct {
	Entity   StateEntity `cbor:"1,keyasint"`
	OldState string      `cbor:"2,keyasint,omitempty"`
	NewState string      `cbor:"3,keyasint"`
	Reason   string      `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what changed state.
type StateEntity uint8

const (
	// StateEntityConnection is the control connection.
	StateEntityConnection StateEntity = 0
	// StateEntityNotification is a notification slot.
	StateEntityNotification StateEntity = 1
	// StateEntityFragment is inbound or outbound fragmentation.
	StateEntityFragment StateEntity = 2
	// StateEntityVolume is absolute volume registration.
	StateEntityVolume StateEntity = 3
	// StateEntityFeatures is the peer feature mask.
	StateEntityFeatures StateEntity = 4
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityConnection:
		return "CONNECTION"
	case StateEntityNotification:
		return "NOTIFICATION"
	case StateEntityFragment:
		return "FRAGMENT"
	case StateEntityVolume:
		return "VOLUME"
	case StateEntityFeatures:
		return "FEATURES"
	default:
		return "UNKNOWN"
	}
}

// PassThroughEvent captures how a key press was handled.
type PassThroughEvent struct {
	Op     wire.PassThroughOp `cbor:"1,keyasint"`
	State  wire.KeyState      `cbor:"2,keyasint"`
	Action KeyAction          `cbor:"3,keyasint"`
}

// KeyAction is the outcome of a pass-through key.
type KeyAction uint8

const (
	// KeyActionInjected means the key reached the key injector.
	KeyActionInjected KeyAction = 0
	// KeyActionQueued means PLAY was held until audio opens.
	KeyActionQueued KeyAction = 1
	// KeyActionDropped means the key was ignored.
	KeyActionDropped KeyAction = 2
	// KeyActionForwarded means the key was passed to the application.
	KeyActionForwarded KeyAction = 3
	// KeyActionSent means a local key was sent to the peer.
	KeyActionSent KeyAction = 4
)

// String returns the action name.
func (k KeyAction) String() string {
	switch k {
	case KeyActionInjected:
		return "INJECTED"
	case KeyActionQueued:
		return "QUEUED"
	case KeyActionDropped:
		return "DROPPED"
	case KeyActionForwarded:
		return "FORWARDED"
	case KeyActionSent:
		return "SENT"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Code is the AVRCP status byte, if any.
	Code *int `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}
