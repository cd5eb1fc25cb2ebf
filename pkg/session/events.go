package session

import (
	"github.com/avrcp-protocol/avrcp-go/pkg/transport"
	"github.com/avrcp-protocol/avrcp-go/pkg/wire"
)

// Event is an application-facing event emitted by a session.
type Event interface {
	// ConnHandle is the connection the event belongs to.
	ConnHandle() transport.Handle
	isEvent()
}

// ConnectionStateEvent reports a connection opening or closing for one
// local role.
type ConnectionStateEvent struct {
	Handle    transport.Handle
	Role      Role
	Connected bool
	Peer      transport.BDAddr
}

// RemoteFeaturesEvent reports the peer features once known.
type RemoteFeaturesEvent struct {
	Handle             transport.Handle
	Peer               transport.BDAddr
	Features           Features
	TargetFeatures     CategoryFeatures
	ControllerFeatures CategoryFeatures
}

// PassThroughEvent reports a pass-through command received as target that
// the engine does not turn into a platform key.
type PassThroughEvent struct {
	Handle transport.Handle
	Label  uint8
	Op     wire.PassThroughOp
	State  wire.KeyState
}

// PassThroughResponseEvent reports the peer's answer to a pass-through
// command sent as controller.
type PassThroughResponseEvent struct {
	Handle transport.Handle
	Label  uint8
	Op     wire.PassThroughOp
	State  wire.KeyState
	Code   wire.Code
}

// GetPlayStatusEvent asks the application for the play status. Answer
// with ReplyGetPlayStatus.
type GetPlayStatusEvent struct {
	Handle transport.Handle
}

// GetElementAttributesEvent asks the application for track metadata.
// Answer with ReplyGetElementAttributes.
type GetElementAttributesEvent struct {
	Handle transport.Handle
	Attrs  []wire.MediaAttrID
}

// RegisterNotificationEvent reports a notification registration by the
// peer. Answer with an interim SendNotification.
type RegisterNotificationEvent struct {
	Handle           transport.Handle
	Event            wire.EventID
	PlaybackInterval uint32
}

// SetAbsoluteVolumeEvent reports a volume set by the peer controller.
// The engine has already accepted it.
type SetAbsoluteVolumeEvent struct {
	Handle transport.Handle
	Volume uint8
}

// SetPlayerAppValueEvent reports player settings changed by the peer.
type SetPlayerAppValueEvent struct {
	Handle   transport.Handle
	Settings []wire.AttrValue
}

// BatteryStatusEvent reports the battery status of the peer controller.
type BatteryStatusEvent struct {
	Handle transport.Handle
	Status wire.BatteryStatus
}

// VolumeChangeEvent reports the peer target's volume from the volume
// notification registered by the engine.
type VolumeChangeEvent struct {
	Handle  transport.Handle
	Volume  uint8
	Interim bool
}

// VolumeSetEvent reports the volume the peer applied after
// SetAbsoluteVolume.
type VolumeSetEvent struct {
	Handle transport.Handle
	Label  uint8
	Volume uint8
}

// ChangeNotifyEvent reports a CHANGED notification from the peer target.
type ChangeNotifyEvent struct {
	Handle transport.Handle
	Label  uint8
	Param  wire.NotificationParam
}

// ElementAttributesEvent carries one attribute of a GetElementAttributes
// response. Mask is the attribute's bit in request masks.
type ElementAttributesEvent struct {
	Handle    transport.Handle
	Label     uint8
	Mask      uint8
	Attribute wire.ElementAttribute
}

// CapabilitiesEvent reports GetCapabilities results.
type CapabilitiesEvent struct {
	Handle     transport.Handle
	Label      uint8
	Events     EventSet
	CompanyIDs []uint32
}

// PlayStatusEvent reports a GetPlayStatus response.
type PlayStatusEvent struct {
	Handle   transport.Handle
	Label    uint8
	Response wire.GetPlayStatusResponse
}

// PlayerAppValueSetEvent reports that the peer accepted
// SetPlayerAppValue.
type PlayerAppValueSetEvent struct {
	Handle transport.Handle
	Label  uint8
}

// RequestFailedEvent reports a local request rejected by the peer.
type RequestFailedEvent struct {
	Handle transport.Handle
	Label  uint8
	PDU    wire.PduID
	Code   wire.Code
	Status wire.Status
}

func (e ConnectionStateEvent) ConnHandle() transport.Handle      { return e.Handle }
func (e RemoteFeaturesEvent) ConnHandle() transport.Handle       { return e.Handle }
func (e PassThroughEvent) ConnHandle() transport.Handle          { return e.Handle }
func (e PassThroughResponseEvent) ConnHandle() transport.Handle  { return e.Handle }
func (e GetPlayStatusEvent) ConnHandle() transport.Handle        { return e.Handle }
func (e GetElementAttributesEvent) ConnHandle() transport.Handle { return e.Handle }
func (e RegisterNotificationEvent) ConnHandle() transport.Handle { return e.Handle }
func (e SetAbsoluteVolumeEvent) ConnHandle() transport.Handle    { return e.Handle }
func (e SetPlayerAppValueEvent) ConnHandle() transport.Handle    { return e.Handle }
func (e BatteryStatusEvent) ConnHandle() transport.Handle        { return e.Handle }
func (e VolumeChangeEvent) ConnHandle() transport.Handle         { return e.Handle }
func (e VolumeSetEvent) ConnHandle() transport.Handle            { return e.Handle }
func (e ChangeNotifyEvent) ConnHandle() transport.Handle         { return e.Handle }
func (e ElementAttributesEvent) ConnHandle() transport.Handle    { return e.Handle }
func (e CapabilitiesEvent) ConnHandle() transport.Handle         { return e.Handle }
func (e PlayStatusEvent) ConnHandle() transport.Handle           { return e.Handle }
func (e PlayerAppValueSetEvent) ConnHandle() transport.Handle    { return e.Handle }
func (e RequestFailedEvent) ConnHandle() transport.Handle        { return e.Handle }

func (ConnectionStateEvent) isEvent()      {}
func (RemoteFeaturesEvent) isEvent()       {}
func (PassThroughEvent) isEvent()          {}
func (PassThroughResponseEvent) isEvent()  {}
func (GetPlayStatusEvent) isEvent()        {}
func (GetElementAttributesEvent) isEvent() {}
func (RegisterNotificationEvent) isEvent() {}
func (SetAbsoluteVolumeEvent) isEvent()    {}
func (SetPlayerAppValueEvent) isEvent()    {}
func (BatteryStatusEvent) isEvent()        {}
func (VolumeChangeEvent) isEvent()         {}
func (VolumeSetEvent) isEvent()            {}
func (ChangeNotifyEvent) isEvent()         {}
func (ElementAttributesEvent) isEvent()    {}
func (CapabilitiesEvent) isEvent()         {}
func (PlayStatusEvent) isEvent()           {}
func (PlayerAppValueSetEvent) isEvent()    {}
func (RequestFailedEvent) isEvent()        {}
