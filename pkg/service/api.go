package service

import (
	"github.com/avrcp-protocol/avrcp-go/pkg/session"
	"github.com/avrcp-protocol/avrcp-go/pkg/transport"
	"github.com/avrcp-protocol/avrcp-go/pkg/wire"
)

// Application calls run synchronously on the caller's goroutine, under the
// connection's session lock, whether or not the dispatcher is running.

// do runs fn on the session for h and flushes its effects.
func (d *Dispatcher) do(h transport.Handle, fn func(*session.Session, *session.Outbox) error) error {
	c := d.lookup(h)
	if c == nil {
		return ErrUnknownHandle
	}

	var (
		out session.Outbox
		err error
	)
	c.mu.Lock()
	err = fn(c.sess, &out)
	c.mu.Unlock()
	d.flush(c, &out)
	return err
}

// request runs a controller request and returns its transaction label.
func (d *Dispatcher) request(h transport.Handle, fn func(*session.Session, *session.Outbox) (uint8, error)) (uint8, error) {
	var label uint8
	err := d.do(h, func(s *session.Session, out *session.Outbox) error {
		var err error
		label, err = fn(s, out)
		return err
	})
	return label, err
}

// SendNotification answers the peer's registration for param's event.
func (d *Dispatcher) SendNotification(h transport.Handle, kind session.NotificationKind, param wire.NotificationParam) error {
	return d.do(h, func(s *session.Session, out *session.Outbox) error {
		return s.SendNotification(kind, param, out)
	})
}

// ReplyGetPlayStatus answers the pending GetPlayStatus command.
func (d *Dispatcher) ReplyGetPlayStatus(h transport.Handle, rsp wire.GetPlayStatusResponse) error {
	return d.do(h, func(s *session.Session, out *session.Outbox) error {
		return s.ReplyGetPlayStatus(rsp, out)
	})
}

// ReplyGetElementAttributes answers the pending GetElementAttributes
// command.
func (d *Dispatcher) ReplyGetElementAttributes(h transport.Handle, attrs []wire.ElementAttribute) error {
	return d.do(h, func(s *session.Session, out *session.Outbox) error {
		return s.ReplyGetElementAttributes(attrs, out)
	})
}

// RejectPending rejects the pending command for pdu with status.
func (d *Dispatcher) RejectPending(h transport.Handle, pdu wire.PduID, status wire.Status) error {
	return d.do(h, func(s *session.Session, out *session.Outbox) error {
		return s.RejectPending(pdu, status, out)
	})
}

// SendPassThrough sends a key press or release to the peer target.
func (d *Dispatcher) SendPassThrough(h transport.Handle, op wire.PassThroughOp, state wire.KeyState) (uint8, error) {
	return d.request(h, func(s *session.Session, out *session.Outbox) (uint8, error) {
		return s.SendPassThrough(op, state, out)
	})
}

// GetElementAttributes requests the attributes in mask for the playing
// track. Zero requests all of them.
func (d *Dispatcher) GetElementAttributes(h transport.Handle, mask uint8) (uint8, error) {
	return d.request(h, func(s *session.Session, out *session.Outbox) (uint8, error) {
		return s.GetElementAttributes(mask, out)
	})
}

// GetCapabilities asks the peer target for its company ids or supported
// events.
func (d *Dispatcher) GetCapabilities(h transport.Handle, id wire.CapabilityID) (uint8, error) {
	return d.request(h, func(s *session.Session, out *session.Outbox) (uint8, error) {
		return s.GetCapabilities(id, out)
	})
}

// RegisterNotification registers for event on the peer target.
func (d *Dispatcher) RegisterNotification(h transport.Handle, event wire.EventID, interval uint32) (uint8, error) {
	return d.request(h, func(s *session.Session, out *session.Outbox) (uint8, error) {
		return s.RegisterNotification(event, interval, out)
	})
}

// SetAbsoluteVolume sets the peer's volume. It fails with
// session.ErrVolumeUnchanged when the peer already reported that value.
func (d *Dispatcher) SetAbsoluteVolume(h transport.Handle, volume uint8) (uint8, error) {
	return d.request(h, func(s *session.Session, out *session.Outbox) (uint8, error) {
		return s.SetAbsoluteVolume(volume, out)
	})
}

// SetPlayerAppValue changes one player application setting on the peer.
func (d *Dispatcher) SetPlayerAppValue(h transport.Handle, attr wire.PlayerAttrID, value uint8) (uint8, error) {
	return d.request(h, func(s *session.Session, out *session.Outbox) (uint8, error) {
		return s.SetPlayerAppValue(attr, value, out)
	})
}

// GetPlayStatus asks the peer target for its play status.
func (d *Dispatcher) GetPlayStatus(h transport.Handle) (uint8, error) {
	return d.request(h, func(s *session.Session, out *session.Outbox) (uint8, error) {
		return s.GetPlayStatus(out)
	})
}
