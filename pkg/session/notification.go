package session

import (
	"fmt"

	"github.com/avrcp-protocol/avrcp-go/pkg/log"
	"github.com/avrcp-protocol/avrcp-go/pkg/wire"
)

// NotificationKind selects the response code of a notification reply.
type NotificationKind uint8

const (
	// NotifyInterim answers a registration with the current value.
	NotifyInterim NotificationKind = iota

	// NotifyChanged reports a change and ends the registration.
	NotifyChanged
)

func (k NotificationKind) String() string {
	if k == NotifyChanged {
		return "CHANGED"
	}
	return "INTERIM"
}

func (k NotificationKind) code() wire.Code {
	if k == NotifyChanged {
		return wire.CodeChanged
	}
	return wire.CodeInterim
}

func (s *Session) handleRegisterNotification(c wire.RegisterNotification, label uint8, out *Outbox) {
	// UIDs changed is always answered, whatever the configured events.
	if !s.cfg.TargetEvents.Has(c.Event) && c.Event != wire.EventUIDsChanged {
		s.logger.Debug("unsupported notification", "event_id", c.Event, "label", label)
		s.reject(out, label, wire.PduRegisterNotification, wire.StatusBadParameter)
		return
	}

	slot := &s.notif[c.Event.Index()]
	slot.registered = true
	slot.interimPending = true
	slot.label = label
	s.captureState(log.StateEntityNotification, "", "REGISTERED", fmt.Sprintf("%s label %d", c.Event, label))

	switch {
	case c.Event == wire.EventUIDsChanged:
		// No browsing, so the UID counter never moves. Answer both steps
		// at once.
		param := wire.UIDsChangedParam{}
		_ = s.SendNotification(NotifyInterim, param, out)
		_ = s.SendNotification(NotifyChanged, param, out)
		return
	case c.Event == wire.EventPlayPosChanged && c.PlaybackInterval == 0:
		s.clearSlot(c.Event, "zero interval")
		s.reject(out, label, wire.PduRegisterNotification, wire.StatusBadParameter)
		return
	}

	out.emit(RegisterNotificationEvent{
		Handle:           s.handle,
		Event:            c.Event,
		PlaybackInterval: c.PlaybackInterval,
	})
}

// SendNotification answers the peer's registration for param.Event().
//
// An INTERIM reply is only valid once per registration, right after the
// peer registered; otherwise ErrUnhandled is returned. A CHANGED reply
// ends the registration. Without a registration nothing is sent and
// ErrNotRegistered is returned.
func (s *Session) SendNotification(kind NotificationKind, param wire.NotificationParam, out *Outbox) error {
	if !s.Connected() {
		return ErrNotConnected
	}
	if param == nil || !param.Event().IsValid() {
		return fmt.Errorf("%w: missing notification parameter", ErrInvalidArgument)
	}
	e := param.Event()
	slot := &s.notif[e.Index()]
	if !slot.registered {
		s.logger.Debug("notification not registered", "event_id", e, "kind", kind)
		return ErrNotRegistered
	}
	if kind == NotifyInterim && !slot.interimPending {
		return fmt.Errorf("%w: no interim pending for %s", ErrUnhandled, e)
	}

	label := slot.label
	slot.interimPending = false
	if kind == NotifyChanged {
		s.clearSlot(e, "changed")
	}
	return s.respond(out, label, kind.code(), wire.RegisterNotificationResponse{Param: param})
}

func (s *Session) clearSlot(e wire.EventID, reason string) {
	s.notif[e.Index()] = notificationSlot{}
	s.captureState(log.StateEntityNotification, "REGISTERED", "", fmt.Sprintf("%s %s", e, reason))
}
