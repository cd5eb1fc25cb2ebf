package session

import (
	"fmt"

	"github.com/avrcp-protocol/avrcp-go/pkg/wire"
)

func (k replyKind) pdu() wire.PduID {
	if k == replyElementAttributes {
		return wire.PduGetElementAttributes
	}
	return wire.PduGetPlayStatus
}

// trackReply records a command the application has to answer. A newer
// command of the same kind replaces an unanswered one.
func (s *Session) trackReply(kind replyKind, code wire.Code, label uint8) {
	r := &s.replies[kind]
	if r.pending {
		s.logger.Debug("unanswered command superseded", "pdu", kind.pdu(), "label", r.label)
	}
	*r = pendingReply{code: code, label: label, pending: true}
}

func (s *Session) takeReply(kind replyKind) (pendingReply, error) {
	if !s.Connected() {
		return pendingReply{}, ErrNotConnected
	}
	r := s.replies[kind]
	if !r.pending {
		return pendingReply{}, fmt.Errorf("%w: no pending %s", ErrUnhandled, kind.pdu())
	}
	s.replies[kind] = pendingReply{}
	return r, nil
}

// ReplyGetPlayStatus answers the peer's pending GetPlayStatus.
func (s *Session) ReplyGetPlayStatus(rsp wire.GetPlayStatusResponse, out *Outbox) error {
	r, err := s.takeReply(replyPlayStatus)
	if err != nil {
		return err
	}
	return s.respond(out, r.label, successCode(r.code), rsp)
}

// ReplyGetElementAttributes answers the peer's pending
// GetElementAttributes. An empty attribute list is rejected with
// BadParameter.
func (s *Session) ReplyGetElementAttributes(attrs []wire.ElementAttribute, out *Outbox) error {
	r, err := s.takeReply(replyElementAttributes)
	if err != nil {
		return err
	}
	if len(attrs) == 0 {
		s.reject(out, r.label, wire.PduGetElementAttributes, wire.StatusBadParameter)
		return nil
	}
	return s.respond(out, r.label, successCode(r.code), wire.GetElementAttributesResponse{Attributes: attrs})
}

// RejectPending rejects the peer's pending command for pdu with status.
// Only GetPlayStatus and GetElementAttributes are tracked.
func (s *Session) RejectPending(pdu wire.PduID, status wire.Status, out *Outbox) error {
	var kind replyKind
	switch pdu {
	case wire.PduGetPlayStatus:
		kind = replyPlayStatus
	case wire.PduGetElementAttributes:
		kind = replyElementAttributes
	default:
		return fmt.Errorf("%w: %s replies are not tracked", ErrInvalidArgument, pdu)
	}
	r, err := s.takeReply(kind)
	if err != nil {
		return err
	}
	s.reject(out, r.label, pdu, status)
	return nil
}
