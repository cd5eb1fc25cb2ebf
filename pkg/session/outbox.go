package session

import (
	"time"

	"github.com/avrcp-protocol/avrcp-go/pkg/transport"
)

// KeyPress is a key to hand to the platform KeyInjector.
type KeyPress struct {
	Code    uint16
	Pressed bool
}

// Timer asks the owner to call Fire on the same session after Delay,
// serialized with the session's other work.
type Timer struct {
	Delay time.Duration
	Fire  func(s *Session, out *Outbox)
}

// Outbox collects the side effects of session operations. The owner
// flushes it in order after releasing the session lock: messages first,
// then keys, then events, then timers.
type Outbox struct {
	Messages []transport.Message
	Keys     []KeyPress
	Events   []Event
	Timers   []Timer
}

func (o *Outbox) send(msg transport.Message) {
	o.Messages = append(o.Messages, msg)
}

func (o *Outbox) emit(ev Event) {
	o.Events = append(o.Events, ev)
}

func (o *Outbox) key(code uint16, pressed bool) {
	o.Keys = append(o.Keys, KeyPress{Code: code, Pressed: pressed})
}

func (o *Outbox) after(d time.Duration, fn func(*Session, *Outbox)) {
	o.Timers = append(o.Timers, Timer{Delay: d, Fire: fn})
}

// Empty reports whether nothing was collected.
func (o *Outbox) Empty() bool {
	return len(o.Messages) == 0 && len(o.Keys) == 0 && len(o.Events) == 0 && len(o.Timers) == 0
}

// Reset clears the outbox for reuse.
func (o *Outbox) Reset() {
	o.Messages = o.Messages[:0]
	o.Keys = o.Keys[:0]
	o.Events = o.Events[:0]
	o.Timers = o.Timers[:0]
}
