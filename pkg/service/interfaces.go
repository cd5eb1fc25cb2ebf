package service

import (
	"time"

	"github.com/avrcp-protocol/avrcp-go/pkg/session"
	"github.com/avrcp-protocol/avrcp-go/pkg/transport"
)

// Stopper cancels a scheduled call. It is satisfied by *time.Timer.
type Stopper interface {
	Stop() bool
}

// Scheduler runs f once after d. Implementations may run f on any
// goroutine.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Stopper
}

// SchedulerFunc adapts a function to Scheduler.
type SchedulerFunc func(d time.Duration, f func()) Stopper

// AfterFunc calls fn(d, f).
func (fn SchedulerFunc) AfterFunc(d time.Duration, f func()) Stopper { return fn(d, f) }

type wallClock struct{}

func (wallClock) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// EventHandler receives session events. Handlers run on the goroutine
// that processed the work and may call back into the Dispatcher.
type EventHandler func(session.Event)

// Compile-time interface satisfaction checks.
var (
	_ Scheduler          = wallClock{}
	_ Scheduler          = SchedulerFunc(nil)
	_ Stopper            = (*time.Timer)(nil)
	_ transport.Receiver = (*Dispatcher)(nil)
)
