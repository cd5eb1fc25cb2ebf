package transport

import (
	"errors"
	"sync"
)

// Loopback errors.
var (
	ErrClosed   = errors.New("transport closed")
	ErrLinkBusy = errors.New("link queue full")
)

// DefaultLoopbackQueue is the per-direction queue depth.
const DefaultLoopbackQueue = 256

type loopItem struct {
	msg     Message
	closing bool
}

// LoopbackEnd is one side of a Loopback. Messages sent on one end are
// delivered in order to the receiver attached to the other end, from that
// end's own goroutine.
type LoopbackEnd struct {
	handle Handle
	peer   *LoopbackEnd
	queue  chan loopItem
	done   chan struct{}

	mu      sync.Mutex
	recv    Receiver
	onClose func(Handle)
	closed  bool
}

// Loopback is an in-memory connection between two engines.
type Loopback struct {
	A, B *LoopbackEnd

	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewLoopback connects two ends. ha and hb are the handles each side
// uses for the connection. Delivery starts immediately; call Shutdown to
// stop the pumps.
func NewLoopback(ha, hb Handle) *Loopback {
	l := &Loopback{
		A: newLoopbackEnd(ha),
		B: newLoopbackEnd(hb),
	}
	l.A.peer, l.B.peer = l.B, l.A

	for _, end := range []*LoopbackEnd{l.A, l.B} {
		l.wg.Add(1)
		go func(e *LoopbackEnd) {
			defer l.wg.Done()
			e.pump()
		}(end)
	}
	return l
}

func newLoopbackEnd(h Handle) *LoopbackEnd {
	return &LoopbackEnd{
		handle: h,
		queue:  make(chan loopItem, DefaultLoopbackQueue),
		done:   make(chan struct{}),
	}
}

// Shutdown stops both pumps. Undelivered messages are dropped.
func (l *Loopback) Shutdown() {
	l.stopOnce.Do(func() {
		close(l.A.done)
		close(l.B.done)
	})
	l.wg.Wait()
}

// Handle returns the handle this end uses.
func (e *LoopbackEnd) Handle() Handle {
	return e.handle
}

// Attach sets the receiver for messages arriving at this end.
func (e *LoopbackEnd) Attach(r Receiver) {
	e.mu.Lock()
	e.recv = r
	e.mu.Unlock()
}

// OnClose registers fn to run on this end's goroutine when the connection
// is torn down by either side.
func (e *LoopbackEnd) OnClose(fn func(Handle)) {
	e.mu.Lock()
	e.onClose = fn
	e.mu.Unlock()
}

// Send delivers msg to the peer end. The envelope handle is rewritten to
// the peer's handle.
func (e *LoopbackEnd) Send(msg Message) error {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return ErrClosed
	}

	msg.Handle = e.peer.handle
	msg.Payload = append([]byte(nil), msg.Payload...)
	return e.peer.enqueue(loopItem{msg: msg})
}

// Close tears the connection down on both ends. h must be this end's
// handle.
func (e *LoopbackEnd) Close(h Handle) error {
	if h != e.handle {
		return ErrClosed
	}
	if !e.markClosed() {
		return nil
	}
	e.peer.markClosed()

	_ = e.enqueue(loopItem{closing: true})
	_ = e.peer.enqueue(loopItem{closing: true})
	return nil
}

func (e *LoopbackEnd) markClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	e.closed = true
	return true
}

func (e *LoopbackEnd) enqueue(it loopItem) error {
	select {
	case e.queue <- it:
		return nil
	default:
		return ErrLinkBusy
	}
}

func (e *LoopbackEnd) pump() {
	for {
		select {
		case <-e.done:
			return
		case it := <-e.queue:
			e.mu.Lock()
			recv, onClose := e.recv, e.onClose
			e.mu.Unlock()

			switch {
			case it.closing:
				if onClose != nil {
					onClose(e.handle)
				}
			case recv != nil:
				recv.Deliver(it.msg)
			}
		}
	}
}
