package service

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avrcp-protocol/avrcp-go/pkg/session"
	"github.com/avrcp-protocol/avrcp-go/pkg/transport"
	"github.com/avrcp-protocol/avrcp-go/pkg/wire"
)

// work is one unit of session processing.
type work func(s *session.Session, out *session.Outbox)

// conn is a tracked connection and its session.
type conn struct {
	handle transport.Handle
	peer   transport.BDAddr // guarded by Dispatcher.mu

	// mu serializes all work on sess.
	mu   sync.Mutex
	sess *session.Session

	queue     chan work
	done      chan struct{}
	closeOnce sync.Once

	timerMu   sync.Mutex
	timers    map[uint64]Stopper
	nextTimer uint64
}

func (c *conn) retire() {
	c.closeOnce.Do(func() { close(c.done) })
	c.stopTimers()
}

func (c *conn) retired() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *conn) forget(id uint64) {
	c.timerMu.Lock()
	delete(c.timers, id)
	c.timerMu.Unlock()
}

func (c *conn) stopTimers() {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	for id, st := range c.timers {
		st.Stop()
		delete(c.timers, id)
	}
}

// Dispatcher routes link layer traffic to per-connection sessions and
// carries out their side effects.
type Dispatcher struct {
	cfg    Config
	scfg   session.Config
	logger *slog.Logger
	sched  Scheduler

	mu       sync.RWMutex
	conns    map[transport.Handle]*conn
	handlers []EventHandler
	state    ServiceState

	// Background processing
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
}

// New creates a Dispatcher. Work is processed inline until Start.
func New(cfg Config) (*Dispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	d := &Dispatcher{
		cfg:    cfg,
		scfg:   cfg.Session,
		logger: cfg.Logger,
		sched:  cfg.Scheduler,
		conns:  make(map[transport.Handle]*conn),
	}
	if d.logger == nil {
		d.logger = slog.New(slog.DiscardHandler)
	}
	if d.scfg.Logger == nil {
		d.scfg.Logger = cfg.Logger
	}
	if d.sched == nil {
		d.sched = wallClock{}
	}
	return d, nil
}

// OnEvent registers a handler for session events.
func (d *Dispatcher) OnEvent(h EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, h)
}

// State returns the dispatcher state.
func (d *Dispatcher) State() ServiceState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// Start runs one worker per connection until ctx is cancelled or Stop is
// called.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateIdle {
		return ErrAlreadyStarted
	}
	d.ctx, d.cancel = context.WithCancel(ctx)
	d.state = StateRunning
	d.running.Store(true)

	for _, c := range d.conns {
		d.startWorkerLocked(c)
	}
	d.logger.Debug("dispatcher started", "connections", len(d.conns))
	return nil
}

// Stop waits for the workers to exit and cancels pending timers. Queued
// work that has not started is dropped. Stop must not be called from an
// event handler.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	if d.state != StateRunning {
		d.mu.Unlock()
		return ErrNotStarted
	}
	d.state = StateStopped
	d.running.Store(false)
	cancel := d.cancel
	conns := d.snapshotLocked()
	d.mu.Unlock()

	cancel()
	d.wg.Wait()
	for _, c := range conns {
		c.stopTimers()
	}
	d.logger.Debug("dispatcher stopped")
	return nil
}

// Connections returns the tracked connections ordered by handle.
func (d *Dispatcher) Connections() []ConnectionInfo {
	d.mu.RLock()
	conns := d.snapshotLocked()
	peers := make(map[transport.Handle]transport.BDAddr, len(conns))
	for _, c := range conns {
		peers[c.handle] = c.peer
	}
	d.mu.RUnlock()

	infos := make([]ConnectionInfo, 0, len(conns))
	for _, c := range conns {
		c.mu.Lock()
		infos = append(infos, ConnectionInfo{
			Handle:       c.handle,
			Peer:         peers[c.handle],
			Connected:    c.sess.Connected(),
			Features:     c.sess.Features(),
			ConnectionID: c.sess.ConnectionID(),
		})
		c.mu.Unlock()
	}
	slices.SortFunc(infos, func(a, b ConnectionInfo) int { return cmp.Compare(a.Handle, b.Handle) })
	return infos
}

// Open reports a new connection and processes it before returning, so
// application calls may follow immediately. When the connection limit is
// reached, a connection from a different peer is closed and
// ErrConnectionCap returned; the same peer on a new handle replaces its
// old connection.
func (d *Dispatcher) Open(ev session.OpenEvent) error {
	d.mu.Lock()
	c, ok := d.conns[ev.Handle]
	var evicted *conn
	if ok {
		c.peer = ev.Peer
	} else {
		if len(d.conns) >= d.cfg.MaxConnections {
			evicted = d.findPeerLocked(ev.Peer)
			if evicted == nil {
				d.mu.Unlock()
				d.logger.Info("connection limit reached, closing new connection",
					"handle", ev.Handle, "peer", ev.Peer)
				if err := d.cfg.Transport.Close(ev.Handle); err != nil {
					d.logger.Warn("close failed", "handle", ev.Handle, "error", err)
				}
				return ErrConnectionCap
			}
			delete(d.conns, evicted.handle)
		}
		c = d.newConnLocked(ev.Handle, ev.Peer)
	}
	d.mu.Unlock()

	if evicted != nil {
		d.logger.Info("peer reconnected on a new handle",
			"peer", ev.Peer, "old", evicted.handle, "new", ev.Handle)
		d.closeSession(evicted)
	}
	d.process(c, func(s *session.Session, out *session.Outbox) {
		s.Open(ev, out)
	})
	return nil
}

// Close reports that a connection went down and forgets it.
func (d *Dispatcher) Close(h transport.Handle) error {
	d.mu.Lock()
	c, ok := d.conns[h]
	if ok {
		delete(d.conns, h)
	}
	d.mu.Unlock()

	if !ok {
		return ErrUnknownHandle
	}
	d.closeSession(c)
	return nil
}

// Features reports features discovered after the connection opened.
func (d *Dispatcher) Features(ev session.FeaturesEvent) error {
	return d.signal(ev.Handle, func(s *session.Session, out *session.Outbox) {
		s.UpdateFeatures(ev, out)
	})
}

// AudioTransport reports the audio stream state of a connection's peer.
func (d *Dispatcher) AudioTransport(h transport.Handle, open, started bool) error {
	return d.signal(h, func(s *session.Session, out *session.Outbox) {
		s.AudioTransport(open, started, out)
	})
}

// CallEnded records the end of a phone call on every connection.
func (d *Dispatcher) CallEnded() {
	now := time.Now()
	if d.scfg.TimeNow != nil {
		now = d.scfg.TimeNow()
	}

	d.mu.RLock()
	conns := d.snapshotLocked()
	d.mu.RUnlock()

	for _, c := range conns {
		if err := d.post(c, func(s *session.Session, _ *session.Outbox) { s.CallEnded(now) }); err != nil {
			d.logger.Warn("call end dropped", "handle", c.handle, "error", err)
		}
	}
}

// Deliver routes an inbound message to its session. Envelopes that are
// neither pass-through nor a complete vendor-dependent header are dropped.
func (d *Dispatcher) Deliver(msg transport.Message) {
	c := d.lookup(msg.Handle)
	if c == nil {
		d.logger.Debug("message for unknown connection", "msg", msg.String())
		return
	}

	w := route(msg)
	if w == nil {
		d.logger.Debug("dropping malformed envelope", "msg", msg.String())
		return
	}
	if err := d.post(c, w); err != nil {
		d.logger.Warn("message dropped", "msg", msg.String(), "error", err)
	}
}

func route(msg transport.Message) work {
	switch msg.Opcode {
	case wire.OpcodePassThrough:
		if msg.Code.IsResponse() {
			return func(s *session.Session, out *session.Outbox) { s.HandlePassThroughResponse(msg, out) }
		}
		return func(s *session.Session, out *session.Outbox) { s.HandlePassThrough(msg, out) }

	case wire.OpcodeVendor:
		if len(msg.Payload) < wire.HeaderSize {
			return nil
		}
		if msg.Code.IsResponse() {
			return func(s *session.Session, out *session.Outbox) { s.HandleResponse(msg, out) }
		}
		return func(s *session.Session, out *session.Outbox) { s.HandleCommand(msg, out) }
	}
	return nil
}

func (d *Dispatcher) signal(h transport.Handle, w work) error {
	c := d.lookup(h)
	if c == nil {
		return ErrUnknownHandle
	}
	return d.post(c, w)
}

func (d *Dispatcher) lookup(h transport.Handle) *conn {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.conns[h]
}

func (d *Dispatcher) snapshotLocked() []*conn {
	conns := make([]*conn, 0, len(d.conns))
	for _, c := range d.conns {
		conns = append(conns, c)
	}
	return conns
}

func (d *Dispatcher) findPeerLocked(peer transport.BDAddr) *conn {
	for _, c := range d.conns {
		if c.peer == peer {
			return c
		}
	}
	return nil
}

func (d *Dispatcher) newConnLocked(h transport.Handle, peer transport.BDAddr) *conn {
	c := &conn{
		handle: h,
		peer:   peer,
		sess:   session.New(h, &d.scfg),
		queue:  make(chan work, d.cfg.QueueDepth),
		done:   make(chan struct{}),
		timers: make(map[uint64]Stopper),
	}
	d.conns[h] = c
	if d.state == StateRunning {
		d.startWorkerLocked(c)
	}
	return c
}

func (d *Dispatcher) startWorkerLocked(c *conn) {
	d.wg.Add(1)
	go d.worker(d.ctx, c)
}

func (d *Dispatcher) worker(ctx context.Context, c *conn) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case w := <-c.queue:
			d.process(c, w)
		}
	}
}

func (d *Dispatcher) closeSession(c *conn) {
	d.process(c, func(s *session.Session, out *session.Outbox) { s.Close(out) })
	c.retire()
}

// post queues w on the connection's worker, or runs it inline when the
// dispatcher is not running.
func (d *Dispatcher) post(c *conn, w work) error {
	if c.retired() {
		return ErrUnknownHandle
	}
	if !d.running.Load() {
		d.process(c, w)
		return nil
	}
	select {
	case c.queue <- w:
		return nil
	default:
		return ErrQueueFull
	}
}

// process runs w under the session lock and flushes what it produced
// after unlocking.
func (d *Dispatcher) process(c *conn, w work) {
	var out session.Outbox
	c.mu.Lock()
	w(c.sess, &out)
	c.mu.Unlock()
	d.flush(c, &out)
}

func (d *Dispatcher) flush(c *conn, out *session.Outbox) {
	for _, msg := range out.Messages {
		if err := d.cfg.Transport.Send(msg); err != nil {
			d.logger.Warn("send failed", "msg", msg.String(), "error", err)
		}
	}

	for _, k := range out.Keys {
		if d.cfg.KeyInjector == nil {
			d.logger.Debug("no key injector, key dropped", "code", k.Code, "pressed", k.Pressed)
			continue
		}
		if err := d.cfg.KeyInjector.InjectKey(k.Code, k.Pressed); err != nil {
			d.logger.Warn("key injection failed", "code", k.Code, "pressed", k.Pressed, "error", err)
		}
	}

	if len(out.Events) > 0 {
		d.mu.RLock()
		handlers := d.handlers
		d.mu.RUnlock()
		for _, ev := range out.Events {
			for _, h := range handlers {
				h(ev)
			}
		}
	}

	for _, tm := range out.Timers {
		d.schedule(c, tm)
	}
}

func (d *Dispatcher) schedule(c *conn, tm session.Timer) {
	c.timerMu.Lock()
	id := c.nextTimer
	c.nextTimer++
	c.timerMu.Unlock()

	var fired atomic.Bool
	st := d.sched.AfterFunc(tm.Delay, func() {
		fired.Store(true)
		c.forget(id)
		if err := d.post(c, tm.Fire); err != nil {
			d.logger.Debug("timer dropped", "handle", c.handle, "error", err)
		}
	})

	c.timerMu.Lock()
	if !fired.Load() && !c.retired() {
		c.timers[id] = st
	}
	c.timerMu.Unlock()
}
