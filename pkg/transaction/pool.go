// Package transaction manages AVRCP transaction labels.
//
// Every outstanding request on a connection holds one of 16 four-bit
// labels until its response arrives. A Pool hands out the lowest free
// label and is safe for concurrent use.
package transaction

import (
	"errors"
	"sync"
	"time"

	"github.com/avrcp-protocol/avrcp-go/pkg/wire"
)

// MaxTransactionsPerSession is the number of labels per connection.
const MaxTransactionsPerSession = 16

// InvalidLabel is the "no label" sentinel. It is never handed out, and
// releasing it is a no-op.
const InvalidLabel uint8 = MaxTransactionsPerSession

// Pool errors.
var (
	ErrOutOfLabels = errors.New("all transaction labels in use")
	ErrNotFound    = errors.New("transaction label not in use")
)

// Transaction is one outstanding request.
type Transaction struct {
	Label  uint8
	PDU    wire.PduID
	Opcode wire.Opcode

	// Started is when the label was acquired.
	Started time.Time

	pool *Pool
}

// Release returns the label to its pool.
func (t *Transaction) Release() {
	if t != nil && t.pool != nil {
		t.pool.Release(t.Label)
	}
}

// Pool is a fixed slab of MaxTransactionsPerSession transactions.
type Pool struct {
	mu    sync.Mutex
	slots [MaxTransactionsPerSession]*Transaction

	// timeNow is injectable for tests.
	timeNow func() time.Time
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{timeNow: time.Now}
}

// Acquire reserves the lowest free label for a request of the given PDU.
func (p *Pool) Acquire(opcode wire.Opcode, pdu wire.PduID) (*Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, slot := range p.slots {
		if slot != nil {
			continue
		}
		t := &Transaction{
			Label:   uint8(i),
			PDU:     pdu,
			Opcode:  opcode,
			Started: p.now(),
			pool:    p,
		}
		p.slots[i] = t
		return t, nil
	}
	return nil, ErrOutOfLabels
}

// Lookup returns the in-use transaction for label.
func (p *Pool) Lookup(label uint8) (*Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if label >= MaxTransactionsPerSession || p.slots[label] == nil {
		return nil, ErrNotFound
	}
	return p.slots[label], nil
}

// InUse reports whether label is currently held.
func (p *Pool) InUse(label uint8) bool {
	_, err := p.Lookup(label)
	return err == nil
}

// Release frees label. Releasing a free or out-of-range label, including
// InvalidLabel, does nothing.
func (p *Pool) Release(label uint8) {
	if label >= MaxTransactionsPerSession {
		return
	}
	p.mu.Lock()
	p.slots[label] = nil
	p.mu.Unlock()
}

// Reset frees every label.
func (p *Pool) Reset() {
	p.mu.Lock()
	p.slots = [MaxTransactionsPerSession]*Transaction{}
	p.mu.Unlock()
}

// Count returns the number of labels in use.
func (p *Pool) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, slot := range p.slots {
		if slot != nil {
			n++
		}
	}
	return n
}

func (p *Pool) now() time.Time {
	if p.timeNow == nil {
		return time.Now()
	}
	return p.timeNow()
}
