// Package session implements the per-connection AVRCP state machine.
//
// A Session holds everything the engine knows about one connected peer:
// negotiated features, the notification table, transaction labels, the
// volume registration label, fragmentation state and the pending PLAY
// slot used while the audio transport is not ready.
//
// Sessions never perform I/O. Every operation appends its side effects
// (outbound messages, application events, injected keys, timers) to an
// Outbox, which the owner flushes after releasing its lock. The owner must
// serialize calls on one Session; the transaction pool is the only part
// that is also safe for concurrent use.
package session
