// Package session implements the per-connection engine of spec.md §4:
// the goal worker / communication worker pair, the framed protocol
// state machine, and the shared cancellation and query-in-progress
// bookkeeping the two workers coordinate through.
package session

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Pair is the connection pair of spec.md §3: the immutable identity of
// one accepted connection plus the mutable state shared between its two
// workers. CommID and GoalID are generated with uuid.NewString rather
// than the teacher's accept-order counter scheme, since they are
// returned to the client in the handshake reply and must not leak
// connection ordering.
type Pair struct {
	ServerID string
	CommID   string
	GoalID   string
	Conn     net.Conn

	// queryInProgress is true iff there is at least one unconsumed
	// result on the goal worker's outbox (I2). Asserted by the
	// communication worker on dispatch, cleared after it drains a
	// terminal result.
	queryInProgress atomic.Bool

	// connFailed is set once an infrastructure failure (socket error,
	// goal worker crash) has been observed for this connection, per
	// SPEC_FULL.md's supplement from the original's
	// self.connection_failed flag: once set, no further blocking
	// operation is attempted on this pair.
	connFailed atomic.Bool

	// cancelMu guards safeToCancel and cancelFn together, matching
	// spec.md §5's "cancellation mutex protects the 'is the worker
	// inside the cancellable region?' decision and the accompanying
	// signal injection".
	cancelMu        sync.Mutex
	safeToCancel    bool
	cancelRequested bool
	cancelFn        context.CancelFunc
}

// NewPair allocates connection-pair identity for a freshly accepted
// conn.
func NewPair(serverID string, conn net.Conn) *Pair {
	return &Pair{
		ServerID: serverID,
		CommID:   uuid.NewString(),
		GoalID:   uuid.NewString(),
		Conn:     conn,
	}
}

// SetQueryInProgress implements I2's "asserted when a goal is
// dispatched" half.
func (p *Pair) SetQueryInProgress(v bool) { p.queryInProgress.Store(v) }

// QueryInProgress implements I2's read side.
func (p *Pair) QueryInProgress() bool { return p.queryInProgress.Load() }

// MarkConnectionFailed records a sticky infrastructure failure.
func (p *Pair) MarkConnectionFailed() { p.connFailed.Store(true) }

// ConnectionFailed reports whether a sticky infrastructure failure has
// already been observed on this pair.
func (p *Pair) ConnectionFailed() bool { return p.connFailed.Load() }

// beginCancellableRegion is called by the goal worker around the
// bracketed engine call (I3). It installs cancelFn, the function
// TryCancel will invoke if a cancellation arrives while the region is
// open.
func (p *Pair) beginCancellableRegion(cancelFn context.CancelFunc) {
	p.cancelMu.Lock()
	defer p.cancelMu.Unlock()
	p.safeToCancel = true
	p.cancelRequested = false
	p.cancelFn = cancelFn
}

// endCancellableRegion closes the bracketed region. It returns whether
// a cancellation was requested while the region was open, so the goal
// worker can attribute the terminal result correctly.
func (p *Pair) endCancellableRegion() (wasCancelled bool) {
	p.cancelMu.Lock()
	defer p.cancelMu.Unlock()
	wasCancelled = p.cancelRequested
	p.safeToCancel = false
	p.cancelRequested = false
	p.cancelFn = nil
	return wasCancelled
}

// TryCancel implements the cancel_async command of spec.md §4.3: if
// safe_to_cancel holds, inject cancellation and report injected=true.
// Otherwise report injected=false, leaving the caller to consult
// QueryInProgress to decide between "true([[]])" (pending results) and
// "exception(no_query)".
func (p *Pair) TryCancel() (injected bool) {
	p.cancelMu.Lock()
	defer p.cancelMu.Unlock()
	if !p.safeToCancel || p.cancelFn == nil {
		return false
	}
	p.cancelRequested = true
	p.cancelFn()
	return true
}
