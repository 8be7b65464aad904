package governor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrQueueFull is returned when the queue is at max depth and the new
	// ticket does not outrank the lowest-priority occupant
	ErrQueueFull = errors.New("admission queue is full")

	// ErrCostExceedsLimit is returned when a ticket's cost alone exceeds a
	// configured limit, so it could never be granted in any window
	ErrCostExceedsLimit = errors.New("ticket cost exceeds configured limit")

	// ErrStopped is returned when submitting to a stopped governor
	ErrStopped = errors.New("governor is stopped")

	// ErrNotGranted is returned when amending a ticket that is not in-flight
	ErrNotGranted = errors.New("ticket is not an in-flight grant")
)

// PriorityTier orders tickets for dispatch. Lower values are dispatched first.
// Four coarse tiers work well in practice; anything finer-grained tends to
// collapse into these buckets anyway.
type PriorityTier int

const (
	// TierCritical - latency-sensitive safety actions, e.g. cancelling orders
	// after a liquidation signal
	TierCritical PriorityTier = iota

	// TierHigh - order placement on an active strategy
	TierHigh

	// TierMedium - account state queries needed for decisions
	TierMedium

	// TierLow - routine polling, backfills, reconciliation
	TierLow
)

const numTiers = 4

func (t PriorityTier) String() string {
	switch t {
	case TierCritical:
		return "critical"
	case TierHigh:
		return "high"
	case TierMedium:
		return "medium"
	case TierLow:
		return "low"
	default:
		return "unknown"
	}
}

// ParseTier converts a tier name to a PriorityTier
func ParseTier(s string) (PriorityTier, error) {
	switch s {
	case "critical":
		return TierCritical, nil
	case "high":
		return TierHigh, nil
	case "medium":
		return TierMedium, nil
	case "low":
		return TierLow, nil
	default:
		return 0, errors.New("unknown priority tier: " + s)
	}
}

// OutcomeStatus is the terminal state of a submitted ticket
type OutcomeStatus int

const (
	// Granted - the ticket was admitted and its cost committed
	Granted OutcomeStatus = iota

	// Timeout - the ticket's deadline elapsed while still queued
	Timeout

	// Preempted - the ticket was evicted to make room for a higher tier
	Preempted

	// Shutdown - the governor stopped while the ticket was queued
	Shutdown
)

func (s OutcomeStatus) String() string {
	switch s {
	case Granted:
		return "granted"
	case Timeout:
		return "timeout"
	case Preempted:
		return "preempted"
	case Shutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// Outcome resolves a ticket exactly once
type Outcome struct {
	Status    OutcomeStatus
	GrantedAt time.Time
}

// ticket is a pending admission request. All fields are written under the
// governor mutex after construction.
type ticket struct {
	id         uuid.UUID
	tier       PriorityTier
	weightCost int
	ordersCost int
	enqueuedAt time.Time
	deadline   time.Time // zero means no deadline
	result     chan Outcome
	resolved   bool
}

// TicketHandle is the producer's side of a submitted ticket
type TicketHandle struct {
	id  uuid.UUID
	g   *Governor
	res <-chan Outcome
}

// ID returns the ticket identifier assigned at submission
func (h *TicketHandle) ID() uuid.UUID {
	return h.id
}

// Done returns a channel that receives the ticket's outcome exactly once
func (h *TicketHandle) Done() <-chan Outcome {
	return h.res
}

// Wait blocks until the ticket resolves or ctx is cancelled. On context
// cancellation the ticket is removed from the queue; if a grant raced the
// cancellation, the grant wins and is returned.
func (h *TicketHandle) Wait(ctx context.Context) (Outcome, error) {
	select {
	case out := <-h.res:
		return out, nil
	case <-ctx.Done():
		if h.g.cancel(h.id) {
			return Outcome{}, ctx.Err()
		}
		// Too late to cancel - the outcome is already on its way
		out := <-h.res
		return out, nil
	}
}

// Cancel removes the ticket from the queue if it has not resolved yet.
// Returns false if the ticket already resolved (grant wins).
func (h *TicketHandle) Cancel() bool {
	return h.g.cancel(h.id)
}

// TicketRecord is the audit view of a resolved ticket, handed to a Recorder
type TicketRecord struct {
	ID         uuid.UUID
	Tier       PriorityTier
	WeightCost int
	OrdersCost int
	Outcome    string
	EnqueuedAt time.Time
	ResolvedAt time.Time
	WaitMs     int64
}

// Recorder receives every ticket resolution. Implementations must not block;
// they are invoked from the scheduling path.
type Recorder interface {
	Record(rec TicketRecord)
}
