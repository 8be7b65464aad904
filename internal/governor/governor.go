package governor

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Config holds the exchange quota parameters the governor enforces
type Config struct {
	WeightLimit  int           // Request weight allowed per weight window
	WeightWindow time.Duration // Rolling window for request weight
	OrderLimit   int           // Orders allowed per order window
	OrderWindow  time.Duration // Rolling window for order count

	MaxQueueDepth  int // Total tickets allowed in the queue across all tiers
	LowTierBacklog int // Low-tier depth that triggers a polling recommendation
}

// Governor admits outbound exchange requests without exceeding the configured
// weight and order quotas, serving higher priority tiers first. All scheduling
// state is guarded by one mutex so a reserve and its commit can never
// interleave with another ticket's - that is what keeps observed usage at or
// below the limits no matter how many producers submit concurrently.
type Governor struct {
	mu       sync.Mutex
	cfg      Config
	tracker  *QuotaTracker
	queue    *priorityQueue
	inflight map[uuid.UUID]*grant
	recorder Recorder

	rolloverTimer *time.Timer
	deadlineTimer *time.Timer
	stopped       bool
}

// grant is an admitted ticket awaiting its producer's cost acknowledgment.
// The true cost of some requests is only known from the exchange's response
// headers, so the estimate stays adjustable until amended or the window rolls.
type grant struct {
	weightCost int
	ordersCost int
	grantedAt  time.Time
}

// New creates a started governor. rec may be nil; when set it receives every
// ticket resolution and must not block.
func New(cfg Config, rec Recorder) *Governor {
	if cfg.WeightLimit <= 0 {
		cfg.WeightLimit = 2400
	}
	if cfg.WeightWindow <= 0 {
		cfg.WeightWindow = time.Minute
	}
	if cfg.OrderLimit <= 0 {
		cfg.OrderLimit = 300
	}
	if cfg.OrderWindow <= 0 {
		cfg.OrderWindow = 10 * time.Second
	}
	if cfg.MaxQueueDepth <= 0 {
		cfg.MaxQueueDepth = 256
	}
	if cfg.LowTierBacklog <= 0 {
		cfg.LowTierBacklog = 32
	}

	now := time.Now()
	g := &Governor{
		cfg:      cfg,
		tracker:  NewQuotaTracker(cfg.WeightLimit, cfg.OrderLimit, cfg.WeightWindow, cfg.OrderWindow, now),
		queue:    newPriorityQueue(cfg.MaxQueueDepth),
		inflight: make(map[uuid.UUID]*grant),
		recorder: rec,
	}

	g.mu.Lock()
	g.rearmRolloverLocked()
	g.mu.Unlock()

	return g
}

// Submit queues an admission request and returns a handle that resolves when
// the ticket is granted, times out, or is preempted. deadline may be zero for
// no deadline. Queue-full rejection and impossible costs are returned
// synchronously - no ticket is created for them.
func (g *Governor) Submit(tier PriorityTier, weightCost, ordersCost int, deadline time.Time) (*TicketHandle, error) {
	if weightCost < 0 || ordersCost < 0 {
		log.Printf("governor: negative cost submitted (%d weight, %d orders), clamping to zero", weightCost, ordersCost)
		if weightCost < 0 {
			weightCost = 0
		}
		if ordersCost < 0 {
			ordersCost = 0
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stopped {
		return nil, ErrStopped
	}
	if g.tracker.ExceedsLimit(weightCost, ordersCost) {
		return nil, ErrCostExceedsLimit
	}

	now := time.Now()
	t := &ticket{
		id:         uuid.New(),
		tier:       tier,
		weightCost: weightCost,
		ordersCost: ordersCost,
		enqueuedAt: now,
		deadline:   deadline,
		result:     make(chan Outcome, 1),
	}

	evicted, err := g.queue.enqueue(t)
	if err != nil {
		g.record(t, "queue_full", now)
		return nil, err
	}
	if evicted != nil {
		g.resolveLocked(evicted, Outcome{Status: Preempted}, now)
	}

	g.dispatchLocked(now)
	g.rearmDeadlineLocked()

	return &TicketHandle{id: t.id, g: g, res: t.result}, nil
}

// AmendCost replaces a grant's estimated cost with the actual cost observed
// by the producer, typically from the exchange's usage headers. Only valid
// after the handle resolved Granted and before the quota window rolls over.
// An amendment that frees quota immediately retries dispatch for waiting
// tickets.
func (g *Governor) AmendCost(h *TicketHandle, actualWeight, actualOrders int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	gr, ok := g.inflight[h.id]
	if !ok {
		return ErrNotGranted
	}
	delete(g.inflight, h.id)

	weightDelta := actualWeight - gr.weightCost
	ordersDelta := actualOrders - gr.ordersCost
	if clamped := g.tracker.AdjustSince(gr.grantedAt, weightDelta, ordersDelta); clamped {
		log.Printf("governor: amendment for ticket %s would drive usage negative, clamped at zero", h.id)
	}

	if weightDelta < 0 || ordersDelta < 0 {
		g.dispatchLocked(time.Now())
		g.rearmDeadlineLocked()
	}
	return nil
}

// cancel removes a still-queued ticket. Returns false when the ticket already
// resolved - a grant that raced the cancellation wins and stays charged.
func (g *Governor) cancel(id uuid.UUID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	t := g.queue.remove(id)
	if t == nil || t.resolved {
		return false
	}
	now := time.Now()
	t.resolved = true
	g.record(t, "cancelled", now)

	// The cancelled ticket may have been blocking lower tiers
	g.dispatchLocked(now)
	g.rearmDeadlineLocked()
	return true
}

// Stop halts the timers and fails every queued ticket with Shutdown so no
// producer is left blocked. Safe to call once; further submissions are
// rejected with ErrStopped.
func (g *Governor) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stopped {
		return
	}
	g.stopped = true

	if g.rolloverTimer != nil {
		g.rolloverTimer.Stop()
	}
	if g.deadlineTimer != nil {
		g.deadlineTimer.Stop()
	}

	now := time.Now()
	for _, t := range g.queue.drain() {
		g.resolveLocked(t, Outcome{Status: Shutdown}, now)
	}

	log.Printf("governor: stopped")
}

// Stopped reports whether the governor has been shut down
func (g *Governor) Stopped() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stopped
}

// dispatchLocked runs admission cycles until nothing else fits: roll windows
// if due, pick the admissible ticket, commit its cost, notify the producer.
// Caller holds g.mu.
func (g *Governor) dispatchLocked(now time.Time) {
	// A deadline is a hard contract: a ticket whose deadline already passed
	// times out here, never grants, even when quota just freed up and the
	// sweep timer hasn't fired yet.
	for _, t := range g.queue.expireDue(now) {
		g.resolveLocked(t, Outcome{Status: Timeout}, now)
	}

	for {
		g.tracker.RolloverIfDue(now)

		t := g.queue.peekAdmissible(func(t *ticket) bool {
			return g.tracker.Reserve(t.weightCost, t.ordersCost)
		})
		if t == nil {
			break
		}

		g.queue.remove(t.id)
		g.tracker.Commit(t.weightCost, t.ordersCost)
		g.inflight[t.id] = &grant{
			weightCost: t.weightCost,
			ordersCost: t.ordersCost,
			grantedAt:  now,
		}
		g.resolveLocked(t, Outcome{Status: Granted, GrantedAt: now}, now)
	}

	g.pruneInflightLocked()
	g.rearmRolloverLocked()
}

// sweepDeadlines fails tickets whose deadline passed while queued. A deadline
// is a hard contract: an expired ticket times out even if it just became
// admissible.
func (g *Governor) sweepDeadlines() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stopped {
		return
	}

	// dispatchLocked fails every due ticket first, then serves whatever
	// those tickets were blocking - an expired higher-tier head must not
	// leave admissible lower tiers waiting for the next submission or
	// window rollover.
	g.dispatchLocked(time.Now())
	g.rearmDeadlineLocked()
}

// onRollover fires when the earlier of the two quota windows resets, so
// queued tickets are served promptly after a refill instead of waiting for
// the next submission.
func (g *Governor) onRollover() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stopped {
		return
	}
	g.dispatchLocked(time.Now())
	g.rearmDeadlineLocked()
}

// rearmRolloverLocked points the rollover timer at the next window reset.
// Caller holds g.mu.
func (g *Governor) rearmRolloverLocked() {
	if g.stopped {
		return
	}
	if g.rolloverTimer != nil {
		g.rolloverTimer.Stop()
	}
	g.rolloverTimer = time.AfterFunc(time.Until(g.tracker.NextReset()), g.onRollover)
}

// rearmDeadlineLocked points the deadline timer at the earliest queued
// deadline, or disarms it. Caller holds g.mu.
func (g *Governor) rearmDeadlineLocked() {
	if g.stopped {
		return
	}
	if g.deadlineTimer != nil {
		g.deadlineTimer.Stop()
		g.deadlineTimer = nil
	}
	if earliest, ok := g.queue.earliestDeadline(); ok {
		g.deadlineTimer = time.AfterFunc(time.Until(earliest), g.sweepDeadlines)
	}
}

// pruneInflightLocked drops grants whose window has already rolled over;
// their amendment deltas no longer map to any tracked usage. Caller holds g.mu.
func (g *Governor) pruneInflightLocked() {
	for id, gr := range g.inflight {
		if g.tracker.GrantExpired(gr.grantedAt) {
			delete(g.inflight, id)
		}
	}
}

// resolveLocked delivers a ticket's outcome exactly once. Caller holds g.mu.
func (g *Governor) resolveLocked(t *ticket, out Outcome, now time.Time) {
	if t.resolved {
		return
	}
	t.resolved = true
	t.result <- out
	g.record(t, out.Status.String(), now)
}

// record forwards a resolution to the recorder, if any. Caller holds g.mu.
func (g *Governor) record(t *ticket, outcome string, now time.Time) {
	if g.recorder == nil {
		return
	}
	g.recorder.Record(TicketRecord{
		ID:         t.id,
		Tier:       t.tier,
		WeightCost: t.weightCost,
		OrdersCost: t.ordersCost,
		Outcome:    outcome,
		EnqueuedAt: t.enqueuedAt,
		ResolvedAt: now,
		WaitMs:     now.Sub(t.enqueuedAt).Milliseconds(),
	})
}
