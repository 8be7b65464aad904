package governor

import (
	"time"

	"github.com/google/uuid"
)

// priorityQueue holds queued tickets in four tier buckets, FIFO within each
// bucket. Total depth is bounded; a full queue evicts its oldest
// lowest-priority occupant when a strictly higher-priority ticket arrives.
// Not safe for concurrent use - the governor owns it under its mutex.
type priorityQueue struct {
	maxDepth int
	tiers    [numTiers][]*ticket
	size     int
}

func newPriorityQueue(maxDepth int) *priorityQueue {
	return &priorityQueue{maxDepth: maxDepth}
}

// enqueue appends t to the tail of its tier bucket. If the queue is full and
// t strictly outranks the lowest occupied tier, the oldest ticket of that tier
// is evicted and returned so the caller can fail it with Preempted. Otherwise
// a full queue rejects t with ErrQueueFull.
func (q *priorityQueue) enqueue(t *ticket) (*ticket, error) {
	if q.size < q.maxDepth {
		q.tiers[t.tier] = append(q.tiers[t.tier], t)
		q.size++
		return nil, nil
	}

	// Check the lowest occupied tier for an eviction candidate
	for tier := numTiers - 1; tier >= 0; tier-- {
		if len(q.tiers[tier]) == 0 {
			continue
		}
		if int(t.tier) >= tier {
			// Incoming ticket does not outrank the lowest occupant
			return nil, ErrQueueFull
		}

		evicted := q.tiers[tier][0]
		q.tiers[tier] = q.tiers[tier][1:]
		q.tiers[t.tier] = append(q.tiers[t.tier], t)
		return evicted, nil
	}

	// Queue reported full but every bucket is empty
	return nil, ErrQueueFull
}

// peekAdmissible returns the oldest ticket in the highest occupied tier for
// which costFits holds, or nil. Lower tiers are never considered while a
// higher tier has tickets queued, even if those are quota-blocked: a cheap
// low-tier poll must not slip ahead of a blocked critical cancel. The only
// safeguard against waiting forever is the ticket deadline.
func (q *priorityQueue) peekAdmissible(costFits func(*ticket) bool) *ticket {
	for tier := 0; tier < numTiers; tier++ {
		if len(q.tiers[tier]) == 0 {
			continue
		}
		for _, t := range q.tiers[tier] {
			if costFits(t) {
				return t
			}
		}
		return nil
	}
	return nil
}

// remove deletes the ticket with the given id; no-op if absent
func (q *priorityQueue) remove(id uuid.UUID) *ticket {
	for tier := 0; tier < numTiers; tier++ {
		for i, t := range q.tiers[tier] {
			if t.id == id {
				q.tiers[tier] = append(q.tiers[tier][:i], q.tiers[tier][i+1:]...)
				q.size--
				return t
			}
		}
	}
	return nil
}

// expireDue removes and returns all tickets whose deadline has passed
func (q *priorityQueue) expireDue(now time.Time) []*ticket {
	var expired []*ticket
	for tier := 0; tier < numTiers; tier++ {
		kept := q.tiers[tier][:0]
		for _, t := range q.tiers[tier] {
			if !t.deadline.IsZero() && !now.Before(t.deadline) {
				expired = append(expired, t)
				q.size--
			} else {
				kept = append(kept, t)
			}
		}
		q.tiers[tier] = kept
	}
	return expired
}

// drain empties the queue and returns everything that was queued
func (q *priorityQueue) drain() []*ticket {
	var all []*ticket
	for tier := 0; tier < numTiers; tier++ {
		all = append(all, q.tiers[tier]...)
		q.tiers[tier] = nil
	}
	q.size = 0
	return all
}

func (q *priorityQueue) len() int {
	return q.size
}

func (q *priorityQueue) lenByTier() [numTiers]int {
	var counts [numTiers]int
	for tier := 0; tier < numTiers; tier++ {
		counts[tier] = len(q.tiers[tier])
	}
	return counts
}

// oldestEnqueuedAt returns the enqueue time of the oldest queued ticket
func (q *priorityQueue) oldestEnqueuedAt() (time.Time, bool) {
	var oldest time.Time
	found := false
	for tier := 0; tier < numTiers; tier++ {
		for _, t := range q.tiers[tier] {
			if !found || t.enqueuedAt.Before(oldest) {
				oldest = t.enqueuedAt
				found = true
			}
		}
	}
	return oldest, found
}

// earliestDeadline returns the soonest deadline among queued tickets
func (q *priorityQueue) earliestDeadline() (time.Time, bool) {
	var earliest time.Time
	found := false
	for tier := 0; tier < numTiers; tier++ {
		for _, t := range q.tiers[tier] {
			if t.deadline.IsZero() {
				continue
			}
			if !found || t.deadline.Before(earliest) {
				earliest = t.deadline
				found = true
			}
		}
	}
	return earliest, found
}
