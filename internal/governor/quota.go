package governor

import (
	"time"
)

// quotaWindow tracks one resource (weight or orders) over a rolling window.
// Usage resets to zero once the window elapses and the window restarts at the
// observation time.
type quotaWindow struct {
	limit          int
	used           int
	windowStart    time.Time
	windowDuration time.Duration
}

// rolloverIfDue resets the window if its duration has elapsed. Idempotent:
// immediately repeated calls change state at most once.
func (w *quotaWindow) rolloverIfDue(now time.Time) bool {
	if now.Sub(w.windowStart) < w.windowDuration {
		return false
	}
	w.used = 0
	w.windowStart = now
	return true
}

func (w *quotaWindow) available() int {
	remaining := w.limit - w.used
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

func (w *quotaWindow) resetAt() time.Time {
	return w.windowStart.Add(w.windowDuration)
}

func (w *quotaWindow) percent() float64 {
	if w.limit <= 0 {
		return 0
	}
	return float64(w.used) / float64(w.limit) * 100
}

// QuotaTracker maintains rolling-window usage for the two exchange resources:
// request weight and order count. It is not safe for concurrent use; the
// governor serializes all access under its mutex so that a reserve and its
// commit form one atomic admission step.
type QuotaTracker struct {
	weight quotaWindow
	orders quotaWindow
}

// NewQuotaTracker starts both windows at now
func NewQuotaTracker(weightLimit, orderLimit int, weightWindow, orderWindow time.Duration, now time.Time) *QuotaTracker {
	return &QuotaTracker{
		weight: quotaWindow{limit: weightLimit, windowStart: now, windowDuration: weightWindow},
		orders: quotaWindow{limit: orderLimit, windowStart: now, windowDuration: orderWindow},
	}
}

// RolloverIfDue resets any window whose duration has elapsed. Safe to call
// before every Reserve.
func (t *QuotaTracker) RolloverIfDue(now time.Time) bool {
	rolled := t.weight.rolloverIfDue(now)
	if t.orders.rolloverIfDue(now) {
		rolled = true
	}
	return rolled
}

// Reserve reports whether granting the given costs would keep both resources
// within their limits for the current window. Pure check - no state change.
func (t *QuotaTracker) Reserve(weightCost, ordersCost int) bool {
	return t.weight.used+weightCost <= t.weight.limit &&
		t.orders.used+ordersCost <= t.orders.limit
}

// Commit charges the given costs against both windows. Must only follow a
// successful Reserve under the same lock hold.
func (t *QuotaTracker) Commit(weightCost, ordersCost int) {
	t.weight.used += weightCost
	t.orders.used += ordersCost
}

// AdjustSince applies post-grant cost corrections for a grant made at
// grantedAt. A resource whose window rolled over since the grant is left
// untouched - the original charge is already gone. Usage is clamped at zero;
// returns true if either resource had to be clamped.
func (t *QuotaTracker) AdjustSince(grantedAt time.Time, weightDelta, ordersDelta int) bool {
	clamped := false

	if !grantedAt.Before(t.weight.windowStart) {
		t.weight.used += weightDelta
		if t.weight.used < 0 {
			t.weight.used = 0
			clamped = true
		}
	}

	if !grantedAt.Before(t.orders.windowStart) {
		t.orders.used += ordersDelta
		if t.orders.used < 0 {
			t.orders.used = 0
			clamped = true
		}
	}

	return clamped
}

// GrantExpired reports whether a grant made at grantedAt predates both
// current windows, so an amendment could no longer adjust anything
func (t *QuotaTracker) GrantExpired(grantedAt time.Time) bool {
	return grantedAt.Before(t.weight.windowStart) && grantedAt.Before(t.orders.windowStart)
}

// ExceedsLimit reports whether either cost alone is larger than its limit,
// meaning the ticket could never be granted in any window
func (t *QuotaTracker) ExceedsLimit(weightCost, ordersCost int) bool {
	return weightCost > t.weight.limit || ordersCost > t.orders.limit
}

// AvailableWeight returns remaining weight in the current window, clamped at zero
func (t *QuotaTracker) AvailableWeight() int {
	return t.weight.available()
}

// AvailableOrders returns remaining order quota in the current window, clamped at zero
func (t *QuotaTracker) AvailableOrders() int {
	return t.orders.available()
}

// NextReset returns the earliest instant at which either window rolls over
func (t *QuotaTracker) NextReset() time.Time {
	wr := t.weight.resetAt()
	or := t.orders.resetAt()
	if or.Before(wr) {
		return or
	}
	return wr
}

// UsedWeight returns weight consumed in the current window
func (t *QuotaTracker) UsedWeight() int { return t.weight.used }

// UsedOrders returns orders consumed in the current window
func (t *QuotaTracker) UsedOrders() int { return t.orders.used }

// WeightLimit returns the configured weight ceiling
func (t *QuotaTracker) WeightLimit() int { return t.weight.limit }

// OrderLimit returns the configured order ceiling
func (t *QuotaTracker) OrderLimit() int { return t.orders.limit }

// WeightPercent returns weight usage as a percentage of the limit
func (t *QuotaTracker) WeightPercent() float64 { return t.weight.percent() }

// OrderPercent returns order usage as a percentage of the limit
func (t *QuotaTracker) OrderPercent() float64 { return t.orders.percent() }
