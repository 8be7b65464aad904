package governor

import "time"

// Snapshot is the externally visible read model: a point-in-time copy of
// usage, queue, and capacity state for the dashboard's pollers. Building it
// never mutates scheduling state and holds the governor lock only for the
// copy.
type Snapshot struct {
	Usage           UsageSnapshot    `json:"usage"`
	Queue           QueueSnapshot    `json:"queue"`
	Capacity        CapacitySnapshot `json:"capacity"`
	Recommendations []Recommendation `json:"recommendations"`
	Timestamp       time.Time        `json:"timestamp"`
}

type UsageSnapshot struct {
	Weight        int     `json:"weight"`
	WeightLimit   int     `json:"weightLimit"`
	WeightPercent float64 `json:"weightPercent"`
	Orders        int     `json:"orders"`
	OrderLimit    int     `json:"orderLimit"`
	OrderPercent  float64 `json:"orderPercent"`
	QueueLength   int     `json:"queueLength"`
}

type QueueSnapshot struct {
	Total        int            `json:"total"`
	ByPriority   map[string]int `json:"byPriority"`
	OldestWaitMs int64          `json:"oldestWaitTime"`
}

type CapacitySnapshot struct {
	AvailableWeight int     `json:"availableWeight"`
	AvailableOrders int     `json:"availableOrders"`
	CapacityPercent float64 `json:"capacityPercent"`
	Status          string  `json:"status"`
}

// Snapshot renders the current governor state. A window that is due is
// rendered as already rolled over, but the reset is not written back: the
// rollover timer owns that mutation, this path stays read-only.
func (g *Governor) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	weight := g.tracker.weight
	orders := g.tracker.orders
	weight.rolloverIfDue(now)
	orders.rolloverIfDue(now)

	byTier := g.queue.lenByTier()
	var oldestWait time.Duration
	if oldest, ok := g.queue.oldestEnqueuedAt(); ok {
		oldestWait = now.Sub(oldest)
	}

	weightPct := weight.percent()
	orderPct := orders.percent()
	capPct := capacityPercent(weightPct, orderPct)

	return Snapshot{
		Usage: UsageSnapshot{
			Weight:        weight.used,
			WeightLimit:   weight.limit,
			WeightPercent: weightPct,
			Orders:        orders.used,
			OrderLimit:    orders.limit,
			OrderPercent:  orderPct,
			QueueLength:   g.queue.len(),
		},
		Queue: QueueSnapshot{
			Total: g.queue.len(),
			ByPriority: map[string]int{
				TierCritical.String(): byTier[TierCritical],
				TierHigh.String():     byTier[TierHigh],
				TierMedium.String():   byTier[TierMedium],
				TierLow.String():      byTier[TierLow],
			},
			OldestWaitMs: oldestWait.Milliseconds(),
		},
		Capacity: CapacitySnapshot{
			AvailableWeight: weight.available(),
			AvailableOrders: orders.available(),
			CapacityPercent: capPct,
			Status:          statusFor(capPct).String(),
		},
		Recommendations: recommendationsFor(capacityInput{
			WeightPercent:  weightPct,
			OrderPercent:   orderPct,
			QueueDepth:     g.queue.len(),
			MaxQueueDepth:  g.cfg.MaxQueueDepth,
			LowTierDepth:   byTier[TierLow],
			LowTierBacklog: g.cfg.LowTierBacklog,
			OldestWait:     oldestWait,
		}),
		Timestamp: now,
	}
}
