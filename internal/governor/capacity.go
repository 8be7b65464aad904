package governor

import "time"

// CapacityStatus summarizes how close the governor is to exhausting quota
type CapacityStatus int

const (
	StatusHealthy CapacityStatus = iota
	StatusModerate
	StatusCritical
)

func (s CapacityStatus) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusModerate:
		return "moderate"
	case StatusCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Usage ratio thresholds for the status bands
const (
	moderateThreshold = 70.0
	criticalThreshold = 90.0
)

// Recommendation is a remediation hint derived from current usage
type Recommendation struct {
	Level      string `json:"level"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion"`
}

// capacityInput is everything recommendation generation may look at. Keeping
// it a plain value makes the derivation reproducible from a snapshot.
type capacityInput struct {
	WeightPercent  float64
	OrderPercent   float64
	QueueDepth     int
	MaxQueueDepth  int
	LowTierDepth   int
	LowTierBacklog int
	OldestWait     time.Duration
}

// capacityPercent is the governing usage ratio: whichever resource is closer
// to its limit
func capacityPercent(weightPercent, orderPercent float64) float64 {
	if orderPercent > weightPercent {
		return orderPercent
	}
	return weightPercent
}

// statusFor maps a capacity percentage onto a status band
func statusFor(percent float64) CapacityStatus {
	switch {
	case percent >= criticalThreshold:
		return StatusCritical
	case percent >= moderateThreshold:
		return StatusModerate
	default:
		return StatusHealthy
	}
}

// recommendationsFor derives remediation hints from usage and queue state.
// Stateless: the same input always yields the same recommendations, in the
// same order.
func recommendationsFor(in capacityInput) []Recommendation {
	recs := []Recommendation{}

	switch statusFor(capacityPercent(in.WeightPercent, in.OrderPercent)) {
	case StatusCritical:
		recs = append(recs, Recommendation{
			Level:      "critical",
			Message:    "API quota is nearly exhausted for the current window",
			Suggestion: "defer all non-critical requests until the window resets",
		})
	case StatusModerate:
		recs = append(recs, Recommendation{
			Level:      "warning",
			Message:    "API quota usage is elevated",
			Suggestion: "batch account queries and avoid redundant polling",
		})
	}

	if in.LowTierBacklog > 0 && in.LowTierDepth > in.LowTierBacklog {
		recs = append(recs, Recommendation{
			Level:      "warning",
			Message:    "low-priority backlog is building up",
			Suggestion: "reduce polling frequency until the backlog drains",
		})
	}

	if in.MaxQueueDepth > 0 && in.QueueDepth*5 >= in.MaxQueueDepth*4 {
		recs = append(recs, Recommendation{
			Level:      "critical",
			Message:    "admission queue is above 80% of its depth",
			Suggestion: "new low-priority submissions risk rejection or preemption",
		})
	}

	if in.OldestWait > 30*time.Second {
		recs = append(recs, Recommendation{
			Level:      "info",
			Message:    "the oldest queued request has been waiting over 30s",
			Suggestion: "check for an exhausted quota window or an oversized request",
		})
	}

	return recs
}
