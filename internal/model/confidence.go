package model

// ConfidenceBucket is the discrete label derived from a numeric confidence
// score. It is never stored on its own; always recompute from the score.
type ConfidenceBucket string

const (
	BucketVeryHigh ConfidenceBucket = "very-high"
	BucketHigh     ConfidenceBucket = "high"
	BucketMedium   ConfidenceBucket = "medium"
	BucketLow      ConfidenceBucket = "low"
	BucketVeryLow  ConfidenceBucket = "very-low"
)

// BucketFor maps a confidence score in [0,100] to its bucket. The mapping is
// total and monotonic; out-of-range scores clamp to the nearest bucket.
func BucketFor(score float64) ConfidenceBucket {
	switch {
	case score >= 90:
		return BucketVeryHigh
	case score >= 70:
		return BucketHigh
	case score >= 50:
		return BucketMedium
	case score >= 30:
		return BucketLow
	default:
		return BucketVeryLow
	}
}

// Priority ranks insights for presentation.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// priorityOrder maps priorities to numeric tiers for bounded shifts.
var priorityOrder = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

func priorityIndex(p Priority) int {
	for i, v := range priorityOrder {
		if v == p {
			return i
		}
	}
	return 1 // unknown priorities behave as medium
}

// Raise moves the priority up one tier, capped at critical.
func (p Priority) Raise() Priority {
	i := priorityIndex(p)
	if i >= len(priorityOrder)-1 {
		return PriorityCritical
	}
	return priorityOrder[i+1]
}

// Lower moves the priority down one tier, capped at low.
func (p Priority) Lower() Priority {
	i := priorityIndex(p)
	if i <= 0 {
		return PriorityLow
	}
	return priorityOrder[i-1]
}
