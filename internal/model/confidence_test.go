package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucketFor_Boundaries(t *testing.T) {
	assert.Equal(t, BucketVeryHigh, BucketFor(90))
	assert.Equal(t, BucketHigh, BucketFor(89.9))
	assert.Equal(t, BucketHigh, BucketFor(70))
	assert.Equal(t, BucketMedium, BucketFor(69.9))
	assert.Equal(t, BucketMedium, BucketFor(50))
	assert.Equal(t, BucketLow, BucketFor(49.9))
	assert.Equal(t, BucketLow, BucketFor(30))
	assert.Equal(t, BucketVeryLow, BucketFor(29.9))
	assert.Equal(t, BucketVeryLow, BucketFor(0))
}

func TestBucketFor_TotalAndMonotonic(t *testing.T) {
	rank := map[ConfidenceBucket]int{
		BucketVeryLow:  0,
		BucketLow:      1,
		BucketMedium:   2,
		BucketHigh:     3,
		BucketVeryHigh: 4,
	}

	prev := -1
	for score := 0.0; score <= 100.0; score += 0.5 {
		b := BucketFor(score)
		r, ok := rank[b]
		if !ok {
			t.Fatalf("score %v yielded undefined bucket %q", score, b)
		}
		if r < prev {
			t.Fatalf("bucket rank decreased at score %v", score)
		}
		prev = r
	}
}

func TestBucketFor_ClampsOutOfRange(t *testing.T) {
	assert.Equal(t, BucketVeryLow, BucketFor(-10))
	assert.Equal(t, BucketVeryHigh, BucketFor(150))
}

func TestPriority_RaiseLowerBounded(t *testing.T) {
	assert.Equal(t, PriorityMedium, PriorityLow.Raise())
	assert.Equal(t, PriorityCritical, PriorityHigh.Raise())
	assert.Equal(t, PriorityCritical, PriorityCritical.Raise())

	assert.Equal(t, PriorityHigh, PriorityCritical.Lower())
	assert.Equal(t, PriorityLow, PriorityMedium.Lower())
	assert.Equal(t, PriorityLow, PriorityLow.Lower())
}

func TestPriority_UnknownBehavesAsMedium(t *testing.T) {
	assert.Equal(t, PriorityHigh, Priority("urgent").Raise())
	assert.Equal(t, PriorityLow, Priority("urgent").Lower())
}
