package penalty

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func TestComputeOnTime(t *testing.T) {
	got := Compute(t0, t0.Add(6*time.Hour), 10, DefaultPolicy)
	assert.Equal(t, 0.0, got)
}

func TestComputeWithinGrace(t *testing.T) {
	// one whole day late is still inside the default grace window
	got := Compute(t0, t0.Add(47*time.Hour), 10, DefaultPolicy)
	assert.Equal(t, 0.0, got)
}

func TestComputeTwoDaysLate(t *testing.T) {
	// accepted at t0+1h, returned at t0+3d => 2 whole days late
	taken := t0.Add(time.Hour)
	returned := t0.Add(72 * time.Hour)

	got := Compute(taken, returned, 10, DefaultPolicy)
	assert.Equal(t, 30.0, got) // 2 * 10 * 1.5
}

func TestComputeZeroGrace(t *testing.T) {
	p := Policy{DailyMultiplier: 1.5, GraceDays: 0}

	got := Compute(t0, t0.Add(25*time.Hour), 10, p)
	assert.Equal(t, 15.0, got)
}

func TestComputeRoundsToCents(t *testing.T) {
	got := Compute(t0, t0.Add(3*24*time.Hour), 3.33, DefaultPolicy)
	assert.Equal(t, 14.99, got) // 3 * 3.33 * 1.5 = 14.985
}

func TestComputeCompletionBeforeReference(t *testing.T) {
	got := Compute(t0, t0.Add(-48*time.Hour), 10, DefaultPolicy)
	assert.Equal(t, 0.0, got)
}

func TestComputeMonotonic(t *testing.T) {
	prev := 0.0
	for h := 0; h <= 24*14; h += 7 {
		cur := Compute(t0, t0.Add(time.Duration(h)*time.Hour), 12.5, DefaultPolicy)
		assert.GreaterOrEqual(t, cur, prev, "penalty decreased at +%dh", h)
		prev = cur
	}
}
