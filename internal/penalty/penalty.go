package penalty

import (
	"math"
	"time"
)

// Policy configures late-fee assessment. One policy applies everywhere:
// the same grace window is used on return and by the background sweeper.
type Policy struct {
	// DailyMultiplier scales the book's daily price per late day.
	DailyMultiplier float64
	// GraceDays is the number of whole late days tolerated before fees
	// start. With GraceDays=1 a loan one day late still owes nothing.
	GraceDays int
}

// DefaultPolicy matches the configured production defaults.
var DefaultPolicy = Policy{DailyMultiplier: 1.5, GraceDays: 1}

// Compute returns the late fee for a loan measured from reference to
// completion at the given daily price. Whole days only: partial days do
// not count. Deterministic and side-effect free, so it is safe to call
// from request handling and from repeated sweeper passes; for a fixed
// reference and price the result never decreases as completion advances.
func Compute(reference, completion time.Time, dailyPrice float64, p Policy) float64 {
	daysLate := int(completion.Sub(reference).Hours() / 24)
	if daysLate <= p.GraceDays {
		return 0
	}
	return math.Round(float64(daysLate)*dailyPrice*p.DailyMultiplier*100) / 100
}
