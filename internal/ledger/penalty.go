package ledger

import (
	"math"
	"time"
)

// Penalty computes the late-contribution penalty in minor units. The
// first three days past due carry a flat 10%; after that the rate grows
// by one percentage point per day late.
func Penalty(dueDate, now time.Time, amount int64) int64 {
	if !now.After(dueDate) {
		return 0
	}

	daysLate := int64(math.Ceil(now.Sub(dueDate).Hours() / 24))
	rate := 0.10
	if daysLate > 3 {
		rate = 0.10 + float64(daysLate)*0.01
	}
	return int64(float64(amount) * rate)
}
