package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPenalty(t *testing.T) {
	due := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	t.Run("on time carries no penalty", func(t *testing.T) {
		assert.Equal(t, int64(0), Penalty(due, due, 50000))
		assert.Equal(t, int64(0), Penalty(due, due.Add(-time.Hour), 50000))
	})

	t.Run("flat ten percent within grace window", func(t *testing.T) {
		oneDayLate := due.Add(24 * time.Hour)
		assert.Equal(t, int64(5000), Penalty(due, oneDayLate, 50000))

		threeDaysLate := due.Add(71 * time.Hour)
		assert.Equal(t, int64(5000), Penalty(due, threeDaysLate, 50000))
	})

	t.Run("whole days round up, exact multiples do not", func(t *testing.T) {
		// 48 hours is exactly two days late, still inside the window.
		twoDaysLate := due.Add(48 * time.Hour)
		assert.Equal(t, int64(5000), Penalty(due, twoDaysLate, 50000))

		// One hour past three days tips into the fourth day: 10% + 4%.
		justOverThree := due.Add(73 * time.Hour)
		assert.Equal(t, int64(7000), Penalty(due, justOverThree, 50000))
	})

	t.Run("rate grows per day after the grace window", func(t *testing.T) {
		// 5 days late: 10% + 5% = 15%
		fiveDaysLate := due.Add(4*24*time.Hour + time.Hour)
		assert.Equal(t, int64(7500), Penalty(due, fiveDaysLate, 50000))
	})
}
