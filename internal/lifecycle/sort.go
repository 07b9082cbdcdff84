package lifecycle

import (
	"cmp"
	"slices"

	"sessionclock-backend/internal/models"
)

// CompareTimers orders active timers first, by least time remaining, and
// inactive timers after them by start time.
func CompareTimers(a, b models.Timer, now int64) int {
	switch {
	case a.IsActive && b.IsActive:
		return cmp.Compare(a.Remaining(now), b.Remaining(now))
	case a.IsActive:
		return -1
	case b.IsActive:
		return 1
	default:
		return cmp.Compare(a.StartTime, b.StartTime)
	}
}

// SortTimers stable-sorts timers in place. Remaining time moves with now, so
// callers re-sort on every tick.
func SortTimers(timers []models.Timer, now int64) {
	slices.SortStableFunc(timers, func(a, b models.Timer) int {
		return CompareTimers(a, b, now)
	})
}
