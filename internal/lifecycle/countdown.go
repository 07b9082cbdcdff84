package lifecycle

import (
	"fmt"

	"github.com/google/uuid"

	"sessionclock-backend/internal/models"
)

// Countdown is the per-timer display state at a given instant.
type Countdown struct {
	TimerID          uuid.UUID `json:"timer_id"`
	Active           bool      `json:"active"`
	Finished         bool      `json:"finished"`
	RemainingMs      int64     `json:"remaining_ms"`
	TimeToStartMs    int64     `json:"time_to_start_ms"`
	SecondsRemaining int64     `json:"seconds_remaining"`
	Progress         float64   `json:"progress"`
	Clock            string    `json:"clock"`
}

func CountdownAt(t models.Timer, now int64) Countdown {
	c := Countdown{
		TimerID:       t.ID,
		Active:        t.IsActive,
		RemainingMs:   t.Remaining(now),
		TimeToStartMs: t.TimeToStart(now),
		Progress:      100,
	}

	if t.IsActive {
		c.Finished = t.IsComplete || c.RemainingMs == 0
		c.SecondsRemaining = (c.RemainingMs + 999) / 1000
		if t.Duration > 0 {
			c.Progress = max(0, min(100, float64(c.RemainingMs)/float64(t.Duration)*100))
		}
		c.Clock = FormatClock(c.RemainingMs)
	} else {
		c.Clock = FormatClock(c.TimeToStartMs)
	}

	return c
}

// FormatClock renders a millisecond span as HH:MM:SS, truncating partial
// seconds. Hours are not capped at 24.
func FormatClock(ms int64) string {
	if ms <= 0 {
		return "00:00:00"
	}
	total := ms / 1000
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
