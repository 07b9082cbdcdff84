package lifecycle

import (
	"time"

	"github.com/google/uuid"

	"sessionclock-backend/internal/models"
)

const (
	dayKeyLayout   = "2006-01-02"
	dayLabelLayout = "Monday, January 2, 2006"
	todayLabel     = "Today"
)

type Card struct {
	Timer     models.Timer `json:"timer"`
	Countdown Countdown    `json:"countdown"`
	Completed bool         `json:"completed"`
	Flashing  bool         `json:"flashing"`
}

type DayGroup struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Cards []Card `json:"cards"`
}

// Board is a rendered snapshot of a session's timers.
type Board struct {
	Timers     []Card      `json:"timers"`
	Active     []Card      `json:"active"`
	Days       []DayGroup  `json:"days"`
	Completed  []uuid.UUID `json:"completed"`
	Flashing   []uuid.UUID `json:"flashing"`
	ActiveOnly bool        `json:"active_only"`
	Focus      *Countdown  `json:"focus,omitempty"`
	LoadedAt   *time.Time  `json:"loaded_at,omitempty"`
	LastError  string      `json:"last_error,omitempty"`
	At         time.Time   `json:"at"`
}

// BuildBoard derives the board from the engine's current working set. With
// activeOnly set, only active timers are listed and no day groups are built.
// Inactive timers are grouped by the local calendar day of their start.
func BuildBoard(e *Engine, now time.Time, loc *time.Location, activeOnly bool) Board {
	if loc == nil {
		loc = time.Local
	}
	nowMs := now.UnixMilli()

	b := Board{
		Timers:     []Card{},
		Active:     []Card{},
		Days:       []DayGroup{},
		Completed:  e.CompletedIDs(),
		Flashing:   e.FlashingIDs(),
		ActiveOnly: activeOnly,
		At:         now,
	}

	today := now.In(loc).Format(dayKeyLayout)
	groups := make(map[string]int)

	for _, t := range e.timers {
		if activeOnly && !t.IsActive {
			continue
		}
		card := Card{
			Timer:     t,
			Countdown: CountdownAt(t, nowMs),
			Completed: e.IsCompleted(t.ID),
			Flashing:  e.IsFlashing(t.ID),
		}
		b.Timers = append(b.Timers, card)

		if t.IsActive {
			b.Active = append(b.Active, card)
			continue
		}
		if activeOnly {
			continue
		}

		start := time.UnixMilli(t.StartTime).In(loc)
		key := start.Format(dayKeyLayout)
		idx, ok := groups[key]
		if !ok {
			label := start.Format(dayLabelLayout)
			if key == today {
				label = todayLabel
			}
			b.Days = append(b.Days, DayGroup{Key: key, Label: label})
			idx = len(b.Days) - 1
			groups[key] = idx
		}
		b.Days[idx].Cards = append(b.Days[idx].Cards, card)
	}

	// Inactive timers are already in start order, so groups were opened
	// chronologically.
	return b
}
