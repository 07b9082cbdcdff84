// Package lifecycle drives timers through activation and completion for a
// signed-in session and derives everything a board renders from them.
package lifecycle

import (
	"github.com/google/uuid"

	"sessionclock-backend/internal/models"
)

// TickResult lists the timers a tick transitioned. The owner persists them;
// the engine itself never does I/O.
type TickResult struct {
	Activated []models.Timer
	Completed []models.Timer
}

func (r TickResult) Empty() bool {
	return len(r.Activated) == 0 && len(r.Completed) == 0
}

// Engine holds one session's working set of timers together with the
// completed and flashing markers. The markers are keyed by id so they survive
// a reload replacing the underlying records.
//
// Engine is not safe for concurrent use; a View confines it to one goroutine.
type Engine struct {
	timers    []models.Timer
	completed map[uuid.UUID]struct{}
	flashing  map[uuid.UUID]struct{}
}

func NewEngine() *Engine {
	return &Engine{
		completed: make(map[uuid.UUID]struct{}),
		flashing:  make(map[uuid.UUID]struct{}),
	}
}

// Replace swaps in a freshly loaded working set. Whatever storage returned
// wins, except that an id already completed locally stays completed and keeps
// its flashing marker. Ids missing from the reload lose their markers.
func (e *Engine) Replace(timers []models.Timer, now int64) {
	next := make([]models.Timer, 0, len(timers))
	completed := make(map[uuid.UUID]struct{})
	flashing := make(map[uuid.UUID]struct{})

	for _, t := range timers {
		t = normalize(t)

		if _, ok := e.completed[t.ID]; ok {
			t.IsComplete = true
			if t.IsApproved() {
				t.IsActive = true
			}
		}
		if t.IsComplete {
			completed[t.ID] = struct{}{}
			if t.IsActive && t.EndTime <= now {
				flashing[t.ID] = struct{}{}
			}
		}
		if _, ok := e.flashing[t.ID]; ok {
			flashing[t.ID] = struct{}{}
		}

		next = append(next, t)
	}

	e.timers = next
	e.completed = completed
	e.flashing = flashing
	SortTimers(e.timers, now)
}

// Tick activates due timers, then completes finished ones, then re-sorts.
func (e *Engine) Tick(now int64) TickResult {
	var result TickResult

	for i := range e.timers {
		if e.timers[i].IsDue(now) {
			e.timers[i].IsActive = true
			result.Activated = append(result.Activated, e.timers[i])
		}
	}

	for i := range e.timers {
		if e.markComplete(i, now) {
			result.Completed = append(result.Completed, e.timers[i])
		}
	}

	SortTimers(e.timers, now)
	return result
}

// Complete finishes a single timer outside the regular tick. It reports
// false when the timer is unknown, not finished yet, or already completed.
func (e *Engine) Complete(id uuid.UUID, now int64) (models.Timer, bool) {
	i := e.index(id)
	if i < 0 || !e.markComplete(i, now) {
		return models.Timer{}, false
	}
	t := e.timers[i]
	SortTimers(e.timers, now)
	return t, true
}

func (e *Engine) markComplete(i int, now int64) bool {
	t := &e.timers[i]
	if !t.IsFinished(now) {
		return false
	}
	if _, done := e.completed[t.ID]; done {
		return false
	}
	t.IsComplete = true
	e.completed[t.ID] = struct{}{}
	e.flashing[t.ID] = struct{}{}
	return true
}

// Remove drops a timer and its markers. Removing an unknown id is a no-op.
func (e *Engine) Remove(id uuid.UUID) bool {
	delete(e.completed, id)
	delete(e.flashing, id)

	i := e.index(id)
	if i < 0 {
		return false
	}
	e.timers = append(e.timers[:i], e.timers[i+1:]...)
	return true
}

// Upsert inserts or replaces a single timer ahead of the next reload.
func (e *Engine) Upsert(t models.Timer, now int64) {
	t = normalize(t)
	if _, ok := e.completed[t.ID]; ok {
		t.IsComplete = true
	}

	if i := e.index(t.ID); i >= 0 {
		e.timers[i] = t
	} else {
		e.timers = append(e.timers, t)
	}
	SortTimers(e.timers, now)
}

// Timers returns a copy of the working set in its current order.
func (e *Engine) Timers() []models.Timer {
	out := make([]models.Timer, len(e.timers))
	copy(out, e.timers)
	return out
}

func (e *Engine) Find(id uuid.UUID) (models.Timer, bool) {
	if i := e.index(id); i >= 0 {
		return e.timers[i], true
	}
	return models.Timer{}, false
}

func (e *Engine) IsCompleted(id uuid.UUID) bool {
	_, ok := e.completed[id]
	return ok
}

func (e *Engine) IsFlashing(id uuid.UUID) bool {
	_, ok := e.flashing[id]
	return ok
}

// CompletedIDs and FlashingIDs follow working-set order.
func (e *Engine) CompletedIDs() []uuid.UUID {
	return e.idsIn(e.completed)
}

func (e *Engine) FlashingIDs() []uuid.UUID {
	return e.idsIn(e.flashing)
}

func (e *Engine) idsIn(set map[uuid.UUID]struct{}) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(set))
	for _, t := range e.timers {
		if _, ok := set[t.ID]; ok {
			ids = append(ids, t.ID)
		}
	}
	return ids
}

func (e *Engine) index(id uuid.UUID) int {
	for i := range e.timers {
		if e.timers[i].ID == id {
			return i
		}
	}
	return -1
}

// normalize enforces that only approved timers can be active.
func normalize(t models.Timer) models.Timer {
	if t.IsActive && !t.IsApproved() {
		t.IsActive = false
	}
	return t
}
