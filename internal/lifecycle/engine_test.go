package lifecycle

import (
	"testing"

	"github.com/google/uuid"

	"sessionclock-backend/internal/models"
)

const baseNow int64 = 1_700_000_000_000

func newTimer(start, duration int64, status models.TimerStatus) models.Timer {
	return models.Timer{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		Subject:     "Physics",
		TeacherName: "Mr. Adeyemi",
		StudentName: "Rin",
		StartTime:   start,
		Duration:    duration,
		EndTime:     start + duration,
		Status:      status,
	}
}

func ids(timers []models.Timer) []uuid.UUID {
	out := make([]uuid.UUID, len(timers))
	for i, t := range timers {
		out[i] = t.ID
	}
	return out
}

func TestSortTimers_ActiveByRemainingThenInactiveByStart(t *testing.T) {
	a := newTimer(baseNow-55_000, 60_000, models.TimerStatusApproved)
	a.IsActive = true // 5000ms left
	b := newTimer(baseNow-51_000, 60_000, models.TimerStatusApproved)
	b.IsActive = true // 9000ms left
	c := newTimer(baseNow+1_000, 60_000, models.TimerStatusApproved)
	d := newTimer(baseNow+500_000, 60_000, models.TimerStatusRequested)

	timers := []models.Timer{d, c, b, a}
	SortTimers(timers, baseNow)

	want := []uuid.UUID{a.ID, b.ID, c.ID, d.ID}
	got := ids(timers)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected order %v, got %v", want, got)
		}
	}
}

func TestSortTimers_StableForEqualKeys(t *testing.T) {
	first := newTimer(baseNow+1_000, 60_000, models.TimerStatusApproved)
	second := newTimer(baseNow+1_000, 30_000, models.TimerStatusApproved)

	timers := []models.Timer{first, second}
	SortTimers(timers, baseNow)

	if timers[0].ID != first.ID || timers[1].ID != second.ID {
		t.Error("Expected timers with equal start to keep their relative order")
	}
}

func TestEngine_TickActivatesApprovedDueTimers(t *testing.T) {
	e := NewEngine()
	due := newTimer(baseNow, 60_000, models.TimerStatusApproved)
	requested := newTimer(baseNow, 60_000, models.TimerStatusRequested)
	future := newTimer(baseNow+10_000, 60_000, models.TimerStatusApproved)
	e.Replace([]models.Timer{due, requested, future}, baseNow-1)

	res := e.Tick(baseNow)

	if len(res.Activated) != 1 || res.Activated[0].ID != due.ID {
		t.Fatalf("Expected only the approved due timer to activate, got %v", ids(res.Activated))
	}
	if got, _ := e.Find(requested.ID); got.IsActive {
		t.Error("Expected requested timer to stay inactive")
	}
	if got, _ := e.Find(future.ID); got.IsActive {
		t.Error("Expected future timer to stay inactive")
	}
	if e.Timers()[0].ID != due.ID {
		t.Error("Expected the active timer to sort first")
	}
}

func TestEngine_ImmediateTimerCompletesExactlyOnce(t *testing.T) {
	e := NewEngine()
	timer := newTimer(baseNow, 60_000, models.TimerStatusApproved)
	timer.IsActive = true
	e.Replace([]models.Timer{timer}, baseNow)

	if res := e.Tick(baseNow + 59_999); !res.Empty() {
		t.Fatalf("Expected nothing to happen before the end, got %+v", res)
	}

	res := e.Tick(baseNow + 60_001)
	if len(res.Completed) != 1 || res.Completed[0].ID != timer.ID || !res.Completed[0].IsComplete {
		t.Fatalf("Expected one completion, got %+v", res)
	}
	if !e.IsCompleted(timer.ID) || !e.IsFlashing(timer.ID) {
		t.Error("Expected timer in completed and flashing sets")
	}

	for i := int64(1); i <= 3; i++ {
		if res := e.Tick(baseNow + 60_001 + i*1_000); len(res.Completed) != 0 {
			t.Fatalf("Expected no repeat completion, got %d", len(res.Completed))
		}
	}
	if n := len(e.CompletedIDs()); n != 1 {
		t.Errorf("Expected completed set of size 1, got %d", n)
	}
}

func TestEngine_ActivationPrecedesCompletionInOneTick(t *testing.T) {
	e := NewEngine()
	timer := newTimer(baseNow, 1_000, models.TimerStatusApproved)
	e.Replace([]models.Timer{timer}, baseNow-10)

	res := e.Tick(baseNow + 5_000)

	if len(res.Activated) != 1 || len(res.Completed) != 1 {
		t.Fatalf("Expected activation and completion in the same tick, got %+v", res)
	}
	if res.Activated[0].IsComplete {
		t.Error("Expected the activation record to precede completion")
	}
}

func TestEngine_ReplaceRebuildsMarkersFromReload(t *testing.T) {
	e := NewEngine()
	finished := newTimer(baseNow-120_000, 60_000, models.TimerStatusApproved)
	finished.IsActive = true
	finished.IsComplete = true
	running := newTimer(baseNow-10_000, 60_000, models.TimerStatusApproved)
	running.IsActive = true

	e.Replace([]models.Timer{finished, running}, baseNow)

	if !e.IsCompleted(finished.ID) || !e.IsFlashing(finished.ID) {
		t.Error("Expected stored completion to be restored as completed and flashing")
	}
	if e.IsCompleted(running.ID) {
		t.Error("Expected running timer not to be completed")
	}
}

func TestEngine_ReplaceKeepsLocalCompletion(t *testing.T) {
	e := NewEngine()
	timer := newTimer(baseNow, 1_000, models.TimerStatusApproved)
	timer.IsActive = true
	e.Replace([]models.Timer{timer}, baseNow)
	e.Tick(baseNow + 2_000)

	// The completion write has not landed yet, so storage still says incomplete.
	stale := timer
	e.Replace([]models.Timer{stale}, baseNow+2_500)

	got, ok := e.Find(timer.ID)
	if !ok || !got.IsComplete {
		t.Fatal("Expected local completion to survive the reload")
	}
	if !e.IsFlashing(timer.ID) {
		t.Error("Expected flashing marker to survive the reload")
	}
	if res := e.Tick(baseNow + 3_000); len(res.Completed) != 0 {
		t.Error("Expected no second completion after the reload")
	}
}

func TestEngine_ReplaceDropsMissingTimers(t *testing.T) {
	e := NewEngine()
	gone := newTimer(baseNow, 1_000, models.TimerStatusApproved)
	gone.IsActive = true
	kept := newTimer(baseNow+50_000, 1_000, models.TimerStatusApproved)
	e.Replace([]models.Timer{gone, kept}, baseNow)
	e.Tick(baseNow + 2_000)

	e.Replace([]models.Timer{kept}, baseNow+3_000)

	if _, ok := e.Find(gone.ID); ok {
		t.Error("Expected deleted timer to disappear after reload")
	}
	if e.IsCompleted(gone.ID) || e.IsFlashing(gone.ID) {
		t.Error("Expected markers of a deleted timer to be dropped")
	}
	if len(e.Timers()) != 1 {
		t.Errorf("Expected 1 timer, got %d", len(e.Timers()))
	}
}

func TestEngine_ReplaceNormalisesActiveRequestedTimers(t *testing.T) {
	e := NewEngine()
	bad := newTimer(baseNow-1_000, 60_000, models.TimerStatusRequested)
	bad.IsActive = true

	e.Replace([]models.Timer{bad}, baseNow)

	got, _ := e.Find(bad.ID)
	if got.IsActive {
		t.Error("Expected an unapproved timer never to be active")
	}
	if res := e.Tick(baseNow + 120_000); !res.Empty() {
		t.Errorf("Expected requested timer to stay untouched, got %+v", res)
	}
}

func TestEngine_RemoveIsIdempotent(t *testing.T) {
	e := NewEngine()
	timer := newTimer(baseNow, 1_000, models.TimerStatusApproved)
	timer.IsActive = true
	e.Replace([]models.Timer{timer}, baseNow)
	e.Tick(baseNow + 2_000)

	if !e.Remove(timer.ID) {
		t.Fatal("Expected first removal to report the timer was present")
	}
	if e.IsCompleted(timer.ID) || e.IsFlashing(timer.ID) {
		t.Error("Expected markers to be cleared on removal")
	}

	before := e.Timers()
	if e.Remove(uuid.New()) {
		t.Error("Expected removal of an unknown id to report false")
	}
	if len(e.Timers()) != len(before) {
		t.Error("Expected removal of an unknown id to leave the set unchanged")
	}
}

func TestEngine_CompleteSingleTimer(t *testing.T) {
	e := NewEngine()
	timer := newTimer(baseNow, 10_000, models.TimerStatusApproved)
	timer.IsActive = true
	e.Replace([]models.Timer{timer}, baseNow)

	if _, ok := e.Complete(timer.ID, baseNow+5_000); ok {
		t.Error("Expected no completion before the end time")
	}
	if _, ok := e.Complete(timer.ID, baseNow+10_000); !ok {
		t.Error("Expected completion at the end time")
	}
	if _, ok := e.Complete(timer.ID, baseNow+11_000); ok {
		t.Error("Expected completion to be one-shot")
	}
	if _, ok := e.Complete(uuid.New(), baseNow); ok {
		t.Error("Expected unknown id not to complete")
	}
}

func TestEngine_UpsertInsertsAndReplaces(t *testing.T) {
	e := NewEngine()
	timer := newTimer(baseNow+100_000, 60_000, models.TimerStatusRequested)
	e.Upsert(timer, baseNow)

	if len(e.Timers()) != 1 {
		t.Fatalf("Expected 1 timer after insert, got %d", len(e.Timers()))
	}

	timer.Status = models.TimerStatusApproved
	e.Upsert(timer, baseNow)

	got, _ := e.Find(timer.ID)
	if len(e.Timers()) != 1 || !got.IsApproved() {
		t.Error("Expected upsert to replace the existing record")
	}
}
