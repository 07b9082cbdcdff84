package models

import (
	"math"
	"testing"
)

func validTimer() Timer {
	return Timer{
		Subject:     "Algebra",
		TeacherName: "Ms. Okafor",
		StudentName: "Dana",
		StartTime:   1_000,
		Duration:    60_000,
		EndTime:     61_000,
		Status:      TimerStatusApproved,
	}
}

func TestIsValidTimer(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Timer)
		valid  bool
	}{
		{"complete timer", func(*Timer) {}, true},
		{"blank subject", func(t *Timer) { t.Subject = "   " }, false},
		{"missing teacher", func(t *Timer) { t.TeacherName = "" }, false},
		{"missing student", func(t *Timer) { t.StudentName = "" }, false},
		{"zero duration", func(t *Timer) { t.Duration = 0; t.EndTime = t.StartTime }, false},
		{"negative duration", func(t *Timer) { t.Duration = -5; t.EndTime = t.StartTime - 5 }, false},
		{"end time drift", func(t *Timer) { t.EndTime++ }, false},
		{"end time wrapped", func(t *Timer) { t.Duration = math.MaxInt64; t.EndTime = t.StartTime + t.Duration }, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			timer := validTimer()
			tc.mutate(&timer)
			if got := IsValidTimer(timer); got != tc.valid {
				t.Errorf("Expected valid=%v, got %v", tc.valid, got)
			}
		})
	}
}

func TestTimerClockHelpers(t *testing.T) {
	timer := validTimer()

	if got := timer.TimeToStart(0); got != 1_000 {
		t.Errorf("Expected 1000ms to start, got %d", got)
	}
	if got := timer.TimeToStart(5_000); got != 0 {
		t.Errorf("Expected time to start clamped to 0, got %d", got)
	}
	if got := timer.Remaining(31_000); got != 30_000 {
		t.Errorf("Expected 30000ms remaining, got %d", got)
	}
	if got := timer.Remaining(90_000); got != 0 {
		t.Errorf("Expected remaining clamped to 0, got %d", got)
	}

	if !timer.IsDue(1_000) {
		t.Error("Expected approved timer to be due at its start time")
	}
	timer.Status = TimerStatusRequested
	if timer.IsDue(1_000) {
		t.Error("Expected requested timer never to be due")
	}

	timer.Status = TimerStatusApproved
	timer.IsActive = true
	if timer.IsFinished(60_999) {
		t.Error("Expected timer not finished before end time")
	}
	if !timer.IsFinished(61_000) {
		t.Error("Expected timer finished at end time")
	}
}

func TestDurationFromParts(t *testing.T) {
	if got := DurationFromParts(1, 30, 15); got != 5_415_000 {
		t.Errorf("Expected 5415000, got %d", got)
	}
	if got := DurationFromParts(0, 0, 0); got != 0 {
		t.Errorf("Expected 0, got %d", got)
	}
}
