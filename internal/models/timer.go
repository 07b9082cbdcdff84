package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type TimerStatus string

const (
	TimerStatusRequested TimerStatus = "requested"
	TimerStatusApproved  TimerStatus = "approved"
)

// Timer is a scheduled session. All instants are epoch milliseconds and
// durations are milliseconds.
type Timer struct {
	ID          uuid.UUID   `json:"id"`
	UserID      uuid.UUID   `json:"user_id"`
	Subject     string      `json:"subject"`
	TeacherName string      `json:"teacher_name"`
	StudentName string      `json:"student_name"`
	SeatNumber  *string     `json:"seat_number"`
	Duration    int64       `json:"duration"`
	StartTime   int64       `json:"start_time"`
	EndTime     int64       `json:"end_time"`
	IsComplete  bool        `json:"is_complete"`
	IsActive    bool        `json:"is_active"`
	Status      TimerStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
}

// TimerDraft is what a caller submits to request or create a timer. The
// length comes from PresetMinutes, else from Hours/Minutes/Seconds, else
// from Duration in milliseconds.
type TimerDraft struct {
	Subject          string  `json:"subject"`
	TeacherName      string  `json:"teacher_name"`
	StudentName      string  `json:"student_name"`
	SeatNumber       *string `json:"seat_number"`
	StartTime        int64   `json:"start_time"`
	Duration         int64   `json:"duration"`
	Hours            *int64  `json:"hours,omitempty"`
	Minutes          *int64  `json:"minutes,omitempty"`
	Seconds          *int64  `json:"seconds,omitempty"`
	PresetMinutes    *int64  `json:"preset_minutes,omitempty"`
	StartImmediately bool    `json:"start_immediately"`
}

// Preset session lengths offered next to the free-form duration.
var PresetDurations = []time.Duration{30 * time.Minute, 45 * time.Minute, 60 * time.Minute}

// DurationFromParts converts an hours/minutes/seconds entry to milliseconds.
func DurationFromParts(hours, minutes, seconds int64) int64 {
	return hours*time.Hour.Milliseconds() + minutes*time.Minute.Milliseconds() + seconds*time.Second.Milliseconds()
}

// Millis returns t as epoch milliseconds.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

// IsValidTimer reports whether t has the required descriptive fields, a
// positive duration and a consistent end time.
func IsValidTimer(t Timer) bool {
	return t.IsValid()
}

func (t Timer) IsValid() bool {
	if strings.TrimSpace(t.Subject) == "" || strings.TrimSpace(t.TeacherName) == "" || strings.TrimSpace(t.StudentName) == "" {
		return false
	}
	if t.Duration <= 0 {
		return false
	}
	return t.EndTime >= t.StartTime && t.EndTime == t.StartTime+t.Duration
}

func (t Timer) IsApproved() bool {
	return t.Status == TimerStatusApproved
}

// IsDue reports whether an approved, inactive timer should be activated at now.
func (t Timer) IsDue(now int64) bool {
	return t.IsApproved() && !t.IsActive && now >= t.StartTime
}

// IsFinished reports whether an active, incomplete timer has run out at now.
func (t Timer) IsFinished(now int64) bool {
	return t.IsActive && !t.IsComplete && now >= t.EndTime
}

// Remaining is the time left before EndTime, never negative.
func (t Timer) Remaining(now int64) int64 {
	if r := t.EndTime - now; r > 0 {
		return r
	}
	return 0
}

// TimeToStart is the time left before StartTime, never negative.
func (t Timer) TimeToStart(now int64) int64 {
	if r := t.StartTime - now; r > 0 {
		return r
	}
	return 0
}
