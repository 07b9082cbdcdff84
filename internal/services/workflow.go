package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"sessionclock-backend/internal/metrics"
	"sessionclock-backend/internal/models"
	"sessionclock-backend/internal/policy"
	"sessionclock-backend/internal/repository"
)

type TimerStore interface {
	GetTimer(ctx context.Context, id uuid.UUID) (models.Timer, error)
	InsertTimer(ctx context.Context, t models.Timer) (models.Timer, error)
	UpdateTimer(ctx context.Context, t models.Timer) (models.Timer, error)
	SetTimerApproved(ctx context.Context, id uuid.UUID) (models.Timer, error)
	DeleteTimer(ctx context.Context, id uuid.UUID) error
	ListPendingTimers(ctx context.Context) ([]models.Timer, error)
}

type ProfileStore interface {
	CreateProfile(ctx context.Context, p models.Profile) error
	GetProfile(ctx context.Context, id uuid.UUID) (models.Profile, error)
	SetProfileStatus(ctx context.Context, id uuid.UUID, status models.ProfileStatus) error
	SetProfileRoleAndStatus(ctx context.Context, id uuid.UUID, role models.Role, status models.ProfileStatus) error
	ListPendingSuperusers(ctx context.Context) ([]models.Profile, error)
}

// ProfileChange is the outcome of approving or rejecting a superuser.
// SelfTargeted tells the caller its own cached profile is stale.
type ProfileChange struct {
	Profile      models.Profile `json:"profile"`
	SelfTargeted bool           `json:"self_targeted"`
}

// TimerWorkflow is the only way timers and superuser approvals change.
// Every operation checks policy and input before it touches storage.
type TimerWorkflow struct {
	timers   TimerStore
	profiles ProfileStore
	now      func() time.Time
}

func NewTimerWorkflow(timers TimerStore, profiles ProfileStore) *TimerWorkflow {
	return &TimerWorkflow{timers: timers, profiles: profiles, now: time.Now}
}

// WithClock replaces the wall clock, for tests.
func (w *TimerWorkflow) WithClock(now func() time.Time) *TimerWorkflow {
	w.now = now
	return w
}

// maxPartHours keeps an hours/minutes/seconds entry inside int64 milliseconds.
var maxPartHours = math.MaxInt64/time.Hour.Milliseconds() - 1

// resolveDuration picks the draft's duration in milliseconds. A preset wins
// over an hours/minutes/seconds entry, which wins over a raw duration.
func resolveDuration(draft models.TimerDraft) (int64, string) {
	switch {
	case draft.PresetMinutes != nil:
		for _, preset := range models.PresetDurations {
			if int64(preset/time.Minute) == *draft.PresetMinutes {
				return preset.Milliseconds(), ""
			}
		}
		return 0, "Preset must be 30, 45 or 60 minutes"

	case draft.Hours != nil || draft.Minutes != nil || draft.Seconds != nil:
		hours, minutes, seconds := valueOrZero(draft.Hours), valueOrZero(draft.Minutes), valueOrZero(draft.Seconds)
		if hours < 0 || hours > maxPartHours {
			return 0, "Hours are out of range"
		}
		if minutes < 0 || minutes > 59 || seconds < 0 || seconds > 59 {
			return 0, "Minutes and seconds must be between 0 and 59"
		}
		return models.DurationFromParts(hours, minutes, seconds), ""
	}
	return draft.Duration, ""
}

func valueOrZero(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func validateDraft(draft models.TimerDraft) (int64, map[string]string) {
	fieldErrors := make(map[string]string)

	if strings.TrimSpace(draft.Subject) == "" {
		fieldErrors["subject"] = "Subject is required"
	}
	if strings.TrimSpace(draft.TeacherName) == "" {
		fieldErrors["teacher_name"] = "Teacher name is required"
	}
	if strings.TrimSpace(draft.StudentName) == "" {
		fieldErrors["student_name"] = "Student name is required"
	}

	duration, msg := resolveDuration(draft)
	if msg == "" && duration <= 0 {
		msg = "Duration must be greater than zero"
	}
	if msg != "" {
		fieldErrors["duration"] = msg
	}

	if !draft.StartImmediately && draft.StartTime <= 0 {
		fieldErrors["start_time"] = "Start time is required"
	}

	return duration, fieldErrors
}

// RequestOrCreate turns a draft into a stored timer. An active superuser
// creates it approved; everyone else files a request.
func (w *TimerWorkflow) RequestOrCreate(ctx context.Context, actor models.Profile, draft models.TimerDraft) (timer models.Timer, err error) {
	defer func() { metrics.ObserveWorkflow("request_or_create", err) }()

	duration, fieldErrors := validateDraft(draft)
	if len(fieldErrors) > 0 {
		return models.Timer{}, &ValidationError{Fields: fieldErrors}
	}

	now := models.Millis(w.now())
	start := draft.StartTime

	if draft.StartImmediately {
		if !policy.CanScheduleImmediately(actor.Role, actor.Status) {
			return models.Timer{}, &PolicyViolationError{
				Field:   "start_immediately",
				Message: "Only approved superusers can start a session immediately",
			}
		}
		start = now
	} else if advance := policy.MinimumAdvance(actor.Role, actor.Status); start < now+advance {
		msg := "Sessions must be requested at least 2 days in advance"
		if advance == 0 {
			msg = "Start time cannot be in the past"
		}
		return models.Timer{}, &PolicyViolationError{Field: "start_time", Message: msg}
	}

	if duration > math.MaxInt64-start {
		return models.Timer{}, &ValidationError{Fields: map[string]string{"duration": "Session would end out of range"}}
	}

	status := policy.DecideInitialStatus(actor.Role, actor.Status)

	var seat *string
	if draft.SeatNumber != nil {
		if s := strings.TrimSpace(*draft.SeatNumber); s != "" {
			seat = &s
		}
	}

	timer = models.Timer{
		ID:          uuid.New(),
		UserID:      actor.ID,
		Subject:     strings.TrimSpace(draft.Subject),
		TeacherName: strings.TrimSpace(draft.TeacherName),
		StudentName: strings.TrimSpace(draft.StudentName),
		SeatNumber:  seat,
		Duration:    duration,
		StartTime:   start,
		EndTime:     start + duration,
		Status:      status,
		IsActive:    now >= start && status == models.TimerStatusApproved,
	}

	if !models.IsValidTimer(timer) {
		return models.Timer{}, &ValidationError{Fields: map[string]string{"duration": "Session end time does not match its duration"}}
	}

	saved, err := w.timers.InsertTimer(ctx, timer)
	if err != nil {
		return models.Timer{}, &PersistenceError{Op: "insert timer", Err: err}
	}
	return saved, nil
}

// ApproveTimer approves a requested timer and activates it straight away if
// its start has already passed.
func (w *TimerWorkflow) ApproveTimer(ctx context.Context, actor models.Profile, id uuid.UUID) (timer models.Timer, err error) {
	defer func() { metrics.ObserveWorkflow("approve_timer", err) }()

	if !policy.CanApproveTimer(actor.Role, actor.Status) {
		return models.Timer{}, &UnauthorizedError{Message: "Only approved superusers can approve sessions"}
	}

	timer, err = w.timers.SetTimerApproved(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Timer{}, &NotFoundError{Message: "Timer not found"}
	}
	if err != nil {
		return models.Timer{}, &PersistenceError{Op: "approve timer", Err: err}
	}

	active := models.Millis(w.now()) >= timer.StartTime
	if active != timer.IsActive {
		timer.IsActive = active
		timer, err = w.timers.UpdateTimer(ctx, timer)
		if err != nil {
			return models.Timer{}, &PersistenceError{Op: "update timer", Err: err}
		}
	}

	return timer, nil
}

// RejectOrDeleteTimer hard-deletes a timer. Rejecting a request and deleting
// a scheduled session are the same operation. A missing id succeeds.
func (w *TimerWorkflow) RejectOrDeleteTimer(ctx context.Context, actor models.Profile, id uuid.UUID) (err error) {
	defer func() { metrics.ObserveWorkflow("reject_or_delete_timer", err) }()

	timer, err := w.timers.GetTimer(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return &PersistenceError{Op: "get timer", Err: err}
	}

	if !policy.CanDeleteTimer(actor, timer.UserID) {
		return &UnauthorizedError{Message: "You can only remove your own sessions"}
	}

	if err := w.timers.DeleteTimer(ctx, id); err != nil {
		return &PersistenceError{Op: "delete timer", Err: err}
	}
	return nil
}

// ApproveSuperuser activates a pending superuser account.
func (w *TimerWorkflow) ApproveSuperuser(ctx context.Context, actor models.Profile, targetID uuid.UUID) (change ProfileChange, err error) {
	defer func() { metrics.ObserveWorkflow("approve_superuser", err) }()

	if !policy.CanApproveOrRejectSuperuser(actor.Role, actor.Status) {
		return ProfileChange{}, &UnauthorizedError{Message: "Only approved superusers can approve superusers"}
	}

	target, err := w.loadProfile(ctx, targetID)
	if err != nil {
		return ProfileChange{}, err
	}
	if target.Role != models.RoleSuperuser || target.Status != models.ProfileStatusPending {
		return ProfileChange{}, &ConflictError{Message: "Account is not awaiting superuser approval"}
	}

	if err := w.profiles.SetProfileStatus(ctx, targetID, models.ProfileStatusActive); err != nil {
		return ProfileChange{}, w.profileWriteError(err)
	}

	target.Status = models.ProfileStatusActive
	return ProfileChange{Profile: target, SelfTargeted: targetID == actor.ID}, nil
}

// RejectSuperuser demotes a superuser, pending or not, to an active user.
func (w *TimerWorkflow) RejectSuperuser(ctx context.Context, actor models.Profile, targetID uuid.UUID) (change ProfileChange, err error) {
	defer func() { metrics.ObserveWorkflow("reject_superuser", err) }()

	if !policy.CanApproveOrRejectSuperuser(actor.Role, actor.Status) {
		return ProfileChange{}, &UnauthorizedError{Message: "Only approved superusers can reject superusers"}
	}

	target, err := w.loadProfile(ctx, targetID)
	if err != nil {
		return ProfileChange{}, err
	}
	if target.Role != models.RoleSuperuser {
		return ProfileChange{}, &ConflictError{Message: "Account is not a superuser"}
	}

	if err := w.profiles.SetProfileRoleAndStatus(ctx, targetID, models.RoleUser, models.ProfileStatusActive); err != nil {
		return ProfileChange{}, w.profileWriteError(err)
	}

	target.Role = models.RoleUser
	target.Status = models.ProfileStatusActive
	return ProfileChange{Profile: target, SelfTargeted: targetID == actor.ID}, nil
}

func (w *TimerWorkflow) loadProfile(ctx context.Context, id uuid.UUID) (models.Profile, error) {
	p, err := w.profiles.GetProfile(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Profile{}, &NotFoundError{Message: "Profile not found"}
	}
	if err != nil {
		return models.Profile{}, &PersistenceError{Op: "get profile", Err: err}
	}
	return p, nil
}

func (w *TimerWorkflow) profileWriteError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &NotFoundError{Message: "Profile not found"}
	}
	return &PersistenceError{Op: "update profile", Err: err}
}
