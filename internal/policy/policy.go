// Package policy holds the role and status rules that decide what an actor
// may do. Every function is pure and never fails; callers check the result
// before invoking a workflow operation.
package policy

import (
	"time"

	"github.com/google/uuid"

	"sessionclock-backend/internal/models"
)

// RegularAdvance is the notice a regular user or a pending superuser must give.
const RegularAdvance = 2 * 24 * time.Hour

func isActiveSuperuser(role models.Role, status models.ProfileStatus) bool {
	return role == models.RoleSuperuser && status == models.ProfileStatusActive
}

func CanScheduleImmediately(role models.Role, status models.ProfileStatus) bool {
	return isActiveSuperuser(role, status)
}

// MinimumAdvance returns, in milliseconds, how far ahead of now a timer
// must start.
func MinimumAdvance(role models.Role, status models.ProfileStatus) int64 {
	if isActiveSuperuser(role, status) {
		return 0
	}
	return RegularAdvance.Milliseconds()
}

func DecideInitialStatus(role models.Role, status models.ProfileStatus) models.TimerStatus {
	if isActiveSuperuser(role, status) {
		return models.TimerStatusApproved
	}
	return models.TimerStatusRequested
}

func CanApproveOrRejectSuperuser(actingRole models.Role, actingStatus models.ProfileStatus) bool {
	return isActiveSuperuser(actingRole, actingStatus)
}

func CanApproveTimer(actingRole models.Role, actingStatus models.ProfileStatus) bool {
	return isActiveSuperuser(actingRole, actingStatus)
}

// SeesAllTimers reports whether the actor's board lists every timer rather
// than only the ones they own.
func SeesAllTimers(role models.Role, status models.ProfileStatus) bool {
	return isActiveSuperuser(role, status)
}

// CanDeleteTimer allows the owner or an active superuser.
func CanDeleteTimer(actor models.Profile, ownerID uuid.UUID) bool {
	return actor.ID == ownerID || isActiveSuperuser(actor.Role, actor.Status)
}

// InitialProfileStatus is the status a freshly registered account gets.
// Regular users need no approval; superusers wait for one.
func InitialProfileStatus(role models.Role) models.ProfileStatus {
	if role == models.RoleSuperuser {
		return models.ProfileStatusPending
	}
	return models.ProfileStatusActive
}
