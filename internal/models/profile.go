package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleSuperuser Role = "superuser"
)

type ProfileStatus string

const (
	ProfileStatusActive  ProfileStatus = "active"
	ProfileStatusPending ProfileStatus = "pending"
)

type Profile struct {
	ID        uuid.UUID     `json:"id"`
	Email     string        `json:"email"`
	Role      Role          `json:"role"`
	Status    ProfileStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

func (p Profile) IsSuperuser() bool {
	return p.Role == RoleSuperuser
}

func (p Profile) IsActive() bool {
	return p.Status == ProfileStatusActive
}

// Account holds the credentials owned by the authentication side. Its ID is
// shared with the matching Profile.
type Account struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}
