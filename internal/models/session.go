package models

import (
	"time"

	"github.com/google/uuid"
)

// Session is a signed-in browser or client. Its ID is carried in the access
// token and keys the session's lifecycle view.
type Session struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	Email        string    `json:"email"`
	RefreshToken string    `json:"refresh_token"`
	CreatedAt    time.Time `json:"created_at"`
}
