package handlers

import (
	"context"
	"net/http"

	"sessionclock-backend/internal/middleware"
	"sessionclock-backend/internal/models"
)

type contextKey string

const (
	sessionKey contextKey = "session"
	actorKey   contextKey = "actor"
)

// RequireSession runs after the JWT middleware. It rejects tokens whose
// session has been signed out and loads the caller's profile, so every
// downstream handler acts on an explicit session and actor.
func RequireSession(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := auth.CurrentSession(r.Context(), middleware.GetSessionID(r.Context()))
			if err != nil {
				handleServiceError(w, r, err)
				return
			}
			if session.UserID != middleware.GetUserID(r.Context()) {
				writeJSON(w, http.StatusUnauthorized, errorResp("UNAUTHORIZED", "Session does not match token", r))
				return
			}

			profile := auth.Profile(r.Context(), session.UserID, session.Email)

			ctx := context.WithValue(r.Context(), sessionKey, session)
			ctx = context.WithValue(ctx, actorKey, profile)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func SessionFromContext(ctx context.Context) (models.Session, bool) {
	s, ok := ctx.Value(sessionKey).(models.Session)
	return s, ok
}

// ActorFromContext returns the caller's profile. Outside RequireSession it
// returns the zero Profile, which no policy check accepts.
func ActorFromContext(ctx context.Context) models.Profile {
	p, _ := ctx.Value(actorKey).(models.Profile)
	return p
}
