package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"sessionclock-backend/internal/middleware"
	"sessionclock-backend/internal/models"
	"sessionclock-backend/internal/policy"
	"sessionclock-backend/internal/repository"
)

type AccountStore interface {
	CreateAccount(ctx context.Context, a models.Account) (models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (models.Account, error)
}

type SessionEventKind string

const (
	SessionSignedIn       SessionEventKind = "signed_in"
	SessionSignedOut      SessionEventKind = "signed_out"
	SessionProfileChanged SessionEventKind = "profile_changed"
)

// SessionEvent is delivered to subscribers whenever a session starts or ends
// or a user's profile changes. Profile is set for signed_in and
// profile_changed.
type SessionEvent struct {
	Kind      SessionEventKind
	SessionID uuid.UUID
	UserID    uuid.UUID
	Profile   *models.Profile
}

type AuthService struct {
	accounts   AccountStore
	profiles   ProfileStore
	sessions   SessionStore
	jwt        *middleware.JWTAuth
	refreshTTL time.Duration
	bcryptCost int

	mu          sync.RWMutex
	subscribers []func(SessionEvent)
}

func NewAuthService(accounts AccountStore, profiles ProfileStore, sessions SessionStore, jwt *middleware.JWTAuth, refreshTTL time.Duration) *AuthService {
	return &AuthService{
		accounts:   accounts,
		profiles:   profiles,
		sessions:   sessions,
		jwt:        jwt,
		refreshTTL: refreshTTL,
		bcryptCost: 12,
	}
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// OnSessionChange registers fn for every later session event. Subscribers
// run synchronously on the caller's goroutine.
func (s *AuthService) OnSessionChange(fn func(SessionEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *AuthService) emit(ev SessionEvent) {
	s.mu.RLock()
	subscribers := slices.Clone(s.subscribers)
	s.mu.RUnlock()

	for _, fn := range subscribers {
		fn(ev)
	}
}

// SignUp creates the account and its profile, then signs the new user in.
// A superuser starts pending. When the profile write fails the account still
// exists and the user is treated as a regular user until it is repaired.
func (s *AuthService) SignUp(ctx context.Context, req models.RegisterRequest) (*models.AuthTokens, models.Profile, error) {
	fieldErrors := make(map[string]string)

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if !emailRegex.MatchString(email) {
		fieldErrors["email"] = "Invalid email format"
	}
	if err := validatePassword(req.Password); err != nil {
		fieldErrors["password"] = err.Error()
	}
	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleUser && role != models.RoleSuperuser {
		fieldErrors["role"] = "Role must be user or superuser"
	}

	if len(fieldErrors) > 0 {
		return nil, models.Profile{}, &ValidationError{Fields: fieldErrors}
	}

	_, err := s.accounts.GetAccountByEmail(ctx, email)
	if err == nil {
		return nil, models.Profile{}, &ConflictError{Message: "Email already in use"}
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, models.Profile{}, &PersistenceError{Op: "get account", Err: err}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, models.Profile{}, fmt.Errorf("failed to hash password: %w", err)
	}

	account, err := s.accounts.CreateAccount(ctx, models.Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, models.Profile{}, &ConflictError{Message: "Email already in use"}
	}
	if err != nil {
		return nil, models.Profile{}, &PersistenceError{Op: "create account", Err: err}
	}

	profile := models.Profile{
		ID:        account.ID,
		Email:     account.Email,
		Role:      role,
		Status:    policy.InitialProfileStatus(role),
		CreatedAt: account.CreatedAt,
	}
	if err := s.profiles.CreateProfile(ctx, profile); err != nil {
		log.Printf("auth: failed to create profile for %s: %v", account.ID, err)
		profile = fallbackProfile(account.ID, account.Email)
	}

	tokens, session, err := s.startSession(ctx, account.ID, account.Email)
	if err != nil {
		return nil, models.Profile{}, err
	}

	s.emit(SessionEvent{Kind: SessionSignedIn, SessionID: session.ID, UserID: account.ID, Profile: &profile})
	return tokens, profile, nil
}

func (s *AuthService) SignIn(ctx context.Context, req models.LoginRequest) (*models.AuthTokens, error) {
	account, err := s.accounts.GetAccountByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &AuthenticationError{Message: "Invalid email or password"}
	}
	if err != nil {
		return nil, &PersistenceError{Op: "get account", Err: err}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return nil, &AuthenticationError{Message: "Invalid email or password"}
	}

	tokens, session, err := s.startSession(ctx, account.ID, account.Email)
	if err != nil {
		return nil, err
	}

	profile := s.Profile(ctx, account.ID, account.Email)
	s.emit(SessionEvent{Kind: SessionSignedIn, SessionID: session.ID, UserID: account.ID, Profile: &profile})
	return tokens, nil
}

// Refresh rotates the refresh token and issues a new access token for the
// same session.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.AuthTokens, error) {
	sessionID, err := s.sessions.SessionIDForRefresh(ctx, refreshToken)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, &AuthenticationError{Message: "Invalid or expired refresh token. Please log in again."}
	}
	if err != nil {
		return nil, &PersistenceError{Op: "load refresh token", Err: err}
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, &AuthenticationError{Message: "Invalid or expired refresh token. Please log in again."}
	}
	if err != nil {
		return nil, &PersistenceError{Op: "load session", Err: err}
	}

	if err := s.sessions.DeleteRefresh(ctx, refreshToken); err != nil {
		return nil, &PersistenceError{Op: "rotate refresh token", Err: err}
	}

	session.RefreshToken, err = generateToken(64)
	if err != nil {
		return nil, err
	}
	return s.issueTokens(ctx, session)
}

// SignOut ends the session. Ending an unknown session is not an error.
func (s *AuthService) SignOut(ctx context.Context, sessionID uuid.UUID) error {
	session, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return &PersistenceError{Op: "load session", Err: err}
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return &PersistenceError{Op: "delete session", Err: err}
	}

	s.emit(SessionEvent{Kind: SessionSignedOut, SessionID: sessionID, UserID: session.UserID})
	return nil
}

// CurrentSession returns the live session, or an AuthenticationError once it
// has been signed out or has expired.
func (s *AuthService) CurrentSession(ctx context.Context, sessionID uuid.UUID) (models.Session, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return models.Session{}, &AuthenticationError{Message: "Session has ended. Please sign in again."}
	}
	if err != nil {
		return models.Session{}, &PersistenceError{Op: "load session", Err: err}
	}
	return session, nil
}

// Profile loads the user's profile. A missing or unreadable profile falls
// back to a regular active user so the caller can keep working.
func (s *AuthService) Profile(ctx context.Context, userID uuid.UUID, email string) models.Profile {
	p, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Printf("auth: failed to load profile for %s: %v", userID, err)
		}
		return fallbackProfile(userID, email)
	}
	return p
}

// ProfileChanged tells subscribers that the user's profile was modified.
func (s *AuthService) ProfileChanged(p models.Profile) {
	s.emit(SessionEvent{Kind: SessionProfileChanged, UserID: p.ID, Profile: &p})
}

func (s *AuthService) startSession(ctx context.Context, userID uuid.UUID, email string) (*models.AuthTokens, models.Session, error) {
	refreshToken, err := generateToken(64)
	if err != nil {
		return nil, models.Session{}, err
	}

	session := models.Session{
		ID:           uuid.New(),
		UserID:       userID,
		Email:        email,
		RefreshToken: refreshToken,
		CreatedAt:    time.Now().UTC(),
	}

	tokens, err := s.issueTokens(ctx, session)
	if err != nil {
		return nil, models.Session{}, err
	}
	return tokens, session, nil
}

func (s *AuthService) issueTokens(ctx context.Context, session models.Session) (*models.AuthTokens, error) {
	accessToken, err := s.jwt.GenerateAccessToken(session.UserID, session.ID, session.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	if err := s.sessions.Save(ctx, session, s.refreshTTL); err != nil {
		return nil, &PersistenceError{Op: "store session", Err: err}
	}

	return &models.AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: session.RefreshToken,
		ExpiresIn:    int(s.jwt.TTL.Seconds()),
	}, nil
}

func fallbackProfile(id uuid.UUID, email string) models.Profile {
	return models.Profile{ID: id, Email: email, Role: models.RoleUser, Status: models.ProfileStatusActive}
}

func generateToken(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func validatePassword(pw string) error {
	if len(pw) < 8 {
		return fmt.Errorf("Password must be at least 8 characters")
	}
	hasNumber := false
	for _, ch := range pw {
		if unicode.IsDigit(ch) {
			hasNumber = true
			break
		}
	}
	if !hasNumber {
		return fmt.Errorf("Password must contain at least one number")
	}
	return nil
}
