package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"sessionclock-backend/internal/models"
	"sessionclock-backend/internal/repository"
)

type memTimerStore struct {
	mu        sync.Mutex
	timers    map[uuid.UUID]models.Timer
	calls     int
	insertErr error
	listErr   error
}

func newMemTimerStore() *memTimerStore {
	return &memTimerStore{timers: make(map[uuid.UUID]models.Timer)}
}

func (s *memTimerStore) GetTimer(_ context.Context, id uuid.UUID) (models.Timer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	t, ok := s.timers[id]
	if !ok {
		return models.Timer{}, repository.ErrNotFound
	}
	return t, nil
}

func (s *memTimerStore) InsertTimer(_ context.Context, t models.Timer) (models.Timer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.insertErr != nil {
		return models.Timer{}, s.insertErr
	}
	t.CreatedAt = time.Now()
	s.timers[t.ID] = t
	return t, nil
}

func (s *memTimerStore) UpdateTimer(_ context.Context, t models.Timer) (models.Timer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if _, ok := s.timers[t.ID]; !ok {
		return models.Timer{}, repository.ErrNotFound
	}
	s.timers[t.ID] = t
	return t, nil
}

func (s *memTimerStore) SetTimerApproved(_ context.Context, id uuid.UUID) (models.Timer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	t, ok := s.timers[id]
	if !ok {
		return models.Timer{}, repository.ErrNotFound
	}
	t.Status = models.TimerStatusApproved
	s.timers[id] = t
	return t, nil
}

func (s *memTimerStore) DeleteTimer(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	delete(s.timers, id)
	return nil
}

func (s *memTimerStore) ListPendingTimers(_ context.Context) ([]models.Timer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []models.Timer
	for _, t := range s.timers {
		if t.Status == models.TimerStatusRequested {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

func (s *memTimerStore) ListTimersForActor(_ context.Context, actorID uuid.UUID, isSuperuser bool) ([]models.Timer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Timer
	for _, t := range s.timers {
		if isSuperuser || t.UserID == actorID {
			out = append(out, t)
		}
	}
	return out, nil
}

type memProfileStore struct {
	mu        sync.Mutex
	profiles  map[uuid.UUID]models.Profile
	createErr error
}

func newMemProfileStore(profiles ...models.Profile) *memProfileStore {
	s := &memProfileStore{profiles: make(map[uuid.UUID]models.Profile)}
	for _, p := range profiles {
		s.profiles[p.ID] = p
	}
	return s
}

func (s *memProfileStore) CreateProfile(_ context.Context, p models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.profiles[p.ID] = p
	return nil
}

func (s *memProfileStore) GetProfile(_ context.Context, id uuid.UUID) (models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return models.Profile{}, repository.ErrNotFound
	}
	return p, nil
}

func (s *memProfileStore) SetProfileStatus(_ context.Context, id uuid.UUID, status models.ProfileStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Status = status
	s.profiles[id] = p
	return nil
}

func (s *memProfileStore) SetProfileRoleAndStatus(_ context.Context, id uuid.UUID, role models.Role, status models.ProfileStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Role = role
	p.Status = status
	s.profiles[id] = p
	return nil
}

func (s *memProfileStore) ListPendingSuperusers(_ context.Context) ([]models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Profile
	for _, p := range s.profiles {
		if p.Role == models.RoleSuperuser && p.Status == models.ProfileStatusPending {
			out = append(out, p)
		}
	}
	return out, nil
}

type memAccountStore struct {
	mu       sync.Mutex
	accounts map[string]models.Account
}

func newMemAccountStore() *memAccountStore {
	return &memAccountStore{accounts: make(map[string]models.Account)}
}

func (s *memAccountStore) CreateAccount(_ context.Context, a models.Account) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[a.Email]; ok {
		return models.Account{}, repository.ErrDuplicate
	}
	a.CreatedAt = time.Now()
	s.accounts[a.Email] = a
	return a, nil
}

func (s *memAccountStore) GetAccountByEmail(_ context.Context, email string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[email]
	if !ok {
		return models.Account{}, repository.ErrNotFound
	}
	return a, nil
}

type memSessionStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]models.Session
	refresh  map[string]uuid.UUID
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{
		sessions: make(map[uuid.UUID]models.Session),
		refresh:  make(map[string]uuid.UUID),
	}
}

func (s *memSessionStore) Save(_ context.Context, session models.Session, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	s.refresh[session.RefreshToken] = session.ID
	return nil
}

func (s *memSessionStore) Get(_ context.Context, id uuid.UUID) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return models.Session{}, ErrSessionNotFound
	}
	return session, nil
}

func (s *memSessionStore) SessionIDForRefresh(_ context.Context, token string) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.refresh[token]
	if !ok {
		return uuid.Nil, ErrSessionNotFound
	}
	return id, nil
}

func (s *memSessionStore) DeleteRefresh(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.refresh, token)
	return nil
}

func (s *memSessionStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[id]; ok {
		delete(s.refresh, session.RefreshToken)
		delete(s.sessions, id)
	}
	return nil
}
