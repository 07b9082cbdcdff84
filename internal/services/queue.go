package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"sessionclock-backend/internal/models"
	"sessionclock-backend/internal/policy"
)

// AdminQueue is what is waiting on a superuser's decision.
type AdminQueue struct {
	PendingTimers     []models.Timer   `json:"pending_timers"`
	PendingSuperusers []models.Profile `json:"pending_superusers"`
	TimerCount        int              `json:"timer_count"`
	SuperuserCount    int              `json:"superuser_count"`
}

type QueueService struct {
	timers   TimerStore
	profiles ProfileStore
}

func NewQueueService(timers TimerStore, profiles ProfileStore) *QueueService {
	return &QueueService{timers: timers, profiles: profiles}
}

// Load reads both pending queues concurrently. It never writes.
func (s *QueueService) Load(ctx context.Context, actor models.Profile) (*AdminQueue, error) {
	if !policy.CanApproveTimer(actor.Role, actor.Status) {
		return nil, &UnauthorizedError{Message: "Only approved superusers can view the approval queue"}
	}

	queue := &AdminQueue{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		timers, err := s.timers.ListPendingTimers(gctx)
		if err != nil {
			return &PersistenceError{Op: "list pending timers", Err: err}
		}
		queue.PendingTimers = timers
		return nil
	})

	g.Go(func() error {
		profiles, err := s.profiles.ListPendingSuperusers(gctx)
		if err != nil {
			return &PersistenceError{Op: "list pending superusers", Err: err}
		}
		queue.PendingSuperusers = profiles
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if queue.PendingTimers == nil {
		queue.PendingTimers = []models.Timer{}
	}
	if queue.PendingSuperusers == nil {
		queue.PendingSuperusers = []models.Profile{}
	}
	queue.TimerCount = len(queue.PendingTimers)
	queue.SuperuserCount = len(queue.PendingSuperusers)

	return queue, nil
}
