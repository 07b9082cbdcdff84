package worker

import (
	"context"

	"sessionclock-backend/internal/models"
)

type TimerUpdater interface {
	UpdateTimer(ctx context.Context, t models.Timer) (models.Timer, error)
}

// TimerWriter persists lifecycle transitions through the pool.
type TimerWriter struct {
	pool  *Pool
	store TimerUpdater
}

func NewTimerWriter(pool *Pool, store TimerUpdater) *TimerWriter {
	return &TimerWriter{pool: pool, store: store}
}

// WriteTimer queues an update of t and returns immediately.
func (w *TimerWriter) WriteTimer(t models.Timer) {
	w.pool.Submit(Job{
		Key:  t.ID,
		Name: "update timer",
		Run: func(ctx context.Context) error {
			_, err := w.store.UpdateTimer(ctx, t)
			return err
		},
	})
}
