package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sessionclock-backend/internal/models"
)

type TimerRepo struct {
	pool *pgxpool.Pool
}

func NewTimerRepo(pool *pgxpool.Pool) *TimerRepo {
	return &TimerRepo{pool: pool}
}

const timerColumns = `id, user_id, subject, teacher_name, student_name, seat_number,
	duration, start_time, end_time, is_complete, is_active, status, created_at`

func scanTimer(row pgx.Row) (models.Timer, error) {
	var t models.Timer
	err := row.Scan(
		&t.ID, &t.UserID, &t.Subject, &t.TeacherName, &t.StudentName, &t.SeatNumber,
		&t.Duration, &t.StartTime, &t.EndTime, &t.IsComplete, &t.IsActive, &t.Status, &t.CreatedAt,
	)
	return t, translate(err)
}

func collectTimers(rows pgx.Rows) ([]models.Timer, error) {
	defer rows.Close()

	timers := []models.Timer{}
	for rows.Next() {
		t, err := scanTimer(rows)
		if err != nil {
			return nil, err
		}
		timers = append(timers, t)
	}
	return timers, rows.Err()
}

// ListTimersForActor returns every timer for a superuser and only the
// actor's own timers otherwise.
func (r *TimerRepo) ListTimersForActor(ctx context.Context, actorID uuid.UUID, isSuperuser bool) ([]models.Timer, error) {
	query := `SELECT ` + timerColumns + ` FROM timers`
	args := []any{}
	if !isSuperuser {
		query += ` WHERE user_id = $1`
		args = append(args, actorID)
	}
	query += ` ORDER BY start_time ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list timers: %w", err)
	}
	return collectTimers(rows)
}

func (r *TimerRepo) ListPendingTimers(ctx context.Context) ([]models.Timer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+timerColumns+` FROM timers WHERE status = $1 ORDER BY start_time ASC`,
		models.TimerStatusRequested,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending timers: %w", err)
	}
	return collectTimers(rows)
}

func (r *TimerRepo) GetTimer(ctx context.Context, id uuid.UUID) (models.Timer, error) {
	return scanTimer(r.pool.QueryRow(ctx, `SELECT `+timerColumns+` FROM timers WHERE id = $1`, id))
}

func (r *TimerRepo) InsertTimer(ctx context.Context, t models.Timer) (models.Timer, error) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}

	query := `
		INSERT INTO timers (id, user_id, subject, teacher_name, student_name, seat_number,
			duration, start_time, end_time, is_complete, is_active, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + timerColumns

	return scanTimer(r.pool.QueryRow(ctx, query,
		t.ID, t.UserID, t.Subject, t.TeacherName, t.StudentName, t.SeatNumber,
		t.Duration, t.StartTime, t.EndTime, t.IsComplete, t.IsActive, t.Status,
	))
}

// UpdateTimer overwrites the mutable columns. Last write wins.
func (r *TimerRepo) UpdateTimer(ctx context.Context, t models.Timer) (models.Timer, error) {
	query := `
		UPDATE timers SET subject = $2, teacher_name = $3, student_name = $4, seat_number = $5,
			duration = $6, start_time = $7, end_time = $8, is_complete = $9, is_active = $10, status = $11
		WHERE id = $1
		RETURNING ` + timerColumns

	return scanTimer(r.pool.QueryRow(ctx, query,
		t.ID, t.Subject, t.TeacherName, t.StudentName, t.SeatNumber,
		t.Duration, t.StartTime, t.EndTime, t.IsComplete, t.IsActive, t.Status,
	))
}

func (r *TimerRepo) SetTimerApproved(ctx context.Context, id uuid.UUID) (models.Timer, error) {
	return scanTimer(r.pool.QueryRow(ctx,
		`UPDATE timers SET status = $2 WHERE id = $1 RETURNING `+timerColumns,
		id, models.TimerStatusApproved,
	))
}

// DeleteTimer removes the row. Deleting a missing id is not an error.
func (r *TimerRepo) DeleteTimer(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM timers WHERE id = $1", id)
	return err
}
