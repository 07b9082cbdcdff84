package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"sessionclock-backend/internal/models"
)

type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

func (r *ProfileRepo) CreateProfile(ctx context.Context, p models.Profile) error {
	query := `
		INSERT INTO profiles (id, email, role, status)
		VALUES ($1, $2, $3, $4)`

	_, err := r.pool.Exec(ctx, query, p.ID, p.Email, p.Role, p.Status)
	return translate(err)
}

func (r *ProfileRepo) GetProfile(ctx context.Context, id uuid.UUID) (models.Profile, error) {
	var p models.Profile
	err := r.pool.QueryRow(ctx,
		`SELECT id, email, role, status, created_at FROM profiles WHERE id = $1`, id,
	).Scan(&p.ID, &p.Email, &p.Role, &p.Status, &p.CreatedAt)
	return p, translate(err)
}

func (r *ProfileRepo) ListPendingSuperusers(ctx context.Context) ([]models.Profile, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, email, role, status, created_at FROM profiles
		WHERE role = $1 AND status = $2 ORDER BY created_at ASC`,
		models.RoleSuperuser, models.ProfileStatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending superusers: %w", err)
	}
	defer rows.Close()

	profiles := []models.Profile{}
	for rows.Next() {
		var p models.Profile
		if err := rows.Scan(&p.ID, &p.Email, &p.Role, &p.Status, &p.CreatedAt); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func (r *ProfileRepo) SetProfileStatus(ctx context.Context, id uuid.UUID, status models.ProfileStatus) error {
	tag, err := r.pool.Exec(ctx, "UPDATE profiles SET status = $2 WHERE id = $1", id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ProfileRepo) SetProfileRoleAndStatus(ctx context.Context, id uuid.UUID, role models.Role, status models.ProfileStatus) error {
	tag, err := r.pool.Exec(ctx, "UPDATE profiles SET role = $2, status = $3 WHERE id = $1", id, role, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
