package database

import (
	"context"
	"database/sql"
	"fmt"

	"strengths_manager/internal/domain/user"

	"github.com/lib/pq" // For pq.Array and driver registration
)

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

const userColumns = `id, email, first_name, last_name, profile_image_url, has_completed_onboarding, top_strengths, created_at, updated_at`

func scanUser(row interface{ Scan(dest ...any) error }) (*user.User, error) {
	u := &user.User{}
	var top []string
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.ProfileImageURL,
		&u.HasCompletedOnboarding, pq.Array(&top), &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.TopStrengths = top
	return u, nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("error getting user by ID: %w", err)
	}
	return u, nil
}

// Upsert inserts the user or refreshes the profile fields of an existing one.
// Onboarding state is left as it is.
func (r *PostgresUserRepository) Upsert(ctx context.Context, u *user.User) error {
	query := `INSERT INTO users (id, email, first_name, last_name, profile_image_url)
               VALUES ($1, $2, $3, $4, $5)
               ON CONFLICT (id) DO UPDATE
               SET email = EXCLUDED.email,
                   first_name = EXCLUDED.first_name,
                   last_name = EXCLUDED.last_name,
                   profile_image_url = EXCLUDED.profile_image_url,
                   updated_at = NOW()
               RETURNING has_completed_onboarding, top_strengths, created_at, updated_at`
	var top []string
	err := r.db.QueryRowContext(ctx, query, u.ID, u.Email, u.FirstName, u.LastName, u.ProfileImageURL).
		Scan(&u.HasCompletedOnboarding, pq.Array(&top), &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error upserting user: %w", err)
	}
	u.TopStrengths = top
	return nil
}

func (r *PostgresUserRepository) UpdateOnboarding(ctx context.Context, id string, completed bool, topStrengths []string) (*user.User, error) {
	query := `UPDATE users
               SET has_completed_onboarding = $1, top_strengths = $2, updated_at = NOW()
               WHERE id = $3
               RETURNING ` + userColumns
	u, err := scanUser(r.db.QueryRowContext(ctx, query, completed, pq.Array(topStrengths), id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("error updating user onboarding: %w", err)
	}
	return u, nil
}
