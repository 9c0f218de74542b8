package database

import (
	"context"
	"database/sql"
	"fmt"

	"strengths_manager/internal/domain/team"

	"github.com/lib/pq"
)

type PostgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) *PostgresTeamRepository {
	return &PostgresTeamRepository{db: db}
}

func (r *PostgresTeamRepository) Create(ctx context.Context, m *team.Member) error {
	query := `INSERT INTO team_members (id, manager_id, name, strengths)
               VALUES ($1, $2, $3, $4)
               RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, m.ID, m.ManagerID, m.Name, pq.Array(m.Strengths)).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating team member: %w", err)
	}
	return nil
}

func (r *PostgresTeamRepository) GetByID(ctx context.Context, id string) (*team.Member, error) {
	query := `SELECT id, manager_id, name, strengths, created_at, updated_at
               FROM team_members WHERE id = $1`
	m := &team.Member{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&m.ID, &m.ManagerID, &m.Name, pq.Array(&m.Strengths), &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrTeamMemberNotFound
		}
		return nil, fmt.Errorf("error getting team member by ID: %w", err)
	}
	return m, nil
}

func (r *PostgresTeamRepository) ListByManager(ctx context.Context, managerID string) ([]*team.Member, error) {
	query := `SELECT id, manager_id, name, strengths, created_at, updated_at
               FROM team_members WHERE manager_id = $1 ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, managerID)
	if err != nil {
		return nil, fmt.Errorf("error querying team members: %w", err)
	}
	defer rows.Close()

	members := make([]*team.Member, 0)
	for rows.Next() {
		m := &team.Member{}
		if err := rows.Scan(&m.ID, &m.ManagerID, &m.Name, pq.Array(&m.Strengths), &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning team member row: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating team member rows: %w", err)
	}
	return members, nil
}

func (r *PostgresTeamRepository) Update(ctx context.Context, m *team.Member) error {
	query := `UPDATE team_members
               SET name = $1, strengths = $2, updated_at = NOW()
               WHERE id = $3
               RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, m.Name, pq.Array(m.Strengths), m.ID).Scan(&m.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrTeamMemberNotFound
		}
		return fmt.Errorf("error updating team member: %w", err)
	}
	return nil
}

func (r *PostgresTeamRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM team_members WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting team member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking deleted team member: %w", err)
	}
	if n == 0 {
		return ErrTeamMemberNotFound
	}
	return nil
}
