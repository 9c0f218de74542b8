package team

import "context"

// Repository defines the operations for persisting team members.
type Repository interface {
	ListByManager(ctx context.Context, managerID string) ([]*Member, error)
	GetByID(ctx context.Context, id string) (*Member, error)
	Create(ctx context.Context, m *Member) error
	Update(ctx context.Context, m *Member) error
	Delete(ctx context.Context, id string) error
}
