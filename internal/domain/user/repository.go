package user

import (
	"context"
)

// Repository defines the operations for persisting and retrieving User entities.
type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	// Upsert inserts the user or refreshes profile fields of an existing one.
	// Onboarding fields are never touched by Upsert.
	Upsert(ctx context.Context, u *User) error
	UpdateOnboarding(ctx context.Context, id string, completed bool, topStrengths []string) (*User, error)
}
