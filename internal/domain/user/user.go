package user

import (
	"database/sql"
	"time"
)

// User is a manager who signed in through one of the identity providers.
type User struct {
	ID                     string // Subject claim from the identity provider
	Email                  sql.NullString
	FirstName              sql.NullString
	LastName               sql.NullString
	ProfileImageURL        sql.NullString
	HasCompletedOnboarding bool
	TopStrengths           []string // Ordered, at most five themes
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// DisplayName returns the first name, or fallback when it is not known.
func (u *User) DisplayName(fallback string) string {
	if u.FirstName.Valid && u.FirstName.String != "" {
		return u.FirstName.String
	}
	return fallback
}
