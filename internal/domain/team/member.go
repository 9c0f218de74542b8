package team

import "time"

// Member is one person on a manager's team.
type Member struct {
	ID        string
	ManagerID string
	Name      string
	Strengths []string // Ordered, 1-5 themes
	CreatedAt time.Time
	UpdatedAt time.Time
}
