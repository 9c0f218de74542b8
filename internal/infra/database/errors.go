package database

import "fmt"

// Custom errors
var ErrUserNotFound = fmt.Errorf("user not found")
var ErrTeamMemberNotFound = fmt.Errorf("team member not found")
