package app

import "fmt"

// Application-level errors returned by the services.
var ErrInvalidStrengths = fmt.Errorf("invalid strengths")
var ErrInvalidMember = fmt.Errorf("invalid team member")
var ErrNotOwner = fmt.Errorf("team member belongs to another manager")
var ErrNoTeam = fmt.Errorf("no team members")
var ErrMemberStrengthsNotFound = fmt.Errorf("member strengths not found")
var ErrInvalidChat = fmt.Errorf("invalid chat request")
