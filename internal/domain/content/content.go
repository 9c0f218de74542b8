// Package content describes the AI-generated coaching content and the generator contract.
package content

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"
)

// Length limits for the weekly email.
const (
	MaxSubjectLength   = 45
	MinPreHeaderLength = 40
	MaxPreHeaderLength = 50
)

// ErrInvalidContent is wrapped by every validation failure of generated content.
var ErrInvalidContent = errors.New("invalid generated content")

// WeeklyRequest is everything the generator gets to write one weekly nudge.
type WeeklyRequest struct {
	ManagerName                string
	TopStrengths               []string
	WeekNumber                 int
	TeamSize                   int
	FeaturedStrength           string
	FeaturedTeamMember         string
	TeamMemberStrengths        []string
	TeamMemberFeaturedStrength string
	QuoteSource                string
	PreviousPersonalTips       []string
	PreviousOpeners            []string
	PreviousTeamMembers        []string
}

// WeeklyEmail is the structured weekly nudge returned by the generator.
type WeeklyEmail struct {
	SubjectLine      string `json:"subjectLine"`
	PreHeader        string `json:"preHeader"`
	Header           string `json:"header"`
	PersonalInsight  string `json:"personalInsight"`
	TechniqueName    string `json:"techniqueName"`
	TechniqueContent string `json:"techniqueContent"`
	TeamSection      string `json:"teamSection"`
	Quote            string `json:"quote"`
	QuoteAuthor      string `json:"quoteAuthor"`
}

// Validate checks that all fields are present and the subject and pre-header fit their limits.
func (w *WeeklyEmail) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"subjectLine", w.SubjectLine},
		{"preHeader", w.PreHeader},
		{"header", w.Header},
		{"personalInsight", w.PersonalInsight},
		{"techniqueName", w.TechniqueName},
		{"techniqueContent", w.TechniqueContent},
		{"teamSection", w.TeamSection},
		{"quote", w.Quote},
		{"quoteAuthor", w.QuoteAuthor},
	}
	for _, f := range fields {
		if f.value == "" {
			return fmt.Errorf("%w: missing field %s", ErrInvalidContent, f.name)
		}
	}

	if n := utf8.RuneCountInString(w.SubjectLine); n > MaxSubjectLength {
		return fmt.Errorf("%w: subject line is %d characters, max %d", ErrInvalidContent, n, MaxSubjectLength)
	}
	if n := utf8.RuneCountInString(w.PreHeader); n < MinPreHeaderLength || n > MaxPreHeaderLength {
		return fmt.Errorf("%w: pre-header is %d characters, want %d-%d", ErrInvalidContent, n, MinPreHeaderLength, MaxPreHeaderLength)
	}
	return nil
}

// WelcomeRequest is the input for the onboarding welcome email.
type WelcomeRequest struct {
	FirstName  string
	Strength1  string
	Strength2  string
	NextMonday string
}

// WelcomeEmail is the structured welcome email returned by the generator.
type WelcomeEmail struct {
	Subject       string `json:"subject"`
	Greeting      string `json:"greeting"`
	DNA           string `json:"dna"`
	Challenge     string `json:"challenge"`
	ChallengeText string `json:"challengeText"`
	WhatsNext     string `json:"whatsNext"`
	CTA           string `json:"cta"`
}

// Validate checks the fields the welcome template cannot do without.
func (w *WelcomeEmail) Validate() error {
	if w.Subject == "" {
		return fmt.Errorf("%w: missing field subject", ErrInvalidContent)
	}
	if w.Greeting == "" {
		return fmt.Errorf("%w: missing field greeting", ErrInvalidContent)
	}
	return nil
}

// Person is a name with an ordered strengths list.
type Person struct {
	Name      string
	Strengths []string
}

// ChatMode selects whose strengths a coaching conversation is about.
type ChatMode string

const (
	ChatModePersonal ChatMode = "personal"
	ChatModeTeam     ChatMode = "team"
)

// ChatTurn is one previous message of a conversation.
type ChatTurn struct {
	FromUser bool
	Content  string
}

// ChatRequest is the input for a coaching chat response.
type ChatRequest struct {
	Mode             ChatMode
	Message          string
	ManagerStrengths []string
	Team             []Person
	History          []ChatTurn
}

// Generator produces natural-language coaching content.
type Generator interface {
	WeeklyEmail(ctx context.Context, req WeeklyRequest) (*WeeklyEmail, error)
	WelcomeEmail(ctx context.Context, req WelcomeRequest) (*WelcomeEmail, error)
	TeamInsight(ctx context.Context, managerStrengths []string, team []Person) (string, error)
	CollaborationInsight(ctx context.Context, a, b Person) (string, error)
	CoachResponse(ctx context.Context, req ChatRequest) (string, error)
	StarterQuestions(ctx context.Context, managerStrengths []string, team []Person, recentTopics []string) ([]string, error)
	FollowUpQuestions(ctx context.Context, answer string, history []ChatTurn) ([]string, error)
}
