package app

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"strengths_manager/internal/domain/campaign"
	"strengths_manager/internal/domain/content"
	"strengths_manager/internal/domain/team"
	"strengths_manager/internal/domain/user"

	"github.com/sirupsen/logrus"
)

// SelfMemberName refers to the manager in a collaboration request.
const SelfMemberName = "You"

// MaxSuggestedQuestions caps starter and follow-up question lists.
const MaxSuggestedQuestions = 3

// CoachGenerator answers the interactive coaching features.
type CoachGenerator interface {
	TeamInsight(ctx context.Context, managerStrengths []string, team []content.Person) (string, error)
	CollaborationInsight(ctx context.Context, a, b content.Person) (string, error)
	CoachResponse(ctx context.Context, req content.ChatRequest) (string, error)
	StarterQuestions(ctx context.Context, managerStrengths []string, team []content.Person, recentTopics []string) ([]string, error)
	FollowUpQuestions(ctx context.Context, answer string, history []content.ChatTurn) ([]string, error)
}

type CoachingService struct {
	users     user.Repository
	roster    team.Repository
	generator CoachGenerator
	logger    *logrus.Entry
	timeout   time.Duration
}

func NewCoachingService(ur user.Repository, tr team.Repository, gen CoachGenerator, logger *logrus.Entry, timeout time.Duration) *CoachingService {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &CoachingService{
		users:     ur,
		roster:    tr,
		generator: gen,
		logger:    logger,
		timeout:   timeout,
	}
}

// TeamInsight describes a pattern in the combined strengths of the manager and their team.
func (s *CoachingService) TeamInsight(ctx context.Context, userID string) (string, error) {
	u, people, err := s.load(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(u.TopStrengths) == 0 {
		return "", campaign.ErrNoStrengths
	}
	if len(people) == 0 {
		return "", ErrNoTeam
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	insight, err := s.generator.TeamInsight(ctx, u.TopStrengths, people)
	if err != nil {
		return "", fmt.Errorf("failed to generate team insight: %w", err)
	}
	return strings.TrimSpace(insight), nil
}

// CollaborationInsight describes how two people work together. Either name may be
// SelfMemberName to mean the manager.
func (s *CoachingService) CollaborationInsight(ctx context.Context, userID, member1, member2 string) (string, error) {
	member1, member2 = strings.TrimSpace(member1), strings.TrimSpace(member2)
	if member1 == "" || member2 == "" {
		return "", fmt.Errorf("%w: both members must be specified", ErrInvalidMember)
	}

	u, people, err := s.load(ctx, userID)
	if err != nil {
		return "", err
	}
	a := resolvePerson(member1, u, people)
	b := resolvePerson(member2, u, people)
	if len(a.Strengths) == 0 || len(b.Strengths) == 0 {
		return "", ErrMemberStrengthsNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	insight, err := s.generator.CollaborationInsight(ctx, a, b)
	if err != nil {
		return "", fmt.Errorf("failed to generate collaboration insight: %w", err)
	}
	return trimToCompleteSentences(insight), nil
}

// Chat answers one coaching message in the context of the manager's strengths and team.
func (s *CoachingService) Chat(ctx context.Context, userID string, mode content.ChatMode, message string, history []content.ChatTurn) (string, error) {
	if mode != content.ChatModePersonal && mode != content.ChatModeTeam {
		return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidChat, mode)
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return "", fmt.Errorf("%w: message is required", ErrInvalidChat)
	}

	u, people, err := s.load(ctx, userID)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	answer, err := s.generator.CoachResponse(ctx, content.ChatRequest{
		Mode:             mode,
		Message:          message,
		ManagerStrengths: u.TopStrengths,
		Team:             people,
		History:          history,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate coaching response: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"user_id": userID, "mode": mode}).Debug("Coaching response generated")
	return strings.TrimSpace(answer), nil
}

// StarterQuestions suggests conversation openers for the coach.
func (s *CoachingService) StarterQuestions(ctx context.Context, userID string, recentTopics []string) ([]string, error) {
	u, people, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	questions, err := s.generator.StarterQuestions(ctx, u.TopStrengths, people, recentTopics)
	if err != nil {
		return nil, fmt.Errorf("failed to generate starter questions: %w", err)
	}
	return cleanQuestions(questions), nil
}

// FollowUpQuestions suggests what to ask after a coaching answer.
func (s *CoachingService) FollowUpQuestions(ctx context.Context, answer string, history []content.ChatTurn) ([]string, error) {
	if strings.TrimSpace(answer) == "" {
		return nil, fmt.Errorf("%w: answer is required", ErrInvalidChat)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	questions, err := s.generator.FollowUpQuestions(ctx, answer, history)
	if err != nil {
		return nil, fmt.Errorf("failed to generate follow-up questions: %w", err)
	}
	return cleanQuestions(questions), nil
}

func (s *CoachingService) load(ctx context.Context, userID string) (*user.User, []content.Person, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	members, err := s.roster.ListByManager(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list team members: %w", err)
	}
	people := make([]content.Person, 0, len(members))
	for _, m := range members {
		people = append(people, content.Person{Name: m.Name, Strengths: m.Strengths})
	}
	return u, people, nil
}

// resolvePerson maps a name to the manager or the first team member with that name.
// Unknown names resolve to a person without strengths.
func resolvePerson(name string, manager *user.User, people []content.Person) content.Person {
	if name == SelfMemberName {
		return content.Person{Name: SelfMemberName, Strengths: manager.TopStrengths}
	}
	for _, p := range people {
		if p.Name == name {
			return p
		}
	}
	return content.Person{Name: name}
}

// trimToCompleteSentences drops a trailing fragment left by a model that hit its token limit.
func trimToCompleteSentences(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= 50 {
		return text
	}
	ellipsis := strings.HasSuffix(text, "...")
	if !ellipsis && strings.ContainsAny(text[len(text)-1:], ".!?") {
		return text
	}
	cut := text
	if ellipsis {
		cut = strings.TrimRight(text, ".")
	}
	if i := strings.LastIndexAny(cut, ".!?"); i > 20 {
		return cut[:i+1]
	}
	return text
}

func cleanQuestions(questions []string) []string {
	out := make([]string, 0, MaxSuggestedQuestions)
	for _, q := range questions {
		if q = strings.TrimSpace(q); q == "" {
			continue
		}
		out = append(out, q)
		if len(out) == MaxSuggestedQuestions {
			break
		}
	}
	return out
}
