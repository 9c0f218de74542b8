package app

import (
	"context"
	"fmt"
	"strings"

	"strengths_manager/internal/domain/strengths"
	"strengths_manager/internal/domain/team"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// MaxMemberNameLength bounds the display name of a team member.
const MaxMemberNameLength = 100

type TeamService struct {
	memberRepo team.Repository
	logger     *logrus.Entry
}

func NewTeamService(tr team.Repository, logger *logrus.Entry) *TeamService {
	return &TeamService{
		memberRepo: tr,
		logger:     logger,
	}
}

// ListMembers returns the manager's team in creation order.
func (s *TeamService) ListMembers(ctx context.Context, managerID string) ([]*team.Member, error) {
	members, err := s.memberRepo.ListByManager(ctx, managerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	return members, nil
}

// AddMember validates and stores a new team member for the manager.
func (s *TeamService) AddMember(ctx context.Context, managerID, name string, memberStrengths []string) (*team.Member, error) {
	name, list, err := validateMember(name, memberStrengths)
	if err != nil {
		return nil, err
	}

	m := &team.Member{
		ID:        uuid.NewString(),
		ManagerID: managerID,
		Name:      name,
		Strengths: list,
	}
	if err := s.memberRepo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to create team member: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"manager_id": managerID, "member_id": m.ID}).Info("Team member added")
	return m, nil
}

// UpdateMember replaces the name and strengths of a member the manager owns.
func (s *TeamService) UpdateMember(ctx context.Context, managerID, memberID, name string, memberStrengths []string) (*team.Member, error) {
	name, list, err := validateMember(name, memberStrengths)
	if err != nil {
		return nil, err
	}

	m, err := s.owned(ctx, managerID, memberID)
	if err != nil {
		return nil, err
	}
	m.Name = name
	m.Strengths = list
	if err := s.memberRepo.Update(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to update team member: %w", err)
	}
	return m, nil
}

// RemoveMember deletes a member the manager owns.
func (s *TeamService) RemoveMember(ctx context.Context, managerID, memberID string) error {
	if _, err := s.owned(ctx, managerID, memberID); err != nil {
		return err
	}
	if err := s.memberRepo.Delete(ctx, memberID); err != nil {
		return fmt.Errorf("failed to delete team member: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"manager_id": managerID, "member_id": memberID}).Info("Team member removed")
	return nil
}

func (s *TeamService) owned(ctx context.Context, managerID, memberID string) (*team.Member, error) {
	m, err := s.memberRepo.GetByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to get team member %s: %w", memberID, err)
	}
	if m.ManagerID != managerID {
		return nil, ErrNotOwner
	}
	return m, nil
}

func validateMember(name string, memberStrengths []string) (string, []string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil, fmt.Errorf("%w: name is required", ErrInvalidMember)
	}
	if len([]rune(name)) > MaxMemberNameLength {
		return "", nil, fmt.Errorf("%w: name is longer than %d characters", ErrInvalidMember, MaxMemberNameLength)
	}
	list := strengths.Normalize(memberStrengths)
	if err := strengths.ValidateTop(list); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidStrengths, err)
	}
	return name, list, nil
}
