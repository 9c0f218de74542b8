package app

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"strengths_manager/internal/domain/campaign"
)

// Custom application-level errors for admin service
var ErrAdminNotAuthorized = fmt.Errorf("performing user is not authorized as an admin")
var ErrTickInProgress = fmt.Errorf("a campaign tick is already running")

// SubscriptionStats reports how far active subscriptions have progressed.
type SubscriptionStats interface {
	CountActiveByWeek(ctx context.Context, t campaign.CampaignType) (map[int]int, error)
}

// TickTrigger runs a campaign tick on demand. It returns false if a tick is already running.
type TickTrigger interface {
	RunTick(ctx context.Context) bool
}

// CampaignStatus is the distribution of active weekly subscriptions by emails sent so far.
type CampaignStatus struct {
	Active int
	ByWeek map[int]int
}

func (s *CampaignStatus) String() string {
	if s.Active == 0 {
		return "No active weekly coaching subscriptions."
	}
	weeks := make([]int, 0, len(s.ByWeek))
	for w := range s.ByWeek {
		weeks = append(weeks, w)
	}
	slices.Sort(weeks)

	var b strings.Builder
	fmt.Fprintf(&b, "Active weekly coaching subscriptions: %d\n", s.Active)
	for _, w := range weeks {
		fmt.Fprintf(&b, "%d/%d sent: %d\n", w, campaign.TotalWeeks, s.ByWeek[w])
	}
	return strings.TrimRight(b.String(), "\n")
}

type AdminService struct {
	stats           SubscriptionStats
	trigger         TickTrigger
	adminTelegramID int64
}

func NewAdminService(stats SubscriptionStats, trigger TickTrigger, adminID int64) *AdminService {
	return &AdminService{
		stats:           stats,
		trigger:         trigger,
		adminTelegramID: adminID,
	}
}

// CampaignStatus summarises active weekly coaching subscriptions.
func (s *AdminService) CampaignStatus(ctx context.Context, performingAdminID int64) (*CampaignStatus, error) {
	if performingAdminID != s.adminTelegramID {
		return nil, ErrAdminNotAuthorized
	}
	counts, err := s.stats.CountActiveByWeek(ctx, campaign.CampaignTypeWeeklyCoaching)
	if err != nil {
		return nil, fmt.Errorf("failed to count active subscriptions: %w", err)
	}
	status := &CampaignStatus{ByWeek: counts}
	for _, n := range counts {
		status.Active += n
	}
	return status, nil
}

// RunTick runs a campaign tick now and blocks until it finishes.
func (s *AdminService) RunTick(ctx context.Context, performingAdminID int64) error {
	if performingAdminID != s.adminTelegramID {
		return ErrAdminNotAuthorized
	}
	if !s.trigger.RunTick(ctx) {
		return ErrTickInProgress
	}
	return nil
}
