package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"strengths_manager/internal/domain/campaign"
	"strengths_manager/internal/domain/content"
	"strengths_manager/internal/domain/mail"
	"strengths_manager/internal/domain/strengths"
	"strengths_manager/internal/domain/user"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultTimezone is used when onboarding does not say where the manager lives.
const DefaultTimezone = "America/New_York"

// FallbackWelcomeSubject is used when the welcome email is sent without generated content.
const FallbackWelcomeSubject = "Welcome to Strengths Manager! 🎯"

// WelcomeGenerator writes the onboarding welcome email.
type WelcomeGenerator interface {
	WelcomeEmail(ctx context.Context, req content.WelcomeRequest) (*content.WelcomeEmail, error)
}

// WelcomeRenderer turns a welcome view into an email body.
type WelcomeRenderer interface {
	RenderWelcome(v mail.WelcomeView) (string, error)
}

type OnboardingService struct {
	users             user.Repository
	subs              campaign.Repository
	logs              campaign.LogRepository
	generator         WelcomeGenerator
	sender            mail.Sender
	renderer          WelcomeRenderer
	logger            *logrus.Entry
	generationTimeout time.Duration
	now               func() time.Time
}

func NewOnboardingService(
	ur user.Repository,
	sr campaign.Repository,
	lr campaign.LogRepository,
	gen WelcomeGenerator,
	sender mail.Sender,
	renderer WelcomeRenderer,
	logger *logrus.Entry,
	generationTimeout time.Duration,
) *OnboardingService {
	if generationTimeout <= 0 {
		generationTimeout = time.Minute
	}
	return &OnboardingService{
		users:             ur,
		subs:              sr,
		logs:              lr,
		generator:         gen,
		sender:            sender,
		renderer:          renderer,
		logger:            logger,
		generationTimeout: generationTimeout,
		now:               time.Now,
	}
}

// CompleteOnboarding stores the manager's top strengths, enrolls them in the welcome and
// weekly coaching campaigns and sends the welcome email on first enrollment.
// A failed welcome email is logged and recorded but does not fail onboarding.
func (s *OnboardingService) CompleteOnboarding(ctx context.Context, userID string, topStrengths []string, timezone string) (*user.User, error) {
	top := strengths.Normalize(topStrengths)
	if err := strengths.ValidateTop(top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStrengths, err)
	}
	if timezone == "" {
		timezone = DefaultTimezone
	}

	u, err := s.users.UpdateOnboarding(ctx, userID, true, top)
	if err != nil {
		return nil, fmt.Errorf("failed to update onboarding for user %s: %w", userID, err)
	}

	welcomeCreated, err := s.ensureSubscription(ctx, userID, campaign.CampaignTypeWelcome, timezone)
	if err != nil {
		return nil, err
	}
	if _, err := s.ensureSubscription(ctx, userID, campaign.CampaignTypeWeeklyCoaching, timezone); err != nil {
		return nil, err
	}

	if welcomeCreated {
		s.sendWelcome(ctx, u)
	}
	return u, nil
}

// ensureSubscription creates an active subscription at week zero unless one already exists.
// Existing subscriptions are left untouched so repeating onboarding never restarts a campaign.
func (s *OnboardingService) ensureSubscription(ctx context.Context, userID string, t campaign.CampaignType, timezone string) (bool, error) {
	_, err := s.subs.Find(ctx, userID, t)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, campaign.ErrSubscriptionNotFound) {
		return false, fmt.Errorf("failed to look up %s subscription for user %s: %w", t, userID, err)
	}
	if err := s.subs.Upsert(ctx, campaign.NewSubscription(userID, t, timezone)); err != nil {
		return false, fmt.Errorf("failed to create %s subscription for user %s: %w", t, userID, err)
	}
	return true, nil
}

func (s *OnboardingService) sendWelcome(ctx context.Context, u *user.User) {
	log := s.logger.WithField("user_id", u.ID)
	if !u.Email.Valid || u.Email.String == "" {
		log.Warn("User has no email address, welcome email not sent")
		s.writeLog(ctx, u.ID, FallbackWelcomeSubject, "", campaign.DeliveryStatusSkipped, errors.New("user has no email address"))
		return
	}

	view := mail.WelcomeView{
		UserID:     u.ID,
		FirstName:  u.DisplayName("there"),
		NextMonday: NextMonday(s.now()).Format("Monday, January 2"),
	}
	if len(u.TopStrengths) > 0 {
		view.Strength1 = u.TopStrengths[0]
	}
	if len(u.TopStrengths) > 1 {
		view.Strength2 = u.TopStrengths[1]
	}

	subject := FallbackWelcomeSubject
	if view.Strength2 != "" {
		genCtx, cancel := context.WithTimeout(ctx, s.generationTimeout)
		welcome, err := s.generator.WelcomeEmail(genCtx, content.WelcomeRequest{
			FirstName:  u.DisplayName(""),
			Strength1:  view.Strength1,
			Strength2:  view.Strength2,
			NextMonday: view.NextMonday,
		})
		cancel()
		if err == nil {
			err = welcome.Validate()
		}
		if err != nil {
			log.WithError(err).Warn("Failed to generate welcome email content, using static template")
		} else {
			view.Content = welcome
			subject = welcome.Subject
		}
	}

	body, err := s.renderer.RenderWelcome(view)
	if err != nil {
		log.WithError(err).Error("Failed to render welcome email")
		s.writeLog(ctx, u.ID, subject, "", campaign.DeliveryStatusFailed, err)
		return
	}

	providerID, err := s.sender.Send(ctx, mail.Message{To: u.Email.String, Subject: subject, HTML: body})
	if err != nil {
		log.WithError(err).Error("Failed to send welcome email")
		s.writeLog(ctx, u.ID, subject, "", campaign.DeliveryStatusFailed, err)
		return
	}
	s.writeLog(ctx, u.ID, subject, providerID, campaign.DeliveryStatusSent, nil)
	log.WithField("provider_id", providerID).Info("Welcome email sent")
}

func (s *OnboardingService) writeLog(ctx context.Context, userID, subject, providerID string, status campaign.DeliveryStatus, cause error) {
	entry := &campaign.EmailLog{
		ID:         uuid.NewString(),
		UserID:     userID,
		Type:       campaign.CampaignTypeWelcome,
		Subject:    subject,
		ProviderID: sql.NullString{String: providerID, Valid: providerID != ""},
		Status:     status,
		CreatedAt:  s.now(),
	}
	if cause != nil {
		entry.ErrorMessage = sql.NullString{String: cause.Error(), Valid: true}
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Failed to write email log")
	}
}

// NextMonday returns the date of the first Monday strictly after t.
func NextMonday(t time.Time) time.Time {
	days := (8 - int(t.Weekday())) % 7
	if days == 0 {
		days = 7
	}
	y, m, d := t.AddDate(0, 0, days).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
