// internal/app/campaign_engine.go
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"strengths_manager/internal/domain/campaign"
	"strengths_manager/internal/domain/content"
	"strengths_manager/internal/domain/mail"
	"strengths_manager/internal/domain/strengths"
	"strengths_manager/internal/domain/team"
	"strengths_manager/internal/domain/user"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// WeeklyGenerator writes the weekly nudge for a brief.
type WeeklyGenerator interface {
	WeeklyEmail(ctx context.Context, req content.WeeklyRequest) (*content.WeeklyEmail, error)
}

// WeeklyRenderer turns generated content into an email body.
type WeeklyRenderer interface {
	RenderWeekly(brief *campaign.ContentBrief, email *content.WeeklyEmail) (string, error)
}

// EngineConfig tunes the campaign engine.
type EngineConfig struct {
	Concurrency       int           // Subscriptions processed in parallel per tick
	GenerationTimeout time.Duration // Per call to the content generator
	DeliveryTimeout   time.Duration // Per call to the email sender
	// RegenerateOnRepeat asks the generator once more when the opener or subject pattern
	// of the generated email repeats the most recent week.
	RegenerateOnRepeat bool
}

// OutcomeStatus summarises what a tick did for one subscription.
type OutcomeStatus string

const (
	OutcomeSent        OutcomeStatus = "sent"
	OutcomeFailed      OutcomeStatus = "failed"
	OutcomeSkipped     OutcomeStatus = "skipped"
	OutcomeDeactivated OutcomeStatus = "deactivated"
)

// TickOutcome is the record of one subscription's processing in a campaign tick.
type TickOutcome struct {
	UserID     string
	WeekNumber int
	Status     OutcomeStatus
	ProviderID string
	Err        error
}

// CampaignEngine decides what each weekly coaching email contains, sends it and
// remembers what was sent.
type CampaignEngine struct {
	users     user.Repository
	roster    team.Repository
	subs      campaign.Repository
	logs      campaign.LogRepository
	generator WeeklyGenerator
	sender    mail.Sender
	renderer  WeeklyRenderer
	logger    *logrus.Entry
	cfg       EngineConfig
	locks     *keyedMutex
	now       func() time.Time
}

func NewCampaignEngine(
	ur user.Repository,
	tr team.Repository,
	sr campaign.Repository,
	lr campaign.LogRepository,
	gen WeeklyGenerator,
	sender mail.Sender,
	renderer WeeklyRenderer,
	logger *logrus.Entry,
	cfg EngineConfig,
) *CampaignEngine {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = time.Minute
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = time.Minute
	}
	return &CampaignEngine{
		users:     ur,
		roster:    tr,
		subs:      sr,
		logs:      lr,
		generator: gen,
		sender:    sender,
		renderer:  renderer,
		logger:    logger,
		cfg:       cfg,
		locks:     newKeyedMutex(),
		now:       time.Now,
	}
}

// SelectWeeklyFocus computes the content brief for weekNumber (1-indexed).
// It has no side effects. It fails only with a ConfigurationError when the
// manager has no strengths; an empty roster yields a placeholder member.
func SelectWeeklyFocus(u *user.User, roster []*team.Member, sub *campaign.Subscription, weekNumber int) (*campaign.ContentBrief, error) {
	if u == nil {
		return nil, &campaign.ConfigurationError{Err: errors.New("user is required")}
	}
	top := strengths.Normalize(u.TopStrengths)
	if len(top) == 0 {
		return nil, &campaign.ConfigurationError{UserID: u.ID, Err: campaign.ErrNoStrengths}
	}

	brief := &campaign.ContentBrief{
		UserID:           u.ID,
		WeekNumber:       weekNumber,
		ManagerName:      u.DisplayName("Manager"),
		TopStrengths:     top,
		FeaturedStrength: pickByWeek(top, weekNumber),
		TeamSize:         len(roster),
		FeaturedMember:   campaign.PlaceholderMemberName,
		QuoteSource:      campaign.QuoteSourceForWeek(weekNumber),
	}
	if sub != nil {
		brief.History = sub.History.Recent()
	}

	if len(roster) > 0 {
		member := roster[0]
		if idx := weekNumber % len(roster); idx >= 0 && idx < len(roster) {
			member = roster[idx]
		}
		brief.FeaturedMember = member.Name
		brief.FeaturedMemberStrengths = slices.Clone(member.Strengths)
		brief.FeaturedMemberStrength = pickByWeek(member.Strengths, weekNumber)
	}
	return brief, nil
}

// pickByWeek returns list[week mod len], falling back to the first element when the index
// is out of range, or "" for an empty list.
func pickByWeek(list []string, weekNumber int) string {
	if len(list) == 0 {
		return ""
	}
	if idx := weekNumber % len(list); idx >= 0 && idx < len(list) {
		return list[idx]
	}
	return list[0]
}

// RecordDelivery updates the rotation history and counters after a confirmed send and
// persists the subscription. It returns a NotFoundError when no matching active row
// exists at the expected week, in which case the send must not be retried.
func (e *CampaignEngine) RecordDelivery(ctx context.Context, sub *campaign.Subscription, brief *campaign.ContentBrief, email *content.WeeklyEmail) (*campaign.Subscription, error) {
	key := lockKey(sub.UserID, sub.Type)
	if err := e.locks.Lock(ctx, key); err != nil {
		return nil, fmt.Errorf("failed to lock subscription for user %s: %w", sub.UserID, err)
	}
	defer e.locks.Unlock(key)
	return e.recordDelivery(ctx, sub, brief, email)
}

func (e *CampaignEngine) recordDelivery(ctx context.Context, sub *campaign.Subscription, brief *campaign.ContentBrief, email *content.WeeklyEmail) (*campaign.Subscription, error) {
	notFound := &campaign.NotFoundError{UserID: sub.UserID, Type: sub.Type}

	current, err := e.subs.Find(ctx, sub.UserID, sub.Type)
	if err != nil {
		if errors.Is(err, campaign.ErrSubscriptionNotFound) {
			return nil, notFound
		}
		return nil, fmt.Errorf("failed to reload subscription for user %s: %w", sub.UserID, err)
	}
	expected := brief.WeekNumber - 1
	if !current.IsActive || current.WeekCount != expected {
		return nil, notFound
	}

	updated := current.Clone()
	updated.History = current.History.Push(campaign.Tags{
		Opener:         OpenerTag(email.PersonalInsight),
		PersonalTip:    PersonalTipTag(email.PersonalInsight),
		TeamMember:     brief.FeaturedMember,
		SubjectPattern: SubjectTag(email.SubjectLine),
		QuoteSource:    string(brief.QuoteSource),
	})
	if updated.WeekCount < campaign.TotalWeeks {
		updated.WeekCount++
	}
	if updated.WeekCount >= campaign.TotalWeeks {
		updated.IsActive = false
	}
	updated.LastSentAt = sql.NullTime{Time: e.now(), Valid: true}

	if err := e.subs.UpdateIfWeekCount(ctx, updated, expected); err != nil {
		if errors.Is(err, campaign.ErrSubscriptionNotFound) {
			return nil, notFound
		}
		return nil, fmt.Errorf("failed to save subscription for user %s: %w", sub.UserID, err)
	}
	return updated, nil
}

// RunCampaignTick processes every active weekly coaching subscription once.
// A failure for one subscription never stops the others.
func (e *CampaignEngine) RunCampaignTick(ctx context.Context) ([]TickOutcome, error) {
	active, err := e.subs.ListActive(ctx, campaign.CampaignTypeWeeklyCoaching)
	if err != nil {
		return nil, fmt.Errorf("failed to list active weekly subscriptions: %w", err)
	}
	e.logger.WithField("subscriptions", len(active)).Info("Campaign tick started")

	outcomes := make([]TickOutcome, len(active))
	var g errgroup.Group
	g.SetLimit(e.cfg.Concurrency)
	for i, sub := range active {
		g.Go(func() error {
			outcomes[i] = e.processSubscription(ctx, sub)
			return nil
		})
	}
	_ = g.Wait()

	counts := map[OutcomeStatus]int{}
	for _, o := range outcomes {
		counts[o.Status]++
	}
	e.logger.WithFields(logrus.Fields{
		"sent":        counts[OutcomeSent],
		"failed":      counts[OutcomeFailed],
		"skipped":     counts[OutcomeSkipped],
		"deactivated": counts[OutcomeDeactivated],
	}).Info("Campaign tick finished")
	return outcomes, nil
}

func (e *CampaignEngine) processSubscription(ctx context.Context, sub *campaign.Subscription) TickOutcome {
	week := sub.NextWeek()
	log := e.logger.WithFields(logrus.Fields{"user_id": sub.UserID, "week": week})
	outcome := TickOutcome{UserID: sub.UserID, WeekNumber: week}

	key := lockKey(sub.UserID, sub.Type)
	if !e.locks.TryLock(key) {
		log.Warn("Subscription already being processed, skipping")
		outcome.Status = OutcomeSkipped
		return outcome
	}
	defer e.locks.Unlock(key)

	if err := ctx.Err(); err != nil {
		outcome.Status = OutcomeSkipped
		outcome.Err = err
		return outcome
	}

	if sub.Completed() {
		outcome.WeekNumber = sub.WeekCount
		if err := e.subs.Deactivate(ctx, sub.UserID, sub.Type); err != nil && !errors.Is(err, campaign.ErrSubscriptionNotFound) {
			log.WithError(err).Error("Failed to deactivate completed subscription")
			outcome.Status = OutcomeFailed
			outcome.Err = err
			return outcome
		}
		log.Info("Campaign already complete, subscription deactivated")
		outcome.Status = OutcomeDeactivated
		return outcome
	}

	u, brief, email, err := e.prepare(ctx, sub, week)
	if err != nil {
		return e.fail(ctx, log, outcome, "", err)
	}

	body, err := e.renderer.RenderWeekly(brief, email)
	if err != nil {
		return e.fail(ctx, log, outcome, email.SubjectLine, fmt.Errorf("failed to render weekly email: %w", err))
	}

	sendCtx, cancel := context.WithTimeout(ctx, e.cfg.DeliveryTimeout)
	providerID, err := e.sender.Send(sendCtx, mail.Message{To: u.Email.String, Subject: email.SubjectLine, HTML: body})
	cancel()
	if err != nil {
		return e.fail(ctx, log, outcome, email.SubjectLine, &campaign.UpstreamError{Stage: campaign.StageDeliver, Err: err})
	}
	outcome.ProviderID = providerID

	updated, err := e.recordDelivery(ctx, sub, brief, email)
	if err != nil {
		// The email went out; a NotFoundError here means someone else already moved the
		// subscription on, so the send must not be repeated.
		log.WithError(err).Error("Email sent but delivery could not be recorded")
		outcome.Status = OutcomeFailed
		outcome.Err = err
		e.writeLog(ctx, u.ID, email.SubjectLine, week, providerID, campaign.DeliveryStatusSent, err)
		return outcome
	}

	e.writeLog(ctx, u.ID, email.SubjectLine, week, providerID, campaign.DeliveryStatusSent, nil)
	log.WithFields(logrus.Fields{
		"provider_id": providerID,
		"week_count":  updated.WeekCount,
		"active":      updated.IsActive,
	}).Info("Weekly coaching email sent")
	outcome.Status = OutcomeSent
	return outcome
}

// prepare loads the user and roster, selects the focus and generates the content.
func (e *CampaignEngine) prepare(ctx context.Context, sub *campaign.Subscription, week int) (*user.User, *campaign.ContentBrief, *content.WeeklyEmail, error) {
	u, err := e.users.GetByID(ctx, sub.UserID)
	if err != nil {
		return nil, nil, nil, &campaign.UpstreamError{Stage: campaign.StageLoad, Err: fmt.Errorf("failed to load user: %w", err)}
	}
	if !u.Email.Valid || u.Email.String == "" {
		return u, nil, nil, &campaign.ConfigurationError{UserID: u.ID, Err: errors.New("user has no email address")}
	}

	roster, err := e.roster.ListByManager(ctx, u.ID)
	if err != nil {
		return u, nil, nil, &campaign.UpstreamError{Stage: campaign.StageLoad, Err: fmt.Errorf("failed to load team: %w", err)}
	}

	brief, err := SelectWeeklyFocus(u, roster, sub, week)
	if err != nil {
		return u, nil, nil, err
	}

	email, err := e.generate(ctx, brief)
	if err != nil {
		return u, brief, nil, err
	}
	if e.cfg.RegenerateOnRepeat && repeatsLastWeek(brief.History, email) {
		e.logger.WithFields(logrus.Fields{"user_id": u.ID, "week": week}).Info("Generated email repeats last week's pattern, regenerating once")
		if again, err := e.generate(ctx, brief); err == nil {
			email = again
		}
	}
	return u, brief, email, nil
}

func (e *CampaignEngine) generate(ctx context.Context, brief *campaign.ContentBrief) (*content.WeeklyEmail, error) {
	genCtx, cancel := context.WithTimeout(ctx, e.cfg.GenerationTimeout)
	defer cancel()

	email, err := e.generator.WeeklyEmail(genCtx, WeeklyRequestFromBrief(brief))
	if err != nil {
		return nil, &campaign.UpstreamError{Stage: campaign.StageGenerate, Err: err}
	}
	return email, nil
}

// WeeklyRequestFromBrief maps a brief onto the generator's input.
func WeeklyRequestFromBrief(b *campaign.ContentBrief) content.WeeklyRequest {
	return content.WeeklyRequest{
		ManagerName:                b.ManagerName,
		TopStrengths:               b.TopStrengths,
		WeekNumber:                 b.WeekNumber,
		TeamSize:                   b.TeamSize,
		FeaturedStrength:           b.FeaturedStrength,
		FeaturedTeamMember:         b.FeaturedMember,
		TeamMemberStrengths:        b.FeaturedMemberStrengths,
		TeamMemberFeaturedStrength: b.FeaturedMemberStrength,
		QuoteSource:                string(b.QuoteSource),
		PreviousPersonalTips:       b.History.PersonalTips,
		PreviousOpeners:            b.History.Openers,
		PreviousTeamMembers:        b.History.TeamMembers,
	}
}

func repeatsLastWeek(h campaign.History, email *content.WeeklyEmail) bool {
	last := func(s []string) string {
		if len(s) == 0 {
			return ""
		}
		return s[len(s)-1]
	}
	opener := OpenerTag(email.PersonalInsight)
	subject := SubjectTag(email.SubjectLine)
	return (opener != defaultTag && opener == last(h.Openers)) ||
		(subject != defaultTag && subject == last(h.SubjectPatterns))
}

func (e *CampaignEngine) fail(ctx context.Context, log *logrus.Entry, outcome TickOutcome, subject string, err error) TickOutcome {
	log.WithError(err).WithField("retryable", campaign.Retryable(err)).Error("Weekly coaching email failed")
	outcome.Status = OutcomeFailed
	outcome.Err = err
	e.writeLog(ctx, outcome.UserID, subject, outcome.WeekNumber, "", campaign.DeliveryStatusFailed, err)
	return outcome
}

func (e *CampaignEngine) writeLog(ctx context.Context, userID, subject string, week int, providerID string, status campaign.DeliveryStatus, cause error) {
	entry := &campaign.EmailLog{
		ID:         uuid.NewString(),
		UserID:     userID,
		Type:       campaign.CampaignTypeWeeklyCoaching,
		Subject:    subject,
		WeekNumber: sql.NullInt32{Int32: int32(week), Valid: true},
		ProviderID: sql.NullString{String: providerID, Valid: providerID != ""},
		Status:     status,
		CreatedAt:  e.now(),
	}
	if cause != nil {
		entry.ErrorMessage = sql.NullString{String: cause.Error(), Valid: true}
	}
	if err := e.logs.Create(ctx, entry); err != nil {
		e.logger.WithError(err).WithField("user_id", userID).Warn("Failed to write email log")
	}
}

func lockKey(userID string, t campaign.CampaignType) string {
	return string(t) + "/" + userID
}
