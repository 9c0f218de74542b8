package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"strengths_manager/internal/domain/campaign"
	"strengths_manager/internal/domain/content"
	"strengths_manager/internal/domain/team"
	"strengths_manager/internal/domain/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type engineFixture struct {
	users  *memUsers
	roster *memTeam
	subs   *memSubs
	logs   *memLogs
	gen    *fakeGenerator
	sender *fakeSender
	engine *CampaignEngine
}

func newEngineFixture(t *testing.T, cfg EngineConfig) *engineFixture {
	t.Helper()
	f := &engineFixture{
		users:  newMemUsers(),
		roster: newMemTeam(),
		subs:   newMemSubs(),
		logs:   &memLogs{},
		gen:    &fakeGenerator{},
		sender: &fakeSender{},
	}
	f.engine = NewCampaignEngine(f.users, f.roster, f.subs, f.logs, f.gen, f.sender, fakeRenderer{}, testLogger(), cfg)
	f.engine.now = func() time.Time { return time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC) }
	return f
}

func (f *engineFixture) enroll(u *user.User, weekCount int) {
	f.users.users[u.ID] = u
	sub := campaign.NewSubscription(u.ID, campaign.CampaignTypeWeeklyCoaching, "UTC")
	sub.WeekCount = weekCount
	f.subs.put(sub)
}

func member(id, managerID, name string, strengths ...string) *team.Member {
	return &team.Member{ID: id, ManagerID: managerID, Name: name, Strengths: strengths}
}

func TestSelectWeeklyFocus(t *testing.T) {
	u := newManager("m1", "Achiever", "Focus", "Strategic")
	roster := []*team.Member{
		member("t1", "m1", "Ana", "Empathy", "Harmony"),
		member("t2", "m1", "Ben", "Learner"),
		member("t3", "m1", "Cy", "Command", "Drive"),
	}

	for week := 1; week <= 24; week++ {
		brief, err := SelectWeeklyFocus(u, roster, nil, week)
		require.NoError(t, err)

		assert.Contains(t, u.TopStrengths, brief.FeaturedStrength)
		assert.Equal(t, u.TopStrengths[week%3], brief.FeaturedStrength)
		assert.Equal(t, roster[week%3].Name, brief.FeaturedMember)
		assert.Contains(t, roster[week%3].Strengths, brief.FeaturedMemberStrength)
		assert.Equal(t, 3, brief.TeamSize)
		assert.Equal(t, campaign.QuoteSourceForWeek(week), brief.QuoteSource)
		assert.Equal(t, "Manager m1", brief.ManagerName)
	}
}

func TestSelectWeeklyFocusRotatesTwoStrengths(t *testing.T) {
	u := newManager("m1", "Achiever", "Focus")

	week2, err := SelectWeeklyFocus(u, nil, nil, 2)
	require.NoError(t, err)
	week3, err := SelectWeeklyFocus(u, nil, nil, 3)
	require.NoError(t, err)

	assert.Equal(t, "Achiever", week2.FeaturedStrength)
	assert.Equal(t, "Focus", week3.FeaturedStrength)
}

func TestSelectWeeklyFocusEmptyRoster(t *testing.T) {
	brief, err := SelectWeeklyFocus(newManager("m1", "Learner"), nil, nil, 5)
	require.NoError(t, err)

	assert.Equal(t, campaign.PlaceholderMemberName, brief.FeaturedMember)
	assert.Empty(t, brief.FeaturedMemberStrengths)
	assert.Empty(t, brief.FeaturedMemberStrength)
	assert.Zero(t, brief.TeamSize)
}

func TestSelectWeeklyFocusNoStrengths(t *testing.T) {
	_, err := SelectWeeklyFocus(newManager("m1"), nil, nil, 1)

	var cfgErr *campaign.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "m1", cfgErr.UserID)
	assert.ErrorIs(t, err, campaign.ErrNoStrengths)
	assert.False(t, campaign.Retryable(err))
}

func TestSelectWeeklyFocusUsesRecentHistory(t *testing.T) {
	sub := campaign.NewSubscription("m1", campaign.CampaignTypeWeeklyCoaching, "UTC")
	sub.History.TeamMembers = []string{"a", "b", "c", "d", "e"}

	brief, err := SelectWeeklyFocus(newManager("m1", "Focus"), nil, sub, 6)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "d", "e"}, brief.History.TeamMembers)

	req := WeeklyRequestFromBrief(brief)
	assert.Equal(t, brief.History.TeamMembers, req.PreviousTeamMembers)
	assert.Equal(t, "Team Member", req.FeaturedTeamMember)
	assert.Equal(t, string(campaign.QuoteSourceScientistsResearchers), req.QuoteSource)
}

func TestRunCampaignTickSendsAndRecords(t *testing.T) {
	f := newEngineFixture(t, EngineConfig{Concurrency: 2})
	f.enroll(newManager("m1", "Achiever", "Focus"), 0)
	require.NoError(t, f.roster.Create(context.Background(), member("t1", "m1", "Ana", "Empathy")))

	outcomes, err := f.engine.RunCampaignTick(context.Background())
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, OutcomeSent, outcomes[0].Status)
	assert.Equal(t, 1, outcomes[0].WeekNumber)
	assert.Equal(t, "msg-1", outcomes[0].ProviderID)

	sub := f.subs.get("m1", campaign.CampaignTypeWeeklyCoaching)
	assert.Equal(t, 1, sub.WeekCount)
	assert.True(t, sub.IsActive)
	assert.True(t, sub.LastSentAt.Valid)
	assert.Equal(t, []string{"Ana"}, sub.History.TeamMembers)
	assert.Equal(t, []string{"direct"}, sub.History.Openers)
	assert.Equal(t, []string{"action_strength"}, sub.History.SubjectPatterns)
	assert.Equal(t, []string{string(campaign.QuoteSourceBusinessLeaders)}, sub.History.QuoteSources)

	require.Equal(t, 1, f.sender.count())
	assert.Equal(t, "m1@example.com", f.sender.sent[0].To)
	assert.Equal(t, "Sharpen your Focus", f.sender.sent[0].Subject)

	logs, err := f.logs.ListByUser(context.Background(), "m1", 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, campaign.DeliveryStatusSent, logs[0].Status)
	assert.Equal(t, "msg-1", logs[0].ProviderID.String)
	assert.EqualValues(t, 1, logs[0].WeekNumber.Int32)
}

func TestRunCampaignTickHistoryStaysBounded(t *testing.T) {
	f := newEngineFixture(t, EngineConfig{})
	f.enroll(newManager("m1", "Achiever", "Focus"), 0)
	for i, name := range []string{"Ana", "Ben", "Cy"} {
		require.NoError(t, f.roster.Create(context.Background(), member(fmt.Sprintf("t%d", i), "m1", name, "Empathy")))
	}

	var lastFeatured string
	for week := 1; week <= 10; week++ {
		outcomes, err := f.engine.RunCampaignTick(context.Background())
		require.NoError(t, err)
		require.Len(t, outcomes, 1)
		require.Equal(t, OutcomeSent, outcomes[0].Status, "week %d", week)
		lastFeatured = f.gen.requests[len(f.gen.requests)-1].FeaturedTeamMember

		sub := f.subs.get("m1", campaign.CampaignTypeWeeklyCoaching)
		assert.Equal(t, week, sub.WeekCount)
		assert.LessOrEqual(t, len(sub.History.TeamMembers), campaign.HistoryWindow)
		assert.Equal(t, lastFeatured, sub.History.TeamMembers[len(sub.History.TeamMembers)-1])
	}

	sub := f.subs.get("m1", campaign.CampaignTypeWeeklyCoaching)
	assert.Equal(t, []string{"Ben", "Cy", "Ana", "Ben"}, sub.History.TeamMembers)
	assert.Equal(t, "Ben", lastFeatured)
}

func TestRunCampaignTickFinalWeekDeactivates(t *testing.T) {
	f := newEngineFixture(t, EngineConfig{})
	f.enroll(newManager("m1", "Focus"), 11)

	outcomes, err := f.engine.RunCampaignTick(context.Background())
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, OutcomeSent, outcomes[0].Status)
	assert.Equal(t, 12, outcomes[0].WeekNumber)

	sub := f.subs.get("m1", campaign.CampaignTypeWeeklyCoaching)
	assert.Equal(t, campaign.TotalWeeks, sub.WeekCount)
	assert.False(t, sub.IsActive)

	outcomes, err = f.engine.RunCampaignTick(context.Background())
	require.NoError(t, err)
	assert.Empty(t, outcomes)
	assert.Equal(t, 1, f.gen.requestCount())
	assert.Equal(t, 1, f.sender.count())
}

func TestRunCampaignTickDeactivatesCompletedActiveRow(t *testing.T) {
	f := newEngineFixture(t, EngineConfig{})
	f.enroll(newManager("m1", "Focus"), campaign.TotalWeeks)

	outcomes, err := f.engine.RunCampaignTick(context.Background())
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, OutcomeDeactivated, outcomes[0].Status)

	assert.False(t, f.subs.get("m1", campaign.CampaignTypeWeeklyCoaching).IsActive)
	assert.Zero(t, f.gen.requestCount())
	assert.Zero(t, f.sender.count())
}

func TestRunCampaignTickIsolatesFailures(t *testing.T) {
	f := newEngineFixture(t, EngineConfig{Concurrency: 4})
	f.enroll(newManager("a", "Focus"), 2)
	f.enroll(newManager("b", "Learner"), 2)
	f.gen.failFor = map[string]bool{"Manager a": true}

	outcomes, err := f.engine.RunCampaignTick(context.Background())
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	byUser := map[string]TickOutcome{}
	for _, o := range outcomes {
		byUser[o.UserID] = o
	}
	assert.Equal(t, OutcomeFailed, byUser["a"].Status)
	assert.True(t, campaign.Retryable(byUser["a"].Err))
	var up *campaign.UpstreamError
	require.ErrorAs(t, byUser["a"].Err, &up)
	assert.Equal(t, campaign.StageGenerate, up.Stage)
	assert.Equal(t, OutcomeSent, byUser["b"].Status)

	assert.Equal(t, 2, f.subs.get("a", campaign.CampaignTypeWeeklyCoaching).WeekCount)
	assert.Equal(t, 3, f.subs.get("b", campaign.CampaignTypeWeeklyCoaching).WeekCount)

	failed, err := f.logs.ListByUser(context.Background(), "a", 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, campaign.DeliveryStatusFailed, failed[0].Status)
	assert.Contains(t, failed[0].ErrorMessage.String, "model unavailable")
	assert.Equal(t, 1, f.logs.byStatus(campaign.DeliveryStatusSent))
}

func TestRunCampaignTickDeliveryFailureLeavesWeekUnchanged(t *testing.T) {
	f := newEngineFixture(t, EngineConfig{})
	f.enroll(newManager("m1", "Focus"), 4)
	f.sender.failFor = map[string]bool{"m1@example.com": true}

	outcomes, err := f.engine.RunCampaignTick(context.Background())
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, OutcomeFailed, outcomes[0].Status)

	var up *campaign.UpstreamError
	require.ErrorAs(t, outcomes[0].Err, &up)
	assert.Equal(t, campaign.StageDeliver, up.Stage)

	sub := f.subs.get("m1", campaign.CampaignTypeWeeklyCoaching)
	assert.Equal(t, 4, sub.WeekCount)
	assert.Empty(t, sub.History.Openers)
}

func TestRunCampaignTickConfigurationErrors(t *testing.T) {
	f := newEngineFixture(t, EngineConfig{})
	f.enroll(newManager("nostrengths"), 0)
	noEmail := newManager("noemail", "Focus")
	noEmail.Email.Valid = false
	f.enroll(noEmail, 0)

	outcomes, err := f.engine.RunCampaignTick(context.Background())
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.Equal(t, OutcomeFailed, o.Status, o.UserID)
		var cfgErr *campaign.ConfigurationError
		assert.ErrorAs(t, o.Err, &cfgErr, o.UserID)
		assert.False(t, campaign.Retryable(o.Err))
	}
	assert.Zero(t, f.gen.requestCount())
	assert.Equal(t, 2, f.logs.byStatus(campaign.DeliveryStatusFailed))
}

func TestRunCampaignTickListError(t *testing.T) {
	f := newEngineFixture(t, EngineConfig{})
	f.subs.listErr = errors.New("connection refused")

	_, err := f.engine.RunCampaignTick(context.Background())
	assert.ErrorContains(t, err, "connection refused")
}

func TestRunCampaignTickWeekMovedOnDuringSend(t *testing.T) {
	f := newEngineFixture(t, EngineConfig{})
	f.enroll(newManager("m1", "Focus"), 3)
	f.subs.beforeUpdate = func() {
		f.subs.mu.Lock()
		f.subs.rows[subKey("m1", campaign.CampaignTypeWeeklyCoaching)].WeekCount = 4
		f.subs.mu.Unlock()
	}

	outcomes, err := f.engine.RunCampaignTick(context.Background())
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, OutcomeFailed, outcomes[0].Status)
	assert.ErrorIs(t, outcomes[0].Err, campaign.ErrSubscriptionNotFound)
	assert.False(t, campaign.Retryable(outcomes[0].Err))

	// The email did go out and is logged as sent.
	assert.Equal(t, 1, f.sender.count())
	assert.Equal(t, 1, f.logs.byStatus(campaign.DeliveryStatusSent))
	assert.Equal(t, 4, f.subs.get("m1", campaign.CampaignTypeWeeklyCoaching).WeekCount)
}

// blockingGenerator parks the first call until released.
type blockingGenerator struct {
	fakeGenerator
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (g *blockingGenerator) WeeklyEmail(ctx context.Context, req content.WeeklyRequest) (*content.WeeklyEmail, error) {
	g.once.Do(func() {
		close(g.started)
		<-g.release
	})
	return g.fakeGenerator.WeeklyEmail(ctx, req)
}

func TestRunCampaignTickConcurrentTicksSendOnce(t *testing.T) {
	f := newEngineFixture(t, EngineConfig{})
	gen := &blockingGenerator{started: make(chan struct{}), release: make(chan struct{})}
	f.engine.generator = gen
	f.enroll(newManager("m1", "Focus"), 5)

	first := make(chan []TickOutcome)
	go func() {
		outcomes, _ := f.engine.RunCampaignTick(context.Background())
		first <- outcomes
	}()
	<-gen.started

	second, err := f.engine.RunCampaignTick(context.Background())
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, OutcomeSkipped, second[0].Status)

	close(gen.release)
	firstOutcomes := <-first
	require.Len(t, firstOutcomes, 1)
	assert.Equal(t, OutcomeSent, firstOutcomes[0].Status)

	assert.Equal(t, 1, f.sender.count())
	assert.Equal(t, 6, f.subs.get("m1", campaign.CampaignTypeWeeklyCoaching).WeekCount)
}

func TestRunCampaignTickCancelledContext(t *testing.T) {
	f := newEngineFixture(t, EngineConfig{})
	f.enroll(newManager("m1", "Focus"), 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcomes, err := f.engine.RunCampaignTick(ctx)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, OutcomeSkipped, outcomes[0].Status)
	assert.ErrorIs(t, outcomes[0].Err, context.Canceled)
	assert.Zero(t, f.sender.count())
}

func TestRecordDelivery(t *testing.T) {
	email := &content.WeeklyEmail{
		SubjectLine:     "Dana, meetings get shorter",
		PersonalInsight: "Know what separates good Focus from great?",
	}

	t.Run("advances the week", func(t *testing.T) {
		f := newEngineFixture(t, EngineConfig{})
		f.enroll(newManager("m1", "Focus"), 2)
		sub := f.subs.get("m1", campaign.CampaignTypeWeeklyCoaching)
		brief, err := SelectWeeklyFocus(f.users.users["m1"], nil, sub, 3)
		require.NoError(t, err)

		updated, err := f.engine.RecordDelivery(context.Background(), sub, brief, email)
		require.NoError(t, err)
		assert.Equal(t, 3, updated.WeekCount)
		assert.Equal(t, []string{"question"}, updated.History.Openers)
		assert.Equal(t, []string{"name_benefit"}, updated.History.SubjectPatterns)
		assert.Equal(t, []string{"Know"}, updated.History.PersonalTips)
		assert.Equal(t, []string{campaign.PlaceholderMemberName}, updated.History.TeamMembers)
		assert.Equal(t, 3, f.subs.get("m1", campaign.CampaignTypeWeeklyCoaching).WeekCount)
	})

	t.Run("missing subscription", func(t *testing.T) {
		f := newEngineFixture(t, EngineConfig{})
		sub := campaign.NewSubscription("ghost", campaign.CampaignTypeWeeklyCoaching, "UTC")
		brief := &campaign.ContentBrief{UserID: "ghost", WeekNumber: 1}

		_, err := f.engine.RecordDelivery(context.Background(), sub, brief, email)
		var nf *campaign.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "ghost", nf.UserID)
	})

	t.Run("week already recorded", func(t *testing.T) {
		f := newEngineFixture(t, EngineConfig{})
		f.enroll(newManager("m1", "Focus"), 3)
		sub := f.subs.get("m1", campaign.CampaignTypeWeeklyCoaching)
		brief := &campaign.ContentBrief{UserID: "m1", WeekNumber: 3}

		_, err := f.engine.RecordDelivery(context.Background(), sub, brief, email)
		assert.ErrorIs(t, err, campaign.ErrSubscriptionNotFound)
		assert.Equal(t, 3, f.subs.get("m1", campaign.CampaignTypeWeeklyCoaching).WeekCount)
	})

	t.Run("inactive subscription", func(t *testing.T) {
		f := newEngineFixture(t, EngineConfig{})
		f.enroll(newManager("m1", "Focus"), 2)
		require.NoError(t, f.subs.Deactivate(context.Background(), "m1", campaign.CampaignTypeWeeklyCoaching))
		sub := f.subs.get("m1", campaign.CampaignTypeWeeklyCoaching)
		brief := &campaign.ContentBrief{UserID: "m1", WeekNumber: 3}

		_, err := f.engine.RecordDelivery(context.Background(), sub, brief, email)
		assert.ErrorIs(t, err, campaign.ErrSubscriptionNotFound)
	})
}

func TestRunCampaignTickRegeneratesOnRepeat(t *testing.T) {
	tests := []struct {
		name        string
		regenerate  bool
		wantCalls   int
		wantOpeners []string
	}{
		{name: "best effort", regenerate: false, wantCalls: 1, wantOpeners: []string{"direct", "direct"}},
		{name: "regenerate once", regenerate: true, wantCalls: 2, wantOpeners: []string{"direct", "question"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newEngineFixture(t, EngineConfig{RegenerateOnRepeat: tt.regenerate})
			f.users.users["m1"] = newManager("m1", "Focus")
			sub := campaign.NewSubscription("m1", campaign.CampaignTypeWeeklyCoaching, "UTC")
			sub.WeekCount = 1
			sub.History.Openers = []string{"direct"}
			sub.History.SubjectPatterns = []string{"default"}
			f.subs.put(sub)

			f.gen.weekly = func(req content.WeeklyRequest, call int) *content.WeeklyEmail {
				insight := "Time to upgrade your Focus."
				if call > 1 {
					insight = "Ready to stretch your Focus?"
				}
				return &content.WeeklyEmail{SubjectLine: "Unlock Focus", PersonalInsight: insight, Header: "h"}
			}

			outcomes, err := f.engine.RunCampaignTick(context.Background())
			require.NoError(t, err)
			require.Len(t, outcomes, 1)
			assert.Equal(t, OutcomeSent, outcomes[0].Status)
			assert.Equal(t, tt.wantCalls, f.gen.requestCount())
			assert.Equal(t, tt.wantOpeners, f.subs.get("m1", campaign.CampaignTypeWeeklyCoaching).History.Openers)
		})
	}
}
