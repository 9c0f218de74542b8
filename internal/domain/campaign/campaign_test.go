package campaign

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteSourceForWeek(t *testing.T) {
	tests := []struct {
		week int
		want QuoteSource
	}{
		{1, QuoteSourceBusinessLeaders},
		{4, QuoteSourceBusinessLeaders},
		{5, QuoteSourceScientistsResearchers},
		{8, QuoteSourceScientistsResearchers},
		{9, QuoteSourceHistoricalFigures},
		{12, QuoteSourceHistoricalFigures},
		{13, QuoteSourceMoviesTV},
		{16, QuoteSourceMoviesTV},
		{17, QuoteSourceBusinessLeaders},
		{21, QuoteSourceScientistsResearchers},
		{0, QuoteSourceBusinessLeaders},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("week %d", tt.week), func(t *testing.T) {
			assert.Equal(t, tt.want, QuoteSourceForWeek(tt.week))
		})
	}
}

func TestQuoteSourceIsPeriodic(t *testing.T) {
	for week := 1; week <= 64; week++ {
		assert.Equal(t, QuoteSourceForWeek(week), QuoteSourceForWeek(week+16), "week %d", week)
	}
}

func TestHistoryPushKeepsLastFour(t *testing.T) {
	var h History
	for i := 1; i <= 10; i++ {
		h = h.Push(Tags{
			Opener:         fmt.Sprintf("o%d", i),
			PersonalTip:    fmt.Sprintf("p%d", i),
			TeamMember:     fmt.Sprintf("m%d", i),
			SubjectPattern: fmt.Sprintf("s%d", i),
			QuoteSource:    fmt.Sprintf("q%d", i),
		})
		for _, field := range [][]string{h.Openers, h.PersonalTips, h.TeamMembers, h.SubjectPatterns, h.QuoteSources} {
			require.LessOrEqual(t, len(field), HistoryWindow)
			assert.Equal(t, fmt.Sprint(i), field[len(field)-1][1:], "most recent tag must be last")
		}
	}
	assert.Equal(t, []string{"o7", "o8", "o9", "o10"}, h.Openers)
}

func TestHistoryPushDoesNotAlias(t *testing.T) {
	base := History{Openers: []string{"a", "b", "c"}}
	next := base.Push(Tags{Opener: "d"})
	next.Openers[0] = "changed"
	assert.Equal(t, []string{"a", "b", "c"}, base.Openers)
}

func TestHistoryRecent(t *testing.T) {
	h := History{TeamMembers: []string{"a", "b", "c", "d", "e", "f"}}
	r := h.Recent()
	assert.Equal(t, []string{"c", "d", "e", "f"}, r.TeamMembers)
	assert.Empty(t, r.Openers)
}

func TestSubscriptionLifecycleHelpers(t *testing.T) {
	sub := NewSubscription("u1", CampaignTypeWeeklyCoaching, "UTC")
	assert.True(t, sub.IsActive)
	assert.Equal(t, 1, sub.NextWeek())
	assert.False(t, sub.Completed())

	sub.WeekCount = TotalWeeks
	assert.True(t, sub.Completed())

	c := sub.Clone()
	c.History.Openers = append(c.History.Openers, "x")
	assert.Empty(t, sub.History.Openers)
}

func TestErrorTaxonomy(t *testing.T) {
	cfg := &ConfigurationError{UserID: "u1", Err: ErrNoStrengths}
	assert.ErrorIs(t, cfg, ErrNoStrengths)
	assert.False(t, Retryable(cfg))

	nf := &NotFoundError{UserID: "u1", Type: CampaignTypeWeeklyCoaching}
	assert.ErrorIs(t, nf, ErrSubscriptionNotFound)
	assert.False(t, Retryable(nf))

	up := fmt.Errorf("tick: %w", &UpstreamError{Stage: StageDeliver, Err: errors.New("smtp down")})
	assert.True(t, Retryable(up))
	assert.ErrorContains(t, up, "deliver failed: smtp down")
}
