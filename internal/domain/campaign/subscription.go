// internal/domain/campaign/subscription.go
package campaign

import (
	"database/sql"
	"time"
)

// Subscription is one user's enrollment in one campaign type.
// Corresponds to the 'email_subscriptions' table; unique on (user_id, email_type).
type Subscription struct {
	ID         int64
	UserID     string
	Type       CampaignType
	IsActive   bool
	WeekCount  int    // Weeks successfully sent, 0..TotalWeeks
	Timezone   string // Only used to pick a delivery time
	History    History
	LastSentAt sql.NullTime
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewSubscription returns an active subscription at week zero.
func NewSubscription(userID string, t CampaignType, timezone string) *Subscription {
	return &Subscription{
		UserID:   userID,
		Type:     t,
		IsActive: true,
		Timezone: timezone,
	}
}

// Completed reports whether every week of the campaign has been sent.
func (s *Subscription) Completed() bool {
	return s.WeekCount >= TotalWeeks
}

// NextWeek is the 1-indexed number of the week about to be sent.
func (s *Subscription) NextWeek() int {
	return s.WeekCount + 1
}

// Clone returns a deep copy so callers can mutate it without touching the original.
func (s *Subscription) Clone() *Subscription {
	c := *s
	c.History = s.History.Clone()
	return &c
}

// History is the rotation memory used to steer content away from recent repeats.
// Every field is chronological and holds at most HistoryWindow entries.
type History struct {
	Openers         []string
	PersonalTips    []string
	TeamMembers     []string
	SubjectPatterns []string
	QuoteSources    []string
}

// Clone returns a deep copy of h.
func (h History) Clone() History {
	return History{
		Openers:         clone(h.Openers),
		PersonalTips:    clone(h.PersonalTips),
		TeamMembers:     clone(h.TeamMembers),
		SubjectPatterns: clone(h.SubjectPatterns),
		QuoteSources:    clone(h.QuoteSources),
	}
}

// Recent returns a copy of h trimmed to the last HistoryWindow entries of each field.
func (h History) Recent() History {
	return History{
		Openers:         lastN(h.Openers, HistoryWindow),
		PersonalTips:    lastN(h.PersonalTips, HistoryWindow),
		TeamMembers:     lastN(h.TeamMembers, HistoryWindow),
		SubjectPatterns: lastN(h.SubjectPatterns, HistoryWindow),
		QuoteSources:    lastN(h.QuoteSources, HistoryWindow),
	}
}

// Tags is one week's worth of history entries.
type Tags struct {
	Opener         string
	PersonalTip    string
	TeamMember     string
	SubjectPattern string
	QuoteSource    string
}

// Push appends one week's tags and drops the oldest entries beyond HistoryWindow.
func (h History) Push(t Tags) History {
	return History{
		Openers:         push(h.Openers, t.Opener),
		PersonalTips:    push(h.PersonalTips, t.PersonalTip),
		TeamMembers:     push(h.TeamMembers, t.TeamMember),
		SubjectPatterns: push(h.SubjectPatterns, t.SubjectPattern),
		QuoteSources:    push(h.QuoteSources, t.QuoteSource),
	}
}

func push(window []string, tag string) []string {
	out := make([]string, 0, len(window)+1)
	out = append(out, window...)
	out = append(out, tag)
	return lastN(out, HistoryWindow)
}

func lastN(s []string, n int) []string {
	if len(s) > n {
		s = s[len(s)-n:]
	}
	return clone(s)
}

func clone(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
