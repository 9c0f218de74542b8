package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"sort"
	"sync"

	"strengths_manager/internal/domain/campaign"
	"strengths_manager/internal/domain/content"
	"strengths_manager/internal/domain/mail"
	"strengths_manager/internal/domain/team"
	"strengths_manager/internal/domain/user"
	idb "strengths_manager/internal/infra/database"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newManager(id string, strengths ...string) *user.User {
	return &user.User{
		ID:           id,
		Email:        sql.NullString{String: id + "@example.com", Valid: true},
		FirstName:    sql.NullString{String: "Manager " + id, Valid: true},
		TopStrengths: strengths,
	}
}

type memUsers struct {
	mu    sync.Mutex
	users map[string]*user.User
	err   error
}

func newMemUsers(us ...*user.User) *memUsers {
	m := &memUsers{users: map[string]*user.User{}}
	for _, u := range us {
		m.users[u.ID] = u
	}
	return m
}

func (m *memUsers) GetByID(_ context.Context, id string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, idb.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (m *memUsers) Upsert(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.users[u.ID]; ok {
		u.HasCompletedOnboarding = existing.HasCompletedOnboarding
		u.TopStrengths = existing.TopStrengths
	}
	c := *u
	m.users[u.ID] = &c
	return nil
}

func (m *memUsers) UpdateOnboarding(_ context.Context, id string, completed bool, top []string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, idb.ErrUserNotFound
	}
	u.HasCompletedOnboarding = completed
	u.TopStrengths = top
	c := *u
	return &c, nil
}

type memTeam struct {
	mu      sync.Mutex
	members map[string]*team.Member
	order   []string
	err     error
}

func newMemTeam(ms ...*team.Member) *memTeam {
	t := &memTeam{members: map[string]*team.Member{}}
	for _, m := range ms {
		t.members[m.ID] = m
		t.order = append(t.order, m.ID)
	}
	return t
}

func (t *memTeam) ListByManager(_ context.Context, managerID string) ([]*team.Member, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return nil, t.err
	}
	var out []*team.Member
	for _, id := range t.order {
		if m, ok := t.members[id]; ok && m.ManagerID == managerID {
			c := *m
			out = append(out, &c)
		}
	}
	return out, nil
}

func (t *memTeam) GetByID(_ context.Context, id string) (*team.Member, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m, ok := t.members[id]
	if !ok {
		return nil, idb.ErrTeamMemberNotFound
	}
	c := *m
	return &c, nil
}

func (t *memTeam) Create(_ context.Context, m *team.Member) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	c := *m
	t.members[m.ID] = &c
	t.order = append(t.order, m.ID)
	return nil
}

func (t *memTeam) Update(_ context.Context, m *team.Member) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.members[m.ID]; !ok {
		return idb.ErrTeamMemberNotFound
	}
	c := *m
	t.members[m.ID] = &c
	return nil
}

func (t *memTeam) Delete(_ context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.members[id]; !ok {
		return idb.ErrTeamMemberNotFound
	}
	delete(t.members, id)
	return nil
}

type memSubs struct {
	mu      sync.Mutex
	rows    map[string]*campaign.Subscription
	nextID  int64
	listErr error
	// beforeUpdate runs inside UpdateIfWeekCount before the condition is checked.
	beforeUpdate func()
}

func newMemSubs(subs ...*campaign.Subscription) *memSubs {
	m := &memSubs{rows: map[string]*campaign.Subscription{}}
	for _, s := range subs {
		m.put(s)
	}
	return m
}

func subKey(userID string, t campaign.CampaignType) string { return string(t) + "/" + userID }

func (m *memSubs) put(s *campaign.Subscription) {
	if s.ID == 0 {
		m.nextID++
		s.ID = m.nextID
	}
	m.rows[subKey(s.UserID, s.Type)] = s.Clone()
}

func (m *memSubs) get(userID string, t campaign.CampaignType) *campaign.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[subKey(userID, t)]
	if !ok {
		return nil
	}
	return s.Clone()
}

func (m *memSubs) Find(_ context.Context, userID string, t campaign.CampaignType) (*campaign.Subscription, error) {
	if s := m.get(userID, t); s != nil {
		return s, nil
	}
	return nil, campaign.ErrSubscriptionNotFound
}

func (m *memSubs) Upsert(_ context.Context, s *campaign.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.rows[subKey(s.UserID, s.Type)]; ok {
		s.ID = existing.ID
	}
	m.put(s)
	return nil
}

func (m *memSubs) ListActive(_ context.Context, t campaign.CampaignType) ([]*campaign.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*campaign.Subscription
	for _, s := range m.rows {
		if s.Type == t && s.IsActive {
			out = append(out, s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *memSubs) UpdateIfWeekCount(_ context.Context, s *campaign.Subscription, expected int) error {
	if m.beforeUpdate != nil {
		m.beforeUpdate()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rows[subKey(s.UserID, s.Type)]
	if !ok || !cur.IsActive || cur.WeekCount != expected {
		return campaign.ErrSubscriptionNotFound
	}
	m.put(s)
	return nil
}

func (m *memSubs) Deactivate(_ context.Context, userID string, t campaign.CampaignType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rows[subKey(userID, t)]
	if !ok {
		return campaign.ErrSubscriptionNotFound
	}
	cur.IsActive = false
	return nil
}

type memLogs struct {
	mu      sync.Mutex
	entries []*campaign.EmailLog
}

func (m *memLogs) Create(_ context.Context, e *campaign.EmailLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *e
	m.entries = append(m.entries, &c)
	return nil
}

func (m *memLogs) ListByUser(_ context.Context, userID string, limit int) ([]*campaign.EmailLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*campaign.EmailLog
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].UserID == userID {
			out = append(out, m.entries[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memLogs) byStatus(status campaign.DeliveryStatus) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.Status == status {
			n++
		}
	}
	return n
}

// fakeGenerator returns canned content and records requests.
type fakeGenerator struct {
	mu       sync.Mutex
	requests []content.WeeklyRequest
	failFor  map[string]bool // manager names that fail
	weekly   func(req content.WeeklyRequest, call int) *content.WeeklyEmail

	welcome    *content.WelcomeEmail
	welcomeErr error
	insight    string
	insightErr error
	questions  []string
	lastChat   content.ChatRequest
	lastTeam   []content.Person
	lastPair   [2]content.Person
}

func (g *fakeGenerator) WeeklyEmail(_ context.Context, req content.WeeklyRequest) (*content.WeeklyEmail, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.failFor[req.ManagerName] {
		return nil, fmt.Errorf("model unavailable")
	}
	if g.weekly != nil {
		return g.weekly(req, len(g.requests)), nil
	}
	return &content.WeeklyEmail{
		SubjectLine:      "Sharpen your " + req.FeaturedStrength,
		PreHeader:        "Try the two-minute priority reset technique",
		Header:           fmt.Sprintf("Week %d: %s week", req.WeekNumber, req.FeaturedStrength),
		PersonalInsight:  "Time to upgrade your " + req.FeaturedStrength + ".",
		TechniqueName:    "Priority Reset",
		TechniqueContent: "Name the one outcome that matters today.",
		TeamSection:      "This week: " + req.FeaturedTeamMember,
		Quote:            "Focus is saying no.",
		QuoteAuthor:      "Steve Jobs",
	}, nil
}

func (g *fakeGenerator) requestCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

func (g *fakeGenerator) WelcomeEmail(_ context.Context, _ content.WelcomeRequest) (*content.WelcomeEmail, error) {
	if g.welcomeErr != nil {
		return nil, g.welcomeErr
	}
	if g.welcome != nil {
		return g.welcome, nil
	}
	return &content.WelcomeEmail{Subject: "Welcome aboard", Greeting: "Hi there"}, nil
}

func (g *fakeGenerator) TeamInsight(_ context.Context, _ []string, team []content.Person) (string, error) {
	g.lastTeam = team
	return g.insight, g.insightErr
}

func (g *fakeGenerator) CollaborationInsight(_ context.Context, a, b content.Person) (string, error) {
	g.lastPair = [2]content.Person{a, b}
	return g.insight, g.insightErr
}

func (g *fakeGenerator) CoachResponse(_ context.Context, req content.ChatRequest) (string, error) {
	g.lastChat = req
	return g.insight, g.insightErr
}

func (g *fakeGenerator) StarterQuestions(_ context.Context, _ []string, _ []content.Person, _ []string) ([]string, error) {
	return g.questions, g.insightErr
}

func (g *fakeGenerator) FollowUpQuestions(_ context.Context, _ string, _ []content.ChatTurn) ([]string, error) {
	return g.questions, g.insightErr
}

type fakeSender struct {
	mu      sync.Mutex
	sent    []mail.Message
	failFor map[string]bool // recipient addresses that fail
}

func (s *fakeSender) Send(_ context.Context, msg mail.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor[msg.To] {
		return "", fmt.Errorf("provider rejected %s", msg.To)
	}
	s.sent = append(s.sent, msg)
	return fmt.Sprintf("msg-%d", len(s.sent)), nil
}

func (s *fakeSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type fakeRenderer struct{}

func (fakeRenderer) RenderWeekly(b *campaign.ContentBrief, e *content.WeeklyEmail) (string, error) {
	return fmt.Sprintf("<p>%s</p><p>%s</p>", e.Header, b.FeaturedMember), nil
}

func (fakeRenderer) RenderWelcome(v mail.WelcomeView) (string, error) {
	if v.Content == nil {
		return "<p>Welcome " + v.FirstName + "</p>", nil
	}
	return fmt.Sprintf("<p>%s %s</p><p>%s</p>", v.Content.Greeting, v.FirstName, v.NextMonday), nil
}

func (m *memSubs) CountActiveByWeek(_ context.Context, t campaign.CampaignType) (map[int]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	counts := map[int]int{}
	for _, s := range m.rows {
		if s.Type == t && s.IsActive {
			counts[s.WeekCount]++
		}
	}
	return counts, nil
}
