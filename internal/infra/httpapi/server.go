// Package httpapi serves the JSON API used by the dashboard.
package httpapi

import (
	"context"
	"net/http"

	"strengths_manager/internal/domain/campaign"
	"strengths_manager/internal/domain/content"
	"strengths_manager/internal/domain/team"
	"strengths_manager/internal/domain/user"

	"github.com/gorilla/sessions"
	"github.com/sirupsen/logrus"
)

const (
	sessionName   = "strengths_manager_session"
	sessionUserID = "user_id"
	sessionState  = "oauth_state"
	sessionMaxAge = 7 * 24 * 60 * 60
)

// Onboarding completes a manager's onboarding.
type Onboarding interface {
	CompleteOnboarding(ctx context.Context, userID string, topStrengths []string, timezone string) (*user.User, error)
}

// TeamManager manages a manager's team roster.
type TeamManager interface {
	ListMembers(ctx context.Context, managerID string) ([]*team.Member, error)
	AddMember(ctx context.Context, managerID, name string, memberStrengths []string) (*team.Member, error)
	UpdateMember(ctx context.Context, managerID, memberID, name string, memberStrengths []string) (*team.Member, error)
	RemoveMember(ctx context.Context, managerID, memberID string) error
}

// Coach produces AI insights and chat responses.
type Coach interface {
	TeamInsight(ctx context.Context, userID string) (string, error)
	CollaborationInsight(ctx context.Context, userID, member1, member2 string) (string, error)
	Chat(ctx context.Context, userID string, mode content.ChatMode, message string, history []content.ChatTurn) (string, error)
	StarterQuestions(ctx context.Context, userID string, recentTopics []string) ([]string, error)
	FollowUpQuestions(ctx context.Context, answer string, history []content.ChatTurn) ([]string, error)
}

// Unsubscriber stops a campaign for a user.
type Unsubscriber interface {
	Deactivate(ctx context.Context, userID string, t campaign.CampaignType) error
}

// Deps are the collaborators of the HTTP server. Auth may be nil, which disables login.
type Deps struct {
	Users         user.Repository
	Subscriptions Unsubscriber
	Onboarding    Onboarding
	Team          TeamManager
	Coaching      Coach
	Auth          *Authenticator
	Store         sessions.Store
	Ping          func(ctx context.Context) error
	Logger        *logrus.Entry
}

type Server struct {
	Deps
	mux *http.ServeMux
}

func NewServer(d Deps) *Server {
	s := &Server{Deps: d, mux: http.NewServeMux()}
	s.routes()
	return s
}

// NewSessionStore returns the cookie store for login sessions.
func NewSessionStore(secret string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

func (s *Server) routes() {
	if s.Auth != nil {
		s.mux.HandleFunc("GET /api/login", s.Auth.Login)
		s.mux.HandleFunc("GET /api/callback", s.Auth.Callback)
		s.mux.HandleFunc("GET /api/logout", s.Auth.Logout)
	} else {
		s.mux.HandleFunc("GET /api/login", s.loginDisabled)
	}

	s.mux.HandleFunc("GET /api/auth/user", s.requireUser(s.getUser))
	s.mux.HandleFunc("POST /api/onboarding", s.requireUser(s.completeOnboarding))

	s.mux.HandleFunc("GET /api/team-members", s.requireUser(s.listTeamMembers))
	s.mux.HandleFunc("POST /api/team-members", s.requireUser(s.createTeamMember))
	s.mux.HandleFunc("PUT /api/team-members/{id}", s.requireUser(s.updateTeamMember))
	s.mux.HandleFunc("DELETE /api/team-members/{id}", s.requireUser(s.deleteTeamMember))

	s.mux.HandleFunc("POST /api/generate-team-insight", s.requireUser(s.generateTeamInsight))
	s.mux.HandleFunc("POST /api/generate-collaboration-insight", s.requireUser(s.generateCollaborationInsight))
	s.mux.HandleFunc("POST /api/chat", s.requireUser(s.chat))
	s.mux.HandleFunc("GET /api/chat/starter-questions", s.requireUser(s.starterQuestions))

	s.mux.HandleFunc("GET /api/unsubscribe", s.unsubscribe)
	s.mux.HandleFunc("GET /api/system/health", s.health)
}

// Handler returns the API wrapped in request logging.
func (s *Server) Handler() http.Handler {
	return logRequests(s.Logger, s.mux)
}

func (s *Server) loginDisabled(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusServiceUnavailable, errorResponse{Message: "Login is not configured"})
}
