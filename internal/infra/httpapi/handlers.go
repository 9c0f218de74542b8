package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"strengths_manager/internal/domain/campaign"
	"strengths_manager/internal/domain/content"
	"strengths_manager/internal/domain/team"
	"strengths_manager/internal/domain/user"

	"github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

type userResponse struct {
	ID                     string    `json:"id"`
	Email                  *string   `json:"email"`
	FirstName              *string   `json:"firstName"`
	LastName               *string   `json:"lastName"`
	ProfileImageURL        *string   `json:"profileImageUrl"`
	HasCompletedOnboarding bool      `json:"hasCompletedOnboarding"`
	TopStrengths           []string  `json:"topStrengths"`
	CreatedAt              time.Time `json:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

func newUserResponse(u *user.User) userResponse {
	opt := func(v string, valid bool) *string {
		if !valid {
			return nil
		}
		return &v
	}
	top := u.TopStrengths
	if top == nil {
		top = []string{}
	}
	return userResponse{
		ID:                     u.ID,
		Email:                  opt(u.Email.String, u.Email.Valid),
		FirstName:              opt(u.FirstName.String, u.FirstName.Valid),
		LastName:               opt(u.LastName.String, u.LastName.Valid),
		ProfileImageURL:        opt(u.ProfileImageURL.String, u.ProfileImageURL.Valid),
		HasCompletedOnboarding: u.HasCompletedOnboarding,
		TopStrengths:           top,
		CreatedAt:              u.CreatedAt,
		UpdatedAt:              u.UpdatedAt,
	}
}

type memberResponse struct {
	ID        string    `json:"id"`
	ManagerID string    `json:"managerId"`
	Name      string    `json:"name"`
	Strengths []string  `json:"strengths"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newMemberResponse(m *team.Member) memberResponse {
	return memberResponse{
		ID:        m.ID,
		ManagerID: m.ManagerID,
		Name:      m.Name,
		Strengths: m.Strengths,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

type onboardingRequest struct {
	TopStrengths []string `json:"topStrengths"`
	Timezone     string   `json:"timezone"`
}

type memberRequest struct {
	Name      string   `json:"name"`
	Strengths []string `json:"strengths"`
}

type collaborationRequest struct {
	Member1 string `json:"member1"`
	Member2 string `json:"member2"`
}

type chatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

type chatRequest struct {
	Mode    content.ChatMode `json:"mode"`
	Message string           `json:"message"`
	History []chatMessage    `json:"history"`
}

type chatResponse struct {
	Response          string   `json:"response"`
	FollowUpQuestions []string `json:"followUpQuestions"`
}

type insightResponse struct {
	Insight string `json:"insight"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// decode reads a JSON body. It writes a 400 and returns false on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Invalid request body", Error: err.Error()})
		return false
	}
	return true
}

func (s *Server) log(r *http.Request) *logrus.Entry {
	return s.Logger.WithField("user_id", userIDFrom(r.Context()))
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.Users.GetByID(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, s.log(r), err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(u))
}

func (s *Server) completeOnboarding(w http.ResponseWriter, r *http.Request) {
	var req onboardingRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := s.Onboarding.CompleteOnboarding(r.Context(), userIDFrom(r.Context()), req.TopStrengths, req.Timezone)
	if err != nil {
		writeError(w, s.log(r), err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(u))
}

func (s *Server) listTeamMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.Team.ListMembers(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, s.log(r), err)
		return
	}
	out := make([]memberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, newMemberResponse(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createTeamMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if !decode(w, r, &req) {
		return
	}
	m, err := s.Team.AddMember(r.Context(), userIDFrom(r.Context()), req.Name, req.Strengths)
	if err != nil {
		writeError(w, s.log(r), err)
		return
	}
	writeJSON(w, http.StatusOK, newMemberResponse(m))
}

func (s *Server) updateTeamMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if !decode(w, r, &req) {
		return
	}
	m, err := s.Team.UpdateMember(r.Context(), userIDFrom(r.Context()), r.PathValue("id"), req.Name, req.Strengths)
	if err != nil {
		writeError(w, s.log(r), err)
		return
	}
	writeJSON(w, http.StatusOK, newMemberResponse(m))
}

func (s *Server) deleteTeamMember(w http.ResponseWriter, r *http.Request) {
	if err := s.Team.RemoveMember(r.Context(), userIDFrom(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, s.log(r), err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Team member deleted successfully"})
}

func (s *Server) generateTeamInsight(w http.ResponseWriter, r *http.Request) {
	insight, err := s.Coaching.TeamInsight(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeError(w, s.log(r), err)
		return
	}
	writeJSON(w, http.StatusOK, insightResponse{Insight: insight})
}

func (s *Server) generateCollaborationInsight(w http.ResponseWriter, r *http.Request) {
	var req collaborationRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Member1 == "" || req.Member2 == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Both members must be specified"})
		return
	}
	insight, err := s.Coaching.CollaborationInsight(r.Context(), userIDFrom(r.Context()), req.Member1, req.Member2)
	if err != nil {
		writeError(w, s.log(r), err)
		return
	}
	writeJSON(w, http.StatusOK, insightResponse{Insight: insight})
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decode(w, r, &req) {
		return
	}
	history := make([]content.ChatTurn, 0, len(req.History))
	for _, m := range req.History {
		history = append(history, content.ChatTurn{FromUser: m.Role == "user", Content: m.Content})
	}

	answer, err := s.Coaching.Chat(r.Context(), userIDFrom(r.Context()), req.Mode, req.Message, history)
	if err != nil {
		writeError(w, s.log(r), err)
		return
	}

	history = append(history, content.ChatTurn{FromUser: true, Content: req.Message})
	followUps, err := s.Coaching.FollowUpQuestions(r.Context(), answer, history)
	if err != nil {
		s.log(r).WithError(err).Warn("Failed to generate follow-up questions")
		followUps = []string{}
	}
	writeJSON(w, http.StatusOK, chatResponse{Response: answer, FollowUpQuestions: followUps})
}

func (s *Server) starterQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := s.Coaching.StarterQuestions(r.Context(), userIDFrom(r.Context()), r.URL.Query()["topic"])
	if err != nil {
		writeError(w, s.log(r), err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Questions []string `json:"questions"`
	}{questions})
}

// unsubscribe stops the weekly coaching campaign. The token is the user id from the email link.
func (s *Server) unsubscribe(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Missing unsubscribe token"})
		return
	}
	log := s.Logger.WithField("user_id", token)
	if err := s.Subscriptions.Deactivate(r.Context(), token, campaign.CampaignTypeWeeklyCoaching); err != nil {
		if errors.Is(err, campaign.ErrSubscriptionNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Message: "Subscription not found"})
			return
		}
		writeError(w, log, fmt.Errorf("failed to unsubscribe: %w", err))
		return
	}
	log.Info("User unsubscribed from weekly coaching")
	writeJSON(w, http.StatusOK, messageResponse{Message: "You have been unsubscribed from weekly coaching emails."})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.Ping != nil {
		if err := s.Ping(r.Context()); err != nil {
			s.Logger.WithError(err).Warn("Health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
