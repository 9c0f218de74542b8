package httpapi

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"strengths_manager/internal/domain/user"
	"strengths_manager/internal/infra/config"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// Provider holds the OAuth endpoints of the configured identity provider.
type Provider struct {
	Name        string
	OAuth       *oauth2.Config
	UserInfoURL string
	LogoutURL   string // Empty when the provider has no end-session endpoint
}

// NewProvider derives endpoints from OIDC_ISSUER for Auth0 or Replit.
func NewProvider(cfg *config.AppConfig) *Provider {
	issuer := strings.TrimRight(cfg.OIDCIssuer, "/")
	p := &Provider{
		Name: cfg.OIDCProvider,
		OAuth: &oauth2.Config{
			ClientID:     cfg.OIDCClientID,
			ClientSecret: cfg.OIDCClientSecret,
			RedirectURL:  cfg.OIDCRedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
		},
	}
	if p.OAuth.RedirectURL == "" {
		p.OAuth.RedirectURL = cfg.AppBaseURL + "/api/callback"
	}

	switch cfg.OIDCProvider {
	case config.OIDCProviderReplit:
		p.OAuth.Endpoint = oauth2.Endpoint{AuthURL: issuer + "/auth", TokenURL: issuer + "/token"}
		p.OAuth.Scopes = append(p.OAuth.Scopes, "offline_access")
		p.UserInfoURL = issuer + "/me"
		p.LogoutURL = issuer + "/session/end?" + url.Values{
			"client_id":                {cfg.OIDCClientID},
			"post_logout_redirect_uri": {cfg.AppBaseURL},
		}.Encode()
	default:
		p.OAuth.Endpoint = oauth2.Endpoint{AuthURL: issuer + "/authorize", TokenURL: issuer + "/oauth/token"}
		p.UserInfoURL = issuer + "/userinfo"
		p.LogoutURL = issuer + "/v2/logout?" + url.Values{
			"client_id": {cfg.OIDCClientID},
			"returnTo":  {cfg.AppBaseURL},
		}.Encode()
	}
	return p
}

// userInfo accepts both the standard OIDC claim names and Replit's.
type userInfo struct {
	Sub             string `json:"sub"`
	Email           string `json:"email"`
	GivenName       string `json:"given_name"`
	FamilyName      string `json:"family_name"`
	Picture         string `json:"picture"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	ProfileImageURL string `json:"profile_image_url"`
}

func (i userInfo) toUser() *user.User {
	return &user.User{
		ID:              i.Sub,
		Email:           nullString(i.Email),
		FirstName:       nullString(firstNonEmpty(i.FirstName, i.GivenName)),
		LastName:        nullString(firstNonEmpty(i.LastName, i.FamilyName)),
		ProfileImageURL: nullString(firstNonEmpty(i.ProfileImageURL, i.Picture)),
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Authenticator runs the OAuth authorization code flow and keeps the user id in the session.
type Authenticator struct {
	provider *Provider
	users    user.Repository
	store    sessions.Store
	logger   *logrus.Entry
}

func NewAuthenticator(provider *Provider, users user.Repository, store sessions.Store, logger *logrus.Entry) *Authenticator {
	return &Authenticator{provider: provider, users: users, store: store, logger: logger}
}

func (a *Authenticator) Login(w http.ResponseWriter, r *http.Request) {
	sess, _ := a.store.Get(r, sessionName)
	state := uuid.NewString()
	sess.Values[sessionState] = state
	if err := sess.Save(r, w); err != nil {
		writeError(w, a.logger, fmt.Errorf("failed to save session: %w", err))
		return
	}
	http.Redirect(w, r, a.provider.OAuth.AuthCodeURL(state), http.StatusFound)
}

func (a *Authenticator) Callback(w http.ResponseWriter, r *http.Request) {
	log := a.logger.WithField("provider", a.provider.Name)
	sess, _ := a.store.Get(r, sessionName)

	state, _ := sess.Values[sessionState].(string)
	if state == "" || r.URL.Query().Get("state") != state {
		log.Warn("OAuth callback with mismatched state")
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Invalid login state"})
		return
	}
	delete(sess.Values, sessionState)

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		log.WithField("error", errParam).Warn("Identity provider rejected login")
		writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "Login failed"})
		return
	}

	tok, err := a.provider.OAuth.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		log.WithError(err).Warn("OAuth code exchange failed")
		writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "Login failed"})
		return
	}

	info, err := a.fetchUserInfo(r, tok)
	if err != nil {
		log.WithError(err).Error("Failed to fetch user info")
		writeJSON(w, http.StatusBadGateway, errorResponse{Message: "Login failed"})
		return
	}

	u := info.toUser()
	if err := a.users.Upsert(r.Context(), u); err != nil {
		writeError(w, log, fmt.Errorf("failed to upsert user %s: %w", u.ID, err))
		return
	}

	sess.Values[sessionUserID] = u.ID
	if err := sess.Save(r, w); err != nil {
		writeError(w, log, fmt.Errorf("failed to save session: %w", err))
		return
	}
	log.WithField("user_id", u.ID).Info("User logged in")
	http.Redirect(w, r, "/", http.StatusFound)
}

func (a *Authenticator) fetchUserInfo(r *http.Request, tok *oauth2.Token) (*userInfo, error) {
	resp, err := a.provider.OAuth.Client(r.Context(), tok).Get(a.provider.UserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("userinfo request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned HTTP %d", resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	if info.Sub == "" {
		return nil, fmt.Errorf("userinfo has no subject")
	}
	return &info, nil
}

func (a *Authenticator) Logout(w http.ResponseWriter, r *http.Request) {
	sess, _ := a.store.Get(r, sessionName)
	sess.Values = map[interface{}]interface{}{}
	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		a.logger.WithError(err).Warn("Failed to clear session")
	}

	target := a.provider.LogoutURL
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusFound)
}
