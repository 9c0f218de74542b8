package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"

	"strengths_manager/internal/domain/campaign"
	"strengths_manager/internal/domain/content"
	"strengths_manager/internal/domain/mail"
)

//go:embed tmpl/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "tmpl/*.tmpl"))

// Renderer builds HTML email bodies. Links point at baseURL.
type Renderer struct {
	baseURL string
}

func NewRenderer(baseURL string) *Renderer {
	return &Renderer{baseURL: baseURL}
}

// DashboardURL is where every email's call to action leads.
func (r *Renderer) DashboardURL() string {
	return r.baseURL + "/dashboard"
}

// UnsubscribeURL carries the user id as the unsubscribe token.
func (r *Renderer) UnsubscribeURL(userID string) string {
	return r.baseURL + "/api/unsubscribe?token=" + url.QueryEscape(userID)
}

type links struct {
	DashboardURL   string
	UnsubscribeURL string
}

func (r *Renderer) links(userID string) links {
	return links{DashboardURL: r.DashboardURL(), UnsubscribeURL: r.UnsubscribeURL(userID)}
}

func (r *Renderer) RenderWeekly(brief *campaign.ContentBrief, email *content.WeeklyEmail) (string, error) {
	data := struct {
		links
		Brief      *campaign.ContentBrief
		Email      *content.WeeklyEmail
		TotalWeeks int
	}{r.links(brief.UserID), brief, email, campaign.TotalWeeks}
	return execute("weekly", data)
}

// RenderWelcome uses the generated content when present and the static welcome otherwise.
func (r *Renderer) RenderWelcome(v mail.WelcomeView) (string, error) {
	firstName := v.FirstName
	if firstName == "" {
		firstName = "there"
	}
	data := struct {
		links
		View      mail.WelcomeView
		Content   *content.WelcomeEmail
		FirstName string
	}{r.links(v.UserID), v, v.Content, firstName}

	if v.Content == nil {
		return execute("welcome_static", data)
	}
	return execute("welcome", data)
}

func execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s email: %w", name, err)
	}
	return buf.String(), nil
}
