// Package openai generates coaching content with the OpenAI chat completions API.
package openai

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"strengths_manager/internal/domain/content"
	"strengths_manager/internal/domain/strengths"

	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"github.com/sirupsen/logrus"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o"

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(template.New("prompts").
	Funcs(template.FuncMap{"join": strings.Join}).
	ParseFS(promptFS, "prompts/*.tmpl"))

// ErrEmptyResponse means the model returned no content.
var ErrEmptyResponse = errors.New("model returned no content")

// Client implements content.Generator.
type Client struct {
	api    sdk.Client
	model  string
	logger *logrus.Entry
}

var _ content.Generator = (*Client)(nil)

// NewClient creates a generator. Extra options are passed to the SDK, e.g. a base URL in tests.
func NewClient(apiKey, model string, logger *logrus.Entry, opts ...option.RequestOption) *Client {
	if model == "" {
		model = DefaultModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Client{
		api:    sdk.NewClient(opts...),
		model:  model,
		logger: logger,
	}
}

type completion struct {
	system      string
	messages    []sdk.ChatCompletionMessageParamUnion
	maxTokens   int64
	temperature float64
	jsonOutput  bool
}

func (c *Client) complete(ctx context.Context, req completion) (string, error) {
	msgs := make([]sdk.ChatCompletionMessageParamUnion, 0, len(req.messages)+1)
	msgs = append(msgs, sdk.SystemMessage(req.system))
	msgs = append(msgs, req.messages...)

	params := sdk.ChatCompletionNewParams{
		Model:       sdk.ChatModel(c.model),
		Messages:    msgs,
		MaxTokens:   sdk.Int(req.maxTokens),
		Temperature: sdk.Float(req.temperature),
	}
	if req.jsonOutput {
		params.ResponseFormat = sdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			c.logger.WithField("status", apiErr.StatusCode).WithError(err).Warn("OpenAI request failed")
		}
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}
	c.logger.WithFields(logrus.Fields{
		"model":             resp.Model,
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
	}).Debug("OpenAI completion received")
	return resp.Choices[0].Message.Content, nil
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := prompts.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render prompt %s: %w", name, err)
	}
	return buf.String(), nil
}

func (c *Client) completeTemplate(ctx context.Context, tmpl string, data any, req completion) (string, error) {
	prompt, err := render(tmpl, data)
	if err != nil {
		return "", err
	}
	req.messages = []sdk.ChatCompletionMessageParamUnion{sdk.UserMessage(prompt)}
	return c.complete(ctx, req)
}

// WeeklyEmail generates one weekly nudge and validates its shape and length limits.
func (c *Client) WeeklyEmail(ctx context.Context, req content.WeeklyRequest) (*content.WeeklyEmail, error) {
	raw, err := c.completeTemplate(ctx, "weekly_email.tmpl", req, completion{
		system:      "You are an expert CliftonStrengths coach who creates personalized weekly email content. Always respond with valid JSON.",
		maxTokens:   800,
		temperature: 0.7,
		jsonOutput:  true,
	})
	if err != nil {
		return nil, err
	}

	var email content.WeeklyEmail
	if err := json.Unmarshal([]byte(raw), &email); err != nil {
		return nil, fmt.Errorf("%w: %v", content.ErrInvalidContent, err)
	}
	if err := email.Validate(); err != nil {
		return nil, err
	}
	return &email, nil
}

// WelcomeEmail generates the onboarding welcome email. Both strengths are required.
func (c *Client) WelcomeEmail(ctx context.Context, req content.WelcomeRequest) (*content.WelcomeEmail, error) {
	var missing []string
	if req.Strength1 == "" {
		missing = append(missing, "strength_1")
	}
	if req.Strength2 == "" {
		missing = append(missing, "strength_2")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required strengths %s", content.ErrInvalidContent, strings.Join(missing, ", "))
	}

	raw, err := c.completeTemplate(ctx, "welcome_email.tmpl", req, completion{
		system:      "You are an expert onboarding copywriter for a strengths-based leadership SaaS. Always respond in valid JSON as specified.",
		maxTokens:   600,
		temperature: 0.7,
		jsonOutput:  true,
	})
	if err != nil {
		return nil, err
	}

	var email content.WelcomeEmail
	if err := json.Unmarshal([]byte(raw), &email); err != nil {
		return nil, fmt.Errorf("%w: %v", content.ErrInvalidContent, err)
	}
	if err := email.Validate(); err != nil {
		return nil, err
	}
	return &email, nil
}

func (c *Client) TeamInsight(ctx context.Context, managerStrengths []string, team []content.Person) (string, error) {
	all := append([]string{}, managerStrengths...)
	for _, p := range team {
		all = append(all, p.Strengths...)
	}
	data := struct {
		ManagerStrengths []string
		Team             []content.Person
		Distribution     string
	}{managerStrengths, team, strengths.FormatDistribution(strengths.DomainDistribution(all))}

	return c.completeTemplate(ctx, "team_insight.tmpl", data, completion{
		system:      "You are an expert CliftonStrengths coach who provides actionable team development insights.",
		maxTokens:   200,
		temperature: 0.7,
	})
}

func (c *Client) CollaborationInsight(ctx context.Context, a, b content.Person) (string, error) {
	data := struct{ A, B content.Person }{a, b}
	return c.completeTemplate(ctx, "collaboration_insight.tmpl", data, completion{
		system:      "You are an expert CliftonStrengths coach who provides actionable collaboration insights.",
		maxTokens:   300,
		temperature: 0.5,
	})
}

func (c *Client) CoachResponse(ctx context.Context, req content.ChatRequest) (string, error) {
	system, err := render("coach_system.tmpl", req)
	if err != nil {
		return "", err
	}
	msgs := make([]sdk.ChatCompletionMessageParamUnion, 0, len(req.History)+1)
	for _, turn := range req.History {
		if turn.FromUser {
			msgs = append(msgs, sdk.UserMessage(turn.Content))
		} else {
			msgs = append(msgs, sdk.AssistantMessage(turn.Content))
		}
	}
	msgs = append(msgs, sdk.UserMessage(req.Message))

	return c.complete(ctx, completion{
		system:      system,
		messages:    msgs,
		maxTokens:   500,
		temperature: 0.7,
	})
}

func (c *Client) StarterQuestions(ctx context.Context, managerStrengths []string, team []content.Person, recentTopics []string) ([]string, error) {
	data := struct {
		ManagerStrengths []string
		Team             []content.Person
		RecentTopics     []string
	}{managerStrengths, team, recentTopics}

	raw, err := c.completeTemplate(ctx, "starter_questions.tmpl", data, completion{
		system:      "You are an expert at generating context-aware coaching questions.",
		maxTokens:   200,
		temperature: 0.7,
		jsonOutput:  true,
	})
	if err != nil {
		return nil, err
	}
	return c.parseQuestions(raw), nil
}

func (c *Client) FollowUpQuestions(ctx context.Context, answer string, history []content.ChatTurn) ([]string, error) {
	data := struct {
		Answer  string
		History []content.ChatTurn
	}{answer, history}

	raw, err := c.completeTemplate(ctx, "follow_up_questions.tmpl", data, completion{
		system:      "You are an expert at generating follow-up coaching questions.",
		maxTokens:   150,
		temperature: 0.7,
		jsonOutput:  true,
	})
	if err != nil {
		return nil, err
	}
	return c.parseQuestions(raw), nil
}

// parseQuestions accepts a bare JSON array or an object with a "questions" array.
// Anything else yields no questions.
func (c *Client) parseQuestions(raw string) []string {
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		return list
	}
	var wrapped struct {
		Questions []string `json:"questions"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapped); err != nil {
		c.logger.WithError(err).Warn("Could not parse suggested questions")
		return []string{}
	}
	if wrapped.Questions == nil {
		return []string{}
	}
	return wrapped.Questions
}
