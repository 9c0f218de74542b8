package main

import (
	"context"
	"database/sql"
	"fmt"

	"strengths_manager/internal/app"
	"strengths_manager/internal/infra/config"
	idb "strengths_manager/internal/infra/database"
	"strengths_manager/internal/infra/email"
	"strengths_manager/internal/infra/logger"
	"strengths_manager/internal/infra/openai"

	"github.com/sirupsen/logrus"
)

// components are the services shared by serve and tick.
type components struct {
	cfg        *config.AppConfig
	db         *sql.DB
	users      *idb.PostgresUserRepository
	team       *idb.PostgresTeamRepository
	subs       *idb.PostgresSubscriptionRepository
	logs       *idb.PostgresEmailLogRepository
	renderer   *email.Renderer
	generator  *openai.Client
	engine     *app.CampaignEngine
	onboarding *app.OnboardingService
	teamSvc    *app.TeamService
	coaching   *app.CoachingService
}

func build(ctx context.Context) (*components, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("could not load application configuration: %w", err)
	}
	logger.Init(cfg)
	logger.Log.WithFields(logrus.Fields{
		"environment":    cfg.Environment,
		"email_provider": cfg.EmailProvider,
		"oidc_provider":  cfg.OIDCProvider,
		"admin_bot":      cfg.TelegramToken != "",
	}).Info("Configuration loaded")

	if cfg.OpenAIAPIKey == "" {
		logger.Log.Warn("OPENAI_API_KEY is not set, content generation will fail")
	}

	db, err := idb.NewPostgresConnection(ctx, cfg.DatabaseURL, logger.Component("database"))
	if err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}
	if err := idb.ApplySchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	logger.Log.Info("Database connection established successfully.")

	sender, err := email.NewSender(cfg, logger.Component("email"))
	if err != nil {
		db.Close()
		return nil, err
	}

	c := &components{
		cfg:       cfg,
		db:        db,
		users:     idb.NewPostgresUserRepository(db),
		team:      idb.NewPostgresTeamRepository(db),
		subs:      idb.NewPostgresSubscriptionRepository(db),
		logs:      idb.NewPostgresEmailLogRepository(db),
		renderer:  email.NewRenderer(cfg.AppBaseURL),
		generator: openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, logger.Component("openai")),
	}

	c.engine = app.NewCampaignEngine(c.users, c.team, c.subs, c.logs, c.generator, sender, c.renderer,
		logger.Component("campaign_engine"), app.EngineConfig{
			Concurrency:        cfg.TickConcurrency,
			GenerationTimeout:  cfg.GenerationTimeout,
			RegenerateOnRepeat: cfg.RegenerateOnRepeat,
		})
	c.onboarding = app.NewOnboardingService(c.users, c.subs, c.logs, c.generator, sender, c.renderer,
		logger.Component("onboarding"), cfg.GenerationTimeout)
	c.teamSvc = app.NewTeamService(c.team, logger.Component("team"))
	c.coaching = app.NewCoachingService(c.users, c.team, c.generator, logger.Component("coaching"), cfg.GenerationTimeout)
	return c, nil
}
