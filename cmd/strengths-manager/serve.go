package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"strengths_manager/internal/app"
	"strengths_manager/internal/infra/httpapi"
	"strengths_manager/internal/infra/logger"
	"strengths_manager/internal/infra/scheduler"
	"strengths_manager/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/telebot.v3"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the API, run the weekly scheduler and the optional admin bot",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	c, err := build(cmd.Context())
	if err != nil {
		return err
	}
	defer c.db.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var reporters []scheduler.TickReporter
	var bot *telebot.Bot
	if c.cfg.TelegramToken != "" {
		bot, err = newBot(c.cfg.TelegramToken)
		if err != nil {
			return fmt.Errorf("could not create Telegram bot: %w", err)
		}
		reporters = append(reporters, telegram.NewAdminTickReporter(
			telegram.NewTelebotAdapter(bot), c.cfg.AdminTelegramID, logger.Component("telegram")))
	}

	campaignScheduler := scheduler.NewCampaignScheduler(c.engine, logger.Component("scheduler"),
		c.cfg.CronSpecWeekly, c.cfg.TickTimeout, reporters...)
	if err := campaignScheduler.Start(); err != nil {
		return err
	}
	defer campaignScheduler.Stop()

	if bot != nil {
		botLogger := logger.Component("telegram")
		adminService := app.NewAdminService(c.subs, campaignScheduler, c.cfg.AdminTelegramID)
		telegram.RegisterAdminHandlers(bot, telegram.NewAdminHandlers(ctx, adminService, c.cfg.AdminTelegramID, botLogger))
		telegram.RegisterBotCommands(bot, telegram.NewBotCommands(c.cfg.AdminTelegramID, botLogger))
		go bot.Start()
		defer bot.Stop()
		logger.Log.Info("Admin bot started")
	}

	store := httpapi.NewSessionStore(c.cfg.SessionSecret, c.cfg.IsProduction())
	var auth *httpapi.Authenticator
	if c.cfg.OIDCEnabled() {
		auth = httpapi.NewAuthenticator(httpapi.NewProvider(c.cfg), c.users, store, logger.Component("auth"))
	} else {
		logger.Log.Warn("OIDC is not configured, login is disabled")
	}
	server := httpapi.NewServer(httpapi.Deps{
		Users:         c.users,
		Subscriptions: c.subs,
		Onboarding:    c.onboarding,
		Team:          c.teamSvc,
		Coaching:      c.coaching,
		Auth:          auth,
		Store:         store,
		Ping:          c.db.PingContext,
		Logger:        logger.Component("http"),
	})
	httpServer := &http.Server{
		Addr:              c.cfg.HTTPAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.WithField("addr", c.cfg.HTTPAddr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Log.Info("Shutting down application...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Warn("HTTP server did not shut down cleanly")
	}
	logger.Log.Info("Application shut down gracefully.")
	return nil
}

func newBot(token string) (*telebot.Bot, error) {
	botLogger := logger.Component("telebot")
	return telebot.NewBot(telebot.Settings{
		Token:  token,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) { // Global error handler
			entry := botLogger.WithError(err)
			if c != nil && c.Sender() != nil && c.Chat() != nil {
				entry = entry.WithFields(logrus.Fields{
					"text":      c.Text(),
					"sender_id": c.Sender().ID,
					"chat_id":   c.Chat().ID,
				})
			}
			entry.Error("Telegram bot error")
		},
	})
}
