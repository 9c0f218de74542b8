// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// BotCommands answers /start and /help. Only the admin gets a command list.
type BotCommands struct {
	adminTelegramID int64
	logger          *logrus.Entry
}

func NewBotCommands(adminTelegramID int64, baseLogger *logrus.Entry) *BotCommands {
	return &BotCommands{adminTelegramID: adminTelegramID, logger: baseLogger.WithField("handler_group", "start_help")}
}

func RegisterBotCommands(b *telebot.Bot, h *BotCommands) {
	b.Handle("/start", h.Start)
	b.Handle("/help", h.Help)
}

func (h *BotCommands) Start(c telebot.Context) error {
	senderID := c.Sender().ID
	logCtx := h.logger.WithField("command", "/start").WithField("sender_id", senderID)
	logCtx.Info("Processing /start command")

	if senderID == h.adminTelegramID {
		logCtx.Info("User identified as Admin")
		return c.Send(fmt.Sprintf("Hi %s! Campaign monitoring is on. Use /help for the command list.", c.Sender().FirstName))
	}

	logCtx.Info("User is unknown")
	return c.Send("Hi! This bot only reports to the Strengths Manager administrator.")
}

func (h *BotCommands) Help(c telebot.Context) error {
	senderID := c.Sender().ID
	logCtx := h.logger.WithField("command", "/help").WithField("sender_id", senderID)
	logCtx.Info("Processing /help command")

	if senderID != h.adminTelegramID {
		logCtx.Info("User is unknown, sending restricted help.")
		return c.Send("There are no commands available to you.")
	}

	var helpText strings.Builder
	helpText.WriteString("Admin commands:\n\n")
	helpText.WriteString("`/campaign_status`\n - Active weekly coaching subscriptions by week.\n\n")
	helpText.WriteString("`/run_tick`\n - Run a campaign tick now. A summary follows when it finishes.\n\n")
	helpText.WriteString("`/help`\n - Show this message.")
	return c.Send(helpText.String(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
}
