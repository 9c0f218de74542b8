package telegram

import (
	"context"
	"errors"
	"fmt"

	"strengths_manager/internal/app"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const msgUnauthorized = "Error: you are not allowed to run this command."

// AdminHandlers serves the admin-only campaign commands.
type AdminHandlers struct {
	ctx             context.Context
	adminService    *app.AdminService
	adminTelegramID int64
	logger          *logrus.Entry
	// async runs long commands off the handler goroutine.
	async func(func())
}

func NewAdminHandlers(ctx context.Context, adminService *app.AdminService, adminTelegramID int64, baseLogger *logrus.Entry) *AdminHandlers {
	return &AdminHandlers{
		ctx:             ctx,
		adminService:    adminService,
		adminTelegramID: adminTelegramID,
		logger:          baseLogger,
		async:           func(f func()) { go f() },
	}
}

// RegisterAdminHandlers registers handlers for admin commands.
func RegisterAdminHandlers(b *telebot.Bot, h *AdminHandlers) {
	b.Handle("/campaign_status", h.CampaignStatus)
	b.Handle("/run_tick", h.RunTick)
}

func (h *AdminHandlers) handlerLogger(c telebot.Context, handler string) *logrus.Entry {
	return h.logger.WithFields(logrus.Fields{
		"handler":   handler,
		"sender_id": c.Sender().ID,
	})
}

func (h *AdminHandlers) CampaignStatus(c telebot.Context) error {
	handlerLogger := h.handlerLogger(c, "/campaign_status")
	handlerLogger.Info("Command received")

	if c.Sender().ID != h.adminTelegramID {
		handlerLogger.Warn("Unauthorized access attempt")
		return c.Send(msgUnauthorized)
	}

	status, err := h.adminService.CampaignStatus(h.ctx, c.Sender().ID)
	if err != nil {
		handlerLogger.WithError(err).Error("Failed to load campaign status")
		return c.Send(fmt.Sprintf("Could not load campaign status: %s", err.Error()))
	}
	handlerLogger.WithField("active", status.Active).Info("Campaign status sent")
	return c.Send(status.String())
}

// RunTick starts a tick in the background. The scheduler's reporter sends the summary when it finishes.
func (h *AdminHandlers) RunTick(c telebot.Context) error {
	handlerLogger := h.handlerLogger(c, "/run_tick")
	handlerLogger.Info("Command received")

	if c.Sender().ID != h.adminTelegramID {
		handlerLogger.Warn("Unauthorized access attempt")
		return c.Send(msgUnauthorized)
	}

	senderID := c.Sender().ID
	h.async(func() {
		err := h.adminService.RunTick(h.ctx, senderID)
		switch {
		case err == nil:
			handlerLogger.Info("Manual campaign tick finished")
		case errors.Is(err, app.ErrTickInProgress):
			handlerLogger.Warn("Manual campaign tick rejected, one is already running")
			if sendErr := c.Send("A campaign tick is already running."); sendErr != nil {
				handlerLogger.WithError(sendErr).Error("Failed to notify admin")
			}
		default:
			handlerLogger.WithError(err).Error("Manual campaign tick failed")
		}
	})
	return c.Send("Campaign tick started. A summary will follow when it finishes.")
}
