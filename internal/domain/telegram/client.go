package telegram

import "gopkg.in/telebot.v3"

// Client sends messages to a Telegram chat.
// It keeps application code independent of the bot library's Bot type.
type Client interface {
	SendMessage(chatID int64, text string, options *telebot.SendOptions) error
}
