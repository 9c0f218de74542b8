// internal/infra/telegram/client.go
package telegram

import (
	"strings"
	"unicode/utf8"

	"gopkg.in/telebot.v3"
)

// maxMessageLength is Telegram's limit for a single text message, in characters.
const maxMessageLength = 4096

// TelebotAdapter delivers admin messages through gopkg.in/telebot.v3.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// SendMessage sends text to chatID, split into several messages when it exceeds Telegram's limit.
func (tba *TelebotAdapter) SendMessage(chatID int64, text string, options *telebot.SendOptions) error {
	if options == nil {
		options = &telebot.SendOptions{}
	}
	for _, part := range splitMessage(text, maxMessageLength) {
		if _, err := tba.bot.Send(telebot.ChatID(chatID), part, options); err != nil {
			return err
		}
	}
	return nil
}

// splitMessage cuts text into parts of at most limit runes, preferring line boundaries.
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	var parts []string
	var current strings.Builder
	n := 0
	flush := func() {
		if current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
			n = 0
		}
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		runes := []rune(line)
		if n+len(runes) > limit {
			flush()
		}
		for len(runes) > limit {
			parts = append(parts, string(runes[:limit]))
			runes = runes[limit:]
		}
		current.WriteString(string(runes))
		n += len(runes)
	}
	flush()
	return parts
}
