package handlers

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/quantfx/pricewatch-bot/internal/bot/keyboard"
)

// NewStartHandler builds the /start handler showing the main menu.
func NewStartHandler(kb *keyboard.Builder, log *slog.Logger) Handler {
	return func(c telebot.Context) error {
		if c.Sender() == nil {
			if log != nil {
				log.Warn("start handler invoked without sender")
			}
			return nil
		}

		return c.Send("Hello! Choose an option:", kb.MainMenu())
	}
}
