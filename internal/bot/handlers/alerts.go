package handlers

import (
	telebot "gopkg.in/telebot.v3"

	"github.com/quantfx/pricewatch-bot/internal/engine"
)

// NewAlertsHandler builds the /alerts handler listing the sender's saved
// alerts of both kinds.
func NewAlertsHandler(eng *engine.Engine, render *Renderer) Handler {
	return func(c telebot.Context) error {
		sender := c.Sender()
		if sender == nil {
			return nil
		}

		return render.Render(c, eng.ListAlerts(sender.ID))
	}
}
