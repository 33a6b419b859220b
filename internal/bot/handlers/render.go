package handlers

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/quantfx/pricewatch-bot/internal/bot/keyboard"
	"github.com/quantfx/pricewatch-bot/internal/engine"
)

// Renderer turns engine results into outbound Telegram messages.
type Renderer struct {
	kb  *keyboard.Builder
	log *slog.Logger
}

// NewRenderer builds a Renderer.
func NewRenderer(kb *keyboard.Builder, log *slog.Logger) *Renderer {
	if log == nil {
		log = slog.Default()
	}
	return &Renderer{kb: kb, log: log}
}

// Render sends every reply in res to the update's chat. The first send
// failure aborts the rest.
func (r *Renderer) Render(c telebot.Context, res engine.Result) error {
	for _, reply := range res.Replies {
		if markup := r.kb.FromEngine(reply.Keyboard); markup != nil {
			if err := c.Send(reply.Text, markup); err != nil {
				return err
			}
			continue
		}

		if err := c.Send(reply.Text); err != nil {
			return err
		}
	}

	return nil
}

// RenderCallback acknowledges the button press and then delivers the
// replies. A rejected callback carries its reason as the toast text.
func (r *Renderer) RenderCallback(c telebot.Context, res engine.Result) error {
	if err := c.Respond(&telebot.CallbackResponse{Text: res.Answer}); err != nil {
		r.log.Warn("callback response failed", slog.Any("error", err))
	}

	return r.Render(c, res)
}
