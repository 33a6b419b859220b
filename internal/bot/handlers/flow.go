package handlers

import (
	telebot "gopkg.in/telebot.v3"

	"github.com/quantfx/pricewatch-bot/internal/engine"
	"github.com/quantfx/pricewatch-bot/internal/flow"
)

// NewMenuHandler builds the callback handler for a main-menu button that
// opens a new flow of the given kind.
func NewMenuHandler(eng *engine.Engine, render *Renderer, kind flow.Kind) CallbackHandler {
	return func(c telebot.Context, _, _ string) error {
		sender := c.Sender()
		if sender == nil {
			return nil
		}

		return render.RenderCallback(c, eng.StartFlow(sender.ID, kind))
	}
}

// NewFlowCallbackHandler builds the handler for flow-addressed buttons.
// The action is fixed at registration; flow id and payload arrive decoded
// from the callback data.
func NewFlowCallbackHandler(eng *engine.Engine, render *Renderer, action string) CallbackHandler {
	return func(c telebot.Context, flowID, payload string) error {
		sender := c.Sender()
		if sender == nil {
			return nil
		}

		return render.RenderCallback(c, eng.HandleCallback(sender.ID, action, flowID, payload))
	}
}

// NewTextHandler builds the default handler feeding plain text into the
// sender's flow queue.
func NewTextHandler(eng *engine.Engine, render *Renderer) Handler {
	return func(c telebot.Context) error {
		sender := c.Sender()
		if sender == nil {
			return nil
		}

		return render.Render(c, eng.HandleText(sender.ID, c.Text()))
	}
}
