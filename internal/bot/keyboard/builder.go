package keyboard

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/quantfx/pricewatch-bot/internal/engine"
)

// Builder renders inline keyboards for the bot.
type Builder struct {
	log *slog.Logger
}

// NewBuilder returns a new Builder instance.
func NewBuilder(log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{log: log}
}

// MainMenu builds the /start menu.
func (b *Builder) MainMenu() *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{}
	markup.InlineKeyboard = [][]telebot.InlineButton{
		{
			{
				Text: "📈 Set Price Alert",
				Data: "menu_price",
			},
		},
		{
			{
				Text: "⚡ SharpTurn Alert",
				Data: "menu_sharpturn",
			},
		},
	}
	return markup
}

// FromEngine renders an engine keyboard into telebot inline markup. Buttons
// whose callback data cannot be encoded are dropped with an error log; a
// keyboard left with no buttons renders as nil markup.
func (b *Builder) FromEngine(kb *engine.Keyboard) *telebot.ReplyMarkup {
	if kb == nil || len(kb.Rows) == 0 {
		return nil
	}

	inline := make([][]telebot.InlineButton, 0, len(kb.Rows))
	for _, row := range kb.Rows {
		buttons := make([]telebot.InlineButton, 0, len(row))
		for _, btn := range row {
			data, err := EncodeCallback(btn.Action, btn.FlowID, btn.Payload)
			if err != nil {
				b.log.Error("dropping inline button",
					slog.String("action", btn.Action),
					slog.String("flow_id", btn.FlowID),
					slog.Any("error", err),
				)
				continue
			}

			buttons = append(buttons, telebot.InlineButton{Text: btn.Text, Data: data})
		}
		if len(buttons) > 0 {
			inline = append(inline, buttons)
		}
	}

	if len(inline) == 0 {
		return nil
	}

	return &telebot.ReplyMarkup{InlineKeyboard: inline}
}
