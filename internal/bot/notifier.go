package bot

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"
)

// Notifier delivers matching-loop notifications through the bot transport.
// It satisfies notify.Notifier without the matcher depending on telebot.
type Notifier struct {
	telebot *telebot.Bot
	log     *slog.Logger
}

// NewNotifier builds a Notifier on top of a running bot.
func NewNotifier(b *Bot, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{telebot: b.Telebot(), log: log}
}

// Send delivers text to the owner's private chat.
func (n *Notifier) Send(owner int64, text string) error {
	_, err := n.telebot.Send(&telebot.User{ID: owner}, text)
	return err
}
