package bot

import (
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/quantfx/pricewatch-bot/internal/bot/handlers"
	"github.com/quantfx/pricewatch-bot/internal/bot/keyboard"
	"github.com/quantfx/pricewatch-bot/internal/engine"
	"github.com/quantfx/pricewatch-bot/internal/errors"
	"github.com/quantfx/pricewatch-bot/internal/flow"
	"github.com/quantfx/pricewatch-bot/pkg/config"
)

// Bot wraps telebot.Bot with the routing and rendering needed to drive the
// alert engine from Telegram updates.
type Bot struct {
	telebot    *telebot.Bot
	log        *slog.Logger
	cfg        config.Config
	engine     *engine.Engine
	router     *Router
	keyboard   *keyboard.Builder
	errHandler *errors.Handler
}

// New builds a telegram bot instance configured according to the application settings.
func New(cfg config.Config, log *slog.Logger, eng *engine.Engine) (*Bot, error) {
	settings := telebot.Settings{
		Token: cfg.Bot.Token,
		Poller: &telebot.LongPoller{
			Timeout: cfg.Bot.PollTimeout,
		},
	}

	tb, err := telebot.NewBot(settings)
	if err != nil {
		return nil, fmt.Errorf("initialize telebot: %w", err)
	}

	b := &Bot{
		telebot:    tb,
		log:        log,
		cfg:        cfg,
		engine:     eng,
		router:     NewRouter(log),
		keyboard:   keyboard.NewBuilder(log),
		errHandler: errors.NewHandler(log, cfg.Sentry.Enabled),
	}

	b.setupRouter()
	b.registerTelebotHandlers()

	return b, nil
}

// Start runs the telegram bot event loop.
func (b *Bot) Start() {
	b.telebot.Start()
}

// Stop gracefully stops the telegram bot.
func (b *Bot) Stop() {
	b.log.Info("stopping telegram bot...")
	b.telebot.Stop()
}

// Telebot exposes the underlying telebot.Bot instance for integrations such as health checks.
func (b *Bot) Telebot() *telebot.Bot {
	return b.telebot
}

func (b *Bot) setupRouter() {
	b.router.Use(RecoveryMiddleware(b.log, b.errHandler))
	b.router.Use(ErrorHandlingMiddleware(b.errHandler))
	b.router.Use(LoggingMiddleware(b.log))
	b.router.Use(AuthMiddleware(b.cfg.Bot.AllowedUsers, b.log))
	b.router.Use(MetricsMiddleware)

	render := handlers.NewRenderer(b.keyboard, b.log)

	b.router.RegisterCommand(CommandStart, handlers.NewStartHandler(b.keyboard, b.log))
	b.router.RegisterCommand(CommandAlerts, handlers.NewAlertsHandler(b.engine, render))

	b.router.RegisterCallback(CallbackMenuPrice, handlers.NewMenuHandler(b.engine, render, flow.KindPrice))
	b.router.RegisterCallback(CallbackMenuSharpTurn, handlers.NewMenuHandler(b.engine, render, flow.KindSharpTurn))
	b.router.RegisterCallback(engine.ActionPriceType, handlers.NewFlowCallbackHandler(b.engine, render, engine.ActionPriceType))
	b.router.RegisterCallback(engine.ActionSharpTimeframe, handlers.NewFlowCallbackHandler(b.engine, render, engine.ActionSharpTimeframe))

	b.router.SetDefault(handlers.NewTextHandler(b.engine, render))
}

func (b *Bot) registerTelebotHandlers() {
	b.telebot.Handle(telebot.OnText, b.router.Route)
	b.telebot.Handle(telebot.OnCallback, b.router.Route)
}
