package health

import (
	"context"
	"errors"
	"log/slog"

	"gopkg.in/telebot.v3"

	"github.com/quantfx/pricewatch-bot/internal/feed"
)

// Checkable represents a component that can report its health status.
type Checkable interface {
	HealthCheck(ctx context.Context) error
}

// Checker aggregates health checks for multiple components.
type Checker struct {
	log    *slog.Logger
	checks map[string]Checkable
}

// NewChecker instantiates a Checker with the provided logger.
func NewChecker(log *slog.Logger) *Checker {
	return &Checker{
		log:    log,
		checks: make(map[string]Checkable),
	}
}

// AddCheck registers a checkable component by name.
func (c *Checker) AddCheck(name string, check Checkable) {
	if name == "" || check == nil {
		return
	}
	c.checks[name] = check
}

// Check runs all registered health checks and returns their statuses.
func (c *Checker) Check(ctx context.Context) map[string]string {
	results := make(map[string]string, len(c.checks))

	for name, check := range c.checks {
		if err := check.HealthCheck(ctx); err != nil {
			results[name] = err.Error()
			if c.log != nil {
				c.log.Error("health check failed", slog.String("component", name), slog.Any("error", err))
			}
			continue
		}

		results[name] = "OK"
	}

	return results
}

// TelegramChecker verifies that the Telegram bot API is reachable.
type TelegramChecker struct {
	bot *telebot.Bot
}

// NewTelegramChecker constructs a TelegramChecker.
func NewTelegramChecker(bot *telebot.Bot) *TelegramChecker {
	return &TelegramChecker{bot: bot}
}

// HealthCheck ensures the underlying bot is initialized and reachable.
func (c *TelegramChecker) HealthCheck(_ context.Context) error {
	if c == nil || c.bot == nil || c.bot.Me == nil {
		return errors.New("telegram bot is not initialized or disconnected")
	}
	return nil
}

// FeedChecker reports whether the price feed currently holds a connection.
// A disconnected feed is degraded, not fatal: alerts still save but trigger
// only after the matching loop reconnects.
type FeedChecker struct {
	feed feed.Feed
}

// NewFeedChecker constructs a FeedChecker.
func NewFeedChecker(f feed.Feed) *FeedChecker {
	return &FeedChecker{feed: f}
}

// HealthCheck fails while the feed is disconnected.
func (c *FeedChecker) HealthCheck(_ context.Context) error {
	if c == nil || c.feed == nil {
		return errors.New("price feed is not configured")
	}
	if !c.feed.Connected() {
		return errors.New("price feed is disconnected")
	}
	return nil
}
