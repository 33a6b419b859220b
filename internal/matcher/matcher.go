// Package matcher runs the background loop that fires price alerts.
package matcher

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/quantfx/pricewatch-bot/internal/alert"
	"github.com/quantfx/pricewatch-bot/internal/domain"
	apperrors "github.com/quantfx/pricewatch-bot/internal/errors"
	"github.com/quantfx/pricewatch-bot/internal/feed"
	"github.com/quantfx/pricewatch-bot/internal/notify"
	"github.com/quantfx/pricewatch-bot/pkg/metrics"
)

const DefaultPollInterval = 200 * time.Millisecond

// Engine polls the price feed for every symbol with live alerts, evaluates
// trigger conditions and fires matching alerts at most once. No failure in
// here is fatal: a bad symbol or a dead feed is skipped and the loop keeps
// going.
type Engine struct {
	store    *alert.Store
	feed     feed.Feed
	notifier notify.Notifier
	interval time.Duration
	log      *slog.Logger

	// last processed tick timestamp per symbol, touched only by the Run
	// goroutine
	lastTickMsc map[string]int64
}

// New builds a matching Engine polling at the given interval.
func New(store *alert.Store, priceFeed feed.Feed, notifier notify.Notifier, interval time.Duration, log *slog.Logger) *Engine {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if log == nil {
		log = slog.Default()
	}

	return &Engine{
		store:       store,
		feed:        priceFeed,
		notifier:    notifier,
		interval:    interval,
		log:         log,
		lastTickMsc: make(map[string]int64),
	}
}

// Run executes scan iterations at the configured interval until ctx is
// canceled.
func (e *Engine) Run(ctx context.Context) {
	e.log.Info("matching loop started", slog.Duration("interval", e.interval))

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.log.Info("matching loop stopped")
			return
		case <-ticker.C:
			e.scan(ctx)
		}
	}
}

// scan is one loop iteration: reconnect if needed, then evaluate every
// symbol with live alerts against its latest tick.
func (e *Engine) scan(ctx context.Context) {
	if !e.feed.Connected() {
		if err := e.feed.Reconnect(ctx); err == nil {
			e.log.Info("price feed reconnected")
		}
	}

	symbols := e.store.Symbols()
	for _, symbol := range symbols {
		if ctx.Err() != nil {
			return
		}
		if !e.feed.Connected() {
			continue
		}

		e.evaluateSymbol(symbol)
	}

	price, sharp := e.store.Counts()
	metrics.SetActiveAlerts(price, sharp)
}

func (e *Engine) evaluateSymbol(symbol string) {
	tick, ok := e.feed.Tick(symbol)
	if !ok {
		return
	}

	// one evaluation pass per actual tick change, not per poll
	if e.lastTickMsc[symbol] == tick.TimeMsc {
		metrics.RecordTick(true)
		return
	}
	e.lastTickMsc[symbol] = tick.TimeMsc
	metrics.RecordTick(false)

	price, usable := tick.Price()
	if !usable {
		return
	}

	// snapshot: the store keeps mutating while we iterate
	for _, a := range e.store.AlertsFor(symbol) {
		if !a.Direction.Triggered(price, a.Target) {
			continue
		}

		e.fire(a, price)
	}
}

// fire notifies the owner and then removes the alert from both indexes.
// Delivery failure never blocks removal.
func (e *Engine) fire(a domain.PriceAlert, price float64) {
	text := formatTrigger(a, price)
	if err := e.notifier.Send(a.Owner, text); err != nil {
		notifyErr := apperrors.NewNotifyError(err)
		e.log.Warn("alert notification failed",
			slog.Int64("owner", a.Owner),
			slog.String("symbol", a.Symbol),
			slog.Any("error", notifyErr),
		)
	}

	// verified removal: another path may have removed the alert already
	if removed := e.store.RemovePrice(a); !removed {
		e.log.Debug("alert already removed",
			slog.Int64("owner", a.Owner),
			slog.String("symbol", a.Symbol),
		)
		return
	}

	metrics.RecordAlertFired(string(a.Direction))
	e.log.Info("alert fired",
		slog.Int64("owner", a.Owner),
		slog.String("symbol", a.Symbol),
		slog.Float64("price", price),
		slog.Float64("target", a.Target),
		slog.String("direction", string(a.Direction)),
	)
}

func formatTrigger(a domain.PriceAlert, price float64) string {
	return fmt.Sprintf("🚨 %s %s alert: current %s target %s",
		a.Symbol, a.Direction, formatPrice(price), formatPrice(a.Target))
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
