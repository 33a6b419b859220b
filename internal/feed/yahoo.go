package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/quote"

	apperrors "github.com/quantfx/pricewatch-bot/internal/errors"
	"github.com/quantfx/pricewatch-bot/pkg/metrics"
)

// YahooFeed serves ticks from Yahoo Finance quotes. Quote timestamps carry
// second resolution, so they are upscaled to milliseconds. Connectivity is
// tracked with a probe symbol and a circuit breaker around quote fetches,
// so a dead upstream flips the feed into disconnected mode instead of
// timing out once per symbol per poll.
type YahooFeed struct {
	probeSymbol string
	connected   atomic.Bool
	breaker     *apperrors.CircuitBreaker
	log         *slog.Logger
}

// NewYahoo builds a YahooFeed using probeSymbol for connectivity checks.
func NewYahoo(probeSymbol string, log *slog.Logger) *YahooFeed {
	if log == nil {
		log = slog.Default()
	}

	return &YahooFeed{
		probeSymbol: probeSymbol,
		breaker:     apperrors.NewCircuitBreaker(),
		log:         log,
	}
}

// Connected reports the result of the most recent probe or fetch.
func (f *YahooFeed) Connected() bool {
	return f.connected.Load()
}

// Reconnect probes the upstream with retries and refreshes the connectivity
// flag.
func (f *YahooFeed) Reconnect(ctx context.Context) error {
	err := apperrors.WithRetry(ctx, func() error {
		q, probeErr := quote.Get(f.probeSymbol)
		if probeErr != nil {
			return apperrors.NewFeedError("probe", probeErr)
		}
		if q == nil {
			return apperrors.NewFeedError("probe", nil)
		}
		return nil
	})

	if err != nil {
		f.connected.Store(false)
		metrics.RecordFeedError("probe")
		f.log.Debug("feed probe failed", slog.String("symbol", f.probeSymbol), slog.Any("error", err))
		return err
	}

	if f.connected.CompareAndSwap(false, true) {
		f.log.Info("price feed connected", slog.String("probe_symbol", f.probeSymbol))
	}

	return nil
}

// Resolve reports whether symbol is known upstream.
func (f *YahooFeed) Resolve(symbol string) bool {
	q, err := f.fetch(symbol)
	if err != nil {
		// breaker rejections were already counted when the breaker tripped
		if !errors.Is(err, apperrors.ErrCircuitOpen) {
			metrics.RecordFeedError("resolve")
		}
		return false
	}

	return q.RegularMarketPrice > 0 || (q.Bid > 0 && q.Ask > 0)
}

// Tick returns the latest quote for symbol as a Tick.
func (f *YahooFeed) Tick(symbol string) (Tick, bool) {
	q, err := f.fetch(symbol)
	if err != nil {
		if !errors.Is(err, apperrors.ErrCircuitOpen) {
			metrics.RecordFeedError("tick")
		}
		return Tick{}, false
	}

	return Tick{
		Last:    q.RegularMarketPrice,
		Bid:     q.Bid,
		Ask:     q.Ask,
		TimeMsc: int64(q.RegularMarketTime) * 1000,
	}, true
}

func (f *YahooFeed) fetch(symbol string) (*finance.Quote, error) {
	var q *finance.Quote

	err := f.breaker.Call(func() error {
		fetched, fetchErr := quote.Get(symbol)
		if fetchErr != nil {
			return fetchErr
		}
		if fetched == nil {
			return apperrors.NewFeedError("fetch", nil)
		}
		q = fetched
		return nil
	})
	if err != nil {
		f.connected.Store(false)
		f.log.Debug("quote fetch failed", slog.String("symbol", symbol), slog.Any("error", err))
		return nil, err
	}

	return q, nil
}
