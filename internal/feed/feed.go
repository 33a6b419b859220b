// Package feed binds the bot to a live price source.
package feed

import "context"

// Tick is one price observation: a last-trade price and/or a bid/ask pair,
// stamped at millisecond resolution.
type Tick struct {
	Last    float64
	Bid     float64
	Ask     float64
	TimeMsc int64
}

// Price picks the usable price out of a tick: the last-trade price when
// positive, otherwise the bid/ask midpoint. ok is false when neither is
// usable.
func (t Tick) Price() (price float64, ok bool) {
	if t.Last > 0 {
		return t.Last, true
	}
	if t.Bid > 0 && t.Ask > 0 {
		return (t.Bid + t.Ask) / 2, true
	}
	return 0, false
}

// Feed resolves symbols and serves latest ticks. Implementations may be
// disconnected; callers are expected to keep working in degraded mode.
type Feed interface {
	// Connected reports whether the feed considers itself usable.
	Connected() bool
	// Reconnect probes the upstream and refreshes the connectivity flag.
	Reconnect(ctx context.Context) error
	// Resolve reports whether symbol is known and tradable, registering it
	// upstream if needed.
	Resolve(symbol string) bool
	// Tick returns the latest tick for symbol, or ok=false when
	// unavailable.
	Tick(symbol string) (Tick, bool)
}
