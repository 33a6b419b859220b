// Package domain contains the core alert types shared across the bot.
package domain

import "strings"

// Direction is the trigger comparison for a price alert.
type Direction string

const (
	// DirectionBuy fires when the price rises to or above the target.
	DirectionBuy Direction = "BUY"
	// DirectionSell fires when the price falls to or below the target.
	DirectionSell Direction = "SELL"
)

// ParseDirection validates a raw direction value coming from callback data.
func ParseDirection(raw string) (Direction, bool) {
	switch Direction(raw) {
	case DirectionBuy:
		return DirectionBuy, true
	case DirectionSell:
		return DirectionSell, true
	default:
		return "", false
	}
}

// Triggered reports whether the observed price satisfies the alert condition.
func (d Direction) Triggered(price, target float64) bool {
	switch d {
	case DirectionBuy:
		return price >= target
	case DirectionSell:
		return price <= target
	default:
		return false
	}
}

// PriceAlert is a confirmed one-shot threshold alert. It is removed as soon
// as it fires.
type PriceAlert struct {
	Owner     int64
	Symbol    string
	Target    float64
	Direction Direction
}

// SharpTurnAlert is a confirmed two-point range alert. It is stored and
// listed but not evaluated by the matching loop.
type SharpTurnAlert struct {
	Owner     int64
	Symbol    string
	Timeframe string
	PriceA    float64
	PriceB    float64
}

// Timeframes is the fixed set offered for sharp-turn alerts, in menu order.
var Timeframes = []string{"1m", "5m", "15m", "1h", "4h", "1d", "1w", "1M"}

// ValidTimeframe reports whether tf is one of the offered timeframes.
func ValidTimeframe(tf string) bool {
	for _, known := range Timeframes {
		if tf == known {
			return true
		}
	}
	return false
}

// NormalizeSymbol uppercases and trims a user-entered symbol.
func NormalizeSymbol(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
