// Package flow manages in-progress alert-creation conversations.
package flow

import (
	"strings"

	"github.com/google/uuid"

	"github.com/quantfx/pricewatch-bot/internal/domain"
)

// Kind selects which alert-creation state machine a flow follows.
type Kind string

const (
	// KindPrice is the one-shot threshold alert flow.
	KindPrice Kind = "price"
	// KindSharpTurn is the two-point range alert flow.
	KindSharpTurn Kind = "sharp"
)

// State is a step in a flow's state machine.
type State string

const (
	// StateAwaitSymbol expects a symbol as plain text (both kinds start here).
	StateAwaitSymbol State = "await_symbol"
	// StateAwaitType expects a BUY/SELL button press (price flow).
	StateAwaitType State = "await_type"
	// StateAwaitPrice expects a numeric target price as text (price flow).
	StateAwaitPrice State = "await_price"
	// StateAwaitTimeframe expects a timeframe button press (sharp-turn flow).
	StateAwaitTimeframe State = "await_timeframe"
	// StateAwaitPriceA expects the first range price as text (sharp-turn flow).
	StateAwaitPriceA State = "await_price_a"
	// StateAwaitPriceB expects the second range price as text (sharp-turn flow).
	StateAwaitPriceB State = "await_price_b"
	// StateSaving marks a flow whose final field arrived and which is being
	// persisted outside the manager's lock.
	StateSaving State = "saving"
)

// PriceDraft accumulates the fields of a price flow.
type PriceDraft struct {
	Symbol    string
	Direction domain.Direction
	Target    float64
}

// SharpTurnDraft accumulates the fields of a sharp-turn flow.
type SharpTurnDraft struct {
	Symbol    string
	Timeframe string
	PriceA    float64
	PriceB    float64
}

// Flow is one in-progress conversation. Exactly one of the draft pointers is
// set, matching Kind, so kind-mismatched field access fails loudly instead of
// silently reading zero values.
type Flow struct {
	ID    string
	Kind  Kind
	State State

	Price *PriceDraft
	Sharp *SharpTurnDraft
}

// New creates a flow in its initial state with a fresh short id. The id only
// needs to be unambiguous among one owner's open flows, but a uuid-derived
// token keeps it globally unique anyway.
func New(kind Kind) *Flow {
	f := &Flow{
		ID:    newFlowID(),
		Kind:  kind,
		State: StateAwaitSymbol,
	}

	switch kind {
	case KindSharpTurn:
		f.Sharp = &SharpTurnDraft{}
	default:
		f.Price = &PriceDraft{}
	}

	return f
}

func (f *Flow) clone() Flow {
	out := *f
	if f.Price != nil {
		draft := *f.Price
		out.Price = &draft
	}
	if f.Sharp != nil {
		draft := *f.Sharp
		out.Sharp = &draft
	}

	return out
}

func newFlowID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
