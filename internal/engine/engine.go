// Package engine drives the alert-creation conversations.
package engine

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/quantfx/pricewatch-bot/internal/alert"
	"github.com/quantfx/pricewatch-bot/internal/domain"
	apperrors "github.com/quantfx/pricewatch-bot/internal/errors"
	"github.com/quantfx/pricewatch-bot/internal/feed"
	"github.com/quantfx/pricewatch-bot/internal/flow"
	"github.com/quantfx/pricewatch-bot/pkg/metrics"
)

// Engine consumes inbound text and button events, advances the owner's
// flows through the flow.Manager, and hands finished alerts to the store.
// It produces outbound intents instead of sending anything itself, so the
// transport's delivery threading model never leaks in here. Safe for
// concurrent use: all shared state lives behind the manager's and store's
// own locks, which are never held across each other.
type Engine struct {
	flows *flow.Manager
	store *alert.Store
	feed  feed.Feed
	log   *slog.Logger
}

// New builds an Engine.
func New(flows *flow.Manager, store *alert.Store, priceFeed feed.Feed, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}

	return &Engine{
		flows: flows,
		store: store,
		feed:  priceFeed,
		log:   log,
	}
}

// StartFlow opens a new flow of the given kind for owner. Flows are only
// ever appended; an unfinished flow stays queued ahead of the new one.
func (e *Engine) StartFlow(owner int64, kind flow.Kind) Result {
	f := e.flows.Start(owner, kind)
	metrics.RecordFlowStarted(string(kind))

	var res Result
	if kind == flow.KindSharpTurn {
		res.reply(fmt.Sprintf("✍️ (SharpTurn) Enter symbol (case insensitive). This alert id: %s", f.ID))
	} else {
		res.reply(fmt.Sprintf("✍️ (Price Alert) Enter symbol (case insensitive). This alert id: %s", f.ID))
	}

	return res
}

// HandleText applies a plain text message to the head of the owner's flow
// queue. Text never addresses any other flow.
func (e *Engine) HandleText(owner int64, text string) Result {
	text = strings.TrimSpace(text)

	var res Result

	head, ok := e.flows.Head(owner)
	if ok {
		switch {
		case head.Kind == flow.KindPrice && head.State == flow.StateAwaitSymbol:
			res = e.priceSymbolEntered(owner, text)
		case head.Kind == flow.KindPrice && head.State == flow.StateAwaitPrice:
			res = e.priceTargetEntered(owner, head.ID, text)
		case head.Kind == flow.KindSharpTurn && head.State == flow.StateAwaitSymbol:
			res = e.sharpSymbolEntered(owner, text)
		case head.Kind == flow.KindSharpTurn && head.State == flow.StateAwaitPriceA:
			res = e.sharpPriceAEntered(owner, text)
		case head.Kind == flow.KindSharpTurn && head.State == flow.StateAwaitPriceB:
			res = e.sharpPriceBEntered(owner, head.ID, text)
		}
	}

	if len(res.Replies) == 0 && strings.EqualFold(text, "hi") {
		res.reply("hi 👋")
	}

	return res
}

// HandleCallback applies a button press to the flow addressed by flowID,
// which is not necessarily the head. A callback whose flow is gone or not
// in the exact expected state is rejected without any mutation.
func (e *Engine) HandleCallback(owner int64, action, flowID, payload string) Result {
	switch action {
	case ActionPriceType:
		return e.priceTypeSelected(owner, flowID, payload)
	case ActionSharpTimeframe:
		return e.sharpTimeframeSelected(owner, flowID, payload)
	default:
		e.log.Info("unknown callback action", slog.String("action", action), slog.Int64("owner", owner))
		return Result{}
	}
}

// ListAlerts formats both alert kinds stored for owner.
func (e *Engine) ListAlerts(owner int64) Result {
	price, sharp := e.store.ListByOwner(owner)

	var res Result
	if len(price) == 0 && len(sharp) == 0 {
		res.reply("You have no saved alerts.")
		return res
	}

	var lines []string
	if len(price) > 0 {
		lines = append(lines, "📈 Price Alerts:")
		for _, a := range price {
			lines = append(lines, fmt.Sprintf("  • %s → %s (%s)", a.Symbol, formatPrice(a.Target), a.Direction))
		}
	}
	if len(sharp) > 0 {
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, "⚡ SharpTurn Alerts:")
		for _, a := range sharp {
			lines = append(lines, fmt.Sprintf("  • %s | %s | A=%s B=%s",
				a.Symbol, a.Timeframe, formatPrice(a.PriceA), formatPrice(a.PriceB)))
		}
	}

	res.reply(strings.Join(lines, "\n"))
	return res
}

func (e *Engine) priceSymbolEntered(owner int64, text string) Result {
	symbol := domain.NormalizeSymbol(text)

	advanced, err := e.flows.AdvanceHead(owner, func(f *flow.Flow) error {
		if f.Kind != flow.KindPrice || f.State != flow.StateAwaitSymbol {
			return flow.ErrNotWaiting
		}
		f.Price.Symbol = symbol
		f.State = flow.StateAwaitType
		return nil
	})
	if err != nil {
		// the head changed between snapshot and advance; the newer event won
		return Result{}
	}

	kb := &Keyboard{Rows: [][]Button{
		{{Text: "BUY (>= target)", Action: ActionPriceType, FlowID: advanced.ID, Payload: string(domain.DirectionBuy)}},
		{{Text: "SELL (<= target)", Action: ActionPriceType, FlowID: advanced.ID, Payload: string(domain.DirectionSell)}},
	}}

	var res Result
	res.replyWithKeyboard(fmt.Sprintf("✅ Symbol set for Price Alert: %s\nChoose type:", symbol), kb)
	return res
}

func (e *Engine) priceTypeSelected(owner int64, flowID, payload string) Result {
	direction, valid := domain.ParseDirection(payload)

	advanced, err := e.flows.Advance(owner, flowID, func(f *flow.Flow) error {
		if !valid || f.Kind != flow.KindPrice || f.State != flow.StateAwaitType {
			return flow.ErrNotWaiting
		}
		f.Price.Direction = direction
		f.State = flow.StateAwaitPrice
		return nil
	})
	if err != nil {
		return Result{Answer: "Flow not found or not waiting for type."}
	}

	var res Result
	res.reply(fmt.Sprintf("✅ Type set: %s\n✍️ Now enter target price for %s:", direction, advanced.Price.Symbol))
	return res
}

func (e *Engine) priceTargetEntered(owner int64, flowID, text string) Result {
	target, err := strconv.ParseFloat(text, 64)
	if err != nil {
		var res Result
		res.reply(apperrors.NewValidationError("Please enter a valid number for the price.").UserMessage)
		return res
	}

	advanced, advErr := e.flows.Advance(owner, flowID, func(f *flow.Flow) error {
		if f.Kind != flow.KindPrice || f.State != flow.StateAwaitPrice {
			return flow.ErrNotWaiting
		}
		f.Price.Target = target
		f.State = flow.StateSaving
		return nil
	})
	if advErr != nil {
		return Result{}
	}

	return e.savePrice(owner, advanced)
}

// savePrice runs the completion step with no flow lock held: feed lookup and
// store mutation happen first, the flow is removed from the queue last.
func (e *Engine) savePrice(owner int64, f flow.Flow) Result {
	draft := *f.Price

	var res Result

	if e.feed.Connected() {
		if !e.feed.Resolve(draft.Symbol) {
			res.reply(fmt.Sprintf("⚠️ Symbol '%s' not found. Alert not saved.", draft.Symbol))
			e.flows.Remove(owner, f.ID)
			metrics.RecordFlowFinished(string(flow.KindPrice), "aborted")
			return res
		}
	} else {
		res.reply("⚠️ Warning: price feed not connected. Alert saved but will not trigger until the feed reconnects.")
	}

	e.store.AddPrice(domain.PriceAlert{
		Owner:     owner,
		Symbol:    draft.Symbol,
		Target:    draft.Target,
		Direction: draft.Direction,
	})

	e.flows.Remove(owner, f.ID)
	metrics.RecordFlowFinished(string(flow.KindPrice), "saved")

	res.reply(fmt.Sprintf("✅ Price alert saved: %s → %s (%s)", draft.Symbol, formatPrice(draft.Target), draft.Direction))
	return res
}

func (e *Engine) sharpSymbolEntered(owner int64, text string) Result {
	symbol := domain.NormalizeSymbol(text)

	advanced, err := e.flows.AdvanceHead(owner, func(f *flow.Flow) error {
		if f.Kind != flow.KindSharpTurn || f.State != flow.StateAwaitSymbol {
			return flow.ErrNotWaiting
		}
		f.Sharp.Symbol = symbol
		f.State = flow.StateAwaitTimeframe
		return nil
	})
	if err != nil {
		return Result{}
	}

	rows := make([][]Button, 0, len(domain.Timeframes))
	for _, tf := range domain.Timeframes {
		rows = append(rows, []Button{{
			Text: tf, Action: ActionSharpTimeframe, FlowID: advanced.ID, Payload: tf,
		}})
	}

	var res Result
	res.replyWithKeyboard(
		fmt.Sprintf("✅ Symbol set for SharpTurn: %s\n⏱ Select timeframe:", symbol),
		&Keyboard{Rows: rows},
	)
	return res
}

func (e *Engine) sharpTimeframeSelected(owner int64, flowID, payload string) Result {
	advanced, err := e.flows.Advance(owner, flowID, func(f *flow.Flow) error {
		if !domain.ValidTimeframe(payload) || f.Kind != flow.KindSharpTurn || f.State != flow.StateAwaitTimeframe {
			return flow.ErrNotWaiting
		}
		f.Sharp.Timeframe = payload
		f.State = flow.StateAwaitPriceA
		return nil
	})
	if err != nil {
		return Result{Answer: "Flow not found or expired."}
	}

	var res Result
	res.reply(fmt.Sprintf("✅ Timeframe set: %s\n✍️ Now enter first price (A) for %s:", payload, advanced.Sharp.Symbol))
	return res
}

func (e *Engine) sharpPriceAEntered(owner int64, text string) Result {
	priceA, err := strconv.ParseFloat(text, 64)
	if err != nil {
		var res Result
		res.reply(apperrors.NewValidationError("Please enter a valid number for price A.").UserMessage)
		return res
	}

	advanced, advErr := e.flows.AdvanceHead(owner, func(f *flow.Flow) error {
		if f.Kind != flow.KindSharpTurn || f.State != flow.StateAwaitPriceA {
			return flow.ErrNotWaiting
		}
		f.Sharp.PriceA = priceA
		f.State = flow.StateAwaitPriceB
		return nil
	})
	if advErr != nil {
		return Result{}
	}

	var res Result
	res.reply(fmt.Sprintf("✍️ Now enter second price (B) for %s on %s:", advanced.Sharp.Symbol, advanced.Sharp.Timeframe))
	return res
}

func (e *Engine) sharpPriceBEntered(owner int64, flowID, text string) Result {
	priceB, err := strconv.ParseFloat(text, 64)
	if err != nil {
		var res Result
		res.reply(apperrors.NewValidationError("Please enter a valid number for price B.").UserMessage)
		return res
	}

	advanced, advErr := e.flows.Advance(owner, flowID, func(f *flow.Flow) error {
		if f.Kind != flow.KindSharpTurn || f.State != flow.StateAwaitPriceB {
			return flow.ErrNotWaiting
		}
		f.Sharp.PriceB = priceB
		f.State = flow.StateSaving
		return nil
	})
	if advErr != nil {
		return Result{}
	}

	draft := *advanced.Sharp

	// sharp-turn alerts persist unconditionally, no feed validation
	e.store.AddSharpTurn(domain.SharpTurnAlert{
		Owner:     owner,
		Symbol:    draft.Symbol,
		Timeframe: draft.Timeframe,
		PriceA:    draft.PriceA,
		PriceB:    draft.PriceB,
	})

	e.flows.Remove(owner, advanced.ID)
	metrics.RecordFlowFinished(string(flow.KindSharpTurn), "saved")

	var res Result
	res.reply(fmt.Sprintf("✅ SharpTurn alert saved: %s on %s with A=%s, B=%s",
		draft.Symbol, draft.Timeframe, formatPrice(draft.PriceA), formatPrice(draft.PriceB)))
	return res
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
