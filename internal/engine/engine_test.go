package engine

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quantfx/pricewatch-bot/internal/alert"
	"github.com/quantfx/pricewatch-bot/internal/domain"
	"github.com/quantfx/pricewatch-bot/internal/feed"
	"github.com/quantfx/pricewatch-bot/internal/flow"
)

const owner = int64(42)

type stubFeed struct {
	connected bool
	known     map[string]bool
}

func (f *stubFeed) Connected() bool                    { return f.connected }
func (f *stubFeed) Reconnect(_ context.Context) error  { return nil }
func (f *stubFeed) Resolve(symbol string) bool         { return f.known[symbol] }
func (f *stubFeed) Tick(_ string) (feed.Tick, bool)    { return feed.Tick{}, false }

func newTestEngine(t *testing.T, f *stubFeed) (*Engine, *flow.Manager, *alert.Store) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	flows := flow.NewManager(log)
	store := alert.NewStore(log)

	if f == nil {
		f = &stubFeed{connected: true, known: map[string]bool{}}
	}

	return New(flows, store, f, log), flows, store
}

func allText(res Result) string {
	var parts []string
	for _, r := range res.Replies {
		parts = append(parts, r.Text)
	}
	return strings.Join(parts, "\n")
}

// flowIDFromStart extracts the flow id announced by the start prompt.
func flowIDFromStart(t *testing.T, res Result) string {
	t.Helper()

	text := allText(res)
	_, id, ok := strings.Cut(text, "This alert id: ")
	require.True(t, ok, "start prompt must announce the flow id, got %q", text)
	return strings.TrimSpace(id)
}

// findButton returns the first button whose payload matches.
func findButton(t *testing.T, res Result, payload string) Button {
	t.Helper()

	for _, r := range res.Replies {
		if r.Keyboard == nil {
			continue
		}
		for _, row := range r.Keyboard.Rows {
			for _, btn := range row {
				if btn.Payload == payload {
					return btn
				}
			}
		}
	}

	t.Fatalf("no button with payload %q in result", payload)
	return Button{}
}

func TestEngine_PriceFlowHappyPath(t *testing.T) {
	f := &stubFeed{connected: true, known: map[string]bool{"EURUSD": true}}
	e, flows, store := newTestEngine(t, f)

	started := e.StartFlow(owner, flow.KindPrice)
	require.Contains(t, allText(started), "(Price Alert) Enter symbol")

	res := e.HandleText(owner, "eurusd")
	require.Contains(t, allText(res), "Symbol set for Price Alert: EURUSD")
	buy := findButton(t, res, "BUY")
	require.Equal(t, ActionPriceType, buy.Action)
	require.NotEmpty(t, buy.FlowID)

	res = e.HandleCallback(owner, ActionPriceType, buy.FlowID, "BUY")
	require.Empty(t, res.Answer)
	require.Contains(t, allText(res), "Type set: BUY")
	require.Contains(t, allText(res), "enter target price for EURUSD")

	res = e.HandleText(owner, "1.2345")
	require.Contains(t, allText(res), "✅ Price alert saved: EURUSD → 1.2345 (BUY)")

	price, sharp := store.ListByOwner(owner)
	require.Equal(t, []domain.PriceAlert{{
		Owner: owner, Symbol: "EURUSD", Target: 1.2345, Direction: domain.DirectionBuy,
	}}, price)
	require.Empty(t, sharp)
	require.Zero(t, flows.Open(owner), "completed flow must leave the queue")
}

func TestEngine_NonNumericPriceReprompts(t *testing.T) {
	f := &stubFeed{connected: true, known: map[string]bool{"EURUSD": true}}
	e, flows, store := newTestEngine(t, f)

	e.StartFlow(owner, flow.KindPrice)
	res := e.HandleText(owner, "eurusd")
	buy := findButton(t, res, "BUY")
	e.HandleCallback(owner, ActionPriceType, buy.FlowID, "BUY")

	res = e.HandleText(owner, "not-a-number")
	require.Contains(t, allText(res), "valid number for the price")

	head, ok := flows.Head(owner)
	require.True(t, ok)
	require.Equal(t, flow.StateAwaitPrice, head.State, "re-prompt must not consume the step")

	price, _ := store.ListByOwner(owner)
	require.Empty(t, price)

	// the flow still completes normally afterwards
	res = e.HandleText(owner, "1.10")
	require.Contains(t, allText(res), "Price alert saved")
}

func TestEngine_SharpTurnFlow(t *testing.T) {
	e, flows, store := newTestEngine(t, nil)

	e.StartFlow(owner, flow.KindSharpTurn)

	res := e.HandleText(owner, "gbpusd")
	require.Contains(t, allText(res), "Symbol set for SharpTurn: GBPUSD")
	tfButton := findButton(t, res, "1h")
	require.Equal(t, ActionSharpTimeframe, tfButton.Action)

	res = e.HandleCallback(owner, ActionSharpTimeframe, tfButton.FlowID, "1h")
	require.Empty(t, res.Answer)
	require.Contains(t, allText(res), "Timeframe set: 1h")

	res = e.HandleText(owner, "1.30")
	require.Contains(t, allText(res), "second price (B) for GBPUSD on 1h")

	res = e.HandleText(owner, "1.35")
	require.Contains(t, allText(res), "SharpTurn alert saved: GBPUSD on 1h")

	_, sharp := store.ListByOwner(owner)
	require.Equal(t, []domain.SharpTurnAlert{{
		Owner: owner, Symbol: "GBPUSD", Timeframe: "1h", PriceA: 1.30, PriceB: 1.35,
	}}, sharp)
	require.Zero(t, flows.Open(owner))

	listing := allText(e.ListAlerts(owner))
	require.Contains(t, listing, "GBPUSD | 1h | A=1.3 B=1.35")
}

func TestEngine_StaleCallbackRejected(t *testing.T) {
	f := &stubFeed{connected: true, known: map[string]bool{"EURUSD": true}}
	e, flows, _ := newTestEngine(t, f)

	e.StartFlow(owner, flow.KindPrice)
	res := e.HandleText(owner, "eurusd")
	buy := findButton(t, res, "BUY")

	first := e.HandleCallback(owner, ActionPriceType, buy.FlowID, "BUY")
	require.Empty(t, first.Answer)

	// replaying the same button press must be refused without mutation
	replay := e.HandleCallback(owner, ActionPriceType, buy.FlowID, "SELL")
	require.Equal(t, "Flow not found or not waiting for type.", replay.Answer)
	require.Empty(t, replay.Replies)

	current, ok := flows.Find(owner, buy.FlowID)
	require.True(t, ok)
	require.Equal(t, flow.StateAwaitPrice, current.State)
	require.Equal(t, domain.DirectionBuy, current.Price.Direction)
}

func TestEngine_UnknownFlowCallbackRejected(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)

	res := e.HandleCallback(owner, ActionPriceType, "deadbeef", "BUY")
	require.Equal(t, "Flow not found or not waiting for type.", res.Answer)

	res = e.HandleCallback(owner, ActionSharpTimeframe, "deadbeef", "1h")
	require.Equal(t, "Flow not found or expired.", res.Answer)
}

func TestEngine_WrongKindCallbackRejected(t *testing.T) {
	e, flows, _ := newTestEngine(t, nil)

	e.StartFlow(owner, flow.KindSharpTurn)
	res := e.HandleText(owner, "gbpusd")
	tfButton := findButton(t, res, "1h")

	// a price-type selection aimed at a sharp-turn flow must not stick
	rejected := e.HandleCallback(owner, ActionPriceType, tfButton.FlowID, "BUY")
	require.Equal(t, "Flow not found or not waiting for type.", rejected.Answer)

	current, ok := flows.Find(owner, tfButton.FlowID)
	require.True(t, ok)
	require.Equal(t, flow.StateAwaitTimeframe, current.State)
}

func TestEngine_InvalidTimeframePayloadRejected(t *testing.T) {
	e, flows, _ := newTestEngine(t, nil)

	e.StartFlow(owner, flow.KindSharpTurn)
	res := e.HandleText(owner, "gbpusd")
	tfButton := findButton(t, res, "1h")

	rejected := e.HandleCallback(owner, ActionSharpTimeframe, tfButton.FlowID, "13h")
	require.Equal(t, "Flow not found or expired.", rejected.Answer)

	current, _ := flows.Find(owner, tfButton.FlowID)
	require.Equal(t, flow.StateAwaitTimeframe, current.State)
	require.Empty(t, current.Sharp.Timeframe)
}

func TestEngine_CallbackTargetsNonHeadFlow(t *testing.T) {
	f := &stubFeed{connected: true, known: map[string]bool{"EURUSD": true, "GBPUSD": true}}
	e, flows, _ := newTestEngine(t, f)

	// first flow stalls at await_type and stays at the head
	e.StartFlow(owner, flow.KindPrice)
	res := e.HandleText(owner, "eurusd")
	headButton := findButton(t, res, "BUY")

	// second flow opens behind it; only the head receives text
	e.StartFlow(owner, flow.KindPrice)
	require.Equal(t, 2, flows.Open(owner))

	head, _ := flows.Head(owner)
	require.Equal(t, headButton.FlowID, head.ID)

	// a button press addressed to the head flow advances exactly that flow
	// even with another one queued behind it
	resp := e.HandleCallback(owner, ActionPriceType, headButton.FlowID, "SELL")
	require.Empty(t, resp.Answer)

	advanced, ok := flows.Find(owner, headButton.FlowID)
	require.True(t, ok)
	require.Equal(t, flow.StateAwaitPrice, advanced.State)
	require.Equal(t, domain.DirectionSell, advanced.Price.Direction)
}

func TestEngine_ButtonReachesQueuedFlow(t *testing.T) {
	f := &stubFeed{connected: true, known: map[string]bool{"EURUSD": true}}
	e, flows, _ := newTestEngine(t, f)

	// head flow progresses past await_symbol so its keyboard exists
	e.StartFlow(owner, flow.KindPrice)
	res := e.HandleText(owner, "eurusd")
	headButton := findButton(t, res, "BUY")
	e.HandleCallback(owner, ActionPriceType, headButton.FlowID, "BUY")

	// second price flow: its await_symbol is not reachable by text while
	// the head still waits for its target price, so advance it directly to
	// await_type to obtain an addressable non-head flow
	secondID := flowIDFromStart(t, e.StartFlow(owner, flow.KindPrice))
	_, err := flows.Advance(owner, secondID, func(fl *flow.Flow) error {
		fl.Price.Symbol = "EURUSD"
		fl.State = flow.StateAwaitType
		return nil
	})
	require.NoError(t, err)

	head, _ := flows.Head(owner)
	require.NotEqual(t, secondID, head.ID, "second flow must not be the head")

	resp := e.HandleCallback(owner, ActionPriceType, secondID, "SELL")
	require.Empty(t, resp.Answer)

	advanced, ok := flows.Find(owner, secondID)
	require.True(t, ok)
	require.Equal(t, flow.StateAwaitPrice, advanced.State)
	require.Equal(t, domain.DirectionSell, advanced.Price.Direction)

	// the head flow kept its own state and direction
	head, _ = flows.Head(owner)
	require.Equal(t, flow.StateAwaitPrice, head.State)
	require.Equal(t, domain.DirectionBuy, head.Price.Direction)
}

func TestEngine_UnknownSymbolAbortsFlow(t *testing.T) {
	f := &stubFeed{connected: true, known: map[string]bool{}}
	e, flows, store := newTestEngine(t, f)

	e.StartFlow(owner, flow.KindPrice)
	res := e.HandleText(owner, "nosuchpair")
	buy := findButton(t, res, "BUY")
	e.HandleCallback(owner, ActionPriceType, buy.FlowID, "BUY")

	res = e.HandleText(owner, "1.0")
	require.Contains(t, allText(res), "Symbol 'NOSUCHPAIR' not found. Alert not saved.")

	price, _ := store.ListByOwner(owner)
	require.Empty(t, price)
	require.Zero(t, flows.Open(owner), "aborted flow must leave the queue")
}

func TestEngine_DisconnectedFeedSavesDegraded(t *testing.T) {
	f := &stubFeed{connected: false}
	e, flows, store := newTestEngine(t, f)

	e.StartFlow(owner, flow.KindPrice)
	res := e.HandleText(owner, "eurusd")
	sell := findButton(t, res, "SELL")
	e.HandleCallback(owner, ActionPriceType, sell.FlowID, "SELL")

	res = e.HandleText(owner, "1.2345")
	text := allText(res)
	require.Contains(t, text, "price feed not connected")
	require.Contains(t, text, "Price alert saved: EURUSD → 1.2345 (SELL)")

	price, _ := store.ListByOwner(owner)
	require.Len(t, price, 1, "degraded mode still persists the alert")
	require.Zero(t, flows.Open(owner))
}

func TestEngine_TextWhileFlowAwaitsButton(t *testing.T) {
	e, flows, _ := newTestEngine(t, nil)

	e.StartFlow(owner, flow.KindPrice)
	res := e.HandleText(owner, "eurusd")
	buy := findButton(t, res, "BUY")

	res = e.HandleText(owner, "1.2345")
	require.Empty(t, res.Replies, "text cannot stand in for a button press")

	current, _ := flows.Find(owner, buy.FlowID)
	require.Equal(t, flow.StateAwaitType, current.State)
}

func TestEngine_HiEasterEgg(t *testing.T) {
	e, _, _ := newTestEngine(t, nil)

	res := e.HandleText(owner, "hi")
	require.Equal(t, "hi 👋", allText(res))

	res = e.HandleText(owner, "Hi ")
	require.Equal(t, "hi 👋", allText(res))

	res = e.HandleText(owner, "hello")
	require.Empty(t, res.Replies)
}

func TestEngine_ListAlerts(t *testing.T) {
	e, _, store := newTestEngine(t, nil)

	require.Equal(t, "You have no saved alerts.", allText(e.ListAlerts(owner)))

	store.AddPrice(domain.PriceAlert{Owner: owner, Symbol: "EURUSD", Target: 1.2345, Direction: domain.DirectionBuy})
	store.AddSharpTurn(domain.SharpTurnAlert{Owner: owner, Symbol: "GBPUSD", Timeframe: "4h", PriceA: 1.3, PriceB: 1.35})

	listing := allText(e.ListAlerts(owner))
	require.Contains(t, listing, "📈 Price Alerts:")
	require.Contains(t, listing, "  • EURUSD → 1.2345 (BUY)")
	require.Contains(t, listing, "⚡ SharpTurn Alerts:")
	require.Contains(t, listing, "  • GBPUSD | 4h | A=1.3 B=1.35")

	// another owner's alerts stay invisible
	require.Equal(t, "You have no saved alerts.", allText(e.ListAlerts(owner+1)))
}
