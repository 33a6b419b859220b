package matcher

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/quantfx/pricewatch-bot/internal/alert"
	"github.com/quantfx/pricewatch-bot/internal/domain"
	"github.com/quantfx/pricewatch-bot/internal/feed"
)

type scriptedFeed struct {
	connected      bool
	reconnectErr   error
	reconnectCalls int
	ticks          map[string]feed.Tick
}

func (f *scriptedFeed) Connected() bool { return f.connected }

func (f *scriptedFeed) Reconnect(_ context.Context) error {
	f.reconnectCalls++
	if f.reconnectErr != nil {
		return f.reconnectErr
	}
	f.connected = true
	return nil
}

func (f *scriptedFeed) Resolve(symbol string) bool {
	_, ok := f.ticks[symbol]
	return ok
}

func (f *scriptedFeed) Tick(symbol string) (feed.Tick, bool) {
	t, ok := f.ticks[symbol]
	return t, ok
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Send(owner int64, text string) error {
	args := m.Called(owner, text)
	return args.Error(0)
}

func newTestEngine(f *scriptedFeed, n *mockNotifier) (*Engine, *alert.Store) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := alert.NewStore(log)
	return New(store, f, n, time.Millisecond, log), store
}

func TestScanFiresBuyAlertOnce(t *testing.T) {
	f := &scriptedFeed{
		connected: true,
		ticks:     map[string]feed.Tick{"EURUSD": {Last: 1.24, TimeMsc: 1_000}},
	}
	n := &mockNotifier{}
	n.On("Send", int64(7), "🚨 EURUSD BUY alert: current 1.24 target 1.2345").Return(nil).Once()

	e, store := newTestEngine(f, n)
	store.AddPrice(domain.PriceAlert{Owner: 7, Symbol: "EURUSD", Target: 1.2345, Direction: domain.DirectionBuy})

	e.scan(context.Background())

	n.AssertExpectations(t)
	price, _ := store.Counts()
	require.Zero(t, price, "fired alert must be removed from the store")

	// the symbol keeps ticking but the alert is gone
	f.ticks["EURUSD"] = feed.Tick{Last: 1.30, TimeMsc: 2_000}
	e.scan(context.Background())
	n.AssertNumberOfCalls(t, "Send", 1)
}

func TestScanSellTriggersAtOrBelowTarget(t *testing.T) {
	f := &scriptedFeed{
		connected: true,
		ticks:     map[string]feed.Tick{"EURUSD": {Last: 1.25, TimeMsc: 1_000}},
	}
	n := &mockNotifier{}

	e, store := newTestEngine(f, n)
	store.AddPrice(domain.PriceAlert{Owner: 7, Symbol: "EURUSD", Target: 1.2345, Direction: domain.DirectionSell})

	// 1.25 is above the SELL target, nothing fires
	e.scan(context.Background())
	n.AssertNumberOfCalls(t, "Send", 0)

	n.On("Send", int64(7), "🚨 EURUSD SELL alert: current 1.23 target 1.2345").Return(nil).Once()
	f.ticks["EURUSD"] = feed.Tick{Last: 1.23, TimeMsc: 2_000}
	e.scan(context.Background())

	n.AssertExpectations(t)
	price, _ := store.Counts()
	require.Zero(t, price)
}

func TestScanSkipsDuplicateTickTimestamp(t *testing.T) {
	f := &scriptedFeed{
		connected: true,
		ticks:     map[string]feed.Tick{"EURUSD": {Last: 1.20, TimeMsc: 1_000}},
	}
	n := &mockNotifier{}

	e, store := newTestEngine(f, n)
	store.AddPrice(domain.PriceAlert{Owner: 7, Symbol: "EURUSD", Target: 1.2345, Direction: domain.DirectionBuy})

	e.scan(context.Background())

	// a different price under the same timestamp is stale data and must
	// not be evaluated
	f.ticks["EURUSD"] = feed.Tick{Last: 1.30, TimeMsc: 1_000}
	e.scan(context.Background())
	n.AssertNumberOfCalls(t, "Send", 0)

	n.On("Send", int64(7), mock.AnythingOfType("string")).Return(nil).Once()
	f.ticks["EURUSD"] = feed.Tick{Last: 1.30, TimeMsc: 2_000}
	e.scan(context.Background())
	n.AssertExpectations(t)
}

func TestScanFallsBackToBidAskMidpoint(t *testing.T) {
	f := &scriptedFeed{
		connected: true,
		ticks:     map[string]feed.Tick{"EURUSD": {Bid: 1.20, Ask: 1.30, TimeMsc: 1_000}},
	}
	n := &mockNotifier{}
	n.On("Send", int64(7), "🚨 EURUSD BUY alert: current 1.25 target 1.24").Return(nil).Once()

	e, store := newTestEngine(f, n)
	store.AddPrice(domain.PriceAlert{Owner: 7, Symbol: "EURUSD", Target: 1.24, Direction: domain.DirectionBuy})

	e.scan(context.Background())
	n.AssertExpectations(t)
}

func TestScanSkipsUnusableTick(t *testing.T) {
	f := &scriptedFeed{
		connected: true,
		ticks:     map[string]feed.Tick{"EURUSD": {TimeMsc: 1_000}},
	}
	n := &mockNotifier{}

	e, store := newTestEngine(f, n)
	store.AddPrice(domain.PriceAlert{Owner: 7, Symbol: "EURUSD", Target: 1.24, Direction: domain.DirectionBuy})

	e.scan(context.Background())

	n.AssertNumberOfCalls(t, "Send", 0)
	price, _ := store.Counts()
	require.Equal(t, 1, price, "alert survives a tick with no usable price")
}

func TestScanReconnectsBeforeEvaluating(t *testing.T) {
	f := &scriptedFeed{
		connected: false,
		ticks:     map[string]feed.Tick{"EURUSD": {Last: 1.30, TimeMsc: 1_000}},
	}
	n := &mockNotifier{}
	n.On("Send", int64(7), mock.AnythingOfType("string")).Return(nil).Once()

	e, store := newTestEngine(f, n)
	store.AddPrice(domain.PriceAlert{Owner: 7, Symbol: "EURUSD", Target: 1.24, Direction: domain.DirectionBuy})

	e.scan(context.Background())

	require.Equal(t, 1, f.reconnectCalls)
	n.AssertExpectations(t)
}

func TestScanSkipsSymbolsWhileDisconnected(t *testing.T) {
	f := &scriptedFeed{
		connected:    false,
		reconnectErr: context.DeadlineExceeded,
		ticks:        map[string]feed.Tick{"EURUSD": {Last: 1.30, TimeMsc: 1_000}},
	}
	n := &mockNotifier{}

	e, store := newTestEngine(f, n)
	store.AddPrice(domain.PriceAlert{Owner: 7, Symbol: "EURUSD", Target: 1.24, Direction: domain.DirectionBuy})

	e.scan(context.Background())
	e.scan(context.Background())

	n.AssertNumberOfCalls(t, "Send", 0)
	require.Equal(t, 2, f.reconnectCalls, "every iteration retries the connection")
	price, _ := store.Counts()
	require.Equal(t, 1, price)
}

func TestFireRemovesAlertEvenWhenDeliveryFails(t *testing.T) {
	f := &scriptedFeed{
		connected: true,
		ticks:     map[string]feed.Tick{"EURUSD": {Last: 1.30, TimeMsc: 1_000}},
	}
	n := &mockNotifier{}
	n.On("Send", int64(7), mock.AnythingOfType("string")).Return(context.DeadlineExceeded).Once()

	e, store := newTestEngine(f, n)
	store.AddPrice(domain.PriceAlert{Owner: 7, Symbol: "EURUSD", Target: 1.24, Direction: domain.DirectionBuy})

	e.scan(context.Background())

	n.AssertExpectations(t)
	price, _ := store.Counts()
	require.Zero(t, price, "undeliverable alert must still be consumed")
}

func TestScanFiresAllMatchingAlertsForSymbol(t *testing.T) {
	f := &scriptedFeed{
		connected: true,
		ticks:     map[string]feed.Tick{"EURUSD": {Last: 1.30, TimeMsc: 1_000}},
	}
	n := &mockNotifier{}
	n.On("Send", int64(7), mock.AnythingOfType("string")).Return(nil).Twice()

	e, store := newTestEngine(f, n)
	store.AddPrice(domain.PriceAlert{Owner: 7, Symbol: "EURUSD", Target: 1.24, Direction: domain.DirectionBuy})
	store.AddPrice(domain.PriceAlert{Owner: 7, Symbol: "EURUSD", Target: 1.29, Direction: domain.DirectionBuy})
	// this one does not match and stays
	store.AddPrice(domain.PriceAlert{Owner: 7, Symbol: "EURUSD", Target: 1.35, Direction: domain.DirectionBuy})

	e.scan(context.Background())

	n.AssertExpectations(t)
	price, _ := store.Counts()
	require.Equal(t, 1, price)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	f := &scriptedFeed{connected: true, ticks: map[string]feed.Tick{}}
	n := &mockNotifier{}
	e, _ := newTestEngine(f, n)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
