// Package alert holds the in-memory registry of confirmed alerts.
package alert

import (
	"log/slog"
	"sync"

	"github.com/quantfx/pricewatch-bot/internal/domain"
)

// Store keeps every confirmed alert, indexed both by owner and by symbol.
// Price alerts live in both indexes so the matching loop can poll only
// symbols with live interest; sharp-turn alerts only need the owner index.
// All methods are safe for concurrent use.
type Store struct {
	mu sync.Mutex

	priceByOwner  map[int64][]domain.PriceAlert
	priceBySymbol map[string][]domain.PriceAlert
	sharpByOwner  map[int64][]domain.SharpTurnAlert

	log *slog.Logger
}

// NewStore returns an empty Store.
func NewStore(log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}

	return &Store{
		priceByOwner:  make(map[int64][]domain.PriceAlert),
		priceBySymbol: make(map[string][]domain.PriceAlert),
		sharpByOwner:  make(map[int64][]domain.SharpTurnAlert),
		log:           log,
	}
}

// AddPrice inserts a price alert into both indexes. Duplicate identical
// alerts are allowed and treated as independent entries.
func (s *Store) AddPrice(a domain.PriceAlert) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.priceByOwner[a.Owner] = append(s.priceByOwner[a.Owner], a)
	s.priceBySymbol[a.Symbol] = append(s.priceBySymbol[a.Symbol], a)

	s.log.Debug("price alert added",
		slog.Int64("owner", a.Owner),
		slog.String("symbol", a.Symbol),
		slog.Float64("target", a.Target),
		slog.String("direction", string(a.Direction)),
	)
}

// RemovePrice deletes one instance of the exact alert tuple from both
// indexes. Removing an alert that is already gone is a safe no-op, which
// tolerates concurrent double-removal. It reports whether anything was
// removed.
func (s *Store) RemovePrice(a domain.PriceAlert) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	byOwner, removedOwner := removeFirst(s.priceByOwner[a.Owner], a)
	if !removedOwner {
		return false
	}

	if len(byOwner) == 0 {
		delete(s.priceByOwner, a.Owner)
	} else {
		s.priceByOwner[a.Owner] = byOwner
	}

	bySymbol, removedSymbol := removeFirst(s.priceBySymbol[a.Symbol], a)
	if !removedSymbol {
		// Both indexes are mutated under the same lock, so a tuple present
		// in one must be present in the other.
		s.log.Error("by-symbol index missing alert present in by-owner index",
			slog.Int64("owner", a.Owner),
			slog.String("symbol", a.Symbol),
		)
		return true
	}

	if len(bySymbol) == 0 {
		delete(s.priceBySymbol, a.Symbol)
	} else {
		s.priceBySymbol[a.Symbol] = bySymbol
	}

	return true
}

// AddSharpTurn records a sharp-turn alert. No secondary index is kept since
// the matching loop does not evaluate this kind.
func (s *Store) AddSharpTurn(a domain.SharpTurnAlert) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sharpByOwner[a.Owner] = append(s.sharpByOwner[a.Owner], a)

	s.log.Debug("sharp-turn alert added",
		slog.Int64("owner", a.Owner),
		slog.String("symbol", a.Symbol),
		slog.String("timeframe", a.Timeframe),
	)
}

// ListByOwner returns copies of both alert lists for the given owner.
func (s *Store) ListByOwner(owner int64) ([]domain.PriceAlert, []domain.SharpTurnAlert) {
	s.mu.Lock()
	defer s.mu.Unlock()

	price := make([]domain.PriceAlert, len(s.priceByOwner[owner]))
	copy(price, s.priceByOwner[owner])

	sharp := make([]domain.SharpTurnAlert, len(s.sharpByOwner[owner]))
	copy(sharp, s.sharpByOwner[owner])

	return price, sharp
}

// Symbols returns a snapshot of every symbol with at least one live price
// alert.
func (s *Store) Symbols() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	symbols := make([]string, 0, len(s.priceBySymbol))
	for symbol := range s.priceBySymbol {
		symbols = append(symbols, symbol)
	}

	return symbols
}

// AlertsFor returns a copy of the price alerts registered for a symbol, so
// callers can iterate while the store keeps mutating.
func (s *Store) AlertsFor(symbol string) []domain.PriceAlert {
	s.mu.Lock()
	defer s.mu.Unlock()

	alerts := make([]domain.PriceAlert, len(s.priceBySymbol[symbol]))
	copy(alerts, s.priceBySymbol[symbol])

	return alerts
}

// Counts returns the number of live price and sharp-turn alerts.
func (s *Store) Counts() (price, sharp int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, alerts := range s.priceByOwner {
		price += len(alerts)
	}
	for _, alerts := range s.sharpByOwner {
		sharp += len(alerts)
	}

	return price, sharp
}

func removeFirst(alerts []domain.PriceAlert, target domain.PriceAlert) ([]domain.PriceAlert, bool) {
	for i, a := range alerts {
		if a == target {
			return append(alerts[:i], alerts[i+1:]...), true
		}
	}

	return alerts, false
}
