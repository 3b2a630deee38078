// Package adapter wraps pkg/ctrader's wire-level client with the
// broker operations the trading engine actually calls: symbol
// resolution, price subscription, paced candle history, order
// placement, and position/account queries. Grounded on the teacher's
// pkg/exchanges/binance/spot/binance.go (signed-client structure, rate
// limiter wiring, status mapping) adapted from a multi-exchange REST
// surface to cTrader's single WebSocket session.
package adapter

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"ctrader-smc-engine/internal/errs"
	"ctrader-smc-engine/pkg/ctrader"
	"ctrader-smc-engine/pkg/protocol"
)

// Adapter is the single broker connection's domain-facing front door.
// Exactly one Adapter wraps exactly one *ctrader.Client, matching the
// "single engine owns one broker connection" constraint pkg/ctrader
// itself documents.
type Adapter struct {
	client *ctrader.Client
	accID  int64

	limiter *rate.Limiter

	catalogMu  sync.RWMutex
	byName     map[string]protocol.Symbol
	byID       map[int64]protocol.Symbol
	catalogAge time.Time

	prices *tickCache

	subMu sync.Mutex
	subs  map[int64]func(bid, ask float64)

	awaitMu  sync.Mutex
	awaiting map[string]chan confirmation

	posMu    sync.Mutex
	posCache []protocol.OpenPosition
	posAt    time.Time
}

// New builds an Adapter around an already-constructed (but not
// necessarily connected) *ctrader.Client. ctidTraderAccountID is the
// account every request is scoped to.
func New(client *ctrader.Client, ctidTraderAccountID int64) *Adapter {
	a := &Adapter{
		client:  client,
		accID:   ctidTraderAccountID,
		limiter: rate.NewLimiter(rate.Limit(1), 1), // 1 req/s, burst 1
		byName:  make(map[string]protocol.Symbol),
		byID:    make(map[int64]protocol.Symbol),
		prices:   newTickCache(),
		subs:     make(map[int64]func(bid, ask float64)),
		awaiting: make(map[string]chan confirmation),
	}
	go a.routeEvents()
	return a
}

// routeEvents drains the underlying client's event channel for the
// lifetime of the adapter, updating the tick cache and fan-out
// subscriptions on every SPOT_EVENT.
func (a *Adapter) routeEvents() {
	for ev := range a.client.Events() {
		switch ev.Kind {
		case ctrader.EventSpot:
			a.onSpot(ev.Spot)
		case ctrader.EventExecution:
			a.routeExecution(ev.Exec)
		case ctrader.EventOrderError:
			a.routeOrderError(ev.OrderErr)
		}
	}
}

func (a *Adapter) onSpot(spot protocol.SpotEvent) {
	bid := protocol.PriceFromWire(spot.Bid).InexactFloat64()
	ask := protocol.PriceFromWire(spot.Ask).InexactFloat64()
	a.prices.set(spot.SymbolID, bid, ask)

	a.subMu.Lock()
	handler := a.subs[spot.SymbolID]
	a.subMu.Unlock()
	if handler != nil {
		handler(bid, ask)
	}
}

// Spread returns the current bid/ask spread in pips for symbolName, or
// false if no tick has arrived yet.
func (a *Adapter) Spread(symbolName string) (pips float64, ok bool) {
	sym, found := a.lookupByName(symbolName)
	if !found {
		return 0, false
	}
	tick, found := a.prices.get(sym.SymbolID)
	if !found {
		return 0, false
	}
	pip := protocol.PipSize(symbolName).InexactFloat64()
	if pip == 0 {
		return 0, false
	}
	return (tick.ask - tick.bid) / pip, true
}

// MidPrice returns the current mid price for symbolName, or false if
// no tick has arrived yet. Used for cross-pair pip-value conversion
// (spec.md §4.G order prep step).
func (a *Adapter) MidPrice(symbolName string) (float64, bool) {
	sym, found := a.lookupByName(symbolName)
	if !found {
		return 0, false
	}
	tick, found := a.prices.get(sym.SymbolID)
	if !found {
		return 0, false
	}
	return (tick.bid + tick.ask) / 2, true
}

// BidAsk returns the current bid and ask for symbolName.
func (a *Adapter) BidAsk(symbolName string) (bid, ask float64, ok bool) {
	sym, found := a.lookupByName(symbolName)
	if !found {
		return 0, 0, false
	}
	tick, found := a.prices.get(sym.SymbolID)
	if !found {
		return 0, 0, false
	}
	return tick.bid, tick.ask, true
}

func (a *Adapter) lookupByName(name string) (protocol.Symbol, bool) {
	a.catalogMu.RLock()
	defer a.catalogMu.RUnlock()
	sym, ok := a.byName[name]
	return sym, ok
}

func (a *Adapter) lookupByID(id int64) (protocol.Symbol, bool) {
	a.catalogMu.RLock()
	defer a.catalogMu.RUnlock()
	sym, ok := a.byID[id]
	return sym, ok
}

// wait blocks for the shared request-pacing token, honoring ctx
// cancellation.
func (a *Adapter) wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

func classifyBrokerError(err error) error {
	if err == nil {
		return nil
	}
	if looksRateLimited(err.Error()) {
		return &errs.RateLimitError{Description: err.Error()}
	}
	return err
}

func looksRateLimited(msg string) bool {
	needles := []string{"429", "rate", "limit", "frequency", "too many"}
	lower := strings.ToLower(msg)
	for _, n := range needles {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

var errCatalogMiss = fmt.Errorf("adapter: symbol not found in catalog")
