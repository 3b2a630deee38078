package adapter

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"ctrader-smc-engine/pkg/protocol"
)

// posCacheTTL bounds how long a cached reconciliation is trusted
// before GetOpenPositions forces a fresh RECONCILE_REQ.
const posCacheTTL = 5 * time.Second

// Position is the adapter's decimal-scaled view of a live open
// position, grounded on teacher's reconciliation.Service diffing a
// broker-reported position list against local state.
type Position struct {
	PositionID int64
	SymbolName string
	Side       protocol.TradeSide
	Lots       decimal.Decimal
	EntryPrice decimal.Decimal
}

// GetOpenPositions returns the cached reconciliation snapshot if it is
// younger than posCacheTTL, otherwise performs a fresh
// ReconcilePositions call.
func (a *Adapter) GetOpenPositions(ctx context.Context) ([]Position, error) {
	a.posMu.Lock()
	fresh := !a.posAt.IsZero() && time.Since(a.posAt) < posCacheTTL
	cached := a.posCache
	a.posMu.Unlock()
	if fresh {
		return a.toPositions(cached), nil
	}
	return a.ReconcilePositions(ctx)
}

// ReconcilePositions always issues a fresh RECONCILE_REQ and refreshes
// the cache, bypassing posCacheTTL -- used by the trading engine's
// live-broker-reconciliation guard layer (spec.md §4.G step 5) where a
// stale view would defeat the point of the check.
func (a *Adapter) ReconcilePositions(ctx context.Context) ([]Position, error) {
	if err := a.wait(ctx); err != nil {
		return nil, err
	}
	env, err := a.client.Request(ctx, protocol.PayloadReconcileReq,
		protocol.ReconcileReq{CtidTraderAccountID: a.accID}.Marshal())
	if err != nil {
		return nil, classifyBrokerError(err)
	}
	res, err := protocol.DecodeReconcileRes(env.Payload)
	if err != nil {
		return nil, err
	}

	a.posMu.Lock()
	a.posCache = res.Positions
	a.posAt = time.Now()
	a.posMu.Unlock()

	return a.toPositions(res.Positions), nil
}

func (a *Adapter) toPositions(wire []protocol.OpenPosition) []Position {
	out := make([]Position, len(wire))
	for i, p := range wire {
		name := ""
		if sym, ok := a.lookupByID(p.SymbolID); ok {
			name = sym.SymbolName
		}
		out[i] = Position{
			PositionID: p.PositionID,
			SymbolName: name,
			Side:       p.TradeSide,
			Lots:       protocol.VolumeFromWire(p.Volume),
			EntryPrice: protocol.PriceFromWire(p.EntryPrice),
		}
	}
	return out
}

// AccountInfo is the adapter's decimal-scaled view of account balance.
type AccountInfo struct {
	Balance decimal.Decimal
	Equity  decimal.Decimal
}

// GetAccountInfo fetches the current balance/equity. Always hits the
// broker: the risk manager's equity baseline/circuit-breaker logic
// needs the current figure, never a cached one.
func (a *Adapter) GetAccountInfo(ctx context.Context) (AccountInfo, error) {
	if err := a.wait(ctx); err != nil {
		return AccountInfo{}, err
	}
	env, err := a.client.Request(ctx, protocol.PayloadTraderReq,
		protocol.TraderReq{CtidTraderAccountID: a.accID}.Marshal())
	if err != nil {
		return AccountInfo{}, classifyBrokerError(err)
	}
	res, err := protocol.DecodeTraderRes(env.Payload)
	if err != nil {
		return AccountInfo{}, err
	}
	return AccountInfo{Balance: protocol.PriceFromWire(res.Balance), Equity: protocol.PriceFromWire(res.Equity)}, nil
}

// defaultVolumeMin/Max/Step are the fallback tradable volume
// constraints. The cTrader symbol catalog response this repo decodes
// (SYMBOLS_LIST_RES) does not itself carry min/max/step -- those ride
// on a separate SYMBOL_BY_ID response this spec does not otherwise
// need, so a conservative default is used instead. VolumeSpecs returns
// these defaults for every symbol; there is no per-symbol override.
const (
	defaultVolumeMin  = 0.01
	defaultVolumeMax  = 50.0
	defaultVolumeStep = 0.01
)

// VolumeSpecs returns the tradable volume constraints for symbolName,
// in risk.VolumeSpecs-compatible float64 lots.
func (a *Adapter) VolumeSpecs(symbolName string) (min, max, step float64) {
	return defaultVolumeMin, defaultVolumeMax, defaultVolumeStep
}
