package adapter

import (
	"context"

	"ctrader-smc-engine/internal/balance"
	"ctrader-smc-engine/internal/reconciliation"
)

// ReconcileView narrows an *Adapter to the minimal broker-read shape
// internal/reconciliation.ExchangeClient depends on, so that package
// never needs to import internal/adapter (and its decimal/protocol
// dependency chain) just to audit position counts.
type ReconcileView struct{ *Adapter }

// ReconcilePositions satisfies reconciliation.ExchangeClient.
func (v ReconcileView) ReconcilePositions(ctx context.Context) ([]reconciliation.Position, error) {
	positions, err := v.Adapter.ReconcilePositions(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]reconciliation.Position, len(positions))
	for i, p := range positions {
		out[i] = reconciliation.Position{Symbol: p.SymbolName, PositionID: p.PositionID}
	}
	return out, nil
}

// BalanceView narrows an *Adapter to the minimal account-read shape
// internal/balance.Source depends on, converting the decimal-scaled
// AccountInfo the wire protocol produces to the float64 pair that
// package's cache stores (balance/equity are never compared against
// the exchange for a literal re-reconciliation, so the precision loss
// is harmless there).
type BalanceView struct{ *Adapter }

// GetAccountInfo satisfies balance.Source.
func (v BalanceView) GetAccountInfo(ctx context.Context) (balance.AccountInfo, error) {
	info, err := v.Adapter.GetAccountInfo(ctx)
	if err != nil {
		return balance.AccountInfo{}, err
	}
	return balance.AccountInfo{
		Balance: info.Balance.InexactFloat64(),
		Equity:  info.Equity.InexactFloat64(),
	}, nil
}
