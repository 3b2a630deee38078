package adapter

import (
	"context"
	"fmt"
	"time"

	"ctrader-smc-engine/pkg/protocol"
)

// catalogTTL bounds how long a loaded symbol catalog is trusted before
// a fresh SYMBOLS_LIST_REQ is issued on next miss.
const catalogTTL = 6 * time.Hour

// resolveSymbol returns the catalog entry for name, loading the full
// symbol list on first miss (or after catalogTTL has elapsed).
func (a *Adapter) resolveSymbol(ctx context.Context, name string) (protocol.Symbol, error) {
	if sym, ok := a.lookupByName(name); ok && !a.catalogStale() {
		return sym, nil
	}
	if err := a.loadCatalog(ctx); err != nil {
		return protocol.Symbol{}, err
	}
	sym, ok := a.lookupByName(name)
	if !ok {
		return protocol.Symbol{}, fmt.Errorf("%w: %s", errCatalogMiss, name)
	}
	return sym, nil
}

func (a *Adapter) catalogStale() bool {
	a.catalogMu.RLock()
	defer a.catalogMu.RUnlock()
	return a.catalogAge.IsZero() || time.Since(a.catalogAge) > catalogTTL
}

func (a *Adapter) loadCatalog(ctx context.Context) error {
	if err := a.wait(ctx); err != nil {
		return err
	}

	env, err := a.client.Request(ctx, protocol.PayloadSymbolsListReq,
		protocol.SymbolsListReq{CtidTraderAccountID: a.accID}.Marshal())
	if err != nil {
		return classifyBrokerError(err)
	}
	res, err := protocol.DecodeSymbolsListRes(env.Payload)
	if err != nil {
		return fmt.Errorf("adapter: decode symbols list: %w", err)
	}

	byName := make(map[string]protocol.Symbol, len(res.Symbols))
	byID := make(map[int64]protocol.Symbol, len(res.Symbols))
	for _, s := range res.Symbols {
		byName[s.SymbolName] = s
		byID[s.SymbolID] = s
	}

	a.catalogMu.Lock()
	a.byName = byName
	a.byID = byID
	a.catalogAge = time.Now()
	a.catalogMu.Unlock()
	return nil
}

// SymbolInfo returns the catalog entry for a symbol, refreshing the
// catalog first when it is missing or stale.
func (a *Adapter) SymbolInfo(ctx context.Context, name string) (protocol.Symbol, error) {
	return a.resolveSymbol(ctx, name)
}
