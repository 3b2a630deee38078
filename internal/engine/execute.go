package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ctrader-smc-engine/internal/adapter"
	"ctrader-smc-engine/internal/events"
	"ctrader-smc-engine/internal/monitor"
	"ctrader-smc-engine/internal/risk"
	"ctrader-smc-engine/internal/store"
	"ctrader-smc-engine/internal/strategy"
	"ctrader-smc-engine/internal/telemetry"
	"ctrader-smc-engine/pkg/protocol"
)

// executeSignal is the atomic six-layer guard spec.md §4.G describes:
// a per-symbol in-flight lock wraps cooldown, candle-gate, risk-gate,
// live-broker-reconciliation, DB, and total-position checks, followed
// by order prep/submit with safety-latch reconciliation on ambiguous
// failure. Every early return clears the lock with a reason (fail).
func (e *Engine) executeSignal(ctx context.Context, symbol string, side protocol.TradeSide, sig strategy.Signal) {
	if _, ok := e.acquireLock(symbol); !ok {
		return
	}

	fail := func(reason string) {
		e.releaseLock(symbol, "failed")
		e.logWarn(symbol, "executeSignal rejected: "+reason, nil)
	}

	now := time.Now()

	// 1. Cooldown.
	e.mu.Lock()
	last, hasLast := e.lastTrade[symbol]
	e.mu.Unlock()
	if cooldownActive(last, hasLast, now, e.cfg.Symbol.CooldownMs) {
		fail("cooldown active")
		return
	}

	// 2. Candle gate: at most one entry per M5 bar.
	candleTs := candleBucket(now)
	e.mu.Lock()
	lastCandle, hasCandle := e.lastCandle[symbol]
	e.mu.Unlock()
	if candleGateBlocks(lastCandle, hasCandle, candleTs) {
		fail("candle gate: already traded this M5 bar")
		return
	}

	// 3. Risk gate.
	if e.cfg.Risk != nil {
		if res := e.cfg.Risk.CanOpenPosition(); !res.Allowed {
			if res.Reason == "daily_loss_limit" {
				e.publish(events.EventRiskAlert, "circuit breaker tripped for "+symbol+": daily loss limit reached")
			}
			fail("risk denied: " + res.Reason)
			return
		}
	}

	// 4. Live broker reconciliation.
	if _, err := e.cfg.Adapter.ReconcilePositions(ctx); err != nil {
		fail("reconcile positions: " + err.Error())
		return
	}
	openPositions, err := e.cfg.Adapter.GetOpenPositions(ctx)
	if err != nil {
		fail("get open positions: " + err.Error())
		return
	}
	symbolOpen := countBySymbol(openPositions, symbol)
	if e.cfg.Symbol.MaxTradesPerSymbol > 0 && symbolOpen >= e.cfg.Symbol.MaxTradesPerSymbol {
		fail("broker: max trades per symbol reached")
		return
	}

	// 5. DB check.
	if e.cfg.Store != nil {
		n, err := e.cfg.Store.CountOpenPositions(e.cfg.UserID, e.cfg.BotID, symbol)
		if err != nil {
			fail("db count open positions: " + err.Error())
			return
		}
		if e.cfg.Symbol.MaxTradesPerSymbol > 0 && n >= e.cfg.Symbol.MaxTradesPerSymbol {
			fail("db: max trades per symbol reached")
			return
		}
	}

	// 6. Total positions.
	if e.cfg.Symbol.MaxPositions > 0 && len(openPositions) >= e.cfg.Symbol.MaxPositions {
		fail("max total positions reached")
		return
	}

	// Prepare the order.
	acct, err := e.cfg.Adapter.GetAccountInfo(ctx)
	if err != nil {
		fail("account info: " + err.Error())
		return
	}
	bid, ask, ok := e.cfg.Adapter.BidAsk(symbol)
	if !ok {
		fail("no current price for " + symbol)
		return
	}
	entryPrice := ask
	if side == protocol.TradeSideSell {
		entryPrice = bid
	}

	pip := protocol.PipSize(symbol).InexactFloat64()
	slPips, tpPips := e.cfg.Symbol.StopLossPips, e.cfg.Symbol.TakeProfitPips
	sl, tp := stopAndTarget(side, entryPrice, pip, slPips, tpPips)

	volMin, volMax, volStep := e.cfg.Adapter.VolumeSpecs(symbol)
	specs := &risk.VolumeSpecs{Min: volMin, Max: volMax, Step: volStep}
	sizing := e.cfg.Risk.CalculatePositionSize(acct.Balance.InexactFloat64(), slPips, pip, specs)
	if !sizing.CanTrade {
		fail("position sizing: " + sizing.Reason)
		return
	}

	e.setInFlightStatus(symbol, "sent")

	orderReq := adapter.OrderRequest{
		Symbol:        symbol,
		Side:          side,
		Lots:          decimal.NewFromFloat(sizing.LotSize),
		MaxSpreadPips: e.cfg.Symbol.MaxSpreadPips,
	}
	if sl > 0 {
		orderReq.StopLoss = decimal.NewFromFloat(sl)
	}
	if tp > 0 {
		orderReq.TakeProfit = decimal.NewFromFloat(tp)
	}

	var orderTimer *monitor.Timer
	if e.cfg.Metrics != nil {
		orderTimer = monitor.NewTimer(e.cfg.Metrics.OrderLatency)
	}
	result, placeErr := e.cfg.Adapter.PlaceOrder(ctx, orderReq)
	if orderTimer != nil {
		orderTimer.Stop()
	}
	if placeErr == nil && result.Confirmed && e.cfg.Metrics != nil {
		e.cfg.Metrics.IncrementOrders()
	}
	if placeErr != nil || !result.Confirmed {
		// Safety latch: the broker may have executed despite the
		// transport-level error. Reconcile once more and look for a
		// symbol position that wasn't there before.
		newPos, found := e.safetyLatch(ctx, symbol, openPositions)
		if !found {
			fail(fmt.Sprintf("place order: %v (safety latch found nothing)", placeErr))
			return
		}
		e.confirmTrade(symbol, side, sig, sizing, entryPrice, sl, tp, newPos.PositionID, now, candleTs)
		return
	}

	e.confirmTrade(symbol, side, sig, sizing, entryPrice, sl, tp, result.PositionID, now, candleTs)
}

// setInFlightStatus updates the in-flight record's status without
// releasing it (used between submit and confirmation).
func (e *Engine) setInFlightStatus(symbol, status string) {
	e.mu.Lock()
	if rec, ok := e.inFlight[symbol]; ok {
		rec.status = status
	}
	e.mu.Unlock()
}

// safetyLatch reconciles once more and reports whether a new position
// for symbol appeared that wasn't in before (spec.md §4.G, §9
// safetyLatchTriggered: set whenever this path runs and finds a
// match, regardless of how ambiguous the original failure was).
func (e *Engine) safetyLatch(ctx context.Context, symbol string, before []adapter.Position) (adapter.Position, bool) {
	after, err := e.cfg.Adapter.ReconcilePositions(ctx)
	if err != nil {
		return adapter.Position{}, false
	}
	beforeIDs := make(map[int64]bool, len(before))
	for _, p := range before {
		beforeIDs[p.PositionID] = true
	}
	for _, p := range after {
		if p.SymbolName == symbol && !beforeIDs[p.PositionID] {
			e.publish(events.EventTrade, map[string]any{"symbol": symbol, "safetyLatchTriggered": true, "positionId": p.PositionID})
			e.log(telemetry.CategoryTrade, symbol, "safety latch: broker executed despite submit error", map[string]any{"positionId": p.PositionID})
			return p, true
		}
	}
	return adapter.Position{}, false
}

// confirmTrade records the successful outcome: trade bookkeeping,
// FSM notification when the SMC strategy produced the signal, DB
// persistence, and lock release.
func (e *Engine) confirmTrade(symbol string, side protocol.TradeSide, sig strategy.Signal, sizing risk.PositionSizeResult, entryPrice, sl, tp float64, positionID int64, now time.Time, candleTs int64) {
	e.mu.Lock()
	e.lastTrade[symbol] = now
	e.lastCandle[symbol] = candleTs
	e.tradeCount[symbol]++
	e.mu.Unlock()

	if sig.Source == "smc" {
		if smc, ok := e.cfg.SMC[symbol]; ok {
			smc.Engine().OnTradeExecuted(now)
		}
	}

	if e.cfg.Store != nil {
		pos := store.ForexPosition{
			UserID:     e.cfg.UserID,
			BotID:      e.cfg.BotID,
			Symbol:     symbol,
			PositionID: positionID,
			Direction:  string(sig.Direction),
			Volume:     sizing.LotSize,
			EntryPrice: entryPrice,
			StopLoss:   sl,
			TakeProfit: tp,
			OpenedAt:   now,
		}
		if err := e.cfg.Store.InsertPosition(pos); err != nil {
			e.logWarn(symbol, "failed to persist opened position", map[string]any{"error": err.Error()})
		}
	}

	e.publish(events.EventTrade, map[string]any{
		"symbol": symbol, "side": side, "lots": sizing.LotSize,
		"entryPrice": entryPrice, "stopLoss": sl, "takeProfit": tp,
		"positionId": positionID, "reason": sig.Reason, "source": sig.Source,
	})
	e.log(telemetry.CategoryTrade, symbol, "order confirmed", map[string]any{
		"side": side, "lots": sizing.LotSize, "positionId": positionID, "source": sig.Source,
	})
	e.releaseLock(symbol, "confirmed")
}

// cooldownActive reports whether symbol is still within its
// post-trade cooldown window (spec.md §4.G execute guard layer 1).
func cooldownActive(last time.Time, hasLast bool, now time.Time, cooldownMs int64) bool {
	return hasLast && now.Sub(last) < time.Duration(cooldownMs)*time.Millisecond
}

// candleBucket floors now to the start of its containing 5-minute
// bar, matching lastTradedCandleTimestamp's definition in spec.md §4.G.
func candleBucket(now time.Time) int64 {
	return now.Truncate(5 * time.Minute).UnixMilli()
}

// candleGateBlocks reports whether symbol already traded within the
// M5 bar containing candleTs (spec.md §4.G execute guard layer 2).
func candleGateBlocks(lastCandle int64, hasCandle bool, candleTs int64) bool {
	return hasCandle && lastCandle == candleTs
}

func countBySymbol(positions []adapter.Position, symbol string) int {
	n := 0
	for _, p := range positions {
		if p.SymbolName == symbol {
			n++
		}
	}
	return n
}

// stopAndTarget computes SL/TP prices from a fixed pip distance on
// either side of entryPrice. Zero pip settings omit SL/TP entirely.
func stopAndTarget(side protocol.TradeSide, entryPrice, pip, slPips, tpPips float64) (sl, tp float64) {
	if pip <= 0 {
		return 0, 0
	}
	switch side {
	case protocol.TradeSideBuy:
		if slPips > 0 {
			sl = entryPrice - slPips*pip
		}
		if tpPips > 0 {
			tp = entryPrice + tpPips*pip
		}
	case protocol.TradeSideSell:
		if slPips > 0 {
			sl = entryPrice + slPips*pip
		}
		if tpPips > 0 {
			tp = entryPrice - tpPips*pip
		}
	}
	return sl, tp
}
