package engine

import (
	"testing"
	"time"

	"ctrader-smc-engine/internal/adapter"
	"ctrader-smc-engine/pkg/protocol"
)

func TestCooldownActive(t *testing.T) {
	now := time.Now()
	if cooldownActive(time.Time{}, false, now, 60000) {
		t.Fatal("no prior trade should never be in cooldown")
	}
	if !cooldownActive(now.Add(-30*time.Second), true, now, 60000) {
		t.Fatal("expected cooldown active 30s after a trade with a 60s cooldown")
	}
	if cooldownActive(now.Add(-90*time.Second), true, now, 60000) {
		t.Fatal("expected cooldown expired 90s after a trade with a 60s cooldown")
	}
}

// TestCandleGate is testable property 4: across any 5-minute boundary,
// at most one order per symbol is issued.
func TestCandleGate(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 10, 2, 30, 0, time.UTC)
	t1 := time.Date(2026, 1, 1, 10, 4, 59, 0, time.UTC) // same M5 bar as t0
	t2 := time.Date(2026, 1, 1, 10, 5, 1, 0, time.UTC)  // next M5 bar

	firstBucket := candleBucket(t0)
	if candleBucket(t1) != firstBucket {
		t.Fatal("expected t0 and t1 to fall in the same M5 bucket")
	}
	if candleBucket(t2) == firstBucket {
		t.Fatal("expected t2 to fall in the next M5 bucket")
	}

	if candleGateBlocks(firstBucket, false, firstBucket) {
		t.Fatal("no prior candle recorded should never block")
	}
	if !candleGateBlocks(firstBucket, true, candleBucket(t1)) {
		t.Fatal("expected the gate to block a second entry in the same M5 bar")
	}
	if candleGateBlocks(firstBucket, true, candleBucket(t2)) {
		t.Fatal("expected the gate to allow an entry in the next M5 bar")
	}
}

func TestStopAndTargetBuySell(t *testing.T) {
	sl, tp := stopAndTarget(protocol.TradeSideBuy, 1.10000, 0.0001, 20, 40)
	if sl >= 1.10000 || tp <= 1.10000 {
		t.Fatalf("expected BUY stop below and target above entry, got sl=%v tp=%v", sl, tp)
	}

	sl, tp = stopAndTarget(protocol.TradeSideSell, 1.10000, 0.0001, 20, 40)
	if sl <= 1.10000 || tp >= 1.10000 {
		t.Fatalf("expected SELL stop above and target below entry, got sl=%v tp=%v", sl, tp)
	}

	if sl, tp := stopAndTarget(protocol.TradeSideBuy, 1.1, 0, 20, 40); sl != 0 || tp != 0 {
		t.Fatalf("expected zero pip size to omit SL/TP, got sl=%v tp=%v", sl, tp)
	}
}

func TestCountBySymbol(t *testing.T) {
	positions := []adapter.Position{
		{SymbolName: "EURUSD"},
		{SymbolName: "GBPUSD"},
		{SymbolName: "EURUSD"},
	}
	if n := countBySymbol(positions, "EURUSD"); n != 2 {
		t.Fatalf("expected 2 EURUSD positions, got %d", n)
	}
	if n := countBySymbol(positions, "USDJPY"); n != 0 {
		t.Fatalf("expected 0 USDJPY positions, got %d", n)
	}
}
