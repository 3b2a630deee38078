package store

import "testing"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBotConfigRoundTripsSymbolsAsArray(t *testing.T) {
	s := newTestStore(t)
	cfg := BotConfig{
		UserID: "u1", BotID: "b1", StrategyType: "HYBRID",
		Symbols: []string{"EURUSD", "GBPUSD"}, MaxPositions: 5,
		CooldownMs: 60000, MaxSpread: 3.0, MaxTradesPerSymbol: 1,
	}
	if err := s.UpsertBotConfig(cfg); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	got, err := s.GetBotConfig("u1", "b1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Symbols) != 2 || got.Symbols[0] != "EURUSD" {
		t.Fatalf("expected canonical symbol array, got %v", got.Symbols)
	}
}

func TestOpenPositionCounting(t *testing.T) {
	s := newTestStore(t)
	for i := int64(1); i <= 3; i++ {
		if err := s.InsertPosition(ForexPosition{UserID: "u1", BotID: "b1", Symbol: "EURUSD", PositionID: i, Direction: "BUY", Volume: 0.1, EntryPrice: 1.1}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	n, err := s.CountOpenPositions("u1", "b1", "EURUSD")
	if err != nil || n != 3 {
		t.Fatalf("expected 3 open positions, got %d err=%v", n, err)
	}

	if err := s.ClosePosition("u1", "b1", 1); err != nil {
		t.Fatalf("close: %v", err)
	}
	n, _ = s.CountOpenPositions("u1", "b1", "EURUSD")
	if n != 2 {
		t.Fatalf("expected 2 open after close, got %d", n)
	}
}

func TestRiskStateRoundTrip(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.LoadRiskState("u1", "b1"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound before first save, got %v", err)
	}
	rs := RiskState{UserID: "u1", BotID: "b1", DailyStartEquity: 10000, LastResetDate: "2026-07-31", TradingBlocked: true, BlockReason: "daily loss limit exceeded"}
	if err := s.SaveRiskState(rs); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.LoadRiskState("u1", "b1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !got.TradingBlocked || got.BlockReason != rs.BlockReason {
		t.Fatalf("risk state did not round-trip: %+v", got)
	}
}

func TestLiquidityPoolSweptSurvivesRebuild(t *testing.T) {
	s := newTestStore(t)
	p := LiquidityPoolRow{BotID: "b1", Symbol: "EURUSD", PoolKey: "SESSION_HIGH:1.10500:1000", Type: "SESSION_HIGH", Price: 1.105, Timestamp: 1000, Priority: 1, CreatedAt: 1000}
	if err := s.SavePool(p); err != nil {
		t.Fatalf("save: %v", err)
	}
	p.Swept = true
	p.SweptAt = 2000
	if err := s.SavePool(p); err != nil {
		t.Fatalf("save swept: %v", err)
	}

	pools, err := s.LoadPools("b1", "EURUSD", 0)
	if err != nil || len(pools) != 1 {
		t.Fatalf("expected 1 pool, got %d err=%v", len(pools), err)
	}
	if !pools[0].Swept {
		t.Fatalf("expected swept bit to persist")
	}
}
