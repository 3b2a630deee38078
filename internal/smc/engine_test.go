package smc

import (
	"testing"
	"time"
)

func buildLondonHistory() []Candle {
	// London session runs 07:00..12:00 UTC, M15 bars every 15 minutes.
	// Peaks at 1.1050, bottoms at 1.1000 partway through -- a 50 pip
	// range grades as A.
	var out []Candle
	start := mustParse("2026-07-31T07:00:00Z")
	prices := []float64{
		1.1010, 1.1020, 1.1015, 1.1030, 1.1050, 1.1040,
		1.1025, 1.1000, 1.1010, 1.1018,
	}
	for i, p := range prices {
		ts := start.Add(time.Duration(i) * 15 * time.Minute)
		out = append(out, Candle{
			TimestampMs: ts.UnixMilli(),
			CloseTimeMs: ts.Add(15 * time.Minute).UnixMilli(),
			Open:        p,
			High:        p + 0.0005,
			Low:         p - 0.0005,
			Close:       p,
		})
	}
	// Force the true range extremes explicitly.
	out[4].High = 1.1050
	out[7].Low = 1.1000
	return out
}

func testConfig() SymbolConfig {
	return SymbolConfig{
		PipSize:             0.0001,
		SweepMinPips:        0,
		CHOCHMinPips:        5,
		FVGMinGapPips:       2,
		MaxTradesPerSession: 3,
		Session:             DefaultSessionConfig(),
	}
}

// TestEndToEndSweepCHoCHFVGEntry exercises the full sweep -> CHoCH ->
// FVG -> mitigation -> entry -> trade_executed path (scenario S4).
func TestEndToEndSweepCHoCHFVGEntry(t *testing.T) {
	eng := NewSymbolEngine("EURUSD", testConfig())

	bootAt := mustParse("2026-07-31T13:05:00Z")
	if d := eng.Boot(bootAt, buildLondonHistory()); d != nil {
		t.Fatalf("boot should not itself emit a decision, got %+v", d)
	}
	if eng.State != StateWaitSweep {
		t.Fatalf("expected WAIT_SWEEP after boot, got %s", eng.State)
	}

	swingLow := SwingPoint{High: false, Price: 1.1020, Timestamp: bootAt.UnixMilli()}

	sweepBar := candleAt("2026-07-31T13:15:00Z", 1.1040, 1.1060, 1.1035, 1.1045)
	eng.OnClosedM15(sweepBar, 0, 0, 0, []SwingPoint{swingLow}, mustParse("2026-07-31T13:16:00Z"))
	if eng.State != StateWaitCHoCH {
		t.Fatalf("expected WAIT_CHOCH after sweep, got %s", eng.State)
	}

	chochBar := candleAt("2026-07-31T13:30:00Z", 1.1040, 1.1042, 1.0998, 1.1000)
	eng.OnClosedM15(chochBar, 0, 0, 0, []SwingPoint{swingLow}, mustParse("2026-07-31T13:31:00Z"))
	if eng.State != StateWaitFVG {
		t.Fatalf("expected WAIT_FVG after CHoCH, got %s", eng.State)
	}
	if eng.ChochDirection != DirectionBearish {
		t.Fatalf("expected bearish CHoCH direction, got %s", eng.ChochDirection)
	}

	c1 := m5CandleAt("2026-07-31T13:35:00Z", 1.1008, 1.1010, 1.1005, 1.1005)
	c2 := m5CandleAt("2026-07-31T13:40:00Z", 1.1005, 1.1006, 1.0997, 1.0998)
	c3 := m5CandleAt("2026-07-31T13:45:00Z", 1.0998, 1.0999, 1.0993, 1.0995)
	eng.OnClosedM5(c1, c2, c3, mustParse("2026-07-31T13:46:00Z"))
	if eng.State != StateWaitMitigation {
		t.Fatalf("expected WAIT_MITIGATION after FVG detection, got %s", eng.State)
	}

	mitigationBar := m5CandleAt("2026-07-31T13:50:00Z", 1.0996, 1.1000, 1.0992, 1.0990)
	eng.OnClosedM5(c2, c3, mitigationBar, mustParse("2026-07-31T13:51:00Z"))
	if eng.State != StateWaitEntry {
		t.Fatalf("expected WAIT_ENTRY after mitigation, got %s", eng.State)
	}

	dir, ready := eng.ReadyToTrade()
	if !ready || dir != DirectionBearish {
		t.Fatalf("expected ready-to-trade bearish, got dir=%s ready=%v", dir, ready)
	}

	decision := eng.OnTradeExecuted(mustParse("2026-07-31T13:52:00Z"))
	if decision == nil || decision.Type != DecisionTrade {
		t.Fatalf("expected a TRADE decision, got %+v", decision)
	}
	if eng.State != StateCooldown {
		t.Fatalf("expected COOLDOWN after trade, got %s", eng.State)
	}
}

// TestStateTimeoutExpiresSetup confirms the watchdog path resets to
// IDLE and logs an EXPIRE decision once a state's timeout elapses.
func TestStateTimeoutExpiresSetup(t *testing.T) {
	eng := NewSymbolEngine("EURUSD", testConfig())
	eng.Boot(mustParse("2026-07-31T13:05:00Z"), buildLondonHistory())
	if eng.State != StateWaitSweep {
		t.Fatalf("expected WAIT_SWEEP, got %s", eng.State)
	}

	// WAIT_SWEEP times out after 90 minutes.
	if d := eng.Tick(mustParse("2026-07-31T14:00:00Z")); d != nil {
		t.Fatalf("expected no timeout yet, got %+v", d)
	}

	d2 := eng.Tick(mustParse("2026-07-31T15:00:00Z"))
	if d2 == nil || d2.Type != DecisionExpire {
		t.Fatalf("expected an EXPIRE decision after timeout, got %+v", d2)
	}
	if eng.State != StateIdle {
		t.Fatalf("expected IDLE after timeout, got %s", eng.State)
	}
}

// TestNoLookAheadCandleGate confirms a candle whose close time is still
// in the future is never reported as closed.
func TestNoLookAheadCandleGate(t *testing.T) {
	now := mustParse("2026-07-31T13:00:00Z")
	bar := candleAt("2026-07-31T12:50:00Z", 1.1, 1.11, 1.09, 1.105) // closes at 13:05
	if bar.IsClosed(now) {
		t.Fatal("candle closing in the future must not report as closed")
	}
	later := mustParse("2026-07-31T13:05:00Z")
	if !bar.IsClosed(later) {
		t.Fatal("candle should be closed once nowUtc reaches its close time")
	}
}

// TestSessionRolloverResetsFSMAndTradeCount ensures a session change
// mid-setup drops back to IDLE and clears the per-session trade count.
func TestSessionRolloverResetsFSMAndTradeCount(t *testing.T) {
	eng := NewSymbolEngine("EURUSD", testConfig())
	eng.Boot(mustParse("2026-07-31T13:05:00Z"), buildLondonHistory())
	eng.TradesThisSession = 2

	// Feed a bar from a different session (NY -> off-session at 21:05).
	offSessionBar := candleAt("2026-07-31T21:05:00Z", 1.1, 1.101, 1.099, 1.1005)
	eng.OnClosedM15(offSessionBar, 0, 0, 0, nil, mustParse("2026-07-31T21:06:00Z"))

	if eng.State != StateIdle {
		t.Fatalf("expected IDLE after session rollover, got %s", eng.State)
	}
	if eng.TradesThisSession != 0 {
		t.Fatalf("expected trade count reset on rollover, got %d", eng.TradesThisSession)
	}
}
