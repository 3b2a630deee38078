package smc

import "testing"

func TestPoolKeyIsStableAcrossRebuilds(t *testing.T) {
	k1 := PoolKey(PoolSessionHigh, 1.234567, 1000)
	k2 := PoolKey(PoolSessionHigh, 1.2345671, 1000) // sub-5dp noise must not change the key
	if k1 != k2 {
		t.Fatalf("expected stable key, got %q vs %q", k1, k2)
	}

	k3 := PoolKey(PoolSessionHigh, 1.23458, 1000)
	if k1 == k3 {
		t.Fatal("expected a materially different price to change the key")
	}
}

func TestBuildPoolsPreservesSweptStateAcrossRebuild(t *testing.T) {
	now := mustParse("2026-07-31T10:00:00Z")
	prevSession := SessionSnapshot{Type: SessionAsia, High: 1.5, Low: 1.4, StartTime: now.UnixMilli(), CandleCount: 10}

	first := BuildPools(prevSession, 0, 0, 0, nil, nil, now)
	if len(first) != 2 {
		t.Fatalf("expected 2 session pools, got %d", len(first))
	}

	// Mark the session-high pool swept, then rebuild from scratch with it
	// as the existing set — the rebuilt pool must still show Swept=true.
	for i := range first {
		if first[i].Type == PoolSessionHigh {
			first[i].Swept = true
			first[i].SweptAt = now.UnixMilli()
			first[i].SweepDirection = DirectionBearish
		}
	}

	rebuilt := BuildPools(prevSession, 0, 0, 0, nil, first, now)
	found := false
	for _, p := range rebuilt {
		if p.Type == PoolSessionHigh {
			found = true
			if !p.Swept {
				t.Fatal("expected rebuilt pool to retain Swept=true")
			}
			if p.SweepDirection != DirectionBearish {
				t.Fatalf("expected sweep direction preserved, got %s", p.SweepDirection)
			}
		}
	}
	if !found {
		t.Fatal("expected a session-high pool in the rebuilt set")
	}
}

func TestDetectSweepHighAndLow(t *testing.T) {
	high := Pool{Type: PoolSessionHigh, Price: 1.5}
	bar := candleAt("2026-07-31T10:00:00Z", 1.49, 1.505, 1.485, 1.49)
	swept := DetectSweep(high, bar)
	if !swept.Swept || swept.SweepDirection != DirectionBearish {
		t.Fatalf("expected high sweep, got %+v", swept)
	}

	low := Pool{Type: PoolSessionLow, Price: 1.4}
	bar2 := candleAt("2026-07-31T10:15:00Z", 1.41, 1.415, 1.395, 1.408)
	swept2 := DetectSweep(low, bar2)
	if !swept2.Swept || swept2.SweepDirection != DirectionBullish {
		t.Fatalf("expected low sweep, got %+v", swept2)
	}

	// A bar that merely wicks through without closing back doesn't sweep.
	noSweep := DetectSweep(Pool{Type: PoolSessionHigh, Price: 1.5}, candleAt("2026-07-31T10:30:00Z", 1.49, 1.505, 1.485, 1.502))
	if noSweep.Swept {
		t.Fatal("expected no sweep when close stays beyond the level")
	}
}

func TestDetectSwingsRequiresConfirmationOnBothSides(t *testing.T) {
	bars := []Candle{
		candleAt("2026-07-31T00:00:00Z", 1, 1.10, 1.00, 1.05),
		candleAt("2026-07-31T00:15:00Z", 1, 1.20, 1.05, 1.10),
		candleAt("2026-07-31T00:30:00Z", 1, 1.30, 1.10, 1.20), // swing high candidate
		candleAt("2026-07-31T00:45:00Z", 1, 1.15, 1.05, 1.10),
		candleAt("2026-07-31T01:00:00Z", 1, 1.12, 1.02, 1.08),
	}
	swings := DetectSwings(bars, 2)
	if len(swings) != 1 || !swings[0].High || swings[0].Price != 1.30 {
		t.Fatalf("expected a single swing high at 1.30, got %+v", swings)
	}
}
