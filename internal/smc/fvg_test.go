package smc

import "testing"

func TestDetectFVGBullishGap(t *testing.T) {
	c1 := m5CandleAt("2026-07-31T10:00:00Z", 1.100, 1.102, 1.098, 1.101)
	c2 := m5CandleAt("2026-07-31T10:05:00Z", 1.101, 1.115, 1.100, 1.112)
	c3 := m5CandleAt("2026-07-31T10:10:00Z", 1.112, 1.120, 1.110, 1.118)

	fvg, ok := DetectFVG(c1, c2, c3, DirectionBullish, 2, 0.0001)
	if !ok {
		t.Fatal("expected a bullish FVG")
	}
	if fvg.Low != c1.High || fvg.High != c3.Low {
		t.Fatalf("unexpected zone bounds: %+v", fvg)
	}
}

func TestDetectFVGRejectsBelowMinGap(t *testing.T) {
	c1 := m5CandleAt("2026-07-31T10:00:00Z", 1.100, 1.1001, 1.098, 1.1001)
	c2 := m5CandleAt("2026-07-31T10:05:00Z", 1.1001, 1.1005, 1.100, 1.1004)
	c3 := m5CandleAt("2026-07-31T10:10:00Z", 1.1004, 1.1006, 1.1002, 1.1005)

	_, ok := DetectFVG(c1, c2, c3, DirectionBullish, 5, 0.0001)
	if ok {
		t.Fatal("expected gap below minGapPips to be rejected")
	}
}

func TestUpdateMitigationTransitions(t *testing.T) {
	zone := FVG{Direction: DirectionBullish, High: 1.112, Low: 1.102}

	reenter := m5CandleAt("2026-07-31T10:15:00Z", 1.111, 1.113, 1.108, 1.110)
	mitigated := UpdateMitigation(zone, reenter)
	if !IsFVGMitigated(mitigated) {
		t.Fatal("expected mitigation on re-entry")
	}

	breakBelow := m5CandleAt("2026-07-31T10:20:00Z", 1.101, 1.102, 1.095, 1.098)
	invalidated := UpdateMitigation(zone, breakBelow)
	if !IsFVGInvalidated(invalidated) {
		t.Fatal("expected invalidation on full break below Low")
	}
}
