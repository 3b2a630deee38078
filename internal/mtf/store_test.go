package mtf

import (
	"testing"

	"ctrader-smc-engine/pkg/protocol"
)

func bar(ts, low, high int64) protocol.Bar {
	return protocol.Bar{UTCTimestampInMinutes: ts / 60000, Low: low, DeltaHigh: high - low}
}

func TestMergeBarsUpsertsByTimestamp(t *testing.T) {
	s := New()
	s.MergeBars("EURUSD", protocol.PeriodM5, []protocol.Bar{bar(0, 100, 110), bar(300000, 110, 120)})
	s.MergeBars("EURUSD", protocol.PeriodM5, []protocol.Bar{bar(300000, 110, 130)}) // unclosed bar update

	bars := s.Bars("EURUSD", protocol.PeriodM5)
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars after upsert, got %d", len(bars))
	}
	if bars[1].High() != 130 {
		t.Fatalf("expected updated high 130, got %d", bars[1].High())
	}
}

func TestMergeBarsRetainsAtMost300(t *testing.T) {
	s := New()
	var batch []protocol.Bar
	for i := int64(0); i < 400; i++ {
		batch = append(batch, bar(i*60000, i, i+1))
	}
	s.MergeBars("EURUSD", protocol.PeriodM1, batch)

	if got := s.Count("EURUSD", protocol.PeriodM1); got != MaxBarsPerSeries {
		t.Fatalf("expected retention cap %d, got %d", MaxBarsPerSeries, got)
	}
	bars := s.Bars("EURUSD", protocol.PeriodM1)
	if bars[len(bars)-1].Low != 399 {
		t.Fatalf("expected most recent bars retained, got last low %d", bars[len(bars)-1].Low)
	}
}

func TestBarsReturnsIndependentCopy(t *testing.T) {
	s := New()
	s.MergeBars("EURUSD", protocol.PeriodM15, []protocol.Bar{bar(0, 1, 2)})
	snap := s.Bars("EURUSD", protocol.PeriodM15)
	snap[0].Low = 999

	fresh := s.Bars("EURUSD", protocol.PeriodM15)
	if fresh[0].Low == 999 {
		t.Fatalf("mutating a snapshot must not affect the store")
	}
}
