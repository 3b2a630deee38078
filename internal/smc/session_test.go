package smc

import "testing"

func TestClassifyMinuteSessions(t *testing.T) {
	cfg := DefaultSessionConfig()
	cases := []struct {
		minute int
		want   SessionType
	}{
		{0, SessionAsia},
		{419, SessionAsia},
		{420, SessionLondon},
		{719, SessionLondon},
		{720, SessionNY},
		{1259, SessionNY},
		{1260, SessionOff},
		{1379, SessionOff},
		{1380, SessionAsia},
	}
	for _, c := range cases {
		if got := ClassifyMinute(c.minute, cfg); got != c.want {
			t.Errorf("ClassifyMinute(%d) = %s, want %s", c.minute, got, c.want)
		}
	}
}

func TestTradingDayAnchorUsesNYClose(t *testing.T) {
	cfg := DefaultSessionConfig()
	// 22:00 UTC is after NY close (21:00) so the anchor is today's close.
	today := mustParse("2026-07-31T22:00:00Z")
	anchor := TradingDayAnchor(today, cfg)
	if anchor.Hour() != 21 || anchor.Day() != 31 {
		t.Fatalf("expected anchor at 21:00 on the 31st, got %v", anchor)
	}

	// 05:00 UTC is before NY close, so the anchor rolls back to yesterday.
	early := mustParse("2026-07-31T05:00:00Z")
	anchor2 := TradingDayAnchor(early, cfg)
	if anchor2.Day() != 30 {
		t.Fatalf("expected anchor to roll back to the 30th, got %v", anchor2)
	}
}

func TestSessionEngineUpdateOnClosedM15RollsOver(t *testing.T) {
	eng := NewSessionEngine(DefaultSessionConfig())

	londonBar := candleAt("2026-07-31T08:00:00Z", 1.1, 1.105, 1.095, 1.102)
	if eng.UpdateOnClosedM15(londonBar) {
		t.Fatal("first bar should not roll over")
	}

	nyBar := candleAt("2026-07-31T13:00:00Z", 1.102, 1.11, 1.10, 1.108)
	if !eng.UpdateOnClosedM15(nyBar) {
		t.Fatal("session change should report rollover")
	}

	prev, ok := eng.Previous()
	if !ok || prev.Type != SessionLondon {
		t.Fatalf("expected previous session to be LONDON, got %+v ok=%v", prev, ok)
	}
	if eng.Current().Type != SessionNY {
		t.Fatalf("expected current session to be NY, got %s", eng.Current().Type)
	}
}
