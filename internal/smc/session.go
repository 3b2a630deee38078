package smc

import "time"

// SessionConfig carries the configurable session window boundaries,
// expressed as minutes since UTC midnight. Asia is not separately
// configurable: it is the fixed wrap-around window 23:00..07:00 UTC,
// matching spec.md §4.F's "ASIA (1380..420 wrap)".
type SessionConfig struct {
	LondonStart int // default 420  (07:00 UTC)
	LondonEnd   int // default 720  (12:00 UTC)
	NYStart     int // default 720  (12:00 UTC)
	NYEnd       int // default 1260 (21:00 UTC)
}

// DefaultSessionConfig returns the documented defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{LondonStart: 420, LondonEnd: 720, NYStart: 720, NYEnd: 1260}
}

const minutesPerDay = 1440

// asiaStart/asiaEnd are the wrap-around Asia window boundaries: 23:00
// UTC through 07:00 UTC the next day.
const asiaStart = 1380
const asiaEnd = 420

// ClassifyMinute maps a minute-of-day (0..1439) to its session,
// matching spec.md §4.F exactly: ASIA (1380..420 wrap), LONDON
// (420..720), NY (720..1260), otherwise OFF_SESSION.
func ClassifyMinute(minuteOfDay int, cfg SessionConfig) SessionType {
	m := ((minuteOfDay % minutesPerDay) + minutesPerDay) % minutesPerDay
	if m >= asiaStart || m < asiaEnd {
		return SessionAsia
	}
	if m >= cfg.LondonStart && m < cfg.LondonEnd {
		return SessionLondon
	}
	if m >= cfg.NYStart && m < cfg.NYEnd {
		return SessionNY
	}
	return SessionOff
}

// MinuteOfDay returns t's minute-of-day in UTC.
func MinuteOfDay(t time.Time) int {
	u := t.UTC()
	return u.Hour()*60 + u.Minute()
}

// TradingDayAnchor returns the most recent NY-close (cfg.NYEnd,
// default 21:00 UTC) timestamp at or before now — the trading-day
// boundary, not calendar midnight, so the Asia session (which crosses
// 00:00 UTC) stays within a single trading day.
func TradingDayAnchor(now time.Time, cfg SessionConfig) time.Time {
	u := now.UTC()
	anchor := time.Date(u.Year(), u.Month(), u.Day(), cfg.NYEnd/60, cfg.NYEnd%60, 0, 0, time.UTC)
	if anchor.After(u) {
		anchor = anchor.AddDate(0, 0, -1)
	}
	return anchor
}

// SessionEngine classifies closed M15 bars into sessions and tracks
// the current in-progress session plus the last completed one.
type SessionEngine struct {
	cfg SessionConfig

	current  SessionSnapshot
	previous SessionSnapshot
	hasPrev  bool
}

// NewSessionEngine builds a session engine with the given config.
func NewSessionEngine(cfg SessionConfig) *SessionEngine {
	return &SessionEngine{cfg: cfg}
}

// Previous returns the last completed session snapshot and whether one
// has been populated yet.
func (e *SessionEngine) Previous() (SessionSnapshot, bool) { return e.previous, e.hasPrev }

// Current returns the in-progress session snapshot.
func (e *SessionEngine) Current() SessionSnapshot { return e.current }

// Boot deterministically computes the previous session window from
// current UTC time plus config, and fills its {high, low, range, open,
// close} from whatever M15 history is available, so the engine has a
// usable previousSession immediately rather than waiting for the next
// live session rollover.
func (e *SessionEngine) Boot(nowUtc time.Time, m15History []Candle) {
	session := ClassifyMinute(MinuteOfDay(nowUtc), e.cfg)
	// Walk backward from the current minute to find the start of the
	// most recently completed session window (a different session than
	// "now", or the prior occurrence of the same session if now is
	// itself mid-session — either way we want the last *closed* window).
	start, end := e.lastCompletedWindow(nowUtc, session)

	snap := SessionSnapshot{Type: sessionAt(start, e.cfg), StartTime: start.UnixMilli(), EndTime: end.UnixMilli(), IsComplete: true}
	first := true
	for _, c := range m15History {
		if c.TimestampMs < start.UnixMilli() || c.TimestampMs >= end.UnixMilli() {
			continue
		}
		if first {
			snap.Open = c.Open
			snap.High = c.High
			snap.Low = c.Low
			first = false
		} else {
			if c.High > snap.High {
				snap.High = c.High
			}
			if c.Low < snap.Low {
				snap.Low = c.Low
			}
		}
		snap.Close = c.Close
		snap.CandleCount++
	}
	if !first {
		e.previous = snap
		e.hasPrev = true
	}
	e.current = SessionSnapshot{Type: session, StartTime: end.UnixMilli()}
}

func sessionAt(t time.Time, cfg SessionConfig) SessionType {
	return ClassifyMinute(MinuteOfDay(t), cfg)
}

// lastCompletedWindow returns [start, end) of the most recently closed
// session window strictly before nowUtc's current position.
func (e *SessionEngine) lastCompletedWindow(nowUtc time.Time, currentSession SessionType) (time.Time, time.Time) {
	// Scan backward minute by minute (bounded to 48h) for the session
	// boundary; cheap enough for a boot-time computation and avoids
	// hardcoding each session's wrap arithmetic twice.
	t := nowUtc.UTC().Truncate(time.Minute)
	cur := ClassifyMinute(MinuteOfDay(t), e.cfg)
	end := t
	for i := 0; i < 48*60; i++ {
		t = t.Add(-time.Minute)
		s := ClassifyMinute(MinuteOfDay(t), e.cfg)
		if s != cur {
			end = t.Add(time.Minute)
			break
		}
	}
	// end now marks the start of the "current" (possibly in-progress)
	// window; walk further back to find that window's own start.
	start := end
	cur2 := ClassifyMinute(MinuteOfDay(end.Add(-time.Minute)), e.cfg)
	for i := 0; i < 48*60; i++ {
		probe := start.Add(-time.Minute)
		if ClassifyMinute(MinuteOfDay(probe), e.cfg) != cur2 {
			break
		}
		start = probe
	}
	return start, end
}

// UpdateOnClosedM15 feeds one closed M15 bar into the session engine.
// Only closed candles ever reach this call (spec.md §4.F: "Only closed
// M15 bars update session data"). Returns true if this update caused a
// session rollover (current session completed and rotated into
// previous).
func (e *SessionEngine) UpdateOnClosedM15(c Candle) (rolledOver bool) {
	session := ClassifyMinute(MinuteOfDay(time.UnixMilli(c.TimestampMs)), e.cfg)

	if e.current.Type == "" {
		e.current = SessionSnapshot{Type: session, StartTime: c.TimestampMs}
	}

	if session != e.current.Type {
		e.current.EndTime = c.TimestampMs
		e.current.IsComplete = true
		e.previous = e.current
		e.hasPrev = true
		e.current = SessionSnapshot{Type: session, StartTime: c.TimestampMs}
		rolledOver = true
	}

	if e.current.CandleCount == 0 {
		e.current.Open = c.Open
		e.current.High = c.High
		e.current.Low = c.Low
	} else {
		if c.High > e.current.High {
			e.current.High = c.High
		}
		if c.Low < e.current.Low {
			e.current.Low = c.Low
		}
	}
	e.current.Close = c.Close
	e.current.CandleCount++
	return rolledOver
}
