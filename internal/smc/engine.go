package smc

import "time"

// EvaluateContext implements the context engine: from the previous
// session's range and close it grades the setup quality and picks a
// directional bias. Grades below NO_TRADE force the FSM to IDLE.
func EvaluateContext(previous SessionSnapshot, hasPrev bool, pipSize float64) Context {
	if !hasPrev || previous.CandleCount == 0 || pipSize <= 0 {
		return Context{Grade: GradeNoTrade, Bias: DirectionNone, CanTrade: false, BlockReason: "no_previous_session"}
	}

	rangePips := previous.Range() / pipSize
	var grade Grade
	switch {
	case rangePips >= 40:
		grade = GradeA
	case rangePips >= 20:
		grade = GradeB
	case rangePips >= 10:
		grade = GradeC
	default:
		grade = GradeNoTrade
	}

	bias := DirectionNone
	mid := (previous.High + previous.Low) / 2
	switch {
	case previous.Close > mid:
		bias = DirectionBullish
	case previous.Close < mid:
		bias = DirectionBearish
	}

	ctx := Context{Grade: grade, Bias: bias, AllowedDirections: []Direction{DirectionBullish, DirectionBearish}}
	ctx.CanTrade = grade != GradeNoTrade
	if !ctx.CanTrade {
		ctx.BlockReason = "previous_session_range_too_small"
	}
	return ctx
}

// DetectCHoCH looks for a change-of-character compatible with a prior
// sweep: a HIGH-type sweep must be followed by a bearish CHoCH (close
// below the reference swing low); a LOW-type sweep must be followed by
// a bullish CHoCH (close above the reference swing high). The total
// move from the sweep price must be at least minPips.
func DetectCHoCH(sweepPool Pool, closedM15 Candle, referenceSwingLow, referenceSwingHigh, minPips, pipSize float64) (Direction, float64, bool) {
	if pipSize <= 0 {
		return DirectionNone, 0, false
	}
	if sweepPool.Type.IsHighType() {
		if referenceSwingLow <= 0 || closedM15.Close >= referenceSwingLow {
			return DirectionNone, 0, false
		}
		moved := (sweepPool.Price - closedM15.Close) / pipSize
		if moved >= minPips {
			return DirectionBearish, closedM15.Close, true
		}
		return DirectionNone, 0, false
	}
	if referenceSwingHigh <= 0 || closedM15.Close <= referenceSwingHigh {
		return DirectionNone, 0, false
	}
	moved := (closedM15.Close - sweepPool.Price) / pipSize
	if moved >= minPips {
		return DirectionBullish, closedM15.Close, true
	}
	return DirectionNone, 0, false
}

// SymbolConfig carries the per-symbol thresholds the institutional
// engine needs.
type SymbolConfig struct {
	PipSize             float64
	SweepMinPips        float64
	CHOCHMinPips        float64
	FVGMinGapPips       float64
	MaxTradesPerSession int
	Session             SessionConfig
}

// SymbolEngine is the full per-symbol institutional state machine:
// session + context + liquidity + FVG engines, orchestrated through
// the seven-state FSM.
type SymbolEngine struct {
	Symbol string
	Cfg    SymbolConfig

	session *SessionEngine
	Context Context
	Pools   []Pool
	FVGZone FVG

	State          State
	StateChangedAt int64
	Transitions    []TransitionRecord

	LastSweep      Pool
	HasSweep       bool
	ChochConsumed  bool
	ChochDirection Direction
	ChochPrice     float64

	TradesThisSession int
}

// NewSymbolEngine builds an institutional engine for one symbol.
func NewSymbolEngine(symbol string, cfg SymbolConfig) *SymbolEngine {
	return &SymbolEngine{
		Symbol:  symbol,
		Cfg:     cfg,
		session: NewSessionEngine(cfg.Session),
		State:   StateIdle,
	}
}

// Boot computes the previous session deterministically and, if the
// context allows trading, arms the FSM directly from IDLE.
func (e *SymbolEngine) Boot(nowUtc time.Time, m15History []Candle) *Decision {
	e.session.Boot(nowUtc, m15History)
	previous, hasPrev := e.session.Previous()
	e.Context = EvaluateContext(previous, hasPrev, e.Cfg.PipSize)

	if hasPrev && e.Context.CanTrade {
		return e.apply(Input{Kind: EventBoot, Timestamp: nowUtc.UnixMilli()})
	}
	return nil
}

// apply runs the FSM transition function, records history, and resets
// per-setup tracking whenever the machine returns to IDLE.
func (e *SymbolEngine) apply(in Input) *Decision {
	out := Transition(e.State, in)
	if !out.Changed {
		return nil
	}

	e.Transitions = append(e.Transitions, TransitionRecord{From: e.State, To: out.Next, Reason: out.Reason, Timestamp: in.Timestamp})
	if len(e.Transitions) > MaxTransitionHistory {
		e.Transitions = e.Transitions[len(e.Transitions)-MaxTransitionHistory:]
	}

	e.State = out.Next
	e.StateChangedAt = in.Timestamp

	if out.Next == StateIdle {
		e.HasSweep = false
		e.LastSweep = Pool{}
		e.ChochConsumed = false
		e.ChochDirection = DirectionNone
		e.ChochPrice = 0
		e.FVGZone = FVG{}
	}

	if out.Decision != nil {
		d := *out.Decision
		d.Symbol = e.Symbol
		if e.HasSweep {
			d.PoolKey = e.LastSweep.PoolKey
		}
		d.FVGID = e.FVGZone.ID
		d.CHoCHPrice = e.ChochPrice
		if d.Direction == "" {
			d.Direction = e.ChochDirection
		}
		return &d
	}
	return nil
}

// OnClosedM15 feeds one closed M15 bar through session rollover,
// context re-evaluation, pool rebuilding/sweep detection, and CHoCH
// detection. dailyHigh/dailyLow/dailyAnchor describe the previous
// trading day's range for the priority-2 liquidity pools; swings are
// the current priority-3 swing candidates. Only ever call this with a
// bar that IsClosed(nowUtc) — zero look-ahead.
func (e *SymbolEngine) OnClosedM15(bar Candle, dailyHigh, dailyLow float64, dailyAnchor int64, swings []SwingPoint, nowUtc time.Time) []*Decision {
	var decisions []*Decision
	now := nowUtc.UnixMilli()

	if e.session.UpdateOnClosedM15(bar) {
		e.TradesThisSession = 0
		if d := e.apply(Input{Kind: EventSessionRollover, Timestamp: now}); d != nil {
			decisions = append(decisions, d)
		}
	}

	previous, hasPrev := e.session.Previous()
	e.Context = EvaluateContext(previous, hasPrev, e.Cfg.PipSize)
	if !e.Context.CanTrade {
		if d := e.apply(Input{Kind: EventContextNoTrade, Timestamp: now}); d != nil {
			decisions = append(decisions, d)
		}
	}

	e.Pools = PurgeExpired(BuildPools(previous, dailyHigh, dailyLow, dailyAnchor, swings, e.Pools, nowUtc), nowUtc)

	if e.State == StateWaitSweep {
		for i, p := range e.Pools {
			if p.Swept {
				continue
			}
			swept := DetectSweep(p, bar)
			e.Pools[i] = swept
			if swept.Swept {
				e.LastSweep = swept
				e.HasSweep = true
				if d := e.apply(Input{Kind: EventSweepConfirmed, Timestamp: now}); d != nil {
					decisions = append(decisions, d)
				}
				break
			}
		}
	}

	if e.State == StateWaitCHoCH && e.HasSweep {
		refLow, refHigh := referenceSwings(swings)
		if dir, price, ok := DetectCHoCH(e.LastSweep, bar, refLow, refHigh, e.Cfg.CHOCHMinPips, e.Cfg.PipSize); ok {
			e.ChochDirection = dir
			e.ChochPrice = price
			if d := e.apply(Input{Kind: EventCHoCHConfirmed, CHoCHDir: dir, CHoCHPrice: price, Timestamp: now}); d != nil {
				decisions = append(decisions, d)
			}
		}
	}

	if d := e.checkTimeout(now); d != nil {
		decisions = append(decisions, d)
	}
	return decisions
}

func referenceSwings(swings []SwingPoint) (low, high float64) {
	for _, sw := range swings {
		if sw.High && (high == 0 || sw.Price > high) {
			high = sw.Price
		}
		if !sw.High && (low == 0 || sw.Price < low) {
			low = sw.Price
		}
	}
	return low, high
}

// OnClosedM5 feeds a three-candle M5 window through FVG detection
// (while WAIT_FVG) and mitigation/invalidation tracking (while
// WAIT_MITIGATION). c3 is the most recently closed candle.
func (e *SymbolEngine) OnClosedM5(c1, c2, c3 Candle, nowUtc time.Time) []*Decision {
	var decisions []*Decision
	now := nowUtc.UnixMilli()

	if e.State == StateWaitFVG && !e.ChochConsumed {
		if fvg, ok := DetectFVG(c1, c2, c3, e.ChochDirection, e.Cfg.FVGMinGapPips, e.Cfg.PipSize); ok {
			e.FVGZone = fvg
			e.ChochConsumed = true
			if d := e.apply(Input{Kind: EventFVGValid, FVG: fvg, Timestamp: now}); d != nil {
				decisions = append(decisions, d)
			}
		}
	}

	if e.State == StateWaitMitigation && HasValidFVG(e.FVGZone) {
		e.FVGZone = UpdateMitigation(e.FVGZone, c3)
		switch {
		case IsFVGInvalidated(e.FVGZone):
			if d := e.apply(Input{Kind: EventFVGInvalidated, Timestamp: now}); d != nil {
				decisions = append(decisions, d)
			}
		case IsFVGMitigated(e.FVGZone):
			if d := e.apply(Input{Kind: EventFVGMitigated, Timestamp: now}); d != nil {
				decisions = append(decisions, d)
			}
		}
	}

	if d := e.checkTimeout(now); d != nil {
		decisions = append(decisions, d)
	}
	return decisions
}

// OnTradeExecuted advances WAIT_ENTRY -> COOLDOWN once an external
// fill confirms the setup traded.
func (e *SymbolEngine) OnTradeExecuted(nowUtc time.Time) *Decision {
	if e.State != StateWaitEntry {
		return nil
	}
	e.TradesThisSession++
	return e.apply(Input{Kind: EventTradeExecuted, Timestamp: nowUtc.UnixMilli()})
}

// Tick checks cooldown expiry and state timeouts outside of a bar
// close (the watchdog path): call once per analysis cycle.
func (e *SymbolEngine) Tick(nowUtc time.Time) *Decision {
	now := nowUtc.UnixMilli()
	if e.State == StateCooldown && now-e.StateChangedAt >= StateTimeout(StateCooldown).Milliseconds() {
		return e.apply(Input{Kind: EventCooldownElapsed, Timestamp: now})
	}
	return e.checkTimeout(now)
}

func (e *SymbolEngine) checkTimeout(now int64) *Decision {
	if e.State == StateIdle || e.State == StateCooldown {
		return nil
	}
	timeout := StateTimeout(e.State)
	if timeout <= 0 {
		return nil
	}
	if now-e.StateChangedAt < timeout.Milliseconds() {
		return nil
	}
	return e.apply(Input{Kind: EventStateTimeout, Timestamp: now})
}

// ReadyToTrade reports whether the FSM is at WAIT_ENTRY with room left
// in this session's trade budget — the gate the strategy layer
// consults before proposing a signal.
func (e *SymbolEngine) ReadyToTrade() (Direction, bool) {
	if e.State != StateWaitEntry {
		return DirectionNone, false
	}
	if e.Cfg.MaxTradesPerSession > 0 && e.TradesThisSession >= e.Cfg.MaxTradesPerSession {
		return DirectionNone, false
	}
	return e.ChochDirection, true
}
