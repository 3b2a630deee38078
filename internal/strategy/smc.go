package strategy

import (
	"time"

	"ctrader-smc-engine/internal/smc"
	"ctrader-smc-engine/pkg/protocol"
)

// SwingDetectionWindow is the fractal window DetectSwings uses over
// the M15 series (spec.md §4.F priority-3 liquidity source).
const SwingDetectionWindow = 2

// SMC wraps the institutional FSM (internal/smc) as a black-box
// Strategy: it feeds every newly closed M15/M5 bar into the per-symbol
// SymbolEngine and turns WAIT_ENTRY readiness into a Signal. This is
// the "SMC strategy... internally advances the institutional FSM"
// component spec.md §4.G step 3 describes.
type SMC struct {
	eng         *smc.SymbolEngine
	cfg         smc.SymbolConfig
	booted      bool
	lastM15Ts   int64
	lastM5Ts    int64
	onDecisions func(decisions []*smc.Decision)
}

// NewSMC builds the SMC strategy for one symbol. onDecisions, if
// non-nil, receives every terminal decision-log record the FSM emits
// (spec.md §4.F "Decision log") for telemetry mirroring.
func NewSMC(symbol string, cfg smc.SymbolConfig, onDecisions func(decisions []*smc.Decision)) *SMC {
	return &SMC{eng: smc.NewSymbolEngine(symbol, cfg), cfg: cfg, onDecisions: onDecisions}
}

func (s *SMC) Name() string { return "smc" }

// Engine exposes the underlying per-symbol FSM for status reporting
// and OnTradeExecuted notification from the trading engine.
func (s *SMC) Engine() *smc.SymbolEngine { return s.eng }

func toCandles(bars []protocol.Bar, periodMs int64) []smc.Candle {
	out := make([]smc.Candle, len(bars))
	for i, b := range bars {
		out[i] = smc.Candle{
			TimestampMs: b.Timestamp(),
			CloseTimeMs: b.Timestamp() + periodMs,
			Open:        protocol.PriceFromWire(b.Open()).InexactFloat64(),
			High:        protocol.PriceFromWire(b.High()).InexactFloat64(),
			Low:         protocol.PriceFromWire(b.Low()).InexactFloat64(),
			Close:       protocol.PriceFromWire(b.Close()).InexactFloat64(),
		}
	}
	return out
}

// previousDayRange scans closed M15 candles for the high/low of the
// prior 24h trading day ending at the NY-close anchor (spec.md §4.F
// priority-2 liquidity source).
func previousDayRange(candles []smc.Candle, nowUtc time.Time, sessionCfg smc.SessionConfig) (high, low float64, anchor int64) {
	end := smc.TradingDayAnchor(nowUtc, sessionCfg)
	start := end.AddDate(0, 0, -1)
	first := true
	for _, c := range candles {
		if c.TimestampMs < start.UnixMilli() || c.TimestampMs >= end.UnixMilli() {
			continue
		}
		if first {
			high, low = c.High, c.Low
			first = false
			continue
		}
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}
	return high, low, end.UnixMilli()
}

func (s *SMC) emit(decisions []*smc.Decision) {
	if s.onDecisions == nil || len(decisions) == 0 {
		return
	}
	s.onDecisions(decisions)
}

// Evaluate advances the FSM with any newly closed M15/M5 bars in b and
// translates WAIT_ENTRY readiness into a Signal. Confidence is fixed
// at 100 while ready: the FSM's seven gates already encode the
// setup's quality, so a strategy-level confidence score would be
// redundant (the priority combinator in combine.go always prefers SMC
// over RSI+VWAP when both agree, regardless of RSI+VWAP's score).
func (s *SMC) Evaluate(b Bundle) (Signal, error) {
	if len(b.M15) == 0 {
		return Signal{}, nil
	}
	m15 := toCandles(b.M15, 15*60*1000)
	m5 := toCandles(b.M5, 5*60*1000)

	if !s.booted {
		s.eng.Boot(b.NowUtc, m15)
		s.booted = true
		if len(m15) > 0 {
			s.lastM15Ts = m15[len(m15)-1].TimestampMs
		}
		if len(m5) > 0 {
			s.lastM5Ts = m5[len(m5)-1].TimestampMs
		}
	}

	swings := smc.DetectSwings(m15, SwingDetectionWindow)

	for _, c := range m15 {
		if c.TimestampMs <= s.lastM15Ts || !c.IsClosed(b.NowUtc) {
			continue
		}
		dailyHigh, dailyLow, dailyAnchor := previousDayRange(m15, b.NowUtc, s.cfg.Session)
		decisions := s.eng.OnClosedM15(c, dailyHigh, dailyLow, dailyAnchor, swings, b.NowUtc)
		s.emit(decisions)
		s.lastM15Ts = c.TimestampMs
	}

	for i := 2; i < len(m5); i++ {
		c3 := m5[i]
		if c3.TimestampMs <= s.lastM5Ts || !c3.IsClosed(b.NowUtc) {
			continue
		}
		decisions := s.eng.OnClosedM5(m5[i-2], m5[i-1], c3, b.NowUtc)
		s.emit(decisions)
		s.lastM5Ts = c3.TimestampMs
	}

	if d := s.eng.Tick(b.NowUtc); d != nil {
		s.emit([]*smc.Decision{d})
	}

	dir, ready := s.eng.ReadyToTrade()
	if !ready {
		return Signal{}, nil
	}
	direction := DirectionNone
	switch dir {
	case smc.DirectionBullish:
		direction = DirectionBuy
	case smc.DirectionBearish:
		direction = DirectionSell
	default:
		return Signal{}, nil
	}
	return Signal{Valid: true, Direction: direction, Confidence: 100, Reason: "smc_wait_entry", Source: s.Name()}, nil
}
