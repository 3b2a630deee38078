package engine

import (
	"context"
	"time"

	"ctrader-smc-engine/internal/monitor"
	"ctrader-smc-engine/internal/strategy"
	"ctrader-smc-engine/internal/telemetry"
	"ctrader-smc-engine/pkg/protocol"
)

// analyzeSymbol runs one analysis cycle for symbol (spec.md §4.G steps
// 1-5): load bars, probe spread, evaluate both strategies, combine
// under the fixed priority, and hand a qualifying signal to
// executeSignal.
func (e *Engine) analyzeSymbol(ctx context.Context, symbol string) {
	h1 := e.cfg.MTF.Bars(symbol, protocol.PeriodH1)
	m15 := e.cfg.MTF.Bars(symbol, protocol.PeriodM15)
	m5 := e.cfg.MTF.Bars(symbol, protocol.PeriodM5)

	if len(h1) < MinH1Bars || len(m15) < MinM15Bars || len(m5) < MinM5Bars {
		return
	}

	spreadPips, _ := e.cfg.Adapter.Spread(symbol)

	bundle := strategy.Bundle{
		Symbol:     symbol,
		H1:         h1,
		M15:        m15,
		M5:         m5,
		SpreadPips: spreadPips,
		NowUtc:     time.Now().UTC(),
	}

	var timer *monitor.Timer
	if e.cfg.Metrics != nil {
		timer = monitor.NewTimer(e.cfg.Metrics.StrategyLatency)
	}

	var smcSig, rsiSig strategy.Signal
	if smc, ok := e.cfg.SMC[symbol]; ok {
		sig, err := smc.Evaluate(bundle)
		if err != nil {
			e.logWarn(symbol, "smc strategy evaluate failed", map[string]any{"error": err.Error()})
		} else {
			smcSig = sig
		}
	}
	if e.cfg.RSI != nil {
		sig, err := e.cfg.RSI.Evaluate(bundle)
		if err != nil {
			e.logWarn(symbol, "rsi_vwap strategy evaluate failed", map[string]any{"error": err.Error()})
		} else {
			rsiSig = sig
		}
	}
	if timer != nil {
		timer.Stop()
	}

	combined := strategy.Combine(smcSig, rsiSig)
	if combined.Conflict {
		e.logInfo(symbol, "CONFLITO{smc,rsi}", map[string]any{"smc": smcSig, "rsi": rsiSig})
		return
	}
	if !combined.Signal.Valid || combined.Signal.Confidence < MinConfidence {
		return
	}

	direction := protocol.TradeSideBuy
	if combined.Signal.Direction == strategy.DirectionSell {
		direction = protocol.TradeSideSell
	}

	e.executeSignal(ctx, symbol, direction, combined.Signal)
}

func (e *Engine) logInfo(symbol, msg string, data map[string]any) {
	if e.cfg.Log == nil {
		return
	}
	e.cfg.Log.Info(telemetry.CategorySMCDecision, symbol, msg, data)
}

func (e *Engine) logWarn(symbol, msg string, data map[string]any) {
	if e.cfg.Log == nil {
		return
	}
	e.cfg.Log.Warn(telemetry.CategorySMCDecision, symbol, msg, data)
}
