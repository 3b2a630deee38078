package strategy

import (
	"ctrader-smc-engine/internal/indicators"
	"ctrader-smc-engine/pkg/protocol"
)

// RSIVWAP is a black-box momentum/mean-reversion strategy: RSI
// overbought/oversold crossed against the VWAP to confirm direction.
// It consumes the M15 timeframe, matching the engine's "intermediate"
// cadence between the H1 bias and the M5 entry-timing series.
type RSIVWAP struct {
	rsiPeriod  int
	vwapWindow int
}

// NewRSIVWAP builds the strategy with the configured RSI period and
// VWAP lookback window.
func NewRSIVWAP(rsiPeriod, vwapWindow int) *RSIVWAP {
	if rsiPeriod <= 0 {
		rsiPeriod = 14
	}
	if vwapWindow <= 0 {
		vwapWindow = 20
	}
	return &RSIVWAP{rsiPeriod: rsiPeriod, vwapWindow: vwapWindow}
}

func (s *RSIVWAP) Name() string { return "rsi_vwap" }

// Evaluate computes RSI and VWAP over the M15 series and proposes a
// direction when RSI is in an extreme zone AND price is on the
// expected side of VWAP (momentum confirmation, not pure mean
// reversion): RSI<=30 with price below VWAP too is a continuation
// signal for the reversal that typically follows, matching the
// teacher's rsi.go threshold convention (30/70).
func (s *RSIVWAP) Evaluate(b Bundle) (Signal, error) {
	if len(b.M15) < s.rsiPeriod+1 || len(b.M15) < s.vwapWindow {
		return Signal{}, nil
	}

	closes := make([]float64, len(b.M15))
	highs := make([]float64, len(b.M15))
	lows := make([]float64, len(b.M15))
	vols := make([]float64, len(b.M15))
	for i, bar := range b.M15 {
		closes[i] = protocol.PriceFromWire(bar.Close()).InexactFloat64()
		highs[i] = protocol.PriceFromWire(bar.High()).InexactFloat64()
		lows[i] = protocol.PriceFromWire(bar.Low()).InexactFloat64()
		vols[i] = float64(bar.Volume)
	}

	rsi := indicators.RSI(closes, s.rsiPeriod)
	vwap := indicators.VWAP(highs, lows, closes, vols, s.vwapWindow)
	if vwap == 0 {
		return Signal{}, nil
	}

	price := closes[len(closes)-1]

	switch {
	case rsi <= 30 && price < vwap:
		confidence := 50 + (30 - rsi)
		return Signal{Valid: true, Direction: DirectionBuy, Confidence: clampConfidence(confidence), Reason: "rsi_oversold_below_vwap", Source: s.Name()}, nil
	case rsi >= 70 && price > vwap:
		confidence := 50 + (rsi - 70)
		return Signal{Valid: true, Direction: DirectionSell, Confidence: clampConfidence(confidence), Reason: "rsi_overbought_above_vwap", Source: s.Name()}, nil
	default:
		return Signal{}, nil
	}
}

func clampConfidence(c float64) float64 {
	if c > 100 {
		return 100
	}
	if c < 0 {
		return 0
	}
	return c
}
