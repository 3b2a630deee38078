// Package strategy implements the black-box signal contract spec.md
// §1 describes ("indicator formulas are a black box returning
// {signal, confidence, reason}"): an RSI+VWAP strategy, an SMC
// strategy that reads the institutional FSM's readiness, and the
// fixed-priority combinator the trading engine uses to reconcile them.
package strategy

import (
	"time"

	"ctrader-smc-engine/pkg/protocol"
)

// Direction is the signal's proposed trade direction.
type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
	DirectionNone Direction = "NONE"
)

// Signal is the black-box output every strategy produces.
type Signal struct {
	Valid      bool
	Direction  Direction
	Confidence float64 // 0..100
	Reason     string
	Source     string // strategy Name() that produced this signal
}

// Bundle is the per-symbol, multi-timeframe snapshot a strategy
// evaluates on each analysis cycle (spec.md §4.G step 1-2).
type Bundle struct {
	Symbol     string
	H1         []protocol.Bar
	M15        []protocol.Bar
	M5         []protocol.Bar
	SpreadPips float64
	NowUtc     time.Time
}

// Strategy is the pluggable signal source the trading engine
// combines under the fixed priority rule.
type Strategy interface {
	Name() string
	Evaluate(b Bundle) (Signal, error)
}
