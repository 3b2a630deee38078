// Package smc implements the institutional Smart-Money-Concepts
// engine: session classification, liquidity-pool construction and
// sweep detection, fair-value-gap tracking, and the seven-state
// per-symbol FSM that gates entries. New domain logic (the teacher has
// no SMC/ICT concepts) built in the teacher's structural idiom: small
// single-concern files, closed string-enum states with a
// stateChangedAt timestamp, decisions published through the event bus.
package smc

import "time"

// Candle is the OHLC shape the SMC engines consume. TimestampMs is the
// bar's open time in unix milliseconds; CloseTimeMs is its close time,
// used for the "is this bar closed yet" look-ahead guard.
type Candle struct {
	TimestampMs int64
	CloseTimeMs int64
	Open        float64
	High        float64
	Low         float64
	Close       float64
}

// IsClosed reports whether the candle's interval is fully in the past
// relative to nowUtc — the single admission rule every FSM transition
// and sweep/FVG detection must pass through. Zero look-ahead.
func (c Candle) IsClosed(nowUtc time.Time) bool {
	return c.CloseTimeMs <= nowUtc.UnixMilli()
}

// Direction is a trade/bias direction.
type Direction string

const (
	DirectionBullish Direction = "BULLISH"
	DirectionBearish Direction = "BEARISH"
	DirectionNone    Direction = "NONE"
)

// SessionType enumerates the UTC trading sessions.
type SessionType string

const (
	SessionAsia       SessionType = "ASIA"
	SessionLondon     SessionType = "LONDON"
	SessionNY         SessionType = "NY"
	SessionOff        SessionType = "OFF_SESSION"
)

// SessionSnapshot is a completed (or in-progress) session's OHLC range.
type SessionSnapshot struct {
	Type        SessionType
	High        float64
	Low         float64
	Open        float64
	Close       float64
	StartTime   int64 // unix ms
	EndTime     int64 // unix ms
	IsComplete  bool
	CandleCount int
}

// Range returns High-Low.
func (s SessionSnapshot) Range() float64 { return s.High - s.Low }

// Grade is the context engine's quality assessment of the previous
// session, gating whether the FSM is even allowed to arm.
type Grade string

const (
	GradeA      Grade = "A"
	GradeB      Grade = "B"
	GradeC      Grade = "C"
	GradeNoTrade Grade = "NO_TRADE"
)

// Context is the context engine's output for the current cycle.
type Context struct {
	Grade             Grade
	Bias              Direction
	CanTrade          bool
	BlockReason       string
	AllowedDirections []Direction
}

// PoolType enumerates the liquidity pool kinds.
type PoolType string

const (
	PoolSessionHigh PoolType = "SESSION_HIGH"
	PoolSessionLow  PoolType = "SESSION_LOW"
	PoolDailyHigh   PoolType = "DAILY_HIGH"
	PoolDailyLow    PoolType = "DAILY_LOW"
	PoolSwingHigh   PoolType = "SWING_HIGH"
	PoolSwingLow    PoolType = "SWING_LOW"
)

// IsHighType reports whether a pool type sits above price action
// (swept by a wick-up-and-close-back-down).
func (t PoolType) IsHighType() bool {
	return t == PoolSessionHigh || t == PoolDailyHigh || t == PoolSwingHigh
}

// Pool is a liquidity pool: a price level expected to hold resting
// orders. PoolKey is deterministic and stable across rebuilds so the
// Swept bit survives pool reconstruction.
type Pool struct {
	PoolKey        string
	Type           PoolType
	Price          float64
	Timestamp      int64 // anchor timestamp, unix ms
	Source         string
	Priority       int
	Swept          bool
	SweptAt        int64
	SweptCandle    int64
	SweepDirection Direction
	CreatedAt      int64 // unix ms, for the 24h expiry
}

// Expired reports whether the pool's 24h lifetime (from creation) has
// elapsed as of now.
func (p Pool) Expired(nowUtc time.Time) bool {
	return nowUtc.UnixMilli()-p.CreatedAt > 24*int64(time.Hour/time.Millisecond)
}

// FVG is a fair value gap zone: a three-candle imbalance.
type FVG struct {
	ID            string
	Direction     Direction
	High          float64
	Low           float64
	GapSizePips   float64
	CreatedAt     int64
	Mitigated     bool
	MitigatedAt   int64
	MitigatedPrice float64
	Invalidated   bool
}

// State enumerates the seven FSM states.
type State string

const (
	StateIdle          State = "IDLE"
	StateWaitSweep     State = "WAIT_SWEEP"
	StateWaitCHoCH     State = "WAIT_CHOCH"
	StateWaitFVG       State = "WAIT_FVG"
	StateWaitMitigation State = "WAIT_MITIGATION"
	StateWaitEntry     State = "WAIT_ENTRY"
	StateCooldown      State = "COOLDOWN"
)

// StateTimeout returns the configured per-state timeout.
func StateTimeout(s State) time.Duration {
	switch s {
	case StateWaitSweep, StateWaitFVG:
		return 90 * time.Minute
	case StateWaitCHoCH:
		return 60 * time.Minute
	case StateWaitMitigation:
		return 60 * time.Minute
	case StateWaitEntry:
		return 30 * time.Minute
	case StateCooldown:
		return 20 * time.Minute
	default:
		return 0
	}
}

// TransitionRecord records one FSM state change for the bounded history.
type TransitionRecord struct {
	From      State
	To        State
	Reason    string
	Timestamp int64
}

// DecisionType enumerates terminal decision-log outcomes.
type DecisionType string

const (
	DecisionTrade   DecisionType = "TRADE"
	DecisionNoTrade DecisionType = "NO_TRADE"
	DecisionExpire  DecisionType = "EXPIRE"
)

// Decision is the structured terminal-outcome record emitted by the
// FSM (spec.md §4.F "Decision log").
type Decision struct {
	Symbol      string
	Type        DecisionType
	Direction   Direction
	Reason      string
	PoolKey     string
	FVGID       string
	CHoCHPrice  float64
	Timestamp   int64
}
