package smc

import (
	"fmt"
	"math"
	"time"
)

// MaxSwingPoolsPerType bounds how many swing-derived pools the
// liquidity engine keeps per direction (spec.md §4.F: "up to N per
// type").
const MaxSwingPoolsPerType = 3

// PoolKey builds the deterministic, reorder-stable key spec.md §3
// requires: f(type, price.to5dp, anchorTimestamp). Two BuildPools
// calls that produce a pool with the same (type, price, anchor) always
// yield the same key, regardless of input ordering, so a previously
// swept pool is recognized and its swept bit carried forward.
func PoolKey(t PoolType, price float64, anchorTimestamp int64) string {
	rounded := math.Round(price*100000) / 100000
	return fmt.Sprintf("%s:%.5f:%d", t, rounded, anchorTimestamp)
}

// SwingPoint is a confirmed local extreme used as a priority-3
// liquidity source.
type SwingPoint struct {
	High      bool
	Price     float64
	Timestamp int64
}

// DetectSwings finds simple fractal swing points in bars: a bar whose
// high (low) is strictly greater (less) than `window` neighbors on
// each side. Only interior bars can be classified, so the last
// `window` bars are never reported as swings until confirmed by later
// closes.
func DetectSwings(bars []Candle, window int) []SwingPoint {
	var out []SwingPoint
	if window < 1 {
		window = 2
	}
	for i := window; i < len(bars)-window; i++ {
		isHigh, isLow := true, true
		for w := 1; w <= window; w++ {
			if bars[i-w].High >= bars[i].High || bars[i+w].High >= bars[i].High {
				isHigh = false
			}
			if bars[i-w].Low <= bars[i].Low || bars[i+w].Low <= bars[i].Low {
				isLow = false
			}
		}
		if isHigh {
			out = append(out, SwingPoint{High: true, Price: bars[i].High, Timestamp: bars[i].TimestampMs})
		}
		if isLow {
			out = append(out, SwingPoint{High: false, Price: bars[i].Low, Timestamp: bars[i].TimestampMs})
		}
	}
	return out
}

// BuildPools constructs the current pool set in priority order:
// previous-session H/L (priority 1), previous-day H/L at the
// trading-day anchor (priority 2), recent valid swings (priority 3,
// capped at MaxSwingPoolsPerType per direction). It merges against
// existingPools by PoolKey: when a key matches, the new pool inherits
// swept/sweptAt/sweptCandle/sweepDirection from the old one, so
// rebuilding pools every cycle never "forgets" a sweep.
func BuildPools(previousSession SessionSnapshot, dailyHigh, dailyLow float64, dailyAnchor int64, swings []SwingPoint, existingPools []Pool, nowUtc time.Time) []Pool {
	byKey := make(map[string]Pool, len(existingPools))
	for _, p := range existingPools {
		byKey[p.PoolKey] = p
	}

	var fresh []Pool
	createdAt := nowUtc.UnixMilli()

	if previousSession.CandleCount > 0 {
		fresh = append(fresh,
			Pool{Type: PoolSessionHigh, Price: previousSession.High, Timestamp: previousSession.StartTime, Source: string(previousSession.Type), Priority: 1, CreatedAt: createdAt},
			Pool{Type: PoolSessionLow, Price: previousSession.Low, Timestamp: previousSession.StartTime, Source: string(previousSession.Type), Priority: 1, CreatedAt: createdAt},
		)
	}

	if dailyHigh > 0 || dailyLow > 0 {
		fresh = append(fresh,
			Pool{Type: PoolDailyHigh, Price: dailyHigh, Timestamp: dailyAnchor, Source: "previous_day", Priority: 2, CreatedAt: createdAt},
			Pool{Type: PoolDailyLow, Price: dailyLow, Timestamp: dailyAnchor, Source: "previous_day", Priority: 2, CreatedAt: createdAt},
		)
	}

	var highSwings, lowSwings []SwingPoint
	for _, sw := range swings {
		if sw.High {
			highSwings = append(highSwings, sw)
		} else {
			lowSwings = append(lowSwings, sw)
		}
	}
	fresh = append(fresh, swingPools(highSwings, PoolSwingHigh, createdAt)...)
	fresh = append(fresh, swingPools(lowSwings, PoolSwingLow, createdAt)...)

	out := make([]Pool, 0, len(fresh))
	for _, p := range fresh {
		p.PoolKey = PoolKey(p.Type, p.Price, p.Timestamp)
		if old, ok := byKey[p.PoolKey]; ok {
			p.Swept = old.Swept
			p.SweptAt = old.SweptAt
			p.SweptCandle = old.SweptCandle
			p.SweepDirection = old.SweepDirection
			p.CreatedAt = old.CreatedAt // keep the original expiry anchor
		}
		out = append(out, p)
	}
	return out
}

func swingPools(swings []SwingPoint, t PoolType, createdAt int64) []Pool {
	// Keeps the most recent MaxSwingPoolsPerType swings, in input order.
	n := len(swings)
	start := 0
	if n > MaxSwingPoolsPerType {
		start = n - MaxSwingPoolsPerType
	}
	out := make([]Pool, 0, n-start)
	for _, sw := range swings[start:] {
		out = append(out, Pool{Type: t, Price: sw.Price, Timestamp: sw.Timestamp, Source: "swing", Priority: 3, CreatedAt: createdAt})
	}
	return out
}

// DetectSweep runs sweep detection against one closed M15 bar only
// (spec.md §4.F: "Sweep detection runs only on closed M15 bars"). A
// real-time wick beyond a pool must never reach this function — that
// is telemetry-only and never arms the FSM. Returns the updated pool
// (with Swept populated) when this bar triggers a sweep, else the pool
// unchanged.
func DetectSweep(p Pool, closedM15 Candle) Pool {
	if p.Swept {
		return p
	}
	if p.Type.IsHighType() {
		if closedM15.High > p.Price && closedM15.Close < p.Price {
			p.Swept = true
			p.SweptAt = closedM15.TimestampMs
			p.SweptCandle = closedM15.TimestampMs
			p.SweepDirection = DirectionBearish
		}
		return p
	}
	if closedM15.Low < p.Price && closedM15.Close > p.Price {
		p.Swept = true
		p.SweptAt = closedM15.TimestampMs
		p.SweptCandle = closedM15.TimestampMs
		p.SweepDirection = DirectionBullish
	}
	return p
}

// PurgeExpired drops pools whose 24h lifetime has elapsed.
func PurgeExpired(pools []Pool, nowUtc time.Time) []Pool {
	out := pools[:0:0]
	for _, p := range pools {
		if !p.Expired(nowUtc) {
			out = append(out, p)
		}
	}
	return out
}
