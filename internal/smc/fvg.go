package smc

import "fmt"

// DetectFVG inspects a three-candle window (c1, c2, c3; c2 is the
// middle/imbalance candle) on M5 for a fair value gap in
// expectedDirection with a gap of at least minGapPips (pipSize
// converts the raw price gap into pips). Returns the zone and true if
// one was found, else the zero value and false.
//
// Bullish gap: c1.High < c3.Low (price left a hole between candle 1's
// high and candle 3's low). Bearish gap: c1.Low > c3.High.
func DetectFVG(c1, c2, c3 Candle, expectedDirection Direction, minGapPips, pipSize float64) (FVG, bool) {
	switch expectedDirection {
	case DirectionBullish:
		if c1.High >= c3.Low {
			return FVG{}, false
		}
		gap := c3.Low - c1.High
		gapPips := gap / pipSize
		if gapPips < minGapPips {
			return FVG{}, false
		}
		return FVG{
			ID:          fmt.Sprintf("FVG:%s:%d", expectedDirection, c3.TimestampMs),
			Direction:   DirectionBullish,
			High:        c3.Low,
			Low:         c1.High,
			GapSizePips: gapPips,
			CreatedAt:   c3.TimestampMs,
		}, true
	case DirectionBearish:
		if c1.Low <= c3.High {
			return FVG{}, false
		}
		gap := c1.Low - c3.High
		gapPips := gap / pipSize
		if gapPips < minGapPips {
			return FVG{}, false
		}
		return FVG{
			ID:          fmt.Sprintf("FVG:%s:%d", expectedDirection, c3.TimestampMs),
			Direction:   DirectionBearish,
			High:        c1.Low,
			Low:         c3.High,
			GapSizePips: gapPips,
			CreatedAt:   c3.TimestampMs,
		}, true
	default:
		return FVG{}, false
	}
}

// UpdateMitigation applies one closed M5 candle to the FVG's
// mitigation/invalidation state. Mitigation: price re-enters the gap.
// Invalidation: price fully passes through the boundary opposite the
// origin (after which the zone is no longer tradeable). Only candles
// opening after the zone's creating candle count; the creating candle
// itself (TimestampMs == CreatedAt) leaves the zone unchanged.
func UpdateMitigation(z FVG, closedM5 Candle) FVG {
	if z.Invalidated || closedM5.TimestampMs <= z.CreatedAt {
		return z
	}
	switch z.Direction {
	case DirectionBullish:
		// Bullish FVG acts as support: invalidated once price closes
		// fully below Low; mitigated once price re-enters [Low, High]
		// without yet invalidating.
		if closedM5.Close < z.Low {
			z.Invalidated = true
			return z
		}
		if !z.Mitigated && closedM5.Low <= z.High && closedM5.Low >= z.Low {
			z.Mitigated = true
			z.MitigatedAt = closedM5.TimestampMs
			z.MitigatedPrice = closedM5.Low
		}
	case DirectionBearish:
		if closedM5.Close > z.High {
			z.Invalidated = true
			return z
		}
		if !z.Mitigated && closedM5.High >= z.Low && closedM5.High <= z.High {
			z.Mitigated = true
			z.MitigatedAt = closedM5.TimestampMs
			z.MitigatedPrice = closedM5.High
		}
	}
	return z
}

// HasValidFVG reports whether z is a real, still-tradeable zone.
func HasValidFVG(z FVG) bool { return z.ID != "" && !z.Invalidated }

// IsFVGMitigated reports whether price has re-entered the zone.
func IsFVGMitigated(z FVG) bool { return z.Mitigated && !z.Invalidated }

// IsFVGInvalidated reports whether price has fully passed through.
func IsFVGInvalidated(z FVG) bool { return z.Invalidated }
