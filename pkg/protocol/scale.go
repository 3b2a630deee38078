package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// priceScale is the wire scaling factor: wire integer = price * 100000.
var priceScale = decimal.NewFromInt(100000)

// volumeScale is the wire scaling factor: wire integer = lots * 100.
var volumeScale = decimal.NewFromInt(100)

// PriceFromWire converts a raw wire integer into a decimal price.
func PriceFromWire(raw int64) decimal.Decimal {
	return decimal.NewFromInt(raw).Div(priceScale)
}

// PriceToWire converts a decimal price into the raw wire integer.
func PriceToWire(p decimal.Decimal) int64 {
	return p.Mul(priceScale).Round(0).IntPart()
}

// VolumeFromWire converts a raw wire integer into lots.
func VolumeFromWire(raw int64) decimal.Decimal {
	return decimal.NewFromInt(raw).Div(volumeScale)
}

// VolumeToWire converts lots into the raw wire integer, rounding up so
// the broker never receives a smaller volume than requested.
func VolumeToWire(lots decimal.Decimal) int64 {
	return lots.Mul(volumeScale).Ceil().IntPart()
}

// PipSize returns the pip size for a symbol name, per the documented
// convention: JPY pairs 0.01, XAU 0.1, everything else 0.0001.
func PipSize(symbolName string) decimal.Decimal {
	upper := strings.ToUpper(symbolName)
	switch {
	case strings.Contains(upper, "JPY"):
		return decimal.NewFromFloat(0.01)
	case strings.Contains(upper, "XAU"):
		return decimal.NewFromFloat(0.1)
	default:
		return decimal.NewFromFloat(0.0001)
	}
}

// CoerceInt64 accepts the several shapes a numeric wire field may
// arrive in (already-decoded int64, a decimal string, or anything
// exposing a toNumber()-style accessor) and returns a consistent
// int64, per the "arbitrary precision integer" handling spec.md calls
// out for numeric fields that can exceed safe JS integer range.
func CoerceInt64(v any) (int64, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case uint64:
		return int64(t), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("protocol: coerce int64 from string %q: %w", t, err)
		}
		return n, nil
	case interface{ ToNumber() int64 }:
		return t.ToNumber(), nil
	default:
		return 0, fmt.Errorf("protocol: cannot coerce %T to int64", v)
	}
}
