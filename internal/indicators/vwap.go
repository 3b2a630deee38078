package indicators

// VWAP computes the volume-weighted average price over the last window
// bars of high/low/close/volume (all slices must be the same length).
func VWAP(high, low, close, volume []float64, window int) float64 {
	if window <= 0 || len(close) < window {
		return 0
	}
	start := len(close) - window

	var pv, v float64
	for i := start; i < len(close); i++ {
		typical := (high[i] + low[i] + close[i]) / 3
		pv += typical * volume[i]
		v += volume[i]
	}
	if v == 0 {
		return 0
	}
	return pv / v
}
