package smc

import "time"

func mustParse(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func candleAt(ts string, open, high, low, close float64) Candle {
	t := mustParse(ts)
	return Candle{
		TimestampMs: t.UnixMilli(),
		CloseTimeMs: t.Add(15 * time.Minute).UnixMilli(),
		Open:        open,
		High:        high,
		Low:         low,
		Close:       close,
	}
}

func m5CandleAt(ts string, open, high, low, close float64) Candle {
	t := mustParse(ts)
	return Candle{
		TimestampMs: t.UnixMilli(),
		CloseTimeMs: t.Add(5 * time.Minute).UnixMilli(),
		Open:        open,
		High:        high,
		Low:         low,
		Close:       close,
	}
}
