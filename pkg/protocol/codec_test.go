package protocol

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	orig := Envelope{
		PayloadType: PayloadNewOrderReq,
		Payload:     NewOrderReq{CtidTraderAccountID: 12345, SymbolID: 1, Volume: 10000}.Marshal(),
		ClientMsgID: "abc-123",
	}
	buf := orig.Marshal()

	got, err := UnmarshalEnvelope(buf)
	require.NoError(t, err)
	assert.Equal(t, orig.PayloadType, got.PayloadType)
	assert.Equal(t, orig.ClientMsgID, got.ClientMsgID)
	assert.Equal(t, orig.Payload, got.Payload)
}

func TestSpotEventDecode(t *testing.T) {
	// S2: symbolId=1 EURUSD bid=110500 ask=110520 -> spot{bid:1.105, ask:1.1052}
	payload := SpotEvent{CtidTraderAccountID: 12345, SymbolID: 1, Bid: 110500, Ask: 110520}
	env := Envelope{PayloadType: PayloadSpotEvent, Payload: encodeSpotEventForTest(payload)}
	buf := env.Marshal()

	gotEnv, err := UnmarshalEnvelope(buf)
	require.NoError(t, err)
	require.Equal(t, PayloadSpotEvent, gotEnv.PayloadType)

	got, err := DecodeSpotEvent(gotEnv.Payload)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.SymbolID)

	bid := PriceFromWire(got.Bid)
	ask := PriceFromWire(got.Ask)
	assert.True(t, bid.Equal(decimal.NewFromFloat(1.105)), "bid=%s", bid)
	assert.True(t, ask.Equal(decimal.NewFromFloat(1.1052)), "ask=%s", ask)
}

// encodeSpotEventForTest mirrors the field layout DecodeSpotEvent expects;
// SpotEvent has no Marshal method because the client never sends one
// (it's a server-pushed event), so tests build the wire form directly.
func encodeSpotEventForTest(e SpotEvent) []byte {
	var w fieldWriter
	w.varint(1, uint64(e.CtidTraderAccountID))
	w.varint(2, uint64(e.SymbolID))
	w.varint(3, uint64(e.Bid))
	w.varint(4, uint64(e.Ask))
	return w.buf
}

func TestBarDeltaDecode(t *testing.T) {
	// low=110000, open delta=50, high delta=120, close delta=80
	var w fieldWriter
	w.varint(1, 1000000) // utcTimestampInMinutes
	w.varint(2, 110000)  // low
	w.varint(3, 50)       // deltaOpen
	w.varint(4, 120)      // deltaHigh
	w.varint(5, 80)       // deltaClose
	w.varint(6, 500)      // volume

	bar, err := decodeBar(w.buf)
	require.NoError(t, err)
	assert.Equal(t, int64(110000), bar.Low)
	assert.Equal(t, int64(110050), bar.Open())
	assert.Equal(t, int64(110120), bar.High())
	assert.Equal(t, int64(110080), bar.Close())
	assert.Equal(t, int64(1000000*60*1000), bar.Timestamp())
}

func TestPipSize(t *testing.T) {
	assert.True(t, PipSize("USDJPY").Equal(decimal.NewFromFloat(0.01)))
	assert.True(t, PipSize("XAUUSD").Equal(decimal.NewFromFloat(0.1)))
	assert.True(t, PipSize("EURUSD").Equal(decimal.NewFromFloat(0.0001)))
}

func TestVolumeToWireRoundsUp(t *testing.T) {
	lots := decimal.NewFromFloat(0.013)
	assert.Equal(t, int64(2), VolumeToWire(lots))
}

func TestCoerceInt64(t *testing.T) {
	v, err := CoerceInt64("12345")
	require.NoError(t, err)
	assert.Equal(t, int64(12345), v)

	v, err = CoerceInt64(int64(42))
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	_, err = CoerceInt64(3.14)
	assert.Error(t, err)
}
