package protocol

// Credentials bundles the application-level and account-level auth
// fields needed to complete the AppAuth -> GetAccounts -> AccountAuth
// handshake.
type Credentials struct {
	ClientID            string
	ClientSecret        string
	AccessToken          string
	CtidTraderAccountID int64
	IsLive               bool
}

// --- APPLICATION_AUTH ---------------------------------------------------

type ApplicationAuthReq struct {
	ClientID     string
	ClientSecret string
}

func (m ApplicationAuthReq) Marshal() []byte {
	var w fieldWriter
	w.str(1, m.ClientID)
	w.str(2, m.ClientSecret)
	return w.buf
}

type ApplicationAuthRes struct{}

func DecodeApplicationAuthRes(buf []byte) (ApplicationAuthRes, error) {
	_, err := parseFields(buf)
	return ApplicationAuthRes{}, err
}

// --- GET_ACCOUNTS_BY_TOKEN ----------------------------------------------

type GetAccountsByTokenReq struct {
	AccessToken string
}

func (m GetAccountsByTokenReq) Marshal() []byte {
	var w fieldWriter
	w.str(1, m.AccessToken)
	return w.buf
}

type TraderAccount struct {
	CtidTraderAccountID int64
	IsLive              bool
}

type GetAccountsByTokenRes struct {
	Accounts []TraderAccount
}

func DecodeGetAccountsByTokenRes(buf []byte) (GetAccountsByTokenRes, error) {
	// Accounts arrive as repeated embedded messages in field 1; each
	// has ctidTraderAccountId (field 1) and isLive (field 2).
	var res GetAccountsByTokenRes
	for len(buf) > 0 {
		num, typ, n := consumeTag(buf)
		if n < 0 {
			return res, errParse(n)
		}
		buf = buf[n:]
		if num != 1 {
			n := skipField(num, typ, buf)
			if n < 0 {
				return res, errParse(n)
			}
			buf = buf[n:]
			continue
		}
		sub, n := consumeBytes(buf)
		if n < 0 {
			return res, errParse(n)
		}
		buf = buf[n:]
		fr, err := parseFields(sub)
		if err != nil {
			return res, err
		}
		res.Accounts = append(res.Accounts, TraderAccount{
			CtidTraderAccountID: fr.i64(1),
			IsLive:              fr.boolean(2),
		})
	}
	return res, nil
}

// --- ACCOUNT_AUTH --------------------------------------------------------

type AccountAuthReq struct {
	CtidTraderAccountID int64
	AccessToken          string
}

func (m AccountAuthReq) Marshal() []byte {
	var w fieldWriter
	w.varint(1, uint64(m.CtidTraderAccountID))
	w.str(2, m.AccessToken)
	return w.buf
}

type AccountAuthRes struct {
	CtidTraderAccountID int64
}

func DecodeAccountAuthRes(buf []byte) (AccountAuthRes, error) {
	fr, err := parseFields(buf)
	if err != nil {
		return AccountAuthRes{}, err
	}
	return AccountAuthRes{CtidTraderAccountID: fr.i64(1)}, nil
}

// --- SYMBOLS_LIST ----------------------------------------------------------

type SymbolsListReq struct {
	CtidTraderAccountID int64
}

func (m SymbolsListReq) Marshal() []byte {
	var w fieldWriter
	w.varint(1, uint64(m.CtidTraderAccountID))
	return w.buf
}

// Symbol describes a single tradable instrument as reported by the
// broker's symbol catalog.
type Symbol struct {
	SymbolID     int64
	SymbolName   string
	Enabled      bool
	Digits       int32
	PipPosition  int32
}

type SymbolsListRes struct {
	Symbols []Symbol
}

func DecodeSymbolsListRes(buf []byte) (SymbolsListRes, error) {
	var res SymbolsListRes
	for len(buf) > 0 {
		num, typ, n := consumeTag(buf)
		if n < 0 {
			return res, errParse(n)
		}
		buf = buf[n:]
		if num != 1 {
			n := skipField(num, typ, buf)
			if n < 0 {
				return res, errParse(n)
			}
			buf = buf[n:]
			continue
		}
		sub, n := consumeBytes(buf)
		if n < 0 {
			return res, errParse(n)
		}
		buf = buf[n:]
		fr, err := parseFields(sub)
		if err != nil {
			return res, err
		}
		res.Symbols = append(res.Symbols, Symbol{
			SymbolID:    fr.i64(1),
			SymbolName:  fr.str(2),
			Enabled:     fr.boolean(3),
			Digits:      int32(fr.i64(4)),
			PipPosition: int32(fr.i64(5)),
		})
	}
	return res, nil
}

// --- SUBSCRIBE/UNSUBSCRIBE SPOTS ------------------------------------------

type SubscribeSpotsReq struct {
	CtidTraderAccountID int64
	SymbolID            []int64
}

func (m SubscribeSpotsReq) Marshal() []byte {
	var w fieldWriter
	w.varint(1, uint64(m.CtidTraderAccountID))
	for _, id := range m.SymbolID {
		w.buf = appendTagVarint(w.buf, 2, uint64(id))
	}
	return w.buf
}

type UnsubscribeSpotsReq struct {
	CtidTraderAccountID int64
	SymbolID            []int64
}

func (m UnsubscribeSpotsReq) Marshal() []byte {
	var w fieldWriter
	w.varint(1, uint64(m.CtidTraderAccountID))
	for _, id := range m.SymbolID {
		w.buf = appendTagVarint(w.buf, 2, uint64(id))
	}
	return w.buf
}

// SpotEvent is a real-time tick. Bid/Ask are raw wire integers
// (price * 100000); callers use PriceFromWire to convert.
type SpotEvent struct {
	CtidTraderAccountID int64
	SymbolID            int64
	Bid                 int64
	Ask                 int64
}

func DecodeSpotEvent(buf []byte) (SpotEvent, error) {
	fr, err := parseFields(buf)
	if err != nil {
		return SpotEvent{}, err
	}
	return SpotEvent{
		CtidTraderAccountID: fr.i64(1),
		SymbolID:            fr.i64(2),
		Bid:                 fr.i64(3),
		Ask:                 fr.i64(4),
	}, nil
}

// --- TRENDBARS -------------------------------------------------------------

type GetTrendbarsReq struct {
	CtidTraderAccountID   int64
	SymbolID              int64
	Period                TrendbarPeriod
	FromTimestamp         int64
	ToTimestamp           int64
	Count                 int32
}

func (m GetTrendbarsReq) Marshal() []byte {
	var w fieldWriter
	w.varint(1, uint64(m.CtidTraderAccountID))
	w.varint(2, uint64(m.SymbolID))
	w.varint(3, uint64(m.Period))
	w.varint(4, uint64(m.FromTimestamp))
	w.varint(5, uint64(m.ToTimestamp))
	w.varint(6, uint64(m.Count))
	return w.buf
}

// Bar is a single OHLC candle. On the wire, low is absolute and
// open/high/close are encoded as non-negative deltas from low; the
// timestamp is utcTimestampInMinutes * 60 * 1000.
type Bar struct {
	SymbolID              int64
	Period                TrendbarPeriod
	UTCTimestampInMinutes int64
	Low                   int64
	DeltaOpen             int64
	DeltaHigh             int64
	DeltaClose            int64
	Volume                int64
}

// Timestamp returns the bar's open time in unix milliseconds.
func (b Bar) Timestamp() int64 { return b.UTCTimestampInMinutes * 60 * 1000 }

// Open, High, Close reconstruct absolute wire-scaled prices from the
// low + delta encoding.
func (b Bar) Open() int64  { return b.Low + b.DeltaOpen }
func (b Bar) High() int64  { return b.Low + b.DeltaHigh }
func (b Bar) Close() int64 { return b.Low + b.DeltaClose }

func decodeBar(buf []byte) (Bar, error) {
	fr, err := parseFields(buf)
	if err != nil {
		return Bar{}, err
	}
	return Bar{
		UTCTimestampInMinutes: fr.i64(1),
		Low:                   fr.i64(2),
		DeltaOpen:             fr.i64(3),
		DeltaHigh:             fr.i64(4),
		DeltaClose:            fr.i64(5),
		Volume:                fr.i64(6),
	}, nil
}

type GetTrendbarsRes struct {
	SymbolID int64
	Period   TrendbarPeriod
	Bars     []Bar
}

func DecodeGetTrendbarsRes(buf []byte) (GetTrendbarsRes, error) {
	var res GetTrendbarsRes
	for len(buf) > 0 {
		num, typ, n := consumeTag(buf)
		if n < 0 {
			return res, errParse(n)
		}
		buf = buf[n:]
		switch num {
		case 1:
			v, n := consumeVarint(buf)
			if n < 0 {
				return res, errParse(n)
			}
			res.SymbolID = int64(v)
			buf = buf[n:]
		case 2:
			v, n := consumeVarint(buf)
			if n < 0 {
				return res, errParse(n)
			}
			res.Period = TrendbarPeriod(v)
			buf = buf[n:]
		case 3:
			sub, n := consumeBytes(buf)
			if n < 0 {
				return res, errParse(n)
			}
			buf = buf[n:]
			bar, err := decodeBar(sub)
			if err != nil {
				return res, err
			}
			bar.SymbolID = res.SymbolID
			bar.Period = res.Period
			res.Bars = append(res.Bars, bar)
		default:
			n := skipField(num, typ, buf)
			if n < 0 {
				return res, errParse(n)
			}
			buf = buf[n:]
		}
	}
	return res, nil
}

// --- NEW_ORDER -------------------------------------------------------------

// OrderType/TradeSide mirror the broker's own small enums.
type OrderType int32

const (
	OrderTypeMarket OrderType = 1
	OrderTypeLimit  OrderType = 2
	OrderTypeStop   OrderType = 3
)

type TradeSide int32

const (
	TradeSideBuy  TradeSide = 1
	TradeSideSell TradeSide = 2
)

type NewOrderReq struct {
	CtidTraderAccountID int64
	SymbolID            int64
	OrderType           OrderType
	TradeSide           TradeSide
	Volume              int64 // wire-scaled: ceil(lots*100)
	StopLoss            int64 // wire-scaled price, 0 = omit
	TakeProfit          int64 // wire-scaled price, 0 = omit
	ClientOrderID       string
}

func (m NewOrderReq) Marshal() []byte {
	var w fieldWriter
	w.varint(1, uint64(m.CtidTraderAccountID))
	w.varint(2, uint64(m.SymbolID))
	w.varint(3, uint64(m.OrderType))
	w.varint(4, uint64(m.TradeSide))
	w.varint(5, uint64(m.Volume))
	w.varint(6, uint64(m.StopLoss))
	w.varint(7, uint64(m.TakeProfit))
	w.str(8, m.ClientOrderID)
	return w.buf
}

// --- EXECUTION_EVENT / ORDER_ERROR_EVENT -----------------------------------

type ExecutionType int32

const (
	ExecutionTypeOrderAccepted ExecutionType = 1
	ExecutionTypeOrderFilled   ExecutionType = 2
	ExecutionTypeOrderRejected ExecutionType = 3
)

type ExecutionEvent struct {
	CtidTraderAccountID int64
	ExecutionType       ExecutionType
	PositionID          int64
	SymbolID            int64
	ClientOrderID       string
}

func DecodeExecutionEvent(buf []byte) (ExecutionEvent, error) {
	fr, err := parseFields(buf)
	if err != nil {
		return ExecutionEvent{}, err
	}
	return ExecutionEvent{
		CtidTraderAccountID: fr.i64(1),
		ExecutionType:       ExecutionType(fr.u64(2)),
		PositionID:          fr.i64(3),
		SymbolID:            fr.i64(4),
		ClientOrderID:       fr.str(5),
	}, nil
}

type OrderErrorEvent struct {
	CtidTraderAccountID int64
	ErrorCode           string
	Description         string
	ClientOrderID       string
}

func DecodeOrderErrorEvent(buf []byte) (OrderErrorEvent, error) {
	fr, err := parseFields(buf)
	if err != nil {
		return OrderErrorEvent{}, err
	}
	return OrderErrorEvent{
		CtidTraderAccountID: fr.i64(1),
		ErrorCode:           fr.str(2),
		Description:         fr.str(3),
		ClientOrderID:       fr.str(4),
	}, nil
}

// ErrorRes is the generic PayloadErrorRes envelope payload.
type ErrorRes struct {
	ErrorCode   string
	Description string
}

func DecodeErrorRes(buf []byte) (ErrorRes, error) {
	fr, err := parseFields(buf)
	if err != nil {
		return ErrorRes{}, err
	}
	return ErrorRes{ErrorCode: fr.str(1), Description: fr.str(2)}, nil
}

// --- RECONCILE ---------------------------------------------------------

type ReconcileReq struct {
	CtidTraderAccountID int64
}

func (m ReconcileReq) Marshal() []byte {
	var w fieldWriter
	w.varint(1, uint64(m.CtidTraderAccountID))
	return w.buf
}

type OpenPosition struct {
	PositionID int64
	SymbolID   int64
	TradeSide  TradeSide
	Volume     int64
	EntryPrice int64
}

type ReconcileRes struct {
	Positions []OpenPosition
}

func DecodeReconcileRes(buf []byte) (ReconcileRes, error) {
	var res ReconcileRes
	for len(buf) > 0 {
		num, typ, n := consumeTag(buf)
		if n < 0 {
			return res, errParse(n)
		}
		buf = buf[n:]
		if num != 1 {
			n := skipField(num, typ, buf)
			if n < 0 {
				return res, errParse(n)
			}
			buf = buf[n:]
			continue
		}
		sub, n := consumeBytes(buf)
		if n < 0 {
			return res, errParse(n)
		}
		buf = buf[n:]
		fr, err := parseFields(sub)
		if err != nil {
			return res, err
		}
		res.Positions = append(res.Positions, OpenPosition{
			PositionID: fr.i64(1),
			SymbolID:   fr.i64(2),
			TradeSide:  TradeSide(fr.u64(3)),
			Volume:     fr.i64(4),
			EntryPrice: fr.i64(5),
		})
	}
	return res, nil
}

// --- TRADER (balance/equity) ------------------------------------------

type TraderReq struct {
	CtidTraderAccountID int64
}

func (m TraderReq) Marshal() []byte {
	var w fieldWriter
	w.varint(1, uint64(m.CtidTraderAccountID))
	return w.buf
}

type TraderRes struct {
	Balance int64 // wire-scaled
	Equity  int64 // wire-scaled
}

func DecodeTraderRes(buf []byte) (TraderRes, error) {
	fr, err := parseFields(buf)
	if err != nil {
		return TraderRes{}, err
	}
	return TraderRes{Balance: fr.i64(1), Equity: fr.i64(2)}, nil
}

// --- HEARTBEAT / CLIENT_DISCONNECT -----------------------------------------

type HeartbeatEvent struct{}

func (m HeartbeatEvent) Marshal() []byte { return nil }

type ClientDisconnectEvent struct {
	Reason string
}

func DecodeClientDisconnectEvent(buf []byte) (ClientDisconnectEvent, error) {
	fr, err := parseFields(buf)
	if err != nil {
		return ClientDisconnectEvent{}, err
	}
	return ClientDisconnectEvent{Reason: fr.str(1)}, nil
}
