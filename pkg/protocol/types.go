// Package protocol implements the cTrader Open API wire envelope and
// message encodings: a thin protobuf-wire-format layer built directly on
// google.golang.org/protobuf/encoding/protowire, without generated
// .pb.go bindings.
package protocol

// PayloadType identifies the shape of a message's payload.
type PayloadType uint32

// Exact payload-type identifiers used on the wire. These values come
// from the broker's API contract and must never be changed.
const (
	PayloadApplicationAuthReq      PayloadType = 2100
	PayloadApplicationAuthRes      PayloadType = 2101
	PayloadAccountAuthReq          PayloadType = 2102
	PayloadAccountAuthRes          PayloadType = 2103
	PayloadNewOrderReq             PayloadType = 2106
	PayloadAmendPositionSLTPReq    PayloadType = 2110
	PayloadClosePositionReq        PayloadType = 2111
	PayloadSymbolsListReq          PayloadType = 2114
	PayloadSymbolsListRes          PayloadType = 2115
	PayloadTraderReq               PayloadType = 2121
	PayloadTraderRes               PayloadType = 2122
	PayloadTraderUpdateEvent       PayloadType = 2123
	PayloadReconcileReq            PayloadType = 2124
	PayloadReconcileRes            PayloadType = 2125
	PayloadExecutionEvent          PayloadType = 2126
	PayloadSubscribeSpotsReq       PayloadType = 2127
	PayloadSubscribeSpotsRes       PayloadType = 2128
	PayloadUnsubscribeSpotsReq     PayloadType = 2129
	PayloadUnsubscribeSpotsRes     PayloadType = 2130
	PayloadSpotEvent               PayloadType = 2131
	PayloadOrderErrorEvent         PayloadType = 2132
	PayloadSubscribeLiveTrendbarReq PayloadType = 2135
	PayloadGetTrendbarsReq         PayloadType = 2137
	PayloadGetTrendbarsRes         PayloadType = 2138
	PayloadErrorRes                PayloadType = 2142
	PayloadClientDisconnectEvent   PayloadType = 2148
	PayloadGetAccountsByTokenReq   PayloadType = 2149
	PayloadGetAccountsByTokenRes   PayloadType = 2150
	PayloadSubscribeLiveTrendbarRes PayloadType = 2165
	PayloadHeartbeatEvent          PayloadType = 51
)

// payloadNames maps a PayloadType to a human-readable message name,
// used for logging through PayloadType.Name.
var payloadNames = map[PayloadType]string{
	PayloadApplicationAuthReq:       "APPLICATION_AUTH_REQ",
	PayloadApplicationAuthRes:       "APPLICATION_AUTH_RES",
	PayloadAccountAuthReq:           "ACCOUNT_AUTH_REQ",
	PayloadAccountAuthRes:           "ACCOUNT_AUTH_RES",
	PayloadNewOrderReq:              "NEW_ORDER_REQ",
	PayloadAmendPositionSLTPReq:     "AMEND_POSITION_SLTP_REQ",
	PayloadClosePositionReq:         "CLOSE_POSITION_REQ",
	PayloadSymbolsListReq:           "SYMBOLS_LIST_REQ",
	PayloadSymbolsListRes:           "SYMBOLS_LIST_RES",
	PayloadTraderReq:                "TRADER_REQ",
	PayloadTraderRes:                "TRADER_RES",
	PayloadTraderUpdateEvent:        "TRADER_UPDATE_EVENT",
	PayloadReconcileReq:             "RECONCILE_REQ",
	PayloadReconcileRes:             "RECONCILE_RES",
	PayloadExecutionEvent:           "EXECUTION_EVENT",
	PayloadSubscribeSpotsReq:        "SUBSCRIBE_SPOTS_REQ",
	PayloadSubscribeSpotsRes:        "SUBSCRIBE_SPOTS_RES",
	PayloadUnsubscribeSpotsReq:      "UNSUBSCRIBE_SPOTS_REQ",
	PayloadUnsubscribeSpotsRes:      "UNSUBSCRIBE_SPOTS_RES",
	PayloadSpotEvent:                "SPOT_EVENT",
	PayloadOrderErrorEvent:          "ORDER_ERROR_EVENT",
	PayloadSubscribeLiveTrendbarReq: "SUBSCRIBE_LIVE_TRENDBAR_REQ",
	PayloadGetTrendbarsReq:          "GET_TRENDBARS_REQ",
	PayloadGetTrendbarsRes:          "GET_TRENDBARS_RES",
	PayloadErrorRes:                 "ERROR_RES",
	PayloadClientDisconnectEvent:    "CLIENT_DISCONNECT_EVENT",
	PayloadGetAccountsByTokenReq:    "GET_ACCOUNTS_BY_TOKEN_REQ",
	PayloadGetAccountsByTokenRes:    "GET_ACCOUNTS_BY_TOKEN_RES",
	PayloadSubscribeLiveTrendbarRes: "SUBSCRIBE_LIVE_TRENDBAR_RES",
	PayloadHeartbeatEvent:           "HEARTBEAT_EVENT",
}

// Name returns the registered message name for a payload type, or
// "UNKNOWN" if it isn't one the registry knows about.
func (p PayloadType) Name() string {
	if n, ok := payloadNames[p]; ok {
		return n
	}
	return "UNKNOWN"
}

// IsError reports whether p is the generic error-response type.
func (p PayloadType) IsError() bool {
	return p == PayloadErrorRes
}

// TrendbarPeriod identifies a candle timeframe.
type TrendbarPeriod int32

const (
	PeriodM1  TrendbarPeriod = 1
	PeriodM2  TrendbarPeriod = 2
	PeriodM3  TrendbarPeriod = 3
	PeriodM4  TrendbarPeriod = 4
	PeriodM5  TrendbarPeriod = 5
	PeriodM10 TrendbarPeriod = 6
	PeriodM15 TrendbarPeriod = 7
	PeriodM30 TrendbarPeriod = 8
	PeriodH1  TrendbarPeriod = 9
	PeriodH4  TrendbarPeriod = 10
	PeriodH12 TrendbarPeriod = 11
	PeriodD1  TrendbarPeriod = 12
	PeriodW1  TrendbarPeriod = 13
	PeriodMN1 TrendbarPeriod = 14
)

// Minutes returns the timeframe's duration in minutes, used for bucket
// keys and bar-close detection. Returns 0 for periods without a fixed
// minute count (week/month), which must be handled by the caller.
func (p TrendbarPeriod) Minutes() int64 {
	switch p {
	case PeriodM1:
		return 1
	case PeriodM2:
		return 2
	case PeriodM3:
		return 3
	case PeriodM4:
		return 4
	case PeriodM5:
		return 5
	case PeriodM10:
		return 10
	case PeriodM15:
		return 15
	case PeriodM30:
		return 30
	case PeriodH1:
		return 60
	case PeriodH4:
		return 240
	case PeriodH12:
		return 720
	case PeriodD1:
		return 1440
	default:
		return 0
	}
}
