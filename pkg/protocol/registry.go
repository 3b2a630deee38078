package protocol

// reqRes pairs a request payload type with the payload type of its
// terminal response, used by pkg/ctrader to know what to wait for
// after sending a Request.
var reqRes = map[PayloadType]PayloadType{
	PayloadApplicationAuthReq:       PayloadApplicationAuthRes,
	PayloadGetAccountsByTokenReq:    PayloadGetAccountsByTokenRes,
	PayloadAccountAuthReq:           PayloadAccountAuthRes,
	PayloadSymbolsListReq:           PayloadSymbolsListRes,
	PayloadSubscribeSpotsReq:        PayloadSubscribeSpotsRes,
	PayloadUnsubscribeSpotsReq:      PayloadUnsubscribeSpotsRes,
	PayloadGetTrendbarsReq:          PayloadGetTrendbarsRes,
	PayloadSubscribeLiveTrendbarReq: PayloadSubscribeLiveTrendbarRes,
	PayloadReconcileReq:             PayloadReconcileRes,
	PayloadTraderReq:                PayloadTraderRes,
}

// ExpectedResponse returns the payload type that terminates a request
// of the given type, and whether one is registered.
func ExpectedResponse(req PayloadType) (PayloadType, bool) {
	res, ok := reqRes[req]
	return res, ok
}

// IsEvent reports whether a payload type is a server-pushed event
// rather than a response to a specific request.
func IsEvent(p PayloadType) bool {
	switch p {
	case PayloadSpotEvent, PayloadExecutionEvent, PayloadOrderErrorEvent,
		PayloadTraderUpdateEvent, PayloadClientDisconnectEvent, PayloadHeartbeatEvent:
		return true
	default:
		return false
	}
}
