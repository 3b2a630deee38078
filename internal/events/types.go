package events

// Event enumerates high-level topics inside the engine.
type Event string

const (
	EventSpotTick         Event = "spot_tick"
	EventBarClosed        Event = "bar_closed"
	EventExecution        Event = "execution"
	EventOrderError       Event = "order_error"
	EventTrade            Event = "trade"
	EventPerformance      Event = "performance"
	EventRiskAlert        Event = "risk_alert"
	EventLockAcquired     Event = "lock_acquired"
	EventLockBlocked      Event = "lock_blocked"
	EventLockReleased     Event = "lock_released"
	EventLockTimeout      Event = "lock_timeout"
	EventFSMTransition    Event = "smc_fsm_transition"
	EventPoolsBuilt       Event = "smc_pools_built"
	EventSymbolStatus     Event = "smc_status"
	EventDecision         Event = "smc_decision"
	EventBrokerDisconnect Event = "broker_disconnected"
)
