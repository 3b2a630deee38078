package smc

// MaxTransitionHistory bounds the per-symbol transition log (spec.md
// §3: "bounded transition history (last 20)").
const MaxTransitionHistory = 20

// EventKind enumerates the inputs the FSM's transition function
// accepts. Every (State, EventKind) pair is handled by Transition,
// either with a real state change or a documented no-op — there are no
// undefined cases (testable property: FSM totality).
type EventKind string

const (
	EventBoot             EventKind = "boot"
	EventSweepConfirmed   EventKind = "sweep_confirmed"
	EventCHoCHConfirmed   EventKind = "choch_confirmed"
	EventFVGValid         EventKind = "fvg_valid"
	EventFVGMitigated     EventKind = "fvg_mitigated"
	EventFVGInvalidated   EventKind = "fvg_invalidated"
	EventTradeExecuted    EventKind = "trade_executed"
	EventCooldownElapsed  EventKind = "cooldown_elapsed"
	EventStateTimeout     EventKind = "state_timeout"
	EventContextNoTrade   EventKind = "context_no_trade"
	EventSessionRollover  EventKind = "session_rollover"
)

// Input bundles an event with the data its side effects need.
type Input struct {
	Kind       EventKind
	SweepPool  Pool
	CHoCHDir   Direction
	CHoCHPrice float64
	FVG        FVG
	Timestamp  int64
}

// Outcome is the result of applying one Input to the FSM: the next
// state, whether a transition actually occurred, and an optional
// terminal Decision to log.
type Outcome struct {
	Next       State
	Changed    bool
	Reason     string
	Decision   *Decision
}

// Transition is the FSM's total pattern match: every (current state,
// event) combination returns a defined Outcome. Combinations not
// listed in spec.md §4.F's transition table are documented no-ops
// (Changed=false) rather than undefined behavior.
func Transition(current State, in Input) Outcome {
	// Rollover and timeout apply uniformly from any non-IDLE state.
	if in.Kind == EventSessionRollover {
		if current == StateIdle {
			return Outcome{Next: StateIdle, Changed: false, Reason: "already idle"}
		}
		return Outcome{Next: StateIdle, Changed: true, Reason: "session_rollover"}
	}
	if in.Kind == EventStateTimeout {
		if current == StateIdle {
			return Outcome{Next: StateIdle, Changed: false, Reason: "idle has no timeout"}
		}
		return Outcome{
			Next: StateIdle, Changed: true, Reason: "state_timeout",
			Decision: &Decision{Type: DecisionExpire, Reason: "state_timeout", Timestamp: in.Timestamp},
		}
	}
	if in.Kind == EventContextNoTrade {
		if current == StateIdle {
			return Outcome{Next: StateIdle, Changed: false, Reason: "already idle"}
		}
		return Outcome{
			Next: StateIdle, Changed: true, Reason: "context_reject",
			Decision: &Decision{Type: DecisionNoTrade, Reason: "context_reject", Timestamp: in.Timestamp},
		}
	}

	switch current {
	case StateIdle:
		if in.Kind == EventBoot {
			return Outcome{Next: StateWaitSweep, Changed: true, Reason: "previous_session_ready"}
		}
		return Outcome{Next: StateIdle, Changed: false, Reason: "no-op"}

	case StateWaitSweep:
		if in.Kind == EventSweepConfirmed {
			return Outcome{Next: StateWaitCHoCH, Changed: true, Reason: "sweep_confirmed"}
		}
		return Outcome{Next: StateWaitSweep, Changed: false, Reason: "no-op"}

	case StateWaitCHoCH:
		if in.Kind == EventCHoCHConfirmed {
			return Outcome{Next: StateWaitFVG, Changed: true, Reason: "choch_confirmed"}
		}
		return Outcome{Next: StateWaitCHoCH, Changed: false, Reason: "no-op"}

	case StateWaitFVG:
		if in.Kind == EventFVGValid {
			return Outcome{Next: StateWaitMitigation, Changed: true, Reason: "fvg_valid"}
		}
		return Outcome{Next: StateWaitFVG, Changed: false, Reason: "no-op"}

	case StateWaitMitigation:
		if in.Kind == EventFVGMitigated {
			return Outcome{Next: StateWaitEntry, Changed: true, Reason: "fvg_mitigated"}
		}
		if in.Kind == EventFVGInvalidated {
			return Outcome{
				Next: StateIdle, Changed: true, Reason: "fvg_invalidated",
				Decision: &Decision{Type: DecisionNoTrade, Reason: "fvg_invalidated", Timestamp: in.Timestamp},
			}
		}
		return Outcome{Next: StateWaitMitigation, Changed: false, Reason: "no-op"}

	case StateWaitEntry:
		if in.Kind == EventTradeExecuted {
			return Outcome{
				Next: StateCooldown, Changed: true, Reason: "trade_executed",
				Decision: &Decision{Type: DecisionTrade, Reason: "entry_confirmed", Timestamp: in.Timestamp},
			}
		}
		return Outcome{Next: StateWaitEntry, Changed: false, Reason: "no-op"}

	case StateCooldown:
		if in.Kind == EventCooldownElapsed {
			return Outcome{Next: StateIdle, Changed: true, Reason: "cooldown_elapsed"}
		}
		return Outcome{Next: StateCooldown, Changed: false, Reason: "no-op"}

	default:
		return Outcome{Next: StateIdle, Changed: true, Reason: "unknown_state_reset"}
	}
}
