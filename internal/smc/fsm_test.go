package smc

import "testing"

// TestFSMTotality checks that every (state, event) pair returns a
// defined Outcome — never panics, always a concrete Next state.
func TestFSMTotality(t *testing.T) {
	states := []State{
		StateIdle, StateWaitSweep, StateWaitCHoCH, StateWaitFVG,
		StateWaitMitigation, StateWaitEntry, StateCooldown, State("BOGUS_STATE"),
	}
	events := []EventKind{
		EventBoot, EventSweepConfirmed, EventCHoCHConfirmed, EventFVGValid,
		EventFVGMitigated, EventFVGInvalidated, EventTradeExecuted,
		EventCooldownElapsed, EventStateTimeout, EventContextNoTrade,
		EventSessionRollover, EventKind("bogus_event"),
	}
	for _, s := range states {
		for _, e := range events {
			out := Transition(s, Input{Kind: e})
			if out.Next == "" {
				t.Fatalf("Transition(%s, %s) returned an empty Next state", s, e)
			}
		}
	}
}

func TestFSMHappyPath(t *testing.T) {
	seq := []struct {
		from EventKind
		want State
	}{
		{EventBoot, StateWaitSweep},
		{EventSweepConfirmed, StateWaitCHoCH},
		{EventCHoCHConfirmed, StateWaitFVG},
		{EventFVGValid, StateWaitMitigation},
		{EventFVGMitigated, StateWaitEntry},
		{EventTradeExecuted, StateCooldown},
		{EventCooldownElapsed, StateIdle},
	}
	state := StateIdle
	for _, step := range seq {
		out := Transition(state, Input{Kind: step.from})
		if !out.Changed || out.Next != step.want {
			t.Fatalf("from %s on %s: expected %s, got %s (changed=%v)", state, step.from, step.want, out.Next, out.Changed)
		}
		state = out.Next
	}
}

func TestFSMUnrelatedEventIsNoOp(t *testing.T) {
	out := Transition(StateWaitSweep, Input{Kind: EventFVGValid})
	if out.Changed || out.Next != StateWaitSweep {
		t.Fatalf("expected no-op, got %+v", out)
	}
}

func TestFSMTimeoutAndRolloverResetFromAnyState(t *testing.T) {
	for _, s := range []State{StateWaitSweep, StateWaitCHoCH, StateWaitFVG, StateWaitMitigation, StateWaitEntry} {
		out := Transition(s, Input{Kind: EventStateTimeout})
		if !out.Changed || out.Next != StateIdle || out.Decision == nil || out.Decision.Type != DecisionExpire {
			t.Fatalf("timeout from %s should reset to IDLE with an EXPIRE decision, got %+v", s, out)
		}
		out2 := Transition(s, Input{Kind: EventSessionRollover})
		if !out2.Changed || out2.Next != StateIdle {
			t.Fatalf("rollover from %s should reset to IDLE, got %+v", s, out2)
		}
	}
}
