package monitor

import "ctrader-smc-engine/internal/risk"

// RuleEvaluator inspects a risk manager's CanOpenPosition result and
// decides whether it warrants an alert (e.g. the daily circuit
// breaker tripping, which the engine should not silently swallow).
type RuleEvaluator struct{}

func (r *RuleEvaluator) Check(result risk.CanOpenResult) (bool, string) {
	if !result.Allowed && result.Reason != "" {
		return true, result.Reason
	}
	return false, ""
}
