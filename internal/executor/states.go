package executor

// State enumerates the control-loop states for one trial. Transitions:
//
//	INIT → AWAITING_DECISION → (DISPATCHING_TOOL | FINALIZING) → {SUCCEEDED, FAILED}
//
// DISPATCHING_TOOL always returns to AWAITING_DECISION; FINALIZING returns
// there too when validation fails with attempts remaining.
type State int

const (
	StateInit State = iota
	StateAwaitingDecision
	StateDispatchingTool
	StateFinalizing
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateAwaitingDecision:
		return "AWAITING_DECISION"
	case StateDispatchingTool:
		return "DISPATCHING_TOOL"
	case StateFinalizing:
		return "FINALIZING"
	case StateSucceeded:
		return "SUCCEEDED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Termination reasons recorded on the finished trial.
const (
	ReasonCompleted         = "completed"
	ReasonDecisionExhausted = "decision_exhausted"
	ReasonMaxRetries        = "max_retries_exceeded"
	ReasonStepLimit         = "step_limit_exceeded"
	ReasonCancelled         = "cancelled"
)
