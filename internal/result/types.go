package result

// TrialRecord is the durable summary of one trial, written as meta.json
// in the trial directory. The transcript and span tree live beside it in
// their own files so the record stays cheap to scan in bulk.
type TrialRecord struct {
	Task              string  `json:"task"`
	Model             string  `json:"model"`
	Trial             int     `json:"trial"`
	State             string  `json:"state"`
	TerminationReason string  `json:"termination_reason"`
	Attempts          int     `json:"attempts"`
	Steps             int     `json:"steps"`
	DurationMS        int64   `json:"duration_ms"`
	Reward            float64 `json:"reward"`
	Pass              bool    `json:"pass"`
	StructuralScore   float64 `json:"structural_score"`
	Reason            string  `json:"reason,omitempty"`
	Answer            string  `json:"answer,omitempty"`
	Query             string  `json:"query,omitempty"`
	InputTokens       int     `json:"input_tokens"`
	OutputTokens      int     `json:"output_tokens"`
	CostUSD           float64 `json:"cost_usd"`
}
