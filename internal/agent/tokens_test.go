package agent

import (
	"testing"

	"github.com/pkoukk/tiktoken-go"
)

func TestEstimateUsage(t *testing.T) {
	transcript := []Message{
		{Role: RoleSystem, Content: "You answer questions about a database."},
		{Role: RoleUser, Content: "How many customers are there?"},
	}
	usage := EstimateUsage("gpt-4o", transcript, "There are 8 customers.")
	if usage.InputTokens <= 0 {
		t.Errorf("input tokens = %d, want > 0", usage.InputTokens)
	}
	if usage.OutputTokens <= 0 {
		t.Errorf("output tokens = %d, want > 0", usage.OutputTokens)
	}
}

func TestEncodingCachedPerModel(t *testing.T) {
	encodingMu.Lock()
	encodings = map[string]*tiktoken.Tiktoken{}
	encodingMu.Unlock()

	encodingFor("gpt-4o")
	encodingFor("some-other-model")

	encodingMu.Lock()
	defer encodingMu.Unlock()
	if _, ok := encodings["gpt-4o"]; !ok {
		t.Error("gpt-4o missing from encoding cache")
	}
	if _, ok := encodings["some-other-model"]; !ok {
		t.Error("second model missing from encoding cache; cache keyed by first model only?")
	}
	if len(encodings) != 2 {
		t.Errorf("cache entries = %d, want 2", len(encodings))
	}
}
