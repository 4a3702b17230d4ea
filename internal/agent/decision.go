package agent

import (
	"context"
	"errors"
	"fmt"
)

// ToolDefinition describes one tool in the schema handed to the decision step.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// FinalAnswer terminates the loop: the decision step is done with tools.
type FinalAnswer struct {
	Content string `json:"content"`
}

// Usage is the token accounting a provider reports for one decision call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Decision is the outcome of one decision step: exactly one of Tools or
// Final is populated. Tools may carry several requests when the provider
// batches invocations in a single assistant turn.
type Decision struct {
	Tools     []ToolRequest
	Final     *FinalAnswer
	Assistant Message // assistant turn to append to the transcript
	Usage     Usage
}

// Client is the decision step: given the transcript so far and the declared
// tool schema, produce the next action. Implementations wrap a language
// model provider; tests use ScriptedClient.
type Client interface {
	Decide(ctx context.Context, transcript []Message, tools []ToolDefinition) (*Decision, error)
}

// DecisionError marks a transient provider failure (unreachable endpoint,
// rate limiting, malformed response). The executor retries these up to its
// attempt budget.
type DecisionError struct {
	Err error
}

func (e *DecisionError) Error() string {
	return fmt.Sprintf("decision step: %v", e.Err)
}

func (e *DecisionError) Unwrap() error { return e.Err }

// IsDecisionError reports whether err is (or wraps) a DecisionError.
func IsDecisionError(err error) bool {
	var de *DecisionError
	return errors.As(err, &de)
}
