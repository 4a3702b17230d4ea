// Package executor runs the per-trial control loop: an explicit finite
// state machine alternating decision calls with tool dispatch, retrying
// failed validations on the same accumulated transcript.
package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/signalnine/sqlbench/internal/agent"
	"github.com/signalnine/sqlbench/internal/scorer"
	"github.com/signalnine/sqlbench/internal/tools"
	"github.com/signalnine/sqlbench/internal/trace"
)

// Answer is what a trial finally produced: the free-text final response
// plus the candidate artifacts the loop tracked along the way.
type Answer struct {
	Content    string `json:"content"`
	Query      string `json:"query,omitempty"`
	LastResult string `json:"last_result,omitempty"`
}

// Validator judges a final answer. Implementations must not fail: every
// outcome is a Verdict.
type Validator interface {
	Validate(ctx context.Context, answer Answer) scorer.Verdict
}

// Options wires one trial run.
type Options struct {
	Client     agent.Client
	Dispatcher *tools.Dispatcher
	Validator  Validator
	Recorder   *trace.Recorder

	Question     string
	SystemPrompt string
	MaxRetries   int // validation / decision attempt budget
	StepLimit    int // hard ceiling on decision + tool calls
}

// Outcome is the finalized trial. Immutable once returned; re-scoring
// means running a new trial.
type Outcome struct {
	State             State
	TerminationReason string
	Transcript        []agent.Message
	Answer            Answer
	Verdict           scorer.Verdict
	Attempts          int
	Steps             int
	Usage             agent.Usage
	Duration          time.Duration
}

// Run drives one trial to a terminal state. It never returns an error:
// all failures land in the Outcome's termination reason, so one broken
// trial can never abort its siblings.
func Run(ctx context.Context, opts Options) *Outcome {
	start := time.Now()
	out := &Outcome{State: StateInit, Attempts: 1}

	rec := opts.Recorder
	root := rec.Start(nil, "trial", "trial", map[string]any{"question": opts.Question})
	defer func() {
		out.Duration = time.Since(start)
		rec.Finish(root, map[string]any{
			"state":  out.State.String(),
			"reason": out.TerminationReason,
			"reward": out.Verdict.Reward,
		}, nil)
	}()

	// INIT: seed the transcript. It only ever grows from here.
	out.Transcript = []agent.Message{
		{Role: agent.RoleSystem, Content: opts.SystemPrompt},
		{Role: agent.RoleUser, Content: opts.Question},
	}

	toolDefs := tools.Definitions()
	decisionFailures := 0
	out.State = StateAwaitingDecision

	var pending []agent.ToolRequest

	for {
		if ctx.Err() != nil {
			return out.fail(ReasonCancelled)
		}

		switch out.State {
		case StateAwaitingDecision:
			if out.Steps >= opts.StepLimit {
				return out.fail(ReasonStepLimit)
			}
			out.Steps++

			span := rec.Start(root, "decision", "decision", map[string]any{
				"messages": len(out.Transcript),
			})
			decision, err := opts.Client.Decide(ctx, agent.CloneMessages(out.Transcript), toolDefs)
			if err != nil {
				rec.Finish(span, nil, err)
				if ctx.Err() != nil {
					return out.fail(ReasonCancelled)
				}
				if !agent.IsDecisionError(err) {
					// Non-transient contract breach; still absorbed into the trial.
					return out.fail(ReasonDecisionExhausted)
				}
				decisionFailures++
				if decisionFailures >= opts.MaxRetries {
					return out.fail(ReasonDecisionExhausted)
				}
				continue
			}
			rec.Finish(span, map[string]any{
				"tool_calls": len(decision.Tools),
				"final":      decision.Final != nil,
			}, nil)

			out.Usage.InputTokens += decision.Usage.InputTokens
			out.Usage.OutputTokens += decision.Usage.OutputTokens
			out.Transcript = append(out.Transcript, decision.Assistant)

			if decision.Final != nil {
				out.Answer.Content = decision.Final.Content
				out.State = StateFinalizing
			} else {
				pending = decision.Tools
				out.State = StateDispatchingTool
			}

		case StateDispatchingTool:
			for _, req := range pending {
				if ctx.Err() != nil {
					return out.fail(ReasonCancelled)
				}
				if out.Steps >= opts.StepLimit {
					return out.fail(ReasonStepLimit)
				}
				out.Steps++

				call := opts.Dispatcher.Dispatch(ctx, req, rec, root)
				out.trackCandidate(req, call)

				// Failures ride back as data so the decision step can react.
				out.Transcript = append(out.Transcript, agent.Message{
					Role:       agent.RoleTool,
					Name:       req.Name,
					ToolCallID: req.ID,
					Content:    toolMessage(call),
				})
			}
			pending = nil
			out.State = StateAwaitingDecision

		case StateFinalizing:
			span := rec.Start(root, "validate", "scorer", map[string]any{"query": out.Answer.Query})
			verdict := opts.Validator.Validate(ctx, out.Answer)
			rec.Finish(span, map[string]any{"reward": verdict.Reward, "reason": verdict.Reason}, nil)

			out.Verdict = verdict
			if verdict.Pass {
				out.State = StateSucceeded
				out.TerminationReason = ReasonCompleted
				return out
			}
			if out.Attempts >= opts.MaxRetries {
				return out.fail(ReasonMaxRetries)
			}
			// Retry with the accumulated transcript: the decision step sees
			// its own mistake and the validator's explanation.
			out.Attempts++
			out.Transcript = append(out.Transcript, agent.Message{
				Role:    agent.RoleUser,
				Content: feedbackMessage(verdict),
			})
			out.State = StateAwaitingDecision
		}
	}
}

func (o *Outcome) fail(reason string) *Outcome {
	o.State = StateFailed
	o.TerminationReason = reason
	o.Verdict.Reward = 0.0
	o.Verdict.Pass = false
	if o.Verdict.Reason == "" {
		o.Verdict.Reason = reason
	}
	return o
}

// trackCandidate watches the tool stream for the artifacts that become the
// final Answer: the last .sql file written and the last sqlite3 output.
func (o *Outcome) trackCandidate(req agent.ToolRequest, call *tools.Call) {
	switch req.Name {
	case tools.ToolWriteFile:
		path, _ := req.Arguments["path"].(string)
		if strings.HasSuffix(path, ".sql") && call.Err == nil {
			if content, ok := req.Arguments["content"].(string); ok {
				o.Answer.Query = content
			}
		}
	case tools.ToolExecuteCommand:
		cmd, _ := req.Arguments["cmd"].(string)
		if strings.Contains(cmd, "sqlite3") && call.Err == nil {
			o.Answer.LastResult = call.Content
		}
	}
}

func toolMessage(call *tools.Call) string {
	if call.Err != nil {
		return fmt.Sprintf("Error (%s): %v", call.ErrClass, call.Err)
	}
	return call.Content
}

func feedbackMessage(v scorer.Verdict) string {
	reason := v.Reason
	if reason == "" {
		reason = "the results did not match the expected answer"
	}
	return fmt.Sprintf("Your answer was not accepted: %s. "+
		"Re-examine the schema and your query, then try again.", reason)
}
