package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// OpenAIConfig configures the chat-completions decision client. Any
// OpenAI-compatible endpoint works (the wire protocol is not part of the
// executor's contract; this client is one pluggable implementation).
type OpenAIConfig struct {
	BaseURL           string
	APIKey            string
	Model             string
	MaxTokens         int
	RequestsPerSecond float64 // 0 = unlimited
}

// OpenAIClient implements Client over the chat completions API.
type OpenAIClient struct {
	cfg     OpenAIConfig
	http    *http.Client
	limiter *rate.Limiter
}

func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	c := &OpenAIClient{
		cfg:  cfg,
		http: &http.Client{Timeout: 120 * time.Second},
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c
}

type chatMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	Name       string         `json:"name,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
}

type chatToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens,omitempty"`
	Messages  []chatMessage `json:"messages"`
	Tools     []chatTool    `json:"tools,omitempty"`
}

type chatTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Parameters  map[string]any `json:"parameters"`
	} `json:"function"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *OpenAIClient) Decide(ctx context.Context, transcript []Message, tools []ToolDefinition) (*Decision, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req := chatRequest{
		Model:     c.cfg.Model,
		MaxTokens: c.cfg.MaxTokens,
		Messages:  encodeMessages(transcript),
	}
	for _, t := range tools {
		var ct chatTool
		ct.Type = "function"
		ct.Function.Name = t.Name
		ct.Function.Description = t.Description
		ct.Function.Parameters = t.Parameters
		req.Tools = append(req.Tools, ct)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &DecisionError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &DecisionError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &DecisionError{Err: fmt.Errorf("provider returned %d: %s", resp.StatusCode, truncate(string(data), 200))}
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, &DecisionError{Err: fmt.Errorf("malformed response: %w", err)}
	}
	if parsed.Error != nil {
		return nil, &DecisionError{Err: fmt.Errorf("provider error: %s", parsed.Error.Message)}
	}
	if len(parsed.Choices) == 0 {
		return nil, &DecisionError{Err: fmt.Errorf("no choices in response")}
	}

	msg := parsed.Choices[0].Message
	decision := &Decision{
		Usage: Usage{
			InputTokens:  parsed.Usage.PromptTokens,
			OutputTokens: parsed.Usage.CompletionTokens,
		},
	}
	if decision.Usage.InputTokens == 0 && decision.Usage.OutputTokens == 0 {
		decision.Usage = EstimateUsage(c.cfg.Model, transcript, msg.Content)
	}

	assistant := Message{Role: RoleAssistant, Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return nil, &DecisionError{Err: fmt.Errorf("tool call %s: bad arguments: %w", tc.Function.Name, err)}
			}
		}
		reqst := ToolRequest{ID: tc.ID, Name: tc.Function.Name, Arguments: args}
		assistant.ToolCalls = append(assistant.ToolCalls, reqst)
		decision.Tools = append(decision.Tools, reqst)
	}
	decision.Assistant = assistant
	if len(decision.Tools) == 0 {
		decision.Final = &FinalAnswer{Content: msg.Content}
	}
	return decision, nil
}

func encodeMessages(transcript []Message) []chatMessage {
	out := make([]chatMessage, 0, len(transcript))
	for _, m := range transcript {
		cm := chatMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			args, _ := json.Marshal(tc.Arguments)
			var ctc chatToolCall
			ctc.ID = tc.ID
			ctc.Type = "function"
			ctc.Function.Name = tc.Name
			ctc.Function.Arguments = string(args)
			cm.ToolCalls = append(cm.ToolCalls, ctc)
		}
		out = append(out, cm)
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
