package agent

// Role identifies the author of a message in the trial transcript.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry in a trial transcript. The transcript is append-only:
// the executor only ever adds messages, never rewrites them.
type Message struct {
	Role       Role          `json:"role"`
	Content    string        `json:"content,omitempty"`
	Name       string        `json:"name,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolRequest `json:"tool_calls,omitempty"`
}

// ToolRequest is an invocation the decision step asked for.
type ToolRequest struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// CloneMessages returns a deep copy so callees cannot mutate the transcript.
func CloneMessages(in []Message) []Message {
	out := make([]Message, len(in))
	for i, m := range in {
		out[i] = m
		if len(m.ToolCalls) > 0 {
			out[i].ToolCalls = make([]ToolRequest, len(m.ToolCalls))
			for j, tc := range m.ToolCalls {
				out[i].ToolCalls[j] = tc
				if tc.Arguments != nil {
					args := make(map[string]any, len(tc.Arguments))
					for k, v := range tc.Arguments {
						args[k] = v
					}
					out[i].ToolCalls[j].Arguments = args
				}
			}
		}
	}
	return out
}
