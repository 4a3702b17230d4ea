package tools

import "github.com/signalnine/sqlbench/internal/agent"

// Definitions declares the capability set for the decision step. This is
// the only tool schema the harness ships; the dispatch switch in
// Dispatcher.dispatch must cover every name listed here.
func Definitions() []agent.ToolDefinition {
	return []agent.ToolDefinition{
		{
			Name: ToolExecuteCommand,
			Description: "Execute a shell command inside the sandbox and return its stdout and stderr. " +
				"Use this to run sqlite3 queries, check files, or inspect results.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"cmd": map[string]any{
						"type":        "string",
						"description": "The shell command to execute.",
					},
					"cwd": map[string]any{
						"type":        "string",
						"description": "Working directory, relative to the sandbox root.",
					},
					"timeout": map[string]any{
						"type":        "number",
						"description": "Optional timeout in seconds; capped at the configured tool timeout.",
					},
				},
				"required": []string{"cmd"},
			},
		},
		{
			Name:        ToolReadFile,
			Description: "Read the contents of a file at the given path.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Path to the file, relative to the sandbox root.",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        ToolWriteFile,
			Description: "Write content to a file, creating parent directories as needed.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Path where the file should be written.",
					},
					"content": map[string]any{
						"type":        "string",
						"description": "Content to write to the file.",
					},
				},
				"required": []string{"path", "content"},
			},
		},
		{
			Name:        ToolListDirectory,
			Description: "List files and directories at a given path.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Directory path to list, relative to the sandbox root.",
					},
				},
				"required": []string{"path"},
			},
		},
	}
}
