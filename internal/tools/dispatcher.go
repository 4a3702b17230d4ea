package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/signalnine/sqlbench/internal/agent"
	"github.com/signalnine/sqlbench/internal/trace"
)

// Tool names form the closed capability set. Extending it means touching
// both the dispatch switch and Definitions.
const (
	ToolExecuteCommand = "execute_command"
	ToolReadFile       = "read_file"
	ToolWriteFile      = "write_file"
	ToolListDirectory  = "list_directory"
)

// Call is the record of one tool invocation: arguments in, captured
// outputs, timing. Err classifies the failure; it is carried as data, the
// dispatcher itself never fails a trial.
type Call struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments"`
	Stdout    string         `json:"stdout,omitempty"`
	Stderr    string         `json:"stderr,omitempty"`
	ExitCode  int            `json:"exit_code"`
	Content   string         `json:"content"`
	Start     time.Time      `json:"start"`
	End       time.Time      `json:"end"`
	Duration  time.Duration  `json:"duration"`
	Err       error          `json:"-"`
	ErrClass  string         `json:"error,omitempty"`
}

// CommandRunner executes a shell command inside the sandbox. The host
// runner uses a subprocess; the Docker runner a disposable container.
type CommandRunner interface {
	Run(ctx context.Context, cmd, cwd string, timeout time.Duration) (stdout, stderr string, exitCode int, timedOut bool, err error)
}

// Dispatcher executes the capability set inside a per-trial sandbox root.
type Dispatcher struct {
	root    string
	timeout time.Duration
	runner  CommandRunner
}

func NewDispatcher(root string, toolTimeout time.Duration, runner CommandRunner) *Dispatcher {
	if runner == nil {
		runner = hostRunner{}
	}
	// A zero timeout would expire every command immediately.
	if toolTimeout <= 0 {
		toolTimeout = 30 * time.Second
	}
	return &Dispatcher{root: filepath.Clean(root), timeout: toolTimeout, runner: runner}
}

// Root returns the sandbox root directory.
func (d *Dispatcher) Root() string { return d.root }

// Dispatch runs one requested tool and records it as a span under parent.
// The returned Call is always usable; errors are captured inside it.
func (d *Dispatcher) Dispatch(ctx context.Context, req agent.ToolRequest, rec *trace.Recorder, parent *trace.Span) *Call {
	span := rec.Start(parent, req.Name, "tool", req.Arguments)
	call := d.dispatch(ctx, req)
	out := map[string]any{"content": call.Content, "exit_code": call.ExitCode}
	rec.Finish(span, out, call.Err)

	slog.Debug("tool dispatched",
		"tool", req.Name,
		"duration_ms", call.Duration.Milliseconds(),
		"is_error", call.Err != nil,
	)
	return call
}

func (d *Dispatcher) dispatch(ctx context.Context, req agent.ToolRequest) *Call {
	call := &Call{Tool: req.Name, Arguments: req.Arguments, Start: time.Now().UTC()}
	defer func() {
		call.End = time.Now().UTC()
		call.Duration = call.End.Sub(call.Start)
		if call.Err != nil {
			call.ErrClass = classify(call.Err)
			if call.Content == "" {
				call.Content = "Error: " + call.Err.Error()
			}
		}
	}()

	switch req.Name {
	case ToolExecuteCommand:
		d.executeCommand(ctx, call)
	case ToolReadFile:
		d.readFile(call)
	case ToolWriteFile:
		d.writeFile(call)
	case ToolListDirectory:
		d.listDirectory(call)
	default:
		call.Err = fmt.Errorf("%w: %s", ErrUnknownTool, req.Name)
	}
	return call
}

func (d *Dispatcher) executeCommand(ctx context.Context, call *Call) {
	cmd, ok := stringArg(call.Arguments, "cmd")
	if !ok {
		call.Err = fmt.Errorf("%w: execute_command requires string argument %q", ErrBadArguments, "cmd")
		return
	}
	if err := auditCommand(d.root, cmd); err != nil {
		call.Err = err
		return
	}

	cwd := d.root
	if arg, ok := stringArg(call.Arguments, "cwd"); ok {
		resolved, err := resolve(d.root, arg)
		if err != nil {
			call.Err = err
			return
		}
		cwd = resolved
	}
	timeout := d.timeout
	if secs, ok := call.Arguments["timeout"].(float64); ok && secs > 0 {
		requested := time.Duration(secs * float64(time.Second))
		if requested < timeout {
			timeout = requested
		}
	}

	stdout, stderr, exitCode, timedOut, err := d.runner.Run(ctx, cmd, cwd, timeout)
	call.Stdout = stdout
	call.Stderr = stderr
	call.ExitCode = exitCode
	if timedOut {
		call.Err = fmt.Errorf("%w: command exceeded %s", ErrToolTimeout, timeout)
		return
	}
	if err != nil {
		call.Err = err
		return
	}
	// Nonzero exit is data, not a fault: the decision step reads it.
	call.Content = stdout
	if stderr != "" {
		call.Content += "\n[stderr]\n" + stderr
	}
	if exitCode != 0 {
		call.Content += fmt.Sprintf("\n[exit code %d]", exitCode)
	}
}

func (d *Dispatcher) readFile(call *Call) {
	path, ok := stringArg(call.Arguments, "path")
	if !ok {
		call.Err = fmt.Errorf("%w: read_file requires string argument %q", ErrBadArguments, "path")
		return
	}
	resolved, err := resolve(d.root, path)
	if err != nil {
		call.Err = err
		return
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			call.Err = fmt.Errorf("%w: %s", ErrResourceNotFound, path)
		} else {
			call.Err = fmt.Errorf("%w: reading %s: %v", ErrResourceNotFound, path, err)
		}
		return
	}
	call.Content = string(data)
}

func (d *Dispatcher) writeFile(call *Call) {
	path, ok := stringArg(call.Arguments, "path")
	if !ok {
		call.Err = fmt.Errorf("%w: write_file requires string argument %q", ErrBadArguments, "path")
		return
	}
	content, ok := stringArg(call.Arguments, "content")
	if !ok {
		call.Err = fmt.Errorf("%w: write_file requires string argument %q", ErrBadArguments, "content")
		return
	}
	resolved, err := resolve(d.root, path)
	if err != nil {
		call.Err = err
		return
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		call.Err = fmt.Errorf("%w: %v", ErrWriteFailure, err)
		return
	}
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		call.Err = fmt.Errorf("%w: %v", ErrWriteFailure, err)
		return
	}
	call.Content = fmt.Sprintf("Wrote %d bytes to %s", len(content), path)
}

func (d *Dispatcher) listDirectory(call *Call) {
	path, ok := stringArg(call.Arguments, "path")
	if !ok {
		path = "."
	}
	resolved, err := resolve(d.root, path)
	if err != nil {
		call.Err = err
		return
	}
	entries, err := os.ReadDir(resolved)
	if err != nil {
		call.Err = fmt.Errorf("%w: %s", ErrResourceNotFound, path)
		return
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)
	call.Content = strings.Join(names, "\n")
}

func stringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func classify(err error) string {
	switch {
	case errors.Is(err, ErrSandboxViolation):
		return "SandboxViolation"
	case errors.Is(err, ErrToolTimeout):
		return "ToolTimeout"
	case errors.Is(err, ErrResourceNotFound):
		return "ResourceNotFound"
	case errors.Is(err, ErrWriteFailure):
		return "WriteFailure"
	case errors.Is(err, ErrUnknownTool):
		return "UnknownTool"
	case errors.Is(err, ErrBadArguments):
		return "BadArguments"
	default:
		return "ToolError"
	}
}
