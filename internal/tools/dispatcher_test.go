package tools_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/signalnine/sqlbench/internal/agent"
	"github.com/signalnine/sqlbench/internal/tools"
	"github.com/signalnine/sqlbench/internal/trace"
)

func newDispatcher(t *testing.T) (*tools.Dispatcher, string) {
	t.Helper()
	root := t.TempDir()
	return tools.NewDispatcher(root, 5*time.Second, nil), root
}

func dispatch(t *testing.T, d *tools.Dispatcher, name string, args map[string]any) *tools.Call {
	t.Helper()
	return d.Dispatch(context.Background(), agent.ToolRequest{ID: "call-1", Name: name, Arguments: args}, nil, nil)
}

func TestWriteThenReadFile(t *testing.T) {
	d, _ := newDispatcher(t)
	call := dispatch(t, d, tools.ToolWriteFile, map[string]any{
		"path": "query.sql", "content": "SELECT 1;",
	})
	if call.Err != nil {
		t.Fatalf("write_file: %v", call.Err)
	}
	if !strings.Contains(call.Content, "9 bytes") {
		t.Errorf("unexpected confirmation: %q", call.Content)
	}

	call = dispatch(t, d, tools.ToolReadFile, map[string]any{"path": "query.sql"})
	if call.Err != nil {
		t.Fatalf("read_file: %v", call.Err)
	}
	if call.Content != "SELECT 1;" {
		t.Errorf("read back %q", call.Content)
	}
}

func TestReadFileMissing(t *testing.T) {
	d, _ := newDispatcher(t)
	call := dispatch(t, d, tools.ToolReadFile, map[string]any{"path": "nope.txt"})
	if !errors.Is(call.Err, tools.ErrResourceNotFound) {
		t.Fatalf("err = %v, want ErrResourceNotFound", call.Err)
	}
	if call.ErrClass != "ResourceNotFound" {
		t.Errorf("ErrClass = %q", call.ErrClass)
	}
	if !strings.HasPrefix(call.Content, "Error:") {
		t.Errorf("content should surface the error to the decision step, got %q", call.Content)
	}
}

func TestSandboxEscape(t *testing.T) {
	d, _ := newDispatcher(t)
	for _, path := range []string{"../outside.txt", "/etc/passwd", "a/../../b"} {
		call := dispatch(t, d, tools.ToolReadFile, map[string]any{"path": path})
		if !errors.Is(call.Err, tools.ErrSandboxViolation) {
			t.Errorf("path %q: err = %v, want ErrSandboxViolation", path, call.Err)
		}
	}
	// Writes must be confined too.
	call := dispatch(t, d, tools.ToolWriteFile, map[string]any{"path": "../evil.sh", "content": "x"})
	if !errors.Is(call.Err, tools.ErrSandboxViolation) {
		t.Errorf("write escape: err = %v", call.Err)
	}
}

func TestSandboxSymlinkEscape(t *testing.T) {
	d, root := newDispatcher(t)
	outside := t.TempDir()
	if err := os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("top secret"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(outside, filepath.Join(root, "leak")); err != nil {
		t.Fatal(err)
	}

	call := dispatch(t, d, tools.ToolReadFile, map[string]any{"path": "leak/secret.txt"})
	if !errors.Is(call.Err, tools.ErrSandboxViolation) {
		t.Fatalf("read through symlink: err = %v, content = %q, want ErrSandboxViolation", call.Err, call.Content)
	}
	if call.ErrClass != "SandboxViolation" {
		t.Errorf("ErrClass = %q", call.ErrClass)
	}

	// Writes through a symlinked directory must be confined too, including
	// to files that do not exist yet.
	call = dispatch(t, d, tools.ToolWriteFile, map[string]any{"path": "leak/planted.txt", "content": "x"})
	if !errors.Is(call.Err, tools.ErrSandboxViolation) {
		t.Errorf("write through symlink: err = %v", call.Err)
	}
	if _, err := os.Stat(filepath.Join(outside, "planted.txt")); err == nil {
		t.Error("file was written outside the sandbox")
	}

	// A symlink staying inside the sandbox is legitimate.
	if err := os.Mkdir(filepath.Join(root, "data"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "data", "ok.txt"), []byte("fine"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(root, "data"), filepath.Join(root, "alias")); err != nil {
		t.Fatal(err)
	}
	call = dispatch(t, d, tools.ToolReadFile, map[string]any{"path": "alias/ok.txt"})
	if call.Err != nil {
		t.Errorf("internal symlink should be allowed: %v", call.Err)
	}
	if call.Content != "fine" {
		t.Errorf("read back %q", call.Content)
	}
}

func TestExecuteCommand(t *testing.T) {
	d, root := newDispatcher(t)
	if err := os.WriteFile(filepath.Join(root, "f.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	call := dispatch(t, d, tools.ToolExecuteCommand, map[string]any{"cmd": "cat f.txt"})
	if call.Err != nil {
		t.Fatalf("execute_command: %v", call.Err)
	}
	if call.Stdout != "hi" {
		t.Errorf("stdout = %q", call.Stdout)
	}
	if call.ExitCode != 0 {
		t.Errorf("exit code = %d", call.ExitCode)
	}
}

func TestExecuteCommandNonzeroExitIsData(t *testing.T) {
	d, _ := newDispatcher(t)
	call := dispatch(t, d, tools.ToolExecuteCommand, map[string]any{"cmd": "ls missing-file"})
	if call.Err != nil {
		t.Fatalf("nonzero exit should not be an error: %v", call.Err)
	}
	if call.ExitCode == 0 {
		t.Error("expected nonzero exit code")
	}
	if !strings.Contains(call.Content, "exit code") {
		t.Errorf("content should mention exit code: %q", call.Content)
	}
}

func TestExecuteCommandTimeout(t *testing.T) {
	root := t.TempDir()
	d := tools.NewDispatcher(root, 100*time.Millisecond, nil)
	start := time.Now()
	call := dispatch(t, d, tools.ToolExecuteCommand, map[string]any{"cmd": "sleep 5"})
	if !errors.Is(call.Err, tools.ErrToolTimeout) {
		t.Fatalf("err = %v, want ErrToolTimeout", call.Err)
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("timeout took %s; process group not killed?", elapsed)
	}
	if call.ErrClass != "ToolTimeout" {
		t.Errorf("ErrClass = %q", call.ErrClass)
	}
}

func TestNewDispatcherZeroTimeout(t *testing.T) {
	d := tools.NewDispatcher(t.TempDir(), 0, nil)
	call := dispatch(t, d, tools.ToolExecuteCommand, map[string]any{"cmd": "echo ok"})
	if errors.Is(call.Err, tools.ErrToolTimeout) {
		t.Fatal("zero configured timeout expired the command immediately")
	}
	if call.Err != nil {
		t.Fatalf("execute_command: %v", call.Err)
	}
	if !strings.Contains(call.Stdout, "ok") {
		t.Errorf("stdout = %q", call.Stdout)
	}
}

func TestExecuteCommandSandboxAudit(t *testing.T) {
	d, _ := newDispatcher(t)
	call := dispatch(t, d, tools.ToolExecuteCommand, map[string]any{"cmd": "cat /etc/passwd"})
	if !errors.Is(call.Err, tools.ErrSandboxViolation) {
		t.Fatalf("err = %v, want ErrSandboxViolation", call.Err)
	}
	// System binaries by absolute path are fine.
	call = dispatch(t, d, tools.ToolExecuteCommand, map[string]any{"cmd": "/bin/echo ok"})
	if call.Err != nil {
		t.Errorf("/bin/echo should pass the audit: %v", call.Err)
	}
}

func TestListDirectory(t *testing.T) {
	d, root := newDispatcher(t)
	os.WriteFile(filepath.Join(root, "b.sql"), nil, 0o644)
	os.WriteFile(filepath.Join(root, "a.sql"), nil, 0o644)
	os.Mkdir(filepath.Join(root, "sub"), 0o755)

	call := dispatch(t, d, tools.ToolListDirectory, map[string]any{"path": "."})
	if call.Err != nil {
		t.Fatalf("list_directory: %v", call.Err)
	}
	want := "a.sql\nb.sql\nsub/"
	if call.Content != want {
		t.Errorf("content = %q, want %q", call.Content, want)
	}
}

func TestUnknownTool(t *testing.T) {
	d, _ := newDispatcher(t)
	call := dispatch(t, d, "launch_missiles", nil)
	if !errors.Is(call.Err, tools.ErrUnknownTool) {
		t.Fatalf("err = %v, want ErrUnknownTool", call.Err)
	}
}

func TestDispatchRecordsSpan(t *testing.T) {
	d, _ := newDispatcher(t)
	rec := trace.NewRecorder()
	root := rec.Start(nil, "trial", "trial", nil)
	d.Dispatch(context.Background(), agent.ToolRequest{
		Name: tools.ToolWriteFile, Arguments: map[string]any{"path": "x", "content": "y"},
	}, rec, root)

	spans := rec.Spans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[1].Name != tools.ToolWriteFile || spans[1].Kind != "tool" {
		t.Errorf("span = %s/%s", spans[1].Name, spans[1].Kind)
	}
	if spans[1].ParentID != root.ID {
		t.Error("tool span not parented to trial span")
	}
}

func TestSchemaMatchesDispatch(t *testing.T) {
	d, _ := newDispatcher(t)
	for _, def := range tools.Definitions() {
		call := dispatch(t, d, def.Name, map[string]any{})
		if errors.Is(call.Err, tools.ErrUnknownTool) {
			t.Errorf("declared tool %q is not dispatchable", def.Name)
		}
	}
}
