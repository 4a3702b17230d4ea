package tools

import "errors"

// Tool failures are data: they travel back to the decision step as tool
// messages, never as control flow. These sentinels tag the failure class
// so the transcript and spans can name it.
var (
	// ErrSandboxViolation: a path argument resolved outside the sandbox root.
	ErrSandboxViolation = errors.New("sandbox violation")
	// ErrToolTimeout: execute_command exceeded its timeout budget.
	ErrToolTimeout = errors.New("tool timeout")
	// ErrResourceNotFound: read_file/list_directory target does not exist.
	ErrResourceNotFound = errors.New("resource not found")
	// ErrWriteFailure: write_file could not persist its content.
	ErrWriteFailure = errors.New("write failure")
	// ErrUnknownTool: the decision step named a tool outside the capability set.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrBadArguments: arguments did not match the tool's declared shape.
	ErrBadArguments = errors.New("bad arguments")
)
