package tools

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	shellwords "github.com/mattn/go-shellwords"
)

// binDirs are absolute prefixes a command may reference without tripping
// the sandbox audit (interpreters and system binaries).
var binDirs = []string{"/bin/", "/sbin/", "/usr/", "/lib/"}

// resolve maps a tool path argument into the sandbox. Relative paths are
// joined onto the root; anything resolving outside it is a violation.
func resolve(root, path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrBadArguments)
	}
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(root, abs)
	}
	abs = filepath.Clean(abs)
	if !contained(root, abs) {
		return "", fmt.Errorf("%w: %s escapes %s", ErrSandboxViolation, path, root)
	}

	// The lexical check alone is not enough: a symlink planted inside the
	// sandbox (e.g. by an earlier execute_command) can point anywhere.
	// Resolve symlinks on the deepest existing ancestor and re-check.
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		realRoot = root
	}
	resolved, err := evalExisting(abs)
	if err == nil && !contained(realRoot, resolved) {
		return "", fmt.Errorf("%w: %s resolves outside %s", ErrSandboxViolation, path, root)
	}
	return abs, nil
}

func contained(root, abs string) bool {
	rel, err := filepath.Rel(root, abs)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// evalExisting resolves symlinks on the deepest existing ancestor of abs
// and reattaches the not-yet-existing suffix, so paths about to be created
// by write_file are checked through their real parent directory.
func evalExisting(abs string) (string, error) {
	p := abs
	var suffix []string
	for {
		resolved, err := filepath.EvalSymlinks(p)
		if err == nil {
			if len(suffix) == 0 {
				return resolved, nil
			}
			return filepath.Join(append([]string{resolved}, suffix...)...), nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(p)
		if parent == p {
			return "", err
		}
		suffix = append([]string{filepath.Base(p)}, suffix...)
		p = parent
	}
}

// auditCommand tokenizes a shell command and rejects absolute-path tokens
// that point outside both the sandbox and the system binary dirs. A parse
// failure is not a violation; the shell will produce its own error.
func auditCommand(root, cmd string) error {
	tokens, err := shellwords.Parse(cmd)
	if err != nil {
		return nil
	}
	for _, tok := range tokens {
		if !filepath.IsAbs(tok) {
			continue
		}
		if strings.HasPrefix(filepath.Clean(tok)+"/", filepath.Clean(root)+"/") {
			continue
		}
		allowed := false
		for _, dir := range binDirs {
			if strings.HasPrefix(tok, dir) {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("%w: command references %s outside %s", ErrSandboxViolation, tok, root)
		}
	}
	return nil
}
