// Package snapshot manages the per-trial database isolation: every trial
// gets a private byte-for-byte copy of the task's SQLite snapshot, so
// concurrent trials can never observe each other's state.
package snapshot

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Copy duplicates the source snapshot into destDir and returns the copy's
// path. The copy is plain file duplication: snapshots are closed databases,
// not live ones.
func Copy(source, destDir string) (string, error) {
	in, err := os.Open(source)
	if err != nil {
		return "", fmt.Errorf("opening snapshot %s: %w", source, err)
	}
	defer in.Close()

	dest := filepath.Join(destDir, filepath.Base(source))
	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("creating snapshot copy: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return "", fmt.Errorf("copying snapshot: %w", err)
	}
	return dest, nil
}

// Open opens a snapshot read-write. Trials mutate only their private copy.
func Open(path string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	return db, nil
}

// schemaCache memoizes introspection per source path. Snapshots are
// immutable once defined, so the description is shareable across trials
// without violating resource isolation (the only shared artifact besides
// the Task itself).
var schemaCache, _ = lru.New[string, string](64)

// DescribeSchema returns a textual description of the snapshot's tables,
// suitable for the decision step's system prompt.
func DescribeSchema(source string) (string, error) {
	if desc, ok := schemaCache.Get(source); ok {
		return desc, nil
	}
	db, err := Open(source)
	if err != nil {
		return "", err
	}
	defer db.Close()

	var ddls []string
	if err := db.Select(&ddls,
		`SELECT sql FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`); err != nil {
		return "", fmt.Errorf("introspecting %s: %w", source, err)
	}
	if len(ddls) == 0 {
		return "", fmt.Errorf("snapshot %s has no tables", source)
	}

	desc := "Tables:\n" + strings.Join(ddls, "\n\n")
	schemaCache.Add(source, desc)
	return desc, nil
}
