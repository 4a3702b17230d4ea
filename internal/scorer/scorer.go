// Package scorer validates a trial's generated SQL against the task's
// reference query and rolls per-trial rewards up into pass@k / pass^k.
package scorer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/signalnine/sqlbench/internal/snapshot"
)

// QueryTimeout bounds each scoring query; a runaway candidate scores 0
// rather than stalling the harness.
const QueryTimeout = 30 * time.Second

// Verdict is the outcome of scoring one candidate. Scoring never fails:
// every error path resolves to Reward 0 with a Reason.
type Verdict struct {
	Reward     float64 `json:"reward"`
	Pass       bool    `json:"pass"`
	Reason     string  `json:"reason,omitempty"`
	Structural float64 `json:"structural,omitempty"`
}

// Evaluate runs candidate and reference against a private copy of the
// snapshot and compares result sets as multisets of type-normalized rows.
// Physical row order never affects the outcome.
func Evaluate(ctx context.Context, candidateSQL, referenceSQL, snapshotSource, scratchDir string) Verdict {
	v := Verdict{Structural: StructuralScore(candidateSQL, referenceSQL)}
	if candidateSQL == "" {
		v.Reason = "no candidate query produced"
		return v
	}

	dbPath, err := snapshot.Copy(snapshotSource, scratchDir)
	if err != nil {
		v.Reason = fmt.Sprintf("snapshot copy failed: %v", err)
		return v
	}
	db, err := snapshot.Open(dbPath)
	if err != nil {
		v.Reason = fmt.Sprintf("snapshot open failed: %v", err)
		return v
	}
	defer db.Close()

	queryCtx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	reference, err := runQuery(queryCtx, db, referenceSQL)
	if err != nil {
		v.Reason = fmt.Sprintf("reference query failed: %v", err)
		return v
	}
	candidate, err := runQuery(queryCtx, db, candidateSQL)
	if err != nil {
		v.Reason = fmt.Sprintf("candidate query failed: %v", err)
		return v
	}

	if !equalMultisets(candidate, reference) {
		v.Reason = fmt.Sprintf("result mismatch: candidate returned %d rows, reference %d",
			len(candidate), len(reference))
		return v
	}
	v.Reward = 1.0
	v.Pass = true
	return v
}

func runQuery(ctx context.Context, db *sqlx.DB, query string) ([][]any, error) {
	rows, err := db.QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		raw, err := rows.SliceScan()
		if err != nil {
			return nil, err
		}
		row := make([]any, len(raw))
		for i, v := range raw {
			row[i] = normalize(v)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// normalize maps driver values onto a canonical domain so equality is by
// value: all numerics become float64, byte slices become strings.
func normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	case float64:
		return x
	case bool:
		if x {
			return float64(1)
		}
		return float64(0)
	case []byte:
		return string(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

// equalMultisets compares row sets ignoring order: each row is reduced to
// a canonical fingerprint and counted.
func equalMultisets(a, b [][]any) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, row := range a {
		counts[fingerprint(row)]++
	}
	for _, row := range b {
		fp := fingerprint(row)
		counts[fp]--
		if counts[fp] < 0 {
			return false
		}
	}
	return true
}

func fingerprint(row []any) string {
	data, err := json.Marshal(row)
	if err != nil {
		// Only reachable for values JSON cannot represent, which
		// normalize already rules out.
		return fmt.Sprintf("%#v", row)
	}
	return string(data)
}
