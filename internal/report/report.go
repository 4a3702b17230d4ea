// Package report aggregates persisted trial records into per-task
// summaries. Reports are always rebuilt from the run directory, so a
// crashed run can still be summarized from whatever it wrote.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/signalnine/sqlbench/internal/result"
	"github.com/signalnine/sqlbench/internal/scorer"
)

type TaskSummary struct {
	Task           string    `json:"task"`
	Trials         int       `json:"trials"`
	Rewards        []float64 `json:"rewards"`
	PassAtK        float64   `json:"pass_at_k"`
	PassExpK       float64   `json:"pass_exp_k"`
	MeanStructural float64   `json:"mean_structural"`
	MeanDurationMS float64   `json:"mean_duration_ms"`
	MeanTokens     float64   `json:"mean_tokens"`
	TotalCostUSD   float64   `json:"total_cost_usd"`
}

// Generate reads every trial record under runDir and writes the summary
// in the requested format: table (default), markdown, or json.
func Generate(runDir, format string, w io.Writer) error {
	records, err := result.ReadRun(runDir)
	if err != nil {
		return fmt.Errorf("collecting trial records: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("no trial records under %s", runDir)
	}

	summaries := Aggregate(records)

	switch format {
	case "markdown":
		return writeMarkdown(summaries, w)
	case "json":
		return writeJSON(summaries, w)
	default:
		return writeTable(summaries, w)
	}
}

// Aggregate groups records by task and computes the k-trial metrics.
// Every record is terminal by construction, so all of them count.
func Aggregate(records []*result.TrialRecord) []TaskSummary {
	type accum struct {
		rewards    []float64
		structural float64
		durationMS float64
		tokens     float64
		cost       float64
	}
	byTask := map[string]*accum{}

	for _, r := range records {
		a, ok := byTask[r.Task]
		if !ok {
			a = &accum{}
			byTask[r.Task] = a
		}
		a.rewards = append(a.rewards, r.Reward)
		a.structural += r.StructuralScore
		a.durationMS += float64(r.DurationMS)
		a.tokens += float64(r.InputTokens + r.OutputTokens)
		a.cost += r.CostUSD
	}

	var summaries []TaskSummary
	for task, a := range byTask {
		n := float64(len(a.rewards))
		summaries = append(summaries, TaskSummary{
			Task:           task,
			Trials:         len(a.rewards),
			Rewards:        a.rewards,
			PassAtK:        scorer.PassAtK(a.rewards),
			PassExpK:       scorer.PassExpK(a.rewards),
			MeanStructural: a.structural / n,
			MeanDurationMS: a.durationMS / n,
			MeanTokens:     a.tokens / n,
			TotalCostUSD:   a.cost,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Task < summaries[j].Task
	})
	return summaries
}

func writeTable(summaries []TaskSummary, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK\tTRIALS\tPASS@K\tPASS^K\tSTRUCTURAL\tMEAN TIME\tMEAN TOKENS\tCOST")
	fmt.Fprintln(tw, strings.Repeat("-", 90))
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%d\t%.3f\t%.0f\t%.3f\t%.1fs\t%.0f\t$%.4f\n",
			s.Task, s.Trials, s.PassAtK, s.PassExpK, s.MeanStructural,
			s.MeanDurationMS/1000.0, s.MeanTokens, s.TotalCostUSD)
	}
	return tw.Flush()
}

func writeMarkdown(summaries []TaskSummary, w io.Writer) error {
	fmt.Fprintln(w, "| Task | Trials | pass@k | pass^k | Structural | Mean Time | Mean Tokens | Cost |")
	fmt.Fprintln(w, "|---|---|---|---|---|---|---|---|")
	for _, s := range summaries {
		fmt.Fprintf(w, "| %s | %d | %.3f | %.0f | %.3f | %.1fs | %.0f | $%.4f |\n",
			s.Task, s.Trials, s.PassAtK, s.PassExpK, s.MeanStructural,
			s.MeanDurationMS/1000.0, s.MeanTokens, s.TotalCostUSD)
	}
	return nil
}

func writeJSON(summaries []TaskSummary, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summaries)
}
