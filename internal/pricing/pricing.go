// Package pricing converts token usage to dollar cost from a YAML rate
// table. Unknown models cost zero rather than failing a run.
package pricing

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ModelPricing holds per-1K-token rates in USD.
type ModelPricing struct {
	Input  float64 `yaml:"input"`
	Output float64 `yaml:"output"`
}

type Table struct {
	Models map[string]ModelPricing
}

// Default covers the models we run against most often. A pricing file
// overrides it entirely.
func Default() *Table {
	return &Table{Models: map[string]ModelPricing{
		"gpt-4o":      {Input: 0.0025, Output: 0.01},
		"gpt-4o-mini": {Input: 0.00015, Output: 0.0006},
		"gpt-4.1":     {Input: 0.002, Output: 0.008},
	}}
}

func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pricing file: %w", err)
	}
	var models map[string]ModelPricing
	if err := yaml.Unmarshal(data, &models); err != nil {
		return nil, fmt.Errorf("parsing pricing file: %w", err)
	}
	return &Table{Models: models}, nil
}

// Cost calculates total cost for a trial. Prices are per 1K tokens.
func (t *Table) Cost(model string, inputTokens, outputTokens int) float64 {
	if t == nil || t.Models == nil {
		return 0
	}
	p, ok := t.Models[model]
	if !ok {
		return 0
	}
	return (float64(inputTokens)/1000.0)*p.Input + (float64(outputTokens)/1000.0)*p.Output
}
