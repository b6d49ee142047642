// Package llm provides the completion collaborator consumed by the
// pipeline, plus token/cost accounting helpers.
package llm

import "clausecheck/internal/types"

// CostRates are the fixed per-token USD rates used for cost estimation.
type CostRates struct {
	InputPerToken  float64 `yaml:"input_per_token"`
	OutputPerToken float64 `yaml:"output_per_token"`
}

// DefaultCostRates approximates current Claude pricing.
func DefaultCostRates() CostRates {
	return CostRates{
		InputPerToken:  0.000015,
		OutputPerToken: 0.000075,
	}
}

// EstimateTokens approximates the token count of a text as len/4. Used
// for telemetry parity on pipeline branches that skip the live LLM call.
func EstimateTokens(text string) int {
	return len(text) / 4
}

// Accumulator sums token usage across the clauses of one run. Counters
// are monotonically incremented; one accumulator belongs to one run and
// needs no locking.
type Accumulator struct {
	InputTokens  int
	OutputTokens int
}

// Add folds one call's usage into the run totals.
func (a *Accumulator) Add(input, output int) {
	a.InputTokens += input
	a.OutputTokens += output
}

// Snapshot materializes the accumulated usage with derived fields.
func (a *Accumulator) Snapshot(rates CostRates) types.Usage {
	return types.Usage{
		InputTokens:      a.InputTokens,
		OutputTokens:     a.OutputTokens,
		TotalTokens:      a.InputTokens + a.OutputTokens,
		EstimatedCostUSD: float64(a.InputTokens)*rates.InputPerToken + float64(a.OutputTokens)*rates.OutputPerToken,
	}
}
