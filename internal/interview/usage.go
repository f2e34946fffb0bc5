package interview

import (
	"github.com/interviewd/interviewd/internal/llm"
	"github.com/interviewd/interviewd/internal/tokenizer"
)

const oneMillion = 1_000_000

// UsageSnapshot is a point-in-time view of a session's cumulative usage. Cost
// and context occupancy are pure functions of the counters and the model's
// static constants.
type UsageSnapshot struct {
	Model            string  `json:"model"`
	InputUnits       int     `json:"input_tokens"`
	OutputUnits      int     `json:"output_tokens"`
	TotalUnits       int     `json:"total_tokens"`
	CostUSD          float64 `json:"total_cost"`
	ContextWindow    int     `json:"context_window"`
	ContextOccupancy float64 `json:"context_percentage"`
}

// Accountant accumulates usage units for one session. Accumulation is exact
// integer arithmetic; rounding happens only at presentation. Not safe for
// concurrent use: callers hold the session lock.
type Accountant struct {
	counter tokenizer.Counter
	spec    llm.ModelSpec

	inputUnits  int
	outputUnits int
}

// NewAccountant creates an Accountant for the given model spec and counter.
func NewAccountant(counter tokenizer.Counter, spec llm.ModelSpec) *Accountant {
	return &Accountant{counter: counter, spec: spec}
}

// Record counts both texts and adds them to the running totals, returning the
// per-turn deltas.
func (a *Accountant) Record(inputText, outputText string) (inDelta, outDelta int) {
	inDelta = a.counter.Count(inputText)
	outDelta = a.counter.Count(outputText)

	a.inputUnits += inDelta
	a.outputUnits += outDelta

	return inDelta, outDelta
}

// Snapshot derives the usage view from the current counters.
func (a *Accountant) Snapshot() UsageSnapshot {
	total := a.inputUnits + a.outputUnits

	cost := a.spec.PriceIn*float64(a.inputUnits)/oneMillion +
		a.spec.PriceOut*float64(a.outputUnits)/oneMillion

	var occupancy float64
	if a.spec.ContextWindow > 0 {
		occupancy = float64(total) / float64(a.spec.ContextWindow) * 100
	}

	return UsageSnapshot{
		Model:            a.spec.ID,
		InputUnits:       a.inputUnits,
		OutputUnits:      a.outputUnits,
		TotalUnits:       total,
		CostUSD:          cost,
		ContextWindow:    a.spec.ContextWindow,
		ContextOccupancy: occupancy,
	}
}
