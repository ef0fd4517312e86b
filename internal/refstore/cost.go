package refstore

import (
	"strings"
	"sync"

	"github.com/llmrelay/llmrelay/pkg/usage"
)

// Rate is the per-million-token price for one model, split by input and
// output tokens the way every provider's published pricing table does.
type Rate struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

var defaultRate = Rate{InputPerMillion: 3.0, OutputPerMillion: 15.0}

// CostTable is an in-memory CostCalculator keyed by model name prefix,
// standing in for the external cost-rate table the specification treats
// as an opaque collaborator.
type CostTable struct {
	mu    sync.RWMutex
	rates map[string]Rate
}

// NewCostTable seeds a table with a few representative rates; callers can
// add more with SetRate.
func NewCostTable() *CostTable {
	return &CostTable{rates: map[string]Rate{
		"claude-opus":   {InputPerMillion: 15.0, OutputPerMillion: 75.0},
		"claude-sonnet": {InputPerMillion: 3.0, OutputPerMillion: 15.0},
		"claude-haiku":  {InputPerMillion: 0.8, OutputPerMillion: 4.0},
		"gpt-4o":        {InputPerMillion: 2.5, OutputPerMillion: 10.0},
		"gpt-4o-mini":   {InputPerMillion: 0.15, OutputPerMillion: 0.6},
		"qwen3":         {InputPerMillion: 0.4, OutputPerMillion: 1.2},
	}}
}

// SetRate registers or overrides the rate for a model name prefix.
func (c *CostTable) SetRate(modelPrefix string, rate Rate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rates[modelPrefix] = rate
}

// Calculate implements relay.CostCalculator, matching on the longest
// registered model-name prefix and falling back to defaultRate.
func (c *CostTable) Calculate(u usage.Usage) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rate := defaultRate
	best := -1
	for prefix, r := range c.rates {
		if strings.HasPrefix(u.Model, prefix) && len(prefix) > best {
			rate = r
			best = len(prefix)
		}
	}

	inputCost := float64(u.ActualInput) / 1_000_000 * rate.InputPerMillion
	outputCost := float64(u.OutputTokens) / 1_000_000 * rate.OutputPerMillion
	return inputCost + outputCost
}
