package pricing

// Price holds USD prices per million tokens for one provider/model pair.
type Price struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// Table maps provider:model pairs to prices, with a fallback for unknown
// pairs so cost accounting never drops a request.
type Table struct {
	prices   map[string]Price
	fallback Price
}

// NewTable returns the static price table.
func NewTable() *Table {
	return &Table{
		prices: map[string]Price{
			"openai:gpt-4":              {30.0, 60.0},
			"openai:gpt-4-turbo":        {10.0, 30.0},
			"openai:gpt-3.5-turbo":      {0.5, 1.5},
			"anthropic:claude-3-opus":   {15.0, 75.0},
			"anthropic:claude-3-sonnet": {3.0, 15.0},
			"anthropic:claude-3-haiku":  {0.25, 1.25},
		},
		fallback: Price{1.0, 2.0},
	}
}

// Lookup returns the price for provider/model, or the fallback entry.
func (t *Table) Lookup(provider, model string) Price {
	if p, ok := t.prices[provider+":"+model]; ok {
		return p
	}
	return t.fallback
}

// Cost computes the USD cost of a completed request.
func (t *Table) Cost(provider, model string, promptTokens, completionTokens int) float64 {
	p := t.Lookup(provider, model)
	inputCost := float64(promptTokens) / 1_000_000.0 * p.InputPerMillion
	outputCost := float64(completionTokens) / 1_000_000.0 * p.OutputPerMillion
	return inputCost + outputCost
}
