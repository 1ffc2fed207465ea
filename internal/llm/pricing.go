package llm

// Pricing is USD per million tokens.
type Pricing struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

var defaultPricing = Pricing{InputPerMTok: 3.00, OutputPerMTok: 15.00}

// modelPricing maps known model identifiers to their published rates.
// Unknown models fall back to the sonnet-class default.
var modelPricing = map[string]Pricing{
	"claude-sonnet-4-20250514":   {InputPerMTok: 3.00, OutputPerMTok: 15.00},
	"claude-3-7-sonnet-20250219": {InputPerMTok: 3.00, OutputPerMTok: 15.00},
	"claude-3-5-haiku-20241022":  {InputPerMTok: 0.80, OutputPerMTok: 4.00},
	"claude-opus-4-20250514":     {InputPerMTok: 15.00, OutputPerMTok: 75.00},
}

// PricingFor returns the rate card for a model.
func PricingFor(model string) Pricing {
	if p, ok := modelPricing[model]; ok {
		return p
	}
	return defaultPricing
}

// EstimateCost converts token usage into USD at the model's rates.
func EstimateCost(model string, usage Usage) Cost {
	p := PricingFor(model)
	in := float64(usage.InputTokens) / 1_000_000 * p.InputPerMTok
	out := float64(usage.OutputTokens) / 1_000_000 * p.OutputPerMTok
	return Cost{InputUSD: in, OutputUSD: out, TotalUSD: in + out}
}
