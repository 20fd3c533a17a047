package llm

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ModelPrice holds a model's USD price per million tokens.
type ModelPrice struct {
	Prompt     decimal.Decimal
	Completion decimal.Decimal
}

// modelPrices maps model name prefixes to prices. Lookup prefers an exact
// hit, then the longest matching prefix, so dated snapshots like
// claude-3-5-sonnet-20241022 resolve to their family.
var modelPrices = map[string]ModelPrice{
	"gpt-4o":            price("2.50", "10.00"),
	"gpt-4o-mini":       price("0.15", "0.60"),
	"gpt-4.1":           price("2.00", "8.00"),
	"gpt-4.1-mini":      price("0.40", "1.60"),
	"gpt-4.1-nano":      price("0.10", "0.40"),
	"o3-mini":           price("1.10", "4.40"),
	"claude-3-5-sonnet": price("3.00", "15.00"),
	"claude-3-5-haiku":  price("0.80", "4.00"),
	"claude-3-7-sonnet": price("3.00", "15.00"),
	"claude-3-opus":     price("15.00", "75.00"),
}

func price(prompt, completion string) ModelPrice {
	return ModelPrice{
		Prompt:     decimal.RequireFromString(prompt),
		Completion: decimal.RequireFromString(completion),
	}
}

var tokensPerPrice = decimal.NewFromInt(1_000_000)

// CostFor estimates the dollar cost of usage against a model's price.
// Unknown models cost zero, which covers local Ollama models.
func CostFor(model string, u Usage) decimal.Decimal {
	p, ok := priceFor(model)
	if !ok {
		return decimal.Zero
	}
	prompt := p.Prompt.Mul(decimal.NewFromInt(int64(u.PromptTokens)))
	completion := p.Completion.Mul(decimal.NewFromInt(int64(u.CompletionTokens)))
	return prompt.Add(completion).Div(tokensPerPrice)
}

func priceFor(model string) (ModelPrice, bool) {
	if p, ok := modelPrices[model]; ok {
		return p, true
	}

	var (
		best  string
		found ModelPrice
		ok    bool
	)
	for prefix, p := range modelPrices {
		if strings.HasPrefix(model, prefix) && len(prefix) > len(best) {
			best, found, ok = prefix, p, true
		}
	}
	return found, ok
}
