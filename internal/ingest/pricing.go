package ingest

import (
	"math"

	"github.com/kiranshivaraju/agentops/pkg/models"
)

// FallbackRatePer1K applies to models missing from the pricing table.
const FallbackRatePer1K = 0.01

// Pricing maps a model name to its USD price per 1000 tokens.
type Pricing map[string]float64

// DefaultPricing is the fixed table used for run cost derivation.
var DefaultPricing = Pricing{
	"gpt-4":           0.03,
	"gpt-4o":          0.005,
	"gpt-4o-mini":     0.0006,
	"claude-3-opus":   0.03,
	"claude-3-sonnet": 0.015,
}

// Rate returns the per-1000-token rate for model.
func (p Pricing) Rate(model string) float64 {
	if rate, ok := p[model]; ok {
		return rate
	}
	return FallbackRatePer1K
}

// Cost returns the USD cost of usage rounded to 6 decimal places, or nil when
// no usage was reported. Prompt and completion tokens are priced alike.
func (p Pricing) Cost(usage *models.TokenUsage) *float64 {
	if usage == nil {
		return nil
	}
	total := float64(usage.PromptTokens) + float64(usage.CompletionTokens)
	cost := roundTo(total/1000*p.Rate(usage.Model), 6)
	return &cost
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
