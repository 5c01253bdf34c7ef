// Package usage maps the cumulative token count to a reaction tier and
// formats the usage labels shown next to the chat.
package usage

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/marketconnect/catfart-gpt/app/domain/entities"
)

const (
	// LowMax is the largest count in the low tier.
	LowMax = 100
	// MediumMax is the largest count in the medium tier.
	MediumMax = 500

	// CostPer1K is the estimated price in dollars of one thousand tokens.
	CostPer1K = 0.002
)

// Classify returns the tier for a cumulative token count.
func Classify(tokens int) entities.Tier {
	switch {
	case tokens <= 0:
		return entities.TierNone
	case tokens <= LowMax:
		return entities.TierLow
	case tokens <= MediumMax:
		return entities.TierMedium
	default:
		return entities.TierHigh
	}
}

// EstimateCost returns the estimated dollar cost of tokens.
func EstimateCost(tokens int) float64 {
	if tokens <= 0 {
		return 0
	}
	return float64(tokens) / 1000 * CostPer1K
}

// TokensLabel formats the status-bar token count with thousands separators.
func TokensLabel(tokens int) string {
	return "Tokens: " + humanize.Comma(int64(tokens))
}

// CostLabel formats the estimated cost to four decimal places.
func CostLabel(tokens int) string {
	return fmt.Sprintf("Cost: $%.4f", EstimateCost(tokens))
}
