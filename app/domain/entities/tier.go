package entities

import "fmt"

// Tier is a discrete usage bucket derived from the cumulative token count.
type Tier string

const (
	TierNone   Tier = "none"
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// ReactiveTiers are the tiers that animate and accept media overrides.
var ReactiveTiers = []Tier{TierLow, TierMedium, TierHigh}

// Rank orders tiers none < low < medium < high. Unknown tiers rank -1.
func (t Tier) Rank() int {
	switch t {
	case TierNone:
		return 0
	case TierLow:
		return 1
	case TierMedium:
		return 2
	case TierHigh:
		return 3
	}
	return -1
}

// Reactive reports whether t animates.
func (t Tier) Reactive() bool {
	return t.Rank() > 0
}

// ParseTier parses a lowercase tier name.
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if t.Rank() < 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidTier, s)
	}
	return t, nil
}
