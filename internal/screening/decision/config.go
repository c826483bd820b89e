package decision

import (
	"fmt"
)

// Strength classifies the combined match evidence for one screening, from
// no match at all up to an exact-tier hit.
type Strength string

const (
	StrengthNone   Strength = "none"
	StrengthWeak   Strength = "weak"
	StrengthMedium Strength = "medium"
	StrengthStrong Strength = "strong"
	StrengthExact  Strength = "exact"
)

// Rank returns an ordering value for strength comparisons.
func (s Strength) Rank() int {
	switch s {
	case StrengthNone:
		return 0
	case StrengthWeak:
		return 1
	case StrengthMedium:
		return 2
	case StrengthStrong:
		return 3
	case StrengthExact:
		return 4
	}
	return -1
}

// IsValid checks if the strength is one of the supported enum values.
func (s Strength) IsValid() bool {
	return s.Rank() >= 0
}

// Config holds the decision thresholds and the review policy. One immutable
// value per engine; swapped atomically on admin policy updates.
type Config struct {
	// MinReview is the weakest signal strength that still forces a manual
	// review. With "strong", medium signals pass through as ALLOW.
	MinReview Strength `yaml:"min_review"`

	// Confidence bands for signals with no tiered-match classification.
	FullSearchThreshold        float64 `yaml:"full_search_threshold"`
	ReducedFullSearchThreshold float64 `yaml:"reduced_full_search_threshold"`
	ManualReviewThreshold      float64 `yaml:"manual_review_threshold"`

	// Risk-level bands over the final decision confidence.
	HighRiskBand   float64 `yaml:"high_risk_band"`
	MediumRiskBand float64 `yaml:"medium_risk_band"`
	LowRiskBand    float64 `yaml:"low_risk_band"`
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		MinReview:                  StrengthMedium,
		FullSearchThreshold:        0.8,
		ReducedFullSearchThreshold: 0.5,
		ManualReviewThreshold:      0.3,
		HighRiskBand:               0.8,
		MediumRiskBand:             0.6,
		LowRiskBand:                0.3,
	}
}

// Validate checks threshold ranges and ordering.
func (c Config) Validate() error {
	if c.MinReview != StrengthMedium && c.MinReview != StrengthStrong {
		return fmt.Errorf("min_review must be %q or %q, got %q", StrengthMedium, StrengthStrong, c.MinReview)
	}
	for name, v := range map[string]float64{
		"full_search_threshold":         c.FullSearchThreshold,
		"reduced_full_search_threshold": c.ReducedFullSearchThreshold,
		"manual_review_threshold":       c.ManualReviewThreshold,
		"high_risk_band":                c.HighRiskBand,
		"medium_risk_band":              c.MediumRiskBand,
		"low_risk_band":                 c.LowRiskBand,
	} {
		if v <= 0 || v > 1 {
			return fmt.Errorf("%s must be in (0,1], got %v", name, v)
		}
	}
	if c.FullSearchThreshold < c.ReducedFullSearchThreshold || c.ReducedFullSearchThreshold < c.ManualReviewThreshold {
		return fmt.Errorf("decision thresholds must be non-increasing from full_search to manual_review")
	}
	if c.HighRiskBand < c.MediumRiskBand || c.MediumRiskBand < c.LowRiskBand {
		return fmt.Errorf("risk bands must be non-increasing from high to low")
	}
	return nil
}
