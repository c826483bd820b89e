package risk

import (
	"fmt"
)

// CategoryConfig is one indicator category: a weight contributed when any of
// its patterns match, plus the pattern list itself.
type CategoryConfig struct {
	Weight   float64  `yaml:"weight"`
	Patterns []string `yaml:"patterns"`
}

// Config holds the category pattern sets, the exclusion patterns, and the
// confidence-to-level thresholds. Loaded from the policy file; invalid
// configuration is rejected at load time.
type Config struct {
	Financing      CategoryConfig `yaml:"financing"`
	Materiel       CategoryConfig `yaml:"materiel"`
	Organizational CategoryConfig `yaml:"organizational"`
	Activity       CategoryConfig `yaml:"activity"`

	// ExclusionPatterns suppress legitimate-content false positives
	// (academic, journalistic, historical, authorized-operation framing).
	ExclusionPatterns []string `yaml:"exclusion_patterns"`

	// ExtraMatchBonus is added per additional matched pattern inside an
	// already-matched category.
	ExtraMatchBonus float64 `yaml:"extra_match_bonus"`

	CriticalThreshold float64 `yaml:"critical_threshold"`
	HighThreshold     float64 `yaml:"high_threshold"`
	MediumThreshold   float64 `yaml:"medium_threshold"`
	LowThreshold      float64 `yaml:"low_threshold"`
}

// DefaultConfig returns the built-in pattern sets and thresholds.
func DefaultConfig() Config {
	return Config{
		Financing: CategoryConfig{
			Weight:   0.45,
			Patterns: defaultFinancingPatterns,
		},
		Materiel: CategoryConfig{
			Weight:   0.40,
			Patterns: defaultMaterielPatterns,
		},
		Organizational: CategoryConfig{
			Weight:   0.35,
			Patterns: defaultOrganizationalPatterns,
		},
		Activity: CategoryConfig{
			Weight:   0.30,
			Patterns: defaultActivityPatterns,
		},
		ExclusionPatterns: defaultExclusionPatterns,
		ExtraMatchBonus:   0.05,
		CriticalThreshold: 0.9,
		HighThreshold:     0.7,
		MediumThreshold:   0.5,
		LowThreshold:      0.3,
	}
}

// Validate checks weight and threshold ranges. Pattern compilation is
// verified separately by New.
func (c Config) Validate() error {
	for name, w := range map[string]float64{
		"financing":      c.Financing.Weight,
		"materiel":       c.Materiel.Weight,
		"organizational": c.Organizational.Weight,
		"activity":       c.Activity.Weight,
	} {
		if w < 0 || w > 1 {
			return fmt.Errorf("%s weight must be in [0,1], got %v", name, w)
		}
	}
	if c.ExtraMatchBonus < 0 || c.ExtraMatchBonus > 1 {
		return fmt.Errorf("extra_match_bonus must be in [0,1], got %v", c.ExtraMatchBonus)
	}
	for name, v := range map[string]float64{
		"critical_threshold": c.CriticalThreshold,
		"high_threshold":     c.HighThreshold,
		"medium_threshold":   c.MediumThreshold,
		"low_threshold":      c.LowThreshold,
	} {
		if v <= 0 || v > 1 {
			return fmt.Errorf("%s must be in (0,1], got %v", name, v)
		}
	}
	if c.CriticalThreshold < c.HighThreshold || c.HighThreshold < c.MediumThreshold || c.MediumThreshold < c.LowThreshold {
		return fmt.Errorf("risk thresholds must be non-increasing from critical to low")
	}
	return nil
}
