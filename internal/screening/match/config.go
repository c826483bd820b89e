package match

import (
	"fmt"
	"time"
)

// Config holds the tier thresholds and fusion weights for the matcher.
// One immutable value is passed into the constructor; invalid configuration
// is rejected at load time, before any request is served.
type Config struct {
	ExactThreshold  float64 `yaml:"exact_threshold"`
	PhraseThreshold float64 `yaml:"phrase_threshold"`
	NgramThreshold  float64 `yaml:"ngram_threshold"`
	WeakThreshold   float64 `yaml:"weak_threshold"`

	ACWeight       float64 `yaml:"ac_weight"`
	VectorWeight   float64 `yaml:"vector_weight"`
	DOBBonus       float64 `yaml:"dob_bonus"`
	ContextPenalty float64 `yaml:"context_penalty"`

	MinSemanticSimilarity float64 `yaml:"min_semantic_similarity"`
	TopK                  int     `yaml:"top_k"`

	// Collaborator timeouts. Independent so a slow vector index degrades
	// fusion instead of failing the request.
	ACTimeout     time.Duration `yaml:"ac_timeout"`
	VectorTimeout time.Duration `yaml:"vector_timeout"`
}

// DefaultConfig returns the standard thresholds and weights.
func DefaultConfig() Config {
	return Config{
		ExactThreshold:        1.0,
		PhraseThreshold:       0.8,
		NgramThreshold:        0.6,
		WeakThreshold:         0.4,
		ACWeight:              0.55,
		VectorWeight:          0.45,
		DOBBonus:              0.05,
		ContextPenalty:        0.1,
		MinSemanticSimilarity: 0.7,
		TopK:                  10,
		ACTimeout:             2 * time.Second,
		VectorTimeout:         2 * time.Second,
	}
}

// Validate checks threshold ranges and ordering. Called at startup and on
// admin policy swaps; a failure here is fatal for the new configuration.
func (c Config) Validate() error {
	inUnit := func(name string, v float64) error {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be in [0,1], got %v", name, v)
		}
		return nil
	}
	for name, v := range map[string]float64{
		"exact_threshold":         c.ExactThreshold,
		"phrase_threshold":        c.PhraseThreshold,
		"ngram_threshold":         c.NgramThreshold,
		"weak_threshold":          c.WeakThreshold,
		"min_semantic_similarity": c.MinSemanticSimilarity,
	} {
		if err := inUnit(name, v); err != nil {
			return err
		}
	}
	if c.ExactThreshold < c.PhraseThreshold || c.PhraseThreshold < c.NgramThreshold || c.NgramThreshold < c.WeakThreshold {
		return fmt.Errorf("tier thresholds must be non-increasing from exact to weak")
	}
	if c.ACWeight < 0 || c.VectorWeight < 0 || c.DOBBonus < 0 || c.ContextPenalty < 0 {
		return fmt.Errorf("fusion weights must be non-negative")
	}
	if c.ACWeight+c.VectorWeight == 0 {
		return fmt.Errorf("at least one of ac_weight and vector_weight must be positive")
	}
	if c.TopK < 1 {
		return fmt.Errorf("top_k must be at least 1, got %d", c.TopK)
	}
	if c.ACTimeout <= 0 || c.VectorTimeout <= 0 {
		return fmt.Errorf("search timeouts must be positive")
	}
	return nil
}
