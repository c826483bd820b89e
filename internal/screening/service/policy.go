package service

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"watchgate/internal/screening/decision"
	"watchgate/internal/screening/extract"
	"watchgate/internal/screening/match"
	"watchgate/internal/screening/risk"
)

// Policy bundles every tunable of the screening pipeline into one value.
// It is loaded from YAML at startup and can be replaced at runtime through
// the admin surface; a replacement is validated as a whole before any
// component sees it.
type Policy struct {
	Extract  extract.Weights `yaml:"extract"`
	Match    match.Config    `yaml:"match"`
	Risk     risk.Config     `yaml:"risk"`
	Decision decision.Config `yaml:"decision"`
}

// DefaultPolicy returns the standard pipeline configuration.
func DefaultPolicy() Policy {
	return Policy{
		Extract:  extract.DefaultWeights(),
		Match:    match.DefaultConfig(),
		Risk:     risk.DefaultConfig(),
		Decision: decision.DefaultConfig(),
	}
}

// Validate checks every section. The first failure wins; a policy that fails
// here must never be installed.
func (p Policy) Validate() error {
	if err := p.Match.Validate(); err != nil {
		return fmt.Errorf("match: %w", err)
	}
	if err := p.Risk.Validate(); err != nil {
		return fmt.Errorf("risk: %w", err)
	}
	if err := p.Decision.Validate(); err != nil {
		return fmt.Errorf("decision: %w", err)
	}
	return nil
}

// LoadPolicyFile reads a YAML policy document. Omitted sections keep their
// defaults; the merged result must validate as a whole.
func LoadPolicyFile(path string) (Policy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy file: %w", err)
	}
	p := DefaultPolicy()
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Policy{}, fmt.Errorf("parse policy file: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, fmt.Errorf("policy file %s: %w", path, err)
	}
	return p, nil
}
