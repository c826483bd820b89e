// Package risk implements the terrorism-financing indicator detector. It
// scans free text against category pattern sets (financing, materiel,
// organizational, activity), each contributing a weighted partial confidence,
// and bands the total into a risk level.
//
// An exclusion pass runs first: text with legitimate-content framing
// (academic, journalistic, historical, authorized-operation) short-circuits
// to zero confidence regardless of other matches. The detector only raises
// risk inputs for the decision layer; it never emits a decision itself.
package risk

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"watchgate/internal/screening/models"
)

// Category names an indicator family.
type Category string

const (
	CategoryFinancing      Category = "financing"
	CategoryMateriel       Category = "materiel"
	CategoryOrganizational Category = "organizational"
	CategoryActivity       Category = "activity"
)

// Indicator is one matched pattern, reported for the audit trail.
type Indicator struct {
	Category Category `json:"category"`
	Term     string   `json:"term"` // the matched text fragment
}

// Result is the detector output for one text.
type Result struct {
	Confidence           float64           `json:"confidence"`
	RiskLevel            models.RiskLevel  `json:"risk_level"`
	Indicators           []Indicator       `json:"detected_indicators,omitempty"`
	RequiresManualReview bool              `json:"requires_manual_review"`
	Excluded             bool              `json:"excluded"`
	ExclusionTerm        string            `json:"exclusion_term,omitempty"`
}

// Critical reports whether the detector flagged the text at the level that
// overrides the decision table's confidence bands.
func (r Result) Critical() bool { return r.RiskLevel == models.RiskCritical }

type categorySet struct {
	category Category
	weight   float64
	patterns []*regexp.Regexp
}

// Detector runs the compiled pattern sets. Safe for concurrent use; all
// state is immutable after construction.
type Detector struct {
	cfg        Config
	categories []categorySet
	exclusions []*regexp.Regexp
	logger     *slog.Logger
}

// Option configures the Detector.
type Option func(*Detector)

// WithLogger sets a logger for invariant-violation reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Detector) { d.logger = logger }
}

// New compiles the configured pattern sets. A pattern that fails to compile
// is a configuration error, fatal before any request is served.
func New(cfg Config, opts ...Option) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Detector{
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}

	sets := []struct {
		category Category
		cfg      CategoryConfig
	}{
		{CategoryFinancing, cfg.Financing},
		{CategoryMateriel, cfg.Materiel},
		{CategoryOrganizational, cfg.Organizational},
		{CategoryActivity, cfg.Activity},
	}
	for _, s := range sets {
		compiled, err := compileAll(string(s.category), s.cfg.Patterns)
		if err != nil {
			return nil, err
		}
		d.categories = append(d.categories, categorySet{
			category: s.category,
			weight:   s.cfg.Weight,
			patterns: compiled,
		})
	}

	var err error
	d.exclusions, err = compileAll("exclusion", cfg.ExclusionPatterns)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Detect scans the text. The exclusion pass runs before any category
// scoring; a hit there forces zero confidence and VERY_LOW no matter what
// the category patterns would have matched.
func (d *Detector) Detect(text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{RiskLevel: models.RiskVeryLow}
	}

	for _, re := range d.exclusions {
		if loc := re.FindString(text); loc != "" {
			return Result{
				RiskLevel:     models.RiskVeryLow,
				Excluded:      true,
				ExclusionTerm: loc,
			}
		}
	}

	var (
		confidence float64
		indicators []Indicator
	)
	for _, set := range d.categories {
		matched := 0
		for _, re := range set.patterns {
			term := re.FindString(text)
			if term == "" {
				continue
			}
			matched++
			indicators = append(indicators, Indicator{Category: set.category, Term: term})
		}
		if matched > 0 {
			confidence += set.weight + float64(matched-1)*d.cfg.ExtraMatchBonus
		}
	}

	confidence = d.clamp(confidence)
	level := d.band(confidence)
	return Result{
		Confidence:           confidence,
		RiskLevel:            level,
		Indicators:           indicators,
		RequiresManualReview: level.Rank() >= models.RiskHigh.Rank(),
	}
}

func (d *Detector) band(confidence float64) models.RiskLevel {
	switch {
	case confidence >= d.cfg.CriticalThreshold:
		return models.RiskCritical
	case confidence >= d.cfg.HighThreshold:
		return models.RiskHigh
	case confidence >= d.cfg.MediumThreshold:
		return models.RiskMedium
	case confidence >= d.cfg.LowThreshold:
		return models.RiskLow
	}
	return models.RiskVeryLow
}

func (d *Detector) clamp(v float64) float64 {
	if v < 0 {
		d.logger.Warn("risk confidence below zero, clamping", "value", v)
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func compileAll(name string, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("compile %s pattern %q: %w", name, p, err)
		}
		out = append(out, re)
	}
	return out, nil
}
