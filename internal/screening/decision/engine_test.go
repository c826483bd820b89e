package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchgate/internal/screening/models"
	"watchgate/internal/screening/risk"
)

func candidate(id string, tier models.MatchTier, score float64) models.MatchCandidate {
	return models.MatchCandidate{
		EntityID:       id,
		EntityType:     models.EntityPerson,
		NormalizedName: id,
		FinalScore:     score,
		Tier:           tier,
		TierName:       tier.String(),
		SearchType:     models.SearchAC,
	}
}

func TestDecideEmptyInput(t *testing.T) {
	e := New(DefaultConfig())

	res := e.Decide(Input{ListType: models.ListSanctions})
	assert.Equal(t, models.DecisionAllow, res.Decision)
	assert.Zero(t, res.Confidence)
	assert.Equal(t, models.RiskVeryLow, res.RiskLevel)
	assert.False(t, res.RequiresEscalation)
	assert.NotEmpty(t, res.Reasoning)
}

func TestDecideBlocksOnExactTaxIDSanctionsMatch(t *testing.T) {
	e := New(DefaultConfig())

	c := candidate("ent-1", models.TierExact, 1.0)
	c.NormalizedName = "ivanov trading llc"
	c.Aliases = []string{"782611846337"}

	res := e.Decide(Input{
		Evidence:   models.NewEvidenceSet(models.ValidID(models.IDKindTaxID)),
		Candidates: []models.MatchCandidate{c},
		ListType:   models.ListSanctions,
		QueryName:  "782611846337",
	})

	assert.Equal(t, models.DecisionBlock, res.Decision)
	assert.GreaterOrEqual(t, res.RiskLevel.Rank(), models.RiskHigh.Rank())
	assert.True(t, res.RequiresEscalation)
	assert.Contains(t, res.Reasoning, "valid_tax_id")
	assert.Contains(t, res.Reasoning, "ent-1")
}

func TestDecideBlockUnreachableWithoutAllThreeConditions(t *testing.T) {
	e := New(DefaultConfig())

	exact := candidate("ent-1", models.TierExact, 1.0)
	exact.Aliases = []string{"782611846337"}
	taxEvidence := models.NewEvidenceSet(models.ValidID(models.IDKindTaxID))

	tests := []struct {
		name string
		in   Input
	}{
		{
			"no tax id evidence",
			Input{
				Evidence:   models.NewEvidenceSet(models.NamePattern()),
				Candidates: []models.MatchCandidate{exact},
				ListType:   models.ListSanctions,
				QueryName:  "782611846337",
			},
		},
		{
			"invalid tax id only",
			Input{
				Evidence:   models.NewEvidenceSet(models.InvalidID(models.IDKindTaxID)),
				Candidates: []models.MatchCandidate{exact},
				ListType:   models.ListSanctions,
				QueryName:  "782611846337",
			},
		},
		{
			"wrong list",
			Input{
				Evidence:   taxEvidence,
				Candidates: []models.MatchCandidate{exact},
				ListType:   models.ListPEP,
				QueryName:  "782611846337",
			},
		},
		{
			"signal not exact",
			Input{
				Evidence:   taxEvidence,
				Candidates: []models.MatchCandidate{candidate("ent-2", models.TierPhrase, 0.8)},
				ListType:   models.ListSanctions,
				QueryName:  "782611846337",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.Decide(tt.in)
			assert.NotEqual(t, models.DecisionBlock, res.Decision)
		})
	}
}

func TestDecidePermutedNameWithDOBIsStrong(t *testing.T) {
	e := New(DefaultConfig())

	// Query "roman kovrykov", index holds "kovrykov roman": exact-tier
	// term-set hit, but not a literal name match.
	c := candidate("ent-7", models.TierExact, 0.85)
	c.NormalizedName = "kovrykov roman"
	c.Features.DOBMatch = true

	res := e.Decide(Input{
		Signals: models.SignalBundle{Persons: []models.PersonSignal{{
			FullName:   "Roman Kovrykov",
			Confidence: 0.75,
		}}},
		Evidence:   models.NewEvidenceSet(models.NamePattern(), models.BirthdateFound()),
		Candidates: []models.MatchCandidate{c},
		ListType:   models.ListSanctions,
		QueryName:  "roman kovrykov",
	})

	assert.Equal(t, models.DecisionManualReview, res.Decision)
	assert.True(t, res.RequiresEscalation)
	assert.Equal(t, string(StrengthStrong), res.DetectedSignals["signal_strength"])
	require.NotEmpty(t, res.Recommendations)
	assert.Contains(t, res.Recommendations[0], "corroborating")
}

func TestDecideWeakSignalAloneNeverEscalates(t *testing.T) {
	e := New(DefaultConfig())

	// Diminutive vs the canonical name, n-gram evidence only. Even a weak
	// score above the manual-review band stays ALLOW without hard evidence.
	c := candidate("ent-9", models.TierWeak, 0.32)
	c.NormalizedName = "roman"

	res := e.Decide(Input{
		Signals: models.SignalBundle{Persons: []models.PersonSignal{{
			FullName:   "Roma",
			Confidence: 0.6,
		}}},
		Evidence:   models.NewEvidenceSet(models.NamePattern()),
		Candidates: []models.MatchCandidate{c},
		ListType:   models.ListSanctions,
		QueryName:  "roma",
	})

	assert.Equal(t, models.DecisionAllow, res.Decision)
	assert.False(t, res.RequiresEscalation)
}

func TestDecideMediumSignalRespectsReviewPolicy(t *testing.T) {
	in := Input{
		Evidence:   models.NewEvidenceSet(models.NamePattern()),
		Candidates: []models.MatchCandidate{candidate("ent-3", models.TierNgram, 0.5)},
		ListType:   models.ListSanctions,
		QueryName:  "romanov",
	}

	t.Run("default policy reviews medium", func(t *testing.T) {
		res := New(DefaultConfig()).Decide(in)
		assert.Equal(t, models.DecisionManualReview, res.Decision)
	})

	t.Run("strong-only policy allows medium", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.MinReview = StrengthStrong
		res := New(cfg).Decide(in)
		assert.Equal(t, models.DecisionAllow, res.Decision)
		assert.False(t, res.RequiresEscalation)
	})
}

func TestDecideConfidenceBandsWithoutTieredMatch(t *testing.T) {
	e := New(DefaultConfig())

	mk := func(confidence float64) Input {
		return Input{
			Signals: models.SignalBundle{Organizations: []models.OrganizationSignal{{
				Core:       "вектор",
				Confidence: confidence,
			}}},
			Evidence: models.NewEvidenceSet(models.LegalFormHit()),
			ListType: models.ListSanctions,
		}
	}

	tests := []struct {
		confidence float64
		want       models.Decision
		risk       models.RiskLevel
	}{
		{0.9, models.DecisionFullSearch, models.RiskHigh},
		{0.8, models.DecisionFullSearch, models.RiskHigh},
		{0.6, models.DecisionFullSearch, models.RiskMedium},
		{0.4, models.DecisionManualReview, models.RiskLow},
		{0.2, models.DecisionAllow, models.RiskVeryLow},
	}
	for _, tt := range tests {
		res := e.Decide(mk(tt.confidence))
		assert.Equal(t, tt.want, res.Decision, "confidence %v", tt.confidence)
		assert.Equal(t, tt.risk, res.RiskLevel, "confidence %v", tt.confidence)
		assert.InDelta(t, tt.confidence, res.Confidence, 1e-9)
	}
}

func TestDecideCriticalRiskOverride(t *testing.T) {
	e := New(DefaultConfig())

	critical := risk.Result{
		Confidence: 0.95,
		RiskLevel:  models.RiskCritical,
		Indicators: []risk.Indicator{{Category: risk.CategoryFinancing, Term: "hawala transfer"}},
	}

	t.Run("forces priority review over the table outcome", func(t *testing.T) {
		res := e.Decide(Input{
			Signals: models.SignalBundle{Persons: []models.PersonSignal{{
				FullName:   "Somebody",
				Confidence: 0.2,
			}}},
			Evidence: models.NewEvidenceSet(models.NamePattern()),
			Risk:     critical,
			ListType: models.ListTerrorism,
		})
		assert.Equal(t, models.DecisionPriorityReview, res.Decision)
		assert.Equal(t, models.RiskCritical, res.RiskLevel)
		assert.True(t, res.RequiresEscalation)
		assert.Contains(t, res.Reasoning, "critical risk")
	})

	t.Run("does not downgrade a block", func(t *testing.T) {
		c := candidate("ent-1", models.TierExact, 1.0)
		c.Aliases = []string{"782611846337"}
		res := e.Decide(Input{
			Evidence:   models.NewEvidenceSet(models.ValidID(models.IDKindTaxID)),
			Candidates: []models.MatchCandidate{c},
			Risk:       critical,
			ListType:   models.ListSanctions,
			QueryName:  "782611846337",
		})
		assert.Equal(t, models.DecisionBlock, res.Decision)
		assert.Equal(t, models.RiskCritical, res.RiskLevel)
	})
}

func TestDecideDegradationSurfacedInMetadata(t *testing.T) {
	e := New(DefaultConfig())

	res := e.Decide(Input{
		Signals: models.SignalBundle{Persons: []models.PersonSignal{{
			FullName:   "Somebody",
			Confidence: 0.6,
		}}},
		Evidence: models.NewEvidenceSet(models.NamePattern()),
		ListType: models.ListSanctions,
		Warnings: []string{"vector index pass failed"},
	})

	require.NotNil(t, res.Metadata)
	assert.Contains(t, res.Metadata["degradation"], "vector index pass failed")
	// degraded evidence never hardens the outcome
	assert.NotEqual(t, models.DecisionBlock, res.Decision)
}

func TestDecideConfidenceAlwaysInUnitRange(t *testing.T) {
	e := New(DefaultConfig())

	for _, score := range []float64{-0.5, 0, 0.5, 1, 1.7} {
		res := e.Decide(Input{
			Evidence:   models.NewEvidenceSet(models.NamePattern()),
			Candidates: []models.MatchCandidate{candidate("ent-1", models.TierPhrase, score)},
			ListType:   models.ListSanctions,
			QueryName:  "x",
		})
		assert.GreaterOrEqual(t, res.Confidence, 0.0)
		assert.LessOrEqual(t, res.Confidence, 1.0)
	}
}

func TestConfigValidateDecision(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"default is valid", func(c *Config) {}, ""},
		{"strong policy is valid", func(c *Config) { c.MinReview = StrengthStrong }, ""},
		{"bad min_review", func(c *Config) { c.MinReview = "exact" }, "min_review"},
		{"threshold out of range", func(c *Config) { c.FullSearchThreshold = 1.2 }, "full_search_threshold"},
		{"thresholds out of order", func(c *Config) { c.ManualReviewThreshold = 0.9 }, "non-increasing"},
		{"risk bands out of order", func(c *Config) { c.LowRiskBand = 0.95 }, "risk bands"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
