package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchgate/internal/screening/models"
)

func newDetector(t *testing.T) *Detector {
	t.Helper()
	d, err := New(DefaultConfig())
	require.NoError(t, err)
	return d
}

func TestDetectEmptyText(t *testing.T) {
	d := newDetector(t)

	for _, text := range []string{"", "   ", "\n\t"} {
		res := d.Detect(text)
		assert.Zero(t, res.Confidence)
		assert.Equal(t, models.RiskVeryLow, res.RiskLevel)
		assert.Empty(t, res.Indicators)
	}
}

func TestDetectBenignText(t *testing.T) {
	d := newDetector(t)

	res := d.Detect("Оплата по договору поставки №42 от ООО Ромашка")
	assert.Zero(t, res.Confidence)
	assert.Equal(t, models.RiskVeryLow, res.RiskLevel)
	assert.False(t, res.RequiresManualReview)
}

func TestDetectSingleCategory(t *testing.T) {
	d := newDetector(t)

	res := d.Detect("перевод связан с финансированием террористической деятельности")
	require.NotEmpty(t, res.Indicators)
	assert.Equal(t, CategoryFinancing, res.Indicators[0].Category)
	assert.InDelta(t, 0.45, res.Confidence, 1e-9)
	assert.Equal(t, models.RiskLow, res.RiskLevel)
	assert.False(t, res.RequiresManualReview)
}

func TestDetectMultipleCategoriesEscalate(t *testing.T) {
	d := newDetector(t)

	res := d.Detect("сбор средств на закупку: взрывчатые вещества и детонаторы для ячейки организации")
	// financing + materiel (two patterns) + organizational
	assert.GreaterOrEqual(t, res.Confidence, d.cfg.CriticalThreshold)
	assert.Equal(t, models.RiskCritical, res.RiskLevel)
	assert.True(t, res.RequiresManualReview)
	assert.True(t, res.Critical())
}

func TestDetectEnglishIndicators(t *testing.T) {
	d := newDetector(t)

	res := d.Detect("wire transfer flagged: fundraising for a designated organization, attack planning discussed")
	require.NotEmpty(t, res.Indicators)

	categories := map[Category]bool{}
	for _, ind := range res.Indicators {
		categories[ind.Category] = true
	}
	assert.True(t, categories[CategoryFinancing])
	assert.True(t, categories[CategoryOrganizational])
	assert.True(t, categories[CategoryActivity])
	assert.GreaterOrEqual(t, res.RiskLevel.Rank(), models.RiskHigh.Rank())
	assert.True(t, res.RequiresManualReview)
}

func TestExclusionOverridesEscalation(t *testing.T) {
	d := newDetector(t)

	// The same indicator-dense text, wrapped in legitimate-content framing.
	hot := "взрывчатые вещества и финансирование терроризма"
	res := d.Detect(hot)
	require.Greater(t, res.Confidence, 0.0)

	tests := []struct {
		name string
		text string
	}{
		{"academic ru", "научная статья о теме: " + hot},
		{"academic en", "academic research on " + hot},
		{"journalistic", "журналистское расследование: " + hot},
		{"historical", "historical overview of " + hot},
		{"authorized operation", "officially authorized operation involving " + hot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := d.Detect(tt.text)
			assert.True(t, res.Excluded)
			assert.NotEmpty(t, res.ExclusionTerm)
			assert.Zero(t, res.Confidence)
			assert.Equal(t, models.RiskVeryLow, res.RiskLevel)
			assert.Empty(t, res.Indicators)
			assert.False(t, res.RequiresManualReview)
		})
	}
}

func TestDetectConfidenceClampedToOne(t *testing.T) {
	d := newDetector(t)

	res := d.Detect("финансирование терроризма, hawala transfer, взрывчатые вещества, детонаторы, " +
		"вербовка в группировку, designated organization, attack planning, подготовка теракта")
	assert.LessOrEqual(t, res.Confidence, 1.0)
	assert.Equal(t, models.RiskCritical, res.RiskLevel)
}

func TestDetectCaseInsensitive(t *testing.T) {
	d := newDetector(t)

	lower := d.Detect("hawala transfer recorded")
	upper := d.Detect("HAWALA TRANSFER recorded")
	assert.Equal(t, lower.Confidence, upper.Confidence)
	assert.Equal(t, lower.RiskLevel, upper.RiskLevel)
}

func TestNewRejectsBadConfig(t *testing.T) {
	t.Run("invalid weight", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Financing.Weight = 1.5
		_, err := New(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "financing")
	})

	t.Run("thresholds out of order", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.MediumThreshold = 0.95
		_, err := New(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "non-increasing")
	})

	t.Run("broken pattern", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Activity.Patterns = append(cfg.Activity.Patterns, `([unclosed`)
		_, err := New(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "activity")
	})
}
