// Package decision implements the terminal state machine of the screening
// pipeline. It consumes the extracted signal bundle, the ranked match
// candidates, and the risk detector output, and emits exactly one immutable
// DecisionResult per request. Decide is a pure function: no I/O, no side
// effects beyond defect logging.
package decision

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"watchgate/internal/screening/match"
	"watchgate/internal/screening/models"
	"watchgate/internal/screening/risk"
)

// Input is everything one decision depends on. The evidence set is the
// merged evidence of every extracted signal plus any standalone identifier
// findings; the engine never recomputes it.
type Input struct {
	Signals    models.SignalBundle
	Evidence   models.EvidenceSet
	Candidates []models.MatchCandidate
	Risk       risk.Result
	ListType   models.ListType

	// QueryName is the joined term string the index was queried with; used
	// to tell a literal exact match from a term-set (permuted) one.
	QueryName string

	// Warnings carries degradation notes (a lost index pass) for the
	// result metadata.
	Warnings []string
}

// Engine applies the ordered decision table.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets a logger for invariant-violation reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New creates an engine. The config must already be validated.
func New(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decide evaluates the decision table in order, first match wins:
//
//  1. exact signal + valid tax-id evidence + sanctions list    -> BLOCK
//  2. strong signal                                            -> MANUAL_REVIEW
//  3. medium signal                                            -> MANUAL_REVIEW, or ALLOW under a strong-only policy
//  4. confidence >= full_search_threshold                      -> FULL_SEARCH
//  5. confidence >= reduced_full_search_threshold              -> FULL_SEARCH, lower urgency
//  6. confidence >= manual_review_threshold                    -> MANUAL_REVIEW
//  7. otherwise                                                -> ALLOW
//  8. critical risk flag overrides 2-7: PRIORITY_REVIEW, risk level CRITICAL
//
// A weak signal with no hard identifier evidence never escalates. Empty
// input bypasses the table entirely.
func (e *Engine) Decide(in Input) models.DecisionResult {
	if in.Signals.Empty() && len(in.Candidates) == 0 && in.Evidence.Len() == 0 {
		return models.DecisionResult{
			Decision:  models.DecisionAllow,
			RiskLevel: models.RiskVeryLow,
			Reasoning: "no candidate signals extracted from input",
		}
	}

	best := match.FindBest(in.Candidates)
	strength := classify(best, in.QueryName)
	confidence := e.clamp(e.confidence(best, in.Signals))

	var (
		outcome         models.Decision
		reasoning       string
		recommendations []string
	)
	switch {
	case strength == StrengthExact && in.Evidence.HasValidID(models.IDKindTaxID) && in.ListType == models.ListSanctions:
		outcome = models.DecisionBlock
		reasoning = fmt.Sprintf("exact match against the sanctions list with hard identifier evidence [%s] (entity %s)",
			strings.Join(in.Evidence.Tags(), ", "), best.EntityID)
		recommendations = []string{"freeze the operation and notify the compliance officer"}

	case strength == StrengthStrong:
		outcome = models.DecisionManualReview
		reasoning = fmt.Sprintf("strong signal (%s tier) for entity %s, evidence [%s]",
			best.TierName, best.EntityID, strings.Join(in.Evidence.Tags(), ", "))
		recommendations = []string{"request corroborating date of birth or identifier documents"}

	case strength == StrengthMedium:
		if e.cfg.MinReview == StrengthStrong {
			outcome = models.DecisionAllow
			reasoning = fmt.Sprintf("medium signal for entity %s below the configured review threshold", best.EntityID)
		} else {
			outcome = models.DecisionManualReview
			reasoning = fmt.Sprintf("medium signal for entity %s, evidence [%s]",
				best.EntityID, strings.Join(in.Evidence.Tags(), ", "))
		}

	case strength == StrengthWeak && !in.Evidence.Has(models.EvidenceValidID):
		outcome = models.DecisionAllow
		reasoning = fmt.Sprintf("weak signal only for entity %s, no hard evidence", best.EntityID)

	case confidence >= e.cfg.FullSearchThreshold:
		outcome = models.DecisionFullSearch
		reasoning = fmt.Sprintf("high-confidence heuristic signals (%.2f) without a tiered match", confidence)
		recommendations = []string{"escalate to a full index query"}

	case confidence >= e.cfg.ReducedFullSearchThreshold:
		outcome = models.DecisionFullSearch
		reasoning = fmt.Sprintf("moderate-confidence heuristic signals (%.2f) without a tiered match", confidence)
		recommendations = []string{"escalate to a full index query at reduced urgency"}

	case confidence >= e.cfg.ManualReviewThreshold:
		outcome = models.DecisionManualReview
		reasoning = fmt.Sprintf("low-confidence signals (%.2f) require a human look", confidence)

	default:
		outcome = models.DecisionAllow
		reasoning = fmt.Sprintf("signal confidence %.2f below every action threshold", confidence)
	}

	riskLevel := e.band(confidence)
	if in.Risk.Critical() {
		riskLevel = models.RiskCritical
		if outcome != models.DecisionBlock {
			outcome = models.DecisionPriorityReview
			reasoning = fmt.Sprintf("critical risk indicators detected (%d), overriding: %s",
				len(in.Risk.Indicators), reasoning)
			recommendations = []string{"route to the priority review queue"}
		}
	}
	if outcome == models.DecisionBlock && riskLevel.Rank() < models.RiskHigh.Rank() {
		riskLevel = models.RiskHigh
	}

	return models.DecisionResult{
		Decision:           outcome,
		Confidence:         confidence,
		RiskLevel:          riskLevel,
		Reasoning:          reasoning,
		RequiresEscalation: outcome.RequiresEscalation(),
		Recommendations:    recommendations,
		DetectedSignals:    e.detectedSignals(strength, best, in),
		Metadata:           e.metadata(in),
	}
}

// classify maps the best candidate to a signal strength. An exact-tier hit
// counts as exact only when the query literally equals the matched name or
// one of its aliases; term-set equality (a permuted name) downgrades to
// strong, which is what the corroboration rule is for.
func classify(best *models.MatchCandidate, queryName string) Strength {
	if best == nil {
		return StrengthNone
	}
	switch best.Tier {
	case models.TierExact:
		if nameMatches(queryName, best) {
			return StrengthExact
		}
		return StrengthStrong
	case models.TierPhrase:
		return StrengthStrong
	case models.TierNgram:
		return StrengthMedium
	case models.TierWeak:
		return StrengthWeak
	}
	// vector-only candidate, no AC tier claimed it
	return StrengthMedium
}

func nameMatches(queryName string, c *models.MatchCandidate) bool {
	if strings.EqualFold(queryName, c.NormalizedName) {
		return true
	}
	for _, alias := range c.Aliases {
		if strings.EqualFold(queryName, alias) {
			return true
		}
	}
	return false
}

// confidence is the best candidate's fused score when the index produced
// one, otherwise the strongest extractor heuristic.
func (e *Engine) confidence(best *models.MatchCandidate, signals models.SignalBundle) float64 {
	if best != nil {
		return best.FinalScore
	}
	var top float64
	for _, p := range signals.Persons {
		if p.Confidence > top {
			top = p.Confidence
		}
	}
	for _, o := range signals.Organizations {
		if o.Confidence > top {
			top = o.Confidence
		}
	}
	return top
}

func (e *Engine) band(confidence float64) models.RiskLevel {
	switch {
	case confidence >= e.cfg.HighRiskBand:
		return models.RiskHigh
	case confidence >= e.cfg.MediumRiskBand:
		return models.RiskMedium
	case confidence >= e.cfg.LowRiskBand:
		return models.RiskLow
	}
	return models.RiskVeryLow
}

func (e *Engine) clamp(v float64) float64 {
	if v < 0 {
		e.logger.Warn("decision confidence below zero, clamping", "value", v)
		return 0
	}
	if v > 1 {
		e.logger.Warn("decision confidence above one, clamping", "value", v)
		return 1
	}
	return v
}

func (e *Engine) detectedSignals(strength Strength, best *models.MatchCandidate, in Input) map[string]string {
	signals := map[string]string{
		"signal_strength": string(strength),
		"risk_level":      string(in.Risk.RiskLevel),
	}
	if best != nil {
		signals["match_tier"] = best.TierName
		signals["best_entity_id"] = best.EntityID
		signals["search_type"] = string(best.SearchType)
	}
	if n := len(in.Risk.Indicators); n > 0 {
		signals["risk_indicators"] = strconv.Itoa(n)
	}
	if in.Risk.Excluded {
		signals["risk_excluded"] = "true"
	}
	return signals
}

func (e *Engine) metadata(in Input) map[string]string {
	if len(in.Warnings) == 0 {
		return nil
	}
	return map[string]string{"degradation": strings.Join(in.Warnings, "; ")}
}
