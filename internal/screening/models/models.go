// Package models defines the data model for the screening pipeline: extracted
// entity signals, reference-index match candidates, and the terminal decision
// artifact. Everything here is a plain value type; construction and scoring
// live in the extract/match/decision packages.
package models

import (
	"time"
)

// EntityType scopes index queries and extracted signals.
type EntityType string

const (
	EntityPerson       EntityType = "person"
	EntityOrganization EntityType = "organization"
)

// IsValid checks if the entity type is one of the supported enum values.
func (t EntityType) IsValid() bool {
	return t == EntityPerson || t == EntityOrganization
}

// ListType identifies which watch-list a screening runs against.
type ListType string

const (
	ListSanctions ListType = "sanctions"
	ListTerrorism ListType = "terrorism"
	ListPEP       ListType = "pep"
)

// IsValid checks if the list type is one of the supported enum values.
func (t ListType) IsValid() bool {
	switch t {
	case ListSanctions, ListTerrorism, ListPEP:
		return true
	}
	return false
}

// Token is a normalized token with character offsets into the original text.
// Tokens are produced by the upstream normalization collaborator; this service
// never tokenizes text itself.
type Token struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// IdentifierKind enumerates structured identifier families recognized in text.
type IdentifierKind string

const (
	IDKindTaxID        IdentifierKind = "tax_id"
	IDKindRegistration IdentifierKind = "registration_id"
	IDKindPassport     IdentifierKind = "passport_like"
)

// Identifier is a structured identifier found in text. Valid reflects the
// kind-specific checksum/format rule; failed candidates are still emitted
// because they remain weak evidence for the decision layer.
type Identifier struct {
	Kind  IdentifierKind `json:"kind"`
	Value string         `json:"value"` // canonical form (digits / uppercase)
	Valid bool           `json:"valid"`
	Raw   string         `json:"raw"` // original substring
	Start int            `json:"start"`
	End   int            `json:"end"`
}

// PersonSignal is one detected person mention with attached attributes and an
// evidence-based confidence. Immutable once emitted by the extractor.
type PersonSignal struct {
	Core       []string     `json:"core"` // ordered name tokens
	FullName   string       `json:"full_name"`
	DOB        *time.Time   `json:"dob,omitempty"`
	DOBRaw     string       `json:"dob_raw,omitempty"`
	IDs        []Identifier `json:"ids,omitempty"`
	Confidence float64      `json:"confidence"`
	Evidence   EvidenceSet  `json:"evidence"`
}

// OrganizationSignal is one detected organization mention.
type OrganizationSignal struct {
	Core       string       `json:"core"`
	LegalForm  string       `json:"legal_form,omitempty"`
	FullName   string       `json:"full_name"`
	IDs        []Identifier `json:"ids,omitempty"`
	Confidence float64      `json:"confidence"`
	Evidence   EvidenceSet  `json:"evidence"`
}

// SignalBundle is the extractor output for one screening request.
type SignalBundle struct {
	Persons       []PersonSignal       `json:"persons"`
	Organizations []OrganizationSignal `json:"organizations"`
}

// Empty reports whether extraction produced no candidate signals at all.
func (b SignalBundle) Empty() bool {
	return len(b.Persons) == 0 && len(b.Organizations) == 0
}

// SearchType records which index tier(s) produced a candidate.
type SearchType string

const (
	SearchAC     SearchType = "AC"
	SearchVector SearchType = "VECTOR"
	SearchFusion SearchType = "FUSION"
)

// MatchTier orders AC tiers by decreasing strictness. Lower value wins
// final-score ties.
type MatchTier int

const (
	TierExact MatchTier = iota
	TierPhrase
	TierNgram
	TierWeak
	TierNone
)

func (t MatchTier) String() string {
	switch t {
	case TierExact:
		return "exact"
	case TierPhrase:
		return "phrase"
	case TierNgram:
		return "ngram"
	case TierWeak:
		return "weak"
	}
	return "none"
}

// MatchFeatures carries the boolean fusion features.
type MatchFeatures struct {
	DOBMatch    bool `json:"dob_match"`
	NeedContext bool `json:"need_context"`
}

// MatchCandidate is one scored reference entity for a query. The ranked set
// is request-scoped and never persisted by this service.
type MatchCandidate struct {
	EntityID       string        `json:"entity_id"`
	EntityType     EntityType    `json:"entity_type"`
	NormalizedName string        `json:"normalized_name"`
	Aliases        []string      `json:"aliases,omitempty"`
	Country        string        `json:"country,omitempty"`
	DOB            *time.Time    `json:"dob,omitempty"`
	ACScore        float64       `json:"ac_score"`
	VectorScore    float64       `json:"vector_score"`
	FinalScore     float64       `json:"final_score"`
	Tier           MatchTier     `json:"-"`
	TierName       string        `json:"tier"`
	Features       MatchFeatures `json:"features"`
	SearchType     SearchType    `json:"search_type"`
}

// Decision enumerates the terminal screening outcomes. There are no
// intermediate or retryable states.
type Decision string

const (
	DecisionAllow          Decision = "ALLOW"
	DecisionBlock          Decision = "BLOCK"
	DecisionFullSearch     Decision = "FULL_SEARCH"
	DecisionManualReview   Decision = "MANUAL_REVIEW"
	DecisionPriorityReview Decision = "PRIORITY_REVIEW"
)

// RequiresEscalation reports whether the outcome must be routed to a human
// or downstream review queue.
func (d Decision) RequiresEscalation() bool {
	switch d {
	case DecisionManualReview, DecisionPriorityReview, DecisionBlock:
		return true
	}
	return false
}

// RiskLevel bands a decision's risk for routing and retention.
type RiskLevel string

const (
	RiskVeryLow  RiskLevel = "VERY_LOW"
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Rank returns an ordering value for level comparisons.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskVeryLow:
		return 0
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	case RiskCritical:
		return 4
	}
	return -1
}

// DecisionResult is the terminal artifact of one screening request.
// Never mutated after creation.
type DecisionResult struct {
	Decision           Decision          `json:"decision"`
	Confidence         float64           `json:"confidence"`
	RiskLevel          RiskLevel         `json:"risk_level"`
	Reasoning          string            `json:"reasoning"`
	RequiresEscalation bool              `json:"requires_escalation"`
	Recommendations    []string          `json:"recommendations,omitempty"`
	DetectedSignals    map[string]string `json:"detected_signals,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
	ProcessingTime     time.Duration     `json:"processing_time_ns"`
}
