package models

import "encoding/json"

// EvidenceKind is a closed enumeration of facts that can support an extracted
// signal. Confidence scoring and reasoning strings switch over this type so a
// new kind fails loudly everywhere it must be handled, instead of silently
// falling through a string-tag map.
type EvidenceKind string

const (
	EvidenceNamePattern EvidenceKind = "name_pattern"
	EvidenceLegalForm   EvidenceKind = "legal_form_hit"
	EvidenceQuotedCore  EvidenceKind = "quoted_core"
	EvidenceValidID     EvidenceKind = "valid_id"
	EvidenceInvalidID   EvidenceKind = "invalid_id"
	EvidenceBirthdate   EvidenceKind = "birthdate_found"
)

// Evidence is one discrete supporting fact. IDKind is set only for the
// identifier kinds.
type Evidence struct {
	Kind   EvidenceKind   `json:"kind"`
	IDKind IdentifierKind `json:"id_kind,omitempty"`
}

// NamePattern marks a core that matched the upstream person-name pattern.
func NamePattern() Evidence { return Evidence{Kind: EvidenceNamePattern} }

// LegalFormHit marks a legal-form marker found near an organization core.
func LegalFormHit() Evidence { return Evidence{Kind: EvidenceLegalForm} }

// QuotedCore marks a core that appears quoted in the original text.
func QuotedCore() Evidence { return Evidence{Kind: EvidenceQuotedCore} }

// ValidID marks a checksum-valid identifier attached to the signal.
func ValidID(kind IdentifierKind) Evidence {
	return Evidence{Kind: EvidenceValidID, IDKind: kind}
}

// InvalidID marks an identifier that matched a pattern but failed its checksum.
func InvalidID(kind IdentifierKind) Evidence {
	return Evidence{Kind: EvidenceInvalidID, IDKind: kind}
}

// BirthdateFound marks a birthdate attached to a person signal.
func BirthdateFound() Evidence { return Evidence{Kind: EvidenceBirthdate} }

// Tag renders the audit-facing tag, e.g. "valid_tax_id" or "birthdate_found".
func (e Evidence) Tag() string {
	switch e.Kind {
	case EvidenceValidID:
		return "valid_" + string(e.IDKind)
	case EvidenceInvalidID:
		return "invalid_" + string(e.IDKind)
	}
	return string(e.Kind)
}

// EvidenceSet is an ordered, duplicate-free collection of evidence.
// Order is insertion order so reasoning strings are deterministic.
type EvidenceSet struct {
	items []Evidence
}

// NewEvidenceSet builds a set from the given evidence, dropping duplicates.
func NewEvidenceSet(evidence ...Evidence) EvidenceSet {
	var s EvidenceSet
	for _, e := range evidence {
		s.Add(e)
	}
	return s
}

// Add inserts evidence if an identical entry is not already present.
func (s *EvidenceSet) Add(e Evidence) {
	for _, have := range s.items {
		if have == e {
			return
		}
	}
	s.items = append(s.items, e)
}

// Has reports whether any evidence of the given kind is present.
func (s EvidenceSet) Has(kind EvidenceKind) bool {
	for _, e := range s.items {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

// HasValidID reports whether a checksum-valid identifier of the given kind
// is present. This is the hard-evidence check the BLOCK rule depends on.
func (s EvidenceSet) HasValidID(kind IdentifierKind) bool {
	for _, e := range s.items {
		if e.Kind == EvidenceValidID && e.IDKind == kind {
			return true
		}
	}
	return false
}

// Items returns the evidence in insertion order.
func (s EvidenceSet) Items() []Evidence {
	return s.items
}

// Len returns the number of distinct evidence entries.
func (s EvidenceSet) Len() int {
	return len(s.items)
}

// Tags renders all evidence tags in insertion order.
func (s EvidenceSet) Tags() []string {
	tags := make([]string, 0, len(s.items))
	for _, e := range s.items {
		tags = append(tags, e.Tag())
	}
	return tags
}

// MarshalJSON encodes the set as the flat tag list callers audit against.
func (s EvidenceSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Tags())
}
