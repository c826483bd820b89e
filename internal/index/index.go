// Package index provides the reference-index backends the matcher searches:
// a PostgreSQL store (pg_trgm for the AC tiers, pgvector for the kNN pass),
// an in-memory store for tests and single-node runs, and a Redis read-through
// cache that can wrap either.
package index

import (
	"sort"
	"strings"
	"time"

	"watchgate/internal/screening/models"
	"watchgate/internal/screening/ports"
)

// Backend is a full reference-index implementation serving both search
// passes.
type Backend interface {
	ports.IndexSearcher
	ports.VectorSearcher
}

// Entity is one reference-list record. Aliases carry alternate spellings and
// registered identifier strings (tax IDs, registration numbers), so an
// identifier query can produce an exact-tier hit.
type Entity struct {
	ID             string            `json:"id"`
	Type           models.EntityType `json:"type"`
	List           models.ListType   `json:"list"`
	NormalizedName string            `json:"normalized_name"`
	Aliases        []string          `json:"aliases,omitempty"`
	Country        string            `json:"country,omitempty"`
	DOB            *time.Time        `json:"dob,omitempty"`
	Embedding      []float32         `json:"embedding,omitempty"`
	Meta           map[string]string `json:"meta,omitempty"`
}

// nameKey is the order-insensitive lookup key: lowercased name terms, sorted
// and rejoined. Two names that are permutations of each other share a key.
func nameKey(name string) string {
	terms := strings.Fields(strings.ToLower(name))
	sort.Strings(terms)
	return strings.Join(terms, " ")
}

func termsKey(terms []string) string {
	lowered := make([]string, 0, len(terms))
	for _, t := range terms {
		lowered = append(lowered, strings.ToLower(t))
	}
	sort.Strings(lowered)
	return strings.Join(lowered, " ")
}
