// Package ports defines the interfaces the screening pipeline needs from its
// collaborators. Implementations live under internal/index and
// pkg/platform/audit; services depend only on these contracts.
package ports

import (
	"context"
	"time"

	"watchgate/internal/screening/models"
)

// ACTier selects the query shape for a tiered AC search.
type ACTier string

const (
	ACExact  ACTier = "exact"  // case-insensitive term equality on name/alias
	ACPhrase ACTier = "phrase" // contiguous phrase, 0-1 word gap slop
	ACNgram  ACTier = "ngram"  // character n-gram match, all grams required
)

// ACQuery is one tiered query against the reference index.
type ACQuery struct {
	Terms      []string
	Tier       ACTier
	EntityType models.EntityType
	List       models.ListType
	Country    string // optional filter
}

// VectorQuery is a kNN cosine-similarity query over the name-embedding field.
// The embedding is produced by the upstream collaborator; implementations
// that cannot derive one locally fail with sentinel.ErrUnavailable when it
// is absent.
type VectorQuery struct {
	Name       string
	Embedding  []float32
	EntityType models.EntityType
	List       models.ListType
	Country    string // optional filter
	K          int
}

// Hit is one scored reference entity returned by the index.
type Hit struct {
	EntityID       string
	EntityType     models.EntityType
	NormalizedName string
	Aliases        []string
	Country        string
	DOB            *time.Time
	Score          float64
	Meta           map[string]string
}

// IndexSearcher issues tiered AC queries. The reference index is an external
// read-only service; this interface never mutates it.
type IndexSearcher interface {
	SearchAC(ctx context.Context, q ACQuery) ([]Hit, error)
}

// VectorSearcher issues kNN vector queries.
type VectorSearcher interface {
	SearchVector(ctx context.Context, q VectorQuery) ([]Hit, error)
}

// HealthChecker is implemented by index backends that can report liveness.
type HealthChecker interface {
	Health(ctx context.Context) error
}
