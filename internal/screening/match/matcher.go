// Package match implements the tiered reference-index search and score
// fusion. An AC pass (exact / phrase / n-gram query shapes, decreasing
// strictness) and a kNN vector pass run concurrently against the index;
// their hits are fused into one ranked candidate list.
package match

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"watchgate/internal/screening/models"
	"watchgate/internal/screening/ports"
)

// Query is one entity lookup against the reference index.
type Query struct {
	Terms      []string
	EntityType models.EntityType
	List       models.ListType
	Country    string
	DOB        *time.Time
	Embedding  []float32 // optional, produced upstream
	TopK       int       // optional override, 0 means config default
}

// Degradation records which index passes failed so the decision layer can
// surface the reduced evidence in its result metadata.
type Degradation struct {
	ACFailed     bool
	VectorFailed bool
}

// Degraded reports whether any pass was lost.
func (d Degradation) Degraded() bool { return d.ACFailed || d.VectorFailed }

// TieredHit is an index hit annotated with the strictest tier that accepted it.
type TieredHit struct {
	Hit  ports.Hit
	Tier models.MatchTier
}

// Matcher issues tiered searches and fuses the results.
type Matcher struct {
	cfg    Config
	ac     ports.IndexSearcher
	vector ports.VectorSearcher
	logger *slog.Logger
}

// Option configures the Matcher.
type Option func(*Matcher)

// WithLogger sets a logger for degradation reporting.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Matcher) { m.logger = logger }
}

// New creates a matcher. The config must already be validated.
func New(cfg Config, ac ports.IndexSearcher, vector ports.VectorSearcher, opts ...Option) *Matcher {
	m := &Matcher{
		cfg:    cfg,
		ac:     ac,
		vector: vector,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Search runs the AC and vector passes concurrently, fuses their hits, and
// returns the ranked candidates. Collaborator failures degrade the fusion
// and are reported via Degradation; only caller cancellation is an error,
// and then no partial result is returned.
func (m *Matcher) Search(ctx context.Context, q Query) ([]models.MatchCandidate, Degradation, error) {
	var (
		acHits  []TieredHit
		vecHits []ports.Hit
		acErr   error
		vecErr  error
	)

	// Both passes are independent reads, so fire both and await both.
	// Errors are captured per pass instead of cancelling the sibling.
	var g errgroup.Group
	g.Go(func() error {
		acCtx, cancel := context.WithTimeout(ctx, m.cfg.ACTimeout)
		defer cancel()
		acHits, acErr = m.searchAC(acCtx, q)
		return nil
	})
	g.Go(func() error {
		vecCtx, cancel := context.WithTimeout(ctx, m.cfg.VectorTimeout)
		defer cancel()
		vecHits, vecErr = m.searchVector(vecCtx, q)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, Degradation{}, err
	}

	var deg Degradation
	if acErr != nil {
		deg.ACFailed = true
		m.logger.WarnContext(ctx, "ac index pass failed, fusing without it", "error", acErr)
	}
	if vecErr != nil {
		deg.VectorFailed = true
		m.logger.WarnContext(ctx, "vector index pass failed, fusing without it", "error", vecErr)
	}

	topK := q.TopK
	if topK <= 0 {
		topK = m.cfg.TopK
	}
	candidates := m.fuse(acHits, vecHits, q.DOB, topK)
	return candidates, deg, nil
}

// searchAC issues the three AC query shapes in decreasing strictness and
// classifies each entity by the strictest tier that accepted it.
func (m *Matcher) searchAC(ctx context.Context, q Query) ([]TieredHit, error) {
	type tierSpec struct {
		tier      ports.ACTier
		assigned  models.MatchTier
		threshold float64
	}
	specs := []tierSpec{
		{ports.ACExact, models.TierExact, m.cfg.ExactThreshold},
		{ports.ACPhrase, models.TierPhrase, m.cfg.PhraseThreshold},
		{ports.ACNgram, models.TierNgram, m.cfg.NgramThreshold},
	}

	assigned := make(map[string]TieredHit)
	order := make([]string, 0, 16)

	for _, spec := range specs {
		hits, err := m.ac.SearchAC(ctx, ports.ACQuery{
			Terms:      q.Terms,
			Tier:       spec.tier,
			EntityType: q.EntityType,
			List:       q.List,
			Country:    q.Country,
		})
		if err != nil {
			return nil, err
		}
		for _, hit := range hits {
			if _, seen := assigned[hit.EntityID]; seen {
				continue // stricter tier already claimed this entity
			}
			switch {
			case hit.Score >= spec.threshold:
				assigned[hit.EntityID] = TieredHit{Hit: hit, Tier: spec.assigned}
				order = append(order, hit.EntityID)
			case spec.tier == ports.ACNgram && hit.Score >= m.cfg.WeakThreshold:
				// Weak signal: n-gram evidence only, below the n-gram
				// threshold but above the weak floor, with no exact or
				// phrase corroboration.
				assigned[hit.EntityID] = TieredHit{Hit: hit, Tier: models.TierWeak}
				order = append(order, hit.EntityID)
			}
		}
	}

	out := make([]TieredHit, 0, len(order))
	for _, id := range order {
		out = append(out, assigned[id])
	}
	return out, nil
}

// searchVector runs the kNN pass and drops hits below the semantic floor.
func (m *Matcher) searchVector(ctx context.Context, q Query) ([]ports.Hit, error) {
	k := q.TopK
	if k <= 0 {
		k = m.cfg.TopK
	}
	hits, err := m.vector.SearchVector(ctx, ports.VectorQuery{
		Name:       strings.Join(q.Terms, " "),
		Embedding:  q.Embedding,
		EntityType: q.EntityType,
		List:       q.List,
		Country:    q.Country,
		K:          k,
	})
	if err != nil {
		return nil, err
	}
	kept := hits[:0]
	for _, h := range hits {
		if h.Score >= m.cfg.MinSemanticSimilarity {
			kept = append(kept, h)
		}
	}
	return kept, nil
}
