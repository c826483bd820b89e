package match

import (
	"sort"
	"time"

	"watchgate/internal/screening/models"
	"watchgate/internal/screening/ports"
)

// Fuse combines AC-tier and vector hits into ranked candidates using the
// configured weights. Entities present in only one result set are fused with
// the missing score treated as zero. Fusion is a pure function of its
// inputs: identical hit sets always produce identical scores.
//
// need_context is set when both passes independently resolve to the same
// entity and is applied as a penalty; see DESIGN.md for the open question
// on that choice.
func (m *Matcher) Fuse(acHits []TieredHit, vectorHits []ports.Hit, queryDOB *time.Time) []models.MatchCandidate {
	return m.fuse(acHits, vectorHits, queryDOB, m.cfg.TopK)
}

func (m *Matcher) fuse(acHits []TieredHit, vectorHits []ports.Hit, queryDOB *time.Time, topK int) []models.MatchCandidate {
	byID := make(map[string]*models.MatchCandidate, len(acHits)+len(vectorHits))
	order := make([]string, 0, len(acHits)+len(vectorHits))

	for _, th := range acHits {
		c := candidateFrom(th.Hit)
		c.ACScore = th.Hit.Score
		c.Tier = th.Tier
		c.SearchType = models.SearchAC
		byID[th.Hit.EntityID] = c
		order = append(order, th.Hit.EntityID)
	}

	for _, hit := range vectorHits {
		if c, ok := byID[hit.EntityID]; ok {
			c.VectorScore = hit.Score
			c.SearchType = models.SearchFusion
			c.Features.NeedContext = true
			continue
		}
		c := candidateFrom(hit)
		c.VectorScore = hit.Score
		c.Tier = models.TierNone
		c.SearchType = models.SearchVector
		byID[hit.EntityID] = c
		order = append(order, hit.EntityID)
	}

	out := make([]models.MatchCandidate, 0, len(order))
	for _, id := range order {
		c := byID[id]
		c.Features.DOBMatch = dobEqual(queryDOB, c.DOB)
		c.FinalScore = m.finalScore(c)
		c.TierName = c.Tier.String()
		out = append(out, *c)
	}

	rank(out)
	if len(out) > topK {
		out = out[:topK]
	}
	return out
}

// finalScore applies the weighted fusion formula, floored at zero so the
// candidate invariant (final_score never negative) holds by construction.
func (m *Matcher) finalScore(c *models.MatchCandidate) float64 {
	score := m.cfg.ACWeight*c.ACScore + m.cfg.VectorWeight*c.VectorScore
	if c.Features.DOBMatch {
		score += m.cfg.DOBBonus
	}
	if c.Features.NeedContext {
		score -= m.cfg.ContextPenalty
	}
	if score < 0 {
		return 0
	}
	return score
}

// rank sorts by final score descending; ties break by tier priority
// (exact > phrase > ngram > weak), then by entity ID for determinism.
func rank(cs []models.MatchCandidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].FinalScore != cs[j].FinalScore {
			return cs[i].FinalScore > cs[j].FinalScore
		}
		if cs[i].Tier != cs[j].Tier {
			return cs[i].Tier < cs[j].Tier
		}
		return cs[i].EntityID < cs[j].EntityID
	})
}

// Rank orders candidates by final score, tier priority, then entity ID.
// Exposed for callers that merge candidate sets from several queries.
func Rank(cs []models.MatchCandidate) { rank(cs) }

// FindBest returns the top-ranked candidate, or nil for an empty set.
func FindBest(cs []models.MatchCandidate) *models.MatchCandidate {
	if len(cs) == 0 {
		return nil
	}
	return &cs[0]
}

func candidateFrom(hit ports.Hit) *models.MatchCandidate {
	return &models.MatchCandidate{
		EntityID:       hit.EntityID,
		EntityType:     hit.EntityType,
		NormalizedName: hit.NormalizedName,
		Aliases:        hit.Aliases,
		Country:        hit.Country,
		DOB:            hit.DOB,
	}
}

func dobEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return false
	}
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
