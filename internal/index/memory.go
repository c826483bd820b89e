package index

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"

	"watchgate/internal/screening/models"
	"watchgate/internal/screening/ports"
)

// Memory is an in-process reference index. The AC tiers are implemented the
// same way the PostgreSQL backend implements them (term-key equality, ordered
// phrase with one-gap slop, padded trigram similarity), so tests against this
// store exercise the same tier semantics. The vector pass uses edit-distance
// similarity as a deterministic stand-in for embedding distance.
type Memory struct {
	mu       sync.RWMutex
	entities []Entity
}

// NewMemory builds an in-memory index over the given entities.
func NewMemory(entities ...Entity) *Memory {
	m := &Memory{}
	m.Load(entities...)
	return m
}

// Load appends entities to the index.
func (m *Memory) Load(entities ...Entity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entities = append(m.entities, entities...)
}

// SearchAC implements ports.IndexSearcher.
func (m *Memory) SearchAC(ctx context.Context, q ports.ACQuery) ([]ports.Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	joined := strings.ToLower(strings.Join(q.Terms, " "))
	key := termsKey(q.Terms)

	var hits []ports.Hit
	for _, e := range m.entities {
		if !m.inScope(e, q.EntityType, q.List, q.Country) {
			continue
		}
		var score float64
		switch q.Tier {
		case ports.ACExact:
			score = exactScore(e, joined, key)
		case ports.ACPhrase:
			score = phraseScore(e, q.Terms)
		case ports.ACNgram:
			score = ngramScore(e, joined)
		}
		if score > 0 {
			hits = append(hits, toHit(e, score))
		}
	}
	sortHits(hits)
	return hits, nil
}

// SearchVector implements ports.VectorSearcher.
func (m *Memory) SearchVector(ctx context.Context, q ports.VectorQuery) ([]ports.Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Term order carries no meaning for name similarity, so both sides are
	// compared in sorted-term form.
	name := nameKey(q.Name)
	var hits []ports.Hit
	for _, e := range m.entities {
		if !m.inScope(e, q.EntityType, q.List, q.Country) {
			continue
		}
		score := editSimilarity(name, nameKey(e.NormalizedName))
		for _, alias := range e.Aliases {
			if s := editSimilarity(name, nameKey(alias)); s > score {
				score = s
			}
		}
		if score > 0 {
			hits = append(hits, toHit(e, score))
		}
	}
	sortHits(hits)
	if q.K > 0 && len(hits) > q.K {
		hits = hits[:q.K]
	}
	return hits, nil
}

// Health implements ports.HealthChecker.
func (m *Memory) Health(context.Context) error { return nil }

func (m *Memory) inScope(e Entity, t models.EntityType, list models.ListType, country string) bool {
	if t != "" && e.Type != t {
		return false
	}
	if list != "" && e.List != list {
		return false
	}
	if country != "" && !strings.EqualFold(e.Country, country) {
		return false
	}
	return true
}

// exactScore returns 1.0 for a literal or term-set match on the name or any
// alias, 0 otherwise.
func exactScore(e Entity, joined, key string) float64 {
	if strings.ToLower(e.NormalizedName) == joined || nameKey(e.NormalizedName) == key {
		return 1.0
	}
	for _, alias := range e.Aliases {
		if strings.ToLower(alias) == joined || nameKey(alias) == key {
			return 1.0
		}
	}
	return 0
}

// phraseScore accepts the query terms appearing in order in the name with at
// most one skipped word in total. The score grows with term coverage of the
// name so fuller phrases rank above partial ones.
func phraseScore(e Entity, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	if s := phraseScoreIn(e.NormalizedName, terms); s > 0 {
		return s
	}
	for _, alias := range e.Aliases {
		if s := phraseScoreIn(alias, terms); s > 0 {
			return s
		}
	}
	return 0
}

func phraseScoreIn(name string, terms []string) float64 {
	words := strings.Fields(strings.ToLower(name))
	if len(words) < len(terms) {
		return 0
	}
	for start := 0; start <= len(words)-len(terms); start++ {
		gaps := 0
		pos := start
		matched := 0
		for _, term := range terms {
			found := false
			for pos < len(words) && gaps <= 1 {
				if words[pos] == strings.ToLower(term) {
					found = true
					pos++
					break
				}
				gaps++
				pos++
			}
			if !found {
				break
			}
			matched++
		}
		if matched == len(terms) && gaps <= 1 {
			return 0.8 + 0.2*float64(len(terms))/float64(len(words))
		}
	}
	return 0
}

// ngramScore requires every trigram of the query to be present in the name
// (or one alias) and scores by padded-trigram set similarity, the same
// measure pg_trgm uses. Short diminutives against a longer canonical name
// land below the n-gram threshold and classify as weak.
func ngramScore(e Entity, joined string) float64 {
	if s := ngramScoreIn(strings.ToLower(e.NormalizedName), joined); s > 0 {
		return s
	}
	best := 0.0
	for _, alias := range e.Aliases {
		if s := ngramScoreIn(strings.ToLower(alias), joined); s > best {
			best = s
		}
	}
	return best
}

func ngramScoreIn(name, query string) float64 {
	qGrams := trigrams(query, false)
	if len(qGrams) == 0 {
		return 0
	}
	nGrams := trigrams(name, false)
	for g := range qGrams {
		if !nGrams[g] {
			return 0
		}
	}
	return trigramSimilarity(query, name)
}

// trigramSimilarity is the Jaccard similarity of the padded trigram sets.
func trigramSimilarity(a, b string) float64 {
	aGrams := trigrams(a, true)
	bGrams := trigrams(b, true)
	if len(aGrams) == 0 || len(bGrams) == 0 {
		return 0
	}
	shared := 0
	for g := range aGrams {
		if bGrams[g] {
			shared++
		}
	}
	union := len(aGrams) + len(bGrams) - shared
	return float64(shared) / float64(union)
}

// trigrams extracts character trigrams per word. Padded mode prefixes two
// spaces and suffixes one, mirroring pg_trgm.
func trigrams(s string, padded bool) map[string]bool {
	grams := make(map[string]bool)
	for _, word := range strings.Fields(s) {
		if padded {
			word = "  " + word + " "
		}
		runes := []rune(word)
		for i := 0; i+3 <= len(runes); i++ {
			grams[string(runes[i:i+3])] = true
		}
	}
	return grams
}

// editSimilarity is 1 - normalized Levenshtein distance.
func editSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	d := levenshtein.ComputeDistance(a, b)
	sim := 1 - float64(d)/float64(longest)
	if sim < 0 {
		return 0
	}
	return sim
}

func toHit(e Entity, score float64) ports.Hit {
	return ports.Hit{
		EntityID:       e.ID,
		EntityType:     e.Type,
		NormalizedName: e.NormalizedName,
		Aliases:        e.Aliases,
		Country:        e.Country,
		DOB:            e.DOB,
		Score:          score,
		Meta:           e.Meta,
	}
}

func sortHits(hits []ports.Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].EntityID < hits[j].EntityID
	})
}
