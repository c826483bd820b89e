package index

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchgate/internal/screening/models"
	"watchgate/internal/screening/ports"
)

func testEntities() []Entity {
	dob := time.Date(1990, time.January, 1, 0, 0, 0, 0, time.UTC)
	return []Entity{
		{
			ID:             "p-1",
			Type:           models.EntityPerson,
			List:           models.ListSanctions,
			NormalizedName: "kovrykov roman",
			DOB:            &dob,
			Country:        "RU",
		},
		{
			ID:             "p-2",
			Type:           models.EntityPerson,
			List:           models.ListSanctions,
			NormalizedName: "roman petrov kovalenko",
		},
		{
			ID:             "o-1",
			Type:           models.EntityOrganization,
			List:           models.ListSanctions,
			NormalizedName: "vektor trading llc",
			Aliases:        []string{"ооо вектор", "782611846337"},
		},
		{
			ID:             "p-3",
			Type:           models.EntityPerson,
			List:           models.ListPEP,
			NormalizedName: "roman kovrykov",
		},
	}
}

func TestMemoryExactTier(t *testing.T) {
	idx := NewMemory(testEntities()...)

	t.Run("literal match", func(t *testing.T) {
		hits, err := idx.SearchAC(context.Background(), ports.ACQuery{
			Terms:      []string{"kovrykov", "roman"},
			Tier:       ports.ACExact,
			EntityType: models.EntityPerson,
			List:       models.ListSanctions,
		})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "p-1", hits[0].EntityID)
		assert.Equal(t, 1.0, hits[0].Score)
	})

	t.Run("permuted terms still hit exact tier", func(t *testing.T) {
		hits, err := idx.SearchAC(context.Background(), ports.ACQuery{
			Terms:      []string{"roman", "kovrykov"},
			Tier:       ports.ACExact,
			EntityType: models.EntityPerson,
			List:       models.ListSanctions,
		})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "p-1", hits[0].EntityID)
		// the matched name is the permutation, not the literal query
		assert.NotEqual(t, "roman kovrykov", hits[0].NormalizedName)
	})

	t.Run("identifier alias match", func(t *testing.T) {
		hits, err := idx.SearchAC(context.Background(), ports.ACQuery{
			Terms:      []string{"782611846337"},
			Tier:       ports.ACExact,
			EntityType: models.EntityOrganization,
			List:       models.ListSanctions,
		})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "o-1", hits[0].EntityID)
	})

	t.Run("list scope respected", func(t *testing.T) {
		hits, err := idx.SearchAC(context.Background(), ports.ACQuery{
			Terms:      []string{"roman", "kovrykov"},
			Tier:       ports.ACExact,
			EntityType: models.EntityPerson,
			List:       models.ListTerrorism,
		})
		require.NoError(t, err)
		assert.Empty(t, hits)
	})
}

func TestMemoryPhraseTier(t *testing.T) {
	idx := NewMemory(testEntities()...)

	hits, err := idx.SearchAC(context.Background(), ports.ACQuery{
		Terms:      []string{"roman", "kovalenko"},
		Tier:       ports.ACPhrase,
		EntityType: models.EntityPerson,
		List:       models.ListSanctions,
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	// "roman petrov kovalenko": in-order with one skipped word
	assert.Equal(t, "p-2", hits[0].EntityID)
	assert.GreaterOrEqual(t, hits[0].Score, 0.8)

	hits, err = idx.SearchAC(context.Background(), ports.ACQuery{
		Terms:      []string{"kovalenko", "roman"},
		Tier:       ports.ACPhrase,
		EntityType: models.EntityPerson,
		List:       models.ListSanctions,
	})
	require.NoError(t, err)
	assert.Empty(t, hits, "phrase tier requires query order")
}

func TestMemoryNgramTier(t *testing.T) {
	idx := NewMemory(
		Entity{ID: "p-1", Type: models.EntityPerson, List: models.ListSanctions, NormalizedName: "roman"},
	)

	t.Run("diminutive scores below the ngram threshold", func(t *testing.T) {
		hits, err := idx.SearchAC(context.Background(), ports.ACQuery{
			Terms:      []string{"roma"},
			Tier:       ports.ACNgram,
			EntityType: models.EntityPerson,
			List:       models.ListSanctions,
		})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Less(t, hits[0].Score, 0.6)
		assert.GreaterOrEqual(t, hits[0].Score, 0.4)
	})

	t.Run("missing gram rejects", func(t *testing.T) {
		hits, err := idx.SearchAC(context.Background(), ports.ACQuery{
			Terms:      []string{"romanov"},
			Tier:       ports.ACNgram,
			EntityType: models.EntityPerson,
			List:       models.ListSanctions,
		})
		require.NoError(t, err)
		assert.Empty(t, hits)
	})
}

func TestMemoryVectorSearch(t *testing.T) {
	idx := NewMemory(testEntities()...)

	hits, err := idx.SearchVector(context.Background(), ports.VectorQuery{
		Name:       "roman kovrykov",
		EntityType: models.EntityPerson,
		List:       models.ListSanctions,
		K:          2,
	})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "p-1", hits[0].EntityID, "closest name first")
	for i := 1; i < len(hits); i++ {
		assert.LessOrEqual(t, hits[i].Score, hits[i-1].Score)
	}
}

func TestMemoryVectorDeterministic(t *testing.T) {
	idx := NewMemory(testEntities()...)

	q := ports.VectorQuery{Name: "roman", EntityType: models.EntityPerson, List: models.ListSanctions, K: 5}
	first, err := idx.SearchVector(context.Background(), q)
	require.NoError(t, err)
	second, err := idx.SearchVector(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMemoryCancelledContext(t *testing.T) {
	idx := NewMemory(testEntities()...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := idx.SearchAC(ctx, ports.ACQuery{Terms: []string{"x"}, Tier: ports.ACExact, EntityType: models.EntityPerson})
	assert.ErrorIs(t, err, context.Canceled)
}
