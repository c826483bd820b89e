package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchgate/internal/screening/decision"
	"watchgate/internal/screening/models"
	"watchgate/internal/screening/ports"
	dErrors "watchgate/pkg/domain-errors"
	"watchgate/pkg/platform/audit"
)

// fakeBackend serves exact-tier lookups from a small entity table and
// returns canned hits for the looser tiers.
type fakeBackend struct {
	mu       sync.Mutex
	entities []fakeEntity
	ngram    []ports.Hit
	vecErr   error
	acCalls  int
}

type fakeEntity struct {
	id      string
	name    string
	aliases []string
	etype   models.EntityType
	list    models.ListType
}

func (f *fakeBackend) SearchAC(ctx context.Context, q ports.ACQuery) ([]ports.Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.acCalls++
	f.mu.Unlock()

	switch q.Tier {
	case ports.ACExact:
		joined := strings.ToLower(strings.Join(q.Terms, " "))
		var hits []ports.Hit
		for _, e := range f.entities {
			if q.EntityType != "" && e.etype != q.EntityType {
				continue
			}
			if e.list != q.List {
				continue
			}
			if !matchesName(e, joined) {
				continue
			}
			hits = append(hits, ports.Hit{
				EntityID:       e.id,
				EntityType:     e.etype,
				NormalizedName: e.name,
				Aliases:        e.aliases,
				Score:          1.0,
			})
		}
		return hits, nil
	case ports.ACNgram:
		return f.ngram, nil
	}
	return nil, nil
}

func matchesName(e fakeEntity, joined string) bool {
	if strings.EqualFold(e.name, joined) {
		return true
	}
	for _, a := range e.aliases {
		if strings.EqualFold(a, joined) {
			return true
		}
	}
	return false
}

func (f *fakeBackend) SearchVector(ctx context.Context, _ ports.VectorQuery) ([]ports.Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.vecErr != nil {
		return nil, f.vecErr
	}
	return nil, nil
}

func (f *fakeBackend) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.acCalls
}

// recordingPublisher captures emitted events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingPublisher) Emit(_ context.Context, event audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingPublisher) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Action)
	}
	return out
}

func newTestService(t *testing.T, backend *fakeBackend, trail *recordingPublisher) *Service {
	t.Helper()
	opts := []Option{}
	if trail != nil {
		opts = append(opts, WithAuditPublisher(trail))
	}
	s, err := New(DefaultPolicy(), backend, backend, opts...)
	require.NoError(t, err)
	return s
}

func TestScreenEmptyTextAllowsWithoutSearching(t *testing.T) {
	backend := &fakeBackend{}
	trail := &recordingPublisher{}
	s := newTestService(t, backend, trail)

	res, err := s.Screen(context.Background(), Request{
		Text:     "   ",
		ListType: models.ListSanctions,
	})
	require.NoError(t, err)

	assert.Equal(t, models.DecisionAllow, res.Decision.Decision)
	assert.Equal(t, models.RiskVeryLow, res.Decision.RiskLevel)
	assert.Zero(t, res.Decision.Confidence)
	assert.False(t, res.Decision.RequiresEscalation)
	assert.Zero(t, backend.calls(), "empty input must not reach the index")
	assert.Equal(t, []string{string(audit.EventScreeningDecided)}, trail.actions())
}

func TestScreenRejectsUnknownListType(t *testing.T) {
	s := newTestService(t, &fakeBackend{}, nil)

	_, err := s.Screen(context.Background(), Request{Text: "x", ListType: "watch"})
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeInvalidInput, dErrors.CodeOf(err))
}

func TestScreenBlocksExactSanctionsMatchWithTaxID(t *testing.T) {
	backend := &fakeBackend{entities: []fakeEntity{
		{id: "p-1", name: "roman kovrykov", etype: models.EntityPerson, list: models.ListSanctions},
	}}
	trail := &recordingPublisher{}
	s := newTestService(t, backend, trail)

	res, err := s.Screen(context.Background(), Request{
		Text:        "Payment to Roman Kovrykov, tax id 782611846337",
		PersonsCore: [][]string{{"roman", "kovrykov"}},
		ListType:    models.ListSanctions,
	})
	require.NoError(t, err)

	assert.Equal(t, models.DecisionBlock, res.Decision.Decision)
	assert.Equal(t, models.RiskHigh, res.Decision.RiskLevel)
	assert.True(t, res.Decision.RequiresEscalation)
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "p-1", res.Candidates[0].EntityID)

	assert.Equal(t, []string{
		string(audit.EventScreeningDecided),
		string(audit.EventScreeningBlocked),
	}, trail.actions())
	for _, e := range trail.events {
		assert.NotContains(t, e.QueryHash, "782611846337")
		assert.Len(t, e.QueryHash, 64)
	}
}

func TestScreenStandaloneIdentifierReachesTheIndex(t *testing.T) {
	backend := &fakeBackend{entities: []fakeEntity{
		{
			id:      "o-1",
			name:    "vektor trading llc",
			aliases: []string{"7830002293"},
			etype:   models.EntityOrganization,
			list:    models.ListSanctions,
		},
	}}
	s := newTestService(t, backend, nil)

	res, err := s.Screen(context.Background(), Request{
		Text:     "Counterparty check, tax id 7830002293",
		ListType: models.ListSanctions,
	})
	require.NoError(t, err)

	// No extracted entities, but the checksum-valid identifier alone must
	// still resolve against the index and carry hard evidence.
	assert.True(t, res.Signals.Empty())
	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "o-1", res.Candidates[0].EntityID)
	assert.Equal(t, models.DecisionBlock, res.Decision.Decision)
}

func TestScreenInvalidStandaloneIdentifierDoesNotSearch(t *testing.T) {
	backend := &fakeBackend{}
	s := newTestService(t, backend, nil)

	res, err := s.Screen(context.Background(), Request{
		Text:     "Counterparty check, tax id 7830002294",
		ListType: models.ListSanctions,
	})
	require.NoError(t, err)

	assert.Zero(t, backend.calls())
	assert.Empty(t, res.Candidates)
	assert.Equal(t, models.DecisionAllow, res.Decision.Decision)
}

func TestScreenVectorFailureSurfacesDegradation(t *testing.T) {
	backend := &fakeBackend{
		entities: []fakeEntity{
			{id: "p-1", name: "roman kovrykov", etype: models.EntityPerson, list: models.ListSanctions},
		},
		vecErr: errors.New("vector index down"),
	}
	s := newTestService(t, backend, nil)

	res, err := s.Screen(context.Background(), Request{
		Text:        "Payment to Roman Kovrykov",
		PersonsCore: [][]string{{"roman", "kovrykov"}},
		ListType:    models.ListSanctions,
	})
	require.NoError(t, err)

	require.NotEmpty(t, res.Candidates, "ac pass alone must still produce candidates")
	assert.Contains(t, res.Decision.Metadata["degradation"], "vector index pass unavailable")
	assert.NotEqual(t, models.DecisionBlock, res.Decision.Decision,
		"degraded evidence must never harden the outcome")
}

func TestScreenCancelledContextReturnsNoPartialResult(t *testing.T) {
	backend := &fakeBackend{entities: []fakeEntity{
		{id: "p-1", name: "roman kovrykov", etype: models.EntityPerson, list: models.ListSanctions},
	}}
	s := newTestService(t, backend, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := s.Screen(ctx, Request{
		Text:        "Payment to Roman Kovrykov",
		PersonsCore: [][]string{{"roman", "kovrykov"}},
		ListType:    models.ListSanctions,
	})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Equal(t, dErrors.CodeUnavailable, dErrors.CodeOf(err))
}

func TestScreenMergesCandidatesAcrossSignals(t *testing.T) {
	backend := &fakeBackend{entities: []fakeEntity{
		{id: "p-1", name: "roman kovrykov", etype: models.EntityPerson, list: models.ListSanctions},
		{id: "o-1", name: "vektor trading llc", etype: models.EntityOrganization, list: models.ListSanctions},
	}}
	s := newTestService(t, backend, nil)

	res, err := s.Screen(context.Background(), Request{
		Text:              `Transfer from Roman Kovrykov to "Vektor Trading LLC"`,
		PersonsCore:       [][]string{{"roman", "kovrykov"}},
		OrganizationsCore: []string{"vektor trading llc"},
		ListType:          models.ListSanctions,
	})
	require.NoError(t, err)

	require.Len(t, res.Candidates, 2)
	ids := []string{res.Candidates[0].EntityID, res.Candidates[1].EntityID}
	assert.ElementsMatch(t, []string{"p-1", "o-1"}, ids)
}

func TestUpdatePolicyRejectsInvalidAndKeepsCurrent(t *testing.T) {
	s := newTestService(t, &fakeBackend{}, nil)
	before := s.Policy()

	bad := DefaultPolicy()
	bad.Match.TopK = 0
	err := s.UpdatePolicy(context.Background(), bad, "tuning")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeInvalidInput, dErrors.CodeOf(err))
	assert.Equal(t, before, s.Policy())
}

func TestUpdatePolicySwapsThePipeline(t *testing.T) {
	backend := &fakeBackend{ngram: []ports.Hit{{
		EntityID:       "p-9",
		EntityType:     models.EntityPerson,
		NormalizedName: "romanov",
		Score:          0.65,
	}}}
	trail := &recordingPublisher{}
	s := newTestService(t, backend, trail)

	req := Request{
		Text:        "Payment to Romanenko",
		PersonsCore: [][]string{{"romanenko"}},
		ListType:    models.ListSanctions,
	}

	res, err := s.Screen(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionManualReview, res.Decision.Decision,
		"medium signal escalates under the default policy")

	strict := DefaultPolicy()
	strict.Decision.MinReview = decision.StrengthStrong
	require.NoError(t, s.UpdatePolicy(context.Background(), strict, "reduce review queue load"))
	assert.Contains(t, trail.actions(), string(audit.EventPolicyUpdated))

	res, err = s.Screen(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.DecisionAllow, res.Decision.Decision,
		"the same medium signal passes under a strong-only policy")
}
