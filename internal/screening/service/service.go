// Package service orchestrates the screening pipeline: signal extraction,
// risk detection, tiered index search with fusion, and the terminal decision.
// One Screen call produces exactly one immutable result; the pipeline keeps
// no state between requests beyond its installed policy.
package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"watchgate/internal/screening/decision"
	"watchgate/internal/screening/extract"
	"watchgate/internal/screening/identifier"
	"watchgate/internal/screening/match"
	"watchgate/internal/screening/metrics"
	"watchgate/internal/screening/models"
	"watchgate/internal/screening/ports"
	"watchgate/internal/screening/risk"
	dErrors "watchgate/pkg/domain-errors"
	"watchgate/pkg/platform/audit"
	"watchgate/pkg/requestcontext"
)

// AuditPublisher records the decision trail. Emission failures never fail a
// screening; the publisher logs them.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Request is one screening call. Text, tokens, and the core groups come from
// the upstream normalization collaborator; this service never tokenizes or
// embeds text itself. When an embedding is provided it is attached to every
// index query built from the request.
type Request struct {
	Text              string
	Tokens            []models.Token
	PersonsCore       [][]string
	OrganizationsCore []string
	ListType          models.ListType
	Country           string

	// DOB is the caller-supplied birth date; extracted birthdates take
	// precedence for the person signal they attach to.
	DOB *time.Time

	Embedding []float32
	TopK      int // optional override, 0 means policy default
}

// Result is the full pipeline output for one request.
type Result struct {
	Decision   models.DecisionResult   `json:"decision"`
	Signals    models.SignalBundle     `json:"signals"`
	Candidates []models.MatchCandidate `json:"candidates,omitempty"`
	Risk       risk.Result             `json:"risk"`
}

// Service runs the screening pipeline under an installed policy. Policy swaps
// rebuild the pipeline components atomically; in-flight requests finish on
// the snapshot they started with.
type Service struct {
	ac     ports.IndexSearcher
	vector ports.VectorSearcher
	ids    *identifier.Validator

	logger  *slog.Logger
	audit   AuditPublisher
	metrics *metrics.Metrics
	tracer  trace.Tracer

	mu        sync.RWMutex
	policy    Policy
	extractor *extract.Extractor
	matcher   *match.Matcher
	detector  *risk.Detector
	engine    *decision.Engine
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithAuditPublisher sets the audit trail publisher.
func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.audit = p }
}

// WithMetrics sets the pipeline metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs a Service with the given policy installed. The policy is
// validated before any component is built.
func New(policy Policy, ac ports.IndexSearcher, vector ports.VectorSearcher, opts ...Option) (*Service, error) {
	s := &Service{
		ac:     ac,
		vector: vector,
		ids:    identifier.NewValidator(),
		logger: slog.Default(),
		tracer: otel.Tracer("watchgate/screening"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.install(policy); err != nil {
		return nil, err
	}
	return s, nil
}

// Screen runs the full pipeline for one request. Collaborator failures
// degrade the search and surface in the result metadata; only caller
// cancellation is an error, and then no partial result is returned.
func (s *Service) Screen(ctx context.Context, req Request) (*Result, error) {
	if !req.ListType.IsValid() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "unknown list type %q", req.ListType)
	}

	ctx, span := s.tracer.Start(ctx, "screening.screen",
		trace.WithAttributes(attribute.String("list_type", string(req.ListType))))
	defer span.End()

	start := time.Now()

	s.mu.RLock()
	extractor, matcher, detector, engine := s.extractor, s.matcher, s.detector, s.engine
	topK := s.policy.Match.TopK
	s.mu.RUnlock()
	if req.TopK > 0 {
		topK = req.TopK
	}

	var (
		bundle     models.SignalBundle
		riskResult risk.Result
		evidence   models.EvidenceSet
		candidates []models.MatchCandidate
		warnings   []string
		queryOf    = make(map[string]string)
	)

	if text := strings.TrimSpace(req.Text); text != "" {
		bundle = extractor.Extract(req.Text, req.Tokens, req.PersonsCore, req.OrganizationsCore)
		riskResult = detector.Detect(req.Text)

		queries, queryEvidence := s.buildQueries(req, bundle)
		evidence = queryEvidence

		var acLost, vectorLost bool
		for _, q := range queries {
			found, deg, err := matcher.Search(ctx, q)
			if err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "screening interrupted before completion")
			}
			acLost = acLost || deg.ACFailed
			vectorLost = vectorLost || deg.VectorFailed
			name := strings.Join(q.Terms, " ")
			for _, c := range found {
				if existing := findCandidate(candidates, c.EntityID); existing != nil {
					if existing.FinalScore >= c.FinalScore {
						continue
					}
					*existing = c
					queryOf[c.EntityID] = name
					continue
				}
				candidates = append(candidates, c)
				queryOf[c.EntityID] = name
			}
		}
		match.Rank(candidates)
		if len(candidates) > topK {
			candidates = candidates[:topK]
		}

		if acLost {
			warnings = append(warnings, "ac index pass unavailable, decision made on reduced evidence")
			s.metrics.IncrementDegraded("ac")
		}
		if vectorLost {
			warnings = append(warnings, "vector index pass unavailable, decision made on reduced evidence")
			s.metrics.IncrementDegraded("vector")
		}
	}

	var queryName string
	if best := match.FindBest(candidates); best != nil {
		queryName = queryOf[best.EntityID]
	}

	outcome := engine.Decide(decision.Input{
		Signals:    bundle,
		Evidence:   evidence,
		Candidates: candidates,
		Risk:       riskResult,
		ListType:   req.ListType,
		QueryName:  queryName,
		Warnings:   warnings,
	})
	outcome.ProcessingTime = time.Since(start)

	span.SetAttributes(
		attribute.String("decision", string(outcome.Decision)),
		attribute.Int("candidates", len(candidates)),
	)

	s.metrics.ObserveScreenLatency(outcome.ProcessingTime)
	s.metrics.IncrementOutcome(string(outcome.Decision), string(req.ListType))
	s.metrics.IncrementRiskSignal(string(riskResult.RiskLevel))

	s.emitDecision(ctx, audit.EventScreeningDecided, req, outcome, len(candidates))
	if outcome.Decision == models.DecisionBlock {
		s.emitDecision(ctx, audit.EventScreeningBlocked, req, outcome, len(candidates))
	}

	return &Result{
		Decision:   outcome,
		Signals:    bundle,
		Candidates: candidates,
		Risk:       riskResult,
	}, nil
}

// Policy returns the currently installed policy.
func (s *Service) Policy() Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy
}

// UpdatePolicy validates and installs a replacement policy. The swap is
// atomic: requests see either the old pipeline or the new one, never a mix.
func (s *Service) UpdatePolicy(ctx context.Context, policy Policy, reason string) error {
	if err := s.install(policy); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInvalidInput, "policy rejected")
	}

	s.logger.InfoContext(ctx, "screening policy updated",
		"actor_id", requestcontext.ActorID(ctx), "reason", reason)
	if s.audit != nil {
		event := audit.Event{
			Category:  audit.EventPolicyUpdated.Category(),
			Action:    string(audit.EventPolicyUpdated),
			RequestID: requestcontext.RequestID(ctx),
			ActorID:   requestcontext.ActorID(ctx),
			Reason:    reason,
		}
		if err := s.audit.Emit(ctx, event); err != nil {
			s.logger.ErrorContext(ctx, "audit emit failed", "action", event.Action, "error", err)
		}
	}
	return nil
}

// Health reports readiness of the index collaborators.
func (s *Service) Health(ctx context.Context) error {
	if hc, ok := s.ac.(ports.HealthChecker); ok {
		if err := hc.Health(ctx); err != nil {
			return err
		}
	}
	if hc, ok := s.vector.(ports.HealthChecker); ok {
		if err := hc.Health(ctx); err != nil {
			return err
		}
	}
	return nil
}

// install builds the pipeline components for a policy and swaps them in.
func (s *Service) install(policy Policy) error {
	if err := policy.Validate(); err != nil {
		return err
	}
	detector, err := risk.New(policy.Risk, risk.WithLogger(s.logger))
	if err != nil {
		return err
	}
	extractor := extract.New(extract.WithLogger(s.logger), extract.WithWeights(policy.Extract))
	matcher := match.New(policy.Match, s.ac, s.vector, match.WithLogger(s.logger))
	engine := decision.New(policy.Decision, decision.WithLogger(s.logger))

	s.mu.Lock()
	s.policy = policy
	s.extractor = extractor
	s.matcher = matcher
	s.detector = detector
	s.engine = engine
	s.mu.Unlock()
	return nil
}

// buildQueries maps the signal bundle to index queries and merges the
// supporting evidence. When extraction found nothing the raw text is scanned
// for standalone identifiers; a checksum-valid one still warrants a lookup,
// unscoped by entity type.
func (s *Service) buildQueries(req Request, bundle models.SignalBundle) ([]match.Query, models.EvidenceSet) {
	var (
		queries  []match.Query
		evidence models.EvidenceSet
	)

	for _, p := range bundle.Persons {
		dob := p.DOB
		if dob == nil {
			dob = req.DOB
		}
		queries = append(queries, match.Query{
			Terms:      p.Core,
			EntityType: models.EntityPerson,
			List:       req.ListType,
			Country:    req.Country,
			DOB:        dob,
			Embedding:  req.Embedding,
			TopK:       req.TopK,
		})
		for _, e := range p.Evidence.Items() {
			evidence.Add(e)
		}
	}
	for _, o := range bundle.Organizations {
		queries = append(queries, match.Query{
			Terms:      strings.Fields(strings.ToLower(o.Core)),
			EntityType: models.EntityOrganization,
			List:       req.ListType,
			Country:    req.Country,
			Embedding:  req.Embedding,
			TopK:       req.TopK,
		})
		for _, e := range o.Evidence.Items() {
			evidence.Add(e)
		}
	}

	if bundle.Empty() {
		for _, id := range s.ids.Validate(req.Text) {
			if id.Valid {
				evidence.Add(models.ValidID(id.Kind))
			} else {
				evidence.Add(models.InvalidID(id.Kind))
				continue
			}
			queries = append(queries, match.Query{
				Terms:     []string{id.Value},
				List:      req.ListType,
				Country:   req.Country,
				Embedding: req.Embedding,
				TopK:      req.TopK,
			})
		}
	}

	return queries, evidence
}

func (s *Service) emitDecision(ctx context.Context, action audit.AuditEvent, req Request, outcome models.DecisionResult, candidateCount int) {
	if s.audit == nil {
		return
	}
	event := audit.Event{
		Category:       action.Category(),
		Action:         string(action),
		RequestID:      requestcontext.RequestID(ctx),
		ListType:       string(req.ListType),
		Decision:       string(outcome.Decision),
		RiskLevel:      string(outcome.RiskLevel),
		Reasoning:      outcome.Reasoning,
		QueryHash:      audit.HashQuery(req.Text),
		BestEntityID:   outcome.DetectedSignals["best_entity_id"],
		CandidateCount: candidateCount,
		ProcessingTime: outcome.ProcessingTime,
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}

func findCandidate(cs []models.MatchCandidate, id string) *models.MatchCandidate {
	for i := range cs {
		if cs[i].EntityID == id {
			return &cs[i]
		}
	}
	return nil
}
