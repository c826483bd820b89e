// Package admin exposes the operator surface: policy inspection and
// replacement, the audit trail, and index cache invalidation. Every route is
// guarded by the auth middleware; the actor from the token is attributed on
// the audit events the operations emit.
package admin

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"

	"watchgate/internal/screening/service"
	dErrors "watchgate/pkg/domain-errors"
	"watchgate/pkg/platform/audit"
	"watchgate/pkg/platform/httputil"
	"watchgate/pkg/requestcontext"
)

// PolicyService manages the installed screening policy.
type PolicyService interface {
	Policy() service.Policy
	UpdatePolicy(ctx context.Context, policy service.Policy, reason string) error
}

// AuditTrail reads back recent audit events.
type AuditTrail interface {
	Emit(ctx context.Context, event audit.Event) error
	ListRecent(ctx context.Context, limit int) ([]audit.Event, error)
}

// CacheInvalidator drops cached index results, for use after reference-list
// updates.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Handler wires the admin endpoints.
type Handler struct {
	policies PolicyService
	trail    AuditTrail
	cache    CacheInvalidator
	logger   *slog.Logger
}

// New constructs an admin handler. cache may be nil when no result cache is
// configured.
func New(policies PolicyService, trail AuditTrail, cache CacheInvalidator, logger *slog.Logger) *Handler {
	return &Handler{policies: policies, trail: trail, cache: cache, logger: logger}
}

// Register mounts the admin endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/policy", h.HandleGetPolicy)
	r.Put("/admin/policy", h.HandlePutPolicy)
	r.Get("/admin/audit/events", h.HandleListAuditEvents)
	r.Post("/admin/cache/invalidate", h.HandleInvalidateCache)
}

// HandleGetPolicy handles GET /admin/policy. The policy is served in the
// same YAML shape it is loaded from, so operators can diff against the file
// they deploy.
func (h *Handler) HandleGetPolicy(w http.ResponseWriter, r *http.Request) {
	raw, err := yaml.Marshal(h.policies.Policy())
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render policy"))
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// HandlePutPolicy handles PUT /admin/policy. The body is a YAML policy
// document; omitted sections keep their defaults. A reason query parameter
// is required for the audit trail.
func (h *Handler) HandlePutPolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	reason := r.URL.Query().Get("reason")
	if reason == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "reason query parameter is required"))
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "failed to read request body"))
		return
	}

	policy := service.DefaultPolicy()
	if err := yaml.Unmarshal(raw, &policy); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "malformed policy document"))
		return
	}

	if err := h.policies.UpdatePolicy(ctx, policy, reason); err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "policy replaced",
		"request_id", requestcontext.RequestID(ctx),
		"actor_id", requestcontext.ActorID(ctx),
		"reason", reason,
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleListAuditEvents handles GET /admin/audit/events.
func (h *Handler) HandleListAuditEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "limit must be between 1 and 1000"))
			return
		}
		limit = n
	}

	events, err := h.trail.ListRecent(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit events"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"count":  len(events),
	})
}

// HandleInvalidateCache handles POST /admin/cache/invalidate.
func (h *Handler) HandleInvalidateCache(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.cache == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no index cache configured"))
		return
	}
	if err := h.cache.Invalidate(ctx); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "cache invalidation failed"))
		return
	}

	event := audit.Event{
		Category:  audit.EventCacheInvalidated.Category(),
		Action:    string(audit.EventCacheInvalidated),
		RequestID: requestcontext.RequestID(ctx),
		ActorID:   requestcontext.ActorID(ctx),
	}
	if err := h.trail.Emit(ctx, event); err != nil {
		h.logger.ErrorContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}
