// Package handler exposes the screening pipeline over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"watchgate/internal/screening/models"
	"watchgate/internal/screening/service"
	dErrors "watchgate/pkg/domain-errors"
	"watchgate/pkg/platform/httputil"
	"watchgate/pkg/requestcontext"
)

// Service defines the screening operations the handler needs.
type Service interface {
	Screen(ctx context.Context, req service.Request) (*service.Result, error)
}

// Handler wires the screening endpoint to the pipeline service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a screening handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the screening endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/screenings", h.HandleScreen)
}

// ScreenRequest is the wire shape of one screening call. Tokens and core
// groups come from the upstream normalization step; the service treats them
// as authoritative.
type ScreenRequest struct {
	Text              string         `json:"text"`
	Tokens            []models.Token `json:"tokens,omitempty"`
	PersonsCore       [][]string     `json:"persons_core,omitempty"`
	OrganizationsCore []string       `json:"organizations_core,omitempty"`
	ListType          string         `json:"list_type"`
	Country           string         `json:"country,omitempty"`
	DOB               string         `json:"dob,omitempty"` // 2006-01-02
	Embedding         []float32      `json:"embedding,omitempty"`
	TopK              int            `json:"top_k,omitempty"`
}

// ParsedDOB returns the caller-supplied birth date, nil when absent.
func (r ScreenRequest) ParsedDOB() *time.Time {
	if r.DOB == "" {
		return nil
	}
	d, err := time.Parse("2006-01-02", r.DOB)
	if err != nil {
		return nil
	}
	return &d
}

// Validate applies the wire-level rules. Semantic validation (list scoping,
// policy thresholds) belongs to the service.
func (r ScreenRequest) Validate() error {
	if !models.ListType(r.ListType).IsValid() {
		return dErrors.Newf(dErrors.CodeInvalidInput, "list_type must be one of sanctions, terrorism, pep")
	}
	if !govalidator.StringLength(r.Text, "0", "20000") {
		return dErrors.New(dErrors.CodeInvalidInput, "text exceeds the 20000 character limit")
	}
	if r.Country != "" && !govalidator.StringLength(r.Country, "2", "3") {
		return dErrors.New(dErrors.CodeInvalidInput, "country must be a 2- or 3-letter code")
	}
	if r.TopK < 0 || r.TopK > 100 {
		return dErrors.New(dErrors.CodeInvalidInput, "top_k must be between 0 and 100")
	}
	if r.DOB != "" {
		if _, err := time.Parse("2006-01-02", r.DOB); err != nil {
			return dErrors.New(dErrors.CodeInvalidInput, "dob must be formatted as YYYY-MM-DD")
		}
	}
	for _, core := range r.PersonsCore {
		if len(core) == 0 {
			return dErrors.New(dErrors.CodeInvalidInput, "persons_core entries must not be empty")
		}
	}
	return nil
}

// HandleScreen handles POST /v1/screenings.
func (h *Handler) HandleScreen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeJSON[ScreenRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.Screen(ctx, service.Request{
		Text:              req.Text,
		Tokens:            req.Tokens,
		PersonsCore:       req.PersonsCore,
		OrganizationsCore: req.OrganizationsCore,
		ListType:          models.ListType(req.ListType),
		Country:           req.Country,
		DOB:               req.ParsedDOB(),
		Embedding:         req.Embedding,
		TopK:              req.TopK,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "screening failed",
			"request_id", requestID,
			"list_type", req.ListType,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "screening completed",
		"request_id", requestID,
		"list_type", req.ListType,
		"decision", result.Decision.Decision,
		"risk_level", result.Decision.RiskLevel,
		"candidates", len(result.Candidates),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, result)
}
