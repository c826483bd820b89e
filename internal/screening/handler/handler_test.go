package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchgate/internal/screening/models"
	"watchgate/internal/screening/service"
	dErrors "watchgate/pkg/domain-errors"
)

type fakeService struct {
	got    service.Request
	result *service.Result
	err    error
}

func (f *fakeService) Screen(_ context.Context, req service.Request) (*service.Result, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newTestRouter(svc *fakeService) http.Handler {
	h := New(svc, slog.Default())
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func post(t *testing.T, router http.Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/screenings", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleScreenReturnsResult(t *testing.T) {
	svc := &fakeService{result: &service.Result{
		Decision: models.DecisionResult{
			Decision:  models.DecisionAllow,
			RiskLevel: models.RiskVeryLow,
			Reasoning: "no candidate signals extracted from input",
		},
	}}
	router := newTestRouter(svc)

	w := post(t, router, ScreenRequest{
		Text:        "Payment to Roman Kovrykov",
		PersonsCore: [][]string{{"roman", "kovrykov"}},
		ListType:    "sanctions",
		Country:     "RU",
	})

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Decision models.DecisionResult `json:"decision"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, models.DecisionAllow, body.Decision.Decision)

	assert.Equal(t, models.ListSanctions, svc.got.ListType)
	assert.Equal(t, "RU", svc.got.Country)
	assert.Equal(t, [][]string{{"roman", "kovrykov"}}, svc.got.PersonsCore)
}

func TestHandleScreenValidation(t *testing.T) {
	tests := []struct {
		name string
		req  ScreenRequest
	}{
		{"missing list type", ScreenRequest{Text: "x"}},
		{"unknown list type", ScreenRequest{Text: "x", ListType: "watch"}},
		{"bad country", ScreenRequest{Text: "x", ListType: "sanctions", Country: "R"}},
		{"negative top k", ScreenRequest{Text: "x", ListType: "sanctions", TopK: -1}},
		{"bad dob format", ScreenRequest{Text: "x", ListType: "sanctions", DOB: "01.02.1990"}},
		{"empty person core", ScreenRequest{Text: "x", ListType: "sanctions", PersonsCore: [][]string{{}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			w := post(t, newTestRouter(svc), tt.req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var body map[string]string
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.Equal(t, "invalid_input", body["error"])
		})
	}
}

func TestHandleScreenRejectsUnknownFields(t *testing.T) {
	router := newTestRouter(&fakeService{})

	req := httptest.NewRequest(http.MethodPost, "/v1/screenings",
		bytes.NewReader([]byte(`{"list_type":"sanctions","query":"raw text"}`)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleScreenMapsServiceErrors(t *testing.T) {
	svc := &fakeService{err: dErrors.New(dErrors.CodeUnavailable, "screening interrupted before completion")}
	w := post(t, newTestRouter(svc), ScreenRequest{Text: "x", ListType: "sanctions"})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
