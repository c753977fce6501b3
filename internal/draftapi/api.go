// Package draftapi exposes the draft pipeline over HTTP.
package draftapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/scribe/internal/draft"
)

// DraftService defines the business operations draftapi needs.
type DraftService interface {
	Draft(ctx context.Context, req draft.Request) (*draft.Response, error)
	Get(ctx context.Context, id string) (*draft.Record, bool, error)
	GovernanceRollup(ctx context.Context) ([]draft.RollupRow, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    DraftService
}

// New creates a new API handler.
func New(logger log.Logger, svc DraftService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("draft service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/draft", a.handleCreateDraft)
		r.Get("/decisions/{id}", a.handleGetDecision)
		r.Get("/insights/governance", a.handleGovernanceInsights)
	})
}

func (a *API) handleGetDecision(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("scribe.decision.id", id))

	rec, ok, err := a.svc.Get(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get decision record", "id", id)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load decision record", nil)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "no decision record with that id", nil)
		return
	}

	span.SetAttributes(attribute.String("scribe.decision.intent", string(rec.Intent)))

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"decision": rec,
	})
}

func (a *API) handleGovernanceInsights(w http.ResponseWriter, r *http.Request) {
	rows, err := a.svc.GovernanceRollup(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to build governance rollup")
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to build governance rollup", nil)
		return
	}
	if rows == nil {
		rows = []draft.RollupRow{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"rollup":  rows,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError emits the structured error envelope every 4xx/5xx uses.
func writeError(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	errObj := map[string]any{
		"code":    code,
		"message": message,
	}
	if len(details) > 0 {
		errObj["details"] = details
	}
	writeJSON(w, status, map[string]any{
		"success":   false,
		"error":     errObj,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
