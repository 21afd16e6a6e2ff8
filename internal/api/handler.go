// Package api exposes the HTTP surface: the agent endpoint and the
// ingestion/maintenance triggers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"stoxlake/internal/domain"
	"stoxlake/internal/ingest"
	"stoxlake/internal/maintenance"
)

// AgentService answers one natural-language question.
type AgentService interface {
	Handle(ctx context.Context, question string) (*domain.AgentResponse, error)
}

// IngestService runs one watchlist ingestion pass.
type IngestService interface {
	Run(ctx context.Context) *ingest.Summary
}

// MaintenanceService runs one maintenance pass.
type MaintenanceService interface {
	Run(ctx context.Context) (*maintenance.Report, error)
}

// Handler implements the HTTP endpoints.
type Handler struct {
	agent  AgentService
	ingest IngestService
	maint  MaintenanceService
	logger *slog.Logger
}

// NewHandler creates the handler with its services injected.
func NewHandler(agent AgentService, ingestSvc IngestService, maint MaintenanceService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{agent: agent, ingest: ingestSvc, maint: maint, logger: logger}
}

type askRequest struct {
	Question string `json:"question"`
}

// Ask handles POST /api/agent/ask.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrValidation("invalid request body"))
		return
	}

	resp, err := h.agent.Handle(r.Context(), req.Question)
	if err != nil {
		h.logger.Warn("agent request failed", "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// RunIngestion handles POST /api/ingest/run. Per-ticker failures are part
// of the summary, not an HTTP error.
func (h *Handler) RunIngestion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ingest.Run(r.Context()))
}

// RunMaintenance handles POST /api/maintenance/run.
func (h *Handler) RunMaintenance(w http.ResponseWriter, r *http.Request) {
	report, err := h.maint.Run(r.Context())
	if err != nil {
		h.logger.Error("maintenance run failed", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy to HTTP statuses: bad input is the
// caller's fault, everything else is reported as an internal failure with
// the error's message.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
