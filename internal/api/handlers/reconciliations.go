package handlers

import (
	"context"
	"logistics-route-service/internal/api/dto"
	"logistics-route-service/internal/domain"
	"logistics-route-service/internal/ports"
	"net/http"
	"strconv"
)

// ReconcileRunner runs one reconciliation pass on demand.
type ReconcileRunner interface {
	RunOnce(ctx context.Context) (*domain.ReconcileReport, error)
}

type ReconciliationHandler struct {
	Runner ReconcileRunner
	// Audit is nil when no database is configured.
	Audit ports.ReconciliationLog
}

// Run triggers a pass and returns its report.
func (h *ReconciliationHandler) Run(w http.ResponseWriter, r *http.Request) {
	report, err := h.Runner.RunOnce(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, report)
}

// Recent lists the latest recorded outcomes, newest first.
func (h *ReconciliationHandler) Recent(w http.ResponseWriter, r *http.Request) {
	if h.Audit == nil {
		writeError(w, r, http.StatusNotFound, "reconciliation log is not configured")
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			writeError(w, r, http.StatusUnprocessableEntity, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	logged, err := h.Audit.Recent(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	res := dto.ListReconciliationsResponse{Outcomes: make([]dto.ReconciliationEntry, 0, len(logged))}
	for _, o := range logged {
		res.Outcomes = append(res.Outcomes, dto.ReconciliationEntry{
			RunID:            o.RunID,
			RecordedAt:       o.RecordedAt,
			ReconcileOutcome: o.ReconcileOutcome,
		})
	}
	writeJSON(w, r, http.StatusOK, res)
}
