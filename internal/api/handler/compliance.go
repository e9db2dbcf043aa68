package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kwachapay/emi-platform/internal/service"
	"go.uber.org/zap"
)

// ComplianceHandler exposes compliance report generation and listing (finance).
type ComplianceHandler struct {
	complianceSvc *service.ComplianceService
}

func NewComplianceHandler(complianceSvc *service.ComplianceService) *ComplianceHandler {
	return &ComplianceHandler{complianceSvc: complianceSvc}
}

type generateReportRequest struct {
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

// GenerateReport handles POST /v1/compliance/reports.
func (h *ComplianceHandler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	var req generateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}
	if req.PeriodStart.IsZero() || req.PeriodEnd.IsZero() || !req.PeriodEnd.After(req.PeriodStart) {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-period", "period_end must be after period_start")
		return
	}

	report, err := h.complianceSvc.GenerateReport(r.Context(), req.PeriodStart, req.PeriodEnd, "manual")
	if err != nil {
		zap.L().Error("generate compliance report failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "compliance/generate-failed", "Failed to generate compliance report")
		return
	}

	RespondJSON(w, http.StatusCreated, report)
}

// ListReports handles GET /v1/compliance/reports.
func (h *ComplianceHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-pagination", err.Error())
		return
	}

	reports, err := h.complianceSvc.ListReports(r.Context(), limit, offset)
	if err != nil {
		zap.L().Error("list compliance reports failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "compliance/list-failed", "Failed to list compliance reports")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]any{
		"items":  reports,
		"limit":  limit,
		"offset": offset,
		"count":  len(reports),
	})
}
