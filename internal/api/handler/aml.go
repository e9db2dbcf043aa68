package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kwachapay/emi-platform/internal/service"
	"go.uber.org/zap"
)

// AmlHandler handles AML configuration and alert review (finance).
type AmlHandler struct {
	amlSvc *service.AmlService
}

func NewAmlHandler(amlSvc *service.AmlService) *AmlHandler {
	return &AmlHandler{amlSvc: amlSvc}
}

type configureRuleRequest struct {
	RuleType  string `json:"rule_type"`
	Threshold int64  `json:"threshold"`
	Enabled   bool   `json:"enabled"`
}

// ConfigureRule handles PUT /v1/aml/rules.
func (h *AmlHandler) ConfigureRule(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}

	var req configureRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	err = h.amlSvc.ConfigureRule(r.Context(), service.ConfigureRuleRequest{
		RuleType:  strings.TrimSpace(req.RuleType),
		Threshold: req.Threshold,
		Enabled:   req.Enabled,
		UpdatedBy: actorID,
	})
	if err != nil {
		if errors.Is(err, service.ErrUnknownAmlRule) {
			RespondError(w, r, http.StatusBadRequest, "aml/unknown-rule", "Unknown AML rule type")
			return
		}
		zap.L().Error("configure aml rule failed", zap.Error(err))
		RespondError(w, r, http.StatusBadRequest, "aml/configure-failed", err.Error())
		return
	}

	RespondJSON(w, http.StatusOK, map[string]any{
		"rule_type": req.RuleType,
		"threshold": req.Threshold,
		"enabled":   req.Enabled,
	})
}

// ListRules handles GET /v1/aml/rules.
func (h *AmlHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	configs, err := h.amlSvc.ListConfigurations(r.Context())
	if err != nil {
		zap.L().Error("list aml rules failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "aml/list-rules-failed", "Failed to list AML rules")
		return
	}
	RespondJSON(w, http.StatusOK, map[string]any{"items": configs, "count": len(configs)})
}

// ListAlerts handles GET /v1/aml/alerts with an optional status filter.
func (h *AmlHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-pagination", err.Error())
		return
	}

	var status *string
	if v := strings.TrimSpace(r.URL.Query().Get("status")); v != "" {
		status = &v
	}

	alerts, err := h.amlSvc.ListAlerts(r.Context(), status, limit, offset)
	if err != nil {
		zap.L().Error("list aml alerts failed", zap.Error(err))
		RespondError(w, r, http.StatusInternalServerError, "aml/list-alerts-failed", "Failed to list AML alerts")
		return
	}

	RespondJSON(w, http.StatusOK, map[string]any{
		"items":  alerts,
		"limit":  limit,
		"offset": offset,
		"count":  len(alerts),
	})
}

type reviewAlertRequest struct {
	Resolution string `json:"resolution"`
	Notes      string `json:"notes,omitempty"`
}

// ReviewAlert handles POST /v1/aml/alerts/{id}/review.
func (h *AmlHandler) ReviewAlert(w http.ResponseWriter, r *http.Request) {
	actorID, _, err := requestActor(r)
	if err != nil {
		RespondError(w, r, http.StatusUnauthorized, "auth/unauthorized", "Unauthorized")
		return
	}
	alertID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-alert-id", "Invalid alert ID")
		return
	}

	var req reviewAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Invalid request body")
		return
	}

	alert, err := h.amlSvc.ReviewAlert(r.Context(), service.ReviewAlertRequest{
		AlertID:    alertID,
		Resolution: strings.TrimSpace(req.Resolution),
		Notes:      strings.TrimSpace(req.Notes),
		ReviewerID: actorID,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlertNotFound):
			RespondError(w, r, http.StatusNotFound, "aml/alert-not-found", "AML alert not found")
			return
		case errors.Is(err, service.ErrInvalidAlertResolution):
			RespondError(w, r, http.StatusBadRequest, "aml/invalid-resolution", "resolution must be cleared, escalated, or under_review")
			return
		}
		zap.L().Error("review aml alert failed", zap.Error(err), zap.String("alert_id", alertID.String()))
		RespondError(w, r, http.StatusInternalServerError, "aml/review-failed", "Failed to review AML alert")
		return
	}

	RespondJSON(w, http.StatusOK, alert)
}
