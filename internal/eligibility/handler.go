package eligibility

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/clearmind-health/booking-platform/internal/observability/metrics"
	"github.com/clearmind-health/booking-platform/internal/resilience"
	"github.com/clearmind-health/booking-platform/pkg/logging"
)

// Checker runs a live eligibility inquiry; *Client implements it.
type Checker interface {
	CheckRaw(ctx context.Context, inquiry Inquiry) (string, error)
}

// Handler exposes the live eligibility check the booking flow calls before
// showing the "verify network" banner.
type Handler struct {
	checker Checker
	metrics *metrics.EligibilityMetrics
	logger  *logging.Logger
}

// NewHandler creates an eligibility handler.
func NewHandler(checker Checker, m *metrics.EligibilityMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{checker: checker, metrics: m, logger: logger}
}

// CheckResponse is the payload the banner renderer consumes.
type CheckResponse struct {
	PlanInfo
}

// Check handles POST /api/eligibility/check.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	if h.checker == nil {
		http.Error(w, "eligibility checks not configured", http.StatusNotImplemented)
		return
	}

	var inquiry Inquiry
	if err := json.NewDecoder(r.Body).Decode(&inquiry); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := inquiry.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	raw, err := h.checker.CheckRaw(r.Context(), inquiry)
	if err != nil {
		if errors.Is(err, resilience.ErrOpen) {
			h.metrics.ObserveCheck("circuit_open")
			// Retryable: the partner is down, not the patient's coverage.
			http.Error(w, "eligibility partner temporarily unavailable, retry shortly", http.StatusServiceUnavailable)
			return
		}
		h.metrics.ObserveCheck("error")
		h.logger.Error("eligibility check failed", "error", err, "payer_id", inquiry.PayerID)
		http.Error(w, "eligibility check failed", http.StatusBadGateway)
		return
	}

	info := ExtractPlanInfo(raw)
	if info.ManagedCare != nil {
		h.metrics.ObserveCheck("managed_care")
	} else {
		h.metrics.ObserveCheck("fee_for_service")
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(CheckResponse{PlanInfo: info})
}
