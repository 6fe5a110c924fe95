package scheduling

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/clearmind-health/booking-platform/internal/availability"
	"github.com/clearmind-health/booking-platform/pkg/logging"
)

// Handler exposes offers, bookability lookups, and booking submission.
type Handler struct {
	service  *Service
	location *time.Location
	logger   *logging.Logger
}

// NewHandler creates a scheduling handler. location is the practice timezone
// used to interpret calendar dates in query parameters.
func NewHandler(service *Service, location *time.Location, logger *logging.Logger) *Handler {
	if service == nil {
		panic("scheduling: service required")
	}
	if location == nil {
		location = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, location: location, logger: logger}
}

// Offers handles GET /api/slots/offers.
//
// Query parameters: payer_id, provider_ids (comma-separated), from, to
// (YYYY-MM-DD, to defaults to from), duration_minutes (optional).
func (h *Handler) Offers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	from, err := h.parseDate(q.Get("from"))
	if err != nil {
		http.Error(w, "from: expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	to := from
	if raw := q.Get("to"); raw != "" {
		if to, err = h.parseDate(raw); err != nil {
			http.Error(w, "to: expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
	}
	duration := 0
	if raw := q.Get("duration_minutes"); raw != "" {
		if duration, err = strconv.Atoi(raw); err != nil {
			http.Error(w, "duration_minutes: expected integer", http.StatusBadRequest)
			return
		}
	}

	req := OfferRequest{
		PayerID:         q.Get("payer_id"),
		ProviderIDs:     splitIDs(q.Get("provider_ids")),
		From:            from,
		To:              to,
		DurationMinutes: duration,
	}

	offers, err := h.service.Offers(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if offers.Slots == nil {
		offers.Slots = []availability.Slot{}
	}
	writeJSON(w, http.StatusOK, offers)
}

// Bookability handles GET /api/network/bookability.
//
// Query parameters: provider_id, payer_id, date (YYYY-MM-DD).
func (h *Handler) Bookability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	providerID := q.Get("provider_id")
	payerID := q.Get("payer_id")
	if providerID == "" || payerID == "" {
		http.Error(w, "provider_id and payer_id are required", http.StatusBadRequest)
		return
	}
	date, err := h.parseDate(q.Get("date"))
	if err != nil {
		http.Error(w, "date: expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	bookable, err := h.service.IsBookable(r.Context(), providerID, payerID, date)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"provider_id": providerID,
		"payer_id":    payerID,
		"date":        date.Format("2006-01-02"),
		"bookable":    bookable,
	})
}

// SubmitBooking handles POST /api/bookings.
func (h *Handler) SubmitBooking(w http.ResponseWriter, r *http.Request) {
	var req BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	confirmation, err := h.service.SubmitBooking(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, confirmation)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotBookable):
		http.Error(w, "provider is not in network for this payer on the requested date", http.StatusUnprocessableEntity)
	case errors.Is(err, ErrSlotConflict):
		http.Error(w, "slot is no longer available; please pick another time", http.StatusConflict)
	default:
		h.logger.Error("scheduling request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *Handler) parseDate(raw string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", raw, h.location)
}

func splitIDs(raw string) []string {
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, part)
		}
	}
	return ids
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
