package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/clearmind-health/booking-platform/internal/availability"
	"github.com/clearmind-health/booking-platform/internal/eligibility"
	"github.com/clearmind-health/booking-platform/internal/network"
	"github.com/clearmind-health/booking-platform/internal/observability/metrics"
	"github.com/clearmind-health/booking-platform/pkg/logging"
)

var (
	// ErrInvalidRequest covers malformed offer or booking parameters.
	ErrInvalidRequest = errors.New("scheduling: invalid request")

	// ErrNotBookable means the rendering provider has no in-network path to
	// the payer on the requested date, directly or through supervision.
	ErrNotBookable = errors.New("scheduling: provider not bookable for payer on date")
)

// OfferRequest asks for bookable slots across providers over a date range.
// From and To are inclusive calendar dates in the practice timezone.
type OfferRequest struct {
	PayerID         string
	ProviderIDs     []string
	From            time.Time
	To              time.Time
	DurationMinutes int
}

// OfferList is the merged, ordered result of one offers query. Warnings carry
// data-integrity findings from contract resolution; NetworkWarning flags a
// managed-care payer. Neither blocks offers.
type OfferList struct {
	Slots          []availability.Slot        `json:"slots"`
	Warnings       []network.IntegrityWarning `json:"warnings,omitempty"`
	NetworkWarning string                     `json:"network_warning,omitempty"`
}

// BookingRequest submits one offered slot for booking.
type BookingRequest struct {
	ProviderID string    `json:"provider_id"`
	PayerID    string    `json:"payer_id"`
	StartAt    time.Time `json:"start_at"`
	EndAt      time.Time `json:"end_at"`
}

// BookingConfirmation echoes the persisted booking, including the billing
// provider the claim will go out under.
type BookingConfirmation struct {
	ID                string    `json:"id"`
	ProviderID        string    `json:"provider_id"`
	BillingProviderID string    `json:"billing_provider_id"`
	PayerID           string    `json:"payer_id"`
	StartAt           time.Time `json:"start_at"`
	EndAt             time.Time `json:"end_at"`
	Supervised        bool      `json:"supervised,omitempty"`
}

// Settings bound offer queries.
type Settings struct {
	DefaultSlotMinutes int
	MaxRangeDays       int
}

func (s Settings) withDefaults() Settings {
	if s.DefaultSlotMinutes <= 0 {
		s.DefaultSlotMinutes = 60
	}
	if s.MaxRangeDays <= 0 {
		s.MaxRangeDays = 31
	}
	return s
}

// AvailabilitySource yields the per-provider-day inputs slot generation
// consumes; *availability.Reader implements it.
type AvailabilitySource interface {
	DayInputsFor(ctx context.Context, providerID string, day time.Time) (availability.DayInputs, error)
}

var _ AvailabilitySource = (*availability.Reader)(nil)

// Service orchestrates network resolution and slot merging into offer lists
// and turns accepted offers into booking rows.
type Service struct {
	resolver *network.Resolver
	reader   AvailabilitySource
	merger   *availability.Merger
	bookings *BookingStore
	settings Settings
	metrics  *metrics.SchedulingMetrics
	logger   *logging.Logger
	tracer   trace.Tracer
}

// NewService wires the scheduling service. metrics may be nil.
func NewService(resolver *network.Resolver, reader AvailabilitySource, bookings *BookingStore, settings Settings, m *metrics.SchedulingMetrics, logger *logging.Logger) *Service {
	if resolver == nil {
		panic("scheduling: network resolver required")
	}
	if reader == nil {
		panic("scheduling: availability reader required")
	}
	if bookings == nil {
		panic("scheduling: booking store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		resolver: resolver,
		reader:   reader,
		merger:   availability.NewMerger(),
		bookings: bookings,
		settings: settings.withDefaults(),
		metrics:  m,
		logger:   logger,
		tracer:   otel.Tracer("psychbook.internal.scheduling"),
	}
}

// Offers resolves bookability for each date in the range and merges every
// requested provider's free slots into one ordered list.
func (s *Service) Offers(ctx context.Context, req OfferRequest) (OfferList, error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.offers",
		trace.WithAttributes(
			attribute.String("payer_id", req.PayerID),
			attribute.Int("providers", len(req.ProviderIDs)),
		))
	defer span.End()
	started := time.Now()

	req, err := s.normalizeOffer(req)
	if err != nil {
		return OfferList{}, err
	}

	var (
		perProvider [][]availability.Slot
		warnings    []network.IntegrityWarning
	)
	for day := req.From; !day.After(req.To); day = day.AddDate(0, 0, 1) {
		set, err := s.resolver.AsOf(ctx, day, req.PayerID)
		if err != nil {
			s.metrics.ObserveOffer("error", time.Since(started).Seconds())
			return OfferList{}, err
		}
		warnings = append(warnings, set.Warnings...)

		for _, providerID := range req.ProviderIDs {
			if _, ok := set.Pair(providerID, req.PayerID); !ok {
				continue
			}
			slots, err := s.providerDaySlots(ctx, providerID, day, req.DurationMinutes, &set, req.PayerID)
			if err != nil {
				s.metrics.ObserveOffer("error", time.Since(started).Seconds())
				return OfferList{}, err
			}
			if len(slots) > 0 {
				perProvider = append(perProvider, slots)
			}
		}
	}

	merged := s.merger.MergeAcrossProviders(perProvider)
	// Each day in the range resolves its own set; a persistent contract
	// ambiguity would otherwise repeat once per day.
	warnings = dedupeWarnings(warnings)
	s.metrics.ObserveOffer("ok", time.Since(started).Seconds())
	s.metrics.ObserveIntegrityWarnings(len(warnings))
	span.SetAttributes(attribute.Int("slots", len(merged)))

	list := OfferList{Slots: merged, Warnings: warnings}
	if mco, ok := eligibility.KnownMCO(req.PayerID); ok {
		list.NetworkWarning = fmt.Sprintf(
			"%s is a managed-care payer; verify the patient's enrollment before confirming a booking.",
			mco.Name,
		)
	}
	return list, nil
}

// SubmitBooking re-checks bookability and slot freedom, then inserts the
// booking. The slot may have been taken since the offer was shown; both the
// recheck and the database's uniqueness constraint map to ErrSlotConflict.
func (s *Service) SubmitBooking(ctx context.Context, req BookingRequest) (BookingConfirmation, error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.submit_booking",
		trace.WithAttributes(
			attribute.String("provider_id", req.ProviderID),
			attribute.String("payer_id", req.PayerID),
		))
	defer span.End()

	if err := validateBooking(req); err != nil {
		return BookingConfirmation{}, err
	}
	day := network.Day(req.StartAt)

	set, err := s.resolver.AsOf(ctx, day, req.PayerID)
	if err != nil {
		return BookingConfirmation{}, err
	}
	entry, ok := set.Pair(req.ProviderID, req.PayerID)
	if !ok {
		return BookingConfirmation{}, ErrNotBookable
	}

	duration := int(req.EndAt.Sub(req.StartAt) / time.Minute)
	slots, err := s.providerDaySlots(ctx, req.ProviderID, day, duration, &set, req.PayerID)
	if err != nil {
		return BookingConfirmation{}, err
	}
	if !containsSlot(slots, req.StartAt, req.EndAt) {
		s.metrics.ObserveSlotConflict()
		return BookingConfirmation{}, ErrSlotConflict
	}

	// The recheck above can read a stale cache snapshot; the unique
	// constraint on (provider_id, start_at) is the authoritative guard.
	id, err := s.bookings.Create(ctx, req.ProviderID, entry.BillingProviderID, req.PayerID, req.StartAt, req.EndAt)
	if err != nil {
		if errors.Is(err, ErrSlotConflict) {
			s.metrics.ObserveSlotConflict()
		}
		return BookingConfirmation{}, err
	}

	s.logger.Info("booking created",
		"booking_id", id,
		"provider_id", req.ProviderID,
		"billing_provider_id", entry.BillingProviderID,
		"payer_id", req.PayerID,
		"start_at", req.StartAt,
	)
	return BookingConfirmation{
		ID:                id,
		ProviderID:        req.ProviderID,
		BillingProviderID: entry.BillingProviderID,
		PayerID:           req.PayerID,
		StartAt:           req.StartAt,
		EndAt:             req.EndAt,
		Supervised:        entry.Source == network.SourceSupervised,
	}, nil
}

// IsBookable answers the point lookup behind /api/network/bookability.
func (s *Service) IsBookable(ctx context.Context, providerID, payerID string, date time.Time) (bool, error) {
	return s.resolver.IsBookable(ctx, providerID, payerID, date)
}

func (s *Service) providerDaySlots(ctx context.Context, providerID string, day time.Time, durationMinutes int, set *network.ResolvedSet, payerID string) ([]availability.Slot, error) {
	inputs, err := s.reader.DayInputsFor(ctx, providerID, day)
	if err != nil {
		return nil, err
	}
	slots := s.merger.GenerateDaySlots(inputs.Rules, providerID, day, durationMinutes)
	slots = s.merger.ApplyExceptions(slots, providerID, day, durationMinutes, inputs.Exceptions)
	slots = s.merger.SubtractBookings(slots, inputs.Bookings)
	return s.merger.FilterByBookability(slots, set, payerID), nil
}

func (s *Service) normalizeOffer(req OfferRequest) (OfferRequest, error) {
	if req.PayerID == "" {
		return req, fmt.Errorf("%w: payer_id is required", ErrInvalidRequest)
	}
	if len(req.ProviderIDs) == 0 {
		return req, fmt.Errorf("%w: at least one provider_id is required", ErrInvalidRequest)
	}
	if req.DurationMinutes == 0 {
		req.DurationMinutes = s.settings.DefaultSlotMinutes
	}
	if req.DurationMinutes < 0 {
		return req, fmt.Errorf("%w: duration must be positive", ErrInvalidRequest)
	}
	req.From = network.Day(req.From)
	req.To = network.Day(req.To)
	if req.To.Before(req.From) {
		return req, fmt.Errorf("%w: date range is inverted", ErrInvalidRequest)
	}
	days := int(req.To.Sub(req.From)/(24*time.Hour)) + 1
	if days > s.settings.MaxRangeDays {
		return req, fmt.Errorf("%w: date range exceeds %d days", ErrInvalidRequest, s.settings.MaxRangeDays)
	}
	return req, nil
}

func validateBooking(req BookingRequest) error {
	if req.ProviderID == "" || req.PayerID == "" {
		return fmt.Errorf("%w: provider_id and payer_id are required", ErrInvalidRequest)
	}
	if req.StartAt.IsZero() || !req.EndAt.After(req.StartAt) {
		return fmt.Errorf("%w: start_at must precede end_at", ErrInvalidRequest)
	}
	return nil
}

func dedupeWarnings(warnings []network.IntegrityWarning) []network.IntegrityWarning {
	seen := make(map[network.IntegrityWarning]struct{}, len(warnings))
	var out []network.IntegrityWarning
	for _, w := range warnings {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

func containsSlot(slots []availability.Slot, startAt, endAt time.Time) bool {
	for _, s := range slots {
		if s.StartAt.Equal(startAt) && s.EndAt.Equal(endAt) {
			return true
		}
	}
	return false
}
