package availability

import "time"

// ExceptionKind distinguishes how an exception overrides the weekly template.
type ExceptionKind string

const (
	ExceptionUnavailable  ExceptionKind = "unavailable"
	ExceptionVacation     ExceptionKind = "vacation"
	ExceptionCustomHours  ExceptionKind = "custom_hours"
	ExceptionPartialBlock ExceptionKind = "partial_block"
)

// BookingStatus tracks appointment lifecycle; cancelled bookings free their slot.
type BookingStatus string

const (
	BookingScheduled BookingStatus = "scheduled"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// RecurringRule is one weekly availability window for a provider. Times are
// minutes after local midnight.
type RecurringRule struct {
	ProviderID   string       `json:"provider_id"`
	Weekday      time.Weekday `json:"weekday"`
	StartMinutes int          `json:"start_minutes"`
	EndMinutes   int          `json:"end_minutes"`
}

// Exception overrides the weekly template for one calendar date. Start/End
// are only set for custom_hours and partial_block kinds.
type Exception struct {
	ProviderID   string        `json:"provider_id"`
	Date         time.Time     `json:"date"`
	Kind         ExceptionKind `json:"kind"`
	StartMinutes *int          `json:"start_minutes,omitempty"`
	EndMinutes   *int          `json:"end_minutes,omitempty"`
}

// Booking is an existing appointment occupying provider time.
type Booking struct {
	ID         string        `json:"id"`
	ProviderID string        `json:"provider_id"`
	StartAt    time.Time     `json:"start_at"`
	EndAt      time.Time     `json:"end_at"`
	Status     BookingStatus `json:"status"`
}

// Blocks reports whether the booking occupies its time window.
func (b Booking) Blocks() bool {
	return b.Status != BookingCancelled
}

// Slot is one offerable appointment window. BillingProviderID differs from
// ProviderID when the slot is bookable through supervision.
type Slot struct {
	ProviderID        string    `json:"provider_id"`
	BillingProviderID string    `json:"billing_provider_id,omitempty"`
	StartAt           time.Time `json:"start_at"`
	EndAt             time.Time `json:"end_at"`
	Supervised        bool      `json:"supervised,omitempty"`
}

// Overlaps reports whether the slot intersects [start, end).
func (s Slot) Overlaps(start, end time.Time) bool {
	return s.StartAt.Before(end) && start.Before(s.EndAt)
}

// DaySnapshot is the cached per-provider, per-day availability payload
// written by the background populator. The engine only reads it.
type DaySnapshot struct {
	ProviderID  string          `json:"provider_id"`
	Date        string          `json:"date"`
	Rules       []RecurringRule `json:"rules"`
	Exceptions  []Exception     `json:"exceptions"`
	Bookings    []Booking       `json:"bookings"`
	GeneratedAt time.Time       `json:"generated_at"`
}
