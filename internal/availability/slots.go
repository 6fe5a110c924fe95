package availability

import (
	"sort"
	"time"

	"github.com/clearmind-health/booking-platform/internal/network"
)

// minOfferMinutes is the shortest remainder kept when a block or booking
// truncates a slot. Anything shorter is dropped.
const minOfferMinutes = 30

// Merger turns weekly templates, exceptions, live bookings, and the resolved
// bookable set into a conflict-free slot offer list. All methods are pure:
// identical inputs yield identical output ordering and boundaries.
type Merger struct{}

// NewMerger returns a slot merger.
func NewMerger() *Merger {
	return &Merger{}
}

// GenerateDaySlots builds candidate slots for one provider and date from the
// weekly rules matching the date's weekday. Slots step by durationMinutes and
// must fit entirely inside a rule window.
func (m *Merger) GenerateDaySlots(rules []RecurringRule, providerID string, day time.Time, durationMinutes int) []Slot {
	if durationMinutes <= 0 {
		return nil
	}
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())

	var slots []Slot
	for _, rule := range rules {
		if rule.ProviderID != providerID || rule.Weekday != day.Weekday() {
			continue
		}
		slots = append(slots, carveWindow(providerID, midnight, rule.StartMinutes, rule.EndMinutes, durationMinutes)...)
	}
	sortSlots(slots)
	return dedupeOverlaps(slots)
}

// ApplyExceptions rewrites the candidate slots for one date according to the
// exception rows for that provider and date.
//
//	unavailable / vacation  drop the whole day
//	custom_hours            regenerate from the exception window
//	partial_block           remove or truncate overlapping slots
func (m *Merger) ApplyExceptions(slots []Slot, providerID string, day time.Time, durationMinutes int, exceptions []Exception) []Slot {
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())

	for _, ex := range exceptions {
		if ex.ProviderID != providerID || !sameDate(ex.Date, day) {
			continue
		}
		switch ex.Kind {
		case ExceptionUnavailable, ExceptionVacation:
			return nil
		case ExceptionCustomHours:
			if ex.StartMinutes == nil || ex.EndMinutes == nil {
				return nil
			}
			slots = carveWindow(providerID, midnight, *ex.StartMinutes, *ex.EndMinutes, durationMinutes)
		case ExceptionPartialBlock:
			if ex.StartMinutes == nil || ex.EndMinutes == nil {
				continue
			}
			blockStart := midnight.Add(time.Duration(*ex.StartMinutes) * time.Minute)
			blockEnd := midnight.Add(time.Duration(*ex.EndMinutes) * time.Minute)
			slots = subtractWindow(slots, blockStart, blockEnd)
		}
	}
	sortSlots(slots)
	return slots
}

// SubtractBookings removes or trims any slot overlapping a non-cancelled
// booking for its provider.
func (m *Merger) SubtractBookings(slots []Slot, bookings []Booking) []Slot {
	for _, b := range bookings {
		if !b.Blocks() {
			continue
		}
		// Fresh slice: trimming can yield two remainders per slot, so reusing
		// the input's backing array would clobber slots not yet visited.
		var kept []Slot
		for _, s := range slots {
			if s.ProviderID != b.ProviderID || !s.Overlaps(b.StartAt, b.EndAt) {
				kept = append(kept, s)
				continue
			}
			kept = append(kept, trimAround(s, b.StartAt, b.EndAt)...)
		}
		slots = kept
	}
	sortSlots(slots)
	return slots
}

// FilterByBookability keeps only slots whose provider is bookable for the
// payer in the resolved set, tagging supervised slots with the billing
// provider for downstream claim attribution.
func (m *Merger) FilterByBookability(slots []Slot, set *network.ResolvedSet, payerID string) []Slot {
	if set == nil {
		return nil
	}
	var kept []Slot
	for _, s := range slots {
		entry, ok := set.Pair(s.ProviderID, payerID)
		if !ok {
			continue
		}
		s.BillingProviderID = entry.BillingProviderID
		s.Supervised = entry.Source == network.SourceSupervised
		kept = append(kept, s)
	}
	return kept
}

// MergeAcrossProviders flattens per-provider slot lists into one sequence
// ordered by start time, then provider id.
func (m *Merger) MergeAcrossProviders(perProvider [][]Slot) []Slot {
	var merged []Slot
	for _, slots := range perProvider {
		merged = append(merged, slots...)
	}
	sortSlots(merged)
	return merged
}

func carveWindow(providerID string, midnight time.Time, startMin, endMin, durationMinutes int) []Slot {
	var slots []Slot
	for at := startMin; at+durationMinutes <= endMin; at += durationMinutes {
		slots = append(slots, Slot{
			ProviderID: providerID,
			StartAt:    midnight.Add(time.Duration(at) * time.Minute),
			EndAt:      midnight.Add(time.Duration(at+durationMinutes) * time.Minute),
		})
	}
	return slots
}

// subtractWindow removes [blockStart, blockEnd) from every slot, keeping
// truncated remainders of at least minOfferMinutes.
func subtractWindow(slots []Slot, blockStart, blockEnd time.Time) []Slot {
	var kept []Slot
	for _, s := range slots {
		if !s.Overlaps(blockStart, blockEnd) {
			kept = append(kept, s)
			continue
		}
		kept = append(kept, trimAround(s, blockStart, blockEnd)...)
	}
	return kept
}

// trimAround returns the parts of the slot outside [blockStart, blockEnd)
// that are still long enough to offer.
func trimAround(s Slot, blockStart, blockEnd time.Time) []Slot {
	var parts []Slot
	if s.StartAt.Before(blockStart) {
		head := s
		head.EndAt = blockStart
		if head.EndAt.Sub(head.StartAt) >= minOfferMinutes*time.Minute {
			parts = append(parts, head)
		}
	}
	if s.EndAt.After(blockEnd) {
		tail := s
		tail.StartAt = blockEnd
		if tail.EndAt.Sub(tail.StartAt) >= minOfferMinutes*time.Minute {
			parts = append(parts, tail)
		}
	}
	return parts
}

func sortSlots(slots []Slot) {
	sort.Slice(slots, func(i, j int) bool {
		if !slots[i].StartAt.Equal(slots[j].StartAt) {
			return slots[i].StartAt.Before(slots[j].StartAt)
		}
		return slots[i].ProviderID < slots[j].ProviderID
	})
}

// dedupeOverlaps drops any slot overlapping an earlier-kept slot for the same
// provider; overlapping weekly rules must not yield overlapping offers.
func dedupeOverlaps(slots []Slot) []Slot {
	var kept []Slot
	for _, s := range slots {
		clash := false
		for _, k := range kept {
			if k.ProviderID == s.ProviderID && s.Overlaps(k.StartAt, k.EndAt) {
				clash = true
				break
			}
		}
		if !clash {
			kept = append(kept, s)
		}
	}
	return kept
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
