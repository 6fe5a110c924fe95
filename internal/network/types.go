package network

import "time"

// ContractStatus is the lifecycle state of a provider-payer contract.
type ContractStatus string

const (
	ContractInNetwork  ContractStatus = "in_network"
	ContractPending    ContractStatus = "pending"
	ContractTerminated ContractStatus = "terminated"
)

// SupervisionStatus is the lifecycle state of a supervision relationship.
type SupervisionStatus string

const (
	SupervisionActive   SupervisionStatus = "active"
	SupervisionInactive SupervisionStatus = "inactive"
)

// EntrySource records how a bookable pair was derived.
type EntrySource string

const (
	SourceDirect     EntrySource = "direct"
	SourceSupervised EntrySource = "supervised"
)

// ProviderPayerContract is a time-bounded network contract between a
// clinician and an insurer. BillingProviderID defaults to ProviderID when
// the clinician bills under their own contract.
type ProviderPayerContract struct {
	ID                string
	ProviderID        string
	PayerID           string
	BillingProviderID string
	EffectiveDate     time.Time
	ExpirationDate    *time.Time
	BookableFromDate  *time.Time
	Status            ContractStatus
	UpdatedAt         time.Time
}

// SupervisionRelationship bills a rendering provider's care under a
// supervising billing provider's contract with the payer.
type SupervisionRelationship struct {
	ID                  string
	RenderingProviderID string
	BillingProviderID   string
	PayerID             string
	EffectiveDate       time.Time
	Status              SupervisionStatus
}

// BookableEntry is a derived (rendering, billing, payer) triple valid over a
// date window. Never persisted; recomputed per query.
type BookableEntry struct {
	RenderingProviderID string
	BillingProviderID   string
	PayerID             string
	ValidFrom           time.Time
	ValidTo             *time.Time
	Source              EntrySource
}

// IntegrityWarning flags an ambiguity the resolver worked around rather than
// failing the whole query.
type IntegrityWarning struct {
	ProviderID string
	PayerID    string
	Message    string
}

// ResolvedSet is the as-of-date bookable set plus any data-quality warnings.
type ResolvedSet struct {
	AsOf     time.Time
	Entries  []BookableEntry
	Warnings []IntegrityWarning
}

// Pair looks up the entry for a (rendering provider, payer) pair.
func (s *ResolvedSet) Pair(providerID, payerID string) (BookableEntry, bool) {
	for _, e := range s.Entries {
		if e.RenderingProviderID == providerID && e.PayerID == payerID {
			return e, true
		}
	}
	return BookableEntry{}, false
}

// Day truncates t to a calendar date in its own location.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
