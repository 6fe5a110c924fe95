package network

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/clearmind-health/booking-platform/pkg/logging"
)

var networkTracer = otel.Tracer("psychbook.internal.network")

// ContractSource supplies contract and supervision rows to the resolver.
type ContractSource interface {
	ContractsForDate(ctx context.Context, date time.Time, payerID string) ([]ProviderPayerContract, error)
	SupervisionsForDate(ctx context.Context, date time.Time, payerID string) ([]SupervisionRelationship, error)
}

// Resolver answers as-of-date bookability queries over contracts and
// supervision relationships. It is read-only and safe for concurrent use.
type Resolver struct {
	source ContractSource
	logger *logging.Logger
}

// NewResolver constructs a resolver over the given contract source.
func NewResolver(source ContractSource, logger *logging.Logger) *Resolver {
	if source == nil {
		panic("network: contract source required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{source: source, logger: logger}
}

// AsOf computes the bookable set for the target service date. payerID narrows
// the result to one insurer when non-empty.
//
// A datastore failure returns an empty set and a non-nil error; callers must
// never read an empty set as "no payer accepted" without checking the error.
func (r *Resolver) AsOf(ctx context.Context, date time.Time, payerID string) (ResolvedSet, error) {
	ctx, span := networkTracer.Start(ctx, "network.as_of")
	defer span.End()
	day := Day(date)
	span.SetAttributes(attribute.String("psychbook.as_of", day.Format("2006-01-02")))

	contracts, err := r.source.ContractsForDate(ctx, day, payerID)
	if err != nil {
		span.RecordError(err)
		return ResolvedSet{AsOf: day}, fmt.Errorf("network: load contracts: %w", err)
	}
	supervisions, err := r.source.SupervisionsForDate(ctx, day, payerID)
	if err != nil {
		span.RecordError(err)
		return ResolvedSet{AsOf: day}, fmt.Errorf("network: load supervisions: %w", err)
	}

	set := ResolvedSet{AsOf: day}

	direct := r.resolveDirect(day, contracts, &set)
	r.resolveSupervised(day, supervisions, direct, &set)

	sort.Slice(set.Entries, func(i, j int) bool {
		a, b := set.Entries[i], set.Entries[j]
		if a.PayerID != b.PayerID {
			return a.PayerID < b.PayerID
		}
		return a.RenderingProviderID < b.RenderingProviderID
	})

	span.SetAttributes(attribute.Int("psychbook.entries", len(set.Entries)))
	if len(set.Warnings) > 0 {
		r.logger.Warn("bookability resolved with integrity warnings",
			"as_of", day.Format("2006-01-02"),
			"warnings", len(set.Warnings),
		)
	}
	return set, nil
}

// IsBookable is a point check for one (provider, payer) pair.
func (r *Resolver) IsBookable(ctx context.Context, providerID, payerID string, date time.Time) (bool, error) {
	set, err := r.AsOf(ctx, date, payerID)
	if err != nil {
		return false, err
	}
	_, ok := set.Pair(providerID, payerID)
	return ok, nil
}

type pairKey struct {
	providerID string
	payerID    string
}

// resolveDirect filters contracts down to one winning row per (provider,
// payer) pair and records the pair as directly bookable.
func (r *Resolver) resolveDirect(day time.Time, contracts []ProviderPayerContract, set *ResolvedSet) map[pairKey]BookableEntry {
	candidates := make(map[pairKey][]ProviderPayerContract)
	for _, c := range contracts {
		c := c
		if !r.qualifies(day, &c, set) {
			continue
		}
		key := pairKey{c.ProviderID, c.PayerID}
		candidates[key] = append(candidates[key], c)
	}

	direct := make(map[pairKey]BookableEntry, len(candidates))
	for key, rows := range candidates {
		winner := pickContract(rows)
		if len(rows) > 1 && exactTie(rows, winner) {
			set.Warnings = append(set.Warnings, IntegrityWarning{
				ProviderID: key.providerID,
				PayerID:    key.payerID,
				Message:    "overlapping contracts with identical effective dates; using most recently updated row",
			})
		}
		billing := winner.BillingProviderID
		if billing == "" {
			billing = winner.ProviderID
		}
		entry := BookableEntry{
			RenderingProviderID: winner.ProviderID,
			BillingProviderID:   billing,
			PayerID:             winner.PayerID,
			ValidFrom:           openDate(winner),
			ValidTo:             winner.ExpirationDate,
			Source:              SourceDirect,
		}
		direct[key] = entry
		set.Entries = append(set.Entries, entry)
	}
	return direct
}

// resolveSupervised attributes rendering providers through supervising
// billing providers that are independently bookable for the same payer.
// Direct entries win when both exist for a pair.
func (r *Resolver) resolveSupervised(day time.Time, supervisions []SupervisionRelationship, direct map[pairKey]BookableEntry, set *ResolvedSet) {
	for _, s := range supervisions {
		if s.Status != SupervisionActive || s.EffectiveDate.After(day) {
			continue
		}
		anchor, ok := direct[pairKey{s.BillingProviderID, s.PayerID}]
		if !ok {
			continue
		}
		key := pairKey{s.RenderingProviderID, s.PayerID}
		if _, exists := direct[key]; exists {
			continue
		}
		validFrom := anchor.ValidFrom
		if s.EffectiveDate.After(validFrom) {
			validFrom = s.EffectiveDate
		}
		entry := BookableEntry{
			RenderingProviderID: s.RenderingProviderID,
			BillingProviderID:   s.BillingProviderID,
			PayerID:             s.PayerID,
			ValidFrom:           validFrom,
			ValidTo:             anchor.ValidTo,
			Source:              SourceSupervised,
		}
		// First active relationship wins if data holds duplicates.
		if containsPair(set.Entries, key) {
			continue
		}
		set.Entries = append(set.Entries, entry)
	}
}

// qualifies applies the bookability invariant to one contract row for one day.
func (r *Resolver) qualifies(day time.Time, c *ProviderPayerContract, set *ResolvedSet) bool {
	if c.Status != ContractInNetwork {
		return false
	}
	if c.EffectiveDate.After(day) {
		return false
	}
	if c.ExpirationDate != nil && c.ExpirationDate.Before(day) {
		return false
	}
	if c.BookableFromDate != nil {
		if c.BookableFromDate.Before(c.EffectiveDate) {
			// Clamped: the booking window never opens before the contract is
			// legally effective.
			set.Warnings = append(set.Warnings, IntegrityWarning{
				ProviderID: c.ProviderID,
				PayerID:    c.PayerID,
				Message:    "bookable_from_date precedes effective_date; clamped to effective_date",
			})
		} else if c.BookableFromDate.After(day) {
			return false
		}
	}
	return true
}

// openDate is the date patients may first schedule against the contract.
func openDate(c ProviderPayerContract) time.Time {
	open := c.EffectiveDate
	if c.BookableFromDate != nil && c.BookableFromDate.After(open) {
		open = *c.BookableFromDate
	}
	return open
}

// pickContract chooses among overlapping qualified rows: latest effective
// date wins, then most recently updated.
func pickContract(rows []ProviderPayerContract) ProviderPayerContract {
	winner := rows[0]
	for _, c := range rows[1:] {
		if c.EffectiveDate.After(winner.EffectiveDate) {
			winner = c
			continue
		}
		if c.EffectiveDate.Equal(winner.EffectiveDate) && c.UpdatedAt.After(winner.UpdatedAt) {
			winner = c
		}
	}
	return winner
}

func exactTie(rows []ProviderPayerContract, winner ProviderPayerContract) bool {
	for _, c := range rows {
		if c.ID != winner.ID && c.EffectiveDate.Equal(winner.EffectiveDate) {
			return true
		}
	}
	return false
}

func containsPair(entries []BookableEntry, key pairKey) bool {
	for _, e := range entries {
		if e.RenderingProviderID == key.providerID && e.PayerID == key.payerID {
			return true
		}
	}
	return false
}
