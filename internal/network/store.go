package network

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is the subset of pgxpool.Pool the store needs; pgxmock satisfies it.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore reads contract and supervision rows from the relational
// database. It is the thin data-access layer under the resolver.
type PostgresStore struct {
	db querier
}

// NewPostgresStore initializes a store backed by pgxpool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("network: pgx pool required")
	}
	return &PostgresStore{db: pool}
}

func newPostgresStoreWithQuerier(db querier) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ ContractSource = (*PostgresStore)(nil)

// ContractsForDate returns in-network contract rows effective on or before
// the date and not yet expired. Overlapping rows for a pair are all returned;
// the resolver owns the tie-break.
func (s *PostgresStore) ContractsForDate(ctx context.Context, date time.Time, payerID string) ([]ProviderPayerContract, error) {
	query := `
		SELECT id, provider_id, payer_id,
		       COALESCE(billing_provider_id, provider_id),
		       effective_date, expiration_date, bookable_from_date,
		       status, updated_at
		FROM provider_payer_contracts
		WHERE status = 'in_network'
		  AND effective_date <= $1
		  AND (expiration_date IS NULL OR expiration_date >= $1)
		  AND ($2 = '' OR payer_id = $2)
	`
	rows, err := s.db.Query(ctx, query, date, payerID)
	if err != nil {
		return nil, fmt.Errorf("network: query contracts: %w", err)
	}
	defer rows.Close()

	var contracts []ProviderPayerContract
	for rows.Next() {
		var c ProviderPayerContract
		var status string
		if err := rows.Scan(
			&c.ID,
			&c.ProviderID,
			&c.PayerID,
			&c.BillingProviderID,
			&c.EffectiveDate,
			&c.ExpirationDate,
			&c.BookableFromDate,
			&status,
			&c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("network: scan contract: %w", err)
		}
		c.Status = ContractStatus(status)
		contracts = append(contracts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("network: iterate contracts: %w", err)
	}
	return contracts, nil
}

// SupervisionsForDate returns active supervision relationships effective on
// or before the date.
func (s *PostgresStore) SupervisionsForDate(ctx context.Context, date time.Time, payerID string) ([]SupervisionRelationship, error) {
	query := `
		SELECT id, rendering_provider_id, billing_provider_id, payer_id,
		       effective_date, status
		FROM supervision_relationships
		WHERE status = 'active'
		  AND effective_date <= $1
		  AND ($2 = '' OR payer_id = $2)
	`
	rows, err := s.db.Query(ctx, query, date, payerID)
	if err != nil {
		return nil, fmt.Errorf("network: query supervisions: %w", err)
	}
	defer rows.Close()

	var relationships []SupervisionRelationship
	for rows.Next() {
		var rel SupervisionRelationship
		var status string
		if err := rows.Scan(
			&rel.ID,
			&rel.RenderingProviderID,
			&rel.BillingProviderID,
			&rel.PayerID,
			&rel.EffectiveDate,
			&status,
		); err != nil {
			return nil, fmt.Errorf("network: scan supervision: %w", err)
		}
		rel.Status = SupervisionStatus(status)
		relationships = append(relationships, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("network: iterate supervisions: %w", err)
	}
	return relationships, nil
}
