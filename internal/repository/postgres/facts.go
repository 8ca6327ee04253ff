// Package postgres implements the fact, snapshot and alert repositories
// against PostgreSQL. Raw facts are read-only from the scoring core's
// point of view; derived entities are append-only snapshots keyed by
// (customer_id, computation_date).
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ignite/customer-intel/internal/domain"
)

// FactRepo implements the facts.* read interfaces against the
// operational tables.
type FactRepo struct{ db *sql.DB }

// NewFactRepo creates a Postgres-backed fact repository.
func NewFactRepo(db *sql.DB) *FactRepo { return &FactRepo{db: db} }

// ShipmentsRepo narrows FactRepo to the shipment interface.
type ShipmentsRepo struct{ *FactRepo }

// TransactionsRepo narrows FactRepo to the transaction interface.
type TransactionsRepo struct{ *FactRepo }

// TicketsRepo narrows FactRepo to the ticket interface.
type TicketsRepo struct{ *FactRepo }

// Shipments returns the shipment view of this repository.
func (r *FactRepo) Shipments() *ShipmentsRepo { return &ShipmentsRepo{r} }

// Transactions returns the transaction view of this repository.
func (r *FactRepo) Transactions() *TransactionsRepo { return &TransactionsRepo{r} }

// Tickets returns the ticket view of this repository.
func (r *FactRepo) Tickets() *TicketsRepo { return &TicketsRepo{r} }

// WindowFor returns the customer's shipments since the cutoff.
func (r *ShipmentsRepo) WindowFor(ctx context.Context, customerID string, since time.Time) ([]domain.ShipmentFact, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT shipment_id, customer_id, shipped_at, revenue, cost, weight_kg,
		       status, COALESCE(service_type,''), on_time
		FROM shipments
		WHERE customer_id = $1 AND shipped_at >= $2
		ORDER BY shipped_at
	`, customerID, since)
	if err != nil {
		return nil, fmt.Errorf("query shipments: %w", err)
	}
	defer rows.Close()

	var out []domain.ShipmentFact
	for rows.Next() {
		var s domain.ShipmentFact
		if err := rows.Scan(&s.ShipmentID, &s.CustomerID, &s.ShippedAt, &s.Revenue,
			&s.Cost, &s.WeightKg, &s.Status, &s.ServiceType, &s.OnTime); err != nil {
			return nil, fmt.Errorf("scan shipment: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// WindowFor returns the customer's transactions since the cutoff.
func (r *TransactionsRepo) WindowFor(ctx context.Context, customerID string, since time.Time) ([]domain.TransactionFact, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT transaction_id, customer_id, occurred_at, amount, paid_late, days_late
		FROM transactions
		WHERE customer_id = $1 AND occurred_at >= $2
		ORDER BY occurred_at
	`, customerID, since)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.TransactionFact
	for rows.Next() {
		var t domain.TransactionFact
		if err := rows.Scan(&t.TransactionID, &t.CustomerID, &t.OccurredAt,
			&t.Amount, &t.PaidLate, &t.DaysLate); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// WindowFor returns the customer's support tickets since the cutoff.
func (r *TicketsRepo) WindowFor(ctx context.Context, customerID string, since time.Time) ([]domain.TicketFact, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ticket_id, customer_id, opened_at, resolved_at, priority, is_complaint,
		       COALESCE(subject,''), COALESCE(description,''), COALESCE(chat_transcript,''),
		       sentiment_score
		FROM support_tickets
		WHERE customer_id = $1 AND opened_at >= $2
		ORDER BY opened_at
	`, customerID, since)
	if err != nil {
		return nil, fmt.Errorf("query tickets: %w", err)
	}
	defer rows.Close()

	var out []domain.TicketFact
	for rows.Next() {
		var t domain.TicketFact
		var resolvedAt sql.NullTime
		var sentiment sql.NullFloat64
		if err := rows.Scan(&t.TicketID, &t.CustomerID, &t.OpenedAt, &resolvedAt,
			&t.Priority, &t.IsComplaint, &t.Subject, &t.Description,
			&t.ChatTranscript, &sentiment); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		if resolvedAt.Valid {
			v := resolvedAt.Time
			t.ResolvedAt = &v
		}
		if sentiment.Valid {
			v := sentiment.Float64
			t.SentimentScore = &v
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ProfileRepo implements facts.ProfileRepository.
type ProfileRepo struct{ db *sql.DB }

// NewProfileRepo creates a Postgres-backed profile repository.
func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{db: db} }

// Get returns the customer profile, or nil when unknown.
func (r *ProfileRepo) Get(ctx context.Context, customerID string) (*domain.CustomerProfile, error) {
	p := &domain.CustomerProfile{}
	err := r.db.QueryRowContext(ctx, `
		SELECT customer_id, COALESCE(name,''), active, onboarded_at,
		       credit_limit, credit_outstanding
		FROM customers
		WHERE customer_id = $1
	`, customerID).Scan(&p.CustomerID, &p.Name, &p.Active, &p.OnboardedAt,
		&p.CreditLimit, &p.CreditOutstanding)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// ListActiveIDs returns every active customer ID, the batch population.
func (r *ProfileRepo) ListActiveIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT customer_id FROM customers WHERE active ORDER BY customer_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list active customers: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan customer id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
