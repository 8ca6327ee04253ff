package facts

import (
	"context"
	"time"

	"github.com/ignite/customer-intel/internal/domain"
)

// ShipmentRepository reads shipment facts. Read-only: the scoring core
// never writes operational data.
type ShipmentRepository interface {
	WindowFor(ctx context.Context, customerID string, since time.Time) ([]domain.ShipmentFact, error)
}

// TransactionRepository reads financial transaction facts.
type TransactionRepository interface {
	WindowFor(ctx context.Context, customerID string, since time.Time) ([]domain.TransactionFact, error)
}

// TicketRepository reads support ticket facts.
type TicketRepository interface {
	WindowFor(ctx context.Context, customerID string, since time.Time) ([]domain.TicketFact, error)
}

// ProfileRepository reads customer identity and tenure.
type ProfileRepository interface {
	Get(ctx context.Context, customerID string) (*domain.CustomerProfile, error)
	ListActiveIDs(ctx context.Context) ([]string, error)
}

// ChurnHistoryRepository reads the prior churn snapshot, used as a
// trend input to the next computation.
type ChurnHistoryRepository interface {
	Latest(ctx context.Context, customerID string) (*domain.ChurnScore, error)
}
