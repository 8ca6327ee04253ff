// Package facts assembles the time-windowed view of one customer's
// operational history that every scoring component consumes.
package facts

import (
	"context"

	"github.com/ignite/customer-intel/internal/domain"
	"github.com/ignite/customer-intel/internal/pkg/logger"
)

// Completeness weights per fact category. Tickets are optional signal and
// do not count toward completeness: a healthy customer may simply never
// open one.
const (
	shipmentWeight    = 0.5
	transactionWeight = 0.5
)

// DefaultWindowDays is the standard scoring window; CLV uses a full year.
const DefaultWindowDays = 90

// Aggregator builds ActivityWindows from the read-only fact repositories.
type Aggregator struct {
	shipments    ShipmentRepository
	transactions TransactionRepository
	tickets      TicketRepository
	profiles     ProfileRepository
	churnHistory ChurnHistoryRepository
	clock        Clock
}

// NewAggregator creates a fact aggregator over the given repositories.
func NewAggregator(shipments ShipmentRepository, transactions TransactionRepository,
	tickets TicketRepository, profiles ProfileRepository, churnHistory ChurnHistoryRepository,
	clock Clock) *Aggregator {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Aggregator{
		shipments:    shipments,
		transactions: transactions,
		tickets:      tickets,
		profiles:     profiles,
		churnHistory: churnHistory,
		clock:        clock,
	}
}

// Clock returns the aggregator's clock, shared with downstream components.
func (a *Aggregator) Clock() Clock { return a.clock }

// Aggregate builds the window for one customer. Missing data is never an
// error: a customer with no facts gets empty collections and completeness
// zero, which downstream components handle as a documented cold start.
// Only repository infrastructure failures propagate.
func (a *Aggregator) Aggregate(ctx context.Context, customerID string, windowDays int) (*domain.ActivityWindow, error) {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	now := a.clock.Now()
	since := now.AddDate(0, 0, -windowDays)

	w := &domain.ActivityWindow{
		CustomerID: customerID,
		PeriodDays: windowDays,
		WindowEnd:  now,
	}

	if profile, err := a.profiles.Get(ctx, customerID); err != nil {
		return nil, err
	} else if profile != nil {
		w.Profile = *profile
	} else {
		// Unknown customer still gets a valid cold-start window.
		w.Profile = domain.CustomerProfile{CustomerID: customerID}
	}

	shipments, err := a.shipments.WindowFor(ctx, customerID, since)
	if err != nil {
		return nil, err
	}
	w.Shipments = shipments

	transactions, err := a.transactions.WindowFor(ctx, customerID, since)
	if err != nil {
		return nil, err
	}
	w.Transactions = transactions

	tickets, err := a.tickets.WindowFor(ctx, customerID, since)
	if err != nil {
		return nil, err
	}
	w.Tickets = tickets

	if a.churnHistory != nil {
		prior, err := a.churnHistory.Latest(ctx, customerID)
		if err != nil {
			// Prior churn is a trend input, not a requirement.
			logger.Warn("prior churn unavailable", "customer_id", customerID, "error", err.Error())
		} else {
			w.PriorChurn = prior
		}
	}

	w.Completeness = completeness(w)
	return w, nil
}

func completeness(w *domain.ActivityWindow) float64 {
	var c float64
	if len(w.Shipments) > 0 {
		c += shipmentWeight
	}
	if len(w.Transactions) > 0 {
		c += transactionWeight
	}
	return c
}
