package facts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/customer-intel/internal/domain"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeFacts struct {
	shipments    []domain.ShipmentFact
	transactions []domain.TransactionFact
	tickets      []domain.TicketFact
	profile      *domain.CustomerProfile
	prior        *domain.ChurnScore
	priorErr     error
	shipmentErr  error

	gotSince time.Time
}

func (f *fakeFacts) WindowFor(ctx context.Context, customerID string, since time.Time) ([]domain.ShipmentFact, error) {
	f.gotSince = since
	return f.shipments, f.shipmentErr
}

type txRepo struct{ f *fakeFacts }

func (r txRepo) WindowFor(ctx context.Context, customerID string, since time.Time) ([]domain.TransactionFact, error) {
	return r.f.transactions, nil
}

type ticketRepo struct{ f *fakeFacts }

func (r ticketRepo) WindowFor(ctx context.Context, customerID string, since time.Time) ([]domain.TicketFact, error) {
	return r.f.tickets, nil
}

type profileRepo struct{ f *fakeFacts }

func (r profileRepo) Get(ctx context.Context, customerID string) (*domain.CustomerProfile, error) {
	return r.f.profile, nil
}

func (r profileRepo) ListActiveIDs(ctx context.Context) ([]string, error) {
	return []string{"C-100"}, nil
}

type churnRepo struct{ f *fakeFacts }

func (r churnRepo) Latest(ctx context.Context, customerID string) (*domain.ChurnScore, error) {
	return r.f.prior, r.f.priorErr
}

func newTestAggregator(f *fakeFacts) *Aggregator {
	return NewAggregator(f, txRepo{f}, ticketRepo{f}, profileRepo{f}, churnRepo{f}, FrozenClock{T: testNow})
}

func TestAggregateFullWindow(t *testing.T) {
	f := &fakeFacts{
		shipments:    []domain.ShipmentFact{{ShipmentID: "S-1", Revenue: 1200}},
		transactions: []domain.TransactionFact{{TransactionID: "TX-1", Amount: 500}},
		tickets:      []domain.TicketFact{{TicketID: "T-1"}},
		profile:      &domain.CustomerProfile{CustomerID: "C-100", Name: "Acme Freight", Active: true},
		prior:        &domain.ChurnScore{CustomerID: "C-100", ChurnProbability: 0.3},
	}
	a := newTestAggregator(f)

	w, err := a.Aggregate(context.Background(), "C-100", 90)
	require.NoError(t, err)

	assert.Equal(t, "C-100", w.CustomerID)
	assert.Equal(t, 90, w.PeriodDays)
	assert.Equal(t, testNow, w.WindowEnd)
	assert.Equal(t, testNow.AddDate(0, 0, -90), f.gotSince)
	assert.Equal(t, "Acme Freight", w.Profile.Name)
	assert.Len(t, w.Shipments, 1)
	assert.Len(t, w.Transactions, 1)
	assert.Len(t, w.Tickets, 1)
	require.NotNil(t, w.PriorChurn)
	assert.Equal(t, 0.3, w.PriorChurn.ChurnProbability)
	assert.Equal(t, 1.0, w.Completeness)
}

func TestAggregateColdStart(t *testing.T) {
	a := newTestAggregator(&fakeFacts{})

	w, err := a.Aggregate(context.Background(), "C-404", 90)
	require.NoError(t, err)

	assert.True(t, w.IsEmpty())
	assert.Equal(t, 0.0, w.Completeness)
	// Unknown customers still get a usable profile shell.
	assert.Equal(t, "C-404", w.Profile.CustomerID)
	assert.Nil(t, w.PriorChurn)
}

func TestAggregateCompletenessWeights(t *testing.T) {
	f := &fakeFacts{shipments: []domain.ShipmentFact{{ShipmentID: "S-1"}}}
	a := newTestAggregator(f)

	w, err := a.Aggregate(context.Background(), "C-100", 90)
	require.NoError(t, err)
	assert.Equal(t, 0.5, w.Completeness)

	// Tickets are optional signal and do not move completeness.
	f.tickets = []domain.TicketFact{{TicketID: "T-1"}}
	w, err = a.Aggregate(context.Background(), "C-100", 90)
	require.NoError(t, err)
	assert.Equal(t, 0.5, w.Completeness)
}

func TestAggregateDefaultsWindowDays(t *testing.T) {
	f := &fakeFacts{}
	a := newTestAggregator(f)

	w, err := a.Aggregate(context.Background(), "C-100", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultWindowDays, w.PeriodDays)
	assert.Equal(t, testNow.AddDate(0, 0, -DefaultWindowDays), f.gotSince)
}

func TestAggregatePriorChurnFailureIsNonFatal(t *testing.T) {
	f := &fakeFacts{priorErr: errors.New("snapshot store down")}
	a := newTestAggregator(f)

	w, err := a.Aggregate(context.Background(), "C-100", 90)
	require.NoError(t, err)
	assert.Nil(t, w.PriorChurn)
}

func TestAggregateRepositoryFailurePropagates(t *testing.T) {
	f := &fakeFacts{shipmentErr: errors.New("connection reset")}
	a := newTestAggregator(f)

	_, err := a.Aggregate(context.Background(), "C-100", 90)
	require.Error(t, err)
}
