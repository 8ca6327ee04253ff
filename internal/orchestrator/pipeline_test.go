package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/customer-intel/internal/activity"
	"github.com/ignite/customer-intel/internal/alerting"
	"github.com/ignite/customer-intel/internal/churn"
	"github.com/ignite/customer-intel/internal/config"
	"github.com/ignite/customer-intel/internal/domain"
	"github.com/ignite/customer-intel/internal/dormancy"
	"github.com/ignite/customer-intel/internal/facts"
	"github.com/ignite/customer-intel/internal/pkg/distlock"
	"github.com/ignite/customer-intel/internal/satisfaction"
	"github.com/ignite/customer-intel/internal/segmentation"
	"github.com/ignite/customer-intel/internal/sentiment"
	"github.com/ignite/customer-intel/internal/value"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakePopulation serves per-customer facts to the aggregator through the
// five repository interfaces.
type fakePopulation struct {
	activeIDs    []string
	profiles     map[string]*domain.CustomerProfile
	shipments    map[string][]domain.ShipmentFact
	transactions map[string][]domain.TransactionFact
	tickets      map[string][]domain.TicketFact
	listErr      error
}

type popShipments struct{ p *fakePopulation }

func (r popShipments) WindowFor(_ context.Context, customerID string, _ time.Time) ([]domain.ShipmentFact, error) {
	return r.p.shipments[customerID], nil
}

type popTransactions struct{ p *fakePopulation }

func (r popTransactions) WindowFor(_ context.Context, customerID string, _ time.Time) ([]domain.TransactionFact, error) {
	return r.p.transactions[customerID], nil
}

type popTickets struct{ p *fakePopulation }

func (r popTickets) WindowFor(_ context.Context, customerID string, _ time.Time) ([]domain.TicketFact, error) {
	return r.p.tickets[customerID], nil
}

type popProfiles struct{ p *fakePopulation }

func (r popProfiles) Get(_ context.Context, customerID string) (*domain.CustomerProfile, error) {
	return r.p.profiles[customerID], nil
}

func (r popProfiles) ListActiveIDs(_ context.Context) ([]string, error) {
	return r.p.activeIDs, r.p.listErr
}

type popChurnHistory struct{}

func (popChurnHistory) Latest(_ context.Context, _ string) (*domain.ChurnScore, error) {
	return nil, nil
}

// memStore collects snapshots in memory. failChurnFor simulates a
// storage failure for one customer; panicFor simulates an analyzer
// crash surfacing mid-save.
type memStore struct {
	mu           sync.Mutex
	churn        map[string]*domain.ChurnScore
	segmentation map[string]*domain.SegmentationResult
	value        map[string]*domain.ValueMetrics
	sentiments   []domain.SentimentRecord
	satisfaction map[string]*domain.SatisfactionScore
	activity     map[string]*domain.ActivityMetrics
	dormancy     map[string]*domain.DormancyAssessment
	failChurnFor string
	panicFor     string
}

func newMemStore() *memStore {
	return &memStore{
		churn:        map[string]*domain.ChurnScore{},
		segmentation: map[string]*domain.SegmentationResult{},
		value:        map[string]*domain.ValueMetrics{},
		satisfaction: map[string]*domain.SatisfactionScore{},
		activity:     map[string]*domain.ActivityMetrics{},
		dormancy:     map[string]*domain.DormancyAssessment{},
	}
}

func (m *memStore) SaveChurn(_ context.Context, s *domain.ChurnScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.CustomerID == m.panicFor {
		panic("churn snapshot corrupted")
	}
	if s.CustomerID == m.failChurnFor {
		return errors.New("insert churn_scores: connection reset")
	}
	m.churn[s.CustomerID] = s
	return nil
}

func (m *memStore) SaveSegmentation(_ context.Context, s *domain.SegmentationResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.segmentation[s.CustomerID] = s
	return nil
}

func (m *memStore) SaveValue(_ context.Context, v *domain.ValueMetrics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value[v.CustomerID] = v
	return nil
}

func (m *memStore) SaveSentiment(_ context.Context, s *domain.SentimentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sentiments = append(m.sentiments, *s)
	return nil
}

func (m *memStore) SaveSatisfaction(_ context.Context, s *domain.SatisfactionScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.satisfaction[s.CustomerID] = s
	return nil
}

func (m *memStore) SaveActivity(_ context.Context, a *domain.ActivityMetrics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activity[a.CustomerID] = a
	return nil
}

func (m *memStore) SaveDormancy(_ context.Context, d *domain.DormancyAssessment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dormancy[d.CustomerID] = d
	return nil
}

// memAlertRepo is a thread-safe in-memory alerting.Repository.
type memAlertRepo struct {
	mu            sync.Mutex
	open          map[string]*domain.Alert
	inserted      []domain.Alert
	notifications []domain.NotificationResult
}

func newMemAlertRepo() *memAlertRepo {
	return &memAlertRepo{open: map[string]*domain.Alert{}}
}

func dedupKey(customerID string, alertType domain.AlertType) string {
	return customerID + "/" + string(alertType)
}

func (m *memAlertRepo) FindOpen(_ context.Context, customerID string, alertType domain.AlertType) (*domain.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open[dedupKey(customerID, alertType)], nil
}

func (m *memAlertRepo) Insert(_ context.Context, alert *domain.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserted = append(m.inserted, *alert)
	m.open[dedupKey(alert.CustomerID, alert.Type)] = alert
	return nil
}

func (m *memAlertRepo) Update(_ context.Context, alert *domain.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := dedupKey(alert.CustomerID, alert.Type)
	if alert.Status.IsOpen() {
		m.open[key] = alert
	} else {
		delete(m.open, key)
	}
	return nil
}

func (m *memAlertRepo) RecordNotification(_ context.Context, result domain.NotificationResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, result)
	return nil
}

type grantLock struct{ released *bool }

func (grantLock) Acquire(_ context.Context) (bool, error) { return true, nil }

func (l grantLock) Release(_ context.Context) error {
	if l.released != nil {
		*l.released = true
	}
	return nil
}

type denyLock struct{}

func (denyLock) Acquire(_ context.Context) (bool, error) { return false, nil }
func (denyLock) Release(_ context.Context) error         { return nil }

type countNotifier struct {
	mu   sync.Mutex
	sent int
}

func (n *countNotifier) Channel() domain.NotificationChannel { return domain.ChannelSlack }

func (n *countNotifier) Send(_ context.Context, _ domain.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent++
	return nil
}

type pipelineFixture struct {
	pipeline  *Pipeline
	store     *memStore
	alertRepo *memAlertRepo
	notifier  *countNotifier
}

func newTestPipeline(t *testing.T, pop *fakePopulation, store *memStore, locks LockFactory) *pipelineFixture {
	t.Helper()
	cfg := config.Default()
	clock := facts.FrozenClock{T: testNow}

	aggregator := facts.NewAggregator(
		popShipments{pop}, popTransactions{pop}, popTickets{pop},
		popProfiles{pop}, popChurnHistory{}, clock)

	alertRepo := newMemAlertRepo()
	notifier := &countNotifier{}
	engine := alerting.NewEngine(cfg.Alerts, alertRepo, []alerting.Notifier{notifier},
		func(string, time.Duration) distlock.DistLock { return grantLock{} }, clock)

	p := NewPipeline(cfg.Monitoring, Deps{
		Aggregator:   aggregator,
		Profiles:     popProfiles{pop},
		Churn:        churn.NewPredictor(cfg.ChurnModel, clock),
		Segmentation: segmentation.NewEngine(cfg.Scoring.Segmentation, clock),
		Value:        value.NewAnalyzer(cfg.Scoring.Value, clock),
		Sentiment:    sentiment.NewAnalyzer(nil, cfg.Classifier, clock),
		Satisfaction: satisfaction.NewScorer(cfg.Scoring.Satisfaction, clock),
		Activity:     activity.NewMonitor(cfg.Scoring.Activity, clock),
		Dormancy:     dormancy.NewDetector(cfg.Scoring.Dormancy, cfg.Campaigns, cfg.Alerts.ReactivationThreshold, clock),
		Alerts:       engine,
		Store:        store,
		Locks:        locks,
	})
	return &pipelineFixture{pipeline: p, store: store, alertRepo: alertRepo, notifier: notifier}
}

func steadyShipper(id string) ([]domain.ShipmentFact, []domain.TransactionFact, []domain.TicketFact) {
	var shipments []domain.ShipmentFact
	for i := 0; i < 12; i++ {
		shipments = append(shipments, domain.ShipmentFact{
			ShipmentID: fmt.Sprintf("%s-S%d", id, i),
			CustomerID: id,
			ShippedAt:  testNow.AddDate(0, 0, -3-i*7),
			Revenue:    500,
			Cost:       350,
			Status:     domain.ShipmentDelivered,
			OnTime:     true,
		})
	}
	transactions := []domain.TransactionFact{
		{TransactionID: id + "-T1", CustomerID: id, OccurredAt: testNow.AddDate(0, 0, -10), Amount: 1500},
		{TransactionID: id + "-T2", CustomerID: id, OccurredAt: testNow.AddDate(0, 0, -40), Amount: 1500},
	}
	resolved := testNow.AddDate(0, 0, -20)
	tickets := []domain.TicketFact{
		{
			TicketID:    id + "-K1",
			CustomerID:  id,
			OpenedAt:    testNow.AddDate(0, 0, -21),
			ResolvedAt:  &resolved,
			Priority:    domain.PriorityNormal,
			Subject:     "Delivery question",
			Description: "Thank you, the driver was great and everything arrived on time.",
		},
	}
	return shipments, transactions, tickets
}

func twoCustomerPopulation() *fakePopulation {
	pop := &fakePopulation{
		activeIDs: []string{"C-ACME", "C-GHOST"},
		profiles: map[string]*domain.CustomerProfile{
			"C-ACME": {
				CustomerID:  "C-ACME",
				Name:        "Acme Freight",
				Active:      true,
				OnboardedAt: testNow.AddDate(-2, 0, 0),
				CreditLimit: 10000,
			},
			"C-GHOST": {
				CustomerID:  "C-GHOST",
				Name:        "Ghost Logistics",
				Active:      true,
				OnboardedAt: testNow.AddDate(-1, 0, 0),
			},
		},
		shipments:    map[string][]domain.ShipmentFact{},
		transactions: map[string][]domain.TransactionFact{},
		tickets:      map[string][]domain.TicketFact{},
	}
	s, tx, k := steadyShipper("C-ACME")
	pop.shipments["C-ACME"] = s
	pop.transactions["C-ACME"] = tx
	pop.tickets["C-ACME"] = k
	return pop
}

func TestRunProcessesAllCustomers(t *testing.T) {
	pop := twoCustomerPopulation()
	fx := newTestPipeline(t, pop, newMemStore(), nil)

	summary, err := fx.pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, summary.Skipped)
	assert.Equal(t, testNow, summary.StartedAt)
	assert.Equal(t, 2, summary.CustomersTotal)
	assert.Equal(t, int64(2), summary.Processed)
	assert.Empty(t, summary.Errors)

	// One snapshot of every family per customer.
	for _, id := range []string{"C-ACME", "C-GHOST"} {
		assert.Contains(t, fx.store.churn, id)
		assert.Contains(t, fx.store.segmentation, id)
		assert.Contains(t, fx.store.value, id)
		assert.Contains(t, fx.store.satisfaction, id)
		assert.Contains(t, fx.store.activity, id)
		assert.Contains(t, fx.store.dormancy, id)
	}

	// Only the active shipper had a ticket to analyze.
	require.Len(t, fx.store.sentiments, 1)
	assert.Equal(t, "C-ACME", fx.store.sentiments[0].CustomerID)

	// The summary counters mirror what the alert engine persisted.
	assert.Equal(t, int64(len(fx.alertRepo.inserted)), summary.AlertsRaised)
	assert.Equal(t, int64(fx.notifier.sent), summary.NotificationsSent)
	assert.Len(t, fx.alertRepo.notifications, fx.notifier.sent)
}

func complaintTicket(id string, openedAt time.Time) domain.TicketFact {
	return domain.TicketFact{
		TicketID:    id,
		CustomerID:  "C-ACME",
		OpenedAt:    openedAt,
		Priority:    domain.PriorityHigh,
		IsComplaint: true,
		Subject:     "Damaged freight",
		Description: "Terrible awful service, the shipment arrived damaged and late.",
	}
}

func TestRunOldNegativeTicketsDoNotRaiseSentimentSpike(t *testing.T) {
	pop := twoCustomerPopulation()
	pop.tickets["C-ACME"] = []domain.TicketFact{
		complaintTicket("C-ACME-OLD1", testNow.AddDate(0, 0, -50)),
		complaintTicket("C-ACME-OLD2", testNow.AddDate(0, 0, -60)),
		complaintTicket("C-ACME-OLD3", testNow.AddDate(0, 0, -70)),
		complaintTicket("C-ACME-OLD4", testNow.AddDate(0, 0, -80)),
	}
	fx := newTestPipeline(t, pop, newMemStore(), nil)

	summary, err := fx.pipeline.Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, summary.Errors)

	// Every ticket in the aggregation window is re-scored each cycle,
	// but none was opened inside the 24h spike window.
	assert.Len(t, fx.store.sentiments, 4)
	for _, a := range fx.alertRepo.inserted {
		assert.NotEqual(t, domain.AlertSentimentSpike, a.Type)
	}
}

func TestRunRecentNegativeTicketsRaiseSentimentSpike(t *testing.T) {
	pop := twoCustomerPopulation()
	pop.tickets["C-ACME"] = []domain.TicketFact{
		complaintTicket("C-ACME-NEW1", testNow.Add(-2*time.Hour)),
		complaintTicket("C-ACME-NEW2", testNow.Add(-5*time.Hour)),
		complaintTicket("C-ACME-NEW3", testNow.Add(-10*time.Hour)),
	}
	fx := newTestPipeline(t, pop, newMemStore(), nil)

	summary, err := fx.pipeline.Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, summary.Errors)

	var spike *domain.Alert
	for i := range fx.alertRepo.inserted {
		if fx.alertRepo.inserted[i].Type == domain.AlertSentimentSpike {
			spike = &fx.alertRepo.inserted[i]
		}
	}
	require.NotNil(t, spike, "three fresh complaints must raise a spike")
	assert.Equal(t, "C-ACME", spike.CustomerID)
	assert.Equal(t, 3.0, spike.Metrics["negative_count"])
}

func TestRunSkippedWhenLockHeld(t *testing.T) {
	pop := twoCustomerPopulation()
	locks := func(string, time.Duration) distlock.DistLock { return denyLock{} }
	fx := newTestPipeline(t, pop, newMemStore(), locks)

	summary, err := fx.pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, summary.Skipped)
	assert.Equal(t, int64(0), summary.Processed)
	assert.Equal(t, 0, summary.CustomersTotal)
	assert.Empty(t, fx.store.churn)
}

func TestRunBatchLockKeyAndRelease(t *testing.T) {
	pop := twoCustomerPopulation()
	var (
		gotKey   string
		gotTTL   time.Duration
		released bool
	)
	locks := func(key string, ttl time.Duration) distlock.DistLock {
		gotKey = key
		gotTTL = ttl
		return grantLock{released: &released}
	}
	fx := newTestPipeline(t, pop, newMemStore(), locks)

	summary, err := fx.pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, summary.Skipped)
	assert.Equal(t, "intel:batch", gotKey)
	assert.Equal(t, 55*time.Minute, gotTTL)
	assert.True(t, released)
}

func TestRunIsolatesFailingCustomer(t *testing.T) {
	pop := twoCustomerPopulation()
	store := newMemStore()
	store.failChurnFor = "C-GHOST"
	fx := newTestPipeline(t, pop, store, nil)

	summary, err := fx.pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), summary.Processed)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0], "C-GHOST")
	assert.Contains(t, fx.store.churn, "C-ACME")
	assert.NotContains(t, fx.store.churn, "C-GHOST")
}

func TestRunContainsPanic(t *testing.T) {
	pop := twoCustomerPopulation()
	store := newMemStore()
	store.panicFor = "C-ACME"
	fx := newTestPipeline(t, pop, store, nil)

	summary, err := fx.pipeline.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), summary.Processed)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0], "panic")
	assert.Contains(t, summary.Errors[0], "C-ACME")
	assert.Contains(t, fx.store.churn, "C-GHOST")
}

func TestRunListActiveIDsError(t *testing.T) {
	pop := twoCustomerPopulation()
	pop.listErr = errors.New("relation customers does not exist")
	fx := newTestPipeline(t, pop, newMemStore(), nil)

	_, err := fx.pipeline.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list active customers")
}

func TestRecomputeCustomerBypassesBatchLock(t *testing.T) {
	pop := twoCustomerPopulation()
	lockCalls := 0
	locks := func(string, time.Duration) distlock.DistLock {
		lockCalls++
		return denyLock{}
	}
	fx := newTestPipeline(t, pop, newMemStore(), locks)

	report, err := fx.pipeline.RecomputeCustomer(context.Background(), "C-ACME")
	require.NoError(t, err)

	assert.Equal(t, 0, lockCalls)
	assert.Equal(t, "C-ACME", report.CustomerID)
	require.NotNil(t, report.Churn)
	require.NotNil(t, report.Segmentation)
	require.NotNil(t, report.Value)
	require.NotNil(t, report.Satisfaction)
	require.NotNil(t, report.Activity)
	require.NotNil(t, report.Dormancy)
	require.Len(t, report.Sentiments, 1)
	assert.Equal(t, "C-ACME-K1", report.Sentiments[0].TicketID)

	// Frozen clock: every snapshot is stamped with the same instant.
	assert.Equal(t, testNow, report.Churn.ComputedAt)
	assert.Equal(t, testNow, report.Activity.ComputedAt)
}

func TestRecomputeCustomerUnknownIsColdStart(t *testing.T) {
	pop := twoCustomerPopulation()
	fx := newTestPipeline(t, pop, newMemStore(), nil)

	// Unknown customers still get a cold-start window, not an error.
	report, err := fx.pipeline.RecomputeCustomer(context.Background(), "C-UNKNOWN")
	require.NoError(t, err)
	assert.Equal(t, "C-UNKNOWN", report.CustomerID)
	require.NotNil(t, report.Window)
	assert.Equal(t, 0.0, report.Window.Completeness)
}
