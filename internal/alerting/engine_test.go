package alerting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/customer-intel/internal/config"
	"github.com/ignite/customer-intel/internal/domain"
	"github.com/ignite/customer-intel/internal/facts"
	"github.com/ignite/customer-intel/internal/pkg/distlock"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeRepo struct {
	open          map[string]*domain.Alert
	inserted      []*domain.Alert
	updated       []*domain.Alert
	notifications []domain.NotificationResult
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{open: map[string]*domain.Alert{}}
}

func dedupKey(customerID string, t domain.AlertType) string {
	return customerID + "/" + string(t)
}

func (r *fakeRepo) FindOpen(ctx context.Context, customerID string, t domain.AlertType) (*domain.Alert, error) {
	return r.open[dedupKey(customerID, t)], nil
}

func (r *fakeRepo) Insert(ctx context.Context, a *domain.Alert) error {
	r.inserted = append(r.inserted, a)
	r.open[dedupKey(a.CustomerID, a.Type)] = a
	return nil
}

func (r *fakeRepo) Update(ctx context.Context, a *domain.Alert) error {
	r.updated = append(r.updated, a)
	if !a.Status.IsOpen() {
		delete(r.open, dedupKey(a.CustomerID, a.Type))
	}
	return nil
}

func (r *fakeRepo) RecordNotification(ctx context.Context, result domain.NotificationResult) error {
	r.notifications = append(r.notifications, result)
	return nil
}

type fakeLock struct {
	acquired bool
	released bool
}

func (l *fakeLock) Acquire(ctx context.Context) (bool, error) { return l.acquired, nil }
func (l *fakeLock) Release(ctx context.Context) error         { l.released = true; return nil }

func grantingLocks(key string, ttl time.Duration) distlock.DistLock {
	return &fakeLock{acquired: true}
}

type fakeNotifier struct {
	channel domain.NotificationChannel
	err     error
	sent    []domain.Alert
}

func (n *fakeNotifier) Channel() domain.NotificationChannel { return n.channel }

func (n *fakeNotifier) Send(ctx context.Context, alert domain.Alert) error {
	n.sent = append(n.sent, alert)
	return n.err
}

func newTestEngine(repo Repository, notifiers ...Notifier) *Engine {
	return NewEngine(config.Default().Alerts, repo, notifiers, grantingLocks, facts.FrozenClock{T: testNow})
}

func churnSignals(probability float64) Signals {
	return Signals{Churn: &domain.ChurnScore{
		CustomerID:       "C-100",
		ChurnProbability: probability,
		RiskScore:        probability,
		RetentionScore:   1 - probability,
	}}
}

func TestEvaluateChurnRule(t *testing.T) {
	e := newTestEngine(newFakeRepo())

	tests := []struct {
		name         string
		probability  float64
		wantAlert    bool
		wantSeverity domain.AlertSeverity
		wantEscalate bool
	}{
		{"below threshold", 0.5, false, "", false},
		{"high band", 0.75, true, domain.SeverityHigh, false},
		{"critical band escalates", 0.9, true, domain.SeverityCritical, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := e.Evaluate(churnSignals(tt.probability))
			if !tt.wantAlert {
				assert.Empty(t, alerts)
				return
			}
			require.Len(t, alerts, 1)
			a := alerts[0]
			assert.Equal(t, domain.AlertChurnRisk, a.Type)
			assert.Equal(t, "C-100", a.CustomerID)
			assert.Equal(t, tt.wantSeverity, a.Severity)
			assert.Equal(t, tt.wantEscalate, a.RequiresEscalation)
			assert.Equal(t, tt.probability, a.Metrics["churn_probability"])
		})
	}
}

// sentimentAt builds a record for a ticket opened hoursAgo. AnalyzedAt
// is always the batch instant, as the pipeline stamps it.
func sentimentAt(score float64, hoursAgo int) domain.SentimentRecord {
	return domain.SentimentRecord{
		TicketID:       "T",
		CustomerID:     "C-100",
		SentimentScore: score,
		TicketOpenedAt: testNow.Add(-time.Duration(hoursAgo) * time.Hour),
		AnalyzedAt:     testNow,
	}
}

func TestEvaluateSentimentSpike(t *testing.T) {
	e := newTestEngine(newFakeRepo())

	tests := []struct {
		name         string
		sentiments   []domain.SentimentRecord
		wantAlert    bool
		wantSeverity domain.AlertSeverity
		wantEscalate bool
	}{
		{
			"three recent negatives with low average",
			[]domain.SentimentRecord{sentimentAt(-0.7, 2), sentimentAt(-0.6, 5), sentimentAt(-0.8, 10)},
			true, domain.SeverityMedium, false,
		},
		{
			"five negatives escalate",
			[]domain.SentimentRecord{
				sentimentAt(-0.7, 1), sentimentAt(-0.6, 2), sentimentAt(-0.8, 3),
				sentimentAt(-0.9, 4), sentimentAt(-0.7, 5),
			},
			true, domain.SeverityHigh, true,
		},
		{
			"average exactly at the threshold still fires",
			[]domain.SentimentRecord{
				sentimentAt(-0.4, 1), sentimentAt(-0.5, 2), sentimentAt(-0.6, 3),
				sentimentAt(-0.3, 4), sentimentAt(-0.7, 5),
			},
			true, domain.SeverityHigh, true,
		},
		{
			"tickets opened outside the window do not count",
			[]domain.SentimentRecord{sentimentAt(-0.9, 30), sentimentAt(-0.9, 40), sentimentAt(-0.9, 50)},
			false, "", false,
		},
		{
			"negatives diluted by positives",
			[]domain.SentimentRecord{
				sentimentAt(-0.6, 1), sentimentAt(-0.6, 2), sentimentAt(-0.6, 3),
				sentimentAt(0.9, 4), sentimentAt(0.9, 5), sentimentAt(0.9, 6),
			},
			false, "", false,
		},
		{"too few negatives", []domain.SentimentRecord{sentimentAt(-0.9, 1), sentimentAt(-0.9, 2)}, false, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := e.Evaluate(Signals{Sentiments: tt.sentiments})
			if !tt.wantAlert {
				assert.Empty(t, alerts)
				return
			}
			require.Len(t, alerts, 1)
			a := alerts[0]
			assert.Equal(t, domain.AlertSentimentSpike, a.Type)
			assert.Equal(t, tt.wantSeverity, a.Severity)
			assert.Equal(t, tt.wantEscalate, a.RequiresEscalation)
		})
	}
}

func TestEvaluateActivityAnomaly(t *testing.T) {
	e := newTestEngine(newFakeRepo())

	high := Signals{Activity: &domain.ActivityMetrics{
		CustomerID:      "C-100",
		AnomalySeverity: "high",
		Anomalies:       []domain.AnomalyType{domain.AnomalyFrequency},
	}}
	alerts := e.Evaluate(high)
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.AlertActivityAnomaly, alerts[0].Type)
	assert.Equal(t, domain.SeverityHigh, alerts[0].Severity)

	medium := Signals{Activity: &domain.ActivityMetrics{CustomerID: "C-100", AnomalySeverity: "medium"}}
	assert.Empty(t, e.Evaluate(medium))
}

func TestEvaluateOpportunity(t *testing.T) {
	e := newTestEngine(newFakeRepo())

	seg := &domain.SegmentationResult{CustomerID: "C-100", PrimarySegment: "premium_frequent_shipper", GrowthPotential: 0.8, ValueScore: 0.9}

	alerts := e.Evaluate(Signals{Segmentation: seg, Churn: &domain.ChurnScore{CustomerID: "C-100", ChurnProbability: 0.1}})
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.AlertOpportunity, alerts[0].Type)
	assert.Equal(t, domain.SeverityMedium, alerts[0].Severity)
	assert.False(t, alerts[0].RequiresEscalation)

	// Growth on a churn-risky customer is retention work, not expansion.
	assert.Empty(t, e.Evaluate(Signals{Segmentation: seg, Churn: &domain.ChurnScore{CustomerID: "C-100", ChurnProbability: 0.4}}))

	flat := &domain.SegmentationResult{CustomerID: "C-100", GrowthPotential: 0.7}
	assert.Empty(t, e.Evaluate(Signals{Segmentation: flat, Churn: &domain.ChurnScore{CustomerID: "C-100", ChurnProbability: 0.1}}))
}

func TestEvaluateDormancy(t *testing.T) {
	e := newTestEngine(newFakeRepo())

	severe := Signals{Dormancy: &domain.DormancyAssessment{CustomerID: "C-100", Severity: domain.DormancySevere, DaysInactive: 130}}
	alerts := e.Evaluate(severe)
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.AlertDormancy, alerts[0].Type)
	assert.Equal(t, domain.SeverityHigh, alerts[0].Severity)

	critical := Signals{Dormancy: &domain.DormancyAssessment{CustomerID: "C-100", Severity: domain.DormancyCritical, DaysInactive: 200}}
	alerts = e.Evaluate(critical)
	require.Len(t, alerts, 1)
	assert.Equal(t, domain.SeverityCritical, alerts[0].Severity)

	moderate := Signals{Dormancy: &domain.DormancyAssessment{CustomerID: "C-100", Severity: domain.DormancyModerate}}
	assert.Empty(t, e.Evaluate(moderate))
}

func TestProcessCreatesAlertAndNotifies(t *testing.T) {
	repo := newFakeRepo()
	notifier := &fakeNotifier{channel: domain.ChannelSlack}
	e := newTestEngine(repo, notifier)

	open, sent, err := e.Process(context.Background(), churnSignals(0.75))
	require.NoError(t, err)

	require.Len(t, open, 1)
	assert.Equal(t, 1, sent)
	assert.NotEmpty(t, open[0].AlertID)
	assert.Equal(t, domain.StatusActive, open[0].Status)
	assert.Equal(t, testNow, open[0].CreatedAt)

	require.Len(t, repo.inserted, 1)
	require.Len(t, notifier.sent, 1)
	require.Len(t, repo.notifications, 1)
	assert.True(t, repo.notifications[0].Success)
	assert.Equal(t, domain.ChannelSlack, repo.notifications[0].Channel)
}

func TestProcessRefreshesExistingAlert(t *testing.T) {
	repo := newFakeRepo()
	notifier := &fakeNotifier{channel: domain.ChannelSlack}
	e := newTestEngine(repo, notifier)

	_, _, err := e.Process(context.Background(), churnSignals(0.75))
	require.NoError(t, err)

	// The same detection next cycle refreshes the record in place.
	open, sent, err := e.Process(context.Background(), churnSignals(0.78))
	require.NoError(t, err)

	require.Len(t, open, 1)
	assert.Zero(t, sent, "refresh must not re-notify")
	assert.Len(t, repo.inserted, 1)
	require.Len(t, repo.updated, 1)
	assert.Equal(t, repo.inserted[0].AlertID, open[0].AlertID)
	assert.Equal(t, 0.78, open[0].Metrics["churn_probability"])
	assert.Len(t, notifier.sent, 1)
}

func TestProcessEscalatesOnRepeatDetection(t *testing.T) {
	repo := newFakeRepo()
	e := newTestEngine(repo)

	_, _, err := e.Process(context.Background(), churnSignals(0.75))
	require.NoError(t, err)

	open, _, err := e.Process(context.Background(), churnSignals(0.9))
	require.NoError(t, err)

	require.Len(t, open, 1)
	assert.Equal(t, domain.StatusEscalated, open[0].Status)
	assert.Equal(t, domain.SeverityCritical, open[0].Severity)
	assert.Equal(t, 1, open[0].EscalationLevel)
}

func TestProcessCriticalDetectionOpensEscalated(t *testing.T) {
	repo := newFakeRepo()
	e := newTestEngine(repo)

	open, _, err := e.Process(context.Background(), churnSignals(0.9))
	require.NoError(t, err)

	require.Len(t, open, 1)
	assert.Equal(t, domain.StatusEscalated, open[0].Status)
	assert.Equal(t, 1, open[0].EscalationLevel)
}

func TestProcessSkipsOnLockContention(t *testing.T) {
	repo := newFakeRepo()
	contended := func(key string, ttl time.Duration) distlock.DistLock {
		return &fakeLock{acquired: false}
	}
	e := NewEngine(config.Default().Alerts, repo, nil, contended, facts.FrozenClock{T: testNow})

	open, sent, err := e.Process(context.Background(), churnSignals(0.75))
	require.NoError(t, err)

	assert.Len(t, open, 1)
	assert.Zero(t, sent)
	assert.Empty(t, repo.inserted, "the lock holder owns the write")
}

func TestNotifyRecordsFailure(t *testing.T) {
	repo := newFakeRepo()
	broken := &fakeNotifier{channel: domain.ChannelEmail, err: errors.New("smtp down")}
	working := &fakeNotifier{channel: domain.ChannelSlack}
	e := newTestEngine(repo, broken, working)

	_, sent, err := e.Process(context.Background(), churnSignals(0.75))
	require.NoError(t, err)

	assert.Equal(t, 1, sent)
	require.Len(t, repo.notifications, 2)
	assert.False(t, repo.notifications[0].Success)
	assert.Equal(t, "smtp down", repo.notifications[0].Error)
	assert.True(t, repo.notifications[1].Success)
}

func TestResolveAndSuppress(t *testing.T) {
	repo := newFakeRepo()
	e := newTestEngine(repo)

	open, _, err := e.Process(context.Background(), churnSignals(0.75))
	require.NoError(t, err)
	alert := open[0]

	require.NoError(t, e.Resolve(context.Background(), &alert))
	assert.Equal(t, domain.StatusResolved, alert.Status)
	require.NotNil(t, alert.ResolvedAt)
	assert.Equal(t, testNow, *alert.ResolvedAt)

	// Terminal states reject further transitions.
	assert.Error(t, e.Suppress(context.Background(), &alert))
}
