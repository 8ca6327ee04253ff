package dormancy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/customer-intel/internal/config"
	"github.com/ignite/customer-intel/internal/domain"
	"github.com/ignite/customer-intel/internal/facts"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestDetector() *Detector {
	cfg := config.Default()
	return NewDetector(cfg.Scoring.Dormancy, cfg.Campaigns, cfg.Alerts.ReactivationThreshold, facts.FrozenClock{T: testNow})
}

func windowWith(shipments ...domain.ShipmentFact) *domain.ActivityWindow {
	return &domain.ActivityWindow{
		CustomerID:   "C-100",
		PeriodDays:   90,
		WindowEnd:    testNow,
		Shipments:    shipments,
		Completeness: 1.0,
	}
}

func shipmentDaysAgo(days int, revenue float64) domain.ShipmentFact {
	return domain.ShipmentFact{
		ShipmentID: "S-1",
		CustomerID: "C-100",
		ShippedAt:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -days),
		Revenue:    revenue,
		Status:     domain.ShipmentDelivered,
	}
}

func TestAssessActiveCustomer(t *testing.T) {
	d := newTestDetector()

	act := &domain.ActivityMetrics{
		CustomerID:      "C-100",
		EngagementScore: 0.8,
		HealthScore:     0.8,
		TrendDirection:  domain.TrendStable,
	}
	churn := &domain.ChurnScore{CustomerID: "C-100", RiskScore: 0.2}

	got := d.Assess(windowWith(shipmentDaysAgo(5, 2000)), act, churn)
	require.NotNil(t, got)

	assert.Equal(t, 5, got.DaysInactive)
	assert.InDelta(t, 0.1011, got.DormancyScore, 0.0001)
	assert.Equal(t, domain.DormancyMild, got.Severity)
	assert.Equal(t, "low", got.Urgency)
	assert.InDelta(t, 0.467, got.ReactivationScore, 0.0001)
	assert.False(t, got.WorkflowEligible)
	assert.Equal(t, domain.CampaignTargetedEmailSeries, got.RecommendedCampaign)
	assert.Equal(t, 50.0, got.CampaignCostPerHead)
	assert.Equal(t, 0.15, got.ExpectedReactivation)
	assert.Equal(t, testNow, got.ComputedAt)
}

func TestAssessCriticalDormant(t *testing.T) {
	d := newTestDetector()

	act := &domain.ActivityMetrics{
		CustomerID:      "C-100",
		EngagementScore: 0.1,
		HealthScore:     0.05,
		TrendDirection:  domain.TrendDeclining,
	}
	churn := &domain.ChurnScore{CustomerID: "C-100", RiskScore: 0.9}

	got := d.Assess(windowWith(shipmentDaysAgo(200, 6000)), act, churn)

	assert.Equal(t, 200, got.DaysInactive)
	assert.InDelta(t, 0.965, got.DormancyScore, 0.0001)
	assert.Equal(t, domain.DormancyCritical, got.Severity)
	assert.Equal(t, "high", got.Urgency)
	assert.InDelta(t, 0.166, got.ReactivationScore, 0.0001)
	assert.False(t, got.WorkflowEligible)
	// High last-order value still earns the premium play.
	assert.Equal(t, domain.CampaignPremiumPersonalized, got.RecommendedCampaign)
	assert.Equal(t, 500.0, got.CampaignCostPerHead)
}

func TestAssessWorkflowEligible(t *testing.T) {
	d := newTestDetector()

	// Moderately dormant but valuable, engaged and low-risk: the profile
	// the automated win-back workflow is for.
	act := &domain.ActivityMetrics{
		CustomerID:      "C-100",
		EngagementScore: 0.6,
		HealthScore:     0.5,
		TrendDirection:  domain.TrendStable,
	}
	churn := &domain.ChurnScore{CustomerID: "C-100", RiskScore: 0.2}

	got := d.Assess(windowWith(
		shipmentDaysAgo(150, 94000),
		shipmentDaysAgo(95, 6000),
	), act, churn)

	assert.Equal(t, 95, got.DaysInactive)
	assert.Equal(t, domain.DormancyModerate, got.Severity)
	assert.Equal(t, "medium", got.Urgency)
	assert.InDelta(t, 0.75, got.ReactivationScore, 0.0001)
	assert.True(t, got.WorkflowEligible)
}

func TestAssessMissingInputs(t *testing.T) {
	d := newTestDetector()

	// Nil activity and churn fall back to worst-case engagement and a
	// 0.5 churn prior; an empty window saturates days inactive.
	got := d.Assess(windowWith(), nil, nil)

	assert.Equal(t, 91, got.DaysInactive)
	assert.InDelta(t, 0.6522, got.DormancyScore, 0.0001)
	assert.Equal(t, domain.DormancyModerate, got.Severity)
	assert.InDelta(t, 0.175, got.ReactivationScore, 0.0001)
	assert.False(t, got.WorkflowEligible)
	assert.Equal(t, domain.CampaignMassEmail, got.RecommendedCampaign)
}

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		name         string
		daysInactive int
		score        float64
		want         domain.DormancySeverity
	}{
		{"critical needs both gates", 181, 0.81, domain.DormancyCritical},
		{"high score alone is not critical", 100, 0.95, domain.DormancyModerate},
		{"long inactivity with mid score", 181, 0.8, domain.DormancySevere},
		{"severe band", 121, 0.65, domain.DormancySevere},
		{"moderate band", 91, 0.45, domain.DormancyModerate},
		{"moderate score gate", 91, 0.4, domain.DormancyMild},
		{"recent activity is mild regardless", 50, 0.9, domain.DormancyMild},
		{"long gap with low score", 200, 0.3, domain.DormancyMild},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := severityFor(tt.daysInactive, tt.score); got != tt.want {
				t.Errorf("severityFor(%d, %v) = %q, want %q", tt.daysInactive, tt.score, got, tt.want)
			}
		})
	}
}

func TestCampaignTierBands(t *testing.T) {
	d := newTestDetector()

	tests := []struct {
		lastValue float64
		want      domain.ReactivationCampaign
	}{
		{5001, domain.CampaignPremiumPersonalized},
		{5000, domain.CampaignTargetedEmailSeries},
		{1500, domain.CampaignTargetedEmailSeries},
		{1000, domain.CampaignMassEmail},
		{0, domain.CampaignMassEmail},
	}

	for _, tt := range tests {
		if got := d.campaignTier(tt.lastValue).campaign; got != tt.want {
			t.Errorf("campaignTier(%v) = %q, want %q", tt.lastValue, got, tt.want)
		}
	}
}

func TestLastActivityValue(t *testing.T) {
	w := windowWith(shipmentDaysAgo(30, 1200))
	w.Transactions = []domain.TransactionFact{{
		TransactionID: "TX-1",
		CustomerID:    "C-100",
		OccurredAt:    time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC),
		Amount:        800,
	}}

	// The transaction on Feb 20 is more recent than the Jan 30 shipment.
	assert.Equal(t, 800.0, lastActivityValue(w))

	assert.Zero(t, lastActivityValue(windowWith()))
}
