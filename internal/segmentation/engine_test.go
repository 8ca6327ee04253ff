package segmentation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ignite/customer-intel/internal/config"
	"github.com/ignite/customer-intel/internal/domain"
	"github.com/ignite/customer-intel/internal/facts"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine() *Engine {
	return NewEngine(config.Default().Scoring.Segmentation, facts.FrozenClock{T: testNow})
}

func TestRecencyScore(t *testing.T) {
	tests := []struct {
		days int
		want int
	}{
		{0, 5},
		{30, 5},
		{31, 4},
		{60, 4},
		{61, 3},
		{120, 3},
		{121, 2},
		{180, 2},
		{181, 1},
		{400, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, recencyScore(tt.days), "days=%d", tt.days)
	}
}

func TestFrequencyScore(t *testing.T) {
	tests := []struct {
		count int
		want  int
	}{
		{0, 1},
		{4, 1},
		{5, 2},
		{9, 2},
		{10, 3},
		{20, 4},
		{49, 4},
		{50, 5},
		{500, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, frequencyScore(tt.count), "count=%d", tt.count)
	}
}

func TestMonetaryScore(t *testing.T) {
	tests := []struct {
		revenue float64
		want    int
	}{
		{0, 1},
		{4999, 1},
		{5000, 2},
		{10000, 3},
		{20000, 4},
		{50000, 5},
		{1e6, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, monetaryScore(tt.revenue), "revenue=%.0f", tt.revenue)
	}
}

func TestVolumeAndProfitabilityTiers(t *testing.T) {
	assert.Equal(t, domain.VolumeEnterprise, volumeTier(250))
	assert.Equal(t, domain.VolumeHigh, volumeTier(50))
	assert.Equal(t, domain.VolumeMedium, volumeTier(10))
	assert.Equal(t, domain.VolumeLow, volumeTier(9.9))

	assert.Equal(t, domain.ProfitPremium, profitabilityTier(0.30))
	assert.Equal(t, domain.ProfitHigh, profitabilityTier(0.15))
	assert.Equal(t, domain.ProfitMedium, profitabilityTier(0.08))
	assert.Equal(t, domain.ProfitLow, profitabilityTier(0.05))
}

func TestResolvePrimarySegment(t *testing.T) {
	tests := []struct {
		name       string
		vol        domain.VolumeTier
		prof       domain.ProfitabilityTier
		behavioral string
		want       string
	}{
		{"enterprise premium wins", domain.VolumeEnterprise, domain.ProfitPremium, "reliable_customer", "enterprise_premium"},
		{"enterprise by profitability", domain.VolumeEnterprise, domain.ProfitMedium, "standard_customer", "enterprise_medium"},
		{"premium by behavior", domain.VolumeMedium, domain.ProfitPremium, "frequent_shipper", "premium_frequent_shipper"},
		{"volume by behavior", domain.VolumeLow, domain.ProfitLow, "standard_customer", "low_standard_customer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolvePrimarySegment(tt.vol, tt.prof, tt.behavioral))
		})
	}
}

func TestComputeColdStart(t *testing.T) {
	e := newTestEngine()
	w := &domain.ActivityWindow{
		CustomerID: "C-1",
		PeriodDays: 90,
		WindowEnd:  testNow,
		Profile:    domain.CustomerProfile{CustomerID: "C-1", OnboardedAt: testNow.AddDate(0, 0, -10)},
	}

	got := e.Compute(w, nil)
	assert.Equal(t, ColdStartSegment, got.PrimarySegment)
	assert.Equal(t, "inactive", got.BehavioralSegment)
	assert.Equal(t, 1.0, got.RFMScore)
	assert.Equal(t, domain.StageNew, got.LifecycleStage)
}

func TestComputeEnterprisePremium(t *testing.T) {
	e := newTestEngine()
	// 700 shipments over ~3 months keeps the monthly rate above 200;
	// 40% margins put profitability in premium.
	var shipments []domain.ShipmentFact
	for i := 0; i < 700; i++ {
		shipments = append(shipments, domain.ShipmentFact{
			ShipmentID: "S",
			ShippedAt:  testNow.AddDate(0, 0, -(i % 85)),
			Revenue:    500,
			Cost:       300,
			Status:     domain.ShipmentDelivered,
			OnTime:     true,
		})
	}
	w := &domain.ActivityWindow{
		CustomerID:   "C-2",
		PeriodDays:   90,
		WindowEnd:    testNow,
		Profile:      domain.CustomerProfile{CustomerID: "C-2", OnboardedAt: testNow.AddDate(-3, 0, 0)},
		Shipments:    shipments,
		Completeness: 1.0,
	}

	got := e.Compute(w, nil)
	assert.Equal(t, domain.VolumeEnterprise, got.VolumeTier)
	assert.Equal(t, domain.ProfitPremium, got.ProfitabilityTier)
	assert.Equal(t, "enterprise_premium", got.PrimarySegment)
	assert.Equal(t, domain.StageEstablished, got.LifecycleStage)
	assert.Equal(t, 5, got.RecencyScore)
	assert.Equal(t, 5, got.FrequencyScore)
	assert.Equal(t, 5, got.MonetaryScore)
	assert.Equal(t, 5.0, got.RFMScore)
}

func TestComputeUsesChurnRiskWhenPresent(t *testing.T) {
	e := newTestEngine()
	w := &domain.ActivityWindow{
		CustomerID: "C-3",
		PeriodDays: 90,
		WindowEnd:  testNow,
		Profile:    domain.CustomerProfile{CustomerID: "C-3", OnboardedAt: testNow.AddDate(-1, 0, 0)},
		Shipments: []domain.ShipmentFact{
			{ShipmentID: "S1", ShippedAt: testNow.AddDate(0, 0, -5), Revenue: 800, Cost: 700, OnTime: true},
		},
		Completeness: 0.5,
	}

	withChurn := e.Compute(w, &domain.ChurnScore{RiskScore: 0.72})
	assert.Equal(t, 0.72, withChurn.RetentionRisk)

	withoutChurn := e.Compute(w, nil)
	assert.InDelta(t, 1-withoutChurn.EngagementScore, withoutChurn.RetentionRisk, 0.0001)
}

func TestBehavioralSegmentLabels(t *testing.T) {
	// Reliable on-time shipper with large orders.
	w := &domain.ActivityWindow{
		CustomerID: "C-4",
		PeriodDays: 90,
		WindowEnd:  testNow,
		Shipments: []domain.ShipmentFact{
			{ShippedAt: testNow.AddDate(0, 0, -1), Revenue: 100, Cost: 50, OnTime: true},
			{ShippedAt: testNow.AddDate(0, 0, -2), Revenue: 100, Cost: 50, OnTime: true},
		},
		Transactions: []domain.TransactionFact{
			{OccurredAt: testNow.AddDate(0, 0, -3), Amount: 2500},
		},
	}
	got := behavioralSegment(w, 0.7)
	assert.Equal(t, "high_value_orders_reliable_customer", got)

	empty := &domain.ActivityWindow{CustomerID: "C-5"}
	assert.Equal(t, "inactive", behavioralSegment(empty, 0))
}

func TestLifecycleStage(t *testing.T) {
	tests := []struct {
		tenure    int
		shipments int
		want      domain.LifecycleStage
	}{
		{10, 0, domain.StageNew},
		{45, 3, domain.StageTrial},
		{120, 10, domain.StageGrowing},
		{200, 10, domain.StageGrowing},
		{200, 60, domain.StageEstablished},
		{400, 2, domain.StageEstablished},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, lifecycleStage(tt.tenure, tt.shipments),
			"tenure=%d shipments=%d", tt.tenure, tt.shipments)
	}
}
