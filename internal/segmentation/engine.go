// Package segmentation computes RFM scores, tier assignments and the
// composite value/engagement/loyalty/growth scores, and resolves the
// customer's primary segment label.
package segmentation

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ignite/customer-intel/internal/config"
	"github.com/ignite/customer-intel/internal/domain"
	"github.com/ignite/customer-intel/internal/facts"
)

// ColdStartSegment is the primary segment for customers with no facts.
const ColdStartSegment = "new_customer"

// Transaction cost is not recorded per-transaction; the operational
// system prices handling at roughly a tenth of transaction revenue.
const transactionCostRate = 0.10

// Engine computes segmentation results.
type Engine struct {
	weights config.SegmentationWeights
	clock   facts.Clock
}

// NewEngine creates a segmentation engine.
func NewEngine(weights config.SegmentationWeights, clock facts.Clock) *Engine {
	if clock == nil {
		clock = facts.SystemClock{}
	}
	return &Engine{weights: weights, clock: clock}
}

// Compute segments one customer's window. Churn may be nil; retention
// risk then falls back to the inverse of the engagement score.
func (e *Engine) Compute(w *domain.ActivityWindow, churn *domain.ChurnScore) *domain.SegmentationResult {
	now := e.clock.Now()

	if w.IsEmpty() {
		return &domain.SegmentationResult{
			CustomerID:        w.CustomerID,
			RFMScore:          1.0,
			RecencyScore:      1,
			FrequencyScore:    1,
			MonetaryScore:     1,
			VolumeTier:        domain.VolumeLow,
			ProfitabilityTier: domain.ProfitLow,
			BehavioralSegment: "inactive",
			LifecycleStage:    lifecycleStage(w.Profile.TenureDays(now), 0),
			PrimarySegment:    ColdStartSegment,
			ComputedAt:        now,
		}
	}

	r := recencyScore(w.DaysSinceLastActivity(now))
	f := frequencyScore(len(w.Shipments) + len(w.Transactions))
	m := monetaryScore(w.TotalRevenue())
	rfm := math.Round(float64(r+f+m)/3*10) / 10

	months := float64(w.PeriodDays) / 30.0
	monthlyRate := float64(len(w.Shipments)) / months
	vol := volumeTier(monthlyRate)
	prof := profitabilityTier(profitMargin(w))
	behavioral := behavioralSegment(w, monthlyRate)
	stage := lifecycleStage(w.Profile.TenureDays(now), len(w.Shipments))

	engagement := domain.Clamp01(e.weights.EngagementRecency*float64(r)/5 +
		e.weights.EngagementFrequency*float64(f)/5)

	value := domain.Clamp01(e.weights.ValueRFMWeight*rfm/5 +
		e.weights.ValueMonetaryWeight*float64(m)/5)

	loyalty := domain.Clamp01(e.weights.LoyaltyTenureWeight*tenureFactor(w.Profile.TenureDays(now)) +
		e.weights.LoyaltyOnTimeWeight*onTimeRate(w))

	growth := domain.Clamp01(e.weights.GrowthVolumeWeight*(1-domain.Clamp01(monthlyRate/200)) +
		e.weights.GrowthTrendWeight*engagement)

	retentionRisk := 1 - engagement
	if churn != nil {
		retentionRisk = churn.RiskScore
	}

	return &domain.SegmentationResult{
		CustomerID:        w.CustomerID,
		RFMScore:          rfm,
		RecencyScore:      r,
		FrequencyScore:    f,
		MonetaryScore:     m,
		VolumeTier:        vol,
		ProfitabilityTier: prof,
		BehavioralSegment: behavioral,
		LifecycleStage:    stage,
		ValueScore:        domain.Round4(value),
		EngagementScore:   domain.Round4(engagement),
		LoyaltyScore:      domain.Round4(loyalty),
		GrowthPotential:   domain.Round4(growth),
		RetentionRisk:     domain.Round4(retentionRisk),
		PrimarySegment:    ResolvePrimarySegment(vol, prof, behavioral),
		SecondarySegments: secondarySegments(vol, prof, behavioral, stage),
		ComputedAt:        now,
	}
}

// ResolvePrimarySegment applies the priority rules: enterprise+premium
// first, then enterprise by profitability, then premium by behavior,
// then volume by behavior. First match wins.
func ResolvePrimarySegment(vol domain.VolumeTier, prof domain.ProfitabilityTier, behavioral string) string {
	switch {
	case prof == domain.ProfitPremium && vol == domain.VolumeEnterprise:
		return "enterprise_premium"
	case vol == domain.VolumeEnterprise:
		return fmt.Sprintf("enterprise_%s", prof)
	case prof == domain.ProfitPremium:
		return fmt.Sprintf("premium_%s", behavioral)
	default:
		return fmt.Sprintf("%s_%s", vol, behavioral)
	}
}

func secondarySegments(vol domain.VolumeTier, prof domain.ProfitabilityTier, behavioral string, stage domain.LifecycleStage) []string {
	set := map[string]bool{
		fmt.Sprintf("volume_%s", vol):  true,
		fmt.Sprintf("profit_%s", prof): true,
		string(stage):                  true,
	}
	if behavioral != "" {
		set[behavioral] = true
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func profitMargin(w *domain.ActivityWindow) float64 {
	var revenue, cost float64
	for _, s := range w.Shipments {
		revenue += s.Revenue
		cost += s.Cost
	}
	for _, t := range w.Transactions {
		revenue += t.Amount
		cost += t.Amount * transactionCostRate
	}
	if revenue <= 0 {
		return 0
	}
	return (revenue - cost) / revenue
}

// behavioralSegment joins every qualifying label; none qualifying means a
// standard customer.
func behavioralSegment(w *domain.ActivityWindow, monthlyRate float64) string {
	if w.IsEmpty() {
		return "inactive"
	}

	var labels []string
	if avgOrderValue(w) > 1000 {
		labels = append(labels, "high_value_orders")
	}
	if monthlyRate > 4 {
		labels = append(labels, "frequent_shipper")
	}
	if monthlyCoV(w) > 0.5 {
		labels = append(labels, "seasonal_shipper")
	}
	if onTimeRate(w) > 0.9 {
		labels = append(labels, "reliable_customer")
	}
	if len(labels) == 0 {
		return "standard_customer"
	}
	return strings.Join(labels, "_")
}

func avgOrderValue(w *domain.ActivityWindow) float64 {
	if len(w.Transactions) == 0 {
		return 0
	}
	var total float64
	for _, t := range w.Transactions {
		total += t.Amount
	}
	return total / float64(len(w.Transactions))
}

// monthlyCoV is the coefficient of variation of per-month shipment counts
// across the window, the seasonality signal.
func monthlyCoV(w *domain.ActivityWindow) float64 {
	counts := map[string]int{}
	for _, s := range w.Shipments {
		counts[s.ShippedAt.Format("2006-01")]++
	}
	if len(counts) < 2 {
		return 0
	}

	var sum float64
	for _, c := range counts {
		sum += float64(c)
	}
	mean := sum / float64(len(counts))
	if mean == 0 {
		return 0
	}

	var variance float64
	for _, c := range counts {
		d := float64(c) - mean
		variance += d * d
	}
	variance /= float64(len(counts))
	return math.Sqrt(variance) / mean
}

func onTimeRate(w *domain.ActivityWindow) float64 {
	if len(w.Shipments) == 0 {
		return 0
	}
	var onTime int
	for _, s := range w.Shipments {
		if s.OnTime {
			onTime++
		}
	}
	return float64(onTime) / float64(len(w.Shipments))
}

func lifecycleStage(tenureDays, shipments int) domain.LifecycleStage {
	switch {
	case tenureDays <= 30:
		return domain.StageNew
	case tenureDays <= 90:
		return domain.StageTrial
	case tenureDays <= 180:
		return domain.StageGrowing
	case tenureDays >= 365 || shipments >= 50:
		return domain.StageEstablished
	default:
		return domain.StageGrowing
	}
}

func tenureFactor(tenureDays int) float64 {
	return domain.Clamp01(float64(tenureDays) / 730)
}
