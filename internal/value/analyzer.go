// Package value computes average order value, the CLV family and price
// sensitivity from a customer's long (365-day) activity window.
package value

import (
	"math"

	"github.com/ignite/customer-intel/internal/config"
	"github.com/ignite/customer-intel/internal/domain"
	"github.com/ignite/customer-intel/internal/facts"
)

// Analyzer computes customer value metrics.
type Analyzer struct {
	cfg   config.ValueWeights
	clock facts.Clock
}

// NewAnalyzer creates a value analyzer.
func NewAnalyzer(cfg config.ValueWeights, clock facts.Clock) *Analyzer {
	if clock == nil {
		clock = facts.SystemClock{}
	}
	return &Analyzer{cfg: cfg, clock: clock}
}

// Analyze computes value metrics for one window. Churn may be nil; the
// retention probability then falls back to the configured default.
func (a *Analyzer) Analyze(w *domain.ActivityWindow, churn *domain.ChurnScore) *domain.ValueMetrics {
	now := a.clock.Now()

	aov := averageOrderValue(w)
	months := float64(w.PeriodDays) / 30.0
	if months <= 0 {
		months = 1
	}
	monthlyFrequency := float64(len(w.Transactions)) / months

	retention := a.cfg.DefaultRetention
	if churn != nil && churn.ChurnProbability > 0 {
		retention = 1 - churn.ChurnProbability
	}
	lifespan := a.lifespanMonths(w, churn)

	clvSimple := aov * monthlyFrequency * lifespan
	clvRetention := clvSimple * retention
	clvDiscounted := a.discounted(aov, monthlyFrequency, lifespan)
	predicted := clvDiscounted * retention

	return &domain.ValueMetrics{
		CustomerID:           w.CustomerID,
		AverageShipmentValue: round2(aov),
		CLVSimple:            round2(clvSimple),
		CLVRetentionAdjusted: round2(clvRetention),
		CLVDiscounted:        round2(clvDiscounted),
		// By convention the canonical total is the retention-adjusted
		// figure, not an accidental duplication.
		CLVTotal:         round2(clvRetention),
		PredictedCLV:     round2(predicted),
		LifespanMonths:   round2(lifespan),
		PriceSensitivity: a.priceSensitivity(w),
		GrowthTrajectory: string(growthTrajectory(w)),
		Confidence:       domain.Round4(a.confidence(w)),
		ComputedAt:       now,
	}
}

// averageOrderValue guards the divide: an empty window floors the count
// at one rather than erroring.
func averageOrderValue(w *domain.ActivityWindow) float64 {
	var total float64
	for _, t := range w.Transactions {
		total += t.Amount
	}
	count := len(w.Transactions)
	if count < 1 {
		count = 1
	}
	return total / float64(count)
}

// lifespanMonths estimates remaining relationship length. With a known
// churn probability the expectation is its inverse in years, uncapped;
// only the tenure fallback is clamped to the configured band.
func (a *Analyzer) lifespanMonths(w *domain.ActivityWindow, churn *domain.ChurnScore) float64 {
	if churn != nil && churn.ChurnProbability > 0 {
		return 1 / churn.ChurnProbability * 12
	}
	daysActive := w.Profile.TenureDays(w.WindowEnd)
	m := float64(daysActive) / 30
	if m < a.cfg.MinLifespanMonths {
		m = a.cfg.MinLifespanMonths
	}
	if m > a.cfg.MaxLifespanMonths {
		m = a.cfg.MaxLifespanMonths
	}
	return m
}

// discounted sums month-by-month cash flow at the monthly equivalent of
// the annual discount rate.
func (a *Analyzer) discounted(aov, monthlyFrequency, lifespanMonths float64) float64 {
	monthlyRate := math.Pow(1+a.cfg.AnnualDiscountRate, 1.0/12) - 1
	monthly := aov * monthlyFrequency

	var total float64
	for m := 1; m <= int(lifespanMonths); m++ {
		total += monthly / math.Pow(1+monthlyRate, float64(m))
	}
	return total
}

// priceSensitivity blends price variability, service-mix diversity and
// the volume/price relationship into a band.
func (a *Analyzer) priceSensitivity(w *domain.ActivityWindow) domain.PriceSensitivity {
	if len(w.Shipments) < 3 {
		return domain.SensitivityModerate
	}

	variability := revenueCoV(w)
	diversity := serviceMixDiversity(w)
	correlation := volumePriceCorrelation(w)

	score := 0.4*domain.Clamp01(variability) + 0.3*(1-diversity) + 0.3*domain.Clamp01(-correlation)
	switch {
	case score < 0.3:
		return domain.SensitivityInelastic
	case score < 0.6:
		return domain.SensitivityModerate
	default:
		return domain.SensitivityElastic
	}
}

func revenueCoV(w *domain.ActivityWindow) float64 {
	var sum float64
	for _, s := range w.Shipments {
		sum += s.Revenue
	}
	mean := sum / float64(len(w.Shipments))
	if mean == 0 {
		return 0
	}
	var variance float64
	for _, s := range w.Shipments {
		d := s.Revenue - mean
		variance += d * d
	}
	variance /= float64(len(w.Shipments))
	return math.Sqrt(variance) / mean
}

func serviceMixDiversity(w *domain.ActivityWindow) float64 {
	types := map[string]bool{}
	for _, s := range w.Shipments {
		if s.ServiceType != "" {
			types[s.ServiceType] = true
		}
	}
	// Four service classes in the product catalog.
	return domain.Clamp01(float64(len(types)) / 4)
}

// volumePriceCorrelation is the Pearson correlation between per-month
// shipment counts and per-month average revenue. Strongly negative means
// volume collapses when prices rise.
func volumePriceCorrelation(w *domain.ActivityWindow) float64 {
	counts := map[string]float64{}
	revenue := map[string]float64{}
	for _, s := range w.Shipments {
		k := s.ShippedAt.Format("2006-01")
		counts[k]++
		revenue[k] += s.Revenue
	}
	if len(counts) < 3 {
		return 0
	}

	var xs, ys []float64
	for k, c := range counts {
		xs = append(xs, c)
		ys = append(ys, revenue[k]/c)
	}
	return pearson(xs, ys)
}

func pearson(xs, ys []float64) float64 {
	n := float64(len(xs))
	var sx, sy float64
	for i := range xs {
		sx += xs[i]
		sy += ys[i]
	}
	mx, my := sx/n, sy/n

	var cov, vx, vy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return 0
	}
	return cov / math.Sqrt(vx*vy)
}

func growthTrajectory(w *domain.ActivityWindow) domain.TrendDirection {
	if len(w.Shipments)+len(w.Transactions) == 0 {
		return domain.TrendStable
	}
	mid := w.WindowEnd.AddDate(0, 0, -w.PeriodDays/2)

	var early, late float64
	for _, s := range w.Shipments {
		if s.ShippedAt.Before(mid) {
			early += s.Revenue
		} else {
			late += s.Revenue
		}
	}
	for _, t := range w.Transactions {
		if t.OccurredAt.Before(mid) {
			early += t.Amount
		} else {
			late += t.Amount
		}
	}

	switch {
	case late > early*1.1:
		return domain.TrendImproving
	case late < early*0.9:
		return domain.TrendDeclining
	default:
		return domain.TrendStable
	}
}

// confidence is the documented placeholder default scaled by window
// completeness, pending a calibrated estimate.
func (a *Analyzer) confidence(w *domain.ActivityWindow) float64 {
	return domain.Clamp01(a.cfg.DefaultConfidence * (0.5 + 0.5*w.Completeness))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
