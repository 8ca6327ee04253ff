// Package activity computes engagement scores, activity patterns, trend
// direction and anomaly flags from the frequency, recency and volume of
// a customer's events.
package activity

import (
	"math"

	"github.com/ignite/customer-intel/internal/config"
	"github.com/ignite/customer-intel/internal/domain"
	"github.com/ignite/customer-intel/internal/facts"
)

// Anomaly severity ladder: frequency outliers dominate, then value
// outliers, otherwise none.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityNone   = "none"
)

// Monitor computes activity metrics.
type Monitor struct {
	weights config.ActivityWeights
	clock   facts.Clock
}

// NewMonitor creates an activity monitor.
func NewMonitor(weights config.ActivityWeights, clock facts.Clock) *Monitor {
	if clock == nil {
		clock = facts.SystemClock{}
	}
	return &Monitor{weights: weights, clock: clock}
}

// Compute derives activity metrics for one window. A window with no
// activity returns the fixed minimal-engagement record, distinguished by
// frequency_category "no_activity".
func (m *Monitor) Compute(w *domain.ActivityWindow) *domain.ActivityMetrics {
	now := m.clock.Now()

	if w.IsEmpty() {
		return &domain.ActivityMetrics{
			CustomerID:        w.CustomerID,
			EngagementScore:   0,
			FrequencyCategory: domain.FrequencyNoActivity,
			TrendDirection:    domain.TrendStable,
			AnomalySeverity:   SeverityNone,
			HealthScore:       0,
			ComputedAt:        now,
		}
	}

	events := len(w.Shipments) + len(w.Transactions)
	months := float64(w.PeriodDays) / 30.0
	if months <= 0 {
		months = 1
	}
	monthlyRate := float64(events) / months

	recency := 1 - domain.Clamp01(float64(w.DaysSinceLastActivity(now))/float64(w.PeriodDays))
	frequency := domain.Clamp01(monthlyRate / 30) // daily cadence saturates
	volume := domain.Clamp01(w.TotalRevenue() / 50000)
	consistency := 1 - domain.Clamp01(monthlyEventCoV(w))

	engagement := m.weights.Recency*recency +
		m.weights.Frequency*frequency +
		m.weights.Volume*volume +
		m.weights.Consistency*consistency

	anomalies := detectAnomalies(w)
	trend := trendDirection(w)

	health := domain.Clamp01(engagement * trendFactor(trend))

	return &domain.ActivityMetrics{
		CustomerID:        w.CustomerID,
		EngagementScore:   domain.Round4(domain.Clamp01(engagement)),
		FrequencyCategory: frequencyCategory(monthlyRate),
		TrendDirection:    trend,
		Anomalies:         anomalies,
		AnomalySeverity:   anomalySeverity(anomalies),
		HealthScore:       domain.Round4(health),
		ComputedAt:        now,
	}
}

func frequencyCategory(monthlyRate float64) domain.FrequencyCategory {
	switch {
	case monthlyRate >= 20:
		return domain.FrequencyDaily
	case monthlyRate >= 4:
		return domain.FrequencyWeekly
	case monthlyRate >= 1:
		return domain.FrequencyMonthly
	default:
		return domain.FrequencyOccasional
	}
}

// detectAnomalies flags months whose event count or average value sits
// more than two standard deviations from the customer's own mean, plus a
// pattern shift when the latest month collapses against the rest.
func detectAnomalies(w *domain.ActivityWindow) []domain.AnomalyType {
	counts := map[string]float64{}
	values := map[string]float64{}
	for _, s := range w.Shipments {
		k := s.ShippedAt.Format("2006-01")
		counts[k]++
		values[k] += s.Revenue
	}
	for _, t := range w.Transactions {
		k := t.OccurredAt.Format("2006-01")
		counts[k]++
		values[k] += t.Amount
	}
	if len(counts) < 3 {
		return nil
	}

	var anomalies []domain.AnomalyType
	if hasOutlier(mapValues(counts)) {
		anomalies = append(anomalies, domain.AnomalyFrequency)
	}
	if hasOutlier(mapValues(values)) {
		anomalies = append(anomalies, domain.AnomalyValue)
	}

	// Pattern shift: the latest month falls below a quarter of the mean
	// of the preceding months.
	latestKey := w.WindowEnd.Format("2006-01")
	if latest, ok := counts[latestKey]; ok {
		var rest, n float64
		for k, c := range counts {
			if k != latestKey {
				rest += c
				n++
			}
		}
		if n > 0 && latest < (rest/n)*0.25 {
			anomalies = append(anomalies, domain.AnomalyPattern)
		}
	}
	return anomalies
}

func anomalySeverity(anomalies []domain.AnomalyType) string {
	var hasFreq, hasValue bool
	for _, a := range anomalies {
		switch a {
		case domain.AnomalyFrequency:
			hasFreq = true
		case domain.AnomalyValue:
			hasValue = true
		}
	}
	switch {
	case hasFreq:
		return SeverityHigh
	case hasValue:
		return SeverityMedium
	default:
		return SeverityNone
	}
}

func trendDirection(w *domain.ActivityWindow) domain.TrendDirection {
	mid := w.WindowEnd.AddDate(0, 0, -w.PeriodDays/2)
	var early, late int
	for _, s := range w.Shipments {
		if s.ShippedAt.Before(mid) {
			early++
		} else {
			late++
		}
	}
	for _, t := range w.Transactions {
		if t.OccurredAt.Before(mid) {
			early++
		} else {
			late++
		}
	}

	switch {
	case late > early+early/10+1:
		return domain.TrendImproving
	case late < early-early/10-1:
		return domain.TrendDeclining
	default:
		return domain.TrendStable
	}
}

func trendFactor(trend domain.TrendDirection) float64 {
	switch trend {
	case domain.TrendImproving:
		return 1.1
	case domain.TrendDeclining:
		return 0.8
	default:
		return 1.0
	}
}

func monthlyEventCoV(w *domain.ActivityWindow) float64 {
	counts := map[string]int{}
	for _, s := range w.Shipments {
		counts[s.ShippedAt.Format("2006-01")]++
	}
	for _, t := range w.Transactions {
		counts[t.OccurredAt.Format("2006-01")]++
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

func mapValues(m map[string]float64) []float64 {
	out := make([]float64, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

func hasOutlier(xs []float64) bool {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var variance float64
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	variance /= float64(len(xs))
	sd := math.Sqrt(variance)
	if sd == 0 {
		return false
	}
	for _, x := range xs {
		if math.Abs(x-mean) > 2*sd {
			return true
		}
	}
	return false
}
