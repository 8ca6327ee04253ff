// Package satisfaction blends support, service, communication and value
// sub-scores into an overall satisfaction score, NPS category and root
// cause list.
package satisfaction

import (
	"fmt"
	"math"

	"github.com/ignite/customer-intel/internal/config"
	"github.com/ignite/customer-intel/internal/domain"
	"github.com/ignite/customer-intel/internal/facts"
)

// Sub-scores run 0-5 with 3.0 as the neutral baseline; signals move the
// needle from there.
const (
	neutralScore  = 3.0
	maxScore      = 5.0
	rootCauseBar  = 3.0
	trendUpFactor = 1.2
	trendDownFactor = 0.8
	volatilityFloor = 0.5
)

// Scorer computes satisfaction scores.
type Scorer struct {
	weights config.SatisfactionWeights
	clock   facts.Clock
}

// NewScorer creates a satisfaction scorer.
func NewScorer(weights config.SatisfactionWeights, clock facts.Clock) *Scorer {
	if clock == nil {
		clock = facts.SystemClock{}
	}
	return &Scorer{weights: weights, clock: clock}
}

// Score blends the four sub-scores for one customer. sentiments carries
// the analyzed records for the window's tickets; it may be empty.
func (s *Scorer) Score(w *domain.ActivityWindow, sentiments []domain.SentimentRecord) *domain.SatisfactionScore {
	support := supportScore(w, sentiments)
	service := serviceScore(w)
	communication := communicationScore(w)
	value := valueScore(w)

	overall := s.weights.Support*support +
		s.weights.Service*service +
		s.weights.Communication*communication +
		s.weights.Value*value

	nps := (overall - 3) * 25
	trend := sentimentTrend(sentiments)

	result := &domain.SatisfactionScore{
		CustomerID:          w.CustomerID,
		OverallSatisfaction: round2(overall),
		SupportScore:        round2(support),
		ServiceScore:        round2(service),
		CommunicationScore:  round2(communication),
		ValueScore:          round2(value),
		NPSScore:            round2(nps),
		NPSCategory:         npsCategory(nps),
		HealthScore:         domain.Round4(healthScore(overall, trend, sentiments)),
		ComputedAt:          s.clock.Now(),
	}

	if overall < rootCauseBar {
		result.RootCauses = rootCauses(support, service, communication, value)
	}
	return result
}

func npsCategory(nps float64) domain.NPSCategory {
	switch {
	case nps > 50:
		return domain.NPSPromoter
	case nps > 0:
		return domain.NPSPassive
	default:
		return domain.NPSDetractor
	}
}

// supportScore moves off neutral with analyzed ticket sentiment and the
// resolution rate. No tickets reads as neutral, not perfect.
func supportScore(w *domain.ActivityWindow, sentiments []domain.SentimentRecord) float64 {
	if len(w.Tickets) == 0 {
		return neutralScore
	}

	var avgSentiment float64
	if len(sentiments) > 0 {
		for _, r := range sentiments {
			avgSentiment += r.SentimentScore
		}
		avgSentiment /= float64(len(sentiments))
	}

	var resolved int
	for _, t := range w.Tickets {
		if t.ResolvedAt != nil {
			resolved++
		}
	}
	resolutionRate := float64(resolved) / float64(len(w.Tickets))

	return clampScore(neutralScore + avgSentiment*1.5 + (resolutionRate-0.5))
}

// serviceScore is driven by on-time delivery.
func serviceScore(w *domain.ActivityWindow) float64 {
	if len(w.Shipments) == 0 {
		return neutralScore
	}
	var onTime int
	for _, sh := range w.Shipments {
		if sh.OnTime {
			onTime++
		}
	}
	rate := float64(onTime) / float64(len(w.Shipments))
	// 90% on-time sits at neutral; perfect delivery earns the full band.
	return clampScore(neutralScore + (rate-0.9)*10)
}

// communicationScore is driven by how quickly tickets get resolved.
func communicationScore(w *domain.ActivityWindow) float64 {
	var totalHours float64
	var resolved int
	for _, t := range w.Tickets {
		if t.ResolvedAt == nil {
			continue
		}
		resolved++
		totalHours += t.ResolvedAt.Sub(t.OpenedAt).Hours()
	}
	if resolved == 0 {
		return neutralScore
	}
	avgHours := totalHours / float64(resolved)
	switch {
	case avgHours <= 4:
		return maxScore
	case avgHours <= 24:
		return 4.0
	case avgHours <= 72:
		return neutralScore
	default:
		return 2.0
	}
}

// valueScore proxies perceived value with payment behavior: customers who
// pay on time are not disputing what they are charged.
func valueScore(w *domain.ActivityWindow) float64 {
	if len(w.Transactions) == 0 {
		return neutralScore
	}
	var late int
	for _, t := range w.Transactions {
		if t.PaidLate {
			late++
		}
	}
	lateRate := float64(late) / float64(len(w.Transactions))
	return clampScore(neutralScore + (0.2-lateRate)*5)
}

func sentimentTrend(sentiments []domain.SentimentRecord) domain.TrendDirection {
	if len(sentiments) < 2 {
		return domain.TrendStable
	}
	mid := len(sentiments) / 2
	var early, late float64
	for i, r := range sentiments {
		if i < mid {
			early += r.SentimentScore
		} else {
			late += r.SentimentScore
		}
	}
	early /= float64(mid)
	late /= float64(len(sentiments) - mid)

	switch {
	case late > early+0.1:
		return domain.TrendImproving
	case late < early-0.1:
		return domain.TrendDeclining
	default:
		return domain.TrendStable
	}
}

// healthScore is normalized satisfaction shaped by trend and volatility.
func healthScore(overall float64, trend domain.TrendDirection, sentiments []domain.SentimentRecord) float64 {
	normalized := overall / maxScore

	factor := 1.0
	switch trend {
	case domain.TrendImproving:
		factor = trendUpFactor
	case domain.TrendDeclining:
		factor = trendDownFactor
	}

	penalty := 1 - sentimentVolatility(sentiments)
	if penalty < volatilityFloor {
		penalty = volatilityFloor
	}

	return domain.Clamp01(normalized * factor * penalty)
}

func sentimentVolatility(sentiments []domain.SentimentRecord) float64 {
	if len(sentiments) < 2 {
		return 0
	}
	var sum float64
	for _, r := range sentiments {
		sum += r.SentimentScore
	}
	mean := sum / float64(len(sentiments))
	var variance float64
	for _, r := range sentiments {
		d := r.SentimentScore - mean
		variance += d * d
	}
	variance /= float64(len(sentiments))
	return math.Sqrt(variance)
}

func rootCauses(support, service, communication, value float64) []string {
	var causes []string
	for _, c := range []struct {
		name  string
		score float64
	}{
		{"support", support},
		{"service", service},
		{"communication", communication},
		{"value", value},
	} {
		if c.score < rootCauseBar {
			causes = append(causes, fmt.Sprintf("%s_below_threshold", c.name))
		}
	}
	return causes
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > maxScore {
		return maxScore
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
