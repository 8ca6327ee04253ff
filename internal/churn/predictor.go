// Package churn implements the fixed-weight churn scorecard. The weights
// are configuration, not a trained model; every score records the model
// version so weight changes are auditable across snapshot history.
package churn

import (
	"math"
	"sort"
	"time"

	"github.com/ignite/customer-intel/internal/config"
	"github.com/ignite/customer-intel/internal/domain"
	"github.com/ignite/customer-intel/internal/facts"
)

// Features are the model inputs extracted from one activity window.
type Features struct {
	// FrequencyRatio is the 30-day shipment rate over the 90-day rate,
	// clamped to [0,1]. 1.0 means no decline; the linear model scores
	// the complement (1 - ratio).
	FrequencyRatio        float64
	DaysSinceLastShipment int
	Complaints            int
	NegativeSentiment     int
	CreditUtilization     float64
	PaymentDelays         int
}

// Predictor computes churn scores from activity windows.
type Predictor struct {
	cfg   config.ChurnModelConfig
	clock facts.Clock
}

// NewPredictor creates a churn predictor with the given weight set.
func NewPredictor(cfg config.ChurnModelConfig, clock facts.Clock) *Predictor {
	if clock == nil {
		clock = facts.SystemClock{}
	}
	return &Predictor{cfg: cfg, clock: clock}
}

// Predict scores one customer's window. A window with no facts returns
// the documented cold-start default instead of an error.
func (p *Predictor) Predict(w *domain.ActivityWindow) *domain.ChurnScore {
	now := p.clock.Now()

	if w.IsEmpty() {
		return p.coldStart(w.CustomerID, now)
	}

	f := p.ExtractFeatures(w)
	probability := p.Probability(f)
	risk := p.riskScore(f, probability)
	retention := p.retentionScore(w, f, probability)
	primary, secondary := p.rankFactors(f)

	score := &domain.ChurnScore{
		CustomerID:       w.CustomerID,
		ChurnProbability: domain.Round4(probability),
		RiskScore:        domain.Round4(risk),
		RetentionScore:   domain.Round4(retention),
		PrimaryFactors:   primary,
		SecondaryFactors: secondary,
		Confidence:       domain.Round4(p.confidence(w)),
		ModelVersion:     p.cfg.Version,
		ComputedAt:       now,
	}

	if probability >= 0.3 {
		// Higher probability pulls the horizon in: 365 days at the
		// threshold down to 185 days at certainty.
		days := 365 - probability*180
		d := now.AddDate(0, 0, int(days))
		score.PredictedChurnDate = &d
	}

	return score
}

// ExtractFeatures derives the scorecard inputs from a window.
func (p *Predictor) ExtractFeatures(w *domain.ActivityWindow) Features {
	now := w.WindowEnd
	cut30 := now.AddDate(0, 0, -30)

	var recent, total int
	lastShipment := time.Time{}
	for _, s := range w.Shipments {
		total++
		if s.ShippedAt.After(cut30) {
			recent++
		}
		if s.ShippedAt.After(lastShipment) {
			lastShipment = s.ShippedAt
		}
	}

	// Rates are per-day; ratio 1.0 means the last 30 days kept pace with
	// the full window.
	ratio := 1.0
	if total > 0 {
		windowDays := float64(w.PeriodDays)
		if windowDays <= 0 {
			windowDays = facts.DefaultWindowDays
		}
		rate30 := float64(recent) / 30.0
		rateFull := float64(total) / windowDays
		if rateFull > 0 {
			ratio = domain.Clamp01(rate30 / rateFull)
		}
	}

	daysSince := w.PeriodDays + 1
	if !lastShipment.IsZero() {
		daysSince = int(now.Sub(lastShipment).Hours() / 24)
		if daysSince < 0 {
			daysSince = 0
		}
	}

	var complaints, negative, delays int
	for _, t := range w.Tickets {
		if t.IsComplaint {
			complaints++
		}
		if t.SentimentScore != nil && *t.SentimentScore < 0 {
			negative++
		}
	}
	for _, tx := range w.Transactions {
		if tx.PaidLate {
			delays++
		}
	}

	return Features{
		FrequencyRatio:        ratio,
		DaysSinceLastShipment: daysSince,
		Complaints:            complaints,
		NegativeSentiment:     negative,
		CreditUtilization:     w.Profile.CreditUtilization(),
		PaymentDelays:         delays,
	}
}

// Probability applies the linear scorecard and squashes through a sigmoid.
func (p *Predictor) Probability(f Features) float64 {
	return sigmoid(p.linear(f))
}

func (p *Predictor) linear(f Features) float64 {
	days := f.DaysSinceLastShipment
	if days > p.cfg.DaysSinceShipmentCap {
		days = p.cfg.DaysSinceShipmentCap
	}
	return p.cfg.FrequencyDeclineWeight*(1-f.FrequencyRatio) +
		p.cfg.DaysSinceShipmentWeight*float64(days) +
		p.cfg.ComplaintsWeight*float64(f.Complaints) +
		p.cfg.NegativeSentimentWeight*float64(f.NegativeSentiment) +
		p.cfg.CreditUtilizationWeight*f.CreditUtilization +
		p.cfg.PaymentDelaysWeight*float64(f.PaymentDelays)
}

// riskScore sums binary rule contributions plus half the probability,
// capped at 1.0.
func (p *Predictor) riskScore(f Features, probability float64) float64 {
	var risk float64
	if f.DaysSinceLastShipment > 30 {
		risk += p.cfg.InactivityContribution
	}
	if f.FrequencyRatio < 0.5 {
		risk += p.cfg.DeclineContribution
	}
	if f.Complaints > 2 {
		risk += p.cfg.ComplaintsContribution
	}
	if f.CreditUtilization > 0.7 {
		risk += p.cfg.UtilizationContribution
	}
	if f.PaymentDelays > 1 {
		risk += p.cfg.DelaysContribution
	}
	return domain.Clamp01(risk + 0.5*probability)
}

// retentionScore blends positive-activity indicators, minus a churn
// penalty, floored at zero.
func (p *Predictor) retentionScore(w *domain.ActivityWindow, f Features, probability float64) float64 {
	var onTime, shipped int
	for _, s := range w.Shipments {
		shipped++
		if s.OnTime {
			onTime++
		}
	}
	onTimeRate := 1.0
	if shipped > 0 {
		onTimeRate = float64(onTime) / float64(shipped)
	}

	recency := 1.0 - domain.Clamp01(float64(f.DaysSinceLastShipment)/float64(p.cfg.DaysSinceShipmentCap))
	cleanPayments := 1.0
	if len(w.Transactions) > 0 {
		cleanPayments = 1.0 - domain.Clamp01(float64(f.PaymentDelays)/float64(len(w.Transactions)))
	}

	retention := 0.4*f.FrequencyRatio + 0.3*recency + 0.2*onTimeRate + 0.1*cleanPayments - 0.3*probability
	if retention < 0 {
		return 0
	}
	return retention
}

// rankFactors orders factor codes by their contribution to the linear
// score. Factors above half the largest contribution are primary.
func (p *Predictor) rankFactors(f Features) ([]domain.ChurnFactor, []domain.ChurnFactor) {
	days := f.DaysSinceLastShipment
	if days > p.cfg.DaysSinceShipmentCap {
		days = p.cfg.DaysSinceShipmentCap
	}

	contribs := []struct {
		factor domain.ChurnFactor
		value  float64
	}{
		{domain.FactorFrequencyDecline, p.cfg.FrequencyDeclineWeight * (1 - f.FrequencyRatio)},
		{domain.FactorInactivity, p.cfg.DaysSinceShipmentWeight * float64(days)},
		{domain.FactorComplaints, p.cfg.ComplaintsWeight * float64(f.Complaints)},
		{domain.FactorNegativeSentiment, p.cfg.NegativeSentimentWeight * float64(f.NegativeSentiment)},
		{domain.FactorCreditPressure, p.cfg.CreditUtilizationWeight * f.CreditUtilization},
		{domain.FactorPaymentDelays, p.cfg.PaymentDelaysWeight * float64(f.PaymentDelays)},
	}
	sort.SliceStable(contribs, func(i, j int) bool { return contribs[i].value > contribs[j].value })

	var primary, secondary []domain.ChurnFactor
	if contribs[0].value <= 0 {
		return primary, secondary
	}
	cutoff := contribs[0].value * 0.5
	for _, c := range contribs {
		if c.value <= 0 {
			continue
		}
		if c.value >= cutoff {
			primary = append(primary, c.factor)
		} else {
			secondary = append(secondary, c.factor)
		}
	}
	return primary, secondary
}

// confidence scales with data completeness. Placeholder heuristic until a
// calibrated model replaces it; the floor and slope live in config via
// the cold-start value.
func (p *Predictor) confidence(w *domain.ActivityWindow) float64 {
	return domain.Clamp01(p.cfg.ColdStartConfidence + (1-p.cfg.ColdStartConfidence)*w.Completeness*0.7)
}

func (p *Predictor) coldStart(customerID string, now time.Time) *domain.ChurnScore {
	return &domain.ChurnScore{
		CustomerID:       customerID,
		ChurnProbability: p.cfg.ColdStartProbability,
		RiskScore:        p.cfg.ColdStartProbability,
		RetentionScore:   p.cfg.ColdStartRetention,
		PrimaryFactors:   []domain.ChurnFactor{domain.FactorInsufficientData},
		Confidence:       p.cfg.ColdStartConfidence,
		ModelVersion:     p.cfg.Version,
		ComputedAt:       now,
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
