// Package dormancy combines activity and churn outputs into a dormancy
// score, severity tier and reactivation recommendation.
package dormancy

import (
	"github.com/ignite/customer-intel/internal/config"
	"github.com/ignite/customer-intel/internal/domain"
	"github.com/ignite/customer-intel/internal/facts"
)

// Detector assesses customer dormancy.
type Detector struct {
	weights   config.DormancyWeights
	campaigns config.CampaignTiers
	threshold float64
	clock     facts.Clock
}

// NewDetector creates a dormancy detector. threshold is the reactivation
// score above which automated workflows may run.
func NewDetector(weights config.DormancyWeights, campaigns config.CampaignTiers, threshold float64, clock facts.Clock) *Detector {
	if clock == nil {
		clock = facts.SystemClock{}
	}
	return &Detector{weights: weights, campaigns: campaigns, threshold: threshold, clock: clock}
}

// Assess scores one customer's dormancy from the window plus the already
// computed activity and churn outputs.
func (d *Detector) Assess(w *domain.ActivityWindow, act *domain.ActivityMetrics, churn *domain.ChurnScore) *domain.DormancyAssessment {
	now := d.clock.Now()
	daysInactive := w.DaysSinceLastActivity(now)

	engagement := 0.0
	health := 0.0
	patternDecline := 0.0
	if act != nil {
		engagement = act.EngagementScore
		health = act.HealthScore
		if act.TrendDirection == domain.TrendDeclining {
			patternDecline = 1.0
		}
		for _, a := range act.Anomalies {
			if a == domain.AnomalyPattern {
				patternDecline = 1.0
			}
		}
	}

	churnRisk := 0.5
	if churn != nil {
		churnRisk = churn.RiskScore
	}

	// Inactivity normalizes against a half-year horizon.
	inactivity := domain.Clamp01(float64(daysInactive) / 180)

	score := d.weights.Inactivity*inactivity +
		d.weights.Engagement*(1-engagement) +
		d.weights.Health*(1-health) +
		d.weights.PatternDecline*patternDecline
	score = domain.Clamp01(score)

	severity := severityFor(daysInactive, score)
	urgency := urgencyFor(severity)

	lastValue := lastActivityValue(w)
	historicalValue := domain.Clamp01(w.TotalRevenue() / 100000)

	reactivation := d.weights.ReactValue*historicalValue +
		d.weights.ReactEngagement*engagement +
		d.weights.ReactResponse*d.weights.DefaultResponsiveness +
		d.weights.ReactChurn*(1-churnRisk)
	reactivation = domain.Clamp01(reactivation)

	tier := d.campaignTier(lastValue)

	return &domain.DormancyAssessment{
		CustomerID:           w.CustomerID,
		DaysInactive:         daysInactive,
		DormancyScore:        domain.Round4(score),
		Severity:             severity,
		ReactivationScore:    domain.Round4(reactivation),
		Urgency:              urgency,
		RecommendedCampaign:  tier.campaign,
		CampaignCostPerHead:  tier.cost,
		ExpectedReactivation: tier.expected,
		WorkflowEligible:     reactivation > d.threshold && urgency != "low",
		ComputedAt:           now,
	}
}

// severityFor combines days inactive with the blended score. Both gates
// must pass for the higher tiers.
func severityFor(daysInactive int, score float64) domain.DormancySeverity {
	switch {
	case daysInactive > 180 && score > 0.8:
		return domain.DormancyCritical
	case daysInactive > 120 && score > 0.6:
		return domain.DormancySevere
	case daysInactive > 90 && score > 0.4:
		return domain.DormancyModerate
	default:
		return domain.DormancyMild
	}
}

func urgencyFor(severity domain.DormancySeverity) string {
	switch severity {
	case domain.DormancyCritical, domain.DormancySevere:
		return "high"
	case domain.DormancyModerate:
		return "medium"
	default:
		return "low"
	}
}

type tierChoice struct {
	campaign domain.ReactivationCampaign
	cost     float64
	expected float64
}

func (d *Detector) campaignTier(lastValue float64) tierChoice {
	switch {
	case lastValue > d.campaigns.Premium.MinValue:
		return tierChoice{domain.CampaignPremiumPersonalized, d.campaigns.Premium.CostPerCustomer, d.campaigns.Premium.ExpectedReactivation}
	case lastValue > d.campaigns.Targeted.MinValue:
		return tierChoice{domain.CampaignTargetedEmailSeries, d.campaigns.Targeted.CostPerCustomer, d.campaigns.Targeted.ExpectedReactivation}
	default:
		return tierChoice{domain.CampaignMassEmail, d.campaigns.Mass.CostPerCustomer, d.campaigns.Mass.ExpectedReactivation}
	}
}

// lastActivityValue is the monetary value of the most recent shipment or
// transaction, the input to campaign tiering.
func lastActivityValue(w *domain.ActivityWindow) float64 {
	var value float64
	last := w.LastActivityAt()
	if last.IsZero() {
		return 0
	}
	for _, s := range w.Shipments {
		if s.ShippedAt.Equal(last) {
			value = s.Revenue
		}
	}
	for _, t := range w.Transactions {
		if t.OccurredAt.Equal(last) {
			value = t.Amount
		}
	}
	return value
}
