// Package alerting watches the derived scores for threshold crossings,
// creates and deduplicates alert records, runs the escalation state
// machine and dispatches best-effort notifications.
package alerting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/customer-intel/internal/config"
	"github.com/ignite/customer-intel/internal/domain"
	"github.com/ignite/customer-intel/internal/facts"
	"github.com/ignite/customer-intel/internal/pkg/distlock"
	"github.com/ignite/customer-intel/internal/pkg/logger"
)

// Repository is the persistence surface the engine needs. Alerts are
// never deleted; every state change is an update.
type Repository interface {
	// FindOpen returns the active or escalated alert for the dedup key,
	// or nil when none exists.
	FindOpen(ctx context.Context, customerID string, alertType domain.AlertType) (*domain.Alert, error)
	Insert(ctx context.Context, alert *domain.Alert) error
	Update(ctx context.Context, alert *domain.Alert) error
	RecordNotification(ctx context.Context, result domain.NotificationResult) error
}

// LockFactory builds a distributed lock for a dedup key. The alert dedup
// key (customer_id, alert_type) is the pipeline's only cross-request
// contention point.
type LockFactory func(key string, ttl time.Duration) distlock.DistLock

// Signals bundles one customer's freshly computed scores for evaluation.
type Signals struct {
	Window       *domain.ActivityWindow
	Churn        *domain.ChurnScore
	Segmentation *domain.SegmentationResult
	Activity     *domain.ActivityMetrics
	Dormancy     *domain.DormancyAssessment
	Sentiments   []domain.SentimentRecord
}

// Engine evaluates signals against the alert policy.
type Engine struct {
	thresholds config.AlertThresholds
	repo       Repository
	notifiers  []Notifier
	locks      LockFactory
	clock      facts.Clock
}

// NewEngine creates an alert engine.
func NewEngine(thresholds config.AlertThresholds, repo Repository, notifiers []Notifier, locks LockFactory, clock facts.Clock) *Engine {
	if clock == nil {
		clock = facts.SystemClock{}
	}
	return &Engine{
		thresholds: thresholds,
		repo:       repo,
		notifiers:  notifiers,
		locks:      locks,
		clock:      clock,
	}
}

// Evaluate applies every detection rule to the signals. Pure: it returns
// candidate alerts without touching storage.
func (e *Engine) Evaluate(s Signals) []domain.Alert {
	now := e.clock.Now()
	var alerts []domain.Alert

	if a := e.churnRule(s, now); a != nil {
		alerts = append(alerts, *a)
	}
	if a := e.sentimentSpikeRule(s, now); a != nil {
		alerts = append(alerts, *a)
	}
	if a := e.activityAnomalyRule(s, now); a != nil {
		alerts = append(alerts, *a)
	}
	if a := e.opportunityRule(s, now); a != nil {
		alerts = append(alerts, *a)
	}
	if a := e.dormancyRule(s, now); a != nil {
		alerts = append(alerts, *a)
	}
	return alerts
}

// Process evaluates, deduplicates, persists and notifies. Returns the
// alerts now open for the customer (created or refreshed) and the count
// of notifications successfully sent.
func (e *Engine) Process(ctx context.Context, s Signals) ([]domain.Alert, int, error) {
	detections := e.Evaluate(s)
	var out []domain.Alert
	var sent int

	for _, detection := range detections {
		stored, created, err := e.upsert(ctx, detection)
		if err != nil {
			return out, sent, fmt.Errorf("upsert %s alert for %s: %w", detection.Type, detection.CustomerID, err)
		}
		out = append(out, *stored)
		if created {
			sent += e.notify(ctx, *stored)
		}
	}
	return out, sent, nil
}

// upsert enforces the dedup invariant under the per-key lock: at most
// one open alert per (customer_id, alert_type). A repeat detection
// refreshes the existing record's metrics instead of duplicating it.
func (e *Engine) upsert(ctx context.Context, detection domain.Alert) (*domain.Alert, bool, error) {
	key := fmt.Sprintf("alert:%s:%s", detection.CustomerID, detection.Type)
	lock := e.locks(key, 30*time.Second)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire alert lock: %w", err)
	}
	if !acquired {
		// Another worker holds the key; it will land the same detection.
		logger.Warn("alert lock contended, skipping", "key", key)
		return &detection, false, nil
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			logger.Warn("alert lock release failed", "key", key, "error", err.Error())
		}
	}()

	existing, err := e.repo.FindOpen(ctx, detection.CustomerID, detection.Type)
	if err != nil {
		return nil, false, err
	}

	now := e.clock.Now()
	if existing != nil {
		existing.Metrics = detection.Metrics
		existing.Description = detection.Description
		existing.Severity = detection.Severity
		existing.RequiresEscalation = detection.RequiresEscalation
		existing.UpdatedAt = now
		if detection.RequiresEscalation && existing.Status == domain.StatusActive {
			if err := existing.Transition(domain.StatusEscalated, now); err != nil {
				return nil, false, err
			}
		}
		if err := e.repo.Update(ctx, existing); err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	detection.AlertID = uuid.New().String()
	detection.Status = domain.StatusActive
	detection.CreatedAt = now
	detection.UpdatedAt = now
	if detection.RequiresEscalation {
		if err := detection.Transition(domain.StatusEscalated, now); err != nil {
			return nil, false, err
		}
	}
	if err := e.repo.Insert(ctx, &detection); err != nil {
		return nil, false, err
	}
	return &detection, true, nil
}

// Resolve moves an alert to resolved, respecting the state machine.
func (e *Engine) Resolve(ctx context.Context, alert *domain.Alert) error {
	if err := alert.Transition(domain.StatusResolved, e.clock.Now()); err != nil {
		return err
	}
	return e.repo.Update(ctx, alert)
}

// Suppress moves an active alert to suppressed.
func (e *Engine) Suppress(ctx context.Context, alert *domain.Alert) error {
	if err := alert.Transition(domain.StatusSuppressed, e.clock.Now()); err != nil {
		return err
	}
	return e.repo.Update(ctx, alert)
}

// notify dispatches to every configured channel, recording per-channel
// outcomes. Failures never propagate: the alert record is the source of
// truth and delivery is best-effort.
func (e *Engine) notify(ctx context.Context, alert domain.Alert) int {
	var sent int
	for _, n := range e.notifiers {
		err := n.Send(ctx, alert)
		result := domain.NotificationResult{
			AlertID: alert.AlertID,
			Channel: n.Channel(),
			Success: err == nil,
			SentAt:  e.clock.Now(),
		}
		if err != nil {
			result.Error = err.Error()
			logger.Error("notification failed",
				"alert_id", alert.AlertID, "channel", string(n.Channel()), "error", err.Error())
		} else {
			sent++
		}
		if recErr := e.repo.RecordNotification(ctx, result); recErr != nil {
			logger.Error("notification record failed", "alert_id", alert.AlertID, "error", recErr.Error())
		}
	}
	return sent
}

func (e *Engine) churnRule(s Signals, now time.Time) *domain.Alert {
	if s.Churn == nil || s.Churn.ChurnProbability < e.thresholds.ChurnProbabilityHigh {
		return nil
	}
	severity := domain.SeverityHigh
	escalate := false
	if s.Churn.ChurnProbability >= e.thresholds.ChurnProbabilityCritical {
		severity = domain.SeverityCritical
		escalate = true
	}
	return &domain.Alert{
		CustomerID: s.Churn.CustomerID,
		Type:       domain.AlertChurnRisk,
		Severity:   severity,
		Description: fmt.Sprintf("churn probability %.2f exceeds %.2f threshold",
			s.Churn.ChurnProbability, e.thresholds.ChurnProbabilityHigh),
		Metrics: map[string]float64{
			"churn_probability": s.Churn.ChurnProbability,
			"risk_score":        s.Churn.RiskScore,
			"retention_score":   s.Churn.RetentionScore,
		},
		RequiresEscalation: escalate,
	}
}

func (e *Engine) sentimentSpikeRule(s Signals, now time.Time) *domain.Alert {
	window := now.Add(-time.Duration(e.thresholds.SentimentSpikeWindowHours) * time.Hour)

	// Window membership is the ticket's open time, not the batch-stamped
	// AnalyzedAt: a batch re-scores every ticket in the aggregation
	// window, so AnalyzedAt is always "now".
	var negatives int
	var sum float64
	var count int
	for _, r := range s.Sentiments {
		if r.TicketOpenedAt.Before(window) {
			continue
		}
		count++
		sum += r.SentimentScore
		if r.SentimentScore < 0 {
			negatives++
		}
	}
	if count == 0 || negatives < e.thresholds.SentimentSpikeCount {
		return nil
	}
	// The threshold itself triggers: an average of exactly -0.5 is a spike.
	average := sum / float64(count)
	if average > e.thresholds.SentimentSpikeAverage {
		return nil
	}

	severity := domain.SeverityMedium
	escalate := false
	if negatives >= e.thresholds.SentimentSpikeEscalate {
		severity = domain.SeverityHigh
		escalate = true
	}
	customerID := s.Sentiments[0].CustomerID
	return &domain.Alert{
		CustomerID: customerID,
		Type:       domain.AlertSentimentSpike,
		Severity:   severity,
		Description: fmt.Sprintf("%d negative support interactions in %dh (avg sentiment %.2f)",
			negatives, e.thresholds.SentimentSpikeWindowHours, average),
		Metrics: map[string]float64{
			"negative_count":    float64(negatives),
			"average_sentiment": average,
		},
		RequiresEscalation: escalate,
	}
}

func (e *Engine) activityAnomalyRule(s Signals, now time.Time) *domain.Alert {
	if s.Activity == nil || s.Activity.AnomalySeverity != "high" {
		return nil
	}
	return &domain.Alert{
		CustomerID:  s.Activity.CustomerID,
		Type:        domain.AlertActivityAnomaly,
		Severity:    domain.SeverityHigh,
		Description: "high-severity activity anomaly detected",
		Metrics: map[string]float64{
			"engagement_score": s.Activity.EngagementScore,
			"anomaly_count":    float64(len(s.Activity.Anomalies)),
		},
	}
}

// opportunityRule flags expansion candidates: strong growth potential on
// a customer not at churn risk. Medium severity, never escalates.
func (e *Engine) opportunityRule(s Signals, now time.Time) *domain.Alert {
	if s.Segmentation == nil || s.Churn == nil {
		return nil
	}
	if s.Segmentation.GrowthPotential <= 0.7 || s.Churn.ChurnProbability >= 0.3 {
		return nil
	}
	return &domain.Alert{
		CustomerID:  s.Segmentation.CustomerID,
		Type:        domain.AlertOpportunity,
		Severity:    domain.SeverityMedium,
		Description: fmt.Sprintf("expansion opportunity in segment %s", s.Segmentation.PrimarySegment),
		Metrics: map[string]float64{
			"growth_potential": s.Segmentation.GrowthPotential,
			"value_score":      s.Segmentation.ValueScore,
		},
	}
}

func (e *Engine) dormancyRule(s Signals, now time.Time) *domain.Alert {
	if s.Dormancy == nil {
		return nil
	}
	if s.Dormancy.Severity != domain.DormancySevere && s.Dormancy.Severity != domain.DormancyCritical {
		return nil
	}
	severity := domain.SeverityHigh
	if s.Dormancy.Severity == domain.DormancyCritical {
		severity = domain.SeverityCritical
	}
	return &domain.Alert{
		CustomerID: s.Dormancy.CustomerID,
		Type:       domain.AlertDormancy,
		Severity:   severity,
		Description: fmt.Sprintf("customer dormant %d days (%s), recommended campaign: %s",
			s.Dormancy.DaysInactive, s.Dormancy.Severity, s.Dormancy.RecommendedCampaign),
		Metrics: map[string]float64{
			"days_inactive":      float64(s.Dormancy.DaysInactive),
			"dormancy_score":     s.Dormancy.DormancyScore,
			"reactivation_score": s.Dormancy.ReactivationScore,
		},
	}
}
