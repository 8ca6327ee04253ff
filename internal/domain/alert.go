package domain

import (
	"fmt"
	"time"
)

// AlertType enumerates the detections the alert engine raises.
type AlertType string

const (
	AlertChurnRisk       AlertType = "churn_risk"
	AlertSentimentSpike  AlertType = "sentiment_spike"
	AlertActivityAnomaly AlertType = "activity_anomaly"
	AlertOpportunity     AlertType = "opportunity"
	AlertDormancy        AlertType = "dormancy"
)

// AlertSeverity orders alerts for triage.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// AlertStatus is the alert lifecycle state. Transitions only move
// forward; resolved and suppressed are terminal.
type AlertStatus string

const (
	StatusActive     AlertStatus = "active"
	StatusEscalated  AlertStatus = "escalated"
	StatusResolved   AlertStatus = "resolved"
	StatusSuppressed AlertStatus = "suppressed"
)

// CanTransition reports whether the state machine permits moving from s
// to next. active -> {escalated, resolved, suppressed};
// escalated -> {resolved}; resolved and suppressed are terminal.
func (s AlertStatus) CanTransition(next AlertStatus) bool {
	switch s {
	case StatusActive:
		return next == StatusEscalated || next == StatusResolved || next == StatusSuppressed
	case StatusEscalated:
		return next == StatusResolved
	default:
		return false
	}
}

// IsOpen reports whether the alert still counts against the dedup key.
func (s AlertStatus) IsOpen() bool {
	return s == StatusActive || s == StatusEscalated
}

// Alert is an actionable record of a threshold crossing. Alerts are never
// deleted; resolution is a status change with a timestamp.
type Alert struct {
	AlertID            string             `json:"alert_id" db:"alert_id"`
	CustomerID         string             `json:"customer_id" db:"customer_id"`
	Type               AlertType          `json:"type" db:"type"`
	Severity           AlertSeverity      `json:"severity" db:"severity"`
	Description        string             `json:"description" db:"description"`
	Metrics            map[string]float64 `json:"metrics" db:"metrics"`
	Status             AlertStatus        `json:"status" db:"status"`
	RequiresEscalation bool               `json:"requires_escalation" db:"requires_escalation"`
	EscalationLevel    int                `json:"escalation_level" db:"escalation_level"`
	CreatedAt          time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at" db:"updated_at"`
	ResolvedAt         *time.Time         `json:"resolved_at,omitempty" db:"resolved_at"`
}

// Transition applies a status change, enforcing the forward-only machine.
func (a *Alert) Transition(next AlertStatus, at time.Time) error {
	if !a.Status.CanTransition(next) {
		return fmt.Errorf("alert %s: illegal transition %s -> %s", a.AlertID, a.Status, next)
	}
	a.Status = next
	a.UpdatedAt = at
	if next == StatusEscalated {
		a.EscalationLevel++
	}
	if next == StatusResolved || next == StatusSuppressed {
		t := at
		a.ResolvedAt = &t
	}
	return nil
}

// NotificationChannel enumerates configured delivery channels.
type NotificationChannel string

const (
	ChannelEmail NotificationChannel = "email"
	ChannelSlack NotificationChannel = "slack"
	ChannelSMS   NotificationChannel = "sms"
)

// NotificationResult records one delivery attempt for an alert. Delivery
// is best-effort; the alert record remains the source of truth.
type NotificationResult struct {
	AlertID   string              `json:"alert_id" db:"alert_id"`
	Channel   NotificationChannel `json:"channel" db:"channel"`
	Success   bool                `json:"success" db:"success"`
	Error     string              `json:"error,omitempty" db:"error"`
	SentAt    time.Time           `json:"sent_at" db:"sent_at"`
}
