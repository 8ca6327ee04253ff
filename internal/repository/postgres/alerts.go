package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ignite/customer-intel/internal/domain"
)

// AlertRepo persists alerts and their notification log. Implements
// alerting.Repository. Alerts are append-plus-update: rows are never
// deleted, resolution is a status change.
type AlertRepo struct{ db *sql.DB }

// NewAlertRepo creates a Postgres-backed alert repository.
func NewAlertRepo(db *sql.DB) *AlertRepo { return &AlertRepo{db: db} }

const alertColumns = `alert_id, customer_id, alert_type, severity, description,
	metrics, status, requires_escalation, escalation_level,
	created_at, updated_at, resolved_at`

func scanAlert(row interface{ Scan(...interface{}) error }) (*domain.Alert, error) {
	a := &domain.Alert{}
	var metricsJSON []byte
	var resolvedAt sql.NullTime
	err := row.Scan(&a.AlertID, &a.CustomerID, &a.Type, &a.Severity,
		&a.Description, &metricsJSON, &a.Status, &a.RequiresEscalation,
		&a.EscalationLevel, &a.CreatedAt, &a.UpdatedAt, &resolvedAt)
	if err != nil {
		return nil, err
	}
	if len(metricsJSON) > 0 {
		if err := json.Unmarshal(metricsJSON, &a.Metrics); err != nil {
			return nil, fmt.Errorf("decode alert metrics: %w", err)
		}
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		a.ResolvedAt = &t
	}
	return a, nil
}

// FindOpen returns the active or escalated alert for the dedup key
// (customer_id, alert_type), or nil when none is open.
func (r *AlertRepo) FindOpen(ctx context.Context, customerID string, alertType domain.AlertType) (*domain.Alert, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+alertColumns+`
		FROM alerts
		WHERE customer_id = $1 AND alert_type = $2
		  AND status IN ('active', 'escalated')
		ORDER BY created_at DESC
		LIMIT 1
	`, customerID, alertType)
	a, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find open alert: %w", err)
	}
	return a, nil
}

// Get returns one alert by ID, or nil when unknown.
func (r *AlertRepo) Get(ctx context.Context, alertID string) (*domain.Alert, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+alertColumns+` FROM alerts WHERE alert_id = $1
	`, alertID)
	a, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get alert: %w", err)
	}
	return a, nil
}

// Insert stores a new alert.
func (r *AlertRepo) Insert(ctx context.Context, a *domain.Alert) error {
	metricsJSON, err := json.Marshal(a.Metrics)
	if err != nil {
		return fmt.Errorf("encode alert metrics: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO alerts (
			alert_id, customer_id, alert_type, severity, description,
			metrics, status, requires_escalation, escalation_level,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, a.AlertID, a.CustomerID, a.Type, a.Severity, a.Description,
		metricsJSON, a.Status, a.RequiresEscalation, a.EscalationLevel,
		a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// Update persists a status or metrics change on an existing alert.
func (r *AlertRepo) Update(ctx context.Context, a *domain.Alert) error {
	metricsJSON, err := json.Marshal(a.Metrics)
	if err != nil {
		return fmt.Errorf("encode alert metrics: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE alerts SET
			severity = $2,
			description = $3,
			metrics = $4,
			status = $5,
			escalation_level = $6,
			updated_at = $7,
			resolved_at = $8
		WHERE alert_id = $1
	`, a.AlertID, a.Severity, a.Description, metricsJSON, a.Status,
		a.EscalationLevel, a.UpdatedAt, a.ResolvedAt)
	if err != nil {
		return fmt.Errorf("update alert: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update alert: %s not found", a.AlertID)
	}
	return nil
}

// RecordNotification appends one delivery attempt to the notification log.
func (r *AlertRepo) RecordNotification(ctx context.Context, n domain.NotificationResult) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO alert_notifications (alert_id, channel, success, error, sent_at)
		VALUES ($1, $2, $3, $4, $5)
	`, n.AlertID, n.Channel, n.Success, n.Error, n.SentAt)
	if err != nil {
		return fmt.Errorf("record notification: %w", err)
	}
	return nil
}

// ListOpen returns every active or escalated alert, optionally filtered
// by customer, newest first.
func (r *AlertRepo) ListOpen(ctx context.Context, customerID string, limit int) ([]domain.Alert, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE status IN ('active', 'escalated')`
	args := []interface{}{}
	if customerID != "" {
		query += ` AND customer_id = $1`
		args = append(args, customerID)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list open alerts: %w", err)
	}
	defer rows.Close()

	var out []domain.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}
