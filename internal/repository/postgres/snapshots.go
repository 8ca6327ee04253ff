package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/ignite/customer-intel/internal/domain"
)

// SnapshotRepo persists dated score snapshots. Each entity upserts on
// (customer_id, computation_date) so re-running a batch for the same day
// is last-writer-wins instead of a duplicate row.
type SnapshotRepo struct{ db *sql.DB }

// NewSnapshotRepo creates a Postgres-backed snapshot repository.
func NewSnapshotRepo(db *sql.DB) *SnapshotRepo { return &SnapshotRepo{db: db} }

// SaveChurn upserts one churn computation.
func (r *SnapshotRepo) SaveChurn(ctx context.Context, s *domain.ChurnScore) error {
	primary := make([]string, 0, len(s.PrimaryFactors))
	for _, f := range s.PrimaryFactors {
		primary = append(primary, string(f))
	}
	secondary := make([]string, 0, len(s.SecondaryFactors))
	for _, f := range s.SecondaryFactors {
		secondary = append(secondary, string(f))
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO churn_scores (
			customer_id, computation_date, churn_probability, risk_score,
			retention_score, primary_factors, secondary_factors,
			predicted_churn_date, confidence, model_version, computed_at
		) VALUES ($1, $2::date, $3, $4, $5, $6, $7, $8, $9, $10, $2)
		ON CONFLICT (customer_id, computation_date) DO UPDATE SET
			churn_probability = EXCLUDED.churn_probability,
			risk_score = EXCLUDED.risk_score,
			retention_score = EXCLUDED.retention_score,
			primary_factors = EXCLUDED.primary_factors,
			secondary_factors = EXCLUDED.secondary_factors,
			predicted_churn_date = EXCLUDED.predicted_churn_date,
			confidence = EXCLUDED.confidence,
			model_version = EXCLUDED.model_version,
			computed_at = EXCLUDED.computed_at
	`, s.CustomerID, s.ComputedAt, s.ChurnProbability, s.RiskScore,
		s.RetentionScore, pq.Array(primary), pq.Array(secondary),
		s.PredictedChurnDate, s.Confidence, s.ModelVersion)
	if err != nil {
		return fmt.Errorf("save churn score: %w", err)
	}
	return nil
}

// Latest returns the most recent churn snapshot for a customer, or nil
// when the customer has never been scored. Satisfies
// facts.ChurnHistoryRepository.
func (r *SnapshotRepo) Latest(ctx context.Context, customerID string) (*domain.ChurnScore, error) {
	s := &domain.ChurnScore{}
	var primary, secondary []string
	var predicted sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT customer_id, churn_probability, risk_score, retention_score,
		       primary_factors, secondary_factors, predicted_churn_date,
		       confidence, model_version, computed_at
		FROM churn_scores
		WHERE customer_id = $1
		ORDER BY computed_at DESC
		LIMIT 1
	`, customerID).Scan(&s.CustomerID, &s.ChurnProbability, &s.RiskScore,
		&s.RetentionScore, pq.Array(&primary), pq.Array(&secondary),
		&predicted, &s.Confidence, &s.ModelVersion, &s.ComputedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest churn score: %w", err)
	}
	for _, f := range primary {
		s.PrimaryFactors = append(s.PrimaryFactors, domain.ChurnFactor(f))
	}
	for _, f := range secondary {
		s.SecondaryFactors = append(s.SecondaryFactors, domain.ChurnFactor(f))
	}
	if predicted.Valid {
		t := predicted.Time
		s.PredictedChurnDate = &t
	}
	return s, nil
}

// HighRisk lists the latest churn snapshot per customer with probability
// at or above the threshold, highest risk first.
func (r *SnapshotRepo) HighRisk(ctx context.Context, minProbability float64, limit int) ([]domain.ChurnScore, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT customer_id, churn_probability, risk_score, retention_score,
		       primary_factors, secondary_factors, predicted_churn_date,
		       confidence, model_version, computed_at
		FROM (
			SELECT DISTINCT ON (customer_id) *
			FROM churn_scores
			ORDER BY customer_id, computed_at DESC
		) latest
		WHERE churn_probability >= $1
		ORDER BY churn_probability DESC
		LIMIT $2
	`, minProbability, limit)
	if err != nil {
		return nil, fmt.Errorf("query high risk: %w", err)
	}
	defer rows.Close()

	var out []domain.ChurnScore
	for rows.Next() {
		var s domain.ChurnScore
		var primary, secondary []string
		var predicted sql.NullTime
		if err := rows.Scan(&s.CustomerID, &s.ChurnProbability, &s.RiskScore,
			&s.RetentionScore, pq.Array(&primary), pq.Array(&secondary),
			&predicted, &s.Confidence, &s.ModelVersion, &s.ComputedAt); err != nil {
			return nil, fmt.Errorf("scan churn score: %w", err)
		}
		for _, f := range primary {
			s.PrimaryFactors = append(s.PrimaryFactors, domain.ChurnFactor(f))
		}
		for _, f := range secondary {
			s.SecondaryFactors = append(s.SecondaryFactors, domain.ChurnFactor(f))
		}
		if predicted.Valid {
			t := predicted.Time
			s.PredictedChurnDate = &t
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SaveSegmentation upserts one segmentation computation.
func (r *SnapshotRepo) SaveSegmentation(ctx context.Context, s *domain.SegmentationResult) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO segmentation_results (
			customer_id, computation_date, rfm_score, recency_score,
			frequency_score, monetary_score, volume_tier, profitability_tier,
			behavioral_segment, lifecycle_stage, value_score, engagement_score,
			loyalty_score, growth_potential, retention_risk, primary_segment,
			secondary_segments, computed_at
		) VALUES ($1, $2::date, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
		          $13, $14, $15, $16, $17, $2)
		ON CONFLICT (customer_id, computation_date) DO UPDATE SET
			rfm_score = EXCLUDED.rfm_score,
			recency_score = EXCLUDED.recency_score,
			frequency_score = EXCLUDED.frequency_score,
			monetary_score = EXCLUDED.monetary_score,
			volume_tier = EXCLUDED.volume_tier,
			profitability_tier = EXCLUDED.profitability_tier,
			behavioral_segment = EXCLUDED.behavioral_segment,
			lifecycle_stage = EXCLUDED.lifecycle_stage,
			value_score = EXCLUDED.value_score,
			engagement_score = EXCLUDED.engagement_score,
			loyalty_score = EXCLUDED.loyalty_score,
			growth_potential = EXCLUDED.growth_potential,
			retention_risk = EXCLUDED.retention_risk,
			primary_segment = EXCLUDED.primary_segment,
			secondary_segments = EXCLUDED.secondary_segments,
			computed_at = EXCLUDED.computed_at
	`, s.CustomerID, s.ComputedAt, s.RFMScore, s.RecencyScore,
		s.FrequencyScore, s.MonetaryScore, s.VolumeTier, s.ProfitabilityTier,
		s.BehavioralSegment, s.LifecycleStage, s.ValueScore, s.EngagementScore,
		s.LoyaltyScore, s.GrowthPotential, s.RetentionRisk, s.PrimarySegment,
		pq.Array(s.SecondarySegments))
	if err != nil {
		return fmt.Errorf("save segmentation: %w", err)
	}
	return nil
}

// LatestSegmentation returns the most recent segmentation snapshot, or nil.
func (r *SnapshotRepo) LatestSegmentation(ctx context.Context, customerID string) (*domain.SegmentationResult, error) {
	s := &domain.SegmentationResult{}
	var secondary []string
	err := r.db.QueryRowContext(ctx, `
		SELECT customer_id, rfm_score, recency_score, frequency_score,
		       monetary_score, volume_tier, profitability_tier,
		       behavioral_segment, lifecycle_stage, value_score,
		       engagement_score, loyalty_score, growth_potential,
		       retention_risk, primary_segment, secondary_segments, computed_at
		FROM segmentation_results
		WHERE customer_id = $1
		ORDER BY computed_at DESC
		LIMIT 1
	`, customerID).Scan(&s.CustomerID, &s.RFMScore, &s.RecencyScore,
		&s.FrequencyScore, &s.MonetaryScore, &s.VolumeTier, &s.ProfitabilityTier,
		&s.BehavioralSegment, &s.LifecycleStage, &s.ValueScore,
		&s.EngagementScore, &s.LoyaltyScore, &s.GrowthPotential,
		&s.RetentionRisk, &s.PrimarySegment, pq.Array(&secondary), &s.ComputedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest segmentation: %w", err)
	}
	s.SecondarySegments = secondary
	return s, nil
}

// SegmentCounts returns the number of customers per primary segment,
// computed over the latest snapshot of each customer.
func (r *SnapshotRepo) SegmentCounts(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT primary_segment, COUNT(*)
		FROM (
			SELECT DISTINCT ON (customer_id) customer_id, primary_segment
			FROM segmentation_results
			ORDER BY customer_id, computed_at DESC
		) latest
		GROUP BY primary_segment
	`)
	if err != nil {
		return nil, fmt.Errorf("query segment counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var segment string
		var n int
		if err := rows.Scan(&segment, &n); err != nil {
			return nil, fmt.Errorf("scan segment count: %w", err)
		}
		counts[segment] = n
	}
	return counts, rows.Err()
}

// SaveValue upserts one value computation.
func (r *SnapshotRepo) SaveValue(ctx context.Context, v *domain.ValueMetrics) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO value_metrics (
			customer_id, computation_date, average_shipment_value, clv_simple,
			clv_retention_adjusted, clv_discounted, clv_total, predicted_clv,
			lifespan_months, price_sensitivity, growth_trajectory, confidence,
			computed_at
		) VALUES ($1, $2::date, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $2)
		ON CONFLICT (customer_id, computation_date) DO UPDATE SET
			average_shipment_value = EXCLUDED.average_shipment_value,
			clv_simple = EXCLUDED.clv_simple,
			clv_retention_adjusted = EXCLUDED.clv_retention_adjusted,
			clv_discounted = EXCLUDED.clv_discounted,
			clv_total = EXCLUDED.clv_total,
			predicted_clv = EXCLUDED.predicted_clv,
			lifespan_months = EXCLUDED.lifespan_months,
			price_sensitivity = EXCLUDED.price_sensitivity,
			growth_trajectory = EXCLUDED.growth_trajectory,
			confidence = EXCLUDED.confidence,
			computed_at = EXCLUDED.computed_at
	`, v.CustomerID, v.ComputedAt, v.AverageShipmentValue, v.CLVSimple,
		v.CLVRetentionAdjusted, v.CLVDiscounted, v.CLVTotal, v.PredictedCLV,
		v.LifespanMonths, v.PriceSensitivity, v.GrowthTrajectory, v.Confidence)
	if err != nil {
		return fmt.Errorf("save value metrics: %w", err)
	}
	return nil
}

// LatestValue returns the most recent value snapshot, or nil.
func (r *SnapshotRepo) LatestValue(ctx context.Context, customerID string) (*domain.ValueMetrics, error) {
	v := &domain.ValueMetrics{}
	err := r.db.QueryRowContext(ctx, `
		SELECT customer_id, average_shipment_value, clv_simple,
		       clv_retention_adjusted, clv_discounted, clv_total, predicted_clv,
		       lifespan_months, price_sensitivity, growth_trajectory,
		       confidence, computed_at
		FROM value_metrics
		WHERE customer_id = $1
		ORDER BY computed_at DESC
		LIMIT 1
	`, customerID).Scan(&v.CustomerID, &v.AverageShipmentValue, &v.CLVSimple,
		&v.CLVRetentionAdjusted, &v.CLVDiscounted, &v.CLVTotal, &v.PredictedCLV,
		&v.LifespanMonths, &v.PriceSensitivity, &v.GrowthTrajectory,
		&v.Confidence, &v.ComputedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest value metrics: %w", err)
	}
	return v, nil
}

// TopByValue lists the highest-CLV customers over latest snapshots.
func (r *SnapshotRepo) TopByValue(ctx context.Context, limit int) ([]domain.ValueMetrics, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT customer_id, average_shipment_value, clv_simple,
		       clv_retention_adjusted, clv_discounted, clv_total, predicted_clv,
		       lifespan_months, price_sensitivity, growth_trajectory,
		       confidence, computed_at
		FROM (
			SELECT DISTINCT ON (customer_id) *
			FROM value_metrics
			ORDER BY customer_id, computed_at DESC
		) latest
		ORDER BY clv_total DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query top value: %w", err)
	}
	defer rows.Close()

	var out []domain.ValueMetrics
	for rows.Next() {
		var v domain.ValueMetrics
		if err := rows.Scan(&v.CustomerID, &v.AverageShipmentValue, &v.CLVSimple,
			&v.CLVRetentionAdjusted, &v.CLVDiscounted, &v.CLVTotal, &v.PredictedCLV,
			&v.LifespanMonths, &v.PriceSensitivity, &v.GrowthTrajectory,
			&v.Confidence, &v.ComputedAt); err != nil {
			return nil, fmt.Errorf("scan value metrics: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// SaveSentiment upserts one ticket's sentiment. Keyed by ticket: a
// re-analysis overwrites rather than duplicating.
func (r *SnapshotRepo) SaveSentiment(ctx context.Context, s *domain.SentimentRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sentiment_records (
			ticket_id, customer_id, ticket_opened_at, sentiment_score,
			confidence, primary_emotion, nps_score, feedback_category,
			keywords, source, analyzed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (ticket_id) DO UPDATE SET
			ticket_opened_at = EXCLUDED.ticket_opened_at,
			sentiment_score = EXCLUDED.sentiment_score,
			confidence = EXCLUDED.confidence,
			primary_emotion = EXCLUDED.primary_emotion,
			nps_score = EXCLUDED.nps_score,
			feedback_category = EXCLUDED.feedback_category,
			keywords = EXCLUDED.keywords,
			source = EXCLUDED.source,
			analyzed_at = EXCLUDED.analyzed_at
	`, s.TicketID, s.CustomerID, s.TicketOpenedAt, s.SentimentScore,
		s.Confidence, s.PrimaryEmotion, s.NPSScore, s.Category,
		pq.Array(s.Keywords), s.Source, s.AnalyzedAt)
	if err != nil {
		return fmt.Errorf("save sentiment: %w", err)
	}
	return nil
}

// SaveSatisfaction upserts one satisfaction computation.
func (r *SnapshotRepo) SaveSatisfaction(ctx context.Context, s *domain.SatisfactionScore) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO satisfaction_scores (
			customer_id, computation_date, overall_satisfaction, support_score,
			service_score, communication_score, value_score, nps_score,
			nps_category, health_score, root_causes, computed_at
		) VALUES ($1, $2::date, $3, $4, $5, $6, $7, $8, $9, $10, $11, $2)
		ON CONFLICT (customer_id, computation_date) DO UPDATE SET
			overall_satisfaction = EXCLUDED.overall_satisfaction,
			support_score = EXCLUDED.support_score,
			service_score = EXCLUDED.service_score,
			communication_score = EXCLUDED.communication_score,
			value_score = EXCLUDED.value_score,
			nps_score = EXCLUDED.nps_score,
			nps_category = EXCLUDED.nps_category,
			health_score = EXCLUDED.health_score,
			root_causes = EXCLUDED.root_causes,
			computed_at = EXCLUDED.computed_at
	`, s.CustomerID, s.ComputedAt, s.OverallSatisfaction, s.SupportScore,
		s.ServiceScore, s.CommunicationScore, s.ValueScore, s.NPSScore,
		s.NPSCategory, s.HealthScore, pq.Array(s.RootCauses))
	if err != nil {
		return fmt.Errorf("save satisfaction: %w", err)
	}
	return nil
}

// LatestSatisfaction returns the most recent satisfaction snapshot, or nil.
func (r *SnapshotRepo) LatestSatisfaction(ctx context.Context, customerID string) (*domain.SatisfactionScore, error) {
	s := &domain.SatisfactionScore{}
	var causes []string
	err := r.db.QueryRowContext(ctx, `
		SELECT customer_id, overall_satisfaction, support_score, service_score,
		       communication_score, value_score, nps_score, nps_category,
		       health_score, root_causes, computed_at
		FROM satisfaction_scores
		WHERE customer_id = $1
		ORDER BY computed_at DESC
		LIMIT 1
	`, customerID).Scan(&s.CustomerID, &s.OverallSatisfaction, &s.SupportScore,
		&s.ServiceScore, &s.CommunicationScore, &s.ValueScore, &s.NPSScore,
		&s.NPSCategory, &s.HealthScore, pq.Array(&causes), &s.ComputedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest satisfaction: %w", err)
	}
	s.RootCauses = causes
	return s, nil
}

// SaveActivity upserts one activity computation.
func (r *SnapshotRepo) SaveActivity(ctx context.Context, m *domain.ActivityMetrics) error {
	anomalies := make([]string, 0, len(m.Anomalies))
	for _, a := range m.Anomalies {
		anomalies = append(anomalies, string(a))
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO activity_metrics (
			customer_id, computation_date, engagement_score, frequency_category,
			trend_direction, anomalies, anomaly_severity, health_score,
			computed_at
		) VALUES ($1, $2::date, $3, $4, $5, $6, $7, $8, $2)
		ON CONFLICT (customer_id, computation_date) DO UPDATE SET
			engagement_score = EXCLUDED.engagement_score,
			frequency_category = EXCLUDED.frequency_category,
			trend_direction = EXCLUDED.trend_direction,
			anomalies = EXCLUDED.anomalies,
			anomaly_severity = EXCLUDED.anomaly_severity,
			health_score = EXCLUDED.health_score,
			computed_at = EXCLUDED.computed_at
	`, m.CustomerID, m.ComputedAt, m.EngagementScore, m.FrequencyCategory,
		m.TrendDirection, pq.Array(anomalies), m.AnomalySeverity, m.HealthScore)
	if err != nil {
		return fmt.Errorf("save activity metrics: %w", err)
	}
	return nil
}

// LatestActivity returns the most recent activity snapshot, or nil.
func (r *SnapshotRepo) LatestActivity(ctx context.Context, customerID string) (*domain.ActivityMetrics, error) {
	m := &domain.ActivityMetrics{}
	var anomalies []string
	err := r.db.QueryRowContext(ctx, `
		SELECT customer_id, engagement_score, frequency_category,
		       trend_direction, anomalies, anomaly_severity, health_score,
		       computed_at
		FROM activity_metrics
		WHERE customer_id = $1
		ORDER BY computed_at DESC
		LIMIT 1
	`, customerID).Scan(&m.CustomerID, &m.EngagementScore, &m.FrequencyCategory,
		&m.TrendDirection, pq.Array(&anomalies), &m.AnomalySeverity,
		&m.HealthScore, &m.ComputedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest activity metrics: %w", err)
	}
	for _, a := range anomalies {
		m.Anomalies = append(m.Anomalies, domain.AnomalyType(a))
	}
	return m, nil
}

// SaveDormancy upserts one dormancy computation.
func (r *SnapshotRepo) SaveDormancy(ctx context.Context, d *domain.DormancyAssessment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO dormancy_assessments (
			customer_id, computation_date, days_inactive, dormancy_score,
			severity, reactivation_score, urgency, recommended_campaign,
			campaign_cost_per_head, expected_reactivation, workflow_eligible,
			computed_at
		) VALUES ($1, $2::date, $3, $4, $5, $6, $7, $8, $9, $10, $11, $2)
		ON CONFLICT (customer_id, computation_date) DO UPDATE SET
			days_inactive = EXCLUDED.days_inactive,
			dormancy_score = EXCLUDED.dormancy_score,
			severity = EXCLUDED.severity,
			reactivation_score = EXCLUDED.reactivation_score,
			urgency = EXCLUDED.urgency,
			recommended_campaign = EXCLUDED.recommended_campaign,
			campaign_cost_per_head = EXCLUDED.campaign_cost_per_head,
			expected_reactivation = EXCLUDED.expected_reactivation,
			workflow_eligible = EXCLUDED.workflow_eligible,
			computed_at = EXCLUDED.computed_at
	`, d.CustomerID, d.ComputedAt, d.DaysInactive, d.DormancyScore,
		d.Severity, d.ReactivationScore, d.Urgency, d.RecommendedCampaign,
		d.CampaignCostPerHead, d.ExpectedReactivation, d.WorkflowEligible)
	if err != nil {
		return fmt.Errorf("save dormancy: %w", err)
	}
	return nil
}

// LatestDormancy returns the most recent dormancy snapshot, or nil.
func (r *SnapshotRepo) LatestDormancy(ctx context.Context, customerID string) (*domain.DormancyAssessment, error) {
	d := &domain.DormancyAssessment{}
	err := r.db.QueryRowContext(ctx, `
		SELECT customer_id, days_inactive, dormancy_score, severity,
		       reactivation_score, urgency, recommended_campaign,
		       campaign_cost_per_head, expected_reactivation,
		       workflow_eligible, computed_at
		FROM dormancy_assessments
		WHERE customer_id = $1
		ORDER BY computed_at DESC
		LIMIT 1
	`, customerID).Scan(&d.CustomerID, &d.DaysInactive, &d.DormancyScore,
		&d.Severity, &d.ReactivationScore, &d.Urgency, &d.RecommendedCampaign,
		&d.CampaignCostPerHead, &d.ExpectedReactivation, &d.WorkflowEligible,
		&d.ComputedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest dormancy: %w", err)
	}
	return d, nil
}

// WorkflowEligible lists latest dormancy snapshots flagged for the
// reactivation workflow, highest reactivation score first.
func (r *SnapshotRepo) WorkflowEligible(ctx context.Context, limit int) ([]domain.DormancyAssessment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT customer_id, days_inactive, dormancy_score, severity,
		       reactivation_score, urgency, recommended_campaign,
		       campaign_cost_per_head, expected_reactivation,
		       workflow_eligible, computed_at
		FROM (
			SELECT DISTINCT ON (customer_id) *
			FROM dormancy_assessments
			ORDER BY customer_id, computed_at DESC
		) latest
		WHERE workflow_eligible
		ORDER BY reactivation_score DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query workflow eligible: %w", err)
	}
	defer rows.Close()

	var out []domain.DormancyAssessment
	for rows.Next() {
		var d domain.DormancyAssessment
		if err := rows.Scan(&d.CustomerID, &d.DaysInactive, &d.DormancyScore,
			&d.Severity, &d.ReactivationScore, &d.Urgency, &d.RecommendedCampaign,
			&d.CampaignCostPerHead, &d.ExpectedReactivation,
			&d.WorkflowEligible, &d.ComputedAt); err != nil {
			return nil, fmt.Errorf("scan dormancy: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
