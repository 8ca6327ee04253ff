package domain

import "time"

// ChurnFactor is a stable code identifying one contributor to churn risk.
type ChurnFactor string

const (
	FactorInsufficientData  ChurnFactor = "CF001"
	FactorInactivity        ChurnFactor = "CF002"
	FactorFrequencyDecline  ChurnFactor = "CF003"
	FactorComplaints        ChurnFactor = "CF004"
	FactorNegativeSentiment ChurnFactor = "CF005"
	FactorCreditPressure    ChurnFactor = "CF006"
	FactorPaymentDelays     ChurnFactor = "CF007"
)

// ChurnScore is one dated churn computation for a customer. Snapshots are
// append-only: a new computation supersedes, never mutates, a prior one.
type ChurnScore struct {
	CustomerID         string        `json:"customer_id" db:"customer_id"`
	ChurnProbability   float64       `json:"churn_probability" db:"churn_probability"`
	RiskScore          float64       `json:"risk_score" db:"risk_score"`
	RetentionScore     float64       `json:"retention_score" db:"retention_score"`
	PrimaryFactors     []ChurnFactor `json:"primary_factors" db:"primary_factors"`
	SecondaryFactors   []ChurnFactor `json:"secondary_factors" db:"secondary_factors"`
	PredictedChurnDate *time.Time    `json:"predicted_churn_date,omitempty" db:"predicted_churn_date"`
	Confidence         float64       `json:"confidence" db:"confidence"`
	ModelVersion       string        `json:"model_version" db:"model_version"`
	ComputedAt         time.Time     `json:"computed_at" db:"computed_at"`
}

// VolumeTier classifies customers by monthly shipment volume.
type VolumeTier string

const (
	VolumeEnterprise VolumeTier = "enterprise"
	VolumeHigh       VolumeTier = "high"
	VolumeMedium     VolumeTier = "medium"
	VolumeLow        VolumeTier = "low"
)

// ProfitabilityTier classifies customers by profit margin.
type ProfitabilityTier string

const (
	ProfitPremium ProfitabilityTier = "premium"
	ProfitHigh    ProfitabilityTier = "high"
	ProfitMedium  ProfitabilityTier = "medium"
	ProfitLow     ProfitabilityTier = "low"
)

// LifecycleStage describes where the customer sits in their tenure.
type LifecycleStage string

const (
	StageNew         LifecycleStage = "new"
	StageTrial       LifecycleStage = "trial"
	StageGrowing     LifecycleStage = "growing"
	StageEstablished LifecycleStage = "established"
)

// SegmentationResult is one dated segmentation computation.
type SegmentationResult struct {
	CustomerID        string            `json:"customer_id" db:"customer_id"`
	RFMScore          float64           `json:"rfm_score" db:"rfm_score"`
	RecencyScore      int               `json:"recency_score" db:"recency_score"`
	FrequencyScore    int               `json:"frequency_score" db:"frequency_score"`
	MonetaryScore     int               `json:"monetary_score" db:"monetary_score"`
	VolumeTier        VolumeTier        `json:"volume_tier" db:"volume_tier"`
	ProfitabilityTier ProfitabilityTier `json:"profitability_tier" db:"profitability_tier"`
	BehavioralSegment string            `json:"behavioral_segment" db:"behavioral_segment"`
	LifecycleStage    LifecycleStage    `json:"lifecycle_stage" db:"lifecycle_stage"`
	ValueScore        float64           `json:"value_score" db:"value_score"`
	EngagementScore   float64           `json:"engagement_score" db:"engagement_score"`
	LoyaltyScore      float64           `json:"loyalty_score" db:"loyalty_score"`
	GrowthPotential   float64           `json:"growth_potential" db:"growth_potential"`
	RetentionRisk     float64           `json:"retention_risk" db:"retention_risk"`
	PrimarySegment    string            `json:"primary_segment" db:"primary_segment"`
	SecondarySegments []string          `json:"secondary_segments" db:"secondary_segments"`
	ComputedAt        time.Time         `json:"computed_at" db:"computed_at"`
}

// PriceSensitivity bands guide downstream pricing and campaign messaging.
type PriceSensitivity string

const (
	SensitivityInelastic PriceSensitivity = "inelastic"
	SensitivityModerate  PriceSensitivity = "moderate"
	SensitivityElastic   PriceSensitivity = "elastic"
)

// ValueMetrics is one dated customer value computation. CLVTotal equals
// CLVRetentionAdjusted by convention; the duplication is deliberate so
// dashboards can key off one canonical field.
type ValueMetrics struct {
	CustomerID           string           `json:"customer_id" db:"customer_id"`
	AverageShipmentValue float64          `json:"average_shipment_value" db:"average_shipment_value"`
	CLVSimple            float64          `json:"clv_simple" db:"clv_simple"`
	CLVRetentionAdjusted float64          `json:"clv_retention_adjusted" db:"clv_retention_adjusted"`
	CLVDiscounted        float64          `json:"clv_discounted" db:"clv_discounted"`
	CLVTotal             float64          `json:"clv_total" db:"clv_total"`
	PredictedCLV         float64          `json:"predicted_clv" db:"predicted_clv"`
	LifespanMonths       float64          `json:"lifespan_months" db:"lifespan_months"`
	PriceSensitivity     PriceSensitivity `json:"price_sensitivity" db:"price_sensitivity"`
	GrowthTrajectory     string           `json:"growth_trajectory" db:"growth_trajectory"`
	Confidence           float64          `json:"confidence" db:"confidence"`
	ComputedAt           time.Time        `json:"computed_at" db:"computed_at"`
}

// Emotion enumerates the primary emotions the sentiment analyzer emits.
type Emotion string

const (
	EmotionJoy          Emotion = "joy"
	EmotionTrust        Emotion = "trust"
	EmotionNeutral      Emotion = "neutral"
	EmotionSadness      Emotion = "sadness"
	EmotionAnger        Emotion = "anger"
	EmotionFear         Emotion = "fear"
	EmotionDisgust      Emotion = "disgust"
	EmotionSurprise     Emotion = "surprise"
	EmotionAnticipation Emotion = "anticipation"
)

// FeedbackCategory routes ticket feedback to the owning team.
type FeedbackCategory string

const (
	CategoryBilling        FeedbackCategory = "billing"
	CategoryTechnical      FeedbackCategory = "technical"
	CategoryService        FeedbackCategory = "service"
	CategoryAccount        FeedbackCategory = "account"
	CategoryFeatureRequest FeedbackCategory = "feature_request"
	CategoryPraise         FeedbackCategory = "praise"
	CategoryComplaint      FeedbackCategory = "complaint"
	CategoryGeneralInquiry FeedbackCategory = "general_inquiry"
)

// SentimentRecord is the analyzed sentiment of one support interaction.
// Immutable after creation except for a full re-analysis overwrite.
type SentimentRecord struct {
	TicketID       string           `json:"ticket_id" db:"ticket_id"`
	CustomerID     string           `json:"customer_id" db:"customer_id"`
	TicketOpenedAt time.Time        `json:"ticket_opened_at" db:"ticket_opened_at"`
	SentimentScore float64          `json:"sentiment_score" db:"sentiment_score"`
	Confidence     float64          `json:"confidence" db:"confidence"`
	PrimaryEmotion Emotion          `json:"primary_emotion" db:"primary_emotion"`
	NPSScore       int              `json:"nps_score" db:"nps_score"`
	Category       FeedbackCategory `json:"feedback_category" db:"feedback_category"`
	Keywords       []string         `json:"keywords" db:"keywords"`
	Source         string           `json:"source" db:"source"` // "classifier" or "lexicon"
	AnalyzedAt     time.Time        `json:"analyzed_at" db:"analyzed_at"`
}

// NPSCategory is the promoter/passive/detractor classification.
type NPSCategory string

const (
	NPSPromoter  NPSCategory = "promoter"
	NPSPassive   NPSCategory = "passive"
	NPSDetractor NPSCategory = "detractor"
)

// SatisfactionScore is one dated satisfaction computation.
type SatisfactionScore struct {
	CustomerID          string      `json:"customer_id" db:"customer_id"`
	OverallSatisfaction float64     `json:"overall_satisfaction" db:"overall_satisfaction"` // 0-5
	SupportScore        float64     `json:"support_score" db:"support_score"`
	ServiceScore        float64     `json:"service_score" db:"service_score"`
	CommunicationScore  float64     `json:"communication_score" db:"communication_score"`
	ValueScore          float64     `json:"value_score" db:"value_score"`
	NPSScore            float64     `json:"nps_score" db:"nps_score"`
	NPSCategory         NPSCategory `json:"nps_category" db:"nps_category"`
	HealthScore         float64     `json:"health_score" db:"health_score"`
	RootCauses          []string    `json:"root_causes" db:"root_causes"`
	ComputedAt          time.Time   `json:"computed_at" db:"computed_at"`
}

// FrequencyCategory buckets how often a customer is active.
type FrequencyCategory string

const (
	FrequencyDaily      FrequencyCategory = "daily"
	FrequencyWeekly     FrequencyCategory = "weekly"
	FrequencyMonthly    FrequencyCategory = "monthly"
	FrequencyOccasional FrequencyCategory = "occasional"
	FrequencyNoActivity FrequencyCategory = "no_activity"
)

// TrendDirection describes where an activity metric is heading.
type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendStable    TrendDirection = "stable"
	TrendDeclining TrendDirection = "declining"
)

// AnomalyType enumerates the activity anomalies the monitor flags.
type AnomalyType string

const (
	AnomalyFrequency AnomalyType = "frequency_outlier"
	AnomalyValue     AnomalyType = "value_outlier"
	AnomalyPattern   AnomalyType = "pattern_shift"
)

// ActivityMetrics is one dated activity health computation.
type ActivityMetrics struct {
	CustomerID        string            `json:"customer_id" db:"customer_id"`
	EngagementScore   float64           `json:"engagement_score" db:"engagement_score"`
	FrequencyCategory FrequencyCategory `json:"frequency_category" db:"frequency_category"`
	TrendDirection    TrendDirection    `json:"trend_direction" db:"trend_direction"`
	Anomalies         []AnomalyType     `json:"anomalies" db:"anomalies"`
	AnomalySeverity   string            `json:"anomaly_severity" db:"anomaly_severity"` // high, medium, none
	HealthScore       float64           `json:"health_score" db:"health_score"`
	ComputedAt        time.Time         `json:"computed_at" db:"computed_at"`
}

// DormancySeverity tiers how far gone a dormant customer is.
type DormancySeverity string

const (
	DormancyMild     DormancySeverity = "mild"
	DormancyModerate DormancySeverity = "moderate"
	DormancySevere   DormancySeverity = "severe"
	DormancyCritical DormancySeverity = "critical"
)

// ReactivationCampaign names the recommended win-back play.
type ReactivationCampaign string

const (
	CampaignPremiumPersonalized ReactivationCampaign = "premium_personalized"
	CampaignTargetedEmailSeries ReactivationCampaign = "targeted_email_series"
	CampaignMassEmail           ReactivationCampaign = "mass_email_campaign"
)

// DormancyAssessment is one dated dormancy computation.
type DormancyAssessment struct {
	CustomerID          string               `json:"customer_id" db:"customer_id"`
	DaysInactive        int                  `json:"days_inactive" db:"days_inactive"`
	DormancyScore       float64              `json:"dormancy_score" db:"dormancy_score"`
	Severity            DormancySeverity     `json:"severity" db:"severity"`
	ReactivationScore   float64              `json:"reactivation_score" db:"reactivation_score"`
	Urgency             string               `json:"urgency" db:"urgency"` // low, medium, high
	RecommendedCampaign ReactivationCampaign `json:"recommended_campaign" db:"recommended_campaign"`
	CampaignCostPerHead float64              `json:"campaign_cost_per_head" db:"campaign_cost_per_head"`
	ExpectedReactivation float64             `json:"expected_reactivation" db:"expected_reactivation"`
	WorkflowEligible    bool                 `json:"workflow_eligible" db:"workflow_eligible"`
	ComputedAt          time.Time            `json:"computed_at" db:"computed_at"`
}

// Clamp01 bounds v to [0,1]. Shared by every score producer so the range
// invariant holds regardless of weight configuration.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Round4 rounds to 4 decimal places, the precision the composite scores
// are persisted at.
func Round4(v float64) float64 {
	if v < 0 {
		return float64(int64(v*10000-0.5)) / 10000
	}
	return float64(int64(v*10000+0.5)) / 10000
}
