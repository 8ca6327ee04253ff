package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Classifier    ClassifierConfig    `yaml:"classifier"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Monitoring    MonitoringConfig    `yaml:"monitoring"`
	ChurnModel    ChurnModelConfig    `yaml:"churn_model"`
	Scoring       ScoringConfig       `yaml:"scoring"`
	Alerts        AlertThresholds     `yaml:"alerts"`
	Campaigns     CampaignTiers       `yaml:"campaigns"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// In a container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	URL             string `yaml:"url"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_minutes"`
}

// RedisConfig holds Redis settings for locking and snapshot caching
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Enabled  bool   `yaml:"enabled"`
}

// ClassifierConfig holds the external sentiment classifier settings.
// The classifier is optional: on timeout or failure the analyzer falls
// back to the local lexicon scorer.
type ClassifierConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	Language       string `yaml:"language"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxRetries     int    `yaml:"max_retries"`
	Enabled        bool   `yaml:"enabled"`
}

// Timeout returns the configured timeout as a duration
func (c ClassifierConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// NotificationsConfig holds alert delivery channel settings
type NotificationsConfig struct {
	Channels []string          `yaml:"channels"`
	Email    EmailChannelConfig `yaml:"email"`
	Slack    SlackChannelConfig `yaml:"slack"`
	SMS      SMSChannelConfig   `yaml:"sms"`
}

// EmailChannelConfig holds AWS SES v2 settings for email alerts
type EmailChannelConfig struct {
	Region         string   `yaml:"region"`
	AccessKey      string   `yaml:"access_key"`
	SecretKey      string   `yaml:"secret_key"`
	From           string   `yaml:"from"`
	To             []string `yaml:"to"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	Enabled        bool     `yaml:"enabled"`
}

// Timeout returns the configured timeout as a duration
func (c EmailChannelConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SlackChannelConfig holds the incoming-webhook settings for Slack alerts
type SlackChannelConfig struct {
	WebhookURL string `yaml:"webhook_url"`
	Channel    string `yaml:"channel"`
	Enabled    bool   `yaml:"enabled"`
}

// SMSChannelConfig holds SMS gateway settings. Without a provider URL the
// channel logs instead of sending.
type SMSChannelConfig struct {
	ProviderURL string   `yaml:"provider_url"`
	APIKey      string   `yaml:"api_key"`
	To          []string `yaml:"to"`
	Enabled     bool     `yaml:"enabled"`
}

// MonitoringConfig holds batch orchestration settings
type MonitoringConfig struct {
	IntervalMinutes     int `yaml:"interval_minutes"`
	Concurrency         int `yaml:"concurrency"`
	WindowDays          int `yaml:"window_days"`
	ValueWindowDays     int `yaml:"value_window_days"`
	BatchLockTTLMinutes int `yaml:"batch_lock_ttl_minutes"`
}

// Interval returns the cycle interval as a duration
func (c MonitoringConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// ChurnModelConfig holds the fixed-weight churn scorecard. The weights
// are configuration, not code: operators can replace them without
// touching the pipeline, and every score records the model version.
type ChurnModelConfig struct {
	Version string `yaml:"version"`

	// Linear model weights (sigmoid of the weighted sum).
	FrequencyDeclineWeight  float64 `yaml:"frequency_decline_weight"`
	DaysSinceShipmentWeight float64 `yaml:"days_since_shipment_weight"`
	DaysSinceShipmentCap    int     `yaml:"days_since_shipment_cap"`
	ComplaintsWeight        float64 `yaml:"complaints_weight"`
	NegativeSentimentWeight float64 `yaml:"negative_sentiment_weight"`
	CreditUtilizationWeight float64 `yaml:"credit_utilization_weight"`
	PaymentDelaysWeight     float64 `yaml:"payment_delays_weight"`

	// Binary rule contributions for the risk score.
	InactivityContribution  float64 `yaml:"inactivity_contribution"`
	DeclineContribution     float64 `yaml:"decline_contribution"`
	ComplaintsContribution  float64 `yaml:"complaints_contribution"`
	UtilizationContribution float64 `yaml:"utilization_contribution"`
	DelaysContribution      float64 `yaml:"delays_contribution"`

	// Cold-start defaults returned when the window has no facts.
	ColdStartProbability float64 `yaml:"cold_start_probability"`
	ColdStartRetention   float64 `yaml:"cold_start_retention"`
	ColdStartConfidence  float64 `yaml:"cold_start_confidence"`
}

// ScoringConfig holds the blend weights and placeholder constants for the
// non-churn score producers. Several "confidence" and "trend strength"
// values are documented defaults pending real models; they are kept
// configurable rather than baked into the algorithms.
type ScoringConfig struct {
	Segmentation SegmentationWeights `yaml:"segmentation"`
	Activity     ActivityWeights     `yaml:"activity"`
	Dormancy     DormancyWeights     `yaml:"dormancy"`
	Satisfaction SatisfactionWeights `yaml:"satisfaction"`
	Value        ValueWeights        `yaml:"value"`
}

// SegmentationWeights holds composite-score blend weights
type SegmentationWeights struct {
	ValueRFMWeight        float64 `yaml:"value_rfm_weight"`
	ValueMonetaryWeight   float64 `yaml:"value_monetary_weight"`
	EngagementRecency     float64 `yaml:"engagement_recency_weight"`
	EngagementFrequency   float64 `yaml:"engagement_frequency_weight"`
	LoyaltyTenureWeight   float64 `yaml:"loyalty_tenure_weight"`
	LoyaltyOnTimeWeight   float64 `yaml:"loyalty_on_time_weight"`
	GrowthVolumeWeight    float64 `yaml:"growth_volume_weight"`
	GrowthTrendWeight     float64 `yaml:"growth_trend_weight"`
}

// ActivityWeights holds the engagement blend weights
type ActivityWeights struct {
	Recency     float64 `yaml:"recency"`
	Frequency   float64 `yaml:"frequency"`
	Volume      float64 `yaml:"volume"`
	Consistency float64 `yaml:"consistency"`
}

// DormancyWeights holds the dormancy and reactivation blend weights
type DormancyWeights struct {
	Inactivity      float64 `yaml:"inactivity"`
	Engagement      float64 `yaml:"engagement"`
	Health          float64 `yaml:"health"`
	PatternDecline  float64 `yaml:"pattern_decline"`
	ReactValue      float64 `yaml:"reactivation_value"`
	ReactEngagement float64 `yaml:"reactivation_engagement"`
	ReactResponse   float64 `yaml:"reactivation_responsiveness"`
	ReactChurn      float64 `yaml:"reactivation_inverse_churn"`
	// Responsiveness has no behavioral signal yet; documented default.
	DefaultResponsiveness float64 `yaml:"default_responsiveness"`
}

// SatisfactionWeights holds the satisfaction blend weights
type SatisfactionWeights struct {
	Support       float64 `yaml:"support"`
	Service       float64 `yaml:"service"`
	Communication float64 `yaml:"communication"`
	Value         float64 `yaml:"value"`
}

// ValueWeights holds value-analyzer parameters
type ValueWeights struct {
	AnnualDiscountRate  float64 `yaml:"annual_discount_rate"`
	DefaultRetention    float64 `yaml:"default_retention"`
	MinLifespanMonths   float64 `yaml:"min_lifespan_months"`
	MaxLifespanMonths   float64 `yaml:"max_lifespan_months"`
	DefaultConfidence   float64 `yaml:"default_confidence"`
}

// AlertThresholds holds the alert creation and escalation thresholds
type AlertThresholds struct {
	ChurnProbabilityHigh     float64 `yaml:"churn_probability_high"`
	ChurnProbabilityCritical float64 `yaml:"churn_probability_critical"`
	SentimentSpikeCount      int     `yaml:"sentiment_spike_count"`
	SentimentSpikeEscalate   int     `yaml:"sentiment_spike_escalate"`
	SentimentSpikeAverage    float64 `yaml:"sentiment_spike_average"`
	SentimentSpikeWindowHours int    `yaml:"sentiment_spike_window_hours"`
	ReactivationThreshold    float64 `yaml:"reactivation_threshold"`
}

// CampaignTier describes one reactivation campaign band
type CampaignTier struct {
	MinValue             float64 `yaml:"min_value"`
	CostPerCustomer      float64 `yaml:"cost_per_customer"`
	ExpectedReactivation float64 `yaml:"expected_reactivation"`
}

// CampaignTiers holds the reactivation campaign bands by last-activity value
type CampaignTiers struct {
	Premium  CampaignTier `yaml:"premium"`
	Targeted CampaignTier `yaml:"targeted"`
	Mass     CampaignTier `yaml:"mass"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parse(data)
}

// Default returns a configuration with every default applied, without
// reading a file. Primarily for tests and tooling.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars in deployment.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("CLASSIFIER_BASE_URL"); v != "" {
		cfg.Classifier.BaseURL = v
	}
	if v := os.Getenv("CLASSIFIER_API_KEY"); v != "" {
		cfg.Classifier.APIKey = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.Notifications.Email.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.Notifications.Email.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.Notifications.Email.Region = v
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Notifications.Slack.WebhookURL = v
		cfg.Notifications.Slack.Enabled = true
	}

	return cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 30
	}
	if cfg.Classifier.TimeoutSeconds == 0 {
		cfg.Classifier.TimeoutSeconds = 30
	}
	if cfg.Classifier.MaxRetries == 0 {
		cfg.Classifier.MaxRetries = 2
	}
	if cfg.Classifier.Language == "" {
		cfg.Classifier.Language = "en"
	}
	if cfg.Notifications.Email.TimeoutSeconds == 0 {
		cfg.Notifications.Email.TimeoutSeconds = 30
	}
	if cfg.Notifications.Email.Region == "" {
		cfg.Notifications.Email.Region = "us-west-2"
	}
	if len(cfg.Notifications.Channels) == 0 {
		cfg.Notifications.Channels = []string{"email"}
	}
	if cfg.Monitoring.IntervalMinutes == 0 {
		cfg.Monitoring.IntervalMinutes = 60
	}
	if cfg.Monitoring.Concurrency == 0 {
		cfg.Monitoring.Concurrency = 8
	}
	if cfg.Monitoring.WindowDays == 0 {
		cfg.Monitoring.WindowDays = 90
	}
	if cfg.Monitoring.ValueWindowDays == 0 {
		cfg.Monitoring.ValueWindowDays = 365
	}
	if cfg.Monitoring.BatchLockTTLMinutes == 0 {
		cfg.Monitoring.BatchLockTTLMinutes = 55
	}

	cm := &cfg.ChurnModel
	if cm.Version == "" {
		cm.Version = "scorecard-v1"
	}
	if cm.FrequencyDeclineWeight == 0 {
		cm.FrequencyDeclineWeight = 2.5
	}
	if cm.DaysSinceShipmentWeight == 0 {
		cm.DaysSinceShipmentWeight = 0.01
	}
	if cm.DaysSinceShipmentCap == 0 {
		cm.DaysSinceShipmentCap = 365
	}
	if cm.ComplaintsWeight == 0 {
		cm.ComplaintsWeight = 0.3
	}
	if cm.NegativeSentimentWeight == 0 {
		cm.NegativeSentimentWeight = 0.4
	}
	if cm.CreditUtilizationWeight == 0 {
		cm.CreditUtilizationWeight = 1.0
	}
	if cm.PaymentDelaysWeight == 0 {
		cm.PaymentDelaysWeight = 0.2
	}
	if cm.InactivityContribution == 0 {
		cm.InactivityContribution = 0.2
	}
	if cm.DeclineContribution == 0 {
		cm.DeclineContribution = 0.3
	}
	if cm.ComplaintsContribution == 0 {
		cm.ComplaintsContribution = 0.2
	}
	if cm.UtilizationContribution == 0 {
		cm.UtilizationContribution = 0.15
	}
	if cm.DelaysContribution == 0 {
		cm.DelaysContribution = 0.15
	}
	if cm.ColdStartProbability == 0 {
		cm.ColdStartProbability = 0.1
	}
	if cm.ColdStartRetention == 0 {
		cm.ColdStartRetention = 0.9
	}
	if cm.ColdStartConfidence == 0 {
		cm.ColdStartConfidence = 0.3
	}

	sc := &cfg.Scoring
	if sc.Segmentation.ValueRFMWeight == 0 {
		sc.Segmentation.ValueRFMWeight = 0.6
	}
	if sc.Segmentation.ValueMonetaryWeight == 0 {
		sc.Segmentation.ValueMonetaryWeight = 0.4
	}
	if sc.Segmentation.EngagementRecency == 0 {
		sc.Segmentation.EngagementRecency = 0.5
	}
	if sc.Segmentation.EngagementFrequency == 0 {
		sc.Segmentation.EngagementFrequency = 0.5
	}
	if sc.Segmentation.LoyaltyTenureWeight == 0 {
		sc.Segmentation.LoyaltyTenureWeight = 0.5
	}
	if sc.Segmentation.LoyaltyOnTimeWeight == 0 {
		sc.Segmentation.LoyaltyOnTimeWeight = 0.5
	}
	if sc.Segmentation.GrowthVolumeWeight == 0 {
		sc.Segmentation.GrowthVolumeWeight = 0.6
	}
	if sc.Segmentation.GrowthTrendWeight == 0 {
		sc.Segmentation.GrowthTrendWeight = 0.4
	}
	if sc.Activity.Recency == 0 {
		sc.Activity.Recency = 0.3
	}
	if sc.Activity.Frequency == 0 {
		sc.Activity.Frequency = 0.25
	}
	if sc.Activity.Volume == 0 {
		sc.Activity.Volume = 0.25
	}
	if sc.Activity.Consistency == 0 {
		sc.Activity.Consistency = 0.2
	}
	if sc.Dormancy.Inactivity == 0 {
		sc.Dormancy.Inactivity = 0.4
	}
	if sc.Dormancy.Engagement == 0 {
		sc.Dormancy.Engagement = 0.25
	}
	if sc.Dormancy.Health == 0 {
		sc.Dormancy.Health = 0.2
	}
	if sc.Dormancy.PatternDecline == 0 {
		sc.Dormancy.PatternDecline = 0.15
	}
	if sc.Dormancy.ReactValue == 0 {
		sc.Dormancy.ReactValue = 0.35
	}
	if sc.Dormancy.ReactEngagement == 0 {
		sc.Dormancy.ReactEngagement = 0.3
	}
	if sc.Dormancy.ReactResponse == 0 {
		sc.Dormancy.ReactResponse = 0.2
	}
	if sc.Dormancy.ReactChurn == 0 {
		sc.Dormancy.ReactChurn = 0.15
	}
	if sc.Dormancy.DefaultResponsiveness == 0 {
		sc.Dormancy.DefaultResponsiveness = 0.5
	}
	if sc.Satisfaction.Support == 0 {
		sc.Satisfaction.Support = 0.3
	}
	if sc.Satisfaction.Service == 0 {
		sc.Satisfaction.Service = 0.25
	}
	if sc.Satisfaction.Communication == 0 {
		sc.Satisfaction.Communication = 0.25
	}
	if sc.Satisfaction.Value == 0 {
		sc.Satisfaction.Value = 0.2
	}
	if sc.Value.AnnualDiscountRate == 0 {
		sc.Value.AnnualDiscountRate = 0.10
	}
	if sc.Value.DefaultRetention == 0 {
		sc.Value.DefaultRetention = 0.7
	}
	if sc.Value.MinLifespanMonths == 0 {
		sc.Value.MinLifespanMonths = 6
	}
	if sc.Value.MaxLifespanMonths == 0 {
		sc.Value.MaxLifespanMonths = 60
	}
	if sc.Value.DefaultConfidence == 0 {
		sc.Value.DefaultConfidence = 0.7
	}

	al := &cfg.Alerts
	if al.ChurnProbabilityHigh == 0 {
		al.ChurnProbabilityHigh = 0.7
	}
	if al.ChurnProbabilityCritical == 0 {
		al.ChurnProbabilityCritical = 0.85
	}
	if al.SentimentSpikeCount == 0 {
		al.SentimentSpikeCount = 3
	}
	if al.SentimentSpikeEscalate == 0 {
		al.SentimentSpikeEscalate = 5
	}
	if al.SentimentSpikeAverage == 0 {
		al.SentimentSpikeAverage = -0.5
	}
	if al.SentimentSpikeWindowHours == 0 {
		al.SentimentSpikeWindowHours = 24
	}
	if al.ReactivationThreshold == 0 {
		al.ReactivationThreshold = 0.6
	}

	ca := &cfg.Campaigns
	if ca.Premium.MinValue == 0 {
		ca.Premium = CampaignTier{MinValue: 5000, CostPerCustomer: 500, ExpectedReactivation: 0.25}
	}
	if ca.Targeted.MinValue == 0 {
		ca.Targeted = CampaignTier{MinValue: 1000, CostPerCustomer: 50, ExpectedReactivation: 0.15}
	}
	if ca.Mass.CostPerCustomer == 0 {
		ca.Mass = CampaignTier{MinValue: 0, CostPerCustomer: 10, ExpectedReactivation: 0.08}
	}
}

// Validate checks weight and threshold configuration. Invalid weights are
// fatal at startup: silently scoring with wrong weights corrupts every
// snapshot of every customer.
func (cfg *Config) Validate() error {
	checks := []struct {
		name string
		val  float64
	}{
		{"churn_model.frequency_decline_weight", cfg.ChurnModel.FrequencyDeclineWeight},
		{"churn_model.days_since_shipment_weight", cfg.ChurnModel.DaysSinceShipmentWeight},
		{"churn_model.complaints_weight", cfg.ChurnModel.ComplaintsWeight},
		{"churn_model.negative_sentiment_weight", cfg.ChurnModel.NegativeSentimentWeight},
		{"churn_model.credit_utilization_weight", cfg.ChurnModel.CreditUtilizationWeight},
		{"churn_model.payment_delays_weight", cfg.ChurnModel.PaymentDelaysWeight},
	}
	for _, c := range checks {
		if c.val < 0 || math.IsNaN(c.val) || math.IsInf(c.val, 0) {
			return fmt.Errorf("config: %s must be a non-negative finite number, got %v", c.name, c.val)
		}
	}

	probs := []struct {
		name string
		val  float64
	}{
		{"churn_model.cold_start_probability", cfg.ChurnModel.ColdStartProbability},
		{"churn_model.cold_start_retention", cfg.ChurnModel.ColdStartRetention},
		{"alerts.churn_probability_high", cfg.Alerts.ChurnProbabilityHigh},
		{"alerts.churn_probability_critical", cfg.Alerts.ChurnProbabilityCritical},
		{"alerts.reactivation_threshold", cfg.Alerts.ReactivationThreshold},
		{"scoring.value.default_retention", cfg.Scoring.Value.DefaultRetention},
	}
	for _, p := range probs {
		if p.val < 0 || p.val > 1 || math.IsNaN(p.val) {
			return fmt.Errorf("config: %s must be in [0,1], got %v", p.name, p.val)
		}
	}

	if cfg.Alerts.ChurnProbabilityCritical < cfg.Alerts.ChurnProbabilityHigh {
		return fmt.Errorf("config: alerts.churn_probability_critical (%v) must be >= churn_probability_high (%v)",
			cfg.Alerts.ChurnProbabilityCritical, cfg.Alerts.ChurnProbabilityHigh)
	}

	for _, blend := range []struct {
		name string
		sum  float64
	}{
		{"scoring.activity", cfg.Scoring.Activity.Recency + cfg.Scoring.Activity.Frequency + cfg.Scoring.Activity.Volume + cfg.Scoring.Activity.Consistency},
		{"scoring.satisfaction", cfg.Scoring.Satisfaction.Support + cfg.Scoring.Satisfaction.Service + cfg.Scoring.Satisfaction.Communication + cfg.Scoring.Satisfaction.Value},
		{"scoring.dormancy", cfg.Scoring.Dormancy.Inactivity + cfg.Scoring.Dormancy.Engagement + cfg.Scoring.Dormancy.Health + cfg.Scoring.Dormancy.PatternDecline},
	} {
		if math.Abs(blend.sum-1.0) > 0.001 {
			return fmt.Errorf("config: %s blend weights must sum to 1.0, got %v", blend.name, blend.sum)
		}
	}

	if cfg.Monitoring.Concurrency < 1 {
		return fmt.Errorf("config: monitoring.concurrency must be >= 1, got %d", cfg.Monitoring.Concurrency)
	}

	return nil
}
